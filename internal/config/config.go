// Package config loads process configuration from the environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the document services.
type Config struct {
	ProjectID      string
	VertexAIRegion string
	GeminiModel    string

	OCRProvider         string
	DocumentAILocation  string
	DocumentAIProcessor string
	CredentialsFile     string
	CredentialsJSON     string

	AutoTranslate       bool
	TranslationEnabled  bool
	SourceLanguage      string
	TargetLanguage      string
	MandatoryEntityKeys []string

	MaxFileSizeMB  int
	MaxTotalSizeMB int
	PDFScale       float64
	MaxPDFPages    int
	Pdftoppm       string

	DocumentConcurrency int
	OCRTimeout          time.Duration
	TranslateTimeout    time.Duration
	ExtractTimeout      time.Duration

	StoreBackend        string
	StoreMaxEntries     int
	FirestoreCollection string
	RedisAddr           string
	RedisTTL            time.Duration

	ExportBucket     string
	WorkflowID       string
	WorkflowLocation string

	LogMode        string
	LogLevel       string
	AllowedOrigins []string
	Port           string
}

const (
	StoreMemory    = "memory"
	StoreFirestore = "firestore"
	StoreRedis     = "redis"

	OCRVision     = "vision"
	OCRDocumentAI = "documentai"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("project_id", "")
	v.SetDefault("vertex_ai_region", "us-central1")
	v.SetDefault("gemini_model", "gemini-1.5-pro")
	v.SetDefault("ocr_provider", OCRVision)
	v.SetDefault("documentai_location", "us")
	v.SetDefault("documentai_processor_id", "")
	v.SetDefault("google_application_credentials", "")
	v.SetDefault("google_application_credentials_json", "")
	v.SetDefault("auto_translate", true)
	v.SetDefault("translation_enabled", true)
	v.SetDefault("source_language", "te")
	v.SetDefault("target_language", "en")
	v.SetDefault("mandatory_entity_keys", "CLAIM_STATUS,PATTA_HOLDER_NAME,PATTA_NUMBER")
	v.SetDefault("max_file_size_mb", 10)
	v.SetDefault("max_total_size_mb", 50)
	v.SetDefault("pdf_scale", 2.0)
	v.SetDefault("max_pdf_pages", 0)
	v.SetDefault("pdftoppm", "pdftoppm")
	v.SetDefault("document_concurrency", 1)
	v.SetDefault("ocr_timeout", 60*time.Second)
	v.SetDefault("translate_timeout", 30*time.Second)
	v.SetDefault("extract_timeout", 90*time.Second)
	v.SetDefault("store_backend", StoreMemory)
	v.SetDefault("store_max_entries", 1000)
	v.SetDefault("firestore_collection", "patta_results")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_ttl", 24*time.Hour)
	v.SetDefault("export_bucket", "")
	v.SetDefault("workflow_id", "")
	v.SetDefault("workflow_location", "us-central1")
	v.SetDefault("log_mode", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("port", "8080")
}

// Load reads configuration from the environment. If cfgFile is empty the
// default search paths are tried and a missing file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("pattaflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "pattaflow"))
		}
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		ProjectID:           strings.TrimSpace(v.GetString("project_id")),
		VertexAIRegion:      v.GetString("vertex_ai_region"),
		GeminiModel:         v.GetString("gemini_model"),
		OCRProvider:         strings.ToLower(strings.TrimSpace(v.GetString("ocr_provider"))),
		DocumentAILocation:  v.GetString("documentai_location"),
		DocumentAIProcessor: strings.TrimSpace(v.GetString("documentai_processor_id")),
		CredentialsFile:     strings.TrimSpace(v.GetString("google_application_credentials")),
		CredentialsJSON:     strings.TrimSpace(v.GetString("google_application_credentials_json")),
		AutoTranslate:       v.GetBool("auto_translate"),
		TranslationEnabled:  v.GetBool("translation_enabled"),
		SourceLanguage:      strings.TrimSpace(v.GetString("source_language")),
		TargetLanguage:      strings.TrimSpace(v.GetString("target_language")),
		MandatoryEntityKeys: splitList(v.GetString("mandatory_entity_keys")),
		MaxFileSizeMB:       v.GetInt("max_file_size_mb"),
		MaxTotalSizeMB:      v.GetInt("max_total_size_mb"),
		PDFScale:            v.GetFloat64("pdf_scale"),
		MaxPDFPages:         v.GetInt("max_pdf_pages"),
		Pdftoppm:            v.GetString("pdftoppm"),
		DocumentConcurrency: v.GetInt("document_concurrency"),
		OCRTimeout:          v.GetDuration("ocr_timeout"),
		TranslateTimeout:    v.GetDuration("translate_timeout"),
		ExtractTimeout:      v.GetDuration("extract_timeout"),
		StoreBackend:        strings.ToLower(strings.TrimSpace(v.GetString("store_backend"))),
		StoreMaxEntries:     v.GetInt("store_max_entries"),
		FirestoreCollection: v.GetString("firestore_collection"),
		RedisAddr:           strings.TrimSpace(v.GetString("redis_addr")),
		RedisTTL:            v.GetDuration("redis_ttl"),
		ExportBucket:        strings.TrimSpace(v.GetString("export_bucket")),
		WorkflowID:          strings.TrimSpace(v.GetString("workflow_id")),
		WorkflowLocation:    v.GetString("workflow_location"),
		LogMode:             v.GetString("log_mode"),
		LogLevel:            v.GetString("log_level"),
		AllowedOrigins:      splitList(v.GetString("allowed_origins")),
		Port:                v.GetString("port"),
	}
}

// Validate checks that backend selections have the settings they need.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreMemory:
	case StoreFirestore:
		if c.ProjectID == "" {
			return fmt.Errorf("PROJECT_ID must be set when STORE_BACKEND=firestore")
		}
	case StoreRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR must be set when STORE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.OCRProvider {
	case OCRVision:
	case OCRDocumentAI:
		if c.ProjectID == "" || c.DocumentAIProcessor == "" {
			return fmt.Errorf("PROJECT_ID and DOCUMENTAI_PROCESSOR_ID must be set when OCR_PROVIDER=documentai")
		}
	default:
		return fmt.Errorf("unknown OCR_PROVIDER %q", c.OCRProvider)
	}

	if c.WorkflowID != "" && c.ProjectID == "" {
		return fmt.Errorf("PROJECT_ID must be set when WORKFLOW_ID is configured")
	}
	if c.PDFScale <= 0 {
		return fmt.Errorf("PDF_SCALE must be positive, got %v", c.PDFScale)
	}
	if c.DocumentConcurrency < 1 {
		c.DocumentConcurrency = 1
	}
	return nil
}

// MaxFileSizeBytes is the per-file upload limit.
func (c *Config) MaxFileSizeBytes() int64 { return int64(c.MaxFileSizeMB) << 20 }

// MaxTotalSizeBytes is the per-request upload limit.
func (c *Config) MaxTotalSizeBytes() int64 { return int64(c.MaxTotalSizeMB) << 20 }

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
