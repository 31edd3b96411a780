// Package app wires the document pipeline and its collaborators from
// configuration. The HTTP function, the ingest function and the CLI all
// start from here.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/Lllllllleong/pattadocumentflow/internal/config"
	httpX "github.com/Lllllllleong/pattadocumentflow/internal/http"
	httpH "github.com/Lllllllleong/pattadocumentflow/internal/http/handlers"
	"github.com/Lllllllleong/pattadocumentflow/internal/langdetect"
	"github.com/Lllllllleong/pattadocumentflow/internal/logger"
	"github.com/Lllllllleong/pattadocumentflow/internal/services"
	"github.com/Lllllllleong/pattadocumentflow/internal/store"
)

type App struct {
	Log      *logger.Logger
	Cfg      *config.Config
	Clients  Clients
	Store    store.Store
	Pipeline *services.DocumentPipeline
	Chat     *services.ChatAssistant
}

// Options tune what New builds.
type Options struct {
	// Storage forces a Cloud Storage client even without an export bucket.
	// The ingest function needs it to read uploaded objects.
	Storage bool
	// Log replaces the logger built from cfg.
	Log *logger.Logger
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	log := opts.Log
	if log == nil {
		var err error
		log, err = logger.New(cfg.LogMode, cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}

	st, err := store.New(ctx, cfg, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init store: %w", err)
	}

	clients := wireClients(ctx, cfg, log, opts.Storage)

	return &App{
		Log:      log,
		Cfg:      cfg,
		Clients:  clients,
		Store:    st,
		Pipeline: wirePipeline(cfg, log, clients, st),
		Chat:     wireChat(cfg, log, clients),
	}, nil
}

func wirePipeline(cfg *config.Config, log *logger.Logger, c Clients, st store.Store) *services.DocumentPipeline {
	deps := services.PipelineDeps{
		OCR:   c.OCR,
		PDF:   services.NewPopplerRenderer(services.NewExecRunner(log), cfg.Pdftoppm, cfg.PDFScale, log),
		Store: st,
	}
	if c.Translator != nil {
		deps.Translator = c.Translator
		deps.Detector = langdetect.New(c.Translator, log)
	} else {
		deps.Detector = langdetect.New(nil, log)
	}
	if c.Vertex != nil {
		deps.Extractor = services.NewGeminiExtractor(c.Vertex, cfg.ExtractTimeout, log)
	}
	return services.NewDocumentPipeline(deps, services.PipelineOptions{
		TranslationEnabled:  cfg.TranslationEnabled,
		AutoTranslate:       cfg.AutoTranslate,
		SourceLanguage:      cfg.SourceLanguage,
		TargetLanguage:      cfg.TargetLanguage,
		MandatoryEntityKeys: cfg.MandatoryEntityKeys,
		Concurrency:         cfg.DocumentConcurrency,
		MaxPDFPages:         cfg.MaxPDFPages,
	}, log)
}

func wireChat(cfg *config.Config, log *logger.Logger, c Clients) *services.ChatAssistant {
	if c.Vertex == nil {
		return services.NewChatAssistant(nil, cfg.ExtractTimeout, log)
	}
	return services.NewChatAssistant(c.Vertex.ChatModel, cfg.ExtractTimeout, log)
}

// RouterConfig assembles the HTTP handlers.
func (a *App) RouterConfig() httpX.RouterConfig {
	available := httpH.Availability{
		Gemini:    a.Clients.Vertex != nil,
		OCR:       a.Clients.OCR != nil,
		Translate: a.Clients.Translator != nil,
	}
	var health *httpH.HealthHandler
	if a.Clients.Translator != nil {
		health = httpH.NewHealthHandler(available, a.Clients.Translator)
	} else {
		health = httpH.NewHealthHandler(available, nil)
	}
	return httpX.RouterConfig{
		Log:                a.Log,
		AllowedOrigins:     a.Cfg.AllowedOrigins,
		MaxMultipartMemory: a.Cfg.MaxTotalSizeBytes(),
		HealthHandler:      health,
		DocumentHandler:    httpH.NewDocumentHandler(a.Log, a.Pipeline, a.Cfg.MaxFileSizeBytes(), a.Cfg.MaxTotalSizeBytes()),
		ResultsHandler:     httpH.NewResultsHandler(a.Log, a.Store),
		SchemesHandler:     httpH.NewSchemesHandler(),
		ChatHandler:        httpH.NewChatHandler(a.Chat),
	}
}

func (a *App) Router() *gin.Engine {
	return httpX.NewRouter(a.RouterConfig())
}

// Ingest builds the storage-triggered function. It needs a Cloud Storage
// client; archiving and the workflow hand-off are optional. Processed uploads
// are remembered in the result store by content hash.
func (a *App) Ingest() (*services.IngestFunction, error) {
	if a.Clients.Storage == nil {
		return nil, fmt.Errorf("ingest requires a Cloud Storage client")
	}
	deps := services.IngestDeps{
		Reader:   services.NewGCSObjectReader(a.Clients.Storage),
		Pipeline: a.Pipeline,
		Ledger:   a.Store,
	}
	if a.Cfg.ExportBucket != "" {
		deps.Archiver = services.NewArchiver(a.Clients.Storage, a.Cfg.ExportBucket, a.Log)
	}
	if a.Clients.Workflow != nil {
		deps.Workflow = a.Clients.Workflow
	}
	return services.NewIngestFunction(deps, a.Cfg.MaxFileSizeBytes(), a.Log), nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.close(a.Log)
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Log.Warn("Failed to close store", "error", err)
		}
	}
	a.Log.Sync()
}
