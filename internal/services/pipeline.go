package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Lllllllleong/pattadocumentflow/internal/entities"
	"github.com/Lllllllleong/pattadocumentflow/internal/langdetect"
	"github.com/Lllllllleong/pattadocumentflow/internal/logger"
	"github.com/Lllllllleong/pattadocumentflow/internal/models"
	"github.com/Lllllllleong/pattadocumentflow/internal/store"
	"github.com/Lllllllleong/pattadocumentflow/internal/textnorm"
)

const (
	keyTimeFormat   = "20060102_150405"
	unknownLanguage = "Unknown"
	maxKeyAttempts  = 20
)

// AllowedContentTypes are the upload types the pipeline accepts.
var AllowedContentTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"application/pdf": true,
}

// Upload is one file handed to the pipeline.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// PipelineOptions select the pipeline variant.
type PipelineOptions struct {
	// TranslationEnabled turns on detection, translation and the
	// translate+extract call.
	TranslationEnabled  bool
	AutoTranslate       bool
	SourceLanguage      string
	TargetLanguage      string
	MandatoryEntityKeys []string
	// Concurrency bounds how many documents of a batch run at once.
	Concurrency int
	// MaxPDFPages caps pages read per PDF; 0 means all.
	MaxPDFPages int
}

// PipelineDeps are the collaborators of a DocumentPipeline. OCR may be nil,
// in which case every batch fails with models.ErrOCRUnavailable. Translator
// and Extractor may be nil and degrade to pass-through and empty entities.
type PipelineDeps struct {
	OCR        TextRecognizer
	PDF        PDFRenderer
	Detector   *langdetect.Detector
	Translator Translator
	Extractor  EntityExtractor
	Store      store.Store
}

// DocumentPipeline turns uploaded files into document records and stores
// them.
type DocumentPipeline struct {
	deps      PipelineDeps
	opts      PipelineOptions
	mandatory []string
	log       *logger.Logger
	now       func() time.Time
}

// NewDocumentPipeline builds a pipeline. Mandatory keys outside the entity
// schema are logged and ignored.
func NewDocumentPipeline(deps PipelineDeps, opts PipelineOptions, log *logger.Logger) *DocumentPipeline {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With("service", "DocumentPipeline")
	if deps.Detector == nil {
		deps.Detector = langdetect.New(nil, log)
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.TargetLanguage == "" {
		opts.TargetLanguage = "en"
	}
	mandatory, unknown := entities.SplitMandatory(opts.MandatoryEntityKeys)
	if len(unknown) > 0 {
		log.Warn("Ignoring mandatory entity keys outside the schema.", "keys", unknown)
	}
	return &DocumentPipeline{
		deps:      deps,
		opts:      opts,
		mandatory: mandatory,
		log:       log,
		now:       time.Now,
	}
}

// ValidateUploads rejects the whole request when it has no files, any file
// has a disallowed content type, or a size limit is exceeded. Limits <= 0
// are not enforced.
func ValidateUploads(files []Upload, maxFileBytes, maxTotalBytes int64) error {
	if len(files) == 0 {
		return models.ErrNoFiles
	}
	var total int64
	for _, f := range files {
		if !AllowedContentTypes[f.ContentType] {
			return fmt.Errorf("%w: file %s has unsupported type %s", models.ErrUnsupportedInput, f.Filename, f.ContentType)
		}
		size := int64(len(f.Data))
		if maxFileBytes > 0 && size > maxFileBytes {
			return fmt.Errorf("%w: file %s is %d bytes, limit is %d", models.ErrUnsupportedInput, f.Filename, size, maxFileBytes)
		}
		total += size
	}
	if maxTotalBytes > 0 && total > maxTotalBytes {
		return fmt.Errorf("%w: upload is %d bytes, limit is %d", models.ErrUnsupportedInput, total, maxTotalBytes)
	}
	return nil
}

// ProcessBatch runs the full pipeline over files and stores every record and
// the batch. Documents without text are left out. A failing document never
// aborts the others; only an unavailable OCR collaborator or a failed batch
// write fails the batch.
func (p *DocumentPipeline) ProcessBatch(ctx context.Context, files []Upload) (*models.BatchResult, error) {
	return p.runBatch(ctx, files, batchSpec{
		recordPrefix: "",
		batchPrefix:  "batch_",
		message:      "Successfully processed %d document(s)",
		process:      p.ProcessDocument,
	})
}

// ExtractTextBatch runs OCR and normalization only. Files whose OCR failed
// are left out; files that simply had no text are kept.
func (p *DocumentPipeline) ExtractTextBatch(ctx context.Context, files []Upload) (*models.BatchResult, error) {
	return p.runBatch(ctx, files, batchSpec{
		recordPrefix: "text_",
		batchPrefix:  "text_batch_",
		message:      "Successfully extracted text from %d document(s)",
		process:      p.ExtractDocumentText,
	})
}

type batchSpec struct {
	recordPrefix string
	batchPrefix  string
	message      string
	process      func(context.Context, Upload) (*models.DocumentRecord, error)
}

func (p *DocumentPipeline) runBatch(ctx context.Context, files []Upload, spec batchSpec) (*models.BatchResult, error) {
	if p.deps.OCR == nil {
		return nil, models.ErrOCRUnavailable
	}
	if len(files) == 0 {
		return nil, models.ErrNoFiles
	}

	start := p.now()
	executionID := uuid.NewString()
	logCtx := p.log.With("executionId", executionID, "files", len(files))
	logCtx.Info("Starting batch.")

	records := make([]*models.DocumentRecord, len(files))
	keys := make([]string, len(files))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(p.opts.Concurrency)
	for i, f := range files {
		eg.Go(func() error {
			rec, err := p.safeProcess(gctx, spec.process, f, logCtx)
			if errors.Is(err, models.ErrOCRUnavailable) {
				return err
			}
			if err != nil {
				logCtx.Warn("Document failed, continuing with batch.", "filename", f.Filename, "error", err)
				return nil
			}
			if rec == nil {
				return nil
			}
			records[i] = rec
			key := spec.recordPrefix + p.now().Format(keyTimeFormat) + "_" + keySafe(f.Filename)
			stored, err := p.putUnique(gctx, key, func(k string) models.StoredResult {
				return models.NewRecordResult(k, *rec, p.now())
			})
			if err != nil {
				logCtx.Warn("Failed to store document record.", "filename", f.Filename, "error", err)
				return nil
			}
			keys[i] = stored
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		logCtx.Error("Batch aborted.", "error", err)
		return nil, err
	}

	results := make([]models.DocumentRecord, 0, len(records))
	var recordKeys []string
	for i, r := range records {
		if r == nil {
			continue
		}
		results = append(results, *r)
		if keys[i] != "" {
			recordKeys = append(recordKeys, keys[i])
		}
	}
	batch := models.BatchResult{
		Success:        true,
		Message:        fmt.Sprintf(spec.message, len(results)),
		Results:        results,
		RecordKeys:     recordKeys,
		ExecutionID:    executionID,
		ProcessingTime: p.now().Sub(start).Seconds(),
	}

	batchKey, err := p.putUnique(ctx, spec.batchPrefix+p.now().Format(keyTimeFormat), func(k string) models.StoredResult {
		b := batch
		b.BatchKey = k
		return models.NewBatchResult(k, b, p.now())
	})
	if err != nil {
		logCtx.Error("Failed to store batch.", "error", err)
		return nil, fmt.Errorf("failed to store batch: %w", err)
	}
	batch.BatchKey = batchKey
	logCtx.Info("Batch complete.", "batchKey", batchKey, "documents", len(results))
	return &batch, nil
}

// safeProcess turns a panic in one document into an error for that document.
func (p *DocumentPipeline) safeProcess(ctx context.Context, fn func(context.Context, Upload) (*models.DocumentRecord, error), f Upload, logCtx *logger.Logger) (rec *models.DocumentRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			logCtx.Error("Recovered panic while processing document.", "filename", f.Filename, "panic", r, "stack", string(debug.Stack()))
			rec, err = nil, fmt.Errorf("panic processing %s: %v", f.Filename, r)
		}
	}()
	return fn(ctx, f)
}

// putUnique stores under key, or key_2, key_3... when taken, and returns the
// key used.
func (p *DocumentPipeline) putUnique(ctx context.Context, key string, build func(key string) models.StoredResult) (string, error) {
	if p.deps.Store == nil {
		return key, nil
	}
	candidate := key
	for attempt := 1; attempt <= maxKeyAttempts; attempt++ {
		if attempt > 1 {
			candidate = fmt.Sprintf("%s_%d", key, attempt)
		}
		err := p.deps.Store.Put(ctx, candidate, build(candidate))
		if errors.Is(err, models.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return "", err
		}
		return candidate, nil
	}
	return "", fmt.Errorf("no free key after %d attempts for %s", maxKeyAttempts, key)
}

// keySafe reduces an uploaded filename to a single path element.
func keySafe(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return "upload"
	}
	return name
}

// ProcessDocument runs one file through the full pipeline. It returns a nil
// record when the file yielded no text.
func (p *DocumentPipeline) ProcessDocument(ctx context.Context, f Upload) (*models.DocumentRecord, error) {
	logCtx := p.log.With("filename", f.Filename)

	raw, ok, err := p.extractRawText(ctx, f, logCtx)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		logCtx.Info("No text found in file, skipping.")
		return nil, nil
	}

	cleaned := textnorm.Clean(raw)
	standardized := textnorm.StandardizeSpacing(cleaned)

	translated, language := standardized, unknownLanguage
	if p.opts.TranslationEnabled {
		translated, language = p.translate(ctx, standardized, logCtx)
	}

	var fromTranslate, fromExtract entities.EntityMap
	if p.deps.Extractor != nil {
		if p.opts.TranslationEnabled {
			fromTranslate = p.extract(ctx, "translate+ner", p.deps.Extractor.TranslateAndExtract, standardized, logCtx)
		}
		fromExtract = p.extract(ctx, "ner", p.deps.Extractor.Extract, translated, logCtx)
	}
	merged := entities.Reconcile(fromTranslate, fromExtract, p.mandatory)

	return &models.DocumentRecord{
		Filename:         f.Filename,
		RawText:          raw,
		CleanedText:      cleaned,
		StandardizedText: standardized,
		TranslatedText:   translated,
		OriginalLanguage: language,
		Entities:         entities.Finalize(merged, p.mandatory),
	}, nil
}

// ExtractDocumentText runs OCR and normalization only. It returns a nil
// record when OCR failed for the file.
func (p *DocumentPipeline) ExtractDocumentText(ctx context.Context, f Upload) (*models.DocumentRecord, error) {
	logCtx := p.log.With("filename", f.Filename)
	raw, ok, err := p.extractRawText(ctx, f, logCtx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	cleaned := textnorm.Clean(raw)
	return &models.DocumentRecord{
		Filename:         f.Filename,
		RawText:          raw,
		CleanedText:      cleaned,
		StandardizedText: textnorm.StandardizeSpacing(cleaned),
		Entities:         entities.EntityMap{},
	}, nil
}

// translate returns the text to extract from and the detected language. Any
// translation failure passes the text through with an unknown language.
func (p *DocumentPipeline) translate(ctx context.Context, text string, logCtx *logger.Logger) (string, string) {
	det, ok := p.deps.Detector.Decide(ctx, text, p.opts.SourceLanguage, p.opts.AutoTranslate)
	if !ok {
		return text, unknownLanguage
	}
	if det.Language == p.opts.TargetLanguage || det.Language == "en" {
		return text, det.Language
	}
	if p.deps.Translator == nil {
		return text, unknownLanguage
	}
	out, err := p.deps.Translator.Translate(ctx, text, p.opts.TargetLanguage, det.Language)
	if err != nil {
		logCtx.Warn("Translation failed, passing text through.", "language", det.Language, "error", err)
		return text, unknownLanguage
	}
	logCtx.Info("Translated document.", "from", det.Language, "to", p.opts.TargetLanguage)
	return out, det.Language
}

func (p *DocumentPipeline) extract(ctx context.Context, call string, fn func(context.Context, string) (entities.EntityMap, error), text string, logCtx *logger.Logger) entities.EntityMap {
	if strings.TrimSpace(text) == "" {
		return entities.EntityMap{}
	}
	m, err := fn(ctx, text)
	if err != nil {
		logCtx.Warn("Entity extraction failed, using empty result.", "call", call, "error", err)
		return entities.EntityMap{}
	}
	return m
}
