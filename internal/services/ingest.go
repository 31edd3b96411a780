package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/pattadocumentflow/internal/gcp"
	"github.com/Lllllllleong/pattadocumentflow/internal/logger"
	"github.com/Lllllllleong/pattadocumentflow/internal/models"
)

// GCSEvent is the payload of a storage object-finalized event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// contentTypesByExt maps accepted object extensions to upload content types.
var contentTypesByExt = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// ContentTypeFor returns the upload content type for a file name, judged by
// its extension.
func ContentTypeFor(name string) (string, bool) {
	ct, ok := contentTypesByExt[strings.ToLower(path.Ext(name))]
	return ct, ok
}

type objectReader interface {
	ReadObject(ctx context.Context, bucket, object string, maxBytes int64) ([]byte, error)
}

type batchProcessor interface {
	ProcessBatch(ctx context.Context, files []Upload) (*models.BatchResult, error)
}

type batchArchiver interface {
	Archive(ctx context.Context, res *models.StoredResult) (string, error)
}

type workflowStarter interface {
	Start(ctx context.Context, args any) (string, error)
}

// ingestLedger is the part of the result store used to remember processed
// uploads.
type ingestLedger interface {
	Put(ctx context.Context, key string, result models.StoredResult) error
	Get(ctx context.Context, key string) (*models.StoredResult, error)
}

// GCSObjectReader reads whole objects from Cloud Storage.
type GCSObjectReader struct {
	client *storage.Client
}

func NewGCSObjectReader(client *storage.Client) *GCSObjectReader {
	return &GCSObjectReader{client: client}
}

func (r *GCSObjectReader) ReadObject(ctx context.Context, bucket, object string, maxBytes int64) ([]byte, error) {
	data, _, err := gcp.ReadObject(ctx, r.client, bucket, object, maxBytes)
	return data, err
}

// IngestFunction processes documents dropped into a bucket and hands the
// stored result to a workflow.
type IngestFunction struct {
	reader       objectReader
	pipeline     batchProcessor
	archiver     batchArchiver
	workflow     workflowStarter
	ledger       ingestLedger
	maxFileBytes int64
	log          *logger.Logger
	retryBackoff time.Duration
}

// IngestDeps are the collaborators of an IngestFunction. Archiver, Workflow
// and Ledger are optional. Without a Ledger every delivery is processed.
type IngestDeps struct {
	Reader   objectReader
	Pipeline batchProcessor
	Archiver batchArchiver
	Workflow workflowStarter
	Ledger   ingestLedger
}

func NewIngestFunction(deps IngestDeps, maxFileBytes int64, log *logger.Logger) *IngestFunction {
	if log == nil {
		log = logger.Nop()
	}
	return &IngestFunction{
		reader:       deps.Reader,
		pipeline:     deps.Pipeline,
		archiver:     deps.Archiver,
		workflow:     deps.Workflow,
		ledger:       deps.Ledger,
		maxFileBytes: maxFileBytes,
		log:          log.With("service", "IngestFunction"),
		retryBackoff: time.Second,
	}
}

// Process runs one uploaded object through the pipeline. Objects with an
// unsupported extension are skipped without error. An object whose content
// was already processed is not processed again; if its workflow never
// started, only the hand-off is retried.
func (f *IngestFunction) Process(ctx context.Context, e GCSEvent) error {
	logCtx := f.log.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new GCS object.")

	contentType, ok := ContentTypeFor(e.Name)
	if !ok {
		logCtx.Info("Object is not a supported document type. Skipping.")
		return nil
	}

	data, err := f.reader.ReadObject(ctx, e.Bucket, e.Name, f.maxFileBytes)
	if err != nil {
		logCtx.Error("Failed to download source object", "error", err)
		return err
	}
	hash := fileHash(data)
	logCtx = logCtx.With("fileHash", hash, "bytes", len(data))

	upload := Upload{Filename: path.Base(e.Name), ContentType: contentType, Data: data}
	if err := ValidateUploads([]Upload{upload}, f.maxFileBytes, 0); err != nil {
		logCtx.Warn("Object rejected. Skipping.", "error", err)
		return nil
	}

	marker, handedOff := f.lookup(ctx, hash, logCtx)
	if marker != nil && (handedOff || f.workflow == nil) {
		logCtx.Info("Duplicate file detected. Skipping processing.", "batchKey", marker.BatchKey)
		return nil
	}

	if marker != nil {
		logCtx = logCtx.With("batchKey", marker.BatchKey)
		logCtx.Info("File already processed. Retrying workflow hand-off.")
	} else {
		batch, err := f.pipeline.ProcessBatch(ctx, []Upload{upload})
		if err != nil {
			logCtx.Error("Pipeline failed for object", "error", err)
			return fmt.Errorf("failed to process gs://%s/%s: %w", e.Bucket, e.Name, err)
		}
		logCtx = logCtx.With("batchKey", batch.BatchKey)

		if f.archiver != nil {
			stored := models.NewBatchResult(batch.BatchKey, *batch, time.Now())
			uri, err := f.archiver.Archive(ctx, &stored)
			if err != nil {
				logCtx.Error("Failed to archive batch", "error", err)
				return err
			}
			logCtx.Info("Archived batch.", "uri", uri)
		}

		marker = &models.IngestMarker{
			FileHash:    hash,
			Object:      fmt.Sprintf("gs://%s/%s", e.Bucket, e.Name),
			BatchKey:    batch.BatchKey,
			ExecutionID: batch.ExecutionID,
		}
		if len(batch.RecordKeys) > 0 {
			marker.RecordKey = batch.RecordKeys[0]
		}
		f.remember(ctx, models.IngestMarkerKey(hash), *marker, logCtx)
	}

	if f.workflow == nil {
		logCtx.Info("Ingestion complete.")
		return nil
	}
	args := models.IngestWorkflowArgs{
		RecordKey:   marker.RecordKey,
		BatchKey:    marker.BatchKey,
		ExecutionID: marker.ExecutionID,
	}
	execution, err := f.startWorkflow(ctx, logCtx, args)
	if err != nil {
		return err
	}
	handoff := *marker
	handoff.Workflow = execution
	f.remember(ctx, models.IngestHandoffKey(hash), handoff, logCtx)
	logCtx.Info("Hand-off to workflow complete.", "execution", execution)
	return nil
}

// lookup returns the marker of an already processed upload and whether its
// workflow has started. Ledger failures are logged and treated as a miss.
func (f *IngestFunction) lookup(ctx context.Context, hash string, logCtx *logger.Logger) (*models.IngestMarker, bool) {
	if f.ledger == nil {
		return nil, false
	}
	res, err := f.ledger.Get(ctx, models.IngestMarkerKey(hash))
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			logCtx.Warn("Failed to check for duplicate file", "error", err)
		}
		return nil, false
	}
	if res.Ingest == nil {
		return nil, false
	}
	_, err = f.ledger.Get(ctx, models.IngestHandoffKey(hash))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		logCtx.Warn("Failed to check workflow hand-off", "error", err)
	}
	return res.Ingest, err == nil
}

func (f *IngestFunction) remember(ctx context.Context, key string, marker models.IngestMarker, logCtx *logger.Logger) {
	if f.ledger == nil {
		return
	}
	err := f.ledger.Put(ctx, key, models.NewIngestResult(key, marker, time.Now()))
	switch {
	case err == nil:
	case errors.Is(err, models.ErrAlreadyExists):
		logCtx.Info("Ingest marker already written by another delivery.", "key", key)
	default:
		logCtx.Warn("Failed to write ingest marker", "key", key, "error", err)
	}
}

// startWorkflow retries with exponential backoff until the context ends.
func (f *IngestFunction) startWorkflow(ctx context.Context, logCtx *logger.Logger, args models.IngestWorkflowArgs) (string, error) {
	const maxRetries = 4
	backoff := f.retryBackoff
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		execution, err := f.workflow.Start(ctx, args)
		if err == nil {
			return execution, nil
		}
		lastErr = err
		logCtx.Warn("Workflow trigger failed, will retry.",
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			logCtx.Error("Context cancelled during backoff. Aborting retries.", "error", ctx.Err())
			return "", ctx.Err()
		}
	}
	logCtx.Error("Workflow trigger failed after all retries.", "error", lastErr)
	return "", fmt.Errorf("workflow trigger failed after all retries: %w", lastErr)
}

func fileHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
