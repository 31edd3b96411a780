package models

import (
	"time"

	"github.com/Lllllllleong/pattadocumentflow/internal/entities"
)

// DocumentRecord is the processed form of one uploaded file. The text-only
// extraction path leaves TranslatedText and OriginalLanguage empty and
// Entities as an empty map.
type DocumentRecord struct {
	Filename         string             `json:"filename" firestore:"filename"`
	RawText          string             `json:"raw_text" firestore:"rawText"`
	CleanedText      string             `json:"cleaned_text" firestore:"cleanedText"`
	StandardizedText string             `json:"standardized_text" firestore:"standardizedText"`
	TranslatedText   string             `json:"translated_text,omitempty" firestore:"translatedText,omitempty"`
	OriginalLanguage string             `json:"original_language,omitempty" firestore:"originalLanguage,omitempty"`
	Entities         entities.EntityMap `json:"entities" firestore:"entities"`
}

// BatchResult groups the records produced by one processing request.
type BatchResult struct {
	Success        bool             `json:"success" firestore:"success"`
	Message        string           `json:"message" firestore:"message"`
	Results        []DocumentRecord `json:"results" firestore:"results"`
	BatchKey       string           `json:"batch_key,omitempty" firestore:"batchKey,omitempty"`
	RecordKeys     []string         `json:"record_keys,omitempty" firestore:"recordKeys,omitempty"`
	ExecutionID    string           `json:"execution_id,omitempty" firestore:"executionId,omitempty"` // For traceability
	ProcessingTime float64          `json:"processing_time" firestore:"processingTime"`
}

// Result kinds held by the store.
const (
	KindRecord = "record"
	KindBatch  = "batch"
	KindIngest = "ingest"
)

// IngestMarkerPrefix starts the keys of ingest markers. They are bookkeeping
// for storage-triggered ingestion and are not listed as results.
const IngestMarkerPrefix = "ingest_"

// IngestMarker records that an uploaded object with a given content hash was
// processed, and under which keys its results were stored.
type IngestMarker struct {
	FileHash    string `json:"file_hash" firestore:"fileHash"`
	Object      string `json:"object" firestore:"object"`
	BatchKey    string `json:"batch_key" firestore:"batchKey"`
	RecordKey   string `json:"record_key,omitempty" firestore:"recordKey,omitempty"`
	ExecutionID string `json:"execution_id,omitempty" firestore:"executionId,omitempty"`
	Workflow    string `json:"workflow_execution,omitempty" firestore:"workflowExecution,omitempty"`
}

// IngestMarkerKey is the key of the marker written once content hash has
// been processed.
func IngestMarkerKey(hash string) string { return IngestMarkerPrefix + hash }

// IngestHandoffKey is the key of the marker written once the workflow for
// content hash has started.
func IngestHandoffKey(hash string) string { return IngestMarkerPrefix + hash + "_handoff" }

// StoredResult is what the result store holds under one key: a single
// document record or a whole batch.
type StoredResult struct {
	Key       string          `json:"key" firestore:"key"`
	Kind      string          `json:"kind" firestore:"kind"`
	Record    *DocumentRecord `json:"record,omitempty" firestore:"record,omitempty"`
	Batch     *BatchResult    `json:"batch,omitempty" firestore:"batch,omitempty"`
	Ingest    *IngestMarker   `json:"ingest,omitempty" firestore:"ingest,omitempty"`
	CreatedAt time.Time       `json:"created_at" firestore:"createdAt"`
}

// NewRecordResult wraps a record for storage.
func NewRecordResult(key string, rec DocumentRecord, now time.Time) StoredResult {
	return StoredResult{Key: key, Kind: KindRecord, Record: &rec, CreatedAt: now}
}

// NewIngestResult wraps an ingest marker for storage.
func NewIngestResult(key string, marker IngestMarker, now time.Time) StoredResult {
	return StoredResult{Key: key, Kind: KindIngest, Ingest: &marker, CreatedAt: now}
}

// NewBatchResult wraps a batch for storage.
func NewBatchResult(key string, batch BatchResult, now time.Time) StoredResult {
	return StoredResult{Key: key, Kind: KindBatch, Batch: &batch, CreatedAt: now}
}

// Records returns the document records held by r, in order.
func (r StoredResult) Records() []DocumentRecord {
	switch {
	case r.Record != nil:
		return []DocumentRecord{*r.Record}
	case r.Batch != nil:
		return r.Batch.Results
	default:
		return nil
	}
}
