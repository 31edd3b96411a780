package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"cloud.google.com/go/storage"
	"github.com/xuri/excelize/v2"

	"github.com/Lllllllleong/pattadocumentflow/internal/gcp"
	"github.com/Lllllllleong/pattadocumentflow/internal/logger"
	"github.com/Lllllllleong/pattadocumentflow/internal/models"
)

// maxCellChars is the most characters an XLSX cell holds.
const maxCellChars = 32767

// ExportJSON renders the stored record or batch as indented JSON.
func ExportJSON(res *models.StoredResult) ([]byte, error) {
	var v any
	switch {
	case res.Record != nil:
		v = res.Record
	case res.Batch != nil:
		v = res.Batch
	default:
		return nil, fmt.Errorf("result %s is empty", res.Key)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to encode result %s: %w", res.Key, err)
	}
	return buf.Bytes(), nil
}

// ExportText renders the stored record or batch as plain text: for each
// document its filename, raw and cleaned text, then its non-empty entity
// categories as bullet lists.
func ExportText(res *models.StoredResult) string {
	var b strings.Builder
	if res.Record != nil {
		writeTextRecord(&b, "File: "+res.Record.Filename, res.Record)
		return b.String()
	}
	if res.Batch == nil {
		return ""
	}
	for i := range res.Batch.Results {
		if i > 0 {
			b.WriteString("\n" + strings.Repeat("=", 80) + "\n\n")
		}
		rec := &res.Batch.Results[i]
		writeTextRecord(&b, fmt.Sprintf("File %d: %s", i+1, rec.Filename), rec)
	}
	return b.String()
}

func writeTextRecord(b *strings.Builder, title string, rec *models.DocumentRecord) {
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")
	b.WriteString("Raw Text:\n")
	b.WriteString(rec.RawText + "\n\n")
	b.WriteString("Cleaned Text:\n")
	b.WriteString(rec.StandardizedText + "\n")

	if rec.Entities == nil {
		return
	}
	b.WriteString("\nExtracted Entities:\n")
	b.WriteString(strings.Repeat("-", 25) + "\n")
	for _, category := range rec.Entities.NonEmpty() {
		b.WriteString("\n" + CategoryTitle(category) + ":\n")
		for _, v := range rec.Entities[category] {
			b.WriteString("  • " + v + "\n")
		}
	}
}

// CategoryTitle turns PATTA_HOLDER_NAME into "Patta Holder Name".
func CategoryTitle(category string) string {
	words := strings.Fields(strings.ReplaceAll(strings.ToLower(category), "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ExportXLSX renders a workbook with a Documents sheet (one row per document)
// and an Entities sheet (one row per entity value).
func ExportXLSX(res *models.StoredResult) ([]byte, error) {
	records := res.Records()

	f := excelize.NewFile()
	defer f.Close()

	const docSheet = "Documents"
	if err := f.SetSheetName("Sheet1", docSheet); err != nil {
		return nil, err
	}
	const entitySheet = "Entities"
	if _, err := f.NewSheet(entitySheet); err != nil {
		return nil, err
	}

	writeRow := func(sheet string, row int, values ...any) error {
		for i, v := range values {
			cell, err := excelize.CoordinatesToCellName(i+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		return nil
	}

	if err := writeRow(docSheet, 1, "Filename", "Original Language", "Standardized Text", "Translated Text"); err != nil {
		return nil, err
	}
	if err := writeRow(entitySheet, 1, "Filename", "Category", "Value"); err != nil {
		return nil, err
	}

	entityRow := 2
	for i, rec := range records {
		if err := writeRow(docSheet, i+2, rec.Filename, rec.OriginalLanguage, cellText(rec.StandardizedText), cellText(rec.TranslatedText)); err != nil {
			return nil, err
		}
		for _, category := range rec.Entities.NonEmpty() {
			for _, v := range rec.Entities[category] {
				if err := writeRow(entitySheet, entityRow, rec.Filename, category, v); err != nil {
					return nil, err
				}
				entityRow++
			}
		}
	}

	_ = f.SetColWidth(docSheet, "A", "B", 28)
	_ = f.SetColWidth(docSheet, "C", "D", 80)
	_ = f.SetColWidth(entitySheet, "A", "B", 28)
	_ = f.SetColWidth(entitySheet, "C", "C", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func cellText(s string) string {
	if utf8.RuneCountInString(s) <= maxCellChars {
		return s
	}
	return string([]rune(s)[:maxCellChars])
}

// Archiver copies batch JSON to a GCS bucket, once per batch key.
type Archiver struct {
	bucket *storage.BucketHandle
	name   string
	log    *logger.Logger
}

func NewArchiver(client *storage.Client, bucket string, log *logger.Logger) *Archiver {
	if log == nil {
		log = logger.Nop()
	}
	return &Archiver{bucket: client.Bucket(bucket), name: bucket, log: log.With("service", "Archiver")}
}

// Archive writes batches/<key>.json and returns its gs:// URI.
func (a *Archiver) Archive(ctx context.Context, res *models.StoredResult) (string, error) {
	body, err := ExportJSON(res)
	if err != nil {
		return "", err
	}
	object := "batches/" + res.Key + ".json"
	if err := gcp.SaveToGCSAtomically(ctx, a.log, a.bucket, object, "application/json", string(body)); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", a.name, object), nil
}
