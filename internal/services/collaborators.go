package services

import (
	"context"

	"github.com/Lllllllleong/pattadocumentflow/internal/entities"
)

// TextRecognizer is the OCR collaborator. An error wrapping
// models.ErrOCRUnavailable means no call can succeed and aborts the batch;
// any other error only loses the one image.
type TextRecognizer interface {
	Name() string
	ExtractText(ctx context.Context, img []byte, mimeType string) (string, error)
}

// Translator is the translation collaborator. An empty source lets the
// service detect it.
type Translator interface {
	Translate(ctx context.Context, text, target, source string) (string, error)
}

// EntityExtractor is the extraction collaborator. TranslateAndExtract reads
// text in its original language; Extract reads text that is already in the
// target language. Either may fail independently.
type EntityExtractor interface {
	TranslateAndExtract(ctx context.Context, text string) (entities.EntityMap, error)
	Extract(ctx context.Context, text string) (entities.EntityMap, error)
}

// PDFRenderer rasterizes PDF pages for OCR.
type PDFRenderer interface {
	Open(ctx context.Context, pdf []byte) (RenderedPDF, error)
}

// RenderedPDF is an opened PDF whose pages can be rendered one at a time.
type RenderedPDF interface {
	PageCount() int
	// RenderPage returns page (1-based) as PNG bytes.
	RenderPage(ctx context.Context, page int) ([]byte, error)
	Close() error
}
