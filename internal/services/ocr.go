package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Lllllllleong/pattadocumentflow/internal/logger"
	"github.com/Lllllllleong/pattadocumentflow/internal/models"
)

// PageMarker is the delimiter written before each page of PDF text.
func PageMarker(page int) string {
	return fmt.Sprintf("\n--- Page %d ---\n", page)
}

// extractRawText returns the OCR text of f. ok is false when the OCR result
// is unusable (the null result). err is only set when OCR is unavailable.
func (p *DocumentPipeline) extractRawText(ctx context.Context, f Upload, logCtx *logger.Logger) (text string, ok bool, err error) {
	if f.ContentType == "application/pdf" {
		return p.extractPDFText(ctx, f, logCtx)
	}
	text, err = p.deps.OCR.ExtractText(ctx, f.Data, f.ContentType)
	if errors.Is(err, models.ErrOCRUnavailable) {
		return "", false, err
	}
	if err != nil {
		logCtx.Warn("OCR processing failed.", "error", err)
		return "", false, nil
	}
	return text, true, nil
}

// extractPDFText renders and recognizes pages in order. A page that fails to
// render or recognize is omitted; pages with no text get no marker.
func (p *DocumentPipeline) extractPDFText(ctx context.Context, f Upload, logCtx *logger.Logger) (string, bool, error) {
	if p.deps.PDF == nil {
		logCtx.Warn("No PDF renderer configured.")
		return "", false, nil
	}
	doc, err := p.deps.PDF.Open(ctx, f.Data)
	if err != nil {
		logCtx.Warn("PDF processing failed.", "error", err)
		return "", false, nil
	}
	defer func() {
		if err := doc.Close(); err != nil {
			logCtx.Warn("Failed to clean up rendered PDF.", "error", err)
		}
	}()

	pages := doc.PageCount()
	if p.opts.MaxPDFPages > 0 && pages > p.opts.MaxPDFPages {
		logCtx.Warn("PDF exceeds page limit, truncating.", "pageCount", pages, "maxPages", p.opts.MaxPDFPages)
		pages = p.opts.MaxPDFPages
	}

	var b strings.Builder
	for page := 1; page <= pages; page++ {
		if err := ctx.Err(); err != nil {
			return "", false, err
		}
		img, err := doc.RenderPage(ctx, page)
		if err != nil {
			logCtx.Warn("Failed to render page.", "page", page, "error", err)
			continue
		}
		pageText, err := p.deps.OCR.ExtractText(ctx, img, "image/png")
		if errors.Is(err, models.ErrOCRUnavailable) {
			return "", false, err
		}
		if err != nil {
			logCtx.Warn("OCR failed for page.", "page", page, "error", err)
			continue
		}
		if pageText != "" {
			b.WriteString(PageMarker(page))
			b.WriteString(pageText)
			b.WriteString("\n")
		}
	}
	logCtx.Info("PDF text extracted.", "pageCount", doc.PageCount(), "chars", b.Len())
	return b.String(), true, nil
}
