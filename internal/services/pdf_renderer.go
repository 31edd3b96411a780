package services

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/Lllllllleong/pattadocumentflow/internal/logger"
)

// baseDPI is the resolution of a PDF page at scale 1.
const baseDPI = 72

// PopplerRenderer validates PDFs with pdfcpu and rasterizes pages with
// pdftoppm.
type PopplerRenderer struct {
	runner   Runner
	pdftoppm string
	dpi      int
	log      *logger.Logger
}

// NewPopplerRenderer renders at scale times the native page resolution, so
// scale 2 gives 144 DPI.
func NewPopplerRenderer(runner Runner, pdftoppm string, scale float64, log *logger.Logger) *PopplerRenderer {
	if pdftoppm == "" {
		pdftoppm = "pdftoppm"
	}
	if scale <= 0 {
		scale = 2
	}
	if log == nil {
		log = logger.Nop()
	}
	return &PopplerRenderer{
		runner:   runner,
		pdftoppm: pdftoppm,
		dpi:      int(math.Round(scale * baseDPI)),
		log:      log.With("service", "PDFRenderer"),
	}
}

type popplerPDF struct {
	r       *PopplerRenderer
	tempDir string
	path    string
	pages   int
}

// Open writes pdf to a temp dir, optimizes it with relaxed validation and
// counts its pages. Files pdfcpu cannot optimize are rendered as uploaded.
func (r *PopplerRenderer) Open(ctx context.Context, pdf []byte) (RenderedPDF, error) {
	tempDir, err := os.MkdirTemp("", "patta-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	doc := &popplerPDF{r: r, tempDir: tempDir}

	source := filepath.Join(tempDir, "source.pdf")
	if err := os.WriteFile(source, pdf, 0o600); err != nil {
		_ = doc.Close()
		return nil, fmt.Errorf("failed to write temp PDF: %w", err)
	}

	doc.path = source
	optimized := filepath.Join(tempDir, "optimized.pdf")
	if err := optimizePDF(source, optimized); err != nil {
		r.log.Warn("PDF optimization failed, rendering original.", "error", err)
	} else {
		doc.path = optimized
	}

	pages, err := api.PageCountFile(doc.path)
	if err != nil {
		_ = doc.Close()
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	doc.pages = pages
	return doc, nil
}

func optimizePDF(inPath, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}

func (d *popplerPDF) PageCount() int { return d.pages }

func (d *popplerPDF) RenderPage(ctx context.Context, page int) ([]byte, error) {
	if page < 1 || page > d.pages {
		return nil, fmt.Errorf("page %d out of range 1..%d", page, d.pages)
	}
	prefix := filepath.Join(d.tempDir, fmt.Sprintf("page-%05d", page))
	p := strconv.Itoa(page)
	args := []string{"-png", "-r", strconv.Itoa(d.r.dpi), "-f", p, "-l", p, "-singlefile", d.path, prefix}
	if _, stderr, err := d.r.runner.Run(ctx, d.r.pdftoppm, args...); err != nil {
		return nil, fmt.Errorf("pdftoppm page %d: %w: %s", page, err, truncate(string(stderr), 512))
	}
	img, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered page %d: %w", page, err)
	}
	return img, nil
}

func (d *popplerPDF) Close() error {
	return os.RemoveAll(d.tempDir)
}
