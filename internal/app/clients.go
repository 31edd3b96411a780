package app

import (
	"context"
	"io"

	"cloud.google.com/go/storage"

	"github.com/Lllllllleong/pattadocumentflow/internal/config"
	"github.com/Lllllllleong/pattadocumentflow/internal/gcp"
	"github.com/Lllllllleong/pattadocumentflow/internal/logger"
	"github.com/Lllllllleong/pattadocumentflow/internal/services"
)

// Clients are the Google collaborators. Any of them may be nil when it is
// not configured or failed to start; the pipeline degrades around them.
type Clients struct {
	OCR        services.TextRecognizer
	Translator *gcp.TranslateClient
	Vertex     *gcp.VertexClient
	Storage    *storage.Client
	Workflow   *gcp.WorkflowTrigger

	closers []io.Closer
}

func wireClients(ctx context.Context, cfg *config.Config, log *logger.Logger, withStorage bool) Clients {
	log.Info("Wiring clients...")
	opts := gcp.ClientOptions(cfg)
	var c Clients

	// OCR
	switch cfg.OCRProvider {
	case config.OCRDocumentAI:
		r, err := gcp.NewDocumentAIRecognizer(ctx, log, cfg.ProjectID, cfg.DocumentAILocation, cfg.DocumentAIProcessor, cfg.OCRTimeout, opts...)
		if err != nil {
			log.Warn("Document AI unavailable", "error", err)
			break
		}
		c.OCR = r
		c.closers = append(c.closers, r)
	default:
		r, err := gcp.NewVisionRecognizer(ctx, log, cfg.OCRTimeout, opts...)
		if err != nil {
			log.Warn("Vision API unavailable", "error", err)
			break
		}
		c.OCR = r
		c.closers = append(c.closers, r)
	}

	// Translation
	if tr, err := gcp.NewTranslateClient(ctx, log, cfg.TranslateTimeout, opts...); err != nil {
		log.Warn("Translate API unavailable", "error", err)
	} else {
		c.Translator = tr
		c.closers = append(c.closers, tr)
	}

	// Gemini
	if cfg.ProjectID == "" {
		log.Warn("PROJECT_ID not set, Gemini disabled")
	} else if vx, err := gcp.NewVertexClient(ctx, cfg.ProjectID, cfg.VertexAIRegion, cfg.GeminiModel, opts...); err != nil {
		log.Warn("Gemini unavailable", "error", err)
	} else {
		c.Vertex = vx
		c.closers = append(c.closers, vx)
	}

	// Storage
	if withStorage || cfg.ExportBucket != "" {
		if sc, err := storage.NewClient(ctx, opts...); err != nil {
			log.Warn("Cloud Storage unavailable", "error", err)
		} else {
			c.Storage = sc
			c.closers = append(c.closers, sc)
		}
	}

	// Workflows
	if cfg.WorkflowID != "" {
		if wf, err := gcp.NewWorkflowTrigger(ctx, cfg.ProjectID, cfg.WorkflowLocation, cfg.WorkflowID, opts...); err != nil {
			log.Warn("Workflows unavailable", "error", err)
		} else {
			c.Workflow = wf
			c.closers = append(c.closers, wf)
		}
	}

	return c
}

func (c *Clients) close(log *logger.Logger) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			log.Warn("Failed to close client", "error", err)
		}
	}
	c.closers = nil
}
