package handlers

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/Lllllllleong/pattadocumentflow/internal/http/response"
	"github.com/Lllllllleong/pattadocumentflow/internal/models"
)

const (
	probeText     = "Hello"
	probeLanguage = "hi"
)

type translationProbe interface {
	Translate(ctx context.Context, text, target, source string) (string, error)
	SupportedLanguages(ctx context.Context) (int, error)
}

// Availability records which collaborators were configured at startup.
type Availability struct {
	Gemini    bool
	OCR       bool
	Translate bool
}

type HealthHandler struct {
	available  Availability
	translator translationProbe
}

// NewHealthHandler accepts a nil translator.
func NewHealthHandler(available Availability, translator translationProbe) *HealthHandler {
	return &HealthHandler{available: available, translator: translator}
}

// GET /
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	response.RespondOK(c, models.HealthResponse{
		Status:                "healthy",
		GeminiAvailable:       h.available.Gemini,
		VisionAPIAvailable:    h.available.OCR,
		TranslateAPIAvailable: h.available.Translate && h.translator != nil,
	})
}

// GET /health/translation
func (h *HealthHandler) TranslationHealth(c *gin.Context) {
	if h.translator == nil {
		response.RespondOK(c, models.TranslationHealthResponse{
			Status:             "unhealthy",
			TestTranslation:    "Translation service not available",
			SupportedLanguages: 0,
		})
		return
	}
	ctx := c.Request.Context()
	out, err := h.translator.Translate(ctx, probeText, probeLanguage, "en")
	if err != nil {
		response.RespondOK(c, models.TranslationHealthResponse{
			Status:          "unhealthy",
			TestTranslation: fmt.Sprintf("Error: %v", err),
		})
		return
	}
	count, err := h.translator.SupportedLanguages(ctx)
	if err != nil {
		count = 0
	}
	response.RespondOK(c, models.TranslationHealthResponse{
		Status:                "healthy",
		TranslateAPIAvailable: true,
		SupportedLanguages:    count,
		TestTranslation:       fmt.Sprintf("Test: '%s' → '%s'", probeText, out),
	})
}
