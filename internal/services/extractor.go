package services

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/pattadocumentflow/internal/entities"
	"github.com/Lllllllleong/pattadocumentflow/internal/gcp"
	"github.com/Lllllllleong/pattadocumentflow/internal/logger"
)

// contentGenerator is satisfied by *genai.GenerativeModel.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiExtractor extracts entities with the two pre-configured Gemini
// models.
type GeminiExtractor struct {
	translateExtract contentGenerator
	extract          contentGenerator
	timeout          time.Duration
	log              *logger.Logger
}

func NewGeminiExtractor(vertex *gcp.VertexClient, timeout time.Duration, log *logger.Logger) *GeminiExtractor {
	if log == nil {
		log = logger.Nop()
	}
	return &GeminiExtractor{
		translateExtract: vertex.TranslateExtractModel,
		extract:          vertex.ExtractModel,
		timeout:          timeout,
		log:              log.With("service", "GeminiExtractor"),
	}
}

func (g *GeminiExtractor) TranslateAndExtract(ctx context.Context, text string) (entities.EntityMap, error) {
	return g.run(ctx, "translate+ner", g.translateExtract, gcp.TranslateExtractUserPrompt, text)
}

func (g *GeminiExtractor) Extract(ctx context.Context, text string) (entities.EntityMap, error) {
	return g.run(ctx, "ner", g.extract, gcp.ExtractUserPrompt, text)
}

// run calls model and coerces its reply. A malformed reply is logged and
// yields an empty map with no error.
func (g *GeminiExtractor) run(ctx context.Context, call string, model contentGenerator, prompt, text string) (entities.EntityMap, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	resp, err := model.GenerateContent(ctx, genai.Text(prompt+text))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	body := gcp.ResponseText(resp)
	m, err := entities.ParseResponse(body)
	if err != nil {
		g.log.Warn("Gemini returned an unusable entity response.", "call", call, "error", err, "response", truncate(body, 512))
		return entities.EntityMap{}, nil
	}
	return m, nil
}
