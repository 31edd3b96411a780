package services

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/pattadocumentflow/internal/entities"
	"github.com/Lllllllleong/pattadocumentflow/internal/gcp"
	"github.com/Lllllllleong/pattadocumentflow/internal/logger"
	"github.com/Lllllllleong/pattadocumentflow/internal/models"
)

const (
	chatUnavailableReply = "⚠️ Gemini API not available. Cannot generate response."
	chatFailureReply     = "⚠️ I'm having trouble connecting to my knowledge base. Try again later."
	chatEmptyReply       = "I couldn't generate a proper response. Please rephrase your question about Central Sector Schemes."
)

// ChatAssistant answers scheme questions grounded in a document's OCR text.
// It never returns an error: failures become a fixed apology.
type ChatAssistant struct {
	model   contentGenerator
	timeout time.Duration
	log     *logger.Logger
}

// NewChatAssistant accepts a nil model, in which case every reply says the
// assistant is unavailable.
func NewChatAssistant(model *genai.GenerativeModel, timeout time.Duration, log *logger.Logger) *ChatAssistant {
	if log == nil {
		log = logger.Nop()
	}
	c := &ChatAssistant{timeout: timeout, log: log.With("service", "ChatAssistant")}
	if model != nil {
		c.model = model
	}
	return c
}

func (c *ChatAssistant) Reply(ctx context.Context, req models.ChatRequest) models.ChatResponse {
	if c.model == nil {
		return models.ChatResponse{BotReply: chatUnavailableReply}
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	prompt := "CONTEXT: FRA OCR Extracted Data:\n" + req.OCRContext + "\n\nUSER QUESTION: " + req.UserInput
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		c.log.Warn("Chat generation failed.", "error", err)
		return models.ChatResponse{BotReply: chatFailureReply}
	}
	reply := strings.TrimSpace(entities.StripFences(gcp.ResponseText(resp)))
	if reply == "" {
		return models.ChatResponse{BotReply: chatEmptyReply}
	}
	return models.ChatResponse{BotReply: reply}
}
