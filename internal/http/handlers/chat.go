package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Lllllllleong/pattadocumentflow/internal/http/response"
	"github.com/Lllllllleong/pattadocumentflow/internal/models"
)

type chatResponder interface {
	Reply(ctx context.Context, req models.ChatRequest) models.ChatResponse
}

type ChatHandler struct {
	chat chatResponder
}

func NewChatHandler(chat chatResponder) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// POST /chat
func (h *ChatHandler) Chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, err)
		return
	}
	response.RespondOK(c, h.chat.Reply(c.Request.Context(), req))
}
