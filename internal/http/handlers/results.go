package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Lllllllleong/pattadocumentflow/internal/http/response"
	"github.com/Lllllllleong/pattadocumentflow/internal/logger"
	"github.com/Lllllllleong/pattadocumentflow/internal/models"
	"github.com/Lllllllleong/pattadocumentflow/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type resultReader interface {
	Get(ctx context.Context, key string) (*models.StoredResult, error)
	List(ctx context.Context) ([]string, error)
}

type ResultsHandler struct {
	log   *logger.Logger
	store resultReader
}

func NewResultsHandler(log *logger.Logger, store resultReader) *ResultsHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ResultsHandler{log: log.With("handler", "ResultsHandler"), store: store}
}

// GET /list-results
func (h *ResultsHandler) ListResults(c *gin.Context) {
	keys, err := h.store.List(c.Request.Context())
	if err != nil {
		h.log.Error("Failed to list results", "error", err)
		response.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	results := make([]string, 0, len(keys))
	for _, k := range keys {
		if !strings.HasPrefix(k, models.IngestMarkerPrefix) {
			results = append(results, k)
		}
	}
	keys = results
	response.RespondOK(c, models.ListResultsResponse{AvailableResults: keys, Count: len(keys)})
}

// GET /download-results/:key
func (h *ResultsHandler) DownloadJSON(c *gin.Context) {
	res, ok := h.lookup(c)
	if !ok {
		return
	}
	body, err := services.ExportJSON(res)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	response.Attachment(c, res.Key+".json", "application/json; charset=utf-8", body)
}

// GET /download-text/:key
func (h *ResultsHandler) DownloadText(c *gin.Context) {
	res, ok := h.lookup(c)
	if !ok {
		return
	}
	response.Attachment(c, res.Key+".txt", "text/plain; charset=utf-8", []byte(services.ExportText(res)))
}

// GET /download-xlsx/:key
func (h *ResultsHandler) DownloadXLSX(c *gin.Context) {
	res, ok := h.lookup(c)
	if !ok {
		return
	}
	body, err := services.ExportXLSX(res)
	if err != nil {
		h.log.Error("Failed to build workbook", "key", res.Key, "error", err)
		response.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	response.Attachment(c, res.Key+".xlsx", xlsxContentType, body)
}

func (h *ResultsHandler) lookup(c *gin.Context) (*models.StoredResult, bool) {
	key := c.Param("key")
	res, err := h.store.Get(c.Request.Context(), key)
	if errors.Is(err, models.ErrNotFound) {
		response.RespondError(c, http.StatusNotFound, models.ErrNotFound)
		return nil, false
	}
	if err != nil {
		h.log.Error("Failed to load result", "key", key, "error", err)
		response.RespondError(c, http.StatusInternalServerError, err)
		return nil, false
	}
	return res, true
}
