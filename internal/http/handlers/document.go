package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Lllllllleong/pattadocumentflow/internal/http/response"
	"github.com/Lllllllleong/pattadocumentflow/internal/logger"
	"github.com/Lllllllleong/pattadocumentflow/internal/models"
	"github.com/Lllllllleong/pattadocumentflow/internal/services"
)

// UploadField is the multipart field carrying the documents.
const UploadField = "files"

type documentProcessor interface {
	ProcessBatch(ctx context.Context, files []services.Upload) (*models.BatchResult, error)
	ExtractTextBatch(ctx context.Context, files []services.Upload) (*models.BatchResult, error)
}

type DocumentHandler struct {
	log           *logger.Logger
	pipeline      documentProcessor
	maxFileBytes  int64
	maxTotalBytes int64
}

func NewDocumentHandler(log *logger.Logger, pipeline documentProcessor, maxFileBytes, maxTotalBytes int64) *DocumentHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &DocumentHandler{
		log:           log.With("handler", "DocumentHandler"),
		pipeline:      pipeline,
		maxFileBytes:  maxFileBytes,
		maxTotalBytes: maxTotalBytes,
	}
}

// POST /process-documents
func (h *DocumentHandler) ProcessDocuments(c *gin.Context) {
	h.run(c, "Processing failed", h.pipeline.ProcessBatch)
}

// POST /extract-text
func (h *DocumentHandler) ExtractText(c *gin.Context) {
	h.run(c, "Text extraction failed", h.pipeline.ExtractTextBatch)
}

func (h *DocumentHandler) run(c *gin.Context, failure string, fn func(context.Context, []services.Upload) (*models.BatchResult, error)) {
	files, err := h.readUploads(c)
	if err != nil {
		response.RespondError(c, statusFor(err), err)
		return
	}
	if err := services.ValidateUploads(files, h.maxFileBytes, h.maxTotalBytes); err != nil {
		response.RespondError(c, statusFor(err), err)
		return
	}

	batch, err := fn(c.Request.Context(), files)
	if err != nil {
		h.log.Error(failure, "error", err)
		if errors.Is(err, models.ErrOCRUnavailable) {
			response.RespondError(c, http.StatusInternalServerError, models.ErrOCRUnavailable)
			return
		}
		response.RespondFailure(c, http.StatusInternalServerError, fmt.Sprintf("%s: %v", failure, err))
		return
	}
	response.RespondOK(c, batch)
}

// readUploads reads every file of the upload field. Files over the size
// limit are rejected from their header without being read.
func (h *DocumentHandler) readUploads(c *gin.Context) ([]services.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, models.ErrNoFiles
		}
		return nil, fmt.Errorf("%w: %v", models.ErrUnsupportedInput, err)
	}
	headers := form.File[UploadField]
	if len(headers) == 0 {
		return nil, models.ErrNoFiles
	}

	files := make([]services.Upload, 0, len(headers))
	for _, fh := range headers {
		if h.maxFileBytes > 0 && fh.Size > h.maxFileBytes {
			return nil, fmt.Errorf("%w: file %s is %d bytes, limit is %d", models.ErrUnsupportedInput, fh.Filename, fh.Size, h.maxFileBytes)
		}
		data, err := readFile(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, services.Upload{
			Filename:    fh.Filename,
			ContentType: contentType(fh),
			Data:        data,
		})
	}
	return files, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload %s: %w", fh.Filename, err)
	}
	return data, nil
}

// contentType is the declared part type without parameters.
func contentType(fh *multipart.FileHeader) string {
	ct := fh.Header.Get("Content-Type")
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNoFiles), errors.Is(err, models.ErrUnsupportedInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
