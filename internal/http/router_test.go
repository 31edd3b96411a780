package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpH "github.com/Lllllllleong/pattadocumentflow/internal/http/handlers"
	"github.com/Lllllllleong/pattadocumentflow/internal/models"
	"github.com/Lllllllleong/pattadocumentflow/internal/services"
	"github.com/Lllllllleong/pattadocumentflow/internal/store"
)

type echoOCR struct{}

func (echoOCR) Name() string { return "echo" }

func (echoOCR) ExtractText(_ context.Context, img []byte, _ string) (string, error) {
	return string(img), nil
}

type fakeProbe struct {
	err error
}

func (p fakeProbe) Translate(context.Context, string, string, string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return "नमस्ते", nil
}

func (p fakeProbe) SupportedLanguages(context.Context) (int, error) { return 133, nil }

type fakeChat struct{}

func (fakeChat) Reply(_ context.Context, req models.ChatRequest) models.ChatResponse {
	return models.ChatResponse{BotReply: "echo: " + req.UserInput}
}

type testFile struct {
	name, contentType, body string
}

func newTestRouter(t *testing.T, ocr services.TextRecognizer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	st := store.NewMemory(0)
	pipeline := services.NewDocumentPipeline(services.PipelineDeps{OCR: ocr, Store: st}, services.PipelineOptions{}, nil)
	return NewRouter(RouterConfig{
		AllowedOrigins:  []string{"*"},
		HealthHandler:   httpH.NewHealthHandler(httpH.Availability{OCR: ocr != nil, Translate: true}, fakeProbe{}),
		DocumentHandler: httpH.NewDocumentHandler(nil, pipeline, 1<<10, 4<<10),
		ResultsHandler:  httpH.NewResultsHandler(nil, st),
		SchemesHandler:  httpH.NewSchemesHandler(),
		ChatHandler:     httpH.NewChatHandler(fakeChat{}),
	})
}

func multipartRequest(t *testing.T, path string, files ...testFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, f.name))
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, echoOCR{})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[models.HealthResponse](t, rec)
	assert.Equal(t, models.HealthResponse{Status: "healthy", VisionAPIAvailable: true, TranslateAPIAvailable: true}, got)

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/health/translation", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	th := decode[models.TranslationHealthResponse](t, rec)
	assert.Equal(t, "healthy", th.Status)
	assert.Equal(t, 133, th.SupportedLanguages)
	assert.Equal(t, "Test: 'Hello' → 'नमस्ते'", th.TestTranslation)
}

func TestTranslationHealthUnhealthy(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for name, h := range map[string]*httpH.HealthHandler{
		"missing": httpH.NewHealthHandler(httpH.Availability{}, nil),
		"failing": httpH.NewHealthHandler(httpH.Availability{Translate: true}, fakeProbe{err: errors.New("quota")}),
	} {
		t.Run(name, func(t *testing.T) {
			r := NewRouter(RouterConfig{HealthHandler: h})
			rec := serve(r, httptest.NewRequest(http.MethodGet, "/health/translation", nil))
			require.Equal(t, http.StatusOK, rec.Code)
			th := decode[models.TranslationHealthResponse](t, rec)
			assert.Equal(t, "unhealthy", th.Status)
			assert.False(t, th.TranslateAPIAvailable)
			assert.NotEmpty(t, th.TestTranslation)
		})
	}
}

func TestProcessDocumentsThenDownload(t *testing.T) {
	r := newTestRouter(t, echoOCR{})

	rec := serve(r, multipartRequest(t, "/process-documents",
		testFile{"deed.png", "image/png", "Patta No PAT 000123"},
		testFile{"blank.jpg", "image/jpeg", ""},
	))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	batch := decode[models.BatchResult](t, rec)
	assert.True(t, batch.Success)
	assert.Equal(t, "Successfully processed 1 document(s)", batch.Message)
	require.Len(t, batch.Results, 1)
	assert.Equal(t, "deed.png", batch.Results[0].Filename)
	assert.Equal(t, "Unknown", batch.Results[0].OriginalLanguage)
	require.True(t, strings.HasPrefix(batch.BatchKey, "batch_"))

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/list-results", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[models.ListResultsResponse](t, rec)
	assert.Equal(t, 2, list.Count)
	assert.Contains(t, list.AvailableResults, batch.BatchKey)

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/download-results/"+batch.BatchKey, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="`+batch.BatchKey+`.json"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "\n  \"success\": true")

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/download-text/"+batch.BatchKey, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "File 1: deed.png\n"))

	rec = serve(r, httptest.NewRequest(http.MethodGet, "/download-xlsx/"+batch.BatchKey, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestExtractTextKeepsEmptyDocuments(t *testing.T) {
	r := newTestRouter(t, echoOCR{})

	rec := serve(r, multipartRequest(t, "/extract-text",
		testFile{"deed.png", "image/png", "Patta  No"},
		testFile{"blank.png", "image/png", ""},
	))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	batch := decode[models.BatchResult](t, rec)
	require.Len(t, batch.Results, 2)
	assert.Equal(t, "Patta No", batch.Results[0].StandardizedText)
	assert.True(t, strings.HasPrefix(batch.BatchKey, "text_batch_"))
}

func TestProcessDocumentsRejections(t *testing.T) {
	tests := []struct {
		name    string
		ocr     services.TextRecognizer
		req     func(t *testing.T) *http.Request
		status  int
		message string
	}{
		{
			name: "unsupported type rejects the batch",
			ocr:  echoOCR{},
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/process-documents",
					testFile{"deed.png", "image/png", "fine"},
					testFile{"notes.txt", "text/plain", "nope"})
			},
			status:  http.StatusBadRequest,
			message: "file notes.txt has unsupported type text/plain",
		},
		{
			name: "no files",
			ocr:  echoOCR{},
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/process-documents")
			},
			status:  http.StatusBadRequest,
			message: "no files provided",
		},
		{
			name: "not multipart",
			ocr:  echoOCR{},
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/process-documents", strings.NewReader("{}"))
			},
			status:  http.StatusBadRequest,
			message: "no files provided",
		},
		{
			name: "file too large",
			ocr:  echoOCR{},
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/process-documents",
					testFile{"big.png", "image/png", strings.Repeat("x", 2<<10)})
			},
			status:  http.StatusBadRequest,
			message: "limit is 1024",
		},
		{
			name: "total too large",
			ocr:  echoOCR{},
			req: func(t *testing.T) *http.Request {
				part := strings.Repeat("x", 1000)
				return multipartRequest(t, "/process-documents",
					testFile{"a.png", "image/png", part}, testFile{"b.png", "image/png", part},
					testFile{"c.png", "image/png", part}, testFile{"d.png", "image/png", part},
					testFile{"e.png", "image/png", part})
			},
			status:  http.StatusBadRequest,
			message: "limit is 4096",
		},
		{
			name: "ocr not configured",
			ocr:  nil,
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/process-documents", testFile{"deed.png", "image/png", "fine"})
			},
			status:  http.StatusInternalServerError,
			message: "OCR service not configured",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t, tt.ocr)
			rec := serve(r, tt.req(t))
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, false, body["success"])
			assert.Contains(t, body["message"], tt.message)
			assert.Equal(t, []any{}, body["results"])
		})
	}
}

func TestDownloadUnknownKey(t *testing.T) {
	r := newTestRouter(t, echoOCR{})
	for _, path := range []string{"/download-results/nope", "/download-text/nope", "/download-xlsx/nope"} {
		rec := serve(r, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "results not found")
	}
}

func TestListResultsEmpty(t *testing.T) {
	r := newTestRouter(t, echoOCR{})
	rec := serve(r, httptest.NewRequest(http.MethodGet, "/list-results", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"available_results": [], "count": 0}`, rec.Body.String())
}

func TestListResultsHidesIngestMarkers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	st := store.NewMemory(0)
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, st.Put(ctx, "20250102_030405_deed.png", models.NewRecordResult("20250102_030405_deed.png", models.DocumentRecord{Filename: "deed.png"}, now)))
	require.NoError(t, st.Put(ctx, models.IngestMarkerKey("abc"), models.NewIngestResult(models.IngestMarkerKey("abc"), models.IngestMarker{FileHash: "abc"}, now)))
	r := NewRouter(RouterConfig{ResultsHandler: httpH.NewResultsHandler(nil, st)})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/list-results", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"available_results": ["20250102_030405_deed.png"], "count": 1}`, rec.Body.String())
}

func TestEligibleSchemes(t *testing.T) {
	r := newTestRouter(t, echoOCR{})

	rec := serve(r, httptest.NewRequest(http.MethodGet, "/eligible-schemes", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Claimant        map[string]any `json:"claimant"`
		EligibleSchemes []string       `json:"eligible_schemes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Ramesh", got.Claimant["name"])
	assert.Len(t, got.EligibleSchemes, 15)

	req := httptest.NewRequest(http.MethodPost, "/eligible-schemes", strings.NewReader(`{"name":"Lakshmi","claimStatus":"Pending","waterIndex":0.9}`))
	req.Header.Set("Content-Type", "application/json")
	rec = serve(r, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Lakshmi", got.Claimant["name"])
	assert.Empty(t, got.EligibleSchemes)

	req = httptest.NewRequest(http.MethodPost, "/eligible-schemes", strings.NewReader(`{"name":"no status"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = serve(r, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChat(t *testing.T) {
	r := newTestRouter(t, echoOCR{})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"user_input":"Am I eligible?","ocr_context":"PAT-000123"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(r, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"bot_reply":"echo: Am I eligible?"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"ocr_context":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = serve(r, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
