package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pattadocumentflow/internal/config"
	"github.com/Lllllllleong/pattadocumentflow/internal/logger"
	"github.com/Lllllllleong/pattadocumentflow/internal/models"
	"github.com/Lllllllleong/pattadocumentflow/internal/store"
)

func newTestApp() *App {
	cfg := &config.Config{
		StoreBackend:   config.StoreMemory,
		MaxFileSizeMB:  1,
		MaxTotalSizeMB: 2,
		PDFScale:       2,
	}
	log := logger.Nop()
	st := store.NewMemory(0)
	return &App{
		Log:      log,
		Cfg:      cfg,
		Store:    st,
		Pipeline: wirePipeline(cfg, log, Clients{}, st),
		Chat:     wireChat(cfg, log, Clients{}),
	}
}

func TestRouterReportsMissingClients(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := newTestApp().Router()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var health models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.False(t, health.GeminiAvailable)
	assert.False(t, health.VisionAPIAvailable)
	assert.False(t, health.TranslateAPIAvailable)
}

func TestIngestNeedsStorage(t *testing.T) {
	_, err := newTestApp().Ingest()
	assert.ErrorContains(t, err, "Cloud Storage")
}

func TestCloseWithoutClients(t *testing.T) {
	a := newTestApp()
	assert.NotPanics(t, a.Close)
	var nilApp *App
	assert.NotPanics(t, nilApp.Close)
}
