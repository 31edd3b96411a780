// Package http serves the document API.
package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/Lllllllleong/pattadocumentflow/internal/http/handlers"
	httpMW "github.com/Lllllllleong/pattadocumentflow/internal/http/middleware"
	"github.com/Lllllllleong/pattadocumentflow/internal/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	AllowedOrigins []string
	// MaxMultipartMemory bounds the upload bytes buffered in memory.
	MaxMultipartMemory int64

	HealthHandler   *httpH.HealthHandler
	DocumentHandler *httpH.DocumentHandler
	ResultsHandler  *httpH.ResultsHandler
	SchemesHandler  *httpH.SchemesHandler
	ChatHandler     *httpH.ChatHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))
	if cfg.MaxMultipartMemory > 0 {
		r.MaxMultipartMemory = cfg.MaxMultipartMemory
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/", cfg.HealthHandler.HealthCheck)
		r.GET("/health/translation", cfg.HealthHandler.TranslationHealth)
	}

	// Processing
	if cfg.DocumentHandler != nil {
		r.POST("/process-documents", cfg.DocumentHandler.ProcessDocuments)
		r.POST("/extract-text", cfg.DocumentHandler.ExtractText)
	}

	// Results
	if cfg.ResultsHandler != nil {
		r.GET("/list-results", cfg.ResultsHandler.ListResults)
		r.GET("/download-results/:key", cfg.ResultsHandler.DownloadJSON)
		r.GET("/download-text/:key", cfg.ResultsHandler.DownloadText)
		r.GET("/download-xlsx/:key", cfg.ResultsHandler.DownloadXLSX)
	}

	// Schemes
	if cfg.SchemesHandler != nil {
		r.GET("/eligible-schemes", cfg.SchemesHandler.DefaultClaimant)
		r.POST("/eligible-schemes", cfg.SchemesHandler.Evaluate)
	}
	if cfg.ChatHandler != nil {
		r.POST("/chat", cfg.ChatHandler.Chat)
	}

	return r
}
