package main

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/pattadocumentflow/internal/app"
	"github.com/Lllllllleong/pattadocumentflow/internal/config"
)

var (
	handler http.Handler
	once    sync.Once
	initErr error
)

func init() {
	// "ProcessDocuments" is the entry point name configured in GCP.
	functions.HTTP("ProcessDocuments", serveDocuments)
}

// main is required by the Go Functions Framework.
func main() {}

func serveDocuments(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		var cfg *config.Config
		cfg, initErr = config.Load("")
		if initErr != nil {
			return
		}
		var a *app.App
		a, initErr = app.New(context.Background(), cfg, app.Options{})
		if initErr != nil {
			return
		}
		handler = a.Router()
	})
	if initErr != nil {
		log.Printf("CRITICAL: document API initialization failed: %v", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	handler.ServeHTTP(w, r)
}
