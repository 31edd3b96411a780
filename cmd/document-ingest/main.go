package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/pattadocumentflow/internal/app"
	"github.com/Lllllllleong/pattadocumentflow/internal/config"
	"github.com/Lllllllleong/pattadocumentflow/internal/logger"
	"github.com/Lllllllleong/pattadocumentflow/internal/services"
)

var (
	ingest  *services.IngestFunction
	log     *logger.Logger
	once    sync.Once
	initErr error
)

func init() {
	functions.CloudEvent("IngestDocument", ingestDocument)
}

// main is required by the Go Functions Framework.
func main() {}

func setup() error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	a, err := app.New(context.Background(), cfg, app.Options{Storage: true})
	if err != nil {
		return err
	}
	log = a.Log
	ingest, err = a.Ingest()
	return err
}

// ingestDocument runs for every object finalized in the upload bucket.
func ingestDocument(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		initErr = setup()
	})
	if initErr != nil {
		if log != nil {
			log.Error("Critical error during function initialization", "error", initErr)
		}
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		log.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	// Process logs its own failures with object context.
	return ingest.Process(ctx, gcsEvent)
}
