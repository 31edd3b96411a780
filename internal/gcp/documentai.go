package gcp

import (
	"context"
	"fmt"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/Lllllllleong/pattadocumentflow/internal/logger"
)

// DocumentAIRecognizer reads text from images with a Document AI OCR
// processor.
type DocumentAIRecognizer struct {
	log     *logger.Logger
	client  *documentai.DocumentProcessorClient
	name    string
	timeout time.Duration
}

func NewDocumentAIRecognizer(ctx context.Context, log *logger.Logger, projectID, location, processorID string, timeout time.Duration, opts ...option.ClientOption) (*DocumentAIRecognizer, error) {
	if projectID == "" || processorID == "" {
		return nil, fmt.Errorf("NewDocumentAIRecognizer: projectID and processorID cannot be empty")
	}
	if location == "" {
		location = "us"
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)
	docOpts := append([]option.ClientOption{option.WithEndpoint(endpoint)}, opts...)
	client, err := documentai.NewDocumentProcessorClient(ctx, docOpts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}
	l := log.With("service", "gcp.DocumentAI")
	l.Info("Document AI initialized.", "endpoint", endpoint)
	return &DocumentAIRecognizer{
		log:     l,
		client:  client,
		name:    fmt.Sprintf("projects/%s/locations/%s/processors/%s", projectID, location, processorID),
		timeout: timeout,
	}, nil
}

func (d *DocumentAIRecognizer) Name() string { return "documentai" }

func (d *DocumentAIRecognizer) ExtractText(ctx context.Context, img []byte, mimeType string) (string, error) {
	if len(img) == 0 {
		return "", nil
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	resp, err := d.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: d.name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{Content: img, MimeType: mimeType},
		},
	})
	if err != nil {
		return "", classifyOCRError("documentai ProcessDocument", err)
	}
	if resp == nil || resp.Document == nil {
		return "", nil
	}
	return resp.Document.Text, nil
}

func (d *DocumentAIRecognizer) Close() error { return d.client.Close() }
