package gcp

import (
	"context"
	"fmt"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/pattadocumentflow/internal/logger"
	"github.com/Lllllllleong/pattadocumentflow/internal/models"
)

// VisionRecognizer reads text from images with Cloud Vision document text
// detection.
type VisionRecognizer struct {
	log     *logger.Logger
	client  *vision.ImageAnnotatorClient
	timeout time.Duration
}

func NewVisionRecognizer(ctx context.Context, log *logger.Logger, timeout time.Duration, opts ...option.ClientOption) (*VisionRecognizer, error) {
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	return &VisionRecognizer{
		log:     log.With("service", "gcp.Vision"),
		client:  client,
		timeout: timeout,
	}, nil
}

func (v *VisionRecognizer) Name() string { return "vision" }

// ExtractText returns the full text annotation of img. An image with no text
// yields "" and a nil error.
func (v *VisionRecognizer) ExtractText(ctx context.Context, img []byte, mimeType string) (string, error) {
	if len(img) == 0 {
		return "", nil
	}
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: img},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
		}},
	}
	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return "", classifyOCRError("vision BatchAnnotateImages", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return "", nil
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return "", fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}
	if r0.FullTextAnnotation == nil {
		return "", nil
	}
	return r0.FullTextAnnotation.Text, nil
}

func (v *VisionRecognizer) Close() error { return v.client.Close() }

// classifyOCRError marks credential failures as models.ErrOCRUnavailable so
// the caller can abort the batch instead of skipping one page.
func classifyOCRError(op string, err error) error {
	switch status.Code(err) {
	case codes.Unauthenticated, codes.PermissionDenied:
		return fmt.Errorf("%s: %w: %v", op, models.ErrOCRUnavailable, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
