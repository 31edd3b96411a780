package gcp

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"

	"github.com/Lllllllleong/pattadocumentflow/internal/langdetect"
	"github.com/Lllllllleong/pattadocumentflow/internal/logger"
)

// TranslateClient wraps the Cloud Translation v2 API.
type TranslateClient struct {
	log     *logger.Logger
	client  *translate.Client
	timeout time.Duration
}

func NewTranslateClient(ctx context.Context, log *logger.Logger, timeout time.Duration, opts ...option.ClientOption) (*TranslateClient, error) {
	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("translate client: %w", err)
	}
	return &TranslateClient{log: log.With("service", "gcp.Translate"), client: client, timeout: timeout}, nil
}

func (t *TranslateClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if t.timeout > 0 {
		return context.WithTimeout(ctx, t.timeout)
	}
	return ctx, func() {}
}

// DetectLanguage returns the most confident detection for text.
func (t *TranslateClient) DetectLanguage(ctx context.Context, text string) (langdetect.Detection, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()

	dets, err := t.client.DetectLanguage(ctx, []string{text})
	if err != nil {
		return langdetect.Detection{}, fmt.Errorf("translate DetectLanguage: %w", err)
	}
	if len(dets) == 0 || len(dets[0]) == 0 {
		return langdetect.Detection{}, fmt.Errorf("translate DetectLanguage: no detections")
	}
	best := dets[0][0]
	for _, d := range dets[0][1:] {
		if d.Confidence > best.Confidence {
			best = d
		}
	}
	return langdetect.Detection{Language: best.Language.String(), Confidence: best.Confidence}, nil
}

// Translate translates plain text into target. An empty source asks the
// service to detect it.
func (t *TranslateClient) Translate(ctx context.Context, text, target, source string) (string, error) {
	targetTag, err := language.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid target language %q: %w", target, err)
	}
	opts := &translate.Options{Format: translate.Text}
	if source != "" {
		srcTag, err := language.Parse(source)
		if err != nil {
			return "", fmt.Errorf("invalid source language %q: %w", source, err)
		}
		opts.Source = srcTag
	}

	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	out, err := t.client.Translate(ctx, []string{text}, targetTag, opts)
	if err != nil {
		return "", fmt.Errorf("translate Translate: %w", err)
	}
	if len(out) == 0 {
		return "", fmt.Errorf("translate Translate: empty response")
	}
	return out[0].Text, nil
}

// SupportedLanguages counts the languages the service can translate into.
func (t *TranslateClient) SupportedLanguages(ctx context.Context) (int, error) {
	ctx, cancel := t.withTimeout(ctx)
	defer cancel()
	langs, err := t.client.SupportedLanguages(ctx, language.English)
	if err != nil {
		return 0, fmt.Errorf("translate SupportedLanguages: %w", err)
	}
	return len(langs), nil
}

func (t *TranslateClient) Close() error { return t.client.Close() }
