// Package langdetect identifies the source language of extracted text.
package langdetect

import (
	"context"
	"unicode"

	"github.com/Lllllllleong/pattadocumentflow/internal/logger"
)

// SampleRunes bounds how much of a text is inspected, on both paths.
const SampleRunes = 1000

// MinConfidence is the confidence a detection must exceed to be trusted.
const MinConfidence = 0.1

// Detection is a language tag plus a confidence in [0,1].
type Detection struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

var english = Detection{Language: "en", Confidence: 0}

// Service is an external language detection collaborator.
type Service interface {
	DetectLanguage(ctx context.Context, text string) (Detection, error)
}

type script struct {
	tag    string
	tables []*unicode.RangeTable
}

// scripts is checked in order; earlier entries win count ties.
var scripts = []script{
	{"hi", []*unicode.RangeTable{unicode.Devanagari}},
	{"bn", []*unicode.RangeTable{unicode.Bengali}},
	{"pa", []*unicode.RangeTable{unicode.Gurmukhi}},
	{"gu", []*unicode.RangeTable{unicode.Gujarati}},
	{"or", []*unicode.RangeTable{unicode.Oriya}},
	{"ta", []*unicode.RangeTable{unicode.Tamil}},
	{"te", []*unicode.RangeTable{unicode.Telugu}},
	{"kn", []*unicode.RangeTable{unicode.Kannada}},
	{"ml", []*unicode.RangeTable{unicode.Malayalam}},
	{"ar", []*unicode.RangeTable{unicode.Arabic}},
	{"zh", []*unicode.RangeTable{unicode.Han}},
	{"ja", []*unicode.RangeTable{unicode.Hiragana, unicode.Katakana}},
	{"ko", []*unicode.RangeTable{unicode.Hangul}},
	{"ru", []*unicode.RangeTable{unicode.Cyrillic}},
	{"el", []*unicode.RangeTable{unicode.Greek}},
	{"th", []*unicode.RangeTable{unicode.Thai}},
	{"my", []*unicode.RangeTable{unicode.Myanmar}},
	{"km", []*unicode.RangeTable{unicode.Khmer}},
	{"lo", []*unicode.RangeTable{unicode.Lao}},
	{"si", []*unicode.RangeTable{unicode.Sinhala}},
	{"am", []*unicode.RangeTable{unicode.Ethiopic}},
	{"he", []*unicode.RangeTable{unicode.Hebrew}},
}

// Detector runs the primary Service and falls back to script counting when
// the service is missing or fails.
type Detector struct {
	service Service
	log     *logger.Logger
}

// New creates a Detector. service may be nil, in which case every call uses
// the script fallback.
func New(service Service, log *logger.Logger) *Detector {
	if log == nil {
		log = logger.Nop()
	}
	return &Detector{service: service, log: log.With("service", "LanguageDetector")}
}

// Detect never fails. Service errors are logged and answered by DetectScript.
func (d *Detector) Detect(ctx context.Context, text string) Detection {
	sample := Sample(text)
	if d.service == nil {
		return DetectScript(sample)
	}
	det, err := d.service.DetectLanguage(ctx, sample)
	if err != nil {
		d.log.Warn("Language detection failed, using script fallback.", "error", err)
		return DetectScript(sample)
	}
	return det
}

// ShouldTranslate reports whether text is confidently in sourceLanguage.
// It is always false when autoTranslate is disabled.
func (d *Detector) ShouldTranslate(ctx context.Context, text, sourceLanguage string, autoTranslate bool) bool {
	_, ok := d.Decide(ctx, text, sourceLanguage, autoTranslate)
	return ok
}

// Decide is ShouldTranslate that also returns the detection it was based on.
// No detection is made when autoTranslate is disabled.
func (d *Detector) Decide(ctx context.Context, text, sourceLanguage string, autoTranslate bool) (Detection, bool) {
	if !autoTranslate {
		return Detection{}, false
	}
	det := d.Detect(ctx, text)
	return det, det.Language == sourceLanguage && det.Confidence > MinConfidence
}

// Sample returns at most SampleRunes leading runes of text.
func Sample(text string) string {
	n := 0
	for i := range text {
		if n == SampleRunes {
			return text[:i]
		}
		n++
	}
	return text
}

// DetectScript classifies each letter of text by Unicode script and returns
// the most frequent script's language. Letters outside every known script
// (Latin included) still count towards the total. A result whose confidence
// does not exceed MinConfidence is reported as English with zero confidence.
func DetectScript(text string) Detection {
	counts := make([]int, len(scripts))
	total := 0
	for _, r := range Sample(text) {
		if !unicode.IsLetter(r) {
			continue
		}
		total++
		for i, s := range scripts {
			if unicode.In(r, s.tables...) {
				counts[i]++
				break
			}
		}
	}
	if total == 0 {
		return english
	}

	best := -1
	for i, c := range counts {
		if c > 0 && (best < 0 || c > counts[best]) {
			best = i
		}
	}
	if best < 0 {
		return english
	}
	confidence := float64(counts[best]) / float64(total)
	if confidence <= MinConfidence {
		return english
	}
	return Detection{Language: scripts[best].tag, Confidence: confidence}
}
