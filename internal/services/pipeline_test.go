package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/pattadocumentflow/internal/entities"
	"github.com/Lllllllleong/pattadocumentflow/internal/langdetect"
	"github.com/Lllllllleong/pattadocumentflow/internal/models"
	"github.com/Lllllllleong/pattadocumentflow/internal/store"
)

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

// fakeOCR answers by image content. Images starting with "panic" panic,
// "fail" fail, "down" report the service unavailable.
type fakeOCR struct {
	mu    sync.Mutex
	texts map[string]string
	calls int
}

func (f *fakeOCR) Name() string { return "fake" }

func (f *fakeOCR) ExtractText(_ context.Context, img []byte, _ string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	s := string(img)
	switch {
	case strings.HasPrefix(s, "panic"):
		panic("recognizer exploded")
	case strings.HasPrefix(s, "fail"):
		return "", errors.New("image unreadable")
	case strings.HasPrefix(s, "down"):
		return "", fmt.Errorf("%w: credentials rejected", models.ErrOCRUnavailable)
	}
	if t, ok := f.texts[s]; ok {
		return t, nil
	}
	return s, nil
}

type fakeRenderer struct {
	pages   [][]byte
	openErr error
	closed  bool
}

func (r *fakeRenderer) Open(context.Context, []byte) (RenderedPDF, error) {
	if r.openErr != nil {
		return nil, r.openErr
	}
	return &fakePDF{r: r}, nil
}

type fakePDF struct{ r *fakeRenderer }

func (d *fakePDF) PageCount() int { return len(d.r.pages) }

func (d *fakePDF) RenderPage(_ context.Context, page int) ([]byte, error) {
	img := d.r.pages[page-1]
	if img == nil {
		return nil, errors.New("render failed")
	}
	return img, nil
}

func (d *fakePDF) Close() error {
	d.r.closed = true
	return nil
}

type fakeTranslator struct {
	out      string
	err      error
	received string
	source   string
}

func (f *fakeTranslator) Translate(_ context.Context, text, _, source string) (string, error) {
	f.received, f.source = text, source
	return f.out, f.err
}

// fakeExtractor returns fixed maps. Text containing panicOn panics and text
// containing failOn errors, in both calls.
type fakeExtractor struct {
	mu              sync.Mutex
	a, b            entities.EntityMap
	aErr, bErr      error
	aText, bText    string
	aCalls, bCalls  int
	panicOn, failOn string
}

func (f *fakeExtractor) trip(text string) error {
	if f.panicOn != "" && strings.Contains(text, f.panicOn) {
		panic("extractor exploded")
	}
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return errors.New("model refused")
	}
	return nil
}

func (f *fakeExtractor) TranslateAndExtract(_ context.Context, text string) (entities.EntityMap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aCalls++
	f.aText = text
	if err := f.trip(text); err != nil {
		return nil, err
	}
	return f.a, f.aErr
}

func (f *fakeExtractor) Extract(_ context.Context, text string) (entities.EntityMap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bCalls++
	f.bText = text
	if err := f.trip(text); err != nil {
		return nil, err
	}
	return f.b, f.bErr
}

type fakeDetectService struct {
	det langdetect.Detection
}

func (f fakeDetectService) DetectLanguage(context.Context, string) (langdetect.Detection, error) {
	return f.det, nil
}

func newTestPipeline(deps PipelineDeps, opts PipelineOptions) *DocumentPipeline {
	if deps.Store == nil {
		deps.Store = store.NewMemory(0)
	}
	p := NewDocumentPipeline(deps, opts, nil)
	p.now = func() time.Time { return fixedNow }
	return p
}

func png(name, content string) Upload {
	return Upload{Filename: name, ContentType: "image/png", Data: []byte(content)}
}

func TestValidateUploads(t *testing.T) {
	ok := []Upload{png("a.png", "abc"), {Filename: "b.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}}
	require.NoError(t, ValidateUploads(ok, 10, 100))

	err := ValidateUploads(nil, 10, 100)
	assert.ErrorIs(t, err, models.ErrNoFiles)

	err = ValidateUploads([]Upload{{Filename: "a.txt", ContentType: "text/plain", Data: []byte("x")}}, 10, 100)
	assert.ErrorIs(t, err, models.ErrUnsupportedInput)

	err = ValidateUploads([]Upload{png("big.png", "0123456789ab")}, 10, 100)
	assert.ErrorIs(t, err, models.ErrUnsupportedInput)

	err = ValidateUploads([]Upload{png("a.png", "12345678"), png("b.png", "12345678")}, 10, 12)
	assert.ErrorIs(t, err, models.ErrUnsupportedInput)

	assert.NoError(t, ValidateUploads([]Upload{png("big.png", "0123456789ab")}, 0, 0))
}

func TestExtractPDFTextMarksOnlyPagesWithText(t *testing.T) {
	ocr := &fakeOCR{texts: map[string]string{"page1": "Patta No PAT 000123", "page2": ""}}
	renderer := &fakeRenderer{pages: [][]byte{[]byte("page1"), []byte("page2")}}
	p := newTestPipeline(PipelineDeps{OCR: ocr, PDF: renderer}, PipelineOptions{})

	rec, err := p.ExtractDocumentText(context.Background(), Upload{Filename: "deed.pdf", ContentType: "application/pdf", Data: []byte("%PDF")})
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Contains(t, rec.RawText, PageMarker(1)+"Patta No PAT 000123")
	assert.NotContains(t, rec.RawText, "--- Page 2 ---")
	assert.Contains(t, rec.CleanedText, "Patta No PAT 000123")
	assert.True(t, renderer.closed)
}

func TestExtractPDFTextSkipsFailedPages(t *testing.T) {
	ocr := &fakeOCR{}
	renderer := &fakeRenderer{pages: [][]byte{nil, []byte("fail"), []byte("third page")}}
	p := newTestPipeline(PipelineDeps{OCR: ocr, PDF: renderer}, PipelineOptions{})

	rec, err := p.ExtractDocumentText(context.Background(), Upload{Filename: "deed.pdf", ContentType: "application/pdf"})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, PageMarker(3)+"third page\n", rec.RawText)
}

func TestExtractPDFTextHonoursPageLimit(t *testing.T) {
	ocr := &fakeOCR{}
	renderer := &fakeRenderer{pages: [][]byte{[]byte("one"), []byte("two"), []byte("three")}}
	p := newTestPipeline(PipelineDeps{OCR: ocr, PDF: renderer}, PipelineOptions{MaxPDFPages: 2})

	rec, err := p.ExtractDocumentText(context.Background(), Upload{Filename: "deed.pdf", ContentType: "application/pdf"})
	require.NoError(t, err)
	assert.Contains(t, rec.RawText, "two")
	assert.NotContains(t, rec.RawText, "three")
	assert.Equal(t, 2, ocr.calls)
}

func TestUnreadablePDFIsNullResult(t *testing.T) {
	ocr := &fakeOCR{}
	p := newTestPipeline(PipelineDeps{OCR: ocr, PDF: &fakeRenderer{openErr: errors.New("not a pdf")}}, PipelineOptions{})

	rec, err := p.ExtractDocumentText(context.Background(), Upload{Filename: "bad.pdf", ContentType: "application/pdf"})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestProcessBatchIsolatesFailingDocuments(t *testing.T) {
	tests := []struct {
		name   string
		second string
	}{
		{name: "panic", second: "panic please"},
		{name: "ocr error", second: "fail please"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.NewMemory(0)
			p := newTestPipeline(PipelineDeps{OCR: &fakeOCR{}, Store: st}, PipelineOptions{Concurrency: 2})

			res, err := p.ProcessBatch(context.Background(), []Upload{
				png("one.png", "first document"),
				png("two.png", tt.second),
				png("three.png", "third document"),
			})
			require.NoError(t, err)
			require.Len(t, res.Results, 2)
			assert.Equal(t, "one.png", res.Results[0].Filename)
			assert.Equal(t, "three.png", res.Results[1].Filename)
			assert.True(t, res.Success)
			assert.Equal(t, "Successfully processed 2 document(s)", res.Message)
			assert.Equal(t, "batch_20250102_030405", res.BatchKey)
			assert.NotEmpty(t, res.ExecutionID)

			keys, err := st.List(context.Background())
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{
				"20250102_030405_one.png",
				"20250102_030405_three.png",
				"batch_20250102_030405",
			}, keys)

			stored, err := st.Get(context.Background(), "batch_20250102_030405")
			require.NoError(t, err)
			require.NotNil(t, stored.Batch)
			assert.Equal(t, models.KindBatch, stored.Kind)
			assert.Len(t, stored.Batch.Results, 2)
			assert.Equal(t, "batch_20250102_030405", stored.Batch.BatchKey)
		})
	}
}

func TestProcessBatchIsolatesExtractionFailures(t *testing.T) {
	tests := []struct {
		name      string
		extractor *fakeExtractor
		want      []string
	}{
		{
			name:      "extractor panics on second document",
			extractor: &fakeExtractor{panicOn: "second", b: entities.EntityMap{entities.Person: {"Lakshmi"}}},
			want:      []string{"one.png", "three.png"},
		},
		{
			name:      "extractor errors on second document",
			extractor: &fakeExtractor{failOn: "second", b: entities.EntityMap{entities.Person: {"Lakshmi"}}},
			want:      []string{"one.png", "two.png", "three.png"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(PipelineDeps{OCR: &fakeOCR{}, Extractor: tt.extractor}, PipelineOptions{Concurrency: 2})

			res, err := p.ProcessBatch(context.Background(), []Upload{
				png("one.png", "first document"),
				png("two.png", "second document"),
				png("three.png", "third document"),
			})
			require.NoError(t, err)

			var names []string
			for _, r := range res.Results {
				names = append(names, r.Filename)
			}
			assert.Equal(t, tt.want, names)
			assert.Equal(t, []string{"Lakshmi"}, res.Results[0].Entities[entities.Person])
			assert.Equal(t, []string{"Lakshmi"}, res.Results[len(res.Results)-1].Entities[entities.Person])
		})
	}
}

func TestProcessBatchKeepsPDFWithFailedSecondPage(t *testing.T) {
	ocr := &fakeOCR{texts: map[string]string{"page1": "Patta No PAT 000123"}}
	renderer := &fakeRenderer{pages: [][]byte{[]byte("page1"), []byte("fail page2")}}
	extractor := &fakeExtractor{b: entities.EntityMap{entities.PattaNumber: {"pat 000123"}}}
	p := newTestPipeline(PipelineDeps{OCR: ocr, PDF: renderer, Extractor: extractor}, PipelineOptions{})

	res, err := p.ProcessBatch(context.Background(), []Upload{
		{Filename: "deed.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)

	rec := res.Results[0]
	assert.Equal(t, "deed.pdf", rec.Filename)
	assert.Equal(t, PageMarker(1)+"Patta No PAT 000123\n", rec.RawText)
	assert.NotContains(t, rec.RawText, "--- Page 2 ---")
	assert.Contains(t, extractor.bText, "Patta No PAT 000123")
	assert.Equal(t, []string{"PAT-000123"}, rec.Entities[entities.PattaNumber])
	assert.True(t, renderer.closed)
}

func TestProcessDocumentAlwaysSerializesEntities(t *testing.T) {
	p := newTestPipeline(PipelineDeps{OCR: &fakeOCR{}}, PipelineOptions{})

	rec, err := p.ProcessDocument(context.Background(), png("plain.png", "nothing of note"))
	require.NoError(t, err)
	require.NotNil(t, rec)

	body, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"entities":{}`)

	text, err := p.ExtractDocumentText(context.Background(), png("plain.png", "nothing of note"))
	require.NoError(t, err)
	body, err = json.Marshal(text)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"entities":{}`)
}

func TestProcessBatchAbortsWhenOCRUnavailable(t *testing.T) {
	st := store.NewMemory(0)
	p := newTestPipeline(PipelineDeps{OCR: &fakeOCR{}, Store: st}, PipelineOptions{})

	res, err := p.ProcessBatch(context.Background(), []Upload{png("one.png", "fine"), png("two.png", "down")})
	assert.ErrorIs(t, err, models.ErrOCRUnavailable)
	assert.Nil(t, res)

	keys, err := st.List(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, keys, "batch_20250102_030405")
}

func TestProcessBatchWithoutOCR(t *testing.T) {
	p := newTestPipeline(PipelineDeps{}, PipelineOptions{})
	_, err := p.ProcessBatch(context.Background(), []Upload{png("one.png", "x")})
	assert.ErrorIs(t, err, models.ErrOCRUnavailable)
	assert.EqualError(t, err, "OCR service not configured")
}

func TestProcessBatchSkipsDocumentsWithoutText(t *testing.T) {
	ocr := &fakeOCR{texts: map[string]string{"blank": ""}}
	p := newTestPipeline(PipelineDeps{OCR: ocr}, PipelineOptions{})

	res, err := p.ProcessBatch(context.Background(), []Upload{png("blank.png", "blank"), png("full.png", "Patta holder")})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "full.png", res.Results[0].Filename)
}

func TestExtractTextBatchKeepsEmptyText(t *testing.T) {
	st := store.NewMemory(0)
	ocr := &fakeOCR{texts: map[string]string{"blank": ""}}
	p := newTestPipeline(PipelineDeps{OCR: ocr, Store: st}, PipelineOptions{})

	res, err := p.ExtractTextBatch(context.Background(), []Upload{
		png("blank.png", "blank"),
		png("broken.png", "fail"),
		png("full.png", "Patta  holder\nRamesh"),
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "blank.png", res.Results[0].Filename)
	assert.Empty(t, res.Results[0].RawText)
	assert.Equal(t, "Patta holder Ramesh", res.Results[1].StandardizedText)
	assert.Equal(t, entities.EntityMap{}, res.Results[1].Entities)
	assert.Equal(t, "text_batch_20250102_030405", res.BatchKey)
	assert.Equal(t, "Successfully extracted text from 2 document(s)", res.Message)

	_, err = st.Get(context.Background(), "text_20250102_030405_full.png")
	assert.NoError(t, err)
}

func TestProcessBatchSuffixesTakenKeys(t *testing.T) {
	st := store.NewMemory(0)
	p := newTestPipeline(PipelineDeps{OCR: &fakeOCR{}, Store: st}, PipelineOptions{})

	first, err := p.ProcessBatch(context.Background(), []Upload{png("same.png", "one"), png("same.png", "two")})
	require.NoError(t, err)
	second, err := p.ProcessBatch(context.Background(), []Upload{png("dir/same.png", "three")})
	require.NoError(t, err)

	assert.Equal(t, "batch_20250102_030405", first.BatchKey)
	assert.Equal(t, "batch_20250102_030405_2", second.BatchKey)
	assert.Equal(t, []string{"20250102_030405_same.png", "20250102_030405_same.png_2"}, first.RecordKeys)
	assert.Equal(t, []string{"20250102_030405_same.png_3"}, second.RecordKeys)

	keys, err := st.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"20250102_030405_same.png",
		"20250102_030405_same.png_2",
		"batch_20250102_030405",
		"20250102_030405_same.png_3",
		"batch_20250102_030405_2",
	}, keys)

	rec, err := st.Get(context.Background(), "20250102_030405_same.png_2")
	require.NoError(t, err)
	assert.Equal(t, "two", rec.Record.RawText)
}

func TestKeySafe(t *testing.T) {
	assert.Equal(t, "deed.pdf", keySafe("../../etc/deed.pdf"))
	assert.Equal(t, "deed.pdf", keySafe(`C:\scans\deed.pdf`))
	assert.Equal(t, "upload", keySafe(""))
	assert.Equal(t, "upload", keySafe(".."))
}

func translatingOptions() PipelineOptions {
	return PipelineOptions{
		TranslationEnabled:  true,
		AutoTranslate:       true,
		SourceLanguage:      "te",
		TargetLanguage:      "en",
		MandatoryEntityKeys: entities.DefaultMandatory,
	}
}

func TestProcessDocumentTranslatesAndReconciles(t *testing.T) {
	tr := &fakeTranslator{out: "Patta holder Ramesh Kumar"}
	ex := &fakeExtractor{
		a: entities.EntityMap{entities.PattaNumber: {"pat 000123"}, entities.Person: {"ramesh kumar"}},
		b: entities.EntityMap{entities.PattaNumber: {"PAT-000123"}, entities.PattaHolderName: {"ramesh kumar"}},
	}
	det := langdetect.New(fakeDetectService{det: langdetect.Detection{Language: "te", Confidence: 0.95}}, nil)
	p := newTestPipeline(PipelineDeps{OCR: &fakeOCR{}, Detector: det, Translator: tr, Extractor: ex}, translatingOptions())

	rec, err := p.ProcessDocument(context.Background(), png("deed.png", "రమేష్   పట్టా"))
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "te", rec.OriginalLanguage)
	assert.Equal(t, "Patta holder Ramesh Kumar", rec.TranslatedText)
	assert.Equal(t, "రమేష్ పట్టా", rec.StandardizedText)
	assert.Equal(t, "te", tr.source)
	assert.Equal(t, rec.StandardizedText, ex.aText)
	assert.Equal(t, rec.TranslatedText, ex.bText)

	assert.Equal(t, []string{"PAT-000123"}, rec.Entities[entities.PattaNumber])
	assert.Equal(t, []string{"Ramesh Kumar"}, rec.Entities[entities.PattaHolderName])
	assert.Equal(t, []string{"Ramesh Kumar"}, rec.Entities[entities.Person])
	assert.Equal(t, []string{}, rec.Entities[entities.ClaimStatus])
}

func TestProcessDocumentTranslationFailurePassesThrough(t *testing.T) {
	tr := &fakeTranslator{err: errors.New("quota")}
	det := langdetect.New(fakeDetectService{det: langdetect.Detection{Language: "te", Confidence: 0.95}}, nil)
	p := newTestPipeline(PipelineDeps{OCR: &fakeOCR{}, Detector: det, Translator: tr}, translatingOptions())

	rec, err := p.ProcessDocument(context.Background(), png("deed.png", "రమేష్"))
	require.NoError(t, err)
	assert.Equal(t, "Unknown", rec.OriginalLanguage)
	assert.Equal(t, rec.StandardizedText, rec.TranslatedText)
}

func TestProcessDocumentSkipsTranslationForOtherLanguages(t *testing.T) {
	tr := &fakeTranslator{out: "should not be used"}
	det := langdetect.New(fakeDetectService{det: langdetect.Detection{Language: "hi", Confidence: 0.95}}, nil)
	p := newTestPipeline(PipelineDeps{OCR: &fakeOCR{}, Detector: det, Translator: tr}, translatingOptions())

	rec, err := p.ProcessDocument(context.Background(), png("deed.png", "नमस्ते"))
	require.NoError(t, err)
	assert.Equal(t, "Unknown", rec.OriginalLanguage)
	assert.Equal(t, rec.StandardizedText, rec.TranslatedText)
	assert.Empty(t, tr.received)
}

func TestProcessDocumentWithTranslationDisabled(t *testing.T) {
	ex := &fakeExtractor{b: entities.EntityMap{entities.ClaimStatus: {"granted"}}}
	p := newTestPipeline(PipelineDeps{OCR: &fakeOCR{}, Extractor: ex}, PipelineOptions{MandatoryEntityKeys: entities.DefaultMandatory})

	rec, err := p.ProcessDocument(context.Background(), png("deed.png", "Claim granted"))
	require.NoError(t, err)
	assert.Zero(t, ex.aCalls)
	assert.Equal(t, 1, ex.bCalls)
	assert.Equal(t, []string{"Approved"}, rec.Entities[entities.ClaimStatus])
	assert.Contains(t, rec.Entities, entities.PattaNumber)
}

func TestProcessDocumentSurvivesExtractorFailures(t *testing.T) {
	ex := &fakeExtractor{
		aErr: errors.New("model overloaded"),
		b:    entities.EntityMap{entities.LandArea: {"2.5 acres"}},
	}
	det := langdetect.New(fakeDetectService{det: langdetect.Detection{Language: "en", Confidence: 0.9}}, nil)
	p := newTestPipeline(PipelineDeps{OCR: &fakeOCR{}, Detector: det, Extractor: ex}, translatingOptions())

	rec, err := p.ProcessDocument(context.Background(), png("deed.png", "Land area 2.5 acres"))
	require.NoError(t, err)
	assert.Equal(t, []string{"2.5 acres"}, rec.Entities[entities.LandArea])
	for _, k := range entities.DefaultMandatory {
		assert.Contains(t, rec.Entities, k)
	}
}

func TestNewDocumentPipelineIgnoresUnknownMandatoryKeys(t *testing.T) {
	p := NewDocumentPipeline(PipelineDeps{}, PipelineOptions{MandatoryEntityKeys: []string{"patta_number", "SHOE_SIZE"}}, nil)
	assert.Equal(t, []string{entities.PattaNumber}, p.mandatory)
	assert.Equal(t, 1, p.opts.Concurrency)
	assert.Equal(t, "en", p.opts.TargetLanguage)
}
