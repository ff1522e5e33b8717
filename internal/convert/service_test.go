package convert

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docforge/pdfmd/internal/assemble"
	"github.com/docforge/pdfmd/internal/cache"
	"github.com/docforge/pdfmd/internal/config"
	"github.com/docforge/pdfmd/internal/domain"
	"github.com/docforge/pdfmd/internal/extract"
	"github.com/docforge/pdfmd/internal/observability"
	"github.com/docforge/pdfmd/internal/refine"
)

type fakePage struct {
	text  string
	blank bool
}

func (p *fakePage) Text() (string, error) { return p.text, nil }

func (p *fakePage) Render(int) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	fill := color.Color(color.White)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			if !p.blank && (x+y)%2 == 0 {
				fill = color.Black
			} else {
				fill = color.White
			}
			img.Set(x, y, fill)
		}
	}
	return img, nil
}

func (p *fakePage) Bounds() (float64, float64) { return 100, 100 }

type fakeSource struct {
	pages []*fakePage
}

func (s *fakeSource) PageCount() int { return len(s.pages) }

func (s *fakeSource) Page(index int) (domain.Page, error) { return s.pages[index], nil }

func (s *fakeSource) Close() error { return nil }

type fakeOCR struct {
	byText map[string]domain.OCRResult
	err    error
}

func (f *fakeOCR) Recognize(_ context.Context, _ image.Image, _ string) (domain.OCRResult, error) {
	if f.err != nil {
		return domain.OCRResult{}, f.err
	}
	// One canned result regardless of the page image.
	for _, r := range f.byText {
		return r, nil
	}
	return domain.OCRResult{}, errors.New("no canned result")
}

type fakeCompletion struct {
	output string
	err    error
}

func (f *fakeCompletion) Name() string { return "fake" }

func (f *fakeCompletion) Complete(_ context.Context, _, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.output != "" {
		return f.output, nil
	}
	return text, nil
}

// 100x100pt pages: >=100 runes direct, <=10 runes ocr.
func testConfig() config.Config {
	cfg := config.Default()
	cfg.Classifier = config.ClassifierConfig{DirectThreshold: 0.01, OCRThreshold: 0.001}
	cfg.Pipeline.Workers = 2
	return cfg
}

func newTestService(cfg config.Config, ocr domain.OCREngine, provider domain.CompletionProvider, source domain.Source) *Service {
	logger := observability.Nop()
	store := cache.NewStore(cache.NewMemoryBackend(), 0, 0, logger)
	engine := extract.NewEngine(ocr, cfg.OCR, cfg.Tables, logger)

	var refiner *refine.Refiner
	if provider != nil {
		refiner = refine.NewRefiner(provider, cfg.Refine, logger)
	}

	svc := NewService(cfg, store, engine, refiner, logger)
	return svc.WithOpenSource(func([]byte) (domain.Source, error) { return source, nil })
}

func directText() string {
	return strings.Repeat("Plenty of embedded text on this page. ", 10)
}

func TestConvertCacheIdempotence(t *testing.T) {
	source := &fakeSource{pages: []*fakePage{{text: directText()}}}
	svc := newTestService(testConfig(), nil, nil, source)
	ctx := context.Background()

	first, err := svc.Convert(ctx, []byte("doc bytes"))
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := svc.Convert(ctx, []byte("doc bytes"))
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Markdown, second.Markdown)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
	assert.False(t, second.ReusedAt.IsZero())

	stats := svc.CacheStats(ctx)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestConvertPartialOCRFailure(t *testing.T) {
	// Three pages: 1 and 3 carry embedded text, 2 is a scan and OCR is down.
	source := &fakeSource{pages: []*fakePage{
		{text: directText()},
		{text: ""},
		{text: directText()},
	}}
	svc := newTestService(testConfig(), &fakeOCR{err: errors.New("tesseract unavailable")}, nil, source)

	result, err := svc.Convert(context.Background(), []byte("mixed doc"))
	require.NoError(t, err)
	require.Len(t, result.Pages, 3)

	assert.False(t, result.Pages[0].OCRFailed)
	assert.True(t, result.Pages[1].OCRFailed)
	assert.False(t, result.Pages[2].OCRFailed)

	assert.Contains(t, result.Markdown, "Plenty of embedded text")
	assert.Contains(t, result.Markdown, "<!-- page 1 -->")
	assert.Contains(t, result.Markdown, "<!-- page 3 -->")
}

func TestConvertOCRPageUsesEngine(t *testing.T) {
	ocr := &fakeOCR{byText: map[string]domain.OCRResult{
		"scan": {Text: "Recovered from the scan.", MeanConfidence: 0.91},
	}}
	source := &fakeSource{pages: []*fakePage{{text: ""}}}
	svc := newTestService(testConfig(), ocr, nil, source)

	result, err := svc.Convert(context.Background(), []byte("scan doc"))
	require.NoError(t, err)
	require.Len(t, result.Pages, 1)

	assert.Equal(t, domain.ClassifyOCR, result.Pages[0].Classification)
	assert.InDelta(t, 0.91, result.Pages[0].Confidence, 1e-9)
	assert.Contains(t, result.Markdown, "Recovered from the scan.")
}

func TestConvertRefinementFallback(t *testing.T) {
	cfg := testConfig()
	cfg.Refine.Enabled = true
	cfg.Refine.MaxRetries = 0

	provider := &fakeCompletion{err: domain.RefinementFailed("provider rejected input", nil)}
	source := &fakeSource{pages: []*fakePage{{text: directText()}}}
	svc := newTestService(cfg, nil, provider, source)

	result, err := svc.Convert(context.Background(), []byte("doc"))
	require.NoError(t, err)
	require.Len(t, result.Pages, 1)

	assert.False(t, result.Pages[0].RefinementApplied)
	assert.NotEmpty(t, result.Pages[0].RefinementError)
	// Unrefined text survives.
	assert.Contains(t, result.Markdown, "Plenty of embedded text")
}

func TestConvertRefinementApplied(t *testing.T) {
	cfg := testConfig()
	cfg.Refine.Enabled = true

	provider := &fakeCompletion{output: "Polished page content."}
	source := &fakeSource{pages: []*fakePage{{text: directText()}}}
	svc := newTestService(cfg, nil, provider, source)

	result, err := svc.Convert(context.Background(), []byte("doc"))
	require.NoError(t, err)
	require.Len(t, result.Pages, 1)

	assert.True(t, result.Pages[0].RefinementApplied)
	assert.Empty(t, result.Pages[0].RefinementError)
	assert.Contains(t, result.Markdown, "Polished page content.")
}

func TestConvertBlankPageEndToEnd(t *testing.T) {
	source := &fakeSource{pages: []*fakePage{{text: "", blank: true}}}
	svc := newTestService(testConfig(), &fakeOCR{err: errors.New("must not be called")}, nil, source)
	ctx := context.Background()

	result, err := svc.Convert(ctx, []byte("blank doc"))
	require.NoError(t, err)
	require.Len(t, result.Pages, 1)

	assert.Equal(t, domain.ClassifyDirect, result.Pages[0].Classification)
	assert.False(t, result.Pages[0].OCRFailed)
	assert.Equal(t, 0, result.Pages[0].TableCount)

	body := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(result.Markdown), "<!-- page 1 -->"))
	assert.Empty(t, body)
	assert.Equal(t, 1, svc.CacheStats(ctx).Entries)

	again, err := svc.Convert(ctx, []byte("blank doc"))
	require.NoError(t, err)
	assert.True(t, again.FromCache)
	assert.Equal(t, result.Markdown, again.Markdown)
	assert.Equal(t, int64(1), svc.CacheStats(ctx).Hits)
}

func TestConvertTablePreservedEndToEnd(t *testing.T) {
	text := strings.Join([]string{
		strings.Repeat("Intro text for density. ", 8),
		"Item     Qty",
		"Bolts    40",
		"Nuts     64",
	}, "\n")
	source := &fakeSource{pages: []*fakePage{{text: text}}}
	svc := newTestService(testConfig(), nil, nil, source)

	result, err := svc.Convert(context.Background(), []byte("table doc"))
	require.NoError(t, err)
	require.Len(t, result.Pages, 1)

	assert.Equal(t, 1, result.Pages[0].TableCount)
	assert.Contains(t, result.Markdown, "| Item | Qty |")
	assert.Contains(t, result.Markdown, "| --- | --- |")
	assert.Contains(t, result.Markdown, "| Bolts | 40 |")
}

func TestConvertEmptyInputFails(t *testing.T) {
	svc := newTestService(testConfig(), nil, nil, &fakeSource{})

	_, err := svc.Convert(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindInput))
}

func TestConvertCancelledBeforeStore(t *testing.T) {
	source := &fakeSource{pages: []*fakePage{{text: directText()}}}
	svc := newTestService(testConfig(), nil, nil, source)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Convert(ctx, []byte("doc"))
	require.Error(t, err)
	assert.Equal(t, 0, svc.CacheStats(context.Background()).Entries)
}

func TestRenderPageOrderStable(t *testing.T) {
	// Pages join strictly by ascending index regardless of completion order.
	pages := []assemble.PageOutput{
		{Record: domain.PageRecord{Index: 2}, Markdown: "C"},
		{Record: domain.PageRecord{Index: 0}, Markdown: "A"},
		{Record: domain.PageRecord{Index: 1}, Markdown: "B"},
	}
	result := assemble.Assemble("fp", pages)

	a := strings.Index(result.Markdown, "A")
	b := strings.Index(result.Markdown, "B")
	c := strings.Index(result.Markdown, "C")
	assert.True(t, a < b && b < c)
}
