package refine

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docforge/pdfmd/internal/config"
	"github.com/docforge/pdfmd/internal/domain"
	"github.com/docforge/pdfmd/internal/observability"
)

type fakeProvider struct {
	calls     atomic.Int64
	failUntil int64
	err       error
	transform func(string) string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(_ context.Context, _, text string) (string, error) {
	n := f.calls.Add(1)
	if f.err != nil && n <= f.failUntil {
		return "", f.err
	}
	if f.transform != nil {
		return f.transform(text), nil
	}
	return text, nil
}

func refineCfg(retries int) config.RefineConfig {
	return config.RefineConfig{
		Enabled:    true,
		Provider:   "openai",
		Model:      "test-model",
		MaxRetries: retries,
		ChunkSize:  4000,
	}
}

func TestRefineDisabledIsIdentity(t *testing.T) {
	r := NewRefiner(nil, config.RefineConfig{Enabled: false}, observability.Nop())

	out, err := r.Refine(context.Background(), "raw text", "")
	require.NoError(t, err)
	assert.Equal(t, "raw text", out)
}

func TestRefineAppliesProviderOutput(t *testing.T) {
	provider := &fakeProvider{transform: strings.ToUpper}
	r := NewRefiner(provider, refineCfg(2), observability.Nop())

	out, err := r.Refine(context.Background(), "polish me.", "eng")
	require.NoError(t, err)
	assert.Equal(t, "POLISH ME.", out)
}

func TestRefineRetriesTransientThenSucceeds(t *testing.T) {
	provider := &fakeProvider{
		failUntil: 2,
		err:       domain.TransientProviderError("rate limited", nil),
		transform: strings.ToUpper,
	}
	r := NewRefiner(provider, refineCfg(3), observability.Nop())

	out, err := r.Refine(context.Background(), "eventually works.", "eng")
	require.NoError(t, err)
	assert.Equal(t, "EVENTUALLY WORKS.", out)
	assert.Equal(t, int64(3), provider.calls.Load())
}

func TestRefineExhaustedRetriesDegrade(t *testing.T) {
	provider := &fakeProvider{
		failUntil: 100,
		err:       domain.TransientProviderError("rate limited", nil),
	}
	r := NewRefiner(provider, refineCfg(2), observability.Nop())

	out, err := r.Refine(context.Background(), "never works.", "eng")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindRefinement))
	// Caller keeps the unrefined text.
	assert.Equal(t, "never works.", out)
	assert.Equal(t, int64(3), provider.calls.Load())
}

func TestRefinePermanentErrorNoRetry(t *testing.T) {
	provider := &fakeProvider{
		failUntil: 100,
		err:       domain.RefinementFailed("content rejected", nil),
	}
	r := NewRefiner(provider, refineCfg(5), observability.Nop())

	_, err := r.Refine(context.Background(), "rejected text.", "eng")
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindRefinement))
	assert.Equal(t, int64(1), provider.calls.Load())
}

func TestRefineChunksLongText(t *testing.T) {
	provider := &fakeProvider{}
	cfg := refineCfg(1)
	cfg.ChunkSize = 50
	r := NewRefiner(provider, cfg, observability.Nop())

	paragraphs := []string{
		strings.Repeat("a", 40),
		strings.Repeat("b", 40),
		strings.Repeat("c", 40),
	}
	text := strings.Join(paragraphs, "\n\n")

	out, err := r.Refine(context.Background(), text, "eng")
	require.NoError(t, err)
	assert.Equal(t, text, out)
	assert.Equal(t, int64(3), provider.calls.Load())
}

func TestRefineEmptyTextSkipsProvider(t *testing.T) {
	provider := &fakeProvider{}
	r := NewRefiner(provider, refineCfg(1), observability.Nop())

	out, err := r.Refine(context.Background(), "   ", "eng")
	require.NoError(t, err)
	assert.Equal(t, "   ", out)
	assert.Equal(t, int64(0), provider.calls.Load())
}

func TestChunkParagraphsKeepsOversizedParagraphWhole(t *testing.T) {
	big := strings.Repeat("x", 120)
	chunks := chunkParagraphs("small\n\n"+big, 50)
	require.Len(t, chunks, 2)
	assert.Equal(t, "small", chunks[0])
	assert.Equal(t, big, chunks[1])
}

func TestDetectLanguage(t *testing.T) {
	spa := "El contrato establece que las partes son responsables por los daños."
	eng := "The contract states that the parties are responsible for the damages."

	assert.Equal(t, "spa", DetectLanguage(spa))
	assert.Equal(t, "eng", DetectLanguage(eng))
	assert.Equal(t, "spa", DetectLanguage("¡Número de página!"))
}
