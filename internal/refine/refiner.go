// Package refine runs the optional LLM polish pass over extracted page
// text.
package refine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/docforge/pdfmd/internal/config"
	"github.com/docforge/pdfmd/internal/domain"
)

const initialBackoff = 500 * time.Millisecond

const systemPromptTemplate = `You are a document restoration assistant. The user sends text extracted from a PDF page, possibly via OCR. Fix OCR artifacts, broken words and punctuation, and restore natural paragraph flow. Keep all Markdown structure (headings, lists, tables) intact. Do not add, remove, summarize or translate content. The text is written in %s. Reply with the corrected text only.`

// Refiner drives a completion provider with retry, chunking and language
// hinting. A nil provider (refinement disabled) makes Refine the identity.
type Refiner struct {
	provider domain.CompletionProvider
	cfg      config.RefineConfig
	logger   zerolog.Logger
}

func NewRefiner(provider domain.CompletionProvider, cfg config.RefineConfig, logger zerolog.Logger) *Refiner {
	return &Refiner{provider: provider, cfg: cfg, logger: logger}
}

// NewProvider selects the configured provider implementation. The closed
// set is validated by config.Validate; anything else here is a programming
// error.
func NewProvider(cfg config.RefineConfig, apiKey string) (domain.CompletionProvider, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(apiKey, cfg.Model, cfg.Temperature), nil
	case "gemini":
		return NewGeminiProvider(apiKey, cfg.Model, cfg.Temperature), nil
	default:
		return nil, domain.ConfigError(fmt.Sprintf("unknown refinement provider %q", cfg.Provider), nil)
	}
}

// Refine polishes text, chunking long pages on paragraph boundaries. A
// permanent provider failure or an exhausted retry budget returns a
// RefinementFailed error; the caller keeps the unrefined text.
func (r *Refiner) Refine(ctx context.Context, text, langHint string) (string, error) {
	if r.provider == nil || !r.cfg.Enabled {
		return text, nil
	}
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	if langHint == "" {
		langHint = DetectLanguage(text)
	}
	prompt := fmt.Sprintf(systemPromptTemplate, languageName(langHint))

	chunks := chunkParagraphs(text, r.cfg.ChunkSize)
	refined := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		out, err := r.completeWithRetry(ctx, prompt, chunk)
		if err != nil {
			r.logger.Warn().Err(err).Int("chunk", i).Msg("refinement chunk failed")
			return text, err
		}
		refined = append(refined, strings.TrimSpace(out))
	}
	return strings.Join(refined, "\n\n"), nil
}

func (r *Refiner) completeWithRetry(ctx context.Context, prompt, chunk string) (string, error) {
	backoff := retry.WithJitter(initialBackoff/2,
		retry.WithMaxRetries(uint64(r.cfg.MaxRetries),
			retry.NewExponential(initialBackoff)))

	var result string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		callCtx := ctx
		if r.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
			defer cancel()
		}

		out, err := r.provider.Complete(callCtx, prompt, chunk)
		if err != nil {
			if domain.IsKind(err, domain.KindTransient) {
				return retry.RetryableError(err)
			}
			return err
		}
		result = out
		return nil
	})
	if err != nil {
		if domain.IsKind(err, domain.KindTransient) {
			// Retry budget exhausted; degrade to a permanent failure.
			return "", domain.RefinementFailed("provider retries exhausted", err)
		}
		return "", err
	}
	return result, nil
}

// chunkParagraphs groups paragraphs into chunks of at most maxLen bytes.
// A single oversized paragraph becomes its own chunk rather than being
// split mid-sentence.
func chunkParagraphs(text string, maxLen int) []string {
	if maxLen <= 0 || len(text) <= maxLen {
		return []string{text}
	}

	paragraphs := strings.Split(text, "\n\n")
	var chunks []string
	var current strings.Builder

	for _, para := range paragraphs {
		if current.Len() > 0 && current.Len()+len(para)+2 > maxLen {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func languageName(code string) string {
	switch code {
	case "spa", "es":
		return "Spanish"
	default:
		return "English"
	}
}
