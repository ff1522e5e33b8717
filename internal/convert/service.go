// Package convert orchestrates the full document conversion pipeline:
// fingerprint, cache lookup, per-page classification and extraction,
// refinement, assembly, and cache write-through.
package convert

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/docforge/pdfmd/internal/assemble"
	"github.com/docforge/pdfmd/internal/cache"
	"github.com/docforge/pdfmd/internal/classify"
	"github.com/docforge/pdfmd/internal/config"
	"github.com/docforge/pdfmd/internal/domain"
	"github.com/docforge/pdfmd/internal/extract"
	"github.com/docforge/pdfmd/internal/fingerprint"
	"github.com/docforge/pdfmd/internal/pdf"
	"github.com/docforge/pdfmd/internal/refine"
)

// OpenSource parses raw document bytes into a page source. Injectable so
// tests can run the pipeline without MuPDF.
type OpenSource func(data []byte) (domain.Source, error)

// Service runs conversions. Construct with NewService; the zero value is
// not usable.
type Service struct {
	cfg        config.Config
	store      *cache.Store
	classifier *classify.Classifier
	engine     *extract.Engine
	refiner    *refine.Refiner
	open       OpenSource
	logger     zerolog.Logger
}

// NewService wires the pipeline components together.
func NewService(
	cfg config.Config,
	store *cache.Store,
	engine *extract.Engine,
	refiner *refine.Refiner,
	logger zerolog.Logger,
) *Service {
	return &Service{
		cfg:        cfg,
		store:      store,
		classifier: classify.New(cfg.Classifier),
		engine:     engine,
		refiner:    refiner,
		open:       func(data []byte) (domain.Source, error) { return pdf.Open(data) },
		logger:     logger,
	}
}

// WithOpenSource overrides how document bytes become a page source.
func (s *Service) WithOpenSource(open OpenSource) *Service {
	s.open = open
	return s
}

// ConvertFile validates and reads the file at path, then converts it.
func (s *Service) ConvertFile(ctx context.Context, path string) (*domain.ConversionResult, error) {
	if err := pdf.ValidatePath(path, s.logger); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.IOError("reading "+path, err)
	}
	return s.Convert(ctx, data)
}

// Convert runs the pipeline over raw PDF bytes. A cache hit short-circuits
// before the document is even opened. Per-page extraction and refinement
// failures degrade the affected page and are recorded in provenance; only
// input errors, cache consistency violations, and cancellation fail the
// conversion.
func (s *Service) Convert(ctx context.Context, data []byte) (*domain.ConversionResult, error) {
	logger := s.logger.With().Str("trace_id", uuid.NewString()).Logger()
	started := time.Now()

	fp, err := fingerprint.New(data, s.cfg)
	if err != nil {
		return nil, err
	}
	logger = logger.With().Str("fingerprint", fp.String()).Logger()

	if result, ok, err := s.store.Lookup(ctx, fp); err != nil {
		return nil, err
	} else if ok {
		logger.Info().Msg("cache hit, conversion skipped")
		return result, nil
	}

	source, err := s.open(data)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	records, err := s.extractPages(ctx, source, logger)
	if err != nil {
		return nil, err
	}

	pages := s.refinePages(ctx, records, logger)
	if err := ctx.Err(); err != nil {
		// Nothing partial reaches the cache.
		return nil, err
	}

	result := assemble.Assemble(fp, pages)
	if err := s.store.Put(ctx, fp, *result); err != nil {
		return nil, err
	}

	logger.Info().
		Int("pages", len(pages)).
		Dur("elapsed", time.Since(started)).
		Msg("conversion complete")
	return result, nil
}

// extractPages classifies and extracts every page concurrently, joining the
// records back in page order.
func (s *Service) extractPages(ctx context.Context, source domain.Source, logger zerolog.Logger) ([]domain.PageRecord, error) {
	count := source.PageCount()
	records := make([]domain.PageRecord, count)

	g, gctx := errgroup.WithContext(ctx)
	if s.cfg.Pipeline.Workers > 0 {
		g.SetLimit(s.cfg.Pipeline.Workers)
	}

	for i := 0; i < count; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			page, err := source.Page(i)
			if err != nil {
				return err
			}

			decision, err := s.classifier.Classify(page)
			if err != nil {
				// The embedded layer is unreadable; the page degrades the
				// same way an OCR failure does.
				logger.Warn().Err(err).Int("page", i).Msg("classification failed, page degraded")
				records[i] = domain.PageRecord{
					Index:          i,
					Classification: domain.ClassifyOCR,
					OCRFailed:      true,
				}
				return nil
			}

			logger.Debug().
				Int("page", i).
				Str("class", string(decision.Class)).
				Float64("confidence", decision.Confidence).
				Msg("page classified")

			records[i] = s.engine.Extract(gctx, page, i, decision)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// refinePages renders each record to Markdown and runs the refinement pass.
// Every page gets its own timeout; a slow or failing page never cancels its
// siblings, it just falls back to unrefined text.
func (s *Service) refinePages(ctx context.Context, records []domain.PageRecord, logger zerolog.Logger) []assemble.PageOutput {
	pages := make([]assemble.PageOutput, len(records))

	g := new(errgroup.Group)
	if s.cfg.Pipeline.Workers > 0 {
		g.SetLimit(s.cfg.Pipeline.Workers)
	}

	for i, record := range records {
		g.Go(func() error {
			markdown := assemble.RenderPage(record)
			out := assemble.PageOutput{Record: record, Markdown: markdown}

			if s.refiner != nil && markdown != "" {
				pageCtx := ctx
				if s.cfg.Pipeline.PageTimeout > 0 {
					var cancel context.CancelFunc
					pageCtx, cancel = context.WithTimeout(ctx, s.cfg.Pipeline.PageTimeout)
					defer cancel()
				}

				refined, err := s.refiner.Refine(pageCtx, markdown, "")
				if err != nil {
					logger.Warn().Err(err).Int("page", record.Index).Msg("refinement failed, keeping unrefined text")
					out.RefinementError = err.Error()
				} else if refined != markdown {
					out.Markdown = refined
					out.RefinementApplied = true
				} else if s.cfg.Refine.Enabled {
					out.RefinementApplied = true
				}
			}

			pages[i] = out
			return nil
		})
	}
	g.Wait()

	return pages
}

// CacheStats reports the store's counters.
func (s *Service) CacheStats(ctx context.Context) domain.CacheStats {
	return s.store.Stats(ctx)
}

// ClearCache drops all stored conversions.
func (s *Service) ClearCache(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// Close releases the cache backend.
func (s *Service) Close() error {
	return s.store.Close()
}
