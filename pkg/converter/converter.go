// Package converter is the public entry point for PDF to Markdown
// conversion. It wires the internal pipeline from a Config and exposes a
// small client surface.
package converter

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"github.com/docforge/pdfmd/internal/cache"
	"github.com/docforge/pdfmd/internal/config"
	"github.com/docforge/pdfmd/internal/convert"
	"github.com/docforge/pdfmd/internal/domain"
	"github.com/docforge/pdfmd/internal/extract"
	"github.com/docforge/pdfmd/internal/observability"
	"github.com/docforge/pdfmd/internal/ocr"
	"github.com/docforge/pdfmd/internal/refine"
)

// Config re-exports the pipeline configuration.
type Config = config.Config

// Result re-exports the conversion output.
type Result = domain.ConversionResult

// CacheStats re-exports the cache counters.
type CacheStats = domain.CacheStats

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config { return config.Default() }

// LoadConfig reads a YAML configuration file with environment overrides.
func LoadConfig(path string) (Config, error) { return config.Load(path) }

// Client converts documents. Safe for concurrent use; Close releases the
// cache backend.
type Client struct {
	service *convert.Service
}

// Option adjusts client construction.
type Option func(*options)

type options struct {
	logger *zerolog.Logger
}

// WithLogger replaces the default logger built from cfg.Log.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = &logger }
}

// New builds a client from cfg. A missing tesseract installation is not
// fatal: pages needing OCR then degrade and are flagged in provenance.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: "pdfmd",
	})
	if o.logger != nil {
		logger = *o.logger
	}

	backend, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}
	store := cache.NewStore(backend, cfg.Cache.MaxEntries, cfg.Cache.MaxAge, logger)

	var engineOCR domain.OCREngine
	if tess, err := ocr.NewTesseract(); err != nil {
		logger.Warn().Err(err).Msg("OCR unavailable, image pages will be degraded")
	} else {
		engineOCR = tess
	}
	engine := extract.NewEngine(engineOCR, cfg.OCR, cfg.Tables, logger)

	var refiner *refine.Refiner
	if cfg.Refine.Enabled {
		apiKey := os.Getenv(cfg.Refine.APIKeyEnv)
		if apiKey == "" {
			return nil, domain.ConfigError("refinement enabled but "+cfg.Refine.APIKeyEnv+" is not set", nil)
		}
		provider, err := refine.NewProvider(cfg.Refine, apiKey)
		if err != nil {
			return nil, err
		}
		refiner = refine.NewRefiner(provider, cfg.Refine, logger)
	}

	return &Client{
		service: convert.NewService(cfg, store, engine, refiner, logger),
	}, nil
}

func newBackend(cfg Config) (cache.Backend, error) {
	switch cfg.Cache.Backend {
	case "sqlite":
		return cache.NewSQLiteBackend(cfg.Cache.SQLitePath)
	case "redis":
		return cache.NewRedisBackend(context.Background(), cfg.Cache.RedisAddr, cfg.Cache.RedisDB, cfg.Cache.MaxAge)
	default:
		return cache.NewMemoryBackend(), nil
	}
}

// Convert converts the PDF file at path.
func (c *Client) Convert(ctx context.Context, path string) (*Result, error) {
	return c.service.ConvertFile(ctx, path)
}

// ConvertBytes converts an in-memory PDF.
func (c *Client) ConvertBytes(ctx context.Context, data []byte) (*Result, error) {
	return c.service.Convert(ctx, data)
}

// CacheStats reports hit/miss counters and the entry count.
func (c *Client) CacheStats(ctx context.Context) CacheStats {
	return c.service.CacheStats(ctx)
}

// ClearCache drops every cached conversion.
func (c *Client) ClearCache(ctx context.Context) error {
	return c.service.ClearCache(ctx)
}

// Close releases held resources.
func (c *Client) Close() error {
	return c.service.Close()
}
