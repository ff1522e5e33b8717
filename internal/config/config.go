// Package config loads and validates pipeline configuration. A Config is
// treated as immutable after Load: components receive it by value or keep the
// subset they need.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/docforge/pdfmd/internal/domain"
)

// OCRConfig controls rasterization and the Tesseract pass.
type OCRConfig struct {
	// Language is a Tesseract language code, e.g. "eng" or "spa".
	Language string `yaml:"language"`
	// DPI used when rendering a page for OCR.
	DPI int `yaml:"dpi"`
}

// ClassifierConfig holds the glyph-density thresholds, in runes per square
// point. A page at or above DirectThreshold is extracted directly; at or
// below OCRThreshold it is OCR'd; between the two it is treated as hybrid.
type ClassifierConfig struct {
	DirectThreshold float64 `yaml:"direct_threshold"`
	OCRThreshold    float64 `yaml:"ocr_threshold"`
}

// TableConfig controls table detection.
type TableConfig struct {
	Enabled bool `yaml:"enabled"`
	MinRows int  `yaml:"min_rows"`
	MinCols int  `yaml:"min_cols"`
}

// RefineConfig controls the optional LLM refinement pass. The API key is
// read from APIKeyEnv at composition time and never stored in the Config,
// so it cannot leak into the fingerprint.
type RefineConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	MaxRetries  int           `yaml:"max_retries"`
	Timeout     time.Duration `yaml:"timeout"`
	ChunkSize   int           `yaml:"chunk_size"`
	Temperature float64       `yaml:"temperature"`
}

// CacheConfig selects and bounds the cache backend.
type CacheConfig struct {
	// Backend is one of "memory", "sqlite", "redis".
	Backend    string        `yaml:"backend"`
	SQLitePath string        `yaml:"sqlite_path"`
	RedisAddr  string        `yaml:"redis_addr"`
	RedisDB    int           `yaml:"redis_db"`
	MaxEntries int           `yaml:"max_entries"`
	MaxAge     time.Duration `yaml:"max_age"`
}

// PipelineConfig bounds concurrency.
type PipelineConfig struct {
	// Workers caps concurrent page extraction. Zero means GOMAXPROCS.
	Workers int `yaml:"workers"`
	// PageTimeout bounds a single page's refinement call.
	PageTimeout time.Duration `yaml:"page_timeout"`
}

// LogConfig mirrors observability.LogConfig for file-based setup.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full pipeline configuration.
type Config struct {
	OCR        OCRConfig        `yaml:"ocr"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Tables     TableConfig      `yaml:"tables"`
	Refine     RefineConfig     `yaml:"refine"`
	Cache      CacheConfig      `yaml:"cache"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Log        LogConfig        `yaml:"log"`
}

// Default returns the configuration used when no file is given. Threshold
// values follow the tuning of the original deployment.
func Default() Config {
	return Config{
		OCR: OCRConfig{
			Language: "eng",
			DPI:      300,
		},
		Classifier: ClassifierConfig{
			DirectThreshold: 0.0015,
			OCRThreshold:    0.0002,
		},
		Tables: TableConfig{
			Enabled: true,
			MinRows: 2,
			MinCols: 2,
		},
		Refine: RefineConfig{
			Enabled:     false,
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			APIKeyEnv:   "PDFMD_API_KEY",
			MaxRetries:  3,
			Timeout:     60 * time.Second,
			ChunkSize:   4000,
			Temperature: 0.1,
		},
		Cache: CacheConfig{
			Backend:    "memory",
			SQLitePath: "pdfmd-cache.db",
			RedisAddr:  "localhost:6379",
			MaxEntries: 1000,
			MaxAge:     30 * 24 * time.Hour,
		},
		Pipeline: PipelineConfig{
			Workers:     4,
			PageTimeout: 90 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads a YAML config file over the defaults, then applies environment
// overrides. path may be empty.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, domain.ConfigError(fmt.Sprintf("reading config %s", path), err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, domain.ConfigError(fmt.Sprintf("parsing config %s", path), err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PDFMD_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("PDFMD_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("PDFMD_REDIS_ADDR"); v != "" {
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("PDFMD_OCR_LANGUAGE"); v != "" {
		cfg.OCR.Language = v
	}
	if v := os.Getenv("PDFMD_REFINE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Refine.Enabled = b
		}
	}
	if v := os.Getenv("PDFMD_REFINE_PROVIDER"); v != "" {
		cfg.Refine.Provider = v
	}
	if v := os.Getenv("PDFMD_REFINE_MODEL"); v != "" {
		cfg.Refine.Model = v
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.Classifier.DirectThreshold <= c.Classifier.OCRThreshold {
		return domain.ConfigError(
			fmt.Sprintf("classifier direct_threshold (%g) must exceed ocr_threshold (%g)",
				c.Classifier.DirectThreshold, c.Classifier.OCRThreshold), nil)
	}
	if c.OCR.DPI <= 0 {
		return domain.ConfigError("ocr dpi must be positive", nil)
	}
	switch c.Cache.Backend {
	case "memory", "sqlite", "redis":
	default:
		return domain.ConfigError(fmt.Sprintf("unknown cache backend %q", c.Cache.Backend), nil)
	}
	if c.Refine.Enabled {
		switch c.Refine.Provider {
		case "openai", "gemini":
		default:
			return domain.ConfigError(fmt.Sprintf("unknown refinement provider %q", c.Refine.Provider), nil)
		}
	}
	if c.Pipeline.Workers < 0 {
		return domain.ConfigError("pipeline workers must not be negative", nil)
	}
	return nil
}

// FingerprintSubset is the part of the configuration that changes extraction
// output and therefore participates in the content fingerprint. Field order
// is fixed so the canonical YAML is stable across releases.
type FingerprintSubset struct {
	OCRLanguage     string  `yaml:"ocr_language"`
	OCRDPI          int     `yaml:"ocr_dpi"`
	DirectThreshold float64 `yaml:"direct_threshold"`
	OCRThreshold    float64 `yaml:"ocr_threshold"`
	TablesEnabled   bool    `yaml:"tables_enabled"`
	RefineEnabled   bool    `yaml:"refine_enabled"`
	RefineProvider  string  `yaml:"refine_provider"`
	RefineModel     string  `yaml:"refine_model"`
}

// Fingerprintable extracts the fingerprint-relevant subset. Credentials,
// cache settings, and concurrency limits are deliberately excluded.
func (c Config) Fingerprintable() FingerprintSubset {
	return FingerprintSubset{
		OCRLanguage:     c.OCR.Language,
		OCRDPI:          c.OCR.DPI,
		DirectThreshold: c.Classifier.DirectThreshold,
		OCRThreshold:    c.Classifier.OCRThreshold,
		TablesEnabled:   c.Tables.Enabled,
		RefineEnabled:   c.Refine.Enabled,
		RefineProvider:  c.Refine.Provider,
		RefineModel:     c.Refine.Model,
	}
}
