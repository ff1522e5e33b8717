package domain

import (
	"time"
)

// Fingerprint is the deterministic cache key for a document + processing
// configuration pair. It is a hex-encoded BLAKE2b-256 digest and is immutable
// once computed: identical file bytes and identical configuration always
// produce the same fingerprint, and any configuration change produces a
// different one.
type Fingerprint string

// String returns the hex digest.
func (f Fingerprint) String() string { return string(f) }

// Classification is the per-page extraction strategy decision.
type Classification string

const (
	// ClassifyDirect means the embedded text layer is good enough on its own.
	ClassifyDirect Classification = "direct"
	// ClassifyOCR means the page is effectively an image and must be OCR'd.
	ClassifyOCR Classification = "ocr"
	// ClassifyHybrid means both sources are extracted and reconciled per line.
	ClassifyHybrid Classification = "hybrid"
)

// BoundingBox is a rectangular region in page coordinates (points, origin at
// the upper-left corner).
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// TableRegion is a detected tabular area within a page. Cells form a
// rectangular grid: ragged source rows are padded with empty cells before the
// region leaves the extraction engine. A TableRegion is owned by exactly one
// PageRecord.
type TableRegion struct {
	PageIndex int         `json:"page_index"`
	Bounds    BoundingBox `json:"bounds"`
	Cells     [][]string  `json:"cells"`

	// StartLine and EndLine locate the region inside the page's text lines
	// (half-open range) so the assembler can interleave the rendered table at
	// its original reading-order position.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

// Columns returns the widest row in the region.
func (t TableRegion) Columns() int {
	max := 0
	for _, row := range t.Cells {
		if len(row) > max {
			max = len(row)
		}
	}
	return max
}

// PageRecord holds everything extracted from a single page. Records are
// created by the extraction engine and read-only afterward.
type PageRecord struct {
	Index          int            `json:"index"`
	Classification Classification `json:"classification"`
	Confidence     float64        `json:"confidence"`
	Text           string         `json:"text"`
	Tables         []TableRegion  `json:"tables,omitempty"`

	// OCRFailed marks a page whose OCR collaborator was unavailable or
	// returned nothing usable. The page keeps an empty text body and the
	// document still completes.
	OCRFailed bool `json:"ocr_failed,omitempty"`
}

// PageProvenance records how a page's text was obtained and which optional
// stages succeeded, so an operator can audit exactly which pages degraded.
type PageProvenance struct {
	Index             int            `json:"index"`
	Classification    Classification `json:"classification"`
	Confidence        float64        `json:"confidence"`
	OCRFailed         bool           `json:"ocr_failed,omitempty"`
	RefinementApplied bool           `json:"refinement_applied"`
	RefinementError   string         `json:"refinement_error,omitempty"`
	TableCount        int            `json:"table_count"`
}

// ConversionResult is the final output of a document conversion. Immutable
// once written: a new fingerprint produces a new record, never a mutation.
type ConversionResult struct {
	Fingerprint Fingerprint      `json:"fingerprint"`
	Markdown    string           `json:"markdown"`
	Pages       []PageProvenance `json:"pages"`
	CreatedAt   time.Time        `json:"created_at"`

	// FromCache and ReusedAt are set on the copy handed back for a cache hit;
	// the stored record itself is never modified.
	FromCache bool      `json:"from_cache,omitempty"`
	ReusedAt  time.Time `json:"reused_at,omitempty"`
}

// CacheEntry wraps a stored ConversionResult with access metadata.
type CacheEntry struct {
	Result    ConversionResult `json:"result"`
	CreatedAt time.Time        `json:"created_at"`
	LastHit   time.Time        `json:"last_hit,omitempty"`
	HitCount  int64            `json:"hit_count"`
}

// CacheStats reports cache effectiveness for the current process.
type CacheStats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}
