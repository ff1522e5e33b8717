package domain

import (
	"context"
	"image"
)

// Source is the extraction collaborator: an open PDF document exposing pages
// for direct text extraction and rasterization.
type Source interface {
	// PageCount returns the number of pages in the document.
	PageCount() int

	// Page returns the page at the given zero-based index.
	Page(index int) (Page, error)

	// Close releases the underlying document resources.
	Close() error
}

// Page is a single page handle within a Source.
type Page interface {
	// Text extracts the embedded text layer, empty when none exists.
	Text() (string, error)

	// Render rasterizes the page at the given resolution.
	Render(dpi int) (image.Image, error)

	// Bounds returns the page width and height in points.
	Bounds() (width, height float64)
}

// OCRResult is the output of the OCR collaborator for one image.
type OCRResult struct {
	Text  string
	Lines []OCRLine

	// MeanConfidence is the word-confidence average in [0,1].
	MeanConfidence float64
}

// OCRLine is one recognized line with its local confidence.
type OCRLine struct {
	Text       string
	Confidence float64
}

// OCREngine is the OCR collaborator contract.
type OCREngine interface {
	Recognize(ctx context.Context, img image.Image, language string) (OCRResult, error)
}

// CompletionProvider is the refinement-provider collaborator: a text
// completion service used to polish extracted text. Implementations signal
// retryable failures with TransientProviderError and everything else with
// RefinementFailed.
type CompletionProvider interface {
	Name() string
	Complete(ctx context.Context, systemPrompt, text string) (string, error)
}
