// Package classify decides the extraction strategy for each page from its
// embedded text layer.
package classify

import (
	"image"
	"strings"
	"unicode/utf8"

	"github.com/docforge/pdfmd/internal/config"
	"github.com/docforge/pdfmd/internal/domain"
)

// probeDPI keeps the blank-page render cheap; it only has to distinguish a
// uniform page from one carrying visible content.
const probeDPI = 36

// Decision is the classifier's verdict for one page. Text carries the
// already-extracted embedded layer so the extraction engine never extracts
// it twice.
type Decision struct {
	Class      domain.Classification
	Confidence float64
	Text       string
	Blank      bool
}

// Classifier applies configured glyph-density thresholds.
type Classifier struct {
	cfg config.ClassifierConfig
}

func New(cfg config.ClassifierConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify measures glyph density (runes per square point) against the
// configured thresholds. A density at the direct threshold classifies as
// direct; the boundary belongs to the direct side.
func (c *Classifier) Classify(page domain.Page) (Decision, error) {
	text, err := page.Text()
	if err != nil {
		return Decision{}, err
	}

	width, height := page.Bounds()
	area := width * height
	if area <= 0 {
		area = 612 * 792
	}

	density := float64(utf8.RuneCountInString(strings.TrimSpace(text))) / area

	switch {
	case density >= c.cfg.DirectThreshold:
		return Decision{
			Class:      domain.ClassifyDirect,
			Confidence: 1.0,
			Text:       text,
		}, nil

	case density <= c.cfg.OCRThreshold:
		if strings.TrimSpace(text) == "" && c.isBlank(page) {
			// A truly blank page gets direct with an empty body; sending
			// it to OCR would only manufacture noise.
			return Decision{
				Class:      domain.ClassifyDirect,
				Confidence: 1.0,
				Blank:      true,
			}, nil
		}
		return Decision{
			Class:      domain.ClassifyOCR,
			Confidence: 1.0 - density/c.cfg.DirectThreshold,
			Text:       text,
		}, nil

	default:
		return Decision{
			Class:      domain.ClassifyHybrid,
			Confidence: 0.5,
			Text:       text,
		}, nil
	}
}

// isBlank renders the page at probe resolution and reports whether every
// sampled pixel is close to the same shade.
func (c *Classifier) isBlank(page domain.Page) bool {
	img, err := page.Render(probeDPI)
	if err != nil {
		return false
	}
	return nearUniform(img)
}

func nearUniform(img image.Image) bool {
	bounds := img.Bounds()
	if bounds.Empty() {
		return true
	}

	const step = 4
	const tolerance = 8 << 8 // 8-bit shades scaled to 16-bit channel values

	r0, g0, b0, _ := img.At(bounds.Min.X, bounds.Min.Y).RGBA()
	for y := bounds.Min.Y; y < bounds.Max.Y; y += step {
		for x := bounds.Min.X; x < bounds.Max.X; x += step {
			r, g, b, _ := img.At(x, y).RGBA()
			if absDiff(r, r0) > tolerance || absDiff(g, g0) > tolerance || absDiff(b, b0) > tolerance {
				return false
			}
		}
	}
	return true
}

func absDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
