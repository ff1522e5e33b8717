// Package ocr wraps Tesseract (via gosseract) behind the pipeline's OCR
// engine contract.
package ocr

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/docforge/pdfmd/internal/domain"
)

// Tesseract recognizes page images with the system tesseract installation.
// A fresh gosseract client is created per call; clients are not safe for
// concurrent use, fresh ones let page workers OCR in parallel.
type Tesseract struct {
	clientFactory func() *gosseract.Client
}

// NewTesseract constructs the engine. It fails fast when no tesseract
// installation is usable so callers can degrade to text-only extraction up
// front instead of per page.
func NewTesseract() (*Tesseract, error) {
	probe := gosseract.NewClient()
	defer probe.Close()
	if _, err := probe.GetAvailableLanguages(); err != nil {
		return nil, domain.ExtractionFailure("tesseract is not available", err)
	}
	return &Tesseract{clientFactory: gosseract.NewClient}, nil
}

// Recognize implements domain.OCREngine.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, language string) (domain.OCRResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.OCRResult{}, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return domain.OCRResult{}, domain.ExtractionFailure("encoding page image for OCR", err)
	}

	c := t.clientFactory()
	defer c.Close()

	if language != "" {
		if err := c.SetLanguage(language); err != nil {
			return domain.OCRResult{}, domain.ExtractionFailure("setting OCR language", err)
		}
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return domain.OCRResult{}, domain.ExtractionFailure("loading page image into OCR", err)
	}

	text, err := c.Text()
	if err != nil {
		return domain.OCRResult{}, domain.ExtractionFailure("recognizing page text", err)
	}

	result := domain.OCRResult{Text: strings.TrimSpace(text)}
	result.Lines = extractLines(c)
	result.MeanConfidence = meanWordConfidence(c)
	return result, nil
}

func extractLines(c *gosseract.Client) []domain.OCRLine {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil || len(boxes) == 0 {
		return nil
	}
	lines := make([]domain.OCRLine, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		lines = append(lines, domain.OCRLine{
			Text:       text,
			Confidence: b.Confidence / 100.0,
		})
	}
	return lines
}

func meanWordConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes))
}
