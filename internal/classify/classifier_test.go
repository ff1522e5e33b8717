package classify

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docforge/pdfmd/internal/config"
	"github.com/docforge/pdfmd/internal/domain"
)

type fakePage struct {
	text   string
	width  float64
	height float64
	render image.Image
}

func (f *fakePage) Text() (string, error) { return f.text, nil }

func (f *fakePage) Render(int) (image.Image, error) {
	if f.render != nil {
		return f.render, nil
	}
	return uniformImage(color.White), nil
}

func (f *fakePage) Bounds() (float64, float64) { return f.width, f.height }

func uniformImage(c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func scannedImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if (x/4+y/4)%2 == 0 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	return img
}

// 100x100pt page (area 10000): direct at >=100 runes, ocr at <=10 runes.
var testCfg = config.ClassifierConfig{
	DirectThreshold: 0.01,
	OCRThreshold:    0.001,
}

func TestClassifyDirect(t *testing.T) {
	page := &fakePage{text: strings.Repeat("a", 500), width: 100, height: 100}

	decision, err := New(testCfg).Classify(page)
	require.NoError(t, err)
	assert.Equal(t, domain.ClassifyDirect, decision.Class)
	assert.Equal(t, 1.0, decision.Confidence)
	assert.Equal(t, page.text, decision.Text)
}

func TestClassifyBoundaryIsDirect(t *testing.T) {
	// Exactly at the direct threshold: 100 runes / 10000 pt².
	page := &fakePage{text: strings.Repeat("x", 100), width: 100, height: 100}

	decision, err := New(testCfg).Classify(page)
	require.NoError(t, err)
	assert.Equal(t, domain.ClassifyDirect, decision.Class)
}

func TestClassifyOCRForSparseTextOnScan(t *testing.T) {
	page := &fakePage{text: "stamp", width: 100, height: 100, render: scannedImage()}

	decision, err := New(testCfg).Classify(page)
	require.NoError(t, err)
	assert.Equal(t, domain.ClassifyOCR, decision.Class)
	assert.Greater(t, decision.Confidence, 0.0)
}

func TestClassifyHybridBetweenThresholds(t *testing.T) {
	page := &fakePage{text: strings.Repeat("m", 50), width: 100, height: 100}

	decision, err := New(testCfg).Classify(page)
	require.NoError(t, err)
	assert.Equal(t, domain.ClassifyHybrid, decision.Class)
}

func TestClassifyBlankPageIsDirect(t *testing.T) {
	page := &fakePage{text: "   \n ", width: 100, height: 100, render: uniformImage(color.White)}

	decision, err := New(testCfg).Classify(page)
	require.NoError(t, err)
	assert.Equal(t, domain.ClassifyDirect, decision.Class)
	assert.True(t, decision.Blank)
	assert.Empty(t, decision.Text)
}

func TestClassifyEmptyTextNonBlankRenderIsOCR(t *testing.T) {
	page := &fakePage{text: "", width: 100, height: 100, render: scannedImage()}

	decision, err := New(testCfg).Classify(page)
	require.NoError(t, err)
	assert.Equal(t, domain.ClassifyOCR, decision.Class)
}
