// Package pdf adapts MuPDF (via go-fitz) to the pipeline's page source
// contract.
package pdf

import (
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"

	"github.com/docforge/pdfmd/internal/domain"
)

// Document wraps a go-fitz document. fitz handles are not safe for
// concurrent use, so all page operations serialize on a single mutex; the
// pipeline's page workers contend here and run the expensive OCR stage
// outside the lock.
type Document struct {
	mu  sync.Mutex
	doc *fitz.Document
}

// Open parses the document from raw bytes.
func Open(data []byte) (*Document, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, domain.InputError("opening PDF document", err)
	}
	if doc.NumPage() == 0 {
		doc.Close()
		return nil, domain.InputError("PDF has no pages", nil)
	}
	return &Document{doc: doc}, nil
}

// PageCount implements domain.Source.
func (d *Document) PageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.NumPage()
}

// Page implements domain.Source.
func (d *Document) Page(index int) (domain.Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 0 || index >= d.doc.NumPage() {
		return nil, domain.InputError(fmt.Sprintf("page index %d out of range", index), nil)
	}
	return &page{parent: d, index: index}, nil
}

// Close implements domain.Source.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Close()
}

type page struct {
	parent *Document
	index  int
}

func (p *page) Text() (string, error) {
	p.parent.mu.Lock()
	defer p.parent.mu.Unlock()
	text, err := p.parent.doc.Text(p.index)
	if err != nil {
		return "", domain.ExtractionFailure(fmt.Sprintf("extracting text from page %d", p.index), err)
	}
	return text, nil
}

func (p *page) Render(dpi int) (image.Image, error) {
	p.parent.mu.Lock()
	defer p.parent.mu.Unlock()
	img, err := p.parent.doc.ImageDPI(p.index, float64(dpi))
	if err != nil {
		return nil, domain.ExtractionFailure(fmt.Sprintf("rendering page %d at %d dpi", p.index, dpi), err)
	}
	return img, nil
}

func (p *page) Bounds() (width, height float64) {
	p.parent.mu.Lock()
	defer p.parent.mu.Unlock()
	bound, err := p.parent.doc.Bound(p.index)
	if err != nil {
		// Letter size keeps density math sane when bounds are unavailable.
		return 612, 792
	}
	return float64(bound.Dx()), float64(bound.Dy())
}
