// Package assemble renders page records into the final Markdown document.
package assemble

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/docforge/pdfmd/internal/domain"
	"github.com/docforge/pdfmd/internal/table"
)

// RenderPage interleaves a page's text with its rendered tables at the
// line positions where they were detected. Table line ranges never overlap;
// the extraction engine produces them in ascending order.
func RenderPage(record domain.PageRecord) string {
	if len(record.Tables) == 0 {
		return record.Text
	}

	lines := strings.Split(record.Text, "\n")
	regions := make([]domain.TableRegion, len(record.Tables))
	copy(regions, record.Tables)
	sort.Slice(regions, func(i, j int) bool { return regions[i].StartLine < regions[j].StartLine })

	var parts []string
	cursor := 0
	for _, region := range regions {
		if region.StartLine > cursor {
			if chunk := strings.TrimSpace(strings.Join(lines[cursor:region.StartLine], "\n")); chunk != "" {
				parts = append(parts, chunk)
			}
		}
		if rendered := table.Render(region); rendered != "" {
			parts = append(parts, rendered)
		}
		cursor = region.EndLine
	}
	if cursor < len(lines) {
		if chunk := strings.TrimSpace(strings.Join(lines[cursor:], "\n")); chunk != "" {
			parts = append(parts, chunk)
		}
	}

	return strings.Join(parts, "\n\n")
}

// PageOutput pairs a page record with its final (possibly refined) text.
type PageOutput struct {
	Record            domain.PageRecord
	Markdown          string
	RefinementApplied bool
	RefinementError   string
}

// Assemble concatenates pages in ascending index order with page-boundary
// comments and attaches per-page provenance. The output is deterministic
// apart from the CreatedAt timestamp.
func Assemble(fp domain.Fingerprint, pages []PageOutput) *domain.ConversionResult {
	ordered := make([]PageOutput, len(pages))
	copy(ordered, pages)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Record.Index < ordered[j].Record.Index })

	var b strings.Builder
	provenance := make([]domain.PageProvenance, 0, len(ordered))

	for i, page := range ordered {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(fmt.Sprintf("<!-- page %d -->\n", page.Record.Index+1))
		b.WriteString(strings.TrimSpace(page.Markdown))

		provenance = append(provenance, domain.PageProvenance{
			Index:             page.Record.Index,
			Classification:    page.Record.Classification,
			Confidence:        page.Record.Confidence,
			OCRFailed:         page.Record.OCRFailed,
			RefinementApplied: page.RefinementApplied,
			RefinementError:   page.RefinementError,
			TableCount:        len(page.Record.Tables),
		})
	}

	return &domain.ConversionResult{
		Fingerprint: fp,
		Markdown:    strings.TrimSpace(b.String()) + "\n",
		Pages:       provenance,
		CreatedAt:   time.Now().UTC(),
	}
}
