// Package table renders detected table regions as GitHub-style pipe tables.
package table

import (
	"strings"

	"github.com/docforge/pdfmd/internal/domain"
)

var cellEscaper = strings.NewReplacer("|", `\|`, "\n", " ")

// Render produces a Markdown pipe table. The first row is the header; the
// separator row carries one cell per column of the widest row, and every
// row is right-padded to that width.
func Render(region domain.TableRegion) string {
	width := region.Columns()
	if width == 0 || len(region.Cells) == 0 {
		return ""
	}

	var b strings.Builder
	writeRow(&b, region.Cells[0], width)

	b.WriteString("|")
	for i := 0; i < width; i++ {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")

	for _, row := range region.Cells[1:] {
		writeRow(&b, row, width)
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func writeRow(b *strings.Builder, row []string, width int) {
	b.WriteString("|")
	for i := 0; i < width; i++ {
		cell := ""
		if i < len(row) {
			cell = cellEscaper.Replace(row[i])
		}
		b.WriteString(" " + cell + " |")
	}
	b.WriteString("\n")
}
