package extract

import (
	"regexp"
	"strings"

	"github.com/docforge/pdfmd/internal/config"
	"github.com/docforge/pdfmd/internal/domain"
)

// columnGap splits a line into cells: a pipe, a tab, or a run of two or
// more spaces marks a column boundary.
var columnGap = regexp.MustCompile(`\s*\|\s*|\t+| {2,}`)

// detectTables scans the page's text lines for runs of consecutive lines
// sharing a columnar layout. Runs shorter than MinRows or narrower than
// MinCols are not tables and are left as plain text.
func detectTables(lines []string, pageIndex int, cfg config.TableConfig) []domain.TableRegion {
	if !cfg.Enabled {
		return nil
	}

	var regions []domain.TableRegion
	start := -1
	var rows [][]string

	flush := func(end int) {
		if start >= 0 && len(rows) >= cfg.MinRows && widestRow(rows) >= cfg.MinCols {
			regions = append(regions, domain.TableRegion{
				PageIndex: pageIndex,
				Cells:     padRows(rows),
				StartLine: start,
				EndLine:   end,
			})
		}
		start = -1
		rows = nil
	}

	for i, line := range lines {
		cells := splitCells(line)
		if len(cells) >= cfg.MinCols {
			if start < 0 {
				start = i
			}
			rows = append(rows, cells)
			continue
		}
		flush(i)
	}
	flush(len(lines))

	return regions
}

func splitCells(line string) []string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	parts := columnGap.Split(trimmed, -1)
	cells := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			cells = append(cells, p)
		}
	}
	return cells
}

func widestRow(rows [][]string) int {
	max := 0
	for _, row := range rows {
		if len(row) > max {
			max = len(row)
		}
	}
	return max
}

// padRows right-pads ragged rows with empty cells so every row has the
// width of the widest one.
func padRows(rows [][]string) [][]string {
	width := widestRow(rows)
	padded := make([][]string, len(rows))
	for i, row := range rows {
		padded[i] = make([]string, width)
		copy(padded[i], row)
	}
	return padded
}
