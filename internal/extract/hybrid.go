package extract

import (
	"strings"

	"github.com/docforge/pdfmd/internal/domain"
)

type hybridLine struct {
	text       string
	confidence float64
}

// mergeHybrid reconciles the embedded text layer with the OCR output for a
// hybrid page. Lines are aligned by longest common subsequence over
// normalized keys; for each aligned pair the higher-confidence side wins
// (direct counts as 1.0 when non-empty) and the longer text breaks ties.
// Unaligned lines survive in source order, direct side first between
// anchors.
func mergeHybrid(directText string, ocrLines []domain.OCRLine) string {
	direct := toHybridLines(directText)
	ocr := make([]hybridLine, 0, len(ocrLines))
	for _, l := range ocrLines {
		if strings.TrimSpace(l.Text) == "" {
			continue
		}
		ocr = append(ocr, hybridLine{text: strings.TrimSpace(l.Text), confidence: l.Confidence})
	}

	if len(direct) == 0 {
		return joinLines(ocr)
	}
	if len(ocr) == 0 {
		return joinLines(direct)
	}

	directKeys := keysOf(direct)
	ocrKeys := keysOf(ocr)

	// LCS table over line keys.
	n, m := len(direct), len(ocr)
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if directKeys[i] != "" && directKeys[i] == ocrKeys[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	merged := make([]hybridLine, 0, n)
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case directKeys[i] != "" && directKeys[i] == ocrKeys[j]:
			merged = append(merged, pickLine(direct[i], ocr[j]))
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			merged = append(merged, direct[i])
			i++
		default:
			merged = append(merged, ocr[j])
			j++
		}
	}
	merged = append(merged, direct[i:]...)
	merged = append(merged, ocr[j:]...)

	return joinLines(merged)
}

func pickLine(a, b hybridLine) hybridLine {
	if a.confidence > b.confidence {
		return a
	}
	if b.confidence > a.confidence {
		return b
	}
	if len(b.text) > len(a.text) {
		return b
	}
	return a
}

func toHybridLines(text string) []hybridLine {
	var lines []hybridLine
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		lines = append(lines, hybridLine{text: line, confidence: 1.0})
	}
	return lines
}

func keysOf(lines []hybridLine) []string {
	keys := make([]string, len(lines))
	for i, l := range lines {
		keys[i] = lineKey(l.text)
	}
	return keys
}

func joinLines(lines []hybridLine) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = l.text
	}
	return strings.Join(parts, "\n")
}
