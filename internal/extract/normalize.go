package extract

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// OCR output arrives with ligatures, typographic punctuation and broken
// lines; direct extraction output is passed through untouched.

var artifactReplacer = strings.NewReplacer(
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬀ", "ff",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"—", "-",
	"–", "-",
	"‐", "-",
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"…", "...",
)

var (
	multiSpace   = regexp.MustCompile(`[ \t]{2,}`)
	manyNewlines = regexp.MustCompile(`\n{3,}`)
)

// NormalizeOCR runs the full OCR cleanup pass: NFC + width folding,
// artifact replacement, whitespace collapsing, then line-break repair.
func NormalizeOCR(text string) string {
	if text == "" {
		return ""
	}

	folded, _, err := transform.String(transform.Chain(norm.NFC, width.Fold), text)
	if err == nil {
		text = folded
	}

	text = artifactReplacer.Replace(text)
	text = multiSpace.ReplaceAllString(text, " ")
	text = manyNewlines.ReplaceAllString(text, "\n\n")

	return fixLineBreaks(text)
}

// fixLineBreaks joins soft-wrapped lines back into sentences while keeping
// blank-line paragraph boundaries. A line continues into the next one when
// it ends with a continuation character, or when it lacks sentence-ending
// punctuation and the next line starts lowercase.
func fixLineBreaks(text string) string {
	paragraphs := strings.Split(text, "\n\n")
	out := make([]string, 0, len(paragraphs))

	for _, para := range paragraphs {
		lines := strings.Split(para, "\n")
		var b strings.Builder
		joinNext := false

		for i, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			if b.Len() > 0 {
				if joinNext {
					b.WriteByte(' ')
				} else {
					b.WriteByte('\n')
				}
			}
			b.WriteString(line)
			joinNext = continuesInto(line, nextNonEmpty(lines, i+1))
		}

		if s := b.String(); s != "" {
			out = append(out, s)
		}
	}

	return strings.TrimSpace(strings.Join(out, "\n\n"))
}

func continuesInto(line, next string) bool {
	if next == "" {
		return false
	}
	switch line[len(line)-1] {
	case ',', ':', ';', '-':
		return true
	case '.', '!', '?':
		return false
	}
	r := []rune(next)[0]
	return unicode.IsLower(r)
}

func nextNonEmpty(lines []string, from int) string {
	for _, line := range lines[from:] {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return ""
}

// lineKey is the match key for hybrid reconciliation: lowercased with all
// whitespace and punctuation stripped, so OCR confusions over spacing and
// quoting do not break the alignment.
func lineKey(line string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(line) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
