package refine

import (
	"regexp"
	"strings"
)

// Stopword markers for the two languages the refinement prompt supports.
// Counting distinct marker hits is crude but cheap, and only a hint for the
// provider prompt, never a hard decision.
var (
	spanishMarkers = []string{
		"el", "la", "los", "las", "un", "una", "unos", "unas",
		"y", "o", "pero", "porque", "como", "que", "cuando",
		"del", "al", "es", "son", "para", "por",
	}
	englishMarkers = []string{
		"the", "a", "an", "and", "or", "but", "because", "as",
		"that", "when", "is", "are", "be", "to", "for", "with", "by",
	}

	spanishAccents = regexp.MustCompile(`[áéíóúüñ¿¡]`)
	wordSplit      = regexp.MustCompile(`[^\p{L}]+`)
)

// DetectLanguage guesses between "spa" and "eng" from stopword frequency,
// falling back to accent characters on a tie.
func DetectLanguage(text string) string {
	words := make(map[string]bool)
	for _, w := range wordSplit.Split(strings.ToLower(text), -1) {
		if w != "" {
			words[w] = true
		}
	}

	spanish := markerRatio(words, spanishMarkers)
	english := markerRatio(words, englishMarkers)

	switch {
	case spanish > english:
		return "spa"
	case english > spanish:
		return "eng"
	case spanishAccents.MatchString(text):
		return "spa"
	default:
		return "eng"
	}
}

func markerRatio(words map[string]bool, markers []string) float64 {
	hits := 0
	for _, m := range markers {
		if words[m] {
			hits++
		}
	}
	return float64(hits) / float64(len(markers))
}
