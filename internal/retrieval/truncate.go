package retrieval

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"clausegen/internal/variants"
)

var (
	hspaceRe    = regexp.MustCompile(`[ \t\f\v]+`)
	blankRunsRe = regexp.MustCompile(`\n{3,}`)
)

// NormalizeText unifies line endings, maps Unicode spaces to ASCII and
// collapses horizontal whitespace and runs of blank lines.
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = variants.NormalizeSpaces(s)
	s = hspaceRe.ReplaceAllString(s, " ")
	s = blankRunsRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Truncate shortens text longer than maxChars runes, cutting after the last
// sentence or clause boundary in the final third when one exists. A cut
// that does not end a sentence gets an ellipsis.
func Truncate(text string, maxChars int) string {
	t := []rune(strings.TrimSpace(text))
	if maxChars <= 0 || len(t) <= maxChars {
		return string(t)
	}
	cut := maxChars
	tailStart := maxChars * 65 / 100
	for i := maxChars - 1; i >= tailStart; i-- {
		if strings.ContainsRune(".!?;:\n", t[i]) {
			cut = i + 1
			break
		}
	}
	out := strings.TrimRight(string(t[:cut]), " \t\n")
	if last, _ := utf8.DecodeLastRuneInString(out); out != "" && !strings.ContainsRune(".!?…", last) {
		out += "…"
	}
	return out
}
