package validator

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"clausegen/internal/corpus"
)

// findTerm looks for term at a word start. A trailing "*" makes it a stem;
// otherwise the match must also end at a word boundary. With foldCase the
// comparison ignores case and treats "ё" as "е".
func findTerm(text, term string, foldCase bool) bool {
	stem := strings.HasSuffix(term, "*")
	term = strings.TrimSuffix(term, "*")
	if term == "" {
		return false
	}
	if foldCase {
		text = corpus.Fold(text)
		term = corpus.Fold(term)
	}
	for off := 0; off < len(text); {
		i := strings.Index(text[off:], term)
		if i < 0 {
			return false
		}
		start := off + i
		end := start + len(term)
		if atWordStart(text, start) && (stem || atWordEnd(text, end)) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		off = start + size
	}
	return false
}

func atWordStart(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func atWordEnd(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// Subpoint is one enumerated line of a draft.
type Subpoint struct {
	Line  int    // 1-based line number
	Label string // e.g. "1.3." or "4)"
	Parts []string
	Body  string
}

var labelRe = regexp.MustCompile(`^(\d{1,3}(?:\.\d{1,3})*)([.)]?)(?:\s+|$)`)

// Subpoints extracts the enumerated lines of text in order. A bare number
// without a dot or parenthesis ("30 days ...") is not a label.
func Subpoints(text string) []Subpoint {
	var out []Subpoint
	for i, ln := range strings.Split(text, "\n") {
		ln = strings.TrimSpace(ln)
		m := labelRe.FindStringSubmatch(ln)
		if m == nil || m[2] == "" && !strings.Contains(m[1], ".") {
			continue
		}
		out = append(out, Subpoint{
			Line:  i + 1,
			Label: m[1] + m[2],
			Parts: strings.Split(m[1], "."),
			Body:  strings.TrimSpace(ln[len(m[0]):]),
		})
	}
	return out
}
