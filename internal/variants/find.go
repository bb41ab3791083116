package variants

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Span is a byte range [Start, End) in a text.
type Span struct {
	Start int
	End   int
}

var patternCache sync.Map // string -> *regexp.Regexp

func literalPattern(needle string) *regexp.Regexp {
	if re, ok := patternCache.Load(needle); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(needle))
	patternCache.Store(needle, re)
	return re
}

// FindAll returns the case-insensitive occurrences of needle that stand
// alone: a needle that starts or ends with a letter or digit must not be
// glued to another letter or digit, and a number must not continue past a
// decimal or grouping separator ("5" does not match inside "1.5.").
func FindAll(text, needle string) []Span {
	if needle == "" || text == "" {
		return nil
	}
	var out []Span
	for _, loc := range literalPattern(needle).FindAllStringIndex(text, -1) {
		if Bounded(text, loc[0], loc[1]) {
			out = append(out, Span{Start: loc[0], End: loc[1]})
		}
	}
	return out
}

// Bounded reports whether text[start:end] is not a fragment of a longer word
// or number.
func Bounded(text string, start, end int) bool {
	if start > 0 {
		first, _ := utf8.DecodeRuneInString(text[start:])
		prev, size := utf8.DecodeLastRuneInString(text[:start])
		if isWord(first) && isWord(prev) {
			return false
		}
		if unicode.IsDigit(first) && isNumberSep(prev) {
			before, _ := utf8.DecodeLastRuneInString(text[:start-size])
			if unicode.IsDigit(before) {
				return false
			}
		}
	}
	if end < len(text) {
		last, _ := utf8.DecodeLastRuneInString(text[:end])
		next, size := utf8.DecodeRuneInString(text[end:])
		if isWord(last) && isWord(next) {
			return false
		}
		if unicode.IsDigit(last) && isNumberSep(next) && end+size < len(text) {
			after, _ := utf8.DecodeRuneInString(text[end+size:])
			if unicode.IsDigit(after) {
				return false
			}
		}
	}
	return true
}

func isWord(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isNumberSep(r rune) bool {
	return r == '.' || r == ',' || r == ' ' || r == '\''
}

// ContainsAny reports whether any rendering occurs in text. Non-breaking
// spaces in text are treated as plain spaces.
func ContainsAny(text string, renderings []string) bool {
	text = NormalizeSpaces(text)
	for _, r := range renderings {
		if len(FindAll(text, r)) > 0 {
			return true
		}
	}
	return false
}

// NormalizeSpaces maps every Unicode space separator to an ASCII space.
func NormalizeSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if r != '\n' && r != '\t' && unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, s)
}

// Needle is a rendering tagged with the replacement to use for it.
type Needle struct {
	Text        string
	Replacement string
}

// ReplaceLongestFirst replaces non-overlapping occurrences of the needles.
// Longer matches win over shorter ones; among equal lengths the earlier
// position wins. It returns the new text and the number of replacements.
func ReplaceLongestFirst(text string, needles []Needle) (string, int) {
	type hit struct {
		span Span
		repl string
	}
	var hits []hit
	for _, n := range needles {
		for _, sp := range FindAll(text, n.Text) {
			hits = append(hits, hit{span: sp, repl: n.Replacement})
		}
	}
	if len(hits) == 0 {
		return text, 0
	}
	sort.SliceStable(hits, func(i, j int) bool {
		li := hits[i].span.End - hits[i].span.Start
		lj := hits[j].span.End - hits[j].span.Start
		if li != lj {
			return li > lj
		}
		return hits[i].span.Start < hits[j].span.Start
	})

	chosen := make([]hit, 0, len(hits))
	for _, h := range hits {
		overlaps := false
		for _, c := range chosen {
			if h.span.Start < c.span.End && c.span.Start < h.span.End {
				overlaps = true
				break
			}
		}
		if !overlaps {
			chosen = append(chosen, h)
		}
	}
	sort.Slice(chosen, func(i, j int) bool { return chosen[i].span.Start < chosen[j].span.Start })

	var b strings.Builder
	pos := 0
	for _, c := range chosen {
		b.WriteString(text[pos:c.span.Start])
		b.WriteString(c.repl)
		pos = c.span.End
	}
	b.WriteString(text[pos:])
	return b.String(), len(chosen)
}
