package corpus

import (
	"regexp"
	"strings"

	"clausegen/internal/ir"
)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

var defaultStopWords = map[ir.Language][]string{
	ir.LangRU: {
		"а", "без", "бы", "в", "во", "вы", "да", "для", "до", "его", "ее", "если", "же",
		"за", "и", "из", "или", "им", "их", "к", "как", "ко", "который", "которая",
		"которые", "которых", "либо", "на", "над", "не", "ни", "но", "о", "об", "от",
		"по", "под", "при", "с", "со", "так", "также", "то", "том", "у", "что", "это",
		"этом", "этого", "этой", "являются", "является",
	},
	ir.LangEN: {
		"a", "an", "and", "any", "are", "as", "at", "be", "by", "for", "from", "has",
		"have", "if", "in", "into", "is", "it", "its", "of", "on", "or", "such", "that",
		"the", "their", "there", "these", "this", "those", "to", "upon", "was", "which",
		"will", "with",
	},
}

// Tokenizer normalizes text into index terms: lower-case, "ё" folded to
// "е", punctuation stripped, stop words removed.
type Tokenizer struct {
	stop map[ir.Language]map[string]bool
}

// NewTokenizer builds a tokenizer. A language missing from stopWords uses
// the built-in list.
func NewTokenizer(stopWords map[ir.Language][]string) *Tokenizer {
	t := &Tokenizer{stop: make(map[ir.Language]map[string]bool)}
	for lang, words := range defaultStopWords {
		if custom, ok := stopWords[lang]; ok {
			words = custom
		}
		set := make(map[string]bool, len(words))
		for _, w := range words {
			set[Fold(w)] = true
		}
		t.stop[lang] = set
	}
	return t
}

// Fold lower-cases s and maps "ё" to "е".
func Fold(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "ё", "е")
}

// Tokens returns the index terms of text in order of appearance.
func (t *Tokenizer) Tokens(text string, lang ir.Language) []string {
	words := wordRe.FindAllString(Fold(text), -1)
	stop := t.stop[lang]
	out := words[:0]
	for _, w := range words {
		if stop[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}
