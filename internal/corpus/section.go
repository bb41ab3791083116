package corpus

import (
	"unicode/utf8"

	"clausegen/internal/ir"
)

// Section is one precedent clause. Its token data is computed once at load
// and is only exposed through read accessors.
type Section struct {
	ID         string
	ContractID string
	Type       ir.SectionType
	Language   ir.Language
	Title      string
	RawText    string

	seq    int
	tokens []string
	tf     map[string]int
	set    map[string]struct{}
}

func newSection(id string, seq int, rec ir.Record, st ir.SectionType, lang ir.Language, tokens []string) *Section {
	s := &Section{
		ID:         id,
		ContractID: rec.ContractID,
		Type:       st,
		Language:   lang,
		Title:      rec.Title,
		RawText:    rec.Text,
		seq:        seq,
		tokens:     tokens,
		tf:         make(map[string]int, len(tokens)),
		set:        make(map[string]struct{}, len(tokens)),
	}
	for _, tok := range tokens {
		s.tf[tok]++
		s.set[tok] = struct{}{}
	}
	return s
}

// Seq is the insertion position of the section in its index.
func (s *Section) Seq() int { return s.seq }

// Len is the number of index terms.
func (s *Section) Len() int { return len(s.tokens) }

// CharLen is the length of the raw text in runes.
func (s *Section) CharLen() int { return utf8.RuneCountInString(s.RawText) }

// TermFreq returns how often term occurs in the section.
func (s *Section) TermFreq(term string) int { return s.tf[term] }

// Has reports whether term is in the token set.
func (s *Section) Has(term string) bool {
	_, ok := s.set[term]
	return ok
}

// Tokens returns a copy of the index terms.
func (s *Section) Tokens() []string {
	out := make([]string, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// TokenSetSize is the number of distinct terms.
func (s *Section) TokenSetSize() int { return len(s.set) }

// LowSignal is true when no index term survived normalization.
func (s *Section) LowSignal() bool { return len(s.set) == 0 }

// Jaccard is the token-set similarity |A∩B| / |A∪B|. Two empty sets have
// similarity 0.
func Jaccard(a, b *Section) float64 {
	return JaccardSets(a.set, b.set)
}

func JaccardSets(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for k := range small {
		if _, ok := large[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// TokenSet builds a set from tokens.
func TokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
