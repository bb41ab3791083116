package retrieval

import (
	"math"
	"sort"

	"clausegen/internal/corpus"
)

// Scored is a section with its BM25 weight for one query.
type Scored struct {
	Section *corpus.Section
	Score   float64
}

// Rank scores sections against terms with Okapi BM25 computed over the given
// subset. Every section is returned, ordered by score desc, then shorter
// section, then insertion order.
func Rank(terms []string, sections []*corpus.Section, k1, b float64) []Scored {
	n := len(sections)
	out := make([]Scored, 0, n)
	if n == 0 {
		return out
	}

	total := 0
	for _, s := range sections {
		total += s.Len()
	}
	avgdl := float64(total) / float64(n)
	if avgdl == 0 {
		avgdl = 1
	}

	idf := make(map[string]float64, len(terms))
	for _, term := range terms {
		df := 0
		for _, s := range sections {
			if s.Has(term) {
				df++
			}
		}
		idf[term] = math.Log(1 + (float64(n)-float64(df)+0.5)/(float64(df)+0.5))
	}

	for _, s := range sections {
		dl := float64(s.Len())
		score := 0.0
		for _, term := range terms {
			tf := float64(s.TermFreq(term))
			if tf == 0 {
				continue
			}
			denom := tf + k1*(1-b+b*dl/avgdl)
			score += idf[term] * tf * (k1 + 1) / denom
		}
		out = append(out, Scored{Section: s, Score: score})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Section.Len() != out[j].Section.Len() {
			return out[i].Section.Len() < out[j].Section.Len()
		}
		return out[i].Section.Seq() < out[j].Section.Seq()
	})
	return out
}

// Diversify walks the first topK ranked sections and greedily keeps up to n
// of them, skipping any section whose token-set Jaccard similarity with an
// already kept one exceeds threshold. With onePerContract a contract
// contributes at most one section.
func Diversify(ranked []Scored, topK, n int, threshold float64, onePerContract bool) []Scored {
	if n <= 0 || topK <= 0 {
		return nil
	}
	if topK > len(ranked) {
		topK = len(ranked)
	}
	kept := make([]Scored, 0, n)
	contracts := map[string]bool{}
	for _, cand := range ranked[:topK] {
		if len(kept) >= n {
			break
		}
		if onePerContract && contracts[cand.Section.ContractID] {
			continue
		}
		dup := false
		for _, k := range kept {
			if corpus.Jaccard(cand.Section, k.Section) > threshold {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		kept = append(kept, cand)
		contracts[cand.Section.ContractID] = true
	}
	return kept
}
