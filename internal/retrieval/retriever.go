package retrieval

import (
	"fmt"

	"clausegen/internal/config"
	"clausegen/internal/corpus"

	"go.uber.org/zap"
)

// Params tunes ranking, diversification and masking.
type Params struct {
	K1               float64
	B                float64
	TopK             int
	N                int
	JaccardThreshold float64
	OnePerContract   bool
	GenericMasking   bool
	MaxChars         int
}

func DefaultParams() Params {
	return ParamsFromConfig(config.Default().Retrieval)
}

func ParamsFromConfig(c config.RetrievalConfig) Params {
	return Params{
		K1:               c.K1,
		B:                c.B,
		TopK:             c.TopK,
		N:                c.N,
		JaccardThreshold: c.JaccardThreshold,
		OnePerContract:   c.OnePerContract,
		GenericMasking:   c.GenericMasking,
		MaxChars:         c.MaxChars,
	}
}

// Candidate is a diversified precedent ready for cleaning.
type Candidate struct {
	Section    *corpus.Section
	Score      float64
	MaskedText string
	MaskCount  int
}

type Retriever struct {
	index  *corpus.Index
	params Params
	logger *zap.Logger
}

type Option func(*Retriever)

func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) {
		if l != nil {
			r.logger = l
		}
	}
}

func New(index *corpus.Index, params Params, opts ...Option) *Retriever {
	r := &Retriever{index: index, params: params, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve runs search, ranking, diversification and masking. An empty
// result is not an error; the caller decides how to proceed without
// precedents.
func (r *Retriever) Retrieve(q Query) ([]Candidate, error) {
	if q.SectionType == "" || q.Language == "" {
		return nil, fmt.Errorf("retrieval query needs section type and language")
	}
	pool := r.index.Search(q.SectionType, q.Language)
	if len(pool) == 0 {
		r.logger.Info("no precedents in corpus",
			zap.String("section", string(q.SectionType)),
			zap.String("language", string(q.Language)))
		return []Candidate{}, nil
	}

	terms := q.Terms(r.index.Tokenizer())
	ranked := Rank(terms, pool, r.params.K1, r.params.B)
	picked := Diversify(ranked, r.params.TopK, r.params.N, r.params.JaccardThreshold, r.params.OnePerContract)

	out := make([]Candidate, 0, len(picked))
	for _, p := range picked {
		text := Truncate(NormalizeText(p.Section.RawText), r.params.MaxChars)
		masked, n := Mask(text, q.Variables)
		if r.params.GenericMasking {
			var g int
			masked, g = MaskGeneric(masked)
			n += g
		}
		out = append(out, Candidate{
			Section:    p.Section,
			Score:      p.Score,
			MaskedText: masked,
			MaskCount:  n,
		})
	}
	r.logger.Debug("retrieved precedents",
		zap.String("section", string(q.SectionType)),
		zap.String("language", string(q.Language)),
		zap.Int("pool", len(pool)),
		zap.Int("terms", len(terms)),
		zap.Int("selected", len(out)))
	return out, nil
}
