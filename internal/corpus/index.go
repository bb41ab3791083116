package corpus

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"clausegen/internal/ir"

	"go.uber.org/zap"
)

// ErrCorpusFormat is matched by every corpus format error.
var ErrCorpusFormat = errors.New("corpus format error")

// FormatError reports a malformed corpus record.
type FormatError struct {
	Record int // zero-based position in the batch passed to Load
	Line   int // one-based JSONL line, 0 when unknown
	Field  string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	var b strings.Builder
	b.WriteString("corpus record")
	if e.Line > 0 {
		fmt.Fprintf(&b, " at line %d", e.Line)
	} else {
		fmt.Fprintf(&b, " #%d", e.Record)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": field %q", e.Field)
	}
	fmt.Fprintf(&b, ": %s", e.Reason)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *FormatError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrCorpusFormat, e.Err}
	}
	return []error{ErrCorpusFormat}
}

type key struct {
	t    ir.SectionType
	lang ir.Language
}

// Index holds the loaded precedent sections. It is read-only after Load
// and safe for concurrent Search.
type Index struct {
	mu       sync.RWMutex
	tok      *Tokenizer
	sections []*Section
	byKey    map[key][]*Section
	logger   *zap.Logger
}

type Option func(*Index)

func WithLogger(l *zap.Logger) Option {
	return func(ix *Index) {
		if l != nil {
			ix.logger = l
		}
	}
}

func WithTokenizer(t *Tokenizer) Option {
	return func(ix *Index) {
		if t != nil {
			ix.tok = t
		}
	}
}

func NewIndex(opts ...Option) *Index {
	ix := &Index{
		tok:    NewTokenizer(nil),
		byKey:  make(map[key][]*Section),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Tokenizer returns the tokenizer used for index terms, so queries can be
// normalized the same way.
func (ix *Index) Tokenizer() *Tokenizer { return ix.tok }

// Load ingests records in order. It stops at the first malformed record and
// returns a *FormatError; records before it stay indexed. The returned count
// is the number of sections added by this call.
func (ix *Index) Load(records []ir.Record) (int, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	added := 0
	for i, rec := range records {
		st, lang, err := checkRecord(i, rec)
		if err != nil {
			return added, err
		}
		seq := len(ix.sections)
		id := fmt.Sprintf("%s:%s:%d", rec.ContractID, st, seq)
		sec := newSection(id, seq, rec, st, lang, ix.tok.Tokens(rec.Text, lang))
		if sec.LowSignal() {
			ix.logger.Warn("low-signal corpus section",
				zap.String("section_id", id),
				zap.String("contract_id", rec.ContractID))
		}
		ix.sections = append(ix.sections, sec)
		k := key{t: st, lang: lang}
		ix.byKey[k] = append(ix.byKey[k], sec)
		added++
	}
	return added, nil
}

func checkRecord(i int, rec ir.Record) (ir.SectionType, ir.Language, error) {
	missing := func(field string) error {
		return &FormatError{Record: i, Line: rec.Line, Field: field, Reason: "missing required field"}
	}
	switch {
	case strings.TrimSpace(rec.SectionType) == "":
		return "", "", missing("section_type")
	case strings.TrimSpace(rec.Language) == "":
		return "", "", missing("language")
	case strings.TrimSpace(rec.Text) == "":
		return "", "", missing("text")
	case strings.TrimSpace(rec.ContractID) == "":
		return "", "", missing("contract_id")
	}
	st, err := ir.ParseSectionType(rec.SectionType)
	if err != nil {
		return "", "", &FormatError{Record: i, Line: rec.Line, Field: "section_type", Reason: "unknown section type", Err: err}
	}
	lang, err := ir.ParseLanguage(rec.Language)
	if err != nil {
		return "", "", &FormatError{Record: i, Line: rec.Line, Field: "language", Reason: "unsupported language", Err: err}
	}
	return st, lang, nil
}

// Search returns the sections of one type and language in insertion order.
func (ix *Index) Search(t ir.SectionType, lang ir.Language) []*Section {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	src := ix.byKey[key{t: t, lang: lang}]
	out := make([]*Section, len(src))
	copy(out, src)
	return out
}

// Len is the total number of indexed sections.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.sections)
}

// Records exports the indexed sections back to the interchange format.
func (ix *Index) Records() []ir.Record {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]ir.Record, 0, len(ix.sections))
	for _, s := range ix.sections {
		out = append(out, ir.Record{
			SectionType: string(s.Type),
			Language:    string(s.Language),
			Text:        s.RawText,
			ContractID:  s.ContractID,
			Title:       s.Title,
		})
	}
	return out
}

type Stats struct {
	Total     int            `json:"total"`
	LowSignal int            `json:"low_signal"`
	Contracts int            `json:"contracts"`
	ByKey     map[string]int `json:"by_key"`
}

// Stats summarizes the index by "section_type/language".
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	st := Stats{Total: len(ix.sections), ByKey: make(map[string]int)}
	contracts := map[string]bool{}
	for _, s := range ix.sections {
		if s.LowSignal() {
			st.LowSignal++
		}
		contracts[s.ContractID] = true
		st.ByKey[string(s.Type)+"/"+string(s.Language)]++
	}
	st.Contracts = len(contracts)
	return st
}

// Keys lists the populated "section_type/language" pairs in sorted order.
func (s Stats) Keys() []string {
	keys := make([]string, 0, len(s.ByKey))
	for k := range s.ByKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
