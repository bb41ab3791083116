package ir

import (
	"fmt"
	"strings"
)

// SectionType identifies a contract section that can be drafted.
type SectionType string

const (
	SectionPaymentTerms         SectionType = "payment_terms"
	SectionDeliveryTerms        SectionType = "delivery_terms"
	SectionLiabilityPenalties   SectionType = "liability_penalties"
	SectionDisputesGoverningLaw SectionType = "disputes_governing_law"
)

// AllSectionTypes returns the known section types in drafting order.
func AllSectionTypes() []SectionType {
	return []SectionType{
		SectionPaymentTerms,
		SectionDeliveryTerms,
		SectionLiabilityPenalties,
		SectionDisputesGoverningLaw,
	}
}

// ParseSectionType accepts the canonical name and a few upper-case aliases
// used by older corpus exports (e.g. "PAYMENT_TERMS").
func ParseSectionType(s string) (SectionType, error) {
	n := strings.ToLower(strings.TrimSpace(s))
	n = strings.ReplaceAll(n, "-", "_")
	for _, t := range AllSectionTypes() {
		if string(t) == n {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown section type %q", s)
}

// Language is the language of a corpus section or a drafted clause.
type Language string

const (
	LangRU Language = "ru"
	LangEN Language = "en"
)

func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ru":
		return LangRU, nil
	case "en":
		return LangEN, nil
	default:
		return "", fmt.Errorf("unsupported language %q", s)
	}
}

// Record is the corpus interchange format: one JSON object per JSONL line.
type Record struct {
	SectionType string `json:"section_type"`
	Language    string `json:"language"`
	Text        string `json:"text"`
	ContractID  string `json:"contract_id"`
	Title       string `json:"title,omitempty"`

	// Line is the one-based JSONL line the record was read from, 0 when
	// it did not come from a file.
	Line int `json:"-"`
}
