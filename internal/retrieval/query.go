package retrieval

import (
	"strings"

	"clausegen/internal/corpus"
	"clausegen/internal/ir"
)

// Query describes what a section request needs from the corpus.
type Query struct {
	SectionType   ir.SectionType
	Language      ir.Language
	Variables     ir.Variables
	FreeTextTerms []string
}

var baseQueries = map[ir.SectionType]map[ir.Language]string{
	ir.SectionPaymentTerms: {
		ir.LangEN: "payment terms invoice due date bank transfer currency without set-off VAT late payment interest prepayment",
		ir.LangRU: "условия оплаты порядок расчетов счет срок оплаты валюта платежа банковский перевод без зачета ндс проценты за просрочку предоплата",
	},
	ir.SectionDeliveryTerms: {
		ir.LangEN: "delivery terms delivery date delivery point shipment dispatch partial deliveries incoterms risk of loss packaging acceptance take delivery storage demurrage",
		ir.LangRU: "условия поставки доставка срок поставки место поставки отгрузка перевозка инкотермс переход рисков упаковка маркировка приемка частичная поставка хранение простой демерредж",
	},
	ir.SectionLiabilityPenalties: {
		ir.LangEN: "liability penalty liquidated damages breach delay compensation limitation of liability indemnity losses force majeure",
		ir.LangRU: "ответственность сторон неустойка пеня штраф просрочка нарушение обязательств возмещение убытков ограничение ответственности",
	},
	ir.SectionDisputesGoverningLaw: {
		ir.LangEN: "governing law disputes arbitration court jurisdiction claim negotiation settlement applicable law",
		ir.LangRU: "применимое право разрешение споров арбитражный суд претензионный порядок претензия подсудность переговоры",
	},
}

var flagTerms = map[string]map[ir.Language]string{
	"prepayment_required": {
		ir.LangEN: "advance payment",
		ir.LangRU: "аванс",
	},
	"late_payment_penalty_enabled": {
		ir.LangEN: "penalty interest",
		ir.LangRU: "неустойка пеня проценты",
	},
}

// Terms expands a query into normalized search terms: the section's base
// vocabulary, terms switched on by boolean form flags, free-text terms, and
// the tokens of string form values. Each term appears once, first
// occurrence wins.
func (q Query) Terms(tk *corpus.Tokenizer) []string {
	parts := []string{baseQueries[q.SectionType][q.Language]}
	for _, name := range q.Variables.Names() {
		if terms, ok := flagTerms[name]; ok && q.Variables.Bool(name) {
			parts = append(parts, terms[q.Language])
		}
	}
	parts = append(parts, q.FreeTextTerms...)
	for _, name := range q.Variables.Names() {
		if s, ok := q.Variables[name].(string); ok {
			parts = append(parts, s)
		}
	}

	seen := map[string]bool{}
	var out []string
	for _, tok := range tk.Tokens(strings.Join(parts, " "), q.Language) {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}
