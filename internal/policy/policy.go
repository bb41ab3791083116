// Package policy holds the drafting rules of each contract section: numbering,
// minimum subpoints, length band, banned topics and the form variables that
// must be carried into the text. The prompt builder states these rules and
// the validator checks them, so both read them from here.
package policy

import (
	"fmt"
	"strings"

	"clausegen/internal/config"
	"clausegen/internal/ir"
)

type NumberingStyle string

const (
	// NumberingNested labels subpoints "P.1.", "P.2.", ... with the section prefix P.
	NumberingNested NumberingStyle = "nested"
	// NumberingFlat labels subpoints "1.", "2.", ...
	NumberingFlat NumberingStyle = "flat"
)

type LengthUnit string

const (
	CharsNoSpaces LengthUnit = "chars_no_spaces"
	Tokens        LengthUnit = "tokens"
)

// ConditionalBan lists terms that are banned unless a boolean form flag is
// set, e.g. bank details unless "bank_details_included".
type ConditionalBan struct {
	Flag  string
	Terms map[ir.Language][]string
}

// PartyTerms is the party vocabulary of a language: once a canonical term
// is used, none of the alternatives may appear. Terms are case-sensitive
// stems in the same "*" notation as banned terms so declined forms match.
type PartyTerms struct {
	Canonical    []string
	Alternatives []string
}

type Policy struct {
	Section      ir.SectionType
	Title        map[ir.Language]string
	MinSubpoints int
	Numbering    NumberingStyle
	Prefix       string
	MinLength    int
	MaxLength    int // 0 means unbounded
	LengthUnit   LengthUnit
	// Banned terms match case-insensitively at a word start. A trailing "*"
	// makes the term a stem ("оплат*" matches "оплата", "оплатить").
	Banned          map[ir.Language][]string
	ConditionalBans []ConditionalBan
	// Correspondences are form variables whose value must appear in the
	// text whenever the form supplies them.
	Correspondences []string
	PartyTerms      map[ir.Language]PartyTerms
	TopicPlan       map[ir.Language][]string
	DisabledRules   []string
}

// Label renders the numbering label of the i-th subpoint (1-based).
func (p Policy) Label(i int) string {
	if p.Numbering == NumberingNested {
		return fmt.Sprintf("%s.%d.", p.Prefix, i)
	}
	return fmt.Sprintf("%d.", i)
}

// Enabled reports whether rule is not switched off for the section.
func (p Policy) Enabled(rule string) bool {
	for _, r := range p.DisabledRules {
		if strings.EqualFold(strings.TrimSpace(r), rule) {
			return false
		}
	}
	return true
}

// BannedTerms returns the banned terms for lang given the form flags.
func (p Policy) BannedTerms(lang ir.Language, vars ir.Variables) []string {
	out := append([]string(nil), p.Banned[lang]...)
	for _, cb := range p.ConditionalBans {
		if vars.Bool(cb.Flag) {
			continue
		}
		out = append(out, cb.Terms[lang]...)
	}
	return out
}

var defaultParties = map[ir.Language]PartyTerms{
	ir.LangRU: {
		Canonical:    []string{"Покупател*", "Поставщик*"},
		Alternatives: []string{"Заказчик*", "Исполнител*", "Продавец", "Продавц*"},
	},
	ir.LangEN: {
		Canonical:    []string{"Buyer*", "Supplier*"},
		Alternatives: []string{"Customer*", "Contractor*", "Seller*", "Purchaser*"},
	},
}

var penaltyBan = ConditionalBan{
	Flag: "late_payment_penalty_enabled",
	Terms: map[ir.Language][]string{
		ir.LangEN: {"penalty", "penalties", "late payment interest", "default interest", "liquidated damages"},
		ir.LangRU: {"пеня", "пени", "неусто*", "штраф*", "проценты за просрочку"},
	},
}

var bankDetailsBan = ConditionalBan{
	Flag: "bank_details_included",
	Terms: map[ir.Language][]string{
		ir.LangEN: {"swift", "iban", "beneficiary", "account no"},
		ir.LangRU: {"бик", "инн", "кпп", "огрн", "р/с", "к/с", "swift", "iban"},
	},
}

// Default returns the built-in policy of a section type.
func Default(st ir.SectionType) Policy {
	switch st {
	case ir.SectionPaymentTerms:
		return Policy{
			Section:      st,
			Title:        map[ir.Language]string{ir.LangEN: "Payment Terms", ir.LangRU: "Порядок расчетов"},
			MinSubpoints: 20,
			Numbering:    NumberingNested,
			Prefix:       "1",
			MinLength:    850,
			MaxLength:    8000,
			LengthUnit:   CharsNoSpaces,
			Banned: map[ir.Language][]string{
				ir.LangEN: {"arbitration", "court", "dispute*", "governing law", "liabilit*", "force majeure", "incoterms", "shipment"},
				ir.LangRU: {"арбитраж*", "суд", "суда", "суде", "спор", "спора", "споры", "споров", "спорам", "спорах", "ответственност*", "применимое право", "форс-мажор*", "инкотермс", "отгрузк*"},
			},
			ConditionalBans: []ConditionalBan{bankDetailsBan, penaltyBan},
			Correspondences: []string{"payment_term_days", "currency"},
			PartyTerms:      defaultParties,
			TopicPlan: map[ir.Language][]string{
				ir.LangEN: {
					"invoicing and the payment trigger", "payment term", "payment method and bank transfer",
					"currency of payment", "date on which payment is deemed made", "bank charges", "VAT",
					"prepayment or advance", "withholding and set-off", "suspension of performance",
				},
				ir.LangRU: {
					"выставление счета и основание оплаты", "срок оплаты", "способ оплаты и банковский перевод",
					"валюта платежа", "дата исполнения обязанности по оплате", "банковские комиссии", "НДС",
					"предоплата или аванс", "удержания и зачет", "приостановление исполнения",
				},
			},
		}
	case ir.SectionDeliveryTerms:
		return Policy{
			Section:      st,
			Title:        map[ir.Language]string{ir.LangEN: "Delivery Terms", ir.LangRU: "Условия поставки"},
			MinSubpoints: 20,
			Numbering:    NumberingNested,
			Prefix:       "2",
			MinLength:    900,
			MaxLength:    9000,
			LengthUnit:   CharsNoSpaces,
			Banned: map[ir.Language][]string{
				ir.LangEN: {"payment", "invoice", "penalty", "penalties", "court", "arbitration"},
				ir.LangRU: {"оплат*", "платеж*", "платёж*", "счет", "счёт", "пеня", "пени", "неусто*", "штраф*", "суд", "суда", "суде", "арбитраж*", "претензи*"},
			},
			Correspondences: []string{"delivery_term_days", "incoterms"},
			PartyTerms:      defaultParties,
			TopicPlan: map[ir.Language][]string{
				ir.LangEN: {
					"delivery date", "delivery point and Incoterms", "shipment notice", "partial deliveries",
					"packaging and marking", "transfer of risk and title", "acceptance by quantity and quality",
					"shipping documents", "storage", "demurrage",
				},
				ir.LangRU: {
					"срок поставки", "место поставки и Инкотермс", "уведомление об отгрузке", "частичные поставки",
					"упаковка и маркировка", "переход рисков и права собственности", "приемка по количеству и качеству",
					"товаросопроводительные документы", "хранение", "простой транспорта",
				},
			},
		}
	case ir.SectionLiabilityPenalties:
		return Policy{
			Section:      st,
			Title:        map[ir.Language]string{ir.LangEN: "Liability and Penalties", ir.LangRU: "Ответственность сторон"},
			MinSubpoints: 10,
			Numbering:    NumberingNested,
			Prefix:       "3",
			MinLength:    600,
			MaxLength:    7000,
			LengthUnit:   CharsNoSpaces,
			Banned: map[ir.Language][]string{
				ir.LangEN: {"governing law", "arbitration", "incoterms"},
				ir.LangRU: {"применимое право", "арбитраж*", "инкотермс"},
			},
			Correspondences: []string{"penalty_rate", "liability_cap"},
			PartyTerms:      defaultParties,
			TopicPlan: map[ir.Language][]string{
				ir.LangEN: {
					"general liability for breach", "penalty for late delivery", "penalty for late payment",
					"limitation of liability", "exclusion of indirect losses", "payment of penalties does not release from performance",
				},
				ir.LangRU: {
					"общая ответственность за нарушение", "неустойка за просрочку поставки", "неустойка за просрочку оплаты",
					"ограничение ответственности", "исключение косвенных убытков", "уплата неустойки не освобождает от исполнения",
				},
			},
		}
	case ir.SectionDisputesGoverningLaw:
		return Policy{
			Section:      st,
			Title:        map[ir.Language]string{ir.LangEN: "Disputes and Governing Law", ir.LangRU: "Разрешение споров и применимое право"},
			MinSubpoints: 8,
			Numbering:    NumberingNested,
			Prefix:       "4",
			MinLength:    400,
			MaxLength:    6000,
			LengthUnit:   CharsNoSpaces,
			Banned: map[ir.Language][]string{
				ir.LangEN: {"invoice", "incoterms", "shipment", "prepayment"},
				ir.LangRU: {"счет", "счёт", "инкотермс", "отгрузк*", "предоплат*"},
			},
			Correspondences: []string{"governing_law", "dispute_venue"},
			PartyTerms:      defaultParties,
			TopicPlan: map[ir.Language][]string{
				ir.LangEN: {
					"governing law", "negotiations", "mandatory claim procedure", "claim response period",
					"competent court or arbitration", "language of proceedings", "survival of the clause",
				},
				ir.LangRU: {
					"применимое право", "переговоры", "обязательный претензионный порядок", "срок ответа на претензию",
					"компетентный суд или арбитраж", "язык разбирательства", "действие оговорки",
				},
			},
		}
	default:
		return Policy{
			Section:      st,
			Title:        map[ir.Language]string{ir.LangEN: string(st), ir.LangRU: string(st)},
			MinSubpoints: 1,
			Numbering:    NumberingFlat,
			LengthUnit:   CharsNoSpaces,
			PartyTerms:   defaultParties,
		}
	}
}

// DisplayTerm strips the stem marker for use in instructions.
func DisplayTerm(term string) string {
	t := strings.TrimSuffix(term, "*")
	switch t {
	case "Покупател":
		return "Покупатель"
	case "Исполнител":
		return "Исполнитель"
	}
	return t
}

// Resolve applies configured overrides on top of the built-in policy.
func Resolve(st ir.SectionType, overrides map[string]config.SectionOverride) Policy {
	p := Default(st)
	o, ok := overrides[string(st)]
	if !ok {
		return p
	}
	if o.MinSubpoints != nil {
		p.MinSubpoints = *o.MinSubpoints
	}
	if o.NumberingPrefix != nil {
		p.Prefix = strings.TrimSpace(*o.NumberingPrefix)
		if p.Prefix == "" {
			p.Numbering = NumberingFlat
		} else {
			p.Numbering = NumberingNested
		}
	}
	if o.MinLength != nil {
		p.MinLength = *o.MinLength
	}
	if o.MaxLength != nil {
		p.MaxLength = *o.MaxLength
	}
	switch LengthUnit(o.LengthUnit) {
	case CharsNoSpaces, Tokens:
		p.LengthUnit = LengthUnit(o.LengthUnit)
	}
	if len(o.BannedTopics) > 0 {
		banned := make(map[ir.Language][]string, len(p.Banned))
		for lang, terms := range p.Banned {
			banned[lang] = terms
		}
		for lang, terms := range o.BannedTopics {
			banned[ir.Language(strings.ToLower(lang))] = terms
		}
		p.Banned = banned
	}
	p.DisabledRules = append(p.DisabledRules, o.DisabledRules...)
	return p
}
