package validator

import (
	"fmt"
	"strings"
	"testing"

	"clausegen/internal/config"
	"clausegen/internal/ir"
	"clausegen/internal/policy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paymentDraft builds a nested "1.i." draft of n subpoints. The first line
// carries the term and currency.
func paymentDraft(n int, extra ...string) string {
	var sb strings.Builder
	sb.WriteString("Payment Terms\n")
	for i := 1; i <= n; i++ {
		body := fmt.Sprintf("The Buyer shall observe payment obligation number %d as agreed with the Supplier in writing.", i)
		if i == 1 {
			body = "The Buyer shall pay each invoice within 30 days in USD after receipt of the goods."
		}
		fmt.Fprintf(&sb, "1.%d. %s\n", i, body)
	}
	for _, e := range extra {
		sb.WriteString(e + "\n")
	}
	return sb.String()
}

var paymentVars = ir.Variables{"payment_term_days": 30, "currency": "USD"}

func TestValidate_PassingDraft(t *testing.T) {
	e := NewEngine(nil)
	res := e.Validate(paymentDraft(20), ir.SectionPaymentTerms, ir.LangEN, paymentVars)
	assert.True(t, res.Passed, res.Summary())
	assert.Empty(t, res.Failures)
}

func TestValidate_ReportsEveryFailure(t *testing.T) {
	e := NewEngine(nil)
	draft := paymentDraft(12, "Any claim shall be referred to arbitration.")
	res := e.Validate(draft, ir.SectionPaymentTerms, ir.LangEN, paymentVars)

	require.False(t, res.Passed)
	ids := res.RuleIDs()
	assert.Contains(t, ids, RuleCount)
	assert.Contains(t, ids, RuleBanned)
	assert.NotContains(t, ids, RuleFormat)

	for _, f := range res.Failures {
		if f.RuleID == RuleCount {
			assert.Contains(t, f.Message, "found 12")
		}
		if f.RuleID == RuleBanned {
			assert.Contains(t, f.Message, "arbitration")
		}
	}
}

func TestValidate_EmptyDraft(t *testing.T) {
	res := NewEngine(nil).Validate("   \n", ir.SectionPaymentTerms, ir.LangEN, paymentVars)
	assert.Equal(t, []string{RuleEmpty, RuleCount, RuleFormat, RuleLength, RuleConsistency}, res.RuleIDs())
}

func TestValidate_FormatGap(t *testing.T) {
	draft := strings.Replace(paymentDraft(20), "1.3. ", "1.4. ", 1)
	res := NewEngine(nil).Validate(draft, ir.SectionPaymentTerms, ir.LangEN, paymentVars)
	assert.Equal(t, []string{RuleFormat}, res.RuleIDs())
	assert.Contains(t, res.Failures[0].Message, `"1.4."`)
	assert.Contains(t, res.Failures[0].Message, `"1.3."`)
}

func TestValidate_ConditionalBans(t *testing.T) {
	e := NewEngine(nil)
	draft := paymentDraft(20, "Late payment penalty is 0.1% per day.")

	res := e.Validate(draft, ir.SectionPaymentTerms, ir.LangEN, paymentVars)
	assert.Equal(t, []string{RuleBanned}, res.RuleIDs())

	vars := ir.Variables{"payment_term_days": 30, "currency": "USD", "late_payment_penalty_enabled": true}
	res = e.Validate(draft, ir.SectionPaymentTerms, ir.LangEN, vars)
	assert.True(t, res.Passed, res.Summary())
}

func TestValidate_PaymentTermsRejectDisputesAndLiability(t *testing.T) {
	e := NewEngine(nil)

	en := paymentDraft(20, "Any dispute regarding an invoice is settled by negotiation.")
	res := e.Validate(en, ir.SectionPaymentTerms, ir.LangEN, paymentVars)
	require.Equal(t, []string{RuleBanned}, res.RuleIDs())
	assert.Contains(t, res.Failures[0].Message, "dispute")

	en = paymentDraft(20, "The Buyer bears liability for delayed transfers.")
	res = e.Validate(en, ir.SectionPaymentTerms, ir.LangEN, paymentVars)
	require.Equal(t, []string{RuleBanned}, res.RuleIDs())
	assert.Contains(t, res.Failures[0].Message, "liabilit")

	assert.True(t, findTerm("Все споры по счетам решаются переговорами.", "споры", true))
	assert.True(t, findTerm("Покупатель несет ответственность за просрочку.", "ответственност*", true))
	assert.False(t, findTerm("Спортивный инвентарь оплачивается заранее.", "спор", true))

	banned := policy.Default(ir.SectionPaymentTerms).BannedTerms(ir.LangRU, ir.Variables{})
	assert.Contains(t, banned, "споры")
	assert.Contains(t, banned, "ответственност*")
}

func TestValidate_Consistency(t *testing.T) {
	vars := ir.Variables{"payment_term_days": 45, "currency": "EUR", "bank_details_included": false}
	res := NewEngine(nil).Validate(paymentDraft(20), ir.SectionPaymentTerms, ir.LangEN, vars)
	require.Equal(t, []string{RuleConsistency}, res.RuleIDs())
	assert.Contains(t, res.Failures[0].Message, "payment_term_days=45")
	assert.Contains(t, res.Failures[0].Message, "currency=EUR")
}

func TestValidate_Placeholders(t *testing.T) {
	draft := paymentDraft(20, "The price is <AMOUNT> payable to [PARTY_NAME].")
	res := NewEngine(nil).Validate(draft, ir.SectionPaymentTerms, ir.LangEN, paymentVars)
	require.Equal(t, []string{RulePlaceholder}, res.RuleIDs())
	assert.Contains(t, res.Failures[0].Message, "<AMOUNT>")
	assert.Contains(t, res.Failures[0].Message, "[PARTY_NAME]")
}

func TestValidate_Repetition(t *testing.T) {
	dup := "The Buyer shall observe payment obligation number 5 as agreed with the Supplier in writing."
	draft := strings.Replace(paymentDraft(20),
		"observe payment obligation number 6 as", "observe payment obligation number 5 as", 1)
	require.Equal(t, 2, strings.Count(draft, dup))

	res := NewEngine(nil).Validate(draft, ir.SectionPaymentTerms, ir.LangEN, paymentVars)
	assert.Equal(t, []string{RuleRepetition}, res.RuleIDs())
}

func TestValidate_PartyTerms(t *testing.T) {
	e := NewEngine(nil)

	draft := paymentDraft(20, "The Customer may request copies of documents.")
	res := e.Validate(draft, ir.SectionPaymentTerms, ir.LangEN, paymentVars)
	require.Equal(t, []string{RulePartyTerms}, res.RuleIDs())
	assert.Contains(t, res.Failures[0].Message, "Customer")

	ru := "1.1. Покупатель оплачивает товар в течение 30 дней.\n1.2. Заказчик вправе запросить акт сверки."
	in := &Input{Text: ru, Language: ir.LangRU, Policy: e.Policy(ir.SectionPaymentTerms)}
	f := checkPartyTerms(in)
	require.NotNil(t, f)
	assert.Contains(t, f.Message, "Покупатель")
	assert.Contains(t, f.Message, "Заказчик")

	in.Text = "1.1. Покупателю направляется счет.\n1.2. Поставщиком выставляется акт."
	assert.Nil(t, checkPartyTerms(in))
}

func TestValidate_DisabledRuleAndOverrides(t *testing.T) {
	minSub := 12
	e := NewEngine(map[string]config.SectionOverride{
		"payment_terms": {MinSubpoints: &minSub, DisabledRules: []string{"banned_topic"}},
	})
	draft := paymentDraft(12, "Any claim shall be referred to arbitration.")
	res := e.Validate(draft, ir.SectionPaymentTerms, ir.LangEN, paymentVars)
	assert.True(t, res.Passed, res.Summary())

	for _, r := range e.RuleSet(ir.SectionPaymentTerms).Rules {
		assert.NotEqual(t, RuleBanned, r.ID())
	}
}

type alwaysFail struct{}

func (alwaysFail) ID() string            { return "custom" }
func (alwaysFail) Check(*Input) *Failure { return &Failure{RuleID: "custom", Message: "nope"} }

func TestEngine_RegisterCustomRule(t *testing.T) {
	e := NewEngine(nil)
	e.Register(ir.SectionPaymentTerms, alwaysFail{})
	res := e.Validate(paymentDraft(20), ir.SectionPaymentTerms, ir.LangEN, paymentVars)
	assert.Equal(t, []string{"custom"}, res.RuleIDs())

	res = e.Validate(paymentDraft(20), ir.SectionDeliveryTerms, ir.LangEN, paymentVars)
	assert.NotContains(t, res.RuleIDs(), "custom")
}

func TestSubpoints(t *testing.T) {
	text := "Title\n1.1. First\n  1.2 Second\n30 days are granted\n3) Third\n12.5% is not a label\n4.\n"
	sps := Subpoints(text)
	require.Len(t, sps, 4)
	assert.Equal(t, "1.1.", sps[0].Label)
	assert.Equal(t, "First", sps[0].Body)
	assert.Equal(t, 2, sps[0].Line)
	assert.Equal(t, "1.2", sps[1].Label)
	assert.Equal(t, []string{"1", "2"}, sps[1].Parts)
	assert.Equal(t, "3)", sps[2].Label)
	assert.Equal(t, "4.", sps[3].Label)
	assert.Empty(t, sps[3].Body)
}

func TestFindTerm(t *testing.T) {
	assert.True(t, findTerm("Неустойка составляет 0,1%", "неусто*", true))
	assert.True(t, findTerm("спор передается в суд", "суд", true))
	assert.False(t, findTerm("груз доставляется судном", "суд", true))
	assert.False(t, findTerm("the prepayment amount", "payment", true))
	assert.True(t, findTerm("SHIPMENT NOTICE", "shipment", true))
	assert.False(t, findTerm("SHIPMENT NOTICE", "shipment", false))
	assert.True(t, findTerm("отгрузка товара", "отгрузк*", true))
}

func TestMeasure(t *testing.T) {
	assert.Equal(t, 9, Measure("abc def\n ghi", "chars_no_spaces"))
	assert.Equal(t, 3, Measure("abc def\n ghi", "tokens"))
}
