package prompt

import (
	"strings"
	"testing"

	"clausegen/internal/ir"
	"clausegen/internal/policy"
	"clausegen/internal/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paymentRequest(lang ir.Language, precedents ...string) Request {
	return Request{
		Section:  ir.SectionPaymentTerms,
		Language: lang,
		Variables: ir.Variables{
			"payment_term_days":     30,
			"currency":              "USD",
			"payment_trigger":       "invoice_date",
			"bank_details_included": false,
		},
		Policy:     policy.Default(ir.SectionPaymentTerms),
		Precedents: precedents,
	}
}

func TestBuild_English(t *testing.T) {
	p := Build(paymentRequest(ir.LangEN, "The Buyer shall pay <AMOUNT> within <TERM_DAYS> days."))
	out := p.Render()

	assert.Contains(t, out, `Generate the contract section "Payment Terms"`)
	assert.Contains(t, out, "AT LEAST 20 numbered subclauses")
	assert.Contains(t, out, "strictly 1.1., 1.2., ...")
	assert.Contains(t, out, "at least 850 characters excluding spaces")
	assert.Contains(t, out, "- payment_trigger: invoice_date (from the invoice date)")
	assert.Contains(t, out, "- bank_details_included: no")
	assert.Contains(t, out, `"Buyer" and "Supplier"`)
	assert.Contains(t, out, `"Customer"`)
	assert.Contains(t, out, "arbitration")
	assert.Contains(t, out, "iban")
	assert.Contains(t, out, "[1]\nThe Buyer shall pay <AMOUNT> within <TERM_DAYS> days.")
	assert.Contains(t, out, "Write in English.")
	assert.NotContains(t, out, "previous draft")
	assert.True(t, strings.HasSuffix(out, "(without a heading)."))

	// parameters are listed sorted by name
	iBank := strings.Index(out, "- bank_details_included")
	iCur := strings.Index(out, "- currency")
	iTerm := strings.Index(out, "- payment_term_days")
	assert.True(t, iBank < iCur && iCur < iTerm)
}

func TestBuild_Russian(t *testing.T) {
	p := Build(paymentRequest(ir.LangRU))
	out := p.Render()

	assert.Contains(t, out, `"Порядок расчетов"`)
	assert.Contains(t, out, "НЕ МЕНЕЕ 20 подпунктов")
	assert.Contains(t, out, `"Покупатель" и "Поставщик"`)
	assert.Contains(t, out, `"Исполнитель"`)
	assert.Contains(t, out, "Прецеденты для этого раздела отсутствуют")
	assert.Contains(t, out, "Пиши на русском.")
	assert.Contains(t, p.System(), "Не копируй реквизиты")
}

func TestBuild_Pure(t *testing.T) {
	a := Build(paymentRequest(ir.LangEN, "one", "two"))
	b := Build(paymentRequest(ir.LangEN, "one", "two"))
	assert.Equal(t, a, b)
	assert.Equal(t, a.Render(), b.Render())
}

func TestBuild_ConditionalBansFollowFlags(t *testing.T) {
	req := paymentRequest(ir.LangEN)
	req.Variables["bank_details_included"] = true
	req.Variables["late_payment_penalty_enabled"] = true
	p := Build(req)
	assert.NotContains(t, p.Forbidden, "iban")
	assert.NotContains(t, p.Forbidden, "penalty")
	assert.Contains(t, p.Forbidden, "arbitration")
}

func TestWithFeedback(t *testing.T) {
	base := Build(paymentRequest(ir.LangEN))
	before := base.Render()

	amended := base.WithFeedback([]validator.Failure{
		{RuleID: "count", Message: "found 12 numbered subpoints, at least 20 required"},
	})
	out := amended.Render()

	assert.Equal(t, before, base.Render())
	assert.Empty(t, base.Feedback)
	require.Len(t, amended.Feedback, 1)
	assert.Contains(t, out, "The previous draft failed validation:")
	assert.Contains(t, out, "- count: found 12 numbered subpoints")
	assert.Contains(t, out, "AT LEAST 20 subclauses formatted strictly as 1.1., 1.2., ...")
	assert.Contains(t, out, "within Payment Terms only")
	assert.True(t, strings.HasPrefix(out, before[:strings.Index(before, "Write in English.")]))
}

func TestSystem_OtherSection(t *testing.T) {
	p := Build(Request{Section: ir.SectionDisputesGoverningLaw, Language: ir.LangEN, Policy: policy.Default(ir.SectionDisputesGoverningLaw)})
	assert.Contains(t, p.System(), "Do not copy amounts, dates")
	assert.Contains(t, p.Render(), "- (none provided)")
	assert.Contains(t, p.Render(), "4.1., 4.2.")
}
