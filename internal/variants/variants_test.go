package variants

import (
	"testing"

	"clausegen/internal/ir"

	"github.com/stretchr/testify/assert"
)

func TestRenderings_Amount(t *testing.T) {
	got := Renderings(1500000.0, ir.ClassAmount)
	assert.Equal(t, "1500000", got[0])
	assert.Contains(t, got, "1 500 000")
	assert.Contains(t, got, "1,500,000")
	assert.Contains(t, got, "1,500,000.00")
	assert.Contains(t, got, "1 500 000,00")
}

func TestRenderings_Fraction(t *testing.T) {
	got := Renderings(12.5, ir.ClassPercent)
	assert.Contains(t, got, "12.5%")
	assert.Contains(t, got, "12,5 %")
}

func TestRenderings_Date(t *testing.T) {
	got := Renderings("2024-03-05", ir.ClassDate)
	assert.Contains(t, got, "05.03.2024")
	assert.Contains(t, got, "5 March 2024")
	assert.Contains(t, got, "5 марта 2024")
	assert.Contains(t, got, "March 5, 2024")

	got = Renderings("01.05.2024", ir.ClassDate)
	assert.Contains(t, got, "1 мая 2024")
	assert.Contains(t, got, "1 May 2024")
	assert.Contains(t, got, "2024-05-01")
	assert.NotContains(t, got, "5 января 2024")
	assert.True(t, ContainsAny("Поставка осуществляется до 1 мая 2024 года.", got))
	assert.False(t, ContainsAny("Поставка осуществляется до 5 января 2024 года.", got))

	assert.Contains(t, Renderings("5.3.2024", ir.ClassDate), "5 марта 2024")
}

func TestRenderings_CurrencyAndName(t *testing.T) {
	assert.Contains(t, Renderings("RUB", ir.ClassCurrency), "рублей")
	assert.Contains(t, Renderings(`ООО «Ромашка»`, ir.ClassPartyName), "ООО Ромашка")
	assert.Nil(t, Renderings(true, ir.ClassValue))
	assert.Nil(t, Renderings("", ir.ClassValue))
}

func TestFindAll_Boundaries(t *testing.T) {
	assert.Len(t, FindAll("within 30 days", "30"), 1)
	assert.Empty(t, FindAll("within 300 days", "30"))
	assert.Empty(t, FindAll("see clause 1.30.", "30"))
	assert.Empty(t, FindAll("total 1 500 000", "500"))
	assert.Len(t, FindAll("Оплата в РУБЛЯХ и рублях", "рублях"), 2)
	assert.Empty(t, FindAll("Acmeco Ltd", "Acme"))
}

func TestContainsAny_NonBreakingSpace(t *testing.T) {
	assert.True(t, ContainsAny("сумма 1\u00a0500\u00a0000 руб.", []string{"1 500 000"}))
	assert.False(t, ContainsAny("сумма 2 000 руб.", []string{"1 500 000"}))
}

func TestReplaceLongestFirst(t *testing.T) {
	text := "Pay 1 500 000 USD within 30 days; 30 days notice."
	out, n := ReplaceLongestFirst(text, []Needle{
		{Text: "1 500 000", Replacement: "<AMOUNT>"},
		{Text: "500", Replacement: "<VALUE>"},
		{Text: "USD", Replacement: "<CURRENCY>"},
		{Text: "30", Replacement: "<TERM_DAYS>"},
	})
	assert.Equal(t, "Pay <AMOUNT> <CURRENCY> within <TERM_DAYS> days; <TERM_DAYS> days notice.", out)
	assert.Equal(t, 4, n)
}
