package retrieval

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"clausegen/internal/corpus"
	"clausegen/internal/ir"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadIndex(t *testing.T, recs ...ir.Record) *corpus.Index {
	t.Helper()
	ix := corpus.NewIndex()
	_, err := ix.Load(recs)
	require.NoError(t, err)
	return ix
}

func enPayment(contract, text string) ir.Record {
	return ir.Record{SectionType: "payment_terms", Language: "en", ContractID: contract, Text: text}
}

func TestRank_ScoresAndTieBreaks(t *testing.T) {
	ix := loadIndex(t,
		enPayment("c1", "Delivery is made by truck to the warehouse of the buyer."),
		enPayment("c2", "Invoice payment is due within thirty days by bank transfer."),
		enPayment("c3", "Warehouse storage rules."),
		enPayment("c4", "Invoice payment due."),
	)
	pool := ix.Search(ir.SectionPaymentTerms, ir.LangEN)
	ranked := Rank([]string{"invoice", "payment", "bank"}, pool, 1.5, 0.75)
	require.Len(t, ranked, 4)

	assert.Equal(t, "c2", ranked[0].Section.ContractID)
	assert.Equal(t, "c4", ranked[1].Section.ContractID)
	assert.Greater(t, ranked[0].Score, 0.0)
	// Zero scores keep order by shorter length, then insertion order.
	assert.Equal(t, 0.0, ranked[2].Score)
	assert.Equal(t, "c3", ranked[2].Section.ContractID)
	assert.Equal(t, "c1", ranked[3].Section.ContractID)
}

func TestRank_EqualScoresPreferEarlierInsertion(t *testing.T) {
	ix := loadIndex(t,
		enPayment("a", "payment by transfer"),
		enPayment("b", "payment by transfer"),
	)
	ranked := Rank([]string{"payment"}, ix.Search(ir.SectionPaymentTerms, ir.LangEN), 1.5, 0.75)
	assert.Equal(t, "a", ranked[0].Section.ContractID)
	assert.Equal(t, "b", ranked[1].Section.ContractID)
	assert.Equal(t, ranked[0].Score, ranked[1].Score)
}

func TestRetrieve_IsDeterministic(t *testing.T) {
	var recs []ir.Record
	for i := 0; i < 30; i++ {
		recs = append(recs, enPayment(fmt.Sprintf("c%02d", i),
			fmt.Sprintf("Payment %d of the invoice shall be made by bank transfer within %d days; clause %d.", i, i+5, i%4)))
	}
	q := Query{SectionType: ir.SectionPaymentTerms, Language: ir.LangEN, Variables: ir.Variables{"currency": "USD"}}

	run := func() []string {
		r := New(loadIndex(t, recs...), DefaultParams())
		cands, err := r.Retrieve(q)
		require.NoError(t, err)
		out := make([]string, 0, len(cands))
		for _, c := range cands {
			out = append(out, fmt.Sprintf("%s|%.12f|%s", c.Section.ID, c.Score, c.MaskedText))
		}
		return out
	}
	first := run()
	for i := 0; i < 5; i++ {
		if diff := cmp.Diff(first, run()); diff != "" {
			t.Fatalf("retrieval changed between runs (-first +again):\n%s", diff)
		}
	}
}

func TestRetrieve_EmptyPool(t *testing.T) {
	r := New(loadIndex(t, enPayment("c1", "Payment within 30 days.")), DefaultParams())
	cands, err := r.Retrieve(Query{SectionType: ir.SectionDeliveryTerms, Language: ir.LangRU})
	require.NoError(t, err)
	assert.NotNil(t, cands)
	assert.Empty(t, cands)

	_, err = r.Retrieve(Query{})
	assert.Error(t, err)
}

func TestRetrieve_DiversifiesNearDuplicates(t *testing.T) {
	base := "Buyer shall pay each invoice within 30 days by bank transfer in USD without set-off."
	ix := loadIndex(t,
		enPayment("c1", base),
		enPayment("c2", base+" Invoice"),
		enPayment("c3", "Advance payment of 50% is due upon signing; balance upon delivery against invoice."),
	)
	r := New(ix, DefaultParams())
	cands, err := r.Retrieve(Query{SectionType: ir.SectionPaymentTerms, Language: ir.LangEN})
	require.NoError(t, err)
	require.Len(t, cands, 2)
	ids := []string{cands[0].Section.ContractID, cands[1].Section.ContractID}
	assert.Contains(t, ids, "c3")
	assert.False(t, (ids[0] == "c1" || ids[1] == "c1") && (ids[0] == "c2" || ids[1] == "c2"))
}

func TestDiversify_OnePerContract(t *testing.T) {
	ix := loadIndex(t,
		enPayment("same", "payment alpha beta"),
		enPayment("same", "invoice gamma delta"),
		enPayment("other", "transfer epsilon zeta"),
	)
	ranked := Rank([]string{"payment", "invoice", "transfer"}, ix.Search(ir.SectionPaymentTerms, ir.LangEN), 1.5, 0.75)

	kept := Diversify(ranked, 10, 3, 0.55, true)
	assert.Len(t, kept, 2)

	kept = Diversify(ranked, 10, 3, 0.55, false)
	assert.Len(t, kept, 3)

	kept = Diversify(ranked, 1, 3, 0.55, false)
	assert.Len(t, kept, 1)

	assert.Empty(t, Diversify(ranked, 10, 0, 0.55, false))
	assert.Empty(t, Diversify(ranked, 10, -1, 0.55, false))
	assert.Empty(t, Diversify(ranked, -3, 3, 0.55, false))

	params := DefaultParams()
	params.N = -1
	cands, err := New(ix, params).Retrieve(Query{SectionType: ir.SectionPaymentTerms, Language: ir.LangEN})
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestDiversify_NoPairAboveThreshold(t *testing.T) {
	vocab := []string{"payment", "invoice", "bank", "transfer", "currency", "days"}
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("kept sections are pairwise below the similarity threshold", prop.ForAll(
		func(docs [][]int, thresholdPct int) bool {
			var recs []ir.Record
			for i, d := range docs {
				words := make([]string, 0, len(d)+1)
				for _, w := range d {
					words = append(words, vocab[w])
				}
				words = append(words, "clause")
				recs = append(recs, enPayment(fmt.Sprintf("c%d", i), strings.Join(words, " ")))
			}
			ix := corpus.NewIndex()
			if _, err := ix.Load(recs); err != nil {
				return false
			}
			threshold := float64(thresholdPct) / 100
			ranked := Rank([]string{"payment", "bank"}, ix.Search(ir.SectionPaymentTerms, ir.LangEN), 1.5, 0.75)
			kept := Diversify(ranked, len(ranked), len(ranked), threshold, false)
			for i := range kept {
				for j := i + 1; j < len(kept); j++ {
					if corpus.Jaccard(kept[i].Section, kept[j].Section) > threshold {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.SliceOf(gen.IntRange(0, 5))),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

func TestMask_RemovesEveryLiteral(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("masked text keeps no exact amount literal", prop.ForAll(
		func(amount int, days int) bool {
			text := fmt.Sprintf("The price is %d USD. Pay %d within %d days. Again: %d.", amount, amount, days, amount)
			masked, n := Mask(text, ir.Variables{
				"contract_amount":   float64(amount),
				"payment_term_days": float64(days),
				"currency":          "USD",
			})
			return n >= 5 &&
				!strings.Contains(masked, strconv.Itoa(amount)) &&
				!strings.Contains(masked, "USD")
		},
		gen.IntRange(1000, 9999999),
		gen.IntRange(1, 99),
	))

	properties.TestingRun(t)
}

func TestMask_Renderings(t *testing.T) {
	text := "Покупатель оплачивает 1 500 000,00 рублей до 05.03.2024 г. ООО «Ромашка» обязуется."
	masked, n := Mask(text, ir.Variables{
		"contract_amount": 1500000.0,
		"currency":        "RUB",
		"payment_date":    "2024-03-05",
		"supplier_name":   `ООО «Ромашка»`,
		"prepayment":      true,
	})
	assert.Equal(t, "Покупатель оплачивает <AMOUNT> <CURRENCY> до <DATE> г. <PARTY_NAME> обязуется.", masked)
	assert.Equal(t, 4, n)
}

func TestMaskGeneric(t *testing.T) {
	text := "Оплата 100% в течение 10 (десяти) банковских дней, сумма 250 000 USD; неустойка 0,1 % за день."
	masked, n := MaskGeneric(text)
	assert.Equal(t, "Оплата <PERCENT> в течение <TERM_DAYS> (десяти) банковских дней, сумма <AMOUNT> <CURRENCY>; неустойка <PERCENT> за день.", masked)
	assert.Equal(t, 5, n)

	same, n := MaskGeneric("See clause 2.1 of the Contract.")
	assert.Equal(t, "See clause 2.1 of the Contract.", same)
	assert.Zero(t, n)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short.", Truncate("  short.  ", 100))

	long := strings.Repeat("a", 70) + ". " + strings.Repeat("b", 50)
	got := Truncate(long, 100)
	assert.Equal(t, strings.Repeat("a", 70)+".", got)

	noBoundary := strings.Repeat("c", 150)
	got = Truncate(noBoundary, 100)
	assert.Equal(t, strings.Repeat("c", 100)+"…", got)
}

func TestQueryTerms(t *testing.T) {
	tok := corpus.NewTokenizer(nil)
	q := Query{
		SectionType:   ir.SectionPaymentTerms,
		Language:      ir.LangEN,
		Variables:     ir.Variables{"prepayment_required": true, "incoterms": "DAP Moscow", "contract_amount": 100.0},
		FreeTextTerms: []string{"escrow", "invoice"},
	}
	terms := q.Terms(tok)
	assert.Contains(t, terms, "advance")
	assert.Contains(t, terms, "escrow")
	assert.Contains(t, terms, "dap")
	assert.NotContains(t, terms, "100")

	seen := map[string]int{}
	for _, term := range terms {
		seen[term]++
	}
	assert.Equal(t, 1, seen["invoice"])
}
