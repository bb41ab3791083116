package corpus

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"clausegen/internal/ir"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(st ir.SectionType, lang ir.Language, contract, text string) ir.Record {
	return ir.Record{SectionType: string(st), Language: string(lang), ContractID: contract, Text: text}
}

func TestTokenizer_Normalization(t *testing.T) {
	tok := NewTokenizer(nil)
	got := tok.Tokens("Оплата ЁЛКИ производится в течение 30 (тридцати) дней.", ir.LangRU)
	assert.Equal(t, []string{"оплата", "елки", "производится", "течение", "30", "тридцати", "дней"}, got)

	got = tok.Tokens("The Buyer shall pay the Invoice, net-30.", ir.LangEN)
	assert.Equal(t, []string{"buyer", "shall", "pay", "invoice", "net", "30"}, got)

	custom := NewTokenizer(map[ir.Language][]string{ir.LangEN: {"shall"}})
	assert.Equal(t, []string{"the", "buyer", "pay"}, custom.Tokens("the buyer shall pay", ir.LangEN))
}

func TestIndex_LoadAndSearch(t *testing.T) {
	ix := NewIndex()
	n, err := ix.Load([]ir.Record{
		rec(ir.SectionPaymentTerms, ir.LangEN, "c1", "Payment within 30 days of invoice."),
		rec(ir.SectionDeliveryTerms, ir.LangEN, "c1", "Delivery DAP Moscow."),
		rec(ir.SectionPaymentTerms, ir.LangRU, "c2", "Оплата в течение 10 дней."),
		rec(ir.SectionPaymentTerms, ir.LangEN, "c3", "Prepayment of 50 percent."),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, ix.Len())

	hits := ix.Search(ir.SectionPaymentTerms, ir.LangEN)
	require.Len(t, hits, 2)
	assert.Equal(t, "c1", hits[0].ContractID)
	assert.Equal(t, "c3", hits[1].ContractID)
	assert.Less(t, hits[0].Seq(), hits[1].Seq())

	assert.Empty(t, ix.Search(ir.SectionDisputesGoverningLaw, ir.LangEN))

	st := ix.Stats()
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 3, st.Contracts)
	assert.Equal(t, 2, st.ByKey["payment_terms/en"])
	assert.Equal(t, []string{"delivery_terms/en", "payment_terms/en", "payment_terms/ru"}, st.Keys())
}

func TestIndex_LoadStopsAtFirstMalformedRecord(t *testing.T) {
	ix := NewIndex()
	n, err := ix.Load([]ir.Record{
		rec(ir.SectionPaymentTerms, ir.LangEN, "c1", "Payment within 30 days."),
		{SectionType: "payment_terms", Language: "en", Text: "No contract id."},
		rec(ir.SectionPaymentTerms, ir.LangEN, "c3", "Never loaded."),
	})
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, ix.Len())
	assert.True(t, errors.Is(err, ErrCorpusFormat))

	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 1, fe.Record)
	assert.Equal(t, "contract_id", fe.Field)
}

func TestIndex_RejectsUnknownLanguageAndType(t *testing.T) {
	_, err := NewIndex().Load([]ir.Record{{SectionType: "payment_terms", Language: "de", Text: "x", ContractID: "c"}})
	assert.ErrorIs(t, err, ErrCorpusFormat)

	_, err = NewIndex().Load([]ir.Record{{SectionType: "warranty", Language: "en", Text: "x", ContractID: "c"}})
	assert.ErrorIs(t, err, ErrCorpusFormat)
}

func TestIndex_LowSignalSectionStillIndexed(t *testing.T) {
	ix := NewIndex()
	_, err := ix.Load([]ir.Record{rec(ir.SectionPaymentTerms, ir.LangEN, "c1", "--- the and of ---")})
	require.NoError(t, err)

	hits := ix.Search(ir.SectionPaymentTerms, ir.LangEN)
	require.Len(t, hits, 1)
	assert.True(t, hits[0].LowSignal())
	assert.Equal(t, 1, ix.Stats().LowSignal)
}

func TestReadJSONL(t *testing.T) {
	input := strings.Join([]string{
		`{"section_type":"payment_terms","language":"en","text":"Pay in 30 days.","contract_id":"c1"}`,
		``,
		`{"section_type":"delivery_terms","language":"ru","text":"Поставка DAP.","contract_id":"c2","title":"Условия поставки"}`,
		`{"section_type":`,
		`{"section_type":"payment_terms","language":"en","text":"Never read.","contract_id":"c3"}`,
	}, "\n")

	recs, err := ReadJSONL(strings.NewReader(input))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorpusFormat)
	require.Len(t, recs, 2)
	assert.Equal(t, "Условия поставки", recs[1].Title)

	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 4, fe.Line)
	assert.Equal(t, 1, recs[0].Line)
	assert.Equal(t, 3, recs[1].Line)
}

func TestIndex_LoadReportsJSONLLine(t *testing.T) {
	input := strings.Join([]string{
		`{"section_type":"payment_terms","language":"en","text":"Pay in 30 days.","contract_id":"c1"}`,
		``,
		``,
		`{"section_type":"payment_terms","language":"de","text":"Zahlung.","contract_id":"c2"}`,
	}, "\n")
	recs, err := ReadJSONL(strings.NewReader(input))
	require.NoError(t, err)

	_, err = NewIndex().Load(recs)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 1, fe.Record)
	assert.Equal(t, 4, fe.Line)
	assert.Equal(t, "language", fe.Field)
	assert.Contains(t, err.Error(), "at line 4")
}

func TestJaccard(t *testing.T) {
	ix := NewIndex()
	_, err := ix.Load([]ir.Record{
		rec(ir.SectionPaymentTerms, ir.LangEN, "a", "alpha beta gamma"),
		rec(ir.SectionPaymentTerms, ir.LangEN, "b", "alpha beta delta"),
		rec(ir.SectionPaymentTerms, ir.LangEN, "c", "the of"),
		rec(ir.SectionPaymentTerms, ir.LangEN, "d", "and"),
	})
	require.NoError(t, err)
	s := ix.Search(ir.SectionPaymentTerms, ir.LangEN)
	assert.InDelta(t, 0.5, Jaccard(s[0], s[1]), 1e-9)
	assert.Equal(t, 1.0, Jaccard(s[0], s[0]))
	assert.Equal(t, 0.0, Jaccard(s[2], s[3]))
}

func TestIndex_ConcurrentSearch(t *testing.T) {
	ix := NewIndex()
	_, err := ix.Load([]ir.Record{
		rec(ir.SectionPaymentTerms, ir.LangEN, "c1", "Payment within 30 days."),
		rec(ir.SectionPaymentTerms, ir.LangEN, "c2", "Payment within 10 days."),
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Len(t, ix.Search(ir.SectionPaymentTerms, ir.LangEN), 2)
		}()
	}
	wg.Wait()
}

func TestIndex_TokenDataIsDeterministic(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("same text yields same tokens in separate indexes", prop.ForAll(
		func(words []string) bool {
			text := strings.Join(words, " ")
			if strings.TrimSpace(text) == "" {
				text = "x"
			}
			r := []ir.Record{rec(ir.SectionPaymentTerms, ir.LangEN, "c", text)}
			a, b := NewIndex(), NewIndex()
			if _, err := a.Load(r); err != nil {
				return false
			}
			if _, err := b.Load(r); err != nil {
				return false
			}
			ta := a.Search(ir.SectionPaymentTerms, ir.LangEN)[0].Tokens()
			tb := b.Search(ir.SectionPaymentTerms, ir.LangEN)[0].Tokens()
			return strings.Join(ta, "|") == strings.Join(tb, "|")
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}
