package cleaner

import (
	"strings"
	"testing"

	"clausegen/internal/retrieval"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cand(text string, score float64) retrieval.Candidate {
	return retrieval.Candidate{MaskedText: text, Score: score}
}

func TestCleanText(t *testing.T) {
	c := New(Options{MinChars: 0, DedupeWindow: 30}, nil)

	in := "ПОРЯДОК РАСЧЕТОВ\n" +
		"PAYMENT TERMS\n" +
		"\n" +
		"1.1.   Покупатель  оплачивает «Товар» в течение <TERM_DAYS> дней — без зачёта.\r\n" +
		"Page 3 of 10\n" +
		"- 4 -\n" +
		"12\n" +
		"1.2. Оплата производится в <CURRENCY>.\n" +
		"1.1. Покупатель оплачивает \"Товар\" в течение <TERM_DAYS> дней - без зачёта.\n"

	want := "1.1. Покупатель оплачивает \"Товар\" в течение <TERM_DAYS> дней - без зачёта.\n" +
		"1.2. Оплата производится в <CURRENCY>."
	assert.Equal(t, want, c.CleanText(in))
}

func TestCleanText_PlaceholdersDoNotMakeCapsHeadings(t *testing.T) {
	c := New(Options{}, nil)
	in := "<AMOUNT> <CURRENCY> is payable by Buyer\nSecond line."
	assert.Equal(t, in, c.CleanText(in))

	// A line made only of placeholders has no letters of its own.
	in = "<AMOUNT> <CURRENCY>\nSecond line."
	assert.Equal(t, in, c.CleanText(in))
}

func TestCleanText_DedupeWindow(t *testing.T) {
	c := New(Options{DedupeWindow: 2}, nil)
	in := "alpha line\nbeta line\ngamma line\nalpha line\nAlpha Line"
	// The second "alpha line" is outside the window of 2 kept lines; the
	// case variant right after it is a duplicate.
	assert.Equal(t, "alpha line\nbeta line\ngamma line\nalpha line", c.CleanText(in))
}

func TestClean_DropsShortAndDuplicatesWithoutReordering(t *testing.T) {
	c := New(Options{MinChars: 20, DedupeWindow: 30}, nil)
	long := "The Buyer pays within <TERM_DAYS> days."
	out, rep := c.Clean([]retrieval.Candidate{
		cand("tiny", 9),
		cand(long, 1),
		cand("Prepayment of <PERCENT> is due on signing.", 5),
		cand(strings.ToUpper(long[:1])+long[1:]+"\n", 3),
		cand("the buyer pays within <TERM_DAYS> days.", 2),
	})

	require.Len(t, out, 2)
	assert.Equal(t, "Prepayment of <PERCENT> is due on signing.", out[0].MaskedText)
	assert.Equal(t, long, out[1].MaskedText)
	assert.Equal(t, 3.0, out[1].Score, "highest-scored duplicate survives")

	assert.Equal(t, Report{Input: 5, Output: 2, DroppedShort: 1, DroppedDuplicates: 2}, rep)
}

func TestClean_Idempotent(t *testing.T) {
	lines := []string{
		"ARTICLE 5. PAYMENT",
		"Page 2 of 9",
		"  1.1. Buyer pays «in full» — within <TERM_DAYS> days.  ",
		"1.2. Invoices are issued in <CURRENCY>.",
		"1.2. invoices are issued in <CURRENCY>.",
		"",
		"Оплата производится банковским переводом.",
		"17",
		"<AMOUNT>",
		"НДС",
	}
	c := New(Options{MinChars: 15, DedupeWindow: 3}, nil)

	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("clean(clean(x)) == clean(x)", prop.ForAll(
		func(docs [][]int, scores []int) bool {
			var in []retrieval.Candidate
			for i, d := range docs {
				var parts []string
				for _, idx := range d {
					parts = append(parts, lines[idx])
				}
				score := 0.0
				if i < len(scores) {
					score = float64(scores[i])
				}
				in = append(in, cand(strings.Join(parts, "\n"), score))
			}
			once, _ := c.Clean(in)
			twice, rep := c.Clean(once)
			if len(once) != len(twice) || rep.DroppedShort != 0 || rep.DroppedDuplicates != 0 {
				return false
			}
			for i := range once {
				if once[i].MaskedText != twice[i].MaskedText || once[i].Score != twice[i].Score {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.SliceOf(gen.IntRange(0, len(lines)-1))),
		gen.SliceOf(gen.IntRange(0, 5)),
	))
	properties.TestingRun(t)
}
