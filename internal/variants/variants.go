// Package variants renders form values in the textual forms they take in
// contract prose (grouped numbers, localized dates, currency names) and finds
// those forms in text. Masking and the consistency rule share it so a value
// that is masked in a precedent is also recognized in a generated draft.
package variants

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"clausegen/internal/ir"

	"github.com/araddon/dateparse"
)

var ruMonthsGenitive = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

var currencyAliases = map[string][]string{
	"RUB": {"RUB", "руб.", "рублей", "рубля", "рубль", "российских рублей", "roubles", "rubles", "₽"},
	"USD": {"USD", "долларов США", "доллар США", "долларов", "US dollars", "U.S. dollars", "dollars", "$"},
	"EUR": {"EUR", "евро", "euro", "euros", "€"},
	"CNY": {"CNY", "юаней", "юань", "китайских юаней", "yuan", "renminbi"},
	"GBP": {"GBP", "фунтов стерлингов", "pounds sterling", "£"},
	"KZT": {"KZT", "тенге", "tenge"},
}

// Renderings returns the distinct textual forms of a value for its class.
// The canonical rendering always comes first.
func Renderings(raw any, class ir.VarClass) []string {
	canon := ir.FormatValue(raw)
	if canon == "" || !ir.Maskable(raw) {
		return nil
	}
	out := []string{canon}

	switch class {
	case ir.ClassCurrency:
		out = append(out, currencyAliases[strings.ToUpper(canon)]...)
	case ir.ClassDate:
		out = append(out, dateRenderings(canon)...)
	case ir.ClassPartyName:
		out = append(out, nameRenderings(canon)...)
	case ir.ClassPercent:
		if n, ok := parseNumber(raw); ok {
			for _, num := range numberRenderings(n, false) {
				out = append(out, num+"%", num+" %")
			}
		}
	case ir.ClassAmount:
		if n, ok := parseNumber(raw); ok {
			out = append(out, numberRenderings(n, true)...)
		}
	default:
		if n, ok := parseNumber(raw); ok {
			out = append(out, numberRenderings(n, false)...)
		}
	}
	return dedupe(out)
}

func parseNumber(raw any) (float64, bool) {
	switch x := raw.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(x), " ", "")
		f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func numberRenderings(n float64, money bool) []string {
	neg := n < 0
	digits, fs, _ := strings.Cut(strconv.FormatFloat(math.Abs(n), 'f', -1, 64), ".")

	var out []string
	groupings := []string{""}
	if len(digits) > 3 {
		groupings = []string{"", " ", ",", ".", "'"}
	}
	for _, sep := range groupings {
		intPart := group(digits, sep)
		if fs != "" {
			for _, dec := range []string{".", ","} {
				if dec == sep {
					continue
				}
				out = append(out, intPart+dec+fs)
			}
			continue
		}
		out = append(out, intPart)
		if money {
			for _, dec := range []string{".", ","} {
				if dec == sep {
					continue
				}
				out = append(out, intPart+dec+"00")
			}
		}
	}
	if neg {
		for i := range out {
			out[i] = "-" + out[i]
		}
	}
	return out
}

func group(digits, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// Dotted dates are day-first ("01.05.2024" is 1 May); dateparse would read
// them month-first.
var dottedLayouts = []string{"02.01.2006", "2.1.2006"}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dottedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return dateparse.ParseAny(s)
}

func dateRenderings(s string) []string {
	t, err := parseDate(s)
	if err != nil {
		return nil
	}
	return DateForms(t)
}

// DateForms lists the English and Russian renderings of a calendar date.
func DateForms(t time.Time) []string {
	return []string{
		t.Format("2006-01-02"),
		t.Format("02.01.2006"),
		t.Format("2.1.2006"),
		t.Format("02/01/2006"),
		t.Format("01/02/2006"),
		t.Format("2 January 2006"),
		t.Format("January 2, 2006"),
		t.Format("02 January 2006"),
		fmt.Sprintf("%d %s %d", t.Day(), ruMonthsGenitive[t.Month()-1], t.Year()),
		fmt.Sprintf("%02d %s %d", t.Day(), ruMonthsGenitive[t.Month()-1], t.Year()),
	}
}

func nameRenderings(s string) []string {
	replacer := strings.NewReplacer("«", `"`, "»", `"`, "“", `"`, "”", `"`, "„", `"`)
	straight := replacer.Replace(s)
	bare := strings.Join(strings.Fields(strings.NewReplacer(`"`, "", "'", "").Replace(straight)), " ")
	return []string{straight, bare}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
