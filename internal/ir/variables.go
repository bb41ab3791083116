package ir

import (
	"sort"
	"strconv"
	"strings"
)

// Variables are the user-supplied form values (name -> scalar). Values are
// string, bool, int, int64 or float64 as produced by JSON/YAML decoding.
type Variables map[string]any

// Names returns the variable names in lexical order.
func (v Variables) Names() []string {
	names := make([]string, 0, len(v))
	for k := range v {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Bool reports the boolean value of name; missing or non-bool values are false.
func (v Variables) Bool(name string) bool {
	b, ok := v[name].(bool)
	return ok && b
}

// String renders the value of name in its canonical textual form.
func (v Variables) String(name string) (string, bool) {
	raw, ok := v[name]
	if !ok {
		return "", false
	}
	s := FormatValue(raw)
	return s, s != ""
}

// FormatValue renders a scalar without locale formatting. Integral floats
// render without a fractional part so 30.0 and 30 compare equal.
func FormatValue(raw any) string {
	switch x := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return FormatValue(float64(x))
	default:
		return ""
	}
}

// VarClass is the semantic class of a form variable. It names the
// placeholder used when a literal value is masked in precedent text.
type VarClass string

const (
	ClassPartyName    VarClass = "PARTY_NAME"
	ClassAmount       VarClass = "AMOUNT"
	ClassCurrency     VarClass = "CURRENCY"
	ClassDate         VarClass = "DATE"
	ClassTermDays     VarClass = "TERM_DAYS"
	ClassPercent      VarClass = "PERCENT"
	ClassJurisdiction VarClass = "JURISDICTION"
	ClassValue        VarClass = "VALUE"
)

// Placeholder returns the masking token, e.g. "<AMOUNT>".
func (c VarClass) Placeholder() string {
	return "<" + string(c) + ">"
}

// AllClasses lists every class in a fixed order.
func AllClasses() []VarClass {
	return []VarClass{
		ClassPartyName, ClassAmount, ClassCurrency, ClassDate,
		ClassTermDays, ClassPercent, ClassJurisdiction, ClassValue,
	}
}

var classHints = []struct {
	class VarClass
	words []string
}{
	{ClassTermDays, []string{"days", "term_days", "period", "deadline"}},
	{ClassDate, []string{"date"}},
	{ClassCurrency, []string{"currency"}},
	{ClassPercent, []string{"percent", "pct", "rate", "vat"}},
	{ClassAmount, []string{"amount", "price", "sum", "total", "cost", "fee", "cap", "limit"}},
	{ClassPartyName, []string{"party", "buyer", "seller", "supplier", "customer", "contractor", "name"}},
	{ClassJurisdiction, []string{"jurisdiction", "law", "court", "venue", "arbitration", "seat", "city", "country"}},
}

// ClassOf infers the class of a variable from its name. Hints are checked in
// order so "payment_term_days" is TERM_DAYS, not AMOUNT.
func ClassOf(name string) VarClass {
	n := strings.ToLower(name)
	for _, h := range classHints {
		for _, w := range h.words {
			if strings.Contains(n, w) {
				return h.class
			}
		}
	}
	return ClassValue
}

// Maskable reports whether a value is a literal that can appear in text.
// Booleans and empty strings never do.
func Maskable(raw any) bool {
	switch x := raw.(type) {
	case bool, nil:
		return false
	case string:
		return strings.TrimSpace(x) != ""
	default:
		return FormatValue(raw) != ""
	}
}
