package retrieval

import (
	"regexp"
	"strings"

	"clausegen/internal/ir"
	"clausegen/internal/variants"
)

// Mask replaces literal form values in text, and their usual renderings,
// with class placeholders such as <AMOUNT>. Longer matches win, matching is
// case-insensitive, and only whole words or numbers are replaced. It returns
// the masked text and the number of replacements.
func Mask(text string, vars ir.Variables) (string, int) {
	var needles []variants.Needle
	for _, name := range vars.Names() {
		raw := vars[name]
		if !ir.Maskable(raw) {
			continue
		}
		class := ir.ClassOf(name)
		for _, r := range variants.Renderings(raw, class) {
			needles = append(needles, variants.Needle{Text: r, Replacement: class.Placeholder()})
		}
	}
	if len(needles) == 0 {
		return text, 0
	}
	return variants.ReplaceLongestFirst(text, needles)
}

type genericRule struct {
	re    *regexp.Regexp
	group int // submatch replaced by repl; 0 replaces the whole match
	repl  string
}

var genericRules = []genericRule{
	{regexp.MustCompile(`\d{1,3}(?:[.,]\d{1,2})?\s?%`), 0, ir.ClassPercent.Placeholder()},
	{regexp.MustCompile(`(?i)(?:USD|EUR|RUB|GBP|CNY|CHF|AED|KZT|UAH|PLN|TRY|JPY)`), 0, ir.ClassCurrency.Placeholder()},
	{regexp.MustCompile(`(?i)(?:доллар(?:а|ов)?(?:\s+США)?|евро|руб(?:ль|ля|лей|\.)|юан(?:ь|я|ей)|тенге|dollars?|euros?|roubles?|rubles?|yuan)`), 0, ir.ClassCurrency.Placeholder()},
	{regexp.MustCompile(`(?i)(\d{1,3})\s*(?:\([^)]{1,40}\)\s*)?(?:calendar\s+|business\s+|banking\s+|working\s+|календарн\p{L}*\s+|рабоч\p{L}*\s+|банковск\p{L}*\s+)?(?:days?|дн\p{L}*|сут\p{L}*)`), 1, ir.ClassTermDays.Placeholder()},
	{regexp.MustCompile(`\d{1,3}(?:[ ,.]\d{3})+(?:[.,]\d{1,2})?|\d{4,}(?:[.,]\d{1,2})?`), 0, ir.ClassAmount.Placeholder()},
}

// MaskGeneric anonymizes values that are not form variables: percentages,
// currency codes and names, day counts and multi-digit amounts.
func MaskGeneric(text string) (string, int) {
	total := 0
	for _, rule := range genericRules {
		var n int
		text, n = replaceBounded(text, rule)
		total += n
	}
	return text, total
}

func replaceBounded(text string, rule genericRule) (string, int) {
	matches := rule.re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, 0
	}
	var b strings.Builder
	pos, n := 0, 0
	for _, m := range matches {
		start, end := m[2*rule.group], m[2*rule.group+1]
		if start < 0 || start < pos {
			continue
		}
		if !variants.Bounded(text, m[0], m[1]) {
			continue
		}
		b.WriteString(text[pos:start])
		b.WriteString(rule.repl)
		pos = end
		n++
	}
	b.WriteString(text[pos:])
	return b.String(), n
}
