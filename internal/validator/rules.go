package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"clausegen/internal/corpus"
	"clausegen/internal/ir"
	"clausegen/internal/policy"
	"clausegen/internal/variants"
)

const (
	RuleEmpty       = "empty"
	RuleCount       = "count"
	RuleFormat      = "format"
	RuleBanned      = "banned_topic"
	RuleLength      = "length"
	RuleConsistency = "consistency"
	RulePlaceholder = "placeholder"
	RuleRepetition  = "repetition"
	RulePartyTerms  = "party_terms"
)

// Input is what every rule sees.
type Input struct {
	Text      string
	Language  ir.Language
	Variables ir.Variables
	Policy    policy.Policy
	subpoints []Subpoint
}

// Rule is one independently evaluable check. Check returns nil when the
// draft satisfies the rule.
type Rule interface {
	ID() string
	Check(in *Input) *Failure
}

type ruleFunc struct {
	id    string
	check func(in *Input) *Failure
}

func (r ruleFunc) ID() string              { return r.id }
func (r ruleFunc) Check(in *Input) *Failure { return r.check(in) }

func fail(id, format string, args ...any) *Failure {
	return &Failure{RuleID: id, Message: fmt.Sprintf(format, args...)}
}

// BuiltinRules returns every rule in evaluation order.
func BuiltinRules() []Rule {
	return []Rule{
		ruleFunc{RuleEmpty, checkEmpty},
		ruleFunc{RuleCount, checkCount},
		ruleFunc{RuleFormat, checkFormat},
		ruleFunc{RuleBanned, checkBanned},
		ruleFunc{RuleLength, checkLength},
		ruleFunc{RuleConsistency, checkConsistency},
		ruleFunc{RulePlaceholder, checkPlaceholders},
		ruleFunc{RuleRepetition, checkRepetition},
		ruleFunc{RulePartyTerms, checkPartyTerms},
	}
}

func checkEmpty(in *Input) *Failure {
	if strings.TrimSpace(in.Text) == "" {
		return fail(RuleEmpty, "draft is empty")
	}
	return nil
}

func checkCount(in *Input) *Failure {
	if n := len(in.subpoints); n < in.Policy.MinSubpoints {
		return fail(RuleCount, "found %d numbered subpoints, at least %d required", n, in.Policy.MinSubpoints)
	}
	return nil
}

func checkFormat(in *Input) *Failure {
	if len(in.subpoints) == 0 {
		return fail(RuleFormat, "no numbered subpoints; expected labels like %q", in.Policy.Label(1))
	}
	var problems []string
	for i, sp := range in.subpoints {
		want := in.Policy.Label(i + 1)
		if sp.Label != want {
			problems = append(problems, fmt.Sprintf("line %d is labeled %q, expected %q", sp.Line, sp.Label, want))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	shown := problems
	if len(shown) > 3 {
		shown = shown[:3]
	}
	msg := strings.Join(shown, "; ")
	if extra := len(problems) - len(shown); extra > 0 {
		msg += fmt.Sprintf(" (and %d more)", extra)
	}
	return fail(RuleFormat, "numbering must run %s, %s, ... without gaps: %s", in.Policy.Label(1), in.Policy.Label(2), msg)
}

func checkBanned(in *Input) *Failure {
	var found []string
	for _, term := range in.Policy.BannedTerms(in.Language, in.Variables) {
		if findTerm(in.Text, term, true) {
			found = append(found, strings.TrimSuffix(term, "*"))
		}
	}
	if len(found) == 0 {
		return nil
	}
	return fail(RuleBanned, "banned topics mentioned: %s", strings.Join(found, ", "))
}

// Measure returns the length of text in the given unit.
func Measure(text string, unit policy.LengthUnit) int {
	if unit == policy.Tokens {
		return len(strings.Fields(text))
	}
	n := 0
	for _, r := range text {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

func checkLength(in *Input) *Failure {
	p := in.Policy
	n := Measure(in.Text, p.LengthUnit)
	if n < p.MinLength {
		return fail(RuleLength, "length %d %s is below the minimum %d", n, p.LengthUnit, p.MinLength)
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		return fail(RuleLength, "length %d %s exceeds the maximum %d", n, p.LengthUnit, p.MaxLength)
	}
	return nil
}

func checkConsistency(in *Input) *Failure {
	var missing []string
	for _, name := range in.Policy.Correspondences {
		raw, ok := in.Variables[name]
		if !ok || !ir.Maskable(raw) {
			continue
		}
		if !variants.ContainsAny(in.Text, variants.Renderings(raw, ir.ClassOf(name))) {
			missing = append(missing, fmt.Sprintf("%s=%s", name, ir.FormatValue(raw)))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fail(RuleConsistency, "form values not stated in the text: %s", strings.Join(missing, ", "))
}

var leftoverRe = regexp.MustCompile(`<[A-Z][A-Z_]+>|\[[A-Z][A-Z_]+\]`)

func checkPlaceholders(in *Input) *Failure {
	found := leftoverRe.FindAllString(in.Text, -1)
	if len(found) == 0 {
		return nil
	}
	seen := map[string]bool{}
	var uniq []string
	for _, f := range found {
		if !seen[f] {
			seen[f] = true
			uniq = append(uniq, f)
		}
	}
	return fail(RulePlaceholder, "unfilled placeholders: %s", strings.Join(uniq, ", "))
}

var (
	sentenceSplitRe = regexp.MustCompile(`[.!?]\s+`)
	unitNoiseRe     = regexp.MustCompile(`["'«»()]`)
	unitPunctRe     = regexp.MustCompile(`[,:;]+`)
)

const minRepeatUnit = 40

func normalizeUnit(s string) string {
	s = corpus.Fold(strings.TrimSpace(s))
	s = unitNoiseRe.ReplaceAllString(s, "")
	s = unitPunctRe.ReplaceAllString(s, ",")
	s = strings.TrimRight(s, ".!?")
	return strings.Join(strings.Fields(s), " ")
}

func checkRepetition(in *Input) *Failure {
	var units []string
	if len(in.subpoints) > 0 {
		for _, sp := range in.subpoints {
			units = append(units, sp.Body)
		}
	} else {
		units = sentenceSplitRe.Split(in.Text, -1)
	}
	counts := map[string]int{}
	for _, u := range units {
		n := normalizeUnit(u)
		if len([]rune(n)) < minRepeatUnit {
			continue
		}
		counts[n]++
		if counts[n] == 2 {
			short := []rune(n)
			if len(short) > 60 {
				short = append(short[:60], '…')
			}
			return fail(RuleRepetition, "repeated text: %q", string(short))
		}
	}
	return nil
}

func checkPartyTerms(in *Input) *Failure {
	pt, ok := in.Policy.PartyTerms[in.Language]
	if !ok {
		return nil
	}
	var canonical, alternatives []string
	for _, t := range pt.Canonical {
		if findTerm(in.Text, t, false) {
			canonical = append(canonical, policy.DisplayTerm(t))
		}
	}
	if len(canonical) == 0 {
		return nil
	}
	for _, t := range pt.Alternatives {
		if findTerm(in.Text, t, false) {
			alternatives = append(alternatives, policy.DisplayTerm(t))
		}
	}
	if len(alternatives) == 0 {
		return nil
	}
	return fail(RulePartyTerms, "party terms mixed: %s used together with %s",
		strings.Join(canonical, "/"), strings.Join(alternatives, "/"))
}
