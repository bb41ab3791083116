package validator

import (
	"strings"

	"clausegen/internal/config"
	"clausegen/internal/ir"
	"clausegen/internal/policy"
)

// Failure is one violated rule with a human-readable reason.
type Failure struct {
	RuleID  string `json:"rule_id"`
	Message string `json:"message"`
}

// Result aggregates every failure of one validation run, in rule order.
type Result struct {
	Passed   bool      `json:"passed"`
	Failures []Failure `json:"failures,omitempty"`
}

// RuleIDs lists the ids of the failed rules.
func (r Result) RuleIDs() []string {
	out := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		out[i] = f.RuleID
	}
	return out
}

// Summary renders failures as "rule: message" lines.
func (r Result) Summary() string {
	lines := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		lines[i] = f.RuleID + ": " + f.Message
	}
	return strings.Join(lines, "\n")
}

// RuleSet is the declarative rule list of one section type.
type RuleSet struct {
	Section ir.SectionType
	Policy  policy.Policy
	Rules   []Rule
}

// Engine validates drafts against the rule set of their section type.
// It holds no per-call state and is safe for concurrent use.
type Engine struct {
	overrides map[string]config.SectionOverride
	extra     map[ir.SectionType][]Rule
}

func NewEngine(overrides map[string]config.SectionOverride) *Engine {
	return &Engine{overrides: overrides, extra: map[ir.SectionType][]Rule{}}
}

// Register appends a custom rule to the rule set of a section type. It must
// be called before the engine is shared.
func (e *Engine) Register(st ir.SectionType, r Rule) {
	e.extra[st] = append(e.extra[st], r)
}

// Policy returns the resolved drafting policy of a section type.
func (e *Engine) Policy(st ir.SectionType) policy.Policy {
	return policy.Resolve(st, e.overrides)
}

// RuleSet returns the enabled rules of a section type in evaluation order.
func (e *Engine) RuleSet(st ir.SectionType) RuleSet {
	p := e.Policy(st)
	rs := RuleSet{Section: st, Policy: p}
	for _, r := range append(BuiltinRules(), e.extra[st]...) {
		if p.Enabled(r.ID()) {
			rs.Rules = append(rs.Rules, r)
		}
	}
	return rs
}

// Validate runs every enabled rule of the section's rule set and collects
// all failures. No rule is skipped because an earlier one failed.
func (e *Engine) Validate(text string, st ir.SectionType, lang ir.Language, vars ir.Variables) Result {
	return e.RuleSet(st).Validate(text, lang, vars)
}

func (rs RuleSet) Validate(text string, lang ir.Language, vars ir.Variables) Result {
	in := &Input{
		Text:      text,
		Language:  lang,
		Variables: vars,
		Policy:    rs.Policy,
		subpoints: Subpoints(text),
	}
	res := Result{Passed: true}
	for _, r := range rs.Rules {
		if f := r.Check(in); f != nil {
			res.Failures = append(res.Failures, *f)
		}
	}
	res.Passed = len(res.Failures) == 0
	return res
}
