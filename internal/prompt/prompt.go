// Package prompt assembles the generation instructions for one contract
// section. Building is pure: the same request always renders the same text.
package prompt

import (
	"fmt"
	"strings"

	"clausegen/internal/ir"
	"clausegen/internal/policy"
	"clausegen/internal/validator"
)

// Request carries everything a prompt is built from.
type Request struct {
	Section    ir.SectionType
	Language   ir.Language
	Variables  ir.Variables
	Policy     policy.Policy
	Precedents []string // cleaned, in ranking order
}

// Parameter is one form value as stated to the model.
type Parameter struct {
	Name  string
	Value string
	Note  string
}

// Prompt is an immutable set of instructions. WithFeedback returns an amended
// copy; the receiver is never changed.
type Prompt struct {
	Section      ir.SectionType
	Language     ir.Language
	Title        string
	Instructions []string
	Parameters   []Parameter
	PartyTerms   []string
	TopicPlan    []string
	Forbidden    []string
	Precedents   []string
	Constraints  []string
	Feedback     []validator.Failure

	t      texts
	policy policy.Policy
}

// Build turns a request into a prompt.
func Build(req Request) Prompt {
	t := textsFor(req.Language)
	p := req.Policy
	title := p.Title[req.Language]
	if title == "" {
		title = string(req.Section)
	}

	pr := Prompt{
		Section:    req.Section,
		Language:   req.Language,
		Title:      title,
		Precedents: append([]string(nil), req.Precedents...),
		t:          t,
		policy:     p,
	}

	pr.Instructions = []string{
		fmt.Sprintf(t.atLeast, p.MinSubpoints),
		fmt.Sprintf(t.format, p.Label(1), p.Label(2)),
		t.newLine,
		t.sentence,
		t.noMerge,
	}
	if p.MinLength > 0 {
		pr.Instructions = append(pr.Instructions, fmt.Sprintf(t.lengthMin, p.MinLength, t.units[string(p.LengthUnit)]))
	}
	if p.MaxLength > 0 {
		pr.Instructions = append(pr.Instructions, fmt.Sprintf(t.lengthMax, p.MaxLength, t.units[string(p.LengthUnit)]))
	}

	for _, name := range req.Variables.Names() {
		raw := req.Variables[name]
		value := ir.FormatValue(raw)
		if b, ok := raw.(bool); ok {
			value = t.no
			if b {
				value = t.yes
			}
		}
		if value == "" {
			continue
		}
		param := Parameter{Name: name, Value: value}
		if s, ok := raw.(string); ok {
			param.Note = valuePhrases[name][strings.ToLower(strings.TrimSpace(s))][req.Language]
		}
		pr.Parameters = append(pr.Parameters, param)
	}

	if pt, ok := p.PartyTerms[req.Language]; ok && len(pt.Canonical) >= 2 {
		pr.PartyTerms = append(pr.PartyTerms, fmt.Sprintf(t.partyUse, policy.DisplayTerm(pt.Canonical[0]), policy.DisplayTerm(pt.Canonical[1])))
		if len(pt.Alternatives) > 0 {
			alts := make([]string, 0, len(pt.Alternatives))
			seen := map[string]bool{}
			for _, a := range pt.Alternatives {
				d := policy.DisplayTerm(a)
				if !seen[d] {
					seen[d] = true
					alts = append(alts, fmt.Sprintf("%q", d))
				}
			}
			pr.PartyTerms = append(pr.PartyTerms, fmt.Sprintf(t.partyAvoid, strings.Join(alts, ", ")))
		}
	}

	for i, topic := range p.TopicPlan[req.Language] {
		pr.TopicPlan = append(pr.TopicPlan, fmt.Sprintf("%d) %s", i+1, topic))
	}

	seen := map[string]bool{}
	for _, term := range p.BannedTerms(req.Language, req.Variables) {
		d := strings.TrimSuffix(term, "*")
		if !seen[d] {
			seen[d] = true
			pr.Forbidden = append(pr.Forbidden, d)
		}
	}

	pr.Constraints = append([]string(nil), t.constraints...)
	return pr
}

// System returns the language-specific system instruction.
func (p Prompt) System() string {
	t := p.texts()
	doNotCopy, ok := t.doNotCopy[p.Section]
	if !ok {
		doNotCopy = t.doNotCopyOther
	}
	return t.system + " " + doNotCopy
}

// WithFeedback returns a copy of p whose rendering asks the model to fix the
// listed failures.
func (p Prompt) WithFeedback(failures []validator.Failure) Prompt {
	out := p
	out.Feedback = append([]validator.Failure(nil), failures...)
	return out
}

// Render produces the user message.
func (p Prompt) Render() string {
	t := p.texts()
	var sb strings.Builder

	fmt.Fprintf(&sb, t.intro+"\n\n", p.Title)

	sb.WriteString(t.mandatory + "\n")
	writeLines(&sb, p.Instructions)

	sb.WriteString("\n" + t.params + "\n")
	if len(p.Parameters) == 0 {
		sb.WriteString(t.noParams + "\n")
	}
	for _, param := range p.Parameters {
		if param.Note != "" {
			fmt.Fprintf(&sb, "- %s: %s (%s)\n", param.Name, param.Value, param.Note)
		} else {
			fmt.Fprintf(&sb, "- %s: %s\n", param.Name, param.Value)
		}
	}

	if len(p.PartyTerms) > 0 {
		sb.WriteString("\n" + t.partyTerms + "\n")
		writeLines(&sb, p.PartyTerms)
	}

	if len(p.TopicPlan) > 0 {
		sb.WriteString("\n" + t.topicPlan + "\n")
		writeLines(&sb, p.TopicPlan)
	}

	if len(p.Forbidden) > 0 {
		sb.WriteString("\n" + t.forbidden + "\n")
		sb.WriteString("- " + strings.Join(p.Forbidden, ", ") + "\n")
	}

	sb.WriteString("\n" + t.precedents + "\n")
	if len(p.Precedents) == 0 {
		sb.WriteString(t.noPrecedents + "\n")
	}
	for i, prec := range p.Precedents {
		fmt.Fprintf(&sb, "[%d]\n%s\n", i+1, strings.TrimSpace(prec))
	}

	sb.WriteString("\n" + t.writeLang + "\n")
	writeLines(&sb, p.Constraints)

	if len(p.Feedback) > 0 {
		sb.WriteString("\n" + t.retryHeader + "\n")
		for _, f := range p.Feedback {
			fmt.Fprintf(&sb, "- %s: %s\n", f.RuleID, f.Message)
		}
		fmt.Fprintf(&sb, t.retryAtLeast+"\n", p.policy.MinSubpoints, p.policy.Label(1), p.policy.Label(2))
		sb.WriteString(t.retryKeep + "\n")
		fmt.Fprintf(&sb, t.retryScope+"\n", p.Title)
	}

	sb.WriteString("\n" + t.onlyText)
	return sb.String()
}

func (p Prompt) texts() texts {
	if p.t.intro == "" {
		return textsFor(p.Language)
	}
	return p.t
}

func writeLines(sb *strings.Builder, lines []string) {
	for _, l := range lines {
		sb.WriteString(l)
		sb.WriteByte('\n')
	}
}
