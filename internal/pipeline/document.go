package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"clausegen/internal/ir"
)

// Assemble joins drafted sections into one contract text in generation
// order. Each block starts with a "[SECTION_TYPE]" marker; sections that never
// passed validation are flagged so they are not mistaken for checked text.
func Assemble(results []SectionResult) string {
	order := map[ir.SectionType]int{}
	for i, st := range ir.AllSectionTypes() {
		order[st] = i
	}
	sorted := make([]SectionResult, 0, len(results))
	for _, r := range results {
		if strings.TrimSpace(r.Outcome.Text) != "" {
			sorted = append(sorted, r)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return order[sorted[i].Request.Section] < order[sorted[j].Request.Section]
	})

	blocks := make([]string, 0, len(sorted))
	for _, r := range sorted {
		var sb strings.Builder
		fmt.Fprintf(&sb, "[%s]\n", strings.ToUpper(string(r.Request.Section)))
		if !r.Accepted() {
			fmt.Fprintf(&sb, "(unverified: best of %d attempts)\n", len(r.Outcome.Attempts))
		}
		sb.WriteString(strings.TrimSpace(r.Outcome.Text))
		blocks = append(blocks, sb.String())
	}
	if len(blocks) == 0 {
		return ""
	}
	return strings.Join(blocks, "\n\n") + "\n"
}
