// Package cleaner normalizes retrieved precedents before they are shown to
// the generation engine. Clean is idempotent: cleaning its own output
// changes nothing.
package cleaner

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"clausegen/internal/config"
	"clausegen/internal/retrieval"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

type Options struct {
	MinChars     int
	DedupeWindow int
}

func OptionsFromConfig(c config.CleanerConfig) Options {
	return Options{MinChars: c.MinChars, DedupeWindow: c.DedupeWindow}
}

// Report counts what a Clean call did.
type Report struct {
	Input             int `json:"input"`
	Output            int `json:"output"`
	DroppedShort      int `json:"dropped_short"`
	DroppedDuplicates int `json:"dropped_duplicates"`
}

// Cleaner is safe for concurrent use; case folders are created per call
// because cases.Caser keeps state.
type Cleaner struct {
	opts   Options
	logger *zap.Logger
}

func New(opts Options, logger *zap.Logger) *Cleaner {
	if opts.DedupeWindow <= 0 {
		opts.DedupeWindow = 30
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cleaner{opts: opts, logger: logger}
}

var punctReplacer = strings.NewReplacer(
	"«", `"`, "»", `"`, "“", `"`, "”", `"`, "„", `"`, "‟", `"`,
	"‘", "'", "’", "'", "‚", "'", "‛", "'",
	"‐", "-", "‑", "-", "‒", "-", "–", "-", "—", "-", "―", "-", "−", "-",
)

var (
	pageLineRe    = regexp.MustCompile(`(?i)^(?:(?:page|стр\.?|страница)\s*)?-?\s*\d{1,4}\s*(?:(?:of|из|/)\s*\d{1,4}\s*)?-?$`)
	placeholderRe = regexp.MustCompile(`<[A-Z_]+>`)
)

// Clean normalizes each candidate's masked text, drops candidates that end
// up shorter than MinChars, and removes exact duplicates (case-folded),
// keeping the highest-scored copy. Survivors keep their input order.
func (c *Cleaner) Clean(cands []retrieval.Candidate) ([]retrieval.Candidate, Report) {
	rep := Report{Input: len(cands)}

	staged := make([]retrieval.Candidate, 0, len(cands))
	for _, cand := range cands {
		cand.MaskedText = c.CleanText(cand.MaskedText)
		if utf8.RuneCountInString(cand.MaskedText) < c.opts.MinChars {
			rep.DroppedShort++
			continue
		}
		staged = append(staged, cand)
	}

	fold := cases.Fold()
	best := make(map[string]int, len(staged))
	for i, cand := range staged {
		key := fold.String(cand.MaskedText)
		j, ok := best[key]
		if !ok || cand.Score > staged[j].Score {
			best[key] = i
		}
	}
	out := make([]retrieval.Candidate, 0, len(best))
	for i, cand := range staged {
		if best[fold.String(cand.MaskedText)] != i {
			rep.DroppedDuplicates++
			continue
		}
		out = append(out, cand)
	}
	rep.Output = len(out)

	c.logger.Debug("cleaned precedents",
		zap.Int("input", rep.Input),
		zap.Int("output", rep.Output),
		zap.Int("dropped_short", rep.DroppedShort),
		zap.Int("dropped_duplicates", rep.DroppedDuplicates))
	return out, rep
}

// CleanText applies the text-level steps: NFC, quote and dash
// canonicalization, whitespace collapse per line, removal of blank and
// page-number lines, removal of leading all-caps heading lines and removal
// of lines repeating one of the previous DedupeWindow kept lines.
func (c *Cleaner) CleanText(s string) string {
	s = norm.NFC.String(s)
	s = punctReplacer.Replace(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var lines []string
	for _, ln := range strings.Split(s, "\n") {
		ln = strings.Join(strings.Fields(ln), " ")
		if ln == "" || pageLineRe.MatchString(ln) {
			continue
		}
		lines = append(lines, ln)
	}

	for len(lines) > 0 && looksLikeCapsHeading(lines[0]) {
		lines = lines[1:]
	}

	fold := cases.Fold()
	kept := make([]string, 0, len(lines))
	keys := make([]string, 0, len(lines))
	for _, ln := range lines {
		key := fold.String(ln)
		lo := len(keys) - c.opts.DedupeWindow
		if lo < 0 {
			lo = 0
		}
		dup := false
		for _, k := range keys[lo:] {
			if k == key {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		kept = append(kept, ln)
		keys = append(keys, key)
	}
	return strings.Join(kept, "\n")
}

// looksLikeCapsHeading reports a short line whose letters, ignoring mask
// placeholders, are nearly all upper-case.
func looksLikeCapsHeading(ln string) bool {
	if utf8.RuneCountInString(ln) > 90 {
		return false
	}
	letters, upper := 0, 0
	for _, r := range placeholderRe.ReplaceAllString(ln, "") {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if letters < 4 {
		return false
	}
	return float64(upper)/float64(letters) > 0.88
}

// Texts extracts the cleaned texts in order.
func Texts(cands []retrieval.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.MaskedText
	}
	return out
}
