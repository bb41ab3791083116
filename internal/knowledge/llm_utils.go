package knowledge

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"
)

var labeledLineRe = regexp.MustCompile(`^\d{1,3}(?:\.\d{1,3})*[.)]?\s`)

// cleanOutput strips code fences and blank lines between numbered subpoints.
func cleanOutput(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl >= 0 && !strings.ContainsAny(text[:nl], " .") {
			text = text[nl+1:]
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for i, ln := range lines {
		ln = strings.TrimRight(ln, " \t")
		if ln == "" && i+1 < len(lines) && labeledLineRe.MatchString(strings.TrimSpace(lines[i+1])) {
			continue
		}
		out = append(out, ln)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// classify wraps a transport error into an *EngineError.
func classify(provider string, err error) *EngineError {
	kind := KindTransport
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &ne) && ne.Timeout() {
		kind = KindTimeout
	}
	return &EngineError{Provider: provider, Kind: kind, Err: err}
}
