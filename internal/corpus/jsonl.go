package corpus

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"clausegen/internal/ir"
)

const maxLineBytes = 16 << 20

// ReadJSONL decodes interchange records, one JSON object per line. Blank
// lines are skipped. On a malformed line the records decoded so far are
// returned together with a *FormatError carrying the line number.
func ReadJSONL(r io.Reader) ([]ir.Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	var out []ir.Record
	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var rec ir.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return out, &FormatError{Record: len(out), Line: line, Reason: "invalid JSON", Err: err}
		}
		rec.Line = line
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return out, &FormatError{Record: len(out), Line: line + 1, Reason: "read failed", Err: err}
	}
	return out, nil
}

// WriteJSONL encodes records one per line.
func WriteJSONL(w io.Writer, records []ir.Record) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}
