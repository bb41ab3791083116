// Package form reads a section request form: it checks the JSON against the
// form schema and flattens the nested parameter blocks into form variables.
package form

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"clausegen/internal/ir"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed contract_form.schema.json
var schemaJSON string

const schemaURL = "https://clausegen.local/schemas/contract_form.schema.json"

var ErrFormInvalid = errors.New("invalid request form")

// Issue is one schema violation, located by JSON pointer.
type Issue struct {
	Path    string
	Message string
}

type FormError struct {
	Issues []Issue
	Err    error
}

func (e *FormError) Error() string {
	if len(e.Issues) == 0 && e.Err != nil {
		return fmt.Sprintf("invalid request form: %v", e.Err)
	}
	lines := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		lines[i] = fmt.Sprintf("%s: %s", is.Path, is.Message)
	}
	return fmt.Sprintf("invalid request form: %d issue(s): %s", len(e.Issues), strings.Join(lines, "; "))
}

func (e *FormError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrFormInvalid}
	}
	return []error{ErrFormInvalid, e.Err}
}

// Form is a checked request.
type Form struct {
	Language  ir.Language
	Sections  []ir.SectionType
	Variables ir.Variables
}

var defaultSections = []ir.SectionType{ir.SectionPaymentTerms, ir.SectionDeliveryTerms}

// blocks are the nested parameter groups. Their leaves become variables.
var blocks = []string{"parties", "payment", "delivery", "liability", "disputes"}

type Checker struct {
	schema *jsonschema.Schema
}

func NewChecker() (*Checker, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to load form schema: %w", err)
	}
	schema, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile form schema: %w", err)
	}
	return &Checker{schema: schema}, nil
}

// Parse checks data against the schema and builds the Form. A form that
// fails the schema returns a *FormError listing every issue sorted by path.
func (c *Checker) Parse(data []byte) (*Form, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, &FormError{Err: err}
	}
	root, ok := raw.(map[string]any)
	if !ok {
		return nil, &FormError{Issues: []Issue{{Path: "/", Message: "form must be a JSON object"}}}
	}

	if err := c.schema.Validate(root); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return nil, &FormError{Err: err}
		}
		return nil, &FormError{Issues: collectIssues(ve)}
	}

	f := &Form{Language: ir.LangRU, Variables: ir.Variables{}}
	for _, key := range []string{"language", "language_mode"} {
		if s, ok := root[key].(string); ok {
			lang, err := ir.ParseLanguage(s)
			if err != nil {
				return nil, &FormError{Issues: []Issue{{Path: "/" + key, Message: err.Error()}}}
			}
			f.Language = lang
			break
		}
	}

	if list, ok := root["sections"].([]any); ok && len(list) > 0 {
		for _, v := range list {
			st, err := ir.ParseSectionType(fmt.Sprint(v))
			if err != nil {
				return nil, &FormError{Issues: []Issue{{Path: "/sections", Message: err.Error()}}}
			}
			f.Sections = append(f.Sections, st)
		}
	} else {
		f.Sections = append([]ir.SectionType(nil), defaultSections...)
	}

	// Block leaves first, in block order; root-level scalars override them.
	for _, b := range blocks {
		m, ok := root[b].(map[string]any)
		if !ok {
			continue
		}
		for _, k := range sortedKeys(m) {
			f.Variables[k] = scalar(m[k])
		}
	}
	for _, k := range sortedKeys(root) {
		switch k {
		case "language", "language_mode", "sections":
			continue
		}
		if _, isBlock := root[k].(map[string]any); isBlock {
			continue
		}
		f.Variables[k] = scalar(root[k])
	}
	return f, nil
}

// scalar converts json.Number to int when integral, float64 otherwise.
func scalar(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return int(i)
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func collectIssues(ve *jsonschema.ValidationError) []Issue {
	var out []Issue
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			path := e.InstanceLocation
			if path == "" {
				path = "/"
			}
			out = append(out, Issue{Path: path, Message: e.Message})
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}
