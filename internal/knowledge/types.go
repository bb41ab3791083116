package knowledge

import (
	"context"
	"errors"
	"fmt"
)

// Prompt is one single-turn completion request.
type Prompt struct {
	System string
	User   string
}

// SamplingParams are passed through to the engine unchanged.
type SamplingParams struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	MaxTokens   int     `json:"max_tokens"`
}

// Engine produces a completion for a prompt. Implementations do not retry;
// every failure is returned as an *EngineError.
type Engine interface {
	Generate(ctx context.Context, p Prompt, params SamplingParams) (string, error)
}

// ErrEngine matches every *EngineError.
var ErrEngine = errors.New("generation engine failed")

type ErrorKind string

const (
	KindTimeout   ErrorKind = "timeout"
	KindTransport ErrorKind = "transport"
	KindStatus    ErrorKind = "status"
	KindEmpty     ErrorKind = "empty"
	KindMalformed ErrorKind = "malformed"
)

type EngineError struct {
	Provider   string
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *EngineError) Error() string {
	msg := fmt.Sprintf("%s engine: %s", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (%d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EngineError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrEngine}
	}
	return []error{ErrEngine, e.Err}
}

// EngineFunc adapts a plain function to Engine.
type EngineFunc func(ctx context.Context, p Prompt, params SamplingParams) (string, error)

func (f EngineFunc) Generate(ctx context.Context, p Prompt, params SamplingParams) (string, error) {
	return f(ctx, p, params)
}
