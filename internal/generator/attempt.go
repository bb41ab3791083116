package generator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"clausegen/internal/ir"
	"clausegen/internal/knowledge"
	"clausegen/internal/prompt"
	"clausegen/internal/validator"
)

// State is a controller state. A request moves
// Building → Generating → Validating → Accepted | AttemptFailed, and
// AttemptFailed leads back to Generating or ends in Exhausted.
type State string

const (
	StateBuilding      State = "building"
	StateGenerating    State = "generating"
	StateValidating    State = "validating"
	StateAccepted      State = "accepted"
	StateAttemptFailed State = "attempt_failed"
	StateExhausted     State = "exhausted"
)

func (s State) terminal() bool {
	return s == StateAccepted || s == StateExhausted
}

// Attempt is one concluded engine call and its validation.
type Attempt struct {
	Number         int
	Prompt         prompt.Prompt
	RenderedPrompt string
	Sampling       knowledge.SamplingParams
	RawOutput      string
	EngineErr      error
	Validation     validator.Result
	StartedAt      time.Time
	Duration       time.Duration
}

func (a Attempt) Accepted() bool {
	return a.EngineErr == nil && a.Validation.Passed
}

// rank orders attempts for best-effort selection: lower is better. Engine
// failures rank after every attempt that produced text.
func (a Attempt) rank() int {
	if a.EngineErr != nil {
		return int(^uint(0) >> 1)
	}
	return len(a.Validation.Failures)
}

// Request is one section to draft.
type Request struct {
	ID         string
	Section    ir.SectionType
	Language   ir.Language
	Variables  ir.Variables
	Prompt     prompt.Prompt
	Precedents []string
}

// Outcome is what a finished request produced. When nothing was accepted,
// Text holds the best attempt's output.
type Outcome struct {
	RequestID string
	Section   ir.SectionType
	Language  ir.Language
	Accepted  bool
	Text      string
	Best      int // number of the attempt Text comes from; 0 when none
	Failures  []validator.Failure
	Attempts  []Attempt
}

// ErrRetryExhausted matches every *RetryExhaustedError.
var ErrRetryExhausted = errors.New("retry budget exhausted")

// RetryExhaustedError is returned when no attempt passed validation. It
// carries the best attempt's text and failures.
type RetryExhaustedError struct {
	RequestID string
	Section   ir.SectionType
	Attempts  int
	Best      int
	Text      string
	Failures  []validator.Failure
	EngineErr error
}

func (e *RetryExhaustedError) Error() string {
	var reasons []string
	for _, f := range e.Failures {
		reasons = append(reasons, f.RuleID+": "+f.Message)
	}
	if e.EngineErr != nil {
		reasons = append(reasons, e.EngineErr.Error())
	}
	return fmt.Sprintf("%s: no valid draft after %d attempts (best attempt %d): %s",
		e.Section, e.Attempts, e.Best, strings.Join(reasons, "; "))
}

func (e *RetryExhaustedError) Unwrap() error { return ErrRetryExhausted }
