package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"clausegen/internal/config"
	"clausegen/internal/knowledge"
	"clausegen/internal/prompt"
	"clausegen/internal/validator"

	"go.uber.org/zap"
)

// Options bound the retry loop.
type Options struct {
	MaxAttempts    int
	AttemptTimeout time.Duration
	AmendOnRetry   bool
	Sampling       knowledge.SamplingParams
	RetrySampling  knowledge.SamplingParams
}

func DefaultOptions() Options {
	return Options{
		MaxAttempts:    3,
		AttemptTimeout: 3 * time.Minute,
		AmendOnRetry:   true,
		Sampling:       knowledge.SamplingParams{Temperature: 0.25, TopP: 0.9, MaxTokens: 1600},
		RetrySampling:  knowledge.SamplingParams{Temperature: 0.35, TopP: 0.92, MaxTokens: 1600},
	}
}

func OptionsFromConfig(c config.ControllerConfig) Options {
	return Options{
		MaxAttempts:    c.MaxAttempts,
		AttemptTimeout: c.AttemptTimeout,
		AmendOnRetry:   c.AmendOnRetry,
		Sampling:       knowledge.SamplingParams(c.Sampling),
		RetrySampling:  knowledge.SamplingParams(c.RetrySampling),
	}
}

// Controller drives one section request through generate and validate
// attempts until a draft passes or the attempt budget is spent.
type Controller struct {
	engine    knowledge.Engine
	validator *validator.Engine
	opts      Options
	sink      ArtifactSink
	metrics   *Metrics
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Controller)

func WithSink(s ArtifactSink) Option { return func(c *Controller) { c.sink = s } }

func WithMetrics(m *Metrics) Option { return func(c *Controller) { c.metrics = m } }

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewController(engine knowledge.Engine, v *validator.Engine, opts Options, options ...Option) *Controller {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	c := &Controller{
		engine:    engine,
		validator: v,
		opts:      opts,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// Run drafts one section. It returns the accepted outcome, or the best
// attempt together with a *RetryExhaustedError. If ctx is cancelled the loop
// stops and ctx.Err() is returned.
func (c *Controller) Run(ctx context.Context, req Request) (Outcome, error) {
	m := c.newMachine(req)
	for !m.state.terminal() {
		if err := m.step(ctx); err != nil {
			c.metrics.observeRequest(string(req.Section), "cancelled")
			c.logger.Warn("section request interrupted",
				zap.String("request_id", req.ID),
				zap.String("section", string(req.Section)),
				zap.Int("attempt", m.number),
				zap.Error(err))
			return m.outcome(), err
		}
	}
	c.metrics.observeRequest(string(req.Section), string(m.state))

	out := m.outcome()
	if m.state == StateAccepted {
		return out, nil
	}
	exhausted := &RetryExhaustedError{
		RequestID: req.ID,
		Section:   req.Section,
		Attempts:  len(out.Attempts),
		Best:      out.Best,
		Text:      out.Text,
		Failures:  out.Failures,
	}
	if best := m.best(); best != nil {
		exhausted.EngineErr = best.EngineErr
	}
	return out, exhausted
}

// machine holds the state of one request. Each step performs exactly one
// transition.
type machine struct {
	c        *Controller
	req      Request
	state    State
	number   int
	current  prompt.Prompt
	pending  Attempt
	attempts []Attempt
}

func (c *Controller) newMachine(req Request) *machine {
	return &machine{c: c, req: req, state: StateBuilding}
}

func (m *machine) step(ctx context.Context) error {
	switch m.state {
	case StateBuilding:
		m.current = m.req.Prompt
		m.number = 1
		m.state = StateGenerating
	case StateGenerating:
		return m.generate(ctx)
	case StateValidating:
		m.validate()
	case StateAttemptFailed:
		m.conclude(ctx)
		if m.number >= m.c.opts.MaxAttempts {
			m.state = StateExhausted
			return nil
		}
		if m.c.opts.AmendOnRetry && len(m.pending.Validation.Failures) > 0 {
			m.current = m.req.Prompt.WithFeedback(m.pending.Validation.Failures)
		}
		m.number++
		m.state = StateGenerating
	case StateAccepted, StateExhausted:
		return nil
	default:
		return fmt.Errorf("generator: unknown state %q", m.state)
	}
	return nil
}

func (m *machine) generate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := m.c.opts.Sampling
	if m.number > 1 {
		params = m.c.opts.RetrySampling
	}
	a := Attempt{
		Number:         m.number,
		Prompt:         m.current,
		RenderedPrompt: m.current.Render(),
		Sampling:       params,
		StartedAt:      m.c.now(),
	}

	actx := ctx
	if m.c.opts.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, m.c.opts.AttemptTimeout)
		defer cancel()
	}
	out, err := m.c.engine.Generate(actx, knowledge.Prompt{System: m.current.System(), User: a.RenderedPrompt}, params)
	a.Duration = m.c.now().Sub(a.StartedAt)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if err == nil && strings.TrimSpace(out) == "" {
		// Blank output is an engine failure whatever the adapter reported.
		err = &knowledge.EngineError{Provider: "engine", Kind: knowledge.KindEmpty}
	}
	if err != nil {
		a.EngineErr = err
		m.pending = a
		m.state = StateAttemptFailed
		m.c.logger.Warn("engine call failed",
			zap.String("request_id", m.req.ID),
			zap.String("section", string(m.req.Section)),
			zap.Int("attempt", a.Number),
			zap.Error(err))
		return nil
	}
	a.RawOutput = out
	m.pending = a
	m.state = StateValidating
	return nil
}

func (m *machine) validate() {
	res := m.c.validator.Validate(m.pending.RawOutput, m.req.Section, m.req.Language, m.req.Variables)
	m.pending.Validation = res
	if res.Passed {
		m.state = StateAccepted
		m.conclude(context.Background())
		return
	}
	for _, f := range res.Failures {
		m.c.logger.Debug("rule failed",
			zap.String("request_id", m.req.ID),
			zap.String("section", string(m.req.Section)),
			zap.Int("attempt", m.pending.Number),
			zap.String("rule", f.RuleID),
			zap.String("message", f.Message))
	}
	m.state = StateAttemptFailed
}

// conclude records the pending attempt and emits its artifact. Sink errors
// are logged only.
func (m *machine) conclude(ctx context.Context) {
	a := m.pending
	m.attempts = append(m.attempts, a)
	m.c.metrics.observeAttempt(string(m.req.Section), a)

	state := StateAttemptFailed
	if a.Accepted() {
		state = StateAccepted
	}
	m.c.logger.Info("attempt concluded",
		zap.String("request_id", m.req.ID),
		zap.String("section", string(m.req.Section)),
		zap.String("language", string(m.req.Language)),
		zap.Int("attempt", a.Number),
		zap.String("state", string(state)),
		zap.Int("failures", len(a.Validation.Failures)),
		zap.Duration("duration", a.Duration))

	if m.c.sink == nil {
		return
	}
	art := Artifact{
		RequestID:  m.req.ID,
		Section:    string(m.req.Section),
		Language:   string(m.req.Language),
		Attempt:    a.Number,
		State:      state,
		System:     a.Prompt.System(),
		Prompt:     a.RenderedPrompt,
		Sampling:   a.Sampling,
		Precedents: m.req.Precedents,
		RawOutput:  a.RawOutput,
		Failures:   a.Validation.Failures,
		StartedAt:  a.StartedAt.UTC(),
		DurationMS: a.Duration.Milliseconds(),
	}
	if a.EngineErr != nil {
		art.EngineError = a.EngineErr.Error()
	}
	if err := m.c.sink.Record(context.WithoutCancel(ctx), art); err != nil {
		m.c.logger.Error("failed to record artifact",
			zap.String("request_id", m.req.ID),
			zap.Int("attempt", a.Number),
			zap.Error(err))
	}
}

// best returns the attempt with the fewest failures, preferring the earliest
// on ties. Engine failures rank last.
func (m *machine) best() *Attempt {
	var best *Attempt
	for i := range m.attempts {
		a := &m.attempts[i]
		if best == nil || a.rank() < best.rank() {
			best = a
		}
	}
	return best
}

func (m *machine) outcome() Outcome {
	out := Outcome{
		RequestID: m.req.ID,
		Section:   m.req.Section,
		Language:  m.req.Language,
		Attempts:  append([]Attempt(nil), m.attempts...),
	}
	if m.state == StateAccepted {
		last := m.attempts[len(m.attempts)-1]
		out.Accepted = true
		out.Text = last.RawOutput
		out.Best = last.Number
		return out
	}
	if best := m.best(); best != nil {
		out.Text = best.RawOutput
		out.Best = best.Number
		out.Failures = best.Validation.Failures
	}
	return out
}
