package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"clausegen/internal/cleaner"
	"clausegen/internal/form"
	"clausegen/internal/generator"
	"clausegen/internal/ir"
	"clausegen/internal/prompt"
	"clausegen/internal/retrieval"
	"clausegen/internal/validator"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SectionRequest is one section of a form to draft.
type SectionRequest struct {
	ID            string
	Section       ir.SectionType
	Language      ir.Language
	Variables     ir.Variables
	FreeTextTerms []string
}

// SectionResult is what drafting one section produced. Err is nil when the
// section was accepted; a *generator.RetryExhaustedError when no attempt
// passed; any other error means the request never ran to completion.
type SectionResult struct {
	Request    SectionRequest
	Precedents []string
	Cleaning   cleaner.Report
	Outcome    generator.Outcome
	Err        error
}

func (r SectionResult) Accepted() bool { return r.Err == nil && r.Outcome.Accepted }

func (r SectionResult) Exhausted() bool { return errors.Is(r.Err, generator.ErrRetryExhausted) }

// Requests expands a checked form into one request per section, in form
// order, each with a fresh id.
func Requests(f *form.Form) []SectionRequest {
	out := make([]SectionRequest, 0, len(f.Sections))
	for _, st := range f.Sections {
		out = append(out, SectionRequest{
			ID:        uuid.NewString(),
			Section:   st,
			Language:  f.Language,
			Variables: f.Variables,
		})
	}
	return out
}

// Drafter runs retrieve, clean, prompt and the generation controller for
// section requests.
type Drafter struct {
	retriever   *retrieval.Retriever
	cleaner     *cleaner.Cleaner
	validator   *validator.Engine
	controller  *generator.Controller
	report      *Report
	logger      *zap.Logger
	concurrency int
}

type Option func(*Drafter)

func WithReport(r *Report) Option { return func(d *Drafter) { d.report = r } }

func WithConcurrency(n int) Option {
	return func(d *Drafter) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Drafter) {
		if l != nil {
			d.logger = l
		}
	}
}

func NewDrafter(r *retrieval.Retriever, cl *cleaner.Cleaner, v *validator.Engine, ctrl *generator.Controller, opts ...Option) *Drafter {
	d := &Drafter{
		retriever:   r,
		cleaner:     cl,
		validator:   v,
		controller:  ctrl,
		logger:      zap.NewNop(),
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Draft drafts one section. It never panics on an empty corpus: with no
// precedents the prompt says so and generation proceeds.
func (d *Drafter) Draft(ctx context.Context, req SectionRequest) SectionResult {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	res := SectionResult{Request: req}
	started := time.Now()
	log := d.logger.With(
		zap.String("request_id", req.ID),
		zap.String("section", string(req.Section)),
		zap.String("language", string(req.Language)))

	cands, err := d.retriever.Retrieve(retrieval.Query{
		SectionType:   req.Section,
		Language:      req.Language,
		Variables:     req.Variables,
		FreeTextTerms: req.FreeTextTerms,
	})
	if err != nil {
		res.Err = fmt.Errorf("failed to retrieve precedents for %s: %w", req.Section, err)
		return res
	}
	masked := 0
	for _, c := range cands {
		masked += c.MaskCount
	}

	cleaned, rep := d.cleaner.Clean(cands)
	res.Cleaning = rep
	res.Precedents = cleaner.Texts(cleaned)
	if len(res.Precedents) == 0 {
		log.Warn("drafting without precedents")
		d.report.AddSignal(ReportSignal{
			Code:      "no_precedents",
			Stage:     "retrieval",
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf("no precedents for %s (%s)", req.Section, req.Language),
			RequestID: req.ID,
		})
	}

	p := prompt.Build(prompt.Request{
		Section:    req.Section,
		Language:   req.Language,
		Variables:  req.Variables,
		Policy:     d.validator.Policy(req.Section),
		Precedents: res.Precedents,
	})

	out, err := d.controller.Run(ctx, generator.Request{
		ID:         req.ID,
		Section:    req.Section,
		Language:   req.Language,
		Variables:  req.Variables,
		Prompt:     p,
		Precedents: res.Precedents,
	})
	res.Outcome = out
	res.Err = err

	d.record(res, masked, time.Since(started))
	return res
}

func (d *Drafter) record(res SectionResult, masked int, took time.Duration) {
	out := res.Outcome
	m := SectionMetric{
		RequestID:    res.Request.ID,
		Section:      string(res.Request.Section),
		Language:     string(res.Request.Language),
		Precedents:   len(res.Precedents),
		MaskedValues: masked,
		DroppedShort: res.Cleaning.DroppedShort,
		DroppedDupes: res.Cleaning.DroppedDuplicates,
		Attempts:     len(out.Attempts),
		BestAttempt:  out.Best,
		Accepted:     res.Accepted(),
		FailedRules:  validator.Result{Failures: out.Failures}.RuleIDs(),
		OutputRunes:  utf8.RuneCountInString(out.Text),
		DurationMS:   took.Milliseconds(),
		NoPrecedents: len(res.Precedents) == 0,
	}
	for _, a := range out.Attempts {
		if a.EngineErr != nil {
			m.EngineErrors++
		}
	}
	if res.Err != nil && !res.Exhausted() {
		m.InterruptedBy = res.Err.Error()
	}
	d.report.AddSectionMetric(m)

	if m.EngineErrors > 0 {
		d.report.AddSignal(ReportSignal{
			Code:      "engine_errors",
			Stage:     "generation",
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf("%s: %d engine call(s) failed", res.Request.Section, m.EngineErrors),
			RequestID: res.Request.ID,
			Value:     float64(m.EngineErrors),
		})
	}
	if res.Exhausted() {
		d.report.AddSignal(ReportSignal{
			Code:      "retry_exhausted",
			Stage:     "generation",
			Severity:  SeverityCritical,
			Message:   res.Err.Error(),
			RequestID: res.Request.ID,
			Value:     float64(len(out.Failures)),
		})
	}
}

// DraftAll drafts every request with at most the configured number of
// sections in flight. Results come back in request order. Exhausted
// sections do not stop the others; a cancelled context or a failed
// retrieval does, and that error is returned.
func (d *Drafter) DraftAll(ctx context.Context, reqs []SectionRequest) ([]SectionResult, error) {
	h := d.report.BeginStage("draft")
	results := make([]SectionResult, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)
	for i, req := range reqs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res := d.Draft(gctx, req)
			results[i] = res
			if res.Err != nil && !res.Exhausted() {
				return res.Err
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	accepted, exhausted := 0, 0
	for _, r := range results {
		switch {
		case r.Accepted():
			accepted++
		case r.Exhausted():
			exhausted++
		}
	}
	status := "ok"
	if exhausted > 0 {
		status = "partial"
	}
	d.report.EndStage(h, status, map[string]float64{
		"requests":  float64(len(reqs)),
		"accepted":  float64(accepted),
		"exhausted": float64(exhausted),
	}, nil, err)
	return results, err
}
