package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

type ReportSignal struct {
	Code      string  `json:"code"`
	Stage     string  `json:"stage"`
	Severity  string  `json:"severity"`
	Message   string  `json:"message"`
	RequestID string  `json:"request_id,omitempty"`
	Value     float64 `json:"value,omitempty"`
}

type StageMetric struct {
	Name       string             `json:"name"`
	Status     string             `json:"status"`
	StartedAt  string             `json:"started_at"`
	FinishedAt string             `json:"finished_at"`
	DurationMS int64              `json:"duration_ms"`
	Counters   map[string]float64 `json:"counters,omitempty"`
	Notes      []string           `json:"notes,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// SectionMetric describes how one section request went.
type SectionMetric struct {
	RequestID     string   `json:"request_id"`
	Section       string   `json:"section_type"`
	Language      string   `json:"language"`
	Precedents    int      `json:"precedents"`
	MaskedValues  int      `json:"masked_values"`
	DroppedShort  int      `json:"dropped_short"`
	DroppedDupes  int      `json:"dropped_duplicates"`
	Attempts      int      `json:"attempts"`
	BestAttempt   int      `json:"best_attempt"`
	Accepted      bool     `json:"accepted"`
	EngineErrors  int      `json:"engine_errors"`
	FailedRules   []string `json:"failed_rules,omitempty"`
	OutputRunes   int      `json:"output_runes"`
	DurationMS    int64    `json:"duration_ms"`
	NoPrecedents  bool     `json:"no_precedents"`
	InterruptedBy string   `json:"interrupted_by,omitempty"`
}

type ReportSummary struct {
	StageCount        int            `json:"stage_count"`
	SectionCount      int            `json:"section_count"`
	FailedStages      int            `json:"failed_stages"`
	AcceptedSections  int            `json:"accepted_sections"`
	ExhaustedSections int            `json:"exhausted_sections"`
	AvgAttempts       float64        `json:"avg_attempts"`
	SignalsBySeverity map[string]int `json:"signals_by_severity"`
}

// Report collects stage timings, per-section metrics and signals of one run.
// It is safe for concurrent use by section workers.
type Report struct {
	mu sync.Mutex

	Version     string          `json:"version"`
	Mode        string          `json:"mode"`
	GeneratedAt string          `json:"generated_at"`
	OutputDir   string          `json:"output_dir"`
	Stages      []StageMetric   `json:"stages"`
	Sections    []SectionMetric `json:"sections,omitempty"`
	Signals     []ReportSignal  `json:"signals,omitempty"`
	Summary     ReportSummary   `json:"summary"`
}

type StageHandle struct {
	name    string
	started time.Time
}

func NewReport(mode, outputDir string) *Report {
	return &Report{
		Version:     "v1",
		Mode:        mode,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		OutputDir:   outputDir,
		Stages:      []StageMetric{},
		Sections:    []SectionMetric{},
		Signals:     []ReportSignal{},
	}
}

func (r *Report) BeginStage(name string) StageHandle {
	return StageHandle{name: strings.TrimSpace(name), started: time.Now().UTC()}
}

func (r *Report) EndStage(h StageHandle, status string, counters map[string]float64, notes []string, err error) {
	if r == nil || h.name == "" {
		return
	}
	if strings.TrimSpace(status) == "" {
		status = "ok"
	}
	finished := time.Now().UTC()
	m := StageMetric{
		Name:       h.name,
		Status:     status,
		StartedAt:  h.started.Format(time.RFC3339Nano),
		FinishedAt: finished.Format(time.RFC3339Nano),
		DurationMS: finished.Sub(h.started).Milliseconds(),
		Counters:   cleanCounters(counters),
		Notes:      cleanNotes(notes),
	}
	if err != nil {
		m.Error = err.Error()
		if status == "ok" {
			m.Status = "error"
		}
	}
	r.mu.Lock()
	r.Stages = append(r.Stages, m)
	r.mu.Unlock()
}

func (r *Report) AddSignal(s ReportSignal) {
	if r == nil {
		return
	}
	s.Code = strings.TrimSpace(s.Code)
	s.Stage = strings.TrimSpace(s.Stage)
	s.Severity = strings.ToLower(strings.TrimSpace(s.Severity))
	s.Message = strings.TrimSpace(s.Message)
	if s.Code == "" || s.Stage == "" || s.Severity == "" || s.Message == "" {
		return
	}
	r.mu.Lock()
	r.Signals = append(r.Signals, s)
	r.mu.Unlock()
}

func (r *Report) AddSectionMetric(m SectionMetric) {
	if r == nil || strings.TrimSpace(m.RequestID) == "" {
		return
	}
	r.mu.Lock()
	r.Sections = append(r.Sections, m)
	r.mu.Unlock()
}

// SignalCodes returns the codes of the recorded signals in recording order.
func (r *Report) SignalCodes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Signals))
	for i, s := range r.Signals {
		out[i] = s.Code
	}
	return out
}

// Finalize sorts signals by severity then stage then code, orders sections
// by request id, and recomputes the summary.
func (r *Report) Finalize() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	severityCount := map[string]int{
		SeverityCritical: 0,
		SeverityWarning:  0,
		SeverityInfo:     0,
	}
	sort.SliceStable(r.Signals, func(i, j int) bool {
		pi := signalPriority(r.Signals[i].Severity)
		pj := signalPriority(r.Signals[j].Severity)
		if pi == pj {
			if r.Signals[i].Stage == r.Signals[j].Stage {
				return r.Signals[i].Code < r.Signals[j].Code
			}
			return r.Signals[i].Stage < r.Signals[j].Stage
		}
		return pi > pj
	})
	for _, s := range r.Signals {
		severityCount[s.Severity]++
	}
	sort.SliceStable(r.Sections, func(i, j int) bool { return r.Sections[i].RequestID < r.Sections[j].RequestID })

	failed := 0
	for _, st := range r.Stages {
		if st.Status != "ok" {
			failed++
		}
	}

	accepted, exhausted, attempts := 0, 0, 0
	for _, sec := range r.Sections {
		attempts += sec.Attempts
		switch {
		case sec.Accepted:
			accepted++
		case sec.InterruptedBy == "":
			exhausted++
		}
	}
	avg := 0.0
	if len(r.Sections) > 0 {
		avg = float64(attempts) / float64(len(r.Sections))
	}

	r.Summary = ReportSummary{
		StageCount:        len(r.Stages),
		SectionCount:      len(r.Sections),
		FailedStages:      failed,
		AcceptedSections:  accepted,
		ExhaustedSections: exhausted,
		AvgAttempts:       avg,
		SignalsBySeverity: severityCount,
	}
}

func (r *Report) Save(path string) error {
	if r == nil {
		return nil
	}
	r.Finalize()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	r.mu.Lock()
	data, err := json.MarshalIndent(r, "", "  ")
	r.mu.Unlock()
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0644)
}

func cleanCounters(raw map[string]float64) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		out[key] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cleanNotes(raw []string) []string {
	if len(raw) == 0 {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, n := range raw {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func signalPriority(severity string) int {
	switch severity {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	default:
		return 1
	}
}
