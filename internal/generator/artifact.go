package generator

import (
	"context"
	"sort"
	"sync"
	"time"

	"clausegen/internal/knowledge"
	"clausegen/internal/validator"
)

// Artifact is the diagnostic record of one concluded attempt.
type Artifact struct {
	RequestID   string                   `json:"request_id"`
	Section     string                   `json:"section_type"`
	Language    string                   `json:"language"`
	Attempt     int                      `json:"attempt"`
	State       State                    `json:"state"`
	System      string                   `json:"system"`
	Prompt      string                   `json:"prompt"`
	Sampling    knowledge.SamplingParams `json:"sampling"`
	Precedents  []string                 `json:"precedents,omitempty"`
	RawOutput   string                   `json:"raw_output,omitempty"`
	Failures    []validator.Failure      `json:"failures,omitempty"`
	EngineError string                   `json:"engine_error,omitempty"`
	StartedAt   time.Time                `json:"started_at"`
	DurationMS  int64                    `json:"duration_ms"`
}

// ArtifactSink stores artifacts keyed by (request id, attempt). Recording the
// same key twice replaces the earlier artifact.
type ArtifactSink interface {
	Record(ctx context.Context, a Artifact) error
	Lookup(ctx context.Context, requestID string) ([]Artifact, error)
}

// MemorySink keeps artifacts in memory. Safe for concurrent use.
type MemorySink struct {
	mu    sync.Mutex
	items map[string]map[int]Artifact
}

func NewMemorySink() *MemorySink {
	return &MemorySink{items: map[string]map[int]Artifact{}}
}

func (s *MemorySink) Record(_ context.Context, a Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byAttempt, ok := s.items[a.RequestID]
	if !ok {
		byAttempt = map[int]Artifact{}
		s.items[a.RequestID] = byAttempt
	}
	byAttempt[a.Attempt] = a
	return nil
}

// Lookup returns the artifacts of a request ordered by attempt number.
func (s *MemorySink) Lookup(_ context.Context, requestID string) ([]Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Artifact, 0, len(s.items[requestID]))
	for _, a := range s.items[requestID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Attempt < out[j].Attempt })
	return out, nil
}

// RequestIDs lists the requests seen so far, sorted.
func (s *MemorySink) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type multiSink []ArtifactSink

// MultiSink records to every sink and looks up in the first one.
func MultiSink(sinks ...ArtifactSink) ArtifactSink {
	return multiSink(sinks)
}

func (m multiSink) Record(ctx context.Context, a Artifact) error {
	var first error
	for _, s := range m {
		if err := s.Record(ctx, a); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m multiSink) Lookup(ctx context.Context, requestID string) ([]Artifact, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return m[0].Lookup(ctx, requestID)
}
