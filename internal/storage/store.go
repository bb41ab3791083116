package storage

import (
	"context"

	"clausegen/internal/generator"
	"clausegen/internal/ir"
)

// Store combines corpus persistence and the attempt artifact sink.
type Store interface {
	CorpusStore
	generator.ArtifactSink
	Close() error
}

// CorpusStore persists precedent section records.
type CorpusStore interface {
	// SaveCorpus replaces the stored corpus with records, keeping their order.
	SaveCorpus(ctx context.Context, records []ir.Record) error

	// LoadCorpus returns the stored records in the order they were saved.
	LoadCorpus(ctx context.Context) ([]ir.Record, error)
}

// RequestSummary describes the stored attempts of one section request.
type RequestSummary struct {
	RequestID string
	Section   string
	Language  string
	Attempts  int
	LastState string
}
