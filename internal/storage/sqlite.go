package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"clausegen/internal/generator"
	"clausegen/internal/ir"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000&_journal_mode=WAL"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// Section workers record concurrently; a single writer connection keeps
	// SQLite from reporting "database is locked".
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sections (
			seq INTEGER PRIMARY KEY,
			contract_id TEXT NOT NULL,
			section_type TEXT NOT NULL,
			language TEXT NOT NULL,
			title TEXT,
			text TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS attempts (
			request_id TEXT NOT NULL,
			attempt INTEGER NOT NULL,
			section_type TEXT,
			language TEXT,
			state TEXT,
			started_at TEXT,
			payload JSON,
			PRIMARY KEY (request_id, attempt)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sections_key ON sections(section_type, language);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// --- CorpusStore Implementation ---

func (s *SQLiteStore) SaveCorpus(ctx context.Context, records []ir.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Snapshot semantics: the new corpus replaces the old one.
	if _, err := tx.ExecContext(ctx, "DELETE FROM sections"); err != nil {
		return fmt.Errorf("failed to clear sections: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sections (seq, contract_id, section_type, language, title, text)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.ExecContext(ctx, i, r.ContractID, r.SectionType, r.Language, r.Title, r.Text); err != nil {
			return fmt.Errorf("failed to save record %d: %w", i+1, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) LoadCorpus(ctx context.Context) ([]ir.Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT contract_id, section_type, language, title, text FROM sections ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer rows.Close()

	var out []ir.Record
	for rows.Next() {
		var r ir.Record
		var title sql.NullString
		if err := rows.Scan(&r.ContractID, &r.SectionType, &r.Language, &title, &r.Text); err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		r.Title = title.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- ArtifactSink Implementation ---

func (s *SQLiteStore) Record(ctx context.Context, a generator.Artifact) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO attempts (request_id, attempt, section_type, language, state, started_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(request_id, attempt) DO UPDATE SET
			section_type=excluded.section_type,
			language=excluded.language,
			state=excluded.state,
			started_at=excluded.started_at,
			payload=excluded.payload
	`, a.RequestID, a.Attempt, a.Section, a.Language, string(a.State), a.StartedAt.Format("2006-01-02T15:04:05.000Z07:00"), payload)
	return err
}

func (s *SQLiteStore) Lookup(ctx context.Context, requestID string) ([]generator.Artifact, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT payload FROM attempts WHERE request_id = ? ORDER BY attempt", requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var out []generator.Artifact
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		var a generator.Artifact
		if err := json.Unmarshal(payload, &a); err != nil {
			return nil, fmt.Errorf("failed to decode attempt of %s: %w", requestID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Requests lists the stored section requests, most recent first.
func (s *SQLiteStore) Requests(ctx context.Context) ([]RequestSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.request_id, a.section_type, a.language, c.n, a.state
		FROM attempts a
		JOIN (SELECT request_id, COUNT(*) AS n, MAX(attempt) AS last FROM attempts GROUP BY request_id) c
			ON c.request_id = a.request_id AND c.last = a.attempt
		ORDER BY a.started_at DESC, a.request_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var out []RequestSummary
	for rows.Next() {
		var r RequestSummary
		if err := rows.Scan(&r.RequestID, &r.Section, &r.Language, &r.Attempts, &r.LastState); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
