package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run is one recorded ingest.
type Run struct {
	ID           string     `json:"id" yaml:"id"`
	Source       string     `json:"source" yaml:"source"`
	StartedAt    time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	State        string     `json:"state" yaml:"state"`
	Lines        int64      `json:"lines" yaml:"lines"`
	Records      int64      `json:"records" yaml:"records"`
	Facts        int64      `json:"facts" yaml:"facts"`
	RecordErrors int64      `json:"record_errors" yaml:"record_errors"`
	SendFailures int64      `json:"send_failures" yaml:"send_failures"`
}

// timeFormat keeps a fixed width so timestamps sort as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// RunStateRunning marks a run that has not finished. A run left in this
// state was interrupted before it could record its outcome.
const RunStateRunning = "running"

// BeginRun records the start of an ingest and returns its id.
func (s *Store) BeginRun(ctx context.Context, source string, startedAt time.Time) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, started_at, state) VALUES (?, ?, ?, ?)`,
		id, source, startedAt.UTC().Format(timeFormat), RunStateRunning,
	)
	if err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	return id, nil
}

// FinishRun stores the outcome of a run.
func (s *Store) FinishRun(ctx context.Context, r Run) error {
	finished := time.Now()
	if r.FinishedAt != nil {
		finished = *r.FinishedAt
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at=?, state=?, lines=?, records=?, facts=?, record_errors=?, send_failures=?
		 WHERE id=?`,
		finished.UTC().Format(timeFormat), r.State,
		r.Lines, r.Records, r.Facts, r.RecordErrors, r.SendFailures, r.ID,
	)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", r.ID)
	}
	return nil
}

// RecentRuns returns the latest runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, started_at, finished_at, state, lines, records, facts, record_errors, send_failures
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Source, &started, &finished, &r.State,
			&r.Lines, &r.Records, &r.Facts, &r.RecordErrors, &r.SendFailures); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt, _ = time.Parse(timeFormat, started)
		if finished.Valid {
			if t, err := time.Parse(timeFormat, finished.String); err == nil {
				r.FinishedAt = &t
			}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
