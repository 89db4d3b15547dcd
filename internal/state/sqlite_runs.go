package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
)

// CreateRun starts a new training run.
func (s *SQLiteStore) CreateRun(ctx context.Context) (*Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	run := &Run{ID: generateID(), Status: RunStatusRunning, StartedAt: s.now()}
	s.logger.Debug("creating run", slog.String("id", run.ID))

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, started_at) VALUES (?, ?, ?)`,
		run.ID, string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun stores the outcome of a run.
func (s *SQLiteStore) CompleteRun(ctx context.Context, id string, out RunOutcome) error {
	if s.db == nil {
		return errNotOpened
	}

	var best sql.NullFloat64
	if out.BestModel != "" {
		best = sql.NullFloat64{Float64: out.BestAccuracy, Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, completed_at = ?, rows_used = ?, customers = ?,
		 best_model = ?, best_accuracy = ?, model_path = ?, error = ? WHERE id = ?`,
		string(out.Status), formatTime(s.now()), out.Rows, out.Customers,
		nullString(out.BestModel), best, nullString(out.ModelPath), nullString(out.Error), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

const runColumns = `id, status, started_at, completed_at, rows_used, customers, best_model, best_accuracy, model_path, error`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run                        Run
		status, started            string
		completed, best, path, msg sql.NullString
		accuracy                   sql.NullFloat64
	)
	if err := row.Scan(&run.ID, &status, &started, &completed, &run.Rows, &run.Customers,
		&best, &accuracy, &path, &msg); err != nil {
		return nil, err
	}

	var err error
	run.Status = RunStatus(status)
	if run.StartedAt, err = parseTime(started); err != nil {
		return nil, err
	}
	if completed.Valid {
		t, err := parseTime(completed.String)
		if err != nil {
			return nil, err
		}
		run.CompletedAt = &t
	}
	run.BestModel = best.String
	run.BestAccuracy = accuracy.Float64
	run.ModelPath = path.String
	run.Error = msg.String
	return &run, nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RecordModelResult stores one candidate's outcome. Recording the same
// model twice for a run replaces the earlier row.
func (s *SQLiteStore) RecordModelResult(ctx context.Context, r ModelResult) error {
	if s.db == nil {
		return errNotOpened
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO model_results
		 (run_id, model, trained, accuracy, cv_mean, cv_std, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Model, r.Trained, r.Accuracy, nullFloat(r.CVMean), nullFloat(r.CVStd),
		r.Duration.Milliseconds(), nullString(r.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to record result for %s: %w", r.Model, err)
	}
	return nil
}

// GetModelResults returns a run's results, best accuracy first.
func (s *SQLiteStore) GetModelResults(ctx context.Context, runID string) ([]ModelResult, error) {
	if s.db == nil {
		return nil, errNotOpened
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, model, trained, accuracy, cv_mean, cv_std, duration_ms, error
		 FROM model_results WHERE run_id = ? ORDER BY accuracy DESC, model`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get model results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := []ModelResult{}
	for rows.Next() {
		var (
			r          ModelResult
			mean, std  sql.NullFloat64
			durationMS int64
			msg        sql.NullString
		)
		if err := rows.Scan(&r.RunID, &r.Model, &r.Trained, &r.Accuracy, &mean, &std, &durationMS, &msg); err != nil {
			return nil, fmt.Errorf("failed to scan model result: %w", err)
		}
		if mean.Valid {
			r.CVMean = &mean.Float64
		}
		if std.Valid {
			r.CVStd = &std.Float64
		}
		r.Duration = msDuration(durationMS)
		r.Error = msg.String
		results = append(results, r)
	}
	return results, rows.Err()
}
