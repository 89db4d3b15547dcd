package state

import (
	"context"
	"fmt"
	"time"
)

// RecordPrediction stores a served prediction, assigning its ID and
// timestamp when unset.
func (s *SQLiteStore) RecordPrediction(ctx context.Context, p *Prediction) error {
	if s.db == nil {
		return errNotOpened
	}
	if p.ID == "" {
		p.ID = generateID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO predictions (id, customer_id, model, churn_probability, risk_tier, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.CustomerID, p.Model, p.ChurnProbability, p.RiskTier, formatTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record prediction: %w", err)
	}
	return nil
}

// ListPredictions returns a customer's predictions, newest first. A
// negative customerID lists every customer.
func (s *SQLiteStore) ListPredictions(ctx context.Context, customerID int64, limit int) ([]*Prediction, error) {
	if s.db == nil {
		return nil, errNotOpened
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, customer_id, model, churn_probability, risk_tier, created_at FROM predictions
		 WHERE ? < 0 OR customer_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		customerID, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list predictions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []*Prediction{}
	for rows.Next() {
		var (
			p       Prediction
			created string
		)
		if err := rows.Scan(&p.ID, &p.CustomerID, &p.Model, &p.ChurnProbability, &p.RiskTier, &created); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		if p.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func msDuration(ms int64) time.Duration { return time.Duration(ms) * time.Millisecond }
