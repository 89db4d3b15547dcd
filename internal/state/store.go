// Package state records training runs, their per-model results and the
// predictions served, in SQLite.
package state

import (
	"context"
	"time"
)

// RunStatus is the lifecycle state of a training run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one execution of the training pipeline.
type Run struct {
	ID           string     `json:"id"`
	Status       RunStatus  `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Rows         int        `json:"rows"`
	Customers    int        `json:"customers"`
	BestModel    string     `json:"best_model,omitempty"`
	BestAccuracy float64    `json:"best_accuracy"`
	ModelPath    string     `json:"model_path,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// RunOutcome is what a finished run reports back.
type RunOutcome struct {
	Status       RunStatus
	Rows         int
	Customers    int
	BestModel    string
	BestAccuracy float64
	ModelPath    string
	Error        string
}

// ModelResult is one candidate's outcome within a run.
type ModelResult struct {
	RunID    string        `json:"run_id"`
	Model    string        `json:"model"`
	Trained  bool          `json:"trained"`
	Accuracy float64       `json:"accuracy"`
	CVMean   *float64      `json:"cv_mean,omitempty"`
	CVStd    *float64      `json:"cv_std,omitempty"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Prediction is one served churn score.
type Prediction struct {
	ID               string    `json:"id"`
	CustomerID       int64     `json:"customer_id"`
	Model            string    `json:"model"`
	ChurnProbability float64   `json:"churn_probability"`
	RiskTier         string    `json:"risk_tier"`
	CreatedAt        time.Time `json:"created_at"`
}

// Store is the persistence surface used by the pipeline, the CLI and the
// HTTP server.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	CreateRun(ctx context.Context) (*Run, error)
	CompleteRun(ctx context.Context, id string, out RunOutcome) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)

	RecordModelResult(ctx context.Context, r ModelResult) error
	GetModelResults(ctx context.Context, runID string) ([]ModelResult, error)

	RecordPrediction(ctx context.Context, p *Prediction) error
	ListPredictions(ctx context.Context, customerID int64, limit int) ([]*Prediction, error)
}

var _ Store = (*SQLiteStore)(nil)
