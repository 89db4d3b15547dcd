// Package trainer fits the candidate churn models, selects the best one and
// persists it together with the feature schema.
package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Harley062/projeto-IA-Adega/internal/evaluate"
	"github.com/Harley062/projeto-IA-Adega/internal/ml"
)

// Factory builds an unfitted model by name.
type Factory func(name string, params ml.Params) (ml.Classifier, error)

// Config holds trainer configuration.
type Config struct {
	// Models to train, in selection order (default ml.Roster).
	Models []string
	// Seed for every randomised model and fold assignment.
	Seed int64
	// Compare picks the winner (default ByAccuracy).
	Compare Comparator
	// Factory overrides model construction (default ml.New).
	Factory Factory
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Trainer trains and compares candidate models.
type Trainer struct {
	models  []string
	seed    int64
	compare Comparator
	factory Factory
	logger  *slog.Logger
}

// New creates a trainer.
func New(cfg Config) *Trainer {
	t := &Trainer{
		models:  cfg.Models,
		seed:    cfg.Seed,
		compare: cfg.Compare,
		factory: cfg.Factory,
		logger:  cfg.Logger,
	}
	if len(t.models) == 0 {
		t.models = ml.Roster
	}
	if t.compare == nil {
		t.compare = ByAccuracy
	}
	if t.factory == nil {
		seed := cfg.Seed
		t.factory = func(name string, params ml.Params) (ml.Classifier, error) {
			return ml.New(name, params, seed)
		}
	}
	if t.logger == nil {
		t.logger = slog.New(slog.DiscardHandler)
	}
	return t
}

// Result is the outcome of training one candidate.
type Result struct {
	Name     string
	Model    ml.Classifier
	Trained  bool
	Accuracy float64
	Err      error
	Duration time.Duration
}

// Report holds every candidate's result in roster order and the winner.
type Report struct {
	Results []Result
	Best    *Result
}

// Result returns the named result.
func (r *Report) Result(name string) (*Result, bool) {
	for i := range r.Results {
		if r.Results[i].Name == name {
			return &r.Results[i], true
		}
	}
	return nil, false
}

// TrainAll fits every candidate on the training split and scores it on the
// test split. Candidates train concurrently and a failure, including a
// panic, is recorded on that candidate only. Selection then walks the
// results in roster order.
func (t *Trainer) TrainAll(ctx context.Context, Xtr [][]float64, ytr []int, Xte [][]float64, yte []int) *Report {
	results := make([]Result, len(t.models))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range t.models {
		g.Go(func() error {
			results[i] = t.trainOne(ctx, name, Xtr, ytr, Xte, yte)
			return nil
		})
	}
	_ = g.Wait()

	report := &Report{Results: results}
	if best, ok := SelectBest(results, t.compare); ok {
		report.Best = &results[best]
		t.logger.Info("best model selected", "model", report.Best.Name, "accuracy", report.Best.Accuracy)
	} else {
		t.logger.Warn("no candidate model was trained")
	}
	return report
}

func (t *Trainer) trainOne(ctx context.Context, name string, Xtr [][]float64, ytr []int, Xte [][]float64, yte []int) (res Result) {
	res.Name = name
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = Result{Name: name, Err: fmt.Errorf("panic while training %s: %v", name, r)}
			t.logger.Error("model training panicked", "model", name, "panic", r, "stack", string(debug.Stack()))
		}
		res.Duration = time.Since(start)
	}()

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	t.logger.Info("training model", "model", name)
	model, err := t.factory(name, nil)
	if err != nil {
		res.Err = err
		return res
	}
	if err := model.Fit(Xtr, ytr); err != nil {
		res.Err = fmt.Errorf("failed to fit %s: %w", name, err)
		t.logger.Error("model training failed", "model", name, "error", err)
		return res
	}
	pred, err := ml.Predict(model, Xte)
	if err != nil {
		res.Err = fmt.Errorf("failed to score %s: %w", name, err)
		return res
	}

	res.Model = model
	res.Trained = true
	res.Accuracy = evaluate.Accuracy(yte, pred)
	t.logger.Info("model trained", "model", name, "accuracy", res.Accuracy)
	return res
}
