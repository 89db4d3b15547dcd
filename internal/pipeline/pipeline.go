// Package pipeline runs the full training flow: load the seller's files,
// clean and merge them, engineer features, train and compare every model,
// persist the winner and write its evaluation report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Harley062/projeto-IA-Adega/internal/dataset"
	"github.com/Harley062/projeto-IA-Adega/internal/evaluate"
	"github.com/Harley062/projeto-IA-Adega/internal/features"
	"github.com/Harley062/projeto-IA-Adega/internal/ml"
	"github.com/Harley062/projeto-IA-Adega/internal/state"
	"github.com/Harley062/projeto-IA-Adega/internal/trainer"
)

// Defaults for the split and cross-validation.
const (
	DefaultTestSize = 0.2
	DefaultSeed     = 42
	DefaultCVFolds  = 5
	DefaultTopN     = 10
)

// Config holds pipeline configuration.
type Config struct {
	// Data locates the three source files.
	Data dataset.Config
	// Features selects the derivation families.
	Features features.Options
	// TestSize is the held-out fraction (default 0.2).
	TestSize float64
	// Seed drives the split, the folds and every randomised model.
	Seed int64
	// CVFolds is the number of cross-validation folds; below 2 skips
	// cross-validation.
	CVFolds int
	// Models restricts the candidates (default ml.Roster).
	Models []string
	// ModelsDir receives the best model bundle.
	ModelsDir string
	// ReportsDir receives the evaluation report.
	ReportsDir string
	// Store records the run (optional).
	Store state.Store
	// Logger is the structured logger (optional, uses discard if nil).
	Logger *slog.Logger
}

// Pipeline runs training end to end.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// New creates a pipeline.
func New(cfg Config) *Pipeline {
	if cfg.TestSize <= 0 || cfg.TestSize >= 1 {
		cfg.TestSize = DefaultTestSize
	}
	if cfg.ModelsDir == "" {
		cfg.ModelsDir = "output/models"
	}
	if cfg.ReportsDir == "" {
		cfg.ReportsDir = "output/reports"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cfg.Data.Logger = logger
	return &Pipeline{cfg: cfg, logger: logger, now: time.Now}
}

// Result is everything a training run produced.
type Result struct {
	// Run is the recorded run, nil without a store.
	Run         *state.Run
	Summary     dataset.DataSummary
	Validation  *dataset.ValidationReport
	DroppedRows int
	Columns     []string
	TrainRows   int
	TestRows    int
	Training    *trainer.Report
	CV          []trainer.CVResult
	Metrics     evaluate.Metrics
	Importances []trainer.Importance
	ModelPath   string
	ReportPath  string
}

// Best is the winning candidate, or nil when none trained.
func (r *Result) Best() *trainer.Result {
	if r.Training == nil {
		return nil
	}
	return r.Training.Best
}

// Run executes the pipeline. With a store configured the run and every
// candidate's result are recorded, including on failure.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	p.logger.Info("starting training pipeline", "data_dir", p.cfg.Data.DataDir)

	var runID string
	if p.cfg.Store != nil {
		run, err := p.cfg.Store.CreateRun(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
		runID = run.ID
		p.logger.Debug("created run", "run_id", runID)
	}

	res, runErr := p.run(ctx, runID)
	if p.cfg.Store == nil {
		return res, runErr
	}

	out := state.RunOutcome{Status: state.RunStatusCompleted}
	if res != nil {
		out.Rows = res.Summary.Rows
		out.Customers = res.Summary.Customers
		out.ModelPath = res.ModelPath
		if best := res.Best(); best != nil {
			out.BestModel = best.Name
			out.BestAccuracy = best.Accuracy
		}
		if err := p.recordResults(ctx, runID, res); err != nil {
			p.logger.Warn("failed to record model results", "run_id", runID, "error", err)
		}
	}
	if runErr != nil {
		out.Status = state.RunStatusFailed
		out.Error = runErr.Error()
		p.logger.Info("run failed", "run_id", runID, "error", runErr.Error())
	} else {
		p.logger.Info("run completed", "run_id", runID)
	}
	if err := p.cfg.Store.CompleteRun(ctx, runID, out); err != nil {
		p.logger.Warn("failed to complete run", "run_id", runID, "error", err)
	}

	if res == nil {
		res = &Result{}
	}
	res.Run, _ = p.cfg.Store.GetRun(ctx, runID)
	return res, runErr
}

// prepare loads, validates and cleans the data and fits the features.
func (p *Pipeline) prepare(ctx context.Context) (*Result, *features.TrainingSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	tables, err := dataset.NewLoader(p.cfg.Data).Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	validation, err := dataset.Validate(tables, p.logger)
	if err != nil {
		return nil, nil, err
	}

	recs, dropped := dataset.Clean(dataset.Merge(tables), true)
	res := &Result{Validation: validation, DroppedRows: dropped, Summary: dataset.Summary(recs)}
	p.logger.Info("data prepared", "rows", len(recs), "dropped", dropped, "customers", res.Summary.Customers)

	ts, err := features.NewEngineer(p.cfg.Features, p.logger).Fit(recs)
	if err != nil {
		return res, nil, err
	}
	res.Columns = ts.Schema.Columns
	return res, ts, nil
}

// TuneResult is the outcome of tuning one model on the prepared data.
type TuneResult struct {
	Model      string
	Rows       int
	Folds      int
	BestParams ml.Params
	BestScore  float64
	Evaluated  int
}

// Tune grid-searches one candidate over the default grid by cross-validated
// accuracy on every prepared row. The folds default to DefaultCVFolds.
func (p *Pipeline) Tune(ctx context.Context, model string, folds int) (*TuneResult, error) {
	if folds < 2 {
		folds = DefaultCVFolds
	}
	_, ts, err := p.prepare(ctx)
	if err != nil {
		return nil, err
	}

	tr := trainer.New(trainer.Config{Models: []string{model}, Seed: p.cfg.Seed, Logger: p.logger})
	res, err := tr.Tune(ctx, model, ts.X, ts.Y, nil, folds)
	if err != nil {
		return nil, fmt.Errorf("failed to tune %s: %w", model, err)
	}
	p.logger.Info("tuning finished", "model", model, "params", res.BestParams.String(), "score", res.BestScore)
	return &TuneResult{
		Model:      model,
		Rows:       len(ts.Y),
		Folds:      folds,
		BestParams: res.BestParams,
		BestScore:  res.BestScore,
		Evaluated:  res.Evaluated,
	}, nil
}

func (p *Pipeline) run(ctx context.Context, runID string) (*Result, error) {
	res, ts, err := p.prepare(ctx)
	if err != nil {
		return res, err
	}

	trainIdx, testIdx, err := ml.StratifiedSplit(ts.Y, p.cfg.TestSize, p.cfg.Seed)
	if err != nil {
		return res, fmt.Errorf("failed to split data: %w", err)
	}
	Xtr, ytr := ml.Rows(ts.X, trainIdx), ml.Labels(ts.Y, trainIdx)
	Xte, yte := ml.Rows(ts.X, testIdx), ml.Labels(ts.Y, testIdx)
	res.TrainRows, res.TestRows = len(trainIdx), len(testIdx)
	p.logger.Info("data split", "train", res.TrainRows, "test", res.TestRows)

	tr := trainer.New(trainer.Config{Models: p.cfg.Models, Seed: p.cfg.Seed, Logger: p.logger})
	res.Training = tr.TrainAll(ctx, Xtr, ytr, Xte, yte)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	best := res.Training.Best
	if best == nil {
		errs := make([]error, 0, len(res.Training.Results))
		for _, r := range res.Training.Results {
			errs = append(errs, r.Err)
		}
		return res, fmt.Errorf("no model could be trained: %w", errors.Join(errs...))
	}

	if p.cfg.CVFolds >= 2 {
		res.CV, err = tr.CrossValidateAll(ctx, ts.X, ts.Y, p.cfg.CVFolds)
		if err != nil {
			p.logger.Warn("cross-validation skipped", "error", err)
		}
	}

	proba, err := best.Model.PredictProba(Xte)
	if err != nil {
		return res, fmt.Errorf("failed to score %s: %w", best.Name, err)
	}
	pred := make([]int, len(proba))
	for i, pr := range proba {
		pred[i] = ml.Label(pr)
	}
	res.Metrics, err = evaluate.Compute(yte, pred, proba)
	if err != nil {
		return res, fmt.Errorf("failed to evaluate %s: %w", best.Name, err)
	}
	res.Importances = trainer.FeatureImportance(best.Model, ts.Schema.Columns, DefaultTopN)

	at := p.now()
	res.ModelPath, err = trainer.SaveModel(&trainer.Bundle{
		Name:      best.Name,
		Model:     best.Model,
		Schema:    ts.Schema,
		Metrics:   res.Metrics,
		Params:    ml.Params(nil).String(),
		RunID:     runID,
		TrainedAt: at,
	}, p.cfg.ModelsDir)
	if err != nil {
		return res, err
	}
	p.logger.Info("model saved", "path", res.ModelPath)

	res.ReportPath, err = evaluate.WriteReport(p.cfg.ReportsDir, best.Name, res.Metrics,
		evaluate.ClassificationReport(yte, pred), at)
	if err != nil {
		return res, err
	}
	p.logger.Info("evaluation report written", "path", res.ReportPath)
	return res, nil
}

func (p *Pipeline) recordResults(ctx context.Context, runID string, res *Result) error {
	if res.Training == nil {
		return nil
	}
	cv := make(map[string]trainer.CVResult, len(res.CV))
	for _, c := range res.CV {
		if c.Err == nil {
			cv[c.Name] = c
		}
	}

	var errs []error
	for _, r := range res.Training.Results {
		mr := state.ModelResult{
			RunID:    runID,
			Model:    r.Name,
			Trained:  r.Trained,
			Accuracy: r.Accuracy,
			Duration: r.Duration,
		}
		if r.Err != nil {
			mr.Error = r.Err.Error()
		}
		if c, ok := cv[r.Name]; ok {
			mean, std := c.Mean, c.Std
			mr.CVMean, mr.CVStd = &mean, &std
		}
		if err := p.cfg.Store.RecordModelResult(ctx, mr); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
