package trainer

import (
	"context"
	"fmt"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Harley062/projeto-IA-Adega/internal/evaluate"
	"github.com/Harley062/projeto-IA-Adega/internal/ml"
)

// CVResult summarises one model's k-fold accuracy.
type CVResult struct {
	Name   string
	Scores []float64
	Mean   float64
	Std    float64
	Min    float64
	Max    float64
	Err    error
}

// crossValidate returns the held-out accuracy of each fold.
func (t *Trainer) crossValidate(ctx context.Context, name string, params ml.Params, X [][]float64, y []int, folds [][]int) ([]float64, error) {
	scores := make([]float64, 0, len(folds))
	for _, held := range folds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		model, err := t.factory(name, params)
		if err != nil {
			return nil, err
		}
		train := ml.Complement(len(y), held)
		if err := model.Fit(ml.Rows(X, train), ml.Labels(y, train)); err != nil {
			return nil, fmt.Errorf("failed to fit %s: %w", name, err)
		}
		pred, err := ml.Predict(model, ml.Rows(X, held))
		if err != nil {
			return nil, err
		}
		scores = append(scores, evaluate.Accuracy(ml.Labels(y, held), pred))
	}
	return scores, nil
}

// CrossValidateAll runs stratified k-fold cross-validation for every
// candidate on the whole data set. Failures are recorded per model.
func (t *Trainer) CrossValidateAll(ctx context.Context, X [][]float64, y []int, k int) ([]CVResult, error) {
	folds, err := ml.StratifiedKFold(y, k, t.seed)
	if err != nil {
		return nil, fmt.Errorf("failed to build folds: %w", err)
	}

	results := make([]CVResult, len(t.models))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range t.models {
		g.Go(func() error {
			res := CVResult{Name: name}
			defer func() {
				if r := recover(); r != nil {
					res.Err = fmt.Errorf("panic while cross-validating %s: %v", name, r)
				}
				results[i] = res
			}()

			scores, err := t.crossValidate(ctx, name, nil, X, y, folds)
			if err != nil {
				res.Err = err
				t.logger.Error("cross-validation failed", "model", name, "error", err)
				return nil
			}
			res.Scores = scores
			res.Mean, res.Std = stat.PopMeanStdDev(scores, nil)
			res.Min = floats.Min(scores)
			res.Max = floats.Max(scores)
			t.logger.Info("cross-validated model", "model", name, "mean", res.Mean, "std", res.Std)
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// Grid maps a parameter name to the values to try.
type Grid map[string][]any

// DefaultGrids are the search spaces used when Tune gets no grid.
// Naive Bayes and AdaBoost have none.
var DefaultGrids = map[string]Grid{
	ml.RandomForestName: {
		"n_estimators":      {50, 100, 200},
		"max_depth":         {nil, 10, 20, 30},
		"min_samples_split": {2, 5, 10},
		"min_samples_leaf":  {1, 2, 4},
	},
	ml.GradientBoostingName: {
		"n_estimators":  {50, 100, 200},
		"learning_rate": {0.01, 0.1, 0.2},
		"max_depth":     {3, 5, 7},
	},
	ml.LogisticRegressionName: {
		"C":       {0.001, 0.01, 0.1, 1.0, 10.0},
		"penalty": {"l1", "l2"},
		"solver":  {"liblinear", "saga"},
	},
	ml.DecisionTreeName: {
		"max_depth":         {nil, 10, 20, 30},
		"min_samples_split": {2, 5, 10},
		"criterion":         {"gini", "entropy"},
	},
	ml.KNNName: {
		"n_neighbors": {3, 5, 7, 9, 11},
		"weights":     {"uniform", "distance"},
		"metric":      {"euclidean", "manhattan"},
	},
}

// Combinations expands the grid in a stable order: keys sorted, the last
// key varying fastest.
func (g Grid) Combinations() []ml.Params {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	combos := []ml.Params{{}}
	for _, k := range keys {
		var next []ml.Params
		for _, c := range combos {
			for _, v := range g[k] {
				p := make(ml.Params, len(c)+1)
				for ck, cv := range c {
					p[ck] = cv
				}
				p[k] = v
				next = append(next, p)
			}
		}
		combos = next
	}
	return combos
}

// TuneResult is the outcome of a grid search.
type TuneResult struct {
	Model      ml.Classifier
	BestParams ml.Params
	BestScore  float64
	Evaluated  int
}

// Tune grid-searches one model by mean k-fold accuracy and refits the best
// parameters on all rows. A nil grid uses DefaultGrids; a model without a
// grid is fit with its defaults and an empty parameter set.
func (t *Trainer) Tune(ctx context.Context, name string, X [][]float64, y []int, grid Grid, k int) (*TuneResult, error) {
	if grid == nil {
		grid = DefaultGrids[name]
	}
	if len(grid) == 0 {
		t.logger.Warn("no parameters to tune", "model", name)
		model, err := t.factory(name, nil)
		if err != nil {
			return nil, err
		}
		if err := model.Fit(X, y); err != nil {
			return nil, fmt.Errorf("failed to fit %s: %w", name, err)
		}
		return &TuneResult{Model: model, BestParams: ml.Params{}}, nil
	}

	folds, err := ml.StratifiedKFold(y, k, t.seed)
	if err != nil {
		return nil, fmt.Errorf("failed to build folds: %w", err)
	}

	combos := grid.Combinations()
	scores := make([]float64, len(combos))
	errs := make([]error, len(combos))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, params := range combos {
		g.Go(func() error {
			s, err := t.crossValidate(ctx, name, params, X, y, folds)
			if err != nil {
				errs[i] = err
				return nil
			}
			scores[i] = stat.Mean(s, nil)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	best := -1
	for i := range combos {
		if errs[i] != nil {
			t.logger.Warn("parameter combination failed", "model", name, "params", combos[i].String(), "error", errs[i])
			continue
		}
		if best < 0 || scores[i] > scores[best] {
			best = i
		}
	}
	if best < 0 {
		return nil, fmt.Errorf("every parameter combination failed for %s: %w", name, errs[0])
	}

	model, err := t.factory(name, combos[best])
	if err != nil {
		return nil, err
	}
	if err := model.Fit(X, y); err != nil {
		return nil, fmt.Errorf("failed to fit %s: %w", name, err)
	}
	t.logger.Info("tuned model", "model", name, "params", combos[best].String(), "cv_accuracy", scores[best])
	return &TuneResult{Model: model, BestParams: combos[best], BestScore: scores[best], Evaluated: len(combos)}, nil
}
