package ml

import (
	"fmt"
	"sort"
	"strings"
)

// Params are hyperparameters keyed by their conventional snake_case name.
// A nil value means "no limit" for max_depth.
type Params map[string]any

// String renders params sorted by key, e.g. "max_depth=3 n_estimators=50".
func (p Params) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		v := p[k]
		if v == nil {
			v = "none"
		}
		parts[i] = fmt.Sprintf("%s=%v", k, v)
	}
	return strings.Join(parts, " ")
}

// New builds the named candidate with its defaults, then applies params.
func New(name string, params Params, seed int64) (Classifier, error) {
	var c Classifier
	switch name {
	case RandomForestName:
		c = NewRandomForest(seed)
	case GradientBoostingName:
		c = NewGradientBoosting()
	case LogisticRegressionName:
		c = NewLogisticRegression()
	case DecisionTreeName:
		c = NewDecisionTree()
	case KNNName:
		c = NewKNN()
	case NaiveBayesName:
		c = NewGaussianNB()
	case AdaBoostName:
		c = NewAdaBoost()
	default:
		return nil, fmt.Errorf("unknown model %q", name)
	}
	if err := apply(c, params); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return c, nil
}

func apply(c Classifier, params Params) error {
	for key, v := range params {
		var err error
		switch m := c.(type) {
		case *RandomForest:
			switch key {
			case "n_estimators":
				m.NEstimators, err = asInt(v)
			case "max_depth":
				m.MaxDepth, err = asInt(v)
			case "min_samples_split":
				m.MinSamplesSplit, err = asInt(v)
			case "min_samples_leaf":
				m.MinSamplesLeaf, err = asInt(v)
			default:
				err = unknownParam(key)
			}
		case *GradientBoosting:
			switch key {
			case "n_estimators":
				m.NEstimators, err = asInt(v)
			case "learning_rate":
				m.LearningRate, err = asFloat(v)
			case "max_depth":
				m.MaxDepth, err = asInt(v)
			default:
				err = unknownParam(key)
			}
		case *LogisticRegression:
			switch key {
			case "C":
				m.C, err = asFloat(v)
			case "penalty":
				m.Penalty, err = asString(v)
			case "solver":
				// Both solvers reach the same optimum here.
				_, err = asString(v)
			default:
				err = unknownParam(key)
			}
		case *DecisionTree:
			switch key {
			case "max_depth":
				m.MaxDepth, err = asInt(v)
			case "min_samples_split":
				m.MinSamplesSplit, err = asInt(v)
			case "criterion":
				var s string
				s, err = asString(v)
				m.Criterion = Criterion(s)
			default:
				err = unknownParam(key)
			}
		case *KNN:
			switch key {
			case "n_neighbors":
				m.K, err = asInt(v)
			case "weights":
				m.Weights, err = asString(v)
			case "metric":
				m.Metric, err = asString(v)
			default:
				err = unknownParam(key)
			}
		default:
			err = unknownParam(key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func unknownParam(key string) error {
	return fmt.Errorf("unknown parameter %q", key)
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	}
	return 0, fmt.Errorf("expected integer, got %T", v)
}

func asFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}

func asString(v any) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("expected string, got %T", v)
}
