package ml

import (
	"errors"
	"math"
)

// AdaBoost reweights training rows after each decision stump (SAMME).
type AdaBoost struct {
	NEstimators  int
	LearningRate float64

	Stumps      []*Tree
	Alphas      []float64
	Importances []float64
	Features    int
}

// NewAdaBoost returns 50 stumps at learning rate 1.
func NewAdaBoost() *AdaBoost {
	return &AdaBoost{NEstimators: 50, LearningRate: 1}
}

// Fit boosts stumps until NEstimators are kept, a stump fits perfectly or
// a stump is no better than chance.
func (m *AdaBoost) Fit(X [][]float64, y []int) error {
	d, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	n := len(X)
	target := labelsAsFloat(y)
	rows := allRows(n)
	weight := make([]float64, n)
	for i := range weight {
		weight[i] = 1 / float64(n)
	}

	m.Stumps, m.Alphas = nil, nil
	m.Importances = make([]float64, d)
	miss := make([]bool, n)
	for stage := 0; stage < m.NEstimators; stage++ {
		stump := buildTree(X, target, weight, rows, treeParams{maxDepth: 1, criterion: Gini}, nil, nil)

		var errW, total float64
		for i, x := range X {
			pred := 0
			if stump.Predict(x) >= 0.5 {
				pred = 1
			}
			miss[i] = pred != y[i]
			total += weight[i]
			if miss[i] {
				errW += weight[i]
			}
		}
		errRate := errW / total

		if errRate <= 0 {
			m.keep(stump, 1)
			break
		}
		if errRate >= 0.5 {
			if len(m.Stumps) == 0 {
				return errors.New("first stump is no better than chance")
			}
			break
		}

		alpha := m.LearningRate * math.Log((1-errRate)/errRate)
		m.keep(stump, alpha)

		var sum float64
		for i := range weight {
			if miss[i] {
				weight[i] *= math.Exp(alpha)
			}
			sum += weight[i]
		}
		for i := range weight {
			weight[i] /= sum
		}
	}

	normalize(m.Importances)
	m.Features = d
	return nil
}

func (m *AdaBoost) keep(stump *Tree, alpha float64) {
	m.Stumps = append(m.Stumps, stump)
	m.Alphas = append(m.Alphas, alpha)
	for j, v := range stump.Importances {
		m.Importances[j] += alpha * v
	}
}

// PredictProba maps the normalised weighted vote F in [-1, 1] to
// sigmoid(2F).
func (m *AdaBoost) PredictProba(X [][]float64) ([]float64, error) {
	if len(m.Stumps) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkInput(X, m.Features); err != nil {
		return nil, err
	}
	var norm float64
	for _, a := range m.Alphas {
		norm += a
	}
	out := make([]float64, len(X))
	for i, x := range X {
		var f float64
		for k, s := range m.Stumps {
			vote := -1.0
			if s.Predict(x) >= 0.5 {
				vote = 1
			}
			f += m.Alphas[k] * vote
		}
		out[i] = sigmoid(2 * f / norm)
	}
	return out, nil
}

// FeatureImportances returns the alpha-weighted stump importances.
func (m *AdaBoost) FeatureImportances() []float64 { return m.Importances }
