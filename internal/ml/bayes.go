package ml

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GaussianNB models each feature as an independent normal per class.
type GaussianNB struct {
	// VarSmoothing is the share of the largest feature variance added to
	// every variance.
	VarSmoothing float64

	Prior [2]float64
	Mean  [2][]float64
	Var   [2][]float64
}

// NewGaussianNB returns a model with smoothing 1e-9.
func NewGaussianNB() *GaussianNB {
	return &GaussianNB{VarSmoothing: 1e-9}
}

// Fit estimates class priors and per-class feature moments.
func (m *GaussianNB) Fit(X [][]float64, y []int) error {
	d, err := checkTraining(X, y)
	if err != nil {
		return err
	}

	col := make([]float64, 0, len(X))
	var maxVar float64
	for j := 0; j < d; j++ {
		col = col[:0]
		for _, row := range X {
			col = append(col, row[j])
		}
		maxVar = math.Max(maxVar, stat.PopVariance(col, nil))
	}
	eps := m.VarSmoothing * maxVar
	if eps == 0 {
		eps = 1e-12
	}

	for c := 0; c < 2; c++ {
		m.Mean[c] = make([]float64, d)
		m.Var[c] = make([]float64, d)
		var count int
		for _, v := range y {
			if v == c {
				count++
			}
		}
		m.Prior[c] = float64(count) / float64(len(y))
		if count == 0 {
			continue
		}
		for j := 0; j < d; j++ {
			col = col[:0]
			for i, row := range X {
				if y[i] == c {
					col = append(col, row[j])
				}
			}
			mu, v := stat.PopMeanVariance(col, nil)
			m.Mean[c][j] = mu
			m.Var[c][j] = v + eps
		}
	}
	return nil
}

// PredictProba normalises the joint log-likelihoods with log-sum-exp.
func (m *GaussianNB) PredictProba(X [][]float64) ([]float64, error) {
	if err := checkInput(X, len(m.Mean[0])); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	joint := make([]float64, 2)
	for i, x := range X {
		for c := 0; c < 2; c++ {
			if m.Prior[c] == 0 {
				joint[c] = math.Inf(-1)
				continue
			}
			ll := math.Log(m.Prior[c])
			for j, v := range x {
				variance := m.Var[c][j]
				diff := v - m.Mean[c][j]
				ll -= 0.5 * (math.Log(2*math.Pi*variance) + diff*diff/variance)
			}
			joint[c] = ll
		}
		out[i] = math.Exp(joint[1] - floats.LogSumExp(joint))
	}
	return out, nil
}
