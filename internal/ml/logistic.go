package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// LogisticRegression is a regularised logistic model fit by batch gradient
// descent on standardised features.
type LogisticRegression struct {
	// C is the inverse regularisation strength.
	C float64
	// Penalty is "l2" or "l1".
	Penalty string
	MaxIter int
	Tol     float64

	Mean      []float64
	Scale     []float64
	Coef      []float64
	Intercept float64
}

// NewLogisticRegression returns an L2 model with C=1 and up to 1000 iterations.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{C: 1, Penalty: "l2", MaxIter: 1000, Tol: 1e-6}
}

const logisticStep = 0.5

// Fit minimises mean log-loss plus the penalty scaled by 1/(C·n).
func (m *LogisticRegression) Fit(X [][]float64, y []int) error {
	d, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	if m.C <= 0 {
		return fmt.Errorf("C must be positive, got %g", m.C)
	}
	if m.Penalty != "l1" && m.Penalty != "l2" {
		return fmt.Errorf("unsupported penalty %q", m.Penalty)
	}

	n := len(X)
	m.Mean = make([]float64, d)
	m.Scale = make([]float64, d)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		mu, std := stat.PopMeanStdDev(col, nil)
		m.Mean[j] = mu
		if std < 1e-12 {
			std = 1
		}
		m.Scale[j] = std
	}
	Z := make([][]float64, n)
	for i, row := range X {
		Z[i] = m.standardize(row)
	}

	lambda := 1 / (m.C * float64(n))
	w := make([]float64, d)
	grad := make([]float64, d)
	var b float64
	for iter := 0; iter < m.MaxIter; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		var gb float64
		for i, z := range Z {
			e := sigmoid(floats.Dot(w, z)+b) - float64(y[i])
			floats.AddScaled(grad, e, z)
			gb += e
		}
		floats.Scale(1/float64(n), grad)
		gb /= float64(n)
		if m.Penalty == "l2" {
			floats.AddScaled(grad, lambda, w)
		}

		var change float64
		for j := range w {
			next := w[j] - logisticStep*grad[j]
			if m.Penalty == "l1" {
				next = softThreshold(next, logisticStep*lambda)
			}
			change = math.Max(change, math.Abs(next-w[j]))
			w[j] = next
		}
		b -= logisticStep * gb
		change = math.Max(change, math.Abs(logisticStep*gb))
		if change < m.Tol {
			break
		}
	}

	m.Coef = w
	m.Intercept = b
	return nil
}

func softThreshold(v, t float64) float64 {
	switch {
	case v > t:
		return v - t
	case v < -t:
		return v + t
	default:
		return 0
	}
}

func (m *LogisticRegression) standardize(row []float64) []float64 {
	z := make([]float64, len(row))
	for j, v := range row {
		z[j] = (v - m.Mean[j]) / m.Scale[j]
	}
	return z
}

// PredictProba returns sigmoid(w·z + b).
func (m *LogisticRegression) PredictProba(X [][]float64) ([]float64, error) {
	if err := checkInput(X, len(m.Coef)); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = sigmoid(floats.Dot(m.Coef, m.standardize(x)) + m.Intercept)
	}
	return out, nil
}
