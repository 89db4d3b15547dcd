package ml

import (
	"fmt"
	"math"
	"sort"
)

// KNN votes among the K nearest training rows.
type KNN struct {
	K int
	// Weights is "uniform" or "distance".
	Weights string
	// Metric is "euclidean" or "manhattan".
	Metric string

	X [][]float64
	Y []int
}

// NewKNN returns a 5-neighbour uniform euclidean model.
func NewKNN() *KNN {
	return &KNN{K: 5, Weights: "uniform", Metric: "euclidean"}
}

// Fit stores the training rows.
func (m *KNN) Fit(X [][]float64, y []int) error {
	if _, err := checkTraining(X, y); err != nil {
		return err
	}
	if m.K <= 0 {
		return fmt.Errorf("K must be positive, got %d", m.K)
	}
	switch m.Metric {
	case "euclidean", "manhattan":
	default:
		return fmt.Errorf("unsupported metric %q", m.Metric)
	}
	m.X = X
	m.Y = y
	return nil
}

func (m *KNN) distance(a, b []float64) float64 {
	var s float64
	if m.Metric == "manhattan" {
		for i := range a {
			s += math.Abs(a[i] - b[i])
		}
		return s
	}
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}

type neighbour struct {
	dist  float64
	label int
}

// PredictProba returns the (optionally distance weighted) positive share
// among the nearest neighbours.
func (m *KNN) PredictProba(X [][]float64) ([]float64, error) {
	if len(m.X) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkInput(X, len(m.X[0])); err != nil {
		return nil, err
	}

	k := min(m.K, len(m.X))
	out := make([]float64, len(X))
	nb := make([]neighbour, len(m.X))
	for i, x := range X {
		for j, t := range m.X {
			nb[j] = neighbour{dist: m.distance(x, t), label: m.Y[j]}
		}
		sort.SliceStable(nb, func(a, b int) bool { return nb[a].dist < nb[b].dist })

		var pos, total float64
		exact := m.Weights == "distance" && nb[0].dist == 0
		for _, n := range nb[:k] {
			w := 1.0
			if m.Weights == "distance" {
				switch {
				case exact && n.dist > 0:
					continue
				case !exact:
					w = 1 / n.dist
				}
			}
			total += w
			pos += w * float64(n.label)
		}
		out[i] = pos / total
	}
	return out, nil
}
