package ml

import "math"

// GradientBoosting fits shallow regression trees to the log-loss gradient.
// Leaf values take one Newton step.
type GradientBoosting struct {
	NEstimators     int
	LearningRate    float64
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int

	Init        float64
	Trees       []*Tree
	Importances []float64
	Features    int
}

// NewGradientBoosting returns 100 stages of depth-3 trees at rate 0.1.
func NewGradientBoosting() *GradientBoosting {
	return &GradientBoosting{NEstimators: 100, LearningRate: 0.1, MaxDepth: 3, MinSamplesSplit: 2, MinSamplesLeaf: 1}
}

// Fit runs the boosting stages.
func (m *GradientBoosting) Fit(X [][]float64, y []int) error {
	d, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	n := len(X)

	var pos float64
	for _, v := range y {
		pos += float64(v)
	}
	prior := math.Min(math.Max(pos/float64(n), 1e-6), 1-1e-6)
	m.Init = math.Log(prior / (1 - prior))

	raw := make([]float64, n)
	for i := range raw {
		raw[i] = m.Init
	}
	residual := make([]float64, n)
	hessian := make([]float64, n)
	rows := allRows(n)
	params := treeParams{
		maxDepth:        m.MaxDepth,
		minSamplesSplit: m.MinSamplesSplit,
		minSamplesLeaf:  m.MinSamplesLeaf,
		criterion:       SquaredError,
	}
	newton := func(rows []int) float64 {
		var num, den float64
		for _, i := range rows {
			num += residual[i]
			den += hessian[i]
		}
		if math.Abs(den) < 1e-150 {
			return 0
		}
		return num / den
	}

	m.Trees = m.Trees[:0]
	m.Importances = make([]float64, d)
	for stage := 0; stage < m.NEstimators; stage++ {
		for i := range raw {
			p := sigmoid(raw[i])
			residual[i] = float64(y[i]) - p
			hessian[i] = p * (1 - p)
		}
		t := buildTree(X, residual, nil, rows, params, newton, nil)
		for i, x := range X {
			raw[i] += m.LearningRate * t.Predict(x)
		}
		for j, v := range t.Importances {
			m.Importances[j] += v
		}
		m.Trees = append(m.Trees, t)
	}
	normalize(m.Importances)
	m.Features = d
	return nil
}

// PredictProba applies the sigmoid to the boosted score.
func (m *GradientBoosting) PredictProba(X [][]float64) ([]float64, error) {
	if m.Features == 0 {
		return nil, ErrNotFitted
	}
	if err := checkInput(X, m.Features); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, x := range X {
		raw := m.Init
		for _, t := range m.Trees {
			raw += m.LearningRate * t.Predict(x)
		}
		out[i] = sigmoid(raw)
	}
	return out, nil
}

// FeatureImportances returns the summed stage importances.
func (m *GradientBoosting) FeatureImportances() []float64 { return m.Importances }
