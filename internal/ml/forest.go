package ml

import (
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// RandomForest averages bootstrapped trees grown on random feature subsets.
type RandomForest struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	// MaxFeatures per split; 0 uses the square root of the feature count.
	MaxFeatures int
	Seed        int64

	Trees       []*Tree
	Importances []float64
	Features    int
}

// NewRandomForest returns a 100-tree forest.
func NewRandomForest(seed int64) *RandomForest {
	return &RandomForest{NEstimators: 100, MinSamplesSplit: 2, MinSamplesLeaf: 1, Seed: seed}
}

// Fit grows the trees in parallel. Each tree draws from its own seeded
// source, so results do not depend on scheduling.
func (m *RandomForest) Fit(X [][]float64, y []int) error {
	d, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	n := m.NEstimators
	if n <= 0 {
		n = 100
	}
	maxFeatures := m.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Max(1, math.Sqrt(float64(d))))
	}
	target := labelsAsFloat(y)
	params := treeParams{
		maxDepth:        m.MaxDepth,
		minSamplesSplit: m.MinSamplesSplit,
		minSamplesLeaf:  m.MinSamplesLeaf,
		maxFeatures:     maxFeatures,
		criterion:       Gini,
	}

	trees := make([]*Tree, n)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for t := 0; t < n; t++ {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(m.Seed + int64(t)))
			weight := make([]float64, len(X))
			for range X {
				weight[rng.Intn(len(X))]++
			}
			var rows []int
			for i, w := range weight {
				if w > 0 {
					rows = append(rows, i)
				}
			}
			trees[t] = buildTree(X, target, weight, rows, params, nil, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	m.Trees = trees
	m.Features = d
	m.Importances = make([]float64, d)
	for _, t := range trees {
		for j, v := range t.Importances {
			m.Importances[j] += v
		}
	}
	normalize(m.Importances)
	return nil
}

// PredictProba averages the leaf probabilities of all trees.
func (m *RandomForest) PredictProba(X [][]float64) ([]float64, error) {
	if len(m.Trees) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkInput(X, m.Features); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, x := range X {
		var s float64
		for _, t := range m.Trees {
			s += t.Predict(x)
		}
		out[i] = s / float64(len(m.Trees))
	}
	return out, nil
}

// FeatureImportances returns the mean importance over trees.
func (m *RandomForest) FeatureImportances() []float64 { return m.Importances }
