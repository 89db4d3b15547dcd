package ml

// DecisionTree is a single CART classification tree.
type DecisionTree struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Criterion       Criterion

	Tree     *Tree
	Features int
}

// NewDecisionTree returns a fully grown Gini tree.
func NewDecisionTree() *DecisionTree {
	return &DecisionTree{MinSamplesSplit: 2, MinSamplesLeaf: 1, Criterion: Gini}
}

// Fit grows the tree.
func (m *DecisionTree) Fit(X [][]float64, y []int) error {
	d, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	m.Tree = buildTree(X, labelsAsFloat(y), nil, allRows(len(X)), treeParams{
		maxDepth:        m.MaxDepth,
		minSamplesSplit: m.MinSamplesSplit,
		minSamplesLeaf:  m.MinSamplesLeaf,
		criterion:       m.Criterion,
	}, nil, nil)
	m.Features = d
	return nil
}

// PredictProba returns the positive-class share of the reached leaf.
func (m *DecisionTree) PredictProba(X [][]float64) ([]float64, error) {
	if m.Tree == nil {
		return nil, ErrNotFitted
	}
	if err := checkInput(X, m.Features); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i, x := range X {
		out[i] = m.Tree.Predict(x)
	}
	return out, nil
}

// FeatureImportances returns the normalised impurity decrease per feature.
func (m *DecisionTree) FeatureImportances() []float64 {
	if m.Tree == nil {
		return nil
	}
	return m.Tree.Importances
}
