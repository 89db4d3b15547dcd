package ml

import (
	"math"
	"math/rand"
	"sort"
)

// Criterion is the impurity measure used to choose splits.
type Criterion string

// Split criteria. Gini and Entropy expect 0/1 targets.
const (
	Gini         Criterion = "gini"
	Entropy      Criterion = "entropy"
	SquaredError Criterion = "squared_error"
)

// Node is one node of a fitted tree. Leaves carry Value.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Leaf      bool
}

// Tree is a fitted binary decision tree stored as a flat node slice.
type Tree struct {
	Nodes       []Node
	Importances []float64
}

// Predict walks x down to a leaf and returns its value.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for !t.Nodes[i].Leaf {
		n := t.Nodes[i]
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Value
}

type treeParams struct {
	maxDepth        int // 0 means unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // 0 means all features
	criterion       Criterion
}

// leafFunc computes a leaf value from the rows reaching it.
type leafFunc func(rows []int) float64

type treeBuilder struct {
	x      [][]float64
	target []float64
	weight []float64
	params treeParams
	leaf   leafFunc
	rng    *rand.Rand
	tree   *Tree
	d      int
}

// buildTree grows a tree on the given rows. weight may be nil for unit
// weights and leaf may be nil for the weighted target mean.
func buildTree(x [][]float64, target, weight []float64, rows []int, p treeParams, leaf leafFunc, rng *rand.Rand) *Tree {
	if p.minSamplesSplit < 2 {
		p.minSamplesSplit = 2
	}
	if p.minSamplesLeaf < 1 {
		p.minSamplesLeaf = 1
	}
	if p.criterion == "" {
		p.criterion = Gini
	}
	if weight == nil {
		weight = make([]float64, len(x))
		for i := range weight {
			weight[i] = 1
		}
	}

	b := &treeBuilder{
		x: x, target: target, weight: weight, params: p, leaf: leaf, rng: rng,
		tree: &Tree{Importances: make([]float64, len(x[0]))},
		d:    len(x[0]),
	}
	b.grow(rows, 0)
	normalize(b.tree.Importances)
	return b.tree
}

func impurity(c Criterion, w, s, ss float64) float64 {
	if w <= 0 {
		return 0
	}
	m := s / w
	switch c {
	case Entropy:
		if m <= 0 || m >= 1 {
			return 0
		}
		return -m*math.Log2(m) - (1-m)*math.Log2(1-m)
	case SquaredError:
		return ss/w - m*m
	default:
		return 2 * m * (1 - m)
	}
}

func (b *treeBuilder) grow(rows []int, depth int) int {
	var w, s, ss float64
	for _, i := range rows {
		w += b.weight[i]
		s += b.weight[i] * b.target[i]
		ss += b.weight[i] * b.target[i] * b.target[i]
	}

	idx := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{Leaf: true, Value: b.leafValue(rows, w, s)})

	imp := impurity(b.params.criterion, w, s, ss)
	if (b.params.maxDepth > 0 && depth >= b.params.maxDepth) ||
		len(rows) < b.params.minSamplesSplit || imp <= 1e-12 {
		return idx
	}

	feature, threshold, gain, ok := b.bestSplit(rows, w, imp)
	if !ok {
		return idx
	}

	var left, right []int
	for _, i := range rows {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	b.tree.Importances[feature] += gain
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.tree.Nodes[idx] = Node{Feature: feature, Threshold: threshold, Left: l, Right: r}
	return idx
}

func (b *treeBuilder) leafValue(rows []int, w, s float64) float64 {
	if b.leaf != nil {
		return b.leaf(rows)
	}
	if w <= 0 {
		return 0
	}
	return s / w
}

func (b *treeBuilder) candidates() []int {
	k := b.params.maxFeatures
	if k <= 0 || k >= b.d || b.rng == nil {
		all := make([]int, b.d)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return b.rng.Perm(b.d)[:k]
}

// bestSplit returns the split with the largest weighted impurity decrease.
func (b *treeBuilder) bestSplit(rows []int, w, parent float64) (int, float64, float64, bool) {
	bestFeature, bestThreshold, bestGain := -1, 0.0, 1e-12
	sorted := make([]int, len(rows))
	minLeaf := b.params.minSamplesLeaf

	for _, f := range b.candidates() {
		copy(sorted, rows)
		sort.Slice(sorted, func(a, c int) bool { return b.x[sorted[a]][f] < b.x[sorted[c]][f] })

		var lw, ls, lss float64
		var ts, tss float64
		for _, i := range sorted {
			ts += b.weight[i] * b.target[i]
			tss += b.weight[i] * b.target[i] * b.target[i]
		}

		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			lw += b.weight[i]
			ls += b.weight[i] * b.target[i]
			lss += b.weight[i] * b.target[i] * b.target[i]

			cur, next := b.x[i][f], b.x[sorted[k+1]][f]
			if cur == next {
				continue
			}
			nl, nr := k+1, len(sorted)-k-1
			if nl < minLeaf || nr < minLeaf {
				continue
			}

			rw := w - lw
			child := lw*impurity(b.params.criterion, lw, ls, lss) +
				rw*impurity(b.params.criterion, rw, ts-ls, tss-lss)
			gain := w*parent - child
			if gain > bestGain {
				bestFeature, bestThreshold, bestGain = f, (cur+next)/2, gain
			}
		}
	}
	return bestFeature, bestThreshold, bestGain, bestFeature >= 0
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

func labelsAsFloat(y []int) []float64 {
	out := make([]float64, len(y))
	for i, v := range y {
		out[i] = float64(v)
	}
	return out
}
