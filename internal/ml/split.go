package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

func checkLabels(y []int) error {
	for i, v := range y {
		if v != 0 && v != 1 {
			return fmt.Errorf("label %d at row %d is not binary", v, i)
		}
	}
	return nil
}

func byClass(y []int, rng *rand.Rand) [2][]int {
	var classes [2][]int
	for i, v := range y {
		classes[v] = append(classes[v], i)
	}
	for c := range classes {
		idx := classes[c]
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
	}
	return classes
}

// StratifiedSplit partitions row indexes into train and test sets keeping
// the class ratio in both. Index slices are returned sorted.
func StratifiedSplit(y []int, testSize float64, seed int64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size must be in (0, 1), got %g", testSize)
	}
	if len(y) < 2 {
		return nil, nil, fmt.Errorf("need at least 2 rows to split, got %d", len(y))
	}
	if err := checkLabels(y); err != nil {
		return nil, nil, err
	}

	for _, idx := range byClass(y, rand.New(rand.NewSource(seed))) {
		k := int(math.Round(testSize * float64(len(idx))))
		test = append(test, idx[:k]...)
		train = append(train, idx[k:]...)
	}
	if len(test) == 0 || len(train) == 0 {
		return nil, nil, fmt.Errorf("split of %d rows at test size %g leaves an empty side", len(y), testSize)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}

// StratifiedKFold deals each class's shuffled rows round-robin into k
// folds and returns the held-out indexes of each fold, sorted.
func StratifiedKFold(y []int, k int, seed int64) ([][]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("need at least 2 folds, got %d", k)
	}
	if k > len(y) {
		return nil, fmt.Errorf("cannot make %d folds from %d rows", k, len(y))
	}
	if err := checkLabels(y); err != nil {
		return nil, err
	}
	folds := make([][]int, k)
	next := 0
	for _, idx := range byClass(y, rand.New(rand.NewSource(seed))) {
		for _, i := range idx {
			folds[next%k] = append(folds[next%k], i)
			next++
		}
	}
	for _, f := range folds {
		sort.Ints(f)
	}
	return folds, nil
}

// Complement returns the indexes of [0, n) not in held, which must be sorted.
func Complement(n int, held []int) []int {
	out := make([]int, 0, n-len(held))
	j := 0
	for i := 0; i < n; i++ {
		if j < len(held) && held[j] == i {
			j++
			continue
		}
		out = append(out, i)
	}
	return out
}

// Rows selects rows of X.
func Rows(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}

// Labels selects entries of y.
func Labels(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}
