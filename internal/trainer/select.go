package trainer

// Comparator reports whether candidate beats the current best.
type Comparator func(candidate, best Result) bool

// ByAccuracy prefers strictly higher test accuracy, so ties keep the
// earlier candidate.
func ByAccuracy(candidate, best Result) bool {
	return candidate.Accuracy > best.Accuracy
}

// SelectBest walks results in order against an initial best score of 0 and
// returns the index of the winner among trained results.
func SelectBest(results []Result, better Comparator) (int, bool) {
	best := Result{}
	idx := -1
	for i, r := range results {
		if !r.Trained {
			continue
		}
		if better(r, best) {
			best = r
			idx = i
		}
	}
	return idx, idx >= 0
}
