package trainer

import (
	"sort"

	"github.com/Harley062/projeto-IA-Adega/internal/ml"
)

// Importance is one feature's weight in a fitted model.
type Importance struct {
	Index      int     `json:"index" yaml:"index"`
	Feature    string  `json:"feature,omitempty" yaml:"feature,omitempty"`
	Importance float64 `json:"importance" yaml:"importance"`
}

// FeatureImportance returns the topN most important features of model,
// named from columns when given. Models without importances yield an
// empty result. topN <= 0 returns every feature.
func FeatureImportance(model ml.Classifier, columns []string, topN int) []Importance {
	imp, ok := model.(ml.Importancer)
	if !ok {
		return []Importance{}
	}
	values := imp.FeatureImportances()
	out := make([]Importance, len(values))
	for i, v := range values {
		out[i] = Importance{Index: i, Importance: v}
		if i < len(columns) {
			out[i].Feature = columns[i]
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	if topN > 0 && topN < len(out) {
		out = out[:topN]
	}
	return out
}

// FeatureImportance returns the importances of a trained candidate by name.
// Unknown or untrained candidates yield an empty result.
func (r *Report) FeatureImportance(name string, columns []string, topN int) []Importance {
	res, ok := r.Result(name)
	if !ok || !res.Trained {
		return []Importance{}
	}
	return FeatureImportance(res.Model, columns, topN)
}
