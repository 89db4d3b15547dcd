// Package evaluate scores binary predictions and writes the plain-text
// evaluation report read by downstream tools.
package evaluate

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Metrics are the scores of one model on a held-out set. ROCAUC and
// AveragePrecision are NaN when probabilities are absent or only one class
// is present.
type Metrics struct {
	Accuracy         float64   `json:"accuracy" yaml:"accuracy"`
	Precision        float64   `json:"precision" yaml:"precision"`
	Recall           float64   `json:"recall" yaml:"recall"`
	F1               float64   `json:"f1_score" yaml:"f1_score"`
	ROCAUC           float64   `json:"roc_auc" yaml:"roc_auc"`
	AveragePrecision float64   `json:"avg_precision" yaml:"avg_precision"`
	Confusion        Confusion `json:"confusion_matrix" yaml:"confusion_matrix"`
}

// Confusion is the 2x2 confusion matrix.
type Confusion struct {
	TN int `json:"tn" yaml:"tn"`
	FP int `json:"fp" yaml:"fp"`
	FN int `json:"fn" yaml:"fn"`
	TP int `json:"tp" yaml:"tp"`
}

// ClassScore holds per-class precision, recall, F1 and support.
type ClassScore struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Compute scores predictions. proba may be nil.
func Compute(yTrue, yPred []int, proba []float64) (Metrics, error) {
	if len(yTrue) == 0 {
		return Metrics{}, errors.New("no labels to evaluate")
	}
	if len(yPred) != len(yTrue) {
		return Metrics{}, fmt.Errorf("got %d predictions for %d labels", len(yPred), len(yTrue))
	}
	if proba != nil && len(proba) != len(yTrue) {
		return Metrics{}, fmt.Errorf("got %d probabilities for %d labels", len(proba), len(yTrue))
	}

	m := Metrics{Confusion: ConfusionMatrix(yTrue, yPred), ROCAUC: math.NaN(), AveragePrecision: math.NaN()}
	c := m.Confusion
	n := float64(len(yTrue))
	m.Accuracy = float64(c.TN+c.TP) / n

	for _, s := range PerClass(c) {
		w := float64(s.Support) / n
		m.Precision += w * s.Precision
		m.Recall += w * s.Recall
		m.F1 += w * s.F1
	}

	if proba != nil && c.TP+c.FN > 0 && c.TN+c.FP > 0 {
		m.ROCAUC = ROCAUC(yTrue, proba)
		m.AveragePrecision = AveragePrecision(yTrue, proba)
	}
	return m, nil
}

// Accuracy is the share of matching labels.
func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	var ok int
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			ok++
		}
	}
	return float64(ok) / float64(len(yTrue))
}

// ConfusionMatrix counts outcomes with class 1 as positive.
func ConfusionMatrix(yTrue, yPred []int) Confusion {
	var c Confusion
	for i := range yTrue {
		switch {
		case yTrue[i] == 1 && yPred[i] == 1:
			c.TP++
		case yTrue[i] == 1:
			c.FN++
		case yPred[i] == 1:
			c.FP++
		default:
			c.TN++
		}
	}
	return c
}

// PerClass returns the scores of class 0 and class 1. Undefined ratios
// count as 0.
func PerClass(c Confusion) [2]ClassScore {
	score := func(tp, fp, fn int) ClassScore {
		s := ClassScore{Support: tp + fn}
		if tp+fp > 0 {
			s.Precision = float64(tp) / float64(tp+fp)
		}
		if tp+fn > 0 {
			s.Recall = float64(tp) / float64(tp+fn)
		}
		if s.Precision+s.Recall > 0 {
			s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
		}
		return s
	}
	return [2]ClassScore{
		score(c.TN, c.FN, c.FP),
		score(c.TP, c.FP, c.FN),
	}
}

type scored struct {
	p   float64
	pos bool
}

func sortedScores(yTrue []int, proba []float64) ([]float64, []bool) {
	s := make([]scored, len(yTrue))
	for i := range yTrue {
		s[i] = scored{p: proba[i], pos: yTrue[i] == 1}
	}
	sort.SliceStable(s, func(a, b int) bool { return s[a].p < s[b].p })
	y := make([]float64, len(s))
	classes := make([]bool, len(s))
	for i, v := range s {
		y[i] = v.p
		classes[i] = v.pos
	}
	return y, classes
}

// ROCAUC is the area under the ROC curve.
func ROCAUC(yTrue []int, proba []float64) float64 {
	y, classes := sortedScores(yTrue, proba)
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

// AveragePrecision sums precision at each distinct threshold weighted by the
// recall gained there.
func AveragePrecision(yTrue []int, proba []float64) float64 {
	y, classes := sortedScores(yTrue, proba)
	var positives float64
	for _, c := range classes {
		if c {
			positives++
		}
	}
	if positives == 0 {
		return math.NaN()
	}

	var ap, tp, fp, prevRecall float64
	for i := len(y) - 1; i >= 0; i-- {
		if classes[i] {
			tp++
		} else {
			fp++
		}
		if i > 0 && y[i-1] == y[i] {
			continue
		}
		recall := tp / positives
		ap += (recall - prevRecall) * tp / (tp + fp)
		prevRecall = recall
	}
	return ap
}
