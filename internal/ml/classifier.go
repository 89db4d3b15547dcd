// Package ml implements the binary classifiers used to predict churn, plus
// stratified sampling helpers. Every classifier outputs the probability of
// the positive class.
package ml

import (
	"encoding/gob"
	"errors"
	"fmt"
	"math"
)

// Candidate model names.
const (
	RandomForestName       = "Random Forest"
	GradientBoostingName   = "Gradient Boosting"
	LogisticRegressionName = "Logistic Regression"
	DecisionTreeName       = "Decision Tree"
	KNNName                = "KNN"
	NaiveBayesName         = "Naive Bayes"
	AdaBoostName           = "AdaBoost"
)

// Roster lists the candidate models in training and selection order.
var Roster = []string{
	RandomForestName,
	GradientBoostingName,
	LogisticRegressionName,
	DecisionTreeName,
	KNNName,
	NaiveBayesName,
	AdaBoostName,
}

// ErrNotFitted is returned when predicting with an unfitted model.
var ErrNotFitted = errors.New("model is not fitted")

// Classifier is a binary classifier.
type Classifier interface {
	// Fit trains on rows X with labels y in {0, 1}.
	Fit(X [][]float64, y []int) error
	// PredictProba returns P(y=1) for each row.
	PredictProba(X [][]float64) ([]float64, error)
}

// Importancer is implemented by models exposing per-feature importances
// that sum to 1.
type Importancer interface {
	FeatureImportances() []float64
}

func init() {
	gob.Register(&RandomForest{})
	gob.Register(&GradientBoosting{})
	gob.Register(&LogisticRegression{})
	gob.Register(&DecisionTree{})
	gob.Register(&KNN{})
	gob.Register(&GaussianNB{})
	gob.Register(&AdaBoost{})
}

// Label maps a positive-class probability to a class. A probability of
// exactly 0.5 is a tie and goes to class 0.
func Label(p float64) int {
	if p > 0.5 {
		return 1
	}
	return 0
}

// Predict labels every row's positive-class probability.
func Predict(c Classifier, X [][]float64) ([]int, error) {
	proba, err := c.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(proba))
	for i, p := range proba {
		out[i] = Label(p)
	}
	return out, nil
}

// checkTraining validates a training matrix.
func checkTraining(X [][]float64, y []int) (int, error) {
	if len(X) == 0 {
		return 0, errors.New("empty training set")
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("got %d rows but %d labels", len(X), len(y))
	}
	d := len(X[0])
	if d == 0 {
		return 0, errors.New("training rows have no features")
	}
	for i, row := range X {
		if len(row) != d {
			return 0, fmt.Errorf("row %d has %d features, want %d", i, len(row), d)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, fmt.Errorf("row %d feature %d is not finite", i, j)
			}
		}
		if y[i] != 0 && y[i] != 1 {
			return 0, fmt.Errorf("label %d at row %d is not binary", y[i], i)
		}
	}
	return d, nil
}

// checkInput validates rows passed for prediction.
func checkInput(X [][]float64, d int) error {
	if d == 0 {
		return ErrNotFitted
	}
	for i, row := range X {
		if len(row) != d {
			return fmt.Errorf("row %d has %d features, model expects %d", i, len(row), d)
		}
	}
	return nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func normalize(v []float64) []float64 {
	var total float64
	for _, x := range v {
		total += x
	}
	if total <= 0 {
		return v
	}
	for i := range v {
		v[i] /= total
	}
	return v
}
