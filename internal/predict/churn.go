package predict

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Harley062/projeto-IA-Adega/internal/features"
	"github.com/Harley062/projeto-IA-Adega/internal/ml"
	"github.com/Harley062/projeto-IA-Adega/internal/trainer"
)

// PredictionResult is the churn verdict for one customer.
type PredictionResult struct {
	CustomerID           int64    `json:"customer_id"`
	Model                string   `json:"model"`
	WillChurn            bool     `json:"will_churn"`
	ChurnProbability     float64  `json:"churn_probability"`
	RetentionProbability float64  `json:"retention_probability"`
	RiskTier             RiskTier `json:"risk_tier"`
	RiskColor            string   `json:"risk_color"`
	Recommendations      []string `json:"recommendations"`
}

// ChurnPredictor scores submitted customers with a persisted bundle.
type ChurnPredictor struct {
	bundle   *trainer.Bundle
	engineer *features.Engineer
	now      func() time.Time
	logger   *slog.Logger
}

// NewChurnPredictor creates a predictor over a loaded bundle.
func NewChurnPredictor(bundle *trainer.Bundle, opts features.Options, logger *slog.Logger) *ChurnPredictor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ChurnPredictor{
		bundle:   bundle,
		engineer: features.NewEngineer(opts, logger),
		now:      time.Now,
		logger:   logger,
	}
}

// LoadChurnPredictor loads the bundle at path. A missing file yields an
// error wrapping trainer.ErrModelNotFound.
func LoadChurnPredictor(path string, opts features.Options, logger *slog.Logger) (*ChurnPredictor, error) {
	b, err := trainer.LoadModel(path)
	if err != nil {
		return nil, err
	}
	p := NewChurnPredictor(b, opts, logger)
	p.logger.Info("model loaded", "path", path, "model", b.Name)
	return p, nil
}

// Bundle returns the loaded bundle.
func (p *ChurnPredictor) Bundle() *trainer.Bundle { return p.bundle }

func (p *ChurnPredictor) score(in CustomerInput) (float64, []float64, error) {
	if p.bundle == nil || p.bundle.Model == nil {
		return 0, nil, fmt.Errorf("%w: no model loaded", trainer.ErrModelNotFound)
	}
	vec, err := p.engineer.Transform(p.bundle.Schema, in.Observation(), p.now())
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build feature vector: %w", err)
	}
	proba, err := p.bundle.Model.PredictProba([][]float64{vec})
	if err != nil {
		return 0, nil, fmt.Errorf("failed to score customer: %w", err)
	}
	return proba[0], vec, nil
}

// Predict scores one record. Keys may use the seller's column names or
// their English equivalents.
func (p *ChurnPredictor) Predict(record map[string]any) (*PredictionResult, error) {
	if p.bundle == nil {
		return nil, fmt.Errorf("%w: no model loaded", trainer.ErrModelNotFound)
	}
	in, err := DecodeInput(record)
	if err != nil {
		return nil, err
	}
	return p.PredictInput(in)
}

// PredictInput scores an already decoded record.
func (p *ChurnPredictor) PredictInput(in CustomerInput) (*PredictionResult, error) {
	prob, _, err := p.score(in)
	if err != nil {
		return nil, err
	}
	return p.result(in, prob), nil
}

func (p *ChurnPredictor) result(in CustomerInput, prob float64) *PredictionResult {
	tier := ClassifyRisk(prob)
	return &PredictionResult{
		CustomerID:           in.CustomerID,
		Model:                p.bundle.Name,
		WillChurn:            ml.Label(prob) == 1,
		ChurnProbability:     prob,
		RetentionProbability: 1 - prob,
		RiskTier:             tier,
		RiskColor:            tier.Color(),
		Recommendations:      Recommendations(tier, in),
	}
}

// BatchResult is the outcome for one row of a batch: exactly one of Result
// and Err is set.
type BatchResult struct {
	Row        int               `json:"row"`
	CustomerID string            `json:"customer_id"`
	Result     *PredictionResult `json:"result,omitempty"`
	Err        error             `json:"-"`
	Error      string            `json:"error,omitempty"`
}

// OK reports whether the row was scored.
func (r BatchResult) OK() bool { return r.Err == nil }

// PredictBatch scores each record independently. A failing row is reported
// in its own result and never stops the batch.
func (p *ChurnPredictor) PredictBatch(records []map[string]any) []BatchResult {
	out := make([]BatchResult, len(records))
	for i, rec := range records {
		out[i] = BatchResult{Row: i, CustomerID: customerKey(rec, i)}
		res, err := p.Predict(rec)
		if err != nil {
			p.logger.Error("failed to score customer", "row", i, "customer_id", out[i].CustomerID, "error", err)
			out[i].Err = err
			out[i].Error = err.Error()
			continue
		}
		out[i].Result = res
	}
	return out
}

func customerKey(rec map[string]any, row int) string {
	for _, k := range []string{"cliente_id", "customer_id"} {
		if v, ok := rec[k]; ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	return fmt.Sprintf("row %d", row)
}

// Factor is one of the features that weigh most in the model.
type Factor struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
	Value      float64 `json:"value"`
}

// Explanation pairs a prediction with the model's dominant features.
type Explanation struct {
	Prediction *PredictionResult `json:"prediction"`
	TopFactors []Factor          `json:"top_factors"`
	Reasoning  []string          `json:"reasoning"`
}

// ExplainTopN is the number of factors Explain reports.
const ExplainTopN = 5

// relevantImportance is the importance above which a factor is explained.
const relevantImportance = 0.1

// Explain predicts a record and lists the most important features with the
// customer's value for each. Models without importances still return the
// prediction, with no factors.
func (p *ChurnPredictor) Explain(record map[string]any) (*Explanation, error) {
	in, err := DecodeInput(record)
	if err != nil {
		return nil, err
	}
	prob, vec, err := p.score(in)
	if err != nil {
		return nil, err
	}

	exp := &Explanation{Prediction: p.result(in, prob), TopFactors: []Factor{}, Reasoning: []string{}}
	if _, ok := p.bundle.Model.(ml.Importancer); !ok {
		return exp, nil
	}
	for _, imp := range trainer.FeatureImportance(p.bundle.Model, p.bundle.Schema.Columns, ExplainTopN) {
		f := Factor{Feature: imp.Feature, Importance: imp.Importance, Value: vec[imp.Index]}
		exp.TopFactors = append(exp.TopFactors, f)
		if f.Importance > relevantImportance {
			exp.Reasoning = append(exp.Reasoning,
				fmt.Sprintf("'%s' (value: %g) has an importance of %.2f%%", f.Feature, f.Value, f.Importance*100))
		}
	}
	return exp, nil
}
