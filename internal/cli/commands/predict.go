package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Harley062/projeto-IA-Adega/internal/cli/config"
	"github.com/Harley062/projeto-IA-Adega/internal/cli/output"
	"github.com/Harley062/projeto-IA-Adega/internal/dataset"
	"github.com/Harley062/projeto-IA-Adega/internal/predict"
	"github.com/Harley062/projeto-IA-Adega/internal/state"
)

// PredictOptions holds options for the predict command.
type PredictOptions struct {
	JSON    string
	File    string
	Explain bool
	NoState bool
}

// recordFlags maps field flags to record keys.
var recordFlags = []struct {
	flag, key, usage string
}{
	{"customer-id", dataset.ColCustomerID, "Customer id"},
	{"name", dataset.ColName, "Customer name"},
	{"age", dataset.ColAge, "Customer age"},
	{"city", dataset.ColCity, "Customer city"},
	{"engagement", dataset.ColEngagement, "Engagement score (0-10)"},
	{"subscriber", dataset.ColSubscriber, "Wine club subscriber (Sim/Não)"},
	{"value", dataset.ColValue, "Purchase value"},
	{"quantity", dataset.ColQuantity, "Purchase quantity"},
	{"country", dataset.ColCountry, "Wine country"},
	{"grape-type", dataset.ColGrapeType, "Grape type"},
	{"product-id", dataset.ColProductID, "Product id"},
	{"product-name", dataset.ColProductName, "Product name"},
	{"vintage", dataset.ColVintage, "Wine vintage year"},
	{"purchase-date", dataset.ColDate, "Purchase date (YYYY-MM-DD)"},
}

// NewPredictCommand creates the predict command.
func NewPredictCommand() *cobra.Command {
	opts := &PredictOptions{}

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score one customer's churn risk",
		Long: `Predict whether a customer will churn using the trained model.

The customer is given either as field flags or as a JSON object. Keys may
use the seller's column names (cliente_id, idade, ...) or their English
aliases (customer_id, age, ...).`,
		Example: `  # Score from flags
  adega predict --customer-id 7 --name Ana --age 34 --city Recife \
    --engagement 3.5 --subscriber Não --value 120 --quantity 2 \
    --country Chile --grape-type Carmenere

  # Score a JSON record and explain the result
  adega predict --json '{"customer_id": 7, "age": 34, ...}' --explain`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rec, err := buildRecord(cmd.Flags(), opts)
			if err != nil {
				return err
			}
			return runPredict(cmd.Context(), rec, opts)
		},
	}

	cmd.Flags().StringVar(&opts.JSON, "json", "", "Customer record as a JSON object")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "Read the JSON record from a file")
	cmd.Flags().BoolVar(&opts.Explain, "explain", false, "List the features that drove the prediction")
	cmd.Flags().BoolVar(&opts.NoState, "no-state", false, "Do not record the prediction in the state database")
	for _, f := range recordFlags {
		cmd.Flags().String(f.flag, "", f.usage)
	}
	cmd.MarkFlagsMutuallyExclusive("json", "file")

	return cmd
}

// buildRecord merges the JSON record with any field flags set explicitly.
func buildRecord(flags *pflag.FlagSet, opts *PredictOptions) (map[string]any, error) {
	rec := map[string]any{}

	raw := opts.JSON
	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", opts.File, err)
		}
		raw = string(data)
	}
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("invalid JSON record: %w", err)
		}
	}

	for _, f := range recordFlags {
		if fl := flags.Lookup(f.flag); fl != nil && fl.Changed {
			rec[f.key] = fl.Value.String()
		}
	}
	if len(rec) == 0 {
		return nil, fmt.Errorf("no customer given: use --json, --file or the field flags")
	}
	return rec, nil
}

func runPredict(ctx context.Context, rec map[string]any, opts *PredictOptions) error {
	cfg := config.GetConfig(ctx)
	r := output.FromContext(ctx)

	p, err := loadPredictor(ctx, cfg)
	if err != nil {
		return err
	}

	var (
		res *predict.PredictionResult
		exp *predict.Explanation
	)
	if opts.Explain {
		exp, err = p.Explain(rec)
		if exp != nil {
			res = exp.Prediction
		}
	} else {
		res, err = p.Predict(rec)
	}
	if err != nil {
		return err
	}

	if !opts.NoState {
		recordPrediction(ctx, cfg, res)
	}

	if exp != nil {
		return r.Emit(exp, func() {
			renderPrediction(r, res)
			renderExplanation(r, exp)
		})
	}
	return r.Emit(res, func() { renderPrediction(r, res) })
}

// recordPrediction stores res in the state database. Failures only warn.
func recordPrediction(ctx context.Context, cfg *config.Config, res *predict.PredictionResult) {
	logger := config.GetLogger(ctx)
	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Warn("state database unavailable, prediction not recorded", "error", err)
		return
	}
	defer func() { _ = store.Close() }()

	err = store.RecordPrediction(ctx, &state.Prediction{
		CustomerID:       res.CustomerID,
		Model:            res.Model,
		ChurnProbability: res.ChurnProbability,
		RiskTier:         string(res.RiskTier),
	})
	if err != nil {
		logger.Warn("failed to record prediction", "customer_id", res.CustomerID, "error", err)
	}
}

func renderPrediction(r *output.Renderer, res *predict.PredictionResult) {
	verdict := "will stay"
	if res.WillChurn {
		verdict = "will churn"
	}
	r.Title(fmt.Sprintf("Customer %d", res.CustomerID))
	r.Table([]string{"Field", "Value"}, [][]any{
		{"Prediction", verdict},
		{"Churn probability", percent(res.ChurnProbability)},
		{"Retention probability", percent(res.RetentionProbability)},
		{"Risk", r.Risk(res.RiskColor, string(res.RiskTier))},
		{"Model", res.Model},
	})
	r.Line("")
	r.Title("Recommended actions")
	for _, rec := range res.Recommendations {
		r.Line("  - %s", rec)
	}
}

func renderExplanation(r *output.Renderer, exp *predict.Explanation) {
	r.Line("")
	r.Title("Top factors")
	if len(exp.TopFactors) == 0 {
		r.Line("%s", r.Muted("the model does not expose feature importances"))
		return
	}
	rows := make([][]any, 0, len(exp.TopFactors))
	for _, f := range exp.TopFactors {
		rows = append(rows, []any{f.Feature, fmtFloat(f.Importance), fmtFloat(f.Value)})
	}
	r.Table([]string{"Feature", "Importance", "Value"}, rows)
	for _, line := range exp.Reasoning {
		r.Line("  - %s", line)
	}
}
