package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Harley062/projeto-IA-Adega/internal/cli/config"
	"github.com/Harley062/projeto-IA-Adega/internal/cli/output"
	"github.com/Harley062/projeto-IA-Adega/internal/pipeline"
	"github.com/Harley062/projeto-IA-Adega/internal/state"
)

// TrainOptions holds options for the train command.
type TrainOptions struct {
	NoState bool
}

// NewTrainCommand creates the train command.
func NewTrainCommand() *cobra.Command {
	opts := &TrainOptions{}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train and compare the churn models",
		Long: `Load the customer, product and purchase files, engineer features, train
every candidate model and keep the most accurate one.

The best model is saved to the models directory together with its feature
schema, and an evaluation report is written to the reports directory.`,
		Example: `  # Train with data/Cliente.csv, data/produtos.csv and data/Compras.csv
  adega train

  # Train only two models with 3-fold cross-validation
  adega train --models "Random Forest,KNN" --cv-folds 3`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTrain(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NoState, "no-state", false, "Do not record the run in the state database")
	cmd.Flags().StringSlice("models", nil, "Comma-separated list of models to train (default: all)")
	cmd.Flags().Int("cv-folds", pipeline.DefaultCVFolds, "Cross-validation folds (0 disables)")
	cmd.Flags().Float64("test-size", pipeline.DefaultTestSize, "Held-out fraction of customers")
	cmd.Flags().Int64("random-state", pipeline.DefaultSeed, "Random seed for splits and models")

	return cmd
}

func runTrain(cmd *cobra.Command, opts *TrainOptions) error {
	ctx := cmd.Context()
	cfg := config.GetConfig(ctx)
	logger := config.GetLogger(ctx)
	r := output.FromContext(ctx)

	pc := cfg.Pipeline()
	pc.Logger = logger
	if !opts.NoState {
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		pc.Store = store
	}

	start := time.Now()
	res, err := pipeline.New(pc).Run(ctx)
	if err != nil {
		return fmt.Errorf("training failed: %w", err)
	}
	return renderTrain(r, res, time.Since(start))
}

func renderTrain(r *output.Renderer, res *pipeline.Result, took time.Duration) error {
	best := res.Best()
	if best == nil {
		return fmt.Errorf("no model could be trained")
	}
	cv := make(map[string]int, len(res.CV))
	for i, c := range res.CV {
		cv[c.Name] = i
	}

	if r.Mode() == output.ModeJSON {
		models := make([]map[string]any, 0, len(res.Training.Results))
		for _, m := range res.Training.Results {
			row := map[string]any{
				"model":       m.Name,
				"trained":     m.Trained,
				"accuracy":    m.Accuracy,
				"duration_ms": m.Duration.Milliseconds(),
			}
			if m.Err != nil {
				row["error"] = m.Err.Error()
			}
			if i, ok := cv[m.Name]; ok && res.CV[i].Err == nil {
				row["cv_mean"], row["cv_std"] = res.CV[i].Mean, res.CV[i].Std
			}
			models = append(models, row)
		}
		out := map[string]any{
			"summary":     res.Summary,
			"models":      models,
			"best_model":  best.Name,
			"metrics":     metricsView(res),
			"importances": res.Importances,
			"model_path":  res.ModelPath,
			"report_path": res.ReportPath,
		}
		if res.Run != nil {
			out["run_id"] = res.Run.ID
		}
		return r.JSON(out)
	}

	r.Title("Data")
	r.Line("%d purchases, %d customers, %d products (%d incomplete rows dropped)",
		res.Summary.Rows, res.Summary.Customers, res.Summary.Products, res.DroppedRows)
	r.Line("Total sales %.2f, mean ticket %.2f", res.Summary.TotalSales, res.Summary.MeanTicket)
	r.Line("Train/test split: %d/%d rows, %d features", res.TrainRows, res.TestRows, len(res.Columns))
	r.Line("")

	r.Title("Models")
	rows := make([][]any, 0, len(res.Training.Results))
	for _, m := range res.Training.Results {
		acc, cvText := "failed", "-"
		if m.Trained {
			acc = fmtFloat(m.Accuracy)
		}
		if i, ok := cv[m.Name]; ok && res.CV[i].Err == nil {
			cvText = fmt.Sprintf("%s ± %s", fmtFloat(res.CV[i].Mean), fmtFloat(res.CV[i].Std))
		}
		name := m.Name
		if m.Name == best.Name {
			name += " *"
		}
		rows = append(rows, []any{name, acc, cvText, m.Duration.Round(time.Millisecond)})
	}
	r.Table([]string{"Model", "Test accuracy", "CV accuracy", "Time"}, rows)
	r.Line("")

	r.Title(fmt.Sprintf("Best model: %s", best.Name))
	m := res.Metrics
	r.Table([]string{"Metric", "Value"}, [][]any{
		{"Accuracy", fmtFloat(m.Accuracy)},
		{"Precision", fmtFloat(m.Precision)},
		{"Recall", fmtFloat(m.Recall)},
		{"F1-Score", fmtFloat(m.F1)},
		{"ROC-AUC", fmtFloat(m.ROCAUC)},
		{"Avg Precision", fmtFloat(m.AveragePrecision)},
	})
	r.Line("Confusion matrix: TN=%d FP=%d FN=%d TP=%d", m.Confusion.TN, m.Confusion.FP, m.Confusion.FN, m.Confusion.TP)

	if len(res.Importances) > 0 {
		r.Line("")
		r.Title("Top features")
		renderImportances(r, res.Importances)
	}

	r.Line("")
	r.Success("Model saved to %s", res.ModelPath)
	r.Success("Report written to %s", res.ReportPath)
	if res.Run != nil && res.Run.Status == state.RunStatusCompleted {
		r.Line("%s", r.Muted(fmt.Sprintf("run %s completed in %s", res.Run.ID, took.Round(time.Millisecond))))
	}
	return nil
}

func metricsView(res *pipeline.Result) map[string]any {
	m := res.Metrics
	return map[string]any{
		"accuracy":         finite(m.Accuracy),
		"precision":        finite(m.Precision),
		"recall":           finite(m.Recall),
		"f1_score":         finite(m.F1),
		"roc_auc":          finite(m.ROCAUC),
		"avg_precision":    finite(m.AveragePrecision),
		"confusion_matrix": m.Confusion,
	}
}
