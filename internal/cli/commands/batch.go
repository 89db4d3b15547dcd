package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Harley062/projeto-IA-Adega/internal/cli/config"
	"github.com/Harley062/projeto-IA-Adega/internal/cli/output"
	"github.com/Harley062/projeto-IA-Adega/internal/predict"
)

// NewBatchCommand creates the batch command.
func NewBatchCommand() *cobra.Command {
	var failOnError bool

	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Score every customer in a CSV file",
		Long: `Score each row of a delimited file with the trained model.

The file uses the configured delimiter (--delimiter). A row that cannot be
scored is reported on its own and does not stop the rest of the batch.`,
		Example: `  adega batch clientes_novos.csv
  adega batch clientes.csv --delimiter "," -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.GetConfig(ctx)
			r := output.FromContext(ctx)

			p, err := loadPredictor(ctx, cfg)
			if err != nil {
				return err
			}
			records, err := predict.ReadBatchFile(ctx, args[0], cfg.Delimiter, config.GetLogger(ctx))
			if err != nil {
				return err
			}

			results := p.PredictBatch(records)
			failed := 0
			for _, res := range results {
				if !res.OK() {
					failed++
				}
			}

			err = r.Emit(map[string]any{
				"scored":  len(results) - failed,
				"failed":  failed,
				"results": results,
			}, func() { renderBatch(r, results, failed) })
			if err != nil {
				return err
			}
			if failOnError && failed > 0 {
				return fmt.Errorf("%d of %d rows could not be scored", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&failOnError, "fail-on-error", false, "Exit with an error when any row fails")

	return cmd
}

func renderBatch(r *output.Renderer, results []predict.BatchResult, failed int) {
	rows := make([][]any, 0, len(results))
	for _, res := range results {
		if !res.OK() {
			rows = append(rows, []any{res.Row, res.CustomerID, "-", r.Risk("red", "error"), res.Error})
			continue
		}
		p := res.Result
		rows = append(rows, []any{res.Row, res.CustomerID, percent(p.ChurnProbability), r.Risk(p.RiskColor, string(p.RiskTier)), ""})
	}
	r.Table([]string{"Row", "Customer", "Churn", "Risk", "Error"}, rows)
	if failed > 0 {
		r.Warning("%d of %d rows could not be scored", failed, len(results))
		return
	}
	r.Success("%d customers scored", len(results))
}
