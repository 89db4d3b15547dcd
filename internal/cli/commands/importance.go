package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Harley062/projeto-IA-Adega/internal/cli/config"
	"github.com/Harley062/projeto-IA-Adega/internal/cli/output"
	"github.com/Harley062/projeto-IA-Adega/internal/pipeline"
	"github.com/Harley062/projeto-IA-Adega/internal/trainer"
)

// NewImportanceCommand creates the importance command.
func NewImportanceCommand() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "importance",
		Short: "Show the trained model's most important features",
		Long: `List the features the saved model relies on most. Models without
feature importances (KNN, Naive Bayes, ...) report none.`,
		Example: `  adega importance --top 5`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if top < 1 {
				return fmt.Errorf("--top must be at least 1, got %d", top)
			}
			ctx := cmd.Context()
			cfg := config.GetConfig(ctx)
			r := output.FromContext(ctx)

			path, err := modelPath(cfg)
			if err != nil {
				return err
			}
			b, err := trainer.LoadModel(path)
			if err != nil {
				return err
			}
			var columns []string
			if b.Schema != nil {
				columns = b.Schema.Columns
			}
			imps := trainer.FeatureImportance(b.Model, columns, top)
			if imps == nil {
				imps = []trainer.Importance{}
			}

			return r.Emit(map[string]any{"model": b.Name, "importances": imps}, func() {
				r.Title(fmt.Sprintf("Feature importance: %s", b.Name))
				if len(imps) == 0 {
					r.Line("%s", r.Muted(b.Name+" does not expose feature importances"))
					return
				}
				renderImportances(r, imps)
			})
		},
	}

	cmd.Flags().IntVarP(&top, "top", "n", pipeline.DefaultTopN, "Number of features to list")
	return cmd
}

func renderImportances(r *output.Renderer, imps []trainer.Importance) {
	rows := make([][]any, 0, len(imps))
	for i, imp := range imps {
		name := imp.Feature
		if name == "" {
			name = fmt.Sprintf("feature %d", imp.Index)
		}
		rows = append(rows, []any{i + 1, name, fmtFloat(imp.Importance)})
	}
	r.Table([]string{"#", "Feature", "Importance"}, rows)
}
