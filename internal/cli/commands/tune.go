package commands

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Harley062/projeto-IA-Adega/internal/cli/config"
	"github.com/Harley062/projeto-IA-Adega/internal/cli/output"
	"github.com/Harley062/projeto-IA-Adega/internal/ml"
	"github.com/Harley062/projeto-IA-Adega/internal/pipeline"
)

// DefaultTuneFolds is the fold count of the tuning grid search.
const DefaultTuneFolds = 3

// TuneOptions holds options for the tune command.
type TuneOptions struct {
	Folds int
}

// NewTuneCommand creates the tune command.
func NewTuneCommand() *cobra.Command {
	opts := &TuneOptions{}

	cmd := &cobra.Command{
		Use:   "tune <model>",
		Short: "Grid-search the hyperparameters of one model",
		Long: `Search the parameter grid of one model by cross-validated accuracy on
every prepared row and print the best combination.

Naive Bayes and AdaBoost have no grid and are fit with their defaults.`,
		Example: `  adega tune "Random Forest"
  adega tune KNN --folds 5 -o json`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return ml.Roster, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTune(cmd, args[0], opts)
		},
	}

	cmd.Flags().IntVar(&opts.Folds, "folds", DefaultTuneFolds, "Cross-validation folds of the search")

	return cmd
}

func runTune(cmd *cobra.Command, model string, opts *TuneOptions) error {
	if !slices.Contains(ml.Roster, model) {
		return fmt.Errorf("unknown model %q (available: %s)", model, strings.Join(ml.Roster, ", "))
	}
	if opts.Folds < 2 {
		return fmt.Errorf("--folds must be at least 2, got %d", opts.Folds)
	}

	ctx := cmd.Context()
	cfg := config.GetConfig(ctx)
	r := output.FromContext(ctx)

	pc := cfg.Pipeline()
	pc.Logger = config.GetLogger(ctx)
	res, err := pipeline.New(pc).Tune(ctx, model, opts.Folds)
	if err != nil {
		return err
	}

	out := map[string]any{
		"model":       res.Model,
		"rows":        res.Rows,
		"folds":       res.Folds,
		"best_params": res.BestParams,
		"best_score":  finite(res.BestScore),
		"evaluated":   res.Evaluated,
	}
	return r.Emit(out, func() { renderTune(r, res) })
}

func renderTune(r *output.Renderer, res *pipeline.TuneResult) {
	r.Title(fmt.Sprintf("Tuning: %s", res.Model))
	if len(res.BestParams) == 0 {
		r.Warning("%s has no parameter grid; fit with defaults on %d rows", res.Model, res.Rows)
		return
	}
	r.Line("%d combinations, %d folds, %d rows", res.Evaluated, res.Folds, res.Rows)

	keys := make([]string, 0, len(res.BestParams))
	for k := range res.BestParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]any, 0, len(keys))
	for _, k := range keys {
		v := res.BestParams[k]
		if v == nil {
			v = "none"
		}
		rows = append(rows, []any{k, v})
	}
	r.Table([]string{"Parameter", "Value"}, rows)
	r.Success("Best CV accuracy %s", fmtFloat(res.BestScore))
}
