package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Harley062/projeto-IA-Adega/internal/cli/config"
	"github.com/Harley062/projeto-IA-Adega/internal/cli/output"
	"github.com/Harley062/projeto-IA-Adega/internal/state"
)

// DefaultHistoryLimit is the number of runs listed by default.
const DefaultHistoryLimit = 20

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var (
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded training runs",
		Long: `Show the training runs recorded in the state database, newest first.
With --run, show every candidate model's result for one run.`,
		Example: `  adega history --limit 5
  adega history --run 2f7c...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			r := output.FromContext(ctx)

			store, err := openStore(ctx, config.GetConfig(ctx))
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if runID != "" {
				run, err := store.GetRun(ctx, runID)
				if err != nil {
					return err
				}
				results, err := store.GetModelResults(ctx, runID)
				if err != nil {
					return err
				}
				return r.Emit(map[string]any{"run": run, "models": results}, func() {
					renderRun(r, run, results)
				})
			}

			runs, err := store.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			if runs == nil {
				runs = []*state.Run{}
			}
			return r.Emit(runs, func() { renderRuns(r, runs) })
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", DefaultHistoryLimit, "Maximum runs to list (0 for all)")
	cmd.Flags().StringVar(&runID, "run", "", "Show the model results of one run")
	return cmd
}

func renderRuns(r *output.Renderer, runs []*state.Run) {
	if len(runs) == 0 {
		r.Line("%s", r.Muted("no training runs recorded"))
		return
	}
	rows := make([][]any, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []any{
			run.ID, statusLabel(r, run.Status), run.StartedAt.Local().Format(time.DateTime),
			run.Rows, run.BestModel, fmtFloat(run.BestAccuracy),
		})
	}
	r.Table([]string{"Run", "Status", "Started", "Rows", "Best model", "Accuracy"}, rows)
}

func renderRun(r *output.Renderer, run *state.Run, results []state.ModelResult) {
	r.Title(fmt.Sprintf("Run %s", run.ID))
	r.Line("Status: %s", statusLabel(r, run.Status))
	r.Line("Started: %s", run.StartedAt.Local().Format(time.DateTime))
	if run.CompletedAt != nil {
		r.Line("Duration: %s", run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond))
	}
	if run.Error != "" {
		r.Line("Error: %s", run.Error)
	}
	if run.ModelPath != "" {
		r.Line("Model: %s", run.ModelPath)
	}
	r.Line("")

	rows := make([][]any, 0, len(results))
	for _, m := range results {
		acc, cv := "failed", "-"
		if m.Trained {
			acc = fmtFloat(m.Accuracy)
		}
		if m.CVMean != nil && m.CVStd != nil {
			cv = fmt.Sprintf("%s ± %s", fmtFloat(*m.CVMean), fmtFloat(*m.CVStd))
		}
		rows = append(rows, []any{m.Model, acc, cv, m.Duration.Round(time.Millisecond), m.Error})
	}
	r.Table([]string{"Model", "Test accuracy", "CV accuracy", "Time", "Error"}, rows)
}

func statusLabel(r *output.Renderer, s state.RunStatus) string {
	switch s {
	case state.RunStatusCompleted:
		return r.Risk("green", string(s))
	case state.RunStatusFailed:
		return r.Risk("red", string(s))
	default:
		return r.Risk("orange", string(s))
	}
}
