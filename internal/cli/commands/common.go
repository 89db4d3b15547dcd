// Package commands implements the adega subcommands.
package commands

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Harley062/projeto-IA-Adega/internal/cli/config"
	"github.com/Harley062/projeto-IA-Adega/internal/dataset"
	"github.com/Harley062/projeto-IA-Adega/internal/predict"
	"github.com/Harley062/projeto-IA-Adega/internal/state"
	"github.com/Harley062/projeto-IA-Adega/internal/trainer"
)

// modelPath returns the configured bundle, or the newest one in models_dir.
func modelPath(cfg *config.Config) (string, error) {
	if cfg.ModelPath != "" {
		return cfg.ModelPath, nil
	}
	return trainer.FindModel(cfg.ModelsDir)
}

func loadPredictor(ctx context.Context, cfg *config.Config) (*predict.ChurnPredictor, error) {
	path, err := modelPath(cfg)
	if err != nil {
		return nil, err
	}
	return predict.LoadChurnPredictor(path, cfg.FeatureOptions(), config.GetLogger(ctx))
}

// history is the merged purchase history, incomplete rows included, and
// every registered customer.
type history struct {
	customers []int64
	records   []dataset.MergedRecord
}

func loadHistory(ctx context.Context, cfg *config.Config) (*history, error) {
	dc := cfg.Dataset()
	dc.Logger = config.GetLogger(ctx)
	tables, err := dataset.NewLoader(dc).Load(ctx)
	if err != nil {
		return nil, err
	}
	return &history{customers: tables.CustomerIDs(), records: dataset.Merge(tables)}, nil
}

// openStore opens the state database, creating its directory.
func openStore(ctx context.Context, cfg *config.Config) (*state.SQLiteStore, error) {
	if dir := filepath.Dir(cfg.StatePath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create state directory: %w", err)
		}
	}
	return state.OpenStore(cfg.StatePath, config.GetLogger(ctx))
}

func parseCustomerID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("customer id must be an integer, got %q", arg)
	}
	return id, nil
}

// fmtFloat formats v with four decimals, or n/a when undefined.
func fmtFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// finite is v, or nil when JSON cannot represent it.
func finite(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func percent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
}
