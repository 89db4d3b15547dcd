package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harley062/projeto-IA-Adega/internal/dataset"
	"github.com/Harley062/projeto-IA-Adega/internal/evaluate"
	"github.com/Harley062/projeto-IA-Adega/internal/features"
	"github.com/Harley062/projeto-IA-Adega/internal/ml"
	"github.com/Harley062/projeto-IA-Adega/internal/state"
	"github.com/Harley062/projeto-IA-Adega/internal/testutil"
	"github.com/Harley062/projeto-IA-Adega/internal/trainer"
)

func openStore(t *testing.T) *state.SQLiteStore {
	t.Helper()
	store, err := state.OpenStore(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testConfig(t *testing.T, dataDir string, store state.Store) Config {
	out := t.TempDir()
	return Config{
		Data:       dataset.Config{DataDir: dataDir},
		Features:   features.DefaultOptions(),
		Seed:       DefaultSeed,
		CVFolds:    3,
		Models:     []string{ml.DecisionTreeName, ml.NaiveBayesName, ml.LogisticRegressionName},
		ModelsDir:  filepath.Join(out, "models"),
		ReportsDir: filepath.Join(out, "reports"),
		Store:      store,
		Logger:     testutil.NewTestLogger(t),
	}
}

func TestPipeline_Run(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	cfg := testConfig(t, testutil.WriteTrainingSet(t), store)

	res, err := New(cfg).Run(ctx)
	require.NoError(t, err)

	best := res.Best()
	require.NotNil(t, best)
	assert.Contains(t, cfg.Models, best.Name)
	assert.Equal(t, res.Summary.Rows, res.TrainRows+res.TestRows)
	assert.Equal(t, features.ExpectedColumns, res.Columns)
	assert.Len(t, res.CV, len(cfg.Models))
	assert.GreaterOrEqual(t, res.Metrics.Accuracy, 0.0)

	assert.Equal(t, filepath.Join(cfg.ModelsDir, trainer.BundleFile(best.Name)), res.ModelPath)
	bundle, err := trainer.LoadModel(res.ModelPath)
	require.NoError(t, err)
	assert.Equal(t, best.Name, bundle.Name)
	require.NotNil(t, res.Run)
	assert.Equal(t, res.Run.ID, bundle.RunID)
	assert.Equal(t, features.ExpectedColumns, bundle.Schema.Columns)

	report, err := os.ReadFile(res.ReportPath)
	require.NoError(t, err)
	assert.Equal(t, evaluate.ReportFile, filepath.Base(res.ReportPath))
	assert.Contains(t, string(report), best.Name)

	assert.Equal(t, state.RunStatusCompleted, res.Run.Status)
	assert.Equal(t, best.Name, res.Run.BestModel)
	assert.Equal(t, res.Summary.Customers, res.Run.Customers)

	results, err := store.GetModelResults(ctx, res.Run.ID)
	require.NoError(t, err)
	require.Len(t, results, len(cfg.Models))
	for _, r := range results {
		assert.True(t, r.Trained, r.Model)
		assert.NotNil(t, r.CVMean, r.Model)
	}
}

func TestPipeline_RunWithoutStore(t *testing.T) {
	cfg := testConfig(t, testutil.WriteTrainingSet(t), nil)
	cfg.CVFolds = 0

	res, err := New(cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res.Run)
	assert.Empty(t, res.CV)
	assert.FileExists(t, res.ModelPath)
}

func TestPipeline_MissingFilesRecordsFailure(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	cfg := testConfig(t, t.TempDir(), store)

	res, err := New(cfg).Run(ctx)
	var missing *dataset.MissingFileError
	require.ErrorAs(t, err, &missing)
	assert.Len(t, missing.Files, 3)

	require.NotNil(t, res.Run)
	assert.Equal(t, state.RunStatusFailed, res.Run.Status)
	assert.Contains(t, res.Run.Error, dataset.DefaultCustomersFile)

	runs, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestPipeline_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(testConfig(t, testutil.WriteTrainingSet(t), nil)).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_Tune(t *testing.T) {
	cfg := testConfig(t, testutil.WriteTrainingSet(t), nil)

	res, err := New(cfg).Tune(context.Background(), ml.KNNName, 0)
	require.NoError(t, err)
	assert.Equal(t, ml.KNNName, res.Model)
	assert.Equal(t, DefaultCVFolds, res.Folds)
	assert.Equal(t, len(trainer.DefaultGrids[ml.KNNName].Combinations()), res.Evaluated)
	assert.Contains(t, res.BestParams, "n_neighbors")
	assert.GreaterOrEqual(t, res.BestScore, 0.0)

	_, err = New(testConfig(t, t.TempDir(), nil)).Tune(context.Background(), ml.KNNName, 3)
	require.Error(t, err)
}
