package commands

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harley062/projeto-IA-Adega/internal/cli/config"
	"github.com/Harley062/projeto-IA-Adega/internal/cli/output"
	"github.com/Harley062/projeto-IA-Adega/internal/dataset"
	"github.com/Harley062/projeto-IA-Adega/internal/ml"
	"github.com/Harley062/projeto-IA-Adega/internal/testutil"
)

// testConfig returns the default configuration pointed at dataDir with every
// output under a temporary directory.
func testConfig(t *testing.T, dataDir string) *config.Config {
	t.Helper()
	cfg, _, err := config.LoadConfig("", nil)
	require.NoError(t, err)

	out := t.TempDir()
	cfg.DataDir = dataDir
	cfg.OutputDir = out
	cfg.ModelsDir = filepath.Join(out, "models")
	cfg.ReportsDir = filepath.Join(out, "reports")
	cfg.StatePath = filepath.Join(out, "adega.db")
	cfg.Models = []string{ml.DecisionTreeName, ml.LogisticRegressionName}
	cfg.CVFolds = 2
	cfg.Server.Addr = "127.0.0.1:0"
	return cfg
}

// execute runs cmd in JSON mode and returns what it wrote to stdout. Usage
// and error printing are silenced as the root command does.
func execute(ctx context.Context, t *testing.T, cfg *config.Config, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)

	ctx = config.WithConfig(ctx, cfg)
	ctx = config.WithLogger(ctx, testutil.NewTestLogger(t))
	ctx = output.WithRenderer(ctx, output.NewRendererWithTTY(out, errOut, false, output.ModeJSON))

	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func decode(t *testing.T, s string) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &v), "output: %s", s)
	return v
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd *cobra.Command
		use string
	}{
		{NewTrainCommand(), "train"},
		{NewPredictCommand(), "predict"},
		{NewBatchCommand(), "batch <file>"},
		{NewNextPurchaseCommand(), "next-purchase <customer-id>"},
		{NewRecommendCommand(), "recommend <customer-id>"},
		{NewRevenueCommand(), "revenue"},
		{NewImportanceCommand(), "importance"},
		{NewHistoryCommand(), "history"},
		{NewServeCommand(), "serve"},
		{NewQueryCommand(), "query [sql]"},
		{NewTuneCommand(), "tune <model>"},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short)
			assert.NotEmpty(t, tt.cmd.Long)
			assert.NotNil(t, tt.cmd.RunE)
		})
	}

	assert.NotNil(t, NewTrainCommand().Flags().Lookup("cv-folds"))
	assert.NotNil(t, NewPredictCommand().Flags().Lookup("explain"))
	assert.NotNil(t, NewServeCommand().Flags().Lookup("addr"))
}

func TestWorkflow(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, testutil.WriteTrainingSet(t))

	out, err := execute(ctx, t, cfg, NewTrainCommand())
	require.NoError(t, err)
	trained := decode(t, out)
	assert.NotEmpty(t, trained["best_model"])
	assert.NotEmpty(t, trained["run_id"])
	assert.FileExists(t, trained["model_path"].(string))
	assert.FileExists(t, trained["report_path"].(string))
	assert.Len(t, trained["models"], 2)

	t.Run("predict from flags", func(t *testing.T) {
		out, err := execute(ctx, t, cfg, NewPredictCommand(),
			"--customer-id", "7", "--name", "Ana", "--age", "34", "--city", "Recife",
			"--engagement", "2", "--subscriber", "Não", "--value", "50", "--quantity", "1",
			"--country", "Chile", "--grape-type", "Merlot")
		require.NoError(t, err)
		res := decode(t, out)
		assert.EqualValues(t, 7, res["customer_id"])
		assert.Contains(t, []any{"High", "Medium", "Low"}, res["risk_tier"])
	})

	t.Run("predict with explanation", func(t *testing.T) {
		out, err := execute(ctx, t, cfg, NewPredictCommand(), "--explain", "--json",
			`{"customer_id": 8, "name": "Bia", "age": 50, "city": "Natal", "engagement_score": 9,
			  "subscription_flag": "Sim", "value": 200, "quantity": 3, "country": "França", "grape_type": "Malbec"}`)
		require.NoError(t, err)
		exp := decode(t, out)
		assert.Contains(t, exp, "prediction")
		assert.Contains(t, exp, "top_factors")
	})

	t.Run("predict rejects incomplete record", func(t *testing.T) {
		_, err := execute(ctx, t, cfg, NewPredictCommand(), "--age", "30")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing keys")
	})

	t.Run("batch", func(t *testing.T) {
		path := testutil.WriteCSV(t, t.TempDir(), "batch.csv", ";",
			[]string{"customer_id", "name", "age", "city", "engagement_score", "subscription_flag", "value", "quantity", "country", "grape_type"},
			[]string{"1", "Ana", "30", "Recife", "7", "Sim", "120.5", "1", "Chile", "Merlot"},
			[]string{"2", "Bia", "41", "Natal", "5", "Não", "abc", "2", "França", "Malbec"},
		)
		out, err := execute(ctx, t, cfg, NewBatchCommand(), path)
		require.NoError(t, err)
		res := decode(t, out)
		assert.EqualValues(t, 1, res["scored"])
		assert.EqualValues(t, 1, res["failed"])

		_, err = execute(ctx, t, cfg, NewBatchCommand(), path, "--fail-on-error")
		assert.Error(t, err)
	})

	t.Run("importance", func(t *testing.T) {
		out, err := execute(ctx, t, cfg, NewImportanceCommand(), "--top", "3")
		require.NoError(t, err)
		res := decode(t, out)
		assert.Equal(t, trained["best_model"], res["model"])
		assert.LessOrEqual(t, len(res["importances"].([]any)), 3)
	})

	t.Run("history", func(t *testing.T) {
		out, err := execute(ctx, t, cfg, NewHistoryCommand())
		require.NoError(t, err)
		var runs []map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &runs))
		require.Len(t, runs, 1)
		assert.Equal(t, "completed", runs[0]["status"])

		out, err = execute(ctx, t, cfg, NewHistoryCommand(), "--run", trained["run_id"].(string))
		require.NoError(t, err)
		detail := decode(t, out)
		assert.Len(t, detail["models"], 2)
	})
}

func TestSalesCommands(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, testutil.WriteScenario(t))

	out, err := execute(ctx, t, cfg, NewNextPurchaseCommand(), "1")
	require.NoError(t, err)
	np := decode(t, out)
	assert.Equal(t, "ok", np["status"])
	assert.EqualValues(t, 2, np["total_historical_purchases"])
	assert.Equal(t, "Carmenere", np["favorite_wine_type"])

	out, err = execute(ctx, t, cfg, NewNextPurchaseCommand(), "99")
	require.Error(t, err)
	assert.Equal(t, "not_found", decode(t, out)["status"])

	_, err = execute(ctx, t, cfg, NewNextPurchaseCommand(), "abc")
	assert.ErrorContains(t, err, "must be an integer")

	out, err = execute(ctx, t, cfg, NewRecommendCommand(), "1", "--top", "3")
	require.NoError(t, err)
	var recs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	assert.Empty(t, recs, "the only product was already bought")

	_, err = execute(ctx, t, cfg, NewRecommendCommand(), "1", "--top", "0")
	assert.Error(t, err)

	out, err = execute(ctx, t, cfg, NewRevenueCommand(), "--months", "2")
	require.NoError(t, err)
	f := decode(t, out)
	assert.EqualValues(t, 2, f["months_ahead"])
	assert.Greater(t, f["predicted_total_revenue"], 0.0)
}

func TestNextPurchaseKeepsIncompleteRows(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteCSV(t, dir, "Cliente.csv", ";", testutil.CustomerHeader,
		[]string{"1", "Ana", "35", "São Paulo", "7.5", "Sim", "Não"},
		[]string{"2", "Bia", "41", "Natal", "5", "Não", "Sim"})
	testutil.WriteCSV(t, dir, "produtos.csv", ";", testutil.ProductHeader,
		[]string{"1", "Carmenere Reserva", "Chile", "Carmenere", "2019"})
	testutil.WriteCSV(t, dir, "Compras.csv", ";", testutil.PurchaseHeader,
		[]string{"1", "1", "1", "100.0", "1", "2024-01-01"},
		[]string{"2", "2", "9", "250.0", "1", "2024-02-10"})
	cfg := testConfig(t, dir)

	out, err := execute(context.Background(), t, cfg, NewNextPurchaseCommand(), "2")
	require.NoError(t, err)
	np := decode(t, out)
	assert.Equal(t, "ok", np["status"])
	assert.Equal(t, "2024-02-10", np["last_purchase"])
	assert.EqualValues(t, 250, np["lifetime_value"])

	out, err = execute(context.Background(), t, cfg, NewRecommendCommand(), "2")
	require.NoError(t, err)
	var recs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &recs))
	require.Len(t, recs, 1)
	assert.EqualValues(t, 1, recs[0]["produto_id"])
}

func TestTuneCommand(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, testutil.WriteTrainingSet(t))

	t.Run("grid search", func(t *testing.T) {
		out, err := execute(ctx, t, cfg, NewTuneCommand(), ml.DecisionTreeName, "--folds", "2")
		require.NoError(t, err)
		res := decode(t, out)
		assert.Equal(t, ml.DecisionTreeName, res["model"])
		assert.EqualValues(t, 2, res["folds"])
		assert.Positive(t, res["evaluated"])
		assert.Contains(t, res["best_params"], "criterion")
	})

	t.Run("model without grid", func(t *testing.T) {
		out, err := execute(ctx, t, cfg, NewTuneCommand(), ml.NaiveBayesName)
		require.NoError(t, err)
		res := decode(t, out)
		assert.Empty(t, res["best_params"])
		assert.EqualValues(t, 0, res["evaluated"])
	})

	t.Run("unknown model", func(t *testing.T) {
		_, err := execute(ctx, t, cfg, NewTuneCommand(), "Perceptron")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown model")
	})

	t.Run("too few folds", func(t *testing.T) {
		_, err := execute(ctx, t, cfg, NewTuneCommand(), ml.KNNName, "--folds", "1")
		require.Error(t, err)
	})
}

func TestPredictWithoutModel(t *testing.T) {
	cfg := testConfig(t, testutil.WriteScenario(t))
	_, err := execute(context.Background(), t, cfg, NewPredictCommand(), "--customer-id", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := testConfig(t, testutil.WriteScenario(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := execute(ctx, t, cfg, NewServeCommand(), "--watch")
	assert.NoError(t, err)
}

func TestQueryCommand(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, testutil.WriteScenario(t))

	out, err := execute(ctx, t, cfg, NewQueryCommand(),
		"SELECT cliente_id, count(*) AS compras FROM compras GROUP BY cliente_id;")
	require.NoError(t, err)
	var rows []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 1)
	assert.EqualValues(t, 2, rows[0]["compras"])

	_, err = execute(ctx, t, cfg, NewQueryCommand(), "SELECT * FROM vinhos")
	assert.Error(t, err)
}

func TestHandleDotCommand(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, testutil.WriteScenario(t))
	db, err := dataset.NewLoader(cfg.Dataset()).Stage(ctx)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	r := output.NewRendererWithTTY(out, errOut, false, output.ModeMarkdown)
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	assert.False(t, handleDotCommand(ctx, cmd, r, db, ".tables"))
	assert.Contains(t, out.String(), "produtos")

	out.Reset()
	assert.False(t, handleDotCommand(ctx, cmd, r, db, ".schema clientes"))
	assert.Contains(t, out.String(), "pontuacao_engajamento")

	assert.False(t, handleDotCommand(ctx, cmd, r, db, ".schema"))
	assert.Contains(t, errOut.String(), "Usage")

	assert.False(t, handleDotCommand(ctx, cmd, r, db, ".bogus"))
	assert.Contains(t, errOut.String(), "Unknown command")

	assert.True(t, handleDotCommand(ctx, cmd, r, db, ".quit"))
}
