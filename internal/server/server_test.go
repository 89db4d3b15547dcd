package server

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harley062/projeto-IA-Adega/internal/dataset"
	"github.com/Harley062/projeto-IA-Adega/internal/features"
	"github.com/Harley062/projeto-IA-Adega/internal/predict"
	"github.com/Harley062/projeto-IA-Adega/internal/state"
	"github.com/Harley062/projeto-IA-Adega/internal/testutil"
	"github.com/Harley062/projeto-IA-Adega/internal/trainer"
)

type fixed struct{ p float64 }

func (f fixed) Fit([][]float64, []int) error { return nil }

func (f fixed) PredictProba(X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i := range out {
		out[i] = f.p
	}
	return out, nil
}

func customer(id int) map[string]any {
	return map[string]any{
		"cliente_id": id, "nome": "Ana", "idade": 35, "cidade": "Recife",
		"pontuacao_engajamento": 3, "assinante_clube": "Não", "valor": 420.0,
		"quantidade": 2, "pais": "Chile", "tipo_uva": "Carmenere",
	}
}

func history() []dataset.MergedRecord {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := func(c, p int64, v float64, days int) dataset.MergedRecord {
		return dataset.MergedRecord{CustomerID: c, ProductID: p, Value: v, Quantity: 1, PurchasedAt: at.AddDate(0, 0, days)}
	}
	return []dataset.MergedRecord{rec(1, 1, 100, 0), rec(1, 1, 200, 20), rec(2, 2, 50, 40), rec(2, 3, 70, 45)}
}

type env struct {
	srv   *Server
	store *state.SQLiteStore
}

func newEnv(t *testing.T, withModel bool) env {
	t.Helper()
	store, err := state.OpenStore(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := testutil.NewTestLogger(t)
	var bundle *trainer.Bundle
	if withModel {
		bundle = &trainer.Bundle{Name: "fixed", Model: fixed{p: 0.8}, Schema: features.NewSchema()}
	}
	recs := history()
	return env{
		store: store,
		srv: New(Config{
			Predictor: predict.NewChurnPredictor(bundle, features.DefaultOptions(), logger),
			Sales:     predict.NewSalesPredictor([]int64{1, 2, 3}, recs),
			Products:  predict.NewProductRecommender(recs),
			Store:     store,
			Logger:    logger,
		}),
	}
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, rec)
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, rec.Body.String())
	return e["code"].(string)
}

func TestHealth(t *testing.T) {
	rec := do(t, newEnv(t, false).srv.Handler(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["model_loaded"])

	rec = do(t, newEnv(t, true).srv.Handler(), http.MethodGet, "/healthz", nil)
	body := decode(t, rec)
	assert.Equal(t, true, body["model_loaded"])
	assert.Equal(t, "fixed", body["model"])
}

func TestPredict(t *testing.T) {
	e := newEnv(t, true)
	rec := do(t, e.srv.Handler(), http.MethodPost, "/api/v1/predict", customer(7))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var res predict.PredictionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, predict.RiskHigh, res.RiskTier)
	assert.True(t, res.WillChurn)
	assert.Equal(t, int64(7), res.CustomerID)
	assert.Contains(t, res.Recommendations, "High-value customer: VIP treatment")

	stored, err := e.store.ListPredictions(context.Background(), 7, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "High", stored[0].RiskTier)
}

func TestPredict_Explain(t *testing.T) {
	rec := do(t, newEnv(t, true).srv.Handler(), http.MethodPost, "/api/v1/predict?explain=true", customer(7))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Contains(t, body, "prediction")
	assert.Contains(t, body, "top_factors")
}

func TestPredict_Errors(t *testing.T) {
	missing := customer(1)
	delete(missing, "cidade")

	tests := []struct {
		name      string
		withModel bool
		body      any
		status    int
		code      string
	}{
		{name: "missing field", withModel: true, body: missing, status: http.StatusBadRequest, code: "INVALID_INPUT"},
		{name: "bad json", withModel: true, body: "{not json", status: http.StatusBadRequest, code: "INVALID_JSON"},
		{name: "no model", withModel: false, body: customer(1), status: http.StatusServiceUnavailable, code: "MODEL_NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newEnv(t, tt.withModel).srv.Handler(), http.MethodPost, "/api/v1/predict", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestPredictBatch(t *testing.T) {
	bad := customer(2)
	bad["valor"] = "abc"

	e := newEnv(t, true)
	rec := do(t, e.srv.Handler(), http.MethodPost, "/api/v1/predict/batch",
		[]map[string]any{customer(1), bad, customer(3)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Scored  int `json:"scored"`
		Failed  int `json:"failed"`
		Results []struct {
			Row    int            `json:"row"`
			Result map[string]any `json:"result"`
			Error  string         `json:"error"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Scored)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Results, 3)
	assert.NotEmpty(t, resp.Results[1].Error)
	assert.Nil(t, resp.Results[1].Result)
	assert.NotNil(t, resp.Results[2].Result)

	stored, err := e.store.ListPredictions(context.Background(), -1, 0)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	rec = do(t, newEnv(t, false).srv.Handler(), http.MethodPost, "/api/v1/predict/batch", []map[string]any{customer(1)})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNextPurchase(t *testing.T) {
	h := newEnv(t, true).srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/customers/1/next-purchase", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, predict.StatusOK, body["status"])
	assert.Equal(t, "2024-02-10", body["predicted_next_purchase_date"])

	rec = do(t, h, http.MethodGet, "/api/v1/customers/3/next-purchase", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, predict.StatusNoHistory, decode(t, rec)["status"])

	rec = do(t, h, http.MethodGet, "/api/v1/customers/99/next-purchase", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/customers/abc/next-purchase", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ID", errorCode(t, rec))
}

func TestRecommendations(t *testing.T) {
	h := newEnv(t, true).srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/customers/1/recommendations?top=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	recs, ok := decode(t, rec)["recommendations"].([]any)
	require.True(t, ok)
	require.Len(t, recs, 1)
	assert.Equal(t, 2.0, recs[0].(map[string]any)["produto_id"])

	rec = do(t, h, http.MethodGet, "/api/v1/customers/1/recommendations?top=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRevenue(t *testing.T) {
	h := newEnv(t, true).srv.Handler()

	rec := do(t, h, http.MethodGet, "/api/v1/revenue?months=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, 2.0, body["months_ahead"])
	assert.Equal(t, "medium", body["confidence"])

	rec = do(t, h, http.MethodGet, "/api/v1/revenue?months=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRuns(t *testing.T) {
	e := newEnv(t, true)
	_, err := e.store.CreateRun(context.Background())
	require.NoError(t, err)

	rec := do(t, e.srv.Handler(), http.MethodGet, "/api/v1/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	runs, ok := decode(t, rec)["runs"].([]any)
	require.True(t, ok)
	assert.Len(t, runs, 1)

	rec = do(t, New(Config{}).Handler(), http.MethodGet, "/api/v1/runs", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetrics(t *testing.T) {
	h := newEnv(t, true).srv.Handler()
	do(t, h, http.MethodPost, "/api/v1/predict", customer(1))

	rec := do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `adega_predictions_total{risk_tier="High"} 1`)
	assert.Contains(t, body, `adega_http_requests_total{code="200",method="POST",route="/api/v1/predict"} 1`)
}

func TestServe_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(Config{Logger: testutil.NewTestLogger(t)})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServe_ReloadsModelOnNewBundle(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	dir := t.TempDir()
	logger := testutil.NewTestLogger(t)
	srv := New(Config{
		WatchDir: dir,
		Reload: func() (*predict.ChurnPredictor, error) {
			b := &trainer.Bundle{Name: "reloaded", Model: fixed{p: 0.1}, Schema: features.NewSchema()}
			return predict.NewChurnPredictor(b, features.DefaultOptions(), logger), nil
		},
		Logger: logger,
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.serve(ctx, ln) }()

	assert.Equal(t, false, decode(t, do(t, srv.Handler(), http.MethodGet, "/healthz", nil))["model_loaded"])

	// Rewrite the bundle until the watcher has picked it up.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, trainer.BundleFile("reloaded")), []byte("x"), 0o644)
		time.Sleep(2 * reloadDebounce)
		body := decode(t, do(t, srv.Handler(), http.MethodGet, "/healthz", nil))
		return body["model"] == "reloaded"
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
