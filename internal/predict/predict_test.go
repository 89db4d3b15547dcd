package predict

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Harley062/projeto-IA-Adega/internal/dataset"
	"github.com/Harley062/projeto-IA-Adega/internal/features"
	"github.com/Harley062/projeto-IA-Adega/internal/ml"
	"github.com/Harley062/projeto-IA-Adega/internal/testutil"
	"github.com/Harley062/projeto-IA-Adega/internal/trainer"
)

// fixed always predicts the same churn probability.
type fixed struct{ p float64 }

func (f fixed) Fit([][]float64, []int) error { return nil }

func (f fixed) PredictProba(X [][]float64) ([]float64, error) {
	out := make([]float64, len(X))
	for i := range out {
		out[i] = f.p
	}
	return out, nil
}

func fixedPredictor(t *testing.T, p float64) *ChurnPredictor {
	t.Helper()
	b := &trainer.Bundle{Name: "fixed", Model: fixed{p: p}, Schema: features.NewSchema()}
	return NewChurnPredictor(b, features.DefaultOptions(), testutil.NewTestLogger(t))
}

func record() map[string]any {
	return map[string]any{
		"customer_id":       7,
		"name":              "Ana",
		"age":               "35",
		"city":              "São Paulo",
		"engagement_score":  8.0,
		"subscription_flag": "Sim",
		"value":             "150,50",
		"quantity":          2,
		"country":           "Chile",
		"grape_type":        "Carmenere",
	}
}

func TestClassifyRisk(t *testing.T) {
	tests := []struct {
		p     float64
		tier  RiskTier
		color string
	}{
		{p: 1, tier: RiskHigh, color: "red"},
		{p: 0.70, tier: RiskHigh, color: "red"},
		{p: 0.6999, tier: RiskMedium, color: "orange"},
		{p: 0.40, tier: RiskMedium, color: "orange"},
		{p: 0.3999, tier: RiskLow, color: "green"},
		{p: 0, tier: RiskLow, color: "green"},
	}
	for _, tt := range tests {
		got := ClassifyRisk(tt.p)
		assert.Equal(t, tt.tier, got, "p=%v", tt.p)
		assert.Equal(t, tt.color, got.Color(), "p=%v", tt.p)
	}
}

func TestRecommendations(t *testing.T) {
	tests := []struct {
		name string
		tier RiskTier
		in   CustomerInput
		want []string
		not  []string
	}{
		{
			name: "high risk engaged subscriber",
			tier: RiskHigh,
			in:   CustomerInput{Subscriber: "Sim", Engagement: 8, Value: 100, City: "Recife"},
			want: []string{"URGENT: contact the customer immediately", "Exclusive event in Recife"},
			not:  []string{"Promote the benefits of the subscribers' club", "High-value customer: VIP treatment"},
		},
		{
			name: "medium risk non subscriber",
			tier: RiskMedium,
			in:   CustomerInput{Subscriber: "Não", Engagement: 4.9, Value: 300.01, City: "Natal"},
			want: []string{
				"Monitor this customer closely",
				"Promote the benefits of the subscribers' club",
				"Low engagement: send educational content about wine",
				"High-value customer: VIP treatment",
				"Exclusive event in Natal",
			},
		},
		{
			name: "low risk at thresholds",
			tier: RiskLow,
			in:   CustomerInput{Subscriber: "No", Engagement: 5, Value: 300, City: " "},
			want: []string{"Upsell opportunity", "Promote the benefits of the subscribers' club"},
			not:  []string{"Low engagement: send educational content about wine", "High-value customer: VIP treatment"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Recommendations(tt.tier, tt.in)
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
			for _, n := range tt.not {
				assert.NotContains(t, got, n)
			}
		})
	}

	assert.Len(t, Recommendations(RiskHigh, CustomerInput{Subscriber: "Sim", Engagement: 9}), 3)
	assert.Len(t, Recommendations(RiskLow, CustomerInput{Subscriber: "Sim", Engagement: 9}), 2)
}

func TestDecodeInput(t *testing.T) {
	in, err := DecodeInput(record())
	require.NoError(t, err)
	assert.Equal(t, int64(7), in.CustomerID)
	assert.Equal(t, 35.0, in.Age)
	assert.Equal(t, 150.5, in.Value)
	assert.Equal(t, 2.0, in.Quantity)
	assert.Equal(t, "São Paulo", in.City)
	assert.Equal(t, "Sim", in.Subscriber)

	rec := record()
	rec["data_compra"] = "2024-05-06"
	in, err = DecodeInput(rec)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC), in.PurchasedAt)
}

func TestDecodeInput_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]any)
		missing []string
		invalid bool
		decode  bool
	}{
		{
			name:    "missing keys",
			mutate:  func(r map[string]any) { delete(r, "city"); r["country"] = "  " },
			missing: []string{"cidade", "pais"},
		},
		{
			name:   "unparseable number",
			mutate: func(r map[string]any) { r["value"] = "abc" },
			decode: true,
		},
		{
			name:    "out of range",
			mutate:  func(r map[string]any) { r["engagement_score"] = 11 },
			invalid: true,
		},
		{
			name:   "bad date",
			mutate: func(r map[string]any) { r["purchase_date"] = "yesterday" },
			decode: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := record()
			tt.mutate(rec)
			_, err := DecodeInput(rec)

			var inErr *InputError
			require.True(t, errors.As(err, &inErr), "got %v", err)
			assert.Equal(t, tt.missing, inErr.Missing)
			assert.Equal(t, tt.invalid, len(inErr.Invalid) > 0)
			assert.Equal(t, tt.decode, inErr.Err != nil)
		})
	}
}

func TestChurnPredictor_Predict(t *testing.T) {
	tests := []struct {
		p     float64
		tier  RiskTier
		churn bool
	}{
		{p: 0.85, tier: RiskHigh, churn: true},
		{p: 0.55, tier: RiskMedium, churn: true},
		{p: 0.50, tier: RiskMedium, churn: false},
		{p: 0.45, tier: RiskMedium, churn: false},
		{p: 0.10, tier: RiskLow, churn: false},
	}
	for _, tt := range tests {
		res, err := fixedPredictor(t, tt.p).Predict(record())
		require.NoError(t, err)
		assert.Equal(t, tt.tier, res.RiskTier)
		assert.Equal(t, tt.tier.Color(), res.RiskColor)
		assert.Equal(t, tt.churn, res.WillChurn)
		assert.InDelta(t, tt.p, res.ChurnProbability, 1e-12)
		assert.InDelta(t, 1-tt.p, res.RetentionProbability, 1e-12)
		assert.Equal(t, int64(7), res.CustomerID)
		assert.Contains(t, res.Recommendations, "Exclusive event in São Paulo")
	}
}

func TestChurnPredictor_ModelNotFound(t *testing.T) {
	_, err := NewChurnPredictor(nil, features.DefaultOptions(), nil).Predict(record())
	assert.ErrorIs(t, err, trainer.ErrModelNotFound)

	path := filepath.Join(t.TempDir(), "best_model_KNN.gob")
	_, err = LoadChurnPredictor(path, features.DefaultOptions(), nil)
	require.ErrorIs(t, err, trainer.ErrModelNotFound)
	assert.Contains(t, err.Error(), path)
}

func TestChurnPredictor_PredictBatch(t *testing.T) {
	bad := record()
	bad["customer_id"] = 8
	bad["value"] = "abc"
	other := record()
	other["customer_id"] = 9

	results := fixedPredictor(t, 0.2).PredictBatch([]map[string]any{record(), bad, other})
	require.Len(t, results, 3)

	var ok int
	for _, r := range results {
		if r.OK() {
			ok++
			assert.NotNil(t, r.Result)
		}
	}
	assert.Equal(t, 2, ok)
	assert.False(t, results[1].OK())
	assert.Equal(t, "8", results[1].CustomerID)
	assert.Nil(t, results[1].Result)
	assert.NotEmpty(t, results[1].Error)
	assert.Equal(t, int64(9), results[2].Result.CustomerID)
}

func trainedPredictor(t *testing.T, name string) *ChurnPredictor {
	t.Helper()
	dir := testutil.WriteTrainingSet(t)
	tables, err := dataset.NewLoader(dataset.Config{DataDir: dir}).Load(context.Background())
	require.NoError(t, err)
	recs, _ := dataset.Clean(dataset.Merge(tables), true)

	ts, err := features.NewEngineer(features.DefaultOptions(), nil).Fit(recs)
	require.NoError(t, err)
	model, err := ml.New(name, nil, 42)
	require.NoError(t, err)
	require.NoError(t, model.Fit(ts.X, ts.Y))

	return NewChurnPredictor(&trainer.Bundle{Name: name, Model: model, Schema: ts.Schema},
		features.DefaultOptions(), testutil.NewTestLogger(t))
}

func TestChurnPredictor_Explain(t *testing.T) {
	p := trainedPredictor(t, ml.DecisionTreeName)
	exp, err := p.Explain(record())
	require.NoError(t, err)

	require.NotEmpty(t, exp.TopFactors)
	assert.LessOrEqual(t, len(exp.TopFactors), ExplainTopN)
	var relevant int
	for i, f := range exp.TopFactors {
		assert.Contains(t, features.ExpectedColumns, f.Feature)
		if i > 0 {
			assert.LessOrEqual(t, f.Importance, exp.TopFactors[i-1].Importance)
		}
		if f.Importance > 0.1 {
			relevant++
		}
	}
	assert.Len(t, exp.Reasoning, relevant)
	assert.NotNil(t, exp.Prediction)

	exp, err = trainedPredictor(t, ml.KNNName).Explain(record())
	require.NoError(t, err)
	assert.Empty(t, exp.TopFactors)
	assert.NotNil(t, exp.Prediction)
}

func TestReadBatchFile(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteCSV(t, dir, "batch.csv", ";",
		[]string{"customer_id", "name", "age", "city", "engagement_score", "subscription_flag", "value", "quantity", "country", "grape_type"},
		[]string{"1", "Ana", "30", "Recife", "7", "Sim", "120.5", "1", "Chile", "Merlot"},
		[]string{"2", "Bia", "41", "Natal", "", "Não", "abc", "2", "França", "Syrah"},
	)

	records, err := ReadBatchFile(context.Background(), path, ";", testutil.NewTestLogger(t))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Recife", records[0]["city"])
	v, ok := records[1]["engagement_score"]
	assert.True(t, !ok || v == "", "blank cell should be absent, got %v", v)

	results := fixedPredictor(t, 0.9).PredictBatch(records)
	assert.True(t, results[0].OK())
	assert.False(t, results[1].OK())

	_, err = ReadBatchFile(context.Background(), filepath.Join(dir, "missing.csv"), ";", nil)
	assert.Error(t, err)
}

func ns(s string) sql.NullString { return sql.NullString{String: s, Valid: true} }

func buy(customer, product int64, value, qty float64, at time.Time, grape string) dataset.MergedRecord {
	return dataset.MergedRecord{
		CustomerID: customer, ProductID: product, Value: value, Quantity: qty, PurchasedAt: at,
		GrapeType: ns(grape), ProductName: ns("Vinho"), Country: ns("Chile"),
	}
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestSalesPredictor_NextPurchase(t *testing.T) {
	recs := []dataset.MergedRecord{
		buy(1, 1, 300, 2, day(2024, 1, 31), "Carmenere"),
		buy(1, 1, 100, 1, day(2024, 1, 1), "Carmenere"),
		buy(3, 2, 80, 1, day(2024, 2, 10), "Malbec"),
	}
	s := NewSalesPredictor([]int64{1, 2, 3}, recs)
	s.now = func() time.Time { return day(2024, 2, 20) }

	got := s.PredictNextPurchase(1)
	assert.Equal(t, StatusOK, got.Status)
	assert.Equal(t, "2024-01-31", got.LastPurchase)
	assert.Equal(t, "2024-03-01", got.NextPurchaseDate)
	assert.Equal(t, 10, got.DaysUntilNext)
	assert.Equal(t, 30.0, got.AvgIntervalDays)
	assert.Equal(t, 200.0, got.PredictedValue)
	assert.Equal(t, 2, got.PredictedQuantity)
	assert.Equal(t, 2, got.HistoricalPurchase)
	assert.Equal(t, "Carmenere", got.FavoriteGrape)
	assert.Equal(t, 400.0, got.LifetimeValue)

	single := s.PredictNextPurchase(3)
	assert.Equal(t, float64(DefaultIntervalDays), single.AvgIntervalDays)
	assert.Equal(t, "2024-03-11", single.NextPurchaseDate)

	assert.Equal(t, StatusNoHistory, s.PredictNextPurchase(2).Status)
	notFound := s.PredictNextPurchase(99)
	assert.Equal(t, StatusNotFound, notFound.Status)
	assert.NotEmpty(t, notFound.Suggestion)
}

func TestSalesPredictor_NextPurchaseInThePast(t *testing.T) {
	s := NewSalesPredictor([]int64{1}, []dataset.MergedRecord{buy(1, 1, 100, 1, day(2024, 1, 1), "Merlot")})
	// next purchase 2024-01-31, now 12h after it: still 1 day overdue, not 0
	s.now = func() time.Time { return day(2024, 1, 31).Add(12 * time.Hour) }
	assert.Equal(t, -1, s.PredictNextPurchase(1).DaysUntilNext)

	s.now = func() time.Time { return day(2024, 1, 30).Add(12 * time.Hour) }
	assert.Equal(t, 0, s.PredictNextPurchase(1).DaysUntilNext)
}

func TestSalesPredictor_UncleanHistory(t *testing.T) {
	dangling := dataset.MergedRecord{CustomerID: 4, ProductID: 77, Value: 120, Quantity: 1, PurchasedAt: day(2024, 1, 10), Vintage: math.NaN()}
	undated := dataset.MergedRecord{CustomerID: 4, ProductID: 77, Value: 80, Quantity: math.NaN(), Vintage: math.NaN()}
	s := NewSalesPredictor([]int64{4}, []dataset.MergedRecord{dangling, undated})
	s.now = func() time.Time { return day(2024, 1, 20) }

	got := s.PredictNextPurchase(4)
	assert.Equal(t, StatusOK, got.Status)
	assert.Equal(t, "2024-01-10", got.LastPurchase)
	assert.Equal(t, float64(DefaultIntervalDays), got.AvgIntervalDays)
	assert.Equal(t, 2, got.HistoricalPurchase)
	assert.Equal(t, 200.0, got.LifetimeValue)
	assert.Equal(t, 1, got.PredictedQuantity)
	assert.Empty(t, got.FavoriteGrape)

	r := NewProductRecommender([]dataset.MergedRecord{dangling, buy(5, 2, 60, 1, day(2024, 1, 1), "Malbec")})
	recs := r.RecommendProducts(4, 5)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(2), recs[0].ProductID)
}

func TestSalesPredictor_Revenue(t *testing.T) {
	recs := []dataset.MergedRecord{
		buy(1, 1, 60, 1, day(2024, 1, 3), "Merlot"),
		buy(2, 1, 40, 1, day(2024, 1, 20), "Merlot"),
		buy(1, 1, 200, 1, day(2024, 2, 3), "Merlot"),
		buy(1, 1, math.NaN(), 1, day(2024, 2, 4), "Merlot"),
	}
	got := NewSalesPredictor(nil, recs).PredictRevenue(2)

	assert.Equal(t, 2, got.MonthsAhead)
	assert.Equal(t, "medium", got.Confidence)
	assert.InDelta(t, 150, got.HistoricalMonthlyAvg, 1e-9)
	assert.InDelta(t, 1.0, got.GrowthRate, 1e-9)
	assert.InDelta(t, 150*2*4, got.PredictedTotalRevenue, 1e-9)
	assert.InDelta(t, 600, got.PredictedMonthlyAvg, 1e-9)

	empty := NewSalesPredictor(nil, nil).PredictRevenue(3)
	assert.Zero(t, empty.PredictedTotalRevenue)
	assert.Equal(t, "medium", empty.Confidence)
}

func TestProductRecommender(t *testing.T) {
	at := day(2024, 1, 1)
	recs := []dataset.MergedRecord{
		buy(1, 1, 50, 1, at, "Merlot"),
		buy(2, 2, 90, 1, at, "Malbec"),
		buy(2, 2, 110, 1, at, "Malbec"),
		buy(3, 2, 100, 1, at, "Malbec"),
		buy(3, 3, 70, 1, at, "Syrah"),
		buy(3, 1, 55, 1, at, "Merlot"),
	}
	r := NewProductRecommender(recs)

	got := r.RecommendProducts(1, 5)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ProductID)
	assert.Equal(t, 3, got[0].PopularityScore)
	assert.InDelta(t, 100, got[0].AvgPrice, 1e-9)
	assert.Equal(t, RecommendationReason, got[0].Reason)
	assert.Equal(t, int64(3), got[1].ProductID)

	assert.Len(t, r.RecommendProducts(1, 1), 1)
	assert.Empty(t, r.RecommendProducts(42, 5))
}
