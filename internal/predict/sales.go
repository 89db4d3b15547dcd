package predict

import (
	"math"
	"sort"
	"time"

	"github.com/Harley062/projeto-IA-Adega/internal/dataset"
)

// Forecast statuses.
const (
	StatusOK        = "ok"
	StatusNoHistory = "no_history"
	StatusNotFound  = "not_found"
)

// DefaultIntervalDays is the purchase interval assumed with fewer than two
// purchases.
const DefaultIntervalDays = 30

// NextPurchase forecasts a customer's next purchase.
type NextPurchase struct {
	Status             string  `json:"status"`
	CustomerID         int64   `json:"customer_id"`
	Message            string  `json:"message,omitempty"`
	Suggestion         string  `json:"suggestion,omitempty"`
	LastPurchase       string  `json:"last_purchase,omitempty"`
	NextPurchaseDate   string  `json:"predicted_next_purchase_date,omitempty"`
	DaysUntilNext      int     `json:"days_until_next_purchase"`
	PredictedValue     float64 `json:"predicted_value"`
	PredictedQuantity  int     `json:"predicted_quantity"`
	AvgIntervalDays    float64 `json:"avg_interval_days"`
	HistoricalPurchase int     `json:"total_historical_purchases"`
	FavoriteGrape      string  `json:"favorite_wine_type,omitempty"`
	LifetimeValue      float64 `json:"lifetime_value"`
}

// RevenueForecast extrapolates monthly revenue.
type RevenueForecast struct {
	MonthsAhead           int     `json:"months_ahead"`
	PredictedTotalRevenue float64 `json:"predicted_total_revenue"`
	PredictedMonthlyAvg   float64 `json:"predicted_monthly_avg"`
	HistoricalMonthlyAvg  float64 `json:"historical_monthly_avg"`
	GrowthRate            float64 `json:"growth_rate"`
	Confidence            string  `json:"confidence"`
}

// SalesPredictor derives simple forecasts from the purchase history.
type SalesPredictor struct {
	customers map[int64]bool
	history   map[int64][]dataset.MergedRecord
	records   []dataset.MergedRecord
	now       func() time.Time
}

// NewSalesPredictor indexes the merged purchase history. customerIDs are
// every registered customer, with or without purchases.
func NewSalesPredictor(customerIDs []int64, recs []dataset.MergedRecord) *SalesPredictor {
	s := &SalesPredictor{
		customers: make(map[int64]bool, len(customerIDs)),
		history:   make(map[int64][]dataset.MergedRecord),
		records:   recs,
		now:       time.Now,
	}
	for _, id := range customerIDs {
		s.customers[id] = true
	}
	for _, r := range recs {
		s.history[r.CustomerID] = append(s.history[r.CustomerID], r)
	}
	return s
}

// PredictNextPurchase forecasts the next purchase from the customer's mean
// value, quantity and interval. The next date is the last purchase plus
// the mean interval in days.
func (s *SalesPredictor) PredictNextPurchase(customerID int64) NextPurchase {
	purchases := s.history[customerID]
	if len(purchases) == 0 {
		if s.customers[customerID] {
			return NextPurchase{
				Status:     StatusNoHistory,
				CustomerID: customerID,
				Message:    "customer is registered but has no purchase history; at least one purchase is needed for a forecast",
				Suggestion: "try a customer who has already made purchases",
			}
		}
		return NextPurchase{
			Status:     StatusNotFound,
			CustomerID: customerID,
			Message:    "customer not found",
			Suggestion: "check that the customer ID is correct",
		}
	}

	var value, qty, lifetime float64
	var nv, nq int
	grapes := make(map[string]int)
	var grapeOrder []string
	var dated []time.Time
	for _, r := range purchases {
		if !math.IsNaN(r.Value) {
			value += r.Value
			lifetime += r.Value
			nv++
		}
		if !math.IsNaN(r.Quantity) {
			qty += r.Quantity
			nq++
		}
		if r.GrapeType.Valid {
			if grapes[r.GrapeType.String] == 0 {
				grapeOrder = append(grapeOrder, r.GrapeType.String)
			}
			grapes[r.GrapeType.String]++
		}
		if !r.PurchasedAt.IsZero() {
			dated = append(dated, r.PurchasedAt)
		}
	}
	sort.Slice(dated, func(a, b int) bool { return dated[a].Before(dated[b]) })

	// Undated purchases count toward the totals but not the interval.
	interval := float64(DefaultIntervalDays)
	if len(dated) >= 2 {
		var total float64
		for i := 1; i < len(dated); i++ {
			total += math.Floor(dated[i].Sub(dated[i-1]).Hours() / 24)
		}
		interval = total / float64(len(dated)-1)
	}

	out := NextPurchase{
		Status:             StatusOK,
		CustomerID:         customerID,
		AvgIntervalDays:    interval,
		HistoricalPurchase: len(purchases),
		FavoriteGrape:      mode(grapes, grapeOrder),
		LifetimeValue:      lifetime,
	}
	if len(dated) > 0 {
		last := dated[len(dated)-1]
		next := last.Add(time.Duration(interval * float64(24*time.Hour)))
		out.LastPurchase = last.Format("2006-01-02")
		out.NextPurchaseDate = next.Format("2006-01-02")
		out.DaysUntilNext = daysBetween(s.now(), next)
	}
	if nv > 0 {
		out.PredictedValue = value / float64(nv)
	}
	if nq > 0 {
		out.PredictedQuantity = int(math.Round(qty / float64(nq)))
	}
	return out
}

// daysBetween is the whole number of days from from to to, floored so a
// date 400.3 days in the past is 401 days ago.
func daysBetween(from, to time.Time) int {
	return int(math.Floor(to.Sub(from).Hours() / 24))
}

// mode returns the most frequent value; ties go to the alphabetically first.
func mode(counts map[string]int, order []string) string {
	sort.Strings(order)
	best, bestN := "", 0
	for _, v := range order {
		if counts[v] > bestN {
			best, bestN = v, counts[v]
		}
	}
	return best
}

// PredictRevenue projects revenue monthsAhead months out: the mean
// revenue of the observed calendar months times monthsAhead, compounded
// once per month by the mean month-over-month growth.
func (s *SalesPredictor) PredictRevenue(monthsAhead int) RevenueForecast {
	if monthsAhead < 1 {
		monthsAhead = 1
	}

	monthly := make(map[string]float64)
	for _, r := range s.records {
		if r.PurchasedAt.IsZero() || math.IsNaN(r.Value) {
			continue
		}
		monthly[r.PurchasedAt.Format("2006-01")] += r.Value
	}
	months := make([]string, 0, len(monthly))
	for m := range monthly {
		months = append(months, m)
	}
	sort.Strings(months)

	out := RevenueForecast{MonthsAhead: monthsAhead, Confidence: "medium"}
	if len(months) == 0 {
		return out
	}

	var total float64
	for _, m := range months {
		total += monthly[m]
	}
	out.HistoricalMonthlyAvg = total / float64(len(months))

	var growth float64
	var steps int
	for i := 1; i < len(months); i++ {
		prev := monthly[months[i-1]]
		if prev == 0 {
			continue
		}
		growth += (monthly[months[i]] - prev) / prev
		steps++
	}
	if steps > 0 {
		out.GrowthRate = growth / float64(steps)
	}

	out.PredictedTotalRevenue = out.HistoricalMonthlyAvg * float64(monthsAhead) * math.Pow(1+out.GrowthRate, float64(monthsAhead))
	out.PredictedMonthlyAvg = out.PredictedTotalRevenue / float64(monthsAhead)
	return out
}
