package dataset

import "math"

// DataSummary describes a merged record set.
type DataSummary struct {
	Rows           int            `json:"rows" yaml:"rows"`
	Customers      int            `json:"customers" yaml:"customers"`
	Products       int            `json:"products" yaml:"products"`
	TotalSales     float64        `json:"total_sales" yaml:"total_sales"`
	MeanTicket     float64        `json:"mean_ticket" yaml:"mean_ticket"`
	NullsPerColumn map[string]int `json:"nulls_per_column" yaml:"nulls_per_column"`
	FirstPurchase  string         `json:"first_purchase,omitempty" yaml:"first_purchase,omitempty"`
	LastPurchase   string         `json:"last_purchase,omitempty" yaml:"last_purchase,omitempty"`
}

// Summary computes row, customer and product counts plus sales totals.
// NaN values are skipped when summing sales.
func Summary(recs []MergedRecord) DataSummary {
	s := DataSummary{Rows: len(recs), NullsPerColumn: NullCounts(recs)}

	customers := make(map[int64]struct{})
	products := make(map[int64]struct{})
	var priced int
	for i := range recs {
		r := &recs[i]
		customers[r.CustomerID] = struct{}{}
		products[r.ProductID] = struct{}{}
		if !math.IsNaN(r.Value) {
			s.TotalSales += r.Value
			priced++
		}
		if r.PurchasedAt.IsZero() {
			continue
		}
		d := r.PurchasedAt.Format("2006-01-02")
		if s.FirstPurchase == "" || d < s.FirstPurchase {
			s.FirstPurchase = d
		}
		if d > s.LastPurchase {
			s.LastPurchase = d
		}
	}
	s.Customers = len(customers)
	s.Products = len(products)
	if priced > 0 {
		s.MeanTicket = s.TotalSales / float64(priced)
	}
	return s
}
