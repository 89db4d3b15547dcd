package predict

import (
	"math"
	"sort"

	"github.com/Harley062/projeto-IA-Adega/internal/dataset"
)

// RecommendationReason is attached to every product suggestion.
const RecommendationReason = "popular among similar customers"

// ProductSuggestion is a product the customer has not bought yet.
type ProductSuggestion struct {
	ProductID       int64   `json:"produto_id"`
	Name            string  `json:"nome"`
	GrapeType       string  `json:"tipo_uva"`
	Country         string  `json:"pais"`
	AvgPrice        float64 `json:"avg_price"`
	PopularityScore int     `json:"popularity_score"`
	Reason          string  `json:"reason"`
}

// ProductRecommender suggests products bought by other customers.
type ProductRecommender struct {
	records []dataset.MergedRecord
}

// NewProductRecommender indexes the merged purchase history.
func NewProductRecommender(recs []dataset.MergedRecord) *ProductRecommender {
	return &ProductRecommender{records: recs}
}

// RecommendProducts ranks the products the customer never bought by how
// often other customers bought them and returns the topN. A customer
// without purchases gets no suggestions.
func (p *ProductRecommender) RecommendProducts(customerID int64, topN int) []ProductSuggestion {
	bought := make(map[int64]bool)
	for _, r := range p.records {
		if r.CustomerID == customerID {
			bought[r.ProductID] = true
		}
	}
	if len(bought) == 0 {
		return []ProductSuggestion{}
	}

	type agg struct {
		first  dataset.MergedRecord
		count  int
		sum    float64
		priced int
	}
	stats := make(map[int64]*agg)
	var order []int64
	for _, r := range p.records {
		if r.CustomerID == customerID || bought[r.ProductID] {
			continue
		}
		a, ok := stats[r.ProductID]
		if !ok {
			a = &agg{first: r}
			stats[r.ProductID] = a
			order = append(order, r.ProductID)
		}
		a.count++
		if !math.IsNaN(r.Value) {
			a.sum += r.Value
			a.priced++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		ci, cj := stats[order[i]].count, stats[order[j]].count
		if ci != cj {
			return ci > cj
		}
		return order[i] < order[j]
	})
	if topN > 0 && len(order) > topN {
		order = order[:topN]
	}

	out := make([]ProductSuggestion, 0, len(order))
	for _, id := range order {
		a := stats[id]
		s := ProductSuggestion{
			ProductID:       id,
			Name:            orNA(a.first.ProductName.String),
			GrapeType:       orNA(a.first.GrapeType.String),
			Country:         orNA(a.first.Country.String),
			PopularityScore: a.count,
			Reason:          RecommendationReason,
		}
		if a.priced > 0 {
			s.AvgPrice = a.sum / float64(a.priced)
		}
		out = append(out, s)
	}
	return out
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
