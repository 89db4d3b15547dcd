package dataset

import (
	"database/sql"
	"math"
)

// Merge joins purchases with customers and then with products, both as left
// joins. Every purchase yields exactly one record, in purchase order.
func Merge(t *Tables) []MergedRecord {
	customers := rowIndex(t.Customers, ColCustomerID)
	products := rowIndex(t.Products, ColProductID)

	out := make([]MergedRecord, 0, t.Purchases.Len())
	for i := range t.Purchases.Rows {
		p := t.Purchases
		rec := MergedRecord{
			PurchaseID:  parseID(p.Value(i, ColPurchaseID)),
			CustomerID:  parseID(p.Value(i, ColCustomerID)),
			ProductID:   parseID(p.Value(i, ColProductID)),
			Value:       ParseNumber(p.Value(i, ColValue)),
			Quantity:    ParseNumber(p.Value(i, ColQuantity)),
			PurchasedAt: ParseDate(p.Value(i, ColDate)),
			Age:         math.NaN(),
			Engagement:  math.NaN(),
			Vintage:     math.NaN(),
		}

		if row, ok := lookupRow(customers, p.Value(i, ColCustomerID)); ok {
			c := t.Customers
			rec.Name = c.Value(row, ColName)
			rec.Age = ParseNumber(c.Value(row, ColAge))
			rec.City = c.Value(row, ColCity)
			rec.Engagement = ParseNumber(c.Value(row, ColEngagement))
			rec.Subscriber = c.Value(row, ColSubscriber)
			rec.Churned = c.Value(row, ColChurned)
		}

		if row, ok := lookupRow(products, p.Value(i, ColProductID)); ok {
			pr := t.Products
			rec.ProductName = pr.Value(row, ColProductName)
			rec.Country = pr.Value(row, ColCountry)
			rec.GrapeType = pr.Value(row, ColGrapeType)
			rec.Vintage = ParseNumber(pr.Value(row, ColVintage))
		}

		out = append(out, rec)
	}
	return out
}

func rowIndex(t *Table, column string) map[int64]int {
	idx := make(map[int64]int, t.Len())
	if t == nil {
		return idx
	}
	for i := range t.Rows {
		id, ok := lookupID(t.Value(i, column))
		if !ok {
			continue
		}
		if _, dup := idx[id]; !dup {
			idx[id] = i
		}
	}
	return idx
}

func lookupRow(idx map[int64]int, v sql.NullString) (int, bool) {
	id, ok := lookupID(v)
	if !ok {
		return 0, false
	}
	row, found := idx[id]
	return row, found
}
