// Package dataset loads the seller's customer, product and purchase exports,
// checks their integrity and joins them into one record per purchase.
package dataset

import (
	"database/sql"
	"math"
	"time"
)

// Raw column names, as found in the seller's files.
const (
	ColCustomerID = "cliente_id"
	ColName       = "nome"
	ColAge        = "idade"
	ColCity       = "cidade"
	ColEngagement = "pontuacao_engajamento"
	ColSubscriber = "assinante_clube"
	ColChurned    = "cancelou_assinatura"

	ColProductID   = "produto_id"
	ColProductName = "nome_produto"
	ColCountry     = "pais"
	ColGrapeType   = "tipo_uva"
	ColVintage     = "safra"

	ColPurchaseID = "compra_id"
	ColValue      = "valor"
	ColQuantity   = "quantidade"
	ColDate       = "data_compra"
)

// Expected columns per source file.
var (
	CustomerColumns = []string{ColCustomerID, ColName, ColAge, ColCity, ColEngagement, ColSubscriber, ColChurned}
	ProductColumns  = []string{ColProductID, ColProductName, ColCountry, ColGrapeType, ColVintage}
	PurchaseColumns = []string{ColPurchaseID, ColCustomerID, ColProductID, ColValue, ColQuantity, ColDate}
)

// MergedColumns is the column order of a merged record: purchase columns,
// then customer attributes, then product attributes.
var MergedColumns = []string{
	ColPurchaseID, ColCustomerID, ColProductID, ColValue, ColQuantity, ColDate,
	ColName, ColAge, ColCity, ColEngagement, ColSubscriber, ColChurned,
	ColProductName, ColCountry, ColVintage, ColGrapeType,
}

// Table is a raw source table with every cell kept as nullable text.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]sql.NullString
}

// Index returns the position of column, or -1.
func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Value returns the cell at row for column. Unknown columns read as null.
func (t *Table) Value(row int, column string) sql.NullString {
	i := t.Index(column)
	if i < 0 || row < 0 || row >= len(t.Rows) {
		return sql.NullString{}
	}
	return t.Rows[row][i]
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Tables groups the three source tables.
type Tables struct {
	Customers *Table
	Products  *Table
	Purchases *Table
}

// MergedRecord is one purchase enriched with its customer and product.
// Numeric attributes are NaN and text attributes invalid when the value is
// missing, unparseable or the foreign key did not resolve.
type MergedRecord struct {
	PurchaseID  int64
	CustomerID  int64
	ProductID   int64
	Value       float64
	Quantity    float64
	PurchasedAt time.Time

	Name       sql.NullString
	Age        float64
	City       sql.NullString
	Engagement float64
	Subscriber sql.NullString
	Churned    sql.NullString

	ProductName sql.NullString
	Country     sql.NullString
	GrapeType   sql.NullString
	Vintage     float64
}

// HasNull reports whether any attribute of the record is missing.
func (r *MergedRecord) HasNull() bool {
	for _, f := range []float64{r.Value, r.Quantity, r.Age, r.Engagement, r.Vintage} {
		if math.IsNaN(f) {
			return true
		}
	}
	for _, s := range []sql.NullString{r.Name, r.City, r.Subscriber, r.Churned, r.ProductName, r.Country, r.GrapeType} {
		if !s.Valid {
			return true
		}
	}
	return r.PurchasedAt.IsZero()
}

// NullCounts returns the number of missing values per merged column.
func NullCounts(recs []MergedRecord) map[string]int {
	counts := make(map[string]int, len(MergedColumns))
	for _, c := range MergedColumns {
		counts[c] = 0
	}
	for i := range recs {
		r := &recs[i]
		numeric := map[string]float64{
			ColValue: r.Value, ColQuantity: r.Quantity, ColAge: r.Age,
			ColEngagement: r.Engagement, ColVintage: r.Vintage,
		}
		for col, v := range numeric {
			if math.IsNaN(v) {
				counts[col]++
			}
		}
		text := map[string]sql.NullString{
			ColName: r.Name, ColCity: r.City, ColSubscriber: r.Subscriber, ColChurned: r.Churned,
			ColProductName: r.ProductName, ColCountry: r.Country, ColGrapeType: r.GrapeType,
		}
		for col, v := range text {
			if !v.Valid {
				counts[col]++
			}
		}
		if r.PurchasedAt.IsZero() {
			counts[ColDate]++
		}
	}
	return counts
}

// CustomerIDs returns the parsed identities of every registered customer.
func (t *Tables) CustomerIDs() []int64 {
	if t == nil || t.Customers == nil {
		return nil
	}
	ids := make([]int64, 0, t.Customers.Len())
	for i := range t.Customers.Rows {
		if v := t.Customers.Value(i, ColCustomerID); v.Valid {
			ids = append(ids, parseID(v))
		}
	}
	return ids
}
