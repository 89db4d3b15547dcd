package features

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/Harley062/projeto-IA-Adega/internal/dataset"
)

// FromRecords lays merged records out as a frame in dataset.MergedColumns
// order. Missing text becomes the empty string.
func FromRecords(recs []dataset.MergedRecord) *Frame {
	n := len(recs)
	f := NewFrame(n)

	ids := [3][]float64{make([]float64, n), make([]float64, n), make([]float64, n)}
	nums := map[string][]float64{}
	for _, c := range []string{dataset.ColValue, dataset.ColQuantity, dataset.ColAge, dataset.ColEngagement, dataset.ColVintage} {
		nums[c] = make([]float64, n)
	}
	texts := map[string][]string{}
	for _, c := range []string{dataset.ColName, dataset.ColCity, dataset.ColSubscriber, dataset.ColChurned,
		dataset.ColProductName, dataset.ColCountry, dataset.ColGrapeType} {
		texts[c] = make([]string, n)
	}
	dates := make([]time.Time, n)

	for i := range recs {
		r := &recs[i]
		ids[0][i] = float64(r.PurchaseID)
		ids[1][i] = float64(r.CustomerID)
		ids[2][i] = float64(r.ProductID)
		nums[dataset.ColValue][i] = r.Value
		nums[dataset.ColQuantity][i] = r.Quantity
		nums[dataset.ColAge][i] = r.Age
		nums[dataset.ColEngagement][i] = r.Engagement
		nums[dataset.ColVintage][i] = r.Vintage
		texts[dataset.ColName][i] = r.Name.String
		texts[dataset.ColCity][i] = r.City.String
		texts[dataset.ColSubscriber][i] = r.Subscriber.String
		texts[dataset.ColChurned][i] = r.Churned.String
		texts[dataset.ColProductName][i] = r.ProductName.String
		texts[dataset.ColCountry][i] = r.Country.String
		texts[dataset.ColGrapeType][i] = r.GrapeType.String
		dates[i] = r.PurchasedAt
	}

	for _, c := range dataset.MergedColumns {
		switch c {
		case dataset.ColPurchaseID:
			f.setNumeric(c, ids[0])
		case dataset.ColCustomerID:
			f.setNumeric(c, ids[1])
		case dataset.ColProductID:
			f.setNumeric(c, ids[2])
		case dataset.ColDate:
			f.setTime(c, dates)
		default:
			if v, ok := nums[c]; ok {
				f.setNumeric(c, v)
			} else {
				f.setText(c, texts[c])
			}
		}
	}
	return f
}

// CreateTemporal decomposes the purchase date into calendar parts and
// cyclic encodings of month and weekday.
func CreateTemporal(f *Frame) *Frame {
	out := f.clone()
	c := f.Column(dataset.ColDate)
	if c == nil || c.Kind != Timestamp {
		return out
	}

	n := f.Len()
	year, month, day := make([]float64, n), make([]float64, n), make([]float64, n)
	weekday, quarter, week := make([]float64, n), make([]float64, n), make([]float64, n)
	mSin, mCos := make([]float64, n), make([]float64, n)
	wSin, wCos := make([]float64, n), make([]float64, n)

	for i, t := range c.Time {
		if t.IsZero() {
			for _, col := range [][]float64{year, month, day, weekday, quarter, week, mSin, mCos, wSin, wCos} {
				col[i] = math.NaN()
			}
			continue
		}
		m := float64(t.Month())
		wd := float64((int(t.Weekday()) + 6) % 7)
		_, isoWeek := t.ISOWeek()

		year[i] = float64(t.Year())
		month[i] = m
		day[i] = float64(t.Day())
		weekday[i] = wd
		quarter[i] = float64((int(t.Month())-1)/3 + 1)
		week[i] = float64(isoWeek)
		mSin[i] = math.Sin(2 * math.Pi * m / 12)
		mCos[i] = math.Cos(2 * math.Pi * m / 12)
		wSin[i] = math.Sin(2 * math.Pi * wd / 7)
		wCos[i] = math.Cos(2 * math.Pi * wd / 7)
	}

	out.setNumeric(ColYear, year)
	out.setNumeric(ColMonth, month)
	out.setNumeric(ColDay, day)
	out.setNumeric(ColWeekday, weekday)
	out.setNumeric(ColQuarter, quarter)
	out.setNumeric(ColISOWeek, week)
	out.setNumeric(ColMonthSin, mSin)
	out.setNumeric(ColMonthCos, mCos)
	out.setNumeric(ColWeekdaySin, wSin)
	out.setNumeric(ColWeekdayCos, wCos)
	return out
}

// group holds the row indexes sharing one key, in first-seen order.
type group struct {
	keys []float64
	rows map[float64][]int
}

func groupBy(keys []float64) group {
	g := group{rows: make(map[float64][]int)}
	for i, k := range keys {
		if _, ok := g.rows[k]; !ok {
			g.keys = append(g.keys, k)
		}
		g.rows[k] = append(g.rows[k], i)
	}
	return g
}

// broadcast evaluates agg once per group and writes the result to every
// row of that group.
func (g group) broadcast(n int, agg func(rows []int) float64) []float64 {
	out := make([]float64, n)
	for _, k := range g.keys {
		rows := g.rows[k]
		v := agg(rows)
		for _, i := range rows {
			out[i] = v
		}
	}
	return out
}

func pick(col []float64, rows []int) []float64 {
	out := make([]float64, 0, len(rows))
	for _, i := range rows {
		if !math.IsNaN(col[i]) {
			out = append(out, col[i])
		}
	}
	return out
}

func sum(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}
	return stat.Mean(v, nil)
}

// sampleStd is the n-1 standard deviation, 0 for fewer than two values.
func sampleStd(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	return stat.StdDev(v, nil)
}

// CreateAggregated adds per-customer spend statistics, per-product
// statistics and RFM scores. Each statistic is computed per group and then
// joined back onto every row of the group. Recency is measured against the
// latest purchase date in the frame.
func CreateAggregated(f *Frame) *Frame {
	out := f.clone()
	n := f.Len()

	customers, err := f.Numeric(dataset.ColCustomerID)
	if err != nil {
		return out
	}
	products, _ := f.Numeric(dataset.ColProductID)
	values, _ := f.Numeric(dataset.ColValue)
	qty, _ := f.Numeric(dataset.ColQuantity)
	if values == nil {
		values = nan(n)
	}
	if qty == nil {
		qty = nan(n)
	}

	byCustomer := groupBy(customers)
	out.setNumeric(ColTotalSpent, byCustomer.broadcast(n, func(r []int) float64 { return sum(pick(values, r)) }))
	out.setNumeric(ColMeanTicket, byCustomer.broadcast(n, func(r []int) float64 { return mean(pick(values, r)) }))
	out.setNumeric(ColStdSpent, byCustomer.broadcast(n, func(r []int) float64 { return sampleStd(pick(values, r)) }))
	out.setNumeric(ColNumPurchases, byCustomer.broadcast(n, func(r []int) float64 { return float64(len(pick(values, r))) }))
	out.setNumeric(ColTotalItems, byCustomer.broadcast(n, func(r []int) float64 { return sum(pick(qty, r)) }))
	out.setNumeric(ColMeanItems, byCustomer.broadcast(n, func(r []int) float64 { return mean(pick(qty, r)) }))

	if products != nil {
		byProduct := groupBy(products)
		out.setNumeric(ColProductPrice, byProduct.broadcast(n, func(r []int) float64 { return mean(pick(values, r)) }))
		out.setNumeric(ColPopularity, byProduct.broadcast(n, func(r []int) float64 { return float64(len(r)) }))
		out.setNumeric(ColProductSold, byProduct.broadcast(n, func(r []int) float64 { return sum(pick(qty, r)) }))
	}

	if dc := f.Column(dataset.ColDate); dc != nil && dc.Kind == Timestamp {
		var ref time.Time
		for _, t := range dc.Time {
			if t.After(ref) {
				ref = t
			}
		}
		out.setNumeric(ColRecency, byCustomer.broadcast(n, func(r []int) float64 {
			var last time.Time
			for _, i := range r {
				if dc.Time[i].After(last) {
					last = dc.Time[i]
				}
			}
			if last.IsZero() {
				return math.NaN()
			}
			return math.Floor(ref.Sub(last).Hours() / 24)
		}))
	}
	out.setNumeric(ColFrequency, byCustomer.broadcast(n, func(r []int) float64 { return float64(len(r)) }))
	out.setNumeric(ColMonetary, byCustomer.broadcast(n, func(r []int) float64 { return sum(pick(values, r)) }))
	return out
}

// CreateInteractions adds ratio and product terms. Denominators carry +1
// so zero quantity or age never divides by zero.
func CreateInteractions(f *Frame) *Frame {
	out := f.clone()
	n := f.Len()

	values, _ := f.Numeric(dataset.ColValue)
	qty, _ := f.Numeric(dataset.ColQuantity)
	age, _ := f.Numeric(dataset.ColAge)
	eng, _ := f.Numeric(dataset.ColEngagement)

	if values != nil && qty != nil {
		v := make([]float64, n)
		for i := range v {
			v[i] = values[i] / (qty[i] + 1)
		}
		out.setNumeric(ColValuePerUnit, v)
	}
	if eng != nil && age != nil {
		per, times := make([]float64, n), make([]float64, n)
		for i := range per {
			per[i] = eng[i] / (age[i] + 1)
			times[i] = eng[i] * age[i]
		}
		out.setNumeric(ColEngPerAge, per)
		out.setNumeric(ColEngTimesAge, times)
	}
	if values != nil && age != nil {
		v := make([]float64, n)
		for i := range v {
			v[i] = values[i] / (age[i] + 1)
		}
		out.setNumeric(ColValuePerAge, v)
	}
	return out
}
