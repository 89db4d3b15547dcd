package dataset

// Clean trims text attributes and, when dropNA is set, removes every record
// with a missing attribute. Numeric and date columns are already typed by
// Merge (non-numeric text became NaN), so cleaning an already clean set
// drops nothing. It returns the kept records and the number dropped.
func Clean(recs []MergedRecord, dropNA bool) ([]MergedRecord, int) {
	out := make([]MergedRecord, 0, len(recs))
	for _, r := range recs {
		r.Name = trimText(r.Name)
		r.City = trimText(r.City)
		r.Subscriber = trimText(r.Subscriber)
		r.Churned = trimText(r.Churned)
		r.ProductName = trimText(r.ProductName)
		r.Country = trimText(r.Country)
		r.GrapeType = trimText(r.GrapeType)

		if dropNA && r.HasNull() {
			continue
		}
		out = append(out, r)
	}
	return out, len(recs) - len(out)
}
