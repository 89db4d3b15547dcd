package dataset

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// ValidationReport summarises non-fatal referential problems.
type ValidationReport struct {
	DanglingCustomers int
	DanglingProducts  int
}

// Validate fails with an *IntegrityError when an identity column holds
// nulls, non-integer values or duplicates. Purchases pointing at unknown
// customers or products are only logged.
func Validate(t *Tables, logger *slog.Logger) (*ValidationReport, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Info("validating data integrity")

	var problems []string
	problems = append(problems, checkIdentity(t.Customers, ColCustomerID)...)
	problems = append(problems, checkIdentity(t.Products, ColProductID)...)
	problems = append(problems, checkIdentity(t.Purchases, ColPurchaseID)...)
	if len(problems) > 0 {
		return nil, &IntegrityError{Problems: problems}
	}

	customers := keySet(t.Customers, ColCustomerID)
	products := keySet(t.Products, ColProductID)

	report := &ValidationReport{}
	for i := range t.Purchases.Rows {
		if !hasKey(customers, t.Purchases.Value(i, ColCustomerID)) {
			report.DanglingCustomers++
		}
		if !hasKey(products, t.Purchases.Value(i, ColProductID)) {
			report.DanglingProducts++
		}
	}

	if report.DanglingCustomers > 0 {
		logger.Warn("purchases reference unknown customers", "count", report.DanglingCustomers)
	}
	if report.DanglingProducts > 0 {
		logger.Warn("purchases reference unknown products", "count", report.DanglingProducts)
	}

	logger.Info("validation complete")
	return report, nil
}

func checkIdentity(t *Table, column string) []string {
	if t == nil {
		return []string{fmt.Sprintf("%s: table not loaded", column)}
	}

	var nulls, invalid int
	seen := make(map[int64]bool, len(t.Rows))
	var dups []string
	for i := range t.Rows {
		v := t.Value(i, column)
		if !v.Valid || strings.TrimSpace(v.String) == "" {
			nulls++
			continue
		}
		id, ok := lookupID(v)
		if !ok {
			invalid++
			continue
		}
		if seen[id] {
			dups = append(dups, key(v.String))
			continue
		}
		seen[id] = true
	}

	var problems []string
	if nulls > 0 {
		problems = append(problems, fmt.Sprintf("%s.%s: %d null value(s)", t.Name, column, nulls))
	}
	if invalid > 0 {
		problems = append(problems, fmt.Sprintf("%s.%s: %d non-integer value(s)", t.Name, column, invalid))
	}
	if len(dups) > 0 {
		problems = append(problems, fmt.Sprintf("%s.%s: duplicate value(s) %s", t.Name, column, strings.Join(dups, ", ")))
	}
	return problems
}

func keySet(t *Table, column string) map[int64]bool {
	set := make(map[int64]bool, t.Len())
	if t == nil {
		return set
	}
	for i := range t.Rows {
		if id, ok := lookupID(t.Value(i, column)); ok {
			set[id] = true
		}
	}
	return set
}

func hasKey(set map[int64]bool, v sql.NullString) bool {
	id, ok := lookupID(v)
	return ok && set[id]
}

func key(s string) string {
	return strings.TrimSpace(s)
}
