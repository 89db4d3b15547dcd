package dataset

import (
	"database/sql"
	"math"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
	"02/01/2006 15:04:05",
}

// ParseNumber parses a numeric cell. Null or non-numeric text yields NaN.
// A lone decimal comma ("12,50") is accepted.
func ParseNumber(v sql.NullString) float64 {
	if !v.Valid {
		return math.NaN()
	}
	s := strings.TrimSpace(v.String)
	if s == "" {
		return math.NaN()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64); err == nil {
			return f
		}
	}
	return math.NaN()
}

// ParseDate parses a purchase timestamp. Unparseable values yield the zero time.
func ParseDate(v sql.NullString) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	s := strings.TrimSpace(v.String)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func parseID(v sql.NullString) int64 {
	id, _ := lookupID(v)
	return id
}

// lookupID parses an identity cell so that "01" and "1" name the same key.
func lookupID(v sql.NullString) (int64, bool) {
	if !v.Valid {
		return 0, false
	}
	id, err := strconv.ParseInt(key(v.String), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func trimText(v sql.NullString) sql.NullString {
	if !v.Valid {
		return v
	}
	s := strings.TrimSpace(v.String)
	return sql.NullString{String: s, Valid: s != ""}
}
