package features

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/Harley062/projeto-IA-Adega/internal/dataset"
)

// Defaults for the product side of a scored customer, who has no purchase
// on record yet.
const (
	DefaultPurchaseID  = 1
	DefaultProductID   = 1
	DefaultProductName = "Vinho Padrão"
	DefaultVintage     = 2020
)

// ErrNoRecords is returned when fitting on an empty record set.
var ErrNoRecords = errors.New("no records to engineer features from")

// Options toggles derivation groups.
type Options struct {
	Temporal     bool
	Aggregated   bool
	Interactions bool
}

// DefaultOptions enables every derivation group.
func DefaultOptions() Options {
	return Options{Temporal: true, Aggregated: true, Interactions: true}
}

// Engineer runs the derivation pipeline in fit or transform mode.
type Engineer struct {
	opts   Options
	logger *slog.Logger
}

// NewEngineer creates an engineer.
func NewEngineer(opts Options, logger *slog.Logger) *Engineer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engineer{opts: opts, logger: logger}
}

// TrainingSet is the fitted feature matrix with its labels.
type TrainingSet struct {
	X      [][]float64
	Y      []int
	Schema *Schema
}

// Column returns one feature column of X by name.
func (ts *TrainingSet) Column(name string) []float64 {
	j := -1
	for i, c := range ts.Schema.Columns {
		if c == name {
			j = i
			break
		}
	}
	if j < 0 {
		return nil
	}
	out := make([]float64, len(ts.X))
	for i, row := range ts.X {
		out[i] = row[j]
	}
	return out
}

// derive applies the enabled derivation groups in order.
func (e *Engineer) derive(f *Frame) *Frame {
	if e.opts.Temporal {
		f = CreateTemporal(f)
	}
	if e.opts.Aggregated {
		f = CreateAggregated(f)
	}
	if e.opts.Interactions {
		f = CreateInteractions(f)
	}
	return f
}

// Fit derives features from the merged records, fits a new schema and
// returns the training matrix with its labels.
func (e *Engineer) Fit(recs []dataset.MergedRecord) (*TrainingSet, error) {
	if len(recs) == 0 {
		return nil, ErrNoRecords
	}

	e.logger.Info("engineering features", "rows", len(recs))
	f := e.derive(FromRecords(recs))

	labels := f.Column(LabelColumn)
	if labels == nil {
		return nil, fmt.Errorf("label column %s not found", LabelColumn)
	}
	y := make([]int, f.Len())
	for i, v := range labels.Str {
		if IsTruthy(v) {
			y[i] = 1
		}
	}

	f = f.Drop(LabelColumn, dataset.ColDate)
	schema := NewSchema()
	f = schema.EncodeCategorical(f)
	schema.fitFill(f)

	x := f.Reindex(schema.Columns)
	schema.fillMissing(x)

	e.logger.Info("features engineered", "rows", len(x), "columns", len(schema.Columns))
	return &TrainingSet{X: x, Y: y, Schema: schema}, nil
}

// Observation is one submitted customer record to be scored.
type Observation struct {
	CustomerID  int64
	Name        string
	Age         float64
	City        string
	Engagement  float64
	Subscriber  string
	Value       float64
	Quantity    float64
	Country     string
	GrapeType   string
	PurchaseID  int64
	ProductID   int64
	ProductName string
	Vintage     float64
	PurchasedAt time.Time
}

func (o Observation) record(now time.Time) dataset.MergedRecord {
	if o.PurchaseID == 0 {
		o.PurchaseID = DefaultPurchaseID
	}
	if o.ProductID == 0 {
		o.ProductID = DefaultProductID
	}
	if o.ProductName == "" {
		o.ProductName = DefaultProductName
	}
	if o.Vintage == 0 {
		o.Vintage = DefaultVintage
	}
	if o.PurchasedAt.IsZero() {
		o.PurchasedAt = now
	}
	return dataset.MergedRecord{
		PurchaseID:  o.PurchaseID,
		CustomerID:  o.CustomerID,
		ProductID:   o.ProductID,
		Value:       o.Value,
		Quantity:    o.Quantity,
		PurchasedAt: o.PurchasedAt,
		Name:        text(o.Name),
		Age:         o.Age,
		City:        text(o.City),
		Engagement:  o.Engagement,
		Subscriber:  text(o.Subscriber),
		ProductName: text(o.ProductName),
		Country:     text(o.Country),
		GrapeType:   text(o.GrapeType),
		Vintage:     o.Vintage,
	}
}

// Transform builds the feature vector of one observation with a fitted
// schema. The observation runs through the same derivation functions as
// training, so customer and product aggregates describe the single
// submitted purchase: totals and means equal its value and quantity,
// counts are 1, the spend deviation is 0 and recency is 0.
// Categories unseen at fit time encode to UnknownCode.
func (e *Engineer) Transform(schema *Schema, obs Observation, now time.Time) ([]float64, error) {
	if schema == nil {
		return nil, errors.New("feature schema not fitted")
	}

	f := e.derive(FromRecords([]dataset.MergedRecord{obs.record(now)}))
	f = f.Drop(LabelColumn, dataset.ColDate)
	f = schema.encode(f, false, e.logger)

	x := f.Reindex(schema.Columns)
	schema.fillMissing(x)
	for _, v := range x[0] {
		if math.IsInf(v, 0) {
			return nil, fmt.Errorf("feature vector contains an infinite value")
		}
	}
	return x[0], nil
}

// IsTruthy reports whether a yes/no flag is set. Sim, Yes, true and 1 are
// accepted, case-insensitively.
func IsTruthy(v string) bool {
	switch strings.ToLower(Normalize(v)) {
	case "sim", "yes", "y", "s", "true", "1":
		return true
	}
	return false
}

func text(v string) sql.NullString {
	v = strings.TrimSpace(v)
	return sql.NullString{String: v, Valid: v != ""}
}
