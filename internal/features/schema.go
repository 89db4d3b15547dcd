package features

import (
	"log/slog"
	"math"
)

// Schema is the fitted state shared between training and scoring: the
// feature layout, one encoder per categorical column and the per-column
// fill values used for missing numbers.
type Schema struct {
	Columns  []string                 `yaml:"columns"`
	Encoders map[string]*LabelEncoder `yaml:"encoders"`
	Fill     map[string]float64       `yaml:"fill"`
}

// NewSchema returns an unfitted schema with the standard layout.
func NewSchema() *Schema {
	return &Schema{
		Columns:  append([]string(nil), ExpectedColumns...),
		Encoders: make(map[string]*LabelEncoder),
		Fill:     make(map[string]float64),
	}
}

// EncodeCategorical replaces each categorical text column with its codes.
// A column's encoder is fit the first time the column is seen and reused on
// every later call.
func (s *Schema) EncodeCategorical(f *Frame) *Frame {
	return s.encode(f, true, nil)
}

// encode converts categorical columns. When fit is false no encoder is
// created and columns without one encode to UnknownCode.
func (s *Schema) encode(f *Frame, fit bool, logger *slog.Logger) *Frame {
	out := f.clone()
	for _, name := range CategoricalColumns {
		c := f.Column(name)
		if c == nil || c.Kind != Text {
			continue
		}
		enc, ok := s.Encoders[name]
		if !ok && fit {
			enc = FitLabelEncoder(c.Str)
			s.Encoders[name] = enc
		}

		codes := make([]float64, len(c.Str))
		for i, v := range c.Str {
			if enc == nil {
				codes[i] = UnknownCode
				continue
			}
			code, seen := enc.Encode(v)
			if !seen && logger != nil {
				logger.Warn("unknown category, using fallback code", "column", name, "value", v)
			}
			codes[i] = float64(code)
		}
		out.setNumeric(name, codes)
	}
	return out
}

// fitFill records the mean of every expected numeric column.
func (s *Schema) fitFill(f *Frame) {
	for _, name := range s.Columns {
		c := f.Column(name)
		if c == nil || c.Kind != Numeric {
			continue
		}
		var total float64
		var n int
		for _, v := range c.Num {
			if !math.IsNaN(v) {
				total += v
				n++
			}
		}
		if n > 0 {
			s.Fill[name] = total / float64(n)
		}
	}
}

// fillMissing replaces NaN cells of a reindexed matrix with the fill values.
func (s *Schema) fillMissing(rows [][]float64) {
	for _, row := range rows {
		for j, v := range row {
			if math.IsNaN(v) {
				row[j] = s.Fill[s.Columns[j]]
			}
		}
	}
}
