// Package features derives the engineered feature vector from merged
// purchase records, in fit mode for training and in transform mode for
// scoring a single submitted customer.
package features

import (
	"fmt"
	"math"
	"time"
)

// Kind is the value type of a frame column.
type Kind int

// Column kinds.
const (
	Numeric Kind = iota
	Text
	Timestamp
)

// Column is one named column of a Frame. Only the slice matching Kind is set.
type Column struct {
	Name string
	Kind Kind
	Num  []float64
	Str  []string
	Time []time.Time
}

// Frame is a small ordered columnar table. Frames are treated as immutable:
// derivation functions return a new frame sharing the unchanged columns.
type Frame struct {
	n     int
	cols  []*Column
	index map[string]int
}

// NewFrame creates an empty frame of n rows.
func NewFrame(n int) *Frame {
	return &Frame{n: n, index: make(map[string]int)}
}

// Len returns the number of rows.
func (f *Frame) Len() int { return f.n }

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the frame holds a column.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Column returns the named column, or nil.
func (f *Frame) Column(name string) *Column {
	if i, ok := f.index[name]; ok {
		return f.cols[i]
	}
	return nil
}

// Numeric returns the values of a numeric column.
func (f *Frame) Numeric(name string) ([]float64, error) {
	c := f.Column(name)
	if c == nil {
		return nil, fmt.Errorf("column %s not found", name)
	}
	if c.Kind != Numeric {
		return nil, fmt.Errorf("column %s is not numeric", name)
	}
	return c.Num, nil
}

// clone returns a frame sharing all columns of f.
func (f *Frame) clone() *Frame {
	out := &Frame{n: f.n, cols: make([]*Column, len(f.cols)), index: make(map[string]int, len(f.cols))}
	copy(out.cols, f.cols)
	for k, v := range f.index {
		out.index[k] = v
	}
	return out
}

// set appends a column, or replaces a column of the same name in place.
func (f *Frame) set(c *Column) {
	if i, ok := f.index[c.Name]; ok {
		f.cols[i] = c
		return
	}
	f.index[c.Name] = len(f.cols)
	f.cols = append(f.cols, c)
}

func (f *Frame) setNumeric(name string, v []float64) {
	f.set(&Column{Name: name, Kind: Numeric, Num: v})
}

func (f *Frame) setText(name string, v []string) {
	f.set(&Column{Name: name, Kind: Text, Str: v})
}

func (f *Frame) setTime(name string, v []time.Time) {
	f.set(&Column{Name: name, Kind: Timestamp, Time: v})
}

// Drop returns a frame without the named columns.
func (f *Frame) Drop(names ...string) *Frame {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	out := NewFrame(f.n)
	for _, c := range f.cols {
		if !drop[c.Name] {
			out.set(c)
		}
	}
	return out
}

// Reindex returns the frame as a row-major matrix with exactly the given
// columns. Missing columns read as 0, as do non-numeric ones.
func (f *Frame) Reindex(columns []string) [][]float64 {
	rows := make([][]float64, f.n)
	for i := range rows {
		rows[i] = make([]float64, len(columns))
	}
	for j, name := range columns {
		c := f.Column(name)
		if c == nil || c.Kind != Numeric {
			continue
		}
		for i := 0; i < f.n; i++ {
			rows[i][j] = c.Num[i]
		}
	}
	return rows
}

func filled(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func nan(n int) []float64 { return filled(n, math.NaN()) }
