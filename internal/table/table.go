// Package table implements the labeled emissions table shared by every
// pipeline stage: rows identified by a tuple of categorical levels (model,
// scenario, region, country, gas, sector, unit, method) plus a time series
// of numeric columns keyed by year.
package table

import (
	"fmt"
	"slices"
	"strings"
)

// keySep joins level values into a single lookup key. It must not occur in
// any level value.
const keySep = "\x1f"

// Table is an immutable-by-convention labeled table. All operations return a
// new Table and leave the receiver untouched.
type Table struct {
	levels []string
	years  []int
	keys   [][]string
	values [][]float64
}

// New returns an empty table with the given index levels and year columns.
func New(levels []string, years []int) *Table {
	return &Table{
		levels: slices.Clone(levels),
		years:  slices.Clone(years),
	}
}

// AddRow appends a row. The key must have one value per level and values one
// entry per year; a mismatch is a programmer error and panics.
func (t *Table) AddRow(key []string, values []float64) *Table {
	if len(key) != len(t.levels) {
		panic(fmt.Sprintf("table: row key has %d values, table has %d levels", len(key), len(t.levels)))
	}
	if len(values) != len(t.years) {
		panic(fmt.Sprintf("table: row has %d values, table has %d years", len(values), len(t.years)))
	}
	t.keys = append(t.keys, slices.Clone(key))
	t.values = append(t.values, slices.Clone(values))
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// IsEmpty reports whether the table is nil or has no rows.
func (t *Table) IsEmpty() bool { return t.Len() == 0 }

// Levels returns the ordered index level names.
func (t *Table) Levels() []string { return slices.Clone(t.levels) }

// Years returns the ordered year columns.
func (t *Table) Years() []int { return slices.Clone(t.years) }

// HasLevel reports whether the table carries the named index level.
func (t *Table) HasLevel(level string) bool {
	_, ok := t.levelIndex(level)
	return ok
}

// Value returns the key value of row i at the named level.
func (t *Table) Value(i int, level string) string {
	li, ok := t.levelIndex(level)
	if !ok {
		panic(fmt.Sprintf("table: unknown level %q", level))
	}
	return t.keys[i][li]
}

// Key returns a copy of the full key of row i.
func (t *Table) Key(i int) []string { return slices.Clone(t.keys[i]) }

// Row returns a copy of the numeric payload of row i.
func (t *Table) Row(i int) []float64 { return slices.Clone(t.values[i]) }

// Column returns the numeric column for the given year. The second return is
// false when the year is not present.
func (t *Table) Column(year int) ([]float64, bool) {
	yi := slices.Index(t.years, year)
	if yi < 0 {
		return nil, false
	}
	col := make([]float64, t.Len())
	for i, row := range t.values {
		col[i] = row[yi]
	}
	return col, true
}

func (t *Table) levelIndex(level string) (int, bool) {
	i := slices.Index(t.levels, level)
	return i, i >= 0
}

// empty returns a rowless table sharing the receiver's shape.
func (t *Table) empty() *Table { return New(t.levels, t.years) }

// project maps row i onto the given levels, which must all exist.
func (t *Table) project(i int, levels []string) []string {
	out := make([]string, len(levels))
	for j, level := range levels {
		out[j] = t.Value(i, level)
	}
	return out
}

func joinKey(key []string) string { return strings.Join(key, keySep) }
