package table

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Filter keeps the rows whose value at the given level is one of values.
func (t *Table) Filter(level string, values ...string) *Table {
	out := t.empty()
	for i := range t.keys {
		if slices.Contains(values, t.Value(i, level)) {
			out.AddRow(t.keys[i], t.values[i])
		}
	}
	return out
}

// Exclude drops the rows whose value at the given level is one of values.
func (t *Table) Exclude(level string, values ...string) *Table {
	out := t.empty()
	for i := range t.keys {
		if !slices.Contains(values, t.Value(i, level)) {
			out.AddRow(t.keys[i], t.values[i])
		}
	}
	return out
}

// Rename relabels an index level, keeping row order and payloads.
func (t *Table) Rename(level, to string) *Table {
	li, ok := t.levelIndex(level)
	if !ok {
		panic(fmt.Sprintf("table: unknown level %q", level))
	}
	out := &Table{
		levels: slices.Clone(t.levels),
		years:  slices.Clone(t.years),
		keys:   t.keys,
		values: t.values,
	}
	out.levels[li] = to
	return out
}

// Drop removes index levels. Rows are kept as-is, so dropping a
// distinguishing level may leave duplicate keys; callers that need
// aggregation use GroupSum instead.
func (t *Table) Drop(levels ...string) *Table {
	keep := make([]string, 0, len(t.levels))
	for _, level := range t.levels {
		if !slices.Contains(levels, level) {
			keep = append(keep, level)
		}
	}
	out := New(keep, t.years)
	for i := range t.keys {
		out.AddRow(t.project(i, keep), t.values[i])
	}
	return out
}

// WithConst sets the given level to a constant value on every row, adding
// the level when it does not exist yet.
func (t *Table) WithConst(level, value string) *Table {
	if li, ok := t.levelIndex(level); ok {
		out := t.empty()
		for i := range t.keys {
			key := slices.Clone(t.keys[i])
			key[li] = value
			out.AddRow(key, t.values[i])
		}
		return out
	}
	out := New(append(t.Levels(), level), t.years)
	for i := range t.keys {
		out.AddRow(append(t.Key(i), value), t.values[i])
	}
	return out
}

// WithCopied adds a new level whose per-row value is copied from an existing
// one, e.g. deriving a country label from the region label.
func (t *Table) WithCopied(level, from string) *Table {
	out := New(append(t.Levels(), level), t.years)
	for i := range t.keys {
		out.AddRow(append(t.Key(i), t.Value(i, from)), t.values[i])
	}
	return out
}

// GroupSum projects the table onto the given levels and sums the payloads of
// rows that collapse onto the same key. Group order follows first appearance.
func (t *Table) GroupSum(levels ...string) *Table {
	out := New(levels, t.years)
	pos := make(map[string]int)
	for i := range t.keys {
		key := t.project(i, levels)
		k := joinKey(key)
		if j, ok := pos[k]; ok {
			floats.Add(out.values[j], t.values[i])
			continue
		}
		pos[k] = out.Len()
		out.AddRow(key, t.values[i])
	}
	return out
}

// DropYear removes a year column, typically the base year before gridding.
func (t *Table) DropYear(year int) *Table {
	yi := slices.Index(t.years, year)
	if yi < 0 {
		return t
	}
	years := slices.Delete(t.Years(), yi, yi+1)
	out := New(t.levels, years)
	for i := range t.keys {
		out.AddRow(t.keys[i], slices.Delete(t.Row(i), yi, yi+1))
	}
	return out
}

// Concat unions tables by rows, skipping nil and empty inputs. All non-empty
// inputs must share the first table's year columns and level set; levels may
// be ordered differently and are reordered to match. Returns nil when every
// input is empty.
func Concat(tables ...*Table) (*Table, error) {
	var out *Table
	for _, t := range tables {
		if t.IsEmpty() {
			continue
		}
		if out == nil {
			out = New(t.levels, t.years)
		} else {
			if !slices.Equal(t.years, out.years) {
				return nil, fmt.Errorf("concat: year columns differ: %v vs %v", t.years, out.years)
			}
			if len(t.levels) != len(out.levels) {
				return nil, fmt.Errorf("concat: level sets differ: %v vs %v", t.levels, out.levels)
			}
			for _, level := range out.levels {
				if !slices.Contains(t.levels, level) {
					return nil, fmt.Errorf("concat: level %q missing from input with levels %v", level, t.levels)
				}
			}
		}
		for i := range t.keys {
			out.AddRow(t.project(i, out.levels), t.values[i])
		}
	}
	return out, nil
}

// LeftJoinYears joins the right table's year columns onto the left table's
// rows, matching on the levels the two tables share. Right rows without a
// left counterpart are dropped; left rows without a right counterpart get
// zeros for the right's years, indistinguishable from measured zero values.
// The right's years come first in the result and must not overlap the
// left's.
func LeftJoinYears(left, right *Table) (*Table, error) {
	shared := make([]string, 0, len(right.levels))
	for _, level := range right.levels {
		if slices.Contains(left.levels, level) {
			shared = append(shared, level)
		}
	}
	if len(shared) == 0 {
		return nil, fmt.Errorf("join: tables share no levels: %v vs %v", left.levels, right.levels)
	}
	for _, y := range right.years {
		if slices.Contains(left.years, y) {
			return nil, fmt.Errorf("join: year %d present on both sides", y)
		}
	}

	lookup := make(map[string][]float64, right.Len())
	for i := range right.keys {
		lookup[joinKey(right.project(i, shared))] = right.values[i]
	}

	out := New(left.levels, append(right.Years(), left.years...))
	zero := make([]float64, len(right.years))
	for i := range left.keys {
		hist, ok := lookup[joinKey(left.project(i, shared))]
		if !ok {
			hist = zero
		}
		out.AddRow(left.keys[i], append(slices.Clone(hist), left.values[i]...))
	}
	return out, nil
}
