package table

import "slices"

// Index is an ordered set of row keys over a subset of index levels,
// typically (gas, sector) variable keys. Insertion order is preserved and
// duplicates are ignored.
type Index struct {
	levels []string
	keys   [][]string
	seen   map[string]int
}

// NewIndex returns an empty index over the given levels.
func NewIndex(levels ...string) *Index {
	return &Index{
		levels: slices.Clone(levels),
		seen:   make(map[string]int),
	}
}

// Add inserts a key. The key must have one value per index level.
func (ix *Index) Add(key ...string) *Index {
	if len(key) != len(ix.levels) {
		panic("table: index key does not match index levels")
	}
	k := joinKey(key)
	if _, ok := ix.seen[k]; ok {
		return ix
	}
	ix.seen[k] = len(ix.keys)
	ix.keys = append(ix.keys, slices.Clone(key))
	return ix
}

// Levels returns the index level names.
func (ix *Index) Levels() []string { return slices.Clone(ix.levels) }

// Len returns the number of distinct keys.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.keys)
}

// IsEmpty reports whether the index is nil or holds no keys.
func (ix *Index) IsEmpty() bool { return ix.Len() == 0 }

// Keys returns the ordered keys.
func (ix *Index) Keys() [][]string {
	out := make([][]string, len(ix.keys))
	for i, k := range ix.keys {
		out[i] = slices.Clone(k)
	}
	return out
}

// Contains reports whether the exact key is present.
func (ix *Index) Contains(key []string) bool {
	_, ok := ix.seen[joinKey(key)]
	return ok
}

// How selects semijoin semantics.
type How int

const (
	// Inner keeps table rows whose projected key appears in the index.
	Inner How = iota
	// Right selects the rows belonging to the index; rows for index keys
	// absent from the table are dropped rather than NaN-filled, so the
	// surviving row set matches Inner. Callers rely on zero-fill downstream
	// for the coverage bookkeeping.
	Right
)

// Semijoin restricts the table to rows whose projection onto the index
// levels is a member of the index. All index levels must exist on the table.
func (t *Table) Semijoin(ix *Index, how How) *Table {
	out := t.empty()
	if ix.IsEmpty() {
		return out
	}
	for i := range t.keys {
		if ix.Contains(t.project(i, ix.levels)) {
			out.AddRow(t.keys[i], t.values[i])
		}
	}
	return out
}

// UniqueIndex returns the ordered distinct projection of the table onto the
// given levels as an Index.
func (t *Table) UniqueIndex(levels ...string) *Index {
	ix := NewIndex(levels...)
	for i := range t.keys {
		ix.Add(t.project(i, levels)...)
	}
	return ix
}

// Unique returns the ordered distinct projection of the table onto the given
// levels.
func (t *Table) Unique(levels ...string) [][]string {
	return t.UniqueIndex(levels...).Keys()
}
