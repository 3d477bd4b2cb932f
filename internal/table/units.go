package table

import "regexp"

// perYear matches mass-per-year unit strings like "Mt CO2/yr". The rewrite
// to "kg CO2/s" is purely textual; values are left untouched and anything
// not matching the pattern passes through unchanged.
var perYear = regexp.MustCompile(`(?:Gt|Mt|kt|t|kg) (.*)/yr`)

// PerSecondUnit rewrites a mass-per-year unit string into the corresponding
// kg-per-second form expected by the gridder.
func PerSecondUnit(unit string) string {
	return perYear.ReplaceAllString(unit, "kg $1/s")
}

// ConvertUnit rewrites the "unit" level of every row through f.
func (t *Table) ConvertUnit(f func(string) string) *Table {
	li, ok := t.levelIndex("unit")
	if !ok {
		return t
	}
	out := t.empty()
	for i := range t.keys {
		key := t.Key(i)
		key[li] = f(key[li])
		out.AddRow(key, t.values[i])
	}
	return out
}
