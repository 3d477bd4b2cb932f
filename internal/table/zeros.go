package table

import "slices"

// ZeroFill describes synthesized all-zero rows for key combinations a
// processing group could not cover.
type ZeroFill struct {
	// Level is the index level whose missing values are being synthesized,
	// e.g. "region" or "country".
	Level string
	// Values are the missing values of Level.
	Values []string
	// Constants are extra levels set to a fixed value on every synthesized
	// row, e.g. method: "all_zero".
	Constants map[string]string
	// Derive computes additional level values from the synthesized Level
	// value, e.g. the region a missing country belongs to.
	Derive map[string]func(string) string
}

// AddZerosLike appends to t one all-zero row per missing value and per
// distinct template key found in like, so that downstream concatenation sees
// a row for every key combination. The template keys are like's unique
// projection onto t's levels minus the synthesized, constant and derived
// ones. Returns a new table; t is untouched.
func AddZerosLike(t, like *Table, fill ZeroFill) *Table {
	if len(fill.Values) == 0 {
		return t
	}

	synth := map[string]bool{fill.Level: true}
	for level := range fill.Constants {
		synth[level] = true
	}
	for level := range fill.Derive {
		synth[level] = true
	}
	proj := make([]string, 0, len(t.levels))
	for _, level := range t.levels {
		if !synth[level] {
			proj = append(proj, level)
		}
	}

	out := New(t.levels, t.years)
	for i := range t.keys {
		out.AddRow(t.keys[i], t.values[i])
	}
	zeros := make([]float64, len(t.years))
	sortedValues := slices.Clone(fill.Values)
	slices.Sort(sortedValues)
	for _, value := range sortedValues {
		for _, tmpl := range like.Unique(proj...) {
			key := make([]string, len(t.levels))
			for li, level := range t.levels {
				switch {
				case level == fill.Level:
					key[li] = value
				case fill.Constants[level] != "":
					key[li] = fill.Constants[level]
				case fill.Derive[level] != nil:
					key[li] = fill.Derive[level](value)
				default:
					key[li] = tmpl[slices.Index(proj, level)]
				}
			}
			out.AddRow(key, zeros)
		}
	}
	return out
}
