package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddZerosLike(t *testing.T) {
	t.Run("no missing values is a no-op", func(t *testing.T) {
		tbl := emissions()
		assert.Equal(t, tbl, AddZerosLike(tbl, tbl, ZeroFill{Level: "country"}))
	})

	t.Run("fills missing regions from a template", func(t *testing.T) {
		hist := emissions()
		agg := New([]string{"region", "gas", "sector", "unit"}, []int{2015, 2020})
		agg.AddRow([]string{"R1", "CO2", "Energy", "Mt CO2/yr"}, []float64{30, 30})

		out := AddZerosLike(agg, hist, ZeroFill{Level: "region", Values: []string{"R2"}})
		require.Equal(t, 3, out.Len())
		// One zero row per distinct (gas, sector, unit) in hist.
		assert.Equal(t, []string{"R2", "CO2", "Energy", "Mt CO2/yr"}, out.Key(1))
		assert.Equal(t, []float64{0, 0}, out.Row(1))
		assert.Equal(t, []string{"R2", "CH4", "Waste", "Mt CH4/yr"}, out.Key(2))
	})

	t.Run("constants and derived levels", func(t *testing.T) {
		down := New([]string{"region", "country", "gas", "method"}, []int{2020})
		down.AddRow([]string{"R1", "ind", "CO2", "gdp"}, []float64{5})

		like := New([]string{"region", "gas"}, []int{2020})
		like.AddRow([]string{"R1", "CO2"}, []float64{5})

		out := AddZerosLike(down, like, ZeroFill{
			Level:     "country",
			Values:    []string{"zwe"},
			Constants: map[string]string{"method": "all_zero"},
			Derive:    map[string]func(string) string{"region": func(string) string { return "R2" }},
		})
		require.Equal(t, 2, out.Len())
		assert.Equal(t, []string{"R2", "zwe", "CO2", "all_zero"}, out.Key(1))
		assert.Equal(t, []float64{0}, out.Row(1))
	})

	t.Run("missing values are emitted in sorted order", func(t *testing.T) {
		tmpl := New([]string{"country", "gas"}, []int{2020})
		like := New([]string{"gas"}, []int{2020}).AddRow([]string{"CO2"}, []float64{1})

		out := AddZerosLike(tmpl, like, ZeroFill{Level: "country", Values: []string{"zwe", "ind"}})
		require.Equal(t, 2, out.Len())
		assert.Equal(t, "ind", out.Value(0, "country"))
		assert.Equal(t, "zwe", out.Value(1, "country"))
	})
}
