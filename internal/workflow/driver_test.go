package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/emigrid/internal/table"
)

func TestNewValidation(t *testing.T) {
	_, err := New(Params{})
	assert.ErrorContains(t, err, "model table is required")

	_, err = New(Params{Model: testModel()})
	assert.ErrorContains(t, err, "history table is required")

	_, err = New(Params{Model: testModel(), Hist: testHist(), RegionMapping: testMapping(), VariableDefs: testDefs()})
	assert.ErrorContains(t, err, "settings are required")
}

func TestPlanningDriverRefusesBackendMethods(t *testing.T) {
	// A driver without backends can still plan partitions, but the
	// processing methods fail with a clear error instead of panicking.
	d, err := New(Params{
		Model:         testModel(),
		Hist:          testHist(),
		RegionMapping: testMapping(),
		VariableDefs:  testDefs(),
		Settings:      testSettings(),
	})
	require.NoError(t, err)

	groups, err := d.CountryGroups(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, groups, 1)

	_, err = d.HarmdownGlobal(context.Background(), nil)
	assert.ErrorContains(t, err, "no harmonizer configured")
	_, err = d.HarmdownRegional(context.Background(), nil)
	assert.ErrorContains(t, err, "no harmonizer configured")
	_, err = d.Grid(context.Background(), GridOptions{})
	assert.ErrorContains(t, err, "no proxy factory configured")
	_, err = d.GridProxy(context.Background(), "anthro", nil)
	assert.ErrorContains(t, err, "no proxy factory configured")

	withHarmonizer, err := New(Params{
		Model:         testModel(),
		Hist:          testHist(),
		RegionMapping: testMapping(),
		VariableDefs:  testDefs(),
		Settings:      testSettings(),
		Harmonizer:    &fakeHarmonizer{},
	})
	require.NoError(t, err)
	_, err = withHarmonizer.HarmdownRegional(context.Background(), nil)
	assert.ErrorContains(t, err, "no downscaler configured")
}

func TestHarmonizeAndDownscale(t *testing.T) {
	rec := newGridRecorder()
	d := newTestDriver(t, rec, anthroWeights())

	out, err := d.HarmonizeAndDownscale(context.Background(), nil)
	require.NoError(t, err)
	require.NotNil(t, out)

	// One World row for the global variable plus one row per mapping
	// country for the regional variable, nothing duplicated.
	require.Equal(t, 5, out.Len())
	seen := make(map[string]int)
	for i := 0; i < out.Len(); i++ {
		seen[out.Value(i, "country")+"/"+out.Value(i, "gas")+"/"+out.Value(i, "sector")]++
	}
	assert.Len(t, seen, 5)
	assert.Equal(t, 1, seen["World/CO2/Aircraft"])
	assert.Equal(t, 1, seen["ind/CO2/Energy Sector"])
	assert.Equal(t, 1, seen["mex/CO2/Energy Sector"])

	// Both halves of each result slot are populated and disjoint.
	data, err := d.Downscaled.Data()
	require.NoError(t, err)
	assert.Equal(t, d.Downscaled.Global.Len()+d.Downscaled.Regional.Len(), data.Len())
}

func TestHarmonizedData(t *testing.T) {
	rec := newGridRecorder()
	d := newTestDriver(t, rec, anthroWeights())

	_, err := d.HarmonizeAndDownscale(context.Background(), nil)
	require.NoError(t, err)

	report, err := d.HarmonizedData()
	require.NoError(t, err)
	require.NotNil(t, report.Hist)
	require.NotNil(t, report.Harmonized)
	// The model view is restricted to rows with aggregated history.
	assert.Equal(t, 4, report.Model.Len())
	assert.Equal(t, 0, report.SkipForTotal.Len())
}

func TestGrid(t *testing.T) {
	rec := newGridRecorder()
	d := newTestDriver(t, rec, anthroWeights())

	results, err := d.Grid(context.Background(), GridOptions{
		Template:  "{model}-{scenario}-{name}.nc",
		Directory: "/out",
		Verify:    true,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Exactly one pathway per proxy, each with one executed save and one
	// executed verify task.
	for _, name := range []string{"air", "anthro"} {
		result, ok := results[name]
		require.True(t, ok, "missing result for proxy %s", name)
		require.Len(t, result.Saved, 1)
		require.Len(t, result.Verified, 1)
		require.Len(t, rec.gridded[name], 1)
	}
	assert.Len(t, rec.saved, 2)
	assert.Len(t, rec.verified, 2)
	assert.Contains(t, rec.saved, "/out/m-s-anthro.nc")

	// The anthro slice covers every mapping country, zero-filled where the
	// proxy had no support, with history years joined in front and units
	// rewritten to kg-per-second.
	slice := rec.gridded["anthro"][0]
	require.Equal(t, []int{2015, 2020, 2025}, slice.Years())
	require.Equal(t, 4, slice.Len())
	byCountry := make(map[string][]float64)
	for i := 0; i < slice.Len(); i++ {
		assert.Equal(t, "kg CO2/s", slice.Value(i, "unit"))
		byCountry[slice.Value(i, "country")] = slice.Row(i)
	}
	// History prepended, values textual-conversion-untouched.
	assert.Equal(t, []float64{9, 10, 11}, byCountry["ind"])
	assert.Equal(t, []float64{3, 0, 0}, byCountry["mex"])

	// The global pathway keeps its World row.
	air := rec.gridded["air"][0]
	require.Equal(t, 1, air.Len())
	assert.Equal(t, "World", air.Value(0, "country"))
	assert.Equal(t, []float64{0.5, 1, 2}, air.Row(0))
}

func TestGridWithoutVerify(t *testing.T) {
	rec := newGridRecorder()
	d := newTestDriver(t, rec, anthroWeights())

	results, err := d.Grid(context.Background(), GridOptions{Directory: "/out"})
	require.NoError(t, err)
	for name, result := range results {
		assert.Len(t, result.Saved, 1, "proxy %s", name)
		assert.Empty(t, result.Verified, "proxy %s", name)
	}
	assert.Empty(t, rec.verified)
}

func TestGridProxyUnknown(t *testing.T) {
	rec := newGridRecorder()
	d := newTestDriver(t, rec, anthroWeights())

	_, err := d.GridProxy(context.Background(), "nope", nil)
	assert.ErrorContains(t, err, `unknown proxy "nope"`)
}

func TestGridProxyComputesFreshWhenNil(t *testing.T) {
	rec := newGridRecorder()
	d := newTestDriver(t, rec, anthroWeights())

	pathways, err := d.GridProxy(context.Background(), "anthro", nil)
	require.NoError(t, err)
	assert.Len(t, pathways, 1)

	slice := rec.gridded["anthro"][0]
	countries := make(map[string]bool)
	for i := 0; i < slice.Len(); i++ {
		countries[slice.Value(i, "country")] = true
	}
	assert.True(t, countries["mex"], "zero-filled country missing from fresh computation")
}

func TestGlobalRegionalData(t *testing.T) {
	gr := GlobalRegional{}
	data, err := gr.Data()
	require.NoError(t, err)
	assert.Nil(t, data)

	gr.Global = table.New([]string{"gas"}, []int{2020}).AddRow([]string{"CO2"}, []float64{1})
	data, err = gr.Data()
	require.NoError(t, err)
	assert.Equal(t, 1, data.Len())
}
