package workflow

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/emigrid/internal/config"
	"github.com/vk/emigrid/internal/gridding"
	"github.com/vk/emigrid/internal/region"
	"github.com/vk/emigrid/internal/table"
	"github.com/vk/emigrid/internal/task"
	"github.com/vk/emigrid/internal/vardefs"
)

// Shared fixture: four countries in three regions, one global and one
// regional variable.

func testMapping() *region.Mapping {
	return region.NewMapping(map[string]string{
		"ind": "R_ASIA",
		"usa": "R_NAM",
		"mex": "R_NAM",
		"zwe": "R_AFR",
	})
}

func testDefs() *vardefs.Definitions {
	return vardefs.New([]vardefs.Variable{
		{Gas: "CO2", Sector: "Aircraft", Unit: "Mt CO2/yr", Proxy: "air", Global: true},
		{Gas: "CO2", Sector: "Energy Sector", Unit: "Mt CO2/yr", Proxy: "anthro"},
	})
}

func testModel() *table.Table {
	m := table.New([]string{"model", "scenario", "region", "gas", "sector", "unit"}, []int{2020, 2025})
	m.AddRow([]string{"m", "s", "World", "CO2", "Aircraft", "Mt CO2/yr"}, []float64{1, 2})
	m.AddRow([]string{"m", "s", "R_ASIA", "CO2", "Energy Sector", "Mt CO2/yr"}, []float64{10, 11})
	m.AddRow([]string{"m", "s", "R_NAM", "CO2", "Energy Sector", "Mt CO2/yr"}, []float64{20, 21})
	m.AddRow([]string{"m", "s", "R_AFR", "CO2", "Energy Sector", "Mt CO2/yr"}, []float64{5, 6})
	return m
}

func testHist() *table.Table {
	h := table.New([]string{"country", "gas", "sector", "unit"}, []int{2015, 2020})
	h.AddRow([]string{"World", "CO2", "Aircraft", "Mt CO2/yr"}, []float64{0.5, 1})
	h.AddRow([]string{"ind", "CO2", "Energy Sector", "Mt CO2/yr"}, []float64{9, 10})
	h.AddRow([]string{"usa", "CO2", "Energy Sector", "Mt CO2/yr"}, []float64{19, 20})
	h.AddRow([]string{"mex", "CO2", "Energy Sector", "Mt CO2/yr"}, []float64{3, 4})
	h.AddRow([]string{"zwe", "CO2", "Energy Sector", "Mt CO2/yr"}, []float64{4, 5})
	return h
}

func testSettings() *config.Settings {
	return &config.Settings{Version: "test", BaseYear: 2020}
}

// weightTable builds a per-(gas, sector, country) proxy weight table with a
// single value column.
func weightTable(rows map[[3]string]float64) *table.Table {
	t := table.New([]string{"gas", "sector", "country"}, []int{0})
	for key, w := range rows {
		t.AddRow(key[:], []float64{w})
	}
	return t
}

// fakeHarmonizer tags every model row with a fixed method.
type fakeHarmonizer struct {
	calls int
}

func (f *fakeHarmonizer) Harmonize(_ context.Context, model, _, _ *table.Table, _ *config.Settings) (*table.Table, error) {
	f.calls++
	return model.WithConst("method", "budget"), nil
}

// fakeDownscaler copies each region row onto every mapped country of that
// region.
type fakeDownscaler struct {
	calls int
}

func (f *fakeDownscaler) Downscale(_ context.Context, harmonized, _, _ *table.Table, mapping *region.Mapping, _ *config.Settings) (*table.Table, error) {
	f.calls++
	out := table.New(append(harmonized.Levels(), "country", "method"), harmonized.Years())
	for i := 0; i < harmonized.Len(); i++ {
		for _, country := range mapping.Countries() {
			if r, _ := mapping.RegionOf(country); r == harmonized.Value(i, "region") {
				out.AddRow(append(harmonized.Key(i), country, "proportional"), harmonized.Row(i))
			}
		}
	}
	return out, nil
}

// gridRecorder observes what the fake gridding backend is asked to do.
type gridRecorder struct {
	mu       sync.Mutex
	built    []string
	gridded  map[string][]*table.Table
	saved    []string
	verified []string
}

func newGridRecorder() *gridRecorder {
	return &gridRecorder{gridded: make(map[string][]*table.Table)}
}

type fakeFactory struct {
	rec *gridRecorder
	// weights maps proxy name to its regional weight table; a missing
	// entry means no regional weight information.
	weights map[string]*table.Table
}

func (f *fakeFactory) FromVariables(defs *vardefs.Definitions, _ gridding.IndexRaster, _ string) (gridding.Proxy, error) {
	name := defs.Proxies()[0]
	f.rec.mu.Lock()
	f.rec.built = append(f.rec.built, name)
	f.rec.mu.Unlock()
	return &fakeProxy{name: name, weight: f.weights[name], rec: f.rec}, nil
}

type fakeProxy struct {
	name   string
	weight *table.Table
	rec    *gridRecorder
}

func (p *fakeProxy) Name() string { return p.name }

func (p *fakeProxy) Weight() gridding.Weight {
	if p.weight == nil {
		return gridding.Weight{}
	}
	return gridding.Weight{Regional: task.FromValue("weight "+p.name, p.weight)}
}

func (p *fakeProxy) Grid(t *table.Table) (gridding.Gridded, error) {
	p.rec.mu.Lock()
	p.rec.gridded[p.name] = append(p.rec.gridded[p.name], t)
	p.rec.mu.Unlock()
	return &fakeGridded{
		name:     fmt.Sprintf("%s-%s-%s", t.Value(0, "model"), t.Value(0, "scenario"), p.name),
		rec:      p.rec,
	}, nil
}

type fakeGridded struct {
	name string
	rec  *gridRecorder
}

func (g *fakeGridded) SaveTask(opts gridding.SaveOptions) *task.Task[string] {
	return task.New("save "+g.name, func(context.Context) (string, error) {
		path := opts.Directory + "/" + g.name + ".nc"
		g.rec.mu.Lock()
		g.rec.saved = append(g.rec.saved, path)
		g.rec.mu.Unlock()
		return path, nil
	})
}

func (g *fakeGridded) VerifyTask() *task.Task[string] {
	return task.New("verify "+g.name, func(context.Context) (string, error) {
		g.rec.mu.Lock()
		g.rec.verified = append(g.rec.verified, g.name)
		g.rec.mu.Unlock()
		return "ok " + g.name, nil
	})
}

// newTestDriver wires the shared fixture with the given proxy weights.
func newTestDriver(t *testing.T, rec *gridRecorder, weights map[string]*table.Table) *Driver {
	t.Helper()
	d, err := New(Params{
		Model:         testModel(),
		Hist:          testHist(),
		RegionMapping: testMapping(),
		VariableDefs:  testDefs(),
		Settings:      testSettings(),
		Harmonizer:    &fakeHarmonizer{},
		Downscaler:    &fakeDownscaler{},
		ProxyFactory:  &fakeFactory{rec: rec, weights: weights},
	})
	require.NoError(t, err)
	return d
}
