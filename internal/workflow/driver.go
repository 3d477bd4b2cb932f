// Package workflow orchestrates the emissions pipeline: it partitions the
// variable universe by proxy country support, drives harmonization and
// downscaling per partition, merges the partial results into coherent
// global-plus-regional views, and fans the merged result out to the spatial
// gridder.
package workflow

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/vk/emigrid/internal/config"
	"github.com/vk/emigrid/internal/gridding"
	"github.com/vk/emigrid/internal/harmdown"
	"github.com/vk/emigrid/internal/region"
	"github.com/vk/emigrid/internal/table"
	"github.com/vk/emigrid/internal/vardefs"
)

// GlobalRegional pairs two halves of the same logical quantity, split by
// whether its rows came from the global or the regional path. The halves
// never share a row key; each is written exactly once per driver run.
type GlobalRegional struct {
	Global   *table.Table
	Regional *table.Table
}

// Data returns the union of the two halves, skipping whichever is unset.
func (gr *GlobalRegional) Data() (*table.Table, error) {
	return table.Concat(gr.Global, gr.Regional)
}

// Params collects the borrowed, read-only inputs of a Driver.
type Params struct {
	// Model holds the scenario trajectories at model-region granularity.
	Model *table.Table
	// Hist holds historical emissions at country granularity.
	Hist *table.Table
	// GDP is the auxiliary downscaling weight.
	GDP *table.Table
	// HarmOverrides force a harmonization method per row; may be nil.
	HarmOverrides *table.Table

	RegionMapping *region.Mapping
	IndexRaster   gridding.IndexRaster
	VariableDefs  *vardefs.Definitions
	Settings      *config.Settings

	// Harmonizer and Downscaler may be nil for a planning-only driver; the
	// harmdown methods refuse to run without them.
	Harmonizer harmdown.Harmonizer
	Downscaler harmdown.Downscaler
	// ProxyFactory builds the per-proxy gridding backends; may be nil when
	// the run stops after downscaling.
	ProxyFactory gridding.Factory

	// Workers bounds the deferred-task worker pool; non-positive selects
	// the default.
	Workers int
}

// Driver is the long-lived orchestration context of one pipeline run. It
// exclusively owns its three result slots for the duration of the run.
type Driver struct {
	model         *table.Table
	hist          *table.Table
	gdp           *table.Table
	harmOverrides *table.Table
	regionmapping *region.Mapping
	indexraster   gridding.IndexRaster
	variabledefs  *vardefs.Definitions
	settings      *config.Settings

	harmonizer   harmdown.Harmonizer
	downscaler   harmdown.Downscaler
	proxyFactory gridding.Factory
	workers      int

	HistoryAggregated GlobalRegional
	Harmonized        GlobalRegional
	Downscaled        GlobalRegional

	proxyOnce sync.Once
	proxies   map[string]gridding.Proxy
	proxyErr  error
}

// New validates the inputs and returns a fresh driver.
func New(p Params) (*Driver, error) {
	switch {
	case p.Model == nil:
		return nil, fmt.Errorf("workflow: model table is required")
	case p.Hist == nil:
		return nil, fmt.Errorf("workflow: history table is required")
	case p.RegionMapping == nil:
		return nil, fmt.Errorf("workflow: region mapping is required")
	case p.VariableDefs == nil:
		return nil, fmt.Errorf("workflow: variable definitions are required")
	case p.Settings == nil:
		return nil, fmt.Errorf("workflow: settings are required")
	}
	return &Driver{
		model:         p.Model,
		hist:          p.Hist,
		gdp:           p.GDP,
		harmOverrides: p.HarmOverrides,
		regionmapping: p.RegionMapping,
		indexraster:   p.IndexRaster,
		variabledefs:  p.VariableDefs,
		settings:      p.Settings,
		harmonizer:    p.Harmonizer,
		downscaler:    p.Downscaler,
		proxyFactory:  p.ProxyFactory,
		workers:       p.Workers,
	}, nil
}

// Proxies returns the proxy backends keyed by name, built once per driver
// instance. Without a proxy factory the map is empty, which routes the
// partitioner into its uniform no-proxy group.
func (d *Driver) Proxies() (map[string]gridding.Proxy, error) {
	d.proxyOnce.Do(func() {
		d.proxies = make(map[string]gridding.Proxy)
		if d.proxyFactory == nil {
			return
		}
		for _, name := range d.variabledefs.Proxies() {
			proxy, err := d.proxyFactory.FromVariables(d.variabledefs.ForProxy(name), d.indexraster, d.settings.ProxyPath)
			if err != nil {
				d.proxyErr = fmt.Errorf("building proxy %q: %w", name, err)
				return
			}
			d.proxies[name] = proxy
		}
	})
	return d.proxies, d.proxyErr
}

// HarmonizeAndDownscale runs the global and the regional path and
// concatenates their country-indexed results. A nil result means neither
// path had variables to contribute.
func (d *Driver) HarmonizeAndDownscale(ctx context.Context, defs *vardefs.Definitions) (*table.Table, error) {
	if defs == nil {
		defs = d.variabledefs
	}
	global, err := d.HarmdownGlobal(ctx, defs)
	if err != nil {
		return nil, err
	}
	regional, err := d.HarmdownRegional(ctx, defs)
	if err != nil {
		return nil, err
	}
	return table.Concat(global, regional)
}

// Harmonized bundles the inputs and output of the harmonization stage for
// reporting.
type Harmonized struct {
	Hist         *table.Table
	Model        *table.Table
	Harmonized   *table.Table
	SkipForTotal *table.Index
}

// HarmonizedData assembles the harmonization report view from the result
// slots of a completed run.
func (d *Driver) HarmonizedData() (*Harmonized, error) {
	hist, err := d.HistoryAggregated.Data()
	if err != nil {
		return nil, err
	}
	harmonized, err := d.Harmonized.Data()
	if err != nil {
		return nil, err
	}

	model := d.model
	if hist != nil {
		shared := make([]string, 0, len(hist.Levels()))
		for _, level := range hist.Levels() {
			if slices.Contains(model.Levels(), level) {
				shared = append(shared, level)
			}
		}
		model = model.Semijoin(hist.UniqueIndex(shared...), table.Right)
	}

	return &Harmonized{
		Hist:         hist,
		Model:        model,
		Harmonized:   harmonized,
		SkipForTotal: d.variabledefs.SkipForTotal(),
	}, nil
}

// overridesFor restricts the harmonization overrides to the given variables
// with inner-join semantics: overrides referencing variables outside the
// index are silently dropped.
func (d *Driver) overridesFor(variables *table.Index) *table.Table {
	if d.harmOverrides == nil {
		return nil
	}
	return d.harmOverrides.Semijoin(variables, table.Inner)
}
