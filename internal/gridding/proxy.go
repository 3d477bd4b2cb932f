// Package gridding declares the contracts of the spatial allocation stage:
// proxies carrying per-country weight maps, and the gridded outputs they
// produce. The raster math and NetCDF serialization live outside this
// module.
package gridding

import (
	"github.com/vk/emigrid/internal/table"
	"github.com/vk/emigrid/internal/task"
	"github.com/vk/emigrid/internal/vardefs"
)

// IndexRaster is an opaque handle to the spatial index raster proxy
// implementations align their country masks against.
type IndexRaster any

// Weight exposes a proxy's country weight information.
type Weight struct {
	// Regional is a deferred (gas, sector, country) weight table summed
	// over time, or nil when the proxy carries no regional weight
	// information. The sector level holds parent sectors.
	Regional *task.Task[*table.Table]
}

// Proxy converts country-level tabular emissions into gridded output for
// one group of variables.
type Proxy interface {
	// Name returns the proxy's name as referenced by variable definitions.
	Name() string
	// Weight returns the proxy's country weight handle.
	Weight() Weight
	// Grid allocates the given (single model, single scenario) table onto
	// the spatial grid. The returned handle defers the expensive work into
	// its save and verify tasks.
	Grid(t *table.Table) (Gridded, error)
}

// SaveOptions parameterize Gridded.SaveTask.
type SaveOptions struct {
	// Template is the output file name template, e.g.
	// "{model}-{scenario}-{name}.nc".
	Template string
	// Directory receives the output files.
	Directory string
	// Callback, when non-nil, observes every written path.
	Callback func(path string)
	// Encoding is handed through to the NetCDF serializer.
	Encoding map[string]string
}

// Gridded is one gridded (model, scenario) pathway.
type Gridded interface {
	// SaveTask returns the deferred serialization of the pathway,
	// yielding the written path.
	SaveTask(opts SaveOptions) *task.Task[string]
	// VerifyTask returns the deferred consistency check of the pathway,
	// or nil when the proxy offers none.
	VerifyTask() *task.Task[string]
}

// Factory builds the proxy for one variable subset. Implementations close
// over whatever raster inputs they need beyond the index raster.
type Factory interface {
	FromVariables(defs *vardefs.Definitions, indexraster IndexRaster, proxyPath string) (Proxy, error)
}
