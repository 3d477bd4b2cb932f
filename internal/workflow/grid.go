package workflow

import (
	"context"
	"fmt"
	"slices"

	"github.com/vk/emigrid/internal/ctxlog"
	"github.com/vk/emigrid/internal/gridding"
	"github.com/vk/emigrid/internal/table"
	"github.com/vk/emigrid/internal/task"
	"github.com/vk/emigrid/internal/vardefs"
)

// GridProxy builds one gridded pathway per (model, scenario) pair for a
// single proxy: the downscaled result restricted to the proxy's variables,
// left-joined with base-year-free aggregated history and rewritten to
// kg-per-second units. The expensive work stays deferred inside the returned
// handles. When downscaled is nil it is computed fresh for the proxy's
// variable subset.
func (d *Driver) GridProxy(ctx context.Context, proxyName string, downscaled *table.Table) ([]gridding.Gridded, error) {
	if d.proxyFactory == nil {
		return nil, fmt.Errorf("workflow: no proxy factory configured")
	}
	proxies, err := d.Proxies()
	if err != nil {
		return nil, err
	}
	proxy, ok := proxies[proxyName]
	if !ok {
		return nil, fmt.Errorf("unknown proxy %q", proxyName)
	}

	defs := d.variabledefs.ForProxy(proxyName)
	if downscaled == nil {
		if downscaled, err = d.HarmonizeAndDownscale(ctx, defs); err != nil {
			return nil, err
		}
	} else {
		downscaled = downscaled.Semijoin(defs.VariableIndex(), table.Inner)
	}
	if downscaled.IsEmpty() {
		return nil, nil
	}

	hist := vardefs.AggregateSubsectors(d.hist.DropYear(d.settings.BaseYear))
	tabular, err := table.LeftJoinYears(downscaled, hist)
	if err != nil {
		return nil, fmt.Errorf("joining history for proxy %q: %w", proxyName, err)
	}
	tabular = tabular.ConvertUnit(table.PerSecondUnit)

	var pathways []gridding.Gridded
	for _, pair := range tabular.Unique("model", "scenario") {
		slice := tabular.Filter("model", pair[0]).Filter("scenario", pair[1])
		gridded, err := proxy.Grid(slice)
		if err != nil {
			return nil, fmt.Errorf("gridding %s/%s with proxy %q: %w", pair[0], pair[1], proxyName, err)
		}
		pathways = append(pathways, gridded)
	}
	return pathways, nil
}

// GridOptions parameterize Grid.
type GridOptions struct {
	// Template is the output file name template handed to the gridder.
	Template string
	// Directory receives the output files.
	Directory string
	// Callback, when non-nil, observes every written path.
	Callback func(path string)
	// Encoding overrides the NetCDF encoding; nil uses the settings'.
	Encoding map[string]string
	// Verify schedules a verification pass alongside every save.
	Verify bool
}

// ProxyResult collects the outputs of one proxy's deferred batch.
type ProxyResult struct {
	Saved    []string
	Verified []string
}

// Grid harmonizes and downscales everything once, then per proxy schedules
// the deferred save (and optionally verify) tasks of every pathway and
// executes them at one join point per proxy. A failed task aborts that
// proxy's batch and the whole call; results for already-finished proxies are
// not preserved.
func (d *Driver) Grid(ctx context.Context, opts GridOptions) (map[string]ProxyResult, error) {
	if d.proxyFactory == nil {
		return nil, fmt.Errorf("workflow: no proxy factory configured")
	}
	logger := ctxlog.FromContext(ctx)

	downscaled, err := d.HarmonizeAndDownscale(ctx, nil)
	if err != nil {
		return nil, err
	}
	proxies, err := d.Proxies()
	if err != nil {
		return nil, err
	}

	encoding := opts.Encoding
	if encoding == nil {
		encoding = d.settings.Encoding
	}
	saveOpts := gridding.SaveOptions{
		Template:  opts.Template,
		Directory: opts.Directory,
		Callback:  opts.Callback,
		Encoding:  encoding,
	}

	names := make([]string, 0, len(proxies))
	for name := range proxies {
		names = append(names, name)
	}
	slices.Sort(names)
	results := make(map[string]ProxyResult, len(names))
	for i, name := range names {
		logger.Info("Gridding proxy.", "proxy", name, "progress", fmt.Sprintf("%d/%d", i+1, len(names)))

		var pathways []gridding.Gridded
		if downscaled != nil {
			if pathways, err = d.GridProxy(ctx, name, downscaled); err != nil {
				return nil, err
			}
		}

		// One save task and one verify slot per pathway; nil slots are
		// skipped by Compute.
		tasks := make([]*task.Task[string], 0, 2*len(pathways))
		for _, gridded := range pathways {
			tasks = append(tasks, gridded.SaveTask(saveOpts))
			if opts.Verify {
				tasks = append(tasks, gridded.VerifyTask())
			} else {
				tasks = append(tasks, nil)
			}
		}

		outs, err := task.Compute(ctx, d.workers, tasks)
		if err != nil {
			return nil, fmt.Errorf("gridding proxy %q: %w", name, err)
		}
		var result ProxyResult
		for j := 0; j < len(outs); j += 2 {
			result.Saved = append(result.Saved, outs[j])
			if outs[j+1] != "" {
				result.Verified = append(result.Verified, outs[j+1])
			}
		}
		results[name] = result
	}
	return results, nil
}
