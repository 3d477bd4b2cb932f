package workflow

import (
	"context"
	"fmt"

	"github.com/vk/emigrid/internal/ctxlog"
	"github.com/vk/emigrid/internal/table"
	"github.com/vk/emigrid/internal/vardefs"
)

// HarmdownGlobal harmonizes the variables flagged global on World totals,
// treating region and country as synonymous. It returns nil when there are
// no global variables; callers must skip a nil result rather than
// concatenate it.
func (d *Driver) HarmdownGlobal(ctx context.Context, defs *vardefs.Definitions) (*table.Table, error) {
	if defs == nil {
		defs = d.variabledefs
	}
	variables := defs.IndexGlobal()
	if variables.IsEmpty() {
		return nil, nil
	}
	if d.harmonizer == nil {
		return nil, fmt.Errorf("workflow: no harmonizer configured")
	}
	ctxlog.FromContext(ctx).Info("Harmonizing and downscaling global variables.", "count", variables.Len())

	model := d.model.Semijoin(variables, table.Right).Filter("region", "World")
	hist := d.hist.Semijoin(variables, table.Right).
		Filter("country", "World").
		Rename("country", "region")

	harmonized, err := d.harmonizer.Harmonize(ctx, model, hist, d.overridesFor(variables), d.settings)
	if err != nil {
		return nil, fmt.Errorf("harmonizing global variables: %w", err)
	}

	harmonized = vardefs.AggregateSubsectors(harmonized)
	hist = vardefs.AggregateSubsectors(hist)

	d.HistoryAggregated.Global = hist
	d.Harmonized.Global = harmonized
	// The country view of World rows: region copied into the country level,
	// method collapsed to the identity tag.
	d.Downscaled.Global = harmonized.WithCopied("country", "region").WithConst("method", "single")

	return harmonized.Drop("method").Rename("region", "country"), nil
}
