package workflow

import (
	"context"
	"fmt"

	"github.com/vk/emigrid/internal/ctxlog"
	"github.com/vk/emigrid/internal/table"
	"github.com/vk/emigrid/internal/vardefs"
)

// HarmdownRegional runs the harmonize-then-downscale sequence once per
// country group and merges the partials into the regional result slots.
// Regions and countries a group cannot reach get all_zero rows so the final
// concatenation has a row for every key. Returns nil when the partitioner
// yields no groups.
func (d *Driver) HarmdownRegional(ctx context.Context, defs *vardefs.Definitions) (*table.Table, error) {
	if defs == nil {
		defs = d.variabledefs
	}
	ctxlog.FromContext(ctx).Info("Harmonizing and downscaling regional variables.", "count", defs.IndexRegional().Len())

	groups, err := d.CountryGroups(ctx, defs)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, nil
	}
	if d.harmonizer == nil {
		return nil, fmt.Errorf("workflow: no harmonizer configured")
	}
	if d.downscaler == nil {
		return nil, fmt.Errorf("workflow: no downscaler configured")
	}

	var histParts, harmParts, downParts []*table.Table
	for _, group := range groups {
		restricted := d.regionmapping.Filter(group.Countries)
		missingRegions := difference(d.regionmapping.Regions(), restricted.Regions())
		missingCountries := difference(d.regionmapping.Countries(), group.Countries)

		model := d.model.Semijoin(group.Variables, table.Right)
		hist := d.hist.Semijoin(group.Variables, table.Right)
		histAgg, err := restricted.Aggregate(hist, true)
		if err != nil {
			return nil, err
		}

		logUncoveredHistory(ctx, hist, histAgg, uncoveredThreshold, d.settings.BaseYear)
		histParts = append(histParts, table.AddZerosLike(histAgg, hist, table.ZeroFill{
			Level:  "region",
			Values: missingRegions,
		}))

		harm, err := d.harmonizer.Harmonize(ctx,
			model.Filter("region", restricted.Regions()...),
			histAgg,
			d.overridesFor(group.Variables),
			d.settings,
		)
		if err != nil {
			return nil, fmt.Errorf("harmonizing country group: %w", err)
		}
		if harm.IsEmpty() {
			harm = table.New(append(model.Levels(), "method"), model.Years())
		}
		harmParts = append(harmParts, table.AddZerosLike(harm, model, table.ZeroFill{
			Level:     "region",
			Values:    missingRegions,
			Constants: map[string]string{"method": "all_zero"},
		}))

		harmAgg := vardefs.AggregateSubsectors(harm.Drop("method"))
		histSub := vardefs.AggregateSubsectors(hist)

		down, err := d.downscaler.Downscale(ctx, harmAgg, histSub, d.gdp, restricted, d.settings)
		if err != nil {
			return nil, fmt.Errorf("downscaling country group: %w", err)
		}
		if down.IsEmpty() {
			down = table.New(append(model.Levels(), "country", "method"), model.Years())
		}
		downParts = append(downParts, table.AddZerosLike(down, model, table.ZeroFill{
			Level:     "country",
			Values:    missingCountries,
			Constants: map[string]string{"method": "all_zero"},
			Derive: map[string]func(string) string{
				// Zero rows still carry a valid region key for later
				// region-level queries.
				"region": func(country string) string {
					r, _ := d.regionmapping.RegionOf(country)
					return r
				},
			},
		}))
	}

	if d.HistoryAggregated.Regional, err = table.Concat(histParts...); err != nil {
		return nil, fmt.Errorf("merging aggregated history: %w", err)
	}
	if d.Harmonized.Regional, err = table.Concat(harmParts...); err != nil {
		return nil, fmt.Errorf("merging harmonized results: %w", err)
	}
	down, err := table.Concat(downParts...)
	if err != nil {
		return nil, fmt.Errorf("merging downscaled results: %w", err)
	}
	d.Downscaled.Regional = down

	return down.Drop("method", "region"), nil
}

// difference returns the elements of all that are missing from sub,
// preserving all's order.
func difference(all, sub []string) []string {
	subSet := make(map[string]bool, len(sub))
	for _, s := range sub {
		subSet[s] = true
	}
	var out []string
	for _, s := range all {
		if !subSet[s] {
			out = append(out, s)
		}
	}
	return out
}
