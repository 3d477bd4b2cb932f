package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/vk/emigrid/internal/ctxlog"
	"github.com/vk/emigrid/internal/table"
	"github.com/vk/emigrid/internal/task"
	"github.com/vk/emigrid/internal/vardefs"
)

// CountryGroup denotes that exactly these variables must be harmonized and
// downscaled using exactly this country subset.
type CountryGroup struct {
	// Countries is the sorted country subset; empty for variables whose
	// proxy weight sums to zero, whose output is therefore entirely
	// all_zero filled.
	Countries []string
	// Variables is the (gas, sector) set processed with this subset.
	Variables *table.Index
}

// groupSep joins country tuples into partition keys; country codes never
// contain it.
const groupSep = "\x1f"

// CountryGroups covers the regional-variable universe of defs with groups of
// variables sharing identical proxy country support. Variables without any
// proxy weight entry get the full country universe; variables whose weight
// sums to exactly zero get the empty set; variables supported only by
// countries outside the region mapping are dropped from every group. Missing
// or malformed proxy weight is policy, not an error. Groups without
// variables are suppressed.
func (d *Driver) CountryGroups(ctx context.Context, defs *vardefs.Definitions) ([]CountryGroup, error) {
	logger := ctxlog.FromContext(ctx)
	if defs == nil {
		defs = d.variabledefs
	}
	defs = defs.Regional()
	allCountries := d.regionmapping.Countries()

	weights, err := d.regionalProxyWeights(ctx, defs)
	if err != nil {
		return nil, err
	}

	var groups []CountryGroup
	if len(weights) == 0 {
		// No proxies at all: harmonization and downscaling run uniformly
		// over one group.
		groups = []CountryGroup{{Countries: allCountries, Variables: defs.VariableIndex()}}
	} else {
		groups = partition(defs, weights, d.regionmapping.Countries())
	}

	out := groups[:0]
	for _, group := range groups {
		if group.Variables.IsEmpty() {
			continue
		}
		logGroup(logger, group)
		out = append(out, group)
	}
	return out, nil
}

// regionalProxyWeights reduces the proxy weight maps used by at least one
// regional variable to per-(gas, parent sector, country) totals, executed in
// parallel at a single join point.
func (d *Driver) regionalProxyWeights(ctx context.Context, defs *vardefs.Definitions) (map[string]map[string]float64, error) {
	proxies, err := d.Proxies()
	if err != nil {
		return nil, err
	}
	regional := defs.Proxies()

	proxyNames := make([]string, 0, len(proxies))
	for name := range proxies {
		proxyNames = append(proxyNames, name)
	}
	slices.Sort(proxyNames)

	var tasks []*task.Task[*table.Table]
	for _, name := range proxyNames {
		if !slices.Contains(regional, name) {
			continue
		}
		if w := proxies[name].Weight().Regional; w != nil {
			tasks = append(tasks, w)
		}
	}
	tables, err := task.Compute(ctx, d.workers, tasks)
	if err != nil {
		return nil, fmt.Errorf("reducing proxy weights: %w", err)
	}

	weights := make(map[string]map[string]float64)
	for _, t := range tables {
		for i := 0; i < t.Len(); i++ {
			key := t.Value(i, "gas") + groupSep + vardefs.ShortSector(t.Value(i, "sector"))
			byCountry := weights[key]
			if byCountry == nil {
				byCountry = make(map[string]float64)
				weights[key] = byCountry
			}
			byCountry[t.Value(i, "country")] += floats.Sum(t.Row(i))
		}
	}
	return weights, nil
}

// partition classifies every regional (gas, sector) into one of three
// buckets and merges variables with identical country support into one
// group. Variables whose support lies entirely outside the mapping land in
// no bucket at all.
func partition(defs *vardefs.Definitions, weights map[string]map[string]float64, mappingCountries []string) []CountryGroup {
	noProxy := table.NewIndex("gas", "sector")
	zeroProxy := table.NewIndex("gas", "sector")
	byCountries := make(map[string]*table.Index)

	for _, key := range defs.VariableIndex().Keys() {
		gas, sector := key[0], key[1]
		byCountry, present := weights[gas+groupSep+vardefs.ShortSector(sector)]
		if !present {
			noProxy.Add(gas, sector)
			continue
		}

		total := 0.0
		var countries []string
		for country, w := range byCountry {
			total += math.Abs(w)
			if w != 0 && slices.Contains(mappingCountries, country) {
				countries = append(countries, country)
			}
		}
		if total == 0 {
			zeroProxy.Add(gas, sector)
			continue
		}
		if len(countries) == 0 {
			// Nonzero support only outside the region mapping: there is
			// nothing to downscale onto, so the variable is dropped.
			continue
		}
		slices.Sort(countries)

		groupKey := strings.Join(countries, groupSep)
		if byCountries[groupKey] == nil {
			byCountries[groupKey] = table.NewIndex("gas", "sector")
		}
		byCountries[groupKey].Add(gas, sector)
	}

	groups := []CountryGroup{
		{Countries: slices.Clone(mappingCountries), Variables: noProxy},
		{Countries: nil, Variables: zeroProxy},
	}
	groupKeys := make([]string, 0, len(byCountries))
	for groupKey := range byCountries {
		groupKeys = append(groupKeys, groupKey)
	}
	slices.Sort(groupKeys)
	for _, groupKey := range groupKeys {
		groups = append(groups, CountryGroup{
			Countries: strings.Split(groupKey, groupSep),
			Variables: byCountries[groupKey],
		})
	}
	return groups
}

// logGroup reports one group's composition: country count, at most 40
// country codes, and the variable list.
func logGroup(logger *slog.Logger, group CountryGroup) {
	const maxShown = 40
	shown := group.Countries
	suffix := ""
	if len(shown) > maxShown {
		shown = shown[:maxShown]
		suffix = ", ..."
	}

	variables := make([]string, 0, group.Variables.Len())
	for _, key := range group.Variables.Keys() {
		variables = append(variables, key[0]+"::"+key[1])
	}

	logger.Info("Country group.",
		"countries", len(group.Countries),
		"countryCodes", strings.Join(shown, ", ")+suffix,
		"variables", strings.Join(variables, ", "),
	)
}
