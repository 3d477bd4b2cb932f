// Package region maps countries onto model regions and aggregates
// country-level tables to region level.
package region

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/vk/emigrid/internal/table"
)

// Mapping is an immutable country-to-region assignment.
type Mapping struct {
	byCountry map[string]string
	countries []string
}

// NewMapping builds a mapping from a country→region assignment.
func NewMapping(byCountry map[string]string) *Mapping {
	m := &Mapping{byCountry: make(map[string]string, len(byCountry))}
	for country, region := range byCountry {
		m.byCountry[country] = region
		m.countries = append(m.countries, country)
	}
	slices.Sort(m.countries)
	return m
}

// ReadCSV parses a two-column (country, region) mapping. A header row is
// detected by the configured column names and skipped.
func ReadCSV(r io.Reader, countryColumn, regionColumn string) (*Mapping, error) {
	cr := csv.NewReader(r)
	byCountry := make(map[string]string)
	for line := 1; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading region mapping: %w", err)
		}
		if len(record) < 2 {
			return nil, fmt.Errorf("region mapping line %d: expected 2 columns", line)
		}
		if line == 1 && record[0] == countryColumn && record[1] == regionColumn {
			continue
		}
		byCountry[record[0]] = record[1]
	}
	return NewMapping(byCountry), nil
}

// ReadCSVFile reads a mapping from the file at path.
func ReadCSVFile(path, countryColumn, regionColumn string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := ReadCSV(f, countryColumn, regionColumn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Countries returns the sorted country domain.
func (m *Mapping) Countries() []string { return slices.Clone(m.countries) }

// Regions returns the sorted distinct regions.
func (m *Mapping) Regions() []string {
	seen := make(map[string]bool)
	var regions []string
	for _, region := range m.byCountry {
		if !seen[region] {
			seen[region] = true
			regions = append(regions, region)
		}
	}
	slices.Sort(regions)
	return regions
}

// RegionOf returns the region a country belongs to.
func (m *Mapping) RegionOf(country string) (string, bool) {
	region, ok := m.byCountry[country]
	return region, ok
}

// Len returns the number of countries in the mapping.
func (m *Mapping) Len() int { return len(m.countries) }

// Filter returns the mapping restricted to the given countries. Countries
// unknown to the mapping are ignored.
func (m *Mapping) Filter(countries []string) *Mapping {
	byCountry := make(map[string]string)
	for _, country := range countries {
		if region, ok := m.byCountry[country]; ok {
			byCountry[country] = region
		}
	}
	return NewMapping(byCountry)
}

// Aggregate relabels the table's "country" level to "region" through the
// mapping and sums rows that collapse onto the same key. With dropna, rows
// for countries outside the mapping are dropped; otherwise they are an
// error, since there is no region to attribute them to.
func (m *Mapping) Aggregate(t *table.Table, dropna bool) (*table.Table, error) {
	relabeled := table.New(t.Levels(), t.Years())
	li := slices.Index(t.Levels(), "country")
	if li < 0 {
		return nil, fmt.Errorf("aggregate: table has no country level")
	}
	for i := 0; i < t.Len(); i++ {
		key := t.Key(i)
		region, ok := m.byCountry[key[li]]
		if !ok {
			if dropna {
				continue
			}
			return nil, fmt.Errorf("aggregate: country %q not in region mapping", key[li])
		}
		key[li] = region
		relabeled.AddRow(key, t.Row(i))
	}

	renamed := relabeled.Rename("country", "region")
	return renamed.GroupSum(renamed.Levels()...), nil
}
