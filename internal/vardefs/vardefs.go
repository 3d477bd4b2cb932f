// Package vardefs tracks the variable universe of a scenario run: which
// (gas, sector) variables exist, whether they are harmonized globally or per
// region, and which spatial proxy grids them.
package vardefs

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"

	"github.com/vk/emigrid/internal/table"
)

// Variable is one (gas, sector) entry of the variable universe.
type Variable struct {
	Gas    string
	Sector string
	Unit   string
	// Proxy names the spatial weight map used to grid this variable; empty
	// when the variable has no proxy.
	Proxy string
	// Global marks variables harmonized on World totals instead of per
	// region.
	Global bool
	// SkipForTotal excludes the variable from totals reporting, e.g. to
	// avoid double counting aggregate sectors.
	SkipForTotal bool
}

// Definitions is an ordered, immutable collection of variables.
type Definitions struct {
	vars []Variable
}

// New returns definitions over the given variables, kept in input order.
func New(vars []Variable) *Definitions {
	return &Definitions{vars: slices.Clone(vars)}
}

// Variables returns the variables in order.
func (d *Definitions) Variables() []Variable { return slices.Clone(d.vars) }

// Len returns the number of variables.
func (d *Definitions) Len() int { return len(d.vars) }

// Global returns the subset of variables harmonized globally.
func (d *Definitions) Global() *Definitions { return d.filter(func(v Variable) bool { return v.Global }) }

// Regional returns the subset of variables harmonized per region.
func (d *Definitions) Regional() *Definitions {
	return d.filter(func(v Variable) bool { return !v.Global })
}

// ForProxy returns the subset of variables gridded by the named proxy.
func (d *Definitions) ForProxy(name string) *Definitions {
	return d.filter(func(v Variable) bool { return v.Proxy == name })
}

func (d *Definitions) filter(keep func(Variable) bool) *Definitions {
	out := &Definitions{}
	for _, v := range d.vars {
		if keep(v) {
			out.vars = append(out.vars, v)
		}
	}
	return out
}

// Proxies returns the sorted distinct proxy names referenced by the
// variables, skipping variables without a proxy.
func (d *Definitions) Proxies() []string {
	seen := make(map[string]bool)
	var names []string
	for _, v := range d.vars {
		if v.Proxy != "" && !seen[v.Proxy] {
			seen[v.Proxy] = true
			names = append(names, v.Proxy)
		}
	}
	slices.Sort(names)
	return names
}

// VariableIndex returns the (gas, sector) index over all variables.
func (d *Definitions) VariableIndex() *table.Index {
	ix := table.NewIndex("gas", "sector")
	for _, v := range d.vars {
		ix.Add(v.Gas, v.Sector)
	}
	return ix
}

// IndexGlobal returns the (gas, sector) index of the global variables.
func (d *Definitions) IndexGlobal() *table.Index { return d.Global().VariableIndex() }

// IndexRegional returns the (gas, sector) index of the regional variables.
func (d *Definitions) IndexRegional() *table.Index { return d.Regional().VariableIndex() }

// SkipForTotal returns the (gas, sector) index of variables excluded from
// totals reporting.
func (d *Definitions) SkipForTotal() *table.Index {
	ix := table.NewIndex("gas", "sector")
	for _, v := range d.vars {
		if v.SkipForTotal {
			ix.Add(v.Gas, v.Sector)
		}
	}
	return ix
}

// ReadCSV parses variable definitions from CSV with the header
// gas,sector,unit,proxy,global,skip_for_total.
func ReadCSV(r io.Reader) (*Definitions, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading variable definitions header: %w", err)
	}
	want := []string{"gas", "sector", "unit", "proxy", "global", "skip_for_total"}
	if !slices.Equal(header, want) {
		return nil, fmt.Errorf("variable definitions header %v, expected %v", header, want)
	}

	var vars []Variable
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading variable definitions: %w", err)
		}
		global, err := strconv.ParseBool(record[4])
		if err != nil {
			return nil, fmt.Errorf("variable definitions line %d: %w", line, err)
		}
		skip, err := strconv.ParseBool(record[5])
		if err != nil {
			return nil, fmt.Errorf("variable definitions line %d: %w", line, err)
		}
		vars = append(vars, Variable{
			Gas:          record[0],
			Sector:       record[1],
			Unit:         record[2],
			Proxy:        record[3],
			Global:       global,
			SkipForTotal: skip,
		})
	}
	return New(vars), nil
}

// ReadCSVFile reads variable definitions from the file at path.
func ReadCSVFile(path string) (*Definitions, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}
