package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/vk/emigrid/internal/config"
	"github.com/vk/emigrid/internal/ctxlog"
	"github.com/vk/emigrid/internal/region"
	"github.com/vk/emigrid/internal/table"
	"github.com/vk/emigrid/internal/vardefs"
	"github.com/vk/emigrid/internal/workflow"
)

// Run loads the configured inputs, builds the workflow driver and reports
// the variable/country partition the pipeline would process. The numerical
// harmonization, downscaling and gridding backends plug in externally; the
// binary itself plans and validates a run.
func (a *App) Run(ctx context.Context) error {
	runID := uuid.NewString()
	ctx = ctxlog.WithLogger(ctx, a.logger.With("runID", runID))
	logger := ctxlog.FromContext(ctx)
	logger.Info("Starting run.", "settingsVersion", a.settings.Version)

	mapping, err := a.loadRegionMapping()
	if err != nil {
		return err
	}
	defs, err := vardefs.ReadCSVFile(filepath.Join(a.settings.DataPath, "variables.csv"))
	if err != nil {
		return fmt.Errorf("loading variable definitions: %w", err)
	}
	model, err := table.ReadCSVFile(filepath.Join(a.settings.ScenarioPath, "model.csv"))
	if err != nil {
		return fmt.Errorf("loading model scenarios: %w", err)
	}
	hist, err := table.ReadCSVFile(filepath.Join(a.settings.HistoryPath, "history.csv"))
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}
	gdp, err := loadOptionalTable(filepath.Join(a.settings.DataPath, "gdp.csv"))
	if err != nil {
		return fmt.Errorf("loading gdp: %w", err)
	}

	driver, err := workflow.New(workflow.Params{
		Model:         model,
		Hist:          hist,
		GDP:           gdp,
		RegionMapping: mapping,
		VariableDefs:  defs,
		Settings:      a.settings,
		Workers:       a.config.Workers,
	})
	if err != nil {
		return err
	}

	groups, err := driver.CountryGroups(ctx, nil)
	if err != nil {
		return err
	}
	logger.Info("Partition planned.",
		"groups", len(groups),
		"globalVariables", defs.IndexGlobal().Len(),
		"regionalVariables", defs.IndexRegional().Len(),
	)
	fmt.Fprintf(a.outW, "%d country groups over %d regional variables (%d global)\n",
		len(groups), defs.IndexRegional().Len(), defs.IndexGlobal().Len())
	for i, group := range groups {
		fmt.Fprintf(a.outW, "group %d: %d variables, %d countries\n", i+1, group.Variables.Len(), len(group.Countries))
	}
	return nil
}

// loadRegionMapping picks the configured mapping by name, defaulting to the
// first entry.
func (a *App) loadRegionMapping() (*region.Mapping, error) {
	if len(a.settings.RegionMappings) == 0 {
		return nil, fmt.Errorf("settings configure no region mappings")
	}
	spec := a.settings.RegionMappings[0]
	if a.config.RegionMapping != "" {
		var found *config.RegionMappingSpec
		for i := range a.settings.RegionMappings {
			if a.settings.RegionMappings[i].Name == a.config.RegionMapping {
				found = &a.settings.RegionMappings[i]
				break
			}
		}
		if found == nil {
			return nil, fmt.Errorf("region mapping %q is not configured", a.config.RegionMapping)
		}
		spec = *found
	}
	m, err := region.ReadCSVFile(spec.Path, spec.CountryColumn, spec.RegionColumn)
	if err != nil {
		return nil, fmt.Errorf("loading region mapping %q: %w", spec.Name, err)
	}
	return m, nil
}

func loadOptionalTable(path string) (*table.Table, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	return table.ReadCSVFile(path)
}
