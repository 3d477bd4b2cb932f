package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Load parses and decodes the settings file at configPath and resolves all
// path entries. When basePath is non-empty, configPath and every relative
// path entry are anchored there.
func Load(configPath, basePath string) (*Settings, error) {
	if basePath != "" {
		configPath = filepath.Join(basePath, configPath)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(configPath)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", configPath, diags)
	}

	var s Settings
	if diags := gohcl.DecodeBody(file.Body, nil, &s); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %w", configPath, diags)
	}

	if err := s.resolvePaths(basePath); err != nil {
		return nil, fmt.Errorf("resolving paths in %s: %w", configPath, err)
	}
	return &s, nil
}

// pathEntries maps each $reference name onto its settings field.
func (s *Settings) pathEntries() map[string]*string {
	return map[string]*string{
		"out_path":         &s.OutPath,
		"data_path":        &s.DataPath,
		"history_path":     &s.HistoryPath,
		"scenario_path":    &s.ScenarioPath,
		"proxy_path":       &s.ProxyPath,
		"gridding_path":    &s.GriddingPath,
		"postprocess_path": &s.PostprocessPath,
	}
}

// resolvePaths expands every path entry. A path may reference another entry
// as "$data_path/subdir", use "~" for the home directory, or be relative to
// basePath.
func (s *Settings) resolvePaths(basePath string) error {
	entries := s.pathEntries()

	var expand func(path string, visiting map[string]bool) (string, error)
	expand = func(path string, visiting map[string]bool) (string, error) {
		switch {
		case path == "":
			return "", nil
		case strings.HasPrefix(path, "$"):
			reference, relative, ok := strings.Cut(path[1:], "/")
			if !ok {
				return "", fmt.Errorf("path reference %q needs a relative part", path)
			}
			target, known := entries[reference]
			if !known {
				return "", fmt.Errorf("path reference %q names an unknown entry", path)
			}
			if visiting[reference] {
				return "", fmt.Errorf("path reference %q is circular", path)
			}
			visiting[reference] = true
			base, err := expand(*target, visiting)
			delete(visiting, reference)
			if err != nil {
				return "", err
			}
			return filepath.Join(base, relative), nil
		case path == "~" || strings.HasPrefix(path, "~/"):
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
		case basePath != "" && !filepath.IsAbs(path):
			return filepath.Join(basePath, path), nil
		default:
			return path, nil
		}
	}

	resolved := make(map[string]string, len(entries))
	for name, field := range entries {
		path, err := expand(*field, map[string]bool{name: true})
		if err != nil {
			return err
		}
		resolved[name] = path
	}
	for name, field := range entries {
		*field = resolved[name]
	}

	for i := range s.RegionMappings {
		rm := &s.RegionMappings[i]
		path, err := expand(rm.Path, map[string]bool{})
		if err != nil {
			return fmt.Errorf("regionmapping %q: %w", rm.Name, err)
		}
		rm.Path = path
		if rm.CountryColumn == "" {
			rm.CountryColumn = "country"
		}
		if rm.RegionColumn == "" {
			rm.RegionColumn = "region"
		}
	}
	return nil
}
