// Package config loads the pipeline settings from HCL.
package config

// Settings holds the run-wide configuration of the pipeline: the
// harmonization base year, the variable taxonomy knobs, and the paths the
// data loaders and the gridder resolve against.
type Settings struct {
	Version string `hcl:"version"`

	BaseYear         int      `hcl:"base_year"`
	LucSectors       []string `hcl:"luc_sectors,optional"`
	VariableTemplate string   `hcl:"variable_template,optional"`
	// CountryCombinations merges ISO codes reported jointly in history,
	// e.g. srb_ksv covering srb and srb (kosovo).
	CountryCombinations map[string][]string `hcl:"country_combinations,optional"`

	// Encoding is handed through to the gridder's NetCDF serialization.
	Encoding map[string]string `hcl:"encoding,optional"`

	Ftp *FtpSettings `hcl:"ftp,block"`

	RegionMappings []RegionMappingSpec `hcl:"regionmapping,block"`

	// Path entries support $reference/relative interpolation against other
	// path entries and are resolved against the config's base path.
	OutPath         string `hcl:"out_path"`
	DataPath        string `hcl:"data_path"`
	HistoryPath     string `hcl:"history_path"`
	ScenarioPath    string `hcl:"scenario_path"`
	ProxyPath       string `hcl:"proxy_path"`
	GriddingPath    string `hcl:"gridding_path,optional"`
	PostprocessPath string `hcl:"postprocess_path,optional"`
}

// FtpSettings configures the upload target for gridded output.
type FtpSettings struct {
	Server   string `hcl:"server"`
	Port     int    `hcl:"port"`
	User     string `hcl:"user"`
	Password string `hcl:"password"`
}

// RegionMappingSpec locates one named country-to-region mapping file.
type RegionMappingSpec struct {
	Name          string `hcl:"name,label"`
	Path          string `hcl:"path"`
	CountryColumn string `hcl:"country_column,optional"`
	RegionColumn  string `hcl:"region_column,optional"`
}
