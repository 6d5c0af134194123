package design

// ParameterSetConfig is the ParameterSet variant of Config (spec.md §3):
// parameter overrides scoped to node namespaces.
type ParameterSetConfig struct {
	AutowareSystemDesignFormat string `yaml:"autoware_system_design_format,omitempty"`
	Name                       string `yaml:"name"`

	Parameters    []ParameterSetEntry    `yaml:"parameters,omitempty"`
	LocalVariables map[string]interface{} `yaml:"local_variables,omitempty"`
}

// ParameterSetEntry targets a single node by absolute namespace with a set
// of parameter files and/or direct parameter values to apply to it.
type ParameterSetEntry struct {
	Node           string              `yaml:"node"`
	ParameterFiles []ParameterFileSpec `yaml:"parameter_files,omitempty"`
	Parameters     []ParameterSpec     `yaml:"parameters,omitempty"`
}
