package design

// SystemConfig is the System variant of Config (spec.md §3): the top-level
// deployment description.
type SystemConfig struct {
	AutowareSystemDesignFormat string `yaml:"autoware_system_design_format,omitempty"`
	Name                       string `yaml:"name"`
	Base                       string `yaml:"base,omitempty"`

	Components  []Component  `yaml:"components,omitempty"`
	Connections []Connection `yaml:"connections,omitempty"`

	Variables     map[string]interface{} `yaml:"variables,omitempty"`
	VariableFiles []string                `yaml:"variable_files,omitempty"`

	Modes       []ModeDecl            `yaml:"modes,omitempty"`
	ModeConfigs map[string]ModeConfig `yaml:"mode_configs,omitempty"`

	Arguments []Argument `yaml:"arguments,omitempty"`

	ParameterSets []ParameterSetEntry `yaml:"parameter_sets,omitempty"`

	Override map[string]interface{} `yaml:"override,omitempty"`
	Remove   map[string]interface{} `yaml:"remove,omitempty"`
}

// Component is one `components` entry: an Instance (name+entity) plus
// deployment-placement metadata.
type Component struct {
	Name          string `yaml:"name"`
	Entity        string `yaml:"entity"`
	ComputeUnit   string `yaml:"compute_unit,omitempty"`
	Namespace     string `yaml:"namespace,omitempty"`
	ParameterSet  string `yaml:"parameter_set,omitempty"`

	// Mode is a deprecated legacy field (spec.md §4.E): any component
	// carrying it is dropped during mode resolution.
	Mode string `yaml:"mode,omitempty"`
}

// ModeDecl is one entry of a System's declared `modes` list.
type ModeDecl struct {
	Name    string `yaml:"name"`
	Default bool   `yaml:"default,omitempty"`
}

// ModeConfig is the `{override, remove}` bundle harvested for one mode name
// (spec.md §4.D "System modes").
type ModeConfig struct {
	Override map[string]interface{} `yaml:"override,omitempty"`
	Remove   map[string]interface{} `yaml:"remove,omitempty"`
}

// Argument is a System-declared build argument (used by the deployment
// variants table, spec.md §6 / SPEC_FULL.md §9.1).
type Argument struct {
	Name    string      `yaml:"name"`
	Default interface{} `yaml:"default,omitempty"`
}

func (s *SystemConfig) clone() *SystemConfig {
	if s == nil {
		return nil
	}
	out := *s
	out.Components = append([]Component(nil), s.Components...)
	out.Connections = append([]Connection(nil), s.Connections...)
	out.VariableFiles = append([]string(nil), s.VariableFiles...)
	out.Modes = append([]ModeDecl(nil), s.Modes...)
	out.Arguments = append([]Argument(nil), s.Arguments...)
	out.ParameterSets = append([]ParameterSetEntry(nil), s.ParameterSets...)
	out.Variables = deepCopyMap(s.Variables)

	if s.ModeConfigs != nil {
		out.ModeConfigs = make(map[string]ModeConfig, len(s.ModeConfigs))
		for k, v := range s.ModeConfigs {
			out.ModeConfigs[k] = ModeConfig{
				Override: deepCopyMap(v.Override),
				Remove:   deepCopyMap(v.Remove),
			}
		}
	}
	out.Override = deepCopyMap(s.Override)
	out.Remove = deepCopyMap(s.Remove)
	return &out
}

// SelectModes returns every declared mode name in declaration order plus
// the default mode name (spec.md §4.E "_select_modes"): the first entry
// unless one explicitly carries default: true. With no declared modes it
// returns (["default"], "default").
func (s *SystemConfig) SelectModes() (names []string, defaultName string) {
	if len(s.Modes) == 0 {
		return []string{"default"}, "default"
	}
	defaultName = s.Modes[0].Name
	for _, m := range s.Modes {
		names = append(names, m.Name)
		if m.Default {
			defaultName = m.Name
		}
	}
	return names, defaultName
}
