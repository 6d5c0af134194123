package design

// NodeConfig is the Node variant of Config (spec.md §3).
type NodeConfig struct {
	AutowareSystemDesignFormat string `yaml:"autoware_system_design_format,omitempty"`
	Name                       string `yaml:"name"`
	Base                       string `yaml:"base,omitempty"`

	Launch          Launch              `yaml:"launch"`
	Inputs          []Port              `yaml:"inputs,omitempty"`
	Outputs         []Port              `yaml:"outputs,omitempty"`
	ParameterFiles  []ParameterFileSpec `yaml:"parameter_files,omitempty"`
	Parameters      []ParameterSpec     `yaml:"parameters,omitempty"`
	Processes       []string            `yaml:"processes,omitempty"`
	PackageName     string              `yaml:"package_name,omitempty"`
	PackageProvider string              `yaml:"package_provider,omitempty"`

	// PackageResolution is assigned by the entity registry from the
	// workspace config (spec.md §4.C.2), never read from the YAML.
	PackageResolution PackageResolution `yaml:"-"`

	// Override/Remove carry a Variant node's body (spec.md §4.D); nil for a
	// Base node.
	Override map[string]interface{} `yaml:"override,omitempty"`
	Remove   map[string]interface{} `yaml:"remove,omitempty"`
}

// Launch describes how a node's process is started. Exactly one of
// Plugin/Executable/Ros2LaunchFile must be set, and ContainerName is
// required when UseContainer is true (spec.md §3, §4.B).
type Launch struct {
	Package        string   `yaml:"package,omitempty"`
	Plugin         string   `yaml:"plugin,omitempty"`
	Executable     string   `yaml:"executable,omitempty"`
	Ros2LaunchFile string   `yaml:"ros2_launch_file,omitempty"`
	UseContainer   bool     `yaml:"use_container,omitempty"`
	ContainerName  string   `yaml:"container_name,omitempty"`
	NodeOutput     string   `yaml:"node_output,omitempty"`
	Args           []string `yaml:"args,omitempty"`
}

// Port is a declared input or output on a Node. Global, when non-empty, is
// an absolute topic the port's default topic resolution should short-circuit
// to (spec.md §4.G, "initialize_node_ports").
type Port struct {
	Name         string `yaml:"name"`
	MessageType  string `yaml:"message_type"`
	RemapTarget  string `yaml:"remap_target,omitempty"`
	Global       string `yaml:"global,omitempty"`
}

// ParameterFileSpec is a node-declared `parameter_files` entry.
type ParameterFileSpec struct {
	Name        string      `yaml:"name"`
	Default     string      `yaml:"default,omitempty"`
	Value       string      `yaml:"value,omitempty"`
	AllowSubsts bool        `yaml:"allow_substs,omitempty"`
	IsOverride  bool        `yaml:"is_override,omitempty"`
}

// Path returns Value if set (an override-style direct path), else Default.
func (p ParameterFileSpec) Path() string {
	if p.Value != "" {
		return p.Value
	}
	return p.Default
}

// ParameterSpec is a node-declared `parameters` entry.
type ParameterSpec struct {
	Name    string      `yaml:"name"`
	Type    string      `yaml:"type"`
	Default interface{} `yaml:"default,omitempty"`
	Value   interface{} `yaml:"value,omitempty"`
}

// Resolved returns Value if set, else Default.
func (p ParameterSpec) Resolved() interface{} {
	if p.Value != nil {
		return p.Value
	}
	return p.Default
}

// AllowedParameterTypes is the closed set a parameter `type` must belong to
// (spec.md §4.B).
var AllowedParameterTypes = map[string]bool{
	"string": true, "bool": true,
	"int": true, "int_array": true,
	"double": true, "double_array": true,
	"string_array": true, "bool_array": true,
	"directory": true,
}
