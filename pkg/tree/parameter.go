package tree

// ParameterPriority is the layering priority tag from spec.md §3, ordered
// low to high: later-rendered values win when a launch tool flattens by
// this order.
type ParameterPriority int

const (
	PriorityDefault ParameterPriority = iota
	PriorityDefaultFile
	PriorityOverrideFile
	PriorityOverride
	PriorityModeFile
	PriorityMode
	PriorityGlobal
)

// Parameter is a single resolved ROS parameter value on a node, tagged with
// the layer it came from (spec.md §3).
type Parameter struct {
	Name        string
	Value       interface{}
	DataType    string
	Priority    ParameterPriority
	AllowSubsts bool
	IsOverride  bool
	Source      string
}

// ParameterFile is a resolved `parameter_files` entry: a YAML file path
// plus the priority it was declared at.
type ParameterFile struct {
	Name        string
	Path        string
	Priority    ParameterPriority
	AllowSubsts bool
	IsOverride  bool
}
