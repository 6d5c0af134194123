// Package serialize renders a built instance tree into the versioned JSON
// payload that is asdesigner's contract with every downstream collaborator
// (spec.md §4.J, §6).
package serialize

import (
	"encoding/json"

	"github.com/davidthor/asdesigner/pkg/tree"
)

// SchemaVersion is the payload's own schema version, independent of any
// design file's autoware_system_design_format.
const SchemaVersion = "1.0"

// Metadata describes the build that produced a Payload.
type Metadata struct {
	SystemName  string `json:"system_name"`
	Mode        string `json:"mode"`
	GeneratedAt string `json:"generated_at"`
	Step        string `json:"step,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Payload is the top-level envelope (spec.md §4.J).
type Payload struct {
	SchemaVersion string       `json:"schema_version"`
	Metadata      Metadata     `json:"metadata"`
	Data          InstanceData `json:"data"`
}

// PortData is one port's JSON projection, with connected_ids resolved from
// its Users/Servers/Reference bookkeeping for graph traversal downstream.
type PortData struct {
	Name         string   `json:"name"`
	Direction    string   `json:"direction"`
	MessageType  string   `json:"message_type"`
	Topic        string   `json:"topic"`
	IsGlobal     bool     `json:"is_global,omitempty"`
	ConnectedIDs []string `json:"connected_ids,omitempty"`
}

// LinkData is one resolved connection's JSON projection.
type LinkData struct {
	MessageType    string `json:"message_type"`
	From           string `json:"from"`
	To             string `json:"to"`
	ConnectionType string `json:"connection_type"`
}

// ParameterData is one effective parameter value's JSON projection.
type ParameterData struct {
	Name     string      `json:"name"`
	Value    interface{} `json:"value"`
	DataType string      `json:"data_type,omitempty"`
	Priority int         `json:"priority"`
	Source   string      `json:"source,omitempty"`
}

// LaunchData is a node's process-launch payload.
type LaunchData struct {
	Package        string   `json:"package,omitempty"`
	Plugin         string   `json:"plugin,omitempty"`
	Executable     string   `json:"executable,omitempty"`
	Ros2LaunchFile string   `json:"ros2_launch_file,omitempty"`
	UseContainer   bool     `json:"use_container,omitempty"`
	ContainerName  string   `json:"container_name,omitempty"`
	Args           []string `json:"args,omitempty"`
}

// InstanceData is one Instance's recursive JSON projection.
type InstanceData struct {
	Name        string                   `json:"name"`
	EntityType  string                   `json:"entity_type"`
	Namespace   string                   `json:"namespace"`
	ComputeUnit string                   `json:"compute_unit,omitempty"`
	Ports       []PortData               `json:"ports,omitempty"`
	Links       []LinkData               `json:"links,omitempty"`
	Events      []interface{}            `json:"events"`
	Parameters  []ParameterData          `json:"parameters,omitempty"`
	Launch      *LaunchData              `json:"launch,omitempty"`
	Warnings    []string                 `json:"warnings,omitempty"`
	Children    map[string]*InstanceData `json:"children,omitempty"`
}

// Build renders instance and its whole subtree into an InstanceData tree.
func Build(instance *tree.Instance) *InstanceData {
	data := &InstanceData{
		Name:        instance.Name,
		EntityType:  string(instance.EntityType),
		Namespace:   instance.NamespaceStr(),
		ComputeUnit: instance.ComputeUnit,
		Events:      []interface{}{},
		Warnings:    append([]string(nil), instance.Warnings...),
	}

	for _, p := range instance.Ports {
		data.Ports = append(data.Ports, portData(p))
	}
	for _, l := range instance.Links {
		data.Links = append(data.Links, LinkData{
			MessageType:    l.MsgType,
			From:           l.From.PortPath(),
			To:             l.To.PortPath(),
			ConnectionType: string(l.ConnectionType),
		})
	}
	for _, p := range instance.Parameters {
		data.Parameters = append(data.Parameters, ParameterData{
			Name: p.Name, Value: p.Value, DataType: p.DataType,
			Priority: int(p.Priority), Source: p.Source,
		})
	}
	if instance.EntityType == tree.EntityTypeNode && instance.Config.Node != nil {
		launch := instance.Config.Node.Launch
		data.Launch = &LaunchData{
			Package: launch.Package, Plugin: launch.Plugin, Executable: launch.Executable,
			Ros2LaunchFile: launch.Ros2LaunchFile, UseContainer: launch.UseContainer,
			ContainerName: launch.ContainerName, Args: launch.Args,
		}
	}

	children := instance.OrderedChildren()
	if len(children) > 0 {
		data.Children = make(map[string]*InstanceData, len(children))
		for _, child := range children {
			data.Children[child.Name] = Build(child)
		}
	}
	return data
}

func portData(p *tree.Port) PortData {
	data := PortData{
		Name: p.Name, Direction: string(p.Direction), MessageType: p.MsgType,
		Topic: p.TopicStr(), IsGlobal: p.IsGlobal,
	}
	switch p.Direction {
	case tree.DirectionOutput:
		for _, u := range p.Users {
			data.ConnectedIDs = append(data.ConnectedIDs, u.PortPath())
		}
		for _, r := range p.Reference {
			data.ConnectedIDs = append(data.ConnectedIDs, r.PortPath())
		}
	case tree.DirectionInput:
		for _, s := range p.Servers {
			data.ConnectedIDs = append(data.ConnectedIDs, s.PortPath())
		}
		for _, r := range p.Reference {
			data.ConnectedIDs = append(data.ConnectedIDs, r.PortPath())
		}
	}
	return data
}

// New builds a complete Payload for a finished (or partially-built,
// crash-diagnostic) instance tree.
func New(root *tree.Instance, systemName, mode, generatedAt, step string, buildErr error) Payload {
	meta := Metadata{SystemName: systemName, Mode: mode, GeneratedAt: generatedAt, Step: step}
	if buildErr != nil {
		meta.Error = buildErr.Error()
	}
	return Payload{
		SchemaVersion: SchemaVersion,
		Metadata:      meta,
		Data:          *Build(root),
	}
}

// Marshal renders a Payload as indented JSON.
func Marshal(p Payload) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}
