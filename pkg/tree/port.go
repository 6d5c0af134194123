package tree

import (
	"fmt"
	"strings"

	"github.com/davidthor/asdesigner/pkg/errors"
)

// Direction distinguishes an InPort from an OutPort (spec.md §3's Port sum
// type, collapsed to one struct tagged by Direction).
type Direction string

const (
	DirectionInput  Direction = "input"
	DirectionOutput Direction = "output"
)

// Port is a declared or materialized node/composite-interface endpoint.
// InPort-only fields (Servers) and OutPort-only fields (Users) are left
// zero on the other direction.
type Port struct {
	Name        string
	MsgType     string
	Namespace   []string
	Topic       []string
	IsGlobal    bool
	RemapTarget string
	Direction   Direction

	// Reference links a composite (external-interface) port to the internal
	// port(s) it expands to. OutPort.Reference has at most one entry
	// (spec.md §3: "an OutPort has at most one reference").
	Reference []*Port

	// Servers are upstream OutPorts feeding this InPort.
	Servers []*Port

	// Users are downstream InPorts subscribed to this OutPort.
	Users []*Port
}

// NewPort builds a port with its default topic (namespace + name), honoring
// a declared `global` absolute topic override (spec.md §4.G "initialize_node_ports").
func NewPort(name, msgType string, direction Direction, namespace []string, global, remapTarget string) *Port {
	p := &Port{
		Name:        name,
		MsgType:     msgType,
		Namespace:   append([]string(nil), namespace...),
		Direction:   direction,
		RemapTarget: remapTarget,
	}
	if global != "" {
		p.IsGlobal = true
		p.Topic = strings.Split(strings.TrimPrefix(global, "/"), "/")
	} else {
		p.Topic = append(append([]string(nil), namespace...), name)
	}
	return p
}

// PortPath renders "/{namespace...}/{direction}/{name}" (spec.md §3).
func (p *Port) PortPath() string {
	segments := append(append([]string(nil), p.Namespace...), string(p.Direction), p.Name)
	return "/" + strings.Join(segments, "/")
}

// TopicStr renders the port's current topic as an absolute ROS topic name.
func (p *Port) TopicStr() string {
	return "/" + strings.Join(p.Topic, "/")
}

func sameTopic(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// SetTopic assigns topic and propagates it: an OutPort pushes to every
// subscribed User; an InPort pushes down through its Reference chain.
// Re-assigning the same topic is a no-op (spec.md §4.G: "idempotent").
func (p *Port) SetTopic(topic []string) {
	if sameTopic(p.Topic, topic) {
		return
	}
	p.Topic = topic

	if p.Direction == DirectionOutput {
		for _, u := range p.Users {
			u.SetTopic(topic)
		}
		return
	}
	for _, ref := range p.Reference {
		ref.SetTopic(topic)
	}
}

// AddReference links a composite port to one of its internal expansions,
// enforcing the OutPort ≤ 1 reference invariant.
func (p *Port) AddReference(inner *Port) error {
	if p.Direction == DirectionOutput && len(p.Reference) >= 1 {
		return errors.New(errors.ErrCodeTypeMismatch, fmt.Sprintf("%s already has a publisher; at most one reference is allowed on an output port", p.PortPath()))
	}
	p.Reference = append(p.Reference, inner)
	return nil
}
