// Package tree implements the deployment instance tree (spec.md §3, §4.F):
// Instance, Port, Link and Parameter, plus the set_system build pipeline
// that recursively instantiates a System into a tree of Module/Node
// instances.
package tree

import (
	"fmt"
	"strings"

	"github.com/davidthor/asdesigner/pkg/design"
	"github.com/davidthor/asdesigner/pkg/errors"
	"github.com/davidthor/asdesigner/pkg/substitute"
)

// EntityType tags what kind of design entity an Instance was created from.
type EntityType string

const (
	EntityTypeSystem EntityType = "system"
	EntityTypeModule EntityType = "module"
	EntityTypeNode   EntityType = "node"
)

// MaxLayer is the module-recursion depth ceiling (spec.md §3 invariant
// "layer ≤ 50").
const MaxLayer = 50

// Instance is one node of the deployment instance tree.
type Instance struct {
	Name        string
	Namespace   []string
	ComputeUnit string
	Layer       int
	EntityType  EntityType
	Config      *design.Config

	Parent   *Instance
	Children map[string]*Instance
	order    []string

	// ParentModuleList is the include-stack of "{name}.module" entity ids
	// currently being expanded, the cycle guard for module recursion
	// (spec.md §4.F).
	ParentModuleList []string

	Resolver *substitute.Resolver

	// Ports and Links are populated by the link resolver (pkg/link) for
	// module/system instances, and by initialize_node_ports for nodes.
	Ports map[string]*Port
	Links []*Link

	Parameters     []*Parameter
	ParameterFiles []*ParameterFile

	// ParameterSetRef is the `parameter_set` named on the System component
	// or Module instance that produced this Instance, if any (spec.md §4.H
	// "Per-component parameter_set applies with OVERRIDE_FILE/OVERRIDE").
	ParameterSetRef string

	// Warnings collects non-fatal diagnostics raised while resolving this
	// instance's connections (system-context missing endpoints, wildcard
	// patterns with no matches) — spec.md §4.G's "warn-and-skip" path.
	Warnings []string
}

// New creates an Instance. namespace/parentModuleList are copied so callers
// can keep mutating their own working slices.
func New(name string, parent *Instance, entityType EntityType, cfg *design.Config, namespace []string, layer int, parentModuleList []string) *Instance {
	return &Instance{
		Name:             name,
		Namespace:        append([]string(nil), namespace...),
		Layer:            layer,
		EntityType:       entityType,
		Config:           cfg,
		Parent:           parent,
		Children:         map[string]*Instance{},
		ParentModuleList: append([]string(nil), parentModuleList...),
		Ports:            map[string]*Port{},
	}
}

// NamespaceStr renders "/" + "/".join(namespace).
func (i *Instance) NamespaceStr() string {
	if len(i.Namespace) == 0 {
		return "/"
	}
	return "/" + strings.Join(i.Namespace, "/")
}

// AddChild registers child under i, preserving insertion order.
func (i *Instance) AddChild(child *Instance) {
	if _, exists := i.Children[child.Name]; !exists {
		i.order = append(i.order, child.Name)
	}
	i.Children[child.Name] = child
}

// OrderedChildren returns this instance's children in insertion order.
func (i *Instance) OrderedChildren() []*Instance {
	out := make([]*Instance, 0, len(i.order))
	for _, name := range i.order {
		out = append(out, i.Children[name])
	}
	return out
}

// portKey is the lookup key used by the link resolver's port_list maps:
// "" for this instance's own external interfaces, or the child's name.
func portKey(owner string, direction Direction, name string) string {
	return owner + "." + string(direction) + "." + name
}

// PortKey exposes portKey's format to pkg/link without requiring it to
// duplicate the key scheme.
func PortKey(owner string, direction Direction, name string) string {
	return portKey(owner, direction, name)
}

// RegisterPort stores p on this instance, keyed for the link resolver's
// candidate maps.
func (i *Instance) RegisterPort(owner string, p *Port) {
	i.Ports[portKey(owner, p.Direction, p.Name)] = p
}

// PushModuleGuard returns an error if entityID is already on the include
// stack (spec.md §4.F "cycle guard"), otherwise the extended stack.
func PushModuleGuard(stack []string, entityID string) ([]string, error) {
	for _, id := range stack {
		if id == entityID {
			return nil, errors.New(errors.ErrCodeCircularModule, fmt.Sprintf("circular module inclusion detected: %s", strings.Join(append(stack, entityID), " -> ")))
		}
	}
	return append(append([]string(nil), stack...), entityID), nil
}

// CheckLayer enforces the module-recursion depth ceiling.
func CheckLayer(layer int) error {
	if layer > MaxLayer {
		return errors.New(errors.ErrCodeValidation, fmt.Sprintf("module recursion exceeds layer limit of %d", MaxLayer))
	}
	return nil
}

// Walk visits i and every descendant in depth-first, insertion order.
func Walk(i *Instance, visit func(*Instance)) {
	visit(i)
	for _, child := range i.OrderedChildren() {
		Walk(child, visit)
	}
}
