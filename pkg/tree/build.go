package tree

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/davidthor/asdesigner/pkg/design"
	"github.com/davidthor/asdesigner/pkg/errors"
	"github.com/davidthor/asdesigner/pkg/substitute"
)

// Registry is the subset of pkg/registry.Registry the tree builder needs,
// expressed as an interface to avoid an import cycle (pkg/registry never
// imports pkg/tree).
type Registry interface {
	GetEntity(ref string) (*design.Config, error)
	GetModule(name string) (*design.Config, error)
	GetNode(name string) (*design.Config, error)
	GetSystem(name string) (*design.Config, error)
	GetParameterSet(name string) (*design.Config, error)
}

// LinkResolver runs connection resolution (spec.md §4.G) on one composite
// instance. Implemented by pkg/link.
type LinkResolver interface {
	Resolve(instance *Instance, registry Registry) error
}

// ParameterEngine seeds a node's own default parameters, applies a
// parameter-set's files/values to every node in a subtree matching its
// targeting rule, and resolves outstanding substitutions once topics are
// known (spec.md §4.H, §4.F step 6). Implemented by pkg/paramengine.
type ParameterEngine interface {
	InitializeNodeDefaults(node *Instance) error
	ApplyParameterSet(root *Instance, set *design.Config, fileType, directType ParameterPriority, namespaceCheck bool) error
	Finalize(instance *Instance) error
}

// SnapshotFunc is invoked after every set_system step, on both success and
// error, for crash-diagnostic purposes (spec.md §4.F, SPEC_FULL.md §9.5:
// "every pipeline step, not just failure").
type SnapshotFunc func(instance *Instance, step string, err error)

// Options configures a SetSystem build.
type Options struct {
	Registry     Registry
	PackagePaths map[string]string
	Links        LinkResolver
	Parameters   ParameterEngine
	Snapshot     SnapshotFunc
}

func (o Options) snapshot(instance *Instance, step string, err error) {
	if o.Snapshot != nil {
		o.Snapshot(instance, step, err)
	}
}

// SetSystem runs the instance-tree build pipeline (parse, propagate
// resolver, connections, events, parameters, validate, finalize) against an
// already system/mode-resolved Config (spec.md §4.F). root must be a fresh
// Instance with EntityType == EntityTypeSystem and Config == sys.
func SetSystem(root *Instance, sys *design.Config, opts Options) error {
	if err := parse(root, sys, opts); err != nil {
		opts.snapshot(root, "parse", err)
		return err
	}
	opts.snapshot(root, "parse", nil)

	propagateResolver(root)
	opts.snapshot(root, "propagate_resolver", nil)

	if err := resolveConnections(root, opts); err != nil {
		opts.snapshot(root, "connections", err)
		return err
	}
	opts.snapshot(root, "connections", nil)

	// Events/process-tree construction is a downstream concern outside this
	// pipeline's scope; the step still runs so the snapshot sequence matches
	// the original five(six)-step ordering.
	opts.snapshot(root, "events", nil)

	if err := applyParameters(root, sys, opts); err != nil {
		opts.snapshot(root, "parameters", err)
		return err
	}
	opts.snapshot(root, "parameters", nil)

	if err := validateNamespaces(root); err != nil {
		opts.snapshot(root, "validate", err)
		return err
	}
	opts.snapshot(root, "validate", nil)

	if err := finalizeParameters(root, opts); err != nil {
		opts.snapshot(root, "finalize", err)
		return err
	}
	opts.snapshot(root, "finalize", nil)

	return nil
}

func parse(root *Instance, sys *design.Config, opts Options) error {
	variables, err := loadVariables(sys, opts.PackagePaths)
	if err != nil {
		return err
	}
	root.Resolver = substitute.NewResolver(variables, opts.PackagePaths)

	for _, comp := range sys.System.Components {
		child, err := instantiate(root, comp.Name, comp.Entity, comp.ComputeUnit, comp.Namespace, opts)
		if err != nil {
			return err
		}
		child.ParameterSetRef = comp.ParameterSet
		root.AddChild(child)
	}
	return nil
}

// loadVariables merges a System's inline `variables` with every file in
// `variable_files` (flat key/value YAML documents), inline values winning
// on conflict.
func loadVariables(sys *design.Config, packagePaths map[string]string) (map[string]interface{}, error) {
	vars := map[string]interface{}{}
	for _, path := range sys.System.VariableFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeValidation, fmt.Sprintf("failed to read variable file %s", path), err)
		}
		var fileVars map[string]interface{}
		if err := yaml.Unmarshal(data, &fileVars); err != nil {
			return nil, errors.Wrap(errors.ErrCodeParse, fmt.Sprintf("invalid variable file %s", path), err)
		}
		for k, v := range fileVars {
			vars[k] = v
		}
	}
	for k, v := range sys.System.Variables {
		vars[k] = v
	}
	return vars, nil
}

// instantiate dispatches entityID ("X.node" | "X.module" | "X.system") to
// the matching child-construction path (spec.md §4.F step "parse").
func instantiate(parent *Instance, name, entityID, computeUnit, namespaceOverride string, opts Options) (*Instance, error) {
	idx := strings.LastIndex(entityID, ".")
	if idx < 0 {
		return nil, errors.ValidationError(fmt.Sprintf("malformed entity reference %q on %q", entityID, name), nil)
	}
	kind := design.Kind(entityID[idx+1:])

	namespace := append(append([]string(nil), parent.Namespace...), namespaceSegment(name, namespaceOverride)...)

	switch kind {
	case design.KindSystem:
		cfg, err := opts.Registry.GetEntity(entityID)
		if err != nil {
			return nil, err
		}
		child := New(name, parent, EntityTypeSystem, cfg, namespace, parent.Layer, parent.ParentModuleList)
		child.ComputeUnit = computeUnit
		if err := parse(child, cfg, opts); err != nil {
			return nil, err
		}
		return child, nil

	case design.KindModule:
		guard, err := PushModuleGuard(parent.ParentModuleList, entityID)
		if err != nil {
			return nil, err
		}
		cfg, err := opts.Registry.GetEntity(entityID)
		if err != nil {
			return nil, err
		}
		child := New(name, parent, EntityTypeModule, cfg, namespace, parent.Layer+1, guard)
		child.ComputeUnit = computeUnit
		if err := CheckLayer(child.Layer); err != nil {
			return nil, err
		}
		for _, inst := range cfg.Module.Instances {
			grandchild, err := instantiate(child, inst.Name, inst.Entity, "", "", opts)
			if err != nil {
				return nil, err
			}
			child.AddChild(grandchild)
		}
		return child, nil

	case design.KindNode:
		cfg, err := opts.Registry.GetEntity(entityID)
		if err != nil {
			return nil, err
		}
		child := New(name, parent, EntityTypeNode, cfg, namespace, parent.Layer, parent.ParentModuleList)
		child.ComputeUnit = computeUnit
		initializeNodePorts(child)
		return child, nil

	default:
		return nil, errors.ValidationError(fmt.Sprintf("unknown entity kind %q referenced by %q", kind, entityID), nil)
	}
}

func namespaceSegment(name, override string) []string {
	if override == "" {
		return []string{name}
	}
	return strings.Split(strings.Trim(override, "/"), "/")
}

// initializeNodePorts creates concrete InPort/OutPort objects for a node's
// declared inputs/outputs (spec.md §4.G "initialize_node_ports").
func initializeNodePorts(n *Instance) {
	for _, in := range n.Config.Node.Inputs {
		p := NewPort(in.Name, in.MessageType, DirectionInput, n.Namespace, in.Global, in.RemapTarget)
		n.Ports[portKey("", DirectionInput, in.Name)] = p
	}
	for _, out := range n.Config.Node.Outputs {
		p := NewPort(out.Name, out.MessageType, DirectionOutput, n.Namespace, out.Global, out.RemapTarget)
		n.Ports[portKey("", DirectionOutput, out.Name)] = p
	}
}

// propagateResolver re-assigns root's resolver to every instance in the
// subtree, including children created before the resolver existed
// (spec.md §4.F step 2).
func propagateResolver(root *Instance) {
	resolver := root.Resolver
	Walk(root, func(i *Instance) {
		i.Resolver = resolver
	})
}

func resolveConnections(root *Instance, opts Options) error {
	var resolveErr error
	Walk(root, func(i *Instance) {
		if resolveErr != nil || i.EntityType == EntityTypeNode {
			return
		}
		if err := opts.Links.Resolve(i, opts.Registry); err != nil {
			resolveErr = err
		}
	})
	return resolveErr
}

// validateNamespaces enforces unique node namespaces across the whole
// deployment (spec.md §3 invariant), except the root exemptions "" and "/".
func validateNamespaces(root *Instance) error {
	seen := map[string]string{}
	var dupErr error
	Walk(root, func(i *Instance) {
		if dupErr != nil || i.EntityType != EntityTypeNode {
			return
		}
		ns := i.NamespaceStr()
		if ns == "" || ns == "/" {
			return
		}
		if existing, ok := seen[ns]; ok {
			dupErr = errors.ValidationError(
				fmt.Sprintf("duplicate node namespace %q used by both %s and %s", ns, existing, i.Name),
				map[string]interface{}{"namespace": ns},
			)
			return
		}
		seen[ns] = i.Name
	})
	return dupErr
}

// applyParameters seeds every node's own defaults, then layers on each
// component's own `parameter_set` (OVERRIDE_FILE/OVERRIDE, namespace-
// checked against that component's own subtree) and finally the system's
// root-level `parameter_sets` table (MODE_FILE/MODE, namespace check
// disabled — spec.md §4.H "Parameter-set application").
func applyParameters(root *Instance, sys *design.Config, opts Options) error {
	if opts.Parameters == nil {
		return nil
	}

	var err error
	Walk(root, func(i *Instance) {
		if err != nil || i.EntityType != EntityTypeNode {
			return
		}
		err = opts.Parameters.InitializeNodeDefaults(i)
	})
	if err != nil {
		return err
	}

	for _, component := range root.OrderedChildren() {
		if component.ParameterSetRef == "" {
			continue
		}
		set, getErr := opts.Registry.GetParameterSet(component.ParameterSetRef)
		if getErr != nil {
			return getErr
		}
		if err := opts.Parameters.ApplyParameterSet(component, set, PriorityOverrideFile, PriorityOverride, true); err != nil {
			return err
		}
	}

	if len(sys.System.ParameterSets) > 0 {
		synthetic := &design.Config{
			Kind:         design.KindParameterSet,
			FullName:     sys.FullName + ".parameter_sets",
			ParameterSet: &design.ParameterSetConfig{Parameters: sys.System.ParameterSets},
		}
		if err := opts.Parameters.ApplyParameterSet(root, synthetic, PriorityModeFile, PriorityMode, false); err != nil {
			return err
		}
	}

	return nil
}

func finalizeParameters(root *Instance, opts Options) error {
	if opts.Parameters == nil {
		return nil
	}
	var err error
	Walk(root, func(i *Instance) {
		if err != nil || i.EntityType != EntityTypeNode {
			return
		}
		err = opts.Parameters.Finalize(i)
	})
	return err
}
