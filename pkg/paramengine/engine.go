// Package paramengine implements the parameter layering system (spec.md
// §4.H): initializing a node's default parameters/files, applying
// parameter-set overrides, and finalizing outstanding substitutions once
// topics are known.
package paramengine

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/davidthor/asdesigner/pkg/design"
	"github.com/davidthor/asdesigner/pkg/errors"
	"github.com/davidthor/asdesigner/pkg/substitute"
	"github.com/davidthor/asdesigner/pkg/tree"
)

// Registry is the subset of pkg/registry.Registry the parameter engine
// needs for package-share path resolution, expressed as an interface so
// this package never imports pkg/registry.
type Registry interface {
	GetPackageSourcePath(pkg string) (string, bool)
	DeploymentPackageName() string
}

// Engine applies and finalizes node parameters.
type Engine struct {
	Registry Registry
}

func New(registry Registry) *Engine {
	return &Engine{Registry: registry}
}

// InitializeNodeDefaults populates node's DEFAULT/DEFAULT_FILE parameters
// from its own Config.Node declaration (spec.md §4.H, priorities
// DEFAULT/DEFAULT_FILE).
func (e *Engine) InitializeNodeDefaults(node *tree.Instance) error {
	if node.EntityType != tree.EntityTypeNode {
		return nil
	}
	for _, spec := range node.Config.Node.Parameters {
		value, err := coerce(spec.Resolved(), spec.Type)
		if err != nil {
			return errors.ParameterConfigurationError(node.Name, err.Error())
		}
		node.Parameters = append(node.Parameters, &tree.Parameter{
			Name: spec.Name, Value: value, DataType: spec.Type, Priority: tree.PriorityDefault,
		})
	}
	for _, fileSpec := range node.Config.Node.ParameterFiles {
		if err := e.applyFile(node, node.Resolver, fileSpec, tree.PriorityDefaultFile); err != nil {
			return err
		}
	}
	return nil
}

// ApplyParameterSet applies one ParameterSetConfig entry targeting a node
// namespace (spec.md §4.H "Application to a node"). namespaceCheck disabled
// means every node in root's subtree is targeted regardless of entry.Node
// (used for system-level parameter_sets per §4.H "Parameter-set
// application"). When the set declares `local_variables`, a scoped clone
// of root's resolver is used for this set's own substitutions only,
// leaving root.Resolver (and everything else sharing it) untouched.
func (e *Engine) ApplyParameterSet(root *tree.Instance, set *design.Config, fileType, directType tree.ParameterPriority, namespaceCheck bool) error {
	if set.Kind != design.KindParameterSet {
		return errors.ValidationError(fmt.Sprintf("%s is not a parameter_set", set.FullName), nil)
	}

	resolver := root.Resolver
	if len(set.ParameterSet.LocalVariables) > 0 && resolver != nil {
		resolver = resolver.WithVariables(set.ParameterSet.LocalVariables)
	}

	for _, entry := range set.ParameterSet.Parameters {
		if err := e.applyEntry(root, resolver, entry, fileType, directType, namespaceCheck); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) applyEntry(root *tree.Instance, resolver *substitute.Resolver, entry design.ParameterSetEntry, fileType, directType tree.ParameterPriority, namespaceCheck bool) error {
	var targets []*tree.Instance
	tree.Walk(root, func(i *tree.Instance) {
		if i.EntityType != tree.EntityTypeNode {
			return
		}
		if !namespaceCheck || entry.Node == "" || entry.Node == "/" || i.NamespaceStr() == entry.Node {
			targets = append(targets, i)
		}
	})

	for _, node := range targets {
		for _, fileSpec := range entry.ParameterFiles {
			if err := e.applyFile(node, resolver, fileSpec, fileType); err != nil {
				return err
			}
		}
		for _, spec := range entry.Parameters {
			value, err := coerce(spec.Resolved(), spec.Type)
			if err != nil {
				return errors.ParameterConfigurationError(node.Name, err.Error())
			}
			node.Parameters = append(node.Parameters, &tree.Parameter{
				Name: spec.Name, Value: value, DataType: spec.Type, Priority: directType, IsOverride: true,
			})
		}
	}
	return nil
}

func (e *Engine) applyFile(node *tree.Instance, resolver *substitute.Resolver, spec design.ParameterFileSpec, priority tree.ParameterPriority) error {
	resolvedPath, warnings := e.resolvePath(node, resolver, spec)
	node.Warnings = append(node.Warnings, warnings...)

	node.ParameterFiles = append(node.ParameterFiles, &tree.ParameterFile{
		Name: spec.Name, Path: resolvedPath, Priority: priority,
		AllowSubsts: spec.AllowSubsts, IsOverride: spec.IsOverride,
	})

	data, err := os.ReadFile(resolvedPath)
	if err != nil {
		// A missing file surfaces downstream at launch time, not here
		// (spec.md §4.H path-resolution step 4).
		return nil
	}
	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errors.ParseError(resolvedPath, err)
	}

	flat := flattenParams(doc, node.Name)
	names := make([]string, 0, len(flat))
	for name := range flat {
		names = append(names, name)
	}
	for _, name := range names {
		node.Parameters = append(node.Parameters, &tree.Parameter{
			Name: name, Value: flat[name], Priority: priority, Source: resolvedPath,
		})
	}
	return nil
}

func flattenParams(doc map[string]interface{}, nodeName string) map[string]interface{} {
	out := map[string]interface{}{}
	for key, val := range doc {
		if key != "/**" && key != "/"+nodeName && key != nodeName {
			continue
		}
		block, ok := val.(map[string]interface{})
		if !ok {
			continue
		}
		params, ok := block["ros__parameters"].(map[string]interface{})
		if !ok {
			continue
		}
		flattenInto(out, "", params)
	}
	return out
}

func flattenInto(out map[string]interface{}, prefix string, m map[string]interface{}) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]interface{}); ok {
			flattenInto(out, key, nested)
			continue
		}
		out[key] = v
	}
}

// resolvePath implements spec.md §4.H's 4-step parameter-file path
// resolution. Returns the chosen path and any warnings worth recording.
func (e *Engine) resolvePath(node *tree.Instance, resolver *substitute.Resolver, spec design.ParameterFileSpec) (string, []string) {
	raw := spec.Path()
	var warnings []string
	if resolver != nil {
		resolved, warns := resolver.Resolve(raw)
		raw = resolved
		warnings = append(warnings, warns...)
	}

	if filepath.IsAbs(raw) {
		return raw, warnings
	}
	if spec.IsOverride {
		return raw, warnings
	}

	pkg := node.Config.Node.PackageName
	if pkg == "" || resolver == nil {
		return raw, warnings
	}
	if sharePath, ok := resolver.PackagePaths[pkg]; ok {
		candidate := filepath.Join(sharePath, raw)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, warnings
		}
	}

	if e.Registry != nil && pkg == e.Registry.DeploymentPackageName() {
		if sourcePath, ok := e.Registry.GetPackageSourcePath(pkg); ok {
			if root, ok := findWorkspaceRoot(sourcePath); ok {
				return filepath.Join(root, "install", pkg, "share", pkg, raw), warnings
			}
		}
	}

	if sharePath, ok := resolver.PackagePaths[pkg]; ok {
		return filepath.Join(sharePath, raw), warnings
	}
	return raw, warnings
}

// findWorkspaceRoot walks up from dir looking for a directory containing
// both "src" and "install" subdirectories.
func findWorkspaceRoot(dir string) (string, bool) {
	for {
		if isDir(filepath.Join(dir, "src")) && isDir(filepath.Join(dir, "install")) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Finalize satisfies tree.ParameterFinalizer: resolves outstanding
// substitutions in a node's parameters and parameter-file paths now that
// its topics are known (spec.md §4.F step 6).
func (e *Engine) Finalize(node *tree.Instance) error {
	if node.EntityType != tree.EntityTypeNode || node.Resolver == nil {
		return nil
	}
	node.Resolver.LookupPort = func(direction, port string) (string, bool) {
		var dir tree.Direction
		if direction == "input" {
			dir = tree.DirectionInput
		} else {
			dir = tree.DirectionOutput
		}
		p, ok := node.Ports[tree.PortKey("", dir, port)]
		if !ok {
			return "", false
		}
		return p.TopicStr(), true
	}
	node.Resolver.LookupParam = func(name string) (interface{}, bool) {
		for _, p := range node.Parameters {
			if p.Name == name {
				return p.Value, true
			}
		}
		return nil, false
	}

	for _, p := range node.Parameters {
		if s, ok := p.Value.(string); ok {
			resolved, warns := node.Resolver.Resolve(s)
			p.Value = resolved
			node.Warnings = append(node.Warnings, warns...)
		}
	}
	for _, pf := range node.ParameterFiles {
		resolved, warns := node.Resolver.Resolve(pf.Path)
		pf.Path = resolved
		node.Warnings = append(node.Warnings, warns...)
	}
	return nil
}

// coerce validates and normalizes a declared value against a parameter's
// spec.md-closed type set, rejecting values that don't belong to it (e.g.
// a textual float like "1.0" for an "int" — spec.md REDESIGN FLAGS
// "parameter coercion").
func coerce(value interface{}, dataType string) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	switch dataType {
	case "int":
		return coerceInt(value)
	case "double":
		return coerceFloat(value)
	case "bool":
		return coerceBool(value)
	case "string", "directory":
		return fmt.Sprint(value), nil
	case "int_array", "double_array", "string_array", "bool_array":
		return coerceArray(value, strings.TrimSuffix(dataType, "_array"))
	default:
		return value, nil
	}
}

func coerceInt(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int64(v)) {
			return nil, fmt.Errorf("value %v is not a valid int", v)
		}
		return int(v), nil
	case string:
		if strings.ContainsAny(v, ".eE") {
			return nil, fmt.Errorf("value %q is not a valid int", v)
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("value %q is not a valid int", v)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("value %v is not a valid int", v)
	}
}

func coerceFloat(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q is not a valid double", v)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("value %v is not a valid double", v)
	}
}

func coerceBool(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("value %q is not a valid bool", v)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("value %v is not a valid bool", v)
	}
}

func coerceArray(value interface{}, elemType string) (interface{}, error) {
	items, ok := value.([]interface{})
	if !ok {
		return nil, fmt.Errorf("value %v is not a valid array", value)
	}
	out := make([]interface{}, len(items))
	for i, item := range items {
		coerced, err := coerce(item, elemType)
		if err != nil {
			return nil, err
		}
		out[i] = coerced
	}
	return out, nil
}
