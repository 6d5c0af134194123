// Package design implements the Config sum type (spec.md §3) and the
// per-kind YAML parsing that produces it: Node, Module, ParameterSet and
// System. A Config never subtypes the others — callers type-switch on Kind
// (and, through that, Config.Node / Config.Module / Config.ParameterSet /
// Config.System, exactly one of which is non-nil).
package design

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/davidthor/asdesigner/pkg/errors"
	"github.com/davidthor/asdesigner/pkg/sourcemap"
)

// Kind identifies which of the four entity variants a Config carries.
type Kind string

const (
	KindNode         Kind = "node"
	KindModule       Kind = "module"
	KindParameterSet Kind = "parameter_set"
	KindSystem       Kind = "system"
)

// FileSuffix returns the design-file suffix for this kind, e.g. ".node.yaml".
func (k Kind) FileSuffix() string {
	switch k {
	case KindNode:
		return ".node.yaml"
	case KindModule:
		return ".module.yaml"
	case KindParameterSet:
		return ".parameter_set.yaml"
	case KindSystem:
		return ".system.yaml"
	default:
		return ""
	}
}

// SubType distinguishes a config that stands alone (Base) from one that
// references another config via `base:` and carries only override/remove
// rules (Variant).
type SubType string

const (
	SubTypeBase    SubType = "base"
	SubTypeVariant SubType = "variant"
)

// PackageResolution tags how a Node's package was resolved by the registry
// (spec.md §4.C.2). None means the entity isn't a Node or resolution hasn't
// run yet.
type PackageResolution string

const (
	PackageResolutionNone      PackageResolution = ""
	PackageResolutionSource    PackageResolution = "source"
	PackageResolutionInstalled PackageResolution = "installed"
)

// Config is the tagged sum described in spec.md §3. Shared fields are
// promoted to the top level; exactly one of Node/Module/ParameterSet/System
// is populated, selected by Kind.
type Config struct {
	Name     string
	Kind     Kind
	FullName string // "{name}.{kind}"
	FilePath string
	Package  string

	Doc *sourcemap.Document // retained so resolvers can build errors.Location

	SubType SubType
	Base    string // populated when SubType == SubTypeVariant; the `base:` reference

	// Raw is the file's decoded YAML tree (map[string]interface{} at the
	// root), retained verbatim so the variant resolver and parameter engine
	// can walk override/remove blocks by yaml_path without re-parsing.
	Raw map[string]interface{}

	Node         *NodeConfig
	Module       *ModuleConfig
	ParameterSet *ParameterSetConfig
	System       *SystemConfig
}

// Location builds an errors.Location for a yaml_path inside this config's
// source file.
func (c *Config) Location(yamlPath string) *errors.Location {
	if c.Doc == nil {
		return &errors.Location{File: c.FilePath, YAMLPath: yamlPath}
	}
	return c.Doc.Location(yamlPath)
}

// Clone copies the Config for the mode resolver and variant resolution: the
// raw tree is deep-copied (deepCopyMap), a System spec is copied through
// SystemConfig.clone, and a Node/Module/ParameterSet spec gets fresh copies
// of its top-level list fields. Values nested below those lists (for
// example Launch.Args, a ParameterSetEntry's own lists, and a Node's or
// Module's Override/Remove maps) are shared with the original.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Raw = deepCopyMap(c.Raw)

	switch c.Kind {
	case KindNode:
		n := *c.Node
		n.Inputs = append([]Port(nil), c.Node.Inputs...)
		n.Outputs = append([]Port(nil), c.Node.Outputs...)
		n.ParameterFiles = append([]ParameterFileSpec(nil), c.Node.ParameterFiles...)
		n.Parameters = append([]ParameterSpec(nil), c.Node.Parameters...)
		n.Processes = append([]string(nil), c.Node.Processes...)
		clone.Node = &n
	case KindModule:
		m := *c.Module
		m.Instances = append([]Instance(nil), c.Module.Instances...)
		m.Connections = append([]Connection(nil), c.Module.Connections...)
		m.ExternalInterfaces = ExternalInterfaces{
			Input:  append([]Port(nil), c.Module.ExternalInterfaces.Input...),
			Output: append([]Port(nil), c.Module.ExternalInterfaces.Output...),
		}
		clone.Module = &m
	case KindParameterSet:
		p := *c.ParameterSet
		p.Parameters = append([]ParameterSetEntry(nil), c.ParameterSet.Parameters...)
		clone.ParameterSet = &p
	case KindSystem:
		s := c.System.clone()
		clone.System = s
	}
	return &clone
}

func deepCopyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}

// Load parses a design file and returns its Config. The kind is inferred
// from the file suffix (spec.md §6).
func Load(path string) (*Config, error) {
	kind, err := KindFromPath(path)
	if err != nil {
		return nil, err
	}

	doc, err := sourcemap.Load(path)
	if err != nil {
		return nil, err
	}

	return FromDocument(doc, kind)
}

// KindFromPath infers a Kind from a design file's suffix.
func KindFromPath(path string) (Kind, error) {
	switch {
	case strings.HasSuffix(path, ".node.yaml"):
		return KindNode, nil
	case strings.HasSuffix(path, ".module.yaml"):
		return KindModule, nil
	case strings.HasSuffix(path, ".parameter_set.yaml"):
		return KindParameterSet, nil
	case strings.HasSuffix(path, ".system.yaml"):
		return KindSystem, nil
	default:
		return "", errors.New(errors.ErrCodeParse, fmt.Sprintf("unrecognized design file suffix: %s", path))
	}
}

// decodeSpec re-marshals raw to YAML bytes and decodes it into the
// yaml-tagged struct matching cfg.Kind, wiring the result into cfg's
// Node/Module/ParameterSet/System field. Used both when loading a file the
// first time and when the variant resolver replaces a Config's raw tree
// with a merged one.
func decodeSpec(cfg *Config, raw map[string]interface{}) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return errors.Wrap(errors.ErrCodeParse, "failed to re-marshal design file tree", err)
	}

	switch cfg.Kind {
	case KindNode:
		var spec NodeConfig
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return errors.Wrap(errors.ErrCodeParse, fmt.Sprintf("%s: invalid node schema", cfg.FilePath), err)
		}
		cfg.Node = &spec
	case KindModule:
		var spec ModuleConfig
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return errors.Wrap(errors.ErrCodeParse, fmt.Sprintf("%s: invalid module schema", cfg.FilePath), err)
		}
		cfg.Module = &spec
	case KindParameterSet:
		var spec ParameterSetConfig
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return errors.Wrap(errors.ErrCodeParse, fmt.Sprintf("%s: invalid parameter_set schema", cfg.FilePath), err)
		}
		cfg.ParameterSet = &spec
	case KindSystem:
		var spec SystemConfig
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return errors.Wrap(errors.ErrCodeParse, fmt.Sprintf("%s: invalid system schema", cfg.FilePath), err)
		}
		cfg.System = &spec
	}
	return nil
}

// ReplaceRaw swaps in a merged raw tree (produced by the variant resolver)
// and re-decodes the typed spec from it, leaving identity fields
// (Name/FullName/FilePath/Package/SubType) untouched — callers set those
// explicitly to the variant's values per spec.md §4.D.
func (c *Config) ReplaceRaw(raw map[string]interface{}) error {
	c.Raw = raw
	return decodeSpec(c, raw)
}

// FromDocument builds a Config of the given kind from an already-parsed
// sourcemap.Document.
func FromDocument(doc *sourcemap.Document, kind Kind) (*Config, error) {
	root, ok := doc.Tree.(map[string]interface{})
	if !ok {
		return nil, errors.New(errors.ErrCodeParse, fmt.Sprintf("%s: root must be a mapping", doc.Path)).At(doc.Location(""))
	}

	cfg := &Config{
		Kind:     kind,
		FilePath: doc.Path,
		Doc:      doc,
		Raw:      root,
	}

	if base, ok := root["base"].(string); ok && base != "" {
		cfg.SubType = SubTypeVariant
		cfg.Base = base
	} else {
		cfg.SubType = SubTypeBase
	}

	name, _ := root["name"].(string)
	cfg.Name = name
	cfg.FullName = fmt.Sprintf("%s.%s", name, kind)

	// decodeSpec re-marshals the generic tree to bytes so the typed,
	// yaml-tagged per-kind structs can be decoded with gopkg.in/yaml.v3 the
	// normal way, instead of hand-rolling map[string]interface{} field
	// extraction for every field.
	if err := decodeSpec(cfg, root); err != nil {
		return nil, err
	}

	return cfg, nil
}
