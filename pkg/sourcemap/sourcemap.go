// Package sourcemap loads UTF-8 YAML design files and recovers a JSON-pointer
// style source map (spec.md §4.A): a mapping from a path like
// "/components/0/entity" to the 1-based {line, column} where that value
// starts in the original file. Every downstream resolver (schema validation,
// variant merge, substitution, parameter engine) carries this map so it can
// produce a precise errors.Location without re-parsing the file.
package sourcemap

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/davidthor/asdesigner/pkg/errors"
)

// Position is a 1-based line/column pair.
type Position struct {
	Line   int
	Column int
}

// Map is a JSON-pointer-path → Position index built by walking a yaml.Node
// tree. Keys use the same "~0"/"~1" escaping as RFC 6901 JSON Pointers.
type Map struct {
	entries map[string]Position
}

// Lookup returns the position recorded for yamlPath, if any.
func (m *Map) Lookup(yamlPath string) (Position, bool) {
	p, ok := m.entries[yamlPath]
	return p, ok
}

// Document is a parsed design file: its raw tree (as
// map[string]interface{}/[]interface{}/scalars, the shape every resolver in
// this module expects), its source map, and its absolute path.
type Document struct {
	Path string
	Tree interface{}
	Map  *Map
}

// Location builds an errors.Location for yamlPath within this document,
// leaving Line/Column at zero when the path isn't in the source map (the
// value was synthesized rather than read from the file).
func (d *Document) Location(yamlPath string) *errors.Location {
	loc := &errors.Location{File: d.Path, YAMLPath: yamlPath}
	if pos, ok := d.Map.Lookup(yamlPath); ok {
		loc.Line = pos.Line
		loc.Column = pos.Column
	}
	return loc
}

// cache is keyed by absolute path; a cache hit returns both the tree and the
// map without re-reading or re-parsing the file (spec.md §4.A).
var cache = map[string]*Document{}

// CacheEnabled mirrors AUTOWARE_SYSTEM_DESIGNER_CACHE_ENABLED; disabled in
// tests that mutate a file between loads.
var CacheEnabled = os.Getenv("AUTOWARE_SYSTEM_DESIGNER_CACHE_ENABLED") != "false"

// Load reads and parses path, returning a cached Document on a cache hit.
func Load(path string) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, "failed to resolve absolute path", err)
	}

	if CacheEnabled {
		if doc, ok := cache[abs]; ok {
			return doc, nil
		}
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, fmt.Sprintf("failed to read %s", path), err)
	}

	doc, err := Parse(data, abs)
	if err != nil {
		return nil, err
	}

	if CacheEnabled {
		cache[abs] = doc
	}
	return doc, nil
}

// Parse parses raw YAML bytes into a Document tagged with sourcePath,
// without touching the cache. Used for in-memory trees produced by variant
// resolution (those are never cached — they're derived, not loaded).
func Parse(data []byte, sourcePath string) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, fmt.Sprintf("failed to parse %s", sourcePath), err)
	}

	var tree interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, fmt.Sprintf("failed to parse %s", sourcePath), err)
	}
	tree = normalize(tree)

	m := &Map{entries: map[string]Position{}}
	if len(root.Content) > 0 {
		walk(root.Content[0], "", m)
	}

	return &Document{Path: sourcePath, Tree: tree, Map: m}, nil
}

// normalize converts yaml.v3's map[string]interface{} keys (already strings
// for YAML mappings with scalar keys) recursively so every nested map and
// sequence is plain Go data the rest of the module can type-switch on.
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}

// walk records the start position of every mapping, sequence and scalar
// node under a JSON-pointer path rooted at prefix.
func walk(node *yaml.Node, prefix string, m *Map) {
	if node == nil {
		return
	}

	m.entries[prefix] = Position{Line: node.Line, Column: node.Column}

	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) > 0 {
			walk(node.Content[0], prefix, m)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			key := node.Content[i]
			val := node.Content[i+1]
			childPath := prefix + "/" + escapeKey(key.Value)
			m.entries[childPath] = Position{Line: key.Line, Column: key.Column}
			walk(val, childPath, m)
		}
	case yaml.SequenceNode:
		for i, child := range node.Content {
			childPath := prefix + "/" + strconv.Itoa(i)
			walk(child, childPath, m)
		}
	case yaml.AliasNode:
		walk(node.Alias, prefix, m)
	}
}

// escapeKey applies RFC 6901 JSON Pointer escaping: "~" → "~0", "/" → "~1".
func escapeKey(key string) string {
	key = strings.ReplaceAll(key, "~", "~0")
	key = strings.ReplaceAll(key, "/", "~1")
	return key
}

// ClearCache drops every cached document. Exposed for tests and for the
// AUTOWARE_SYSTEM_DESIGNER_CACHE_ENABLED=false runtime path.
func ClearCache() {
	cache = map[string]*Document{}
}
