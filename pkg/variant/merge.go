// Package variant implements the base/variant composition engine (spec.md
// §4.D): deep inheritance-like overrides plus removals, applied on a
// deep-copied base so the parent Config is never observably mutated
// (spec.md's Testable Property 2).
package variant

import (
	"dario.cat/mergo"

	"github.com/davidthor/asdesigner/pkg/design"
)

// keyedListKey returns the field that keyed-merge entries of list field
// listKey are matched on, and whether listKey is a keyed list field at all
// for kind. Unkeyed list fields (connections) concatenate instead.
func keyedListKey(kind design.Kind, listKey string) (string, bool) {
	table := map[design.Kind]map[string]string{
		design.KindNode: {
			"inputs":          "name",
			"outputs":         "name",
			"parameter_files": "name",
			"parameters":      "name",
		},
		design.KindModule: {
			"instances": "name",
		},
		design.KindSystem: {
			"components":     "name",
			"modes":          "name",
			"parameter_sets": "node",
			"arguments":      "name",
		},
		design.KindParameterSet: {
			"parameters": "node",
		},
	}
	key, ok := table[kind][listKey]
	return key, ok
}

// isUnkeyedListField reports whether field is an unkeyed list field, whose
// base and override entries concatenate verbatim instead of being
// key-merged (spec.md §4.D: "Unkeyed list fields concatenate").
func isUnkeyedListField(field string) bool {
	return field == "connections" || field == "processes" || field == "variable_files"
}

// MergeOverride applies an `override` block onto a copy of base's top-level
// map using the per-kind merge rules in spec.md §4.D: keyed list fields
// replace same-key base items and append unknown keys; unkeyed list fields
// concatenate; everything else (including the node `launch` dict) is
// merged with dario.cat/mergo using override-wins semantics. Only the top
// level of base (and, in mergeMaps, the first level of a merged map) is
// copied; deeper values are shared with base, so callers pass a tree they
// own (Resolve and mode.Resolve pass a Clone's raw tree).
func MergeOverride(kind design.Kind, base, override map[string]interface{}) (map[string]interface{}, error) {
	result := make(map[string]interface{}, len(base))
	for k, v := range base {
		result[k] = v
	}

	for field, overrideVal := range override {
		if overrideVal == nil {
			delete(result, field)
			continue
		}

		baseVal := result[field]

		if keyField, ok := keyedListKey(kind, field); ok {
			merged, err := mergeKeyedList(keyField, toSlice(baseVal), toSlice(overrideVal))
			if err != nil {
				return nil, err
			}
			result[field] = merged
			continue
		}

		if isUnkeyedListField(field) {
			result[field] = append(toSlice(baseVal), toSlice(overrideVal)...)
			continue
		}

		baseMap, baseIsMap := toStringMap(baseVal)
		overrideMap, overrideIsMap := toStringMap(overrideVal)
		if baseIsMap && overrideIsMap {
			merged, err := mergeMaps(baseMap, overrideMap)
			if err != nil {
				return nil, err
			}
			result[field] = merged
			continue
		}

		// Scalars, arrays without a merge rule, and type mismatches: override
		// replaces base outright.
		result[field] = overrideVal
	}

	return result, nil
}

// mergeMaps deep-merges override onto a copy of base with override
// winning on conflicts, via dario.cat/mergo (this is the "launch dict is
// shallow-merged" case generalized to any non-list field).
func mergeMaps(base, override map[string]interface{}) (map[string]interface{}, error) {
	dst := make(map[string]interface{}, len(base))
	for k, v := range base {
		dst[k] = v
	}
	if err := mergo.Merge(&dst, override, mergo.WithOverride); err != nil {
		return nil, err
	}
	return dst, nil
}

// mergeKeyedList replaces base entries sharing an override entry's key
// value and appends override entries with unknown keys, preserving base's
// declaration order followed by newly-appended entries (spec.md §4.D,
// §5 ordering guarantees).
func mergeKeyedList(keyField string, base, override []interface{}) ([]interface{}, error) {
	order := make([]string, 0, len(base))
	byKey := make(map[string]interface{}, len(base))
	unkeyed := make([]interface{}, 0)

	for _, item := range base {
		m, ok := toStringMap(item)
		if !ok {
			unkeyed = append(unkeyed, item)
			continue
		}
		key, ok := m[keyField].(string)
		if !ok {
			unkeyed = append(unkeyed, item)
			continue
		}
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = item
	}

	for _, item := range override {
		m, ok := toStringMap(item)
		if !ok {
			unkeyed = append(unkeyed, item)
			continue
		}
		key, ok := m[keyField].(string)
		if !ok {
			unkeyed = append(unkeyed, item)
			continue
		}
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = item
	}

	result := make([]interface{}, 0, len(order)+len(unkeyed))
	for _, key := range order {
		result = append(result, byKey[key])
	}
	result = append(result, unkeyed...)
	return result, nil
}

func toSlice(v interface{}) []interface{} {
	if v == nil {
		return nil
	}
	if s, ok := v.([]interface{}); ok {
		return s
	}
	return nil
}

func toStringMap(v interface{}) (map[string]interface{}, bool) {
	if v == nil {
		return nil, false
	}
	if m, ok := v.(map[string]interface{}); ok {
		return m, true
	}
	return nil, false
}
