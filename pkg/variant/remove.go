package variant

import (
	"strings"

	"github.com/davidthor/asdesigner/pkg/design"
)

// ApplyRemove strips entries named by a `remove` block from tree's keyed
// list fields, and strips any connection referencing a removed
// component/instance by its endpoint's leading token before "."
// (spec.md §4.D: "the resolver also strips any connection whose from or to
// endpoint referenced the removed entity").
func ApplyRemove(kind design.Kind, tree map[string]interface{}, removeBlock map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(tree))
	for k, v := range tree {
		result[k] = v
	}

	removedNames := map[string]bool{}

	for field, removeVal := range removeBlock {
		keyField, ok := keyedListKey(kind, field)
		if !ok {
			continue
		}

		removeKeys := map[string]bool{}
		for _, item := range toSlice(removeVal) {
			m, ok := toStringMap(item)
			if !ok {
				continue
			}
			if key, ok := m[keyField].(string); ok {
				removeKeys[key] = true
				if field == "components" || field == "instances" {
					removedNames[key] = true
				}
			}
		}

		base := toSlice(result[field])
		filtered := make([]interface{}, 0, len(base))
		for _, item := range base {
			m, ok := toStringMap(item)
			if ok {
				if key, ok := m[keyField].(string); ok && removeKeys[key] {
					continue
				}
			}
			filtered = append(filtered, item)
		}
		result[field] = filtered
	}

	if len(removedNames) > 0 {
		result["connections"] = stripOrphanConnections(toSlice(result["connections"]), removedNames)
	}

	return result
}

// stripOrphanConnections drops any connection whose from/to endpoint's
// leading dotted token names a removed entity.
func stripOrphanConnections(conns []interface{}, removed map[string]bool) []interface{} {
	out := make([]interface{}, 0, len(conns))
	for _, c := range conns {
		m, ok := toStringMap(c)
		if !ok {
			out = append(out, c)
			continue
		}
		from, _ := m["from"].(string)
		to, _ := m["to"].(string)
		if endpointReferencesRemoved(from, removed) || endpointReferencesRemoved(to, removed) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func endpointReferencesRemoved(endpoint string, removed map[string]bool) bool {
	if endpoint == "" {
		return false
	}
	leading := strings.SplitN(endpoint, ".", 2)[0]
	return removed[leading]
}
