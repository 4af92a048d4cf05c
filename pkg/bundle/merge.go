package bundle

import (
	"encoding/json"

	"github.com/honeybbq/uci/pkg/ucierrors"
)

// DefaultIdentifiers are the field names used to match array elements
// during a template merge. Two array elements are the same element if any
// of these fields match, checked in order.
var DefaultIdentifiers = []string{"name", "config_value", "id"}

// MergeJSON layers several NetJSON documents, later ones overriding
// earlier ones. Scalars are replaced, objects merged recursively, and
// arrays merged by identifier so a device layer can refine a template's
// interface without redeclaring it. Pass nil identifiers for the default
// set.
func MergeJSON(configs [][]byte, identifiers []string) ([]byte, error) {
	if len(configs) == 0 {
		return nil, ucierrors.Newf(ucierrors.KindInvalid, "no configs to merge")
	}
	if identifiers == nil {
		identifiers = DefaultIdentifiers
	}

	var layers []map[string]any
	for i, cfg := range configs {
		var m map[string]any
		if err := json.Unmarshal(cfg, &m); err != nil {
			return nil, ucierrors.Newf(ucierrors.KindInvalid, "unmarshal config[%d]: %v", i, err)
		}
		layers = append(layers, m)
	}

	result := make(map[string]any)
	for _, layer := range layers {
		result = deepMerge(result, layer, identifiers)
	}
	return json.Marshal(result)
}

func deepMerge(base, override map[string]any, identifiers []string) map[string]any {
	if base == nil {
		return deepCopy(override)
	}
	if override == nil {
		return deepCopy(base)
	}

	result := deepCopy(base)
	for key, overrideVal := range override {
		baseVal, exists := result[key]
		if !exists {
			result[key] = deepCopyValue(overrideVal)
			continue
		}
		switch overrideVal := overrideVal.(type) {
		case map[string]any:
			if baseMap, ok := baseVal.(map[string]any); ok {
				result[key] = deepMerge(baseMap, overrideVal, identifiers)
			} else {
				result[key] = deepCopyValue(overrideVal)
			}
		case []any:
			if baseSlice, ok := baseVal.([]any); ok {
				result[key] = mergeSlices(baseSlice, overrideVal, identifiers)
			} else {
				result[key] = deepCopySlice(overrideVal)
			}
		default:
			result[key] = overrideVal
		}
	}
	return result
}

func mergeSlices(base, override []any, identifiers []string) []any {
	if len(base) == 0 {
		return deepCopySlice(override)
	}
	if len(override) == 0 {
		return deepCopySlice(base)
	}

	baseIndex := make(map[any]int)
	for i, el := range base {
		if m, ok := el.(map[string]any); ok {
			if id := extractIdentifier(m, identifiers); id != nil {
				baseIndex[id] = i
			}
		}
	}

	result := deepCopySlice(base)
	for _, overrideEl := range override {
		if isDuplicate(result, overrideEl) {
			continue
		}
		if m, ok := overrideEl.(map[string]any); ok {
			if id := extractIdentifier(m, identifiers); id != nil {
				if idx, found := baseIndex[id]; found {
					if baseMap, ok := result[idx].(map[string]any); ok {
						result[idx] = deepMerge(baseMap, m, identifiers)
						continue
					}
				}
			}
		}
		result = append(result, deepCopyValue(overrideEl))
	}
	return result
}

func extractIdentifier(m map[string]any, identifiers []string) any {
	for _, key := range identifiers {
		if val, ok := m[key]; ok && val != nil && val != "" {
			return val
		}
	}
	return nil
}

// isDuplicate reports whether an equal element is already present, using
// JSON serialization for deep equality.
func isDuplicate(slice []any, el any) bool {
	elJSON, err := json.Marshal(el)
	if err != nil {
		return false
	}
	for _, item := range slice {
		itemJSON, err := json.Marshal(item)
		if err != nil {
			continue
		}
		if string(elJSON) == string(itemJSON) {
			return true
		}
	}
	return false
}

func deepCopy(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = deepCopyValue(v)
	}
	return result
}

func deepCopySlice(s []any) []any {
	if s == nil {
		return nil
	}
	result := make([]any, len(s))
	for i, v := range s {
		result[i] = deepCopyValue(v)
	}
	return result
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopy(val)
	case []any:
		return deepCopySlice(val)
	default:
		return val
	}
}
