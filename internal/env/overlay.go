package env

import "strings"

// Overlay returns a deep copy of values with the override layers applied on
// top: first the extra values mapping, then dot-path vars. The input maps
// are never mutated; charts in a plan stay read-only during deployment.
func Overlay(values, extra map[string]any, vars Vars) map[string]any {
	out := deepCopy(values)
	if out == nil {
		out = make(map[string]any)
	}
	for k, v := range extra {
		out[k] = deepCopyValue(v)
	}
	for key, value := range vars {
		setPath(out, key, value)
	}
	return out
}

// setPath writes value at a dot-separated key path, creating intermediate
// maps as needed. A non-map value on the path is replaced by a map.
func setPath(values map[string]any, path, value string) {
	cur := values
	for {
		dot := strings.IndexByte(path, '.')
		if dot < 0 {
			cur[path] = value
			return
		}
		head, rest := path[:dot], path[dot+1:]
		next, ok := cur[head].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[head] = next
		}
		cur = next
		path = rest
	}
}

// deepCopy clones a values mapping recursively.
func deepCopy(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

// deepCopyValue clones nested maps and slices; scalars pass through.
func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopy(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}
