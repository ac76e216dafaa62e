package agent

import "maps"

// Apply folds state directives into state from left to right and returns
// the new state together with every non-state directive, in order. The
// input map is never modified.
func Apply(state map[string]any, directives []Directive) (map[string]any, []Directive) {
	next := maps.Clone(state)
	if next == nil {
		next = make(map[string]any)
	}

	var leftover []Directive
	for _, d := range directives {
		switch d := d.(type) {
		case nil:
			continue
		case SetState:
			next = Merge(next, d.Patch)
		case ReplaceState:
			next = maps.Clone(d.State)
			if next == nil {
				next = make(map[string]any)
			}
		case DeleteKeys:
			for _, k := range d.Keys {
				delete(next, k)
			}
		case SetPath:
			next = setPath(next, d.Path, d.Value)
		case DeletePath:
			next, _ = deletePath(next, d.Path)
		default:
			leftover = append(leftover, d)
		}
	}
	return next, leftover
}

// Merge returns a new map with patch shallow-merged over base; patch keys win.
func Merge(base, patch map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(patch))
	maps.Copy(out, base)
	maps.Copy(out, patch)
	return out
}

// setPath copies every map on the way down so that nested maps shared
// with earlier snapshots are never written to.
func setPath(state map[string]any, path []string, value any) map[string]any {
	if len(path) == 0 {
		return state
	}
	out := maps.Clone(state)
	if out == nil {
		out = make(map[string]any)
	}
	if len(path) == 1 {
		out[path[0]] = value
		return out
	}
	child, _ := out[path[0]].(map[string]any)
	out[path[0]] = setPath(child, path[1:], value)
	return out
}

func deletePath(state map[string]any, path []string) (map[string]any, bool) {
	if len(path) == 0 || state == nil {
		return state, false
	}
	current, ok := state[path[0]]
	if !ok {
		return state, false
	}
	if len(path) == 1 {
		out := maps.Clone(state)
		delete(out, path[0])
		return out, true
	}
	child, ok := current.(map[string]any)
	if !ok {
		return state, false
	}
	updated, changed := deletePath(child, path[1:])
	if !changed {
		return state, false
	}
	out := maps.Clone(state)
	out[path[0]] = updated
	return out, true
}

// GetPath returns the value at a nested path.
func GetPath(state map[string]any, path []string) (any, bool) {
	var current any = state
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// CloneState deep-copies nested maps and slices so the result shares no
// mutable structure with the original.
func CloneState(state map[string]any) map[string]any {
	if state == nil {
		return nil
	}
	out := make(map[string]any, len(state))
	for k, v := range state {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return CloneState(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), v...)
	default:
		return v
	}
}
