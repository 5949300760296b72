package value

import "strings"

// SplitFieldPath splits a dot-separated field-mask path into its segments.
// Each segment addresses one level of nesting into successive mapValue
// fields (§3, Field mask).
func SplitFieldPath(path string) []string {
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// GetField navigates a dotted field path through nested mapValues starting
// from root (normally a document's top-level fields map, wrapped as a Value
// via Map()). Returns the zero Value and false if any segment is missing or
// traverses through a non-map.
func GetField(root map[string]Value, path string) (Value, bool) {
	segs := SplitFieldPath(path)
	if len(segs) == 0 {
		return Value{}, false
	}
	cur := root
	for i, seg := range segs {
		v, ok := cur[seg]
		if !ok {
			return Value{}, false
		}
		if i == len(segs)-1 {
			return v, true
		}
		m, ok := v.AsMap()
		if !ok {
			return Value{}, false
		}
		cur = m
	}
	return Value{}, false
}

// SetField writes value at the dotted field path, creating intermediate
// mapValues as needed. Returns a new top-level fields map; root is not
// mutated in place.
func SetField(root map[string]Value, path string, val Value) map[string]Value {
	segs := SplitFieldPath(path)
	if len(segs) == 0 {
		return root
	}
	return setFieldRec(root, segs, val)
}

func setFieldRec(cur map[string]Value, segs []string, val Value) map[string]Value {
	out := make(map[string]Value, len(cur)+1)
	for k, v := range cur {
		out[k] = v
	}
	if len(segs) == 1 {
		out[segs[0]] = val
		return out
	}
	seg, rest := segs[0], segs[1:]
	var child map[string]Value
	if existing, ok := out[seg]; ok {
		if m, ok := existing.AsMap(); ok {
			child = m
		}
	}
	out[seg] = Map(setFieldRec(child, rest, val))
	return out
}

// DeleteField removes the value at the dotted field path, pruning no empty
// parents (Firestore semantics: an emptied nested map is kept, not removed).
func DeleteField(root map[string]Value, path string) map[string]Value {
	segs := SplitFieldPath(path)
	if len(segs) == 0 {
		return root
	}
	return deleteFieldRec(root, segs)
}

func deleteFieldRec(cur map[string]Value, segs []string) map[string]Value {
	out := make(map[string]Value, len(cur))
	for k, v := range cur {
		out[k] = v
	}
	if len(segs) == 1 {
		delete(out, segs[0])
		return out
	}
	seg, rest := segs[0], segs[1:]
	existing, ok := out[seg]
	if !ok {
		return out
	}
	m, ok := existing.AsMap()
	if !ok {
		return out
	}
	out[seg] = Map(deleteFieldRec(m, rest))
	return out
}

// MergeMask copies only the fields named by maskPaths from src into dst,
// building intermediate maps as needed; a masked path absent from src is
// deleted from dst. Used by the Commit Coordinator for masked updates (§4.3
// step 5); BatchGet's projection uses ProjectMask.
func MergeMask(dst, src map[string]Value, maskPaths []string) map[string]Value {
	out := dst
	for _, p := range maskPaths {
		v, ok := GetField(src, p)
		if !ok {
			out = DeleteField(out, p)
			continue
		}
		out = SetField(out, p, v)
	}
	return out
}

// ProjectMask returns a new fields map containing only the fields named by
// maskPaths, read from src. Paths with no value in src are omitted.
func ProjectMask(src map[string]Value, maskPaths []string) map[string]Value {
	out := map[string]Value{}
	for _, p := range maskPaths {
		if v, ok := GetField(src, p); ok {
			out = SetField(out, p, v)
		}
	}
	return out
}
