package value

// Equal implements the structural equality required by §3 (Value equality)
// and §4.9 (the rules DSL's == / != / in operators). Array order is
// significant; map key order is not.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		// An int64 and a float64 holding the same numeric value are still
		// distinct Values on the wire (distinct tags), matching the
		// production schema's strict variant equality.
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.boolVal == b.boolVal
	case KindInt:
		return a.intVal == b.intVal
	case KindDouble:
		return a.doubleVal == b.doubleVal
	case KindTimestamp:
		return a.timeVal.Equal(b.timeVal)
	case KindString:
		return a.strVal == b.strVal
	case KindBytes:
		return bytesEqual(a.bytesVal, b.bytesVal)
	case KindReference:
		return a.strVal == b.strVal
	case KindGeoPoint:
		return a.geoVal == b.geoVal
	case KindArray:
		return arrayEqual(a.arrVal, b.arrVal)
	case KindMap:
		return mapEqual(a.mapVal, b.mapVal)
	default:
		return false
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func arrayEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func mapEqual(a, b map[string]Value) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !Equal(av, bv) {
			return false
		}
	}
	return true
}

// Clone deep-copies a Value so callers holding a Document's fields can be
// handed an independent copy safe to mutate.
func Clone(v Value) Value {
	switch v.kind {
	case KindArray:
		cp := make([]Value, len(v.arrVal))
		for i, e := range v.arrVal {
			cp[i] = Clone(e)
		}
		return Value{kind: KindArray, arrVal: cp}
	case KindMap:
		cp := make(map[string]Value, len(v.mapVal))
		for k, e := range v.mapVal {
			cp[k] = Clone(e)
		}
		return Value{kind: KindMap, mapVal: cp}
	case KindBytes:
		cp := make([]byte, len(v.bytesVal))
		copy(cp, v.bytesVal)
		return Value{kind: KindBytes, bytesVal: cp}
	default:
		return v
	}
}
