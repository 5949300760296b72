/*
Package value implements the typed variant that backs every document field.

PURPOSE:

	Mirrors the wire-level Value type of the production REST API: exactly one
	of {null, bool, int64, float64, timestamp, string, bytes, reference,
	geoPoint, array, map} is active at a time. Equality is structural; array
	order matters, map key order does not.

DESIGN PRINCIPLES (carried from generic/types.go's Amount):
 1. Precision: integer/double transforms accumulate on decimal.Decimal
    internally so repeated increment/maximum/minimum never drift the way
    naive float64 accumulation would.
 2. Type safety: Kind is a closed enum; Value exposes typed accessors instead
    of raw field access.
 3. Auditability: every Value can be canonically re-encoded to the same wire
    shape it was decoded from.

SEE ALSO:
  - encode.go: wire (JSON) encoding/decoding matching the production schema
  - equal.go: structural equality
*/
package value

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies which variant of Value is active.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindDouble
	KindTimestamp
	KindString
	KindBytes
	KindReference
	KindGeoPoint
	KindArray
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int64"
	case KindDouble:
		return "float64"
	case KindTimestamp:
		return "timestamp"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindReference:
		return "reference"
	case KindGeoPoint:
		return "geoPoint"
	case KindArray:
		return "array"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// GeoPoint is a latitude/longitude pair.
type GeoPoint struct {
	Latitude  float64
	Longitude float64
}

// Value is a tagged variant. Exactly one of the typed fields is meaningful,
// selected by Kind. Zero value is the null Value.
type Value struct {
	kind Kind

	boolVal  bool
	intVal   int64
	doubleVal float64
	timeVal  time.Time
	strVal   string
	bytesVal []byte
	geoVal   GeoPoint
	arrVal   []Value
	mapVal   map[string]Value
}

// Null returns the null Value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, boolVal: b} }

// Int wraps a 64-bit integer.
func Int(i int64) Value { return Value{kind: KindInt, intVal: i} }

// Double wraps a 64-bit float.
func Double(f float64) Value { return Value{kind: KindDouble, doubleVal: f} }

// Timestamp wraps a UTC instant; truncated to the wire's fractional-second
// precision on encode, not on construction.
func Timestamp(t time.Time) Value { return Value{kind: KindTimestamp, timeVal: t.UTC()} }

// String wraps a UTF-8 string.
func String(s string) Value { return Value{kind: KindString, strVal: s} }

// Bytes wraps a raw byte slice (base64 on the wire).
func Bytes(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{kind: KindBytes, bytesVal: cp}
}

// Reference wraps a document path string.
func Reference(path string) Value { return Value{kind: KindReference, strVal: path} }

// Geo wraps a GeoPoint.
func Geo(g GeoPoint) Value { return Value{kind: KindGeoPoint, geoVal: g} }

// Array wraps an ordered list of Values. The slice is copied.
func Array(vs []Value) Value {
	cp := make([]Value, len(vs))
	copy(cp, vs)
	return Value{kind: KindArray, arrVal: cp}
}

// Map wraps a name->Value mapping. The map is copied (shallow on Values,
// which are themselves immutable-by-convention).
func Map(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: KindMap, mapVal: cp}
}

// EmptyMap returns an empty map Value, useful as a document's starting fields.
func EmptyMap() Value { return Map(nil) }

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool)       { return v.boolVal, v.kind == KindBool }
func (v Value) AsInt() (int64, bool)       { return v.intVal, v.kind == KindInt }
func (v Value) AsDouble() (float64, bool)  { return v.doubleVal, v.kind == KindDouble }
func (v Value) AsTimestamp() (time.Time, bool) { return v.timeVal, v.kind == KindTimestamp }
func (v Value) AsString() (string, bool)   { return v.strVal, v.kind == KindString }
func (v Value) AsBytes() ([]byte, bool)    { return v.bytesVal, v.kind == KindBytes }
func (v Value) AsReference() (string, bool) { return v.strVal, v.kind == KindReference }
func (v Value) AsGeo() (GeoPoint, bool)    { return v.geoVal, v.kind == KindGeoPoint }

// AsArray returns the underlying slice (not a copy — callers must not mutate
// it in place; use Array() to build a new Value instead).
func (v Value) AsArray() ([]Value, bool) { return v.arrVal, v.kind == KindArray }

// AsMap returns the underlying map (not a copy — same caveat as AsArray).
func (v Value) AsMap() (map[string]Value, bool) { return v.mapVal, v.kind == KindMap }

// IsNumeric reports whether v is an int64 or float64 Value.
func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindDouble }

// Numeric returns v's numeric value as a decimal.Decimal, and the Kind it
// came from, for use by the transform engine's precision-preserving math.
func (v Value) Numeric() (decimal.Decimal, Kind, bool) {
	switch v.kind {
	case KindInt:
		return decimal.NewFromInt(v.intVal), KindInt, true
	case KindDouble:
		return decimal.NewFromFloat(v.doubleVal), KindDouble, true
	default:
		return decimal.Zero, v.kind, false
	}
}

// FromDecimal builds an Int or Double Value from a decimal.Decimal, per the
// requested Kind. Used by the transform engine to re-encode results.
func FromDecimal(d decimal.Decimal, kind Kind) Value {
	if kind == KindInt {
		return Int(d.IntPart())
	}
	f, _ := d.Float64()
	return Double(f)
}

// Truthy implements the rules DSL's truthiness coercion (§4.9):
// null -> false, bool -> self, number -> (!= 0), string -> (len > 0),
// everything else -> true.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.boolVal
	case KindInt:
		return v.intVal != 0
	case KindDouble:
		return v.doubleVal != 0
	case KindString:
		return len(v.strVal) > 0
	default:
		return true
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%t", v.boolVal)
	case KindInt:
		return fmt.Sprintf("%d", v.intVal)
	case KindDouble:
		return fmt.Sprintf("%g", v.doubleVal)
	case KindTimestamp:
		return v.timeVal.Format(time.RFC3339Nano)
	case KindString:
		return v.strVal
	case KindBytes:
		return fmt.Sprintf("bytes(%d)", len(v.bytesVal))
	case KindReference:
		return v.strVal
	case KindGeoPoint:
		return fmt.Sprintf("geo(%g,%g)", v.geoVal.Latitude, v.geoVal.Longitude)
	case KindArray:
		return fmt.Sprintf("array(%d)", len(v.arrVal))
	case KindMap:
		return fmt.Sprintf("map(%d)", len(v.mapVal))
	default:
		return "<unknown>"
	}
}
