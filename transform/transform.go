/*
Package transform implements the Transform Engine (§4.4): the six
server-evaluated field-transform operations applied atomically with a
commit, plus their deterministic transformResult encoding.

Grounded on generic/accrual.go and generic/balance.go, whose running-total
arithmetic (start from a seed, fold a delta, clamp against a bound) is the
same shape as increment/maximum/minimum here; both use shopspring/decimal so
repeated transforms never accumulate float drift.
*/
package transform

import (
	"github.com/shopspring/decimal"

	"github.com/warp/docuhearth/value"
)

// Kind identifies which of the six transform operations a FieldTransform
// performs (§4.4).
type Kind int

const (
	ServerTime Kind = iota
	Increment
	Maximum
	Minimum
	AppendMissingElements
	RemoveAllFromArray
)

// FieldTransform is one entry of a write's fieldTransforms list.
type FieldTransform struct {
	FieldPath string
	Kind      Kind

	// Operand holds the delta for Increment or the bound for
	// Maximum/Minimum; ArrayOperand holds the element list for the two array
	// operations. Neither is used for ServerTime.
	Operand      value.Value
	ArrayOperand []value.Value
}

// Apply runs every transform in order against fields (§4.4: "For each field
// transform, read the current value... and apply"), returning the mutated
// field map and the ordered transformResults (§4.3 step 6). fields is not
// mutated; a new map reflecting every transform is returned.
func Apply(fields map[string]value.Value, commitTime value.Value, transforms []FieldTransform) (map[string]value.Value, []value.Value) {
	out := make(map[string]value.Value, len(fields))
	for k, v := range fields {
		out[k] = value.Clone(v)
	}

	results := make([]value.Value, len(transforms))
	for i, ft := range transforms {
		current, present := value.GetField(out, ft.FieldPath)
		if !present && (ft.Kind == Maximum || ft.Kind == Minimum) {
			// the identity of max/min is -inf/+inf, so the bound itself wins
			current = ft.Operand
		}
		var result value.Value
		switch ft.Kind {
		case ServerTime:
			result = commitTime
		case Increment:
			result = applyNumeric(current, ft.Operand, func(cur, delta decimal.Decimal) decimal.Decimal {
				return cur.Add(delta)
			})
		case Maximum:
			result = applyNumeric(current, ft.Operand, func(cur, bound decimal.Decimal) decimal.Decimal {
				if bound.GreaterThan(cur) {
					return bound
				}
				return cur
			})
		case Minimum:
			result = applyNumeric(current, ft.Operand, func(cur, bound decimal.Decimal) decimal.Decimal {
				if bound.LessThan(cur) {
					return bound
				}
				return cur
			})
		case AppendMissingElements:
			result = value.Array(appendMissing(currentArray(current), ft.ArrayOperand))
		case RemoveAllFromArray:
			result = value.Array(removeAll(currentArray(current), ft.ArrayOperand))
		}
		out = value.SetField(out, ft.FieldPath, result)
		results[i] = result
	}
	return out, results
}

// applyNumeric implements the increment/maximum/minimum family: a missing or
// non-numeric current value counts as zero (§4.4 edge cases; Apply has
// already replaced a missing value by the bound for maximum/minimum), and
// the result is integer iff both operands are integer-kinded, else double.
func applyNumeric(current, operand value.Value, combine func(cur, operand decimal.Decimal) decimal.Decimal) value.Value {
	curDec, curKind, curOK := current.Numeric()
	if !curOK {
		curDec = decimal.Zero
		curKind = value.KindInt
	}
	opDec, opKind, opOK := operand.Numeric()
	if !opOK {
		opDec = decimal.Zero
		opKind = value.KindInt
	}

	result := combine(curDec, opDec)
	resultKind := value.KindDouble
	if curKind == value.KindInt && opKind == value.KindInt {
		resultKind = value.KindInt
	}
	return value.FromDecimal(result, resultKind)
}

// currentArray reinterprets a non-array current value as an empty array
// (§4.4 edge cases: "non-array target for array transforms reinterprets
// target as empty array").
func currentArray(current value.Value) []value.Value {
	if arr, ok := current.AsArray(); ok {
		return arr
	}
	return nil
}

// appendMissing implements appendMissingElements: xs are appended in order,
// skipping any element structurally equal to one already present (in
// current or already appended), preserving insertion order (§4.4).
func appendMissing(current []value.Value, xs []value.Value) []value.Value {
	out := make([]value.Value, len(current))
	copy(out, current)
	for _, x := range xs {
		if containsStructural(out, x) {
			continue
		}
		out = append(out, x)
	}
	return out
}

// removeAll implements removeAllFromArray: every structurally equal
// occurrence of any element in xs is removed (§4.4).
func removeAll(current []value.Value, xs []value.Value) []value.Value {
	var out []value.Value
	for _, v := range current {
		if containsStructural(xs, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func containsStructural(haystack []value.Value, needle value.Value) bool {
	for _, v := range haystack {
		if value.Equal(v, needle) {
			return true
		}
	}
	return false
}
