package value_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/warp/docuhearth/value"
)

func TestEqual_StructuralNotPositional(t *testing.T) {
	// GIVEN: two map Values built in different key order
	// WHEN: compared for equality
	// THEN: order of map keys doesn't matter, but array order does
	a := value.Map(map[string]value.Value{"x": value.Int(1), "y": value.String("hi")})
	b := value.Map(map[string]value.Value{"y": value.String("hi"), "x": value.Int(1)})
	require.True(t, value.Equal(a, b))

	arr1 := value.Array([]value.Value{value.Int(1), value.Int(2)})
	arr2 := value.Array([]value.Value{value.Int(2), value.Int(1)})
	require.False(t, value.Equal(arr1, arr2))
}

func TestEqual_IntAndDoubleAreDistinctKinds(t *testing.T) {
	require.False(t, value.Equal(value.Int(1), value.Double(1)))
}

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    value.Value
		want bool
	}{
		{value.Null(), false},
		{value.Bool(false), false},
		{value.Bool(true), true},
		{value.Int(0), false},
		{value.Int(5), true},
		{value.Double(0), false},
		{value.String(""), false},
		{value.String("a"), true},
		{value.Array(nil), true},
		{value.Map(nil), true},
	}
	for _, c := range cases {
		require.Equal(t, c.want, c.v.Truthy(), "kind=%v", c.v.Kind())
	}
}

func TestMarshalJSON_RoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	vals := []value.Value{
		value.Null(),
		value.Bool(true),
		value.Int(42),
		value.Double(3.5),
		value.Timestamp(ts),
		value.String("hello"),
		value.Bytes([]byte{1, 2, 3}),
		value.Reference("projects/p/databases/(default)/documents/c/1"),
		value.Geo(value.GeoPoint{Latitude: 1.5, Longitude: -2.5}),
		value.Array([]value.Value{value.Int(1), value.String("x")}),
		value.Map(map[string]value.Value{"a": value.Int(1)}),
	}
	for _, v := range vals {
		data, err := json.Marshal(v)
		require.NoError(t, err)

		var got value.Value
		require.NoError(t, json.Unmarshal(data, &got))
		require.True(t, value.Equal(v, got), "round-trip mismatch for kind=%v: %s", v.Kind(), data)
	}
}

func TestMarshalJSON_IntegerValueIsDecimalString(t *testing.T) {
	data, err := json.Marshal(value.Int(7))
	require.NoError(t, err)
	require.JSONEq(t, `{"integerValue":"7"}`, string(data))
}

func TestFieldPath_GetSetDelete(t *testing.T) {
	root := map[string]value.Value{
		"a": value.Map(map[string]value.Value{
			"b": value.Int(1),
		}),
	}

	got, ok := value.GetField(root, "a.b")
	require.True(t, ok)
	require.Equal(t, int64(1), mustInt(t, got))

	root2 := value.SetField(root, "a.c", value.String("new"))
	got2, ok := value.GetField(root2, "a.c")
	require.True(t, ok)
	s, _ := got2.AsString()
	require.Equal(t, "new", s)

	// original root is untouched (SetField is non-mutating)
	_, ok = value.GetField(root, "a.c")
	require.False(t, ok)

	root3 := value.DeleteField(root2, "a.b")
	_, ok = value.GetField(root3, "a.b")
	require.False(t, ok)
}

func TestMergeMask_CreatesIntermediateMaps(t *testing.T) {
	dst := map[string]value.Value{}
	src := map[string]value.Value{
		"a": value.Map(map[string]value.Value{"b": value.Int(9)}),
	}
	out := value.MergeMask(dst, src, []string{"a.b"})
	got, ok := value.GetField(out, "a.b")
	require.True(t, ok)
	require.Equal(t, int64(9), mustInt(t, got))
}

func mustInt(t *testing.T, v value.Value) int64 {
	t.Helper()
	n, ok := v.AsInt()
	require.True(t, ok)
	return n
}
