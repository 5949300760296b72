package value

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// wireValue mirrors the production REST schema's Value message: exactly one
// field is populated per instance.
type wireValue struct {
	NullValue      *struct{}       `json:"nullValue,omitempty"`
	BooleanValue   *bool           `json:"booleanValue,omitempty"`
	IntegerValue   *string         `json:"integerValue,omitempty"`
	DoubleValue    *float64        `json:"doubleValue,omitempty"`
	TimestampValue *string         `json:"timestampValue,omitempty"`
	StringValue    *string         `json:"stringValue,omitempty"`
	BytesValue     *string         `json:"bytesValue,omitempty"`
	ReferenceValue *string         `json:"referenceValue,omitempty"`
	GeoPointValue  *wireGeoPoint   `json:"geoPointValue,omitempty"`
	ArrayValue     *wireArrayValue `json:"arrayValue,omitempty"`
	MapValue       *wireMapValue   `json:"mapValue,omitempty"`
}

type wireGeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type wireArrayValue struct {
	Values []Value `json:"values,omitempty"`
}

type wireMapValue struct {
	Fields map[string]Value `json:"fields,omitempty"`
}

const wireTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// MarshalJSON implements the production wire encoding.
func (v Value) MarshalJSON() ([]byte, error) {
	w := wireValue{}
	switch v.kind {
	case KindNull:
		w.NullValue = &struct{}{}
	case KindBool:
		w.BooleanValue = &v.boolVal
	case KindInt:
		s := strconv.FormatInt(v.intVal, 10)
		w.IntegerValue = &s
	case KindDouble:
		w.DoubleValue = &v.doubleVal
	case KindTimestamp:
		s := v.timeVal.UTC().Format(wireTimeLayout)
		w.TimestampValue = &s
	case KindString:
		w.StringValue = &v.strVal
	case KindBytes:
		s := base64.StdEncoding.EncodeToString(v.bytesVal)
		w.BytesValue = &s
	case KindReference:
		w.ReferenceValue = &v.strVal
	case KindGeoPoint:
		w.GeoPointValue = &wireGeoPoint{Latitude: v.geoVal.Latitude, Longitude: v.geoVal.Longitude}
	case KindArray:
		w.ArrayValue = &wireArrayValue{Values: v.arrVal}
	case KindMap:
		w.MapValue = &wireMapValue{Fields: v.mapVal}
	default:
		return nil, fmt.Errorf("value: cannot marshal unknown kind %v", v.kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements the production wire decoding.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	switch {
	case w.NullValue != nil || isAllNil(w):
		*v = Null()
	case w.BooleanValue != nil:
		*v = Bool(*w.BooleanValue)
	case w.IntegerValue != nil:
		n, err := strconv.ParseInt(*w.IntegerValue, 10, 64)
		if err != nil {
			return fmt.Errorf("value: invalid integerValue %q: %w", *w.IntegerValue, err)
		}
		*v = Int(n)
	case w.DoubleValue != nil:
		*v = Double(*w.DoubleValue)
	case w.TimestampValue != nil:
		t, err := time.Parse(time.RFC3339Nano, *w.TimestampValue)
		if err != nil {
			return fmt.Errorf("value: invalid timestampValue %q: %w", *w.TimestampValue, err)
		}
		*v = Timestamp(t)
	case w.StringValue != nil:
		*v = String(*w.StringValue)
	case w.BytesValue != nil:
		b, err := base64.StdEncoding.DecodeString(*w.BytesValue)
		if err != nil {
			return fmt.Errorf("value: invalid bytesValue: %w", err)
		}
		*v = Bytes(b)
	case w.ReferenceValue != nil:
		*v = Reference(*w.ReferenceValue)
	case w.GeoPointValue != nil:
		*v = Geo(GeoPoint{Latitude: w.GeoPointValue.Latitude, Longitude: w.GeoPointValue.Longitude})
	case w.ArrayValue != nil:
		*v = Array(w.ArrayValue.Values)
	case w.MapValue != nil:
		*v = Map(w.MapValue.Fields)
	default:
		*v = Null()
	}
	return nil
}

func isAllNil(w wireValue) bool {
	return w.BooleanValue == nil && w.IntegerValue == nil && w.DoubleValue == nil &&
		w.TimestampValue == nil && w.StringValue == nil && w.BytesValue == nil &&
		w.ReferenceValue == nil && w.GeoPointValue == nil && w.ArrayValue == nil &&
		w.MapValue == nil
}
