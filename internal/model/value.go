package model

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/rotisserie/eris"
)

type valueKind uint8

const (
	kindNull valueKind = iota
	kindNumber
	kindString
)

// Value is a nullable scalar: a number, a string, or null. The zero Value is
// null, which is never the same thing as Number(0).
type Value struct {
	kind valueKind
	num  float64
	str  string
}

// Null returns the null value.
func Null() Value { return Value{} }

// Number wraps a float.
func Number(f float64) Value { return Value{kind: kindNumber, num: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: kindString, str: s} }

// IsNull reports whether v holds no value.
func (v Value) IsNull() bool { return v.kind == kindNull }

// Float returns the numeric value and whether v is a number.
func (v Value) Float() (float64, bool) {
	return v.num, v.kind == kindNumber
}

// Text returns the string value and whether v is a string.
func (v Value) Text() (string, bool) {
	return v.str, v.kind == kindString
}

// String renders v for tabular output. Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case kindString:
		return v.str
	default:
		return ""
	}
}

// MarshalJSON encodes null, a JSON number or a JSON string.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindNumber:
		return json.Marshal(v.num)
	case kindString:
		return json.Marshal(v.str)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts null, numbers, strings and booleans (as 0/1).
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "model: decode value")
	}
	val, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = val
	return nil
}

// ValueOf converts a decoded JSON/YAML scalar into a Value. Nested objects
// and arrays are rejected.
func ValueOf(raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Null(), nil
	case float64:
		return Number(x), nil
	case float32:
		return Number(float64(x)), nil
	case int:
		return Number(float64(x)), nil
	case int32:
		return Number(float64(x)), nil
	case int64:
		return Number(float64(x)), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Null(), eris.Wrapf(err, "model: parse number %q", x.String())
		}
		return Number(f), nil
	case string:
		return String(x), nil
	case bool:
		if x {
			return Number(1), nil
		}
		return Number(0), nil
	default:
		return Null(), eris.Errorf("model: unsupported attribute value of type %T", raw)
	}
}

// ParseValue interprets text from a tabular source: empty is null, numeric
// text becomes a number and anything else stays a string.
func ParseValue(s string) Value {
	if s == "" {
		return Null()
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return Number(f)
	}
	return String(s)
}

// Raw returns the value as a plain Go scalar for JSON documents.
func (v Value) Raw() any {
	switch v.kind {
	case kindNumber:
		return v.num
	case kindString:
		return v.str
	default:
		return nil
	}
}
