package rules

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Value is a sealed interface representing the constrained value types a
// condition may carry. Only Str, Num, Bool, List, and Range implement it.
// Nested objects are forbidden - a value is always a scalar, a list of
// scalars, or a numeric range.
type Value interface {
	filterValue() // Sealed - only these types implement it
}

// Str represents a string value.
type Str string

func (Str) filterValue() {}

// Num represents a numeric value. Stored as float64 because rule values
// include money amounts; comparisons happen in the target store, not here.
type Num float64

func (Num) filterValue() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) filterValue() {}

// List represents a list of scalar values. Elements are always Str, Num,
// or Bool - never List or Range.
type List []Value

func (List) filterValue() {}

// Range represents an inclusive numeric range [Min, Max].
// Serialized as a two-element JSON array.
type Range struct {
	Min float64
	Max float64
}

func (Range) filterValue() {}

// IsScalar reports whether v is a single scalar value.
func IsScalar(v Value) bool {
	switch v.(type) {
	case Str, Num, Bool:
		return true
	default:
		return false
	}
}

// MarshalValue marshals a Value to its natural JSON form.
// Str -> string, Num -> number, Bool -> bool, List -> array,
// Range -> [min, max].
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case Str:
		return json.Marshal(string(val))
	case Num:
		return marshalNumber(float64(val))
	case Bool:
		return json.Marshal(bool(val))
	case List:
		return marshalList(val)
	case Range:
		var buf []byte
		buf = append(buf, '[')
		lo, err := marshalNumber(val.Min)
		if err != nil {
			return nil, err
		}
		buf = append(buf, lo...)
		buf = append(buf, ',')
		hi, err := marshalNumber(val.Max)
		if err != nil {
			return nil, err
		}
		buf = append(buf, hi...)
		buf = append(buf, ']')
		return buf, nil
	case nil:
		return []byte("null"), nil
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// marshalNumber formats a float64 the same way on every invocation so the
// rule-set encoding is byte-stable across round trips. Integral values
// render without a decimal point.
func marshalNumber(f float64) ([]byte, error) {
	if f == float64(int64(f)) {
		return strconv.AppendInt(nil, int64(f), 10), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

func marshalList(list List) ([]byte, error) {
	var buf []byte
	buf = append(buf, '[')
	for i, elem := range list {
		if i > 0 {
			buf = append(buf, ',')
		}
		if !IsScalar(elem) {
			return nil, fmt.Errorf("list[%d]: lists hold scalars only, got %T", i, elem)
		}
		b, err := MarshalValue(elem)
		if err != nil {
			return nil, fmt.Errorf("list[%d]: %w", i, err)
		}
		buf = append(buf, b...)
	}
	buf = append(buf, ']')
	return buf, nil
}

// UnmarshalValue decodes a JSON value into the appropriate Value type.
// A JSON array decodes to List; callers that expect a Range (the between
// operator) convert with AsRange. Objects are rejected.
func UnmarshalValue(data []byte) (Value, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return Str(s), nil

	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return Bool(b), nil

	case 'n':
		// null means "no value"; operators that need one drop the condition
		return nil, nil

	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		list := make(List, 0, len(raw))
		for i, elem := range raw {
			v, err := UnmarshalValue(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			if v == nil {
				continue // drop nulls inside lists
			}
			if !IsScalar(v) {
				return nil, fmt.Errorf("list[%d]: nested lists are not allowed", i)
			}
			list = append(list, v)
		}
		return list, nil

	case '{':
		return nil, fmt.Errorf("object values are not allowed in conditions")

	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		f, err := n.Float64()
		if err != nil {
			return nil, fmt.Errorf("number out of range: %s", n)
		}
		return Num(f), nil
	}
}

// AsRange converts a Value to a Range. Accepts a Range directly or a
// two-element numeric List; anything else is an error.
func AsRange(v Value) (Range, error) {
	switch val := v.(type) {
	case Range:
		return val, nil
	case List:
		if len(val) != 2 {
			return Range{}, fmt.Errorf("range needs exactly 2 elements, got %d", len(val))
		}
		lo, ok := val[0].(Num)
		if !ok {
			return Range{}, fmt.Errorf("range lower bound must be numeric, got %T", val[0])
		}
		hi, ok := val[1].(Num)
		if !ok {
			return Range{}, fmt.Errorf("range upper bound must be numeric, got %T", val[1])
		}
		return Range{Min: float64(lo), Max: float64(hi)}, nil
	default:
		return Range{}, fmt.Errorf("cannot use %T as a range", v)
	}
}

// AsList converts a Value to a List. A scalar becomes a one-element list;
// Range and nil are errors.
func AsList(v Value) (List, error) {
	switch val := v.(type) {
	case List:
		return val, nil
	case Str, Num, Bool:
		return List{val}, nil
	default:
		return nil, fmt.Errorf("cannot use %T as a list", v)
	}
}
