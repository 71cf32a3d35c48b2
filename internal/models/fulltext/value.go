package fulltextmodels

import (
	"math"
	"slices"
	"strconv"

	"gitlab.com/pietroski-software-company/golang/devex/errorsx"
)

type ValueType uint8

const (
	UnknownType ValueType = iota
	StringType
	IntType
	FloatType
	BoolType
)

// Value is a normalised property value. Scalars are stored as one element slices
// so the same layout serves both scalars and homogeneous arrays.
type Value struct {
	Type  ValueType `json:"type"`
	Array bool      `json:"array,omitempty"`
	Str   []string  `json:"str,omitempty"`
	Int   []int64   `json:"int,omitempty"`
	Float []float64 `json:"float,omitempty"`
	Bool  []bool    `json:"bool,omitempty"`
}

type Property struct {
	Name  string
	Value any
}

func StringValue(v string) Value { return Value{Type: StringType, Str: []string{v}} }
func IntValue(v int64) Value     { return Value{Type: IntType, Int: []int64{v}} }
func FloatValue(v float64) Value { return Value{Type: FloatType, Float: []float64{v}} }
func BoolValue(v bool) Value     { return Value{Type: BoolType, Bool: []bool{v}} }

// NormalizeValue converts a host value into a Value.
// Anything other than strings, numbers, booleans or flat homogeneous arrays of
// those is rejected with ErrUnsupportedValue.
func NormalizeValue(raw any) (Value, error) {
	switch v := raw.(type) {
	case Value:
		if !v.Valid() {
			return Value{}, errorsx.Wrap(ErrUnsupportedValue, "malformed value")
		}
		return v, nil
	case *Value:
		if v == nil {
			break
		}
		return NormalizeValue(*v)
	case string:
		return StringValue(v), nil
	case bool:
		return BoolValue(v), nil
	case int:
		return IntValue(int64(v)), nil
	case int8:
		return IntValue(int64(v)), nil
	case int16:
		return IntValue(int64(v)), nil
	case int32:
		return IntValue(int64(v)), nil
	case int64:
		return IntValue(v), nil
	case uint8:
		return IntValue(int64(v)), nil
	case uint16:
		return IntValue(int64(v)), nil
	case uint32:
		return IntValue(int64(v)), nil
	case float32:
		return floatValue(float64(v))
	case float64:
		return floatValue(v)
	case []string:
		return Value{Type: StringType, Array: true, Str: slices.Clone(v)}, nil
	case []bool:
		return Value{Type: BoolType, Array: true, Bool: slices.Clone(v)}, nil
	case []int:
		return intArray(v), nil
	case []int32:
		return intArray(v), nil
	case []int64:
		return Value{Type: IntType, Array: true, Int: slices.Clone(v)}, nil
	case []float32:
		out := Value{Type: FloatType, Array: true, Float: make([]float64, 0, len(v))}
		for _, f := range v {
			if !finite(float64(f)) {
				return Value{}, errorsx.Wrap(ErrUnsupportedValue, "non finite float in array")
			}
			out.Float = append(out.Float, float64(f))
		}
		return out, nil
	case []float64:
		for _, f := range v {
			if !finite(f) {
				return Value{}, errorsx.Wrap(ErrUnsupportedValue, "non finite float in array")
			}
		}
		return Value{Type: FloatType, Array: true, Float: slices.Clone(v)}, nil
	}

	return Value{}, errorsx.Wrapf(ErrUnsupportedValue, "type %T", raw)
}

func intArray[T int | int32](values []T) Value {
	out := Value{Type: IntType, Array: true, Int: make([]int64, 0, len(values))}
	for _, v := range values {
		out.Int = append(out.Int, int64(v))
	}

	return out
}

func floatValue(v float64) (Value, error) {
	if !finite(v) {
		return Value{}, errorsx.Wrap(ErrUnsupportedValue, "non finite float")
	}

	return FloatValue(v), nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (v Value) Valid() bool {
	switch v.Type {
	case StringType:
		return v.Array || len(v.Str) == 1
	case IntType:
		return v.Array || len(v.Int) == 1
	case FloatType:
		return v.Array || len(v.Float) == 1
	case BoolType:
		return v.Array || len(v.Bool) == 1
	default:
		return false
	}
}

// Strings renders every element to the text that gets indexed.
func (v Value) Strings() []string {
	switch v.Type {
	case StringType:
		return slices.Clone(v.Str)
	case IntType:
		out := make([]string, len(v.Int))
		for i, n := range v.Int {
			out[i] = strconv.FormatInt(n, 10)
		}
		return out
	case FloatType:
		out := make([]string, len(v.Float))
		for i, f := range v.Float {
			out[i] = strconv.FormatFloat(f, 'f', -1, 64)
		}
		return out
	case BoolType:
		out := make([]string, len(v.Bool))
		for i, b := range v.Bool {
			out[i] = strconv.FormatBool(b)
		}
		return out
	default:
		return nil
	}
}

func (v Value) Equal(other Value) bool {
	return v.Type == other.Type &&
		v.Array == other.Array &&
		slices.Equal(v.Str, other.Str) &&
		slices.Equal(v.Int, other.Int) &&
		slices.Equal(v.Float, other.Float) &&
		slices.Equal(v.Bool, other.Bool)
}

// Any returns the value in its host representation.
func (v Value) Any() any {
	switch v.Type {
	case StringType:
		if v.Array {
			return slices.Clone(v.Str)
		}
		return v.Str[0]
	case IntType:
		if v.Array {
			return slices.Clone(v.Int)
		}
		return v.Int[0]
	case FloatType:
		if v.Array {
			return slices.Clone(v.Float)
		}
		return v.Float[0]
	case BoolType:
		if v.Array {
			return slices.Clone(v.Bool)
		}
		return v.Bool[0]
	default:
		return nil
	}
}
