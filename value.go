package ffshm

import (
	"github.com/hupe1980/ffshm/internal/wire"
)

// Kind is the registered type of a variable.
type Kind = wire.Kind

const (
	// KindInt is a native-endian signed 32-bit integer.
	KindInt = wire.KindInt
	// KindDouble is an IEEE-754 float64.
	KindDouble = wire.KindDouble
	// KindString is a u32 length prefix followed by UTF-8 bytes.
	KindString = wire.KindString
	// KindArray is an N-dimensional int32 or float64 array.
	KindArray = wire.KindArray
)

// ParseKind maps a registry tag ("int", "double", "string", "array") to a Kind.
func ParseKind(tag string) (Kind, error) {
	k, err := wire.ParseKind(tag)
	if err != nil {
		return k, invalidValue(err)
	}
	return k, nil
}

// DType is the element type of an array.
type DType = wire.DType

const (
	// DTypeInt32 marks int32 elements.
	DTypeInt32 = wire.DTypeInt32
	// DTypeFloat64 marks float64 elements.
	DTypeFloat64 = wire.DTypeFloat64
)

// Value is one of int32, float64, string or array.
type Value = wire.Value

// Array is a dense row-major N-dimensional array.
type Array = wire.Array

// IntValue wraps an int32.
func IntValue(v int32) Value { return wire.IntValue(v) }

// DoubleValue wraps a float64.
func DoubleValue(v float64) Value { return wire.DoubleValue(v) }

// StringValue wraps a string.
func StringValue(s string) Value { return wire.StringValue(s) }

// ArrayValue wraps an array.
func ArrayValue(a *Array) Value { return wire.ArrayValue(a) }

// NewFloat64Array builds a float64 array. len(data) must equal the product
// of shape.
func NewFloat64Array(shape []int, data []float64) (*Array, error) {
	a, err := wire.NewFloat64Array(shape, data)
	if err != nil {
		return nil, invalidValue(err)
	}
	return a, nil
}

// NewInt32Array builds an int32 array. len(data) must equal the product of
// shape.
func NewInt32Array(shape []int, data []int32) (*Array, error) {
	a, err := wire.NewInt32Array(shape, data)
	if err != nil {
		return nil, invalidValue(err)
	}
	return a, nil
}

// Float64Vector builds a 1-D float64 array.
func Float64Vector(data []float64) *Array { return wire.Float64Vector(data) }

// Int32Vector builds a 1-D int32 array.
func Int32Vector(data []int32) *Array { return wire.Int32Vector(data) }

// Float64Matrix builds a 2-D float64 array from rows of equal length.
func Float64Matrix(rows [][]float64) (*Array, error) {
	a, err := wire.Float64Matrix(rows)
	if err != nil {
		return nil, invalidValue(err)
	}
	return a, nil
}
