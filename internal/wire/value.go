package wire

import (
	"fmt"
	"math"
	"slices"

	"github.com/hupe1980/ffshm/internal/conv"
)

// Value is a closed union over the four variable kinds.
// The zero Value has KindInvalid and cannot be encoded.
type Value struct {
	kind Kind
	i    int32
	f    float64
	s    string
	a    *Array
}

// IntValue wraps an int32.
func IntValue(v int32) Value { return Value{kind: KindInt, i: v} }

// DoubleValue wraps a float64.
func DoubleValue(v float64) Value { return Value{kind: KindDouble, f: v} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// ArrayValue wraps an array.
func ArrayValue(a *Array) Value { return Value{kind: KindArray, a: a} }

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// Int returns the int32 held by v.
func (v Value) Int() (int32, bool) { return v.i, v.kind == KindInt }

// Double returns the float64 held by v.
func (v Value) Double() (float64, bool) { return v.f, v.kind == KindDouble }

// Text returns the string held by v.
func (v Value) Text() (string, bool) { return v.s, v.kind == KindString }

// Array returns the array held by v.
func (v Value) Array() (*Array, bool) { return v.a, v.kind == KindArray }

func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return fmt.Sprintf("int(%d)", v.i)
	case KindDouble:
		return fmt.Sprintf("double(%g)", v.f)
	case KindString:
		return fmt.Sprintf("string(%q)", v.s)
	case KindArray:
		if v.a == nil {
			return "array(nil)"
		}
		return fmt.Sprintf("array(%s%v)", v.a.dtype, v.a.shape)
	default:
		return "invalid"
	}
}

// Array is a dense row-major N-dimensional array of int32 or float64.
type Array struct {
	shape  []int
	dtype  DType
	ints   []int32
	floats []float64
}

// NewFloat64Array builds a float64 array with the given shape.
// data is used in place and must hold exactly prod(shape) elements.
func NewFloat64Array(shape []int, data []float64) (*Array, error) {
	if err := checkShape(shape, len(data)); err != nil {
		return nil, err
	}
	return &Array{shape: slices.Clone(shape), dtype: DTypeFloat64, floats: data}, nil
}

// NewInt32Array builds an int32 array with the given shape.
// data is used in place and must hold exactly prod(shape) elements.
func NewInt32Array(shape []int, data []int32) (*Array, error) {
	if err := checkShape(shape, len(data)); err != nil {
		return nil, err
	}
	return &Array{shape: slices.Clone(shape), dtype: DTypeInt32, ints: data}, nil
}

// Float64Vector builds a 1-D float64 array.
func Float64Vector(data []float64) *Array {
	return &Array{shape: []int{len(data)}, dtype: DTypeFloat64, floats: data}
}

// Int32Vector builds a 1-D int32 array.
func Int32Vector(data []int32) *Array {
	return &Array{shape: []int{len(data)}, dtype: DTypeInt32, ints: data}
}

// Float64Matrix builds a 2-D float64 array from rows of equal length.
func Float64Matrix(rows [][]float64) (*Array, error) {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	data := make([]float64, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrMalformed, i, len(r), cols)
		}
		data = append(data, r...)
	}
	return NewFloat64Array([]int{len(rows), cols}, data)
}

func checkShape(shape []int, n int) error {
	count, err := conv.ShapeCount(shape)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if count != n {
		return fmt.Errorf("%w: shape %v wants %d elements, got %d", ErrMalformed, shape, count, n)
	}
	return nil
}

// Shape returns a copy of the per-axis extents.
func (a *Array) Shape() []int { return slices.Clone(a.shape) }

// NDim returns the number of axes.
func (a *Array) NDim() int { return len(a.shape) }

// DType returns the element type.
func (a *Array) DType() DType { return a.dtype }

// Len returns the total element count.
func (a *Array) Len() int {
	if a.dtype == DTypeInt32 {
		return len(a.ints)
	}
	return len(a.floats)
}

// Float64s returns the backing float64 elements, or nil for int32 arrays.
func (a *Array) Float64s() []float64 { return a.floats }

// Int32s returns the backing int32 elements, or nil for float64 arrays.
func (a *Array) Int32s() []int32 { return a.ints }

// Index converts an N-D index into a flat row-major offset.
func (a *Array) Index(idx ...int) (int, error) {
	if len(idx) != len(a.shape) {
		return 0, fmt.Errorf("%w: %d indexes for %d axes", ErrIndexOutOfRange, len(idx), len(a.shape))
	}
	flat := 0
	for axis, i := range idx {
		if i < 0 || i >= a.shape[axis] {
			return 0, fmt.Errorf("%w: index %d on axis %d of extent %d", ErrIndexOutOfRange, i, axis, a.shape[axis])
		}
		flat = flat*a.shape[axis] + i
	}
	return flat, nil
}

// At returns the element at idx as float64, regardless of dtype.
func (a *Array) At(idx ...int) (float64, error) {
	i, err := a.Index(idx...)
	if err != nil {
		return 0, err
	}
	if a.dtype == DTypeInt32 {
		return float64(a.ints[i]), nil
	}
	return a.floats[i], nil
}

// Equal reports whether a and o have the same dtype, shape and elements,
// comparing float64 elements within tol.
func (a *Array) Equal(o *Array, tol float64) bool {
	if a == nil || o == nil {
		return a == o
	}
	if a.dtype != o.dtype || !slices.Equal(a.shape, o.shape) {
		return false
	}
	if a.dtype == DTypeInt32 {
		return slices.Equal(a.ints, o.ints)
	}
	if len(a.floats) != len(o.floats) {
		return false
	}
	for i := range a.floats {
		if math.Abs(a.floats[i]-o.floats[i]) > tol {
			return false
		}
	}
	return true
}
