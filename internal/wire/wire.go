package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/hupe1980/ffshm/internal/conv"
)

const (
	// IntSize is the encoded size of an int32 value.
	IntSize = 4
	// DoubleSize is the encoded size of a float64 value.
	DoubleSize = 8
	// prefixSize is the width of every length, count and shape field.
	prefixSize = 4
)

var (
	// ErrShortBuffer is returned when the destination or source region is
	// smaller than the value it should hold.
	ErrShortBuffer = errors.New("wire: buffer too small")
	// ErrMalformed is returned when stored bytes do not describe a valid value.
	ErrMalformed = errors.New("wire: malformed value")
	// ErrUnknownKind is returned for a type tag outside the four known kinds.
	ErrUnknownKind = errors.New("wire: unknown kind")
	// ErrDTypeMismatch is returned when element access uses the wrong dtype.
	ErrDTypeMismatch = errors.New("wire: dtype mismatch")
	// ErrIndexOutOfRange is returned for element indexes outside the array.
	ErrIndexOutOfRange = errors.New("wire: index out of range")
)

// order is applied to every value field. Length prefixes of values follow
// the same rule so both peers can use plain struct copies.
var order = binary.NativeEndian

// PutInt encodes v into b[0:4].
func PutInt(b []byte, v int32) error {
	if len(b) < IntSize {
		return ErrShortBuffer
	}
	order.PutUint32(b, uint32(v))
	return nil
}

// Int decodes an int32 from b[0:4].
func Int(b []byte) (int32, error) {
	if len(b) < IntSize {
		return 0, ErrShortBuffer
	}
	return int32(order.Uint32(b)), nil
}

// PutDouble encodes v into b[0:8].
func PutDouble(b []byte, v float64) error {
	if len(b) < DoubleSize {
		return ErrShortBuffer
	}
	order.PutUint64(b, math.Float64bits(v))
	return nil
}

// Double decodes a float64 from b[0:8].
func Double(b []byte) (float64, error) {
	if len(b) < DoubleSize {
		return 0, ErrShortBuffer
	}
	return math.Float64frombits(order.Uint64(b)), nil
}

// StringSize returns the encoded size of s.
func StringSize(s string) int {
	return prefixSize + len(s)
}

// PutString encodes s as a length prefix plus raw UTF-8 bytes, no NUL.
func PutString(b []byte, s string) error {
	n, err := conv.IntToUint32(len(s))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(b) < StringSize(s) {
		return ErrShortBuffer
	}
	order.PutUint32(b, n)
	copy(b[prefixSize:], s)
	return nil
}

// String decodes a length-prefixed string. The prefix must fit inside b.
func String(b []byte) (string, error) {
	if len(b) < prefixSize {
		return "", ErrShortBuffer
	}
	n, err := conv.Uint32ToInt(order.Uint32(b))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if n > len(b)-prefixSize {
		return "", fmt.Errorf("%w: string length %d exceeds region of %d bytes", ErrMalformed, n, len(b)-prefixSize)
	}
	raw := b[prefixSize : prefixSize+n]
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: invalid UTF-8", ErrMalformed)
	}
	return string(raw), nil
}

// ArrayHeader is the parsed metadata in front of an array payload.
type ArrayHeader struct {
	Count      int
	Shape      []int
	DType      DType
	DataOffset int // offset of the first element, relative to the value start
}

// ElementOffset returns the byte offset of flat element i relative to the
// value start.
func (h ArrayHeader) ElementOffset(i int) (int, error) {
	if i < 0 || i >= h.Count {
		return 0, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, h.Count)
	}
	return h.DataOffset + i*h.DType.ElemSize(), nil
}

// Size returns the total encoded size described by the header.
func (h ArrayHeader) Size() int {
	return h.DataOffset + h.Count*h.DType.ElemSize()
}

func arrayHeaderSize(ndim int) int {
	// count + ndim + shape + dtype
	return prefixSize + prefixSize + ndim*prefixSize + prefixSize
}

// ArraySize returns the encoded size of an array of the given shape and dtype.
func ArraySize(shape []int, dt DType) (int, error) {
	elem := dt.ElemSize()
	if elem == 0 {
		return 0, fmt.Errorf("%w: %s", ErrMalformed, dt)
	}
	count, err := conv.ShapeCount(shape)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	data, err := conv.MulInt(count, elem)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return arrayHeaderSize(len(shape)) + data, nil
}

// ParseArrayHeader reads and validates the header of an array stored in b.
// The element bytes described by the header must fit inside b.
func ParseArrayHeader(b []byte) (ArrayHeader, error) {
	if len(b) < arrayHeaderSize(0) {
		return ArrayHeader{}, ErrShortBuffer
	}
	count, err := conv.Uint32ToInt(order.Uint32(b[0:]))
	if err != nil {
		return ArrayHeader{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	ndim, err := conv.Uint32ToInt(order.Uint32(b[prefixSize:]))
	if err != nil {
		return ArrayHeader{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if ndim > (len(b)-3*prefixSize)/prefixSize {
		return ArrayHeader{}, fmt.Errorf("%w: ndim %d exceeds region of %d bytes", ErrMalformed, ndim, len(b))
	}

	shape := make([]int, ndim)
	pos := 2 * prefixSize
	for i := range shape {
		d, err := conv.Uint32ToInt(order.Uint32(b[pos:]))
		if err != nil {
			return ArrayHeader{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		shape[i] = d
		pos += prefixSize
	}
	dt := DType(order.Uint32(b[pos:]))
	pos += prefixSize

	if dt.ElemSize() == 0 {
		return ArrayHeader{}, fmt.Errorf("%w: unknown %s", ErrMalformed, dt)
	}
	want, err := conv.ShapeCount(shape)
	if err != nil {
		return ArrayHeader{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if want != count {
		return ArrayHeader{}, fmt.Errorf("%w: count %d does not match shape %v", ErrMalformed, count, shape)
	}

	h := ArrayHeader{Count: count, Shape: shape, DType: dt, DataOffset: pos}
	if h.Size() > len(b) {
		return ArrayHeader{}, fmt.Errorf("%w: array of %d bytes exceeds region of %d bytes", ErrMalformed, h.Size(), len(b))
	}
	return h, nil
}

// arraySize is ArraySize for a, which must also hold exactly as many
// elements as its shape describes.
func arraySize(a *Array) (int, error) {
	if a == nil {
		return 0, fmt.Errorf("%w: nil array", ErrMalformed)
	}
	if err := checkShape(a.shape, a.Len()); err != nil {
		return 0, err
	}
	return ArraySize(a.shape, a.dtype)
}

// PutArray encodes a into b.
func PutArray(b []byte, a *Array) error {
	size, err := arraySize(a)
	if err != nil {
		return err
	}
	if len(b) < size {
		return ErrShortBuffer
	}

	order.PutUint32(b[0:], uint32(a.Len()))
	order.PutUint32(b[prefixSize:], uint32(len(a.shape)))
	pos := 2 * prefixSize
	for _, d := range a.shape {
		order.PutUint32(b[pos:], uint32(d))
		pos += prefixSize
	}
	order.PutUint32(b[pos:], uint32(a.dtype))
	pos += prefixSize

	switch a.dtype {
	case DTypeInt32:
		for _, v := range a.ints {
			order.PutUint32(b[pos:], uint32(v))
			pos += IntSize
		}
	case DTypeFloat64:
		for _, v := range a.floats {
			order.PutUint64(b[pos:], math.Float64bits(v))
			pos += DoubleSize
		}
	}
	return nil
}

// DecodeArray decodes an array stored in b. The result does not alias b.
func DecodeArray(b []byte) (*Array, error) {
	h, err := ParseArrayHeader(b)
	if err != nil {
		return nil, err
	}
	a := &Array{shape: h.Shape, dtype: h.DType}
	pos := h.DataOffset
	switch h.DType {
	case DTypeInt32:
		a.ints = make([]int32, h.Count)
		for i := range a.ints {
			a.ints[i] = int32(order.Uint32(b[pos:]))
			pos += IntSize
		}
	case DTypeFloat64:
		a.floats = make([]float64, h.Count)
		for i := range a.floats {
			a.floats[i] = math.Float64frombits(order.Uint64(b[pos:]))
			pos += DoubleSize
		}
	}
	return a, nil
}

// EncodedSize returns the exact number of bytes Encode writes for v.
func EncodedSize(v Value) (int, error) {
	switch v.kind {
	case KindInt:
		return IntSize, nil
	case KindDouble:
		return DoubleSize, nil
	case KindString:
		return StringSize(v.s), nil
	case KindArray:
		return arraySize(v.a)
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownKind, v.kind)
	}
}

// Encode writes v into b, which must hold at least EncodedSize(v) bytes.
func Encode(b []byte, v Value) error {
	switch v.kind {
	case KindInt:
		return PutInt(b, v.i)
	case KindDouble:
		return PutDouble(b, v.f)
	case KindString:
		return PutString(b, v.s)
	case KindArray:
		return PutArray(b, v.a)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKind, v.kind)
	}
}

// Decode reads a value of kind k from b, the full descriptor region.
func Decode(k Kind, b []byte) (Value, error) {
	switch k {
	case KindInt:
		i, err := Int(b)
		if err != nil {
			return Value{}, err
		}
		return IntValue(i), nil
	case KindDouble:
		f, err := Double(b)
		if err != nil {
			return Value{}, err
		}
		return DoubleValue(f), nil
	case KindString:
		s, err := String(b)
		if err != nil {
			return Value{}, err
		}
		return StringValue(s), nil
	case KindArray:
		a, err := DecodeArray(b)
		if err != nil {
			return Value{}, err
		}
		return ArrayValue(a), nil
	default:
		return Value{}, fmt.Errorf("%w: %s", ErrUnknownKind, k)
	}
}
