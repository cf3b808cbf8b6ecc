package conv

import (
	"errors"
	"fmt"
	"math"
)

// ErrOverflow is returned when a value does not fit the target type.
var ErrOverflow = errors.New("conv: integer overflow")

// IntToUint32 converts int to uint32 safely.
func IntToUint32(v int) (uint32, error) {
	if v < 0 || uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d does not fit uint32", ErrOverflow, v)
	}
	return uint32(v), nil
}

// Uint32ToInt converts uint32 to int safely.
func Uint32ToInt(v uint32) (int, error) {
	if uint64(v) > uint64(math.MaxInt) {
		return 0, fmt.Errorf("%w: %d does not fit int", ErrOverflow, v)
	}
	return int(v), nil
}

// ShapeCount returns the product of the extents in shape.
// An empty shape has one element (a 0-d array). Negative extents and
// products that overflow uint32 are rejected, since the element count is
// stored as a u32 on the wire.
func ShapeCount(shape []int) (int, error) {
	count := uint64(1)
	for i, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative extent %d on axis %d", ErrOverflow, d, i)
		}
		if uint64(d) > math.MaxUint32 {
			return 0, fmt.Errorf("%w: extent %d on axis %d exceeds uint32", ErrOverflow, d, i)
		}
		if d == 0 {
			count = 0
			continue
		}
		if count > math.MaxUint32/uint64(d) {
			return 0, fmt.Errorf("%w: shape %v exceeds uint32 elements", ErrOverflow, shape)
		}
		count *= uint64(d)
	}
	return int(count), nil
}

// MulInt multiplies two non-negative ints, failing on overflow.
func MulInt(a, b int) (int, error) {
	if a < 0 || b < 0 {
		return 0, fmt.Errorf("%w: negative operand %d*%d", ErrOverflow, a, b)
	}
	if a != 0 && b > math.MaxInt/a {
		return 0, fmt.Errorf("%w: %d*%d", ErrOverflow, a, b)
	}
	return a * b, nil
}
