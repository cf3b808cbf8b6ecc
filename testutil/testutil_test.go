package testutil

import (
	"strings"
	"testing"

	"github.com/hupe1980/ffshm/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat64s(t *testing.T) {
	rng := NewRNG(4711)

	v := rng.Float64s(32)
	assert.Len(t, v, 32)
	for _, x := range v {
		assert.GreaterOrEqual(t, x, 0.0)
		assert.Less(t, x, 1.0)
	}

	r := rng.Float64sRange(16, -2, 2)
	for _, x := range r {
		assert.GreaterOrEqual(t, x, -2.0)
		assert.Less(t, x, 2.0)
	}
}

func TestInt32s(t *testing.T) {
	rng := NewRNG(4711)
	for _, x := range rng.Int32s(64, 10) {
		assert.GreaterOrEqual(t, x, int32(-10))
		assert.Less(t, x, int32(10))
	}
}

func TestArrays(t *testing.T) {
	rng := NewRNG(4711)

	for range 20 {
		f := rng.Float64Array(3, 5)
		assert.Equal(t, wire.DTypeFloat64, f.DType())
		assert.LessOrEqual(t, f.NDim(), 3)
		assert.Equal(t, count(f.Shape()), f.Len())

		i := rng.Int32Array(2, 4)
		assert.Equal(t, wire.DTypeInt32, i.DType())
		assert.Equal(t, count(i.Shape()), i.Len())
	}
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	v1 := rng.Float64s(10)
	s1 := rng.Text(12)

	rng.Reset()
	assert.Equal(t, v1, rng.Float64s(10))
	assert.Equal(t, s1, rng.Text(12))
	assert.Equal(t, int64(4711), rng.Seed())
}

func TestUniqueName(t *testing.T) {
	a := UniqueName("pyfreefem_")
	b := UniqueName("pyfreefem_")
	require.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "pyfreefem_"))
	assert.Len(t, a, len("pyfreefem_")+32)
	assert.NotContains(t, a, "-")
}
