package ffshm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloatElements(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 8192)

	a, err := NewFloat64Array([]int{2, 3}, make([]float64, 6))
	require.NoError(t, err)
	require.NoError(t, m.WriteArray(ctx, "u", a))

	require.NoError(t, m.WriteFloatElement(ctx, "u", 4, 2.5))
	v, err := m.ReadFloatElement("u", 4)
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	require.NoError(t, m.WriteFloatElements(ctx, "u", 0, []float64{1, 2, 3}))
	got, err := m.ReadArray("u")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 0, 2.5, 0}, got.Float64s())
	assert.Equal(t, []int{2, 3}, got.Shape())

	d, err := m.Descriptor("u")
	require.NoError(t, err)
	require.NoError(t, m.WriteFloatElement(ctx, "u", 5, 9))
	after, err := m.Descriptor("u")
	require.NoError(t, err)
	assert.Equal(t, d, after, "element writes never touch the registry")

	tests := []struct {
		name  string
		start int
		n     int
	}{
		{"negative", -1, 1},
		{"past end", 6, 1},
		{"run overflows", 4, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.WriteFloatElements(ctx, "u", tt.start, make([]float64, tt.n))
			assert.ErrorIs(t, err, ErrIndexOutOfRange)
		})
	}
	_, err = m.ReadFloatElement("u", 6)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestIntElements(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 8192)

	require.NoError(t, m.WriteArray(ctx, "ids", Int32Vector([]int32{10, 20, 30})))
	require.NoError(t, m.WriteIntElement(ctx, "ids", 1, -5))

	v, err := m.ReadIntElement("ids", 1)
	require.NoError(t, err)
	assert.Equal(t, int32(-5), v)

	_, err = m.ReadIntElement("ids", 3)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestElementErrors(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 8192)

	require.NoError(t, m.WriteArray(ctx, "ids", Int32Vector([]int32{1})))
	require.NoError(t, m.WriteDouble(ctx, "scalar", 1))

	_, err := m.ReadFloatElement("ids", 0)
	assert.ErrorIs(t, err, ErrTypeMismatch, "dtype")
	assert.ErrorIs(t, m.WriteIntElement(ctx, "scalar", 0, 1), ErrTypeMismatch, "kind")
	_, err = m.ReadIntElement("missing", 0)
	assert.ErrorIs(t, err, ErrVariableNotFound)
}

func TestWriteDoubleSeries(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, 8192)

	require.NoError(t, m.WriteDoubleSeries(ctx, 3, []float64{0.5, 1.5, 2.5}))
	for i, want := range []float64{0.5, 1.5, 2.5} {
		got, err := m.ReadDouble(SeriesName(3 + i))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	first, err := m.List()
	require.NoError(t, err)

	// Overlapping update reuses the existing slots and adds one.
	require.NoError(t, m.WriteDoubleSeries(ctx, 4, []float64{7, 8, 9}))
	list, err := m.List()
	require.NoError(t, err)
	assert.Len(t, list, 4)
	d4, err := m.Descriptor("4")
	require.NoError(t, err)
	for _, d := range first {
		if d.Name == "4" {
			assert.Equal(t, d.Offset, d4.Offset)
		}
	}
	v, err := m.ReadDouble("6")
	require.NoError(t, err)
	assert.Equal(t, 9.0, v)

	require.NoError(t, m.WriteDoubleSeries(ctx, 0, nil))

	// A name already holding another kind aborts before anything is written.
	require.NoError(t, m.WriteString(ctx, "10", "not a number"))
	err = m.WriteDoubleSeries(ctx, 9, []float64{1, 2})
	require.ErrorIs(t, err, ErrTypeMismatch)
	ok, err := m.Exists("9")
	require.NoError(t, err)
	assert.False(t, ok)
}
