//go:build amd64 || arm64

package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntToUint32(t *testing.T) {
	t.Run("valid zero", func(t *testing.T) {
		got, err := IntToUint32(0)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), got)
	})

	t.Run("valid max", func(t *testing.T) {
		got, err := IntToUint32(math.MaxUint32)
		require.NoError(t, err)
		assert.Equal(t, uint32(math.MaxUint32), got)
	})

	t.Run("invalid negative", func(t *testing.T) {
		_, err := IntToUint32(-1)
		assert.ErrorIs(t, err, ErrOverflow)
	})

	t.Run("invalid too large", func(t *testing.T) {
		_, err := IntToUint32(math.MaxUint32 + 1)
		assert.ErrorIs(t, err, ErrOverflow)
	})
}

func TestUint32ToInt(t *testing.T) {
	got, err := Uint32ToInt(math.MaxUint32)
	require.NoError(t, err)
	assert.Equal(t, math.MaxUint32, got)
}

func TestShapeCount(t *testing.T) {
	tests := []struct {
		name    string
		shape   []int
		want    int
		wantErr bool
	}{
		{name: "scalar", shape: nil, want: 1},
		{name: "vector", shape: []int{5}, want: 5},
		{name: "matrix", shape: []int{2, 3}, want: 6},
		{name: "zero extent", shape: []int{4, 0, 7}, want: 0},
		{name: "negative", shape: []int{2, -1}, wantErr: true},
		{name: "overflow", shape: []int{1 << 16, 1 << 16, 2}, wantErr: true},
		{name: "extent too large", shape: []int{1<<32 + 3}, wantErr: true},
		{name: "extent too large after zero", shape: []int{0, 1<<32 + 3}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ShapeCount(tt.shape)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrOverflow)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMulInt(t *testing.T) {
	got, err := MulInt(6, 7)
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	_, err = MulInt(math.MaxInt, 2)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = MulInt(-1, 2)
	assert.ErrorIs(t, err, ErrOverflow)
}
