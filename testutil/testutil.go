package testutil

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hupe1980/ffshm/internal/wire"
)

// RNG wraps a seeded random source. It is safe for concurrent use.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Float64s returns n values in [0, 1).
func (r *RNG) Float64s(n int) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float64, n)
	for i := range out {
		out[i] = r.rand.Float64()
	}
	return out
}

// Float64sRange returns n values in [minVal, maxVal).
func (r *RNG) Float64sRange(n int, minVal, maxVal float64) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	span := maxVal - minVal
	out := make([]float64, n)
	for i := range out {
		out[i] = minVal + r.rand.Float64()*span
	}
	return out
}

// Int32s returns n values in [-bound, bound).
func (r *RNG) Int32s(n int, bound int32) []int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int32, n)
	for i := range out {
		out[i] = r.rand.Int31n(2*bound) - bound
	}
	return out
}

// Shape returns between 1 and maxDims axes, each of extent 1..maxExtent.
func (r *RNG) Shape(maxDims, maxExtent int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	shape := make([]int, 1+r.rand.Intn(maxDims))
	for i := range shape {
		shape[i] = 1 + r.rand.Intn(maxExtent)
	}
	return shape
}

// Float64Array returns a random float64 array with a random shape.
func (r *RNG) Float64Array(maxDims, maxExtent int) *wire.Array {
	shape := r.Shape(maxDims, maxExtent)
	a, err := wire.NewFloat64Array(shape, r.Float64s(count(shape)))
	if err != nil {
		panic(err)
	}
	return a
}

// Int32Array returns a random int32 array with a random shape.
func (r *RNG) Int32Array(maxDims, maxExtent int) *wire.Array {
	shape := r.Shape(maxDims, maxExtent)
	a, err := wire.NewInt32Array(shape, r.Int32s(count(shape), 1<<20))
	if err != nil {
		panic(err)
	}
	return a
}

// Text returns a random identifier-like string of length n.
func (r *RNG) Text(n int) string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789_"
	r.mu.Lock()
	defer r.mu.Unlock()
	var sb strings.Builder
	sb.Grow(n)
	for range n {
		sb.WriteByte(alphabet[r.rand.Intn(len(alphabet))])
	}
	return sb.String()
}

func count(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// UniqueName returns prefix followed by a random UUID without dashes.
func UniqueName(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
