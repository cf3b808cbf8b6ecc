package arena

import (
	"errors"
	"fmt"

	"github.com/hupe1980/ffshm/internal/registry"
)

// DefaultAlignment is the alignment of every assigned offset.
const DefaultAlignment = 8

var (
	// ErrFull is returned when the segment has no room for the request.
	ErrFull = errors.New("arena: segment full")
	// ErrInvalidSize is returned for negative requests.
	ErrInvalidSize = errors.New("arena: invalid allocation size")
)

// Stats summarizes segment usage.
type Stats struct {
	SegmentSize int // total segment size
	HeaderSize  int // reserved header bytes
	HighWater   int // first byte past the highest registered variable
	LiveBytes   int // sum of the sizes of registered variables
	FreeBytes   int // bytes after the aligned high-water mark
	Variables   int // registered variable count
}

// Orphaned returns data-area bytes below the high-water mark that no
// registered variable covers (alignment padding and superseded slots).
func (s Stats) Orphaned() int {
	return max(0, s.HighWater-s.HeaderSize-s.LiveBytes)
}

// Allocator hands out offsets in [headerSize, segmentSize).
type Allocator struct {
	headerSize  int
	segmentSize int
}

// New returns an allocator for a segment of segmentSize bytes whose first
// headerSize bytes are reserved.
func New(headerSize, segmentSize int) *Allocator {
	return &Allocator{headerSize: headerSize, segmentSize: segmentSize}
}

// Allocate returns the offset for a new variable of n bytes.
func (a *Allocator) Allocate(reg *registry.Registry, n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}
	off := alignUp(a.highWater(reg), DefaultAlignment)
	if off > a.segmentSize-n {
		return 0, fmt.Errorf("%w: need %d bytes at offset %d, segment is %d bytes", ErrFull, n, off, a.segmentSize)
	}
	return off, nil
}

// Stats reports usage for the given registry.
func (a *Allocator) Stats(reg *registry.Registry) Stats {
	hw := a.highWater(reg)
	live := 0
	for _, d := range reg.Variables {
		live += d.Size
	}
	return Stats{
		SegmentSize: a.segmentSize,
		HeaderSize:  a.headerSize,
		HighWater:   hw,
		LiveBytes:   live,
		FreeBytes:   max(0, a.segmentSize-alignUp(hw, DefaultAlignment)),
		Variables:   reg.Len(),
	}
}

// HighWater returns the first byte past the highest registered variable,
// never less than the header size.
func (a *Allocator) HighWater(reg *registry.Registry) int { return a.highWater(reg) }

func (a *Allocator) highWater(reg *registry.Registry) int {
	end := a.headerSize
	for _, d := range reg.Variables {
		end = max(end, d.End())
	}
	return end
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
