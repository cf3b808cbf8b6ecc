package mmap

import "errors"

var (
	// ErrClosed is returned by Sync on a closed mapping.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned for a zero, negative or mismatched mapping size.
	ErrInvalidSize = errors.New("mmap: invalid size")
	// ErrUnsupported is returned on platforms without shared mappings.
	ErrUnsupported = errors.New("mmap: unsupported platform")
)

// Advice is an access hint for a mapped region.
type Advice int

const (
	// AdviceNormal resets the region to the kernel default.
	AdviceNormal Advice = iota
	// AdviceRandom suits segments read at scattered offsets, which is every
	// registry lookup followed by a value read.
	AdviceRandom
	// AdviceSequential suits a front-to-back copy such as a snapshot.
	AdviceSequential
)
