package mmap

import (
	"fmt"
	"os"
	"sync/atomic"
)

// Mapping is a read-write shared memory mapping.
// It owns the underlying byte slice and is responsible for unmapping it.
type Mapping struct {
	data   []byte
	size   int
	closed atomic.Bool
	// unmap is the platform-specific function to unmap the memory.
	unmap func([]byte) error
	sync  func([]byte) error
}

// Create opens or creates the file at path, sizes it to exactly size bytes
// and maps it read-write. An existing file is reused.
func Create(path string, size int, perm os.FileMode) (*Mapping, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, perm)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() != int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			return nil, err
		}
	}
	return mapFile(f, size)
}

// Open maps an existing file read-write using its current size.
func Open(path string) (*Mapping, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if size <= 0 || int64(int(size)) != size {
		return nil, fmt.Errorf("%w: file %s has %d bytes", ErrInvalidSize, path, size)
	}
	return mapFile(f, int(size))
}

func mapFile(f *os.File, size int) (*Mapping, error) {
	// The mapping stays valid after the descriptor is closed.
	data, unmapFunc, syncFunc, err := osMap(f, size)
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data, size: size, unmap: unmapFunc, sync: syncFunc}, nil
}

// MapAnon creates a zeroed shared anonymous mapping of size bytes.
func MapAnon(size int) (*Mapping, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	data, unmapFunc, err := osMapAnon(size)
	if err != nil {
		return nil, err
	}
	return &Mapping{data: data, size: size, unmap: unmapFunc}, nil
}

// Close unmaps the memory. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil // Already closed
	}
	if m.unmap != nil && m.data != nil {
		return m.unmap(m.data)
	}
	return nil
}

// Closed reports whether Close has been called.
func (m *Mapping) Closed() bool { return m.closed.Load() }

// Bytes returns the underlying byte slice.
// Warning: The slice is valid only until Close() is called.
// Accessing the slice after Close() results in undefined behavior (likely a crash).
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Size returns the size of the mapping in bytes.
func (m *Mapping) Size() int {
	return m.size
}

// Sync flushes file-backed pages to the underlying object.
// It is a no-op for anonymous mappings.
func (m *Mapping) Sync() error {
	if m.closed.Load() {
		return ErrClosed
	}
	if m.sync == nil {
		return nil
	}
	return m.sync(m.data)
}
