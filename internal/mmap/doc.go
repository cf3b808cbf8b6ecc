// Package mmap provides read-write shared memory mappings.
//
// # Overview
//
// Mappings are always MAP_SHARED: stores through Bytes() become visible to
// every other process that maps the same object. Two sources are supported:
//
//   - Files (typically under /dev/shm), via Create and Open
//   - Anonymous memory, via MapAnon, shared with forked children only
//
// # Usage
//
//	m, err := mmap.Create("/dev/shm/session", 1<<20, 0o600)
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()
//	_ = m.Sync()
//
// # Thread Safety
//
// Close is idempotent and protected by atomic operations. Callers must
// ensure no goroutines access Bytes() after Close() returns. Concurrent
// stores to overlapping bytes are not synchronized.
package mmap
