// Package lock provides the optional cross-process registry lock.
//
// Peers that share a segment can serialize their lookup-allocate-put cycles
// by taking an advisory flock(2) on a common file. The lock only helps if
// every writer takes it; the solver-side plugin does not.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// ErrLocked is returned by TryLock when another holder owns the lock.
var ErrLocked = errors.New("lock: held by another process")

// Locker serializes registry updates.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock() error
}

// Nop is a Locker that never blocks.
type Nop struct{}

func (Nop) Lock(context.Context) error { return nil }
func (Nop) Unlock() error              { return nil }

// retryInterval paces blocking acquisition while the lock is contended.
const retryInterval = 5 * time.Millisecond

// File is an exclusive flock(2) on a path. The file is created on first use
// and never removed. A File is not reentrant.
type File struct {
	path string

	mu sync.Mutex
	f  *os.File
}

// NewFile returns a locker for path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the lock file path.
func (l *File) Path() string { return l.path }

// Lock blocks until the lock is acquired or ctx ends.
func (l *File) Lock(ctx context.Context) error {
	t := time.NewTicker(retryInterval)
	defer t.Stop()
	for {
		err := l.TryLock()
		if !errors.Is(err, ErrLocked) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

// TryLock acquires the lock without blocking.
func (l *File) TryLock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f != nil {
		return ErrLocked
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o666)
	if err != nil {
		return fmt.Errorf("lock: open %s: %w", l.path, err)
	}
	if err := flockExclusive(f); err != nil {
		_ = f.Close()
		return err
	}
	l.f = f
	return nil
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (l *File) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil
	return errors.Join(funlock(f), f.Close())
}
