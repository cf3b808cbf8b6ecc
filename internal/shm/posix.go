package shm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hupe1980/ffshm/internal/mmap"
)

const devShm = "/dev/shm"

var (
	devShmOnce sync.Once
	devShmOK   bool
)

// Path returns the file the POSIX backend uses for name.
func Path(name string, opts Options) string {
	return filepath.Join(posixDir(opts), name)
}

func posixDir(opts Options) string {
	if opts.Dir != "" {
		return opts.Dir
	}
	devShmOnce.Do(func() {
		info, err := os.Stat(devShm)
		devShmOK = err == nil && info.IsDir() && info.Mode().Perm()&0o200 != 0
	})
	if devShmOK {
		return devShm
	}
	return os.TempDir()
}

type posixSegment struct {
	name string
	path string
	m    *mmap.Mapping
}

func createPOSIX(name string, size int, opts Options) (Segment, error) {
	path := Path(name, opts)
	if fi, err := os.Stat(path); err == nil && fi.Size() > int64(size) {
		// An existing larger object keeps its size.
		size = int(fi.Size())
	}
	m, err := mmap.Create(path, size, opts.perm())
	if err != nil {
		return nil, fmt.Errorf("shm: create %s: %w", path, err)
	}
	return &posixSegment{name: name, path: path, m: m}, nil
}

func openPOSIX(name string, opts Options) (Segment, error) {
	path := Path(name, opts)
	m, err := mmap.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("shm: open %s: %w", path, err)
	}
	return &posixSegment{name: name, path: path, m: m}, nil
}

func removePOSIX(name string, opts Options) error {
	path := Path(name, opts)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return fmt.Errorf("shm: remove %s: %w", path, err)
	}
	return nil
}

func (s *posixSegment) Name() string     { return s.name }
func (s *posixSegment) Backend() Backend { return POSIX }
func (s *posixSegment) Bytes() []byte    { return s.m.Bytes() }
func (s *posixSegment) Size() int        { return s.m.Size() }

func (s *posixSegment) Sync() error {
	if s.m.Closed() {
		return ErrDetached
	}
	return s.m.Sync()
}

func (s *posixSegment) Detach() error { return s.m.Close() }

func (s *posixSegment) Remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("shm: remove %s: %w", s.path, err)
	}
	return nil
}
