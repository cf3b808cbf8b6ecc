//go:build linux || (darwin && !ios)

package shm

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/hupe1980/ffshm/internal/hash"
)

type sysvSegment struct {
	name string
	key  int
	id   int

	mu   sync.Mutex
	data []byte
}

func createSysV(name string, size int, perm os.FileMode) (Segment, error) {
	key := hash.IPCKey(name)
	id, err := unix.SysvShmGet(key, size, unix.IPC_CREAT|int(perm.Perm()))
	if err != nil {
		if errors.Is(err, unix.EINVAL) {
			return nil, fmt.Errorf("%w: key %#x for %q: %w", ErrTooSmall, key, name, err)
		}
		return nil, fmt.Errorf("shm: shmget key %#x for %q: %w", key, name, err)
	}
	return attachSysV(name, key, id)
}

func openSysV(name string) (Segment, error) {
	key := hash.IPCKey(name)
	id, err := unix.SysvShmGet(key, 0, 0)
	if err != nil {
		if errors.Is(err, unix.ENOENT) {
			return nil, fmt.Errorf("%w: key %#x for %q", ErrNotFound, key, name)
		}
		return nil, fmt.Errorf("shm: shmget key %#x for %q: %w", key, name, err)
	}
	return attachSysV(name, key, id)
}

func attachSysV(name string, key, id int) (Segment, error) {
	data, err := unix.SysvShmAttach(id, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("shm: shmat key %#x for %q: %w", key, name, err)
	}
	return &sysvSegment{name: name, key: key, id: id, data: data}, nil
}

func removeSysV(name string) error {
	key := hash.IPCKey(name)
	id, err := unix.SysvShmGet(key, 0, 0)
	if err != nil {
		if errors.Is(err, unix.ENOENT) {
			return fmt.Errorf("%w: key %#x for %q", ErrNotFound, key, name)
		}
		return fmt.Errorf("shm: shmget key %#x for %q: %w", key, name, err)
	}
	return rmid(name, key, id)
}

func rmid(name string, key, id int) error {
	if _, err := unix.SysvShmCtl(id, unix.IPC_RMID, nil); err != nil {
		if errors.Is(err, unix.EINVAL) || errors.Is(err, unix.EIDRM) {
			return nil // already removed
		}
		return fmt.Errorf("shm: IPC_RMID key %#x for %q: %w", key, name, err)
	}
	return nil
}

func (s *sysvSegment) Name() string     { return s.name }
func (s *sysvSegment) Backend() Backend { return SysV }

func (s *sysvSegment) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

func (s *sysvSegment) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *sysvSegment) Sync() error {
	if s.Bytes() == nil {
		return ErrDetached
	}
	return nil
}

func (s *sysvSegment) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil
	}
	err := unix.SysvShmDetach(s.data)
	s.data = nil
	if err != nil {
		return fmt.Errorf("shm: shmdt key %#x for %q: %w", s.key, s.name, err)
	}
	return nil
}

func (s *sysvSegment) Remove() error { return rmid(s.name, s.key, s.id) }
