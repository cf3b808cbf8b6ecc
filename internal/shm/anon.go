package shm

import (
	"fmt"
	"sync"

	"github.com/hupe1980/ffshm/internal/mmap"
)

// anonObject is a named anonymous mapping shared by all attachments in the
// process.
type anonObject struct {
	m       *mmap.Mapping
	refs    int
	removed bool
}

var anonTable = struct {
	sync.Mutex
	objects map[string]*anonObject
}{objects: make(map[string]*anonObject)}

type anonSegment struct {
	name string
	obj  *anonObject
	once sync.Once
	err  error
	data []byte
}

func createAnon(name string, size int) (Segment, error) {
	anonTable.Lock()
	defer anonTable.Unlock()

	if obj, ok := anonTable.objects[name]; ok {
		if obj.m.Size() < size {
			return nil, fmt.Errorf("%w: %q has %d bytes, want %d", ErrTooSmall, name, obj.m.Size(), size)
		}
		return attachAnon(name, obj), nil
	}

	m, err := mmap.MapAnon(size)
	if err != nil {
		return nil, fmt.Errorf("shm: map anonymous %q: %w", name, err)
	}
	obj := &anonObject{m: m}
	anonTable.objects[name] = obj
	return attachAnon(name, obj), nil
}

func openAnon(name string) (Segment, error) {
	anonTable.Lock()
	defer anonTable.Unlock()

	obj, ok := anonTable.objects[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return attachAnon(name, obj), nil
}

func removeAnon(name string) error {
	anonTable.Lock()
	defer anonTable.Unlock()

	obj, ok := anonTable.objects[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return obj.markRemoved(name)
}

// attachAnon must be called with anonTable held.
func attachAnon(name string, obj *anonObject) *anonSegment {
	obj.refs++
	return &anonSegment{name: name, obj: obj, data: obj.m.Bytes()}
}

// markRemoved must be called with anonTable held.
func (o *anonObject) markRemoved(name string) error {
	if o.removed {
		return nil
	}
	o.removed = true
	if anonTable.objects[name] == o {
		delete(anonTable.objects, name)
	}
	return o.release()
}

func (o *anonObject) release() error {
	if o.removed && o.refs == 0 {
		return o.m.Close()
	}
	return nil
}

func (s *anonSegment) Name() string     { return s.name }
func (s *anonSegment) Backend() Backend { return Anonymous }
func (s *anonSegment) Size() int        { return s.obj.m.Size() }

func (s *anonSegment) Bytes() []byte {
	anonTable.Lock()
	defer anonTable.Unlock()
	return s.data
}

func (s *anonSegment) Sync() error {
	if s.Bytes() == nil {
		return ErrDetached
	}
	return nil
}

func (s *anonSegment) Detach() error {
	s.once.Do(func() {
		anonTable.Lock()
		defer anonTable.Unlock()
		s.data = nil
		s.obj.refs--
		s.err = s.obj.release()
	})
	return s.err
}

func (s *anonSegment) Remove() error {
	anonTable.Lock()
	defer anonTable.Unlock()
	return s.obj.markRemoved(s.name)
}
