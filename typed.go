package ffshm

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/ffshm/internal/registry"
	"github.com/hupe1980/ffshm/internal/wire"
)

// exclusive runs fn with the in-process mutex and the registry lock held.
func (m *Manager) exclusive(ctx context.Context, fn func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if err := m.opts.locker.Lock(ctx); err != nil {
		return err
	}
	err := fn()
	if uerr := m.opts.locker.Unlock(); err == nil {
		err = uerr
	}
	return err
}

// locked is exclusive with the current registry loaded.
func (m *Manager) locked(ctx context.Context, fn func(reg *registry.Registry) error) error {
	return m.exclusive(ctx, func() error {
		reg, err := m.loadLocked()
		if err != nil {
			return err
		}
		return fn(reg)
	})
}

// Write stores v under name.
//
// A name that is absent, or whose slot is too small for v, gets a fresh
// slot and its registry entry is replaced, so the stored type may change.
// A slot that is large enough but holds another kind yields a
// TypeMismatchError. Otherwise v overwrites the slot in place and the
// registry is left untouched.
func (m *Manager) Write(ctx context.Context, name string, v Value) error {
	start := time.Now()
	size, err := m.write(ctx, name, v)
	m.opts.metricsCollector.RecordWrite(v.Kind(), size, time.Since(start), err)
	m.log.LogWrite(ctx, name, v.Kind(), size, err)
	return err
}

func (m *Manager) write(ctx context.Context, name string, v Value) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: empty variable name", ErrInvalidArgument)
	}
	size, err := wire.EncodedSize(v)
	if err != nil {
		return 0, invalidValue(err)
	}

	err = m.locked(ctx, func(reg *registry.Registry) error {
		d, fresh, err := m.slot(reg, name, v.Kind(), size)
		if err != nil {
			return err
		}
		if err := wire.Encode(m.data[d.Offset:d.End()], v); err != nil {
			return invalidValue(err)
		}
		if !fresh {
			return nil
		}
		if err := m.header.Put(name, d); err != nil {
			return translateError(err)
		}
		m.opts.metricsCollector.RecordAllocation(d.Size)
		return nil
	})
	return size, err
}

// slot resolves where a value of kind k and size bytes goes. fresh reports
// whether the returned descriptor still has to be published.
func (m *Manager) slot(reg *registry.Registry, name string, k Kind, size int) (registry.Descriptor, bool, error) {
	d, ok := reg.Lookup(name)
	if ok && d.Size >= size {
		if d.Kind != k {
			return d, false, &TypeMismatchError{Name: name, Want: k, Got: d.Kind}
		}
		return d, false, nil
	}
	off, err := m.alloc.Allocate(reg, size)
	if err != nil {
		return registry.Descriptor{}, false, translateError(err)
	}
	return registry.Descriptor{
		Kind:       k,
		Offset:     off,
		Size:       size,
		UpdateTime: registry.Stamp(time.Now()),
	}, true, nil
}

// Read returns the value stored under name, whatever its kind.
func (m *Manager) Read(name string) (Value, error) {
	return m.read(name, wire.KindInvalid)
}

func (m *Manager) read(name string, want Kind) (Value, error) {
	start := time.Now()
	var v Value
	err := m.locked(context.Background(), func(reg *registry.Registry) error {
		d, ok := reg.Lookup(name)
		if !ok {
			return &VariableNotFoundError{Name: name}
		}
		if want != wire.KindInvalid && d.Kind != want {
			return &TypeMismatchError{Name: name, Want: want, Got: d.Kind}
		}
		var err error
		v, err = wire.Decode(d.Kind, m.data[d.Offset:d.End()])
		return translateError(err)
	})
	kind := want
	if err == nil {
		kind = v.Kind()
	}
	m.opts.metricsCollector.RecordRead(kind, time.Since(start), err)
	m.log.LogRead(context.Background(), name, kind, err)
	return v, err
}

// WriteInt stores an int32 under name.
func (m *Manager) WriteInt(ctx context.Context, name string, v int32) error {
	return m.Write(ctx, name, IntValue(v))
}

// WriteDouble stores a float64 under name.
func (m *Manager) WriteDouble(ctx context.Context, name string, v float64) error {
	return m.Write(ctx, name, DoubleValue(v))
}

// WriteString stores a UTF-8 string under name.
func (m *Manager) WriteString(ctx context.Context, name string, s string) error {
	return m.Write(ctx, name, StringValue(s))
}

// WriteArray stores an array under name.
func (m *Manager) WriteArray(ctx context.Context, name string, a *Array) error {
	if a == nil {
		return fmt.Errorf("%w: nil array", ErrInvalidArgument)
	}
	return m.Write(ctx, name, ArrayValue(a))
}

// ReadInt returns the int32 stored under name.
func (m *Manager) ReadInt(name string) (int32, error) {
	v, err := m.read(name, KindInt)
	if err != nil {
		return 0, err
	}
	i, _ := v.Int()
	return i, nil
}

// ReadDouble returns the float64 stored under name.
func (m *Manager) ReadDouble(name string) (float64, error) {
	v, err := m.read(name, KindDouble)
	if err != nil {
		return 0, err
	}
	f, _ := v.Double()
	return f, nil
}

// ReadString returns the string stored under name.
func (m *Manager) ReadString(name string) (string, error) {
	v, err := m.read(name, KindString)
	if err != nil {
		return "", err
	}
	s, _ := v.Text()
	return s, nil
}

// ReadArray returns a copy of the array stored under name.
func (m *Manager) ReadArray(name string) (*Array, error) {
	v, err := m.read(name, KindArray)
	if err != nil {
		return nil, err
	}
	a, _ := v.Array()
	return a, nil
}
