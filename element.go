package ffshm

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hupe1980/ffshm/internal/registry"
	"github.com/hupe1980/ffshm/internal/wire"
)

// element locates flat element i of the array registered under name and
// calls fn with its byte slice. The array must hold elements of dt.
func (m *Manager) element(ctx context.Context, name string, dt DType, i, n int, fn func(b []byte) error) error {
	return m.locked(ctx, func(reg *registry.Registry) error {
		d, ok := reg.Lookup(name)
		if !ok {
			return &VariableNotFoundError{Name: name}
		}
		if d.Kind != KindArray {
			return &TypeMismatchError{Name: name, Want: KindArray, Got: d.Kind}
		}
		region := m.data[d.Offset:d.End()]
		h, err := wire.ParseArrayHeader(region)
		if err != nil {
			return translateError(err)
		}
		if h.DType != dt {
			return fmt.Errorf("%w: %q holds %s elements, not %s", ErrTypeMismatch, name, h.DType, dt)
		}
		if n > 0 {
			if _, err := h.ElementOffset(i + n - 1); err != nil {
				return translateError(err)
			}
		}
		off, err := h.ElementOffset(i)
		if err != nil {
			return translateError(err)
		}
		return fn(region[off : off+n*dt.ElemSize()])
	})
}

// ReadFloatElement returns flat element i of a float64 array.
func (m *Manager) ReadFloatElement(name string, i int) (float64, error) {
	var v float64
	err := m.element(context.Background(), name, DTypeFloat64, i, 1, func(b []byte) error {
		var err error
		v, err = wire.Double(b)
		return translateError(err)
	})
	return v, err
}

// WriteFloatElement overwrites flat element i of a float64 array in place.
func (m *Manager) WriteFloatElement(ctx context.Context, name string, i int, v float64) error {
	return m.WriteFloatElements(ctx, name, i, []float64{v})
}

// WriteFloatElements overwrites len(values) consecutive elements of a
// float64 array starting at flat index start. The array must already be
// registered and large enough.
func (m *Manager) WriteFloatElements(ctx context.Context, name string, start int, values []float64) error {
	t0 := time.Now()
	n := len(values) * wire.DoubleSize
	err := m.element(ctx, name, DTypeFloat64, start, len(values), func(b []byte) error {
		for j, v := range values {
			if err := wire.PutDouble(b[j*wire.DoubleSize:], v); err != nil {
				return translateError(err)
			}
		}
		return nil
	})
	m.opts.metricsCollector.RecordWrite(KindArray, n, time.Since(t0), err)
	m.log.LogWrite(ctx, name, KindArray, n, err)
	return err
}

// ReadIntElement returns flat element i of an int32 array.
func (m *Manager) ReadIntElement(name string, i int) (int32, error) {
	var v int32
	err := m.element(context.Background(), name, DTypeInt32, i, 1, func(b []byte) error {
		var err error
		v, err = wire.Int(b)
		return translateError(err)
	})
	return v, err
}

// WriteIntElement overwrites flat element i of an int32 array in place.
func (m *Manager) WriteIntElement(ctx context.Context, name string, i int, v int32) error {
	t0 := time.Now()
	err := m.element(ctx, name, DTypeInt32, i, 1, func(b []byte) error {
		return translateError(wire.PutInt(b, v))
	})
	m.opts.metricsCollector.RecordWrite(KindArray, wire.IntSize, time.Since(t0), err)
	m.log.LogWrite(ctx, name, KindArray, wire.IntSize, err)
	return err
}

// SeriesName returns the variable name WriteDoubleSeries uses for index i.
func SeriesName(i int) string { return strconv.Itoa(i) }

// WriteDoubleSeries stores values[k] as a double named SeriesName(start+k).
// All slots are resolved before any byte is written, and the registry is
// saved once.
func (m *Manager) WriteDoubleSeries(ctx context.Context, start int, values []float64) error {
	if len(values) == 0 {
		return nil
	}
	t0 := time.Now()
	err := m.locked(ctx, func(reg *registry.Registry) error {
		slots := make([]registry.Descriptor, len(values))
		dirty := false
		for k := range values {
			name := SeriesName(start + k)
			d, fresh, err := m.slot(reg, name, KindDouble, wire.DoubleSize)
			if err != nil {
				return err
			}
			if fresh {
				reg.Set(name, d)
				dirty = true
			}
			slots[k] = d
		}
		for k, v := range values {
			if err := wire.PutDouble(m.data[slots[k].Offset:slots[k].End()], v); err != nil {
				return translateError(err)
			}
		}
		if !dirty {
			return nil
		}
		return translateError(m.header.Save(reg))
	})
	n := len(values) * wire.DoubleSize
	m.opts.metricsCollector.RecordWrite(KindDouble, n, time.Since(t0), err)
	m.log.LogWrite(ctx, SeriesName(start), KindDouble, n, err)
	return err
}
