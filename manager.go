package ffshm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/ffshm/internal/arena"
	"github.com/hupe1980/ffshm/internal/fs"
	"github.com/hupe1980/ffshm/internal/hash"
	"github.com/hupe1980/ffshm/internal/mmap"
	"github.com/hupe1980/ffshm/internal/registry"
	"github.com/hupe1980/ffshm/internal/shm"
)

// Descriptor describes one registered variable.
type Descriptor struct {
	Name       string
	Kind       Kind
	Offset     int
	Size       int
	UpdateTime time.Time
}

func publicDescriptor(name string, d registry.Descriptor) Descriptor {
	return Descriptor{
		Name:       name,
		Kind:       d.Kind,
		Offset:     d.Offset,
		Size:       d.Size,
		UpdateTime: d.UpdateTime.Time,
	}
}

// Stats summarizes a segment's registry and space usage.
type Stats struct {
	Name       string
	Backend    Backend
	Version    string
	CreateTime time.Time
	Variables  int
	Size       int // total segment bytes
	HeaderSize int
	HighWater  int // first byte past the highest variable
	LiveBytes  int // bytes covered by registered variables
	FreeBytes  int // bytes still available to new slots
	Orphaned   int // superseded slots and alignment padding
}

// Manager is an attachment to one shared segment.
//
// All methods are safe for concurrent use within the process. Separate
// processes are not synchronized unless a registry lock is configured.
type Manager struct {
	cfg   Config
	opts  options
	owner bool
	log   *Logger
	fsys  fs.FileSystem // used by DumpFile and RestoreFile

	mu        sync.Mutex
	seg       shm.Segment
	data      []byte
	header    *registry.Header
	alloc     *arena.Allocator
	closed    bool
	destroyed bool
}

// Create allocates the named segment (reusing an existing one with the same
// name), clears the header and writes a fresh registry.
func Create(ctx context.Context, cfg Config, optFns ...Option) (*Manager, error) {
	o := applyOptions(optFns)
	cfg.Size = cfg.size()
	log := o.logger.WithSegment(cfg.Name, o.backend)

	m, err := create(ctx, cfg, o, log)
	log.LogLifecycle(ctx, "create", cfg.Size, err)
	return m, err
}

func create(ctx context.Context, cfg Config, o options, log *Logger) (*Manager, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := cfg.validate(o.headerSize); err != nil {
		return nil, err
	}

	seg, err := shm.Create(cfg.Name, cfg.Size, o.shmOptions())
	if err != nil {
		return nil, segmentInitError(err)
	}
	m, err := newManager(cfg, o, log, seg, true)
	if err != nil {
		_ = seg.Detach()
		return nil, err
	}

	if err := o.locker.Lock(ctx); err != nil {
		_ = seg.Detach()
		return nil, err
	}
	_, err = m.header.Init(cfg.Name, time.Now())
	if uerr := o.locker.Unlock(); err == nil {
		err = uerr
	}
	if err != nil {
		_ = seg.Detach()
		return nil, fmt.Errorf("%w: %w", ErrSegmentInit, translateError(err))
	}
	return m, nil
}

// Attach opens an existing segment and validates its registry.
// cfg.Size is not used.
func Attach(ctx context.Context, cfg Config, optFns ...Option) (*Manager, error) {
	o := applyOptions(optFns)
	log := o.logger.WithSegment(cfg.Name, o.backend)

	m, err := attach(ctx, cfg, o, log)
	size := 0
	if m != nil {
		size = m.Size()
	}
	log.LogLifecycle(ctx, "attach", size, err)
	return m, err
}

func attach(ctx context.Context, cfg Config, o options, log *Logger) (*Manager, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: empty segment name", ErrInvalidArgument)
	}

	seg, err := shm.Open(cfg.Name, o.shmOptions())
	if err != nil {
		if errors.Is(err, shm.ErrNotFound) || errors.Is(err, shm.ErrInvalidName) {
			return nil, translateError(err)
		}
		return nil, segmentInitError(err)
	}
	m, err := newManager(cfg, o, log, seg, false)
	if err != nil {
		_ = seg.Detach()
		return nil, err
	}
	if _, err := m.header.Load(); err != nil {
		_ = seg.Detach()
		return nil, translateError(err)
	}
	return m, nil
}

// AttachWait retries Attach at the poll interval until the segment exists
// and carries a readable registry, timeout elapses (ErrTimeout) or ctx ends.
// A corrupt header is retried since the creator may still be initializing.
func AttachWait(ctx context.Context, cfg Config, timeout time.Duration, optFns ...Option) (*Manager, error) {
	o := applyOptions(optFns)
	log := o.logger.WithSegment(cfg.Name, o.backend)

	start := time.Now()
	var m *Manager
	err := poll(ctx, timeout, o.pollInterval, func() (bool, error) {
		var err error
		m, err = attach(ctx, cfg, o, log)
		if errors.Is(err, ErrSegmentNotFound) || errors.Is(err, ErrCorruptHeader) {
			return false, nil
		}
		return err == nil, err
	})
	o.metricsCollector.RecordWait(time.Since(start), err)
	size := 0
	if err == nil {
		size = m.Size()
	}
	log.LogLifecycle(ctx, "attach", size, err)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func newManager(cfg Config, o options, log *Logger, seg shm.Segment, owner bool) (*Manager, error) {
	data := seg.Bytes()
	header, err := registry.NewHeader(data, o.headerSize, o.codec)
	if err != nil {
		return nil, translateError(err)
	}
	cfg.Size = len(data)
	// Lookups touch the header and then one slot, so readahead only wastes
	// page cache. The hint is best effort.
	_ = mmap.Advise(data, mmap.AdviceRandom)
	return &Manager{
		cfg:    cfg,
		opts:   o,
		owner:  owner,
		log:    log,
		fsys:   fs.Default,
		seg:    seg,
		data:   data,
		header: header,
		alloc:  arena.New(o.headerSize, len(data)),
	}, nil
}

func segmentInitError(err error) error {
	if errors.Is(err, shm.ErrInvalidName) || errors.Is(err, shm.ErrInvalidSize) {
		return translateError(err)
	}
	return fmt.Errorf("%w: %w", ErrSegmentInit, err)
}

// Name returns the segment name.
func (m *Manager) Name() string { return m.cfg.Name }

// Key returns the SysV IPC key derived from the segment name.
func (m *Manager) Key() int { return hash.IPCKey(m.cfg.Name) }

// Size returns the total segment size in bytes.
func (m *Manager) Size() int { return m.cfg.Size }

// HeaderSize returns the number of bytes reserved for the registry.
func (m *Manager) HeaderSize() int { return m.opts.headerSize }

// Backend reports the backend the segment lives in.
func (m *Manager) Backend() Backend { return m.opts.backend }

// Owner reports whether this Manager created the segment.
func (m *Manager) Owner() bool { return m.owner }

// Config returns the configuration a peer needs to attach. Size reflects
// the actual segment size.
func (m *Manager) Config() Config { return m.cfg }

// Detach releases the local mapping. It is idempotent. The segment itself
// stays alive for other peers.
func (m *Manager) Detach() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.detachLocked(context.Background())
}

// Close is an alias for Detach.
func (m *Manager) Close() error { return m.Detach() }

func (m *Manager) detachLocked(ctx context.Context) error {
	if m.closed {
		return nil
	}
	m.closed = true
	m.data = nil
	err := translateError(errors.Join(m.seg.Sync(), m.seg.Detach()))
	m.log.LogLifecycle(ctx, "detach", m.cfg.Size, err)
	return err
}

// Destroy detaches if needed and removes the OS segment. Peers that are
// still attached keep their mapping until they detach.
func (m *Manager) Destroy() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.destroyed {
		return nil
	}
	ctx := context.Background()
	err := m.detachLocked(ctx)
	m.destroyed = true
	err = errors.Join(err, translateError(m.seg.Remove()))
	m.log.LogLifecycle(ctx, "destroy", m.cfg.Size, err)
	return err
}

// Remove deletes the named segment without attaching to it.
func Remove(cfg Config, optFns ...Option) error {
	o := applyOptions(optFns)
	return translateError(shm.Remove(cfg.Name, o.shmOptions()))
}

// loadLocked returns the current registry. m.mu must be held.
func (m *Manager) loadLocked() (*registry.Registry, error) {
	if m.closed {
		return nil, ErrClosed
	}
	reg, err := m.header.Load()
	if err != nil {
		return nil, translateError(err)
	}
	return reg, nil
}

// List returns every registered variable sorted by name.
func (m *Manager) List() ([]Descriptor, error) {
	var out []Descriptor
	err := m.locked(context.Background(), func(reg *registry.Registry) error {
		out = make([]Descriptor, 0, reg.Len())
		for _, name := range reg.Names() {
			out = append(out, publicDescriptor(name, reg.Variables[name]))
		}
		return nil
	})
	return out, err
}

// Exists reports whether name is registered.
func (m *Manager) Exists(name string) (bool, error) {
	var ok bool
	err := m.exclusive(context.Background(), func() (err error) {
		_, ok, err = m.header.Get(name)
		return translateError(err)
	})
	return ok, err
}

// Descriptor returns the registry entry for name.
func (m *Manager) Descriptor(name string) (Descriptor, error) {
	var out Descriptor
	err := m.exclusive(context.Background(), func() error {
		d, ok, err := m.header.Get(name)
		if err != nil {
			return translateError(err)
		}
		if !ok {
			return &VariableNotFoundError{Name: name}
		}
		out = publicDescriptor(name, d)
		return nil
	})
	return out, err
}

// Stats reports registry and space usage.
func (m *Manager) Stats() (Stats, error) {
	var out Stats
	err := m.locked(context.Background(), func(reg *registry.Registry) error {
		a := m.alloc.Stats(reg)
		out = Stats{
			Name:       reg.Name,
			Backend:    m.opts.backend,
			Version:    reg.Version,
			CreateTime: reg.CreateTime.Time,
			Variables:  a.Variables,
			Size:       a.SegmentSize,
			HeaderSize: a.HeaderSize,
			HighWater:  a.HighWater,
			LiveBytes:  a.LiveBytes,
			FreeBytes:  a.FreeBytes,
			Orphaned:   a.Orphaned(),
		}
		return nil
	})
	return out, err
}
