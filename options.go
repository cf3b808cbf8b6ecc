package ffshm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/ffshm/codec"
	"github.com/hupe1980/ffshm/internal/lock"
	"github.com/hupe1980/ffshm/internal/shm"
)

const (
	// DefaultHeaderSize is the number of leading bytes reserved for the registry.
	DefaultHeaderSize = 1024
	// DefaultPollInterval paces Wait and AttachWait.
	DefaultPollInterval = 100 * time.Millisecond
)

// Backend selects the OS mechanism behind a segment.
type Backend = shm.Backend

const (
	// BackendSysV uses System V shared memory keyed by the name's IPC key.
	// The solver-side extension attaches this way.
	BackendSysV = shm.SysV
	// BackendPOSIX maps a file in /dev/shm or the WithDir directory.
	BackendPOSIX = shm.POSIX
	// BackendAnonymous keeps segments in process memory, for tests.
	BackendAnonymous = shm.Anonymous
)

// ParseBackend maps "sysv", "posix" or "anon" to a Backend.
func ParseBackend(s string) (Backend, error) {
	b, err := shm.ParseBackend(s)
	if err != nil {
		return b, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return b, nil
}

// Locker serializes registry updates across processes.
// Every peer must use the same lock for it to have any effect.
type Locker interface {
	Lock(ctx context.Context) error
	Unlock() error
}

type options struct {
	headerSize       int
	backend          Backend
	dir              string
	perm             os.FileMode
	pollInterval     time.Duration
	codec            codec.Codec
	metricsCollector MetricsCollector
	logger           *Logger
	locker           Locker
}

// Option configures Create, Attach and AttachWait.
type Option func(*options)

// WithHeaderSize sets the reserved header size. Both peers must agree;
// the default is 1024.
func WithHeaderSize(n int) Option {
	return func(o *options) {
		o.headerSize = n
	}
}

// WithBackend selects the shared-memory backend. The default is BackendSysV.
func WithBackend(b Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithDir sets the directory used by BackendPOSIX.
func WithDir(dir string) Option {
	return func(o *options) {
		o.dir = dir
	}
}

// WithPermissions sets the permission bits of newly created segments.
func WithPermissions(perm os.FileMode) Option {
	return func(o *options) {
		o.perm = perm
	}
}

// WithPollInterval sets how often Wait and AttachWait re-check.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithCodec configures the registry blob codec.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &ffshm.BasicMetricsCollector{}
//	m, _ := ffshm.Create(ctx, cfg, ffshm.WithMetricsCollector(metrics))
//	// ... use m ...
//	stats := metrics.GetStats()
//	fmt.Printf("Writes: %d, Avg latency: %dns\n", stats.WriteCount, stats.WriteAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := ffshm.NewJSONLogger(slog.LevelInfo)
//	m, _ := ffshm.Create(ctx, cfg, ffshm.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithRegistryLock takes an exclusive flock(2) on path around every registry
// update. The file is created if missing.
func WithRegistryLock(path string) Option {
	return func(o *options) {
		o.locker = lock.NewFile(path)
	}
}

// WithLocker installs a custom registry lock.
func WithLocker(l Locker) Option {
	return func(o *options) {
		o.locker = l
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		headerSize:       DefaultHeaderSize,
		backend:          BackendSysV,
		perm:             shm.DefaultPerm,
		pollInterval:     DefaultPollInterval,
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		locker:           lock.Nop{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.locker == nil {
		o.locker = lock.Nop{}
	}
	return o
}

func (o options) shmOptions() shm.Options {
	return shm.Options{Backend: o.backend, Dir: o.dir, Perm: o.perm}
}
