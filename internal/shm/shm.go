package shm

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrNotFound is returned when no segment exists under the name.
	ErrNotFound = errors.New("shm: segment not found")
	// ErrInvalidName is returned for names the backend cannot address.
	ErrInvalidName = errors.New("shm: invalid segment name")
	// ErrInvalidSize is returned for non-positive sizes.
	ErrInvalidSize = errors.New("shm: invalid segment size")
	// ErrTooSmall is returned by Create when an existing segment with the same
	// name is smaller than requested.
	ErrTooSmall = errors.New("shm: existing segment too small")
	// ErrUnsupported is returned when the backend is not available on this platform.
	ErrUnsupported = errors.New("shm: backend not supported on this platform")
	// ErrDetached is returned by operations on a detached segment.
	ErrDetached = errors.New("shm: segment detached")
)

// Backend selects the OS mechanism behind a segment.
type Backend int

const (
	// SysV uses System V shared memory keyed by hash.IPCKey(name).
	SysV Backend = iota
	// POSIX uses a memory-mapped file in a shared-memory directory.
	POSIX
	// Anonymous uses process-local shared anonymous memory.
	Anonymous
)

func (b Backend) String() string {
	switch b {
	case SysV:
		return "sysv"
	case POSIX:
		return "posix"
	case Anonymous:
		return "anon"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

// ParseBackend maps "sysv", "posix" or "anon" to a Backend.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(s) {
	case "sysv", "":
		return SysV, nil
	case "posix", "file":
		return POSIX, nil
	case "anon", "anonymous":
		return Anonymous, nil
	default:
		return 0, fmt.Errorf("shm: unknown backend %q", s)
	}
}

// DefaultPerm is applied to newly created segments.
const DefaultPerm os.FileMode = 0o666

// Options controls how segments are addressed and created.
type Options struct {
	Backend Backend
	// Dir is the POSIX backend directory. Empty selects /dev/shm when
	// writable, else os.TempDir().
	Dir string
	// Perm is the permission mask for new segments. Zero selects DefaultPerm.
	Perm os.FileMode
}

func (o Options) perm() os.FileMode {
	if o.Perm == 0 {
		return DefaultPerm
	}
	return o.Perm
}

// Segment is an attached shared-memory segment.
type Segment interface {
	// Name returns the name the segment was opened under.
	Name() string
	// Backend reports the mechanism behind the segment.
	Backend() Backend
	// Bytes returns the mapped memory. It is nil after Detach.
	Bytes() []byte
	// Size returns the segment size in bytes.
	Size() int
	// Sync flushes the mapping where the backend supports it.
	Sync() error
	// Detach releases the local attachment. It is idempotent.
	Detach() error
	// Remove deletes the OS object. Existing attachments stay valid.
	Remove() error
}

// Create creates or reuses the named segment with at least size bytes and
// attaches to it.
func Create(name string, size int, opts Options) (Segment, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	switch opts.Backend {
	case SysV:
		return createSysV(name, size, opts.perm())
	case POSIX:
		return createPOSIX(name, size, opts)
	case Anonymous:
		return createAnon(name, size)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, opts.Backend)
	}
}

// Open attaches to an existing segment.
func Open(name string, opts Options) (Segment, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	switch opts.Backend {
	case SysV:
		return openSysV(name)
	case POSIX:
		return openPOSIX(name, opts)
	case Anonymous:
		return openAnon(name)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, opts.Backend)
	}
}

// Remove deletes the named segment without attaching to it.
func Remove(name string, opts Options) error {
	if err := validateName(name); err != nil {
		return err
	}
	switch opts.Backend {
	case SysV:
		return removeSysV(name)
	case POSIX:
		return removePOSIX(name, opts)
	case Anonymous:
		return removeAnon(name)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, opts.Backend)
	}
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if strings.ContainsAny(name, "/\x00") || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
