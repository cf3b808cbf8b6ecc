package ffshm

import (
	"errors"
	"fmt"

	"github.com/hupe1980/ffshm/internal/arena"
	"github.com/hupe1980/ffshm/internal/compress"
	"github.com/hupe1980/ffshm/internal/mmap"
	"github.com/hupe1980/ffshm/internal/registry"
	"github.com/hupe1980/ffshm/internal/shm"
	"github.com/hupe1980/ffshm/internal/wire"
)

var (
	// ErrSegmentInit is returned when the OS segment cannot be created or attached.
	ErrSegmentInit = errors.New("ffshm: segment initialization failed")
	// ErrSegmentNotFound is returned by Attach when no segment exists under the name.
	ErrSegmentNotFound = errors.New("ffshm: segment not found")
	// ErrCorruptHeader is returned when the registry cannot be decoded.
	ErrCorruptHeader = errors.New("ffshm: corrupt header")
	// ErrHeaderOverflow is returned when the registry no longer fits the header.
	ErrHeaderOverflow = errors.New("ffshm: header overflow")
	// ErrSegmentFull is returned when the data area has no room for a new slot.
	ErrSegmentFull = errors.New("ffshm: segment full")
	// ErrVariableNotFound is returned for names that were never written.
	ErrVariableNotFound = errors.New("ffshm: variable not found")
	// ErrTypeMismatch is returned when a name is accessed with the wrong type.
	ErrTypeMismatch = errors.New("ffshm: type mismatch")
	// ErrTimeout is returned when Wait or AttachWait gives up.
	ErrTimeout = errors.New("ffshm: timeout")
	// ErrCorruptValue is returned when stored bytes do not decode.
	ErrCorruptValue = errors.New("ffshm: corrupt value")
	// ErrIndexOutOfRange is returned for array element indexes outside the array.
	ErrIndexOutOfRange = errors.New("ffshm: index out of range")
	// ErrClosed is returned by operations on a detached Manager.
	ErrClosed = errors.New("ffshm: manager closed")
	// ErrInvalidArgument is returned for unusable names, sizes or values.
	ErrInvalidArgument = errors.New("ffshm: invalid argument")
	// ErrInvalidSnapshot is returned when a dump cannot be restored.
	ErrInvalidSnapshot = errors.New("ffshm: invalid snapshot")
)

// TypeMismatchError reports access to a variable under the wrong type.
type TypeMismatchError struct {
	Name string
	Want Kind
	Got  Kind
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("ffshm: type mismatch: %q is registered as %s, not %s", e.Name, e.Got, e.Want)
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// VariableNotFoundError reports a name absent from the registry.
type VariableNotFoundError struct {
	Name string
}

func (e *VariableNotFoundError) Error() string {
	return fmt.Sprintf("ffshm: variable %q not found", e.Name)
}

func (e *VariableNotFoundError) Unwrap() error { return ErrVariableNotFound }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Already public.
	var tm *TypeMismatchError
	var nf *VariableNotFoundError
	if errors.As(err, &tm) || errors.As(err, &nf) {
		return err
	}

	switch {
	case errors.Is(err, shm.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrSegmentNotFound, err)
	case errors.Is(err, registry.ErrCorrupt):
		return fmt.Errorf("%w: %w", ErrCorruptHeader, err)
	case errors.Is(err, registry.ErrOverflow):
		return fmt.Errorf("%w: %w", ErrHeaderOverflow, err)
	case errors.Is(err, arena.ErrFull):
		return fmt.Errorf("%w: %w", ErrSegmentFull, err)
	case errors.Is(err, wire.ErrIndexOutOfRange):
		return fmt.Errorf("%w: %w", ErrIndexOutOfRange, err)
	case errors.Is(err, wire.ErrDTypeMismatch):
		return fmt.Errorf("%w: %w", ErrTypeMismatch, err)
	case errors.Is(err, wire.ErrMalformed), errors.Is(err, wire.ErrShortBuffer), errors.Is(err, wire.ErrUnknownKind):
		return fmt.Errorf("%w: %w", ErrCorruptValue, err)
	case errors.Is(err, mmap.ErrClosed), errors.Is(err, shm.ErrDetached):
		return fmt.Errorf("%w: %w", ErrClosed, err)
	case errors.Is(err, shm.ErrInvalidName), errors.Is(err, shm.ErrInvalidSize),
		errors.Is(err, registry.ErrInvalidHeaderSize), errors.Is(err, arena.ErrInvalidSize):
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	case errors.Is(err, shm.ErrTooSmall), errors.Is(err, shm.ErrUnsupported):
		return fmt.Errorf("%w: %w", ErrSegmentInit, err)
	case errors.Is(err, compress.ErrUnknownType), errors.Is(err, compress.ErrSizeMismatch):
		return fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	return err
}

// invalidValue maps malformed caller input to ErrInvalidArgument instead of
// ErrCorruptValue.
func invalidValue(err error) error {
	if errors.Is(err, wire.ErrMalformed) || errors.Is(err, wire.ErrUnknownKind) {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return translateError(err)
}
