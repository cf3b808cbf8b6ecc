package registry

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/hupe1980/ffshm/internal/wire"
)

// Version is written by Init.
const Version = "1.0"

// Timestamp is a point in time encoded as float Unix seconds.
type Timestamp struct {
	time.Time
}

// Stamp wraps t.
func Stamp(t time.Time) Timestamp { return Timestamp{Time: t} }

// Seconds returns t as float Unix seconds.
func (t Timestamp) Seconds() float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return strconv.AppendFloat(nil, t.Seconds(), 'f', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		t.Time = time.Time{}
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("timestamp: %v", f)
	}
	if f == 0 {
		t.Time = time.Time{}
		return nil
	}
	sec, frac := math.Modf(f)
	t.Time = time.Unix(int64(sec), int64(frac*1e9))
	return nil
}

// Descriptor locates one variable inside the segment.
type Descriptor struct {
	Kind       wire.Kind `json:"type"`
	Offset     int       `json:"offset"`
	Size       int       `json:"size"`
	UpdateTime Timestamp `json:"update_time"`
}

// End returns the first byte past the variable.
func (d Descriptor) End() int { return d.Offset + d.Size }

// Registry is the decoded header contents.
type Registry struct {
	Version    string                `json:"version"`
	CreateTime Timestamp             `json:"create_time"`
	Name       string                `json:"name"`
	Variables  map[string]Descriptor `json:"variables"`
}

// New returns an empty registry for the named segment.
func New(name string, now time.Time) *Registry {
	return &Registry{
		Version:    Version,
		CreateTime: Stamp(now),
		Name:       name,
		Variables:  make(map[string]Descriptor),
	}
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.Variables[name]
	return d, ok
}

// Set inserts or overwrites the descriptor for name.
func (r *Registry) Set(name string, d Descriptor) {
	if r.Variables == nil {
		r.Variables = make(map[string]Descriptor)
	}
	r.Variables[name] = d
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.Variables))
}

// Len returns the number of registered variables.
func (r *Registry) Len() int { return len(r.Variables) }

// Validate checks that every descriptor lies in the data area
// [headerSize, segmentSize) and carries a known type.
func (r *Registry) Validate(headerSize, segmentSize int) error {
	for _, name := range r.Names() {
		d := r.Variables[name]
		switch d.Kind {
		case wire.KindInt, wire.KindDouble, wire.KindString, wire.KindArray:
		default:
			return fmt.Errorf("%w: variable %q has unknown type %s", ErrCorrupt, name, d.Kind)
		}
		if d.Offset < headerSize || d.Size < 0 || d.End() > segmentSize || d.End() < d.Offset {
			return fmt.Errorf("%w: variable %q spans [%d,%d) outside data area [%d,%d)",
				ErrCorrupt, name, d.Offset, d.End(), headerSize, segmentSize)
		}
	}
	return nil
}
