package registry

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/hupe1980/ffshm/codec"
)

// lengthSize is the width of the blob length prefix.
const lengthSize = 4

// Header reads and writes the registry stored at the start of a segment.
// It holds no cached state; every call goes to the region.
type Header struct {
	region []byte
	size   int
	codec  codec.Codec
}

// NewHeader binds a header of headerSize bytes to the start of region.
// A nil codec selects codec.Default.
func NewHeader(region []byte, headerSize int, c codec.Codec) (*Header, error) {
	if headerSize <= lengthSize || headerSize > len(region) {
		return nil, fmt.Errorf("%w: %d for a %d byte segment", ErrInvalidHeaderSize, headerSize, len(region))
	}
	if c == nil {
		c = codec.Default
	}
	return &Header{region: region, size: headerSize, codec: c}, nil
}

// Size returns the reserved header size.
func (h *Header) Size() int { return h.size }

// Capacity returns the largest blob the header can hold.
func (h *Header) Capacity() int { return h.size - lengthSize }

// Load decodes the registry currently stored in the header.
func (h *Header) Load() (*Registry, error) {
	n := binary.LittleEndian.Uint32(h.region[0:lengthSize])
	if uint64(n) > uint64(h.Capacity()) {
		return nil, fmt.Errorf("%w: blob length %d exceeds capacity %d", ErrCorrupt, n, h.Capacity())
	}
	blob := h.region[lengthSize : lengthSize+int(n)]

	r := &Registry{}
	if err := h.codec.Unmarshal(blob, r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if r.Variables == nil {
		r.Variables = make(map[string]Descriptor)
	}
	if err := r.Validate(h.size, len(h.region)); err != nil {
		return nil, err
	}
	return r, nil
}

// Save encodes r into the header. Nothing is written if the blob does not fit.
func (h *Header) Save(r *Registry) error {
	blob, err := h.codec.Marshal(r)
	if err != nil {
		return fmt.Errorf("registry: encode: %w", err)
	}
	if len(blob) > h.Capacity() {
		return fmt.Errorf("%w: %d bytes, capacity %d", ErrOverflow, len(blob), h.Capacity())
	}
	// Length last: a peer that reads the new length finds the complete blob.
	copy(h.region[lengthSize:], blob)
	binary.LittleEndian.PutUint32(h.region[0:lengthSize], uint32(len(blob)))
	return nil
}

// Get loads the registry and looks up name.
func (h *Header) Get(name string) (Descriptor, bool, error) {
	r, err := h.Load()
	if err != nil {
		return Descriptor{}, false, err
	}
	d, ok := r.Lookup(name)
	return d, ok, nil
}

// Put loads the registry, sets name to d and saves it back.
func (h *Header) Put(name string, d Descriptor) error {
	r, err := h.Load()
	if err != nil {
		return err
	}
	r.Set(name, d)
	return h.Save(r)
}

// Init clears the header region and writes a fresh registry.
func (h *Header) Init(name string, now time.Time) (*Registry, error) {
	clear(h.region[:h.size])
	r := New(name, now)
	if err := h.Save(r); err != nil {
		return nil, err
	}
	return r, nil
}
