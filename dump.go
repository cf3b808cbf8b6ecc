package ffshm

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/hupe1980/ffshm/internal/compress"
	"github.com/hupe1980/ffshm/internal/fs"
	"github.com/hupe1980/ffshm/internal/hash"
	"github.com/hupe1980/ffshm/internal/registry"
)

// Compression selects how Dump encodes the snapshot payload.
type Compression = compress.Type

const (
	// CompressionNone stores the segment bytes verbatim.
	CompressionNone = compress.None
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 = compress.LZ4
	// CompressionZstd uses Zstandard (better ratio).
	CompressionZstd = compress.Zstd
)

// ParseCompression maps "none", "lz4" or "zstd" to a Compression.
func ParseCompression(s string) (Compression, error) {
	c, err := compress.Parse(s)
	if err != nil {
		return c, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	return c, nil
}

const (
	snapshotMagic   = "FFSD"
	snapshotVersion = 1
	// magic | version | compression | crc | raw len | payload len | segment size | header size
	snapshotHeaderSize = 4 + 4 + 1 + 4 + 4 + 4 + 8 + 4
)

type snapshotHeader struct {
	compression Compression
	crc         uint32
	rawLen      int
	payloadLen  int
	segmentSize int
	headerSize  int
}

func (h snapshotHeader) marshal() []byte {
	b := make([]byte, snapshotHeaderSize)
	copy(b, snapshotMagic)
	le := binary.LittleEndian
	le.PutUint32(b[4:], snapshotVersion)
	b[8] = byte(h.compression)
	le.PutUint32(b[9:], h.crc)
	le.PutUint32(b[13:], uint32(h.rawLen))
	le.PutUint32(b[17:], uint32(h.payloadLen))
	le.PutUint64(b[21:], uint64(h.segmentSize))
	le.PutUint32(b[29:], uint32(h.headerSize))
	return b
}

func parseSnapshotHeader(b []byte) (snapshotHeader, error) {
	if string(b[:4]) != snapshotMagic {
		return snapshotHeader{}, fmt.Errorf("%w: bad magic %q", ErrInvalidSnapshot, b[:4])
	}
	le := binary.LittleEndian
	if v := le.Uint32(b[4:]); v != snapshotVersion {
		return snapshotHeader{}, fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, v)
	}
	segSize := le.Uint64(b[21:])
	if segSize > uint64(math.MaxInt) {
		return snapshotHeader{}, fmt.Errorf("%w: segment size %d", ErrInvalidSnapshot, segSize)
	}
	return snapshotHeader{
		compression: Compression(b[8]),
		crc:         le.Uint32(b[9:]),
		rawLen:      int(le.Uint32(b[13:])),
		payloadLen:  int(le.Uint32(b[17:])),
		segmentSize: int(segSize),
		headerSize:  int(le.Uint32(b[29:])),
	}, nil
}

// Dump writes a snapshot of the header and every byte up to the allocator
// high-water mark. It returns the number of bytes written to w.
func (m *Manager) Dump(w io.Writer, c Compression) (int64, error) {
	ctx := context.Background()
	n, err := m.dump(ctx, w, c)
	m.log.LogSnapshot(ctx, "dump", int(n), err)
	return n, err
}

func (m *Manager) dump(ctx context.Context, w io.Writer, c Compression) (int64, error) {
	var raw []byte
	err := m.locked(ctx, func(reg *registry.Registry) error {
		raw = append([]byte(nil), m.data[:m.alloc.HighWater(reg)]...)
		return nil
	})
	if err != nil {
		return 0, err
	}

	payload, used, err := compress.Compress(c, raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}
	h := snapshotHeader{
		compression: used,
		crc:         hash.CRC32C(raw),
		rawLen:      len(raw),
		payloadLen:  len(payload),
		segmentSize: m.Size(),
		headerSize:  m.HeaderSize(),
	}

	hn, err := w.Write(h.marshal())
	if err != nil {
		return int64(hn), err
	}
	pn, err := w.Write(payload)
	return int64(hn + pn), err
}

// Restore replaces the segment contents with a snapshot produced by Dump.
// The segment must be at least as large as the dumped one and use the same
// header size. Bytes past the snapshot are zeroed. The snapshot is fully
// validated before the segment is touched.
func (m *Manager) Restore(ctx context.Context, r io.Reader) error {
	n, err := m.restore(ctx, r)
	m.log.LogSnapshot(ctx, "restore", n, err)
	return err
}

func (m *Manager) restore(ctx context.Context, r io.Reader) (int, error) {
	hb := make([]byte, snapshotHeaderSize)
	if _, err := io.ReadFull(r, hb); err != nil {
		return 0, fmt.Errorf("%w: read header: %w", ErrInvalidSnapshot, err)
	}
	h, err := parseSnapshotHeader(hb)
	if err != nil {
		return 0, err
	}

	switch {
	case h.headerSize != m.HeaderSize():
		return 0, fmt.Errorf("%w: header size %d, segment uses %d", ErrInvalidSnapshot, h.headerSize, m.HeaderSize())
	case h.segmentSize > m.Size():
		return 0, fmt.Errorf("%w: snapshot of a %d byte segment does not fit %d bytes", ErrInvalidSnapshot, h.segmentSize, m.Size())
	case h.rawLen < h.headerSize || h.rawLen > h.segmentSize:
		return 0, fmt.Errorf("%w: raw length %d", ErrInvalidSnapshot, h.rawLen)
	case h.payloadLen > 2*h.rawLen+1024:
		return 0, fmt.Errorf("%w: payload length %d for %d raw bytes", ErrInvalidSnapshot, h.payloadLen, h.rawLen)
	}

	payload := make([]byte, h.payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, fmt.Errorf("%w: read payload: %w", ErrInvalidSnapshot, err)
	}
	raw, err := compress.Decompress(h.compression, payload, h.rawLen)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	if got := hash.CRC32C(raw); got != h.crc {
		return 0, fmt.Errorf("%w: checksum %08x, want %08x", ErrInvalidSnapshot, got, h.crc)
	}

	header, err := registry.NewHeader(raw, h.headerSize, m.opts.codec)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	if _, err := header.Load(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}

	err = m.exclusive(ctx, func() error {
		copy(m.data, raw)
		clear(m.data[len(raw):])
		_, err := m.loadLocked()
		return err
	})
	if err != nil {
		return 0, err
	}
	return len(raw), nil
}

// DumpFile writes a snapshot to path atomically: the file either holds the
// complete snapshot or is left as before.
func (m *Manager) DumpFile(path string, c Compression) error {
	return fs.WriteAtomic(m.fsys, path, 0o644, func(w io.Writer) error {
		_, err := m.Dump(w, c)
		return err
	})
}

// RestoreFile restores a snapshot previously written by DumpFile.
func (m *Manager) RestoreFile(ctx context.Context, path string) error {
	return fs.ReadFile(m.fsys, path, func(r io.Reader) error {
		return m.Restore(ctx, r)
	})
}
