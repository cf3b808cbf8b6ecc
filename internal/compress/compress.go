// Package compress implements the payload codecs used by segment snapshots.
package compress

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type identifies a compression algorithm. Values are persisted.
type Type uint8

const (
	// None stores the payload verbatim.
	None Type = 0
	// LZ4 uses LZ4 block compression (fast).
	LZ4 Type = 1
	// Zstd uses Zstandard (better ratio).
	Zstd Type = 2
)

var (
	// ErrUnknownType is returned for an unrecognized compression byte.
	ErrUnknownType = errors.New("compress: unknown type")
	// ErrSizeMismatch is returned when the decoded length differs from the recorded one.
	ErrSizeMismatch = errors.New("compress: decompressed size mismatch")
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(t))
	}
}

// Parse maps "none", "lz4" or "zstd" to a Type.
func Parse(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	default:
		return None, fmt.Errorf("%w: %q", ErrUnknownType, s)
	}
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	// DecodeAll never grows dst past its capacity, so rawLen bounds the
	// output of a crafted payload.
	return zstd.NewReader(nil, zstd.WithDecodeAllCapLimit(true), zstd.WithDecoderConcurrency(1))
}

// Compress encodes data with t. The returned Type is the one actually used:
// LZ4 falls back to None for incompressible input.
func Compress(t Type, data []byte) ([]byte, Type, error) {
	switch t {
	case None:
		return data, None, nil
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, None, fmt.Errorf("compress: lz4: %w", err)
		}
		if n == 0 {
			return data, None, nil
		}
		return buf[:n], LZ4, nil
	case Zstd:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, None, fmt.Errorf("compress: zstd: %w", err)
		}
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(data, nil), Zstd, nil
	default:
		return nil, None, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
}

// Decompress decodes payload produced by Compress(t, ...). rawLen is the
// original length and bounds the output.
func Decompress(t Type, payload []byte, rawLen int) ([]byte, error) {
	switch t {
	case None:
		if len(payload) != rawLen {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrSizeMismatch, len(payload), rawLen)
		}
		return payload, nil
	case LZ4:
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("compress: lz4: %w", err)
		}
		if n != rawLen {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrSizeMismatch, n, rawLen)
		}
		return out, nil
	case Zstd:
		if len(payload) == 0 && rawLen == 0 {
			return []byte{}, nil
		}
		var fh zstd.Header
		if err := fh.Decode(payload); err != nil {
			return nil, fmt.Errorf("compress: zstd: %w", err)
		}
		if !fh.HasFCS || fh.FrameContentSize != uint64(rawLen) {
			return nil, fmt.Errorf("%w: frame declares %d bytes, want %d", ErrSizeMismatch, fh.FrameContentSize, rawLen)
		}
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, fmt.Errorf("compress: zstd: %w", err)
		}
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(payload, make([]byte, 0, rawLen))
		if err != nil {
			return nil, fmt.Errorf("compress: zstd: %w", err)
		}
		if len(out) != rawLen {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrSizeMismatch, len(out), rawLen)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownType, uint8(t))
	}
}
