package registry

import (
	"encoding/binary"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/hupe1980/ffshm/codec"
	"github.com/hupe1980/ffshm/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHeaderSize = 1024

func newTestHeader(t *testing.T, segSize int, c codec.Codec) (*Header, []byte) {
	t.Helper()
	region := make([]byte, segSize)
	h, err := NewHeader(region, testHeaderSize, c)
	require.NoError(t, err)
	return h, region
}

func TestInitAndLoad(t *testing.T) {
	for _, c := range []codec.Codec{codec.GoJSON{}, codec.JSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			h, region := newTestHeader(t, 4096, c)
			for i := range region {
				region[i] = 0xAA
			}

			now := time.Now()
			r, err := h.Init("seg", now)
			require.NoError(t, err)
			assert.Equal(t, Version, r.Version)

			n := binary.LittleEndian.Uint32(region)
			assert.Positive(t, n)
			assert.Zero(t, region[testHeaderSize-1], "header tail cleared")
			assert.Equal(t, byte(0xAA), region[testHeaderSize], "data area untouched")

			loaded, err := h.Load()
			require.NoError(t, err)
			assert.Equal(t, "seg", loaded.Name)
			assert.Equal(t, Version, loaded.Version)
			assert.Zero(t, loaded.Len())
			assert.WithinDuration(t, now, loaded.CreateTime.Time, time.Millisecond)
		})
	}
}

func TestPutGet(t *testing.T) {
	h, _ := newTestHeader(t, 4096, nil)
	_, err := h.Init("seg", time.Now())
	require.NoError(t, err)

	_, ok, err := h.Get("x")
	require.NoError(t, err)
	assert.False(t, ok)

	d := Descriptor{Kind: wire.KindInt, Offset: 1024, Size: 4, UpdateTime: Stamp(time.Now())}
	require.NoError(t, h.Put("x", d))

	got, ok, err := h.Get("x")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, d.Kind, got.Kind)
	assert.Equal(t, d.Offset, got.Offset)
	assert.Equal(t, d.Size, got.Size)
	assert.Equal(t, 1028, got.End())

	d2 := Descriptor{Kind: wire.KindDouble, Offset: 1032, Size: 8}
	require.NoError(t, h.Put("x", d2))
	got, _, err = h.Get("x")
	require.NoError(t, err)
	assert.Equal(t, wire.KindDouble, got.Kind)

	r, err := h.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, r.Names())
}

func TestBlobFormat(t *testing.T) {
	h, region := newTestHeader(t, 4096, codec.JSON{})
	r := New("seg", time.Unix(1700000000, 500_000_000))
	r.Set("Th", Descriptor{Kind: wire.KindString, Offset: 1024, Size: 6, UpdateTime: Stamp(time.Unix(1700000001, 0))})
	require.NoError(t, h.Save(r))

	n := binary.LittleEndian.Uint32(region)
	blob := string(region[4 : 4+n])
	assert.JSONEq(t, `{
		"version": "1.0",
		"create_time": 1700000000.5,
		"name": "seg",
		"variables": {"Th": {"type": "string", "offset": 1024, "size": 6, "update_time": 1700000001}}
	}`, blob)
}

func TestLoadForeignBlob(t *testing.T) {
	h, region := newTestHeader(t, 4096, nil)
	blob := `{"version": "1.0", "create_time": 1700000000.25, "name": "pyfreefem_ab",
		"variables": {"a": {"type": "array", "offset": 1024, "size": 40, "update_time": 1700000002.75}}}`
	binary.LittleEndian.PutUint32(region, uint32(len(blob)))
	copy(region[4:], blob)

	r, err := h.Load()
	require.NoError(t, err)
	d, ok := r.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, wire.KindArray, d.Kind)
	assert.Equal(t, int64(1700000002), d.UpdateTime.Unix())
	assert.InDelta(t, 1700000002.75, d.UpdateTime.Seconds(), 1e-6)
}

func TestLoadCorrupt(t *testing.T) {
	tests := []struct {
		name  string
		setup func(region []byte)
	}{
		{"length past capacity", func(region []byte) {
			binary.LittleEndian.PutUint32(region, testHeaderSize)
		}},
		{"garbage blob", func(region []byte) {
			binary.LittleEndian.PutUint32(region, 5)
			copy(region[4:], "{nope")
		}},
		{"empty blob", func(region []byte) {
			binary.LittleEndian.PutUint32(region, 0)
		}},
		{"unknown type tag", func(region []byte) {
			blob := `{"version":"1.0","variables":{"x":{"type":"float","offset":1024,"size":4}}}`
			binary.LittleEndian.PutUint32(region, uint32(len(blob)))
			copy(region[4:], blob)
		}},
		{"offset inside header", func(region []byte) {
			blob := `{"version":"1.0","variables":{"x":{"type":"int","offset":8,"size":4}}}`
			binary.LittleEndian.PutUint32(region, uint32(len(blob)))
			copy(region[4:], blob)
		}},
		{"past segment end", func(region []byte) {
			blob := `{"version":"1.0","variables":{"x":{"type":"int","offset":4094,"size":4}}}`
			binary.LittleEndian.PutUint32(region, uint32(len(blob)))
			copy(region[4:], blob)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, region := newTestHeader(t, 4096, nil)
			tt.setup(region)
			_, err := h.Load()
			assert.ErrorIs(t, err, ErrCorrupt)
		})
	}
}

func TestSaveOverflowKeepsPreviousRegistry(t *testing.T) {
	h, region := newTestHeader(t, 1<<20, nil)
	_, err := h.Init("seg", time.Now())
	require.NoError(t, err)

	off := testHeaderSize
	var lastOK int
	for i := 0; ; i++ {
		name := fmt.Sprintf("variable_with_a_long_name_%03d", i)
		err := h.Put(name, Descriptor{Kind: wire.KindDouble, Offset: off, Size: 8})
		if err != nil {
			require.ErrorIs(t, err, ErrOverflow)
			break
		}
		lastOK = i
		off += 8
	}
	require.Positive(t, lastOK)

	before := binary.LittleEndian.Uint32(region)
	r, err := h.Load()
	require.NoError(t, err)
	assert.Equal(t, lastOK+1, r.Len())
	assert.Equal(t, before, binary.LittleEndian.Uint32(region))
}

func TestSaveExactCapacity(t *testing.T) {
	h, _ := newTestHeader(t, 4096, codec.JSON{})
	r := New("", time.Time{})
	blob, err := codec.JSON{}.Marshal(r)
	require.NoError(t, err)

	r.Name = strings.Repeat("n", h.Capacity()-len(blob))
	require.NoError(t, h.Save(r))

	r.Name += "n"
	assert.ErrorIs(t, h.Save(r), ErrOverflow)

	loaded, err := h.Load()
	require.NoError(t, err)
	assert.Len(t, loaded.Name, h.Capacity()-len(blob))
}

func TestNewHeaderRejectsBadSize(t *testing.T) {
	_, err := NewHeader(make([]byte, 100), 200, nil)
	assert.ErrorIs(t, err, ErrInvalidHeaderSize)
	_, err = NewHeader(make([]byte, 100), 4, nil)
	assert.ErrorIs(t, err, ErrInvalidHeaderSize)
}

func TestTimestampZero(t *testing.T) {
	var ts Timestamp
	b, err := ts.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "0", string(b))

	require.NoError(t, ts.UnmarshalJSON([]byte("null")))
	assert.True(t, ts.IsZero())
	assert.Error(t, ts.UnmarshalJSON([]byte(`"x"`)))
}
