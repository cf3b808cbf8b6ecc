//go:build unix

package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMmap_CreateWriteReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seg")

	m, err := Create(path, 4096, 0o600)
	require.NoError(t, err)
	assert.Equal(t, 4096, m.Size())
	assert.Len(t, m.Bytes(), 4096)

	copy(m.Bytes()[100:], "Hello, Mmap!")
	require.NoError(t, m.Sync())

	// A second mapping of the same file sees the stores.
	peer, err := Open(path)
	require.NoError(t, err)
	defer peer.Close()
	assert.Equal(t, "Hello, Mmap!", string(peer.Bytes()[100:112]))

	copy(peer.Bytes()[0:], "xy")
	assert.Equal(t, "xy", string(m.Bytes()[0:2]))

	require.NoError(t, m.Close())
	require.NoError(t, m.Close(), "close is idempotent")
	assert.True(t, m.Closed())
	assert.Nil(t, m.Bytes())

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(4096), fi.Size())
}

func TestMmap_CreateResizesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seg")
	require.NoError(t, os.WriteFile(path, []byte("short"), 0o600))

	m, err := Create(path, 8192, 0o600)
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, 8192, m.Size())
	assert.Equal(t, "short", string(m.Bytes()[:5]))
}

func TestMmap_OpenErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0o600))
	_, err = Open(empty)
	assert.ErrorIs(t, err, ErrInvalidSize)

	_, err = Create(filepath.Join(dir, "zero"), 0, 0o600)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestMmap_AnonIsZeroed(t *testing.T) {
	m, err := MapAnon(1 << 16)
	require.NoError(t, err)
	for _, b := range m.Bytes() {
		require.Zero(t, b)
	}
	require.NoError(t, m.Sync())
	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.Sync(), ErrClosed)

	_, err = MapAnon(0)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestAdvise(t *testing.T) {
	m, err := MapAnon(1 << 16)
	require.NoError(t, err)
	defer m.Close()

	for _, a := range []Advice{AdviceRandom, AdviceSequential, AdviceNormal} {
		require.NoError(t, Advise(m.Bytes(), a))
	}
	// unaligned sub-page regions are accepted as a no-op
	require.NoError(t, Advise(m.Bytes()[1:100], AdviceRandom))
	require.NoError(t, Advise(nil, AdviceRandom))
}
