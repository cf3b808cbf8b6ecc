package fs

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeString(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func TestWriteAtomic(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path := filepath.Join(dir, "seg.ffsd")

	require.NoError(t, WriteAtomic(nil, path, 0o644, writeString("first")))
	require.NoError(t, WriteAtomic(LocalFS{}, path, 0o644, writeString("second")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestWriteAtomicKeepsPreviousOnFailure(t *testing.T) {
	tests := []struct {
		name  string
		fault Fault
	}{
		{"write", Fault{FailAfterBytes: 3}},
		{"sync", Fault{FailAfterBytes: -1, FailOnSync: true}},
		{"close", Fault{FailAfterBytes: -1, FailOnClose: true}},
		{"rename", Fault{FailAfterBytes: -1, FailOnRename: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "seg.ffsd")
			require.NoError(t, os.WriteFile(path, []byte("previous"), 0o644))

			ffs := NewFaultyFS(nil)
			ffs.AddRule("seg.ffsd", tt.fault)

			err := WriteAtomic(ffs, path, 0o644, writeString("replacement"))
			assert.ErrorIs(t, err, ErrInjected)

			got, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "previous", string(got))

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Len(t, entries, 1)
		})
	}
}

func TestWriteAtomicPropagatesWriterError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x")
	boom := io.ErrClosedPipe
	err := WriteAtomic(nil, path, 0o644, func(io.Writer) error { return boom })
	assert.ErrorIs(t, err, boom)
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	var buf bytes.Buffer
	require.NoError(t, ReadFile(nil, path, func(r io.Reader) error {
		_, err := io.Copy(&buf, r)
		return err
	}))
	assert.Equal(t, "hello", buf.String())

	err := ReadFile(nil, path+".missing", func(io.Reader) error { return nil })
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFaultyFSCountsWrites(t *testing.T) {
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("limited", Fault{FailAfterBytes: 5})

	f, err := ffs.OpenFile(filepath.Join(t.TempDir(), "limited.bin"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	defer f.Close()

	n, err := f.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = f.Write([]byte("!"))
	assert.ErrorIs(t, err, ErrInjected)
	assert.Equal(t, 0, n)
	assert.Equal(t, int64(5), ffs.Written())
}
