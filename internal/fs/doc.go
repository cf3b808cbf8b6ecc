// Package fs provides a small filesystem seam for snapshot files.
//
//   - [FileSystem]: the operations snapshot I/O needs (open, rename, remove)
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: test wrapper that injects write, sync and rename failures
//
// [WriteAtomic] writes through a temporary sibling file and renames it into
// place, so a failed write never replaces an existing file.
//
//	err := fs.WriteAtomic(fs.Default, "seg.ffsd", 0o644, func(w io.Writer) error {
//		return m.Dump(w, ffshm.CompressionZstd)
//	})
package fs
