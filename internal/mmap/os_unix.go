//go:build unix

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

func osMap(f *os.File, size int) ([]byte, func([]byte) error, func([]byte) error, error) {
	prot := unix.PROT_READ | unix.PROT_WRITE
	flags := unix.MAP_SHARED

	data, err := unix.Mmap(int(f.Fd()), 0, size, prot, flags)
	if err != nil {
		return nil, nil, nil, err
	}

	return data, unix.Munmap, func(b []byte) error { return unix.Msync(b, unix.MS_SYNC) }, nil
}

func osMapAnon(size int) ([]byte, func([]byte) error, error) {
	prot := unix.PROT_READ | unix.PROT_WRITE
	flags := unix.MAP_ANON | unix.MAP_SHARED

	data, err := unix.Mmap(-1, 0, size, prot, flags)
	if err != nil {
		return nil, nil, err
	}

	return data, unix.Munmap, nil
}

// Advise passes a to madvise(2) for b. Regions the kernel rejects as
// unaligned are ignored.
func Advise(b []byte, a Advice) error {
	if len(b) == 0 {
		return nil
	}
	advice := unix.MADV_NORMAL
	switch a {
	case AdviceRandom:
		advice = unix.MADV_RANDOM
	case AdviceSequential:
		advice = unix.MADV_SEQUENTIAL
	}
	if err := unix.Madvise(b, advice); err != nil && err != unix.EINVAL {
		return err
	}
	return nil
}
