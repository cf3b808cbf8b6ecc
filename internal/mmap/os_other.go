//go:build !unix

package mmap

import "os"

func osMap(_ *os.File, _ int) ([]byte, func([]byte) error, func([]byte) error, error) {
	return nil, nil, nil, ErrUnsupported
}

func osMapAnon(_ int) ([]byte, func([]byte) error, error) {
	return nil, nil, ErrUnsupported
}

// Advise is a no-op without madvise(2).
func Advise(_ []byte, _ Advice) error { return nil }
