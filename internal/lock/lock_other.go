//go:build !unix

package lock

import (
	"errors"
	"os"
)

func flockExclusive(*os.File) error {
	return errors.New("lock: flock not supported on this platform")
}

func funlock(*os.File) error { return nil }
