//go:build !(linux || (darwin && !ios))

package shm

import "os"

func createSysV(string, int, os.FileMode) (Segment, error) { return nil, ErrUnsupported }

func openSysV(string) (Segment, error) { return nil, ErrUnsupported }

func removeSysV(string) error { return ErrUnsupported }
