package registry

import "errors"

var (
	// ErrCorrupt is returned when the header cannot be parsed.
	ErrCorrupt = errors.New("registry: corrupt header")

	// ErrOverflow is returned when the encoded registry does not fit the header.
	ErrOverflow = errors.New("registry: header overflow")

	// ErrInvalidHeaderSize is returned for a header size the region cannot hold.
	ErrInvalidHeaderSize = errors.New("registry: invalid header size")
)
