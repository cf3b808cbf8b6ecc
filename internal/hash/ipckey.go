package hash

// keyMask keeps keys positive in a signed 32-bit key_t.
const keyMask = 0x7fffffff

// IPCKey derives a positive System V IPC key from a segment name.
//
// The hash runs over Unicode code points, not bytes, so it matches the
// solver-side implementation for non-ASCII names.
func IPCKey(name string) int {
	var h int64
	for _, r := range name {
		h = (h*31 + int64(r)) & keyMask
	}
	if h == 0 {
		h = 1
	}
	return int(h)
}
