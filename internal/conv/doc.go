// Package conv provides checked integer conversions for wire fields.
//
// Everything read back from a shared segment is untrusted: the peer may run a
// different format version or the segment may have been overwritten
// concurrently. Lengths, counts and shape extents go through these helpers
// before they are used to slice the segment.
package conv
