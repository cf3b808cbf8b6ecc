// Package registry implements the self-describing header at the start of a
// shared segment.
//
// # Layout
//
//	Offset 0 (4 bytes):  blob length, little-endian u32
//	Offset 4 (N bytes):  registry blob, N <= HeaderSize-4
//
// The blob is a JSON object (encoded with a codec.Codec):
//
//	{
//	  "version": "1.0",
//	  "create_time": 1700000000.123,
//	  "name": "pyfreefem_...",
//	  "variables": {
//	    "x": {"type": "int", "offset": 1024, "size": 4, "update_time": 1700000001.5}
//	  }
//	}
//
// Timestamps are float Unix seconds. Type tags are "int", "double", "string"
// and "array".
//
// # Consistency
//
// Save checks the encoded size against the header capacity before touching
// the region, so a rejected save leaves the previous registry readable. The
// header is rewritten in place without a cross-process lock; concurrent
// writers from two processes can lose each other's registrations unless the
// caller serializes them.
package registry
