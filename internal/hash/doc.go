// Package hash holds the small hashing helpers shared by the segment code.
//
// # IPC keys
//
// IPCKey turns a human-readable segment name into the numeric key used by
// shmget(2). Both peers run the same polynomial rolling hash, so the solver
// side only needs FF_SHM_NAME to find the segment:
//
//	h = (h*31 + codepoint) & 0x7fffffff
//
// A zero result is replaced by 1 because key 0 is IPC_PRIVATE. Two different
// names can collide; callers that need a guarantee should pick unique names
// (see NewSessionName in the root package).
//
// # CRC32-Castagnoli
//
// Segment dumps carry a CRC32C of their raw contents:
//
//	sum := hash.CRC32C(data)
package hash
