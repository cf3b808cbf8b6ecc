// Package shm opens OS shared-memory segments by name.
//
// Three backends are available:
//
//   - SysV: shmget/shmat on a key derived from the name (hash.IPCKey). This
//     is what the solver-side plugin attaches to.
//   - POSIX: a file under /dev/shm (or a configured directory) mapped with
//     MAP_SHARED.
//   - Anonymous: a shared anonymous mapping registered by name inside the
//     current process. Useful for tests and single-process embedding.
//
// Create reuses an existing object with the same name when it is large
// enough, mirroring IPC_CREAT. Segments outlive their attachments: Remove
// marks the object for deletion and the memory is released once the last
// attachment detaches.
package shm
