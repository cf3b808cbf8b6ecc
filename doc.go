// Package ffshm exchanges typed values between a numeric host and a solver
// process through one shared-memory segment.
//
// # Quick Start
//
// The host creates the segment and hands its coordinates to the solver
// through the environment:
//
//	cfg := ffshm.Config{Name: ffshm.NewSessionName(), Size: 1 << 20}
//	m, _ := ffshm.Create(ctx, cfg)
//	defer m.Destroy()
//
//	cmd.Env = append(os.Environ(), cfg.Environ()...)
//	_ = m.WriteDouble(ctx, "tol", 1e-6)
//	_ = m.WriteArray(ctx, "rhs", ffshm.Float64Vector(rhs))
//
//	if err := m.Wait(ctx, "solution", 30*time.Second); err != nil { ... }
//	sol, _ := m.ReadArray("solution")
//
// The peer attaches with the same name:
//
//	cfg, _ := ffshm.ConfigFromEnv(nil)
//	peer, _ := ffshm.Attach(ctx, cfg)
//	defer peer.Close()
//
// # Segment Layout
//
//	[0, 4)            blob length, little-endian u32
//	[4, HeaderSize)   registry blob (JSON)
//	[HeaderSize, N)   variable data, bump-allocated, 8-byte aligned
//
// The registry maps names to {type, offset, size, update_time}. Values are
// stored native-endian:
//
//	int     4 bytes
//	double  8 bytes IEEE-754
//	string  u32 length + UTF-8 bytes
//	array   u32 count, u32 ndim, ndim x u32 shape, u32 dtype, elements
//
// # Updates
//
// A write to an existing name reuses its slot when the new encoding fits and
// the type matches; a larger value moves to a fresh slot and the old bytes
// are never reclaimed. Registered names are never removed. When the segment
// fills up, create a larger one and use Migrate.
//
// # Concurrency
//
// A Manager serializes its own calls. Across processes there is no mutual
// exclusion unless every peer opts into the same registry lock
// (WithRegistryLock). Readers may observe a partially written value.
//
// # Backends
//
// BackendSysV (default) is what the solver-side plugin attaches to.
// BackendPOSIX maps a file under /dev/shm. BackendAnonymous keeps the
// segment inside the current process.
package ffshm
