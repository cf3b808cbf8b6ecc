// Package testutil provides helpers for ffshm tests and benchmarks.
//
// It is intended for tests only. It generates seeded random payloads and
// unique segment names so parallel tests never collide.
//
// # Random Payloads
//
//	rng := testutil.NewRNG(seed)
//	vals := rng.Float64s(64)            // uniform [0, 1)
//	mesh := rng.Float64Array(3, 8)      // random shape, up to 3 axes of <= 8
//	ids := rng.Int32Array(2, 16)
//
// # Names
//
//	name := testutil.UniqueName("pyfreefem_test_")
package testutil
