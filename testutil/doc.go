// Package testutil provides deterministic random data for tests.
//
//	rng := testutil.NewRNG(seed)
//	refs := rng.DenseTable(100, 8)
//	qs := rng.SparseTable(10, 64, 0.1)
//	mixed := rng.MixedTable(10, 4, 32, 0.2)
//	params := rng.ParameterTable("bandwidth", "weights")
//
// This package is intended for use in tests only.
package testutil
