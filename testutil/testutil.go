package testutil

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/hupe1980/tablespace/table"
)

// RNG wraps math/rand with a fixed seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset rewinds the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call.
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// DenseTable returns a rows x cols table of uniform [0, 1) cells.
func (r *RNG) DenseTable(rows, cols int) *table.Dense {
	data := make([]float32, rows*cols)
	r.FillUniform(data)
	d, err := table.NewDenseFrom(rows, cols, data)
	if err != nil {
		panic(err)
	}
	return d
}

// SparseTable returns a table where each cell is non-zero with probability
// density.
func (r *RNG) SparseTable(rows, cols int, density float64) *table.Sparse {
	s, err := table.NewSparse(cols)
	if err != nil {
		panic(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; i < rows; i++ {
		var idx []uint32
		var vals []float32
		for c := 0; c < cols; c++ {
			if r.rand.Float64() < density {
				idx = append(idx, uint32(c))
				vals = append(vals, r.rand.Float32()+0.5)
			}
		}
		if err := s.AppendRow(idx, vals); err != nil {
			panic(err)
		}
	}
	return s
}

// MixedTable joins a dense part of denseCols and a sparse part of sparseCols.
func (r *RNG) MixedTable(rows, denseCols, sparseCols int, density float64) *table.Mixed {
	m, err := table.NewMixed(r.DenseTable(rows, denseCols), r.SparseTable(rows, sparseCols, density))
	if err != nil {
		panic(err)
	}
	return m
}

// ParameterTable returns one random vector per name, of length 1 to 8.
func (r *RNG) ParameterTable(names ...string) *table.Parameter {
	p := table.NewParameter()
	for _, name := range names {
		v := make([]float64, 1+r.Intn(8))
		r.mu.Lock()
		for i := range v {
			v[i] = r.rand.NormFloat64()
		}
		r.mu.Unlock()
		p.Set(name, v)
	}
	return p
}

// SequenceNames returns prefix0..prefix{n-1}, the names a file sequence
// directive expands to.
func SequenceNames(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}
