package table

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hupe1980/tablespace/distance"
)

// DefaultLeafSize is the leaf size used when a caller does not set one.
const DefaultLeafSize = 20

// ErrLeafSize is returned for non-positive leaf sizes.
var ErrLeafSize = errors.New("leaf size must be positive")

// IndexConfig selects the metric and leaf size used by IndexData.
type IndexConfig struct {
	Metric   distance.Metric
	Weights  []float32 // required for distance.MetricWeightedL2, one per column
	LeafSize int
}

// DefaultIndexConfig returns l2 with DefaultLeafSize.
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{Metric: distance.MetricL2, LeafSize: DefaultLeafSize}
}

// Leaf is one partition of an index.
type Leaf struct {
	Rows     []int
	Centroid []float32
	// Radius is the largest metric distance from Centroid to a row in the leaf.
	Radius float32
}

// Index partitions the rows of a table into leaves of at most LeafSize rows.
// Rows are ordered along the column with the widest value range before they
// are cut into leaves.
type Index struct {
	Metric      distance.Metric
	LeafSize    int
	SplitColumn int
	Leaves      []Leaf
}

// NumLeaves returns the number of leaves.
func (ix *Index) NumLeaves() int { return len(ix.Leaves) }

// buildIndex reads rows through row, which may reuse dst for sparse storage.
func buildIndex(rows, cols int, row func(i int, dst []float32) []float32, cfg IndexConfig) (*Index, error) {
	if cfg.LeafSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrLeafSize, cfg.LeafSize)
	}
	if cfg.Metric == distance.MetricWeightedL2 && len(cfg.Weights) != cols {
		return nil, fmt.Errorf("%w: %d weights for %d columns", ErrDimension, len(cfg.Weights), cols)
	}
	dist, err := distance.Provider(cfg.Metric, cfg.Weights)
	if err != nil {
		return nil, err
	}

	ix := &Index{Metric: cfg.Metric, LeafSize: cfg.LeafSize}
	if rows == 0 {
		return ix, nil
	}

	// Materialize once; sparse rows are decoded into fresh slices.
	mat := make([][]float32, rows)
	for i := range mat {
		mat[i] = append([]float32(nil), row(i, make([]float32, cols))...)
	}

	ix.SplitColumn = widestColumn(mat, cols)
	order := make([]int, rows)
	for i := range order {
		order[i] = i
	}
	if cols > 0 {
		c := ix.SplitColumn
		sort.SliceStable(order, func(a, b int) bool { return mat[order[a]][c] < mat[order[b]][c] })
	}

	for start := 0; start < rows; start += cfg.LeafSize {
		end := min(start+cfg.LeafSize, rows)
		ix.Leaves = append(ix.Leaves, newLeaf(mat, order[start:end], cols, dist))
	}
	return ix, nil
}

func widestColumn(mat [][]float32, cols int) int {
	best, bestSpread := 0, float32(-1)
	for c := 0; c < cols; c++ {
		lo, hi := mat[0][c], mat[0][c]
		for _, r := range mat[1:] {
			lo = min(lo, r[c])
			hi = max(hi, r[c])
		}
		if hi-lo > bestSpread {
			best, bestSpread = c, hi-lo
		}
	}
	return best
}

func newLeaf(mat [][]float32, ids []int, cols int, dist distance.Func) Leaf {
	centroid := make([]float32, cols)
	for _, id := range ids {
		for c, v := range mat[id] {
			centroid[c] += v
		}
	}
	inv := 1 / float32(len(ids))
	for c := range centroid {
		centroid[c] *= inv
	}

	var radius float32
	for _, id := range ids {
		radius = max(radius, dist(centroid, mat[id]))
	}
	return Leaf{
		Rows:     append([]int(nil), ids...),
		Centroid: centroid,
		Radius:   radius,
	}
}
