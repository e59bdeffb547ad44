package table

import (
	"errors"
	"fmt"

	"github.com/hupe1980/tablespace/distance"
)

var (
	// ErrUnsupportedShape is returned when a table's kind is outside the
	// family a caller asked for.
	ErrUnsupportedShape = errors.New("unsupported table shape")
	// ErrUnsupportedMetric is returned by IndexData for unknown metrics.
	ErrUnsupportedMetric = distance.ErrUnsupportedMetric
	// ErrDimension is returned for out-of-range rows, columns or mismatched
	// lengths.
	ErrDimension = errors.New("dimension mismatch")
	// ErrFormat is returned when a table file is malformed.
	ErrFormat = errors.New("malformed table file")
	// ErrChecksum is returned when a table file payload fails verification.
	ErrChecksum = errors.New("table file checksum mismatch")
)

// Table is a table-shaped value stored under a name in a workspace.
type Table interface {
	Kind() Kind
	NumRows() int
	NumCols() int
	// CloneData returns a deep copy of the cells. Derived state such as an
	// index is not copied.
	CloneData() Table
	// SizeBytes estimates resident memory.
	SizeBytes() int64
}

// Indexable is implemented by data tables.
type Indexable interface {
	Table
	IndexData(cfg IndexConfig) error
	IsIndexed() bool
	Index() *Index
}

// Info summarizes a table.
type Info struct {
	Kind        Kind  `json:"kind"`
	Rows        int   `json:"rows"`
	Cols        int   `json:"cols"`
	DenseSizes  []int `json:"dense_sizes"`
	SparseSizes []int `json:"sparse_sizes"`
	Indexed     bool  `json:"indexed"`
	SizeBytes   int64 `json:"size_bytes"`
}

// Describe returns the Info of t.
func Describe(t Table) Info {
	info := Info{
		Kind:        t.Kind(),
		Rows:        t.NumRows(),
		Cols:        t.NumCols(),
		DenseSizes:  []int{},
		SparseSizes: []int{},
		SizeBytes:   t.SizeBytes(),
	}
	switch v := t.(type) {
	case *Dense:
		info.DenseSizes = []int{v.cols}
	case *Sparse:
		info.SparseSizes = []int{v.cols}
	case *Mixed:
		info.DenseSizes = []int{v.dense.cols}
		info.SparseSizes = []int{v.sparse.cols}
	case *Parameter:
		for _, name := range v.names {
			info.DenseSizes = append(info.DenseSizes, len(v.values[name]))
		}
	}
	if ix, ok := t.(Indexable); ok {
		info.Indexed = ix.IsIndexed()
	}
	return info
}

// Check returns ErrUnsupportedShape unless t's kind is in f.
func Check(t Table, f Family) error {
	if !f.Contains(t.Kind()) {
		return fmt.Errorf("%w: %s table is not in the %s family", ErrUnsupportedShape, t.Kind(), f)
	}
	return nil
}
