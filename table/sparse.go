package table

import (
	"fmt"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// Sparse stores, per row, the set of non-zero columns and their values in
// ascending column order.
type Sparse struct {
	cols  int
	rows  []sparseRow
	index *Index
}

type sparseRow struct {
	pattern *roaring.Bitmap
	values  []float32
}

// NewSparse creates an empty table with the given column count.
func NewSparse(cols int) (*Sparse, error) {
	if cols < 0 {
		return nil, fmt.Errorf("%w: %d columns", ErrDimension, cols)
	}
	return &Sparse{cols: cols}, nil
}

// AppendRow adds a row given its non-zero columns and values. Columns may be
// unordered but must be unique and within range.
func (s *Sparse) AppendRow(cols []uint32, values []float32) error {
	if len(cols) != len(values) {
		return fmt.Errorf("%w: %d columns, %d values", ErrDimension, len(cols), len(values))
	}

	order := make([]int, len(cols))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return cols[order[a]] < cols[order[b]] })

	pattern := roaring.New()
	vals := make([]float32, 0, len(values))
	for _, i := range order {
		c := cols[i]
		if int(c) >= s.cols {
			return fmt.Errorf("%w: column %d outside %d", ErrDimension, c, s.cols)
		}
		if !pattern.CheckedAdd(c) {
			return fmt.Errorf("%w: column %d repeated", ErrDimension, c)
		}
		vals = append(vals, values[i])
	}
	pattern.RunOptimize()

	s.rows = append(s.rows, sparseRow{pattern: pattern, values: vals})
	s.index = nil
	return nil
}

func (s *Sparse) Kind() Kind   { return KindSparse }
func (s *Sparse) NumRows() int { return len(s.rows) }
func (s *Sparse) NumCols() int { return s.cols }

// NonZero returns the number of stored cells.
func (s *Sparse) NonZero() int {
	n := 0
	for _, r := range s.rows {
		n += len(r.values)
	}
	return n
}

// RowEntries returns the non-zero columns and values of row i.
func (s *Sparse) RowEntries(i int) ([]uint32, []float32) {
	r := s.rows[i]
	return r.pattern.ToArray(), r.values
}

// At returns cell (i, j), zero when unset.
func (s *Sparse) At(i, j int) float32 {
	r := s.rows[i]
	c := uint32(j)
	if !r.pattern.Contains(c) {
		return 0
	}
	return r.values[r.pattern.Rank(c)-1]
}

// DenseRow writes row i into dst (len NumCols) and returns it.
func (s *Sparse) DenseRow(i int, dst []float32) []float32 {
	clear(dst)
	r := s.rows[i]
	it := r.pattern.Iterator()
	for k := 0; it.HasNext(); k++ {
		dst[it.Next()] = r.values[k]
	}
	return dst
}

func (s *Sparse) CloneData() Table {
	out := &Sparse{cols: s.cols, rows: make([]sparseRow, len(s.rows))}
	for i, r := range s.rows {
		out.rows[i] = sparseRow{
			pattern: r.pattern.Clone(),
			values:  append([]float32(nil), r.values...),
		}
	}
	return out
}

func (s *Sparse) SizeBytes() int64 {
	var n int64
	for _, r := range s.rows {
		n += int64(r.pattern.GetSizeInBytes()) + int64(len(r.values))*4
	}
	return n
}

func (s *Sparse) IndexData(cfg IndexConfig) error {
	if s.index != nil {
		return nil
	}
	ix, err := buildIndex(len(s.rows), s.cols, s.DenseRow, cfg)
	if err != nil {
		return err
	}
	s.index = ix
	return nil
}

func (s *Sparse) IsIndexed() bool { return s.index != nil }
func (s *Sparse) Index() *Index   { return s.index }
