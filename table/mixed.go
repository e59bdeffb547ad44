package table

import "fmt"

// Mixed joins a dense and a sparse part row by row. Column j < dense width
// addresses the dense part, the rest the sparse part.
type Mixed struct {
	dense  *Dense
	sparse *Sparse
	index  *Index
}

// NewMixed combines two parts with the same row count. The parts are owned
// by the result.
func NewMixed(dense *Dense, sparse *Sparse) (*Mixed, error) {
	if dense == nil || sparse == nil {
		return nil, fmt.Errorf("%w: mixed table needs both parts", ErrDimension)
	}
	if dense.NumRows() != sparse.NumRows() {
		return nil, fmt.Errorf("%w: dense part has %d rows, sparse part %d", ErrDimension, dense.NumRows(), sparse.NumRows())
	}
	return &Mixed{dense: dense, sparse: sparse}, nil
}

func (m *Mixed) Kind() Kind      { return KindMixed }
func (m *Mixed) NumRows() int    { return m.dense.rows }
func (m *Mixed) NumCols() int    { return m.dense.cols + m.sparse.cols }
func (m *Mixed) Dense() *Dense   { return m.dense }
func (m *Mixed) Sparse() *Sparse { return m.sparse }

// At returns cell (i, j) across both parts.
func (m *Mixed) At(i, j int) float32 {
	if j < m.dense.cols {
		return m.dense.At(i, j)
	}
	return m.sparse.At(i, j-m.dense.cols)
}

func (m *Mixed) row(i int, dst []float32) []float32 {
	copy(dst, m.dense.Row(i))
	m.sparse.DenseRow(i, dst[m.dense.cols:])
	return dst
}

func (m *Mixed) CloneData() Table {
	return &Mixed{
		dense:  m.dense.CloneData().(*Dense),
		sparse: m.sparse.CloneData().(*Sparse),
	}
}

func (m *Mixed) SizeBytes() int64 {
	return m.dense.SizeBytes() + m.sparse.SizeBytes()
}

func (m *Mixed) IndexData(cfg IndexConfig) error {
	if m.index != nil {
		return nil
	}
	ix, err := buildIndex(m.NumRows(), m.NumCols(), m.row, cfg)
	if err != nil {
		return err
	}
	m.index = ix
	return nil
}

func (m *Mixed) IsIndexed() bool { return m.index != nil }
func (m *Mixed) Index() *Index   { return m.index }
