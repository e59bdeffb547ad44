package table

import (
	"fmt"
	"slices"
)

// Dense is a row-major float32 matrix.
type Dense struct {
	rows, cols int
	data       []float32
	index      *Index
}

// NewDense allocates a zeroed rows x cols table.
func NewDense(rows, cols int) (*Dense, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrDimension, rows, cols)
	}
	return &Dense{rows: rows, cols: cols, data: make([]float32, rows*cols)}, nil
}

// NewDenseFrom wraps data without copying. len(data) must be rows*cols.
func NewDenseFrom(rows, cols int, data []float32) (*Dense, error) {
	if rows < 0 || cols < 0 || len(data) != rows*cols {
		return nil, fmt.Errorf("%w: %dx%d with %d cells", ErrDimension, rows, cols, len(data))
	}
	return &Dense{rows: rows, cols: cols, data: data}, nil
}

func (d *Dense) Kind() Kind      { return KindDense }
func (d *Dense) NumRows() int    { return d.rows }
func (d *Dense) NumCols() int    { return d.cols }
func (d *Dense) Data() []float32 { return d.data }

// Row returns row i as a sub-slice of the backing array.
func (d *Dense) Row(i int) []float32 {
	return d.data[i*d.cols : (i+1)*d.cols]
}

// At returns cell (i, j).
func (d *Dense) At(i, j int) float32 {
	return d.data[i*d.cols+j]
}

// Set writes cell (i, j) and drops any index.
func (d *Dense) Set(i, j int, v float32) {
	d.data[i*d.cols+j] = v
	d.index = nil
}

func (d *Dense) CloneData() Table {
	return &Dense{rows: d.rows, cols: d.cols, data: slices.Clone(d.data)}
}

func (d *Dense) SizeBytes() int64 {
	return int64(len(d.data)) * 4
}

func (d *Dense) IndexData(cfg IndexConfig) error {
	if d.index != nil {
		return nil
	}
	ix, err := buildIndex(d.rows, d.cols, func(i int, _ []float32) []float32 { return d.Row(i) }, cfg)
	if err != nil {
		return err
	}
	d.index = ix
	return nil
}

func (d *Dense) IsIndexed() bool { return d.index != nil }
func (d *Dense) Index() *Index   { return d.index }
