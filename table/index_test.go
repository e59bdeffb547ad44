package table

import (
	"testing"

	"github.com/hupe1980/tablespace/distance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexData_Dense(t *testing.T) {
	// Column 1 has the widest spread, so rows are ordered by it.
	d, err := NewDenseFrom(5, 2, []float32{
		0, 40,
		0, 10,
		1, 30,
		0, 0,
		1, 20,
	})
	require.NoError(t, err)

	require.NoError(t, d.IndexData(IndexConfig{Metric: distance.MetricL2, LeafSize: 2}))
	require.True(t, d.IsIndexed())

	ix := d.Index()
	assert.Equal(t, 1, ix.SplitColumn)
	require.Equal(t, 3, ix.NumLeaves())
	assert.Equal(t, []int{3, 1}, ix.Leaves[0].Rows)
	assert.Equal(t, []int{4, 2}, ix.Leaves[1].Rows)
	assert.Equal(t, []int{0}, ix.Leaves[2].Rows)

	assert.InDeltaSlice(t, []float32{0, 5}, ix.Leaves[0].Centroid, 1e-6)
	assert.InDelta(t, 25, ix.Leaves[0].Radius, 1e-6)
	assert.InDelta(t, 0, ix.Leaves[2].Radius, 1e-6)
}

func TestIndexData_Idempotent(t *testing.T) {
	d, _ := NewDenseFrom(2, 1, []float32{1, 2})
	require.NoError(t, d.IndexData(DefaultIndexConfig()))
	first := d.Index()

	require.NoError(t, d.IndexData(IndexConfig{LeafSize: 1}))
	assert.Same(t, first, d.Index())

	d.Set(0, 0, 5)
	assert.False(t, d.IsIndexed(), "writes drop the index")
}

func TestIndexData_Errors(t *testing.T) {
	d, _ := NewDenseFrom(2, 2, []float32{1, 2, 3, 4})

	assert.ErrorIs(t, d.IndexData(IndexConfig{LeafSize: 0}), ErrLeafSize)
	assert.ErrorIs(t, d.IndexData(IndexConfig{Metric: distance.Metric(7), LeafSize: 1}), ErrUnsupportedMetric)
	assert.ErrorIs(t, d.IndexData(IndexConfig{Metric: distance.MetricWeightedL2, LeafSize: 1}), ErrDimension)
	assert.False(t, d.IsIndexed())

	require.NoError(t, d.IndexData(IndexConfig{Metric: distance.MetricWeightedL2, Weights: []float32{1, 0}, LeafSize: 2}))
	assert.InDelta(t, 1, d.Index().Leaves[0].Radius, 1e-6)
}

func TestIndexData_SparseAndMixed(t *testing.T) {
	s, _ := NewSparse(4)
	require.NoError(t, s.AppendRow([]uint32{0}, []float32{1}))
	require.NoError(t, s.AppendRow([]uint32{3}, []float32{2}))
	require.NoError(t, s.IndexData(IndexConfig{LeafSize: 1}))
	assert.Equal(t, 2, s.Index().NumLeaves())
	assert.InDeltaSlice(t, []float32{0, 0, 0, 2}, s.Index().Leaves[1].Centroid, 1e-6)

	d, _ := NewDenseFrom(2, 1, []float32{0, 0})
	m, err := NewMixed(d, s.CloneData().(*Sparse))
	require.NoError(t, err)
	require.NoError(t, m.IndexData(DefaultIndexConfig()))
	require.Equal(t, 1, m.Index().NumLeaves())
	assert.Len(t, m.Index().Leaves[0].Centroid, 5)
	assert.False(t, m.Sparse().IsIndexed())
}

func TestIndexData_Empty(t *testing.T) {
	d, _ := NewDense(0, 3)
	require.NoError(t, d.IndexData(DefaultIndexConfig()))
	assert.Equal(t, 0, d.Index().NumLeaves())
}
