package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFamily_Contains(t *testing.T) {
	assert.True(t, FamilyData.Contains(KindDense))
	assert.True(t, FamilyData.Contains(KindSparse))
	assert.True(t, FamilyData.Contains(KindMixed))
	assert.False(t, FamilyData.Contains(KindParameter))

	assert.True(t, FamilyParameters.Contains(KindParameter))
	assert.True(t, FamilyParameters.Contains(KindDense))
	assert.False(t, FamilyParameters.Contains(KindSparse))

	for _, k := range []Kind{KindDense, KindSparse, KindMixed, KindParameter} {
		assert.True(t, FamilyAny.Contains(k))
	}

	assert.False(t, Family(9).Contains(KindDense))
	assert.Equal(t, "Kind(0)", Kind(0).String())
	assert.False(t, Kind(0).Valid())
}

func TestDense(t *testing.T) {
	_, err := NewDense(-1, 2)
	assert.ErrorIs(t, err, ErrDimension)
	_, err = NewDenseFrom(2, 2, []float32{1})
	assert.ErrorIs(t, err, ErrDimension)

	d, err := NewDenseFrom(2, 3, []float32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 5, 6}, d.Row(1))
	assert.Equal(t, float32(2), d.At(0, 1))
	assert.Equal(t, int64(24), d.SizeBytes())

	c := d.CloneData().(*Dense)
	c.Set(0, 0, 100)
	assert.Equal(t, float32(1), d.At(0, 0), "clone is deep")
}

func TestSparse(t *testing.T) {
	s, err := NewSparse(10)
	require.NoError(t, err)

	require.NoError(t, s.AppendRow([]uint32{7, 2}, []float32{0.7, 0.2}))
	require.NoError(t, s.AppendRow(nil, nil))

	assert.ErrorIs(t, s.AppendRow([]uint32{10}, []float32{1}), ErrDimension)
	assert.ErrorIs(t, s.AppendRow([]uint32{1, 1}, []float32{1, 2}), ErrDimension)
	assert.ErrorIs(t, s.AppendRow([]uint32{1}, nil), ErrDimension)

	assert.Equal(t, 2, s.NumRows())
	assert.Equal(t, 2, s.NonZero())
	assert.Equal(t, float32(0.2), s.At(0, 2))
	assert.Equal(t, float32(0.7), s.At(0, 7))
	assert.Equal(t, float32(0), s.At(0, 3))

	cols, vals := s.RowEntries(0)
	assert.Equal(t, []uint32{2, 7}, cols)
	assert.Equal(t, []float32{0.2, 0.7}, vals)

	row := s.DenseRow(0, make([]float32, 10))
	assert.Equal(t, float32(0.7), row[7])

	c := s.CloneData().(*Sparse)
	require.NoError(t, c.AppendRow([]uint32{0}, []float32{1}))
	assert.Equal(t, 2, s.NumRows())
}

func TestMixed(t *testing.T) {
	d, _ := NewDenseFrom(2, 2, []float32{1, 2, 3, 4})
	s, _ := NewSparse(3)
	require.NoError(t, s.AppendRow([]uint32{1}, []float32{9}))

	_, err := NewMixed(d, s)
	assert.ErrorIs(t, err, ErrDimension)

	require.NoError(t, s.AppendRow(nil, nil))
	m, err := NewMixed(d, s)
	require.NoError(t, err)

	assert.Equal(t, 5, m.NumCols())
	assert.Equal(t, float32(3), m.At(1, 0))
	assert.Equal(t, float32(9), m.At(0, 3))
	assert.Equal(t, []float32{1, 2, 0, 9, 0}, m.row(0, make([]float32, 5)))

	info := Describe(m)
	assert.Equal(t, []int{2}, info.DenseSizes)
	assert.Equal(t, []int{3}, info.SparseSizes)
}

func TestParameter(t *testing.T) {
	p := NewParameter()
	p.Set("b", []float64{1, 2, 3})
	p.Set("a", []float64{4})
	p.Set("b", []float64{5})

	assert.Equal(t, []string{"b", "a"}, p.Names())
	assert.Equal(t, 2, p.NumRows())
	assert.Equal(t, 1, p.NumCols())

	v, ok := p.Get("b")
	require.True(t, ok)
	assert.Equal(t, []float64{5}, v)

	info := Describe(p)
	assert.Equal(t, KindParameter, info.Kind)
	assert.Equal(t, []int{1, 1}, info.DenseSizes)
	assert.Empty(t, info.SparseSizes)

	_, indexable := Table(p).(Indexable)
	assert.False(t, indexable)
}

func TestCheck(t *testing.T) {
	p := NewParameter()
	assert.ErrorIs(t, Check(p, FamilyData), ErrUnsupportedShape)
	assert.NoError(t, Check(p, FamilyParameters))
}
