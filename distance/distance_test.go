package distance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSquaredL2(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 27},
		{"Same", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"Empty", []float32{}, []float32{}, 0},
		{"Negative", []float32{-1, 0}, []float32{1, 0}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, SquaredL2(tt.a, tt.b), 1e-5)
		})
	}
}

func TestWeightedSquaredL2(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{4, 5, 6}
	assert.InDelta(t, 27, WeightedSquaredL2(a, b, []float32{1, 1, 1}), 1e-5)
	assert.InDelta(t, 9, WeightedSquaredL2(a, b, []float32{1, 0, 0}), 1e-5)
	assert.InDelta(t, 45, WeightedSquaredL2(a, b, []float32{0, 2, 3}), 1e-5)
}

func TestParseMetric(t *testing.T) {
	for in, want := range map[string]Metric{"": MetricL2, "l2": MetricL2, "weighted_l2": MetricWeightedL2} {
		got, err := ParseMetric(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseMetric("cosine")
	assert.ErrorIs(t, err, ErrUnsupportedMetric)

	assert.Equal(t, "weighted_l2", MetricWeightedL2.String())
	assert.Equal(t, "Unknown(9)", Metric(9).String())
}

func TestProvider(t *testing.T) {
	fn, err := Provider(MetricL2, nil)
	require.NoError(t, err)
	assert.InDelta(t, 2, fn([]float32{0, 0}, []float32{1, 1}), 1e-6)

	_, err = Provider(MetricWeightedL2, nil)
	assert.ErrorIs(t, err, ErrWeights)

	_, err = Provider(MetricWeightedL2, []float32{1, -1})
	assert.ErrorIs(t, err, ErrWeights)

	w := []float32{2, 0}
	fn, err = Provider(MetricWeightedL2, w)
	require.NoError(t, err)
	w[0] = 100
	assert.InDelta(t, 2, fn([]float32{0, 0}, []float32{1, 1}), 1e-6, "weights are copied")

	_, err = Provider(Metric(42), nil)
	assert.ErrorIs(t, err, ErrUnsupportedMetric)
}
