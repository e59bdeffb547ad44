package distance

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnsupportedMetric is returned for metric names or values that have no
// distance function.
var ErrUnsupportedMetric = errors.New("unsupported metric")

// ErrWeights is returned when a weighted metric is used without weights or
// with negative weights.
var ErrWeights = errors.New("invalid metric weights")

// Func computes the distance between two rows of equal length.
type Func func(a, b []float32) float32

// SquaredL2 calculates the squared L2 (Euclidean) distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// WeightedSquaredL2 calculates sum(w[i] * (a[i]-b[i])^2).
// Assumes all three slices are the same length.
func WeightedSquaredL2(a, b, w []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += w[i] * d * d
	}
	return sum
}

// Metric represents the distance metric used for row comparison.
type Metric int

const (
	MetricL2 Metric = iota
	MetricWeightedL2
)

func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "l2"
	case MetricWeightedL2:
		return "weighted_l2"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// ParseMetric maps a directive value to a Metric. The empty string selects
// MetricL2.
func ParseMetric(s string) (Metric, error) {
	switch s {
	case "", "l2":
		return MetricL2, nil
	case "weighted_l2":
		return MetricWeightedL2, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedMetric, s)
	}
}

// Provider returns the distance function for m. Weights are required for
// MetricWeightedL2 and ignored otherwise.
func Provider(m Metric, weights []float32) (Func, error) {
	switch m {
	case MetricL2:
		return SquaredL2, nil
	case MetricWeightedL2:
		if len(weights) == 0 {
			return nil, fmt.Errorf("%w: %s needs weights", ErrWeights, m)
		}
		for i, w := range weights {
			if w < 0 || math.IsNaN(float64(w)) {
				return nil, fmt.Errorf("%w: weight %d is %v", ErrWeights, i, w)
			}
		}
		w := append([]float32(nil), weights...)
		return func(a, b []float32) float32 {
			return WeightedSquaredL2(a, b, w)
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMetric, m)
	}
}
