// Package distance provides the row metrics used to index data tables.
//
// # Supported Metrics
//
//   - MetricL2: squared Euclidean distance (default)
//   - MetricWeightedL2: squared Euclidean distance with per-column weights
//
// # Usage
//
//	m, err := distance.ParseMetric("weighted_l2")
//	fn, err := distance.Provider(m, weights)
//	d := fn(a, b)
package distance
