// Package table defines the closed set of table kinds a workspace can hold
// and their on-disk format.
//
// # Kinds
//
//   - Dense: row-major float32 matrix
//   - Sparse: per-row roaring bitmap of non-zero columns plus their values
//   - Mixed: a dense and a sparse part sharing rows
//   - Parameter: ordered named float64 vectors (model parameters, weights)
//
// Loaders ask for a Family instead of a Kind. FamilyData accepts Dense,
// Sparse and Mixed; FamilyParameters accepts Parameter and Dense.
//
// # File Format
//
//	magic "TSPC" | version u8 | kind u8 | compression u8 |
//	codec-name-len u8 | codec-name | payload-len u32 | crc32c u32 | payload
//
// Integers are little endian. The checksum covers the stored payload bytes.
// The payload is the codec-encoded table, optionally compressed with LZ4 or
// Zstandard.
package table
