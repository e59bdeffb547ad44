// Package blobstore provides the storage abstraction table files are loaded
// from and exported to.
//
// BlobStore is the interface for reading and writing whole table files.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local directory, mmap reads, atomic temp-file writes
//   - MemoryStore: in-process map, for tests and scratch workspaces
//   - minio.Store: MinIO and other S3-compatible servers
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - sqlite.Store: all blobs in one SQLite database file
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Open must return an error satisfying errors.Is(err, ErrNotFound) for
// missing blobs. A WritableBlob must not become visible to Open until Close
// returns nil.
package blobstore
