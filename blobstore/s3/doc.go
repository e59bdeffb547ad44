// Package s3 stores table files in Amazon S3.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket", "tables/")
//	ws, err := tablespace.New(tablespace.WithBlobStore(store))
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart streaming uploads through the s3 manager
//   - CRC32C integrity checksums on Put
//   - Automatic pagination for listing
package s3
