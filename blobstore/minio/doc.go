// Package minio stores table files in MinIO or any other S3-compatible
// server (Ceph, Garage, SeaweedFS) through the MinIO Go client.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "tables", "experiments/run-7")
//	ws, err := tablespace.New(tablespace.WithBlobStore(store))
//
// Reads are ranged GETs. Writes stream through a pipe into PutObject and
// become visible when Close returns.
package minio
