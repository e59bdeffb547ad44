package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/tablespace/blobstore"
	tsminio "github.com/hupe1980/tablespace/blobstore/minio"
	tss3 "github.com/hupe1980/tablespace/blobstore/s3"
	"github.com/hupe1980/tablespace/blobstore/sqlite"
)

const (
	envMinioAccessKey = "TABLESPACE_MINIO_ACCESS_KEY"
	envMinioSecretKey = "TABLESPACE_MINIO_SECRET_KEY"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStore resolves a --store value to a blob store. Supported forms:
//
//	./data                     local directory
//	memory://                  process-local, for dry runs
//	sqlite:runs.db             blobs in one SQLite file
//	s3://bucket/prefix         AWS S3 with the default credential chain
//	minio://host:9000/bucket/prefix?secure=true
//
// The returned closer releases the store's resources.
func openStore(ctx context.Context, uri string) (blobstore.BlobStore, io.Closer, error) {
	switch {
	case uri == "" || uri == ".":
		return blobstore.NewLocalStore("."), nopCloser{}, nil

	case uri == "memory://":
		return blobstore.NewMemoryStore(), nopCloser{}, nil

	case strings.HasPrefix(uri, "sqlite:"):
		path := strings.TrimPrefix(strings.TrimPrefix(uri, "sqlite:"), "//")
		if path == "" {
			return nil, nil, fmt.Errorf("store %q: missing database path", uri)
		}
		s, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("store %q: %w", uri, err)
		}
		return s, s, nil

	case strings.HasPrefix(uri, "s3://"):
		u, err := url.Parse(uri)
		if err != nil {
			return nil, nil, fmt.Errorf("store %q: %w", uri, err)
		}
		if u.Host == "" {
			return nil, nil, fmt.Errorf("store %q: missing bucket", uri)
		}
		s, err := tss3.New(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
		if err != nil {
			return nil, nil, fmt.Errorf("store %q: %w", uri, err)
		}
		return s, nopCloser{}, nil

	case strings.HasPrefix(uri, "minio://"):
		u, err := url.Parse(uri)
		if err != nil {
			return nil, nil, fmt.Errorf("store %q: %w", uri, err)
		}
		bucket, prefix, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
		if u.Host == "" || bucket == "" {
			return nil, nil, fmt.Errorf("store %q: want minio://host/bucket[/prefix]", uri)
		}
		client, err := minio.New(u.Host, &minio.Options{
			Creds:  credentials.NewStaticV4(os.Getenv(envMinioAccessKey), os.Getenv(envMinioSecretKey), ""),
			Secure: u.Query().Get("secure") == "true",
		})
		if err != nil {
			return nil, nil, fmt.Errorf("store %q: %w", uri, err)
		}
		return tsminio.NewStore(client, bucket, prefix), nopCloser{}, nil

	case strings.Contains(uri, "://"):
		return nil, nil, fmt.Errorf("store %q: unsupported scheme", uri)
	}

	return blobstore.NewLocalStore(uri), nopCloser{}, nil
}
