package minio

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/hupe1980/tablespace/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_KeyMapping(t *testing.T) {
	s := NewStore(nil, "b", "/runs/7/")
	assert.Equal(t, "runs/7/refs.tbl", s.key("refs.tbl"))
	assert.Equal(t, "refs.tbl", s.name("runs/7/refs.tbl"))

	flat := NewStore(nil, "b", "")
	assert.Equal(t, "refs.tbl", flat.key("refs.tbl"))
	assert.Equal(t, "refs.tbl", flat.name("refs.tbl"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, isNotFound(minio.ErrorResponse{Code: "NotFound"}))
	assert.False(t, isNotFound(minio.ErrorResponse{Code: "AccessDenied"}))
}

// TestMinioStore_Integration requires a running MinIO instance at
// TABLESPACE_MINIO_ENDPOINT (for example localhost:9000).
func TestMinioStore_Integration(t *testing.T) {
	endpoint := os.Getenv("TABLESPACE_MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("TABLESPACE_MINIO_ENDPOINT not set")
	}
	bucket := "test-tablespace"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	if err != nil {
		t.Skipf("MinIO client creation failed: %v", err)
	}

	ctx := context.Background()
	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}))
	}

	store := NewStore(client, bucket, "test-prefix/")

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "test.tbl", data))

	blob, err := store.Open(ctx, "test.tbl")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	all, err := io.ReadAll(blobstore.NewReader(ctx, blob))
	require.NoError(t, err)
	assert.Equal(t, data, all)

	rc, err := blob.ReadRange(ctx, 6, 5)
	require.NoError(t, err)
	part, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "minio", string(part))
	require.NoError(t, rc.Close())
	require.NoError(t, blob.Close())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "test.tbl")

	require.NoError(t, store.Delete(ctx, "test.tbl"))
	_, err = store.Open(ctx, "test.tbl")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)

	wb, err := store.Create(ctx, "stream.tbl")
	require.NoError(t, err)
	_, err = wb.Write([]byte("streamed data"))
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	blob, err = store.Open(ctx, "stream.tbl")
	require.NoError(t, err)
	assert.Equal(t, int64(13), blob.Size())
	require.NoError(t, blob.Close())

	_ = store.Delete(ctx, "stream.tbl")
}
