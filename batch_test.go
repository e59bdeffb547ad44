package tablespace_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tablespace"
	"github.com/hupe1980/tablespace/blobstore"
	"github.com/hupe1980/tablespace/table"
	"github.com/hupe1980/tablespace/testutil"
)

func TestLoadAll_InlineAndExportAll(t *testing.T) {
	rng := testutil.NewRNG(10)
	ms := seed(t, map[string]table.Table{
		"r1.tbl": rng.DenseTable(3, 2),
		"r2.tbl": rng.SparseTable(3, 8, 0.3),
		"k.tbl":  rng.ParameterTable("k"),
		"part_0": rng.DenseTable(1, 1),
		"part_1": rng.DenseTable(1, 1),
	})
	ws := newWorkspace(t, tablespace.WithMode(tablespace.Inline), tablespace.WithBlobStore(ms),
		tablespace.WithCompression(table.CompressionZSTD))
	ctx := testCtx(t)

	names, err := ws.LoadAll(ctx, []string{
		"--references_in=r1.tbl:r2.tbl",
		"--k_in=k.tbl",
		"--part_prefix_in=part_",
		"--part_num_in=2",
		"--verbose",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"r1.tbl", "r2.tbl", "k.tbl", "part_0", "part_1"}, names)
	for _, name := range names {
		assert.True(t, ws.IsAvailable(name), "inline load releases %s", name)
	}

	_, err = ws.Get("k.tbl", table.KindParameter)
	require.NoError(t, err)
	_, err = ws.Get("r2.tbl", table.KindSparse)
	require.NoError(t, err)

	require.NoError(t, ws.ExportAll(ctx, []string{
		"--references_out=r1.tbl",
		"--never_out=never.tbl",
	}))

	ok, err := blobstore.Exists(ctx, ms, "never.tbl")
	require.NoError(t, err)
	assert.False(t, ok, "unproduced resources are skipped")
	assert.False(t, ws.Stats().Faulted)
}

func TestLoadAll_ConfigurationErrorSchedulesNothing(t *testing.T) {
	ws := newWorkspace(t, tablespace.WithMode(tablespace.Pooled))
	ctx := testCtx(t)

	tests := [][]string{
		{"--references_in=a.tbl", "--data_prefix_in=d_", "--data_num_in=x"},
		{"--references_in=a.tbl", "--data_prefix_in=d_"},
		{"--references_in"},
	}
	for _, args := range tests {
		names, err := ws.LoadAll(ctx, args)
		assert.Nil(t, names)
		var ce *tablespace.ConfigurationError
		require.ErrorAs(t, err, &ce)
		assert.ErrorIs(t, err, tablespace.ErrConfiguration)
	}
	assert.Zero(t, ws.Stats().Scheduler.Submitted)
}

func TestLoadAll_WrongFamilyFaults(t *testing.T) {
	ms := seed(t, map[string]table.Table{"p.tbl": testutil.NewRNG(11).ParameterTable("x")})
	ws := newWorkspace(t, tablespace.WithMode(tablespace.Inline), tablespace.WithBlobStore(ms))

	_, err := ws.LoadAll(testCtx(t), []string{"--queries_in=p.tbl"})
	var fe *tablespace.FatalError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, tablespace.ErrUnsupportedShape)
	assert.True(t, ws.IsAvailable("p.tbl"), "failed load releases its lock")
}

func TestLoadAll_MissingFileFaults(t *testing.T) {
	ws := newWorkspace(t, tablespace.WithMode(tablespace.Threaded), tablespace.WithBlobStore(blobstore.NewMemoryStore()))
	ctx := testCtx(t)

	_, err := ws.LoadAll(ctx, []string{"--references_in=missing.tbl"})
	require.NoError(t, err)
	assert.ErrorIs(t, ws.WaitAll(ctx), tablespace.ErrNotFound)
}

func TestLoadAll_Preflight(t *testing.T) {
	ms := seed(t, map[string]table.Table{"a.tbl": testutil.NewRNG(12).DenseTable(1, 1)})
	ws := newWorkspace(t, tablespace.WithBlobStore(ms), tablespace.WithPreflight(4))
	ctx := testCtx(t)

	_, err := ws.LoadAll(ctx, []string{"--references_in=a.tbl,b.tbl"})
	var ce *tablespace.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Reason, "b.tbl")
	assert.Zero(t, ws.Stats().Scheduler.Submitted)
}

func TestLoadAll_AsyncHoldsUntilPurge(t *testing.T) {
	ms := seed(t, map[string]table.Table{"r.tbl": testutil.NewRNG(13).DenseTable(3, 2)})
	ws := newWorkspace(t, tablespace.WithMode(tablespace.Pooled), tablespace.WithBlobStore(ms))
	ctx := testCtx(t)

	names, err := ws.LoadAll(ctx, []string{"--references_in=r.tbl"})
	require.NoError(t, err)
	require.Equal(t, []string{"r.tbl"}, names)
	require.NoError(t, ws.WaitAll(ctx))
	assert.False(t, ws.IsAvailable("r.tbl"), "async load holds the lock")

	var rows atomic.Int64
	require.NoError(t, ws.Schedule(func(ctx context.Context) error {
		tb, err := ws.Attach(ctx, "r.tbl")
		if err != nil {
			return err
		}
		defer ws.Detach("r.tbl")
		rows.Store(int64(tb.NumRows()))
		return nil
	}))

	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, rows.Load(), "consumer waits for purge")

	for _, name := range names {
		require.NoError(t, ws.Purge(name))
	}
	require.NoError(t, ws.WaitAll(ctx))
	assert.Equal(t, int64(3), rows.Load())
}

func TestExport_InlineSkipsHeld(t *testing.T) {
	ms := blobstore.NewMemoryStore()
	ws := newWorkspace(t, tablespace.WithMode(tablespace.Inline), tablespace.WithBlobStore(ms))
	ctx := testCtx(t)

	require.NoError(t, ws.Insert(ctx, "out.tbl", testutil.NewRNG(14).DenseTable(2, 2)))
	_, err := ws.Attach(ctx, "out.tbl")
	require.NoError(t, err)

	require.NoError(t, ws.Export(ctx, "out.tbl", "out.tbl"))
	ok, err := blobstore.Exists(ctx, ms, "out.tbl")
	require.NoError(t, err)
	assert.False(t, ok)

	ws.Detach("out.tbl")
	require.NoError(t, ws.Export(ctx, "out.tbl", "out.tbl"))
	ok, err = blobstore.Exists(ctx, ms, "out.tbl")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExport_AsyncWaitsForProducer(t *testing.T) {
	ms := blobstore.NewMemoryStore()
	ws := newWorkspace(t, tablespace.WithMode(tablespace.Threaded), tablespace.WithBlobStore(ms))
	ctx := testCtx(t)

	l := ws.Acquire("late.tbl")
	require.True(t, l.TryLock())
	require.NoError(t, ws.ExportAll(ctx, []string{"--result_out=late.tbl"}))

	time.Sleep(20 * time.Millisecond)
	ok, err := blobstore.Exists(ctx, ms, "late.tbl")
	require.NoError(t, err)
	assert.False(t, ok, "export waits for the producer")

	require.NoError(t, ws.InsertHeld("late.tbl", testutil.NewRNG(15).DenseTable(2, 2)))
	require.NoError(t, ws.Purge("late.tbl"))
	require.NoError(t, ws.WaitAll(ctx))

	back, _, err := table.Load(ctx, ms, "late.tbl", table.FamilyData)
	require.NoError(t, err)
	assert.Equal(t, 2, back.NumRows())
}

func TestInsertHeld_RequiresLock(t *testing.T) {
	ws := newWorkspace(t)
	err := ws.InsertHeld("free", testutil.NewRNG(17).DenseTable(1, 1))
	assert.ErrorIs(t, err, tablespace.ErrNotHeld)
}

func TestIndexAll_AsyncIndexesTempCopy(t *testing.T) {
	rng := testutil.NewRNG(16)
	ms := seed(t, map[string]table.Table{
		"r.tbl": rng.DenseTable(40, 4),
		"q.tbl": rng.MixedTable(10, 2, 6, 0.5),
	})
	ws := newWorkspace(t, tablespace.WithMode(tablespace.Threaded), tablespace.WithBlobStore(ms),
		tablespace.WithTempPrefix("idx_"))
	ctx := testCtx(t)

	args := []string{"--references_in=r.tbl", "--queries_in=q.tbl", "--leaf_size=5"}
	names, err := ws.LoadAll(ctx, args)
	require.NoError(t, err)
	require.NoError(t, ws.WaitAll(ctx))
	for _, name := range names {
		require.NoError(t, ws.Purge(name))
	}

	out, err := ws.IndexAll(ctx, args)
	require.NoError(t, err)
	assert.Equal(t, []string{"--references_in=idx_0", "--queries_in=idx_1", "--leaf_size=5"}, out)
	require.NoError(t, ws.WaitAll(ctx))

	for src, dst := range map[string]string{"r.tbl": "idx_0", "q.tbl": "idx_1"} {
		orig, err := ws.Get(src)
		require.NoError(t, err)
		assert.False(t, orig.(table.Indexable).IsIndexed(), "source stays unindexed")

		cp, err := ws.Get(dst)
		require.NoError(t, err)
		ix := cp.(table.Indexable)
		require.True(t, ix.IsIndexed())
		assert.Equal(t, 5, ix.Index().LeafSize)
	}
}
