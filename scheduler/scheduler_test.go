package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tablespace/fault"
)

func newBackend(t *testing.T, mode Mode, opts ...Option) (Backend, *fault.Tracker) {
	t.Helper()
	tr := fault.NewTracker()
	b, err := New(mode, tr, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b, tr
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"pooled", Pooled},
		{"Threaded", Threaded},
		{"inline", Inline},
		{"0", Pooled},
		{"1", Threaded},
		{"2", Inline},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
		assert.NotEmpty(t, got.String())
	}

	_, err := ParseMode("3")
	assert.ErrorIs(t, err, ErrInvalidMode)
	_, err = New(Mode(9), fault.NewTracker())
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestAllModes_RunEveryTask(t *testing.T) {
	for _, mode := range []Mode{Pooled, Threaded, Inline} {
		t.Run(mode.String(), func(t *testing.T) {
			b, _ := newBackend(t, mode, WithWorkers(3))

			var n atomic.Int64
			for i := 0; i < 50; i++ {
				require.NoError(t, b.Schedule("inc", func(context.Context) error {
					n.Add(1)
					return nil
				}))
			}
			require.NoError(t, b.WaitAll(waitCtx(t)))
			assert.Equal(t, int64(50), n.Load())
			assert.True(t, b.Idle())

			s := b.Stats()
			assert.Equal(t, mode, s.Mode)
			assert.Equal(t, uint64(50), s.Submitted)
			assert.Equal(t, uint64(50), s.Completed)
		})
	}
}

func TestInline_RunsInOrderBeforeReturn(t *testing.T) {
	b, _ := newBackend(t, Inline)

	var order []int
	for i := 0; i < 5; i++ {
		require.NoError(t, b.Schedule("step", func(context.Context) error {
			order = append(order, i)
			return nil
		}))
		assert.Len(t, order, i+1)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestInline_FailureIsFatal(t *testing.T) {
	b, tr := newBackend(t, Inline)
	boom := errors.New("boom")

	err := b.Schedule("bad", func(context.Context) error { return boom })
	var fe *FatalError
	require.ErrorAs(t, err, &fe)
	assert.ErrorIs(t, err, boom)
	assert.True(t, tr.Faulted())

	ran := false
	err = b.Schedule("after", func(context.Context) error {
		ran = true
		return nil
	})
	assert.True(t, ran, "inline still executes after a fault")
	assert.ErrorAs(t, err, &fe)
}

func TestPooled_PreservesFIFOWithOneWorker(t *testing.T) {
	b, _ := newBackend(t, Pooled, WithWorkers(1))

	var (
		mu    sync.Mutex
		order []int
	)
	for i := 0; i < 20; i++ {
		require.NoError(t, b.Schedule("ordered", func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}))
	}
	require.NoError(t, b.WaitAll(waitCtx(t)))
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

func TestAsync_FaultRefusesNewWork(t *testing.T) {
	for _, mode := range []Mode{Pooled, Threaded} {
		t.Run(mode.String(), func(t *testing.T) {
			b, tr := newBackend(t, mode)
			boom := errors.New("boom")

			require.NoError(t, b.Schedule("bad", func(context.Context) error { return boom }))
			err := b.WaitAll(waitCtx(t))
			require.ErrorIs(t, err, boom)

			name, ok := fault.TaskOf(tr.Err())
			require.True(t, ok)
			assert.Equal(t, "bad", name)

			assert.ErrorIs(t, b.Schedule("late", func(context.Context) error { return nil }), ErrFaulted)
			assert.Equal(t, uint64(1), b.Stats().Refused)
		})
	}
}

func TestAsync_PanicBecomesFault(t *testing.T) {
	for _, mode := range []Mode{Pooled, Threaded, Inline} {
		t.Run(mode.String(), func(t *testing.T) {
			b, tr := newBackend(t, mode)

			_ = b.Schedule("panics", func(context.Context) error { panic("kaboom") })
			_ = b.WaitAll(waitCtx(t))

			var pe *fault.PanicError
			require.ErrorAs(t, tr.Err(), &pe)
			assert.Contains(t, pe.Error(), "kaboom")
		})
	}
}

func TestAsync_FaultCancelsOutstanding(t *testing.T) {
	for _, mode := range []Mode{Pooled, Threaded} {
		t.Run(mode.String(), func(t *testing.T) {
			b, _ := newBackend(t, mode, WithWorkers(2))

			started := make(chan struct{})
			require.NoError(t, b.Schedule("blocker", func(ctx context.Context) error {
				close(started)
				<-ctx.Done()
				return ctx.Err()
			}))
			<-started
			require.NoError(t, b.Schedule("fails", func(context.Context) error {
				return errors.New("fail")
			}))

			err := b.WaitAll(waitCtx(t))
			require.Error(t, err)
			assert.EqualError(t, errors.Unwrap(err), "fail")
			assert.True(t, b.Idle())
			assert.Equal(t, uint64(1), b.Stats().Cancelled)
		})
	}
}

func TestAsync_WaitAllFromTaskExcludesSelf(t *testing.T) {
	for _, mode := range []Mode{Pooled, Threaded} {
		t.Run(mode.String(), func(t *testing.T) {
			b, _ := newBackend(t, mode, WithWorkers(1))

			var children atomic.Int64
			done := make(chan error, 1)
			require.NoError(t, b.Schedule("parent", func(ctx context.Context) error {
				for i := 0; i < 3; i++ {
					if err := b.Schedule("child", func(context.Context) error {
						children.Add(1)
						return nil
					}); err != nil {
						return err
					}
				}
				err := b.WaitAll(ctx)
				done <- err
				return err
			}))

			select {
			case err := <-done:
				require.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("WaitAll inside a task deadlocked")
			}
			assert.Equal(t, int64(3), children.Load())
			require.NoError(t, b.WaitAll(waitCtx(t)))
		})
	}
}

func TestAsync_CancelAllThenReuse(t *testing.T) {
	for _, mode := range []Mode{Pooled, Threaded} {
		t.Run(mode.String(), func(t *testing.T) {
			b, tr := newBackend(t, mode, WithWorkers(1))

			for i := 0; i < 4; i++ {
				require.NoError(t, b.Schedule("sleeper", func(ctx context.Context) error {
					<-ctx.Done()
					return ctx.Err()
				}))
			}

			n := b.CancelAll(waitCtx(t))
			assert.Equal(t, 4, n)
			assert.True(t, b.Idle())
			assert.False(t, tr.Faulted(), "cancellation is not a fault")

			var ran atomic.Bool
			require.NoError(t, b.Schedule("fresh", func(ctx context.Context) error {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				ran.Store(true)
				return nil
			}))
			require.NoError(t, b.WaitAll(waitCtx(t)))
			assert.True(t, ran.Load())
		})
	}
}

func TestWaitAll_RespectsContext(t *testing.T) {
	b, _ := newBackend(t, Threaded)

	release := make(chan struct{})
	require.NoError(t, b.Schedule("slow", func(context.Context) error {
		<-release
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, b.WaitAll(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, b.WaitAll(waitCtx(t)))
}

func TestOnDoneHook(t *testing.T) {
	var (
		mu      sync.Mutex
		results []Result
	)
	b, _ := newBackend(t, Pooled, WithOnDone(func(r Result) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}))

	require.NoError(t, b.Schedule("ok", func(context.Context) error { return nil }))
	require.NoError(t, b.WaitAll(waitCtx(t)))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 1)
	assert.Equal(t, "ok", results[0].Name)
	assert.NoError(t, results[0].Err)
}

func TestTaskID(t *testing.T) {
	b, _ := newBackend(t, Inline)

	_, ok := TaskID(context.Background())
	assert.False(t, ok)

	require.NoError(t, b.Schedule("id", func(ctx context.Context) error {
		id, ok := TaskID(ctx)
		assert.True(t, ok)
		assert.NotZero(t, id)
		return nil
	}))
}

func TestClose(t *testing.T) {
	for _, mode := range []Mode{Pooled, Threaded, Inline} {
		t.Run(mode.String(), func(t *testing.T) {
			b, err := New(mode, fault.NewTracker())
			require.NoError(t, err)
			require.NoError(t, b.Close())
			require.NoError(t, b.Close())
			assert.ErrorIs(t, b.Schedule("x", func(context.Context) error { return nil }), ErrClosed)
		})
	}
}
