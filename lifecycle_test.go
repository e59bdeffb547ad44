package tablespace_test

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/tablespace"
)

// TestNoGoroutineLeaks verifies that workers and task goroutines are gone
// after Close, including tasks that were blocked when Close was called.
func TestNoGoroutineLeaks(t *testing.T) {
	tests := []struct {
		name     string
		mode     tablespace.Mode
		maxLeaks int // Allow small variance (runtime background goroutines)
	}{
		{name: "Pooled", mode: tablespace.Pooled, maxLeaks: 2},
		{name: "Threaded", mode: tablespace.Threaded, maxLeaks: 2},
		{name: "Inline", mode: tablespace.Inline, maxLeaks: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Force GC to clean up any lingering goroutines from previous tests
			runtime.GC()
			time.Sleep(50 * time.Millisecond)

			initial := runtime.NumGoroutine()
			t.Logf("Initial goroutines: %d", initial)

			ws, err := tablespace.New(tablespace.WithMode(tt.mode), tablespace.WithConcurrency(4))
			require.NoError(t, err)

			for i := 0; i < 20; i++ {
				require.NoError(t, ws.Schedule(func(context.Context) error { return nil }))
			}
			require.NoError(t, ws.WaitAll(context.Background()))

			if tt.mode != tablespace.Inline {
				// Leave work that only cancellation can end.
				for i := 0; i < 8; i++ {
					require.NoError(t, ws.Schedule(func(ctx context.Context) error {
						<-ctx.Done()
						return ctx.Err()
					}))
				}
			}

			require.NoError(t, ws.Close())

			// Wait for goroutines to fully shut down.
			deadline := time.Now().Add(2 * time.Second)
			var final, leaked int
			for {
				runtime.GC()
				time.Sleep(20 * time.Millisecond)

				final = runtime.NumGoroutine()
				leaked = final - initial
				if leaked <= tt.maxLeaks || time.Now().After(deadline) {
					break
				}
			}

			t.Logf("Final goroutines: %d (leaked: %d)", final, leaked)
			if leaked > tt.maxLeaks {
				buf := make([]byte, 1<<20)
				n := runtime.Stack(buf, true)
				t.Errorf("Goroutine leak detected: started with %d, ended with %d\n%s", initial, final, buf[:n])
			}
		})
	}
}

// TestCloseIdempotent verifies that calling Close() multiple times is safe.
func TestCloseIdempotent(t *testing.T) {
	ws, err := tablespace.New()
	require.NoError(t, err)

	err1 := ws.Close()
	err2 := ws.Close()
	err3 := ws.Close()

	assert.NoError(t, err1, "First close should succeed")
	assert.NoError(t, err2, "Second close should be idempotent")
	assert.NoError(t, err3, "Third close should be idempotent")
}

// TestCloseWithActiveOperations verifies shutdown while tasks are still
// being submitted.
func TestCloseWithActiveOperations(t *testing.T) {
	ws, err := tablespace.New(tablespace.WithMode(tablespace.Threaded))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			err := ws.Schedule(func(ctx context.Context) error {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Millisecond):
					return nil
				}
			})
			if err != nil {
				assert.ErrorIs(t, err, tablespace.ErrClosed)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()

	time.Sleep(20 * time.Millisecond)
	assert.NoError(t, ws.Close(), "Close should succeed even with active operations")
	<-done
}
