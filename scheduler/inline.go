package scheduler

import (
	"context"
	"sync"

	"github.com/hupe1980/tablespace/fault"
)

// inline runs every task on the caller's goroutine.
type inline struct {
	tracker *fault.Tracker
	opts    options

	mu      sync.Mutex
	running map[uint64]context.CancelFunc
	nextID  uint64
	closed  bool
	stats   Stats
}

func newInline(tracker *fault.Tracker, o options) *inline {
	return &inline{
		tracker: tracker,
		opts:    o,
		running: make(map[uint64]context.CancelFunc),
		stats:   Stats{Mode: Inline},
	}
}

func (in *inline) Mode() Mode { return Inline }

// Schedule runs the task even when the workspace is already faulted, and
// reports the fault as a *FatalError afterwards.
func (in *inline) Schedule(name string, task Task) error {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return ErrClosed
	}
	in.nextID++
	id := in.nextID
	ctx, cancel := context.WithCancel(withTask(context.Background(), in, id))
	in.running[id] = cancel
	in.stats.Submitted++
	in.mu.Unlock()

	res := run(ctx, in.tracker, id, name, task)
	cancel()

	in.mu.Lock()
	delete(in.running, id)
	switch {
	case res.Cancelled:
		in.stats.Cancelled++
	case res.Err != nil:
		in.stats.Failed++
	default:
		in.stats.Completed++
	}
	in.mu.Unlock()

	if in.opts.onDone != nil {
		in.opts.onDone(res)
	}

	if err := in.tracker.Err(); err != nil {
		return &FatalError{Err: err}
	}
	return nil
}

// WaitAll has nothing to wait for; it reports the fault, if any.
func (in *inline) WaitAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return in.tracker.Err()
}

// CancelAll cancels tasks running concurrently on other goroutines. It does
// not wait for them; each returns to its own caller.
func (in *inline) CancelAll(ctx context.Context) int {
	self, isTask := selfID(ctx, in)

	in.mu.Lock()
	defer in.mu.Unlock()

	n := 0
	for id, cancel := range in.running {
		if isTask && id == self {
			continue
		}
		cancel()
		n++
	}
	return n
}

func (in *inline) Idle() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.running) == 0
}

func (in *inline) Stats() Stats {
	in.mu.Lock()
	defer in.mu.Unlock()

	s := in.stats
	s.Active = len(in.running)
	return s
}

func (in *inline) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.closed = true
	return nil
}
