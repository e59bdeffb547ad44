package scheduler

import (
	"context"
	"sync"

	"github.com/hupe1980/tablespace/fault"
)

// threaded runs each task on its own goroutine.
type threaded struct {
	tracker *fault.Tracker
	opts    options

	mu     sync.Mutex
	cond   *sync.Cond
	tasks  map[uint64]context.CancelFunc
	nextID uint64
	closed bool

	base       context.Context
	cancelBase context.CancelFunc

	stats Stats
}

func newThreaded(tracker *fault.Tracker, o options) *threaded {
	t := &threaded{
		tracker: tracker,
		opts:    o,
		tasks:   make(map[uint64]context.CancelFunc),
		stats:   Stats{Mode: Threaded},
	}
	t.cond = sync.NewCond(&t.mu)
	t.base, t.cancelBase = context.WithCancel(context.Background())
	return t
}

func (t *threaded) Mode() Mode { return Threaded }

func (t *threaded) Schedule(name string, task Task) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if t.tracker.Faulted() {
		t.stats.Refused++
		return ErrFaulted
	}

	t.nextID++
	id := t.nextID
	ctx, cancel := context.WithCancel(withTask(t.base, t, id))
	t.tasks[id] = cancel
	t.stats.Submitted++

	go func() {
		res := run(ctx, t.tracker, id, name, task)
		cancel()

		t.mu.Lock()
		delete(t.tasks, id)
		switch {
		case res.Cancelled:
			t.stats.Cancelled++
		case res.Err != nil:
			t.stats.Failed++
		default:
			t.stats.Completed++
		}
		t.cond.Broadcast()
		t.mu.Unlock()

		if t.opts.onDone != nil {
			t.opts.onDone(res)
		}
	}()
	return nil
}

// busy must be called with mu held.
func (t *threaded) busy(self uint64, isTask bool) bool {
	n := len(t.tasks)
	if isTask {
		if _, ok := t.tasks[self]; ok {
			n--
		}
	}
	return n > 0
}

func (t *threaded) wake() {
	t.mu.Lock()
	t.cond.Broadcast()
	t.mu.Unlock()
}

func (t *threaded) WaitAll(ctx context.Context) error {
	self, isTask := selfID(ctx, t)

	stop := watch(ctx, t.tracker, t.wake)
	defer stop()

	cancelled := false
	t.mu.Lock()
	for {
		if t.tracker.Faulted() && !cancelled {
			t.signal(self, isTask)
			cancelled = true
			continue
		}
		if ctx.Err() != nil {
			t.mu.Unlock()
			return ctx.Err()
		}
		if !t.busy(self, isTask) {
			t.mu.Unlock()
			return t.tracker.Err()
		}
		t.cond.Wait()
	}
}

// signal must be called with mu held.
func (t *threaded) signal(self uint64, isTask bool) int {
	n := 0
	for id, cancel := range t.tasks {
		if isTask && id == self {
			continue
		}
		cancel()
		n++
	}
	t.cancelBase()
	t.base, t.cancelBase = context.WithCancel(context.Background())
	return n
}

func (t *threaded) CancelAll(ctx context.Context) int {
	self, isTask := selfID(ctx, t)

	stop := watch(ctx, t.tracker, t.wake)
	defer stop()

	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.signal(self, isTask)
	for ctx.Err() == nil && t.busy(self, isTask) {
		t.cond.Wait()
	}
	return n
}

func (t *threaded) Idle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tasks) == 0
}

func (t *threaded) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.stats
	s.Active = len(t.tasks)
	return s
}

func (t *threaded) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.CancelAll(context.Background())
	t.cancelBase()
	return nil
}
