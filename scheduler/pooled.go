package scheduler

import (
	"context"
	"sync"

	"github.com/hupe1980/tablespace/fault"
)

type job struct {
	id   uint64
	name string
	task Task
}

// pooled runs tasks on a fixed set of workers fed by an unbounded FIFO.
type pooled struct {
	tracker *fault.Tracker
	opts    options

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []job
	active map[uint64]context.CancelFunc
	nextID uint64
	closed bool

	// base is replaced on every CancelAll so later tasks start uncancelled.
	base       context.Context
	cancelBase context.CancelFunc

	stats Stats
	wg    sync.WaitGroup
}

func newPooled(tracker *fault.Tracker, o options) *pooled {
	p := &pooled{
		tracker: tracker,
		opts:    o,
		active:  make(map[uint64]context.CancelFunc),
		stats:   Stats{Mode: Pooled, Workers: o.workers},
	}
	p.cond = sync.NewCond(&p.mu)
	p.base, p.cancelBase = context.WithCancel(context.Background())

	for i := 0; i < o.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *pooled) Mode() Mode { return Pooled }

func (p *pooled) Schedule(name string, task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.tracker.Faulted() {
		p.stats.Refused++
		return ErrFaulted
	}

	p.nextID++
	p.queue = append(p.queue, job{id: p.nextID, name: name, task: task})
	p.stats.Submitted++
	p.cond.Broadcast()
	return nil
}

func (p *pooled) worker() {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		j, ctx := p.pop()
		p.mu.Unlock()

		p.execute(ctx, j)
	}
}

// pop dequeues the next job and marks it active in one step, so the pool
// never looks idle between the two. It must be called with mu held.
func (p *pooled) pop() (job, context.Context) {
	j := p.queue[0]
	p.queue[0] = job{}
	p.queue = p.queue[1:]

	ctx, cancel := context.WithCancel(withTask(p.base, p, j.id))
	p.active[j.id] = cancel
	return j, ctx
}

func (p *pooled) execute(ctx context.Context, j job) {
	res := run(ctx, p.tracker, j.id, j.name, j.task)

	p.mu.Lock()
	if cancel, ok := p.active[j.id]; ok {
		cancel()
		delete(p.active, j.id)
	}
	switch {
	case res.Cancelled:
		p.stats.Cancelled++
	case res.Err != nil:
		p.stats.Failed++
	default:
		p.stats.Completed++
	}
	p.cond.Broadcast()
	p.mu.Unlock()

	if p.opts.onDone != nil {
		p.opts.onDone(res)
	}
}

// busy must be called with mu held.
func (p *pooled) busy(self uint64, isTask bool) bool {
	if len(p.queue) > 0 {
		return true
	}
	n := len(p.active)
	if isTask {
		if _, ok := p.active[self]; ok {
			n--
		}
	}
	return n > 0
}

func (p *pooled) WaitAll(ctx context.Context) error {
	self, isTask := selfID(ctx, p)

	stop := watch(ctx, p.tracker, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer stop()

	cancelled := false
	p.mu.Lock()
	for {
		if p.tracker.Faulted() && !cancelled {
			p.mu.Unlock()
			p.cancel(self, isTask)
			cancelled = true
			p.mu.Lock()
			continue
		}
		if ctx.Err() != nil {
			p.mu.Unlock()
			return ctx.Err()
		}
		if !p.busy(self, isTask) {
			p.mu.Unlock()
			return p.tracker.Err()
		}
		// A task waiting on its own pool helps drain the queue instead of
		// holding a worker hostage.
		if isTask && len(p.queue) > 0 {
			j, jctx := p.pop()
			p.mu.Unlock()
			p.execute(jctx, j)
			p.mu.Lock()
			continue
		}
		p.cond.Wait()
	}
}

// cancel drops the queue and cancels every running task except self.
func (p *pooled) cancel(self uint64, isTask bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.queue)
	p.stats.Cancelled += uint64(n)
	p.queue = nil

	for id, cancel := range p.active {
		if isTask && id == self {
			continue
		}
		cancel()
		n++
	}

	p.cancelBase()
	p.base, p.cancelBase = context.WithCancel(context.Background())
	p.cond.Broadcast()
	return n
}

func (p *pooled) CancelAll(ctx context.Context) int {
	self, isTask := selfID(ctx, p)
	n := p.cancel(self, isTask)

	stop := watch(ctx, p.tracker, func() {
		p.mu.Lock()
		p.cond.Broadcast()
		p.mu.Unlock()
	})
	defer stop()

	p.mu.Lock()
	defer p.mu.Unlock()
	for ctx.Err() == nil && p.busy(self, isTask) {
		p.cond.Wait()
	}
	return n
}

func (p *pooled) Idle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.busy(0, false)
}

func (p *pooled) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.stats
	s.Pending = len(p.queue)
	s.Active = len(p.active)
	return s
}

func (p *pooled) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	p.cancel(0, false)

	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()
	p.cancelBase()
	return nil
}
