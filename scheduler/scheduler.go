package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hupe1980/tablespace/fault"
)

var (
	// ErrFaulted is returned by Schedule once the fault tracker is set.
	ErrFaulted = errors.New("scheduler: workspace faulted, refusing new work")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("scheduler: closed")
	// ErrInvalidMode is returned for unknown modes.
	ErrInvalidMode = errors.New("scheduler: invalid mode")
)

// FatalError is returned by an Inline backend when the fault tracker is set
// after running a task. The caller is expected to stop.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Mode selects a backend.
type Mode int

const (
	Pooled Mode = iota
	Threaded
	Inline
)

func (m Mode) String() string {
	switch m {
	case Pooled:
		return "pooled"
	case Threaded:
		return "threaded"
	case Inline:
		return "inline"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode accepts a mode name or its number (0 pooled, 1 threaded,
// 2 inline).
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "pooled", "pool":
		return Pooled, nil
	case "threaded", "thread":
		return Threaded, nil
	case "inline", "sequential":
		return Inline, nil
	}
	if n, err := strconv.Atoi(s); err == nil && n >= int(Pooled) && n <= int(Inline) {
		return Mode(n), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Task is a unit of work. It must return promptly once ctx is done.
type Task func(ctx context.Context) error

// Result describes one finished task.
type Result struct {
	ID        uint64
	Name      string
	Duration  time.Duration
	Err       error
	Cancelled bool
}

// Stats is a snapshot of a backend.
type Stats struct {
	Mode      Mode
	Workers   int
	Pending   int
	Active    int
	Submitted uint64
	Completed uint64
	Failed    uint64
	Refused   uint64
	Cancelled uint64
}

// Backend is implemented by the three scheduling strategies.
type Backend interface {
	Mode() Mode
	// Schedule submits task under a descriptive name. It never waits for
	// the task to finish, except in Inline mode.
	Schedule(name string, task Task) error
	// WaitAll blocks until no work is pending, excluding the calling task
	// itself. If a fault is observed, outstanding work is cancelled and the
	// fault is returned.
	// A task must not call WaitAll while holding a lock that queued work
	// needs. In Pooled mode the caller may run such a job itself and block.
	WaitAll(ctx context.Context) error
	// CancelAll drops queued work, cancels running tasks and waits until
	// they return or ctx is done. It returns how many tasks were affected.
	CancelAll(ctx context.Context) int
	// Idle reports whether nothing is queued or running.
	Idle() bool
	Stats() Stats
	// Close cancels all work and stops the backend.
	Close() error
}

type options struct {
	workers int
	onDone  func(Result)
}

// Option configures a backend.
type Option func(*options)

// DefaultWorkers is the Pooled worker count when none is configured.
const DefaultWorkers = 2

// WithWorkers sets the Pooled worker count.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithOnDone registers a callback invoked after every task, outside any
// scheduler lock.
func WithOnDone(fn func(Result)) Option {
	return func(o *options) {
		o.onDone = fn
	}
}

// New creates the backend for mode. All backends of a workspace share one
// tracker.
func New(mode Mode, tracker *fault.Tracker, opts ...Option) (Backend, error) {
	o := options{workers: DefaultWorkers}
	for _, opt := range opts {
		opt(&o)
	}

	switch mode {
	case Pooled:
		return newPooled(tracker, o), nil
	case Threaded:
		return newThreaded(tracker, o), nil
	case Inline:
		return newInline(tracker, o), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int(mode))
	}
}

type taskKey struct{}

type taskMarker struct {
	owner any
	id    uint64
}

func withTask(ctx context.Context, owner any, id uint64) context.Context {
	return context.WithValue(ctx, taskKey{}, taskMarker{owner: owner, id: id})
}

// TaskID returns the id of the task whose context ctx derives from.
func TaskID(ctx context.Context) (uint64, bool) {
	m, ok := ctx.Value(taskKey{}).(taskMarker)
	return m.id, ok
}

func selfID(ctx context.Context, owner any) (uint64, bool) {
	m, ok := ctx.Value(taskKey{}).(taskMarker)
	if !ok || m.owner != owner {
		return 0, false
	}
	return m.id, true
}

func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

// run is the task boundary.
func run(ctx context.Context, tracker *fault.Tracker, id uint64, name string, task Task) (res Result) {
	start := time.Now()
	res = Result{ID: id, Name: name}

	defer func() {
		if r := recover(); r != nil {
			res.Err = fault.NewPanicError(r)
		}
		res.Duration = time.Since(start)
		if res.Err == nil {
			return
		}
		if isCancellation(ctx, res.Err) {
			res.Cancelled = true
			return
		}
		tracker.Record(&fault.TaskError{Task: name, Err: res.Err})
	}()

	res.Err = task(ctx)
	return res
}

// watch broadcasts on wake when ctx or the tracker is done, until stop is
// called.
func watch(ctx context.Context, tracker *fault.Tracker, wake func()) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-tracker.Done():
		case <-done:
			return
		}
		wake()
	}()
	return func() { close(done) }
}
