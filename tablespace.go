package tablespace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/tablespace/fault"
	"github.com/hupe1980/tablespace/internal/locks"
	"github.com/hupe1980/tablespace/internal/store"
	"github.com/hupe1980/tablespace/resource"
	"github.com/hupe1980/tablespace/scheduler"
	"github.com/hupe1980/tablespace/table"
)

// DefaultConcurrency is the Pooled worker count.
const DefaultConcurrency = scheduler.DefaultWorkers

// Mode selects how scheduled tasks run.
type Mode = scheduler.Mode

const (
	// Pooled runs tasks on a fixed number of workers.
	Pooled = scheduler.Pooled
	// Threaded runs every task on its own goroutine.
	Threaded = scheduler.Threaded
	// Inline runs every task on the caller's goroutine before Schedule
	// returns.
	Inline = scheduler.Inline
)

// Task is a unit of work scheduled on a workspace.
type Task = scheduler.Task

// NamedLock guards one resource name.
type NamedLock = locks.Lock

// TableInfo summarizes a stored table.
type TableInfo = table.Info

// Stats is a snapshot of a workspace.
type Stats struct {
	Name        string
	Scheduler   scheduler.Stats
	Resources   int
	Tables      int
	MemoryBytes int64
	Faulted     bool
}

// Workspace holds named tables, guards every name with its own lock and runs
// tasks on a swappable scheduling backend. Workspaces are independent of each
// other.
type Workspace struct {
	opts    options
	logger  *Logger
	metrics MetricsCollector
	rc      *resource.Controller

	locks   *locks.Registry
	store   *store.Store
	tracker *fault.Tracker

	modeMu  sync.Mutex
	backend atomic.Pointer[scheduler.Backend]

	memMu   sync.Mutex
	charged map[string]int64

	temp   atomic.Uint64
	tasks  atomic.Uint64
	closed atomic.Bool
}

// New creates a workspace.
func New(opts ...Option) (*Workspace, error) {
	o := applyOptions(opts)

	ws := &Workspace{
		opts:    o,
		logger:  o.logger.WithWorkspace(o.name),
		metrics: o.metricsCollector,
		rc:      o.resources,
		locks:   locks.NewRegistry(),
		store:   store.New(),
		tracker: fault.NewTracker(),
		charged: make(map[string]int64),
	}

	b, err := ws.newBackend(o.mode, o.concurrency)
	if err != nil {
		return nil, err
	}
	ws.backend.Store(&b)
	return ws, nil
}

func (ws *Workspace) newBackend(mode Mode, concurrency int) (scheduler.Backend, error) {
	return scheduler.New(mode, ws.tracker,
		scheduler.WithWorkers(concurrency),
		scheduler.WithOnDone(ws.taskDone),
	)
}

func (ws *Workspace) taskDone(res scheduler.Result) {
	if res.Cancelled {
		ws.metrics.RecordTask(res.Duration, nil)
		ws.logger.Debug("task cancelled", "task", res.Name)
		return
	}
	ws.metrics.RecordTask(res.Duration, res.Err)
	if res.Err != nil {
		ws.logger.LogFault(context.Background(), res.Name, res.Err)
	}
}

func (ws *Workspace) current() scheduler.Backend {
	return *ws.backend.Load()
}

// Name returns the workspace name.
func (ws *Workspace) Name() string { return ws.opts.name }

// Mode returns the active scheduling mode.
func (ws *Workspace) Mode() Mode { return ws.current().Mode() }

// Err returns the error that faulted the workspace, if any.
func (ws *Workspace) Err() error { return ws.tracker.Err() }

// SecondaryErrors returns failures recorded after the workspace faulted.
func (ws *Workspace) SecondaryErrors() []error { return ws.tracker.Secondary() }

// Acquire returns the lock guarding name, creating it if needed. The lock
// is returned unlocked.
func (ws *Workspace) Acquire(name string) *NamedLock {
	return ws.locks.Acquire(name)
}

// IsAvailable reports whether name is known and not currently held. The
// answer is advisory.
func (ws *Workspace) IsAvailable(name string) bool {
	return ws.locks.IsAvailable(name)
}

// GiveTempVarName returns a fresh name of the form <prefix><n>. Names are
// unique per workspace and strictly increasing in n.
func (ws *Workspace) GiveTempVarName() string {
	n := ws.temp.Add(1) - 1
	return ws.opts.tempPrefix + strconv.FormatUint(n, 10)
}

// install stores t under name and charges its memory. The caller holds the
// name's lock.
func (ws *Workspace) install(name string, t table.Table) error {
	size := t.SizeBytes()

	ws.memMu.Lock()
	defer ws.memMu.Unlock()

	prev := ws.charged[name]
	if size > prev {
		if err := ws.rc.AcquireMemory(size - prev); err != nil {
			return fmt.Errorf("install %q: %w", name, err)
		}
	} else {
		ws.rc.ReleaseMemory(prev - size)
	}
	ws.charged[name] = size
	ws.store.Insert(name, t)
	return nil
}

func (ws *Workspace) uninstall(name string) {
	ws.memMu.Lock()
	defer ws.memMu.Unlock()

	if _, ok := ws.store.Delete(name); ok {
		ws.rc.ReleaseMemory(ws.charged[name])
		delete(ws.charged, name)
	}
}

// Insert stores t under name, replacing any previous table. It waits for the
// name's lock.
func (ws *Workspace) Insert(ctx context.Context, name string, t table.Table) error {
	if ws.closed.Load() {
		return ErrClosed
	}
	l, err := ws.locks.Lock(ctx, name)
	if err != nil {
		return err
	}
	defer l.Unlock()

	return ws.install(name, t)
}

// InsertHeld stores t under name for a caller that already holds the name's
// lock, such as a producer that Attached it. The lock stays held.
func (ws *Workspace) InsertHeld(name string, t table.Table) error {
	if ws.closed.Load() {
		return ErrClosed
	}
	l, ok := ws.locks.Lookup(name)
	if !ok || !l.Held() {
		return fmt.Errorf("insert %q: %w", name, ErrNotHeld)
	}
	return ws.install(name, t)
}

// Get returns the table under name without taking its lock. With kinds
// given, the table's kind must be one of them.
func (ws *Workspace) Get(name string, kinds ...table.Kind) (table.Table, error) {
	return ws.store.Get(name, kinds...)
}

// Attach waits for name's lock and returns its table, loading it from the
// blob store with name as the filename if it is not resident. The lock stays
// held until Detach or Purge.
func (ws *Workspace) Attach(ctx context.Context, name string) (table.Table, error) {
	if ws.closed.Load() {
		return nil, ErrClosed
	}
	l, err := ws.locks.Lock(ctx, name)
	if err != nil {
		return nil, err
	}

	if t, err := ws.store.Get(name); err == nil {
		return t, nil
	}

	t, _, err := ws.read(ctx, name, name, table.FamilyAny)
	if err == nil {
		err = ws.install(name, t)
	}
	if err != nil {
		l.Unlock()
		return nil, translateError(err)
	}
	return t, nil
}

// Detach releases the lock taken by Attach. Detaching an unknown or free
// name only logs a warning.
func (ws *Workspace) Detach(name string) {
	l, ok := ws.locks.Lookup(name)
	if !ok || !l.Unlock() {
		ws.logger.LogSkip(context.Background(), name, "detach of a resource that is not attached")
	}
}

// Purge releases name's lock without removing its table, letting waiting
// consumers proceed.
func (ws *Workspace) Purge(name string) error {
	l, ok := ws.locks.Lookup(name)
	if !ok {
		return fmt.Errorf("purge %q: %w", name, ErrUnknownResource)
	}
	l.Unlock()
	return nil
}

// Remove deletes name's table and lock. A later reference to name starts
// over with a fresh lock.
func (ws *Workspace) Remove(name string) error {
	ctx := context.Background()

	l, ok := ws.locks.Lookup(name)
	if !ok {
		err := fmt.Errorf("remove %q: %w", name, ErrUnknownResource)
		ws.logger.LogRemove(ctx, name, err)
		return err
	}

	l.TryLock()
	ws.uninstall(name)
	if err := ws.locks.Remove(name); err != nil {
		// Lost a race with a concurrent Remove.
		err = fmt.Errorf("remove %q: %w", name, err)
		ws.logger.LogRemove(ctx, name, err)
		return err
	}
	ws.logger.LogRemove(ctx, name, nil)
	return nil
}

// Copy attaches src, clones its cells and installs the clone under dst. It
// reports false without error if src is not a data table.
func (ws *Workspace) Copy(ctx context.Context, src, dst string) (bool, error) {
	t, err := ws.Attach(ctx, src)
	if err != nil {
		return false, err
	}
	if !table.FamilyData.Contains(t.Kind()) {
		ws.Detach(src)
		return false, nil
	}
	clone := t.CloneData()

	if src == dst {
		defer ws.Detach(src)
		return true, ws.install(dst, clone)
	}
	ws.Detach(src)

	if err := ws.Insert(ctx, dst, clone); err != nil {
		return false, err
	}
	return true, nil
}

// Index builds the search index of the data table under name. It waits for
// the name's lock and is a no-op for an already indexed table.
func (ws *Workspace) Index(ctx context.Context, name string, cfg table.IndexConfig) error {
	if ws.closed.Load() {
		return ErrClosed
	}
	l, err := ws.locks.Lock(ctx, name)
	if err != nil {
		return err
	}
	defer l.Unlock()

	t, err := ws.store.Get(name)
	if err != nil {
		return err
	}
	ix, ok := t.(table.Indexable)
	if !ok {
		return fmt.Errorf("index %q: %w: %s", name, ErrUnsupportedShape, t.Kind())
	}
	if err := ix.IndexData(cfg); err != nil {
		return fmt.Errorf("index %q: %w", name, err)
	}
	return ws.install(name, t)
}

// Info describes the table under name. It waits for the name's lock.
func (ws *Workspace) Info(ctx context.Context, name string) (TableInfo, error) {
	l, err := ws.locks.Lock(ctx, name)
	if err != nil {
		return TableInfo{}, err
	}
	defer l.Unlock()

	t, err := ws.store.Get(name)
	if err != nil {
		return TableInfo{}, err
	}
	return table.Describe(t), nil
}

// read fetches and decodes a table file under the workspace's transfer and
// throughput limits.
func (ws *Workspace) read(ctx context.Context, name, filename string, family table.Family) (table.Table, int64, error) {
	start := time.Now()

	if err := ws.rc.AcquireTransfer(ctx); err != nil {
		return nil, 0, err
	}
	defer ws.rc.ReleaseTransfer()

	t, n, err := table.Load(ctx, ws.opts.blobs, filename, family,
		table.WithReaderWrapper(func(r io.Reader) io.Reader {
			return resource.NewRateLimitedReader(ctx, r, ws.rc)
		}),
	)
	ws.metrics.RecordLoad(n, time.Since(start), err)
	ws.logger.LogLoad(ctx, name, filename, n, time.Since(start), err)
	return t, n, err
}

func (ws *Workspace) write(ctx context.Context, name, filename string, t table.Table) (int64, error) {
	start := time.Now()

	if err := ws.rc.AcquireTransfer(ctx); err != nil {
		return 0, err
	}
	defer ws.rc.ReleaseTransfer()

	n, err := table.Save(ctx, ws.opts.blobs, filename, t,
		table.WithCodec(ws.opts.codec),
		table.WithCompression(ws.opts.compression),
		table.WithWriterWrapper(func(w io.Writer) io.Writer {
			return resource.NewRateLimitedWriter(ctx, w, ws.rc)
		}),
	)
	ws.metrics.RecordExport(n, time.Since(start), err)
	ws.logger.LogExport(ctx, name, filename, n, time.Since(start), err)
	return n, err
}

// Load reads filename into name. The file's kind must belong to family.
//
// In Inline mode the name's lock is released when Load returns. In the
// asynchronous modes it stays held until Purge or Detach, so consumers
// scheduled alongside the load wait until the caller declares it ready.
func (ws *Workspace) Load(ctx context.Context, name, filename string, family table.Family) error {
	if ws.closed.Load() {
		return ErrClosed
	}
	l, err := ws.locks.Lock(ctx, name)
	if err != nil {
		return err
	}

	t, _, err := ws.read(ctx, name, filename, family)
	if err == nil {
		err = ws.install(name, t)
	}
	if err != nil || ws.Mode() == Inline {
		l.Unlock()
	}
	return translateError(err)
}

// Export writes the table under name to filename. Names that were never
// produced are skipped with a warning rather than failing.
//
// In Inline mode a name whose lock is held was not produced properly and is
// skipped. In the asynchronous modes Export waits for the lock first.
func (ws *Workspace) Export(ctx context.Context, name, filename string) error {
	if ws.closed.Load() {
		return ErrClosed
	}

	var l *NamedLock
	if ws.Mode() == Inline {
		var ok bool
		if l, ok = ws.locks.Lookup(name); !ok {
			ws.logger.LogSkip(ctx, name, "export of unknown resource")
			return nil
		}
		if !l.TryLock() {
			ws.logger.LogSkip(ctx, name, "resource was not generated properly")
			return nil
		}
	} else {
		var err error
		if l, err = ws.locks.Lock(ctx, name); err != nil {
			return err
		}
	}
	defer l.Unlock()

	t, err := ws.store.Get(name)
	if errors.Is(err, ErrNotFound) {
		ws.logger.LogSkip(ctx, name, "resource was never produced")
		return nil
	}
	if err != nil {
		return err
	}

	_, err = ws.write(ctx, name, filename, t)
	return err
}

// Schedule submits task to the active backend. In Pooled and Threaded mode
// it returns immediately and fails with ErrFaulted once the workspace is
// faulted. In Inline mode the task runs before Schedule returns, and a fault
// is reported as a *FatalError.
func (ws *Workspace) Schedule(task Task) error {
	n := ws.tasks.Add(1)
	return ws.schedule("task-"+strconv.FormatUint(n, 10), task)
}

func (ws *Workspace) schedule(name string, task Task) error {
	if ws.closed.Load() {
		return ErrClosed
	}
	for {
		b := ws.current()
		err := b.Schedule(name, task)
		if errors.Is(err, scheduler.ErrClosed) && !ws.closed.Load() && b != ws.current() {
			// The backend was swapped by SetMode; submit to the new one.
			continue
		}
		ws.metrics.RecordSchedule(b.Mode(), errors.Is(err, ErrFaulted))
		return translateError(err)
	}
}

// WaitAll blocks until every scheduled task has finished, excluding the
// calling task when invoked from inside one. If a task failed, outstanding
// work is cancelled and the failure is returned.
//
// Tasks must not call WaitAll while holding a NamedLock. In Pooled mode the
// waiting task helps drain the queue and may pick up a job that blocks on
// that same lock.
func (ws *Workspace) WaitAll(ctx context.Context) error {
	err := ws.current().WaitAll(ctx)
	if err != nil && ws.tracker.Faulted() {
		ws.logger.ErrorContext(ctx, "workspace faulted", "error", err)
	}
	return err
}

// CancelAll drops queued tasks, cancels running ones and waits for them to
// return or for ctx to be done. It returns how many tasks were affected.
func (ws *Workspace) CancelAll(ctx context.Context) int {
	n := ws.current().CancelAll(ctx)
	ws.metrics.RecordCancel(n)
	ws.logger.LogCancel(ctx, n)
	return n
}

// SetMode replaces the scheduling backend. It fails with ErrBusy while any
// task is queued or running.
func (ws *Workspace) SetMode(mode Mode, concurrency int) error {
	if ws.closed.Load() {
		return ErrClosed
	}

	ws.modeMu.Lock()
	defer ws.modeMu.Unlock()

	old := ws.current()
	if !old.Idle() {
		return ErrBusy
	}
	if concurrency <= 0 {
		concurrency = ws.opts.concurrency
	}
	b, err := ws.newBackend(mode, concurrency)
	if err != nil {
		return err
	}
	ws.backend.Store(&b)
	ws.opts.mode, ws.opts.concurrency = mode, concurrency

	ws.logger.WithMode(mode).Info("scheduling mode changed", "concurrency", concurrency)
	return old.Close()
}

// Stats returns a snapshot of the workspace.
func (ws *Workspace) Stats() Stats {
	return Stats{
		Name:        ws.opts.name,
		Scheduler:   ws.current().Stats(),
		Resources:   ws.locks.Len(),
		Tables:      ws.store.Len(),
		MemoryBytes: ws.rc.MemoryUsage(),
		Faulted:     ws.tracker.Faulted(),
	}
}

// Names returns the names of all stored tables in sorted order.
func (ws *Workspace) Names() []string {
	return ws.store.Names()
}
