// Package fault provides the first-failure-wins error cell shared by a
// workspace and its scheduler backend.
//
// A Tracker is set at most once. The first recorded error is the one every
// caller observes; later errors are kept as bounded diagnostics so a cascade
// can still be inspected after the fact.
package fault

import (
	"sync"
)

// maxSecondary bounds the number of secondary errors retained.
const maxSecondary = 16

// Tracker holds the first unrecoverable error of a workspace.
// It is safe for concurrent use.
type Tracker struct {
	mu        sync.Mutex
	err       error
	done      chan struct{}
	secondary []error
	dropped   int
}

// NewTracker creates an unset tracker.
func NewTracker() *Tracker {
	return &Tracker{done: make(chan struct{})}
}

// Record stores err if no fault has been recorded yet and reports whether it
// became the fault. Later errors are retained as secondary diagnostics.
// A nil error is ignored.
func (t *Tracker) Record(err error) bool {
	if err == nil {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.err == nil {
		t.err = err
		close(t.done)
		return true
	}

	if len(t.secondary) == maxSecondary {
		copy(t.secondary, t.secondary[1:])
		t.secondary = t.secondary[:maxSecondary-1]
		t.dropped++
	}
	t.secondary = append(t.secondary, err)
	return false
}

// Err returns the recorded fault or nil. It never blocks on task execution.
func (t *Tracker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Faulted reports whether a fault has been recorded.
func (t *Tracker) Faulted() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// Done returns a channel that is closed once a fault is recorded.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

// Secondary returns the errors recorded after the first fault, oldest first.
// At most the last 16 are kept.
func (t *Tracker) Secondary() []error {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]error, len(t.secondary))
	copy(out, t.secondary)
	return out
}

// Dropped returns how many secondary errors were evicted from the buffer.
func (t *Tracker) Dropped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}
