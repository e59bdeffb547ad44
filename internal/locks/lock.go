package locks

import (
	"context"
	"fmt"
)

// ErrRemoved is returned by Lock when the lock's name was removed from the
// registry while waiting. It matches ErrUnknown.
var ErrRemoved = fmt.Errorf("%w: lock removed", ErrUnknown)

// Lock is a binary lock bound to one resource name.
//
// Unlike sync.Mutex it may be released by a goroutine other than the one
// that acquired it, and releasing a free Lock is a no-op. Producers rely on
// this: a load acquires the lock and a later Purge from any goroutine
// publishes the table.
type Lock struct {
	name string
	gen  uint64
	ch   chan struct{}
	dead chan struct{}
}

func newLock(name string, gen uint64) *Lock {
	return &Lock{
		name: name,
		gen:  gen,
		ch:   make(chan struct{}, 1),
		dead: make(chan struct{}),
	}
}

// Name returns the resource name the lock guards.
func (l *Lock) Name() string { return l.name }

// Generation identifies this incarnation of the name. A name that is removed
// and referenced again gets a new generation.
func (l *Lock) Generation() uint64 { return l.gen }

// Lock blocks until the lock is acquired or ctx is done. A removed lock is
// never acquired; waiters get ErrRemoved instead.
func (l *Lock) Lock(ctx context.Context) error {
	// Fast path so an already-cancelled context still acquires a free lock.
	if l.TryLock() {
		return nil
	}
	select {
	case l.ch <- struct{}{}:
		return l.checkAlive()
	case <-l.dead:
		return ErrRemoved
	case <-ctx.Done():
		if l.removed() {
			return ErrRemoved
		}
		return ctx.Err()
	}
}

// TryLock acquires the lock if it is free and has not been removed.
func (l *Lock) TryLock() bool {
	if l.removed() {
		return false
	}
	select {
	case l.ch <- struct{}{}:
		return l.checkAlive() == nil
	default:
		return false
	}
}

// checkAlive backs out of an acquisition that raced with Remove.
func (l *Lock) checkAlive() error {
	if l.removed() {
		l.Unlock()
		return ErrRemoved
	}
	return nil
}

func (l *Lock) removed() bool {
	select {
	case <-l.dead:
		return true
	default:
		return false
	}
}

// kill marks the lock removed. Only the registry calls it, once.
func (l *Lock) kill() {
	close(l.dead)
}

// Unlock releases the lock and reports whether it was held.
func (l *Lock) Unlock() bool {
	select {
	case <-l.ch:
		return true
	default:
		return false
	}
}

// Held reports whether the lock is currently held. The answer may be stale
// by the time the caller acts on it.
func (l *Lock) Held() bool {
	return len(l.ch) == 1
}
