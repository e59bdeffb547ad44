// Package locks implements the per-name lock registry of a workspace.
//
// Locks are created lazily the first time a name is referenced and live until
// the name is explicitly removed. The registry map is guarded by a short-held
// mutex that is never held while a per-name lock is being waited on.
package locks

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrUnknown is returned when a name has no lock.
var ErrUnknown = errors.New("unknown resource")

// Registry maps resource names to their locks.
type Registry struct {
	mu    sync.Mutex
	slots map[string]*Lock
	gen   uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		slots: make(map[string]*Lock),
	}
}

// Acquire returns the lock for name, creating it if absent.
// The returned lock is not locked.
func (r *Registry) Acquire(name string) *Lock {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.slots[name]; ok {
		return l
	}
	r.gen++
	l := newLock(name, r.gen)
	r.slots[name] = l
	return l
}

// Lookup returns the lock for name without creating it.
func (r *Registry) Lookup(name string) (*Lock, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.slots[name]
	return l, ok
}

// Remove drops the lock for name and marks it removed, releasing it if
// held. Goroutines waiting on the old lock fail with ErrRemoved rather than
// acquiring it, so the old and the next lock for name are never held at the
// same time through the registry.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	l, ok := r.slots[name]
	if ok {
		delete(r.slots, name)
		l.kill()
	}
	r.mu.Unlock()

	if !ok {
		return ErrUnknown
	}
	l.Unlock()
	return nil
}

// Lock acquires the current lock for name, creating it if absent. If the
// name is removed while waiting, Lock retries on the lock that replaces it.
func (r *Registry) Lock(ctx context.Context, name string) (*Lock, error) {
	for {
		l := r.Acquire(name)
		err := l.Lock(ctx)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, ErrRemoved) {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// IsAvailable reports whether name is known and its lock could be acquired
// without blocking. The lock is released again before returning, so the
// answer is advisory only.
func (r *Registry) IsAvailable(name string) bool {
	l, ok := r.Lookup(name)
	if !ok {
		return false
	}
	if !l.TryLock() {
		return false
	}
	l.Unlock()
	return true
}

// ReleaseAll releases every held lock and returns how many were held.
func (r *Registry) ReleaseAll() int {
	r.mu.Lock()
	all := make([]*Lock, 0, len(r.slots))
	for _, l := range r.slots {
		all = append(all, l)
	}
	r.mu.Unlock()

	n := 0
	for _, l := range all {
		if l.Unlock() {
			n++
		}
	}
	return n
}

// Names returns all registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.slots))
	for name := range r.slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}
