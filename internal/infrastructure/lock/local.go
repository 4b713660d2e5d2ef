// Package lock provides keyed mutual exclusion: Local for a single process
// and Redis for several replicas sharing one redis.
package lock

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// Local hands out one weight-1 semaphore per key. Entries are dropped once no
// holder or waiter references them, so the map stays bounded by live keys.
type Local struct {
	mu   sync.Mutex
	keys map[string]*entry
}

func NewLocal() *Local { return &Local{keys: make(map[string]*entry)} }

func (l *Local) acquireEntry(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.keys[key]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		l.keys[key] = e
	}
	e.refs++
	return e
}

func (l *Local) releaseEntry(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.keys, key)
	}
}

// Lock blocks until key is free or ctx is done.
func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	e := l.acquireEntry(key)
	if err := e.sem.Acquire(ctx, 1); err != nil {
		l.releaseEntry(key, e)
		return nil, err
	}
	return l.unlocker(key, e), nil
}

// TryLock acquires key only if it is free right now.
func (l *Local) TryLock(_ context.Context, key string) (func(), bool, error) {
	e := l.acquireEntry(key)
	if !e.sem.TryAcquire(1) {
		l.releaseEntry(key, e)
		return nil, false, nil
	}
	return l.unlocker(key, e), true, nil
}

func (l *Local) unlocker(key string, e *entry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			e.sem.Release(1)
			l.releaseEntry(key, e)
		})
	}
}

// size is used by tests.
func (l *Local) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}
