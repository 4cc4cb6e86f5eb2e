// Package tenantlock serializes scheduling decisions per tenant so two
// dispatch operations cannot double-book the same technician.
package tenantlock

import (
	"context"
	"sync"
)

// Local is an in-process per-tenant lock. Each tenant gets a one-slot channel
// so waiting honours context cancellation.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocal creates an in-process locker.
func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

// Lock blocks until the tenant lock is held or ctx is done.
func (l *Local) Lock(ctx context.Context, tenantID string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[tenantID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[tenantID] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(tenantID, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(tenantID, s)
		})
	}, nil
}

// release drops a reference and forgets idle tenants.
func (l *Local) release(tenantID string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, tenantID)
	}
}
