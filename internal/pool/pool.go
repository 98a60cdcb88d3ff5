// Package pool reuses long-lived backend sessions across simulated users so
// a conversation does not pay the connection handshake on every operation.
package pool

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Session is a connectable, closeable backend session.
type Session interface {
	Connect(ctx context.Context) error
	Close() error
}

// Pool holds idle sessions for a single backend target. Acquire hands out an
// idle session when one is available and otherwise builds a fresh one via the
// caller's factory.
type Pool struct {
	mu     sync.Mutex
	idle   chan Session
	closed bool
}

// New creates a pool keeping at most size idle sessions.
func New(size int) *Pool {
	if size <= 0 {
		size = 10
	}
	return &Pool{idle: make(chan Session, size)}
}

// Acquire returns a session and whether it came from the idle set. A fresh
// session has not been connected; the caller owns the Connect call.
func (p *Pool) Acquire(factory func() Session) (Session, bool) {
	select {
	case s := <-p.idle:
		return s, true
	default:
		return factory(), false
	}
}

// Release parks a session for reuse. When the idle set is full, or the pool
// has been closed, the session is closed instead. Parking happens under the
// mutex so a Release racing Close cannot strand a session in the idle set.
func (p *Pool) Release(s Session) error {
	p.mu.Lock()
	if !p.closed {
		select {
		case p.idle <- s:
			p.mu.Unlock()
			return nil
		default:
		}
	}
	p.mu.Unlock()
	return s.Close()
}

// Refresh discards a stale session and connects a replacement. It reports
// false when the replacement could not connect.
func (p *Pool) Refresh(ctx context.Context, stale Session, factory func() Session) (Session, bool) {
	_ = stale.Close()

	fresh := factory()
	if err := fresh.Connect(ctx); err != nil {
		return nil, false
	}
	return fresh, true
}

// Close drains the idle set, closing every parked session. The idle channel
// itself is never closed, so a concurrent Release stays safe: it either parks
// before the drain or hits the closed flag and closes its own session.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var errs []string
	for {
		select {
		case s := <-p.idle:
			if err := s.Close(); err != nil {
				errs = append(errs, err.Error())
			}
		default:
			if len(errs) > 0 {
				return fmt.Errorf("pool close errors: %s", strings.Join(errs, "; "))
			}
			return nil
		}
	}
}
