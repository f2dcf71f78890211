// Package sessionpool manages a bounded pool of browser sessions with TTL
// expiry and per-session operation serialization.
package sessionpool

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dtnitsch/surfcore/models"
	"github.com/dtnitsch/surfcore/pkg/browser"
)

// Session is one pooled browser context. The gate serializes driver access:
// at most one operation in flight, waiters served in arrival order.
type Session struct {
	ID        string
	CreatedAt time.Time

	handle   browser.Handle
	identity models.Identity
	gate     chan struct{}

	mu         sync.Mutex
	status     models.SessionStatus
	lastUsedAt time.Time
	requests   int64
	failures   int64
}

func newSession(handle browser.Handle, identity models.Identity) *Session {
	now := time.Now()
	return &Session{
		ID:         newSessionID(),
		CreatedAt:  now,
		handle:     handle,
		identity:   identity,
		gate:       make(chan struct{}, 1),
		status:     models.SessionActive,
		lastUsedAt: now,
	}
}

// newSessionID returns "sess_" plus 8 hex chars.
func newSessionID() string {
	return "sess_" + uuid.NewString()[:8]
}

// BeginOp takes the session's single operation slot, blocking behind any
// in-flight operation. It fails without the slot when the session is gone
// or ctx ends first.
func (s *Session) BeginOp(ctx context.Context) error {
	select {
	case s.gate <- struct{}{}:
	case <-ctx.Done():
		return models.NewError(models.ErrTimeout, "session.begin_op", ctx.Err())
	}

	s.mu.Lock()
	status := s.status
	if status == models.SessionActive {
		s.lastUsedAt = time.Now()
	}
	s.mu.Unlock()

	if status != models.SessionActive {
		<-s.gate
		kind := models.ErrExpired
		if status == models.SessionReleased {
			kind = models.ErrNotFound
		}
		return models.NewError(kind, "session.begin_op", nil)
	}
	return nil
}

// EndOp frees the operation slot taken by BeginOp.
func (s *Session) EndOp() {
	<-s.gate
}

// Handle returns the driver context. Call only between BeginOp and EndOp.
func (s *Session) Handle() browser.Handle {
	return s.handle
}

// Identity returns the identity this session was created with.
func (s *Session) Identity() models.Identity {
	return s.identity
}

// RecordRequest bumps the session's counters and refreshes last use.
func (s *Session) RecordRequest(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests++
	if !success {
		s.failures++
	}
	s.lastUsedAt = time.Now()
}

// Touch refreshes last use without recording a request.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUsedAt = time.Now()
}

// LastUsed returns the last-use timestamp.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsedAt
}

// Status returns the lifecycle status.
func (s *Session) Status() models.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// expiredBy reports whether the session has been idle past ttl at now.
func (s *Session) expiredBy(ttl time.Duration, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status == models.SessionActive && now.Sub(s.lastUsedAt) > ttl
}

// transition moves an active session to a terminal status. It reports false
// when the session already left the pool, which keeps close-exactly-once.
func (s *Session) transition(to models.SessionStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != models.SessionActive {
		return false
	}
	s.status = to
	return true
}

// Info snapshots the caller-visible view.
func (s *Session) Info() models.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.SessionInfo{
		ID:         s.ID,
		Status:     s.status,
		CreatedAt:  s.CreatedAt,
		LastUsedAt: s.lastUsedAt,
		Requests:   s.requests,
		Failures:   s.failures,
		Identity:   s.identity,
	}
}
