package sessionpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dtnitsch/surfcore/models"
	"github.com/dtnitsch/surfcore/pkg/browser"
)

// Pool hands out bounded browser sessions. Bookkeeping stays cheap: driver
// calls never run under the pool lock.
type Pool struct {
	cfg    models.PoolConfig
	driver browser.Driver
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	pending  int // allocations holding a reserved slot
	closed   bool

	created  atomic.Int64
	expired  atomic.Int64
	released atomic.Int64

	sweepCancel context.CancelFunc
	sweepDone   chan struct{}
}

// NewPool builds a pool over the given driver. MaxSessions must already be
// resolved to a positive value.
func NewPool(cfg models.PoolConfig, driver browser.Driver, logger *slog.Logger) (*Pool, error) {
	if cfg.MaxSessions < 1 {
		return nil, models.NewError(models.ErrConfiguration, "pool.new",
			fmt.Errorf("max sessions must be at least 1, got %d", cfg.MaxSessions))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		cfg:      cfg,
		driver:   driver,
		logger:   logger,
		sessions: make(map[string]*Session),
	}, nil
}

// Allocate reserves a slot, creates a driver context with the given config,
// and registers the session. At capacity it fails immediately; there is no
// queue. A driver failure surfaces as-is and is not retried here.
func (p *Pool) Allocate(ctx context.Context, cfg browser.ContextConfig) (*Session, error) {
	const op = "pool.allocate"

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, models.NewError(models.ErrValidation, op, errors.New("pool is closed"))
	}
	if len(p.sessions)+p.pending >= p.cfg.MaxSessions {
		p.mu.Unlock()
		return nil, models.NewError(models.ErrCapacityExceeded, op,
			fmt.Errorf("pool is at capacity (%d sessions)", p.cfg.MaxSessions))
	}
	p.pending++
	p.mu.Unlock()

	handle, err := p.driver.CreateContext(ctx, cfg)

	p.mu.Lock()
	p.pending--
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	sess := newSession(handle, cfg.Identity)
	for {
		if _, taken := p.sessions[sess.ID]; !taken {
			break
		}
		sess.ID = newSessionID()
	}
	p.sessions[sess.ID] = sess
	live := len(p.sessions)
	p.mu.Unlock()

	p.created.Add(1)
	p.logger.Info("session allocated", "session_id", sess.ID, "live", live, "capacity", p.cfg.MaxSessions)
	return sess, nil
}

// Get returns a live session. An expired session found here is evicted and
// reported, never resurrected.
func (p *Pool) Get(id string) (*Session, error) {
	const op = "pool.get"

	p.mu.RLock()
	sess, ok := p.sessions[id]
	p.mu.RUnlock()
	if !ok {
		return nil, models.NewError(models.ErrNotFound, op, fmt.Errorf("no session %q", id))
	}

	if sess.expiredBy(p.cfg.SessionTTL.Std(), time.Now()) {
		p.remove(sess, models.SessionExpired)
		return nil, models.NewError(models.ErrExpired, op, fmt.Errorf("session %q exceeded its TTL", id))
	}
	return sess, nil
}

// Touch refreshes a session's last use.
func (p *Pool) Touch(id string) error {
	sess, err := p.Get(id)
	if err != nil {
		return err
	}
	sess.Touch()
	return nil
}

// Release closes a session and frees its slot. Unknown or already-released
// ids are a no-op.
func (p *Pool) Release(id string) {
	p.mu.RLock()
	sess, ok := p.sessions[id]
	p.mu.RUnlock()
	if !ok {
		return
	}
	p.remove(sess, models.SessionReleased)
}

// remove transitions the session out of the pool and closes its driver
// context after any in-flight operation finishes. The status transition
// guarantees the context closes exactly once, whether sweep or an explicit
// release got here first.
func (p *Pool) remove(sess *Session, status models.SessionStatus) bool {
	if !sess.transition(status) {
		return false
	}

	p.mu.Lock()
	delete(p.sessions, sess.ID)
	p.mu.Unlock()

	// Queue behind the in-flight operation, if any, before closing.
	sess.gate <- struct{}{}
	err := sess.handle.Close()
	<-sess.gate

	if err != nil {
		p.logger.Warn("failed to close session context", "session_id", sess.ID, "error", err)
	}

	switch status {
	case models.SessionExpired:
		p.expired.Add(1)
		p.logger.Info("session expired", "session_id", sess.ID)
	case models.SessionReleased:
		p.released.Add(1)
		p.logger.Info("session released", "session_id", sess.ID)
	}
	return true
}

// Start launches the background sweep. It stops when ctx is cancelled or
// Close runs.
func (p *Pool) Start(ctx context.Context) {
	sweepCtx, cancel := context.WithCancel(ctx)
	p.sweepCancel = cancel
	p.sweepDone = make(chan struct{})
	go p.sweepLoop(sweepCtx)
}

func (p *Pool) sweepLoop(ctx context.Context) {
	defer close(p.sweepDone)

	ticker := time.NewTicker(p.cfg.SweepInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := p.SweepOnce(); n > 0 {
				p.logger.Info("sweep evicted idle sessions", "count", n)
			}
		}
	}
}

// SweepOnce evicts every session idle past the TTL and reports how many.
func (p *Pool) SweepOnce() int {
	ttl := p.cfg.SessionTTL.Std()
	now := time.Now()

	p.mu.RLock()
	stale := make([]*Session, 0)
	for _, sess := range p.sessions {
		if sess.expiredBy(ttl, now) {
			stale = append(stale, sess)
		}
	}
	p.mu.RUnlock()

	evicted := 0
	for _, sess := range stale {
		if p.remove(sess, models.SessionExpired) {
			evicted++
		}
	}
	return evicted
}

// Close stops the sweep and releases every live session.
func (p *Pool) Close() {
	if p.sweepCancel != nil {
		p.sweepCancel()
		<-p.sweepDone
		p.sweepCancel = nil
	}

	p.mu.Lock()
	p.closed = true
	live := make([]*Session, 0, len(p.sessions))
	for _, sess := range p.sessions {
		live = append(live, sess)
	}
	p.mu.Unlock()

	for _, sess := range live {
		p.remove(sess, models.SessionReleased)
	}
}

// Stats snapshots pool activity, sessions ordered by creation time.
func (p *Pool) Stats() models.PoolStats {
	p.mu.RLock()
	sessions := make([]models.SessionInfo, 0, len(p.sessions))
	for _, sess := range p.sessions {
		sessions = append(sessions, sess.Info())
	}
	p.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})

	return models.PoolStats{
		Live:     len(sessions),
		Capacity: p.cfg.MaxSessions,
		Created:  p.created.Load(),
		Expired:  p.expired.Load(),
		Released: p.released.Load(),
		Sessions: sessions,
	}
}
