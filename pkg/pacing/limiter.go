// Package pacing spaces requests per host and rotates browsing identities.
// Delays rise immediately on failure and fall only after a run of
// consecutive successes, so recovery is earned while backoff is instant.
package pacing

import (
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/dtnitsch/surfcore/models"
)

type hostState struct {
	mu                   sync.Mutex
	currentDelay         time.Duration
	consecutiveFailures  int
	consecutiveSuccesses int
	lastRequestAt        time.Time
	avgLatency           time.Duration
}

// Limiter holds per-host pacing state and the identity pool. Host entries
// lock individually; the limiter-wide lock only guards map membership.
type Limiter struct {
	cfg models.PacingConfig

	mu    sync.RWMutex
	hosts map[string]*hostState

	identities []*identityState
	byKey      map[string]*identityState
}

// NewLimiter builds a limiter from validated config. An empty identity list
// falls back to the built-in persona pool.
func NewLimiter(cfg models.PacingConfig) *Limiter {
	personas := cfg.Identities
	if len(personas) == 0 {
		personas = models.DefaultIdentities()
	}

	l := &Limiter{
		cfg:   cfg,
		hosts: make(map[string]*hostState),
		byKey: make(map[string]*identityState, len(personas)),
	}
	for _, p := range personas {
		st := &identityState{identity: p}
		l.identities = append(l.identities, st)
		l.byKey[p.Key()] = st
	}
	return l
}

func (l *Limiter) state(host string) *hostState {
	l.mu.RLock()
	st, ok := l.hosts[host]
	l.mu.RUnlock()
	if ok {
		return st
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if st, ok = l.hosts[host]; ok {
		return st
	}
	st = &hostState{currentDelay: l.cfg.BaseDelay.Std()}
	l.hosts[host] = st
	return st
}

// BeforeRequest returns the delay to wait before contacting host and the
// identity to present. First contact sees the base delay. The caller does
// the sleeping; nothing blocks here.
func (l *Limiter) BeforeRequest(host string) (time.Duration, models.Identity) {
	identity := l.NextIdentity()
	return l.Delay(host), identity
}

// Delay returns only the wait for host. Sessions fix their identity at
// creation, so requests on a live session take the delay without drawing
// another identity.
func (l *Limiter) Delay(host string) time.Duration {
	if !l.cfg.Enabled {
		return 0
	}

	st := l.state(host)
	st.mu.Lock()
	delay := st.currentDelay
	st.lastRequestAt = time.Now()
	st.mu.Unlock()

	if jitter := l.cfg.JitterMax.Std(); jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(jitter)))
	}
	return delay
}

// ReportOutcome folds one request outcome into the host and identity state.
// A failure raises the delay at once; successes lower it only after
// RecoveryThreshold in a row, and never below the floor.
func (l *Limiter) ReportOutcome(host string, identity models.Identity, success bool, latency time.Duration) {
	st := l.state(host)

	st.mu.Lock()
	if success {
		st.consecutiveFailures = 0
		st.consecutiveSuccesses++
		if st.consecutiveSuccesses >= l.cfg.RecoveryThreshold {
			lowered := time.Duration(float64(st.currentDelay) * l.cfg.RecoveryMultiplier)
			if floor := l.cfg.MinDelay.Std(); lowered < floor {
				lowered = floor
			}
			st.currentDelay = lowered
		}
	} else {
		st.consecutiveSuccesses = 0
		st.consecutiveFailures++
		raised := time.Duration(float64(st.currentDelay) * l.cfg.FailureMultiplier)
		if ceil := l.cfg.MaxDelay.Std(); raised > ceil {
			raised = ceil
		}
		st.currentDelay = raised
	}
	if latency > 0 {
		if st.avgLatency == 0 {
			st.avgLatency = latency
		} else {
			st.avgLatency = time.Duration(0.8*float64(st.avgLatency) + 0.2*float64(latency))
		}
	}
	st.mu.Unlock()

	l.reportIdentity(identity, success)
}

// HostSnapshot returns read-only pacing state for every known host,
// ordered by host name.
func (l *Limiter) HostSnapshot() []models.HostPacing {
	l.mu.RLock()
	hosts := make([]string, 0, len(l.hosts))
	for host := range l.hosts {
		hosts = append(hosts, host)
	}
	l.mu.RUnlock()
	sort.Strings(hosts)

	out := make([]models.HostPacing, 0, len(hosts))
	for _, host := range hosts {
		st := l.state(host)
		st.mu.Lock()
		out = append(out, models.HostPacing{
			Host:                 host,
			CurrentDelay:         models.Duration(st.currentDelay),
			ConsecutiveFailures:  st.consecutiveFailures,
			ConsecutiveSuccesses: st.consecutiveSuccesses,
			LastRequestAt:        st.lastRequestAt,
		})
		st.mu.Unlock()
	}
	return out
}
