package pacing

import (
	"sync"
	"time"

	"github.com/dtnitsch/surfcore/models"
)

// identityRestTarget is the idle span after which an identity counts as
// fully rested for scoring purposes.
const identityRestTarget = 10 * time.Minute

type identityState struct {
	identity models.Identity

	mu                  sync.Mutex
	uses                int64
	successes           int64
	failures            int64
	consecutiveFailures int
	lastUsedAt          time.Time
	quarantinedUntil    time.Time
}

// score weighs success rate against how rested the identity is. Identities
// with no reported outcomes start optimistic so each persona gets tried.
func (s *identityState) score(now time.Time) float64 {
	successRate := 1.0
	if outcomes := s.successes + s.failures; outcomes > 0 {
		successRate = float64(s.successes) / float64(outcomes)
	}

	recency := 1.0
	if !s.lastUsedAt.IsZero() {
		since := now.Sub(s.lastUsedAt)
		if since < identityRestTarget {
			recency = float64(since) / float64(identityRestTarget)
		}
	}
	return successRate*0.7 + recency*0.3
}

// NextIdentity draws the identity a new session should present. The draw
// counts as a use, so rotation keeps spreading across the pool.
func (l *Limiter) NextIdentity() models.Identity {
	return l.selectIdentity(time.Now())
}

// selectIdentity picks the highest-scoring identity that is not quarantined.
// When every identity sits in quarantine the least recently used one serves
// anyway; selection never blocks.
func (l *Limiter) selectIdentity(now time.Time) models.Identity {
	var best, lru *identityState
	bestScore := -1.0
	var lruLast time.Time

	for _, st := range l.identities {
		st.mu.Lock()
		quarantined := st.quarantinedUntil.After(now)
		score := st.score(now)
		lastUsed := st.lastUsedAt
		st.mu.Unlock()

		if lru == nil || lastUsed.Before(lruLast) {
			lru, lruLast = st, lastUsed
		}
		if quarantined {
			continue
		}
		if score > bestScore {
			best, bestScore = st, score
		}
	}

	chosen := best
	if chosen == nil {
		chosen = lru
	}

	chosen.mu.Lock()
	chosen.uses++
	chosen.lastUsedAt = now
	chosen.mu.Unlock()
	return chosen.identity
}

func (l *Limiter) reportIdentity(identity models.Identity, success bool) {
	st, ok := l.byKey[identity.Key()]
	if !ok {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if success {
		st.successes++
		st.consecutiveFailures = 0
		return
	}
	st.failures++
	st.consecutiveFailures++
	if st.consecutiveFailures > l.cfg.QuarantineAfter {
		st.quarantinedUntil = time.Now().Add(l.cfg.QuarantineCooldown.Std())
	}
}

// IdentitySnapshot returns read-only stats for every identity in pool order.
func (l *Limiter) IdentitySnapshot() []models.IdentityStats {
	now := time.Now()
	out := make([]models.IdentityStats, 0, len(l.identities))
	for _, st := range l.identities {
		st.mu.Lock()
		rate := 0.0
		if outcomes := st.successes + st.failures; outcomes > 0 {
			rate = float64(st.successes) / float64(outcomes)
		}
		out = append(out, models.IdentityStats{
			Identity:         st.identity,
			Uses:             st.uses,
			Successes:        st.successes,
			Failures:         st.failures,
			SuccessRate:      rate,
			Quarantined:      st.quarantinedUntil.After(now),
			QuarantinedUntil: st.quarantinedUntil,
			LastUsedAt:       st.lastUsedAt,
		})
		st.mu.Unlock()
	}
	return out
}
