package models

import "time"

// SessionStatus tracks a session through its lifecycle.
type SessionStatus string

const (
	SessionActive   SessionStatus = "active"
	SessionExpired  SessionStatus = "expired"
	SessionReleased SessionStatus = "released"
)

// SessionInfo is the caller-visible view of a pooled session.
type SessionInfo struct {
	ID         string        `json:"id" yaml:"id"`
	Status     SessionStatus `json:"status" yaml:"status"`
	CreatedAt  time.Time     `json:"created_at" yaml:"created_at"`
	LastUsedAt time.Time     `json:"last_used_at" yaml:"last_used_at"`
	Requests   int64         `json:"requests" yaml:"requests"`
	Failures   int64         `json:"failures" yaml:"failures"`
	Identity   Identity      `json:"identity" yaml:"identity"`
}

// PoolStats summarizes pool activity since startup.
type PoolStats struct {
	Live     int           `json:"live" yaml:"live"`
	Capacity int           `json:"capacity" yaml:"capacity"`
	Created  int64         `json:"created" yaml:"created"`
	Expired  int64         `json:"expired" yaml:"expired"`
	Released int64         `json:"released" yaml:"released"`
	Sessions []SessionInfo `json:"sessions,omitempty" yaml:"sessions,omitempty"`
}

// HostPacing is a read-only snapshot of one host's pacing state.
type HostPacing struct {
	Host                 string    `json:"host" yaml:"host"`
	CurrentDelay         Duration  `json:"current_delay" yaml:"current_delay"`
	ConsecutiveFailures  int       `json:"consecutive_failures" yaml:"consecutive_failures"`
	ConsecutiveSuccesses int       `json:"consecutive_successes" yaml:"consecutive_successes"`
	LastRequestAt        time.Time `json:"last_request_at" yaml:"last_request_at"`
}

// IdentityStats is a read-only snapshot of one identity's rotation state.
type IdentityStats struct {
	Identity         Identity  `json:"identity" yaml:"identity"`
	Uses             int64     `json:"uses" yaml:"uses"`
	Successes        int64     `json:"successes" yaml:"successes"`
	Failures         int64     `json:"failures" yaml:"failures"`
	SuccessRate      float64   `json:"success_rate" yaml:"success_rate"`
	Quarantined      bool      `json:"quarantined" yaml:"quarantined"`
	QuarantinedUntil time.Time `json:"quarantined_until,omitempty" yaml:"quarantined_until,omitempty"`
	LastUsedAt       time.Time `json:"last_used_at,omitempty" yaml:"last_used_at,omitempty"`
}
