package pacing

import (
	"testing"
	"time"
)

func TestIdentityRotationPrefersSuccess(t *testing.T) {
	l := NewLimiter(testConfig())
	badID := l.identities[0].identity
	goodID := l.identities[1].identity

	for i := 0; i < 5; i++ {
		l.reportIdentity(badID, false)
		l.reportIdentity(goodID, true)
	}

	// The failing identity is quarantined by now, but even scoring aside,
	// selection must land on the successful one.
	picked := l.selectIdentity(time.Now())
	if picked.Key() != goodID.Key() {
		t.Errorf("selected identity %q, want %q", picked.UserAgent, goodID.UserAgent)
	}
}

func TestIdentityQuarantineAfterConsecutiveFailures(t *testing.T) {
	l := NewLimiter(testConfig())
	identity := l.identities[0].identity

	// QuarantineAfter is 3: the fourth consecutive failure trips it.
	for i := 0; i < 3; i++ {
		l.reportIdentity(identity, false)
	}
	if l.identities[0].quarantinedUntil.After(time.Now()) {
		t.Fatal("identity quarantined too early")
	}

	l.reportIdentity(identity, false)
	if !l.identities[0].quarantinedUntil.After(time.Now()) {
		t.Fatal("identity not quarantined after exceeding the failure threshold")
	}

	for i := 0; i < 10; i++ {
		if picked := l.selectIdentity(time.Now()); picked.Key() == identity.Key() {
			t.Fatal("quarantined identity was selected")
		}
	}
}

func TestIdentitySuccessEndsFailureStreak(t *testing.T) {
	l := NewLimiter(testConfig())
	identity := l.identities[0].identity

	l.reportIdentity(identity, false)
	l.reportIdentity(identity, false)
	l.reportIdentity(identity, true)
	l.reportIdentity(identity, false)
	l.reportIdentity(identity, false)

	// Never more than two in a row: no quarantine.
	if l.identities[0].quarantinedUntil.After(time.Now()) {
		t.Error("identity quarantined despite broken failure streak")
	}
}

func TestAllQuarantinedFallsBackToLeastRecentlyUsed(t *testing.T) {
	l := NewLimiter(testConfig())

	for _, st := range l.identities {
		for i := 0; i < 5; i++ {
			l.reportIdentity(st.identity, false)
		}
	}

	// Stagger last use so the fallback order is observable.
	l.identities[0].lastUsedAt = time.Now().Add(-time.Hour)
	l.identities[1].lastUsedAt = time.Now()

	picked := l.selectIdentity(time.Now())
	if picked.Key() != l.identities[0].identity.Key() {
		t.Errorf("fallback selected %q, want least recently used %q",
			picked.UserAgent, l.identities[0].identity.UserAgent)
	}
}

func TestIdentitySnapshot(t *testing.T) {
	l := NewLimiter(testConfig())
	identity := l.identities[0].identity

	l.reportIdentity(identity, true)
	l.reportIdentity(identity, true)
	l.reportIdentity(identity, false)

	snapshot := l.IdentitySnapshot()
	if len(snapshot) != 2 {
		t.Fatalf("len(IdentitySnapshot) = %d, want 2", len(snapshot))
	}

	got := snapshot[0]
	if got.Successes != 2 || got.Failures != 1 {
		t.Errorf("snapshot counts = %d/%d, want 2/1", got.Successes, got.Failures)
	}
	wantRate := 2.0 / 3.0
	if diff := got.SuccessRate - wantRate; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("snapshot.SuccessRate = %f, want %f", got.SuccessRate, wantRate)
	}
}

func TestReadingDelayScalesWithLength(t *testing.T) {
	tests := []struct {
		words   int
		wantMin time.Duration
		wantMax time.Duration
	}{
		{words: 0, wantMin: 500 * time.Millisecond, wantMax: 500 * time.Millisecond},
		{words: 50, wantMin: 500 * time.Millisecond, wantMax: 6 * time.Second},
		{words: 100000, wantMin: 30 * time.Second, wantMax: 30 * time.Second},
	}

	for _, tt := range tests {
		for i := 0; i < 20; i++ {
			got := ReadingDelay(tt.words)
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("ReadingDelay(%d) = %s, want within [%s, %s]", tt.words, got, tt.wantMin, tt.wantMax)
			}
		}
	}
}

func TestActionJitterBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		got := ActionJitter()
		if got < 100*time.Millisecond || got >= 500*time.Millisecond {
			t.Fatalf("ActionJitter() = %s, want within [100ms, 500ms)", got)
		}
	}
}
