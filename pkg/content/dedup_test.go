package content

import (
	"fmt"
	"testing"
	"time"
)

func TestDedup_WindowExpiry(t *testing.T) {
	cache := newDedupCache(time.Hour, 100)

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }

	text := "The same paragraph of content, extracted twice."

	if cache.Seen(text) {
		t.Error("first sight reported as seen")
	}

	clock = clock.Add(10 * time.Minute)
	if !cache.Seen(text) {
		t.Error("repeat within the window not reported")
	}

	// Advance past the window; the fingerprint must have expired.
	clock = clock.Add(2 * time.Hour)
	if cache.Seen(text) {
		t.Error("sighting after window expiry still reported as seen")
	}
}

func TestDedup_WhitespaceFoldsIntoSameFingerprint(t *testing.T) {
	cache := newDedupCache(time.Hour, 100)

	if cache.Seen("alpha   beta\tgamma") {
		t.Error("first sight reported as seen")
	}
	if !cache.Seen("alpha beta gamma") {
		t.Error("whitespace variant not matched to the same fingerprint")
	}
}

func TestDedup_EntryCapEvictsOldest(t *testing.T) {
	cache := newDedupCache(time.Hour, 10)

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }

	for i := 0; i < 15; i++ {
		clock = clock.Add(time.Second)
		cache.Seen(fmt.Sprintf("entry number %d", i))
	}

	if got := cache.Len(); got != 10 {
		t.Errorf("cache size = %d, want capped at 10", got)
	}

	// The earliest entries were evicted, so they read as fresh again.
	clock = clock.Add(time.Second)
	if cache.Seen("entry number 0") {
		t.Error("evicted entry still reported as seen")
	}
	// The newest survived.
	clock = clock.Add(time.Second)
	if !cache.Seen("entry number 14") {
		t.Error("recent entry was evicted ahead of older ones")
	}
}

func TestFingerprint_Stable(t *testing.T) {
	a := Fingerprint("some normalized content")
	b := Fingerprint("some   normalized\ncontent")
	if a != b {
		t.Errorf("fingerprints differ for whitespace variants: %s vs %s", a, b)
	}
	if a == Fingerprint("different content") {
		t.Error("distinct content produced the same fingerprint")
	}
}
