package content

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// Fingerprint computes the stable hash of normalized text used for
// duplicate detection. Whitespace folds away first so formatting changes
// do not defeat the match.
func Fingerprint(text string) string {
	hash := sha256.Sum256([]byte(foldWhitespace(text)))
	return fmt.Sprintf("%x", hash)
}

// dedupCache remembers recently seen content fingerprints. Bounded two
// ways: entries expire after the window, and the oldest entry is evicted
// once maxEntries is exceeded.
type dedupCache struct {
	window time.Duration
	max    int
	now    func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time // fingerprint -> last sighting
}

func newDedupCache(window time.Duration, maxEntries int) *dedupCache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &dedupCache{
		window: window,
		max:    maxEntries,
		now:    time.Now,
		seen:   make(map[string]time.Time),
	}
}

// Seen records a sighting of text and reports whether the same normalized
// content was already seen within the window.
func (c *dedupCache) Seen(text string) bool {
	fp := Fingerprint(text)
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	last, ok := c.seen[fp]
	duplicate := ok && now.Sub(last) <= c.window

	c.seen[fp] = now
	c.sweep(now)
	return duplicate
}

// Len reports the live entry count, for tests and status output.
func (c *dedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

// sweep drops expired entries, then evicts oldest-first while over the
// entry cap. Caller holds the lock.
func (c *dedupCache) sweep(now time.Time) {
	for fp, last := range c.seen {
		if now.Sub(last) > c.window {
			delete(c.seen, fp)
		}
	}
	for len(c.seen) > c.max {
		var oldestFP string
		var oldest time.Time
		for fp, last := range c.seen {
			if oldestFP == "" || last.Before(oldest) {
				oldestFP, oldest = fp, last
			}
		}
		delete(c.seen, oldestFP)
	}
}
