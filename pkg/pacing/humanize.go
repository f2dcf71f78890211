package pacing

import (
	"math/rand"
	"time"
)

// Human reading pace: roughly 50 words every 2 seconds, with 20% variance.
const (
	readingWordsPerBeat = 50
	readingBeat         = 2 * time.Second
	readingVariance     = 0.2
	minReadingDelay     = 500 * time.Millisecond
	maxReadingDelay     = 30 * time.Second
)

// ReadingDelay estimates how long a person would spend reading wordCount
// words. Pure timing: the result is for the caller to sleep on.
func ReadingDelay(wordCount int) time.Duration {
	if wordCount <= 0 {
		return minReadingDelay
	}

	base := time.Duration(float64(wordCount) / readingWordsPerBeat * float64(readingBeat))
	jittered := base + time.Duration(rand.NormFloat64()*readingVariance*float64(base))

	if jittered < minReadingDelay {
		return minReadingDelay
	}
	if jittered > maxReadingDelay {
		return maxReadingDelay
	}
	return jittered
}

// ActionJitter returns a small randomized pause between interactions,
// between 100ms and 500ms.
func ActionJitter() time.Duration {
	return 100*time.Millisecond + time.Duration(rand.Int63n(int64(400*time.Millisecond)))
}
