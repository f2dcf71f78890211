// Package resources reads system memory state and derives the session
// capacity used when the pool is not explicitly bounded.
package resources

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/mem"
)

const (
	sessionsPerGiB = 2
	minSessionCap  = 5
	maxSessionCap  = 20
)

// Snapshot is one reading of system memory.
type Snapshot struct {
	TotalBytes     uint64  `json:"total_bytes" yaml:"total_bytes"`
	AvailableBytes uint64  `json:"available_bytes" yaml:"available_bytes"`
	UsedPercent    float64 `json:"used_percent" yaml:"used_percent"`
}

// TotalGiB returns total memory in whole GiB, rounded down.
func (s Snapshot) TotalGiB() int {
	return int(s.TotalBytes / (1 << 30))
}

// Read returns the current memory snapshot.
func Read() (Snapshot, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read system memory: %w", err)
	}
	return Snapshot{
		TotalBytes:     vm.Total,
		AvailableBytes: vm.Available,
		UsedPercent:    vm.UsedPercent,
	}, nil
}

// SessionCapForGiB maps system memory to a session cap: two sessions per
// GiB, clamped to [5, 20]. Browser contexts are memory hungry; the clamp
// keeps small machines usable and big machines polite.
func SessionCapForGiB(totalGiB int) int {
	cap := totalGiB * sessionsPerGiB
	if cap < minSessionCap {
		return minSessionCap
	}
	if cap > maxSessionCap {
		return maxSessionCap
	}
	return cap
}

// RecommendedSessionCap reads system memory and derives the cap. On
// unreadable systems it falls back to the minimum rather than failing.
func RecommendedSessionCap() int {
	snap, err := Read()
	if err != nil {
		return minSessionCap
	}
	return SessionCapForGiB(snap.TotalGiB())
}
