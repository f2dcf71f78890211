package surf

import (
	"sync"

	"github.com/dtnitsch/surfcore/models"
)

// hostTracker remembers which host each session last navigated to, so
// interactions and screenshots can attribute their outcomes.
type hostTracker struct {
	mu    sync.Mutex
	hosts map[string]string
}

func newHostTracker() *hostTracker {
	return &hostTracker{hosts: make(map[string]string)}
}

func (t *hostTracker) set(sessionID, host string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hosts[sessionID] = host
}

func (t *hostTracker) get(sessionID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hosts[sessionID]
}

func (t *hostTracker) drop(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.hosts, sessionID)
}

// StatusReport is the full operational snapshot the status command prints.
type StatusReport struct {
	Pool       models.PoolStats       `json:"pool" yaml:"pool"`
	Hosts      []models.HostPacing    `json:"hosts,omitempty" yaml:"hosts,omitempty"`
	Identities []models.IdentityStats `json:"identities" yaml:"identities"`
	Memory     MemoryStatus           `json:"memory" yaml:"memory"`
	System     SystemStatus           `json:"system" yaml:"system"`
}

// MemoryStatus summarizes the site pattern store.
type MemoryStatus struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Hosts   int64  `json:"hosts" yaml:"hosts"`
}

// SystemStatus summarizes system memory and the session cap derived from it.
type SystemStatus struct {
	TotalGiB       int     `json:"total_gib" yaml:"total_gib"`
	UsedPercent    float64 `json:"used_percent" yaml:"used_percent"`
	RecommendedCap int     `json:"recommended_cap" yaml:"recommended_cap"`
}

type browseJob struct {
	URL string
}

// URLReport is the per-URL outcome inside the run summary.
type URLReport struct {
	URL            string  `json:"url" yaml:"url"`
	Status         string  `json:"status" yaml:"status"`
	Error          string  `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorKind      string  `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Title          string  `json:"title,omitempty" yaml:"title,omitempty"`
	Strategy       string  `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Category       string  `json:"category,omitempty" yaml:"category,omitempty"`
	Quality        float64 `json:"quality,omitempty" yaml:"quality,omitempty"`
	WordCount      int     `json:"word_count,omitempty" yaml:"word_count,omitempty"`
	Chunks         int     `json:"chunks,omitempty" yaml:"chunks,omitempty"`
	Language       string  `json:"language,omitempty" yaml:"language,omitempty"`
	Meaningful     bool    `json:"meaningful" yaml:"meaningful"`
	Duplicate      bool    `json:"duplicate,omitempty" yaml:"duplicate,omitempty"`
	Captcha        bool    `json:"captcha,omitempty" yaml:"captcha,omitempty"`
	ScreenshotPath string  `json:"screenshot_path,omitempty" yaml:"screenshot_path,omitempty"`
	Seconds        float64 `json:"seconds" yaml:"seconds"`
}

// URLReportTerse is the token-optimized variant with abbreviated keys.
type URLReportTerse struct {
	URL       string  `json:"u" yaml:"u"`
	Status    int     `json:"s" yaml:"s"` // 0=success, 1=failed
	Error     string  `json:"e,omitempty" yaml:"e,omitempty"`
	Strategy  string  `json:"st,omitempty" yaml:"st,omitempty"`
	Category  string  `json:"c,omitempty" yaml:"c,omitempty"`
	Quality   float64 `json:"q,omitempty" yaml:"q,omitempty"`
	WordCount int     `json:"w,omitempty" yaml:"w,omitempty"`
	Chunks    int     `json:"ch,omitempty" yaml:"ch,omitempty"`
}

// ToTerse converts a full report to the terse form.
func ToTerse(r URLReport) URLReportTerse {
	status := 0
	if r.Status == "failed" {
		status = 1
	}
	return URLReportTerse{
		URL:       r.URL,
		Status:    status,
		Error:     r.Error,
		Strategy:  r.Strategy,
		Category:  r.Category,
		Quality:   r.Quality,
		WordCount: r.WordCount,
		Chunks:    r.Chunks,
	}
}

// RunStats summarizes a whole browse run.
type RunStats struct {
	TotalURLs        int      `json:"total_urls" yaml:"total_urls"`
	Successful       int      `json:"successful" yaml:"successful"`
	Failed           int      `json:"failed" yaml:"failed"`
	Duplicates       int      `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
	TotalTimeSeconds float64  `json:"total_time_seconds" yaml:"total_time_seconds"`
	TopKeywords      []string `json:"top_keywords,omitempty" yaml:"top_keywords,omitempty"`
}

// RunSummary is the structured output for an entire browse run.
type RunSummary struct {
	Status  string      `json:"status" yaml:"status"`
	Results interface{} `json:"results" yaml:"results"`
	Stats   RunStats    `json:"stats" yaml:"stats"`
}
