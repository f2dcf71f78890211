package sitemem

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dtnitsch/surfcore/models"
)

// SelectorStats tracks one selector's history within a category.
type SelectorStats struct {
	Uses         int64   `json:"uses"`           // times this selector was tried
	SuccessRate  float64 `json:"success_rate"`   // moving average of outcomes
	AvgLatencyMs float64 `json:"avg_latency_ms"` // moving average extraction time
}

// HostRecord is the full learned pattern for one host. Selectors nest by
// category, then by the selector string itself.
type HostRecord struct {
	Host          string
	AccessCount   int64
	SuccessRate   float64
	Selectors     map[models.ContentCategory]map[string]*SelectorStats
	WaitPolicy    string
	LastUpdated   time.Time
	SchemaVersion int
}

func (r *HostRecord) clone() HostRecord {
	out := *r
	out.Selectors = make(map[models.ContentCategory]map[string]*SelectorStats, len(r.Selectors))
	for cat, sels := range r.Selectors {
		copied := make(map[string]*SelectorStats, len(sels))
		for sel, stats := range sels {
			s := *stats
			copied[sel] = &s
		}
		out.Selectors[cat] = copied
	}
	return out
}

// Strategy is the recommendation BestStrategy returns for a host/category
// pair.
type Strategy struct {
	Selector    string  `json:"selector" yaml:"selector"`
	WaitPolicy  string  `json:"wait_policy,omitempty" yaml:"wait_policy,omitempty"`
	SuccessRate float64 `json:"success_rate" yaml:"success_rate"`
	Uses        int64   `json:"uses" yaml:"uses"`
}

// RankBy selects the ordering for TopHosts.
type RankBy string

const (
	RankByAccess  RankBy = "access"
	RankBySuccess RankBy = "success"
)

// RecordOutcome merges one extraction outcome into the host's pattern.
// Access count grows by exactly one per call regardless of outcome, and
// success rates move by the store's alpha. An empty selector records the
// host-level outcome only.
func (s *Store) RecordOutcome(host string, category models.ContentCategory, selector string, success bool, took time.Duration) error {
	key := NormalizeHost(host)
	if key == "" {
		return models.NewError(models.ErrValidation, "sitemem.record_outcome",
			errors.New("host must not be empty"))
	}

	lock := s.hostLock(key)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.loadHost(key)
	if err != nil {
		return err
	}
	if rec == nil {
		rec = &HostRecord{
			Host:          key,
			Selectors:     make(map[models.ContentCategory]map[string]*SelectorStats),
			SchemaVersion: SchemaVersion,
		}
	}

	observed := 0.0
	if success {
		observed = 1.0
	}

	if rec.AccessCount == 0 {
		rec.SuccessRate = observed
	} else {
		rec.SuccessRate = s.alpha*observed + (1-s.alpha)*rec.SuccessRate
	}
	rec.AccessCount++

	if selector != "" && models.ValidCategory(category) {
		sels, ok := rec.Selectors[category]
		if !ok {
			sels = make(map[string]*SelectorStats)
			rec.Selectors[category] = sels
		}
		stats, ok := sels[selector]
		if !ok {
			stats = &SelectorStats{}
			sels[selector] = stats
		}
		ms := float64(took) / float64(time.Millisecond)
		if stats.Uses == 0 {
			stats.SuccessRate = observed
			stats.AvgLatencyMs = ms
		} else {
			stats.SuccessRate = s.alpha*observed + (1-s.alpha)*stats.SuccessRate
			stats.AvgLatencyMs = s.alpha*ms + (1-s.alpha)*stats.AvgLatencyMs
		}
		stats.Uses++
	}

	rec.LastUpdated = time.Now().UTC()
	return s.saveHost(key, rec)
}

// RecordWaitPolicy remembers the wait policy that worked for a host. It
// never touches access counts; only outcomes move those.
func (s *Store) RecordWaitPolicy(host, policy string) error {
	key := NormalizeHost(host)
	if key == "" {
		return models.NewError(models.ErrValidation, "sitemem.record_wait_policy",
			errors.New("host must not be empty"))
	}

	lock := s.hostLock(key)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.loadHost(key)
	if err != nil {
		return err
	}
	if rec == nil {
		rec = &HostRecord{
			Host:          key,
			Selectors:     make(map[models.ContentCategory]map[string]*SelectorStats),
			SchemaVersion: SchemaVersion,
		}
	}
	if rec.WaitPolicy == policy {
		return nil
	}

	rec.WaitPolicy = policy
	rec.LastUpdated = time.Now().UTC()
	return s.saveHost(key, rec)
}

// BestStrategy returns the strongest known selector for a host and
// category: highest success rate, then most uses, then the lexically
// smallest selector so repeat calls agree. Unknown hosts and categories
// report not found.
func (s *Store) BestStrategy(host string, category models.ContentCategory) (Strategy, error) {
	key := NormalizeHost(host)

	lock := s.hostLock(key)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.loadHost(key)
	if err != nil {
		return Strategy{}, err
	}
	if rec == nil {
		return Strategy{}, models.NewHostError(models.ErrNotFound, "sitemem.best_strategy", key,
			errors.New("no patterns recorded for host"))
	}

	sels := rec.Selectors[category]
	if len(sels) == 0 {
		return Strategy{}, models.NewHostError(models.ErrNotFound, "sitemem.best_strategy", key,
			fmt.Errorf("no selectors recorded for category %q", category))
	}

	var (
		bestSel   string
		bestStats *SelectorStats
	)
	for sel, stats := range sels {
		if bestStats == nil {
			bestSel, bestStats = sel, stats
			continue
		}
		switch {
		case stats.SuccessRate > bestStats.SuccessRate:
			bestSel, bestStats = sel, stats
		case stats.SuccessRate == bestStats.SuccessRate && stats.Uses > bestStats.Uses:
			bestSel, bestStats = sel, stats
		case stats.SuccessRate == bestStats.SuccessRate && stats.Uses == bestStats.Uses && sel < bestSel:
			bestSel, bestStats = sel, stats
		}
	}

	return Strategy{
		Selector:    bestSel,
		WaitPolicy:  rec.WaitPolicy,
		SuccessRate: bestStats.SuccessRate,
		Uses:        bestStats.Uses,
	}, nil
}

// Host returns the full record for one host.
func (s *Store) Host(host string) (HostRecord, error) {
	key := NormalizeHost(host)

	lock := s.hostLock(key)
	lock.Lock()
	defer lock.Unlock()

	rec, err := s.loadHost(key)
	if err != nil {
		return HostRecord{}, err
	}
	if rec == nil {
		return HostRecord{}, models.NewHostError(models.ErrNotFound, "sitemem.host", key,
			errors.New("no patterns recorded for host"))
	}
	return rec.clone(), nil
}

// TopHosts returns up to n host records ordered by the given ranking,
// ties broken by host name so output is stable. n <= 0 defaults to 10.
func (s *Store) TopHosts(n int, by RankBy) ([]HostRecord, error) {
	if n <= 0 {
		n = 10
	}

	var order string
	switch by {
	case RankByAccess:
		order = "access_count DESC, host ASC"
	case RankBySuccess:
		order = "success_rate DESC, host ASC"
	default:
		return nil, models.NewError(models.ErrValidation, "sitemem.top_hosts",
			fmt.Errorf("unknown ranking %q", by))
	}

	query := fmt.Sprintf(
		"SELECT host, access_count, success_rate, selectors, optimal_wait_policy, last_updated, schema_version FROM host_patterns ORDER BY %s LIMIT ?",
		order,
	)
	rows, err := s.db.Query(query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query top hosts: %w", err)
	}
	defer rows.Close()

	var out []HostRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read top hosts: %w", err)
	}
	return out, nil
}

// Count returns how many hosts have recorded patterns.
func (s *Store) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM host_patterns").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count hosts: %w", err)
	}
	return n, nil
}

// loadHost returns the record for a normalized key, nil when absent. The
// caller must hold the host lock.
func (s *Store) loadHost(key string) (*HostRecord, error) {
	if rec, ok := s.cachedHost(key); ok {
		return rec, nil
	}

	row := s.db.QueryRow(
		"SELECT host, access_count, success_rate, selectors, optimal_wait_policy, last_updated, schema_version FROM host_patterns WHERE host = ?",
		key,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[key] = rec
	s.mu.Unlock()
	return rec, nil
}

func (s *Store) cachedHost(key string) (*HostRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.cache[key]
	return rec, ok
}

// saveHost writes the full record and refreshes the cache. The caller
// must hold the host lock.
func (s *Store) saveHost(key string, rec *HostRecord) error {
	selectors, err := json.Marshal(rec.Selectors)
	if err != nil {
		return fmt.Errorf("failed to encode selectors: %w", err)
	}

	var policy any
	if rec.WaitPolicy != "" {
		policy = rec.WaitPolicy
	}

	_, err = s.db.Exec(`
		INSERT INTO host_patterns (host, access_count, success_rate, selectors, optimal_wait_policy, last_updated, schema_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(host) DO UPDATE SET
			access_count = excluded.access_count,
			success_rate = excluded.success_rate,
			selectors = excluded.selectors,
			optimal_wait_policy = excluded.optimal_wait_policy,
			last_updated = excluded.last_updated,
			schema_version = excluded.schema_version`,
		key, rec.AccessCount, rec.SuccessRate, string(selectors), policy,
		rec.LastUpdated.Format(time.RFC3339), rec.SchemaVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to save host pattern: %w", err)
	}

	s.mu.Lock()
	s.cache[key] = rec
	s.mu.Unlock()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*HostRecord, error) {
	var (
		rec       HostRecord
		selectors string
		policy    sql.NullString
		updated   string
	)
	err := row.Scan(&rec.Host, &rec.AccessCount, &rec.SuccessRate, &selectors, &policy, &updated, &rec.SchemaVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan host pattern: %w", err)
	}

	rec.Selectors = make(map[models.ContentCategory]map[string]*SelectorStats)
	if selectors != "" {
		if err := json.Unmarshal([]byte(selectors), &rec.Selectors); err != nil {
			return nil, fmt.Errorf("failed to decode selectors for %s: %w", rec.Host, err)
		}
	}
	if policy.Valid {
		rec.WaitPolicy = policy.String
	}
	if updated != "" {
		if t, err := time.Parse(time.RFC3339, updated); err == nil {
			rec.LastUpdated = t
		}
	}
	return &rec, nil
}
