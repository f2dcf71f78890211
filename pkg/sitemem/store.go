package sitemem

import (
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/dtnitsch/surfcore/models"
)

// Store persists learned per-host patterns in sqlite. Reads and merges go
// through a small write-through cache so repeat lookups for hot hosts skip
// the database; the database stays the source of truth for rankings.
type Store struct {
	db    *sql.DB
	path  string
	alpha float64

	mu    sync.RWMutex
	locks map[string]*sync.Mutex
	cache map[string]*HostRecord
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Open opens or creates the pattern store at path. Use ":memory:" for an
// ephemeral store. alpha is the exponential moving average weight applied
// to success rate and latency merges, in (0, 1].
func Open(path string, alpha float64) (*Store, error) {
	if alpha <= 0 || alpha > 1 {
		return nil, models.NewError(models.ErrConfiguration, "sitemem.open",
			fmt.Errorf("alpha must be in (0, 1], got %v", alpha))
	}

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:    db,
		path:  path,
		alpha: alpha,
		locks: make(map[string]*sync.Mutex),
		cache: make(map[string]*HostRecord),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// migrate brings the database to the current schema version. A fresh file
// gets the full schema. Version 1 files gain the wait policy column in
// place. A version from a newer build is rejected so we never write rows
// an older layout cannot represent.
func (s *Store) migrate() error {
	version, err := s.storedVersion()
	if err != nil {
		return err
	}

	switch {
	case version == 0:
		return s.initSchema()
	case version == 1:
		return s.upgradeV1()
	case version == SchemaVersion:
		return nil
	default:
		return models.NewError(models.ErrConfiguration, "sitemem.migrate",
			fmt.Errorf("database schema version %d is newer than supported version %d", version, SchemaVersion))
	}
}

// storedVersion reads the recorded schema version, or 0 when the database
// has no schema_meta table yet.
func (s *Store) storedVersion() (int, error) {
	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name='schema_meta'",
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to check schema: %w", err)
	}

	var version int
	err = s.db.QueryRow("SELECT version FROM schema_meta WHERE id = 1").Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

func (s *Store) initSchema() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := s.db.Exec(
		"INSERT INTO schema_meta (id, version) VALUES (1, ?) ON CONFLICT(id) DO UPDATE SET version = excluded.version",
		SchemaVersion,
	); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// upgradeV1 adds the wait policy column, then reapplies the idempotent
// schema so version 1 files also gain the indexes and recorded version.
func (s *Store) upgradeV1() error {
	hasColumn, err := s.columnExists("host_patterns", "optimal_wait_policy")
	if err != nil {
		return err
	}
	if !hasColumn {
		if _, err := s.db.Exec("ALTER TABLE host_patterns ADD COLUMN optimal_wait_policy TEXT"); err != nil {
			return fmt.Errorf("failed to upgrade schema: %w", err)
		}
	}
	if err := s.initSchema(); err != nil {
		return err
	}
	if _, err := s.db.Exec("UPDATE host_patterns SET schema_version = ?", SchemaVersion); err != nil {
		return fmt.Errorf("failed to upgrade schema: %w", err)
	}
	return nil
}

func (s *Store) columnExists(table, column string) (bool, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return false, fmt.Errorf("failed to inspect table %s: %w", table, err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// hostLock returns the mutex serializing merges for one host key. The
// global lock guards only map membership, never the merge itself.
func (s *Store) hostLock(host string) *sync.Mutex {
	s.mu.RLock()
	l, ok := s.locks[host]
	s.mu.RUnlock()
	if ok {
		return l
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.locks[host]; ok {
		return l
	}
	l = &sync.Mutex{}
	s.locks[host] = l
	return l
}

// NormalizeHost reduces a URL or bare host to the key patterns are stored
// under: lowercased hostname with any leading "www." and port stripped.
// Input that yields no hostname comes back lowercased and trimmed so
// callers always get a usable key.
func NormalizeHost(raw string) string {
	trimmed := strings.TrimSpace(raw)
	host := trimmed
	if strings.Contains(trimmed, "://") {
		if u, err := url.Parse(trimmed); err == nil && u.Hostname() != "" {
			host = u.Hostname()
		}
	} else if h, _, err := net.SplitHostPort(trimmed); err == nil && h != "" {
		host = h
	}

	host = strings.ToLower(host)
	host = strings.TrimSuffix(host, ".")
	host = strings.TrimPrefix(host, "www.")
	return host
}
