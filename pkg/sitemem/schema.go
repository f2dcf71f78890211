package sitemem

// SchemaVersion is the current on-disk layout. Version 1 stored host
// patterns without the wait policy column; Open upgrades those in place.
// Anything newer than this fails open, never silently truncates.
const SchemaVersion = 2

const schema = `
-- Performance and reliability settings
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Schema version: single row, written once per migration
CREATE TABLE IF NOT EXISTS schema_meta (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    version INTEGER NOT NULL
);

-- Host patterns: one row per normalized host. Selector stats nest per
-- category as JSON: {"news": {"article h1": {...}, ...}, ...}
CREATE TABLE IF NOT EXISTS host_patterns (
    host TEXT PRIMARY KEY,
    access_count INTEGER NOT NULL DEFAULT 0,
    success_rate REAL NOT NULL DEFAULT 0,
    selectors TEXT NOT NULL DEFAULT '{}',
    optimal_wait_policy TEXT,
    last_updated TIMESTAMP NOT NULL,
    schema_version INTEGER NOT NULL DEFAULT 2
);

CREATE INDEX IF NOT EXISTS idx_host_patterns_updated ON host_patterns(last_updated);
CREATE INDEX IF NOT EXISTS idx_host_patterns_access ON host_patterns(access_count);
CREATE INDEX IF NOT EXISTS idx_host_patterns_success ON host_patterns(success_rate);
`
