// Package models defines the shared types for configuration, sessions,
// extraction results and errors.
package models

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so yaml configs can say "30s" or "5m".
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("failed to parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config is the full runtime configuration. LoadConfig starts from
// DefaultConfig, so a file only needs the values it changes.
type Config struct {
	LogLevel string        `yaml:"log_level"`
	Pool     PoolConfig    `yaml:"pool"`
	Pacing   PacingConfig  `yaml:"pacing"`
	Memory   MemoryConfig  `yaml:"memory"`
	Content  ContentConfig `yaml:"content"`
	Driver   DriverConfig  `yaml:"driver"`
}

// PoolConfig bounds the session pool.
type PoolConfig struct {
	MaxSessions   int      `yaml:"max_sessions"` // 0 = derive from system memory
	SessionTTL    Duration `yaml:"session_ttl"`
	SweepInterval Duration `yaml:"sweep_interval"`
}

// PacingConfig tunes per-host delays and identity rotation. Raising the delay
// on failure is immediate; lowering requires RecoveryThreshold consecutive
// successes.
type PacingConfig struct {
	Enabled            bool       `yaml:"enabled"`
	BaseDelay          Duration   `yaml:"base_delay"`
	MinDelay           Duration   `yaml:"min_delay"`
	MaxDelay           Duration   `yaml:"max_delay"`
	FailureMultiplier  float64    `yaml:"failure_multiplier"`
	RecoveryMultiplier float64    `yaml:"recovery_multiplier"`
	RecoveryThreshold  int        `yaml:"recovery_threshold"`
	JitterMax          Duration   `yaml:"jitter_max"`
	QuarantineAfter    int        `yaml:"quarantine_after"` // consecutive failures
	QuarantineCooldown Duration   `yaml:"quarantine_cooldown"`
	Identities         []Identity `yaml:"identities,omitempty"`
}

// MemoryConfig locates the site pattern store.
type MemoryConfig struct {
	Enabled bool    `yaml:"enabled"`
	Path    string  `yaml:"path"`
	Alpha   float64 `yaml:"alpha"` // EWMA weight for new observations
}

// ContentConfig tunes the extraction pipeline.
type ContentConfig struct {
	MinContentLength int         `yaml:"min_content_length"` // chars before a strategy is accepted
	MinWordCount     int         `yaml:"min_word_count"`     // words before content counts as meaningful
	Dedup            DedupConfig `yaml:"dedup"`
	Chunking         ChunkConfig `yaml:"chunking"`
}

// DedupConfig bounds the per-session fingerprint cache.
type DedupConfig struct {
	Enabled    bool     `yaml:"enabled"`
	Window     Duration `yaml:"window"`
	MaxEntries int      `yaml:"max_entries"`
}

// ChunkConfig tunes semantic chunking.
type ChunkConfig struct {
	Enabled       bool    `yaml:"enabled"`
	MinConfidence float64 `yaml:"min_confidence"`
	MaxChunkChars int     `yaml:"max_chunk_chars"`
}

// DriverConfig selects and tunes the browser engine binding.
type DriverConfig struct {
	Engine         string   `yaml:"engine"` // "rod" or "static"
	Headless       bool     `yaml:"headless"`
	DefaultTimeout Duration `yaml:"default_timeout"`
	NavMaxAttempts int      `yaml:"nav_max_attempts"`
}

// Identity is one browsing persona: the fingerprint surface a session
// presents to a host.
type Identity struct {
	UserAgent      string `yaml:"user_agent" json:"user_agent"`
	ProxyURL       string `yaml:"proxy_url,omitempty" json:"proxy_url,omitempty"`
	ViewportWidth  int    `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height" json:"viewport_height"`
	Locale         string `yaml:"locale" json:"locale"`
	Timezone       string `yaml:"timezone" json:"timezone"`
}

// Key identifies an identity inside the rotation pool.
func (id Identity) Key() string {
	return fmt.Sprintf("%s|%s|%dx%d", id.UserAgent, id.ProxyURL, id.ViewportWidth, id.ViewportHeight)
}

// DefaultIdentities returns the built-in persona pool used when the config
// lists none.
func DefaultIdentities() []Identity {
	return []Identity{
		{
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
			ViewportWidth:  1920,
			ViewportHeight: 1080,
			Locale:         "en-US",
			Timezone:       "America/New_York",
		},
		{
			UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
			ViewportWidth:  1440,
			ViewportHeight: 900,
			Locale:         "en-US",
			Timezone:       "America/Los_Angeles",
		},
		{
			UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
			ViewportWidth:  1536,
			ViewportHeight: 864,
			Locale:         "en-GB",
			Timezone:       "Europe/London",
		},
		{
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
			ViewportWidth:  1366,
			ViewportHeight: 768,
			Locale:         "en-US",
			Timezone:       "America/Chicago",
		},
		{
			UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
			ViewportWidth:  1680,
			ViewportHeight: 1050,
			Locale:         "en-US",
			Timezone:       "America/Denver",
		},
	}
}

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Pool: PoolConfig{
			MaxSessions:   0, // derived from system memory at startup
			SessionTTL:    Duration(5 * time.Minute),
			SweepInterval: Duration(time.Minute),
		},
		Pacing: PacingConfig{
			Enabled:            true,
			BaseDelay:          Duration(2 * time.Second),
			MinDelay:           Duration(500 * time.Millisecond),
			MaxDelay:           Duration(10 * time.Second),
			FailureMultiplier:  2.0,
			RecoveryMultiplier: 0.9,
			RecoveryThreshold:  3,
			JitterMax:          Duration(time.Second),
			QuarantineAfter:    3,
			QuarantineCooldown: Duration(5 * time.Minute),
		},
		Memory: MemoryConfig{
			Enabled: true,
			Path:    "surfcore.db",
			Alpha:   0.1,
		},
		Content: ContentConfig{
			MinContentLength: 100,
			MinWordCount:     50,
			Dedup: DedupConfig{
				Enabled:    true,
				Window:     Duration(time.Hour),
				MaxEntries: 1000,
			},
			Chunking: ChunkConfig{
				Enabled:       true,
				MinConfidence: 0.3,
				MaxChunkChars: 2000,
			},
		},
		Driver: DriverConfig{
			Engine:         "rod",
			Headless:       true,
			DefaultTimeout: Duration(30 * time.Second),
			NavMaxAttempts: 3,
		},
	}
}

// LoadConfig reads a yaml config file over the defaults. An empty path
// returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, NewError(ErrConfiguration, "config.load", fmt.Errorf("failed to read config file: %w", err))
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, NewError(ErrConfiguration, "config.load", fmt.Errorf("failed to parse config file: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot run. Every violation is an
// ErrConfiguration.
func (c *Config) Validate() error {
	fail := func(format string, args ...interface{}) error {
		return NewError(ErrConfiguration, "config.validate", fmt.Errorf(format, args...))
	}

	if c.Pool.MaxSessions < 0 {
		return fail("pool.max_sessions must not be negative, got %d", c.Pool.MaxSessions)
	}
	if c.Pool.SessionTTL <= 0 {
		return fail("pool.session_ttl must be positive, got %s", c.Pool.SessionTTL)
	}
	if c.Pool.SweepInterval <= 0 {
		return fail("pool.sweep_interval must be positive, got %s", c.Pool.SweepInterval)
	}

	p := c.Pacing
	if p.MinDelay <= 0 || p.BaseDelay < p.MinDelay || p.MaxDelay < p.BaseDelay {
		return fail("pacing delays must satisfy 0 < min_delay <= base_delay <= max_delay, got %s/%s/%s",
			p.MinDelay, p.BaseDelay, p.MaxDelay)
	}
	if p.FailureMultiplier <= 1.0 {
		return fail("pacing.failure_multiplier must be greater than 1, got %g", p.FailureMultiplier)
	}
	if p.RecoveryMultiplier <= 0 || p.RecoveryMultiplier >= 1.0 {
		return fail("pacing.recovery_multiplier must be between 0 and 1, got %g", p.RecoveryMultiplier)
	}
	if p.RecoveryThreshold < 1 {
		return fail("pacing.recovery_threshold must be at least 1, got %d", p.RecoveryThreshold)
	}
	if p.JitterMax < 0 {
		return fail("pacing.jitter_max must not be negative, got %s", p.JitterMax)
	}
	if p.QuarantineAfter < 1 {
		return fail("pacing.quarantine_after must be at least 1, got %d", p.QuarantineAfter)
	}

	if c.Memory.Enabled && c.Memory.Path == "" {
		return fail("memory.path must be set when memory is enabled")
	}
	if c.Memory.Alpha <= 0 || c.Memory.Alpha > 1 {
		return fail("memory.alpha must be in (0, 1], got %g", c.Memory.Alpha)
	}

	if c.Content.MinContentLength < 0 || c.Content.MinWordCount < 0 {
		return fail("content thresholds must not be negative")
	}
	if c.Content.Dedup.Enabled {
		if c.Content.Dedup.Window <= 0 {
			return fail("content.dedup.window must be positive, got %s", c.Content.Dedup.Window)
		}
		if c.Content.Dedup.MaxEntries < 1 {
			return fail("content.dedup.max_entries must be at least 1, got %d", c.Content.Dedup.MaxEntries)
		}
	}
	if c.Content.Chunking.MinConfidence < 0 || c.Content.Chunking.MinConfidence > 1 {
		return fail("content.chunking.min_confidence must be in [0, 1], got %g", c.Content.Chunking.MinConfidence)
	}

	switch c.Driver.Engine {
	case "rod", "static":
	default:
		return fail("driver.engine must be \"rod\" or \"static\", got %q", c.Driver.Engine)
	}
	if c.Driver.DefaultTimeout <= 0 {
		return fail("driver.default_timeout must be positive, got %s", c.Driver.DefaultTimeout)
	}
	if c.Driver.NavMaxAttempts < 1 {
		return fail("driver.nav_max_attempts must be at least 1, got %d", c.Driver.NavMaxAttempts)
	}

	return nil
}
