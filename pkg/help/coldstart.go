package help

const ColdstartYAML = `# surfcore Quick Start

engines:
  rod: "Real Chromium via DevTools protocol (default)"
  static: "Plain HTTP fetch, no browser (fast, no JS)"

wait_policies:
  load: "Wait for the load event (default)"
  domready: "Wait for DOMContentLoaded"
  networkidle: "Wait until network traffic settles"
  selector: "Wait for a CSS selector, e.g. selector:#content"

commands:
  basic_browse: |
    surfcore browse --urls "https://example.com"

  multiple_urls: |
    surfcore browse --urls "https://example.com,https://example.org" --concurrency 3

  scoped_extraction: |
    surfcore browse --urls "https://example.com/story" --selector "article.main" --category news

  with_screenshots: |
    surfcore browse --urls "https://example.com" --screenshot ./shots

  static_engine: |
    surfcore browse --urls "https://example.com" --engine static

  terse_output: |
    surfcore browse --urls "https://example.com" --terse --format json

  runtime_status: |
    surfcore status

  learned_patterns: |
    surfcore hosts
    surfcore hosts --by success --limit 10
    surfcore host example.com

config_example: |
  # surfcore.yaml (pass with --config; every key is optional)
  log_level: info
  pool:
    max_sessions: 0        # 0 = derive from system memory (2 per GiB, 5..20)
    session_ttl: 5m
    sweep_interval: 1m
  pacing:
    enabled: true
    base_delay: 2s
    min_delay: 500ms
    max_delay: 10s
    failure_multiplier: 2.0
    recovery_multiplier: 0.9
    recovery_threshold: 3
    jitter_max: 1s
  memory:
    enabled: true
    path: surfcore.db
    alpha: 0.1
  content:
    min_content_length: 100
    min_word_count: 50
  driver:
    engine: rod
    headless: true
    default_timeout: 30s
    nav_max_attempts: 3

pacing_behavior:
  - "Per-host delays double on failure, recover slowly after 3 straight successes"
  - "Identities (user agent, viewport, locale) rotate per session"
  - "An identity with repeated failures is quarantined and rested"
  - "Disable with pacing.enabled: false for local or test targets"

memory_behavior:
  - "Selector success rates are learned per host and category in SQLite"
  - "A remembered selector above 50% success is tried before the generic ladder"
  - "Wait policies that worked are replayed on the next visit"
  - "Use ':memory:' as the path for an ephemeral store"

extraction_ladder:
  - "visible_text: rendered text, scoped to a selector when one is known"
  - "full_text: readability article extraction"
  - "raw_markup: stripped raw HTML, last resort"
  - "First strategy over min_content_length wins"

error_behavior:
  - "Malformed URLs: rejected before any session is created"
  - "Transient navigation failures: retried with 2s/4s backoff"
  - "Timeouts end the operation, never the session"
  - "Exit codes: 0=success, 1=partial failure, 2=complete failure"
`
