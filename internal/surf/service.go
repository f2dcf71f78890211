// Package surf binds the session pool, pacing limiter, site pattern memory
// and content pipeline into one service the CLI drives. Every public
// operation takes a context; deadlines surface as Timeout and leave the
// session alive.
package surf

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/dtnitsch/surfcore/models"
	"github.com/dtnitsch/surfcore/pkg/browser"
	"github.com/dtnitsch/surfcore/pkg/content"
	"github.com/dtnitsch/surfcore/pkg/pacing"
	"github.com/dtnitsch/surfcore/pkg/resources"
	"github.com/dtnitsch/surfcore/pkg/sessionpool"
	"github.com/dtnitsch/surfcore/pkg/sitemem"
)

// learnedSelectorFloor is the minimum remembered success rate before a
// stored selector is preferred over the generic strategy ladder.
const learnedSelectorFloor = 0.5

// Service is the orchestration layer. Zero-value is not usable; build one
// with NewService.
type Service struct {
	cfg      models.Config
	logger   *slog.Logger
	driver   browser.Driver
	pool     *sessionpool.Pool
	limiter  *pacing.Limiter
	memory   *sitemem.Store // nil when memory is disabled
	pipeline *content.Pipeline

	hosts *hostTracker

	// sleep is swapped out in tests so pacing and backoff do not stall them.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewService wires the subsystems from validated config. A zero session cap
// is resolved from system memory here, once, so the pool always sees a
// concrete bound.
func NewService(cfg models.Config, driver browser.Driver, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolCfg := cfg.Pool
	if poolCfg.MaxSessions == 0 {
		poolCfg.MaxSessions = resources.RecommendedSessionCap()
		logger.Info("session capacity derived from system memory", "capacity", poolCfg.MaxSessions)
	}

	pool, err := sessionpool.NewPool(poolCfg, driver, logger)
	if err != nil {
		return nil, err
	}

	var memory *sitemem.Store
	if cfg.Memory.Enabled {
		memory, err = sitemem.Open(cfg.Memory.Path, cfg.Memory.Alpha)
		if err != nil {
			return nil, fmt.Errorf("failed to open site memory: %w", err)
		}
	}

	return &Service{
		cfg:      cfg,
		logger:   logger,
		driver:   driver,
		pool:     pool,
		limiter:  pacing.NewLimiter(cfg.Pacing),
		memory:   memory,
		pipeline: content.NewPipeline(cfg.Content),
		hosts:    newHostTracker(),
		sleep:    sleepCtx,
	}, nil
}

// Start launches background maintenance (the idle-session sweep).
func (s *Service) Start(ctx context.Context) {
	s.pool.Start(ctx)
}

// Close releases every session and shuts the driver and memory store down.
func (s *Service) Close() {
	s.pool.Close()
	if s.memory != nil {
		if err := s.memory.Close(); err != nil {
			s.logger.Warn("failed to close site memory", "error", err)
		}
	}
	if err := s.driver.Close(); err != nil {
		s.logger.Warn("failed to close driver", "error", err)
	}
}

// Memory exposes the site pattern store for read-side commands. Nil when
// memory is disabled.
func (s *Service) Memory() *sitemem.Store {
	return s.memory
}

// AllocateSession draws an identity from the rotation pool and creates a
// pooled browser session with it. At capacity it fails with
// CapacityExceeded.
func (s *Service) AllocateSession(ctx context.Context) (models.SessionInfo, error) {
	identity := s.limiter.NextIdentity()
	sess, err := s.pool.Allocate(ctx, browser.ContextConfig{
		Identity: identity,
		Headless: s.cfg.Driver.Headless,
		Timeout:  s.cfg.Driver.DefaultTimeout.Std(),
	})
	if err != nil {
		return models.SessionInfo{}, err
	}
	return sess.Info(), nil
}

// ReleaseSession closes a session and drops its per-session state: the pool
// slot, the dedup scope and the tracked host. Unknown ids are a no-op.
func (s *Service) ReleaseSession(sessionID string) {
	s.pool.Release(sessionID)
	s.pipeline.DropScope(sessionID)
	s.hosts.drop(sessionID)
}

// Navigate paces, then drives the session to rawURL. Transient failures
// retry with exponential backoff (2^attempt seconds) up to the configured
// attempt cap; every attempt's outcome lands in pacing and site memory
// before the final result surfaces. An empty wait policy falls back to the
// policy remembered for the host, if any.
func (s *Service) Navigate(ctx context.Context, sessionID, rawURL string, wait browser.WaitPolicy) (browser.NavigateResult, error) {
	const op = "surf.navigate"

	host, err := validateTargetURL(op, rawURL)
	if err != nil {
		return browser.NavigateResult{}, err
	}
	if !browser.ValidWaitPolicy(wait) {
		return browser.NavigateResult{}, models.NewError(models.ErrValidation, op,
			fmt.Errorf("unknown wait policy %q", wait))
	}

	sess, err := s.pool.Get(sessionID)
	if err != nil {
		return browser.NavigateResult{}, err
	}

	if wait == "" {
		wait = s.rememberedWaitPolicy(host)
	}

	if err := sess.BeginOp(ctx); err != nil {
		return browser.NavigateResult{}, err
	}
	defer sess.EndOp()

	if delay := s.limiter.Delay(host); delay > 0 {
		s.logger.Debug("pacing delay", "host", host, "delay", delay)
		if err := s.sleep(ctx, delay); err != nil {
			return browser.NavigateResult{}, err
		}
	}

	timeout := s.cfg.Driver.DefaultTimeout.Std()
	var result browser.NavigateResult
	var navErr error
	for attempt := 1; attempt <= s.cfg.Driver.NavMaxAttempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			s.logger.Warn("retrying navigation", "session_id", sessionID, "url", rawURL,
				"attempt", attempt, "backoff", backoff, "error", navErr)
			if err := s.sleep(ctx, backoff); err != nil {
				return browser.NavigateResult{}, err
			}
		}

		start := time.Now()
		result, navErr = sess.Handle().Navigate(ctx, rawURL, wait, timeout)
		latency := time.Since(start)

		success := navErr == nil
		sess.RecordRequest(success)
		s.limiter.ReportOutcome(host, sess.Identity(), success, latency)
		s.recordMemory(host, "", "", success, latency)

		if success || !models.IsTransient(navErr) {
			break
		}
	}

	if navErr != nil {
		return browser.NavigateResult{}, navErr
	}

	s.hosts.set(sessionID, host)
	if wait != "" {
		s.rememberWaitPolicy(host, wait)
	}
	s.logger.Info("navigated", "session_id", sessionID, "url", rawURL,
		"status", result.Status, "final_url", result.FinalURL)
	return result, nil
}

// Extract runs the content pipeline against the session's current page.
// When the caller names no selector but does hint a category, a remembered
// selector for the host is tried first; the strategy ladder still backs it
// up. The outcome, keyed by whichever selector or strategy produced the
// text, feeds site memory.
func (s *Service) Extract(ctx context.Context, sessionID string, req models.ExtractionRequest) (*models.ExtractionResult, error) {
	sess, err := s.pool.Get(sessionID)
	if err != nil {
		return nil, err
	}

	host := sitemem.NormalizeHost(req.URL)
	if host == "" {
		host = s.hosts.get(sessionID)
	}
	req.DedupScope = sessionID

	if req.Selector == "" && req.CategoryHint != "" {
		if learned := s.learnedSelector(host, req.CategoryHint); learned != "" {
			s.logger.Debug("applying remembered selector", "host", host, "selector", learned)
			req.Selector = learned
		}
	}

	if err := sess.BeginOp(ctx); err != nil {
		return nil, err
	}
	defer sess.EndOp()

	start := time.Now()
	result, err := s.pipeline.Extract(ctx, sess.Handle(), req)
	took := time.Since(start)

	if err != nil {
		// Validation never reached the driver; everything else did.
		if !models.IsKind(err, models.ErrValidation) {
			sess.RecordRequest(false)
			if host != "" {
				s.limiter.ReportOutcome(host, sess.Identity(), false, took)
				s.recordMemory(host, "", "", false, took)
			}
		}
		return nil, err
	}

	sess.RecordRequest(true)
	if host != "" {
		s.limiter.ReportOutcome(host, sess.Identity(), true, took)

		selectorUsed := req.Selector
		if selectorUsed == "" && result.StrategyUsed != models.StrategyNone {
			selectorUsed = string(result.StrategyUsed)
		}
		s.recordMemory(host, result.Category, selectorUsed, result.HasMeaningfulContent, took)
	}

	s.logger.Info("extracted", "session_id", sessionID, "url", req.URL,
		"strategy", result.StrategyUsed, "category", result.Category,
		"words", result.WordCount, "quality", result.Quality,
		"duplicate", result.IsDuplicate)
	return result, nil
}

// Interact performs one user action on the session's page, preceded by a
// small human-like pause.
func (s *Service) Interact(ctx context.Context, sessionID string, action browser.Action, selector, value string) error {
	const op = "surf.interact"

	if !browser.ValidAction(action) {
		return models.NewError(models.ErrValidation, op, fmt.Errorf("unknown action %q", action))
	}

	sess, err := s.pool.Get(sessionID)
	if err != nil {
		return err
	}

	if err := sess.BeginOp(ctx); err != nil {
		return err
	}
	defer sess.EndOp()

	if err := s.sleep(ctx, pacing.ActionJitter()); err != nil {
		return err
	}

	start := time.Now()
	err = sess.Handle().Interact(ctx, action, selector, value, s.cfg.Driver.DefaultTimeout.Std())
	s.reportSessionOutcome(sess, sessionID, err == nil, time.Since(start))
	if err != nil {
		return err
	}

	s.logger.Info("interacted", "session_id", sessionID, "action", action, "selector", selector)
	return nil
}

// Screenshot captures the session's current page.
func (s *Service) Screenshot(ctx context.Context, sessionID string, opts browser.ScreenshotOptions) ([]byte, error) {
	sess, err := s.pool.Get(sessionID)
	if err != nil {
		return nil, err
	}

	if err := sess.BeginOp(ctx); err != nil {
		return nil, err
	}
	defer sess.EndOp()

	start := time.Now()
	shot, err := sess.Handle().Screenshot(ctx, opts)
	s.reportSessionOutcome(sess, sessionID, err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}
	return shot, nil
}

// ReadingPause returns how long a person would plausibly spend reading the
// extracted content. Callers sleep on it between steps.
func (s *Service) ReadingPause(result *models.ExtractionResult) time.Duration {
	if result == nil {
		return pacing.ReadingDelay(0)
	}
	return pacing.ReadingDelay(result.WordCount)
}

// Status reports the pool, pacing, memory and system state in one snapshot.
func (s *Service) Status(ctx context.Context) StatusReport {
	report := StatusReport{
		Pool:       s.pool.Stats(),
		Hosts:      s.limiter.HostSnapshot(),
		Identities: s.limiter.IdentitySnapshot(),
		Memory: MemoryStatus{
			Enabled: s.cfg.Memory.Enabled,
			Path:    s.cfg.Memory.Path,
		},
		System: SystemStatus{
			RecommendedCap: resources.RecommendedSessionCap(),
		},
	}

	if s.memory != nil {
		if n, err := s.memory.Count(); err == nil {
			report.Memory.Hosts = n
		} else {
			s.logger.Warn("failed to count memory hosts", "error", err)
		}
	}

	if snap, err := resources.Read(); err == nil {
		report.System.TotalGiB = snap.TotalGiB()
		report.System.UsedPercent = snap.UsedPercent
	} else {
		s.logger.Warn("failed to read system memory", "error", err)
	}

	return report
}

// reportSessionOutcome feeds a non-navigation driver outcome into the
// session counters and, when the session's host is known, into pacing and
// site memory.
func (s *Service) reportSessionOutcome(sess *sessionpool.Session, sessionID string, success bool, took time.Duration) {
	sess.RecordRequest(success)
	host := s.hosts.get(sessionID)
	if host == "" {
		return
	}
	s.limiter.ReportOutcome(host, sess.Identity(), success, took)
	s.recordMemory(host, "", "", success, took)
}

func (s *Service) recordMemory(host string, category models.ContentCategory, selector string, success bool, took time.Duration) {
	if s.memory == nil || host == "" {
		return
	}
	if err := s.memory.RecordOutcome(host, category, selector, success, took); err != nil {
		s.logger.Warn("failed to record outcome", "host", host, "error", err)
	}
}

func (s *Service) rememberWaitPolicy(host string, wait browser.WaitPolicy) {
	if s.memory == nil {
		return
	}
	if err := s.memory.RecordWaitPolicy(host, string(wait)); err != nil {
		s.logger.Warn("failed to record wait policy", "host", host, "error", err)
	}
}

func (s *Service) rememberedWaitPolicy(host string) browser.WaitPolicy {
	if s.memory == nil {
		return ""
	}
	rec, err := s.memory.Host(host)
	if err != nil {
		return ""
	}
	policy := browser.WaitPolicy(rec.WaitPolicy)
	if !browser.ValidWaitPolicy(policy) {
		return ""
	}
	return policy
}

// learnedSelector returns the remembered selector for host and category when
// it is a real CSS selector with a success rate above the floor. Strategy
// names stored as selectors only rank the ladder and are never applied.
func (s *Service) learnedSelector(host string, category models.ContentCategory) string {
	if s.memory == nil || host == "" || !models.ValidCategory(category) {
		return ""
	}
	strategy, err := s.memory.BestStrategy(host, category)
	if err != nil {
		return ""
	}
	if strategy.SuccessRate < learnedSelectorFloor || isStrategyName(strategy.Selector) {
		return ""
	}
	return strategy.Selector
}

func isStrategyName(selector string) bool {
	switch models.ExtractionStrategy(selector) {
	case models.StrategyVisibleText, models.StrategyFullText, models.StrategyRawMarkup, models.StrategyNone:
		return true
	}
	return false
}

// validateTargetURL rejects anything a browser should not be pointed at and
// returns the normalized host.
func validateTargetURL(op, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", models.NewError(models.ErrValidation, op, fmt.Errorf("failed to parse url %q: %w", rawURL, err))
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", models.NewError(models.ErrValidation, op, fmt.Errorf("url scheme must be http or https, got %q", parsed.Scheme))
	}
	if parsed.Host == "" {
		return "", models.NewError(models.ErrValidation, op, fmt.Errorf("url %q has no host", rawURL))
	}
	return sitemem.NormalizeHost(rawURL), nil
}

// sleepCtx sleeps for d or until ctx ends, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return models.NewError(models.ErrTimeout, "surf.sleep", ctx.Err())
	}
}
