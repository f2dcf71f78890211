package surf

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/surfcore/internal/common"
	"github.com/dtnitsch/surfcore/models"
	"github.com/dtnitsch/surfcore/pkg/browser"
	"github.com/dtnitsch/surfcore/pkg/resources"
	"github.com/dtnitsch/surfcore/pkg/sitemem"
)

type browseOptions struct {
	selector      string
	category      models.ContentCategory
	wait          browser.WaitPolicy
	screenshotDir string
	noChunks      bool
	noDedup       bool
}

func BrowseAction(c *cli.Context) error {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	startTime := time.Now()

	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	if !c.Bool("quiet") {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}))
	}
	slog.SetDefault(logger)

	// CLI overrides on top of the config file.
	if c.IsSet("engine") {
		cfg.Driver.Engine = c.String("engine")
	}
	if c.Bool("headful") {
		cfg.Driver.Headless = false
	}
	if c.IsSet("timeout") {
		timeout, err := time.ParseDuration(c.String("timeout"))
		if err != nil {
			logger.Error("invalid timeout duration", "error", err)
			os.Exit(2)
		}
		if timeout <= 0 {
			logger.Error("timeout must be positive", "timeout", c.String("timeout"))
			os.Exit(2)
		}
		cfg.Driver.DefaultTimeout = models.Duration(timeout)
	}

	if !c.IsSet("urls") || strings.TrimSpace(c.String("urls")) == "" {
		fmt.Fprintln(os.Stderr, "Error: No URLs provided")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, `  surfcore browse --urls "https://example.com,https://example.org"`)
		fmt.Fprintln(os.Stderr, `  surfcore browse --urls "https://example.com" --selector "article.main" --category news`)
		fmt.Fprintln(os.Stderr, `  surfcore browse --urls "https://example.com" --screenshot ./shots`)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Need help? Run: surfcore browse --help")
		os.Exit(1)
	}

	// Sanitize and validate every URL before touching the browser (fail fast).
	rawURLs := strings.Split(c.String("urls"), ",")
	urls, invalidURLs := common.SanitizeAndValidateURLs(rawURLs)
	if len(invalidURLs) > 0 {
		fmt.Fprintf(os.Stderr, "Error: %d URL(s) are malformed (even after cleanup):\n", len(invalidURLs))
		for _, badURL := range invalidURLs {
			fmt.Fprintf(os.Stderr, "  - %s\n", badURL)
		}
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Note: URLs are auto-cleaned (whitespace trimmed, trailing punctuation removed, markdown links extracted)")
		fmt.Fprintln(os.Stderr, "      Spaces in URLs must be pre-encoded as %20.")
		os.Exit(1)
	}

	opts := browseOptions{
		selector:      c.String("selector"),
		category:      models.ContentCategory(c.String("category")),
		wait:          browser.WaitPolicy(c.String("wait")),
		screenshotDir: c.String("screenshot"),
		noChunks:      c.Bool("no-chunks"),
		noDedup:       c.Bool("no-dedup"),
	}
	if opts.category != "" && !models.ValidCategory(opts.category) {
		fmt.Fprintf(os.Stderr, "Error: unknown category %q\n", opts.category)
		fmt.Fprintf(os.Stderr, "Valid categories: %s\n", categoryList())
		os.Exit(1)
	}
	if !browser.ValidWaitPolicy(opts.wait) {
		fmt.Fprintf(os.Stderr, "Error: unknown wait policy %q\n", opts.wait)
		fmt.Fprintln(os.Stderr, `Valid policies: load, domready, networkidle, selector:<css>`)
		os.Exit(1)
	}
	if opts.screenshotDir != "" {
		if err := os.MkdirAll(opts.screenshotDir, 0o755); err != nil {
			logger.Error("failed to create screenshot directory", "error", err)
			os.Exit(2)
		}
	}

	driver, err := browser.NewDriver(cfg.Driver)
	if err != nil {
		logger.Error("failed to initialize browser driver", "error", err)
		os.Exit(2)
	}

	svc, err := NewService(cfg, driver, logger)
	if err != nil {
		logger.Error("failed to initialize service", "error", err)
		os.Exit(2)
	}
	defer svc.Close()

	ctx := context.Background()
	svc.Start(ctx)

	concurrency := c.Int("concurrency")
	if concurrency < 1 {
		concurrency = 1
	}
	if cap := resolvedSessionCap(cfg); concurrency > cap {
		logger.Info("clamping concurrency to session capacity", "requested", concurrency, "capacity", cap)
		concurrency = cap
	}

	logger.Info("starting browse run", "url_count", len(urls), "concurrency", concurrency, "engine", cfg.Driver.Engine)

	reports := make([]URLReport, len(urls))
	keywords := make([][]models.KeywordCount, len(urls))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, rawURL := range urls {
		i, rawURL := i, rawURL
		g.Go(func() error {
			reports[i], keywords[i] = browseOne(ctx, svc, rawURL, opts, logger)
			return nil
		})
	}
	// Workers report through the reports slice, never through an error.
	_ = g.Wait()

	stats := RunStats{
		TotalURLs:        len(urls),
		TotalTimeSeconds: time.Since(startTime).Seconds(),
		TopKeywords:      mergeTopKeywords(keywords, 10),
	}
	for _, r := range reports {
		if r.Status == "failed" {
			stats.Failed++
			continue
		}
		stats.Successful++
		if r.Duplicate {
			stats.Duplicates++
		}
	}

	summary := RunSummary{Status: "success", Stats: stats}
	if stats.Failed > 0 {
		summary.Status = "partial_failure"
	}
	if stats.Failed == stats.TotalURLs {
		summary.Status = "failure"
	}

	terse := c.Bool("terse")
	fields := c.String("fields")
	switch {
	case fields != "":
		filtered := make([]map[string]interface{}, len(reports))
		for i, r := range reports {
			if terse {
				filtered[i] = common.FilterResultFields(ToTerse(r), fields, true)
			} else {
				filtered[i] = common.FilterResultFields(r, fields, false)
			}
		}
		summary.Results = filtered
	case terse:
		terseReports := make([]URLReportTerse, len(reports))
		for i, r := range reports {
			terseReports[i] = ToTerse(r)
		}
		summary.Results = terseReports
	default:
		summary.Results = reports
	}

	var outputData []byte
	var marshalErr error
	if strings.ToLower(c.String("format")) == "json" {
		outputData, marshalErr = json.MarshalIndent(summary, "", "  ")
	} else {
		outputData, marshalErr = yaml.Marshal(summary)
	}
	if marshalErr != nil {
		logger.Error("failed to marshal run summary", "error", marshalErr)
		os.Exit(2)
	}
	fmt.Println(string(outputData))

	if stats.Failed == stats.TotalURLs {
		os.Exit(2)
	}
	if stats.Failed > 0 {
		os.Exit(1)
	}
	return nil
}

// browseOne runs the full allocate, navigate, extract, screenshot, release
// cycle for a single URL. Failures land in the report, never in an error:
// one bad URL must not stop the rest of the run.
func browseOne(ctx context.Context, svc *Service, rawURL string, opts browseOptions, logger *slog.Logger) (URLReport, []models.KeywordCount) {
	report := URLReport{URL: rawURL, Status: "failed"}
	start := time.Now()
	defer func() {
		report.Seconds = time.Since(start).Seconds()
	}()

	sess, err := svc.AllocateSession(ctx)
	if err != nil {
		logger.Error("failed to allocate session", "url", rawURL, "error", err)
		report.Error = err.Error()
		report.ErrorKind = kindToken(err)
		return report, nil
	}
	defer svc.ReleaseSession(sess.ID)

	if _, err := svc.Navigate(ctx, sess.ID, rawURL, opts.wait); err != nil {
		logger.Error("failed to navigate", "url", rawURL, "error", err)
		report.Error = err.Error()
		report.ErrorKind = kindToken(err)
		return report, nil
	}

	result, err := svc.Extract(ctx, sess.ID, models.ExtractionRequest{
		URL:          rawURL,
		Selector:     opts.selector,
		CategoryHint: opts.category,
		SkipChunking: opts.noChunks,
		SkipDedup:    opts.noDedup,
	})
	if err != nil {
		logger.Error("failed to extract", "url", rawURL, "error", err)
		report.Error = err.Error()
		report.ErrorKind = kindToken(err)
		return report, nil
	}

	report.Status = "success"
	report.Title = result.Title
	report.Strategy = string(result.StrategyUsed)
	report.Category = string(result.Category)
	report.Quality = result.Quality
	report.WordCount = result.WordCount
	report.Chunks = len(result.Chunks)
	report.Language = result.Language
	report.Meaningful = result.HasMeaningfulContent
	report.Duplicate = result.IsDuplicate
	report.Captcha = result.CaptchaSuspected

	if opts.screenshotDir != "" {
		shot, err := svc.Screenshot(ctx, sess.ID, browser.ScreenshotOptions{FullPage: true})
		if err != nil {
			logger.Warn("failed to capture screenshot", "url", rawURL, "error", err)
		} else {
			path := screenshotPath(opts.screenshotDir, rawURL)
			if err := os.WriteFile(path, shot, 0o644); err != nil {
				logger.Warn("failed to write screenshot", "url", rawURL, "error", err)
			} else {
				report.ScreenshotPath = path
			}
		}
	}

	return report, result.TopKeywords
}

func StatusAction(c *cli.Context) error {
	logLevel := slog.LevelWarn
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(2)
	}

	// Status is read-only; the static driver avoids launching a browser.
	cfg.Driver.Engine = "static"
	driver, err := browser.NewDriver(cfg.Driver)
	if err != nil {
		logger.Error("failed to initialize driver", "error", err)
		os.Exit(2)
	}

	svc, err := NewService(cfg, driver, logger)
	if err != nil {
		logger.Error("failed to initialize service", "error", err)
		os.Exit(2)
	}
	defer svc.Close()

	report := svc.Status(context.Background())

	switch strings.ToLower(c.String("format")) {
	case "yaml":
		data, err := yaml.Marshal(report)
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		fmt.Print(string(data))
		return nil
	case "json":
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	printStatus(report)
	return nil
}

func printStatus(report StatusReport) {
	fmt.Println("surfcore status")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Sessions:   %d live / %d capacity (created %d, expired %d, released %d)\n",
		report.Pool.Live, report.Pool.Capacity, report.Pool.Created, report.Pool.Expired, report.Pool.Released)

	if report.Memory.Enabled {
		fmt.Printf("Memory:     %d hosts tracked in %s\n", report.Memory.Hosts, report.Memory.Path)
	} else {
		fmt.Println("Memory:     disabled")
	}

	fmt.Printf("System:     %d GiB RAM, %.1f%% used, recommended cap %d\n",
		report.System.TotalGiB, report.System.UsedPercent, report.System.RecommendedCap)

	quarantined := 0
	for _, id := range report.Identities {
		if id.Quarantined {
			quarantined++
		}
	}
	fmt.Printf("Identities: %d in rotation, %d quarantined\n", len(report.Identities), quarantined)

	if len(report.Hosts) > 0 {
		fmt.Printf("\nHost pacing (%d):\n", len(report.Hosts))
		fmt.Println(strings.Repeat("-", 60))
		for _, h := range report.Hosts {
			fmt.Printf("%-35s delay %-8s fail %d\n", h.Host, h.CurrentDelay, h.ConsecutiveFailures)
		}
	}

	fmt.Printf("\nTip: Use 'surfcore hosts' to see learned host patterns\n")
}

func resolvedSessionCap(cfg models.Config) int {
	if cfg.Pool.MaxSessions > 0 {
		return cfg.Pool.MaxSessions
	}
	return resources.RecommendedSessionCap()
}

func screenshotPath(dir, rawURL string) string {
	host := sitemem.NormalizeHost(rawURL)
	if host == "" {
		host = "page"
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s.png", host, common.ContentHash([]byte(rawURL))[:12]))
}

func kindToken(err error) string {
	kind, ok := models.KindOf(err)
	if !ok {
		return ""
	}
	switch kind {
	case models.ErrCapacityExceeded:
		return "capacity_exceeded"
	case models.ErrNotFound:
		return "not_found"
	case models.ErrExpired:
		return "expired"
	case models.ErrBrowserOperation:
		return "browser_operation"
	case models.ErrTimeout:
		return "timeout"
	case models.ErrConfiguration:
		return "configuration"
	case models.ErrValidation:
		return "validation"
	}
	return ""
}

func categoryList() string {
	names := make([]string, 0, len(models.Categories()))
	for _, cat := range models.Categories() {
		names = append(names, string(cat))
	}
	return strings.Join(names, ", ")
}

// mergeTopKeywords folds per-page keyword counts into the run-wide top n,
// ordered by count then word so repeat runs agree.
func mergeTopKeywords(lists [][]models.KeywordCount, n int) []string {
	counts := make(map[string]int)
	for _, list := range lists {
		for _, kw := range list {
			counts[kw.Word] += kw.Count
		}
	}

	words := make([]string, 0, len(counts))
	for word := range counts {
		words = append(words, word)
	}
	sort.Slice(words, func(i, j int) bool {
		if counts[words[i]] != counts[words[j]] {
			return counts[words[i]] > counts[words[j]]
		}
		return words[i] < words[j]
	})

	if len(words) > n {
		words = words[:n]
	}
	return words
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
