package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/dtnitsch/surfcore/models"
)

// RodDriver binds the driver contract to a Chromium instance over CDP. The
// browser launches lazily on the first context request; every context is an
// isolated incognito browser context with its own cookies and storage.
type RodDriver struct {
	headless bool

	mu      sync.Mutex
	browser *rod.Browser
	cleanup func()
}

func NewRodDriver(headless bool) *RodDriver {
	return &RodDriver{headless: headless}
}

func (d *RodDriver) ensureStarted() (*rod.Browser, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.browser != nil {
		return d.browser, nil
	}

	l := launcher.New().Headless(d.headless)
	l = l.Set("ignore-certificate-errors")
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	d.browser = b
	d.cleanup = l.Cleanup
	return b, nil
}

// CreateContext opens an incognito context, applies the identity, and returns
// a handle bound to a fresh blank page.
func (d *RodDriver) CreateContext(ctx context.Context, cfg ContextConfig) (Handle, error) {
	const op = "driver.create_context"

	b, err := d.ensureStarted()
	if err != nil {
		return nil, models.NewError(models.ErrBrowserOperation, op, err)
	}
	b = b.Context(ctx)

	page, err := newContextPage(b, cfg.Identity.ProxyURL)
	if err != nil {
		return nil, models.NewError(models.ErrBrowserOperation, op, err)
	}

	if err := applyIdentity(page, cfg.Identity); err != nil {
		_ = page.Close()
		return nil, models.NewError(models.ErrBrowserOperation, op, err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &rodHandle{page: page, timeout: timeout}, nil
}

// newContextPage opens a page inside a fresh browser context. A per-identity
// proxy needs the raw CDP call; without one the stock incognito path serves.
func newContextPage(b *rod.Browser, proxyURL string) (*rod.Page, error) {
	if proxyURL == "" {
		incognito, err := b.Incognito()
		if err != nil {
			return nil, fmt.Errorf("failed to open incognito context: %w", err)
		}
		page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
		if err != nil {
			return nil, fmt.Errorf("failed to create page: %w", err)
		}
		return page, nil
	}

	bc, err := proto.TargetCreateBrowserContext{ProxyServer: proxyURL}.Call(b)
	if err != nil {
		return nil, fmt.Errorf("failed to open proxied context: %w", err)
	}
	target, err := proto.TargetCreateTarget{URL: "about:blank", BrowserContextID: bc.BrowserContextID}.Call(b)
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page, err := b.PageFromTarget(target.TargetID)
	if err != nil {
		return nil, fmt.Errorf("failed to attach page: %w", err)
	}
	return page, nil
}

func applyIdentity(page *rod.Page, id models.Identity) error {
	if id.UserAgent != "" {
		override := &proto.NetworkSetUserAgentOverride{UserAgent: id.UserAgent}
		if id.Locale != "" {
			override.AcceptLanguage = id.Locale
		}
		if err := page.SetUserAgent(override); err != nil {
			return fmt.Errorf("failed to set user agent: %w", err)
		}
	}
	if id.ViewportWidth > 0 && id.ViewportHeight > 0 {
		if err := (proto.EmulationSetDeviceMetricsOverride{
			Width:             id.ViewportWidth,
			Height:            id.ViewportHeight,
			DeviceScaleFactor: 1.0,
			Mobile:            false,
		}).Call(page); err != nil {
			return fmt.Errorf("failed to set viewport: %w", err)
		}
	}
	if id.Timezone != "" {
		if err := (proto.EmulationSetTimezoneOverride{TimezoneID: id.Timezone}).Call(page); err != nil {
			return fmt.Errorf("failed to set timezone: %w", err)
		}
	}
	if id.Locale != "" {
		if err := (proto.EmulationSetLocaleOverride{Locale: id.Locale}).Call(page); err != nil {
			return fmt.Errorf("failed to set locale: %w", err)
		}
	}
	return nil
}

// Close shuts down the browser. Open handles become unusable.
func (d *RodDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.browser == nil {
		return nil
	}
	err := d.browser.Close()
	d.browser = nil
	if d.cleanup != nil {
		d.cleanup()
		d.cleanup = nil
	}
	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

type rodHandle struct {
	page    *rod.Page
	timeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

func (h *rodHandle) Navigate(ctx context.Context, url string, wait WaitPolicy, timeout time.Duration) (NavigateResult, error) {
	const op = "driver.navigate"

	if timeout <= 0 {
		timeout = h.timeout
	}
	navCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	page := h.page.Context(navCtx).Timeout(timeout)

	// The main document status arrives as a network event; redirects
	// overwrite earlier values so the final hop wins.
	var status atomic.Int64
	go page.EachEvent(func(e *proto.NetworkResponseReceived) {
		if e.Type == proto.NetworkResourceTypeDocument {
			status.Store(int64(e.Response.Status))
		}
	})()

	if err := page.Navigate(url); err != nil {
		return NavigateResult{}, driverErr(ctx, op, fmt.Errorf("failed to navigate to %s: %w", url, err))
	}
	if err := waitReady(page, wait); err != nil {
		return NavigateResult{}, driverErr(ctx, op, fmt.Errorf("failed waiting for %s: %w", url, err))
	}

	result := NavigateResult{Status: int(status.Load()), FinalURL: url}
	if info, err := page.Info(); err == nil && info.URL != "" {
		result.FinalURL = info.URL
	}
	return result, nil
}

func waitReady(page *rod.Page, wait WaitPolicy) error {
	if sel, ok := wait.Selector(); ok {
		_, err := page.Element(sel)
		return err
	}
	switch wait {
	case WaitDOMReady:
		return page.WaitDOMStable(300*time.Millisecond, 0)
	case WaitNetworkIdle:
		idle := page.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)
		idle()
		return nil
	default:
		return page.WaitLoad()
	}
}

func (h *rodHandle) ExtractDOM(ctx context.Context, selector string) (string, error) {
	const op = "driver.extract_dom"

	page := h.page.Context(ctx).Timeout(h.timeout)
	if selector == "" {
		html, err := page.HTML()
		if err != nil {
			return "", driverErr(ctx, op, fmt.Errorf("failed to read page HTML: %w", err))
		}
		return html, nil
	}

	// Element waits for the first match, so a selector that is still
	// rendering gets its chance before Elements snapshots all matches.
	if _, err := page.Element(selector); err != nil {
		return "", driverErr(ctx, op, fmt.Errorf("selector %q not found: %w", selector, err))
	}
	els, err := page.Elements(selector)
	if err != nil {
		return "", driverErr(ctx, op, fmt.Errorf("failed to query %q: %w", selector, err))
	}

	var sb strings.Builder
	for _, el := range els {
		html, err := el.HTML()
		if err != nil {
			return "", driverErr(ctx, op, fmt.Errorf("failed to read element HTML: %w", err))
		}
		sb.WriteString(html)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func (h *rodHandle) Interact(ctx context.Context, action Action, selector, value string, timeout time.Duration) error {
	const op = "driver.interact"

	if timeout <= 0 {
		timeout = h.timeout
	}
	page := h.page.Context(ctx).Timeout(timeout)

	if action == ActionScroll {
		delta := 600.0
		if value != "" {
			parsed, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return models.NewError(models.ErrValidation, op, fmt.Errorf("scroll delta %q is not a number: %w", value, err))
			}
			delta = parsed
		}
		if err := page.Mouse.Scroll(0, delta, 6); err != nil {
			return driverErr(ctx, op, fmt.Errorf("failed to scroll: %w", err))
		}
		return nil
	}

	el, err := page.Element(selector)
	if err != nil {
		return driverErr(ctx, op, fmt.Errorf("selector %q not found: %w", selector, err))
	}

	switch action {
	case ActionClick:
		err = el.Click(proto.InputMouseButtonLeft, 1)
	case ActionType:
		err = el.Input(value)
	case ActionSelect:
		err = el.Select([]string{value}, true, rod.SelectorTypeText)
	case ActionHover:
		err = el.Hover()
	default:
		return models.NewError(models.ErrValidation, op, fmt.Errorf("unknown action %q", action))
	}
	if err != nil {
		return driverErr(ctx, op, fmt.Errorf("failed to %s %q: %w", action, selector, err))
	}
	return nil
}

func (h *rodHandle) Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error) {
	const op = "driver.screenshot"

	page := h.page.Context(ctx).Timeout(h.timeout)
	var req *proto.PageCaptureScreenshot
	if opts.Format == "jpeg" {
		quality := 85
		req = &proto.PageCaptureScreenshot{
			Format:  proto.PageCaptureScreenshotFormatJpeg,
			Quality: &quality,
		}
	}
	data, err := page.Screenshot(opts.FullPage, req)
	if err != nil {
		return nil, driverErr(ctx, op, fmt.Errorf("failed to capture screenshot: %w", err))
	}
	return data, nil
}

func (h *rodHandle) Close() error {
	h.closeOnce.Do(func() {
		if err := h.page.Close(); err != nil {
			h.closeErr = fmt.Errorf("failed to close page: %w", err)
		}
	})
	return h.closeErr
}

// driverErr classifies an engine failure: deadline and cancellation become
// ErrTimeout so the session survives, everything else is ErrBrowserOperation.
func driverErr(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
		return models.NewError(models.ErrTimeout, op, err)
	}
	return models.NewError(models.ErrBrowserOperation, op, err)
}
