package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/dtnitsch/surfcore/models"
)

// StaticDriver serves JS-free pages over plain HTTP. Navigate issues a GET
// and parses the body; ExtractDOM reads from the parsed document. There is
// no rendering, so interactions and screenshots report ErrBrowserOperation.
type StaticDriver struct {
	client *http.Client
}

func NewStaticDriver() *StaticDriver {
	return &StaticDriver{client: &http.Client{}}
}

// NewStaticDriverWithClient lets tests inject a transport.
func NewStaticDriverWithClient(client *http.Client) *StaticDriver {
	return &StaticDriver{client: client}
}

func (d *StaticDriver) CreateContext(ctx context.Context, cfg ContextConfig) (Handle, error) {
	client := d.client
	if cfg.Identity.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.Identity.ProxyURL)
		if err != nil {
			return nil, models.NewError(models.ErrValidation, "driver.create_context",
				fmt.Errorf("failed to parse proxy url: %w", err))
		}
		client = &http.Client{Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)}}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &staticHandle{
		client:    client,
		userAgent: cfg.Identity.UserAgent,
		locale:    cfg.Identity.Locale,
		timeout:   timeout,
	}, nil
}

func (d *StaticDriver) Close() error { return nil }

type staticHandle struct {
	client    *http.Client
	userAgent string
	locale    string
	timeout   time.Duration

	doc      *goquery.Document
	raw      string
	finalURL string
	closed   bool
}

func (h *staticHandle) Navigate(ctx context.Context, rawURL string, wait WaitPolicy, timeout time.Duration) (NavigateResult, error) {
	const op = "driver.navigate"

	if h.closed {
		return NavigateResult{}, models.NewError(models.ErrBrowserOperation, op, errors.New("handle is closed"))
	}
	if timeout <= 0 {
		timeout = h.timeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return NavigateResult{}, models.NewError(models.ErrValidation, op, fmt.Errorf("failed to build request: %w", err))
	}
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	if h.locale != "" {
		req.Header.Set("Accept-Language", h.locale)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if reqCtx.Err() != nil || ctx.Err() != nil {
			return NavigateResult{}, models.NewError(models.ErrTimeout, op, err)
		}
		return NavigateResult{}, models.NewError(models.ErrBrowserOperation, op, fmt.Errorf("failed to make HTTP request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return NavigateResult{}, models.NewError(models.ErrBrowserOperation, op, fmt.Errorf("failed to read response body: %w", err))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return NavigateResult{}, models.NewError(models.ErrBrowserOperation, op, fmt.Errorf("failed to parse HTML: %w", err))
	}

	h.doc = doc
	h.raw = string(body)
	h.finalURL = resp.Request.URL.String()
	return NavigateResult{Status: resp.StatusCode, FinalURL: h.finalURL}, nil
}

func (h *staticHandle) ExtractDOM(ctx context.Context, selector string) (string, error) {
	const op = "driver.extract_dom"

	if h.closed {
		return "", models.NewError(models.ErrBrowserOperation, op, errors.New("handle is closed"))
	}
	if h.doc == nil {
		return "", models.NewError(models.ErrBrowserOperation, op, errors.New("no page loaded"))
	}
	if selector == "" {
		return h.raw, nil
	}

	sel := h.doc.Find(selector)
	if sel.Length() == 0 {
		return "", models.NewError(models.ErrBrowserOperation, op, fmt.Errorf("selector %q matched nothing", selector))
	}

	var sb strings.Builder
	var renderErr error
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		html, err := goquery.OuterHtml(s)
		if err != nil {
			renderErr = err
			return false
		}
		sb.WriteString(html)
		sb.WriteString("\n")
		return true
	})
	if renderErr != nil {
		return "", models.NewError(models.ErrBrowserOperation, op, fmt.Errorf("failed to render selection: %w", renderErr))
	}
	return sb.String(), nil
}

func (h *staticHandle) Interact(ctx context.Context, action Action, selector, value string, timeout time.Duration) error {
	return models.NewError(models.ErrBrowserOperation, "driver.interact",
		fmt.Errorf("static driver cannot %s", action))
}

func (h *staticHandle) Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error) {
	return nil, models.NewError(models.ErrBrowserOperation, "driver.screenshot",
		errors.New("static driver cannot capture screenshots"))
}

func (h *staticHandle) Close() error {
	h.closed = true
	h.doc = nil
	h.raw = ""
	return nil
}
