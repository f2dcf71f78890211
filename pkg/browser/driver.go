// Package browser defines the driver contract the session pool consumes,
// plus the engine bindings that implement it.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dtnitsch/surfcore/models"
)

// WaitPolicy tells navigate when a page counts as ready.
type WaitPolicy string

const (
	WaitLoad        WaitPolicy = "load"
	WaitDOMReady    WaitPolicy = "domready"
	WaitNetworkIdle WaitPolicy = "networkidle"

	// WaitSelectorPrefix starts a policy that waits for a CSS selector,
	// e.g. "selector:#content".
	WaitSelectorPrefix = "selector:"
)

// Selector returns the CSS selector of a selector wait policy.
func (w WaitPolicy) Selector() (string, bool) {
	if strings.HasPrefix(string(w), WaitSelectorPrefix) {
		return strings.TrimPrefix(string(w), WaitSelectorPrefix), true
	}
	return "", false
}

// ValidWaitPolicy reports whether w names a known policy.
func ValidWaitPolicy(w WaitPolicy) bool {
	if sel, ok := w.Selector(); ok {
		return sel != ""
	}
	switch w {
	case WaitLoad, WaitDOMReady, WaitNetworkIdle, "":
		return true
	}
	return false
}

// Action names a user interaction on a page.
type Action string

const (
	ActionClick  Action = "click"
	ActionType   Action = "type"
	ActionSelect Action = "select"
	ActionScroll Action = "scroll"
	ActionHover  Action = "hover"
)

// ValidAction reports whether a names a known interaction.
func ValidAction(a Action) bool {
	switch a {
	case ActionClick, ActionType, ActionSelect, ActionScroll, ActionHover:
		return true
	}
	return false
}

// ContextConfig configures one browser context at creation time. The
// identity is fixed for the life of the context.
type ContextConfig struct {
	Identity models.Identity
	Headless bool
	Timeout  time.Duration // default per-operation deadline
}

// NavigateResult reports where a navigation ended up.
type NavigateResult struct {
	Status   int    `json:"status"`
	FinalURL string `json:"final_url"`
}

// ScreenshotOptions tunes screenshot capture.
type ScreenshotOptions struct {
	FullPage bool
	Format   string // "png" (default) or "jpeg"
}

// Handle is one live browser context. All operations are fallible and slow.
// Callers serialize access: one operation in flight per handle.
type Handle interface {
	Navigate(ctx context.Context, url string, wait WaitPolicy, timeout time.Duration) (NavigateResult, error)
	ExtractDOM(ctx context.Context, selector string) (string, error)
	Interact(ctx context.Context, action Action, selector, value string, timeout time.Duration) error
	Screenshot(ctx context.Context, opts ScreenshotOptions) ([]byte, error)
	Close() error
}

// Driver creates browser contexts and owns the engine lifecycle.
type Driver interface {
	CreateContext(ctx context.Context, cfg ContextConfig) (Handle, error)
	Close() error
}

// NewDriver builds the configured engine binding.
func NewDriver(cfg models.DriverConfig) (Driver, error) {
	switch cfg.Engine {
	case "rod":
		return NewRodDriver(cfg.Headless), nil
	case "static":
		return NewStaticDriver(), nil
	default:
		return nil, models.NewError(models.ErrConfiguration, "driver.new", fmt.Errorf("unknown engine %q", cfg.Engine))
	}
}
