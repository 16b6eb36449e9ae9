package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Default viewport, a common desktop size.
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 800
)

// TabConfig describes a page to open.
type TabConfig struct {
	URL            string
	ID             string
	ViewportWidth  int
	ViewportHeight int
	NavTimeout     time.Duration // default 30s
}

// Tab wraps a Rod page sized to a fixed viewport.
type Tab struct {
	Page    *rod.Page
	PageURL string
	PageID  string
	Width   int
	Height  int
}

// OpenTab creates a tab, fixes its viewport and navigates to the URL.
func OpenTab(ctx context.Context, mgr *Manager, cfg TabConfig) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = DefaultViewportWidth
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = DefaultViewportHeight
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}

	var (
		page *rod.Page
		err  error
	)
	if mgr.cfg.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.ViewportWidth,
		Height:            cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: set viewport: %w", err)
	}

	if len(mgr.cfg.ResourceBlocking) > 0 {
		if err := applyResourceBlocking(page, mgr.cfg.ResourceBlocking); err != nil {
			mgr.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}

	navCtx, cancel := context.WithTimeout(ctx, cfg.NavTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(cfg.URL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", cfg.URL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		mgr.cfg.Logger.Warn("browser: wait load timeout", "url", cfg.URL, "error", err)
	}

	return &Tab{
		Page:    page,
		PageURL: cfg.URL,
		PageID:  cfg.ID,
		Width:   cfg.ViewportWidth,
		Height:  cfg.ViewportHeight,
	}, nil
}

// ScrollTo scrolls the document to vertical offset y. The page's own scroll
// listener reports the result.
func (t *Tab) ScrollTo(ctx context.Context, y int) error {
	if _, err := t.Page.Context(ctx).Eval(`(y) => window.scrollTo(0, y)`, y); err != nil {
		return fmt.Errorf("browser: scroll: %w", err)
	}
	return nil
}

// Close closes the tab.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
