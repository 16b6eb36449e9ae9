package capture

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// RodConfig configures a Rod capturer.
type RodConfig struct {
	// Format requested from Chrome. Default: png.
	Format Format
	// Quality for jpeg/webp, 0-100. 0 keeps Chrome's default.
	Quality int
	// ExcludeSelector matches elements hidden (visibility only, no layout
	// change) while the screenshot is taken, typically the navbar itself.
	// The hide is visible on a headful screen, so use it headless only.
	ExcludeSelector string
	Logger          *slog.Logger
}

// Rod captures regions of a live page through CDP Page.captureScreenshot.
type Rod struct {
	page   *rod.Page
	cfg    RodConfig
	logger *slog.Logger
}

// NewRod creates a capturer bound to page.
func NewRod(page *rod.Page, cfg RodConfig) *Rod {
	if cfg.Format == "" {
		cfg.Format = FormatPNG
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Rod{page: page, cfg: cfg, logger: cfg.Logger}
}

type viewportInfo struct {
	ScrollX float64 `json:"sx"`
	ScrollY float64 `json:"sy"`
	Width   float64 `json:"w"`
	Height  float64 `json:"h"`
}

const viewportJS = `() => JSON.stringify({
	sx: window.scrollX, sy: window.scrollY,
	w: window.innerWidth, h: window.innerHeight
})`

const hideJS = `(sel) => {
	document.querySelectorAll(sel).forEach(el => {
		el.dataset.navcontrastVisibility = el.style.visibility;
		el.style.visibility = 'hidden';
	});
}`

const restoreJS = `(sel) => {
	document.querySelectorAll(sel).forEach(el => {
		el.style.visibility = el.dataset.navcontrastVisibility || '';
		delete el.dataset.navcontrastVisibility;
	});
}`

// Capture screenshots region (viewport coordinates). A zero Width means the
// full viewport width. The clip is translated by the current scroll offset
// because CDP clips are expressed in document coordinates.
func (c *Rod) Capture(ctx context.Context, region Rect) (*Snapshot, error) {
	if c.page == nil {
		return nil, fmt.Errorf("%w: no page", ErrCaptureFailure)
	}
	page := c.page.Context(ctx)

	res, err := page.Eval(viewportJS)
	if err != nil {
		return nil, fmt.Errorf("%w: read viewport: %v", ErrCaptureFailure, err)
	}
	var vp viewportInfo
	if err := json.Unmarshal([]byte(res.Value.Str()), &vp); err != nil {
		return nil, fmt.Errorf("%w: parse viewport: %v", ErrCaptureFailure, err)
	}

	width := float64(region.Width)
	if width <= 0 {
		width = vp.Width
	}
	height := float64(region.Height)
	if height <= 0 {
		height = vp.Height
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: empty viewport %vx%v", ErrCaptureFailure, width, height)
	}

	if c.cfg.ExcludeSelector != "" {
		if _, err := page.Eval(hideJS, c.cfg.ExcludeSelector); err != nil {
			c.logger.Warn("capture: hide excluded elements failed",
				"selector", c.cfg.ExcludeSelector, "error", err)
		} else {
			defer func() {
				// The cycle context may be cancelled by now; restore regardless.
				if _, err := c.page.Eval(restoreJS, c.cfg.ExcludeSelector); err != nil {
					c.logger.Warn("capture: restore excluded elements failed", "error", err)
				}
			}()
		}
	}

	req := &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormat(c.cfg.Format),
		Clip: &proto.PageViewport{
			X:      vp.ScrollX + float64(region.X),
			Y:      vp.ScrollY + float64(region.Y),
			Width:  width,
			Height: height,
			Scale:  1,
		},
	}
	if c.cfg.Quality > 0 && c.cfg.Format != FormatPNG {
		q := c.cfg.Quality
		req.Quality = &q
	}

	data, err := page.Screenshot(false, req)
	if err != nil {
		return nil, fmt.Errorf("%w: screenshot: %v", ErrCaptureFailure, err)
	}
	return Decode(data, c.cfg.Format)
}
