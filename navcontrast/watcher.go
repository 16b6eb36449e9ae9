// Package navcontrast keeps a navbar legible over whatever is rendered
// beneath it. For every watched page it samples the band the navbar sits
// on, classifies it light or dark, and publishes which styling to use.
//
// Pages are rendered in a Chrome instance managed as a disposable
// component. Scroll, resize and DOM mutations are reported by an injected
// script; a per-page trigger decides when to re-classify and suppresses
// stale results. Themes are emitted to sinks (stdout, webhook, SQLite,
// callback) and served over HTTP and MCP.
package navcontrast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/navcontrast/horosafe"
	"github.com/hazyhaar/navcontrast/navcontrast/internal/browser"
	"github.com/hazyhaar/navcontrast/navcontrast/internal/capture"
	"github.com/hazyhaar/navcontrast/navcontrast/internal/classify"
	"github.com/hazyhaar/navcontrast/navcontrast/internal/config"
	"github.com/hazyhaar/navcontrast/navcontrast/internal/observer"
	"github.com/hazyhaar/navcontrast/navcontrast/internal/sampler"
	"github.com/hazyhaar/navcontrast/navcontrast/internal/sink"
	"github.com/hazyhaar/navcontrast/navcontrast/internal/trigger"
	"github.com/hazyhaar/navcontrast/navcontrast/theme"
)

var (
	// ErrUnknownPage is returned for a page ID that is not watched.
	ErrUnknownPage = errors.New("navcontrast: unknown page")

	// ErrPageExists is returned when a page ID is already watched.
	ErrPageExists = errors.New("navcontrast: page already watched")

	// ErrNoHistory is returned by History when no SQLite sink is configured.
	ErrNoHistory = errors.New("navcontrast: no history sink")
)

// Capturer produces the raster beneath the navbar. Re-exported so that
// embedders can feed frames from a source other than Chrome.
type Capturer = capture.Capturer

// Rect is a capture region in viewport CSS pixels.
type Rect = capture.Rect

// Stats are the per-page trigger counters.
type Stats = trigger.Stats

// PageStatus describes one watched page.
type PageStatus struct {
	ID    string      `json:"id"`
	URL   string      `json:"url"`
	Live  bool        `json:"live"` // backed by a browser tab
	Event theme.Event `json:"event"`
	Stats Stats       `json:"stats"`
}

// Classification is the result of a one-shot image classification.
type Classification struct {
	Verdict theme.Verdict `json:"verdict"`
	Theme   theme.Theme   `json:"theme"`
	Samples uint64        `json:"samples"`
}

type historian interface {
	Recent(ctx context.Context, pageID string, limit int) ([]theme.Event, error)
}

// page is one watched page. tab and obs are nil for attached pages.
type page struct {
	cfg  config.PageConfig
	tab  *browser.Tab
	trig *trigger.Trigger
	obs  *observer.Observer
}

func (p *page) stop() {
	if p.obs != nil {
		p.obs.Stop()
	}
	p.trig.Stop()
	if p.tab != nil {
		p.tab.Close()
	}
}

// Watcher is the top-level orchestrator. It manages the browser, the
// per-page triggers and the sinks.
type Watcher struct {
	cfg     *config.Config
	mgr     *browser.Manager
	sinkR   *sink.Router
	history historian
	pages   map[string]*page
	parked  []config.PageConfig // live pages closed for a browser recycle
	lastID  int                 // last auto-assigned page number
	mu      sync.Mutex
	logger  *slog.Logger
}

// New creates a Watcher from configuration. A nil cfg uses the defaults.
func New(cfg *Config, logger *slog.Logger, sinks ...Sink) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	cfg.ApplyDefaults()

	mgr := browser.NewManager(browser.Config{
		RemoteURL:        cfg.Browser.Remote,
		MemoryLimit:      cfg.Browser.MemoryLimit,
		RecycleInterval:  cfg.Browser.RecycleInterval,
		ResourceBlocking: cfg.Browser.ResourceBlocking,
		Mode:             browser.Mode(cfg.Browser.Mode),
		Stealth:          cfg.Browser.Stealth,
		XvfbDisplay:      cfg.Browser.XvfbDisplay,
		Logger:           logger,
	})

	w := &Watcher{
		cfg:    cfg,
		mgr:    mgr,
		sinkR:  sink.NewRouter(logger, sinks...),
		pages:  make(map[string]*page),
		logger: logger,
	}
	for _, s := range sinks {
		if h, ok := s.(historian); ok {
			w.history = h
			break
		}
	}
	return w
}

// Start launches the browser and begins watching all configured pages.
// A page that fails to open is logged and skipped.
func (w *Watcher) Start(ctx context.Context) error {
	if _, err := w.mgr.Start(ctx); err != nil {
		return fmt.Errorf("navcontrast: start browser: %w", err)
	}

	w.mgr.SetRecycleCallback(&browser.RecycleCallback{
		BeforeRecycle: w.parkLivePages,
		AfterRecycle:  func(*rod.Browser) { w.reopenParked(ctx) },
	})

	for _, pc := range w.cfg.Pages {
		if err := w.WatchPage(ctx, pc); err != nil {
			w.logger.Error("navcontrast: failed to watch page",
				"url", pc.URL, "error", err)
		}
	}
	return nil
}

// WatchPage opens a tab on pc.URL and starts theming it. Start must have
// been called.
func (w *Watcher) WatchPage(ctx context.Context, pc PageConfig) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.normalizePageLocked(&pc, true); err != nil {
		return err
	}
	if _, ok := w.pages[pc.ID]; ok {
		return fmt.Errorf("%w: %s", ErrPageExists, pc.ID)
	}
	return w.watchPageLocked(ctx, pc)
}

func (w *Watcher) watchPageLocked(ctx context.Context, pc config.PageConfig) error {
	tab, err := browser.OpenTab(ctx, w.mgr, browser.TabConfig{
		URL:            pc.URL,
		ID:             pc.ID,
		ViewportWidth:  pc.ViewportWidth,
		ViewportHeight: pc.ViewportHeight,
	})
	if err != nil {
		return fmt.Errorf("navcontrast: open tab: %w", err)
	}

	capt := capture.NewRod(tab.Page, capture.RodConfig{
		Format:          capture.Format(w.cfg.Capture.Format),
		Quality:         w.cfg.Capture.Quality,
		ExcludeSelector: pc.ExcludeSelector,
		Logger:          w.logger,
	})
	trig := trigger.New(w.triggerConfig(pc, capt, tab.Width))
	trig.SetContext(ctx)
	trig.Start()

	obs := observer.New(observer.Config{
		Page:            tab.Page,
		Listener:        trig,
		ExcludeSelector: pc.ExcludeSelector,
		Logger:          w.logger,
	})
	obs.SetContext(ctx)
	if err := obs.Start(); err != nil {
		trig.Stop()
		tab.Close()
		return fmt.Errorf("navcontrast: start observer: %w", err)
	}

	w.pages[pc.ID] = &page{cfg: pc, tab: tab, trig: trig, obs: obs}
	w.logger.Info("navcontrast: watching page", "url", pc.URL, "id", pc.ID)
	return nil
}

// AttachPage themes a page whose frames come from c instead of a browser
// tab. Scroll offsets are reported with ScrollTo. Start is not required.
func (w *Watcher) AttachPage(ctx context.Context, pc PageConfig, c Capturer) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.normalizePageLocked(&pc, false); err != nil {
		return err
	}
	if _, ok := w.pages[pc.ID]; ok {
		return fmt.Errorf("%w: %s", ErrPageExists, pc.ID)
	}

	trig := trigger.New(w.triggerConfig(pc, c, pc.ViewportWidth))
	trig.SetContext(ctx)
	trig.Start()
	w.pages[pc.ID] = &page{cfg: pc, trig: trig}
	w.logger.Info("navcontrast: attached page", "id", pc.ID)
	return nil
}

// Unwatch stops theming a page and closes its tab.
func (w *Watcher) Unwatch(pageID string) error {
	w.mu.Lock()
	p, ok := w.pages[pageID]
	delete(w.pages, pageID)
	w.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPage, pageID)
	}
	p.stop()
	return nil
}

// Stop shuts down every page, the sinks and the browser.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for id, p := range w.pages {
		p.stop()
		w.logger.Info("navcontrast: stopped page", "id", id)
	}
	w.pages = make(map[string]*page)

	w.sinkR.Close()
	w.mgr.Close()
}

// Theme returns the latest event for a page.
func (w *Watcher) Theme(pageID string) (theme.Event, error) {
	p, err := w.lookup(pageID)
	if err != nil {
		return theme.Event{}, err
	}
	return p.trig.Current(), nil
}

// Stats returns the trigger counters for a page.
func (w *Watcher) Stats(pageID string) (Stats, error) {
	p, err := w.lookup(pageID)
	if err != nil {
		return Stats{}, err
	}
	return p.trig.Stats(), nil
}

// Pages lists the watched pages ordered by ID.
func (w *Watcher) Pages() []PageStatus {
	w.mu.Lock()
	out := make([]PageStatus, 0, len(w.pages))
	for id, p := range w.pages {
		out = append(out, PageStatus{
			ID:    id,
			URL:   p.cfg.URL,
			Live:  p.tab != nil,
			Event: p.trig.Current(),
			Stats: p.trig.Stats(),
		})
	}
	w.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ScrollTo scrolls a page to vertical offset y. For live pages the tab is
// scrolled and the injected listener reports the offset; attached pages
// receive the offset directly.
func (w *Watcher) ScrollTo(ctx context.Context, pageID string, y int) error {
	p, err := w.lookup(pageID)
	if err != nil {
		return err
	}
	if p.tab != nil {
		return p.tab.ScrollTo(ctx, y)
	}
	p.trig.Scroll(y)
	return nil
}

// ClassifyImage classifies the navbar band of an encoded PNG, JPEG or
// WebP image with the configured sampling grid and threshold. Unlike the
// trigger it reports failures instead of falling back.
func (w *Watcher) ClassifyImage(ctx context.Context, data []byte) (Classification, error) {
	snap, err := capture.Decode(data, capture.DetectFormat(data))
	if err != nil {
		return Classification{}, err
	}
	band, err := capture.NewStatic(snap.Image()).Capture(ctx, capture.Rect{
		Width:  snap.Width(),
		Height: min(w.cfg.Sampling.BandHeight, snap.Height()),
	})
	if err != nil {
		return Classification{}, err
	}

	acc := sampler.Sample(band, w.samplerOptions())
	v, err := classify.Classify(acc, *w.cfg.Classify.BrightnessThreshold)
	if err != nil {
		return Classification{}, err
	}
	return Classification{
		Verdict: v,
		Theme:   theme.Derive(theme.AtTop, v.IsLight),
		Samples: acc.SampleCount,
	}, nil
}

// History returns the most recent recorded events for a page, newest first.
func (w *Watcher) History(ctx context.Context, pageID string, limit int) ([]theme.Event, error) {
	if w.history == nil {
		return nil, ErrNoHistory
	}
	return w.history.Recent(ctx, pageID, limit)
}

// Recycle restarts Chrome and reopens every live page.
func (w *Watcher) Recycle(ctx context.Context) error {
	return w.mgr.Recycle(ctx)
}

func (w *Watcher) lookup(pageID string) (*page, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.pages[pageID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPage, pageID)
	}
	return p, nil
}

// normalizePageLocked fills defaults and validates pc. The URL is required
// for live pages and checked for attached pages only when set. Live pages
// in a headful browser cannot hide elements for capture.
func (w *Watcher) normalizePageLocked(pc *config.PageConfig, live bool) error {
	if pc.ID == "" {
		pc.ID = w.nextIDLocked()
	}
	if pc.ViewportWidth <= 0 {
		pc.ViewportWidth = browser.DefaultViewportWidth
	}
	if pc.ViewportHeight <= 0 {
		pc.ViewportHeight = browser.DefaultViewportHeight
	}
	if err := horosafe.ValidateIdentifier(pc.ID); err != nil {
		return fmt.Errorf("navcontrast: page id: %w", err)
	}
	if live || pc.URL != "" {
		if err := horosafe.ValidateHTTPURL(pc.URL); err != nil {
			return fmt.Errorf("navcontrast: page %s: %w", pc.ID, err)
		}
	}
	if live && pc.ExcludeSelector != "" && w.cfg.Browser.Mode == "headful" {
		return fmt.Errorf("navcontrast: page %s: exclude_selector requires a headless browser", pc.ID)
	}
	return nil
}

// nextIDLocked returns the first unused "page-N", counting up from the
// last one handed out.
func (w *Watcher) nextIDLocked() string {
	for {
		w.lastID++
		id := fmt.Sprintf("page-%d", w.lastID)
		if _, taken := w.pages[id]; !taken {
			return id
		}
	}
}

func (w *Watcher) samplerOptions() sampler.Options {
	return sampler.Options{
		StepX:      w.cfg.Sampling.StepX,
		StepY:      w.cfg.Sampling.StepY,
		BandHeight: w.cfg.Sampling.BandHeight,
	}
}

func (w *Watcher) triggerConfig(pc config.PageConfig, c capture.Capturer, width int) trigger.Config {
	return trigger.Config{
		PageID:              pc.ID,
		PageURL:             pc.URL,
		Capturer:            c,
		Publisher:           w.sinkR,
		Sampling:            w.samplerOptions(),
		BrightnessThreshold: w.cfg.Classify.BrightnessThreshold,
		ScrollThreshold:     w.cfg.Trigger.ScrollThreshold,
		Settle:              w.cfg.Trigger.Settle,
		MaxSettle:           w.cfg.Trigger.MaxSettle,
		CaptureTimeout:      w.cfg.Trigger.CaptureTimeout,
		ViewportWidth:       width,
		Logger:              w.logger,
	}
}

// parkLivePages closes every tab-backed page ahead of a Chrome restart.
// Attached pages are untouched.
func (w *Watcher) parkLivePages() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, p := range w.pages {
		if p.tab == nil {
			continue
		}
		p.stop()
		delete(w.pages, id)
		w.parked = append(w.parked, p.cfg)
	}
}

func (w *Watcher) reopenParked(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	parked := w.parked
	w.parked = nil
	for _, pc := range parked {
		if err := w.watchPageLocked(ctx, pc); err != nil {
			w.logger.Error("navcontrast: reopen page failed",
				"url", pc.URL, "error", err)
		}
	}
}
