// Package trigger decides when the navbar background is re-classified.
//
// A Trigger owns the scroll state and the last verdict for one page. All of
// its state is mutated by a single loop goroutine; captures run in their own
// goroutines and report back over a channel tagged with the cycle sequence
// they were scheduled under. Only a result whose sequence is still the
// latest is applied.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/navcontrast/idgen"
	"github.com/hazyhaar/navcontrast/navcontrast/internal/capture"
	"github.com/hazyhaar/navcontrast/navcontrast/internal/classify"
	"github.com/hazyhaar/navcontrast/navcontrast/internal/sampler"
	"github.com/hazyhaar/navcontrast/navcontrast/theme"
)

// DefaultScrollThreshold is the offset in layout pixels past which the page
// counts as scrolled.
const DefaultScrollThreshold = 10

// DefaultMaxSettle caps how long content churn can defer a cycle.
const DefaultMaxSettle = time.Second

// DefaultCaptureTimeout bounds a single capture.
const DefaultCaptureTimeout = 10 * time.Second

// Publisher receives every theme event. The sink router implements it.
type Publisher interface {
	Send(ctx context.Context, ev theme.Event) error
}

// Config for creating a Trigger.
type Config struct {
	PageID  string
	PageURL string

	Capturer  capture.Capturer
	Publisher Publisher

	Sampling sampler.Options

	BrightnessThreshold *float64 // light above this; nil: 150
	ScrollThreshold     *int     // scrolled past this; nil: 10

	Settle time.Duration

	// MaxSettle bounds how long repeated content changes keep extending
	// the settle window. Default: 1s, never below Settle.
	MaxSettle time.Duration

	CaptureTimeout time.Duration

	// ViewportWidth of the band to capture. 0 lets the capturer use the
	// full viewport width. Updated by Resize.
	ViewportWidth int

	NewID  idgen.Generator
	Logger *slog.Logger
}

func (c *Config) defaults() {
	c.Sampling = c.Sampling.Normalized()
	if c.BrightnessThreshold == nil {
		v := classify.DefaultThreshold
		c.BrightnessThreshold = &v
	}
	if c.ScrollThreshold == nil {
		v := DefaultScrollThreshold
		c.ScrollThreshold = &v
	}
	if c.MaxSettle <= 0 {
		c.MaxSettle = DefaultMaxSettle
	}
	if c.CaptureTimeout <= 0 {
		c.CaptureTimeout = DefaultCaptureTimeout
	}
	if c.NewID == nil {
		c.NewID = idgen.Default
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Stats are monotonically increasing counters.
type Stats struct {
	Scheduled uint64 `json:"scheduled"` // schedule requests (mount, return to top, content change, resize)
	Started   uint64 `json:"started"`   // captures actually launched after settling
	Applied   uint64 `json:"applied"`   // measured verdicts applied
	Discarded uint64 `json:"discarded"` // stale results dropped
	Fallbacks uint64 `json:"fallbacks"` // failed cycles that reused the last or default verdict
}

type cycleResult struct {
	seq     uint64
	verdict theme.Verdict
	err     error
}

type resize struct {
	width, height int
}

// Trigger schedules classification cycles for one page.
type Trigger struct {
	cfg    Config
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	scrollCh chan int
	changeCh chan struct{}
	resizeCh chan resize
	resultCh chan cycleResult

	// Owned by the loop goroutine.
	state    theme.ScrollState
	last     *theme.Verdict
	seq      uint64
	settle   *settler
	inflight context.CancelFunc
	dirty    bool // content changed while a cycle was running
	width    int

	current atomic.Pointer[theme.Event]

	scheduled atomic.Uint64
	started   atomic.Uint64
	applied   atomic.Uint64
	discarded atomic.Uint64
	fallbacks atomic.Uint64
}

// New creates a Trigger. Call Start to mount it.
func New(cfg Config) *Trigger {
	cfg.defaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Trigger{
		cfg:      cfg,
		logger:   cfg.Logger.With("page_id", cfg.PageID),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		scrollCh: make(chan int, 64),
		changeCh: make(chan struct{}, 1),
		resizeCh: make(chan resize, 1),
		resultCh: make(chan cycleResult),
		state:    theme.AtTop,
		settle:   newSettler(cfg.Settle, cfg.MaxSettle),
		width:    cfg.ViewportWidth,
	}
}

// SetContext binds the trigger's lifetime to ctx. Call before Start.
func (t *Trigger) SetContext(ctx context.Context) {
	t.ctx, t.cancel = context.WithCancel(ctx)
}

// Start mounts the trigger: the page is assumed unscrolled, the default
// theme is published and the first cycle is scheduled.
func (t *Trigger) Start() {
	t.once.Do(func() { go t.loop() })
}

// Stop tears the trigger down and waits for the loop to exit. Captures still
// in flight are cancelled and their results are never applied.
func (t *Trigger) Stop() {
	t.cancel()
	t.once.Do(func() { close(t.done) }) // never started
	<-t.done
}

// Scroll reports the page's vertical offset in layout pixels.
func (t *Trigger) Scroll(offset int) {
	select {
	case t.scrollCh <- offset:
	case <-t.ctx.Done():
	}
}

// ContentChanged reports a DOM mutation. Bursts coalesce.
func (t *Trigger) ContentChanged() {
	select {
	case t.changeCh <- struct{}{}:
	default:
	}
}

// Resize reports a new viewport size. Only the latest size is kept.
func (t *Trigger) Resize(width, height int) {
	r := resize{width: width, height: height}
	for {
		select {
		case t.resizeCh <- r:
			return
		default:
		}
		select {
		case <-t.resizeCh:
		default:
		}
	}
}

// Current returns the latest published event. Before the first publication
// it reports the mount defaults.
func (t *Trigger) Current() theme.Event {
	if ev := t.current.Load(); ev != nil {
		return *ev
	}
	v := classify.DefaultVerdict()
	return theme.Event{
		PageID:  t.cfg.PageID,
		PageURL: t.cfg.PageURL,
		State:   theme.AtTop,
		Reason:  theme.ReasonMount,
		Verdict: v,
		Theme:   theme.Derive(theme.AtTop, v.IsLight),
	}
}

// Stats returns a snapshot of the counters.
func (t *Trigger) Stats() Stats {
	return Stats{
		Scheduled: t.scheduled.Load(),
		Started:   t.started.Load(),
		Applied:   t.applied.Load(),
		Discarded: t.discarded.Load(),
		Fallbacks: t.fallbacks.Load(),
	}
}

func (t *Trigger) loop() {
	defer close(t.done)
	defer t.abortInflight()
	defer t.settle.stop()

	t.publish(theme.ReasonMount, nil)
	t.schedule("mount")

	for {
		select {
		case <-t.ctx.Done():
			return

		case off := <-t.scrollCh:
			t.onScroll(off)

		case <-t.changeCh:
			t.refresh("content")

		case r := <-t.resizeCh:
			t.width = r.width
			t.refresh("resize")

		case <-t.settle.timerC():
			t.settle.stop()
			t.startCycle()

		case res := <-t.resultCh:
			t.onResult(res)
		}
	}
}

func (t *Trigger) onScroll(offset int) {
	next := theme.AtTop
	if offset > *t.cfg.ScrollThreshold {
		next = theme.Scrolled
	}
	if next == t.state {
		return
	}
	t.state = next
	t.logger.Debug("trigger: scroll state changed", "state", next, "offset", offset)

	if next == theme.Scrolled {
		// Freeze: no capture of a frame that is no longer at the top.
		t.settle.stop()
		t.abortInflight()
		t.dirty = false
		t.seq++
		t.publish(theme.ReasonScroll, nil)
		return
	}

	t.publish(theme.ReasonScroll, nil)
	t.schedule("top")
}

// schedule advances the sequence and opens a fresh settle window. Any
// pending or in-flight cycle is superseded.
func (t *Trigger) schedule(cause string) {
	t.seq++
	t.scheduled.Add(1)
	t.abortInflight()
	t.dirty = false
	t.settle.stop()
	t.settle.arm()
	t.logger.Debug("trigger: cycle scheduled", "seq", t.seq, "cause", cause)
}

// refresh asks for a re-measure without superseding anything. A running
// cycle finishes and one follow-up is queued behind it; a pending window is
// extended, up to MaxSettle.
func (t *Trigger) refresh(cause string) {
	if t.state != theme.AtTop {
		return
	}
	t.scheduled.Add(1)
	if t.inflight != nil {
		t.dirty = true
		t.logger.Debug("trigger: follow-up queued", "seq", t.seq, "cause", cause)
		return
	}
	t.settle.arm()
	t.logger.Debug("trigger: cycle deferred", "seq", t.seq, "cause", cause)
}

// followUp runs the cycle queued by refresh while the last one was running.
func (t *Trigger) followUp() {
	if t.dirty {
		t.dirty = false
		t.settle.arm()
	}
}

func (t *Trigger) abortInflight() {
	if t.inflight != nil {
		t.inflight()
		t.inflight = nil
	}
}

func (t *Trigger) startCycle() {
	seq := t.seq
	region := capture.Rect{Width: t.width, Height: t.cfg.Sampling.BandHeight}

	ctx, cancel := context.WithTimeout(t.ctx, t.cfg.CaptureTimeout)
	t.inflight = cancel
	t.started.Add(1)

	go func() {
		defer cancel()
		v, err := t.runCycle(ctx, region)
		select {
		case t.resultCh <- cycleResult{seq: seq, verdict: v, err: err}:
		case <-t.ctx.Done():
		}
	}()
}

// runCycle is capture → sample → classify. It touches no trigger state.
func (t *Trigger) runCycle(ctx context.Context, region capture.Rect) (theme.Verdict, error) {
	if t.cfg.Capturer == nil {
		return theme.Verdict{}, fmt.Errorf("%w: no capturer", capture.ErrCaptureFailure)
	}
	snap, err := t.cfg.Capturer.Capture(ctx, region)
	if err != nil {
		if !errors.Is(err, capture.ErrCaptureFailure) {
			err = fmt.Errorf("%w: %v", capture.ErrCaptureFailure, err)
		}
		return theme.Verdict{}, err
	}
	acc := sampler.Sample(snap, t.cfg.Sampling)
	return classify.Classify(acc, *t.cfg.BrightnessThreshold)
}

func (t *Trigger) onResult(res cycleResult) {
	if res.seq != t.seq || t.state != theme.AtTop {
		t.discarded.Add(1)
		t.logger.Debug("trigger: stale cycle discarded", "seq", res.seq, "latest", t.seq)
		return
	}
	t.inflight = nil

	if res.err != nil {
		t.fallbacks.Add(1)
		t.logger.Warn("trigger: cycle failed, keeping previous verdict",
			"seq", res.seq, "has_previous", t.last != nil, "error", res.err)
		t.publish(theme.ReasonFallback, res.err)
		t.followUp()
		return
	}

	v := res.verdict
	t.last = &v
	t.applied.Add(1)
	t.logger.Debug("trigger: verdict applied",
		"seq", res.seq, "luminance", v.Luminance, "is_light", v.IsLight)
	t.publish(theme.ReasonMeasured, nil)
	t.followUp()
}

func (t *Trigger) verdict() theme.Verdict {
	if t.last != nil {
		return *t.last
	}
	return classify.DefaultVerdict()
}

func (t *Trigger) publish(reason theme.Reason, cause error) {
	v := t.verdict()
	ev := theme.Event{
		ID:        t.cfg.NewID(),
		PageID:    t.cfg.PageID,
		PageURL:   t.cfg.PageURL,
		Seq:       t.seq,
		State:     t.state,
		Reason:    reason,
		Verdict:   v,
		Theme:     theme.Derive(t.state, v.IsLight),
		Timestamp: time.Now().UnixMilli(),
	}
	if cause != nil {
		ev.Error = cause.Error()
	}
	t.current.Store(&ev)

	if t.cfg.Publisher == nil {
		return
	}
	if err := t.cfg.Publisher.Send(t.ctx, ev); err != nil {
		t.logger.Error("trigger: publish failed", "reason", reason, "error", err)
	}
}
