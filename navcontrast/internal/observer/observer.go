// Package observer subscribes a trigger to a live page: scroll offset,
// viewport size and DOM mutations are reported by an injected script
// through a CDP runtime binding.
package observer

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

//go:embed observer.js
var observerJS string

const bindingName = "__navcontrast_binding"

// Config for creating an Observer.
type Config struct {
	Page     *rod.Page
	Listener Listener
	// ExcludeSelector marks elements whose mutations are ignored.
	ExcludeSelector string
	Logger          *slog.Logger
}

// Observer owns the subscription for one page. Start subscribes, Stop
// unsubscribes; nothing is delivered to the listener after Stop returns.
type Observer struct {
	page     *rod.Page
	listener Listener
	exclude  string
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	removeScript func() error
}

// New creates an Observer for the given page.
func New(cfg Config) *Observer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Observer{
		page:     cfg.Page,
		listener: cfg.Listener,
		exclude:  cfg.ExcludeSelector,
		logger:   cfg.Logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetContext allows the parent watcher to pass its context.
func (o *Observer) SetContext(ctx context.Context) {
	o.ctx, o.cancel = context.WithCancel(ctx)
}

// Start installs the binding, registers the script for future documents
// (reloads, navigations) and injects it into the current one.
func (o *Observer) Start() error {
	if err := (proto.RuntimeAddBinding{Name: bindingName}).Call(o.page); err != nil {
		o.logger.Warn("observer: addBinding failed (may already exist)", "error", err)
	}

	go o.listenBinding()

	script := o.script()
	remove, err := o.page.EvalOnNewDocument(script)
	if err != nil {
		return fmt.Errorf("observer: register script: %w", err)
	}
	o.removeScript = remove

	if _, err := o.page.Eval(`() => {` + script + `}`); err != nil {
		return fmt.Errorf("observer: inject script: %w", err)
	}

	o.logger.Debug("observer: subscribed", "exclude", o.exclude)
	return nil
}

// Stop detaches the page listeners and ends the binding subscription.
func (o *Observer) Stop() {
	o.cancel()
	if o.removeScript != nil {
		if err := o.removeScript(); err != nil {
			o.logger.Debug("observer: remove script", "error", err)
		}
		o.removeScript = nil
	}
	if _, err := o.page.Eval(`() => { if (window.__navcontrast_detach) window.__navcontrast_detach(); }`); err != nil {
		o.logger.Debug("observer: detach listeners", "error", err)
	}
}

func (o *Observer) script() string {
	sel, _ := json.Marshal(o.exclude)
	return fmt.Sprintf("window.__navcontrast_exclude = %s;\n%s", sel, observerJS)
}

// listenBinding receives calls from the injected script via Runtime.bindingCalled.
func (o *Observer) listenBinding() {
	o.page.Context(o.ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		ev, err := parseEvent(e.Payload)
		if err != nil {
			o.logger.Warn("observer: bad event", "error", err)
			return
		}
		if o.ctx.Err() != nil {
			return
		}
		dispatch(ev, o.listener)
	})()
}
