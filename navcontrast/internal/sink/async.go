package sink

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hazyhaar/navcontrast/navcontrast/theme"
)

// Async decouples a slow sink (webhook) from the publisher. Events are
// queued and delivered in order by one worker; when the queue is full the
// event is dropped and counted.
type Async struct {
	next    Sink
	queue   chan theme.Event
	logger  *slog.Logger
	dropped atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewAsync wraps next with a queue of the given size (default 64).
func NewAsync(next Sink, size int, logger *slog.Logger) *Async {
	if size <= 0 {
		size = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &Async{
		next:   next,
		queue:  make(chan theme.Event, size),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	a.wg.Add(1)
	go a.run()
	return a
}

// Send enqueues ev. It never blocks. Send must not be called after Close.
func (a *Async) Send(_ context.Context, ev theme.Event) error {
	select {
	case a.queue <- ev:
	default:
		a.dropped.Add(1)
		a.logger.Warn("sink: async queue full, event dropped", "page_id", ev.PageID, "id", ev.ID)
	}
	return nil
}

// Dropped returns the number of events lost to a full queue.
func (a *Async) Dropped() uint64 { return a.dropped.Load() }

// Close delivers what is queued, then closes the wrapped sink.
func (a *Async) Close() error {
	a.once.Do(func() { close(a.queue) })
	a.wg.Wait()
	a.cancel()
	return a.next.Close()
}

func (a *Async) run() {
	defer a.wg.Done()
	for ev := range a.queue {
		if err := a.next.Send(a.ctx, ev); err != nil {
			a.logger.Warn("sink: async delivery failed", "page_id", ev.PageID, "error", err)
		}
	}
}
