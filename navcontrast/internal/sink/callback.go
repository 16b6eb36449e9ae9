package sink

import (
	"context"

	"github.com/hazyhaar/navcontrast/navcontrast/theme"
)

// EventFunc is called for each theme event (in-process, zero serialisation).
type EventFunc func(ctx context.Context, ev theme.Event) error

// Callback delivers events via a Go function call. Embedders that render the
// navbar themselves use it to restyle on every transition.
type Callback struct {
	fn EventFunc
}

// NewCallback creates a Callback sink. fn may be nil.
func NewCallback(fn EventFunc) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Send(ctx context.Context, ev theme.Event) error {
	if c.fn != nil {
		return c.fn(ctx, ev)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
