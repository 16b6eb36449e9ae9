// Package sink defines output backends for navcontrast theme events.
package sink

import (
	"context"

	"github.com/hazyhaar/navcontrast/navcontrast/theme"
)

// Sink is the output interface. Implementations deliver theme events to
// different backends (stdout, webhook, SQLite history, in-process callback).
type Sink interface {
	Send(ctx context.Context, ev theme.Event) error
	Close() error
}

type envelope struct {
	Type string      `json:"type"`
	Data theme.Event `json:"data"`
}

const envelopeType = "theme"
