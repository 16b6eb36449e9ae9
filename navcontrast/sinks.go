package navcontrast

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/navcontrast/navcontrast/internal/sink"
	"github.com/hazyhaar/navcontrast/navcontrast/theme"
)

// Sink is the output interface for theme events.
type Sink = sink.Sink

// NewStdoutSink creates a stdout JSON-lines sink.
func NewStdoutSink(w io.Writer) Sink {
	return sink.NewStdout(w)
}

// NewWebhookSink creates a webhook POST sink with retry. Deliveries run on
// a queue so a slow endpoint never delays scroll handling.
func NewWebhookSink(url string, logger *slog.Logger) Sink {
	return sink.NewAsync(sink.NewWebhook(url, sink.WithWebhookLogger(logger)), 0, logger)
}

// NewSQLiteSink opens a SQLite theme history at path.
func NewSQLiteSink(path string) (Sink, error) {
	return sink.OpenSQLite(path)
}

// NewMetricsSink records luminance, fallback and scroll transition
// datapoints in the SQLite metrics timeseries at path.
func NewMetricsSink(path string, logger *slog.Logger) (Sink, error) {
	return sink.OpenMetrics(path, logger)
}

// NewCallbackSink creates an in-process callback sink.
func NewCallbackSink(fn func(ctx context.Context, ev theme.Event) error) Sink {
	return sink.NewCallback(fn)
}

// SinksFromConfig builds the sinks listed in cfg. stdout is used when none
// is configured. Already-built sinks are closed on error.
func SinksFromConfig(cfg []SinkConfig, stdout io.Writer, logger *slog.Logger) ([]Sink, error) {
	if len(cfg) == 0 {
		return []Sink{NewStdoutSink(stdout)}, nil
	}
	var out []Sink
	for _, sc := range cfg {
		var (
			s   Sink
			err error
		)
		switch sc.Type {
		case "stdout":
			s = NewStdoutSink(stdout)
		case "webhook":
			s = NewWebhookSink(sc.URL, logger)
		case "sqlite":
			s, err = NewSQLiteSink(sc.Path)
		case "metrics":
			s, err = NewMetricsSink(sc.Path, logger)
		default:
			err = fmt.Errorf("unknown sink type %q", sc.Type)
		}
		if err != nil {
			for _, built := range out {
				built.Close()
			}
			return nil, fmt.Errorf("navcontrast: sink %s: %w", sc.Type, err)
		}
		out = append(out, s)
	}
	return out, nil
}
