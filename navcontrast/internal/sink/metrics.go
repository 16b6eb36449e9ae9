package sink

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/hazyhaar/navcontrast/dbopen"
	"github.com/hazyhaar/navcontrast/navcontrast/theme"
	"github.com/hazyhaar/navcontrast/observability"
)

// Metrics turns theme events into timeseries datapoints:
//
//	navcontrast_luminance          every measured verdict
//	navcontrast_fallback           every failed cycle
//	navcontrast_scroll_transition  every scroll state change (1 scrolled, 0 at top)
//
// Datapoints are labelled with page_id. Mount events are not recorded.
type Metrics struct {
	mm *observability.MetricsManager
	db *sql.DB // owned, nil when borrowed
}

// OpenMetrics opens (or creates) the metrics database at path.
func OpenMetrics(path string, logger *slog.Logger, opts ...observability.MetricsOption) (*Metrics, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(observability.Schema))
	if err != nil {
		return nil, err
	}
	if logger != nil {
		opts = append([]observability.MetricsOption{observability.WithLogger(logger)}, opts...)
	}
	return &Metrics{mm: observability.NewMetricsManager(db, opts...), db: db}, nil
}

// NewMetrics records into an existing manager. Close flushes it but leaves
// the manager's database open.
func NewMetrics(mm *observability.MetricsManager) *Metrics {
	return &Metrics{mm: mm}
}

func (m *Metrics) Send(_ context.Context, ev theme.Event) error {
	ts := time.UnixMilli(ev.Timestamp)
	if ev.Timestamp == 0 {
		ts = time.Now()
	}
	labels := map[string]string{"page_id": ev.PageID}

	switch ev.Reason {
	case theme.ReasonMeasured:
		m.mm.Record(&observability.Metric{
			Name: observability.MetricLuminance, Timestamp: ts,
			Value: ev.Verdict.Luminance, Labels: labels, Unit: "luminance",
		})
	case theme.ReasonFallback:
		m.mm.Record(&observability.Metric{
			Name: observability.MetricFallback, Timestamp: ts,
			Value: 1, Labels: labels, Unit: "count",
		})
	case theme.ReasonScroll:
		v := 0.0
		if ev.State == theme.Scrolled {
			v = 1
		}
		m.mm.Record(&observability.Metric{
			Name: observability.MetricScrollTransition, Timestamp: ts,
			Value: v, Labels: labels, Unit: "state",
		})
	}
	return nil
}

// Close flushes pending datapoints.
func (m *Metrics) Close() error {
	if m.db == nil {
		m.mm.Flush()
		return nil
	}
	m.mm.Close()
	return m.db.Close()
}
