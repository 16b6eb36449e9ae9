package sink

import (
	"context"
	"testing"
	"time"

	"github.com/hazyhaar/navcontrast/dbopen"
	"github.com/hazyhaar/navcontrast/navcontrast/theme"
	"github.com/hazyhaar/navcontrast/observability"
)

func TestMetrics_RecordsPerReason(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(observability.Schema))
	mm := observability.NewMetricsManager(db, observability.WithFlushInterval(time.Hour))
	t.Cleanup(func() { mm.Close() })
	m := NewMetrics(mm)
	ctx := context.Background()

	measured := event("e1", theme.AtTop, true, 1000)
	measured.Verdict.Luminance = 231
	m.Send(ctx, measured)

	fb := event("e2", theme.AtTop, true, 2000)
	fb.Reason = theme.ReasonFallback
	m.Send(ctx, fb)

	sc := event("e3", theme.Scrolled, true, 3000)
	sc.Reason = theme.ReasonScroll
	m.Send(ctx, sc)

	mount := event("e4", theme.AtTop, true, 4000)
	mount.Reason = theme.ReasonMount
	m.Send(ctx, mount)

	if err := m.Close(); err != nil {
		t.Fatal(err)
	}

	lum, err := mm.Query(ctx, observability.Query{Name: observability.MetricLuminance})
	if err != nil {
		t.Fatal(err)
	}
	if len(lum) != 1 || lum[0].Value != 231 || lum[0].Labels["page_id"] != "home" {
		t.Fatalf("luminance: got %+v", lum)
	}

	scroll, err := mm.Query(ctx, observability.Query{Name: observability.MetricScrollTransition})
	if err != nil {
		t.Fatal(err)
	}
	if len(scroll) != 1 || scroll[0].Value != 1 {
		t.Fatalf("scroll transition: got %+v", scroll)
	}

	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM metrics_timeseries`).Scan(&total); err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Fatalf("datapoints: got %d, want 3 (mount is not recorded)", total)
	}
}

func TestOpenMetrics_File(t *testing.T) {
	path := t.TempDir() + "/sub/metrics.db"
	m, err := OpenMetrics(path, nil, observability.WithFlushInterval(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	fb := event("e1", theme.AtTop, true, 1000)
	fb.Reason = theme.ReasonFallback
	m.Send(context.Background(), fb)
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}

	db, err := dbopen.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM metrics_timeseries WHERE metric_name = ?`, observability.MetricFallback).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("fallback rows: got %d", n)
	}
}
