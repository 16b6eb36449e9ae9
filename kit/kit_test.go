package kit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestChain_Order(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next Endpoint) Endpoint {
			return func(ctx context.Context, req any) (any, error) {
				order = append(order, name+"_before")
				resp, err := next(ctx, req)
				order = append(order, name+"_after")
				return resp, err
			}
		}
	}

	base := func(_ context.Context, _ any) (any, error) {
		order = append(order, "endpoint")
		return "ok", nil
	}

	chained := Chain(mw("a"), mw("b"), mw("c"))(base)
	resp, err := chained(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp != "ok" {
		t.Fatalf("response: got %v", resp)
	}

	expected := []string{"a_before", "b_before", "c_before", "endpoint", "c_after", "b_after", "a_after"}
	if len(order) != len(expected) {
		t.Fatalf("order length: got %d, want %d", len(order), len(expected))
	}
	for i, v := range expected {
		if order[i] != v {
			t.Fatalf("order[%d]: got %q, want %q", i, order[i], v)
		}
	}
}

func TestChain_ErrorPropagation(t *testing.T) {
	errFail := errors.New("fail")
	base := func(_ context.Context, _ any) (any, error) {
		return nil, errFail
	}

	noop := func(next Endpoint) Endpoint { return next }
	chained := Chain(noop)(base)

	_, err := chained(context.Background(), nil)
	if !errors.Is(err, errFail) {
		t.Fatalf("error: got %v, want %v", err, errFail)
	}
}

func TestContext_Transport_Default(t *testing.T) {
	ctx := context.Background()
	if v := GetTransport(ctx); v != "http" {
		t.Fatalf("default transport: got %q, want 'http'", v)
	}
}

func TestContext_Transport_Set(t *testing.T) {
	ctx := WithTransport(context.Background(), "mcp")
	if v := GetTransport(ctx); v != "mcp" {
		t.Fatalf("transport: got %q", v)
	}
}

func TestContext_RequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req_abc")
	if v := GetRequestID(ctx); v != "req_abc" {
		t.Fatalf("request_id: got %q", v)
	}
}

func TestContext_EmptyDefaults(t *testing.T) {
	if v := GetRequestID(context.Background()); v != "" {
		t.Fatalf("request_id default: got %q", v)
	}
}

func TestLogging_PassesThrough(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	errFail := errors.New("boom")

	ok := Logging(logger, "navcontrast_theme")(func(context.Context, any) (any, error) { return 42, nil })
	resp, err := ok(WithRequestID(context.Background(), "req_1"), nil)
	if err != nil || resp != 42 {
		t.Fatalf("got %v, %v", resp, err)
	}
	if !strings.Contains(buf.String(), "endpoint=navcontrast_theme") || !strings.Contains(buf.String(), "request_id=req_1") {
		t.Fatalf("log: %s", buf.String())
	}

	bad := Logging(logger, "navcontrast_scroll")(func(context.Context, any) (any, error) { return nil, errFail })
	if _, err := bad(context.Background(), nil); !errors.Is(err, errFail) {
		t.Fatalf("error: got %v", err)
	}
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Fatalf("failure not logged at warn: %s", buf.String())
	}
}

func TestRecover_PanicBecomesError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	e := Chain(Logging(logger, "navcontrast_theme"), Recover())(func(context.Context, any) (any, error) {
		panic("nil page")
	})
	resp, err := e(context.Background(), nil)
	if !errors.Is(err, ErrPanic) {
		t.Fatalf("error: got %v, want ErrPanic", err)
	}
	if resp != nil {
		t.Fatalf("response: got %v", resp)
	}
	if !strings.Contains(err.Error(), "nil page") {
		t.Fatalf("panic value lost: %v", err)
	}
	if !strings.Contains(buf.String(), "level=WARN") {
		t.Fatalf("recovered panic not logged: %s", buf.String())
	}
}

func TestRecover_NoPanic(t *testing.T) {
	e := Recover()(func(context.Context, any) (any, error) { return "ok", nil })
	if resp, err := e(context.Background(), nil); err != nil || resp != "ok" {
		t.Fatalf("got %v, %v", resp, err)
	}
}
