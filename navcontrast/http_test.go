package navcontrast

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/hazyhaar/navcontrast/navcontrast/theme"
)

func TestHTTP_ThemeAndScroll(t *testing.T) {
	evs := make(events, 64)
	w := newWatcher(t, evs.sink())
	attach(t, w, "home", fill(200, 100, white))
	evs.next(t, "home", theme.ReasonMeasured)

	srv := httptest.NewServer(w.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/pages/home/theme")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	var ev theme.Event
	if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Reason != theme.ReasonMeasured || !ev.Verdict.IsLight {
		t.Fatalf("theme: got %+v", ev)
	}

	resp2, err := http.Post(srv.URL+"/pages/home/scroll", "application/json", strings.NewReader(`{"y": 400}`))
	if err != nil {
		t.Fatal(err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusAccepted {
		t.Fatalf("scroll status: %d", resp2.StatusCode)
	}
	if sc := evs.next(t, "home", theme.ReasonScroll); sc.State != theme.Scrolled {
		t.Fatalf("scroll: got %+v", sc)
	}
}

func TestHTTP_Errors(t *testing.T) {
	w := newWatcher(t)
	srv := httptest.NewServer(w.Router())
	defer srv.Close()

	cases := []struct {
		method, path, body string
		want               int
	}{
		{"GET", "/health", "", http.StatusOK},
		{"GET", "/pages", "", http.StatusOK},
		{"GET", "/pages/ghost/theme", "", http.StatusNotFound},
		{"GET", "/pages/ghost/stats", "", http.StatusNotFound},
		{"GET", "/pages/ghost/history", "", http.StatusNotFound},
		{"POST", "/pages/ghost/scroll", `{"y":1}`, http.StatusNotFound},
		{"POST", "/pages/ghost/scroll", `{`, http.StatusBadRequest},
		{"POST", "/classify", "garbage", http.StatusUnprocessableEntity},
	}
	for _, c := range cases {
		req, _ := http.NewRequest(c.method, srv.URL+c.path, strings.NewReader(c.body))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != c.want {
			t.Errorf("%s %s: got %d, want %d", c.method, c.path, resp.StatusCode, c.want)
		}
	}
}

func TestHTTP_Classify(t *testing.T) {
	w := newWatcher(t)
	srv := httptest.NewServer(w.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/classify", "image/png", bytes.NewReader(encodePNG(t, fill(100, 100, black))))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var res Classification
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Verdict.IsLight || res.Theme.TextClass != "text-white" {
		t.Fatalf("classify: got %+v", res)
	}
}

func TestHTTP_SharesEndpointLayer(t *testing.T) {
	var buf syncBuffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	w := New(testConfig(), logger)
	t.Cleanup(w.Stop)
	attach(t, w, "home", fill(200, 100, white))

	srv := httptest.NewServer(w.Router())
	defer srv.Close()

	req, _ := http.NewRequest("GET", srv.URL+"/pages/ghost/theme", nil)
	req.Header.Set("X-Request-ID", "req-ghost")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Request-ID"); got != "req-ghost" {
		t.Fatalf("X-Request-ID: got %q", got)
	}

	resp2, err := http.Get(srv.URL + "/pages")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	var pages pagesResp
	if err := json.NewDecoder(resp2.Body).Decode(&pages); err != nil {
		t.Fatal(err)
	}
	if len(pages.Pages) != 1 || pages.Pages[0].ID != "home" {
		t.Fatalf("pages: got %+v", pages)
	}

	out := buf.String()
	for _, want := range []string{"endpoint=navcontrast_theme", "transport=http", "request_id=req-ghost", "endpoint=navcontrast_pages"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

// syncBuffer is a bytes.Buffer safe for the watcher's logging goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
