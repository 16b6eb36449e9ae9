package navcontrast

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/navcontrast/navcontrast/theme"
)

var testMCPImpl = &mcp.Implementation{Name: "navcontrast-test", Version: "0.1.0"}

func mcpSession(t *testing.T, w *Watcher) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	w.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCall(t *testing.T, session *mcp.ClientSession, name string, args any) (string, bool) {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text, result.IsError
}

func TestMCP_ThemeAndScroll(t *testing.T) {
	evs := make(events, 64)
	w := newWatcher(t, evs.sink())
	attach(t, w, "home", fill(200, 100, black))
	evs.next(t, "home", theme.ReasonMeasured)
	session := mcpSession(t, w)

	text, isErr := mcpCall(t, session, "navcontrast_theme", map[string]any{"page_id": "home"})
	if isErr {
		t.Fatalf("theme: %s", text)
	}
	var ev theme.Event
	if err := json.Unmarshal([]byte(text), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Verdict.IsLight || ev.State != theme.AtTop {
		t.Fatalf("theme: got %+v", ev)
	}

	if text, isErr := mcpCall(t, session, "navcontrast_scroll", map[string]any{"page_id": "home", "y": 64}); isErr {
		t.Fatalf("scroll: %s", text)
	}
	if sc := evs.next(t, "home", theme.ReasonScroll); !sc.Theme.UseLightBackgroundStyling {
		t.Fatalf("scrolled: got %+v", sc)
	}

	text, _ = mcpCall(t, session, "navcontrast_pages", map[string]any{})
	var pages struct {
		Pages []PageStatus `json:"pages"`
	}
	if err := json.Unmarshal([]byte(text), &pages); err != nil {
		t.Fatal(err)
	}
	if len(pages.Pages) != 1 || pages.Pages[0].ID != "home" {
		t.Fatalf("pages: %s", text)
	}
}

func TestMCP_UnknownPageIsToolError(t *testing.T) {
	session := mcpSession(t, newWatcher(t))
	text, isErr := mcpCall(t, session, "navcontrast_theme", map[string]any{"page_id": "ghost"})
	if !isErr || !strings.Contains(text, "unknown page") {
		t.Fatalf("got %q (error=%v)", text, isErr)
	}
}

func TestMCP_Classify(t *testing.T) {
	session := mcpSession(t, newWatcher(t))
	img := base64.StdEncoding.EncodeToString(encodePNG(t, fill(120, 90, white)))

	text, isErr := mcpCall(t, session, "navcontrast_classify", map[string]any{"image": img})
	if isErr {
		t.Fatalf("classify: %s", text)
	}
	var res Classification
	if err := json.Unmarshal([]byte(text), &res); err != nil {
		t.Fatal(err)
	}
	if !res.Verdict.IsLight || res.Samples == 0 {
		t.Fatalf("classify: got %+v", res)
	}

	if _, isErr := mcpCall(t, session, "navcontrast_classify", map[string]any{"image": "%%%"}); !isErr {
		t.Fatal("bad base64: expected tool error")
	}
}

func TestMCP_HistoryWithoutSink(t *testing.T) {
	session := mcpSession(t, newWatcher(t))
	if _, isErr := mcpCall(t, session, "navcontrast_history", map[string]any{"page_id": "home"}); !isErr {
		t.Fatal("expected tool error without sqlite sink")
	}
}
