package navcontrast

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/navcontrast/kit"
)

// RegisterMCP registers navcontrast tools on an MCP server.
func (w *Watcher) RegisterMCP(srv *mcp.Server) {
	ep := w.endpoints()
	pageID := map[string]any{"type": "string", "description": "Watched page ID"}

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "navcontrast_pages",
		Description: "List watched pages with their current navbar theme and trigger counters.",
		InputSchema: kit.InputSchema(map[string]any{}, nil),
	}, ep.pages, decodeArgs[struct{}])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "navcontrast_theme",
		Description: "Get the current navbar theme of a page: scroll state, light/dark verdict and styling.",
		InputSchema: kit.InputSchema(map[string]any{"page_id": pageID}, []string{"page_id"}),
	}, ep.theme, decodeArgs[pageReq])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "navcontrast_scroll",
		Description: "Scroll a page to a vertical offset in CSS pixels. Offsets past the scroll threshold switch the navbar to its scrolled styling.",
		InputSchema: kit.InputSchema(map[string]any{
			"page_id": pageID,
			"y":       map[string]any{"type": "integer", "description": "Vertical offset"},
		}, []string{"page_id", "y"}),
	}, ep.scroll, decodeArgs[scrollReq])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "navcontrast_classify",
		Description: "Classify the top band of an image (base64 PNG, JPEG or WebP) as light or dark.",
		InputSchema: kit.InputSchema(map[string]any{
			"image": map[string]any{"type": "string", "description": "Base64-encoded image"},
		}, []string{"image"}),
	}, ep.classify, decodeArgs[classifyReq])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "navcontrast_history",
		Description: "List recorded theme events of a page, newest first. Requires a sqlite sink.",
		InputSchema: kit.InputSchema(map[string]any{
			"page_id": map[string]any{"type": "string", "description": "Page ID"},
			"limit":   map[string]any{"type": "integer", "description": "Max events (default 50)"},
		}, []string{"page_id"}),
	}, ep.history, decodeArgs[historyReq])
}

// decodeArgs unmarshals tool arguments into a fresh T.
func decodeArgs[T any](req *mcp.CallToolRequest) (any, error) {
	var r T
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
	}
	return &r, nil
}
