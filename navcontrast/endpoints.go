package navcontrast

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/hazyhaar/navcontrast/kit"
	"github.com/hazyhaar/navcontrast/navcontrast/theme"
)

// Operations shared by the HTTP API and the MCP tools. Each one takes a
// pointer to its request type and is wrapped by Watcher.endpoint.

type pageReq struct {
	PageID string `json:"page_id"`
}

type scrollReq struct {
	PageID string `json:"page_id"`
	Y      int    `json:"y"`
}

type historyReq struct {
	PageID string `json:"page_id"`
	Limit  int    `json:"limit"`
}

// classifyReq carries raw image bytes (HTTP body) or base64 (MCP).
type classifyReq struct {
	Image string `json:"image"`
	raw   []byte
}

type pagesResp struct {
	Pages []PageStatus `json:"pages"`
}

type historyResp struct {
	Events []theme.Event `json:"events"`
}

type scrollResp struct {
	PageID string `json:"page_id"`
	Y      int    `json:"y"`
}

type endpointSet struct {
	pages, theme, stats, scroll, classify, history kit.Endpoint
}

// endpoint wraps e with the middlewares every transport shares.
func (w *Watcher) endpoint(name string, e kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.Logging(w.logger, name), kit.Recover())(e)
}

func (w *Watcher) endpoints() endpointSet {
	return endpointSet{
		pages: w.endpoint("navcontrast_pages", func(context.Context, any) (any, error) {
			return pagesResp{Pages: w.Pages()}, nil
		}),
		theme: w.endpoint("navcontrast_theme", func(_ context.Context, req any) (any, error) {
			return w.Theme(req.(*pageReq).PageID)
		}),
		stats: w.endpoint("navcontrast_stats", func(_ context.Context, req any) (any, error) {
			return w.Stats(req.(*pageReq).PageID)
		}),
		scroll: w.endpoint("navcontrast_scroll", func(ctx context.Context, req any) (any, error) {
			r := req.(*scrollReq)
			if err := w.ScrollTo(ctx, r.PageID, r.Y); err != nil {
				return nil, err
			}
			return scrollResp{PageID: r.PageID, Y: r.Y}, nil
		}),
		classify: w.endpoint("navcontrast_classify", func(ctx context.Context, req any) (any, error) {
			r := req.(*classifyReq)
			data := r.raw
			if data == nil {
				var err error
				if data, err = base64.StdEncoding.DecodeString(r.Image); err != nil {
					return nil, fmt.Errorf("image: %w", err)
				}
			}
			return w.ClassifyImage(ctx, data)
		}),
		history: w.endpoint("navcontrast_history", func(ctx context.Context, req any) (any, error) {
			r := req.(*historyReq)
			evs, err := w.History(ctx, r.PageID, r.Limit)
			if err != nil {
				return nil, err
			}
			return historyResp{Events: evs}, nil
		}),
	}
}
