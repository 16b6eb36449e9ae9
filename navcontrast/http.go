package navcontrast

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hazyhaar/navcontrast/idgen"
	"github.com/hazyhaar/navcontrast/kit"
	"github.com/hazyhaar/navcontrast/navcontrast/internal/capture"
	"github.com/hazyhaar/navcontrast/navcontrast/internal/classify"
)

// MaxImageBytes bounds images passed to ClassifyImage over HTTP and the CLI.
const MaxImageBytes = 16 << 20

// Router returns the theme API. Every route except /health runs through the
// same endpoints as the MCP tools.
//
//	GET  /health
//	GET  /pages                          {"pages": [...]}
//	GET  /pages/{pageID}/theme
//	GET  /pages/{pageID}/stats
//	GET  /pages/{pageID}/history?limit=N {"events": [...]}
//	POST /pages/{pageID}/scroll          {"y": 120}
//	POST /classify                       raw PNG/JPEG/WebP body
func (w *Watcher) Router() http.Handler {
	ep := w.endpoints()
	r := chi.NewRouter()
	r.Use(requestContext)

	r.Get("/health", func(rw http.ResponseWriter, _ *http.Request) {
		writeJSON(rw, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/pages", func(rw http.ResponseWriter, req *http.Request) {
		serve(rw, req, ep.pages, nil, http.StatusOK)
	})

	r.Route("/pages/{pageID}", func(r chi.Router) {
		r.Get("/theme", func(rw http.ResponseWriter, req *http.Request) {
			serve(rw, req, ep.theme, &pageReq{PageID: chi.URLParam(req, "pageID")}, http.StatusOK)
		})

		r.Get("/stats", func(rw http.ResponseWriter, req *http.Request) {
			serve(rw, req, ep.stats, &pageReq{PageID: chi.URLParam(req, "pageID")}, http.StatusOK)
		})

		r.Get("/history", func(rw http.ResponseWriter, req *http.Request) {
			limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
			serve(rw, req, ep.history, &historyReq{PageID: chi.URLParam(req, "pageID"), Limit: limit}, http.StatusOK)
		})

		r.Post("/scroll", func(rw http.ResponseWriter, req *http.Request) {
			in := &scrollReq{}
			if err := json.NewDecoder(req.Body).Decode(in); err != nil {
				writeJSON(rw, http.StatusBadRequest, map[string]string{"error": "invalid body: " + err.Error()})
				return
			}
			in.PageID = chi.URLParam(req, "pageID")
			serve(rw, req, ep.scroll, in, http.StatusAccepted)
		})
	})

	r.Post("/classify", func(rw http.ResponseWriter, req *http.Request) {
		data, err := io.ReadAll(http.MaxBytesReader(rw, req.Body, MaxImageBytes))
		if err != nil {
			writeJSON(rw, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
			return
		}
		serve(rw, req, ep.classify, &classifyReq{raw: data}, http.StatusOK)
	})

	return r
}

// serve runs e with the request context and writes its result with code.
func serve(rw http.ResponseWriter, req *http.Request, e kit.Endpoint, in any, code int) {
	resp, err := e(req.Context(), in)
	if err != nil {
		writeError(rw, err)
		return
	}
	writeJSON(rw, code, resp)
}

// requestContext tags the request context for kit middlewares and echoes
// the request ID.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		id := req.Header.Get("X-Request-ID")
		if id == "" {
			id = idgen.New()
		}
		rw.Header().Set("X-Request-ID", id)
		ctx := kit.WithRequestID(kit.WithTransport(req.Context(), "http"), id)
		next.ServeHTTP(rw, req.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrUnknownPage), errors.Is(err, ErrNoHistory):
		code = http.StatusNotFound
	case errors.Is(err, capture.ErrCaptureFailure), errors.Is(err, classify.ErrInsufficientSamples):
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
