// Command navcontrast keeps navbar styling legible over rendered pages.
//
// Usage:
//
//	navcontrast -config navcontrast.yaml          # theme pages from YAML config
//	navcontrast -url https://example.com          # quick single-page run (stdout sink)
//	navcontrast -image hero.png                   # classify an image file and exit
//	navcontrast -config c.yaml -http :8089        # also serve the theme API
//	navcontrast -config c.yaml -mcp-quic :9444    # also serve MCP tools over QUIC
//	navcontrast -mcp-call host:9444 -insecure     # list tools of a remote -mcp-quic
//	navcontrast -mcp-call host:9444 -tool navcontrast_theme -args '{"page_id":"home"}'
package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/navcontrast/horosafe"
	"github.com/hazyhaar/navcontrast/mcpquic"
	"github.com/hazyhaar/navcontrast/navcontrast"
)

type options struct {
	configPath string
	singleURL  string
	imagePath  string
	httpAddr   string
	mcpAddr    string
	tlsCert    string
	tlsKey     string
	callAddr   string
	callTool   string
	callArgs   string
	insecure   bool
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to navcontrast.yaml config file")
	flag.StringVar(&o.singleURL, "url", "", "theme a single URL (stdout sink)")
	flag.StringVar(&o.imagePath, "image", "", "classify a PNG/JPEG/WebP file and exit")
	flag.StringVar(&o.httpAddr, "http", "", "serve the theme API on this address (overrides http.addr)")
	flag.StringVar(&o.mcpAddr, "mcp-quic", "", "serve MCP tools over QUIC on this UDP address")
	flag.StringVar(&o.tlsCert, "tls-cert", "", "TLS certificate for -mcp-quic (self-signed if empty)")
	flag.StringVar(&o.tlsKey, "tls-key", "", "TLS key for -mcp-quic")
	flag.StringVar(&o.callAddr, "mcp-call", "", "call a remote -mcp-quic server at this address and exit")
	flag.StringVar(&o.callTool, "tool", "", "tool name for -mcp-call (lists tools if empty)")
	flag.StringVar(&o.callArgs, "args", "{}", "JSON object of tool arguments for -mcp-call")
	flag.BoolVar(&o.insecure, "insecure", false, "skip server certificate verification for -mcp-call")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, o); err != nil {
		logger.Error("navcontrast: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, o options) error {
	switch {
	case o.callAddr != "":
		return runCall(ctx, o)
	case o.imagePath != "":
		return runImage(ctx, logger, o.imagePath)
	case o.singleURL != "":
		if err := horosafe.ValidateHTTPURL(o.singleURL); err != nil {
			return err
		}
		cfg := &navcontrast.Config{Pages: []navcontrast.PageConfig{{ID: "page-1", URL: o.singleURL}}}
		return serve(ctx, logger, cfg, o)
	case o.configPath != "":
		cfg, err := navcontrast.LoadConfigFile(o.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return serve(ctx, logger, cfg, o)
	}

	fmt.Fprintln(os.Stderr, "usage: navcontrast -config <file> | -url <url> | -image <file> | -mcp-call <addr>")
	os.Exit(2)
	return nil
}

func runImage(ctx context.Context, logger *slog.Logger, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	data, err := horosafe.LimitedReadAll(f, navcontrast.MaxImageBytes)
	f.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	w := navcontrast.New(nil, logger)
	res, err := w.ClassifyImage(ctx, data)
	if err != nil {
		return fmt.Errorf("classify %s: %w", path, err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// runCall connects to a remote MCP listener, runs one tool (or lists them)
// and prints the JSON result.
func runCall(ctx context.Context, o options) error {
	var args map[string]any
	if err := json.Unmarshal([]byte(o.callArgs), &args); err != nil {
		return fmt.Errorf("-args: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	c, err := mcpquic.Dial(ctx, o.callAddr, mcpquic.ClientTLSConfig(o.insecure))
	if err != nil {
		return err
	}
	defer c.Close()

	if o.callTool == "" {
		tools, err := c.Tools(ctx)
		if err != nil {
			return err
		}
		for _, t := range tools {
			fmt.Printf("%s\t%s\n", t.Name, t.Description)
		}
		return nil
	}

	text, err := c.Call(ctx, o.callTool, args)
	if err != nil {
		return err
	}
	var out bytes.Buffer
	if json.Indent(&out, []byte(text), "", "  ") != nil {
		out.Reset()
		out.WriteString(text)
	}
	fmt.Println(out.String())
	return nil
}

func serve(ctx context.Context, logger *slog.Logger, cfg *navcontrast.Config, o options) error {
	sinks, err := navcontrast.SinksFromConfig(cfg.Sinks, os.Stdout, logger)
	if err != nil {
		return err
	}
	w := navcontrast.New(cfg, logger, sinks...)
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	defer w.Stop()

	addr := cfg.HTTP.Addr
	if o.httpAddr != "" {
		addr = o.httpAddr
	}
	var srv *http.Server
	if addr != "" {
		srv = &http.Server{
			Addr:              addr,
			Handler:           w.Router(),
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
		go func() {
			logger.Info("navcontrast: http listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("navcontrast: http server", "error", err)
			}
		}()
	}

	if o.mcpAddr != "" {
		if err := serveMCP(ctx, logger, w, o); err != nil {
			logger.Error("navcontrast: mcp quic", "error", err)
		}
	}

	<-ctx.Done()
	logger.Info("navcontrast: shutting down")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("navcontrast: http shutdown", "error", err)
		}
	}
	return nil
}

func serveMCP(ctx context.Context, logger *slog.Logger, w *navcontrast.Watcher, o options) error {
	mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "navcontrast", Version: "1.0.0"}, nil)
	w.RegisterMCP(mcpSrv)

	var (
		tlsCfg *tls.Config
		err    error
	)
	if o.tlsCert != "" && o.tlsKey != "" {
		tlsCfg, err = mcpquic.ServerTLSConfig(o.tlsCert, o.tlsKey)
	} else {
		tlsCfg, err = mcpquic.SelfSignedTLSConfig()
	}
	if err != nil {
		return err
	}

	l, err := mcpquic.NewListener(o.mcpAddr, tlsCfg, mcpSrv, logger)
	if err != nil {
		return err
	}
	go func() {
		defer l.Close()
		if err := l.Serve(ctx); err != nil && ctx.Err() == nil {
			logger.Error("navcontrast: mcp quic serve", "error", err)
		}
	}()
	return nil
}
