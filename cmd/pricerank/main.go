package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/pricerank/api"
	"github.com/use-agent/pricerank/config"
	"github.com/use-agent/pricerank/engine"
	"github.com/use-agent/pricerank/pipeline"
	"github.com/use-agent/pricerank/scraper"
	"github.com/use-agent/pricerank/store"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("pricerank starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"engine", cfg.Scraper.Engine,
		"dataDir", cfg.Storage.DataDir,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	if err := run(cfg, quit); err != nil {
		slog.Error("pricerank failed", "error", err)
		os.Exit(1)
	}
}

// openEngine is swapped in tests.
var openEngine = newEngine

// run serves until quit fires or the listener fails. It owns every resource
// it opens, so the browser is closed before main exits on error.
func run(cfg *config.Config, quit <-chan os.Signal) error {
	// ── 3. Initialise fetch engine ──────────────────────────────────
	eng, closeEngine, err := openEngine(cfg)
	if err != nil {
		return fmt.Errorf("initialise fetch engine: %w", err)
	}
	defer closeEngine()

	// ── 4. Initialise storage ───────────────────────────────────────
	st, err := newStore(context.Background(), cfg.Storage)
	if err != nil {
		return fmt.Errorf("initialise storage: %w", err)
	}

	// ── 5. Assemble pipeline ────────────────────────────────────────
	p := pipeline.New(
		scraper.NewFetcher(eng, cfg.Scraper.FetchTimeout),
		st,
		pipeline.Options{
			Layout: pipeline.Layout{
				URLTemplate: cfg.Scraper.URLTemplate,
				DataDir:     cfg.Storage.DataDir,
			},
			TopN:    cfg.Scraper.TopN,
			Headers: map[string]string{"User-Agent": cfg.Scraper.UserAgent},
		},
	)

	// ── 6. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(p, eng.Name(), cfg, startTime)

	// ── 7. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// ── 8. Graceful shutdown ────────────────────────────────────────
	select {
	case err := <-serveErr:
		return fmt.Errorf("HTTP server: %w", err)
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig.String())
	}

	// In-flight runs are bounded by the fetch timeout.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Scraper.FetchTimeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("pricerank stopped")
	return nil
}

// newEngine builds the configured fetch engine. The returned func releases
// its resources (the browser, for the "browser" engine).
func newEngine(cfg *config.Config) (engine.Engine, func(), error) {
	switch cfg.Scraper.Engine {
	case "", "http":
		return engine.NewHTTPEngine(), func() {}, nil
	case "browser":
		re, err := engine.NewRodEngine(engine.RodOptions{
			Headless:             cfg.Browser.Headless,
			NoSandbox:            cfg.Browser.NoSandbox,
			BrowserBin:           cfg.Browser.BrowserBin,
			MaxPages:             cfg.Browser.MaxPages,
			BlockedResourceTypes: cfg.Browser.BlockedResources,
		})
		if err != nil {
			return nil, nil, err
		}
		return re, re.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown fetch engine %q (want \"http\" or \"browser\")", cfg.Scraper.Engine)
	}
}

// newStore returns the local file store, mirrored to S3 when a bucket is set.
func newStore(ctx context.Context, cfg config.StorageConfig) (store.Store, error) {
	local := store.NewFileStore()
	if !cfg.S3.Enabled() {
		return local, nil
	}

	remote, err := store.NewS3Store(ctx, cfg.S3)
	if err != nil {
		return nil, err
	}
	slog.Info("S3 mirror enabled", "bucket", cfg.S3.Bucket, "prefix", cfg.S3.Prefix)
	return store.NewMirror(local, remote), nil
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
