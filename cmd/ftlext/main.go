// Command ftlext runs the Fishtank Live enhancements against a browser tab
// and serves settings and activity logs over HTTP and MCP.
//
// Usage:
//
//	ftlext                                # defaults, visible Chrome, API on 127.0.0.1:8917
//	ftlext -config ftlext.yaml            # YAML configuration
//	ftlext -url https://www.fishtank.live -record session.jsonl
package main

import (
	"context"
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

	"github.com/hazyhaar/ftlext/activitylog"
	"github.com/hazyhaar/ftlext/api"
	"github.com/hazyhaar/ftlext/bridge"
	"github.com/hazyhaar/ftlext/config"
	"github.com/hazyhaar/ftlext/eventloop"
	"github.com/hazyhaar/ftlext/kvstore"
	"github.com/hazyhaar/ftlext/mutation"
	"github.com/hazyhaar/ftlext/recipes"
	"github.com/hazyhaar/ftlext/session"
	"github.com/hazyhaar/ftlext/settings"
	"github.com/hazyhaar/ftlext/telemetry"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to ftlext.yaml")
	pageURL := flag.String("url", "", "host page URL (default "+config.DefaultURL+")")
	addr := flag.String("addr", "", "API listen address, - to disable (default "+config.DefaultAddr+")")
	dbPath := flag.String("db", "", "SQLite store for settings and logs")
	record := flag.String("record", "", "append page snapshots and batches to this JSON-lines file")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	debug := flag.Bool("debug", false, "log every chat message decision")
	headless := flag.Bool("headless", false, "hide the local Chrome window")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "url":
			cfg.URL = *pageURL
		case "addr":
			cfg.Addr = *addr
		case "db":
			cfg.Store = *dbPath
		case "record":
			cfg.Record = *record
		case "log-level":
			cfg.LogLevel = *logLevel
		case "debug":
			cfg.Debug = *debug
		case "headless":
			cfg.Browser.Headless = *headless
		}
	})

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg); err != nil {
		logger.Error("ftlext: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	telemetry.Init()

	store, err := kvstore.OpenSQLite(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	st := settings.Load(ctx, store, logger)
	logs := activitylog.New(store, st, activitylog.WithLogger(logger))
	loop := eventloop.New(eventloop.WithLogger(logger))

	cfg.Browser.Logger = logger
	br := bridge.New(bridge.NewManager(cfg.Browser), cfg.URL)

	var opts []session.Option
	if cfg.Record != "" {
		f, err := os.OpenFile(cfg.Record, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open recording: %w", err)
		}
		defer f.Close()
		opts = append(opts, session.WithRecorder(mutation.NewRecorder(f)))
		logger.Info("ftlext: recording session", "path", cfg.Record)
	}

	runner := session.NewRunner(ctx, loop, br, session.Deps{
		Settings: st,
		Logs:     logs,
		Features: cfg.Features,
		Debug:    cfg.Debug,
		Logger:   logger,
		OnSettings: func() {
			logger.Info("ftlext: settings requested", "url", "http://"+cfg.Addr+"/api/settings")
		},
	}, opts...)

	go func() {
		book, err := recipes.NewLoader(cfg.Recipes, logger).Load(ctx)
		if err != nil {
			logger.Error("ftlext: recipes unavailable", "error", err)
			return
		}
		runner.SetRecipes(book)
	}()

	var srv *http.Server
	if cfg.Addr != "-" {
		apiSrv := api.New(runner, st, logs, logger)
		var mcpSrv *mcp.Server
		if cfg.MCP {
			mcpSrv = mcp.NewServer(&mcp.Implementation{Name: "ftlext", Version: version}, nil)
			apiSrv.RegisterMCP(mcpSrv)
		}
		srv = &http.Server{
			Addr:              cfg.Addr,
			Handler:           apiSrv.Router(mcpSrv),
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      60 * time.Second,
		}
		go func() {
			logger.Info("ftlext: api listening", "addr", cfg.Addr, "mcp", cfg.MCP)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("ftlext: api server", "error", err)
			}
		}()
	}

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("ftlext: event loop", "error", err)
		}
	}()

	logger.Info("ftlext: starting", "url", cfg.URL, "version", version)
	bridgeErr := br.Run(ctx, runner)
	runner.Close()
	cancel()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("ftlext: api shutdown", "error", err)
		}
	}
	<-loopDone
	logger.Info("ftlext: stopped")
	return bridgeErr
}
