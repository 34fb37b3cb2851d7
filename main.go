// entry point of the application
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"konbata/internal/config"
	"konbata/internal/depmanager"
	"konbata/internal/downloader"
	"konbata/internal/fetcher"
	httprouter "konbata/internal/infrastructure/delivery/http"
	"konbata/internal/observability"
	"konbata/internal/orchestrator"
	"konbata/internal/proxy"
	"konbata/internal/selection"
	"konbata/internal/thumb"
	"konbata/internal/ws"
	httpserver "konbata/pkg/http/server"
	"konbata/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.New()
	if err != nil {
		slog.Error("config new", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	log, err := logger.New(&logger.Options{
		AddSource: true,
		Level:     cfg.App.LogLevel,
	})
	if err != nil {
		slog.WarnContext(ctx, "logger level invalid; defaulting to info", slog.Any("error", err))
	}

	metrics := observability.New()

	depMgr := depmanager.New(log, cfg)

	log.InfoContext(ctx, "checking if yt-dlp and ffmpeg are installed. it may take some time...")

	depMgr.Start(ctx)

	proxyMgr, err := proxy.New(cfg.Proxy.List, cfg.Proxy.HealthCheck, cfg.Proxy.HealthTimeout)
	if err != nil {
		log.ErrorContext(ctx, "proxy manager init", slog.Any("error", err))
		stop()
		os.Exit(1)
	}

	if proxyMgr.Count() > 0 {
		log.InfoContext(ctx, "proxy manager initialized", slog.Int("proxy_count", proxyMgr.Count()))
	}

	fetch := fetcher.New(log, cfg, depMgr, proxyMgr, metrics)
	thumbs := thumb.New(log, cfg.Fetch.ThumbnailTimeout, metrics)
	dl := downloader.NewYTdlp(log, cfg, depMgr, proxyMgr, metrics)
	sel := selection.New(log)

	orc := orchestrator.New(log, cfg, fetch, dl, thumbs, metrics)

	hub := ws.NewHub(log, orc.Events(), metrics)
	go hub.Run(ctx)

	router := httprouter.New(log, cfg, fetch, sel, orc, hub, metrics)

	httpSrv := httpserver.New(router, httpserver.Options{
		Addr:            cfg.HTTP.Port,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	})

	log.InfoContext(ctx, "konbata started", slog.String("port", cfg.HTTP.Port))

	// Waiting for shutdown signal
	<-ctx.Done()

	err = httpSrv.Shutdown()
	if err != nil {
		log.Error(err.Error())
	}

	log.InfoContext(ctx, "konbata shut down gracefully")
}
