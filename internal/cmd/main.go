package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"pulsefeed/internal/config"
	"pulsefeed/internal/fetchcache"
	"pulsefeed/internal/fetcher"
	"pulsefeed/internal/server"
	"pulsefeed/internal/source"
	"pulsefeed/internal/storage"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "pulsefeed",
	})

	cfg := config.Get()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", "err", err)
	}

	db, err := sqlx.Connect("postgres", cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("failed to connect to db", "err", err)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	articleStorage := storage.NewArticleStorage(db)
	if err := articleStorage.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to ensure schema", "err", err)
	}

	var (
		cache   = fetchcache.New(cfg.CacheTTL, cfg.RequestTimeout, logger)
		sources = source.All(source.Deps{
			Cache:   cache,
			Timeout: cfg.RequestTimeout,
			Logger:  logger,
		})
		f = fetcher.New(
			articleStorage,
			sources,
			cfg.RetentionWindow,
			cfg.ScrapeInterval,
			logger,
		)
		srv = server.New(articleStorage, f, cache, server.Options{
			AdminUsername: cfg.AdminUsername,
			AdminPassword: cfg.AdminPassword,
			CronSecret:    cfg.CronSecret,
			Window:        cfg.RetentionWindow,
			FeedLimit:     cfg.FeedLimit,
			MaxPerSource:  cfg.MaxPerSource,
		}, logger)
	)

	// The cache sweep is explicit and host-scheduled; the scrape cadence
	// here backs up the external cron hitting the trigger endpoint.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every 15m", func() { cache.Sweep() }); err != nil {
		logger.Fatal("failed to schedule cache sweep", "err", err)
	}
	if _, err := scheduler.AddFunc("@every "+cfg.ScrapeInterval.String(), func() {
		f.RunAll(ctx)
	}); err != nil {
		logger.Fatal("failed to schedule scrape", "err", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", "err", err)
		}
	}()

	logger.Info("listening", "addr", cfg.ListenAddr, "sources", len(sources))

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", "err", err)
	}

	logger.Info("server has stopped")
}
