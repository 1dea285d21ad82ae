package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"pricetracker/internal/api"
	"pricetracker/internal/catalog"
	"pricetracker/internal/config"
	"pricetracker/internal/coordinator"
	"pricetracker/internal/extract"
	"pricetracker/internal/fetcher"
	"pricetracker/internal/freshness"
	"pricetracker/internal/history"
	"pricetracker/internal/notify"
	"pricetracker/internal/quotecache"
	"pricetracker/internal/ratelimit"
	"pricetracker/internal/refresher"
)

func main() {
	once := flag.Bool("once", false, "run a single refresh pass and exit")
	flag.Parse()

	_ = godotenv.Load() // load .env if present; not fatal if missing

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level, _ := cfg.SlogLevel()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Graceful shutdown on interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := catalog.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	loc, _ := cfg.Location()
	policy := freshness.NewPolicy(loc)

	registry := extract.NewRegistry(
		extract.NewPricewatch(cfg.RetailerBaseURL, cfg.HistoryURLTemplate),
	)

	var notifier notify.Notifier = notify.LogNotifier{Logger: logger}
	if cfg.SMTPHost != "" {
		notifier = notify.NewSMTPNotifier(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.AlertFrom,
			To:       cfg.AlertRecipients(),
			Timeout:  cfg.SMTPTimeout,
		})
	}

	f := fetcher.New(registry, fetcher.Config{
		MaxAttempts:      cfg.FetchMaxAttempts,
		BackoffIncrement: cfg.FetchBackoffIncrement,
		AttemptTimeout:   cfg.FetchAttemptTimeout,
		Concurrency:      cfg.FetchConcurrency,
		UserAgent:        cfg.UserAgent,
	},
		fetcher.WithLimiter(ratelimit.New(cfg.FetchRequestsPerSecond)),
		fetcher.WithNotifier(notifier),
		fetcher.WithLogger(logger),
	)

	ref := refresher.New(store, f, policy, logger)
	coord := coordinator.New(ref, cfg.RefreshInterval, logger)

	if *once {
		if _, err := coord.RunOnce(ctx); err != nil {
			log.Fatalf("Refresh failed: %v", err)
		}
		return
	}

	h := &api.Handler{
		Fetcher:   f,
		History:   history.NewClient(cfg.HistoryField, cfg.UserAgent, cfg.FetchAttemptTimeout),
		Registry:  registry,
		Refresher: ref,
		Health:    store,
		Logger:    logger,
	}

	if cfg.RedisAddr != "" {
		rdb, err := quotecache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Warn("quote cache disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			defer rdb.Close()
			h.Cache = quotecache.New(rdb, policy)
		}
	}

	// Scheduler runs until ctx is cancelled
	wg := &sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := coord.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler stopped", "error", err)
		}
	}()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server ListenAndServe: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}

	wg.Wait()
	logger.Info("graceful shutdown complete")
}
