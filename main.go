package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"home-scraper/api"
	"home-scraper/config"
	"home-scraper/scraper/zillow"
	"home-scraper/services"
	"home-scraper/storage"
	"home-scraper/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLoggerWith(utils.LoggerOptions{
		Level: cfg.LogLevel,
		JSON:  strings.EqualFold(cfg.LogFormat, "json"),
	})

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}

	logger.Info("=== Home Scraping Service starting ===")
	logger.Info("Config: backend %s | fetch %s | attempts %d | delay %v | window %v",
		cfg.StorageBackend, cfg.FetchMode, cfg.MaxAttempts, cfg.RetryDelay, cfg.RateLimitWindow)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open %s store: %v", cfg.StorageBackend, err)
		os.Exit(1)
	}
	defer store.Close()

	var fetcher zillow.Fetcher
	if cfg.FetchMode == "browser" {
		fetcher = zillow.NewBrowserFetcher(cfg.ChromeBin, cfg.FetchTimeout, logger)
	} else {
		fetcher = zillow.NewHTTPFetcher(cfg.FetchTimeout, logger)
	}

	resolver, err := zillow.NewResolver(cfg.SiteBaseURL, fetcher, utils.NewTimeSeededRand(),
		zillow.ResolverOptions{Attempts: cfg.ResolveAttempts, MaxIndexPage: cfg.MaxIndexPage}, logger)
	if err != nil {
		logger.Error("Failed to build resolver: %v", err)
		os.Exit(1)
	}

	orchestrator := services.NewOrchestrator(resolver, fetcher, services.NewExtractor(logger), store, logger,
		services.OrchestratorOptions{MaxAttempts: cfg.MaxAttempts, Delay: cfg.RetryDelay})

	server := api.NewServer(cfg.HTTPAddr, api.Deps{
		Scraper:     orchestrator,
		Limiter:     utils.NewRateLimiter(cfg.RateLimitWindow),
		LoadCatalog: services.LoadCatalog,
		Market:      cfg.Market,
		MaxAttempts: cfg.MaxAttempts,
	}, logger)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown error: %v", err)
		}
	}()

	if err := server.Start(); err != nil {
		logger.Error("Server error: %v", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

// openStore connects the configured backend and wraps it with the CSV export when enabled.
func openStore(ctx context.Context, cfg *config.Config, logger *utils.Logger) (storage.PropertyStore, error) {
	var (
		store storage.PropertyStore
		err   error
	)
	switch cfg.StorageBackend {
	case "postgres":
		store, err = storage.NewPostgresStore(ctx, cfg.DSN())
	default:
		store, err = storage.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDB)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CSVExportPath == "" {
		return store, nil
	}
	w, err := storage.NewCSVWriter(cfg.CSVExportPath)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	logger.Info("Exporting stored properties to %s", cfg.CSVExportPath)
	return storage.NewExportingStore(store, w, func(err error) {
		logger.Warn("CSV export failed: %v", err)
	}), nil
}
