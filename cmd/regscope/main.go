package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"

	"github.com/regscope/regscope/internal/api"
	"github.com/regscope/regscope/internal/attachments"
	"github.com/regscope/regscope/internal/cache"
	"github.com/regscope/regscope/internal/config"
	"github.com/regscope/regscope/internal/jobs"
	"github.com/regscope/regscope/internal/logger"
	"github.com/regscope/regscope/internal/middleware"
	"github.com/regscope/regscope/internal/pipeline"
	"github.com/regscope/regscope/internal/progress"
	"github.com/regscope/regscope/internal/prompts"
	"github.com/regscope/regscope/internal/remote"
	"github.com/regscope/regscope/internal/scrapers"
	"github.com/regscope/regscope/internal/storage"
	"github.com/regscope/regscope/internal/store"
)

func main() {
	cfg := config.Load()

	logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: cfg.LogFile,
		Pretty: cfg.Env == "development",
	})
	log := logger.Get()

	ctx := context.Background()

	recordStore, err := store.NewSQLiteStore(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot open record store")
	}
	defer recordStore.Close()

	var urlCache cache.Cache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.RedisURL, cfg.RedisPrefix, cfg.CacheTTL)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, using in-memory cache")
			urlCache = cache.NewMemoryCache(cfg.CacheTTL)
		} else {
			urlCache = redisCache
		}
	} else {
		urlCache = cache.NewMemoryCache(cfg.CacheTTL)
	}
	defer urlCache.Close()

	scrapeClient := remote.NewScrapeClient(cfg.FirecrawlBaseURL, cfg.FirecrawlAPIKey, cfg.ScrapeTimeout, cfg.RenderTimeout)
	completionClient := remote.NewCompletionClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAITimeout)
	promptStore := prompts.NewStore(cfg)

	mirror, err := storage.NewR2Client(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Object storage mirror disabled")
	}
	var dlMirror attachments.Mirror
	if mirror != nil {
		dlMirror = mirror
	}
	downloader := attachments.NewDownloader(cfg.AttachmentDir, dlMirror)

	registry := scrapers.NewRegistry()
	if src, ok := cfg.Source("fcc"); ok {
		registry.Register(scrapers.NewFCCScraper(src.ListingURL))
	}
	if src, ok := cfg.Source("ofcom"); ok {
		registry.Register(scrapers.NewOfcomScraper(scrapeClient, src.ListingURL))
	}
	if src, ok := cfg.Source("soumu"); ok {
		keywords := src.Keywords
		if len(keywords) == 0 {
			keywords = config.SoumuDefaultKeywords
		}
		registry.Register(scrapers.NewSoumuScraper(scrapeClient, src.ListingURL, keywords))
	}

	urlStore := jobs.NewURLStore()
	bus := progress.NewBus()
	pipe := pipeline.New(cfg, recordStore, urlCache, scrapeClient, completionClient, promptStore, downloader, urlStore, bus)

	app := fiber.New(fiber.Config{
		AppName:      "regscope",
		ErrorHandler: middleware.ErrorHandler,
		ReadTimeout:  cfg.HTTPTimeout,
		// No write timeout: SSE streams stay open for the life of a job.
	})

	handlers := api.NewHandlers(cfg, recordStore, registry, urlStore, bus, pipe)
	api.SetupRoutes(app, handlers, cfg.AdminAPIKey)

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("Starting server")
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("Server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout); err != nil {
		log.Error().Err(err).Msg("Forced shutdown")
	}
	log.Info().Msg("Server stopped")
}
