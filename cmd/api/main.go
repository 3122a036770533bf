package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/contenttype"
	"server/internal/http/handlers"
	"server/internal/http/httpapi"
	"server/internal/infra"
	"server/internal/infra/credentials"
	"server/internal/infra/geoip"
	"server/internal/middleware"
	"server/internal/orchestrator"
	"server/internal/providers/media"
	"server/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: db connection failed")
	}
	defer pool.Close()
	runner := infra.NewSQLRunner(pool, logger)

	projects := repo.NewProjectRepository(runner)
	images := repo.NewImageRepository(runner)
	types := contenttype.NewStore(repo.NewContentTypeRepository(runner))

	fileStore, err := storage.NewFileStore(absStoragePath(cfg.StoragePath))
	if err != nil {
		logger.Fatal().Err(err).Msg("api: failed to configure storage")
	}

	geminiAPIKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if geminiAPIKey == "" {
		if key, err := credentials.NewStore(runner).GeminiAPIKey(ctx); err != nil {
			logger.Warn().Err(err).Msg("api: failed to load gemini api key from store")
		} else {
			geminiAPIKey = key
		}
	}
	mediaRunner := media.NewGeminiRunner(media.GeminiOptions{
		APIKey:        geminiAPIKey,
		BaseURL:       cfg.GeminiBaseURL,
		Logger:        logger,
		Store:         fileStore,
		PublicBaseURL: cfg.StorageBaseURL,
	})

	gate := orchestrator.NewGate(projects, logger)
	imageGen := orchestrator.NewImageOrchestrator(projects, images, mediaRunner, gate, logger, cfg.SceneRateInterval)

	var lookup middleware.CountryLookup
	if resolver, err := geoip.NewResolver(cfg.GeoIPDBPath); err != nil {
		logger.Warn().Err(err).Msg("api: geoip resolver unavailable")
	} else if resolver != nil {
		lookup = resolver.CountryCode
	}

	app := &handlers.App{
		Config:   cfg,
		Logger:   logger,
		Projects: projects,
		Images:   images,
		Types:    types,
		Regen:    imageGen,
		Files:    fileStore,
	}
	router := httpapi.NewRouter(app, httpapi.Options{
		CORSOrigins:   cfg.CORSOrigins,
		RateLimit:     cfg.RateLimitPerMin,
		DefaultLocale: cfg.DefaultLocale,
		CountryLookup: lookup,
		StaticDir:     fileStore.BasePath(),
	})

	server := infra.NewHTTPServer(cfg, router)
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("api: listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("api: http server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: shutdown failed")
	}
	logger.Info().Msg("api: stopped")
}

func absStoragePath(path string) string {
	if path == "" {
		path = "./storage"
	}
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
	}
	return path
}
