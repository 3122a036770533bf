package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"server/internal/adapter/repo"
	"server/internal/contenttype"
	"server/internal/infra"
	"server/internal/infra/credentials"
	"server/internal/orchestrator"
	"server/internal/providers/media"
	"server/internal/providers/text"
	"server/internal/sqlinline"
	"server/internal/storage"
)

var errNoRequestAvailable = errors.New("no request available")

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
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()
	runner := infra.NewSQLRunner(pool, logger)

	projects := repo.NewProjectRepository(runner)
	images := repo.NewImageRepository(runner)
	types := contenttype.NewStore(repo.NewContentTypeRepository(runner))

	fileStore, err := storage.NewFileStore(absStoragePath(cfg.StoragePath))
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	creds := credentials.NewStore(runner)
	completer := buildCompleter(ctx, cfg, creds, logger)

	geminiAPIKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if geminiAPIKey == "" {
		if key, err := creds.GeminiAPIKey(ctx); err != nil {
			logger.Warn().Err(err).Msg("worker: failed to load gemini api key from store")
		} else {
			geminiAPIKey = key
		}
	}
	if geminiAPIKey == "" {
		logger.Warn().Msg("worker: gemini api key missing, image generation uses placeholder assets")
	}
	mediaRunner := media.NewGeminiRunner(media.GeminiOptions{
		APIKey:        geminiAPIKey,
		BaseURL:       cfg.GeminiBaseURL,
		Logger:        logger,
		Store:         fileStore,
		PublicBaseURL: cfg.StorageBaseURL,
	})

	gate := orchestrator.NewGate(projects, logger)
	orch := orchestrator.New(orchestrator.Options{
		Projects:     projects,
		Types:        types,
		Planner:      orchestrator.NewPlanner(completer, logger),
		Workflow:     orchestrator.NewWorkflowRunner(orchestrator.NewAgentExecutor(completer), logger),
		ImageGen:     orchestrator.NewImageOrchestrator(projects, images, mediaRunner, gate, logger, cfg.SceneRateInterval),
		Gate:         gate,
		Logger:       logger,
		RateInterval: cfg.SceneRateInterval,
	})

	logger.Info().Dur("poll_interval", cfg.WorkerPollInterval).Msg("worker: started")
	runLoop(ctx, runner, orch, logger, cfg.WorkerPollInterval)

	// Let detached image generation drain before the process exits.
	orch.Wait()
	logger.Info().Msg("worker: stopped")
}

func runLoop(ctx context.Context, runner *infra.SQLRunner, orch *orchestrator.Orchestrator, logger infra.Logger, pollInterval time.Duration) {
	for {
		if ctx.Err() != nil {
			return
		}
		projectID, err := claimNext(ctx, runner)
		if err != nil {
			if errors.Is(err, errNoRequestAvailable) {
				sleep(ctx, pollInterval)
				continue
			}
			if ctx.Err() != nil {
				return
			}
			logger.Error().Err(err).Msg("worker: claim failed")
			sleep(ctx, pollInterval)
			continue
		}

		logger.Info().Str("project_id", projectID).Msg("worker: claimed request")
		if err := orch.Run(ctx, projectID); err != nil {
			logger.Error().Err(err).Str("project_id", projectID).Msg("worker: generation failed")
		}
	}
}

func claimNext(ctx context.Context, runner *infra.SQLRunner) (string, error) {
	row := runner.QueryRow(ctx, sqlinline.QWorkerClaimRequest)
	var id string
	if err := row.Scan(&id); err != nil {
		if infra.IsNoRows(err) {
			return "", errNoRequestAvailable
		}
		return "", err
	}
	return id, nil
}

func buildCompleter(ctx context.Context, cfg *infra.Config, creds *credentials.Store, logger infra.Logger) text.Completer {
	switch strings.ToLower(strings.TrimSpace(cfg.TextProvider)) {
	case "openai":
		key := strings.TrimSpace(cfg.OpenAIAPIKey)
		if key == "" {
			key, _ = creds.OpenAIAPIKey(ctx)
		}
		if key == "" {
			logger.Warn().Msg("worker: openai api key missing, using static scene generation")
			return text.NewStaticCompleter()
		}
		completer, err := text.NewOpenAICompleter(text.OpenAIOptions{
			APIKey:  key,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: failed to configure openai completer")
		}
		return completer
	case "static":
		return text.NewStaticCompleter()
	default:
		key := strings.TrimSpace(cfg.GeminiAPIKey)
		if key == "" {
			key, _ = creds.GeminiAPIKey(ctx)
		}
		if key == "" {
			logger.Warn().Msg("worker: gemini api key missing, using static scene generation")
			return text.NewStaticCompleter()
		}
		completer, err := text.NewGeminiCompleter(text.GeminiOptions{
			APIKey:  key,
			Model:   cfg.GeminiModel,
			BaseURL: cfg.GeminiBaseURL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: failed to configure gemini completer")
		}
		return completer
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = time.Second
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
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
