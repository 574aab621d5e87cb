package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"alfredoptarigan/applicant-tracker/internal/config"
	"alfredoptarigan/applicant-tracker/internal/handlers"
	"alfredoptarigan/applicant-tracker/internal/logger"
	"alfredoptarigan/applicant-tracker/internal/repositories"
	"alfredoptarigan/applicant-tracker/internal/services"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.LogJSON, cfg.Server.LogDebug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}

	profileRepo := repositories.NewProfileRepository(db)
	jobRepo := repositories.NewJobRepository(db)
	appRepo := repositories.NewApplicationRepository(db)
	parsedRepo := repositories.NewParsedResumeRepository(db)

	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		log.Fatal("failed to create upload directory", zap.Error(err))
	}

	var gemini services.GeminiService
	if cfg.Gemini.APIKey != "" {
		gemini, err = services.NewGeminiService(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbedModel, cfg.Worker.RetryInitialDelay, log)
		if err != nil {
			log.Fatal("failed to initialize gemini", zap.Error(err))
		}
		log.Info("gemini initialized", zap.String("model", cfg.Gemini.Model))
	}

	reviewer, err := newReviewer(cfg, gemini, log)
	if err != nil {
		log.Fatal("failed to initialize reviewer", zap.Error(err))
	}

	var streamer services.InsightStreamer
	if cfg.Ollama.URL != "" {
		streamer = services.NewOllamaStreamer(cfg.Ollama.URL, cfg.Ollama.Model, cfg.AI.RequestTimeout, log)
	}

	var indexer services.ResumeIndexer
	if cfg.Qdrant.Enabled && gemini != nil {
		qdrantService, err := services.NewQdrantService(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, cfg.Qdrant.VectorSize, log)
		if err != nil {
			log.Fatal("failed to initialize qdrant", zap.Error(err))
		}
		if err := qdrantService.InitCollection(ctx); err != nil {
			log.Fatal("failed to initialize qdrant collection", zap.Error(err))
		}
		indexer = services.NewResumeIndexer(gemini, qdrantService, log)
	} else {
		log.Info("similarity search disabled")
	}

	reviewService := services.NewReviewService(appRepo, jobRepo, reviewer, streamer, indexer,
		services.ReviewServiceConfig{
			InsightResumeLimit: cfg.AI.InsightResumeLimit,
			Concurrency:        cfg.Worker.Concurrency,
		}, log)

	worker := services.NewWorker(appRepo, reviewService, indexer, cfg.Worker.Concurrency, cfg.Worker.PollInterval, log)
	worker.Start(ctx)

	applicationService := services.NewApplicationService(
		appRepo,
		parsedRepo,
		services.NewExtractorService(),
		services.NewStructurer(log),
		storageService,
		worker,
		log,
	)

	app := fiber.New(fiber.Config{
		AppName:      "Applicant Tracker API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		BodyLimit:    int(cfg.Storage.MaxFileSize) + 1<<20,
		ErrorHandler: handlers.ErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	handlers.Routes{
		Profiles:     handlers.NewProfileHandler(profileRepo),
		Jobs:         handlers.NewJobHandler(jobRepo),
		Applications: handlers.NewApplicationHandler(applicationService, cfg.Storage.MaxFileSize),
		Reviews:      handlers.NewReviewHandler(reviewService, log),
	}.Register(app.Group("/api/v1"), handlers.Auth(profileRepo))

	go func() {
		<-ctx.Done()
		log.Info("shutting down server")
		worker.Stop()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Info("server starting", zap.String("addr", addr), zap.String("ai_provider", cfg.AI.Provider))

	if err := app.Listen(addr); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}

func newReviewer(cfg *config.Config, gemini services.GeminiService, log *zap.Logger) (services.Reviewer, error) {
	switch cfg.AI.Provider {
	case config.ProviderInference:
		if cfg.AI.InferenceURL == "" {
			return nil, fmt.Errorf("INFERENCE_URL is required for provider %q", cfg.AI.Provider)
		}
		return services.NewInferenceReviewer(cfg.AI.InferenceURL, cfg.AI.InferenceAPIKey, cfg.AI.RequestTimeout, cfg.AI.ReviewResumeLimit, log), nil
	case config.ProviderGemini:
		if gemini == nil {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for provider %q", cfg.AI.Provider)
		}
		return services.NewGeminiReviewer(gemini, cfg.AI.ReviewResumeLimit, cfg.Worker.RetryMaxAttempts, log), nil
	default:
		return nil, fmt.Errorf("unknown AI_PROVIDER %q", cfg.AI.Provider)
	}
}
