package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"alfredoptarigan/applicant-tracker/internal/config"
	"alfredoptarigan/applicant-tracker/internal/logger"
	"alfredoptarigan/applicant-tracker/internal/models"
	"alfredoptarigan/applicant-tracker/internal/repositories"
	"alfredoptarigan/applicant-tracker/internal/services"
)

// Rebuilds the resume vector index from every stored application.
func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.LogJSON, cfg.Server.LogDebug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	db, err := config.InitDatabase(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}

	gemini, err := services.NewGeminiService(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbedModel, cfg.Worker.RetryInitialDelay, log)
	if err != nil {
		log.Fatal("failed to initialize gemini", zap.Error(err))
	}

	qdrantService, err := services.NewQdrantService(cfg.Qdrant.URL, cfg.Qdrant.APIKey, cfg.Qdrant.Collection, cfg.Qdrant.VectorSize, log)
	if err != nil {
		log.Fatal("failed to initialize qdrant", zap.Error(err))
	}

	if err := qdrantService.InitCollection(ctx); err != nil {
		log.Fatal("failed to initialize collection", zap.Error(err))
	}

	indexer := services.NewResumeIndexer(gemini, qdrantService, log)

	apps, err := repositories.NewApplicationRepository(db).ListAll(ctx, models.SystemSession())
	if err != nil {
		log.Fatal("failed to list applications", zap.Error(err))
	}

	log.Info("indexing applications", zap.Int("count", len(apps)))

	successCount := 0
	failCount := 0
	chunkCount := 0

	for i := range apps {
		app := &apps[i]

		n, err := indexer.IndexApplication(ctx, app)
		if err != nil {
			log.Warn("failed to index application", zap.String("application_id", app.ID.String()), zap.Error(err))
			failCount++
			continue
		}

		chunkCount += n
		successCount++

		if (i+1)%10 == 0 || i == len(apps)-1 {
			log.Info("progress", zap.Int("done", i+1), zap.Int("total", len(apps)))
		}
	}

	log.Info("indexing finished",
		zap.Int("succeeded", successCount),
		zap.Int("failed", failCount),
		zap.Int("chunks", chunkCount),
	)

	if failCount > 0 {
		os.Exit(1)
	}
}
