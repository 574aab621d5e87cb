package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("AI_PROVIDER", "")
	t.Setenv("REVIEW_RESUME_LIMIT", "")

	cfg := Load()

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, ProviderGemini, cfg.AI.Provider)
	assert.Equal(t, 8000, cfg.AI.ReviewResumeLimit)
	assert.Equal(t, 3000, cfg.AI.InsightResumeLimit)
	assert.Equal(t, int64(10485760), cfg.Storage.MaxFileSize)
	assert.Equal(t, 30*time.Second, cfg.Worker.PollInterval)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("AI_PROVIDER", ProviderInference)
	t.Setenv("INFERENCE_URL", "https://example.test/functions/analyze")
	t.Setenv("WORKER_CONCURRENCY", "7")
	t.Setenv("LOG_JSON", "true")
	t.Setenv("REQUEST_TIMEOUT", "bogus")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, ProviderInference, cfg.AI.Provider)
	assert.Equal(t, "https://example.test/functions/analyze", cfg.AI.InferenceURL)
	assert.Equal(t, 7, cfg.Worker.Concurrency)
	assert.True(t, cfg.Server.LogJSON)
	assert.Equal(t, 60*time.Second, cfg.AI.RequestTimeout)
}

func TestGetDatabaseDSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host: "db", Port: "5432", User: "u", Password: "p", DBName: "ats",
	}}

	assert.Equal(t, "host=db port=5432 user=u password=p dbname=ats sslmode=disable", cfg.GetDatabaseDSN())
}
