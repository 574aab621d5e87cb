package repositories

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"alfredoptarigan/applicant-tracker/internal/models"
)

// testSchema mirrors the postgres tables with sqlite column types.
var testSchema = []string{
	`CREATE TABLE profiles (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL,
		api_token TEXT NOT NULL UNIQUE,
		created_at DATETIME
	)`,
	`CREATE TABLE jobs (
		id TEXT PRIMARY KEY,
		recruiter_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT,
		requirements TEXT,
		status TEXT NOT NULL DEFAULT 'open',
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE applications (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL,
		candidate_id TEXT NOT NULL,
		candidate_name TEXT,
		candidate_email TEXT,
		resume_text TEXT NOT NULL,
		resume_file TEXT,
		cover_letter TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		match_score REAL,
		ai_review TEXT,
		analyzed BOOLEAN NOT NULL DEFAULT false,
		created_at DATETIME,
		updated_at DATETIME,
		UNIQUE (job_id, candidate_id)
	)`,
	`CREATE TABLE parsed_resumes (
		id TEXT PRIMARY KEY,
		application_id TEXT NOT NULL UNIQUE,
		structured TEXT,
		degraded BOOLEAN NOT NULL DEFAULT false,
		created_at DATETIME,
		updated_at DATETIME
	)`,
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range testSchema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func testSession(role models.Role, name string) models.Session {
	return models.Session{
		ProfileID: uuid.New(),
		Role:      role,
		Name:      name,
		Email:     name + "@example.com",
	}
}

func seedJob(t *testing.T, db *gorm.DB, recruiter models.Session, status models.JobStatus) *models.Job {
	t.Helper()

	job := &models.Job{ID: uuid.New(), Title: "Backend Engineer", Description: "Go services", Status: status}
	require.NoError(t, NewJobRepository(db).Create(context.Background(), recruiter, job))
	return job
}

func seedApplication(t *testing.T, db *gorm.DB, candidate models.Session, job *models.Job) *models.Application {
	t.Helper()

	app := &models.Application{ID: uuid.New(), JobID: job.ID, ResumeText: "Go developer with five years of experience"}
	require.NoError(t, NewApplicationRepository(db).Create(context.Background(), candidate, app))
	return app
}
