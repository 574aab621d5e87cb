package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/applicant-tracker/internal/apperr"
	"alfredoptarigan/applicant-tracker/internal/models"
)

type ApplicationRepository interface {
	Create(ctx context.Context, session models.Session, app *models.Application) error
	FindByID(ctx context.Context, session models.Session, id uuid.UUID) (*models.Application, error)
	ListByJob(ctx context.Context, session models.Session, jobID uuid.UUID) ([]models.Application, error)
	ListMine(ctx context.Context, session models.Session) ([]models.Application, error)
	UpdateStatus(ctx context.Context, session models.Session, id uuid.UUID, status models.ApplicationStatus) (*models.Application, error)
	SaveReview(ctx context.Context, session models.Session, id uuid.UUID, review *models.AIReview) error
	FindUnanalyzed(ctx context.Context, session models.Session, limit int) ([]models.Application, error)
	ListAll(ctx context.Context, session models.Session) ([]models.Application, error)
}

type applicationRepository struct {
	db *gorm.DB
}

func NewApplicationRepository(db *gorm.DB) ApplicationRepository {
	return &applicationRepository{db: db}
}

// Create inserts a candidate's application. The one-application-per-job rule
// is checked before the insert; the unique index catches races.
func (r *applicationRepository) Create(ctx context.Context, session models.Session, app *models.Application) error {
	if !session.IsCandidate() {
		return fmt.Errorf("create application: %w", apperr.ErrForbidden)
	}

	var job models.Job
	if err := r.db.WithContext(ctx).Where("id = ?", app.JobID).First(&job).Error; err != nil {
		return translate("find job", err)
	}
	if job.Status != models.JobOpen {
		return fmt.Errorf("%w: job is closed", apperr.ErrInvalidInput)
	}

	var existing int64
	if err := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("job_id = ? AND candidate_id = ?", app.JobID, session.ProfileID).
		Count(&existing).Error; err != nil {
		return translate("check existing application", err)
	}
	if existing > 0 {
		return fmt.Errorf("%w: you have already applied to this job", apperr.ErrPersistenceFailed)
	}

	app.CandidateID = session.ProfileID
	app.CandidateName = session.Name
	app.CandidateEmail = session.Email
	app.Status = models.StatusPending

	if err := r.db.WithContext(ctx).Omit("Job").Create(app).Error; err != nil {
		return translate("create application", err)
	}
	return nil
}

func (r *applicationRepository) FindByID(ctx context.Context, session models.Session, id uuid.UUID) (*models.Application, error) {
	var app models.Application
	if err := r.db.WithContext(ctx).Joins("Job").Where("applications.id = ?", id).First(&app).Error; err != nil {
		return nil, translate("find application", err)
	}
	if !canAccess(session, &app) {
		return nil, fmt.Errorf("find application: %w", apperr.ErrForbidden)
	}
	return &app, nil
}

func (r *applicationRepository) ListByJob(ctx context.Context, session models.Session, jobID uuid.UUID) ([]models.Application, error) {
	var job models.Job
	if err := r.db.WithContext(ctx).Where("id = ?", jobID).First(&job).Error; err != nil {
		return nil, translate("find job", err)
	}
	if !session.IsSystem() && !(session.IsRecruiter() && job.RecruiterID == session.ProfileID) {
		return nil, fmt.Errorf("list applications: %w", apperr.ErrForbidden)
	}

	var apps []models.Application
	if err := r.db.WithContext(ctx).Joins("Job").
		Where("applications.job_id = ?", jobID).
		Order("applications.created_at ASC").
		Find(&apps).Error; err != nil {
		return nil, translate("list applications", err)
	}
	return apps, nil
}

func (r *applicationRepository) ListMine(ctx context.Context, session models.Session) ([]models.Application, error) {
	query := r.db.WithContext(ctx).Joins("Job").Order("applications.created_at DESC")
	switch {
	case session.IsCandidate():
		query = query.Where("applications.candidate_id = ?", session.ProfileID)
	case session.IsRecruiter():
		query = query.Where(`"Job"."recruiter_id" = ?`, session.ProfileID)
	default:
		return nil, fmt.Errorf("list applications: %w", apperr.ErrForbidden)
	}

	var apps []models.Application
	if err := query.Find(&apps).Error; err != nil {
		return nil, translate("list applications", err)
	}
	return apps, nil
}

// UpdateStatus applies a recruiter decision. The update is conditioned on the
// status read beforehand so a concurrent terminal decision is not overwritten.
func (r *applicationRepository) UpdateStatus(ctx context.Context, session models.Session, id uuid.UUID, status models.ApplicationStatus) (*models.Application, error) {
	if !session.IsRecruiter() {
		return nil, fmt.Errorf("update status: %w", apperr.ErrForbidden)
	}

	app, err := r.FindByID(ctx, session, id)
	if err != nil {
		return nil, err
	}

	if !app.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, app.Status, status)
	}

	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("id = ? AND status = ?", id, app.Status).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": now,
		})

	if result.Error != nil {
		return nil, translate("update status", result.Error)
	}

	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: status changed concurrently", apperr.ErrInvalidTransition)
	}

	app.Status = status
	app.UpdatedAt = now
	return app, nil
}

// SaveReview stores an AI review, marks the application analyzed and moves a
// pending application into review.
func (r *applicationRepository) SaveReview(ctx context.Context, session models.Session, id uuid.UUID, review *models.AIReview) error {
	if _, err := r.FindByID(ctx, session, id); err != nil {
		return err
	}
	if session.IsCandidate() {
		return fmt.Errorf("save review: %w", apperr.ErrForbidden)
	}

	payload, err := json.Marshal(review)
	if err != nil {
		return fmt.Errorf("failed to encode review: %w", err)
	}

	result := r.db.WithContext(ctx).Model(&models.Application{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"ai_review":   string(payload),
			"match_score": review.MatchScore,
			"analyzed":    true,
			"status":      gorm.Expr("CASE WHEN status = ? THEN ? ELSE status END", models.StatusPending, models.StatusReviewing),
			"updated_at":  time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("%w: save review: %v", apperr.ErrPersistenceFailed, result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("save review: %w", apperr.ErrNotFound)
	}

	return nil
}

func (r *applicationRepository) FindUnanalyzed(ctx context.Context, session models.Session, limit int) ([]models.Application, error) {
	if !session.IsSystem() {
		return nil, fmt.Errorf("find unanalyzed: %w", apperr.ErrForbidden)
	}

	var apps []models.Application
	err := r.db.WithContext(ctx).
		Where("analyzed = ? AND status = ?", false, models.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&apps).Error

	if err != nil {
		return nil, translate("find unanalyzed applications", err)
	}
	return apps, nil
}

func (r *applicationRepository) ListAll(ctx context.Context, session models.Session) ([]models.Application, error) {
	if !session.IsSystem() {
		return nil, fmt.Errorf("list all applications: %w", apperr.ErrForbidden)
	}

	var apps []models.Application
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&apps).Error; err != nil {
		return nil, translate("list all applications", err)
	}
	return apps, nil
}

func canAccess(session models.Session, app *models.Application) bool {
	switch {
	case session.IsSystem():
		return true
	case session.IsCandidate():
		return app.CandidateID == session.ProfileID
	case session.IsRecruiter():
		return app.Job.RecruiterID == session.ProfileID
	}
	return false
}
