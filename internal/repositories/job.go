package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/applicant-tracker/internal/apperr"
	"alfredoptarigan/applicant-tracker/internal/models"
)

type JobRepository interface {
	Create(ctx context.Context, session models.Session, job *models.Job) error
	FindByID(ctx context.Context, session models.Session, id uuid.UUID) (*models.Job, error)
	List(ctx context.Context, session models.Session, status models.JobStatus) ([]models.Job, error)
	Close(ctx context.Context, session models.Session, id uuid.UUID) error
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

func (r *jobRepository) Create(ctx context.Context, session models.Session, job *models.Job) error {
	if !session.IsRecruiter() {
		return fmt.Errorf("create job: %w", apperr.ErrForbidden)
	}
	job.RecruiterID = session.ProfileID
	if job.Status == "" {
		job.Status = models.JobOpen
	}
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return translate("create job", err)
	}
	return nil
}

// FindByID returns any job; jobs are readable by every signed-in profile.
func (r *jobRepository) FindByID(ctx context.Context, _ models.Session, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		return nil, translate("find job", err)
	}
	return &job, nil
}

func (r *jobRepository) List(ctx context.Context, session models.Session, status models.JobStatus) ([]models.Job, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if session.IsCandidate() && status == "" {
		query = query.Where("status = ?", models.JobOpen)
	}

	var jobs []models.Job
	if err := query.Find(&jobs).Error; err != nil {
		return nil, translate("list jobs", err)
	}
	return jobs, nil
}

func (r *jobRepository) Close(ctx context.Context, session models.Session, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.Job{}).
		Where("id = ? AND recruiter_id = ?", id, session.ProfileID).
		Updates(map[string]interface{}{
			"status":     models.JobClosed,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return translate("close job", result.Error)
	}

	if result.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, session, id); err != nil {
			return err
		}
		return fmt.Errorf("close job: %w", apperr.ErrForbidden)
	}

	return nil
}
