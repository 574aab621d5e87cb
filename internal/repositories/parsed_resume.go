package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alfredoptarigan/applicant-tracker/internal/apperr"
	"alfredoptarigan/applicant-tracker/internal/models"
)

type ParsedResumeRepository interface {
	Upsert(ctx context.Context, session models.Session, applicationID uuid.UUID, resume models.StructuredResume) (*models.ParsedResume, error)
}

type parsedResumeRepository struct {
	db *gorm.DB
}

func NewParsedResumeRepository(db *gorm.DB) ParsedResumeRepository {
	return &parsedResumeRepository{db: db}
}

func (r *parsedResumeRepository) Upsert(ctx context.Context, session models.Session, applicationID uuid.UUID, resume models.StructuredResume) (*models.ParsedResume, error) {
	if session.IsCandidate() {
		return nil, fmt.Errorf("save parsed resume: %w", apperr.ErrForbidden)
	}

	var app models.Application
	if err := r.db.WithContext(ctx).Joins("Job").Where("applications.id = ?", applicationID).First(&app).Error; err != nil {
		return nil, translate("find application", err)
	}
	if !canAccess(session, &app) {
		return nil, fmt.Errorf("save parsed resume: %w", apperr.ErrForbidden)
	}

	parsed := &models.ParsedResume{
		ID:            uuid.New(),
		ApplicationID: applicationID,
		Structured:    datatypes.NewJSONType(resume),
		Degraded:      resume.Degraded(),
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "application_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"structured", "degraded", "updated_at"}),
	}).Create(parsed).Error
	if err != nil {
		return nil, fmt.Errorf("%w: save parsed resume: %v", apperr.ErrPersistenceFailed, err)
	}

	return parsed, nil
}
