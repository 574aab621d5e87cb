package repositories

import (
	"context"

	"gorm.io/gorm"

	"alfredoptarigan/applicant-tracker/internal/models"
)

type ProfileRepository interface {
	Create(ctx context.Context, profile *models.Profile) error
	FindByToken(ctx context.Context, token string) (*models.Profile, error)
}

type profileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return translate("create profile", err)
	}
	return nil
}

func (r *profileRepository) FindByToken(ctx context.Context, token string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("api_token = ?", token).First(&profile).Error; err != nil {
		return nil, translate("find profile", err)
	}
	return &profile, nil
}
