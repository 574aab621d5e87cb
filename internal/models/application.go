package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ApplicationStatus string

const (
	StatusPending   ApplicationStatus = "pending"
	StatusReviewing ApplicationStatus = "reviewing"
	StatusSelected  ApplicationStatus = "selected"
	StatusRejected  ApplicationStatus = "rejected"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusReviewing, StatusSelected, StatusRejected:
		return true
	}
	return false
}

func (s ApplicationStatus) Terminal() bool {
	return s == StatusSelected || s == StatusRejected
}

// Transitions lists the statuses a recruiter may move an application to.
func (s ApplicationStatus) Transitions() []ApplicationStatus {
	switch s {
	case StatusPending:
		return []ApplicationStatus{StatusReviewing, StatusSelected, StatusRejected}
	case StatusReviewing:
		return []ApplicationStatus{StatusSelected, StatusRejected}
	default:
		return []ApplicationStatus{}
	}
}

func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	for _, t := range s.Transitions() {
		if t == next {
			return true
		}
	}
	return false
}

type Application struct {
	ID             uuid.UUID         `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	JobID          uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_application_job_candidate" json:"job_id"`
	CandidateID    uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_application_job_candidate" json:"candidate_id"`
	CandidateName  string            `gorm:"type:text" json:"candidate_name"`
	CandidateEmail string            `gorm:"type:text" json:"candidate_email"`
	ResumeText     string            `gorm:"type:text;not null" json:"resume_text"`
	ResumeFile     *string           `gorm:"type:text" json:"resume_file,omitempty"`
	CoverLetter    *string           `gorm:"type:text" json:"cover_letter,omitempty"`
	Status         ApplicationStatus `gorm:"type:text;not null;default:'pending'" json:"status"`
	MatchScore     *float64          `gorm:"type:decimal(5,2)" json:"match_score,omitempty"`
	AIReview       datatypes.JSON    `gorm:"type:jsonb" json:"-"`
	Analyzed       bool              `gorm:"not null;default:false" json:"analyzed"`
	CreatedAt      time.Time         `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`

	Job Job `gorm:"foreignKey:JobID" json:"-"`
}

func (Application) TableName() string {
	return "applications"
}

// Review decodes the stored AI review. It returns nil when the application
// has not been analyzed yet.
func (a *Application) Review() (*AIReview, error) {
	if len(a.AIReview) == 0 {
		return nil, nil
	}
	var review AIReview
	if err := json.Unmarshal(a.AIReview, &review); err != nil {
		return nil, fmt.Errorf("failed to decode ai review: %w", err)
	}
	return &review, nil
}

func (a *Application) CoverLetterText() string {
	if a.CoverLetter == nil {
		return ""
	}
	return *a.CoverLetter
}
