package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobOpen   JobStatus = "open"
	JobClosed JobStatus = "closed"
)

type Job struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	RecruiterID  uuid.UUID `gorm:"type:uuid;not null;index" json:"recruiter_id"`
	Title        string    `gorm:"type:text;not null" json:"title"`
	Description  string    `gorm:"type:text" json:"description"`
	Requirements string    `gorm:"type:text" json:"requirements"`
	Status       JobStatus `gorm:"type:text;not null;default:'open'" json:"status"`
	CreatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}

// Context returns the job fields the AI endpoints are given.
func (j *Job) Context() JobContext {
	return JobContext{
		Title:        j.Title,
		Description:  j.Description,
		Requirements: j.Requirements,
	}
}

type JobContext struct {
	Title        string
	Description  string
	Requirements string
}
