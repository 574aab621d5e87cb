package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ParsedResume struct {
	ID            uuid.UUID                           `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ApplicationID uuid.UUID                           `gorm:"type:uuid;not null;uniqueIndex" json:"application_id"`
	Structured    datatypes.JSONType[StructuredResume] `gorm:"type:jsonb" json:"structured"`
	Degraded      bool                                `gorm:"not null;default:false" json:"degraded"`
	CreatedAt     time.Time                           `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time                           `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ParsedResume) TableName() string {
	return "parsed_resumes"
}
