package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleRecruiter Role = "recruiter"
	RoleCandidate Role = "candidate"
)

func (r Role) Valid() bool {
	return r == RoleRecruiter || r == RoleCandidate
}

type Profile struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	FullName  string    `gorm:"type:text;not null" json:"full_name"`
	Email     string    `gorm:"type:text;not null;uniqueIndex" json:"email"`
	Role      Role      `gorm:"type:text;not null" json:"role"`
	APIToken  string    `gorm:"type:text;not null;uniqueIndex" json:"-"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// Session is the caller identity every repository call is scoped to.
type Session struct {
	ProfileID uuid.UUID
	Role      Role
	Name      string
	Email     string
}

func (s Session) IsRecruiter() bool {
	return s.Role == RoleRecruiter
}

func (s Session) IsCandidate() bool {
	return s.Role == RoleCandidate
}

func NewSession(p *Profile) Session {
	return Session{
		ProfileID: p.ID,
		Role:      p.Role,
		Name:      p.FullName,
		Email:     p.Email,
	}
}

// RoleSystem marks sessions used by background pipelines. It is never
// assigned to a stored profile.
const RoleSystem Role = "system"

func SystemSession() Session {
	return Session{Role: RoleSystem, Name: "system"}
}

func (s Session) IsSystem() bool {
	return s.Role == RoleSystem
}
