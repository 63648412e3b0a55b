package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TeamMemberStatus string

const (
	TeamMemberPending TeamMemberStatus = "pending"
	TeamMemberJoined  TeamMemberStatus = "joined"
)

// TeamMember is keyed by email within a project. UserID is nil while the
// invitation is pending and set exactly once when the member joins, either
// through registration with the invited email or an explicit claim.
type TeamMember struct {
	ID        uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	ProjectID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_project_email" json:"projectId"`
	Email     string           `gorm:"not null;uniqueIndex:idx_project_email" json:"email"`
	Name      string           `json:"name"`
	UserID    *uuid.UUID       `gorm:"type:uuid;index" json:"userId,omitempty"`
	Status    TeamMemberStatus `gorm:"type:varchar(10);default:'pending'" json:"status"`
	Role      string           `json:"role"` // free-form tag, e.g. "frontend"
	JoinedAt  *time.Time       `json:"joinedAt,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
	DeletedAt gorm.DeletedAt   `gorm:"index" json:"-"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (t *TeamMember) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// Team DTOs
type AddTeamMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}
