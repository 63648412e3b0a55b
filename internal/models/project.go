package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectStatus string

const (
	ProjectStatusPlanning    ProjectStatus = "planning"
	ProjectStatusInProgress  ProjectStatus = "in_progress"
	ProjectStatusAppComplete ProjectStatus = "app_complete"
	ProjectStatusCompleted   ProjectStatus = "completed"
)

type Project struct {
	ID          uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	Title       string        `gorm:"not null" json:"title"`
	Description string        `gorm:"type:text" json:"description"`
	Status      ProjectStatus `gorm:"type:varchar(20);default:'planning'" json:"status"`

	// At most one student owner and one mentor per project.
	OwnerID   *uuid.UUID `gorm:"type:uuid;index" json:"ownerId,omitempty"`
	MentorID  *uuid.UUID `gorm:"type:uuid;index" json:"mentorId,omitempty"`
	CreatedBy uuid.UUID  `gorm:"type:uuid;not null;index" json:"createdBy"`

	// RepositoryURL is the canonical code repository; milestone submissions
	// are validated against it when set.
	RepositoryURL string `json:"repositoryUrl"`

	Version   int            `gorm:"default:0" json:"-"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Owner       *User        `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Mentor      *User        `gorm:"foreignKey:MentorID" json:"mentor,omitempty"`
	TeamMembers []TeamMember `gorm:"foreignKey:ProjectID" json:"teamMembers,omitempty"`
	Milestones  []Milestone  `gorm:"foreignKey:ProjectID" json:"milestones,omitempty"`
	Sprints     []Sprint     `gorm:"foreignKey:ProjectID" json:"sprints,omitempty"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Project DTOs
type CreateProjectRequest struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	RepositoryURL string `json:"repositoryUrl"`
	MentorID      string `json:"mentorId"`
}

type UpdateProjectRequest struct {
	Title         *string        `json:"title"`
	Description   *string        `json:"description"`
	Status        *ProjectStatus `json:"status"`
	RepositoryURL *string        `json:"repositoryUrl"`
}
