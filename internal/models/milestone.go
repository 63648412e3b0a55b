package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MilestoneStatus string

const (
	MilestoneNotStarted MilestoneStatus = "not_started"
	MilestoneInProgress MilestoneStatus = "in_progress"
	MilestoneSubmitted  MilestoneStatus = "submitted"
	MilestoneApproved   MilestoneStatus = "approved"
)

type Milestone struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key" json:"id"`
	ProjectID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"projectId"`
	ParentID    *uuid.UUID      `gorm:"type:uuid;index" json:"parentId,omitempty"`
	Title       string          `gorm:"not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	DueDate     *time.Time      `json:"dueDate,omitempty"`
	Priority    string          `gorm:"type:varchar(10);default:'medium'" json:"priority"`
	Position    int             `gorm:"default:0" json:"position"`
	Status      MilestoneStatus `gorm:"type:varchar(20);default:'not_started'" json:"status"`

	// Submission round (set on submit, reviewed by mentor/admin)
	SubmissionLink string     `json:"submissionLink"`
	SubmissionNote string     `gorm:"type:text" json:"submissionNote"`
	SubmittedBy    *uuid.UUID `gorm:"type:uuid" json:"submittedBy,omitempty"`
	SubmittedAt    *time.Time `json:"submittedAt,omitempty"`

	// Review outcome
	ReviewNotes string     `gorm:"type:text" json:"reviewNotes"`
	ReviewedBy  *uuid.UUID `gorm:"type:uuid" json:"reviewedBy,omitempty"`
	ReviewedAt  *time.Time `json:"reviewedAt,omitempty"`

	Version   int            `gorm:"default:0" json:"-"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	SubMilestones []Milestone `gorm:"foreignKey:ParentID" json:"subMilestones,omitempty"`
}

func (m *Milestone) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// Milestone DTOs
type CreateMilestoneRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    string     `json:"priority"`
	ParentID    string     `json:"parentId"`
}

type UpdateMilestoneRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    *string    `json:"priority"`
}

type SubmitMilestoneRequest struct {
	Link        string `json:"link" binding:"required"`
	Description string `json:"description" binding:"required"`
}

type ReviewMilestoneRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}
