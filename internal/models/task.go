package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// SubmissionStatus is the review sub-state of a task's proof of work. It
// cycles independently of the task's workflow stage so a rejected submission
// keeps the task in progress instead of resetting it.
type SubmissionStatus string

const (
	SubmissionNone          SubmissionStatus = "none"
	SubmissionPendingReview SubmissionStatus = "pending_review"
	SubmissionRejected      SubmissionStatus = "rejected"
	SubmissionApproved      SubmissionStatus = "approved"
)

type Task struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	ProjectID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"projectId"`
	SprintID    *uuid.UUID `gorm:"type:uuid;index" json:"sprintId,omitempty"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`

	// AssigneeID is resolved from the assignee email at write time. A
	// removed team member leaves it dangling; readers treat that as
	// unassigned.
	AssigneeID    *uuid.UUID `gorm:"type:uuid;index" json:"assigneeId,omitempty"`
	AssigneeEmail string     `json:"assigneeEmail"`

	Status      TaskStatus `gorm:"type:varchar(20);default:'pending'" json:"status"`
	Priority    string     `gorm:"type:varchar(10);default:'medium'" json:"priority"`
	StoryPoints int        `gorm:"default:0" json:"storyPoints"`

	SubmissionStatus SubmissionStatus `gorm:"type:varchar(20);default:'none'" json:"submissionStatus"`
	SubmissionLink   string           `json:"submissionLink"`
	SubmittedAt      *time.Time       `json:"submittedAt,omitempty"`
	CompletedAt      *time.Time       `json:"completedAt,omitempty"`

	// IsVerified is set only by submission approval; a verified task is
	// immutable to further student edits.
	IsVerified bool       `gorm:"default:false" json:"isVerified"`
	VerifiedBy *uuid.UUID `gorm:"type:uuid" json:"verifiedBy,omitempty"`

	Version   int            `gorm:"default:0" json:"-"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Screenshots []TaskScreenshot `gorm:"foreignKey:TaskID" json:"screenshots,omitempty"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

type TaskScreenshot struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	TaskID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"taskId"`
	FilePath  string         `gorm:"not null" json:"filePath"`
	FileName  string         `json:"fileName"`
	CreatedAt time.Time      `json:"createdAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ts *TaskScreenshot) BeforeCreate(tx *gorm.DB) error {
	if ts.ID == uuid.Nil {
		ts.ID = uuid.New()
	}
	return nil
}

// Task DTOs
type CreateTaskRequest struct {
	Title         string `json:"title" binding:"required"`
	Description   string `json:"description"`
	AssigneeEmail string `json:"assigneeEmail"`
	Priority      string `json:"priority"`
	StoryPoints   int    `json:"storyPoints"`
	SprintID      string `json:"sprintId"`
}

type UpdateTaskRequest struct {
	Title         *string     `json:"title"`
	Description   *string     `json:"description"`
	AssigneeEmail *string     `json:"assigneeEmail"`
	Priority      *string     `json:"priority"`
	StoryPoints   *int        `json:"storyPoints"`
	Status        *TaskStatus `json:"status"`
}

type ReviewTaskRequest struct {
	Approve bool   `json:"approve"`
	Notes   string `json:"notes"`
}
