package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SprintStatus string

const (
	SprintPlanned   SprintStatus = "planned"
	SprintActive    SprintStatus = "active"
	SprintCompleted SprintStatus = "completed"
)

type Sprint struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	ProjectID uuid.UUID      `gorm:"type:uuid;not null;index" json:"projectId"`
	Name      string         `gorm:"not null" json:"name"`
	Goal      string         `gorm:"type:text" json:"goal"`
	StartDate time.Time      `gorm:"not null" json:"startDate"`
	EndDate   time.Time      `gorm:"not null" json:"endDate"`
	Status    SprintStatus   `gorm:"type:varchar(20);default:'planned'" json:"status"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Tasks []Task `gorm:"foreignKey:SprintID" json:"tasks,omitempty"`
}

func (s *Sprint) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Sprint DTOs
type CreateSprintRequest struct {
	Name      string    `json:"name" binding:"required"`
	Goal      string    `json:"goal"`
	StartDate time.Time `json:"startDate" binding:"required"`
	EndDate   time.Time `json:"endDate" binding:"required"`
}

type UpdateSprintRequest struct {
	Name   *string       `json:"name"`
	Goal   *string       `json:"goal"`
	Status *SprintStatus `json:"status"`
}

// BurndownPoint is one sampled day of a sprint burndown series.
type BurndownPoint struct {
	Date   time.Time `json:"date"`
	Ideal  float64   `json:"ideal"`
	Actual int       `json:"actual"`
}

type BurndownReport struct {
	SprintID      uuid.UUID       `json:"sprintId"`
	TotalPoints   int             `json:"totalPoints"`
	SecuredPoints int             `json:"securedPoints"`
	Points        []BurndownPoint `json:"points"`
}
