package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MeetingStatus string

const (
	MeetingScheduled MeetingStatus = "scheduled"
	MeetingOngoing   MeetingStatus = "ongoing"
	MeetingCompleted MeetingStatus = "completed"
	MeetingCancelled MeetingStatus = "cancelled"
)

type ParticipantStatus string

const (
	ParticipantInvited  ParticipantStatus = "invited"
	ParticipantJoined   ParticipantStatus = "joined"
	ParticipantAttended ParticipantStatus = "attended"
)

type Meeting struct {
	ID              uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	ProjectID       uuid.UUID     `gorm:"type:uuid;not null;index" json:"projectId"`
	Title           string        `gorm:"not null" json:"title"`
	Description     string        `gorm:"type:text" json:"description"`
	MeetingLink     string        `json:"meetingLink"`
	CreatedBy       uuid.UUID     `gorm:"type:uuid;not null" json:"createdBy"`
	MentorID        uuid.UUID     `gorm:"type:uuid;not null" json:"mentorId"`
	ScheduledAt     time.Time     `gorm:"not null" json:"scheduledAt"`
	DurationMinutes int           `gorm:"default:30" json:"durationMinutes"`
	Status          MeetingStatus `gorm:"type:varchar(20);default:'scheduled'" json:"status"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Participants []MeetingParticipant `gorm:"foreignKey:MeetingID" json:"participants,omitempty"`
}

func (m *Meeting) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

type MeetingParticipant struct {
	ID        uuid.UUID         `gorm:"type:uuid;primary_key" json:"id"`
	MeetingID uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_meeting_user" json:"meetingId"`
	UserID    uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_meeting_user" json:"userId"`
	Status    ParticipantStatus `gorm:"type:varchar(10);default:'invited'" json:"status"`
	JoinedAt  *time.Time        `json:"joinedAt,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (mp *MeetingParticipant) BeforeCreate(tx *gorm.DB) error {
	if mp.ID == uuid.Nil {
		mp.ID = uuid.New()
	}
	return nil
}

// Meeting DTOs
type CreateMeetingRequest struct {
	Title           string    `json:"title" binding:"required"`
	Description     string    `json:"description"`
	MeetingLink     string    `json:"meetingLink"`
	ScheduledAt     time.Time `json:"scheduledAt" binding:"required"`
	DurationMinutes int       `json:"durationMinutes"`
}

type UpdateMeetingStatusRequest struct {
	Status MeetingStatus `json:"status" binding:"required"`
}
