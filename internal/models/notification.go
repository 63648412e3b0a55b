package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotifMemberAdded        NotificationType = "member_added"
	NotifMemberJoined       NotificationType = "member_joined"
	NotifMemberRemoved      NotificationType = "member_removed"
	NotifMilestoneSubmitted NotificationType = "milestone_submitted"
	NotifMilestoneApproved  NotificationType = "milestone_approved"
	NotifMilestoneRejected  NotificationType = "milestone_rejected"
	NotifTaskAssigned       NotificationType = "task_assigned"
	NotifTaskSubmitted      NotificationType = "task_submitted"
	NotifTaskApproved       NotificationType = "task_approved"
	NotifTaskRejected       NotificationType = "task_rejected"
	NotifMeetingScheduled   NotificationType = "meeting_scheduled"
	NotifMeetingStatus      NotificationType = "meeting_status"
)

// Notification is owned by its recipient for read/delete purposes and
// expires 30 days after creation; purging is left to external housekeeping.
type Notification struct {
	ID        uuid.UUID        `gorm:"type:uuid;primary_key" json:"id"`
	UserID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"userId"`
	Type      NotificationType `gorm:"type:varchar(30);not null" json:"type"`
	Title     string           `gorm:"not null" json:"title"`
	Message   string           `gorm:"type:text" json:"message"`
	ProjectID *uuid.UUID       `gorm:"type:uuid;index" json:"projectId,omitempty"`
	MeetingID *uuid.UUID       `gorm:"type:uuid" json:"meetingId,omitempty"`
	CreatedBy uuid.UUID        `gorm:"type:uuid" json:"createdBy"`
	IsRead    bool             `gorm:"default:false" json:"isRead"`
	ExpiresAt time.Time        `gorm:"index" json:"expiresAt"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
	DeletedAt gorm.DeletedAt   `gorm:"index" json:"-"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
