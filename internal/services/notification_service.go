package services

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/teamforge/mentor-platform/internal/apperr"
	"github.com/teamforge/mentor-platform/internal/logger"
	"github.com/teamforge/mentor-platform/internal/models"
)

// notificationTTL bounds how long a notification stays visible before the
// housekeeping sweep may purge it.
const notificationTTL = 30 * 24 * time.Hour

// NotificationService appends time-boxed notifications as a side effect of
// workflow transitions. Delivery is best-effort: a storage failure is logged
// and swallowed so it can never abort the triggering operation.
type NotificationService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewNotificationService(db *gorm.DB, now func() time.Time) *NotificationService {
	if now == nil {
		now = time.Now
	}
	return &NotificationService{db: db, now: now}
}

// NotificationRefs carries optional entity references for navigation.
type NotificationRefs struct {
	ProjectID *uuid.UUID
	MeetingID *uuid.UUID
}

// Notify creates a notification for a single recipient. It never returns an
// error to the caller.
func (s *NotificationService) Notify(recipient uuid.UUID, actor uuid.UUID, notifType models.NotificationType, title, message string, refs NotificationRefs) {
	createdAt := s.now()
	notif := models.Notification{
		UserID:    recipient,
		Type:      notifType,
		Title:     title,
		Message:   message,
		ProjectID: refs.ProjectID,
		MeetingID: refs.MeetingID,
		CreatedBy: actor,
		ExpiresAt: createdAt.Add(notificationTTL),
	}

	if err := s.db.Create(&notif).Error; err != nil {
		logger.Log.Warn("notification write failed",
			zap.String("type", string(notifType)),
			zap.String("recipient", recipient.String()),
			zap.Error(apperr.Unavailable(err, "notification store unavailable")))
	}
}

// NotifyAll fans one notification out to several recipients, skipping the
// actor.
func (s *NotificationService) NotifyAll(recipients []uuid.UUID, actor uuid.UUID, notifType models.NotificationType, title, message string, refs NotificationRefs) {
	for _, r := range recipients {
		if r == actor {
			continue
		}
		s.Notify(r, actor, notifType, title, message, refs)
	}
}

// List returns a page of the recipient's notifications plus totals.
func (s *NotificationService) List(userID uuid.UUID, page, limit int) ([]models.Notification, int64, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}

	var notifications []models.Notification
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, 0, 0, err
	}

	var total, unread int64
	s.db.Model(&models.Notification{}).Where("user_id = ?", userID).Count(&total)
	s.db.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false).Count(&unread)

	return notifications, total, unread, nil
}

// MarkRead flips a single notification; only the recipient may do so.
func (s *NotificationService) MarkRead(userID, notifID uuid.UUID) error {
	result := s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notifID, userID).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("notification not found")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(userID uuid.UUID) error {
	return s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
}

// Delete removes one of the recipient's notifications.
func (s *NotificationService) Delete(userID, notifID uuid.UUID) error {
	result := s.db.Where("id = ? AND user_id = ?", notifID, userID).Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("notification not found")
	}
	return nil
}

// PurgeExpired deletes notifications past their expiry. Called by the
// external housekeeping sweep, not by the workflow engine.
func (s *NotificationService) PurgeExpired() (int64, error) {
	result := s.db.Where("expires_at < ?", s.now()).Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}
