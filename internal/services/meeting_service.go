package services

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teamforge/mentor-platform/internal/apperr"
	"github.com/teamforge/mentor-platform/internal/models"
)

// MeetingService schedules synchronous meetings. The invite list is frozen
// at creation time: the student owner plus every joined team member. A
// scheduled meeting auto-advances to ongoing once every invitee has joined.
type MeetingService struct {
	db            *gorm.DB
	authz         *Authorizer
	notifications *NotificationService
	now           func() time.Time
}

func NewMeetingService(db *gorm.DB, authz *Authorizer, notifications *NotificationService, now func() time.Time) *MeetingService {
	if now == nil {
		now = time.Now
	}
	return &MeetingService{db: db, authz: authz, notifications: notifications, now: now}
}

// Create schedules a meeting; only the project's mentor may do so.
func (s *MeetingService) Create(projectID uuid.UUID, caller Caller, req models.CreateMeetingRequest) (*models.Meeting, error) {
	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		return nil, apperr.NotFound("project not found")
	}
	if err := s.authz.CanCreateMeeting(caller, &project); err != nil {
		return nil, err
	}

	duration := req.DurationMinutes
	if duration <= 0 {
		duration = 30
	}

	meeting := models.Meeting{
		ProjectID:       projectID,
		Title:           req.Title,
		Description:     req.Description,
		MeetingLink:     req.MeetingLink,
		CreatedBy:       caller.ID,
		MentorID:        caller.ID,
		ScheduledAt:     req.ScheduledAt,
		DurationMinutes: duration,
		Status:          models.MeetingScheduled,
	}

	invitees := s.inviteesAt(&project)

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&meeting).Error; err != nil {
			return err
		}
		for _, userID := range invitees {
			p := models.MeetingParticipant{
				MeetingID: meeting.ID,
				UserID:    userID,
				Status:    models.ParticipantInvited,
			}
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			meeting.Participants = append(meeting.Participants, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifications.NotifyAll(invitees, caller.ID, models.NotifMeetingScheduled,
		"Meeting scheduled",
		meeting.Title+" on "+project.Title+" at "+meeting.ScheduledAt.Format(time.RFC1123),
		NotificationRefs{ProjectID: &project.ID, MeetingID: &meeting.ID})

	return &meeting, nil
}

// Join marks the caller's participant entry joined. Re-joining is a no-op.
// When the last invitee joins the meeting flips scheduled -> ongoing
// without an explicit status update.
func (s *MeetingService) Join(meetingID uuid.UUID, caller Caller) (*models.Meeting, error) {
	var meeting models.Meeting
	if err := s.db.Preload("Participants").First(&meeting, "id = ?", meetingID).Error; err != nil {
		return nil, apperr.NotFound("meeting not found")
	}

	if caller.ID != meeting.MentorID {
		found := false
		for _, p := range meeting.Participants {
			if p.UserID == caller.ID {
				found = true
				break
			}
		}
		if !found {
			return nil, apperr.Forbidden("you are not invited to this meeting")
		}
	}

	joinedAt := s.now()
	for i := range meeting.Participants {
		p := &meeting.Participants[i]
		if p.UserID != caller.ID {
			continue
		}
		if p.Status != models.ParticipantInvited {
			break // already joined or attended, nothing to do
		}
		if err := s.db.Model(p).Updates(map[string]interface{}{
			"status":    models.ParticipantJoined,
			"joined_at": joinedAt,
		}).Error; err != nil {
			return nil, err
		}
		p.Status = models.ParticipantJoined
		p.JoinedAt = &joinedAt
	}

	if meeting.Status == models.MeetingScheduled && s.allJoined(meeting.Participants) {
		if err := s.db.Model(&meeting).Update("status", models.MeetingOngoing).Error; err != nil {
			return nil, err
		}
		meeting.Status = models.MeetingOngoing
	}

	return &meeting, nil
}

// UpdateStatus lets the creator or mentor set any status, forward or
// backward; mentors sometimes need to correct a mis-set state.
func (s *MeetingService) UpdateStatus(meetingID uuid.UUID, caller Caller, newStatus models.MeetingStatus) (*models.Meeting, error) {
	var meeting models.Meeting
	if err := s.db.First(&meeting, "id = ?", meetingID).Error; err != nil {
		return nil, apperr.NotFound("meeting not found")
	}
	if err := s.authz.CanModerateMeeting(caller, &meeting); err != nil {
		return nil, err
	}

	switch newStatus {
	case models.MeetingScheduled, models.MeetingOngoing, models.MeetingCompleted, models.MeetingCancelled:
	default:
		return nil, apperr.Validation("invalid meeting status %q", newStatus)
	}

	if err := s.db.Model(&meeting).Update("status", newStatus).Error; err != nil {
		return nil, err
	}
	meeting.Status = newStatus

	var participantIDs []uuid.UUID
	s.db.Model(&models.MeetingParticipant{}).Where("meeting_id = ?", meetingID).Pluck("user_id", &participantIDs)
	s.notifications.NotifyAll(participantIDs, caller.ID, models.NotifMeetingStatus,
		"Meeting "+string(newStatus),
		meeting.Title+" is now "+string(newStatus),
		NotificationRefs{ProjectID: &meeting.ProjectID, MeetingID: &meeting.ID})

	return &meeting, nil
}

// List returns the project's meetings with participants.
func (s *MeetingService) List(projectID uuid.UUID, caller Caller) ([]models.Meeting, error) {
	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		return nil, apperr.NotFound("project not found")
	}
	if err := s.authz.CanAccessProject(caller, &project); err != nil {
		return nil, err
	}

	var meetings []models.Meeting
	err := s.db.Where("project_id = ?", projectID).
		Preload("Participants").Preload("Participants.User").
		Order("scheduled_at").
		Find(&meetings).Error
	if err != nil {
		return nil, err
	}
	return meetings, nil
}

// Delete removes a meeting; creator only.
func (s *MeetingService) Delete(meetingID uuid.UUID, caller Caller) error {
	var meeting models.Meeting
	if err := s.db.First(&meeting, "id = ?", meetingID).Error; err != nil {
		return apperr.NotFound("meeting not found")
	}
	if err := s.authz.CanDeleteMeeting(caller, &meeting); err != nil {
		return err
	}

	if err := s.db.Where("meeting_id = ?", meetingID).Delete(&models.MeetingParticipant{}).Error; err != nil {
		return err
	}
	return s.db.Delete(&meeting).Error
}

// inviteesAt snapshots the invite list: the student owner plus all joined
// team members at creation time. Members added later are not retroactively
// invited.
func (s *MeetingService) inviteesAt(project *models.Project) []uuid.UUID {
	seen := map[uuid.UUID]bool{}
	var invitees []uuid.UUID

	add := func(id uuid.UUID) {
		if !seen[id] {
			seen[id] = true
			invitees = append(invitees, id)
		}
	}

	if project.OwnerID != nil {
		add(*project.OwnerID)
	}

	var members []models.TeamMember
	s.db.Where("project_id = ? AND status = ? AND user_id IS NOT NULL", project.ID, models.TeamMemberJoined).Find(&members)
	for _, m := range members {
		add(*m.UserID)
	}
	return invitees
}

func (s *MeetingService) allJoined(participants []models.MeetingParticipant) bool {
	for _, p := range participants {
		if p.Status == models.ParticipantInvited {
			return false
		}
	}
	return len(participants) > 0
}
