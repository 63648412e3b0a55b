package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teamforge/mentor-platform/internal/apperr"
	"github.com/teamforge/mentor-platform/internal/models"
)

// TeamService reconciles invited-by-email team members against registered
// accounts. A member is created pending when the email is unknown and flips
// to joined exactly once, on registration or an explicit claim.
type TeamService struct {
	db            *gorm.DB
	authz         *Authorizer
	notifications *NotificationService
	email         *EmailService
	now           func() time.Time
}

func NewTeamService(db *gorm.DB, authz *Authorizer, notifications *NotificationService, email *EmailService) *TeamService {
	return &TeamService{
		db:            db,
		authz:         authz,
		notifications: notifications,
		email:         email,
		now:           time.Now,
	}
}

// AddMember invites an email to the project team. If the email already
// belongs to a registered user the membership is created joined and bound to
// that account; otherwise it stays pending until the user registers or
// claims it.
func (s *TeamService) AddMember(projectID uuid.UUID, caller Caller, req models.AddTeamMemberRequest) (*models.TeamMember, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, apperr.Validation("email is required")
	}

	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		return nil, apperr.NotFound("project not found")
	}
	if err := s.authz.CanManageTeam(caller, &project); err != nil {
		return nil, err
	}

	member := models.TeamMember{
		ProjectID: projectID,
		Email:     email,
		Name:      req.Name,
		Role:      req.Role,
		Status:    models.TeamMemberPending,
	}

	// The duplicate check and the insert share one transaction; the
	// composite unique index on (project_id, email) backstops a concurrent
	// add racing past the read.
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.TeamMember
		if err := tx.Where("project_id = ? AND email = ?", projectID, email).First(&existing).Error; err == nil {
			return apperr.Conflict("a team member with email %s already exists on this project", email)
		}

		var user models.User
		if err := tx.Where("email = ?", email).First(&user).Error; err == nil {
			joinedAt := s.now()
			member.UserID = &user.ID
			member.Status = models.TeamMemberJoined
			member.JoinedAt = &joinedAt
			if member.Name == "" {
				member.Name = user.FullName()
			}
		}

		if err := tx.Create(&member).Error; err != nil {
			if isUniqueViolation(err) {
				return apperr.Conflict("a team member with email %s already exists on this project", email)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if member.UserID != nil {
		s.notifications.Notify(*member.UserID, caller.ID, models.NotifMemberAdded,
			"Added to project",
			"You were added to the team of "+project.Title,
			NotificationRefs{ProjectID: &project.ID})
	} else if s.email != nil {
		s.email.SendTeamInvitation(email, member.Name, project.Title)
	}

	return &member, nil
}

// ReconcileOnRegistration flips every pending membership matching the new
// user's email to joined. Invoked once right after account creation;
// idempotent, and it never touches entries that already joined.
func (s *TeamService) ReconcileOnRegistration(user *models.User) error {
	email := normalizeEmail(user.Email)
	joinedAt := s.now()

	var pending []models.TeamMember
	if err := s.db.Where("email = ? AND status = ?", email, models.TeamMemberPending).Find(&pending).Error; err != nil {
		return err
	}

	for i := range pending {
		m := &pending[i]
		updates := map[string]interface{}{
			"user_id":   user.ID,
			"status":    models.TeamMemberJoined,
			"joined_at": joinedAt,
		}
		// Guard on status so a concurrent claim cannot be overwritten.
		result := s.db.Model(&models.TeamMember{}).
			Where("id = ? AND status = ?", m.ID, models.TeamMemberPending).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			continue
		}

		var project models.Project
		if err := s.db.First(&project, "id = ?", m.ProjectID).Error; err == nil {
			s.notifyProjectLeads(&project, user.ID, models.NotifMemberJoined,
				"Team member joined",
				user.FullName()+" joined the team of "+project.Title)
		}
	}
	return nil
}

// ClaimMembership binds the caller's account to a pending membership that
// was invited under their email.
func (s *TeamService) ClaimMembership(projectID uuid.UUID, caller Caller) (*models.TeamMember, error) {
	email := normalizeEmail(caller.Email)

	var member models.TeamMember
	if err := s.db.Where("project_id = ? AND email = ?", projectID, email).First(&member).Error; err != nil {
		return nil, apperr.NotFound("no invitation for %s on this project", email)
	}
	if member.Status == models.TeamMemberJoined {
		return nil, apperr.Conflict("membership already joined")
	}

	joinedAt := s.now()
	result := s.db.Model(&models.TeamMember{}).
		Where("id = ? AND status = ?", member.ID, models.TeamMemberPending).
		Updates(map[string]interface{}{
			"user_id":   caller.ID,
			"status":    models.TeamMemberJoined,
			"joined_at": joinedAt,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, apperr.Conflict("membership already joined")
	}

	member.UserID = &caller.ID
	member.Status = models.TeamMemberJoined
	member.JoinedAt = &joinedAt

	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err == nil {
		s.notifyProjectLeads(&project, caller.ID, models.NotifMemberJoined,
			"Team member joined",
			member.Name+" joined the team of "+project.Title)
	}

	return &member, nil
}

// RemoveMember deletes the entry unconditionally. The row is removed for
// real, not soft-deleted, so the same email can be invited again later.
// Task assignee references are left dangling on purpose; readers treat
// them as unassigned.
func (s *TeamService) RemoveMember(projectID uuid.UUID, caller Caller, email string) error {
	email = normalizeEmail(email)

	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		return apperr.NotFound("project not found")
	}
	if err := s.authz.CanManageTeam(caller, &project); err != nil {
		return err
	}

	var member models.TeamMember
	if err := s.db.Where("project_id = ? AND email = ?", projectID, email).First(&member).Error; err != nil {
		return apperr.NotFound("team member not found")
	}

	// A soft delete would keep the physical row in the (project_id, email)
	// unique index and block any re-invitation of this email.
	if err := s.db.Unscoped().Delete(&member).Error; err != nil {
		return err
	}

	if member.UserID != nil {
		s.notifications.Notify(*member.UserID, caller.ID, models.NotifMemberRemoved,
			"Removed from project",
			"You were removed from the team of "+project.Title,
			NotificationRefs{ProjectID: &project.ID})
	}
	return nil
}

// ListMembers returns the project's team with linked accounts preloaded.
func (s *TeamService) ListMembers(projectID uuid.UUID, caller Caller) ([]models.TeamMember, error) {
	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		return nil, apperr.NotFound("project not found")
	}
	if err := s.authz.CanAccessProject(caller, &project); err != nil {
		return nil, err
	}

	var members []models.TeamMember
	if err := s.db.Where("project_id = ?", projectID).Preload("User").Order("created_at").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// notifyProjectLeads notifies the mentor and student owner of a project.
func (s *TeamService) notifyProjectLeads(project *models.Project, actor uuid.UUID, notifType models.NotificationType, title, message string) {
	var recipients []uuid.UUID
	if project.MentorID != nil {
		recipients = append(recipients, *project.MentorID)
	}
	if project.OwnerID != nil {
		recipients = append(recipients, *project.OwnerID)
	}
	s.notifications.NotifyAll(recipients, actor, notifType, title, message,
		NotificationRefs{ProjectID: &project.ID})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
