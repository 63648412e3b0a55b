package services

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teamforge/mentor-platform/internal/apperr"
	"github.com/teamforge/mentor-platform/internal/models"
)

// Caller is the identity the transport layer hands the engine on every
// request. The engine never parses tokens itself.
type Caller struct {
	ID    uuid.UUID
	Email string
	Role  models.UserRole
}

func (c Caller) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

// Authorizer implements the role-and-relationship gate. Denials are
// apperr.Forbidden values carrying the reason; expected denial paths never
// panic or return opaque errors.
type Authorizer struct {
	db *gorm.DB
}

func NewAuthorizer(db *gorm.DB) *Authorizer {
	return &Authorizer{db: db}
}

// CanManageTeam allows the project mentor, the student owner and admins to
// add or remove team members.
func (a *Authorizer) CanManageTeam(caller Caller, project *models.Project) error {
	if caller.IsAdmin() {
		return nil
	}
	if project.MentorID != nil && *project.MentorID == caller.ID {
		return nil
	}
	if project.OwnerID != nil && *project.OwnerID == caller.ID {
		return nil
	}
	return apperr.Forbidden("only the mentor, project owner or an admin can manage the team")
}

// CanReview allows mentors and admins to review milestone and task
// submissions; a mentor must be the mentor of that project.
func (a *Authorizer) CanReview(caller Caller, project *models.Project) error {
	if caller.IsAdmin() {
		return nil
	}
	if caller.Role == models.RoleMentor && project.MentorID != nil && *project.MentorID == caller.ID {
		return nil
	}
	return apperr.Forbidden("only the project mentor or an admin can review submissions")
}

// CanCreateMeeting restricts meeting creation to the project's mentor.
func (a *Authorizer) CanCreateMeeting(caller Caller, project *models.Project) error {
	if caller.Role == models.RoleMentor && project.MentorID != nil && *project.MentorID == caller.ID {
		return nil
	}
	return apperr.Forbidden("only the project mentor can schedule meetings")
}

// CanModerateMeeting allows the creator or the meeting's mentor to change a
// meeting's status.
func (a *Authorizer) CanModerateMeeting(caller Caller, meeting *models.Meeting) error {
	if caller.ID == meeting.CreatedBy || caller.ID == meeting.MentorID {
		return nil
	}
	return apperr.Forbidden("only the meeting creator or mentor can update its status")
}

// CanDeleteMeeting restricts deletion to the creator.
func (a *Authorizer) CanDeleteMeeting(caller Caller, meeting *models.Meeting) error {
	if caller.ID == meeting.CreatedBy {
		return nil
	}
	return apperr.Forbidden("only the meeting creator can delete it")
}

// CanAccessProject allows admins, the mentor, the owner, the creator and
// joined team members to read a project.
func (a *Authorizer) CanAccessProject(caller Caller, project *models.Project) error {
	if a.isParticipant(caller, project) {
		return nil
	}
	return apperr.Forbidden("you are not a participant of this project")
}

// CanEditProject allows the mentor, the owner and admins to update project
// fields such as the canonical repository.
func (a *Authorizer) CanEditProject(caller Caller, project *models.Project) error {
	if caller.IsAdmin() {
		return nil
	}
	if project.MentorID != nil && *project.MentorID == caller.ID {
		return nil
	}
	if project.OwnerID != nil && *project.OwnerID == caller.ID {
		return nil
	}
	return apperr.Forbidden("only the mentor, project owner or an admin can edit the project")
}

func (a *Authorizer) isParticipant(caller Caller, project *models.Project) bool {
	if caller.IsAdmin() || caller.ID == project.CreatedBy {
		return true
	}
	if project.MentorID != nil && *project.MentorID == caller.ID {
		return true
	}
	if project.OwnerID != nil && *project.OwnerID == caller.ID {
		return true
	}
	var member models.TeamMember
	err := a.db.Where("project_id = ? AND user_id = ? AND status = ?",
		project.ID, caller.ID, models.TeamMemberJoined).First(&member).Error
	return err == nil
}
