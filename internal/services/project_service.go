package services

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teamforge/mentor-platform/internal/apperr"
	"github.com/teamforge/mentor-platform/internal/models"
)

// ProjectService manages the aggregate root binding team, milestones,
// tasks, sprints and meetings.
type ProjectService struct {
	db    *gorm.DB
	authz *Authorizer
}

func NewProjectService(db *gorm.DB, authz *Authorizer) *ProjectService {
	return &ProjectService{db: db, authz: authz}
}

// Create stores a new project. A student creator becomes the single student
// owner; a mentor creator becomes the project mentor.
func (s *ProjectService) Create(caller Caller, req models.CreateProjectRequest) (*models.Project, error) {
	project := models.Project{
		Title:         req.Title,
		Description:   req.Description,
		RepositoryURL: req.RepositoryURL,
		Status:        models.ProjectStatusPlanning,
		CreatedBy:     caller.ID,
	}

	switch caller.Role {
	case models.RoleStudent:
		id := caller.ID
		project.OwnerID = &id
	case models.RoleMentor:
		id := caller.ID
		project.MentorID = &id
	}

	if req.MentorID != "" {
		mentorID, err := uuid.Parse(req.MentorID)
		if err != nil {
			return nil, apperr.Validation("invalid mentor id")
		}
		var mentor models.User
		if err := s.db.First(&mentor, "id = ? AND role = ?", mentorID, models.RoleMentor).Error; err != nil {
			return nil, apperr.NotFound("mentor not found")
		}
		if project.MentorID != nil && *project.MentorID != mentorID {
			return nil, apperr.Conflict("project already has a mentor")
		}
		project.MentorID = &mentorID
	}

	if err := s.db.Create(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// Get loads a project with its team and milestones; access is limited to
// participants.
func (s *ProjectService) Get(projectID uuid.UUID, caller Caller) (*models.Project, error) {
	var project models.Project
	err := s.db.Preload("TeamMembers").Preload("TeamMembers.User").
		Preload("Milestones", "parent_id IS NULL").
		Preload("Milestones.SubMilestones").
		Preload("Owner").Preload("Mentor").
		First(&project, "id = ?", projectID).Error
	if err != nil {
		return nil, apperr.NotFound("project not found")
	}
	if err := s.authz.CanAccessProject(caller, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// ListMine returns projects the caller participates in: created, owned,
// mentored or joined as a team member.
func (s *ProjectService) ListMine(caller Caller) ([]models.Project, error) {
	var memberProjectIDs []uuid.UUID
	s.db.Model(&models.TeamMember{}).
		Where("user_id = ? AND status = ?", caller.ID, models.TeamMemberJoined).
		Pluck("project_id", &memberProjectIDs)

	query := s.db.Preload("Owner").Preload("Mentor").
		Where("created_by = ? OR owner_id = ? OR mentor_id = ?", caller.ID, caller.ID, caller.ID)
	if len(memberProjectIDs) > 0 {
		query = query.Or("id IN ?", memberProjectIDs)
	}

	var projects []models.Project
	if err := query.Order("created_at DESC").Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// Update applies partial edits, including the canonical repository link.
func (s *ProjectService) Update(projectID uuid.UUID, caller Caller, req models.UpdateProjectRequest) (*models.Project, error) {
	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		return nil, apperr.NotFound("project not found")
	}
	if err := s.authz.CanEditProject(caller, &project); err != nil {
		return nil, err
	}

	if req.Title != nil {
		project.Title = *req.Title
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.RepositoryURL != nil {
		project.RepositoryURL = *req.RepositoryURL
	}
	if req.Status != nil {
		switch *req.Status {
		case models.ProjectStatusPlanning, models.ProjectStatusInProgress,
			models.ProjectStatusAppComplete, models.ProjectStatusCompleted:
			project.Status = *req.Status
		default:
			return nil, apperr.Validation("invalid project status %q", *req.Status)
		}
	}

	if err := s.db.Save(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// AssignMentor sets the project mentor; admin only, and only when the seat
// is vacant or held by the same mentor.
func (s *ProjectService) AssignMentor(projectID uuid.UUID, caller Caller, mentorID uuid.UUID) (*models.Project, error) {
	if !caller.IsAdmin() {
		return nil, apperr.Forbidden("only an admin can assign a mentor")
	}

	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		return nil, apperr.NotFound("project not found")
	}

	var mentor models.User
	if err := s.db.First(&mentor, "id = ? AND role = ?", mentorID, models.RoleMentor).Error; err != nil {
		return nil, apperr.NotFound("mentor not found")
	}

	if project.MentorID != nil && *project.MentorID != mentorID {
		return nil, apperr.Conflict("project already has a mentor")
	}

	project.MentorID = &mentorID
	if err := s.db.Save(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// Delete removes a project; restricted to its creator or an admin.
func (s *ProjectService) Delete(projectID uuid.UUID, caller Caller) error {
	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		return apperr.NotFound("project not found")
	}
	if !caller.IsAdmin() && project.CreatedBy != caller.ID {
		return apperr.Forbidden("only the project creator or an admin can delete it")
	}
	return s.db.Delete(&project).Error
}
