package services

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teamforge/mentor-platform/internal/apperr"
	"github.com/teamforge/mentor-platform/internal/models"
)

// MilestoneService drives the milestone state machine:
//
//	not_started --submit--> submitted --approve--> approved
//	                        submitted --reject---> not_started (resubmittable)
//
// Every transition is an optimistic compare-and-swap on the version counter
// inside a transaction, so two reviewers racing on the same submission
// cannot both win.
type MilestoneService struct {
	db            *gorm.DB
	authz         *Authorizer
	notifications *NotificationService
	now           func() time.Time
}

func NewMilestoneService(db *gorm.DB, authz *Authorizer, notifications *NotificationService) *MilestoneService {
	return &MilestoneService{db: db, authz: authz, notifications: notifications, now: time.Now}
}

// Create adds a milestone (or a sub-milestone when ParentID is set) in the
// not_started state.
func (s *MilestoneService) Create(projectID uuid.UUID, caller Caller, req models.CreateMilestoneRequest) (*models.Milestone, error) {
	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		return nil, apperr.NotFound("project not found")
	}
	if err := s.authz.CanAccessProject(caller, &project); err != nil {
		return nil, err
	}

	milestone := models.Milestone{
		ProjectID:   projectID,
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Priority:    defaultPriority(req.Priority),
		Status:      models.MilestoneNotStarted,
	}

	if req.ParentID != "" {
		parentID, err := uuid.Parse(req.ParentID)
		if err != nil {
			return nil, apperr.Validation("invalid parent milestone id")
		}
		var parent models.Milestone
		if err := s.db.First(&parent, "id = ? AND project_id = ?", parentID, projectID).Error; err != nil {
			return nil, apperr.NotFound("parent milestone not found")
		}
		milestone.ParentID = &parentID
	}

	var position int64
	s.db.Model(&models.Milestone{}).Where("project_id = ?", projectID).Count(&position)
	milestone.Position = int(position)

	if err := s.db.Create(&milestone).Error; err != nil {
		return nil, err
	}
	return &milestone, nil
}

// Get loads one milestone with its sub-milestones.
func (s *MilestoneService) Get(milestoneID uuid.UUID, caller Caller) (*models.Milestone, error) {
	var milestone models.Milestone
	if err := s.db.Preload("SubMilestones").First(&milestone, "id = ?", milestoneID).Error; err != nil {
		return nil, apperr.NotFound("milestone not found")
	}

	var project models.Project
	if err := s.db.First(&project, "id = ?", milestone.ProjectID).Error; err != nil {
		return nil, apperr.NotFound("project not found")
	}
	if err := s.authz.CanAccessProject(caller, &project); err != nil {
		return nil, err
	}
	return &milestone, nil
}

// List returns the ordered top-level milestones of a project.
func (s *MilestoneService) List(projectID uuid.UUID, caller Caller) ([]models.Milestone, error) {
	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		return nil, apperr.NotFound("project not found")
	}
	if err := s.authz.CanAccessProject(caller, &project); err != nil {
		return nil, err
	}

	var milestones []models.Milestone
	err := s.db.Where("project_id = ? AND parent_id IS NULL", projectID).
		Preload("SubMilestones").
		Order("position").
		Find(&milestones).Error
	if err != nil {
		return nil, err
	}
	return milestones, nil
}

// Update edits descriptive fields. Approved milestones are frozen.
func (s *MilestoneService) Update(milestoneID uuid.UUID, caller Caller, req models.UpdateMilestoneRequest) (*models.Milestone, error) {
	milestone, project, err := s.load(milestoneID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessProject(caller, project); err != nil {
		return nil, err
	}
	if milestone.Status == models.MilestoneApproved && !caller.IsAdmin() {
		return nil, apperr.Forbidden("approved milestones cannot be edited")
	}

	if req.Title != nil {
		milestone.Title = *req.Title
	}
	if req.Description != nil {
		milestone.Description = *req.Description
	}
	if req.DueDate != nil {
		milestone.DueDate = req.DueDate
	}
	if req.Priority != nil {
		milestone.Priority = defaultPriority(*req.Priority)
	}

	if err := s.db.Save(milestone).Error; err != nil {
		return nil, err
	}
	return milestone, nil
}

// Start moves a not_started milestone into progress.
func (s *MilestoneService) Start(milestoneID uuid.UUID, caller Caller) (*models.Milestone, error) {
	milestone, project, err := s.load(milestoneID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessProject(caller, project); err != nil {
		return nil, err
	}
	if milestone.Status != models.MilestoneNotStarted {
		return nil, apperr.Validation("milestone is already %s", milestone.Status)
	}

	if err := s.transition(milestone, map[string]interface{}{
		"status": models.MilestoneInProgress,
	}); err != nil {
		return nil, err
	}
	milestone.Status = models.MilestoneInProgress
	return milestone, nil
}

// Submit records the proof of work and moves the milestone to submitted.
// The link must match the project's canonical repository when one is set;
// the comparison ignores case and trailing slashes.
func (s *MilestoneService) Submit(milestoneID uuid.UUID, caller Caller, req models.SubmitMilestoneRequest) (*models.Milestone, error) {
	if strings.TrimSpace(req.Link) == "" || strings.TrimSpace(req.Description) == "" {
		return nil, apperr.Validation("submission link and description are required")
	}

	milestone, project, err := s.load(milestoneID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessProject(caller, project); err != nil {
		return nil, err
	}

	if milestone.Status == models.MilestoneApproved {
		return nil, apperr.Validation("milestone is already approved")
	}
	if milestone.Status == models.MilestoneSubmitted {
		return nil, apperr.Conflict("milestone is already submitted and awaiting review")
	}

	if project.RepositoryURL != "" && !repoLinksMatch(req.Link, project.RepositoryURL) {
		return nil, apperr.Validation("submission link must point to the project repository %s", project.RepositoryURL)
	}

	submittedAt := s.now()
	if err := s.transition(milestone, map[string]interface{}{
		"status":          models.MilestoneSubmitted,
		"submission_link": strings.TrimSpace(req.Link),
		"submission_note": req.Description,
		"submitted_by":    caller.ID,
		"submitted_at":    submittedAt,
	}); err != nil {
		return nil, err
	}

	milestone.Status = models.MilestoneSubmitted
	milestone.SubmissionLink = strings.TrimSpace(req.Link)
	milestone.SubmissionNote = req.Description
	milestone.SubmittedBy = &caller.ID
	milestone.SubmittedAt = &submittedAt

	if project.MentorID != nil {
		s.notifications.Notify(*project.MentorID, caller.ID, models.NotifMilestoneSubmitted,
			"Milestone submitted",
			milestone.Title+" was submitted for review on "+project.Title,
			NotificationRefs{ProjectID: &project.ID})
	}
	return milestone, nil
}

// Review approves or rejects a submitted milestone. Approval is terminal
// for the round; rejection requires notes and returns the milestone to
// not_started, keeping the notes for the resubmission.
func (s *MilestoneService) Review(milestoneID uuid.UUID, caller Caller, req models.ReviewMilestoneRequest) (*models.Milestone, error) {
	milestone, project, err := s.load(milestoneID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanReview(caller, project); err != nil {
		return nil, err
	}

	if milestone.Status != models.MilestoneSubmitted {
		return nil, apperr.Validation("only submitted milestones can be reviewed; milestone is %s", milestone.Status)
	}
	if !req.Approve && strings.TrimSpace(req.Notes) == "" {
		return nil, apperr.Validation("rejection requires notes with actionable feedback")
	}

	reviewedAt := s.now()
	newStatus := models.MilestoneNotStarted
	notifType := models.NotifMilestoneRejected
	notifTitle := "Milestone rejected"
	if req.Approve {
		newStatus = models.MilestoneApproved
		notifType = models.NotifMilestoneApproved
		notifTitle = "Milestone approved"
	}

	if err := s.transition(milestone, map[string]interface{}{
		"status":       newStatus,
		"review_notes": req.Notes,
		"reviewed_by":  caller.ID,
		"reviewed_at":  reviewedAt,
	}); err != nil {
		return nil, err
	}

	milestone.Status = newStatus
	milestone.ReviewNotes = req.Notes
	milestone.ReviewedBy = &caller.ID
	milestone.ReviewedAt = &reviewedAt

	if milestone.SubmittedBy != nil {
		s.notifications.Notify(*milestone.SubmittedBy, caller.ID, notifType,
			notifTitle,
			milestone.Title+" on "+project.Title+": "+req.Notes,
			NotificationRefs{ProjectID: &project.ID})
	}
	return milestone, nil
}

// Delete removes a milestone; mentor/owner/admin only.
func (s *MilestoneService) Delete(milestoneID uuid.UUID, caller Caller) error {
	milestone, project, err := s.load(milestoneID)
	if err != nil {
		return err
	}
	if err := s.authz.CanEditProject(caller, project); err != nil {
		return err
	}
	return s.db.Delete(milestone).Error
}

// transition applies updates guarded by the version the caller read. The
// re-check runs inside the transaction; a concurrent writer bumps the
// version first and the second writer gets Conflict.
func (s *MilestoneService) transition(milestone *models.Milestone, updates map[string]interface{}) error {
	updates["version"] = milestone.Version + 1
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Milestone{}).
			Where("id = ? AND version = ?", milestone.ID, milestone.Version).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.Conflict("milestone was modified concurrently, reload and retry")
		}
		milestone.Version++
		return nil
	})
}

func (s *MilestoneService) load(milestoneID uuid.UUID) (*models.Milestone, *models.Project, error) {
	var milestone models.Milestone
	if err := s.db.First(&milestone, "id = ?", milestoneID).Error; err != nil {
		return nil, nil, apperr.NotFound("milestone not found")
	}
	var project models.Project
	if err := s.db.First(&project, "id = ?", milestone.ProjectID).Error; err != nil {
		return nil, nil, apperr.NotFound("project not found")
	}
	return &milestone, &project, nil
}

// repoLinksMatch compares repository links ignoring case and trailing
// slashes.
func repoLinksMatch(link, canonical string) bool {
	norm := func(s string) string {
		return strings.TrimRight(strings.ToLower(strings.TrimSpace(s)), "/")
	}
	return norm(link) == norm(canonical)
}

func defaultPriority(p string) string {
	switch p {
	case "low", "medium", "high":
		return p
	default:
		return "medium"
	}
}
