package services

import (
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teamforge/mentor-platform/internal/apperr"
	"github.com/teamforge/mentor-platform/internal/models"
)

// MaxTaskScreenshots bounds the proof-of-work attachments per submission.
const MaxTaskScreenshots = 5

// TaskService drives the submission-gated task state machine:
//
//	pending --start--> in_progress --submit--> (pending_review)
//	pending_review --approve--> completed + verified
//	pending_review --reject----> in_progress (submission rejected)
//
// The workflow stage and the review sub-state are tracked separately so a
// rejected submission keeps the task visibly in progress.
type TaskService struct {
	db            *gorm.DB
	authz         *Authorizer
	notifications *NotificationService
	storage       *StorageService
	now           func() time.Time
}

func NewTaskService(db *gorm.DB, authz *Authorizer, notifications *NotificationService, storage *StorageService) *TaskService {
	return &TaskService{db: db, authz: authz, notifications: notifications, storage: storage, now: time.Now}
}

// Create adds a task; the assignee is resolved from email at write time.
func (s *TaskService) Create(projectID uuid.UUID, caller Caller, req models.CreateTaskRequest) (*models.Task, error) {
	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		return nil, apperr.NotFound("project not found")
	}
	if err := s.authz.CanAccessProject(caller, &project); err != nil {
		return nil, err
	}

	task := models.Task{
		ProjectID:   projectID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    defaultPriority(req.Priority),
		StoryPoints: req.StoryPoints,
		Status:      models.TaskPending,
	}

	if req.AssigneeEmail != "" {
		task.AssigneeEmail = normalizeEmail(req.AssigneeEmail)
		task.AssigneeID = s.resolveAssignee(task.AssigneeEmail)
	}

	if req.SprintID != "" {
		sprintID, err := uuid.Parse(req.SprintID)
		if err != nil {
			return nil, apperr.Validation("invalid sprint id")
		}
		var sprint models.Sprint
		if err := s.db.First(&sprint, "id = ? AND project_id = ?", sprintID, projectID).Error; err != nil {
			return nil, apperr.NotFound("sprint not found on this project")
		}
		task.SprintID = &sprintID
	}

	if err := s.db.Create(&task).Error; err != nil {
		return nil, err
	}

	if task.AssigneeID != nil {
		s.notifications.Notify(*task.AssigneeID, caller.ID, models.NotifTaskAssigned,
			"Task assigned",
			"You were assigned "+task.Title+" on "+project.Title,
			NotificationRefs{ProjectID: &project.ID})
	}
	return &task, nil
}

// List returns the project's tasks, optionally filtered by sprint.
func (s *TaskService) List(projectID uuid.UUID, caller Caller, sprintID *uuid.UUID) ([]models.Task, error) {
	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		return nil, apperr.NotFound("project not found")
	}
	if err := s.authz.CanAccessProject(caller, &project); err != nil {
		return nil, err
	}

	query := s.db.Where("project_id = ?", projectID).Preload("Screenshots")
	if sprintID != nil {
		query = query.Where("sprint_id = ?", *sprintID)
	}

	var tasks []models.Task
	if err := query.Order("created_at").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update applies partial edits. Verified tasks reject all changes from
// non-privileged callers, and a student cannot flip a story-pointed task
// straight to completed; those go through submit and review.
func (s *TaskService) Update(taskID uuid.UUID, caller Caller, req models.UpdateTaskRequest) (*models.Task, error) {
	task, project, err := s.load(taskID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessProject(caller, project); err != nil {
		return nil, err
	}

	privileged := s.authz.CanReview(caller, project) == nil
	if task.IsVerified && !privileged {
		return nil, apperr.Forbidden("verified tasks can no longer be edited")
	}

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Priority != nil {
		task.Priority = defaultPriority(*req.Priority)
	}
	if req.StoryPoints != nil {
		task.StoryPoints = *req.StoryPoints
	}
	if req.AssigneeEmail != nil {
		task.AssigneeEmail = normalizeEmail(*req.AssigneeEmail)
		task.AssigneeID = s.resolveAssignee(task.AssigneeEmail)
	}
	if req.Status != nil {
		if err := s.checkStatusEdit(task, caller, *req.Status, privileged); err != nil {
			return nil, err
		}
		task.Status = *req.Status
		if *req.Status == models.TaskCompleted && task.CompletedAt == nil {
			completedAt := s.now()
			task.CompletedAt = &completedAt
		}
	}

	updates := map[string]interface{}{
		"title":          task.Title,
		"description":    task.Description,
		"priority":       task.Priority,
		"story_points":   task.StoryPoints,
		"assignee_email": task.AssigneeEmail,
		"assignee_id":    task.AssigneeID,
		"status":         task.Status,
		"completed_at":   task.CompletedAt,
	}
	if err := s.transition(task, updates); err != nil {
		return nil, err
	}
	return task, nil
}

// Start moves a pending task into progress.
func (s *TaskService) Start(taskID uuid.UUID, caller Caller) (*models.Task, error) {
	task, project, err := s.load(taskID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessProject(caller, project); err != nil {
		return nil, err
	}
	if task.Status != models.TaskPending {
		return nil, apperr.Validation("task is already %s", task.Status)
	}

	if err := s.transition(task, map[string]interface{}{
		"status": models.TaskInProgress,
	}); err != nil {
		return nil, err
	}
	task.Status = models.TaskInProgress
	return task, nil
}

// Submit attaches proof of work and puts the submission under review.
// Screenshot count, type and size are validated before anything touches
// storage, so an oversized batch leaves no partial upload behind.
func (s *TaskService) Submit(taskID uuid.UUID, caller Caller, link string, screenshots []*multipart.FileHeader) (*models.Task, error) {
	task, project, err := s.load(taskID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessProject(caller, project); err != nil {
		return nil, err
	}

	if task.IsVerified {
		return nil, apperr.Validation("task is already verified")
	}
	if task.Status != models.TaskInProgress {
		return nil, apperr.Validation("only in-progress tasks can be submitted; task is %s", task.Status)
	}
	if task.SubmissionStatus == models.SubmissionPendingReview {
		return nil, apperr.Conflict("task submission is already awaiting review")
	}
	if strings.TrimSpace(link) == "" {
		return nil, apperr.Validation("submission link is required")
	}

	if len(screenshots) > MaxTaskScreenshots {
		return nil, apperr.Validation("at most %d screenshots are allowed, got %d", MaxTaskScreenshots, len(screenshots))
	}
	for _, fh := range screenshots {
		if err := s.storage.ValidateImage(fh); err != nil {
			return nil, err
		}
	}

	// All inputs validated; the version guard runs first so a lost race
	// stores nothing on disk.
	submittedAt := s.now()
	var stored []models.TaskScreenshot
	err = s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Task{}).
			Where("id = ? AND version = ?", task.ID, task.Version).
			Updates(map[string]interface{}{
				"submission_status": models.SubmissionPendingReview,
				"submission_link":   strings.TrimSpace(link),
				"submitted_at":      submittedAt,
				"version":           task.Version + 1,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.Conflict("task was modified concurrently, reload and retry")
		}
		for _, fh := range screenshots {
			path, name, err := s.storage.SaveTaskScreenshot(task.ID, fh)
			if err != nil {
				return err
			}
			stored = append(stored, models.TaskScreenshot{TaskID: task.ID, FilePath: path, FileName: name})
			if err := tx.Create(&stored[len(stored)-1]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// A failed round rolls back its rows; the files saved so far must
		// not stay behind as orphans.
		for _, sc := range stored {
			s.storage.Delete(sc.FilePath)
		}
		return nil, err
	}

	task.Version++
	task.SubmissionStatus = models.SubmissionPendingReview
	task.SubmissionLink = strings.TrimSpace(link)
	task.SubmittedAt = &submittedAt
	task.Screenshots = stored

	if project.MentorID != nil {
		s.notifications.Notify(*project.MentorID, caller.ID, models.NotifTaskSubmitted,
			"Task submitted",
			task.Title+" was submitted for review on "+project.Title,
			NotificationRefs{ProjectID: &project.ID})
	}
	return task, nil
}

// ReviewSubmission approves or rejects a pending submission. Approval
// completes and verifies the task; rejection sends it back to in_progress
// with the submission marked rejected.
func (s *TaskService) ReviewSubmission(taskID uuid.UUID, caller Caller, req models.ReviewTaskRequest) (*models.Task, error) {
	task, project, err := s.load(taskID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanReview(caller, project); err != nil {
		return nil, err
	}

	if task.SubmissionStatus != models.SubmissionPendingReview {
		return nil, apperr.Validation("task has no submission awaiting review")
	}

	updates := map[string]interface{}{}
	notifType := models.NotifTaskRejected
	notifTitle := "Task submission rejected"
	if req.Approve {
		completedAt := s.now()
		updates["submission_status"] = models.SubmissionApproved
		updates["status"] = models.TaskCompleted
		updates["completed_at"] = completedAt
		updates["is_verified"] = true
		updates["verified_by"] = caller.ID
		notifType = models.NotifTaskApproved
		notifTitle = "Task submission approved"
	} else {
		updates["submission_status"] = models.SubmissionRejected
		updates["status"] = models.TaskInProgress
	}

	if err := s.transition(task, updates); err != nil {
		return nil, err
	}

	if req.Approve {
		task.SubmissionStatus = models.SubmissionApproved
		task.Status = models.TaskCompleted
		task.IsVerified = true
		task.VerifiedBy = &caller.ID
		completedAt := s.now()
		task.CompletedAt = &completedAt
	} else {
		task.SubmissionStatus = models.SubmissionRejected
		task.Status = models.TaskInProgress
	}

	if task.AssigneeID != nil {
		message := task.Title + " on " + project.Title
		if req.Notes != "" {
			message += ": " + req.Notes
		}
		s.notifications.Notify(*task.AssigneeID, caller.ID, notifType,
			notifTitle, message,
			NotificationRefs{ProjectID: &project.ID})
	}
	return task, nil
}

// AssignToSprint moves a task into (or out of, with nil) a sprint.
func (s *TaskService) AssignToSprint(taskID uuid.UUID, caller Caller, sprintID *uuid.UUID) (*models.Task, error) {
	task, project, err := s.load(taskID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessProject(caller, project); err != nil {
		return nil, err
	}

	if sprintID != nil {
		var sprint models.Sprint
		if err := s.db.First(&sprint, "id = ? AND project_id = ?", *sprintID, task.ProjectID).Error; err != nil {
			return nil, apperr.NotFound("sprint not found on this project")
		}
	}

	if err := s.transition(task, map[string]interface{}{"sprint_id": sprintID}); err != nil {
		return nil, err
	}
	task.SprintID = sprintID
	return task, nil
}

// Delete removes a task; mentor/owner/admin only.
func (s *TaskService) Delete(taskID uuid.UUID, caller Caller) error {
	task, project, err := s.load(taskID)
	if err != nil {
		return err
	}
	if err := s.authz.CanEditProject(caller, project); err != nil {
		return err
	}
	return s.db.Delete(task).Error
}

// checkStatusEdit enforces the submit-then-review flow: a student cannot
// mark a story-pointed task completed by editing the status directly.
func (s *TaskService) checkStatusEdit(task *models.Task, caller Caller, newStatus models.TaskStatus, privileged bool) error {
	switch newStatus {
	case models.TaskPending, models.TaskInProgress, models.TaskCompleted:
	default:
		return apperr.Validation("invalid task status %q", newStatus)
	}
	if newStatus == models.TaskCompleted && !privileged && task.StoryPoints > 0 {
		return apperr.Forbidden("story-pointed tasks are completed through submission review, not a direct status edit")
	}
	return nil
}

func (s *TaskService) transition(task *models.Task, updates map[string]interface{}) error {
	updates["version"] = task.Version + 1
	return s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Task{}).
			Where("id = ? AND version = ?", task.ID, task.Version).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperr.Conflict("task was modified concurrently, reload and retry")
		}
		task.Version++
		return nil
	})
}

func (s *TaskService) load(taskID uuid.UUID) (*models.Task, *models.Project, error) {
	var task models.Task
	if err := s.db.Preload("Screenshots").First(&task, "id = ?", taskID).Error; err != nil {
		return nil, nil, apperr.NotFound("task not found")
	}
	var project models.Project
	if err := s.db.First(&project, "id = ?", task.ProjectID).Error; err != nil {
		return nil, nil, apperr.NotFound("project not found")
	}
	return &task, &project, nil
}

// resolveAssignee maps an email to a registered account if one exists. A
// nil result is a valid unassigned state.
func (s *TaskService) resolveAssignee(email string) *uuid.UUID {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil
	}
	id := user.ID
	return &id
}
