package services

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/teamforge/mentor-platform/internal/apperr"
	"github.com/teamforge/mentor-platform/internal/models"
)

// SprintService groups tasks into time-boxed sprints and derives the
// burndown series from the task lifecycle state.
type SprintService struct {
	db    *gorm.DB
	authz *Authorizer
}

func NewSprintService(db *gorm.DB, authz *Authorizer) *SprintService {
	return &SprintService{db: db, authz: authz}
}

func (s *SprintService) Create(projectID uuid.UUID, caller Caller, req models.CreateSprintRequest) (*models.Sprint, error) {
	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		return nil, apperr.NotFound("project not found")
	}
	if err := s.authz.CanAccessProject(caller, &project); err != nil {
		return nil, err
	}

	if !req.EndDate.After(req.StartDate) {
		return nil, apperr.Validation("sprint end date must be after the start date")
	}

	sprint := models.Sprint{
		ProjectID: projectID,
		Name:      req.Name,
		Goal:      req.Goal,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Status:    models.SprintPlanned,
	}
	if err := s.db.Create(&sprint).Error; err != nil {
		return nil, err
	}
	return &sprint, nil
}

func (s *SprintService) List(projectID uuid.UUID, caller Caller) ([]models.Sprint, error) {
	var project models.Project
	if err := s.db.First(&project, "id = ?", projectID).Error; err != nil {
		return nil, apperr.NotFound("project not found")
	}
	if err := s.authz.CanAccessProject(caller, &project); err != nil {
		return nil, err
	}

	var sprints []models.Sprint
	if err := s.db.Where("project_id = ?", projectID).Order("start_date").Find(&sprints).Error; err != nil {
		return nil, err
	}
	return sprints, nil
}

func (s *SprintService) Get(sprintID uuid.UUID, caller Caller) (*models.Sprint, error) {
	sprint, project, err := s.load(sprintID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessProject(caller, project); err != nil {
		return nil, err
	}
	if err := s.db.Preload("Tasks").First(sprint, "id = ?", sprint.ID).Error; err != nil {
		return nil, err
	}
	return sprint, nil
}

func (s *SprintService) Update(sprintID uuid.UUID, caller Caller, req models.UpdateSprintRequest) (*models.Sprint, error) {
	sprint, project, err := s.load(sprintID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessProject(caller, project); err != nil {
		return nil, err
	}

	if req.Name != nil {
		sprint.Name = *req.Name
	}
	if req.Goal != nil {
		sprint.Goal = *req.Goal
	}
	if req.Status != nil {
		switch *req.Status {
		case models.SprintPlanned, models.SprintActive, models.SprintCompleted:
			sprint.Status = *req.Status
		default:
			return nil, apperr.Validation("invalid sprint status %q", *req.Status)
		}
	}

	if err := s.db.Save(sprint).Error; err != nil {
		return nil, err
	}
	return sprint, nil
}

// ComputeBurndown samples one point per day from sprint start to end.
// Total points reflect the sprint's tasks at query time, so scope added
// mid-sprint shows up as a jump rather than being smoothed away. Tasks
// count toward "actual" from their completion timestamp onward.
func (s *SprintService) ComputeBurndown(sprintID uuid.UUID, caller Caller) (*models.BurndownReport, error) {
	sprint, project, err := s.load(sprintID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CanAccessProject(caller, project); err != nil {
		return nil, err
	}

	var tasks []models.Task
	if err := s.db.Where("sprint_id = ?", sprintID).Find(&tasks).Error; err != nil {
		return nil, err
	}

	report := &models.BurndownReport{SprintID: sprintID}
	for _, t := range tasks {
		report.TotalPoints += t.StoryPoints
		if t.Status == models.TaskCompleted {
			report.SecuredPoints += t.StoryPoints
		}
	}

	start := truncateToDay(sprint.StartDate)
	end := truncateToDay(sprint.EndDate)
	days := int(end.Sub(start).Hours()/24) + 1
	if days < 2 {
		days = 2
	}

	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)
		ideal := float64(report.TotalPoints) * float64(i) / float64(days-1)

		actual := 0
		cutoff := date.AddDate(0, 0, 1)
		for _, t := range tasks {
			if t.CompletedAt != nil && t.CompletedAt.Before(cutoff) {
				actual += t.StoryPoints
			}
		}

		report.Points = append(report.Points, models.BurndownPoint{
			Date:   date,
			Ideal:  ideal,
			Actual: actual,
		})
	}

	return report, nil
}

func (s *SprintService) Delete(sprintID uuid.UUID, caller Caller) error {
	sprint, project, err := s.load(sprintID)
	if err != nil {
		return err
	}
	if err := s.authz.CanEditProject(caller, project); err != nil {
		return err
	}

	// Detach tasks instead of deleting them; the work outlives the box.
	if err := s.db.Model(&models.Task{}).Where("sprint_id = ?", sprintID).Update("sprint_id", nil).Error; err != nil {
		return err
	}
	return s.db.Delete(sprint).Error
}

func (s *SprintService) load(sprintID uuid.UUID) (*models.Sprint, *models.Project, error) {
	var sprint models.Sprint
	if err := s.db.First(&sprint, "id = ?", sprintID).Error; err != nil {
		return nil, nil, apperr.NotFound("sprint not found")
	}
	var project models.Project
	if err := s.db.First(&project, "id = ?", sprint.ProjectID).Error; err != nil {
		return nil, nil, apperr.NotFound("project not found")
	}
	return &sprint, &project, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
