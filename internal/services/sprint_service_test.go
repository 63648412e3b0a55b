package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/teamforge/mentor-platform/internal/apperr"
	"github.com/teamforge/mentor-platform/internal/models"
)

func newSprintService(db *gorm.DB) *SprintService {
	return NewSprintService(db, NewAuthorizer(db))
}

func addSprintTask(t *testing.T, db *gorm.DB, project *models.Project, sprintID uuid.UUID, points int, completedAt *time.Time) {
	t.Helper()
	status := models.TaskPending
	if completedAt != nil {
		status = models.TaskCompleted
	}
	task := &models.Task{
		ProjectID:   project.ID,
		SprintID:    &sprintID,
		Title:       "work",
		StoryPoints: points,
		Status:      status,
		CompletedAt: completedAt,
	}
	require.NoError(t, db.Create(task).Error)
}

func TestSprintCreateValidatesDates(t *testing.T) {
	db := newTestDB(t)
	svc := newSprintService(db)
	owner := createUser(t, db, "owner@test.io", models.RoleStudent)
	project := createProject(t, db, owner, nil)

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	_, err := svc.Create(project.ID, asCaller(owner), models.CreateSprintRequest{
		Name: "Sprint 1", StartDate: start, EndDate: start,
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	sprint, err := svc.Create(project.ID, asCaller(owner), models.CreateSprintRequest{
		Name: "Sprint 1", StartDate: start, EndDate: start.AddDate(0, 0, 14),
	})
	require.NoError(t, err)
	assert.Equal(t, models.SprintPlanned, sprint.Status)
}

func TestSprintBurndown(t *testing.T) {
	db := newTestDB(t)
	svc := newSprintService(db)
	owner := createUser(t, db, "owner@test.io", models.RoleStudent)
	project := createProject(t, db, owner, nil)

	// A five-day sprint: 5+3+2 points, the 5-pointer done on day two and
	// the 2-pointer on day four.
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 4)
	sprint, err := svc.Create(project.ID, asCaller(owner), models.CreateSprintRequest{
		Name: "Sprint 1", StartDate: start, EndDate: end,
	})
	require.NoError(t, err)

	dayTwo := start.AddDate(0, 0, 1)
	dayFour := start.AddDate(0, 0, 3)
	addSprintTask(t, db, project, sprint.ID, 5, &dayTwo)
	addSprintTask(t, db, project, sprint.ID, 3, nil)
	addSprintTask(t, db, project, sprint.ID, 2, &dayFour)

	report, err := svc.ComputeBurndown(sprint.ID, asCaller(owner))
	require.NoError(t, err)

	assert.Equal(t, 10, report.TotalPoints)
	assert.Equal(t, 7, report.SecuredPoints)
	assert.LessOrEqual(t, report.SecuredPoints, report.TotalPoints)
	require.Len(t, report.Points, 5)

	// The ideal line climbs monotonically from zero to the full total.
	assert.Equal(t, 0.0, report.Points[0].Ideal)
	for i := 1; i < len(report.Points); i++ {
		assert.GreaterOrEqual(t, report.Points[i].Ideal, report.Points[i-1].Ideal)
	}
	assert.Equal(t, float64(report.TotalPoints), report.Points[len(report.Points)-1].Ideal)

	// Completed points accumulate from their completion day onward.
	assert.Equal(t, 0, report.Points[0].Actual)
	assert.Equal(t, 5, report.Points[1].Actual)
	assert.Equal(t, 5, report.Points[2].Actual)
	assert.Equal(t, 7, report.Points[3].Actual)
	assert.Equal(t, 7, report.Points[4].Actual)
}

func TestSprintBurndownEmpty(t *testing.T) {
	db := newTestDB(t)
	svc := newSprintService(db)
	owner := createUser(t, db, "owner@test.io", models.RoleStudent)
	project := createProject(t, db, owner, nil)

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	sprint, err := svc.Create(project.ID, asCaller(owner), models.CreateSprintRequest{
		Name: "Sprint 1", StartDate: start, EndDate: start.AddDate(0, 0, 1),
	})
	require.NoError(t, err)

	report, err := svc.ComputeBurndown(sprint.ID, asCaller(owner))
	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalPoints)
	assert.Equal(t, 0, report.SecuredPoints)
	require.NotEmpty(t, report.Points)
	for _, p := range report.Points {
		assert.Equal(t, 0.0, p.Ideal)
		assert.Equal(t, 0, p.Actual)
	}
}

func TestSprintDeleteDetachesTasks(t *testing.T) {
	db := newTestDB(t)
	svc := newSprintService(db)
	owner := createUser(t, db, "owner@test.io", models.RoleStudent)
	project := createProject(t, db, owner, nil)

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	sprint, err := svc.Create(project.ID, asCaller(owner), models.CreateSprintRequest{
		Name: "Sprint 1", StartDate: start, EndDate: start.AddDate(0, 0, 14),
	})
	require.NoError(t, err)
	addSprintTask(t, db, project, sprint.ID, 3, nil)

	require.NoError(t, svc.Delete(sprint.ID, asCaller(owner)))

	// The work outlives the box.
	var tasks []models.Task
	require.NoError(t, db.Where("project_id = ?", project.ID).Find(&tasks).Error)
	require.Len(t, tasks, 1)
	assert.Nil(t, tasks[0].SprintID)

	_, err = svc.Get(sprint.ID, asCaller(owner))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestSprintUpdateValidatesStatus(t *testing.T) {
	db := newTestDB(t)
	svc := newSprintService(db)
	owner := createUser(t, db, "owner@test.io", models.RoleStudent)
	project := createProject(t, db, owner, nil)

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	sprint, err := svc.Create(project.ID, asCaller(owner), models.CreateSprintRequest{
		Name: "Sprint 1", StartDate: start, EndDate: start.AddDate(0, 0, 14),
	})
	require.NoError(t, err)

	active := models.SprintActive
	updated, err := svc.Update(sprint.ID, asCaller(owner), models.UpdateSprintRequest{Status: &active})
	require.NoError(t, err)
	assert.Equal(t, models.SprintActive, updated.Status)

	bogus := models.SprintStatus("paused")
	_, err = svc.Update(sprint.ID, asCaller(owner), models.UpdateSprintRequest{Status: &bogus})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
