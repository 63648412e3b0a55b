package services

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/teamforge/mentor-platform/internal/apperr"
	"github.com/teamforge/mentor-platform/internal/config"
	"github.com/teamforge/mentor-platform/internal/models"
)

func newTaskService(t *testing.T, db *gorm.DB) (*TaskService, string) {
	uploadDir := t.TempDir()
	storage := NewStorageService(&config.Config{UploadDir: uploadDir})
	return NewTaskService(db, NewAuthorizer(db), NewNotificationService(db, nil), storage), uploadDir
}

func taskFixture(t *testing.T) (*gorm.DB, *TaskService, *models.User, *models.User, *models.Project) {
	db := newTestDB(t)
	svc, _ := newTaskService(t, db)
	owner := createUser(t, db, "owner@test.io", models.RoleStudent)
	mentor := createUser(t, db, "mentor@test.io", models.RoleMentor)
	project := createProject(t, db, owner, mentor)
	return db, svc, owner, mentor, project
}

func screenshotHeaders(n int) []*multipart.FileHeader {
	headers := make([]*multipart.FileHeader, n)
	for i := range headers {
		headers[i] = &multipart.FileHeader{Filename: "proof.png", Size: 1024}
	}
	return headers
}

// openableScreenshots builds headers whose Open() works, the shape the
// handler hands over from a real multipart request.
func openableScreenshots(t *testing.T, names ...string) []*multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range names {
		part, err := w.CreateFormFile("screenshots", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("fake image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 10)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["screenshots"]
}

func listTaskUploads(t *testing.T, uploadDir string, taskID interface{ String() string }) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(uploadDir, "tasks", taskID.String()))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return entries
}

func TestTaskCreateResolvesAssignee(t *testing.T) {
	db, svc, owner, _, project := taskFixture(t)

	dev := createUser(t, db, "dev@test.io", models.RoleStudent)

	task, err := svc.Create(project.ID, asCaller(owner), models.CreateTaskRequest{
		Title:         "Build login",
		AssigneeEmail: "DEV@test.io",
		StoryPoints:   3,
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskPending, task.Status)
	assert.Equal(t, "dev@test.io", task.AssigneeEmail)
	require.NotNil(t, task.AssigneeID)
	assert.Equal(t, dev.ID, *task.AssigneeID)
	assert.EqualValues(t, 1, countNotifications(t, db, dev.ID, models.NotifTaskAssigned))

	// An unknown email is a valid unassigned state, not an error.
	task, err = svc.Create(project.ID, asCaller(owner), models.CreateTaskRequest{
		Title:         "Write docs",
		AssigneeEmail: "ghost@test.io",
	})
	require.NoError(t, err)
	assert.Nil(t, task.AssigneeID)
	assert.Equal(t, "ghost@test.io", task.AssigneeEmail)
}

func TestTaskSubmitScreenshotLimit(t *testing.T) {
	db, svc, owner, _, project := taskFixture(t)

	task, err := svc.Create(project.ID, asCaller(owner), models.CreateTaskRequest{Title: "Build login"})
	require.NoError(t, err)
	_, err = svc.Start(task.ID, asCaller(owner))
	require.NoError(t, err)

	// One over the limit: rejected up front, nothing stored.
	_, err = svc.Submit(task.ID, asCaller(owner), "https://github.com/team/capstone/pull/1", screenshotHeaders(MaxTaskScreenshots+1))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	var stored int64
	require.NoError(t, db.Model(&models.TaskScreenshot{}).Where("task_id = ?", task.ID).Count(&stored).Error)
	assert.EqualValues(t, 0, stored)

	var reloaded models.Task
	require.NoError(t, db.First(&reloaded, "id = ?", task.ID).Error)
	assert.Equal(t, models.SubmissionNone, reloaded.SubmissionStatus)
}

func TestTaskSubmitRejectsBadImageBeforeStorage(t *testing.T) {
	db, svc, owner, _, project := taskFixture(t)

	task, err := svc.Create(project.ID, asCaller(owner), models.CreateTaskRequest{Title: "Build login"})
	require.NoError(t, err)
	_, err = svc.Start(task.ID, asCaller(owner))
	require.NoError(t, err)

	bad := []*multipart.FileHeader{
		{Filename: "ok.png", Size: 1024},
		{Filename: "malware.exe", Size: 1024},
	}
	_, err = svc.Submit(task.ID, asCaller(owner), "https://github.com/team/capstone/pull/1", bad)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	var stored int64
	require.NoError(t, db.Model(&models.TaskScreenshot{}).Where("task_id = ?", task.ID).Count(&stored).Error)
	assert.EqualValues(t, 0, stored)

	oversized := []*multipart.FileHeader{{Filename: "huge.png", Size: MaxImageSize + 1}}
	_, err = svc.Submit(task.ID, asCaller(owner), "https://github.com/team/capstone/pull/1", oversized)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestTaskSubmitStoresScreenshots(t *testing.T) {
	db := newTestDB(t)
	svc, uploadDir := newTaskService(t, db)
	owner := createUser(t, db, "owner@test.io", models.RoleStudent)
	project := createProject(t, db, owner, nil)

	task, err := svc.Create(project.ID, asCaller(owner), models.CreateTaskRequest{Title: "Build login"})
	require.NoError(t, err)
	_, err = svc.Start(task.ID, asCaller(owner))
	require.NoError(t, err)

	_, err = svc.Submit(task.ID, asCaller(owner), "https://github.com/team/capstone/pull/1",
		openableScreenshots(t, "before.png", "after.png"))
	require.NoError(t, err)

	var rows []models.TaskScreenshot
	require.NoError(t, db.Where("task_id = ?", task.ID).Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, row := range rows {
		_, err := os.Stat(filepath.Join(uploadDir, row.FilePath))
		assert.NoError(t, err)
	}
	assert.Len(t, listTaskUploads(t, uploadDir, task.ID), 2)
}

func TestTaskSubmitFailureLeavesNoOrphanFiles(t *testing.T) {
	db := newTestDB(t)
	svc, uploadDir := newTaskService(t, db)
	owner := createUser(t, db, "owner@test.io", models.RoleStudent)
	project := createProject(t, db, owner, nil)

	task, err := svc.Create(project.ID, asCaller(owner), models.CreateTaskRequest{Title: "Build login"})
	require.NoError(t, err)
	started, err := svc.Start(task.ID, asCaller(owner))
	require.NoError(t, err)

	// Break the screenshot table so the round fails after the files are
	// already on disk.
	require.NoError(t, db.Migrator().DropTable(&models.TaskScreenshot{}))

	_, err = svc.Submit(task.ID, asCaller(owner), "https://github.com/team/capstone/pull/1",
		openableScreenshots(t, "proof.png"))
	require.Error(t, err)

	// The rollback must take the stored files with it.
	assert.Empty(t, listTaskUploads(t, uploadDir, task.ID))

	var reloaded models.Task
	require.NoError(t, db.First(&reloaded, "id = ?", task.ID).Error)
	assert.Equal(t, models.SubmissionNone, reloaded.SubmissionStatus)
	assert.Equal(t, started.Version, reloaded.Version)
}

func TestTaskSubmitLifecycle(t *testing.T) {
	db, svc, owner, mentor, project := taskFixture(t)

	task, err := svc.Create(project.ID, asCaller(owner), models.CreateTaskRequest{Title: "Build login", StoryPoints: 3})
	require.NoError(t, err)

	// Pending tasks cannot be submitted.
	_, err = svc.Submit(task.ID, asCaller(owner), "https://github.com/team/capstone/pull/1", nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = svc.Start(task.ID, asCaller(owner))
	require.NoError(t, err)

	// A link is mandatory.
	_, err = svc.Submit(task.ID, asCaller(owner), "  ", nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	submitted, err := svc.Submit(task.ID, asCaller(owner), "https://github.com/team/capstone/pull/1", nil)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionPendingReview, submitted.SubmissionStatus)
	assert.Equal(t, models.TaskInProgress, submitted.Status)
	assert.EqualValues(t, 1, countNotifications(t, db, mentor.ID, models.NotifTaskSubmitted))

	// Submitting again while the first round is pending conflicts.
	_, err = svc.Submit(task.ID, asCaller(owner), "https://github.com/team/capstone/pull/1", nil)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestTaskReviewApprove(t *testing.T) {
	_, svc, owner, mentor, project := taskFixture(t)

	dev := asCaller(owner)
	task, err := svc.Create(project.ID, dev, models.CreateTaskRequest{
		Title: "Build login", StoryPoints: 3, AssigneeEmail: owner.Email,
	})
	require.NoError(t, err)
	_, err = svc.Start(task.ID, dev)
	require.NoError(t, err)
	_, err = svc.Submit(task.ID, dev, "https://github.com/team/capstone/pull/1", nil)
	require.NoError(t, err)

	approved, err := svc.ReviewSubmission(task.ID, asCaller(mentor), models.ReviewTaskRequest{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, approved.Status)
	assert.Equal(t, models.SubmissionApproved, approved.SubmissionStatus)
	assert.True(t, approved.IsVerified)
	require.NotNil(t, approved.VerifiedBy)
	assert.Equal(t, mentor.ID, *approved.VerifiedBy)
	assert.NotNil(t, approved.CompletedAt)

	// Verified tasks are immutable to the student.
	title := "renamed"
	_, err = svc.Update(task.ID, dev, models.UpdateTaskRequest{Title: &title})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	// But the mentor may still correct them.
	_, err = svc.Update(task.ID, asCaller(mentor), models.UpdateTaskRequest{Title: &title})
	require.NoError(t, err)
}

func TestTaskReviewReject(t *testing.T) {
	_, svc, owner, mentor, project := taskFixture(t)

	dev := asCaller(owner)
	task, err := svc.Create(project.ID, dev, models.CreateTaskRequest{Title: "Build login", StoryPoints: 3})
	require.NoError(t, err)
	_, err = svc.Start(task.ID, dev)
	require.NoError(t, err)
	_, err = svc.Submit(task.ID, dev, "https://github.com/team/capstone/pull/1", nil)
	require.NoError(t, err)

	rejected, err := svc.ReviewSubmission(task.ID, asCaller(mentor), models.ReviewTaskRequest{
		Approve: false, Notes: "screenshot does not show the flow",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskInProgress, rejected.Status)
	assert.Equal(t, models.SubmissionRejected, rejected.SubmissionStatus)
	assert.False(t, rejected.IsVerified)

	// The task can be resubmitted after the fix.
	_, err = svc.Submit(task.ID, dev, "https://github.com/team/capstone/pull/2", nil)
	require.NoError(t, err)

	// Students never review, not even their own resubmission.
	_, err = svc.ReviewSubmission(task.ID, asCaller(owner), models.ReviewTaskRequest{Approve: true})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestTaskStatusEditGuard(t *testing.T) {
	_, svc, owner, mentor, project := taskFixture(t)

	dev := asCaller(owner)
	pointed, err := svc.Create(project.ID, dev, models.CreateTaskRequest{Title: "Build login", StoryPoints: 5})
	require.NoError(t, err)

	// A student cannot shortcut a story-pointed task to completed.
	done := models.TaskCompleted
	_, err = svc.Update(pointed.ID, dev, models.UpdateTaskRequest{Status: &done})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	// Zero-point chores may be completed directly.
	chore, err := svc.Create(project.ID, dev, models.CreateTaskRequest{Title: "Update README"})
	require.NoError(t, err)
	updated, err := svc.Update(chore.ID, dev, models.UpdateTaskRequest{Status: &done})
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, updated.Status)
	assert.NotNil(t, updated.CompletedAt)
	assert.False(t, updated.IsVerified)

	// The mentor may complete a pointed task directly.
	_, err = svc.Update(pointed.ID, asCaller(mentor), models.UpdateTaskRequest{Status: &done})
	require.NoError(t, err)

	bogus := models.TaskStatus("archived")
	_, err = svc.Update(chore.ID, dev, models.UpdateTaskRequest{Status: &bogus})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestTaskAssignToSprint(t *testing.T) {
	db, svc, owner, _, project := taskFixture(t)

	task, err := svc.Create(project.ID, asCaller(owner), models.CreateTaskRequest{Title: "Build login"})
	require.NoError(t, err)

	sprint := &models.Sprint{
		ProjectID: project.ID,
		Name:      "Sprint 1",
		StartDate: time.Now(),
		EndDate:   time.Now().AddDate(0, 0, 14),
	}
	require.NoError(t, db.Create(sprint).Error)

	assigned, err := svc.AssignToSprint(task.ID, asCaller(owner), &sprint.ID)
	require.NoError(t, err)
	require.NotNil(t, assigned.SprintID)
	assert.Equal(t, sprint.ID, *assigned.SprintID)

	// A sprint from another project is invisible here.
	other := createProject(t, db, owner, nil)
	foreign := &models.Sprint{
		ProjectID: other.ID,
		Name:      "Elsewhere",
		StartDate: time.Now(),
		EndDate:   time.Now().AddDate(0, 0, 7),
	}
	require.NoError(t, db.Create(foreign).Error)
	_, err = svc.AssignToSprint(task.ID, asCaller(owner), &foreign.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	// nil detaches.
	detached, err := svc.AssignToSprint(task.ID, asCaller(owner), nil)
	require.NoError(t, err)
	assert.Nil(t, detached.SprintID)
}

func TestTaskConcurrentTransition(t *testing.T) {
	_, svc, owner, _, project := taskFixture(t)

	task, err := svc.Create(project.ID, asCaller(owner), models.CreateTaskRequest{Title: "Build login"})
	require.NoError(t, err)

	stale := *task
	_, err = svc.Start(task.ID, asCaller(owner))
	require.NoError(t, err)

	err = svc.transition(&stale, map[string]interface{}{"status": models.TaskCompleted})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestTaskReviewRace(t *testing.T) {
	db, svc, owner, mentor, project := taskFixture(t)
	admin := createUser(t, db, "admin@test.io", models.RoleAdmin)

	task, err := svc.Create(project.ID, asCaller(owner), models.CreateTaskRequest{Title: "Build login", StoryPoints: 3})
	require.NoError(t, err)
	_, err = svc.Start(task.ID, asCaller(owner))
	require.NoError(t, err)
	_, err = svc.Submit(task.ID, asCaller(owner), "https://github.com/team/capstone/pull/1", nil)
	require.NoError(t, err)

	// Two reviewers race over the same submission; only one review may land.
	reviewers := []Caller{asCaller(mentor), asCaller(admin)}
	errs := make([]error, len(reviewers))
	var wg sync.WaitGroup
	for i, reviewer := range reviewers {
		wg.Add(1)
		go func(i int, reviewer Caller) {
			defer wg.Done()
			_, errs[i] = svc.ReviewSubmission(task.ID, reviewer, models.ReviewTaskRequest{Approve: true})
		}(i, reviewer)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		// The loser either trips the version guard or reloads after the
		// winner and finds nothing awaiting review.
		kind := apperr.KindOf(err)
		assert.Contains(t, []apperr.Kind{apperr.KindConflict, apperr.KindValidation}, kind)
	}
	assert.Equal(t, 1, won)

	var reloaded models.Task
	require.NoError(t, db.First(&reloaded, "id = ?", task.ID).Error)
	assert.Equal(t, models.TaskCompleted, reloaded.Status)
	assert.Equal(t, models.SubmissionApproved, reloaded.SubmissionStatus)
	assert.True(t, reloaded.IsVerified)
}
