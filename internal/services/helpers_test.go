package services

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/teamforge/mentor-platform/internal/database"
	"github.com/teamforge/mentor-platform/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	// Every pooled connection to an in-memory sqlite database is its own
	// database, so the pool must stay at a single connection.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.AutoMigrate(db))
	return db
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func createUser(t *testing.T, db *gorm.DB, email string, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Email:        email,
		PasswordHash: "x",
		Role:         role,
		FirstName:    "Test",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func asCaller(u *models.User) Caller {
	return Caller{ID: u.ID, Email: u.Email, Role: u.Role}
}

// createProject sets up a project with a student owner and an optional
// mentor, the shape most workflow tests start from.
func createProject(t *testing.T, db *gorm.DB, owner, mentor *models.User) *models.Project {
	t.Helper()
	project := &models.Project{
		Title:     "Capstone",
		Status:    models.ProjectStatusInProgress,
		CreatedBy: owner.ID,
		OwnerID:   &owner.ID,
	}
	if mentor != nil {
		project.MentorID = &mentor.ID
	}
	require.NoError(t, db.Create(project).Error)
	return project
}

func joinTeam(t *testing.T, db *gorm.DB, project *models.Project, user *models.User) *models.TeamMember {
	t.Helper()
	joinedAt := time.Now()
	member := &models.TeamMember{
		ProjectID: project.ID,
		Email:     user.Email,
		Name:      user.FullName(),
		UserID:    &user.ID,
		Status:    models.TeamMemberJoined,
		JoinedAt:  &joinedAt,
	}
	require.NoError(t, db.Create(member).Error)
	return member
}

func countNotifications(t *testing.T, db *gorm.DB, userID interface{}, notifType models.NotificationType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", userID, notifType).
		Count(&n).Error)
	return n
}
