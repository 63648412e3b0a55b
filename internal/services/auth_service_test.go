package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/teamforge/mentor-platform/internal/apperr"
	"github.com/teamforge/mentor-platform/internal/config"
	"github.com/teamforge/mentor-platform/internal/models"
)

func newAuthService(db *gorm.DB) *AuthService {
	cfg := &config.Config{
		JWTSecret:     "test-secret",
		JWTExpiration: 1,
		AppName:       "test",
	}
	return NewAuthService(db, cfg, newTeamService(db))
}

func TestRegisterHonorsPendingInvitations(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)
	team := newTeamService(db)

	owner := createUser(t, db, "owner@test.io", models.RoleStudent)
	project := createProject(t, db, owner, nil)
	_, err := team.AddMember(project.ID, asCaller(owner), models.AddTeamMemberRequest{Email: "late@test.io"})
	require.NoError(t, err)

	user, err := svc.Register(models.RegisterRequest{
		Email:     "Late@Test.io",
		Password:  "secret1",
		FirstName: "Late",
	})
	require.NoError(t, err)
	assert.Equal(t, "late@test.io", user.Email)
	assert.Equal(t, models.RoleStudent, user.Role)

	var member models.TeamMember
	require.NoError(t, db.Where("project_id = ? AND email = ?", project.ID, "late@test.io").First(&member).Error)
	assert.Equal(t, models.TeamMemberJoined, member.Status)
	require.NotNil(t, member.UserID)
	assert.Equal(t, user.ID, *member.UserID)
}

func TestRegisterRejectsDuplicateAndAdminRole(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)

	_, err := svc.Register(models.RegisterRequest{Email: "a@test.io", Password: "secret1", FirstName: "A"})
	require.NoError(t, err)

	_, err = svc.Register(models.RegisterRequest{Email: "A@test.io", Password: "secret1", FirstName: "A"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// Admin accounts are seeded, never self-registered.
	_, err = svc.Register(models.RegisterRequest{
		Email: "boss@test.io", Password: "secret1", FirstName: "B", Role: models.RoleAdmin,
	})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestLoginAndTokenRoundTrip(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)

	registered, err := svc.Register(models.RegisterRequest{
		Email: "dev@test.io", Password: "secret1", FirstName: "Dev", Role: models.RoleMentor,
	})
	require.NoError(t, err)

	_, _, err = svc.Login("dev@test.io", "wrong")
	assert.Error(t, err)

	user, token, err := svc.Login("DEV@test.io", "secret1")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, claims.UserID)
	assert.Equal(t, models.RoleMentor, claims.Role)

	_, err = svc.ValidateToken(token + "tampered")
	assert.Error(t, err)
}

func TestChangePassword(t *testing.T) {
	db := newTestDB(t)
	svc := newAuthService(db)

	user, err := svc.Register(models.RegisterRequest{Email: "dev@test.io", Password: "secret1", FirstName: "Dev"})
	require.NoError(t, err)

	err = svc.ChangePassword(user.ID, models.ChangePasswordRequest{CurrentPassword: "nope", NewPassword: "secret2"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	require.NoError(t, svc.ChangePassword(user.ID, models.ChangePasswordRequest{
		CurrentPassword: "secret1", NewPassword: "secret2",
	}))

	_, _, err = svc.Login("dev@test.io", "secret2")
	require.NoError(t, err)
}
