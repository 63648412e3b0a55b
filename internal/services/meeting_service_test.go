package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/teamforge/mentor-platform/internal/apperr"
	"github.com/teamforge/mentor-platform/internal/models"
)

func newMeetingService(db *gorm.DB, now func() time.Time) *MeetingService {
	return NewMeetingService(db, NewAuthorizer(db), NewNotificationService(db, now), now)
}

// meetingFixture builds a project with an owner, a mentor and two joined
// team members, then schedules one meeting.
func meetingFixture(t *testing.T) (*gorm.DB, *MeetingService, *models.Meeting, *models.User, *models.User, []*models.User) {
	db := newTestDB(t)
	clock := fixedClock(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	svc := newMeetingService(db, clock)

	owner := createUser(t, db, "owner@test.io", models.RoleStudent)
	mentor := createUser(t, db, "mentor@test.io", models.RoleMentor)
	devA := createUser(t, db, "dev.a@test.io", models.RoleStudent)
	devB := createUser(t, db, "dev.b@test.io", models.RoleStudent)
	project := createProject(t, db, owner, mentor)
	joinTeam(t, db, project, devA)
	joinTeam(t, db, project, devB)

	meeting, err := svc.Create(project.ID, asCaller(mentor), models.CreateMeetingRequest{
		Title:       "Sprint review",
		ScheduledAt: time.Date(2026, 3, 3, 14, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	return db, svc, meeting, owner, mentor, []*models.User{devA, devB}
}

func TestMeetingCreateOnlyProjectMentor(t *testing.T) {
	db := newTestDB(t)
	svc := newMeetingService(db, nil)

	owner := createUser(t, db, "owner@test.io", models.RoleStudent)
	mentor := createUser(t, db, "mentor@test.io", models.RoleMentor)
	otherMentor := createUser(t, db, "other@test.io", models.RoleMentor)
	project := createProject(t, db, owner, mentor)

	req := models.CreateMeetingRequest{Title: "Kickoff", ScheduledAt: time.Now().Add(24 * time.Hour)}

	_, err := svc.Create(project.ID, asCaller(owner), req)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = svc.Create(project.ID, asCaller(otherMentor), req)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	meeting, err := svc.Create(project.ID, asCaller(mentor), req)
	require.NoError(t, err)
	assert.Equal(t, models.MeetingScheduled, meeting.Status)
	assert.Equal(t, 30, meeting.DurationMinutes)
}

func TestMeetingInvitesOwnerAndJoinedMembers(t *testing.T) {
	db := newTestDB(t)
	svc := newMeetingService(db, nil)

	owner := createUser(t, db, "owner@test.io", models.RoleStudent)
	mentor := createUser(t, db, "mentor@test.io", models.RoleMentor)
	dev := createUser(t, db, "dev@test.io", models.RoleStudent)
	project := createProject(t, db, owner, mentor)
	joinTeam(t, db, project, dev)

	// A pending invitee has no account yet and cannot be a participant.
	require.NoError(t, db.Create(&models.TeamMember{
		ProjectID: project.ID,
		Email:     "pending@test.io",
		Status:    models.TeamMemberPending,
	}).Error)

	meeting, err := svc.Create(project.ID, asCaller(mentor), models.CreateMeetingRequest{
		Title:       "Kickoff",
		ScheduledAt: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	require.Len(t, meeting.Participants, 2)
	invited := map[string]bool{}
	for _, p := range meeting.Participants {
		assert.Equal(t, models.ParticipantInvited, p.Status)
		invited[p.UserID.String()] = true
	}
	assert.True(t, invited[owner.ID.String()])
	assert.True(t, invited[dev.ID.String()])

	// Each invitee got a scheduled notification; the mentor is the actor.
	assert.EqualValues(t, 1, countNotifications(t, db, owner.ID, models.NotifMeetingScheduled))
	assert.EqualValues(t, 1, countNotifications(t, db, dev.ID, models.NotifMeetingScheduled))
	assert.EqualValues(t, 0, countNotifications(t, db, mentor.ID, models.NotifMeetingScheduled))
}

func TestMeetingJoinAutoTransition(t *testing.T) {
	_, svc, meeting, owner, _, devs := meetingFixture(t)

	// First two of three invitees join; the meeting stays scheduled.
	m, err := svc.Join(meeting.ID, asCaller(owner))
	require.NoError(t, err)
	assert.Equal(t, models.MeetingScheduled, m.Status)

	m, err = svc.Join(meeting.ID, asCaller(devs[0]))
	require.NoError(t, err)
	assert.Equal(t, models.MeetingScheduled, m.Status)

	// The last invitee flips it to ongoing without an explicit update.
	m, err = svc.Join(meeting.ID, asCaller(devs[1]))
	require.NoError(t, err)
	assert.Equal(t, models.MeetingOngoing, m.Status)
}

func TestMeetingRejoinIsNoop(t *testing.T) {
	db, svc, meeting, owner, _, _ := meetingFixture(t)

	_, err := svc.Join(meeting.ID, asCaller(owner))
	require.NoError(t, err)

	var before models.MeetingParticipant
	require.NoError(t, db.Where("meeting_id = ? AND user_id = ?", meeting.ID, owner.ID).First(&before).Error)
	require.NotNil(t, before.JoinedAt)

	_, err = svc.Join(meeting.ID, asCaller(owner))
	require.NoError(t, err)

	var after models.MeetingParticipant
	require.NoError(t, db.Where("meeting_id = ? AND user_id = ?", meeting.ID, owner.ID).First(&after).Error)
	assert.Equal(t, before.JoinedAt.Unix(), after.JoinedAt.Unix())
	assert.Equal(t, models.ParticipantJoined, after.Status)
}

func TestMeetingJoinUninvited(t *testing.T) {
	db, svc, meeting, _, _, _ := meetingFixture(t)

	stranger := createUser(t, db, "stranger@test.io", models.RoleStudent)
	_, err := svc.Join(meeting.ID, asCaller(stranger))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestMeetingMentorJoinDoesNotBlockTransition(t *testing.T) {
	_, svc, meeting, owner, mentor, devs := meetingFixture(t)

	// The mentor hosts but is not on the invite list; their join must not
	// add a participant row or stall the auto-transition.
	m, err := svc.Join(meeting.ID, asCaller(mentor))
	require.NoError(t, err)
	assert.Equal(t, models.MeetingScheduled, m.Status)

	for _, u := range []*models.User{owner, devs[0], devs[1]} {
		m, err = svc.Join(meeting.ID, asCaller(u))
		require.NoError(t, err)
	}
	assert.Equal(t, models.MeetingOngoing, m.Status)
}

func TestMeetingUpdateStatus(t *testing.T) {
	db, svc, meeting, owner, mentor, devs := meetingFixture(t)

	// Participants cannot moderate.
	_, err := svc.UpdateStatus(meeting.ID, asCaller(owner), models.MeetingCompleted)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = svc.UpdateStatus(meeting.ID, asCaller(mentor), models.MeetingStatus("postponed"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	m, err := svc.UpdateStatus(meeting.ID, asCaller(mentor), models.MeetingCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.MeetingCancelled, m.Status)

	// Every participant hears about the change.
	assert.EqualValues(t, 1, countNotifications(t, db, devs[0].ID, models.NotifMeetingStatus))

	// Moderation may also move the status backward to fix mistakes.
	m, err = svc.UpdateStatus(meeting.ID, asCaller(mentor), models.MeetingScheduled)
	require.NoError(t, err)
	assert.Equal(t, models.MeetingScheduled, m.Status)
}

func TestMeetingDeleteCreatorOnly(t *testing.T) {
	db, svc, meeting, owner, mentor, _ := meetingFixture(t)

	err := svc.Delete(meeting.ID, asCaller(owner))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	require.NoError(t, svc.Delete(meeting.ID, asCaller(mentor)))

	var participants int64
	require.NoError(t, db.Model(&models.MeetingParticipant{}).Where("meeting_id = ?", meeting.ID).Count(&participants).Error)
	assert.EqualValues(t, 0, participants)

	err = svc.Delete(meeting.ID, asCaller(mentor))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
