package services

import (
	"context"
	"testing"
	"time"

	"rescuelink/internal/models"
	"rescuelink/internal/repositories/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestAdminStats(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	user := env.addUser(t, "user", models.UserRoleUser)
	env.addUser(t, "v1", models.UserRoleVolunteer)
	env.addUser(t, "inactive", models.UserRoleVolunteer, func(u *models.User) {
		u.VolunteerStatus = models.VolunteerStatusInactive
	})

	first := env.raise(t, user)
	env.raise(t, user)
	_, err := env.sos.Resolve(ctx, first.ID, user.ID, models.UserRoleUser)
	require.NoError(t, err)

	stats, err := env.admin.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.SOSStats{Total: 2, Resolved: 1, Ongoing: 1, ActiveVolunteers: 1}, *stats)
}

func TestAdminDeleteSOS(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	user := env.addUser(t, "user", models.UserRoleUser)
	admin := env.addUser(t, "admin", models.UserRoleAdmin)
	sos := env.raise(t, user)

	require.NoError(t, env.admin.DeleteSOS(ctx, sos.ID, admin.ID))

	err := env.admin.DeleteSOS(ctx, sos.ID, admin.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := env.admin.ListSOS(ctx, models.SOSFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSafetyReport(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	user := env.addUser(t, "user", models.UserRoleUser)
	sos := env.raise(t, user)
	old := env.raise(t, user)
	env.store.backdate(old.ID, 72*time.Hour)

	// A case whose creator no longer exists.
	orphan := &models.SOS{UserID: primitive.NewObjectID(), Message: "orphan"}
	require.NoError(t, memSOSRepo{s: env.store}.Create(ctx, orphan))

	start := time.Now().Add(-24 * time.Hour)
	end := time.Now()
	rows, err := env.admin.SafetyReport(ctx, &start, &end)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	names := map[string]string{}
	for _, r := range rows {
		names[r.Message] = r.UserName
	}
	assert.Equal(t, "user", names[sos.Message])
	assert.Equal(t, "Unknown", names["orphan"])

	all, err := env.admin.SafetyReport(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = env.admin.SafetyReport(ctx, &end, &start)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAdminApproveUserEnablesFanOut(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	user := env.addUser(t, "user", models.UserRoleUser)
	admin := env.addUser(t, "admin", models.UserRoleAdmin)
	pending := env.addUser(t, "pending", models.UserRoleVolunteer, func(u *models.User) {
		u.IsApproved = false
	})

	env.raise(t, user)
	assert.Empty(t, env.store.notificationsFor(pending.ID, models.NotificationTypeSOS))

	approved, err := env.admin.ApproveUser(ctx, pending.ID, admin.ID)
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)

	system := env.store.notificationsFor(pending.ID, models.NotificationTypeSystem)
	require.Len(t, system, 1)
	assert.Equal(t, "Account Approved", system[0].Title)
	assert.Equal(t, models.RelatedToUser(pending.ID), system[0].RelatedRef)

	env.raise(t, user)
	assert.Len(t, env.store.notificationsFor(pending.ID, models.NotificationTypeSOS), 1)

	env.notifications.Wait()
	assert.Contains(t, env.mailer.recipients(), pending.Email)

	_, err = env.admin.ApproveUser(ctx, primitive.NewObjectID(), admin.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdminRejectUserEmailsThenDeletes(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	admin := env.addUser(t, "admin", models.UserRoleAdmin)
	applicant := env.addUser(t, "applicant", models.UserRoleVolunteer, func(u *models.User) {
		u.IsApproved = false
	})

	require.NoError(t, env.admin.RejectUser(ctx, applicant.ID, admin.ID))

	_, err := memUserRepo{s: env.store}.GetByID(ctx, applicant.ID)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	env.notifications.Wait()
	assert.Equal(t, []string{applicant.Email}, env.mailer.recipients())

	err = env.admin.RejectUser(ctx, applicant.ID, admin.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAdminBlacklistExcludesVolunteer(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	user := env.addUser(t, "user", models.UserRoleUser)
	admin := env.addUser(t, "admin", models.UserRoleAdmin)
	volunteer := env.addUser(t, "v1", models.UserRoleVolunteer)

	banned, err := env.admin.Blacklist(ctx, volunteer.ID, admin.ID)
	require.NoError(t, err)
	assert.True(t, banned.Blacklisted)

	list, err := env.admin.ListBlacklisted(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, volunteer.ID, list[0].ID)

	env.raise(t, user)
	assert.Empty(t, env.store.notificationsFor(volunteer.ID, models.NotificationTypeSOS))

	restored, err := env.admin.Unblacklist(ctx, volunteer.ID, admin.ID)
	require.NoError(t, err)
	assert.False(t, restored.Blacklisted)

	_, err = env.admin.Unblacklist(ctx, volunteer.ID, admin.ID)
	assert.Equal(t, KindInvalidState, KindOf(err))

	_, err = env.admin.Blacklist(ctx, admin.ID, admin.ID)
	assert.Equal(t, KindValidation, KindOf(err))
}
