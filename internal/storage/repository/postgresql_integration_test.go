package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/chatwave-backend/internal/models"
)

func strptr(s string) *string        { return &s }
func timeptr(t time.Time) *time.Time { return &t }

func TestStorage_CreateUserWithTrial(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	trialEndsAt := time.Now().UTC().Add(models.TrialPeriod)

	uid, err := storage.CreateUserWithTrial(ctx, models.User{
		Email:        "user@example.com",
		PasswordHash: strptr("hashedpassword"),
	}, trialEndsAt, models.PlatformGooglePlay)
	require.NoError(t, err)
	require.NotEmpty(t, uid)

	// Пользователь и пробная подписка созданы вместе
	user, err := storage.GetUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
	assert.True(t, user.HasPassword())

	sub, err := storage.GetLatestSubscription(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, models.StatusTrialing, sub.Status)
	require.NotNil(t, sub.TrialEndsAt)
	assert.WithinDuration(t, trialEndsAt, *sub.TrialEndsAt, time.Second)
	require.NotNil(t, sub.Platform)
	assert.Equal(t, models.PlatformGooglePlay, *sub.Platform)
}

func TestStorage_CreateUserWithTrial_DuplicateEmail(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	trialEndsAt := time.Now().UTC().Add(models.TrialPeriod)

	tests := []struct {
		name  string
		setup func(t *testing.T, factory *TestDataFactory)
	}{
		{
			name: "existing password account",
			setup: func(t *testing.T, factory *TestDataFactory) {
				factory.CreatePasswordUser(t, "taken@example.com", "hashedpassword")
			},
		},
		{
			name: "existing oauth account",
			setup: func(t *testing.T, factory *TestDataFactory) {
				factory.CreateOAuthUser(t, "taken@example.com", models.ProviderGoogle, "g-1")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _ = storage.DB.Exec("DELETE FROM subscriptions; DELETE FROM users;")
			factory := NewTestDataFactory(storage)
			tt.setup(t, factory)

			_, err := storage.CreateUserWithTrial(ctx, models.User{
				Email:        "taken@example.com",
				PasswordHash: strptr("otherhash"),
			}, trialEndsAt, models.PlatformGooglePlay)
			assert.ErrorIs(t, err, ErrEmailTaken)
		})
	}
}

func TestStorage_GetUserByOAuth_And_LinkOAuth(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	uid := factory.CreatePasswordUser(t, "user@example.com", "hashedpassword")

	_, err := storage.GetUserByOAuth(ctx, models.ProviderGoogle, "g-1")
	assert.ErrorIs(t, err, ErrUserNotFound)

	err = storage.LinkOAuth(ctx, uid, models.ProviderGoogle, "g-1", strptr("User Name"))
	require.NoError(t, err)

	user, err := storage.GetUserByOAuth(ctx, models.ProviderGoogle, "g-1")
	require.NoError(t, err)
	assert.Equal(t, uid, user.UID)
	require.NotNil(t, user.Name)
	assert.Equal(t, "User Name", *user.Name)

	// Повторная привязка не затирает уже заданное имя
	err = storage.LinkOAuth(ctx, uid, models.ProviderGoogle, "g-1", strptr("Other Name"))
	require.NoError(t, err)
	user, err = storage.GetUser(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, "User Name", *user.Name)
}

func TestStorage_LinkOAuth_UnknownUser(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	err := storage.LinkOAuth(context.Background(),
		uuid.NewString(), models.ProviderGoogle, "g-1", nil)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStorage_GetLatestSubscription_OrdersByCreatedAt(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	uid := factory.CreatePasswordUser(t, "user@example.com", "hashedpassword")

	old := time.Now().UTC().Add(-48 * time.Hour)
	factory.CreateSubscriptionRow(t, uid, models.StatusExpired, nil, nil, old)
	latestID := factory.CreateSubscriptionRow(t, uid, models.StatusActive, nil,
		timeptr(time.Now().UTC().Add(24*time.Hour)), time.Now().UTC())

	sub, err := storage.GetLatestSubscription(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, latestID, sub.ID)
	assert.Equal(t, models.StatusActive, sub.Status)
}

func TestStorage_GetLatestSubscription_NoRows(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	factory := NewTestDataFactory(storage)
	uid := factory.CreatePasswordUser(t, "user@example.com", "hashedpassword")

	_, err := storage.GetLatestSubscription(context.Background(), uid)
	assert.ErrorIs(t, err, ErrNoSubscription)
}

func TestStorage_CreateTrialSubscription_RaceRereads(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	uid := factory.CreatePasswordUser(t, "user@example.com", "hashedpassword")
	trialEndsAt := time.Now().UTC().Add(models.TrialPeriod)

	first, err := storage.CreateTrialSubscription(ctx, uid, trialEndsAt, models.PlatformPayPalWeb)
	require.NoError(t, err)

	// Вторая попытка упирается в частичный уникальный индекс и перечитывает
	// существующую запись вместо создания дубликата.
	second, err := storage.CreateTrialSubscription(ctx, uid, trialEndsAt.Add(time.Hour), models.PlatformPayPalWeb)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int
	err = storage.DB.QueryRow(`SELECT COUNT(*) FROM subscriptions WHERE user_uid = $1`, uid).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStorage_ActivateSubscription(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	uid := factory.CreatePasswordUser(t, "user@example.com", "hashedpassword")
	trialEndsAt := time.Now().UTC().Add(models.TrialPeriod)
	sub, err := storage.CreateTrialSubscription(ctx, uid, trialEndsAt, models.PlatformGooglePlay)
	require.NoError(t, err)

	periodStart := time.Now().UTC()
	periodEnd := periodStart.AddDate(0, 1, 0)
	err = storage.ActivateSubscription(ctx, sub.ID, models.PlanMonthly,
		models.PlatformPayPalWeb, periodStart, periodEnd, "ORDER-1")
	require.NoError(t, err)

	got, err := storage.GetLatestSubscription(ctx, uid)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, got.Status)
	require.NotNil(t, got.Plan)
	assert.Equal(t, models.PlanMonthly, *got.Plan)
	require.NotNil(t, got.ExternalOrderID)
	assert.Equal(t, "ORDER-1", *got.ExternalOrderID)
	require.NotNil(t, got.CurrentPeriodEnd)
	assert.WithinDuration(t, periodEnd, *got.CurrentPeriodEnd, time.Second)
}

func TestStorage_ActivateSubscription_UnknownID(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	err := storage.ActivateSubscription(context.Background(),
		uuid.NewString(), models.PlanMonthly,
		models.PlatformPayPalWeb, time.Now().UTC(), time.Now().UTC().AddDate(0, 1, 0), "ORDER-X")
	assert.ErrorIs(t, err, ErrNoSubscription)
}

func TestStorage_SetSubscriptionStatus(t *testing.T) {
	storage, cleanup := setupTestDatabase(t)
	defer cleanup()

	ctx := context.Background()
	factory := NewTestDataFactory(storage)

	uid := factory.CreatePasswordUser(t, "user@example.com", "hashedpassword")
	subID := factory.CreateSubscriptionRow(t, uid, models.StatusActive, nil,
		timeptr(time.Now().UTC().Add(24*time.Hour)), time.Now().UTC())

	until := time.Now().UTC().AddDate(0, 0, 30)
	sub, err := storage.SetSubscriptionStatus(ctx, subID, models.StatusCanceled, &until)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, sub.Status)
	require.NotNil(t, sub.CurrentPeriodEnd)
	assert.WithinDuration(t, until, *sub.CurrentPeriodEnd, time.Second)
}
