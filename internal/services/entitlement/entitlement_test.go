package entitlement

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/chatwave-backend/internal/models"
	"github.com/magabrotheeeer/chatwave-backend/internal/storage/repository"
)

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) GetLatestSubscription(ctx context.Context, userUID string) (*models.Subscription, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) CreateTrialSubscription(ctx context.Context, userUID string, trialEndsAt time.Time, platform string) (*models.Subscription, error) {
	args := m.Called(ctx, userUID, trialEndsAt, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func timeptr(t time.Time) *time.Time { return &t }

func TestEvaluate(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		sub         *models.Subscription
		wantAllowed bool
		wantStatus  string
	}{
		{
			name:        "nil subscription denied",
			sub:         nil,
			wantAllowed: false,
		},
		{
			name: "trialing inside window",
			sub: &models.Subscription{
				Status:      models.StatusTrialing,
				TrialEndsAt: timeptr(now.Add(time.Hour)),
			},
			wantAllowed: true,
			wantStatus:  models.StatusTrialing,
		},
		{
			name: "trialing expired",
			sub: &models.Subscription{
				Status:      models.StatusTrialing,
				TrialEndsAt: timeptr(now.Add(-time.Hour)),
			},
			wantAllowed: false,
			wantStatus:  models.StatusExpired,
		},
		{
			name: "trialing at exact boundary denied",
			sub: &models.Subscription{
				Status:      models.StatusTrialing,
				TrialEndsAt: timeptr(now),
			},
			wantAllowed: false,
			wantStatus:  models.StatusExpired,
		},
		{
			name: "trialing without trial_ends_at denied",
			sub: &models.Subscription{
				Status: models.StatusTrialing,
			},
			wantAllowed: false,
			wantStatus:  models.StatusExpired,
		},
		{
			name: "active inside period",
			sub: &models.Subscription{
				Status:           models.StatusActive,
				CurrentPeriodEnd: timeptr(now.Add(24 * time.Hour)),
			},
			wantAllowed: true,
			wantStatus:  models.StatusActive,
		},
		{
			name: "active past period end",
			sub: &models.Subscription{
				Status:           models.StatusActive,
				CurrentPeriodEnd: timeptr(now.Add(-time.Minute)),
			},
			wantAllowed: false,
			wantStatus:  models.StatusExpired,
		},
		{
			name: "canceled denied",
			sub: &models.Subscription{
				Status:           models.StatusCanceled,
				CurrentPeriodEnd: timeptr(now.Add(24 * time.Hour)),
			},
			wantAllowed: false,
			wantStatus:  models.StatusCanceled,
		},
		{
			name: "expired denied",
			sub: &models.Subscription{
				Status: models.StatusExpired,
			},
			wantAllowed: false,
			wantStatus:  models.StatusExpired,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Evaluate(tt.sub, now)
			assert.Equal(t, tt.wantAllowed, decision.Allowed)
			if tt.wantAllowed {
				assert.Empty(t, decision.Reason)
			} else {
				assert.Equal(t, ReasonSubscriptionRequired, decision.Reason)
			}
			if tt.wantStatus != "" {
				assert.Equal(t, tt.wantStatus, decision.Status)
			}
		})
	}
}

func newTestService(subs SubscriptionRepository) *EntitlementService {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewEntitlementService(subs, log)
}

func TestCheck_UsesLatestSubscription(t *testing.T) {
	now := time.Now().UTC()
	subs := new(MockSubscriptionRepository)
	subs.On("GetLatestSubscription", mock.Anything, "uid-1").Return(&models.Subscription{
		UserUID:          "uid-1",
		Status:           models.StatusActive,
		CurrentPeriodEnd: timeptr(now.Add(time.Hour)),
	}, nil)

	svc := newTestService(subs)
	decision, err := svc.Check(context.Background(), "uid-1", now)

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	subs.AssertNotCalled(t, "CreateTrialSubscription", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheck_BackfillsTrial(t *testing.T) {
	now := time.Now().UTC()
	subs := new(MockSubscriptionRepository)
	subs.On("GetLatestSubscription", mock.Anything, "uid-1").
		Return(nil, repository.ErrNoSubscription)
	subs.On("CreateTrialSubscription", mock.Anything, "uid-1", mock.MatchedBy(func(ends time.Time) bool {
		return ends.Sub(now) == models.TrialPeriod
	}), models.PlatformPayPalWeb).Return(&models.Subscription{
		UserUID:     "uid-1",
		Status:      models.StatusTrialing,
		TrialEndsAt: timeptr(now.Add(models.TrialPeriod)),
	}, nil)

	svc := newTestService(subs)
	decision, err := svc.Check(context.Background(), "uid-1", now)

	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, models.StatusTrialing, decision.Status)
	subs.AssertExpectations(t)
}

func TestCheck_StorageError(t *testing.T) {
	subs := new(MockSubscriptionRepository)
	subs.On("GetLatestSubscription", mock.Anything, "uid-1").
		Return(nil, assert.AnError)

	svc := newTestService(subs)
	_, err := svc.Check(context.Background(), "uid-1", time.Now().UTC())

	assert.Error(t, err)
}
