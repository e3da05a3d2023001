package setsubscription_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/chatwave-backend/internal/http/handlers/admin/setsubscription"
	"github.com/magabrotheeeer/chatwave-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/chatwave-backend/internal/models"
	"github.com/magabrotheeeer/chatwave-backend/internal/storage/repository"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetUser(ctx context.Context, userUID string) (*models.User, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) GetLatestSubscription(ctx context.Context, userUID string) (*models.Subscription, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockStore) SetSubscriptionStatus(ctx context.Context, subscriptionID, status string,
	activeUntil *time.Time) (*models.Subscription, error) {
	args := m.Called(ctx, subscriptionID, status, activeUntil)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockStore) CreateSubscriptionWithStatus(ctx context.Context, userUID, status string,
	activeUntil *time.Time) (*models.Subscription, error) {
	args := m.Called(ctx, userUID, status, activeUntil)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func doRequest(h http.Handler, callerUID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/subscription", bytes.NewBufferString(body))
	if callerUID != "" {
		ctx := context.WithValue(req.Context(), middlewarectx.UserUID, callerUID)
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSetSubscription_OverridesLatest(t *testing.T) {
	until := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

	store := new(MockStore)
	store.On("GetUser", mock.Anything, "admin-uid").
		Return(&models.User{UID: "admin-uid", Email: "admin@chatwave.example"}, nil)
	store.On("GetUserByEmail", mock.Anything, "target@example.com").
		Return(&models.User{UID: "target-uid", Email: "target@example.com"}, nil)
	store.On("GetLatestSubscription", mock.Anything, "target-uid").
		Return(&models.Subscription{ID: "sub-1", UserUID: "target-uid", Status: models.StatusTrialing}, nil)
	store.On("SetSubscriptionStatus", mock.Anything, "sub-1", models.StatusActive,
		mock.MatchedBy(func(t *time.Time) bool { return t != nil && t.Equal(until) })).
		Return(&models.Subscription{ID: "sub-1", UserUID: "target-uid",
			Status: models.StatusActive, CurrentPeriodEnd: &until}, nil)

	h := setsubscription.New(newNoopLogger(), store, "admin@chatwave.example")
	rec := doRequest(h, "admin-uid",
		`{"email":"target@example.com","status":"active","active_until":"2026-12-31T00:00:00Z"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "CreateSubscriptionWithStatus",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSetSubscription_CreatesWhenNoHistory(t *testing.T) {
	store := new(MockStore)
	store.On("GetUser", mock.Anything, "admin-uid").
		Return(&models.User{UID: "admin-uid", Email: "admin@chatwave.example"}, nil)
	store.On("GetUserByEmail", mock.Anything, "target@example.com").
		Return(&models.User{UID: "target-uid", Email: "target@example.com"}, nil)
	store.On("GetLatestSubscription", mock.Anything, "target-uid").
		Return(nil, repository.ErrNoSubscription)
	store.On("CreateSubscriptionWithStatus", mock.Anything, "target-uid", models.StatusCanceled,
		(*time.Time)(nil)).
		Return(&models.Subscription{ID: "sub-2", UserUID: "target-uid", Status: models.StatusCanceled}, nil)

	h := setsubscription.New(newNoopLogger(), store, "admin@chatwave.example")
	rec := doRequest(h, "admin-uid", `{"email":"target@example.com","status":"canceled"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	store.AssertExpectations(t)
}

func TestSetSubscription_Forbidden(t *testing.T) {
	tests := []struct {
		name       string
		adminEmail string
		caller     *models.User
	}{
		{
			name:       "caller is not the admin",
			adminEmail: "admin@chatwave.example",
			caller:     &models.User{UID: "uid-1", Email: "user@example.com"},
		},
		{
			name:       "admin email not configured",
			adminEmail: "",
			caller:     &models.User{UID: "uid-1", Email: "user@example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockStore)
			store.On("GetUser", mock.Anything, "uid-1").Return(tt.caller, nil)

			h := setsubscription.New(newNoopLogger(), store, tt.adminEmail)
			rec := doRequest(h, "uid-1", `{"email":"target@example.com","status":"active"}`)

			assert.Equal(t, http.StatusForbidden, rec.Code)
			store.AssertNotCalled(t, "GetUserByEmail", mock.Anything, mock.Anything)
		})
	}
}

func TestSetSubscription_TargetNotFound(t *testing.T) {
	store := new(MockStore)
	store.On("GetUser", mock.Anything, "admin-uid").
		Return(&models.User{UID: "admin-uid", Email: "admin@chatwave.example"}, nil)
	store.On("GetUserByEmail", mock.Anything, "ghost@example.com").
		Return(nil, repository.ErrUserNotFound)

	h := setsubscription.New(newNoopLogger(), store, "admin@chatwave.example")
	rec := doRequest(h, "admin-uid", `{"email":"ghost@example.com","status":"expired"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSetSubscription_MissingUser(t *testing.T) {
	store := new(MockStore)

	h := setsubscription.New(newNoopLogger(), store, "admin@chatwave.example")
	rec := doRequest(h, "", `{"email":"target@example.com","status":"active"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSetSubscription_InvalidStatus(t *testing.T) {
	store := new(MockStore)
	store.On("GetUser", mock.Anything, "admin-uid").
		Return(&models.User{UID: "admin-uid", Email: "admin@chatwave.example"}, nil)

	h := setsubscription.New(newNoopLogger(), store, "admin@chatwave.example")
	rec := doRequest(h, "admin-uid", `{"email":"target@example.com","status":"forever"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	store.AssertNotCalled(t, "GetUserByEmail", mock.Anything, mock.Anything)
}
