package create_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/chatwave-backend/internal/chatapi"
	"github.com/magabrotheeeer/chatwave-backend/internal/http/handlers/session/create"
	"github.com/magabrotheeeer/chatwave-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/chatwave-backend/internal/models"
	"github.com/magabrotheeeer/chatwave-backend/internal/services/entitlement"
)

type MockEntitlementService struct {
	mock.Mock
}

func (m *MockEntitlementService) Check(ctx context.Context, userUID string, now time.Time) (entitlement.Decision, error) {
	args := m.Called(ctx, userUID, now)
	return args.Get(0).(entitlement.Decision), args.Error(1)
}

type MockChatClient struct {
	mock.Mock
}

func (m *MockChatClient) CreateSession(ctx context.Context, userUID string) (*chatapi.Session, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chatapi.Session), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func doRequest(h http.Handler, userUID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/session", nil)
	if userUID != "" {
		ctx := context.WithValue(req.Context(), middlewarectx.UserUID, userUID)
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateSession_Allowed(t *testing.T) {
	entitlements := new(MockEntitlementService)
	entitlements.On("Check", mock.Anything, "uid-1", mock.Anything).Return(entitlement.Decision{
		Allowed: true,
		Status:  models.StatusTrialing,
	}, nil)

	chat := new(MockChatClient)
	chat.On("CreateSession", mock.Anything, "uid-1").Return(&chatapi.Session{
		ClientSecret: "secret-1",
		ExpiresAfter: 600,
	}, nil)

	h := create.New(newNoopLogger(), entitlements, chat)
	rec := doRequest(h, "uid-1")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string `json:"status"`
		Data   struct {
			ClientSecret       string `json:"client_secret"`
			SubscriptionStatus string `json:"subscription_status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "OK", body.Status)
	assert.Equal(t, "secret-1", body.Data.ClientSecret)
	assert.Equal(t, models.StatusTrialing, body.Data.SubscriptionStatus)
}

func TestCreateSession_DeniedWithCode(t *testing.T) {
	entitlements := new(MockEntitlementService)
	entitlements.On("Check", mock.Anything, "uid-1", mock.Anything).Return(entitlement.Decision{
		Allowed: false,
		Reason:  entitlement.ReasonSubscriptionRequired,
		Status:  models.StatusExpired,
	}, nil)

	chat := new(MockChatClient)

	h := create.New(newNoopLogger(), entitlements, chat)
	rec := doRequest(h, "uid-1")

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)

	var body struct {
		Status string `json:"status"`
		Error  string `json:"error"`
		Code   string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Error", body.Status)
	assert.Equal(t, entitlement.ReasonSubscriptionRequired, body.Code)
	chat.AssertNotCalled(t, "CreateSession", mock.Anything, mock.Anything)
}

func TestCreateSession_MissingUser(t *testing.T) {
	h := create.New(newNoopLogger(), new(MockEntitlementService), new(MockChatClient))
	rec := doRequest(h, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateSession_ChatNotConfigured(t *testing.T) {
	entitlements := new(MockEntitlementService)
	entitlements.On("Check", mock.Anything, "uid-1", mock.Anything).Return(entitlement.Decision{
		Allowed: true,
		Status:  models.StatusActive,
	}, nil)

	chat := new(MockChatClient)
	chat.On("CreateSession", mock.Anything, "uid-1").Return(nil, chatapi.ErrNotConfigured)

	h := create.New(newNoopLogger(), entitlements, chat)
	rec := doRequest(h, "uid-1")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCreateSession_EntitlementError(t *testing.T) {
	entitlements := new(MockEntitlementService)
	entitlements.On("Check", mock.Anything, "uid-1", mock.Anything).
		Return(entitlement.Decision{}, assert.AnError)

	h := create.New(newNoopLogger(), entitlements, new(MockChatClient))
	rec := doRequest(h, "uid-1")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
