package register_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/chatwave-backend/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/chatwave-backend/internal/services/auth"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Register(ctx context.Context, email, password string) (*auth.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func doRequest(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/register", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRegister_Success(t *testing.T) {
	service := new(MockService)
	service.On("Register", mock.Anything, "user@example.com", "password123").Return(&auth.Session{
		UserUID: "uid-1",
		Email:   "user@example.com",
		Token:   "token-1",
	}, nil)

	h := register.New(newNoopLogger(), service, nil)
	rec := doRequest(h, `{"email":"user@example.com","password":"password123"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	service.AssertExpectations(t)
}

func TestRegister_EmailTaken(t *testing.T) {
	service := new(MockService)
	service.On("Register", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, auth.ErrEmailTaken)

	h := register.New(newNoopLogger(), service, nil)
	rec := doRequest(h, `{"email":"user@example.com","password":"password123"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegister_ShortPassword(t *testing.T) {
	h := register.New(newNoopLogger(), new(MockService), nil)
	rec := doRequest(h, `{"email":"user@example.com","password":"short"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
