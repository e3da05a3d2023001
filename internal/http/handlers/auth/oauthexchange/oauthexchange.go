// Package oauthexchange реализует HTTP-обработчик входа по готовому
// OAuth-профилю: мобильный клиент выполняет провайдерский поток сам и
// присылает полученный профиль, сервер сводит его к учетной записи и
// выпускает токен сессии.
package oauthexchange

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/chatwave-backend/internal/http/response"
	"github.com/magabrotheeeer/chatwave-backend/internal/lib/sl"
	"github.com/magabrotheeeer/chatwave-backend/internal/services/auth"
)

// Request — OAuth-профиль, полученный клиентом от провайдера.
type Request struct {
	Provider string  `json:"provider" validate:"required,oneof=google facebook x"`
	ID       string  `json:"id" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Name     *string `json:"name,omitempty"`
}

// Service описывает интерфейс сведения OAuth-профиля к учетной записи.
type Service interface {
	LoginWithOAuth(ctx context.Context, profile auth.OAuthProfile) (*auth.Session, error)
}

// Handler обрабатывает HTTP-запросы обмена OAuth-профиля на токен.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Вход по OAuth-профилю
// @Description Сводит присланный клиентом OAuth-профиль к учетной записи и возвращает токен сессии.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "OAuth-профиль"
// @Success 200 {object} map[string]any "Успешный вход"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/oauth [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.oauthexchange"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	session, err := h.service.LoginWithOAuth(r.Context(), auth.OAuthProfile{
		Provider:  req.Provider,
		SubjectID: req.ID,
		Email:     req.Email,
		Name:      req.Name,
	})
	if err != nil {
		log.Error("oauth exchange failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	log.Info("oauth login success",
		slog.String("provider", req.Provider),
		slog.String("user_uid", session.UserUID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"token":    session.Token,
		"email":    session.Email,
		"is_admin": session.IsAdmin,
	}))
}
