// Package login реализует HTTP-обработчик входа по email и паролю.
//
// В нём определяется структура Request для входных данных, выполняется
// декодирование JSON, проверка и валидация полей, а также делегирование
// операции входа сервису аутентификации. При успехе возвращается JSON с
// токеном сессии; любой отказ в аутентификации — HTTP 401 с одинаковым
// сообщением.
package login

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/chatwave-backend/internal/http/response"
	"github.com/magabrotheeeer/chatwave-backend/internal/lib/sl"
	"github.com/magabrotheeeer/chatwave-backend/internal/services/auth"
	"github.com/magabrotheeeer/chatwave-backend/internal/services/geoip"
)

// Request — структура входных данных для входа.
type Request struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Service описывает интерфейс бизнес-логики входа.
type Service interface {
	Login(ctx context.Context, email, password string) (*auth.Session, error)
}

// CountryEnricher дописывает страну на профиль после входа.
type CountryEnricher interface {
	EnrichUserCountry(ctx context.Context, userUID, ip string)
}

// Handler обрабатывает HTTP-запросы входа.
type Handler struct {
	log      *slog.Logger
	service  Service
	geo      CountryEnricher
	validate *validator.Validate
}

// New создает новый экземпляр Handler. geo может быть nil.
func New(log *slog.Logger, service Service, geo CountryEnricher) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		geo:      geo,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Вход пользователя
// @Description Аутентифицирует пользователя по email и паролю. Возвращает токен сессии.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Учетные данные пользователя"
// @Success 200 {object} map[string]any "Успешный вход"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 401 {object} response.ErrorResponse "Неверные учетные данные"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"

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

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			log.Info("login rejected")
			w.WriteHeader(http.StatusUnauthorized)
			render.JSON(w, r, response.Error("invalid email or password"))
			return
		}
		log.Error("login failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	if h.geo != nil {
		go h.geo.EnrichUserCountry(context.Background(), session.UserUID, geoip.ClientIP(r))
	}

	log.Info("login success", slog.String("user_uid", session.UserUID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"token":    session.Token,
		"email":    session.Email,
		"is_admin": session.IsAdmin,
	}))
}
