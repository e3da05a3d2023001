// Package setsubscription реализует HTTP-обработчик админского
// переопределения статуса подписки пользователя.
//
// Доступ разрешен только пользователю, чей email совпадает с ADMIN_EMAIL
// из конфигурации. Переопределение пишет новую вершину истории подписок
// либо правит последнюю запись.
package setsubscription

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/chatwave-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/chatwave-backend/internal/http/response"
	"github.com/magabrotheeeer/chatwave-backend/internal/lib/sl"
	"github.com/magabrotheeeer/chatwave-backend/internal/models"
	"github.com/magabrotheeeer/chatwave-backend/internal/storage/repository"
)

// Request — структура входных данных переопределения.
type Request struct {
	Email       string     `json:"email" validate:"required,email"`
	Status      string     `json:"status" validate:"required,oneof=trialing active canceled expired"`
	ActiveUntil *time.Time `json:"active_until,omitempty"`
}

// Store описывает операции хранилища, нужные переопределению.
type Store interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetLatestSubscription(ctx context.Context, userUID string) (*models.Subscription, error)
	SetSubscriptionStatus(ctx context.Context, subscriptionID, status string, activeUntil *time.Time) (*models.Subscription, error)
	CreateSubscriptionWithStatus(ctx context.Context, userUID, status string, activeUntil *time.Time) (*models.Subscription, error)
}

// Handler обрабатывает HTTP-запросы админского переопределения.
type Handler struct {
	log        *slog.Logger
	store      Store
	adminEmail string
	validate   *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, store Store, adminEmail string) *Handler {
	return &Handler{
		log:        log,
		store:      store,
		adminEmail: adminEmail,
		validate:   validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Переопределение подписки
// @Description Выставляет статус и срок подписки пользователя. Доступно только администратору.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Email пользователя, статус и срок"
// @Success 200 {object} map[string]any "Подписка обновлена"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Нет прав администратора"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /admin/subscription [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.setsubscription"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := r.Context().Value(middlewarectx.UserUID).(string)
	if !ok || userUID == "" {
		log.Error("user identification missing")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user identification missing"))
		return
	}

	caller, err := h.store.GetUser(r.Context(), userUID)
	if err != nil {
		log.Error("failed to resolve caller", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}
	if h.adminEmail == "" || caller.Email != h.adminEmail {
		log.Error("admin access denied", slog.String("user_uid", userUID))
		w.WriteHeader(http.StatusForbidden)
		render.JSON(w, r, response.Error("admin access required"))
		return
	}

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

	target, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
			return
		}
		log.Error("failed to resolve target user", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	var sub *models.Subscription
	latest, err := h.store.GetLatestSubscription(r.Context(), target.UID)
	switch {
	case err == nil:
		sub, err = h.store.SetSubscriptionStatus(r.Context(), latest.ID, req.Status, req.ActiveUntil)
	case errors.Is(err, repository.ErrNoSubscription):
		sub, err = h.store.CreateSubscriptionWithStatus(r.Context(), target.UID, req.Status, req.ActiveUntil)
	}
	if err != nil {
		log.Error("failed to override subscription", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	log.Info("subscription overridden",
		slog.String("admin_uid", userUID),
		slog.String("target_uid", target.UID),
		slog.String("status", sub.Status))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"user_uid":           target.UID,
		"status":             sub.Status,
		"current_period_end": sub.CurrentPeriodEnd,
	}))
}
