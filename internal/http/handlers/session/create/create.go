// Package create реализует HTTP-обработчик выпуска клиентской сессии чата.
//
// Это единственная точка входа в продукт: перед выпуском сессии проверяется
// право доступа пользователя. Отказ возвращается как HTTP 402 с машинным
// кодом subscription_required — клиент по нему открывает экран оплаты.
package create

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/chatwave-backend/internal/chatapi"
	"github.com/magabrotheeeer/chatwave-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/chatwave-backend/internal/http/response"
	"github.com/magabrotheeeer/chatwave-backend/internal/lib/sl"
	"github.com/magabrotheeeer/chatwave-backend/internal/services/entitlement"
)

// EntitlementService описывает интерфейс проверки права доступа.
type EntitlementService interface {
	Check(ctx context.Context, userUID string, now time.Time) (entitlement.Decision, error)
}

// ChatClient выпускает клиентскую сессию у провайдера чата.
type ChatClient interface {
	CreateSession(ctx context.Context, userUID string) (*chatapi.Session, error)
}

// Handler обрабатывает HTTP-запросы выпуска сессии чата.
type Handler struct {
	log          *slog.Logger
	entitlements EntitlementService
	chat         ChatClient
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, entitlements EntitlementService, chat ChatClient) *Handler {
	return &Handler{
		log:          log,
		entitlements: entitlements,
		chat:         chat,
	}
}

// ServeHTTP godoc
// @Summary Выпуск сессии чата
// @Description Проверяет право доступа и выпускает клиентскую сессию чата. Отказ — HTTP 402 с кодом subscription_required.
// @Tags Session
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} map[string]any "Сессия выпущена"
// @Failure 401 {object} response.ErrorResponse "Нет или неверный токен"
// @Failure 402 {object} response.ErrorResponse "Нет действующей подписки"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Failure 503 {object} response.ErrorResponse "Чат-API не настроен"
// @Router /session [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.session.create"

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

	decision, err := h.entitlements.Check(r.Context(), userUID, time.Now().UTC())
	if err != nil {
		log.Error("entitlement check failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}
	if !decision.Allowed {
		log.Info("session denied",
			slog.String("user_uid", userUID),
			slog.String("status", decision.Status))
		w.WriteHeader(http.StatusPaymentRequired)
		render.JSON(w, r, response.ErrorWithCode("active subscription required", decision.Reason))
		return
	}

	session, err := h.chat.CreateSession(r.Context(), userUID)
	if err != nil {
		if errors.Is(err, chatapi.ErrNotConfigured) {
			log.Error("chat api not configured")
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("chat api is not configured"))
			return
		}
		log.Error("failed to create chat session", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	log.Info("chat session issued",
		slog.String("user_uid", userUID),
		slog.String("subscription_status", decision.Status))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"client_secret":       session.ClientSecret,
		"expires_after":       session.ExpiresAfter,
		"subscription_status": decision.Status,
	}))
}
