// Package verifymobile реализует HTTP-обработчик проверки мобильных
// покупок (Google Play, App Store). Серверная проверка чеков пока не
// подключена, обработчик отвечает 501.
package verifymobile

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/chatwave-backend/internal/http/middlewarectx"
	"github.com/magabrotheeeer/chatwave-backend/internal/http/response"
	"github.com/magabrotheeeer/chatwave-backend/internal/lib/sl"
	"github.com/magabrotheeeer/chatwave-backend/internal/services/payment"
)

// Request — структура входных данных проверки мобильной покупки.
type Request struct {
	Platform      string `json:"platform" validate:"required,oneof=android ios"`
	PurchaseToken string `json:"purchase_token" validate:"required"`
}

// Service описывает интерфейс проверки мобильной покупки.
type Service interface {
	VerifyMobilePurchase(ctx context.Context, userUID, platform, purchaseToken string) error
}

// Handler обрабатывает HTTP-запросы проверки мобильных покупок.
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
// @Summary Проверка мобильной покупки
// @Description Проверяет чек покупки Google Play или App Store. Пока не подключена — возвращает 501.
// @Tags Subscription
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Платформа и токен покупки"
// @Success 200 {object} map[string]any "Покупка подтверждена"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 501 {object} response.ErrorResponse "Проверка не подключена"
// @Router /subscription/verify-mobile [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.verifymobile"

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

	if err := h.service.VerifyMobilePurchase(r.Context(), userUID, req.Platform, req.PurchaseToken); err != nil {
		if errors.Is(err, payment.ErrNotConfigured) {
			log.Info("mobile verification not configured", slog.String("platform", req.Platform))
			w.WriteHeader(http.StatusNotImplemented)
			render.JSON(w, r, response.Error("mobile purchase verification is not configured"))
			return
		}
		log.Error("mobile verification failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal service error"))
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{"verified": true}))
}
