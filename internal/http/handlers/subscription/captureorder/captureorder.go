// Package captureorder реализует HTTP-обработчик захвата одобренного
// платежного заказа и активации оплаченного периода подписки.
package captureorder

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
	"github.com/magabrotheeeer/chatwave-backend/internal/models"
	"github.com/magabrotheeeer/chatwave-backend/internal/services/payment"
)

// Request — структура входных данных для захвата заказа.
type Request struct {
	OrderID string `json:"order_id" validate:"required"`
	Plan    string `json:"plan" validate:"required,oneof=monthly yearly"`
}

// Service описывает интерфейс захвата платежного заказа.
type Service interface {
	CaptureOrder(ctx context.Context, userUID, orderID, planID string) (*models.Subscription, error)
}

// Handler обрабатывает HTTP-запросы захвата заказа.
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
// @Summary Захват платежного заказа
// @Description Захватывает одобренный заказ и активирует оплаченный период. Повторный захват того же заказа идемпотентен.
// @Tags Subscription
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Идентификатор заказа и тариф"
// @Success 200 {object} map[string]any "Подписка активирована"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или неизвестный тариф"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 502 {object} response.ErrorResponse "Ошибка платежного провайдера"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /subscription/capture [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.captureorder"

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

	sub, err := h.service.CaptureOrder(r.Context(), userUID, req.OrderID, req.Plan)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrUnknownPlan):
			log.Error("unknown plan", slog.String("plan", req.Plan))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("unknown plan"))
		case errors.Is(err, payment.ErrProcessorUnavailable):
			log.Error("payment processor not configured")
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, response.Error("payment processor is not configured"))
		default:
			log.Error("capture failed", sl.Err(err))
			w.WriteHeader(http.StatusBadGateway)
			render.JSON(w, r, response.Error("failed to capture order"))
		}
		return
	}

	log.Info("order captured",
		slog.String("user_uid", userUID),
		slog.String("order_id", req.OrderID),
		slog.String("status", sub.Status))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"status":             sub.Status,
		"plan":               sub.Plan,
		"current_period_end": sub.CurrentPeriodEnd,
	}))
}
