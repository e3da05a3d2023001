// Package payment сводит оплату через PayPal с записями подписок:
// создание заказа, захват оплаты и активация оплаченного периода.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/chatwave-backend/internal/lib/sl"
	"github.com/magabrotheeeer/chatwave-backend/internal/models"
	"github.com/magabrotheeeer/chatwave-backend/internal/paypal"
	"github.com/magabrotheeeer/chatwave-backend/internal/storage/repository"
)

// Ошибки уровня сервиса.
var (
	ErrUnknownPlan          = errors.New("unknown plan")
	ErrProcessorUnavailable = errors.New("payment processor is not configured")
	ErrNotConfigured        = errors.New("mobile purchase verification is not configured")
)

// OrderClient — контракт платежного провайдера.
type OrderClient interface {
	Configured() bool
	CreateOrder(ctx context.Context, req paypal.CreateOrderRequest) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string) error
}

// SubscriptionRepository описывает операции хранилища, нужные захвату оплаты.
type SubscriptionRepository interface {
	GetLatestSubscription(ctx context.Context, userUID string) (*models.Subscription, error)
	ActivateSubscription(ctx context.Context, subscriptionID, plan, platform string,
		periodStart, periodEnd time.Time, externalOrderID string) error
	CreateActiveSubscription(ctx context.Context, userUID, plan, platform string,
		periodStart, periodEnd time.Time, externalOrderID string) (*models.Subscription, error)
}

// UserGetter отдает пользователя для письма-квитанции.
type UserGetter interface {
	GetUser(ctx context.Context, userUID string) (*models.User, error)
}

// EventPublisher публикует событие активации подписки.
type EventPublisher interface {
	PublishSubscriptionActivated(event models.SubscriptionActivatedEvent) error
}

// CreatedOrder — результат создания заказа: идентификатор и ссылка
// подтверждения для редиректа пользователя.
type CreatedOrder struct {
	OrderID     string
	ApprovalURL string
}

// PaymentService оркестрирует оплату подписки.
type PaymentService struct {
	orders        OrderClient
	subscriptions SubscriptionRepository
	users         UserGetter
	publisher     EventPublisher
	appURL        string
	log           *slog.Logger
}

// NewPaymentService создает новый экземпляр PaymentService.
// publisher может быть nil — тогда события активации не отправляются.
func NewPaymentService(orders OrderClient, subscriptions SubscriptionRepository,
	users UserGetter, publisher EventPublisher, appURL string, log *slog.Logger) *PaymentService {
	return &PaymentService{
		orders:        orders,
		subscriptions: subscriptions,
		users:         users,
		publisher:     publisher,
		appURL:        strings.TrimRight(appURL, "/"),
		log:           log,
	}
}

// CreateOrder создает у провайдера заказ на оплату тарифа и возвращает
// ссылку подтверждения.
func (s *PaymentService) CreateOrder(ctx context.Context, planID string) (*CreatedOrder, error) {
	const op = "payment.CreateOrder"

	plan, ok := models.PlanByID(planID)
	if !ok {
		return nil, ErrUnknownPlan
	}
	if !s.orders.Configured() {
		return nil, ErrProcessorUnavailable
	}

	order, err := s.orders.CreateOrder(ctx, paypal.CreateOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypal.PurchaseUnit{{
			Amount: paypal.Amount{
				CurrencyCode: "USD",
				Value:        plan.Price,
			},
			Description: fmt.Sprintf("ChatWave %s subscription", plan.Name),
		}},
		ApplicationContext: paypal.ApplicationContext{
			ReturnURL: s.appURL + "/subscribe/return?plan=" + plan.ID,
			CancelURL: s.appURL + "/subscribe?canceled=1",
			BrandName: "ChatWave",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &CreatedOrder{
		OrderID:     order.ID,
		ApprovalURL: order.ApprovalURL(),
	}, nil
}

// CaptureOrder захватывает одобренный заказ и активирует оплаченный период.
//
// Повторный захват того же заказа идемпотентен: если свежая запись уже
// активна с этим внешним идентификатором, оплата не захватывается
// повторно и период не продлевается. Календарная арифметика: месяц —
// AddDate(0, 1, 0), год — AddDate(1, 0, 0) от момента захвата в UTC.
func (s *PaymentService) CaptureOrder(ctx context.Context, userUID, orderID, planID string) (*models.Subscription, error) {
	const op = "payment.CaptureOrder"

	plan, ok := models.PlanByID(planID)
	if !ok {
		return nil, ErrUnknownPlan
	}
	if !s.orders.Configured() {
		return nil, ErrProcessorUnavailable
	}

	latest, err := s.subscriptions.GetLatestSubscription(ctx, userUID)
	if err != nil && !errors.Is(err, repository.ErrNoSubscription) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if latest != nil && latest.Status == models.StatusActive &&
		latest.ExternalOrderID != nil && *latest.ExternalOrderID == orderID {
		s.log.Info("capture replay, returning existing subscription",
			slog.String("user_uid", userUID),
			slog.String("order_id", orderID))
		return latest, nil
	}

	if err := s.orders.CaptureOrder(ctx, orderID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	periodStart := time.Now().UTC()
	var periodEnd time.Time
	if plan.ID == models.PlanYearly {
		periodEnd = periodStart.AddDate(1, 0, 0)
	} else {
		periodEnd = periodStart.AddDate(0, 1, 0)
	}

	var sub *models.Subscription
	if latest != nil {
		err = s.subscriptions.ActivateSubscription(ctx, latest.ID, plan.ID,
			models.PlatformPayPalWeb, periodStart, periodEnd, orderID)
		if err == nil {
			sub, err = s.subscriptions.GetLatestSubscription(ctx, userUID)
		}
	} else {
		sub, err = s.subscriptions.CreateActiveSubscription(ctx, userUID, plan.ID,
			models.PlatformPayPalWeb, periodStart, periodEnd, orderID)
	}
	if err != nil {
		// Деньги захвачены, запись не обновлена: состояние требует ручной
		// сверки по идентификатору заказа.
		s.log.Error("payment captured but subscription not stored",
			slog.String("user_uid", userUID),
			slog.String("order_id", orderID),
			slog.String("plan", plan.ID),
			sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.publishActivated(ctx, userUID, plan.ID, orderID, periodEnd)
	return sub, nil
}

// VerifyMobilePurchase — проверка покупок Google Play / App Store.
// Серверная проверка чеков пока не подключена.
func (s *PaymentService) VerifyMobilePurchase(_ context.Context, _ string, _ string, _ string) error {
	return ErrNotConfigured
}

// publishActivated отправляет событие активации с email пользователя.
// Ошибки не срывают захват: письмо — побочный эффект.
func (s *PaymentService) publishActivated(ctx context.Context, userUID, planID, orderID string, periodEnd time.Time) {
	if s.publisher == nil {
		return
	}
	email := ""
	if user, err := s.users.GetUser(ctx, userUID); err == nil {
		email = user.Email
	} else {
		s.log.Warn("failed to resolve user email for activation event", sl.Err(err))
	}
	event := models.SubscriptionActivatedEvent{
		UserUID:          userUID,
		Email:            email,
		Plan:             planID,
		OrderID:          orderID,
		CurrentPeriodEnd: periodEnd,
	}
	if err := s.publisher.PublishSubscriptionActivated(event); err != nil {
		s.log.Warn("failed to publish subscription activated event", sl.Err(err))
	}
}
