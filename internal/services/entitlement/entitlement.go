// Package entitlement решает, имеет ли пользователь доступ к продукту:
// действующий пробный период или оплаченная подписка.
package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/chatwave-backend/internal/models"
	"github.com/magabrotheeeer/chatwave-backend/internal/storage/repository"
)

// ReasonSubscriptionRequired — машинный код отказа в доступе.
const ReasonSubscriptionRequired = "subscription_required"

// Decision — результат проверки доступа.
type Decision struct {
	Allowed      bool
	Reason       string               // пуст при Allowed
	Status       string               // эффективный статус с наложением expired
	Subscription *models.Subscription // самая свежая запись
}

// SubscriptionRepository описывает контракт хранилища подписок.
type SubscriptionRepository interface {
	GetLatestSubscription(ctx context.Context, userUID string) (*models.Subscription, error)
	CreateTrialSubscription(ctx context.Context, userUID string, trialEndsAt time.Time, platform string) (*models.Subscription, error)
}

// EntitlementService проверяет право доступа по истории подписок.
type EntitlementService struct {
	subscriptions SubscriptionRepository
	log           *slog.Logger
}

// NewEntitlementService создает новый экземпляр EntitlementService.
func NewEntitlementService(subscriptions SubscriptionRepository, log *slog.Logger) *EntitlementService {
	return &EntitlementService{subscriptions: subscriptions, log: log}
}

// Evaluate — чистая функция решения по одной записи подписки.
// Доступ открыт только в двух случаях: trialing до конца пробного окна
// и active до конца оплаченного периода. Просроченные trialing и active
// отображаются как expired; записанные canceled и expired не
// переоцениваются.
func Evaluate(sub *models.Subscription, now time.Time) Decision {
	if sub == nil {
		return Decision{Allowed: false, Reason: ReasonSubscriptionRequired}
	}
	switch sub.Status {
	case models.StatusTrialing:
		if sub.TrialEndsAt != nil && now.Before(*sub.TrialEndsAt) {
			return Decision{Allowed: true, Status: models.StatusTrialing, Subscription: sub}
		}
		return Decision{Allowed: false, Reason: ReasonSubscriptionRequired, Status: models.StatusExpired, Subscription: sub}
	case models.StatusActive:
		if sub.CurrentPeriodEnd != nil && now.Before(*sub.CurrentPeriodEnd) {
			return Decision{Allowed: true, Status: models.StatusActive, Subscription: sub}
		}
		return Decision{Allowed: false, Reason: ReasonSubscriptionRequired, Status: models.StatusExpired, Subscription: sub}
	default:
		return Decision{Allowed: false, Reason: ReasonSubscriptionRequired, Status: sub.Status, Subscription: sub}
	}
}

// Check возвращает решение о доступе для пользователя на момент now.
//
// Пользователю без единой записи подписки дописывается пробный период
// от текущего момента — это единственная запись на читающем пути, она
// покрывает аккаунты, созданные до появления пробных периодов. Гонку
// двух одновременных проверок разрешает частичный уникальный индекс:
// проигравший перечитывает свежую запись.
func (s *EntitlementService) Check(ctx context.Context, userUID string, now time.Time) (Decision, error) {
	const op = "entitlement.Check"

	sub, err := s.subscriptions.GetLatestSubscription(ctx, userUID)
	if err != nil {
		if !errors.Is(err, repository.ErrNoSubscription) {
			return Decision{}, fmt.Errorf("%s: %w", op, err)
		}
		trialEndsAt := now.UTC().Add(models.TrialPeriod)
		sub, err = s.subscriptions.CreateTrialSubscription(ctx, userUID, trialEndsAt, models.PlatformPayPalWeb)
		if err != nil {
			return Decision{}, fmt.Errorf("%s: %w", op, err)
		}
		s.log.Info("backfilled trial subscription",
			slog.String("user_uid", userUID),
			slog.Time("trial_ends_at", trialEndsAt))
	}
	return Evaluate(sub, now), nil
}
