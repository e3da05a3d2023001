package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/chatwave-backend/internal/models"
)

const subscriptionColumns = `id, user_uid, status, plan, platform, trial_ends_at,
			      current_period_start, current_period_end, external_order_id, created_at`

func scanSubscription(row interface{ Scan(...any) error }) (*models.Subscription, error) {
	sub := &models.Subscription{}
	var plan, platform, externalOrderID sql.NullString
	var trialEndsAt, periodStart, periodEnd sql.NullTime
	if err := row.Scan(&sub.ID, &sub.UserUID, &sub.Status, &plan, &platform,
		&trialEndsAt, &periodStart, &periodEnd, &externalOrderID, &sub.CreatedAt); err != nil {
		return nil, err
	}
	if plan.Valid {
		sub.Plan = &plan.String
	}
	if platform.Valid {
		sub.Platform = &platform.String
	}
	if externalOrderID.Valid {
		sub.ExternalOrderID = &externalOrderID.String
	}
	if trialEndsAt.Valid {
		sub.TrialEndsAt = &trialEndsAt.Time
	}
	if periodStart.Valid {
		sub.CurrentPeriodStart = &periodStart.Time
	}
	if periodEnd.Valid {
		sub.CurrentPeriodEnd = &periodEnd.Time
	}
	return sub, nil
}

// GetLatestSubscription возвращает самую свежую запись подписки пользователя.
// Право доступа вычисляется только по ней, старые записи — история.
func (s *Storage) GetLatestSubscription(ctx context.Context, userUID string) (*models.Subscription, error) {
	const op = "storage.GetLatestSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + subscriptionColumns + `
			  FROM subscriptions
			  WHERE user_uid = $1
			  ORDER BY created_at DESC
			  LIMIT 1`
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userUID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNoSubscription)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// CreateTrialSubscription добивает отсутствующую trialing-запись на пути
// чтения. Частичный уникальный индекс по (user_uid) WHERE status='trialing'
// гарантирует, что из двух конкурентных вызовов запись создаст только один;
// проигравший перечитывает свежую запись.
func (s *Storage) CreateTrialSubscription(ctx context.Context, userUID string,
	trialEndsAt time.Time, platform string) (*models.Subscription, error) {
	const op = "storage.CreateTrialSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (user_uid, status, platform, trial_ends_at)
			  VALUES ($1, $2, $3, $4)
			  RETURNING ` + subscriptionColumns
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query,
		userUID, models.StatusTrialing, platform, trialEndsAt))
	if err != nil {
		if isUniqueViolation(err) {
			return s.GetLatestSubscription(ctx, userUID)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// ActivateSubscription переводит запись в статус active с тарифом,
// платформой, границами оплаченного периода и внешним идентификатором заказа.
func (s *Storage) ActivateSubscription(ctx context.Context, subscriptionID, plan, platform string,
	periodStart, periodEnd time.Time, externalOrderID string) error {
	const op = "storage.ActivateSubscription"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET status = $1,
			      plan = $2,
			      platform = $3,
			      current_period_start = $4,
			      current_period_end = $5,
			      external_order_id = $6
			  WHERE id = $7`
	res, err := s.DB.ExecContext(ctx, query, models.StatusActive, plan, platform,
		periodStart, periodEnd, externalOrderID, subscriptionID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNoSubscription)
	}
	return nil
}

// CreateActiveSubscription создает активную запись подписки для пользователя,
// у которого записей еще нет (захват оплаты до первого обращения к чату).
func (s *Storage) CreateActiveSubscription(ctx context.Context, userUID, plan, platform string,
	periodStart, periodEnd time.Time, externalOrderID string) (*models.Subscription, error) {
	const op = "storage.CreateActiveSubscription"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (user_uid, status, plan, platform,
			      current_period_start, current_period_end, external_order_id)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING ` + subscriptionColumns
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userUID,
		models.StatusActive, plan, platform, periodStart, periodEnd, externalOrderID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// SetSubscriptionStatus выставляет статус и срок действия на записи подписки.
// Используется только админским переопределением.
func (s *Storage) SetSubscriptionStatus(ctx context.Context, subscriptionID, status string,
	activeUntil *time.Time) (*models.Subscription, error) {
	const op = "storage.SetSubscriptionStatus"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE subscriptions
			  SET status = $1,
			      current_period_end = $2
			  WHERE id = $3
			  RETURNING ` + subscriptionColumns
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, status, activeUntil, subscriptionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrNoSubscription)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}

// CreateSubscriptionWithStatus создает запись с произвольным статусом.
// Используется админским переопределением, когда у пользователя еще нет
// ни одной записи.
func (s *Storage) CreateSubscriptionWithStatus(ctx context.Context, userUID, status string,
	activeUntil *time.Time) (*models.Subscription, error) {
	const op = "storage.CreateSubscriptionWithStatus"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO subscriptions (user_uid, status, current_period_end)
			  VALUES ($1, $2, $3)
			  RETURNING ` + subscriptionColumns
	sub, err := scanSubscription(s.DB.QueryRowContext(ctx, query, userUID, status, activeUntil))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sub, nil
}
