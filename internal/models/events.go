package models

import "time"

// SubscriptionActivatedEvent публикуется в RabbitMQ после успешного
// подтверждения оплаты и потребляется notification-sender.
type SubscriptionActivatedEvent struct {
	UserUID          string    `json:"user_uid"`
	Email            string    `json:"email"`
	Plan             string    `json:"plan"`
	OrderID          string    `json:"order_id"`
	CurrentPeriodEnd time.Time `json:"current_period_end"`
}
