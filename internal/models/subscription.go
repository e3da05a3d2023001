package models

import "time"

// Статусы подписки, хранящиеся в базе. "Истекший" статус для trialing и
// active за пределами окна не записывается — он вычисляется при чтении.
const (
	StatusTrialing = "trialing"
	StatusActive   = "active"
	StatusCanceled = "canceled"
	StatusExpired  = "expired"
)

// TrialPeriod — длительность пробного периода нового пользователя.
const TrialPeriod = 7 * 24 * time.Hour

// Платформы, через которые оформлена подписка.
const (
	PlatformGooglePlay = "google_play"
	PlatformAppStore   = "app_store"
	PlatformPayPalWeb  = "paypal_web"
)

// Subscription представляет одну запись истории подписок пользователя.
//
// Право доступа всегда вычисляется по самой свежей записи (по CreatedAt);
// более старые записи — неизменяемая история и повторно не оцениваются.
type Subscription struct {
	ID                 string     // Уникальный идентификатор записи
	UserUID            string     // Владелец подписки
	Status             string     // trialing, active, canceled, expired
	Plan               *string    // monthly или yearly, nil для пробного периода
	Platform           *string    // google_play, app_store, paypal_web
	TrialEndsAt        *time.Time // Конец пробного периода
	CurrentPeriodStart *time.Time // Начало оплаченного периода
	CurrentPeriodEnd   *time.Time // Конец оплаченного периода
	ExternalOrderID    *string    // Идентификатор заказа у платежного провайдера
	CreatedAt          time.Time  // Дата создания записи
}
