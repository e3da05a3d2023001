// Package models содержит доменные структуры системы: пользователей,
// подписки, тарифные планы и события для очереди уведомлений.
// Структуры используются в бизнес-логике и при работе с хранилищем.
package models

import "time"

// Поддерживаемые OAuth-провайдеры.
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
	ProviderX        = "x"
)

// User представляет учетную запись пользователя.
//
// PasswordHash равен nil для аккаунтов, созданных через OAuth.
// OAuthProvider и OAuthID заполняются парой: либо оба nil, либо оба заданы.
// Аккаунт без пароля и без OAuth-связки недостижим и не должен создаваться —
// это закреплено check-ограничением в базе.
type User struct {
	UID           string    // Уникальный идентификатор пользователя
	Email         string    // Электронная почта (глобально уникальна)
	Name          *string   // Отображаемое имя (опционально)
	PasswordHash  *string   // Хэш пароля, nil для OAuth-аккаунтов
	OAuthProvider *string   // Провайдер OAuth: google, facebook, x
	OAuthID       *string   // Идентификатор пользователя у провайдера
	Country       *string   // Код страны, определенный по IP (не авторитетен)
	CreatedAt     time.Time // Дата создания записи
}

// HasPassword сообщает, доступен ли парольный вход для аккаунта.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// HasOAuthLink сообщает, привязан ли к аккаунту OAuth-провайдер.
func (u *User) HasOAuthLink() bool {
	return u.OAuthProvider != nil && u.OAuthID != nil
}
