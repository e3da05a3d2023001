// Package jwt реализует выпуск и проверку компактных bearer-токенов сессии.
//
// Токен несет только идентификатор пользователя (claim sub) и абсолютный
// срок действия. Maker определяет интерфейс, MakerImpl — реализация на
// секретном ключе HS256.
package jwt

import (
	"time"
)

// Maker описывает интерфейс для выпуска и проверки токенов сессии.
type Maker interface {
	// GenerateToken выпускает токен для пользователя с заданным uid.
	GenerateToken(userUID string) (string, error)
	// ParseToken проверяет подпись и срок действия, возвращает claims.
	// Ошибка едина для просроченного, поврежденного токена и неверной
	// подписи — детали проверки наружу не раскрываются.
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl реализует интерфейс Maker с использованием секретного ключа
// и времени жизни токена (TTL).
type MakerImpl struct {
	secretKey string        // Секретный ключ для подписи токенов.
	tokenTTL  time.Duration // Время жизни токена.
}

// NewJWTMaker создаёт новый экземпляр MakerImpl на основе секретного ключа и TTL.
// Пустой секрет отсекается на старте процесса в config.MustLoad.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}
