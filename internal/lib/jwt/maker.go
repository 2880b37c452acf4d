// Package jwt реализует выпуск и проверку токенов доступа, которые несут
// идентификатор пользователя и его роль.
package jwt

import (
	"time"
)

// Maker описывает выпуск и разбор токенов доступа.
type Maker interface {
	GenerateToken(userUID, role string) (string, error)
	ParseToken(tokenStr string) (*CustomClaims, error)
}

// MakerImpl подписывает токены HMAC-SHA256 общим секретом.
type MakerImpl struct {
	secretKey string        // Секретный ключ для подписи токенов.
	tokenTTL  time.Duration // Время жизни токена.
}

// NewJWTMaker создаёт MakerImpl на основе секретного ключа и TTL.
func NewJWTMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}
