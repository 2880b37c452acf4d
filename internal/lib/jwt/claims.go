package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CustomClaims описывает пользовательские данные, хранящиеся в JWT.
type CustomClaims struct {
	UserUID              string `json:"user_uid"` // Идентификатор пользователя
	Role                 string `json:"role"`     // Роль на момент выпуска токена
	jwt.RegisteredClaims        // Стандартные claims (ExpiresAt, IssuedAt, Subject)
}

// GenerateToken создаёт токен для пользователя userUID с ролью role.
func (j *MakerImpl) GenerateToken(userUID, role string) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		UserUID: userUID,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userUID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secretKey))
}

// ParseToken проверяет подпись и срок действия токена и возвращает его claims.
func (j *MakerImpl) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	if claims.UserUID == "" {
		return nil, fmt.Errorf("%s: token without user_uid", op)
	}
	return claims, nil
}
