package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTMaker_GenerateAndParseToken(t *testing.T) {
	tokenTTL := 15 * time.Minute
	maker := NewJWTMaker("test_secret_key_1234567890", tokenTTL)

	tests := []struct {
		name    string
		userUID string
		role    string
	}{
		{name: "admin", userUID: "8f14e45f-ceea-467f-a9a8-0f6b1b0a4a11", role: "ADMIN"},
		{name: "instructor", userUID: "c9f0f895-fb98-4b91-9f1b-ef0c5d1e3a22", role: "INSTRUCTOR"},
		{name: "student", userUID: "45c48cce-2e2d-4fbd-a6c1-6a0b7e1c6a33", role: "STUDENT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := maker.GenerateToken(tt.userUID, tt.role)
			require.NoError(t, err)
			assert.NotEmpty(t, token)

			claims, err := maker.ParseToken(token)
			require.NoError(t, err)

			assert.Equal(t, tt.userUID, claims.UserUID)
			assert.Equal(t, tt.userUID, claims.Subject)
			assert.Equal(t, tt.role, claims.Role)
			assert.WithinDuration(t, time.Now().Add(tokenTTL), claims.ExpiresAt.Time, time.Second)
		})
	}
}

func TestJWTMaker_ParseToken_InvalidTokens(t *testing.T) {
	maker := NewJWTMaker("test_secret_key_1234567890", 15*time.Minute)
	otherMaker := NewJWTMaker("another_secret", 15*time.Minute)
	expiredMaker := NewJWTMaker("test_secret_key_1234567890", -time.Minute)

	foreign, err := otherMaker.GenerateToken("u-1", "STUDENT")
	require.NoError(t, err)
	expired, err := expiredMaker.GenerateToken("u-1", "STUDENT")
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, CustomClaims{
		Role: "STUDENT",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte("test_secret_key_1234567890"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "malformed token", token: "invalid.token.here"},
		{name: "wrong signature", token: foreign},
		{name: "expired", token: expired},
		{name: "missing user uid", token: noSubject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := maker.ParseToken(tt.token)
			assert.Error(t, err)
			assert.Nil(t, claims)
		})
	}
}
