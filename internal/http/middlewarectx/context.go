// Package middlewarectx содержит HTTP middleware сервиса и ключи контекста,
// через которые middleware передают данные обработчикам.
package middlewarectx

import (
	"context"

	"github.com/magabrotheeeer/course-access/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// UserUID ключ для идентификатора пользователя в контексте
	UserUID Key = "user_uid"
	// Role ключ для роли из токена в контексте
	Role Key = "role"
	// Snapshot ключ для снимка прав пользователя в контексте
	Snapshot Key = "snapshot"
)

// UserUIDFrom возвращает идентификатор аутентифицированного пользователя.
func UserUIDFrom(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(UserUID).(string)
	return uid, ok && uid != ""
}

// SnapshotFrom возвращает снимок прав, загруженный SnapshotMiddleware.
func SnapshotFrom(ctx context.Context) (*models.Snapshot, bool) {
	snapshot, ok := ctx.Value(Snapshot).(*models.Snapshot)
	return snapshot, ok && snapshot != nil
}

// WithSnapshot кладёт снимок и идентификатор пользователя в контекст.
func WithSnapshot(ctx context.Context, snapshot *models.Snapshot) context.Context {
	ctx = context.WithValue(ctx, UserUID, snapshot.UUID)
	return context.WithValue(ctx, Snapshot, snapshot)
}
