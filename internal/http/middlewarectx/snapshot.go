package middlewarectx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/course-access/internal/http/response"
	"github.com/magabrotheeeer/course-access/internal/lib/apperr"
	"github.com/magabrotheeeer/course-access/internal/lib/sl"
	"github.com/magabrotheeeer/course-access/internal/models"
)

// SnapshotLoader возвращает актуальный снимок прав пользователя.
type SnapshotLoader interface {
	Snapshot(ctx context.Context, userUID string) (*models.Snapshot, error)
}

// SnapshotMiddleware загружает снимок прав пользователя из токена и кладёт его
// в контекст. Роль и флаги берутся из снимка, а не из токена.
// Пользователь из токена, которого нет в хранилище, считается неаутентифицированным.
func SnapshotMiddleware(log *slog.Logger, loader SnapshotLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.SnapshotMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			userUID, ok := UserUIDFrom(r.Context())
			if !ok {
				log.Warn("user identification missing")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("user identification missing"))
				return
			}

			snapshot, err := loader.Snapshot(r.Context(), userUID)
			if err != nil {
				if errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrInvalidInput) {
					log.Warn("token subject does not exist", sl.UserID(userUID))
					response.WriteError(w, r, apperr.ErrUnauthenticated)
					return
				}
				log.Error("failed to load entitlement snapshot", sl.UserID(userUID), sl.Err(err))
				response.WriteError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSnapshot(r.Context(), snapshot)))
		})
	}
}

// RequireActivated пропускает только пользователей, активированных администратором.
func RequireActivated(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snapshot, ok := SnapshotFrom(r.Context())
			if !ok {
				response.WriteError(w, r, apperr.ErrUnauthenticated)
				return
			}
			if !snapshot.IsActivated {
				log.Info("user is not activated",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					sl.UserID(snapshot.UUID),
				)
				response.WriteError(w, r, apperr.Forbidden("not_activated"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole пропускает только пользователей с одной из перечисленных ролей.
func RequireRole(log *slog.Logger, roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snapshot, ok := SnapshotFrom(r.Context())
			if !ok {
				response.WriteError(w, r, apperr.ErrUnauthenticated)
				return
			}
			if !slices.Contains(roles, snapshot.Role) {
				log.Info("role is not allowed",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					sl.UserID(snapshot.UUID),
					slog.String("role", string(snapshot.Role)),
				)
				response.WriteError(w, r, apperr.Forbidden("insufficient_role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
