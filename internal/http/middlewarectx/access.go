package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/course-access/internal/http/response"
	"github.com/magabrotheeeer/course-access/internal/lib/sl"
	"github.com/magabrotheeeer/course-access/internal/models"
	"github.com/magabrotheeeer/course-access/internal/services/access"
)

// Decider принимает решение о доступе.
type Decider interface {
	Decide(ctx context.Context, user *models.Snapshot, res access.Resource) (access.Decision, error)
}

// CourseAccess проверяет доступ к курсу, слаг которого лежит в параметре маршрута param.
// Отсутствие снимка в контексте трактуется как анонимный запрос.
func CourseAccess(log *slog.Logger, decider Decider, param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.CourseAccess"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			snapshot, _ := SnapshotFrom(r.Context())
			res := access.Resource{CourseSlug: chi.URLParam(r, param)}

			decision, err := decider.Decide(r.Context(), snapshot, res)
			if err != nil {
				log.Error("access decision failed", slog.String("course_slug", res.CourseSlug), sl.Err(err))
				response.WriteError(w, r, err)
				return
			}
			if !decision.Allowed {
				log.Info("access denied",
					slog.String("course_slug", res.CourseSlug),
					slog.String("reason", decision.Reason),
				)
				response.WriteError(w, r, decision.Err())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
