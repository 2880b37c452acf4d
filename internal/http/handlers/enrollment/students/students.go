// Package students отдаёт пользователей, записанных на курс.
package students

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/course-access/internal/http/response"
	"github.com/magabrotheeeer/course-access/internal/lib/sl"
	"github.com/magabrotheeeer/course-access/internal/models"
)

// Service возвращает записанных на курс пользователей.
type Service interface {
	EnrolledUsers(ctx context.Context, courseID string) ([]*models.Snapshot, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Студенты курса
// @Tags Enrollment
// @Produce  json
// @Security BearerAuth
// @Param courseId path string true "Идентификатор курса"
// @Success 200 {object} response.Response "Записанные пользователи"
// @Failure 404 {object} response.ErrorResponse "Курс не найден"
// @Router /courses/{courseId}/students [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.enrollment.students"
	courseID := chi.URLParam(r, "courseId")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		sl.CourseID(courseID),
	)

	res, err := h.service.EnrolledUsers(r.Context(), courseID)
	if err != nil {
		log.Error("failed to list enrolled users", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"list_count": len(res),
		"students":   res,
	}))
}
