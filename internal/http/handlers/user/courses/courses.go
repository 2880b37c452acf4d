// Package courses отдаёт курсы, на которые явно записан текущий пользователь.
package courses

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/course-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/course-access/internal/http/response"
	"github.com/magabrotheeeer/course-access/internal/lib/apperr"
	"github.com/magabrotheeeer/course-access/internal/lib/sl"
	"github.com/magabrotheeeer/course-access/internal/models"
)

// Service возвращает курсы пользователя.
type Service interface {
	EnrolledCourses(ctx context.Context, userUID string) ([]*models.Course, error)
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
// @Summary Мои курсы
// @Tags Users
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response "Курсы пользователя"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /users/me/courses [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.user.courses"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	userUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		log.Error("user uid not found in context")
		response.WriteError(w, r, apperr.ErrUnauthenticated)
		return
	}

	res, err := h.service.EnrolledCourses(r.Context(), userUID)
	if err != nil {
		log.Error("failed to list enrolled courses", sl.UserID(userUID), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"list_count": len(res),
		"courses":    res,
	}))
}
