// Package self реализует запись текущего пользователя на курс и отписку.
// Пользователь берётся из токена, а не из пути запроса.
package self

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/course-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/course-access/internal/http/response"
	"github.com/magabrotheeeer/course-access/internal/lib/apperr"
	"github.com/magabrotheeeer/course-access/internal/lib/sl"
	"github.com/magabrotheeeer/course-access/internal/models"
)

// Service описывает запись на курс.
type Service interface {
	Enroll(ctx context.Context, courseID, userUID string) (*models.Snapshot, error)
	Unenroll(ctx context.Context, courseID, userUID string) (*models.Snapshot, error)
}

// Handler обрабатывает запись текущего пользователя на курс.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// Enroll godoc
// @Summary Записаться на курс
// @Description Записывает текущего пользователя. Операция идемпотентна.
// @Tags Enrollment
// @Produce  json
// @Security BearerAuth
// @Param courseId path string true "Идентификатор курса"
// @Success 200 {object} response.Response "Снимок прав пользователя"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Пользователь не активирован"
// @Failure 404 {object} response.ErrorResponse "Курс не найден"
// @Failure 503 {object} response.ErrorResponse "Хранилище недоступно"
// @Router /courses/{courseId}/enroll [post]
func (h *Handler) Enroll(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, "handlers.enrollment.self.enroll", h.service.Enroll)
}

// Unenroll godoc
// @Summary Отписаться от курса
// @Description Отписывает текущего пользователя. Отсутствие записи не ошибка.
// @Tags Enrollment
// @Produce  json
// @Security BearerAuth
// @Param courseId path string true "Идентификатор курса"
// @Success 200 {object} response.Response "Снимок прав пользователя"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Курс не найден"
// @Failure 503 {object} response.ErrorResponse "Хранилище недоступно"
// @Router /courses/{courseId}/enroll [delete]
func (h *Handler) Unenroll(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, "handlers.enrollment.self.unenroll", h.service.Unenroll)
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, op string,
	change func(ctx context.Context, courseID, userUID string) (*models.Snapshot, error)) {
	courseID := chi.URLParam(r, "courseId")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		sl.CourseID(courseID),
	)

	userUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		log.Error("user uid not found in context")
		response.WriteError(w, r, apperr.ErrUnauthenticated)
		return
	}
	log = log.With(sl.UserID(userUID))

	snapshot, err := change(r.Context(), courseID, userUID)
	if err != nil {
		log.Error("failed to change enrollment", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("enrollment changed by user")
	render.JSON(w, r, response.OKWithData(snapshot))
}
