// Package enroll реализует HTTP-обработчик записи пользователя на курс.
package enroll

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

// Service описывает операцию над записью на курс.
type Service interface {
	Enroll(ctx context.Context, courseID, userUID string) (*models.Snapshot, error)
}

// Handler обрабатывает запросы записи пользователя на курс.
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

// ServeHTTP godoc
// @Summary Записать пользователя на курс
// @Description Операция идемпотентна. Возвращает обновлённый снимок прав пользователя.
// @Tags Enrollment
// @Produce  json
// @Security BearerAuth
// @Param courseId path string true "Идентификатор курса"
// @Param userId path string true "Идентификатор пользователя"
// @Success 200 {object} response.Response "Снимок прав пользователя"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 404 {object} response.ErrorResponse "Курс или пользователь не найден"
// @Failure 503 {object} response.ErrorResponse "Хранилище недоступно"
// @Router /courses/{courseId}/students/{userId} [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.enrollment.enroll"
	courseID := chi.URLParam(r, "courseId")
	userUID := chi.URLParam(r, "userId")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		sl.CourseID(courseID),
		sl.UserID(userUID),
	)

	snapshot, err := h.service.Enroll(r.Context(), courseID, userUID)
	if err != nil {
		log.Error("failed to enroll user", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("enroll user done")
	render.JSON(w, r, response.OKWithData(snapshot))
}
