// Package read реализует HTTP-обработчик получения курса по слагу.
//
// Доступ к курсу проверяется middleware до вызова обработчика.
package read

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

// Handler обрабатывает запросы на получение курса.
type Handler struct {
	log     *slog.Logger // Логгер для записи информации и ошибок
	service Service      // Сервис реестра курсов
}

// Service описывает чтение курса по слагу.
type Service interface {
	GetBySlug(ctx context.Context, slug string) (*models.Course, error)
}

// New создает новый Handler с переданным логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Получить курс
// @Description Возвращает курс, если у пользователя есть к нему доступ.
// @Tags Courses
// @Produce  json
// @Security BearerAuth
// @Param courseSlug path string true "Слаг курса"
// @Success 200 {object} response.Response "Курс"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Нет доступа к курсу"
// @Failure 404 {object} response.ErrorResponse "Курс не найден"
// @Failure 503 {object} response.ErrorResponse "Хранилище недоступно"
// @Router /courses/{courseSlug} [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.course.read"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	slug := chi.URLParam(r, "courseSlug")
	course, err := h.service.GetBySlug(r.Context(), slug)
	if err != nil {
		log.Error("failed to read course", slog.String("slug", slug), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(course))
}
