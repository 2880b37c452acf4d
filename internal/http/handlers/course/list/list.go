// Package list реализует HTTP-обработчик постраничного списка курсов.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/course-access/internal/http/response"
	"github.com/magabrotheeeer/course-access/internal/lib/sl"
	"github.com/magabrotheeeer/course-access/internal/models"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// Service описывает получение списка курсов.
type Service interface {
	List(ctx context.Context, limit, offset int) ([]*models.Course, error)
}

// Handler отдаёт список курсов.
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
// @Summary Список курсов
// @Tags Courses
// @Produce  json
// @Security BearerAuth
// @Param limit query int false "Размер страницы (по умолчанию 10, максимум 100)"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response "Курсы"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /courses [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.course.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}

	res, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		log.Error("failed to list courses", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Debug("list courses", slog.Int("count", len(res)))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"list_count": len(res),
		"courses":    res,
	}))
}
