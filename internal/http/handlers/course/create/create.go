// Package create реализует HTTP-обработчик создания курса.
//
// Handler принимает JSON с названием курса и идентификатором продукта, валидирует его
// и создаёт курс через сервис. Слаг и нормализованный идентификатор вычисляет сервис.
package create

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/course-access/internal/http/response"
	"github.com/magabrotheeeer/course-access/internal/lib/sl"
	"github.com/magabrotheeeer/course-access/internal/models"
)

// Handler управляет HTTP-запросами на создание курсов.
type Handler struct {
	log      *slog.Logger        // Логгер для записи информации и ошибок
	service  Service             // Сервис реестра курсов
	validate *validator.Validate // Валидатор структуры входящих данных
}

// Service описывает создание курса.
type Service interface {
	Create(ctx context.Context, draft models.CourseDraft) (*models.Course, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать курс
// @Description Создаёт курс. Слаг строится из названия, идентификатор продукта нормализуется.
// @Tags Courses
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body models.CourseDraft true "Данные курса"
// @Success 201 {object} response.Response "Созданный курс"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 409 {object} response.ErrorResponse "Курс с таким слагом или идентификатором уже есть"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /courses [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.course.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.CourseDraft
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			log.Error("validation failed", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid request body"))
			return
		}
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(verrs))
		return
	}

	course, err := h.service.Create(r.Context(), req)
	if err != nil {
		log.Error("failed to create course", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("course created", sl.CourseID(course.ID), slog.String("slug", course.Slug))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(course))
}
