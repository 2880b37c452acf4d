// Package lesson реализует HTTP-обработчики уроков и прогресса по курсу.
package lesson

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/course-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/course-access/internal/http/response"
	"github.com/magabrotheeeer/course-access/internal/lib/apperr"
	"github.com/magabrotheeeer/course-access/internal/lib/sl"
	"github.com/magabrotheeeer/course-access/internal/models"
)

// Service описывает операции над уроками.
type Service interface {
	Lessons(ctx context.Context, courseSlug, sectionSlug string) ([]*models.Lesson, error)
	Lesson(ctx context.Context, courseSlug, sectionSlug, lessonID string) (*models.Lesson, error)
	CreateLesson(ctx context.Context, courseSlug, sectionSlug string, draft models.LessonDraft) (*models.Lesson, error)
	UpdateLesson(ctx context.Context, courseSlug, sectionSlug, lessonID string, patch models.LessonPatch) (*models.Lesson, error)
	DeleteLesson(ctx context.Context, courseSlug, sectionSlug, lessonID string) error
	CompleteLesson(ctx context.Context, courseSlug, sectionSlug, lessonID, userUID string) (*models.LessonProgress, error)
	Progress(ctx context.Context, courseSlug, userUID string) (*models.CourseProgress, error)
}

// Handler обрабатывает запросы к урокам.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

type params struct {
	course, section, lesson string
}

func (h *Handler) request(r *http.Request, op string) (*slog.Logger, params) {
	p := params{
		course:  chi.URLParam(r, "courseSlug"),
		section: chi.URLParam(r, "sectionSlug"),
		lesson:  chi.URLParam(r, "lessonId"),
	}
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("course_slug", p.course),
		slog.String("section_slug", p.section),
	)
	if p.lesson != "" {
		log = log.With(slog.String("lesson_id", p.lesson))
	}
	return log, p
}

// List godoc
// @Summary Уроки раздела
// @Tags Lessons
// @Produce  json
// @Security BearerAuth
// @Param courseSlug path string true "Слаг курса"
// @Param sectionSlug path string true "Слаг раздела"
// @Success 200 {object} response.Response "Уроки по порядку"
// @Failure 404 {object} response.ErrorResponse "Курс или раздел не найден"
// @Router /courses/{courseSlug}/sections/{sectionSlug}/lessons [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log, p := h.request(r, "handlers.lesson.list")

	lessons, err := h.service.Lessons(r.Context(), p.course, p.section)
	if err != nil {
		log.Error("failed to list lessons", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	if lessons == nil {
		lessons = []*models.Lesson{}
	}
	render.JSON(w, r, response.OKWithData(lessons))
}

// Get godoc
// @Summary Урок
// @Tags Lessons
// @Produce  json
// @Security BearerAuth
// @Param courseSlug path string true "Слаг курса"
// @Param sectionSlug path string true "Слаг раздела"
// @Param lessonId path string true "Идентификатор урока"
// @Success 200 {object} response.Response "Урок"
// @Failure 404 {object} response.ErrorResponse "Урок не найден"
// @Router /courses/{courseSlug}/sections/{sectionSlug}/lessons/{lessonId} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log, p := h.request(r, "handlers.lesson.get")

	lesson, err := h.service.Lesson(r.Context(), p.course, p.section, p.lesson)
	if err != nil {
		log.Error("failed to get lesson", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(lesson))
}

// Create godoc
// @Summary Создать урок
// @Description Добавляет урок в конец раздела. Тип по умолчанию VIDEO.
// @Tags Lessons
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param courseSlug path string true "Слаг курса"
// @Param sectionSlug path string true "Слаг раздела"
// @Param request body models.LessonDraft true "Данные урока"
// @Success 201 {object} response.Response "Созданный урок"
// @Failure 409 {object} response.ErrorResponse "Урок с таким слагом уже есть"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /courses/{courseSlug}/sections/{sectionSlug}/lessons [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log, p := h.request(r, "handlers.lesson.create")

	var req models.LessonDraft
	if !response.Decode(w, r, log, h.validate, &req) {
		return
	}

	lesson, err := h.service.CreateLesson(r.Context(), p.course, p.section, req)
	if err != nil {
		log.Error("failed to create lesson", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("lesson created", slog.String("lesson_id", lesson.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(lesson))
}

// Update godoc
// @Summary Изменить урок
// @Tags Lessons
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param courseSlug path string true "Слаг курса"
// @Param sectionSlug path string true "Слаг раздела"
// @Param lessonId path string true "Идентификатор урока"
// @Param request body models.LessonPatch true "Изменяемые поля"
// @Success 200 {object} response.Response "Обновлённый урок"
// @Failure 404 {object} response.ErrorResponse "Урок не найден"
// @Router /courses/{courseSlug}/sections/{sectionSlug}/lessons/{lessonId} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log, p := h.request(r, "handlers.lesson.update")

	var req models.LessonPatch
	if !response.Decode(w, r, log, h.validate, &req) {
		return
	}

	lesson, err := h.service.UpdateLesson(r.Context(), p.course, p.section, p.lesson, req)
	if err != nil {
		log.Error("failed to update lesson", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(lesson))
}

// Delete godoc
// @Summary Удалить урок
// @Tags Lessons
// @Produce  json
// @Security BearerAuth
// @Param courseSlug path string true "Слаг курса"
// @Param sectionSlug path string true "Слаг раздела"
// @Param lessonId path string true "Идентификатор урока"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Урок не найден"
// @Router /courses/{courseSlug}/sections/{sectionSlug}/lessons/{lessonId} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log, p := h.request(r, "handlers.lesson.delete")

	if err := h.service.DeleteLesson(r.Context(), p.course, p.section, p.lesson); err != nil {
		log.Error("failed to delete lesson", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("lesson deleted")
	render.JSON(w, r, response.Response{Status: response.StatusOK})
}

// Complete godoc
// @Summary Отметить урок пройденным
// @Description Отметка ставится текущему пользователю. Повторный вызов ничего не меняет.
// @Tags Lessons
// @Produce  json
// @Security BearerAuth
// @Param courseSlug path string true "Слаг курса"
// @Param sectionSlug path string true "Слаг раздела"
// @Param lessonId path string true "Идентификатор урока"
// @Success 200 {object} response.Response "Отметка о прохождении"
// @Failure 403 {object} response.ErrorResponse "Нет доступа к курсу"
// @Failure 404 {object} response.ErrorResponse "Урок не найден"
// @Router /courses/{courseSlug}/sections/{sectionSlug}/lessons/{lessonId}/complete [patch]
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	log, p := h.request(r, "handlers.lesson.complete")

	userUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		log.Error("user uid not found in context")
		response.WriteError(w, r, apperr.ErrUnauthenticated)
		return
	}

	progress, err := h.service.CompleteLesson(r.Context(), p.course, p.section, p.lesson, userUID)
	if err != nil {
		log.Error("failed to complete lesson", sl.UserID(userUID), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(progress))
}

// Progress godoc
// @Summary Прогресс по курсу
// @Tags Lessons
// @Produce  json
// @Security BearerAuth
// @Param courseSlug path string true "Слаг курса"
// @Success 200 {object} response.Response "Пройденные уроки текущего пользователя"
// @Failure 403 {object} response.ErrorResponse "Нет доступа к курсу"
// @Failure 404 {object} response.ErrorResponse "Курс не найден"
// @Router /courses/{courseSlug}/progress [get]
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	log, p := h.request(r, "handlers.lesson.progress")

	userUID, ok := middlewarectx.UserUIDFrom(r.Context())
	if !ok {
		log.Error("user uid not found in context")
		response.WriteError(w, r, apperr.ErrUnauthenticated)
		return
	}

	progress, err := h.service.Progress(r.Context(), p.course, userUID)
	if err != nil {
		log.Error("failed to load progress", sl.UserID(userUID), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(progress))
}
