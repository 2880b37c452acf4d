// Package section реализует HTTP-обработчики разделов курса.
//
// Курс задаётся параметром маршрута courseSlug, раздел параметром sectionSlug.
// Проверку доступа к курсу выполняет middleware маршрута.
package section

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/course-access/internal/http/response"
	"github.com/magabrotheeeer/course-access/internal/lib/sl"
	"github.com/magabrotheeeer/course-access/internal/models"
)

// Service описывает операции над разделами.
type Service interface {
	Sections(ctx context.Context, courseSlug string) ([]*models.Section, error)
	Section(ctx context.Context, courseSlug, sectionSlug string) (*models.Section, error)
	CreateSection(ctx context.Context, courseSlug string, draft models.SectionDraft) (*models.Section, error)
	UpdateSection(ctx context.Context, courseSlug, sectionSlug string, patch models.SectionPatch) (*models.Section, error)
	DeleteSection(ctx context.Context, courseSlug, sectionSlug string) error
}

// Handler обрабатывает запросы к разделам курса.
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

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("course_slug", chi.URLParam(r, "courseSlug")),
	)
}

// List godoc
// @Summary Разделы курса
// @Tags Sections
// @Produce  json
// @Security BearerAuth
// @Param courseSlug path string true "Слаг курса"
// @Success 200 {object} response.Response "Разделы по порядку"
// @Failure 403 {object} response.ErrorResponse "Нет доступа к курсу"
// @Failure 404 {object} response.ErrorResponse "Курс не найден"
// @Router /courses/{courseSlug}/sections [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.section.list")

	sections, err := h.service.Sections(r.Context(), chi.URLParam(r, "courseSlug"))
	if err != nil {
		log.Error("failed to list sections", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	if sections == nil {
		sections = []*models.Section{}
	}
	render.JSON(w, r, response.OKWithData(sections))
}

// Get godoc
// @Summary Раздел курса
// @Tags Sections
// @Produce  json
// @Security BearerAuth
// @Param courseSlug path string true "Слаг курса"
// @Param sectionSlug path string true "Слаг раздела"
// @Success 200 {object} response.Response "Раздел"
// @Failure 403 {object} response.ErrorResponse "Нет доступа к курсу"
// @Failure 404 {object} response.ErrorResponse "Курс или раздел не найден"
// @Router /courses/{courseSlug}/sections/{sectionSlug} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.section.get")

	section, err := h.service.Section(r.Context(), chi.URLParam(r, "courseSlug"), chi.URLParam(r, "sectionSlug"))
	if err != nil {
		log.Error("failed to get section", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(section))
}

// Create godoc
// @Summary Создать раздел
// @Description Добавляет раздел в конец курса. Слаг строится из названия.
// @Tags Sections
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param courseSlug path string true "Слаг курса"
// @Param request body models.SectionDraft true "Данные раздела"
// @Success 201 {object} response.Response "Созданный раздел"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Failure 409 {object} response.ErrorResponse "Раздел с таким слагом уже есть"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /courses/{courseSlug}/sections [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.section.create")

	var req models.SectionDraft
	if !response.Decode(w, r, log, h.validate, &req) {
		return
	}

	section, err := h.service.CreateSection(r.Context(), chi.URLParam(r, "courseSlug"), req)
	if err != nil {
		log.Error("failed to create section", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("section created", slog.String("section_slug", section.Slug))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(section))
}

// Update godoc
// @Summary Изменить раздел
// @Description Меняет название и описание. Новое название меняет слаг.
// @Tags Sections
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param courseSlug path string true "Слаг курса"
// @Param sectionSlug path string true "Слаг раздела"
// @Param request body models.SectionPatch true "Изменяемые поля"
// @Success 200 {object} response.Response "Обновлённый раздел"
// @Failure 404 {object} response.ErrorResponse "Курс или раздел не найден"
// @Failure 409 {object} response.ErrorResponse "Раздел с таким слагом уже есть"
// @Router /courses/{courseSlug}/sections/{sectionSlug} [patch]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.section.update")

	var req models.SectionPatch
	if !response.Decode(w, r, log, h.validate, &req) {
		return
	}

	section, err := h.service.UpdateSection(r.Context(),
		chi.URLParam(r, "courseSlug"), chi.URLParam(r, "sectionSlug"), req)
	if err != nil {
		log.Error("failed to update section", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(section))
}

// Delete godoc
// @Summary Удалить раздел
// @Description Удаляет раздел вместе с уроками и отметками о прохождении.
// @Tags Sections
// @Produce  json
// @Security BearerAuth
// @Param courseSlug path string true "Слаг курса"
// @Param sectionSlug path string true "Слаг раздела"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Курс или раздел не найден"
// @Router /courses/{courseSlug}/sections/{sectionSlug} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.section.delete")
	sectionSlug := chi.URLParam(r, "sectionSlug")

	if err := h.service.DeleteSection(r.Context(), chi.URLParam(r, "courseSlug"), sectionSlug); err != nil {
		log.Error("failed to delete section", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("section deleted", slog.String("section_slug", sectionSlug))
	render.JSON(w, r, response.Response{Status: response.StatusOK})
}
