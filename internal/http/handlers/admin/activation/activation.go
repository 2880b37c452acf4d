// Package activation реализует HTTP-обработчик включения и выключения активации пользователя.
package activation

import (
	"context"
	"encoding/json"
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

// Request тело запроса.
type Request struct {
	Activated *bool `json:"activated" validate:"required"`
}

// Service меняет активацию пользователя.
type Service interface {
	SetActivation(ctx context.Context, userUID string, activated bool) (*models.Snapshot, error)
}

type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Активировать или деактивировать пользователя
// @Tags Admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param userId path string true "Идентификатор пользователя"
// @Param request body Request true "Новое значение активации"
// @Success 200 {object} response.Response "Снимок прав"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 404 {object} response.ErrorResponse "Пользователь не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /admin/users/{userId}/activation [patch]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.activation"
	userUID := chi.URLParam(r, "userId")
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		sl.UserID(userUID),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	snapshot, err := h.service.SetActivation(r.Context(), userUID, *req.Activated)
	if err != nil {
		log.Error("failed to change activation", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}
	render.JSON(w, r, response.OKWithData(snapshot))
}
