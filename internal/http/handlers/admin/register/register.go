// Package register реализует HTTP-обработчик регистрации пользователя администратором.
package register

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/course-access/internal/http/response"
	"github.com/magabrotheeeer/course-access/internal/lib/sl"
	"github.com/magabrotheeeer/course-access/internal/models"
)

// Request тело запроса на регистрацию.
type Request struct {
	Email string `json:"email" validate:"required,email,max=320" example:"student@example.com"`
}

// Service регистрирует пользователя и выпускает ему токен доступа.
type Service interface {
	Register(ctx context.Context, email string) (*models.Snapshot, error)
}

// TokenIssuer выпускает токен доступа.
type TokenIssuer interface {
	GenerateToken(userUID, role string) (string, error)
}

type Handler struct {
	log      *slog.Logger
	service  Service
	tokens   TokenIssuer
	validate *validator.Validate
}

func New(log *slog.Logger, service Service, tokens TokenIssuer) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		tokens:   tokens,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Зарегистрировать пользователя
// @Description Создаёт пользователя с ролью STUDENT и возвращает снимок прав и токен доступа.
// @Tags Admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Электронная почта"
// @Success 201 {object} response.Response "Пользователь и токен"
// @Failure 409 {object} response.ErrorResponse "Пользователь уже существует"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /admin/users [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.register"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	snapshot, err := h.service.Register(r.Context(), req.Email)
	if err != nil {
		log.Error("failed to register user", sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	token, err := h.tokens.GenerateToken(snapshot.UUID, string(snapshot.Role))
	if err != nil {
		log.Error("failed to generate token", sl.UserID(snapshot.UUID), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.OKWithData(map[string]any{
		"user":  snapshot,
		"token": token,
	}))
}
