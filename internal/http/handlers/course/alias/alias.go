// Package alias реализует HTTP-обработчик привязки идентификатора продукта магазина к курсу.
package alias

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/course-access/internal/http/response"
	"github.com/magabrotheeeer/course-access/internal/lib/sl"
)

// Request связывает идентификатор продукта магазина с идентификатором продукта курса.
type Request struct {
	StoreProductID    string `json:"store_product_id" validate:"required,max=200" example:"prod_123"`
	ProductIdentifier string `json:"product_identifier" validate:"required,max=200" example:"My Course Identifier"`
}

// Service регистрирует псевдоним продукта.
type Service interface {
	RegisterProductAlias(ctx context.Context, storeProductID, productIdentifier string) error
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
// @Summary Привязать продукт магазина к курсу
// @Tags Admin
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param request body Request true "Псевдоним продукта"
// @Success 200 {object} response.Response "Псевдоним сохранён"
// @Failure 404 {object} response.ErrorResponse "Курс с таким идентификатором не найден"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /admin/product-aliases [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.course.alias"
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
	if err := h.validate.Struct(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.service.RegisterProductAlias(r.Context(), req.StoreProductID, req.ProductIdentifier); err != nil {
		log.Error("failed to register product alias", slog.String("store_product_id", req.StoreProductID), sl.Err(err))
		response.WriteError(w, r, err)
		return
	}

	log.Info("product alias registered", slog.String("store_product_id", req.StoreProductID))
	render.JSON(w, r, response.OKWithData(req))
}
