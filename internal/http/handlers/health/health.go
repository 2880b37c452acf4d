// Package health отдаёт состояние сервиса и его зависимостей.
package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/course-access/internal/http/response"
	"github.com/magabrotheeeer/course-access/internal/lib/sl"
)

const checkTimeout = 2 * time.Second

// Checker проверяет доступность зависимости.
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc позволяет использовать функцию как Checker.
type CheckerFunc func(ctx context.Context) error

// Ping вызывает f(ctx).
func (f CheckerFunc) Ping(ctx context.Context) error { return f(ctx) }

type Handler struct {
	log      *slog.Logger
	checkers map[string]Checker
}

// New создаёт Handler. checkers содержит именованные зависимости, без которых сервис не работает.
func New(log *slog.Logger, checkers map[string]Checker) *Handler {
	return &Handler{
		log:      log,
		checkers: checkers,
	}
}

// ServeHTTP godoc
// @Summary Проверка состояния
// @Tags Health
// @Produce  json
// @Success 200 {object} response.Response "Сервис работает"
// @Failure 503 {object} response.Response "Зависимость недоступна"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.health"

	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	status := "ok"
	deps := make(map[string]string, len(h.checkers))
	for name, checker := range h.checkers {
		if err := checker.Ping(ctx); err != nil {
			h.log.Error("dependency is unhealthy", slog.String("op", op), slog.String("dependency", name), sl.Err(err))
			deps[name] = "unavailable"
			status = "degraded"
			continue
		}
		deps[name] = "ok"
	}

	if status != "ok" {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, response.OKWithData(map[string]any{
		"status":       status,
		"dependencies": deps,
	}))
}
