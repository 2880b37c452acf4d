// Package me отдаёт снимок прав текущего пользователя.
package me

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/course-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/course-access/internal/http/response"
	"github.com/magabrotheeeer/course-access/internal/lib/apperr"
)

type Handler struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Handler {
	return &Handler{
		log: log,
	}
}

// ServeHTTP godoc
// @Summary Текущий пользователь
// @Tags Users
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response "Снимок прав"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Router /users/me [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := middlewarectx.SnapshotFrom(r.Context())
	if !ok {
		h.log.Error("snapshot not found in context", slog.String("op", "handlers.user.me"))
		response.WriteError(w, r, apperr.ErrUnauthenticated)
		return
	}
	render.JSON(w, r, response.OKWithData(snapshot))
}
