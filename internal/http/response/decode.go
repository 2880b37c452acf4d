package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/course-access/internal/lib/sl"
)

// Decode читает JSON-тело запроса в dst и валидирует его. При ошибке пишет
// ответ 400 или 422 и возвращает false.
func Decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, validate *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, Error("invalid request body"))
		return false
	}

	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			log.Error("validation failed", sl.Err(err))
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, Error("invalid request body"))
			return false
		}
		log.Info("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, ValidationError(verrs))
		return false
	}
	return true
}
