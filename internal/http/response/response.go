// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/course-access/internal/lib/apperr"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status: статус запроса ("OK" или "Error").
// Поле Error: текст ошибки (опционально, при неуспехе).
// Поле Data: данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse структура ошибки для Swagger-документации.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"course \"go\" not found"`
}

const (
	// StatusOK значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// OKWithData возвращает успешный Response с переданными данными.
func OKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает ответ с ошибкой и переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// FromError возвращает HTTP-статус и тело ответа для ошибки из таксономии apperr.
// Текст внутренних ошибок наружу не попадает.
func FromError(err error) (int, ErrorResponse) {
	status := apperr.HTTPStatus(err)

	var (
		forbidden *apperr.ForbiddenError
		notFound  *apperr.NotFoundError
	)
	switch {
	case errors.As(err, &forbidden):
		return status, Error(forbidden.Error())
	case errors.As(err, &notFound):
		return status, Error(notFound.Error())
	case status == http.StatusInternalServerError:
		return status, Error("internal error")
	default:
		return status, Error(http.StatusText(status))
	}
}

// WriteError записывает ответ для ошибки из таксономии apperr.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := FromError(err)
	render.Status(r, status)
	render.JSON(w, r, body)
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) Response {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is too long", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return Response{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}
