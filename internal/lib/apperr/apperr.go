// Package apperr описывает закрытую таксономию ошибок сервиса и их
// отображение на HTTP-статусы. Слои ниже границы HTTP возвращают только
// ошибки, совместимые через errors.Is с одним из сентинелов пакета.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnauthenticated запрос без аутентифицированного пользователя.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden политика доступа отказала.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound сущность не найдена.
	ErrNotFound = errors.New("not found")
	// ErrConflict конкурентное обновление, операцию можно повторить.
	ErrConflict = errors.New("conflict")
	// ErrUnavailable таймаут или недоступность зависимости.
	ErrUnavailable = errors.New("unavailable")
	// ErrInvalidInput некорректный идентификатор или полезная нагрузка.
	ErrInvalidInput = errors.New("invalid input")
)

// ForbiddenError отказ политики с причиной.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Reason)
}

// Is позволяет сравнивать ошибку с ErrForbidden.
func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

// Forbidden создаёт ForbiddenError с причиной.
func Forbidden(reason string) error {
	return &ForbiddenError{Reason: reason}
}

// NotFoundError описывает ненайденную сущность.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// Is позволяет сравнивать ошибку с ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NotFound создаёт NotFoundError для сущности с идентификатором.
func NotFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// FromContext переводит ошибки отмены контекста в ErrUnavailable,
// остальные ошибки возвращает без изменений.
func FromContext(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

// HTTPStatus возвращает HTTP-статус для ошибки из таксономии.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
