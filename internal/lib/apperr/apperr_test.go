package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	forbidden := fmt.Errorf("wrap: %w", Forbidden("not_enrolled"))
	assert.ErrorIs(t, forbidden, ErrForbidden)
	assert.NotErrorIs(t, forbidden, ErrNotFound)

	var fe *ForbiddenError
	assert.True(t, errors.As(forbidden, &fe))
	assert.Equal(t, "not_enrolled", fe.Reason)

	notFound := fmt.Errorf("wrap: %w", NotFound("course", "abc"))
	assert.ErrorIs(t, notFound, ErrNotFound)
	assert.Equal(t, `wrap: course "abc" not found`, notFound.Error())

	var nfe *NotFoundError
	assert.True(t, errors.As(notFound, &nfe))
	assert.Equal(t, "course", nfe.Entity)
}

func TestFromContext(t *testing.T) {
	assert.ErrorIs(t, FromContext(context.DeadlineExceeded), ErrUnavailable)
	assert.ErrorIs(t, FromContext(fmt.Errorf("op: %w", context.Canceled)), ErrUnavailable)

	plain := errors.New("boom")
	assert.Equal(t, plain, FromContext(plain))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unauthenticated", ErrUnauthenticated, http.StatusUnauthorized},
		{"forbidden reason", Forbidden("not_enrolled"), http.StatusForbidden},
		{"not found", NotFound("user", "1"), http.StatusNotFound},
		{"conflict", fmt.Errorf("x: %w", ErrConflict), http.StatusConflict},
		{"unavailable", FromContext(context.DeadlineExceeded), http.StatusServiceUnavailable},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"unknown", errors.New("db exploded"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
