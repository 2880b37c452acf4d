package response

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/course-access/internal/lib/apperr"
	"github.com/magabrotheeeer/course-access/internal/lib/logger"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"forbidden with reason", fmt.Errorf("x: %w", apperr.Forbidden("not_enrolled")), http.StatusForbidden, "forbidden: not_enrolled"},
		{"not found entity", apperr.NotFound("course", "go"), http.StatusNotFound, `course "go" not found`},
		{"unavailable", apperr.FromContext(context.DeadlineExceeded), http.StatusServiceUnavailable, "Service Unavailable"},
		{"conflict", apperr.ErrConflict, http.StatusConflict, "Conflict"},
		{"internal hides details", errors.New("pq: password leaked"), http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := FromError(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, StatusError, body.Status)
			assert.Equal(t, tt.wantMsg, body.Error)
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(w, r, apperr.ErrUnauthenticated)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"status":"Error","error":"Unauthorized"}`, w.Body.String())
}

func TestValidationError(t *testing.T) {
	type req struct {
		Title string `validate:"required"`
		Role  string `validate:"oneof=ADMIN STUDENT"`
	}
	err := validator.New().Struct(req{Role: "OWNER"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	resp := ValidationError(verrs)
	assert.Equal(t, StatusError, resp.Status)
	assert.Contains(t, resp.Error, "field Title is a required field")
	assert.Contains(t, resp.Error, "field Role must be one of: ADMIN STUDENT")
}

func TestDecode(t *testing.T) {
	type request struct {
		Title string `json:"title" validate:"required,max=5"`
	}

	tests := []struct {
		name       string
		body       string
		wantOK     bool
		wantStatus int
		wantTitle  string
	}{
		{"валидное тело", `{"title":"Go"}`, true, http.StatusOK, "Go"},
		{"битый JSON", `{"title":`, false, http.StatusBadRequest, ""},
		{"пустое поле", `{"title":""}`, false, http.StatusUnprocessableEntity, ""},
		{"слишком длинное поле", `{"title":"Golang"}`, false, http.StatusUnprocessableEntity, "Golang"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			var dst request
			ok := Decode(rec, req, logger.Discard(), validator.New(), &dst)

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantTitle, dst.Title)
		})
	}
}
