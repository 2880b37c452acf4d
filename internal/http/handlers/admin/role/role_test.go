package role

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/course-access/internal/lib/apperr"
	"github.com/magabrotheeeer/course-access/internal/lib/logger"
	"github.com/magabrotheeeer/course-access/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) ChangeRole(ctx context.Context, userUID string, role models.Role) (*models.Snapshot, error) {
	args := m.Called(ctx, userUID, role)
	if res := args.Get(0); res != nil {
		return res.(*models.Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestRoleHandler(t *testing.T) {
	instructor := models.NewSnapshot("u-1", "i@example.com")
	instructor.Role = models.RoleInstructor

	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "назначение преподавателя",
			body: `{"role":"INSTRUCTOR"}`,
			setupMock: func(m *MockService) {
				m.On("ChangeRole", mock.Anything, "u-1", models.RoleInstructor).Return(&instructor, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"role":"INSTRUCTOR"`,
		},
		{
			name:           "неизвестная роль",
			body:           `{"role":"OWNER"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Role must be one of: ADMIN INSTRUCTOR STUDENT`,
		},
		{
			name: "хранилище недоступно",
			body: `{"role":"ADMIN"}`,
			setupMock: func(m *MockService) {
				m.On("ChangeRole", mock.Anything, "u-1", models.RoleAdmin).Return(nil, fmt.Errorf("x: %w", apperr.ErrUnavailable))
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `"status":"Error"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/users/u-1/role", strings.NewReader(tt.body))
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("userId", "u-1")
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			w := httptest.NewRecorder()
			New(logger.Discard(), mockService).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
