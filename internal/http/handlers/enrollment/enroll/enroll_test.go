package enroll

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
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

func (m *MockService) Enroll(ctx context.Context, courseID, userUID string) (*models.Snapshot, error) {
	args := m.Called(ctx, courseID, userUID)
	if res := args.Get(0); res != nil {
		return res.(*models.Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func newRequest(courseID, userUID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/courses/"+courseID+"/students/"+userUID, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("courseId", courseID)
	rctx.URLParams.Add("userId", userUID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestEnrollHandler(t *testing.T) {
	snapshot := models.NewSnapshot("u-1", "s@example.com")
	snapshot.EnrolledCourseIDs = models.NewCourseSet("c-1")

	tests := []struct {
		name           string
		serviceResp    *models.Snapshot
		serviceErr     error
		expectedStatus int
		expectedBody   string
	}{
		{"успешная запись", &snapshot, nil, http.StatusOK, `"enrolled_course_ids":["c-1"]`},
		{"курс не найден", nil, apperr.NotFound("course", "c-1"), http.StatusNotFound, `course \"c-1\" not found`},
		{"пользователь не найден", nil, apperr.NotFound("user", "u-1"), http.StatusNotFound, `user \"u-1\" not found`},
		{"таймаут хранилища", nil, apperr.FromContext(context.DeadlineExceeded), http.StatusServiceUnavailable, `Service Unavailable`},
		{"гонка обновлений", nil, fmt.Errorf("x: %w", apperr.ErrUnavailable), http.StatusServiceUnavailable, `Service Unavailable`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			mockService.On("Enroll", mock.Anything, "c-1", "u-1").Return(tt.serviceResp, tt.serviceErr)

			w := httptest.NewRecorder()
			New(logger.Discard(), mockService).ServeHTTP(w, newRequest("c-1", "u-1"))

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
