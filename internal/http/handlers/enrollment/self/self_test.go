package self

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/course-access/internal/http/middlewarectx"
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

func (m *MockService) Unenroll(ctx context.Context, courseID, userUID string) (*models.Snapshot, error) {
	args := m.Called(ctx, courseID, userUID)
	if res := args.Get(0); res != nil {
		return res.(*models.Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func newRequest(method, courseID string, caller *models.Snapshot) *http.Request {
	req := httptest.NewRequest(method, "/api/v1/courses/"+courseID+"/enroll", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("courseId", courseID)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if caller != nil {
		ctx = middlewarectx.WithSnapshot(ctx, caller)
	}
	return req.WithContext(ctx)
}

func TestSelfEnrollHandler(t *testing.T) {
	caller := models.NewSnapshot("u-1", "s@example.com")
	enrolled := caller
	enrolled.EnrolledCourseIDs = models.NewCourseSet("c-1")

	tests := []struct {
		name           string
		method         string
		caller         *models.Snapshot
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "запись текущего пользователя",
			method: http.MethodPost,
			caller: &caller,
			setupMock: func(m *MockService) {
				m.On("Enroll", mock.Anything, "c-1", "u-1").Return(&enrolled, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"enrolled_course_ids":["c-1"]`,
		},
		{
			name:   "отписка текущего пользователя",
			method: http.MethodDelete,
			caller: &caller,
			setupMock: func(m *MockService) {
				m.On("Unenroll", mock.Anything, "c-1", "u-1").Return(&caller, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"enrolled_course_ids":[]`,
		},
		{
			name:   "курс не найден",
			method: http.MethodPost,
			caller: &caller,
			setupMock: func(m *MockService) {
				m.On("Enroll", mock.Anything, "c-1", "u-1").Return(nil, apperr.NotFound("course", "c-1"))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `course \"c-1\" not found`,
		},
		{
			name:           "без пользователя в контексте",
			method:         http.MethodPost,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `Unauthorized`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)
			handler := New(logger.Discard(), svc)

			rec := httptest.NewRecorder()
			req := newRequest(tt.method, "c-1", tt.caller)
			if tt.method == http.MethodDelete {
				handler.Unenroll(rec, req)
			} else {
				handler.Enroll(rec, req)
			}

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
