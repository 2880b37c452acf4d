package lesson

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
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

func (m *MockService) Lessons(ctx context.Context, courseSlug, sectionSlug string) ([]*models.Lesson, error) {
	args := m.Called(ctx, courseSlug, sectionSlug)
	if res := args.Get(0); res != nil {
		return res.([]*models.Lesson), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) Lesson(ctx context.Context, courseSlug, sectionSlug, lessonID string) (*models.Lesson, error) {
	args := m.Called(ctx, courseSlug, sectionSlug, lessonID)
	if res := args.Get(0); res != nil {
		return res.(*models.Lesson), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) CreateLesson(ctx context.Context, courseSlug, sectionSlug string, draft models.LessonDraft) (*models.Lesson, error) {
	args := m.Called(ctx, courseSlug, sectionSlug, draft)
	if res := args.Get(0); res != nil {
		return res.(*models.Lesson), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) UpdateLesson(ctx context.Context, courseSlug, sectionSlug, lessonID string, patch models.LessonPatch) (*models.Lesson, error) {
	args := m.Called(ctx, courseSlug, sectionSlug, lessonID, patch)
	if res := args.Get(0); res != nil {
		return res.(*models.Lesson), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) DeleteLesson(ctx context.Context, courseSlug, sectionSlug, lessonID string) error {
	return m.Called(ctx, courseSlug, sectionSlug, lessonID).Error(0)
}

func (m *MockService) CompleteLesson(ctx context.Context, courseSlug, sectionSlug, lessonID, userUID string) (*models.LessonProgress, error) {
	args := m.Called(ctx, courseSlug, sectionSlug, lessonID, userUID)
	if res := args.Get(0); res != nil {
		return res.(*models.LessonProgress), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) Progress(ctx context.Context, courseSlug, userUID string) (*models.CourseProgress, error) {
	args := m.Called(ctx, courseSlug, userUID)
	if res := args.Get(0); res != nil {
		return res.(*models.CourseProgress), args.Error(1)
	}
	return nil, args.Error(1)
}

func newRequest(method, body string, caller *models.Snapshot) *http.Request {
	req := httptest.NewRequest(method, "/api/v1/courses/go/sections/basics/lessons", strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("courseSlug", "go")
	rctx.URLParams.Add("sectionSlug", "basics")
	rctx.URLParams.Add("lessonId", "l-1")
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if caller != nil {
		ctx = middlewarectx.WithSnapshot(ctx, caller)
	}
	return req.WithContext(ctx)
}

func TestLessonHandler(t *testing.T) {
	student := models.NewSnapshot("u-1", "s@example.com")
	intro := &models.Lesson{ID: "l-1", SectionID: "s-1", Title: "Intro", Slug: "intro", Type: models.LessonVideo}

	tests := []struct {
		name           string
		method         string
		body           string
		caller         *models.Snapshot
		serve          func(*Handler) http.HandlerFunc
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "список уроков",
			method: http.MethodGet,
			serve:  func(h *Handler) http.HandlerFunc { return h.List },
			setupMock: func(m *MockService) {
				m.On("Lessons", mock.Anything, "go", "basics").Return([]*models.Lesson{intro}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"type":"VIDEO"`,
		},
		{
			name:   "урок из другого раздела",
			method: http.MethodGet,
			serve:  func(h *Handler) http.HandlerFunc { return h.Get },
			setupMock: func(m *MockService) {
				m.On("Lesson", mock.Anything, "go", "basics", "l-1").Return(nil, apperr.NotFound("lesson", "l-1"))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `lesson \"l-1\" not found`,
		},
		{
			name:   "создание урока",
			method: http.MethodPost,
			body:   `{"title":"Intro","description":"Вводный","source":"https://example.com/v.mp4"}`,
			serve:  func(h *Handler) http.HandlerFunc { return h.Create },
			setupMock: func(m *MockService) {
				m.On("CreateLesson", mock.Anything, "go", "basics", models.LessonDraft{
					Title: "Intro", Description: "Вводный", Source: "https://example.com/v.mp4",
				}).Return(intro, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"id":"l-1"`,
		},
		{
			name:           "неизвестный тип урока",
			method:         http.MethodPost,
			body:           `{"title":"Intro","description":"Вводный","type":"AUDIO"}`,
			serve:          func(h *Handler) http.HandlerFunc { return h.Create },
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Type must be one of: VIDEO TEXT`,
		},
		{
			name:           "источник не ссылка",
			method:         http.MethodPost,
			body:           `{"title":"Intro","description":"Вводный","source":"not a url"}`,
			serve:          func(h *Handler) http.HandlerFunc { return h.Create },
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Source is not a valid`,
		},
		{
			name:   "обновление содержимого",
			method: http.MethodPatch,
			body:   `{"content":"text"}`,
			serve:  func(h *Handler) http.HandlerFunc { return h.Update },
			setupMock: func(m *MockService) {
				m.On("UpdateLesson", mock.Anything, "go", "basics", "l-1", mock.MatchedBy(func(p models.LessonPatch) bool {
					return p.Content != nil && *p.Content == "text" && p.Title == nil
				})).Return(intro, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"slug":"intro"`,
		},
		{
			name:   "удаление",
			method: http.MethodDelete,
			serve:  func(h *Handler) http.HandlerFunc { return h.Delete },
			setupMock: func(m *MockService) {
				m.On("DeleteLesson", mock.Anything, "go", "basics", "l-1").Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK"}`,
		},
		{
			name:   "отметка о прохождении",
			method: http.MethodPatch,
			caller: &student,
			serve:  func(h *Handler) http.HandlerFunc { return h.Complete },
			setupMock: func(m *MockService) {
				m.On("CompleteLesson", mock.Anything, "go", "basics", "l-1", "u-1").
					Return(&models.LessonProgress{UserUID: "u-1", LessonID: "l-1", IsCompleted: true}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"is_completed":true`,
		},
		{
			name:           "отметка без пользователя",
			method:         http.MethodPatch,
			serve:          func(h *Handler) http.HandlerFunc { return h.Complete },
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `Unauthorized`,
		},
		{
			name:   "прогресс по курсу",
			method: http.MethodGet,
			caller: &student,
			serve:  func(h *Handler) http.HandlerFunc { return h.Progress },
			setupMock: func(m *MockService) {
				m.On("Progress", mock.Anything, "go", "u-1").Return(&models.CourseProgress{
					CourseID: "c-1", TotalLessons: 2, CompletedLessonIDs: []string{"l-1"},
				}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"completed_lesson_ids":["l-1"]`,
		},
		{
			name:   "таймаут хранилища",
			method: http.MethodGet,
			caller: &student,
			serve:  func(h *Handler) http.HandlerFunc { return h.Progress },
			setupMock: func(m *MockService) {
				m.On("Progress", mock.Anything, "go", "u-1").Return(nil, apperr.FromContext(context.DeadlineExceeded))
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `Service Unavailable`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)
			handler := New(logger.Discard(), svc)

			rec := httptest.NewRecorder()
			tt.serve(handler)(rec, newRequest(tt.method, tt.body, tt.caller))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
