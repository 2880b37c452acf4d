package section

import (
	"context"
	"errors"
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

func (m *MockService) Sections(ctx context.Context, courseSlug string) ([]*models.Section, error) {
	args := m.Called(ctx, courseSlug)
	if res := args.Get(0); res != nil {
		return res.([]*models.Section), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) Section(ctx context.Context, courseSlug, sectionSlug string) (*models.Section, error) {
	args := m.Called(ctx, courseSlug, sectionSlug)
	if res := args.Get(0); res != nil {
		return res.(*models.Section), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) CreateSection(ctx context.Context, courseSlug string, draft models.SectionDraft) (*models.Section, error) {
	args := m.Called(ctx, courseSlug, draft)
	if res := args.Get(0); res != nil {
		return res.(*models.Section), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) UpdateSection(ctx context.Context, courseSlug, sectionSlug string, patch models.SectionPatch) (*models.Section, error) {
	args := m.Called(ctx, courseSlug, sectionSlug, patch)
	if res := args.Get(0); res != nil {
		return res.(*models.Section), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockService) DeleteSection(ctx context.Context, courseSlug, sectionSlug string) error {
	return m.Called(ctx, courseSlug, sectionSlug).Error(0)
}

func newRequest(method, body string, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, "/api/v1/courses/go/sections", strings.NewReader(body))
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestSectionHandler(t *testing.T) {
	basics := &models.Section{ID: "s-1", CourseID: "c-1", Title: "Basics", Slug: "basics", Position: 1}
	course := map[string]string{"courseSlug": "go"}
	section := map[string]string{"courseSlug": "go", "sectionSlug": "basics"}

	tests := []struct {
		name           string
		method         string
		body           string
		params         map[string]string
		serve          func(*Handler) http.HandlerFunc
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "список разделов",
			method: http.MethodGet,
			params: course,
			serve:  func(h *Handler) http.HandlerFunc { return h.List },
			setupMock: func(m *MockService) {
				m.On("Sections", mock.Anything, "go").Return([]*models.Section{basics}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"slug":"basics"`,
		},
		{
			name:   "пустой курс отдаёт пустой массив",
			method: http.MethodGet,
			params: course,
			serve:  func(h *Handler) http.HandlerFunc { return h.List },
			setupMock: func(m *MockService) {
				m.On("Sections", mock.Anything, "go").Return(nil, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"data":[]`,
		},
		{
			name:   "раздел не найден",
			method: http.MethodGet,
			params: section,
			serve:  func(h *Handler) http.HandlerFunc { return h.Get },
			setupMock: func(m *MockService) {
				m.On("Section", mock.Anything, "go", "basics").Return(nil, apperr.NotFound("section", "basics"))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `section \"basics\" not found`,
		},
		{
			name:   "создание раздела",
			method: http.MethodPost,
			body:   `{"title":"Basics","description":"Основы"}`,
			params: course,
			serve:  func(h *Handler) http.HandlerFunc { return h.Create },
			setupMock: func(m *MockService) {
				m.On("CreateSection", mock.Anything, "go", models.SectionDraft{Title: "Basics", Description: "Основы"}).
					Return(basics, nil)
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"id":"s-1"`,
		},
		{
			name:           "создание без описания",
			method:         http.MethodPost,
			body:           `{"title":"Basics"}`,
			params:         course,
			serve:          func(h *Handler) http.HandlerFunc { return h.Create },
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Description is a required field`,
		},
		{
			name:   "дубликат слага",
			method: http.MethodPost,
			body:   `{"title":"Basics","description":"Основы"}`,
			params: course,
			serve:  func(h *Handler) http.HandlerFunc { return h.Create },
			setupMock: func(m *MockService) {
				m.On("CreateSection", mock.Anything, "go", mock.Anything).Return(nil, apperr.ErrConflict)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `Conflict`,
		},
		{
			name:           "битый JSON при обновлении",
			method:         http.MethodPatch,
			body:           `{"title":`,
			params:         section,
			serve:          func(h *Handler) http.HandlerFunc { return h.Update },
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `invalid request body`,
		},
		{
			name:   "обновление описания",
			method: http.MethodPatch,
			body:   `{"description":"Новое"}`,
			params: section,
			serve:  func(h *Handler) http.HandlerFunc { return h.Update },
			setupMock: func(m *MockService) {
				m.On("UpdateSection", mock.Anything, "go", "basics", mock.MatchedBy(func(p models.SectionPatch) bool {
					return p.Title == nil && p.Description != nil && *p.Description == "Новое"
				})).Return(basics, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"slug":"basics"`,
		},
		{
			name:   "удаление",
			method: http.MethodDelete,
			params: section,
			serve:  func(h *Handler) http.HandlerFunc { return h.Delete },
			setupMock: func(m *MockService) {
				m.On("DeleteSection", mock.Anything, "go", "basics").Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK"}`,
		},
		{
			name:   "ошибка хранилища скрывается",
			method: http.MethodDelete,
			params: section,
			serve:  func(h *Handler) http.HandlerFunc { return h.Delete },
			setupMock: func(m *MockService) {
				m.On("DeleteSection", mock.Anything, "go", "basics").Return(errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `internal error`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)
			handler := New(logger.Discard(), svc)

			rec := httptest.NewRecorder()
			tt.serve(handler)(rec, newRequest(tt.method, tt.body, tt.params))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
