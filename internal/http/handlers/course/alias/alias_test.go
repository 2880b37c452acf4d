package alias

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/course-access/internal/lib/apperr"
	"github.com/magabrotheeeer/course-access/internal/lib/logger"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) RegisterProductAlias(ctx context.Context, storeProductID, productIdentifier string) error {
	return m.Called(ctx, storeProductID, productIdentifier).Error(0)
}

func TestAliasHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "псевдоним сохранён",
			body: `{"store_product_id":"prod_123","product_identifier":"My Course Identifier"}`,
			setupMock: func(m *MockService) {
				m.On("RegisterProductAlias", mock.Anything, "prod_123", "My Course Identifier").Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"store_product_id":"prod_123"`,
		},
		{
			name:           "нет идентификатора магазина",
			body:           `{"product_identifier":"x"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field StoreProductID is a required field`,
		},
		{
			name: "курс не найден",
			body: `{"store_product_id":"prod_9","product_identifier":"unknown"}`,
			setupMock: func(m *MockService) {
				m.On("RegisterProductAlias", mock.Anything, "prod_9", "unknown").Return(apperr.NotFound("course", "unknown"))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `not found`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/product-aliases", strings.NewReader(tt.body))
			New(logger.Discard(), mockService).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
