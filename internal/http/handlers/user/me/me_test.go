package me

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/course-access/internal/http/middlewarectx"
	"github.com/magabrotheeeer/course-access/internal/lib/logger"
	"github.com/magabrotheeeer/course-access/internal/models"
)

func TestMeHandler(t *testing.T) {
	snapshot := models.NewSnapshot("u-1", "me@example.com")
	snapshot.IsPremium = true
	snapshot.SubscriptionStatus = models.StatusActive

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req = req.WithContext(middlewarectx.WithSnapshot(req.Context(), &snapshot))
	w := httptest.NewRecorder()
	New(logger.Discard()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"me@example.com"`)
	assert.Contains(t, w.Body.String(), `"subscription_status":"active"`)

	w = httptest.NewRecorder()
	New(logger.Discard()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
