package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nazarenomarkanthony060120/e-clearance-student/internal/middleware"
	"github.com/nazarenomarkanthony060120/e-clearance-student/internal/models"
)

func TestTrackerHandlerViewRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTrackerHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/submissions?status=Pending", nil)
	c.Request = req

	handler.View(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTrackerHandlerViewRejectsUnknownStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTrackerHandler(nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/submissions?status=Done", nil)
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})

	handler.View(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestParseStatusToleratesCase(t *testing.T) {
	status, ok := parseStatus("approved")
	require.True(t, ok)
	assert.Equal(t, models.StatusApproved, status)

	_, ok = parseStatus("None")
	assert.False(t, ok)

	_, ok = parseStatus("")
	assert.False(t, ok)
}
