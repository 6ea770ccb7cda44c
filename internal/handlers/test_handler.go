package handlers

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"inventory-service/internal/middleware"
)

// TestHandler provides diagnostic endpoints for E2E testing
// These endpoints are only available in dev/test environments
type TestHandler struct{}

// NewTestHandler creates a new test handler
func NewTestHandler() *TestHandler {
	return &TestHandler{}
}

// IsTestMode returns true if the service is running in test/dev mode
func IsTestMode() bool {
	env := os.Getenv("APP_ENV")
	return env == "development" || env == "dev" || env == "test" || env == ""
}

// Ping answers with a timestamp, no auth required
// GET /api/test/ping
func (h *TestHandler) Ping(c *gin.Context) {
	if !IsTestMode() {
		ErrorResponse(c, http.StatusForbidden, "Test endpoints are only available in dev/test environments", nil)
		return
	}
	SuccessResponse(c, http.StatusOK, "pong", gin.H{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// AuthTest echoes back what the middleware chain extracted from the
// request's token
// GET /api/test/auth-test
func (h *TestHandler) AuthTest(c *gin.Context) {
	if !IsTestMode() {
		ErrorResponse(c, http.StatusForbidden, "Test endpoints are only available in dev/test environments", nil)
		return
	}

	data := gin.H{
		"user_id":         middleware.GetUserID(c),
		"external_org_id": middleware.GetExternalOrgID(c),
	}
	if orgID, ok := middleware.GetOrgID(c); ok {
		data["organization_id"] = orgID.String()
	}
	SuccessResponse(c, http.StatusOK, "Auth context", data)
}

// Echo returns the request body verbatim
// POST /api/test/echo
func (h *TestHandler) Echo(c *gin.Context) {
	if !IsTestMode() {
		ErrorResponse(c, http.StatusForbidden, "Test endpoints are only available in dev/test environments", nil)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Failed to read body", err)
		return
	}
	c.Data(http.StatusOK, c.ContentType(), body)
}
