package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Context keys set by the middleware chain
const (
	RequestIDKey     = "request_id"
	UserIDKey        = "user_id"
	ExternalOrgIDKey = "external_org_id"
	OrgIDKey         = "organization_id"
)

// RequestID middleware generates or extracts correlation IDs for request tracing
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

// StructuredLogger middleware logs requests with structured fields
func StructuredLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		requestID, _ := c.Get(RequestIDKey)

		fields := logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   duration.String(),
			"ip":         c.ClientIP(),
			"request_id": requestID,
		}
		if userID := GetUserID(c); userID != "" {
			fields["user_id"] = userID
		}
		if orgID, ok := GetOrgID(c); ok {
			fields["organization_id"] = orgID.String()
		}

		entry := logger.WithFields(fields)
		if c.Writer.Status() >= 500 {
			entry.Error("request completed")
		} else {
			entry.Info("request completed")
		}
	}
}

// GetRequestID extracts the request ID from gin context
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDKey); exists {
		return id.(string)
	}
	return ""
}

// GetUserID returns the external id of the authenticated user, or "".
func GetUserID(c *gin.Context) string {
	if id, exists := c.Get(UserIDKey); exists {
		return id.(string)
	}
	return ""
}

// GetExternalOrgID returns the identity provider's organization id from
// the request's claims, or "".
func GetExternalOrgID(c *gin.Context) string {
	if id, exists := c.Get(ExternalOrgIDKey); exists {
		return id.(string)
	}
	return ""
}

// GetOrgID returns the internal organization id the request is scoped
// to. The second return is false when the request carries no tenant.
func GetOrgID(c *gin.Context) (uuid.UUID, bool) {
	if id, exists := c.Get(OrgIDKey); exists {
		if orgID, ok := id.(uuid.UUID); ok {
			return orgID, true
		}
	}
	return uuid.Nil, false
}
