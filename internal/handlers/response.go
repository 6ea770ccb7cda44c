package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"inventory-service/internal/services"
)

// ErrorResponse sends a standardized error response
// Internal errors are logged but not exposed to clients
func ErrorResponse(c *gin.Context, statusCode int, message string, err error) {
	requestID := getRequestID(c)

	// Log internal error details
	if err != nil {
		log.Printf("[ERROR] [%s] %s: %v", requestID, message, err)
	}

	// Send user-friendly response (don't expose internal errors)
	response := gin.H{
		"success":    false,
		"message":    message,
		"request_id": requestID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}

	// Only include error details in development mode
	if gin.Mode() == gin.DebugMode && err != nil {
		response["error_details"] = err.Error()
	}

	c.JSON(statusCode, response)
}

// SuccessResponse sends a standardized success response
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	requestID := getRequestID(c)

	response := gin.H{
		"success":    true,
		"message":    message,
		"request_id": requestID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}

	if data != nil {
		response["data"] = data
	}

	c.JSON(statusCode, response)
}

// ValidationErrorResponse sends a validation error response
func ValidationErrorResponse(c *gin.Context, fields []services.FieldError) {
	requestID := getRequestID(c)

	response := gin.H{
		"success":    false,
		"message":    "Validation failed",
		"errors":     fields,
		"request_id": requestID,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}

	c.JSON(http.StatusBadRequest, response)
}

// ServiceErrorResponse maps typed service errors to HTTP statuses:
// validation 400, not found 404, unauthorized 401, conflict 400,
// limit exceeded 402, everything else a generic 500.
func ServiceErrorResponse(c *gin.Context, err error) {
	if verr, ok := services.IsValidationError(err); ok {
		ValidationErrorResponse(c, verr.Fields)
		return
	}
	if nf, ok := services.IsNotFoundError(err); ok {
		ErrorResponse(c, http.StatusNotFound, nf.Error(), nil)
		return
	}
	if ua, ok := services.IsUnauthorizedError(err); ok {
		ErrorResponse(c, http.StatusUnauthorized, ua.Error(), nil)
		return
	}
	if conflict, ok := services.IsConflictError(err); ok {
		ErrorResponse(c, http.StatusBadRequest, conflict.Message, nil)
		return
	}
	if limit, ok := services.IsLimitExceededError(err); ok {
		requestID := getRequestID(c)
		c.JSON(http.StatusPaymentRequired, gin.H{
			"success":    false,
			"message":    limit.Error(),
			"limit_type": limit.LimitType,
			"current":    limit.Current,
			"limit":      limit.Limit,
			"upgrade":    "/api/subscriptions/plans",
			"request_id": requestID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	ErrorResponse(c, http.StatusInternalServerError, "Internal server error", err)
}

// getRequestID retrieves or generates a request ID
func getRequestID(c *gin.Context) string {
	// Check if request ID was set by middleware
	if requestID, exists := c.Get("request_id"); exists {
		return requestID.(string)
	}
	// Fallback to X-Request-ID header
	if requestID := c.GetHeader("X-Request-ID"); requestID != "" {
		return requestID
	}
	// Generate a simple ID (in production, use UUID)
	return time.Now().Format("20060102150405")
}
