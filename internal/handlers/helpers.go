package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"inventory-service/internal/middleware"
)

// requireOrg returns the request's organization id or writes a 401.
func requireOrg(c *gin.Context) (uuid.UUID, bool) {
	orgID, ok := middleware.GetOrgID(c)
	if !ok {
		ErrorResponse(c, http.StatusUnauthorized, "No organization in token", nil)
		return uuid.Nil, false
	}
	return orgID, true
}

// requireUser returns the authenticated user's external id or writes a 401.
func requireUser(c *gin.Context) (string, bool) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		ErrorResponse(c, http.StatusUnauthorized, "Authentication required", nil)
		return "", false
	}
	return userID, true
}

// idParam parses a UUID path parameter or writes a 400.
func idParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

// pagingParams reads page and page_size query parameters.
func pagingParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, pageSize
}
