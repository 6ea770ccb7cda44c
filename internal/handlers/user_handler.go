package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"inventory-service/internal/models"
	"inventory-service/internal/services"
)

// UserHandler handles user and membership endpoints
type UserHandler struct {
	users *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// CreateOrUpdate upserts the authenticated user's local mirror
func (h *UserHandler) CreateOrUpdate(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var input services.UserInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	user, err := h.users.CreateOrUpdate(c.Request.Context(), userID, input)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "User synced", user)
}

// Me returns the authenticated user with their memberships
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	user, memberships, err := h.users.Me(c.Request.Context(), userID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "User retrieved", gin.H{
		"user":        user,
		"memberships": memberships,
	})
}

// SetCurrentOrganization switches the user's active organization
func (h *UserHandler) SetCurrentOrganization(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	var input struct {
		OrganizationID uuid.UUID `json:"organization_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	user, err := h.users.SetCurrentOrganization(c.Request.Context(), userID, input.OrganizationID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Current organization set", user)
}

// ListMembers lists the organization's active members
func (h *UserHandler) ListMembers(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	members, err := h.users.ListMembers(c.Request.Context(), orgID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Members retrieved", members)
}

// AddMember adds a user to the organization
func (h *UserHandler) AddMember(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	var input struct {
		UserID uuid.UUID   `json:"user_id"`
		Role   models.Role `json:"role"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	membership, err := h.users.AddMember(c.Request.Context(), orgID, input.UserID, input.Role)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "Member added", membership)
}

// UpdateMemberRole changes a member's role
func (h *UserHandler) UpdateMemberRole(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input struct {
		Role models.Role `json:"role"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	membership, err := h.users.UpdateMemberRole(c.Request.Context(), orgID, id, input.Role)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Member role updated", membership)
}

// RemoveMember removes a member from the organization
func (h *UserHandler) RemoveMember(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.users.RemoveMember(c.Request.Context(), orgID, id); err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Member removed", nil)
}
