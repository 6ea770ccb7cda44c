package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inventory-service/internal/middleware"
	"inventory-service/internal/services"
)

// OrganizationHandler handles organization endpoints
type OrganizationHandler struct {
	orgs *services.OrganizationService
}

// NewOrganizationHandler creates a new organization handler
func NewOrganizationHandler(orgs *services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgs: orgs}
}

// Current returns the organization the request is scoped to
func (h *OrganizationHandler) Current(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	org, err := h.orgs.Current(c.Request.Context(), orgID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Organization retrieved", org)
}

// Sync upserts the organization named by the token's claims. This is
// how a fresh login provisions its tenant.
func (h *OrganizationHandler) Sync(c *gin.Context) {
	if _, ok := requireUser(c); !ok {
		return
	}
	externalID := middleware.GetExternalOrgID(c)
	if externalID == "" {
		ErrorResponse(c, http.StatusUnauthorized, "No organization in token", nil)
		return
	}

	var input services.OrganizationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	org, err := h.orgs.Sync(c.Request.Context(), externalID, input)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Organization synced", org)
}

// Update modifies the current organization's profile
func (h *OrganizationHandler) Update(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	var input services.OrganizationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	org, err := h.orgs.Update(c.Request.Context(), orgID, input)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Organization updated", org)
}

// CompleteSetup marks onboarding finished and starts the trial when no
// subscription exists yet
func (h *OrganizationHandler) CompleteSetup(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	var input services.OrganizationInput
	if err := c.ShouldBindJSON(&input); err != nil && c.Request.ContentLength > 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	org, err := h.orgs.CompleteSetup(c.Request.Context(), orgID, input)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Setup completed", org)
}
