package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inventory-service/internal/services"
)

// CategoryHandler handles category endpoints
type CategoryHandler struct {
	categories *services.CategoryService
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categories *services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

// List returns all categories as a flat list
func (h *CategoryHandler) List(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	categories, err := h.categories.List(c.Request.Context(), orgID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Categories retrieved", categories)
}

// Get returns a single category
func (h *CategoryHandler) Get(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	category, err := h.categories.Get(c.Request.Context(), orgID, id)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Category retrieved", category)
}

// Create creates a category
func (h *CategoryHandler) Create(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	var input services.CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	category, err := h.categories.Create(c.Request.Context(), orgID, input)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "Category created", category)
}

// Update modifies a category
func (h *CategoryHandler) Update(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input services.CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	category, err := h.categories.Update(c.Request.Context(), orgID, id, input)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Category updated", category)
}

// Delete removes a category unless products or subcategories reference it
func (h *CategoryHandler) Delete(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.categories.Delete(c.Request.Context(), orgID, id); err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Category deleted", nil)
}
