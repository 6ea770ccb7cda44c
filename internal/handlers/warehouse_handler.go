package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inventory-service/internal/services"
)

// WarehouseHandler handles warehouse endpoints
type WarehouseHandler struct {
	warehouses *services.WarehouseService
}

// NewWarehouseHandler creates a new warehouse handler
func NewWarehouseHandler(warehouses *services.WarehouseService) *WarehouseHandler {
	return &WarehouseHandler{warehouses: warehouses}
}

// List returns all warehouses
func (h *WarehouseHandler) List(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	warehouses, err := h.warehouses.List(c.Request.Context(), orgID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Warehouses retrieved", warehouses)
}

// Get returns a single warehouse
func (h *WarehouseHandler) Get(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	warehouse, err := h.warehouses.Get(c.Request.Context(), orgID, id)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Warehouse retrieved", warehouse)
}

// Create creates a warehouse
func (h *WarehouseHandler) Create(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	var input services.WarehouseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	warehouse, err := h.warehouses.Create(c.Request.Context(), orgID, input)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "Warehouse created", warehouse)
}

// Update modifies a warehouse
func (h *WarehouseHandler) Update(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input services.WarehouseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	warehouse, err := h.warehouses.Update(c.Request.Context(), orgID, id, input)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Warehouse updated", warehouse)
}

// SetDefault makes the warehouse the organization's default
func (h *WarehouseHandler) SetDefault(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.warehouses.SetDefault(c.Request.Context(), orgID, id); err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Default warehouse set", nil)
}

// Delete soft-deletes a warehouse
func (h *WarehouseHandler) Delete(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.warehouses.Delete(c.Request.Context(), orgID, id); err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Warehouse deleted", nil)
}
