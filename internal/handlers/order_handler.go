package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inventory-service/internal/models"
	"inventory-service/internal/services"
)

// OrderHandler handles order endpoints
type OrderHandler struct {
	orders *services.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// List returns one page of orders with optional status and type filters
func (h *OrderHandler) List(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	page, pageSize := pagingParams(c)
	filter := services.ListOrdersFilter{
		Status: models.OrderStatus(c.Query("status")),
		Type:   models.OrderType(c.Query("type")),
		Search: c.Query("search"),
	}

	result, err := h.orders.List(c.Request.Context(), orgID, page, pageSize, filter)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Orders retrieved", result)
}

// Get returns a single order with its items
func (h *OrderHandler) Get(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.Get(c.Request.Context(), orgID, id)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Order retrieved", order)
}

// Create creates an order with its items
func (h *OrderHandler) Create(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	var input services.CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	order, err := h.orders.Create(c.Request.Context(), orgID, input)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "Order created", order)
}

// UpdateStatus moves an order to a new status
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input struct {
		Status models.OrderStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	order, err := h.orders.UpdateStatus(c.Request.Context(), orgID, id, input.Status)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Order status updated", order)
}

// Cancel cancels an order
func (h *OrderHandler) Cancel(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.Cancel(c.Request.Context(), orgID, id)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Order cancelled", order)
}

// Delete removes a draft order
func (h *OrderHandler) Delete(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.orders.Delete(c.Request.Context(), orgID, id); err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Order deleted", nil)
}
