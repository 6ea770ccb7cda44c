package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inventory-service/internal/services"
)

// CustomerHandler handles customer endpoints
type CustomerHandler struct {
	customers *services.CustomerService
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(customers *services.CustomerService) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

// List returns one page of customers
func (h *CustomerHandler) List(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	page, pageSize := pagingParams(c)
	result, err := h.customers.List(c.Request.Context(), orgID, page, pageSize, c.Query("search"))
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Customers retrieved", result)
}

// Get returns a single customer
func (h *CustomerHandler) Get(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	customer, err := h.customers.Get(c.Request.Context(), orgID, id)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Customer retrieved", customer)
}

// Create creates a customer
func (h *CustomerHandler) Create(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	var input services.PartnerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	customer, err := h.customers.Create(c.Request.Context(), orgID, input)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "Customer created", customer)
}

// Update modifies a customer
func (h *CustomerHandler) Update(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input services.PartnerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	customer, err := h.customers.Update(c.Request.Context(), orgID, id, input)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Customer updated", customer)
}

// Delete soft-deletes a customer
func (h *CustomerHandler) Delete(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.customers.Delete(c.Request.Context(), orgID, id); err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Customer deleted", nil)
}

// SupplierHandler handles supplier endpoints
type SupplierHandler struct {
	suppliers *services.SupplierService
}

// NewSupplierHandler creates a new supplier handler
func NewSupplierHandler(suppliers *services.SupplierService) *SupplierHandler {
	return &SupplierHandler{suppliers: suppliers}
}

// List returns one page of suppliers
func (h *SupplierHandler) List(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	page, pageSize := pagingParams(c)
	result, err := h.suppliers.List(c.Request.Context(), orgID, page, pageSize, c.Query("search"))
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Suppliers retrieved", result)
}

// Get returns a single supplier
func (h *SupplierHandler) Get(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	supplier, err := h.suppliers.Get(c.Request.Context(), orgID, id)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Supplier retrieved", supplier)
}

// Create creates a supplier
func (h *SupplierHandler) Create(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	var input services.PartnerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	supplier, err := h.suppliers.Create(c.Request.Context(), orgID, input)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "Supplier created", supplier)
}

// Update modifies a supplier
func (h *SupplierHandler) Update(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input services.PartnerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	supplier, err := h.suppliers.Update(c.Request.Context(), orgID, id, input)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Supplier updated", supplier)
}

// Delete soft-deletes a supplier
func (h *SupplierHandler) Delete(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.suppliers.Delete(c.Request.Context(), orgID, id); err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Supplier deleted", nil)
}
