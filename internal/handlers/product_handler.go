package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"inventory-service/internal/models"
	"inventory-service/internal/services"
)

// ProductHandler handles product endpoints
type ProductHandler struct {
	products *services.ProductService
}

// NewProductHandler creates a new product handler
func NewProductHandler(products *services.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

// List returns a page of products with optional search, category and
// status filters.
func (h *ProductHandler) List(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	page, pageSize := pagingParams(c)

	filter := services.ListProductsFilter{
		Search: c.Query("search"),
		Status: models.ProductStatus(c.Query("status")),
	}
	if raw := c.Query("category_id"); raw != "" {
		if categoryID, err := uuid.Parse(raw); err == nil {
			filter.CategoryID = &categoryID
		}
	}

	result, err := h.products.List(c.Request.Context(), orgID, page, pageSize, filter)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Products retrieved", result)
}

// Get returns a single product
func (h *ProductHandler) Get(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	product, err := h.products.Get(c.Request.Context(), orgID, id)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Product retrieved", product)
}

// Create creates a product
func (h *ProductHandler) Create(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	var input services.CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	product, err := h.products.Create(c.Request.Context(), orgID, input)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "Product created", product)
}

// Update modifies a product
func (h *ProductHandler) Update(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input services.CreateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	product, err := h.products.Update(c.Request.Context(), orgID, id, input)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Product updated", product)
}

// Delete soft-deletes a product
func (h *ProductHandler) Delete(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.products.Delete(c.Request.Context(), orgID, id); err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Product deleted", nil)
}

// AdjustStock applies a stock delta and records the movement
func (h *ProductHandler) AdjustStock(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var input services.AdjustStockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	product, err := h.products.AdjustStock(c.Request.Context(), orgID, id, input)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Stock adjusted", product)
}

// LowStock lists products at or below their minimum stock level
func (h *ProductHandler) LowStock(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	products, err := h.products.LowStock(c.Request.Context(), orgID)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Low stock products retrieved", products)
}

// Movements lists a product's recorded stock movements
func (h *ProductHandler) Movements(c *gin.Context) {
	orgID, ok := requireOrg(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	movements, err := h.products.Movements(c.Request.Context(), orgID, id)
	if err != nil {
		ServiceErrorResponse(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Movements retrieved", movements)
}
