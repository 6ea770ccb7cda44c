package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"inventory-service/internal/models"
	"inventory-service/internal/repository"
)

// ProductRepo is the persistence surface the product service needs.
type ProductRepo interface {
	GetById(ctx context.Context, orgID, id uuid.UUID) (*models.Product, error)
	Find(ctx context.Context, orgID uuid.UUID, query string, args ...interface{}) ([]models.Product, error)
	Any(ctx context.Context, orgID uuid.UUID, query string, args ...interface{}) (bool, error)
	Add(ctx context.Context, orgID uuid.UUID, entity *models.Product) error
	Update(ctx context.Context, orgID uuid.UUID, entity *models.Product) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	GetPaged(ctx context.Context, orgID uuid.UUID, page, pageSize int, query string, args ...interface{}) (*repository.Page[models.Product], error)
}

// CategoryRepo is the persistence surface for categories.
type CategoryRepo interface {
	GetById(ctx context.Context, orgID, id uuid.UUID) (*models.Category, error)
	GetAll(ctx context.Context, orgID uuid.UUID) ([]models.Category, error)
	Any(ctx context.Context, orgID uuid.UUID, query string, args ...interface{}) (bool, error)
	Add(ctx context.Context, orgID uuid.UUID, entity *models.Category) error
	Update(ctx context.Context, orgID uuid.UUID, entity *models.Category) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}

// MovementRepo records inventory movements.
type MovementRepo interface {
	Add(ctx context.Context, orgID uuid.UUID, entity *models.InventoryMovement) error
	Find(ctx context.Context, orgID uuid.UUID, query string, args ...interface{}) ([]models.InventoryMovement, error)
}

type eventPublisher interface {
	Publish(subject string, event interface{}) error
}

// ProductService implements product catalog operations.
type ProductService struct {
	db         *gorm.DB
	products   ProductRepo
	categories CategoryRepo
	movements  MovementRepo
	events     eventPublisher
	logger     *logrus.Logger
}

// NewProductService creates a new product service.
func NewProductService(db *gorm.DB, products ProductRepo, categories CategoryRepo, movements MovementRepo, events eventPublisher, logger *logrus.Logger) *ProductService {
	return &ProductService{
		db:         db,
		products:   products,
		categories: categories,
		movements:  movements,
		events:     events,
		logger:     logger,
	}
}

// CreateProductInput carries the fields accepted when creating a product.
type CreateProductInput struct {
	Name          string               `json:"name"`
	Description   string               `json:"description"`
	SKU           string               `json:"sku"`
	Barcode       string               `json:"barcode"`
	CategoryID    *uuid.UUID           `json:"category_id"`
	Price         float64              `json:"price"`
	CostPrice     float64              `json:"cost_price"`
	StockQuantity int                  `json:"stock_quantity"`
	MinStockLevel int                  `json:"min_stock_level"`
	MaxStockLevel int                  `json:"max_stock_level"`
	Unit          string               `json:"unit"`
	Status        models.ProductStatus `json:"status"`
}

// ValidateProductInput checks the create/update payload.
func ValidateProductInput(in CreateProductInput) error {
	verr := &ValidationError{}
	if strings.TrimSpace(in.Name) == "" {
		verr.Add("name", "name is required")
	} else if len(in.Name) > 200 {
		verr.Add("name", "name must be 200 characters or fewer")
	}
	if strings.TrimSpace(in.SKU) == "" {
		verr.Add("sku", "SKU is required")
	} else if len(in.SKU) > 50 {
		verr.Add("sku", "SKU must be 50 characters or fewer")
	}
	if in.Price < 0 {
		verr.Add("price", "price cannot be negative")
	}
	if in.CostPrice < 0 {
		verr.Add("cost_price", "cost price cannot be negative")
	}
	if in.StockQuantity < 0 {
		verr.Add("stock_quantity", "stock quantity cannot be negative")
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// ListProductsFilter narrows a product listing.
type ListProductsFilter struct {
	Search     string
	CategoryID *uuid.UUID
	Status     models.ProductStatus
}

// List returns one page of the organization's products.
func (s *ProductService) List(ctx context.Context, orgID uuid.UUID, page, pageSize int, filter ListProductsFilter) (*repository.Page[models.Product], error) {
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, "(name ILIKE ? OR sku ILIKE ? OR barcode ILIKE ?)")
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}
	if filter.CategoryID != nil {
		conditions = append(conditions, "category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	query := strings.Join(conditions, " AND ")
	return s.products.GetPaged(ctx, orgID, page, pageSize, query, args...)
}

// Get returns a single product.
func (s *ProductService) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Product, error) {
	product, err := s.products.GetById(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, NewNotFoundError("product")
	}
	return product, nil
}

// Create creates a product after validating input and SKU uniqueness
// within the organization.
func (s *ProductService) Create(ctx context.Context, orgID uuid.UUID, in CreateProductInput) (*models.Product, error) {
	if err := ValidateProductInput(in); err != nil {
		return nil, err
	}

	taken, err := s.products.Any(ctx, orgID, "sku = ?", in.SKU)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, NewConflictError("product", fmt.Sprintf("SKU %q is already in use", in.SKU))
	}

	if in.CategoryID != nil {
		category, err := s.categories.GetById(ctx, orgID, *in.CategoryID)
		if err != nil {
			return nil, err
		}
		if category == nil {
			return nil, NewValidationError("category_id", "category does not exist")
		}
	}

	status := in.Status
	if status == "" {
		status = models.ProductActive
	}
	product := &models.Product{
		Name:          in.Name,
		Description:   in.Description,
		SKU:           in.SKU,
		Barcode:       in.Barcode,
		CategoryID:    in.CategoryID,
		Price:         in.Price,
		CostPrice:     in.CostPrice,
		StockQuantity: in.StockQuantity,
		MinStockLevel: in.MinStockLevel,
		MaxStockLevel: in.MaxStockLevel,
		Unit:          in.Unit,
		Status:        status,
	}
	if err := s.products.Add(ctx, orgID, product); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewConflictError("product", fmt.Sprintf("SKU %q is already in use", in.SKU))
		}
		return nil, err
	}
	return product, nil
}

// Update modifies an existing product. A changed SKU is re-checked for
// uniqueness.
func (s *ProductService) Update(ctx context.Context, orgID, id uuid.UUID, in CreateProductInput) (*models.Product, error) {
	if err := ValidateProductInput(in); err != nil {
		return nil, err
	}

	product, err := s.products.GetById(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, NewNotFoundError("product")
	}

	if in.SKU != product.SKU {
		taken, err := s.products.Any(ctx, orgID, "sku = ? AND id <> ?", in.SKU, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, NewConflictError("product", fmt.Sprintf("SKU %q is already in use", in.SKU))
		}
	}

	if in.CategoryID != nil {
		category, err := s.categories.GetById(ctx, orgID, *in.CategoryID)
		if err != nil {
			return nil, err
		}
		if category == nil {
			return nil, NewValidationError("category_id", "category does not exist")
		}
	}

	product.Name = in.Name
	product.Description = in.Description
	product.SKU = in.SKU
	product.Barcode = in.Barcode
	product.CategoryID = in.CategoryID
	product.Price = in.Price
	product.CostPrice = in.CostPrice
	product.MinStockLevel = in.MinStockLevel
	product.MaxStockLevel = in.MaxStockLevel
	product.Unit = in.Unit
	if in.Status != "" {
		product.Status = in.Status
	}

	if err := s.products.Update(ctx, orgID, product); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewConflictError("product", fmt.Sprintf("SKU %q is already in use", in.SKU))
		}
		return nil, err
	}
	return product, nil
}

// Delete soft-deletes a product.
func (s *ProductService) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	product, err := s.products.GetById(ctx, orgID, id)
	if err != nil {
		return err
	}
	if product == nil {
		return NewNotFoundError("product")
	}
	return s.products.Delete(ctx, orgID, id)
}

// AdjustStockInput describes a stock change.
type AdjustStockInput struct {
	Quantity    int                 `json:"quantity"`
	Type        models.MovementType `json:"type"`
	WarehouseID *uuid.UUID          `json:"warehouse_id"`
	Reference   string              `json:"reference"`
	Notes       string              `json:"notes"`
}

// AdjustStock applies a signed stock delta and records the movement in
// one transaction. The decrement is guarded in SQL so concurrent
// adjustments cannot drive stock below zero.
func (s *ProductService) AdjustStock(ctx context.Context, orgID, id uuid.UUID, in AdjustStockInput) (*models.Product, error) {
	if in.Quantity == 0 {
		return nil, NewValidationError("quantity", "quantity cannot be zero")
	}
	if in.Type == "" {
		return nil, NewValidationError("type", "movement type is required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Product{}).
			Where("organization_id = ? AND id = ? AND is_deleted = ? AND stock_quantity + ? >= 0",
				orgID, id, false, in.Quantity).
			UpdateColumn("stock_quantity", gorm.Expr("stock_quantity + ?", in.Quantity))
		if res.Error != nil {
			return fmt.Errorf("failed to adjust stock: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			exists := tx.Model(&models.Product{}).
				Where("organization_id = ? AND id = ? AND is_deleted = ?", orgID, id, false).
				Limit(1).Find(&[]models.Product{})
			if exists.RowsAffected == 0 {
				return NewNotFoundError("product")
			}
			return NewConflictError("product", "stock cannot go below zero")
		}

		movement := &models.InventoryMovement{
			ProductID:   id,
			WarehouseID: in.WarehouseID,
			Type:        in.Type,
			Quantity:    in.Quantity,
			Reference:   in.Reference,
			Notes:       in.Notes,
		}
		movement.SetTenantID(orgID)
		if err := tx.Create(movement).Error; err != nil {
			return fmt.Errorf("failed to record movement: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	product, err := s.products.GetById(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, NewNotFoundError("product")
	}

	// Keep status in sync with the new quantity.
	switch {
	case product.StockQuantity == 0 && product.Status == models.ProductActive:
		product.Status = models.ProductOutOfStock
	case product.StockQuantity > 0 && product.Status == models.ProductOutOfStock:
		product.Status = models.ProductActive
	default:
		return product, nil
	}
	if err := s.products.Update(ctx, orgID, product); err != nil {
		return nil, err
	}
	return product, nil
}

// LowStock lists products at or below their minimum stock level.
func (s *ProductService) LowStock(ctx context.Context, orgID uuid.UUID) ([]models.Product, error) {
	return s.products.Find(ctx, orgID, "stock_quantity <= min_stock_level AND status <> ?", models.ProductDiscontinued)
}

// Movements lists the recorded stock movements for a product.
func (s *ProductService) Movements(ctx context.Context, orgID, productID uuid.UUID) ([]models.InventoryMovement, error) {
	return s.movements.Find(ctx, orgID, "product_id = ?", productID)
}

// PublishLowStock emits a low stock event for each product at or below
// its minimum level. Used by the background scan.
func (s *ProductService) PublishLowStock(ctx context.Context, orgID uuid.UUID) error {
	if s.events == nil {
		return nil
	}
	products, err := s.LowStock(ctx, orgID)
	if err != nil {
		return err
	}
	for _, p := range products {
		event := map[string]interface{}{
			"event_type":      "product.low_stock",
			"organization_id": orgID.String(),
			"product_id":      p.ID.String(),
			"sku":             p.SKU,
			"stock_quantity":  p.StockQuantity,
			"min_stock_level": p.MinStockLevel,
			"timestamp":       time.Now().UTC(),
		}
		if err := s.events.Publish("product.low_stock", event); err != nil {
			s.logger.WithField("product_id", p.ID.String()).Warn("failed to publish low stock event")
		}
	}
	return nil
}
