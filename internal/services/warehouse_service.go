package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"inventory-service/internal/models"
)

// WarehouseRepo is the persistence surface for warehouses.
type WarehouseRepo interface {
	GetById(ctx context.Context, orgID, id uuid.UUID) (*models.Warehouse, error)
	GetAll(ctx context.Context, orgID uuid.UUID) ([]models.Warehouse, error)
	Add(ctx context.Context, orgID uuid.UUID, entity *models.Warehouse) error
	Update(ctx context.Context, orgID uuid.UUID, entity *models.Warehouse) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
}

// WarehouseService implements warehouse operations.
type WarehouseService struct {
	db         *gorm.DB
	warehouses WarehouseRepo
}

// NewWarehouseService creates a new warehouse service.
func NewWarehouseService(db *gorm.DB, warehouses WarehouseRepo) *WarehouseService {
	return &WarehouseService{db: db, warehouses: warehouses}
}

// WarehouseInput carries the fields accepted for a warehouse.
type WarehouseInput struct {
	Name      string `json:"name"`
	Code      string `json:"code"`
	Address   string `json:"address"`
	City      string `json:"city"`
	IsActive  *bool  `json:"is_active"`
	IsDefault bool   `json:"is_default"`
}

// List returns all of the organization's warehouses.
func (s *WarehouseService) List(ctx context.Context, orgID uuid.UUID) ([]models.Warehouse, error) {
	return s.warehouses.GetAll(ctx, orgID)
}

// Get returns a single warehouse.
func (s *WarehouseService) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Warehouse, error) {
	warehouse, err := s.warehouses.GetById(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if warehouse == nil {
		return nil, NewNotFoundError("warehouse")
	}
	return warehouse, nil
}

// Create creates a warehouse. The first warehouse becomes the default;
// creating one flagged default demotes the previous default.
func (s *WarehouseService) Create(ctx context.Context, orgID uuid.UUID, in WarehouseInput) (*models.Warehouse, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, NewValidationError("name", "name is required")
	}

	existing, err := s.warehouses.GetAll(ctx, orgID)
	if err != nil {
		return nil, err
	}

	warehouse := &models.Warehouse{
		Name:      in.Name,
		Code:      in.Code,
		Address:   in.Address,
		City:      in.City,
		IsActive:  true,
		IsDefault: in.IsDefault || len(existing) == 0,
	}
	if in.IsActive != nil {
		warehouse.IsActive = *in.IsActive
	}

	if err := s.warehouses.Add(ctx, orgID, warehouse); err != nil {
		return nil, err
	}
	if warehouse.IsDefault && len(existing) > 0 {
		if err := s.SetDefault(ctx, orgID, warehouse.ID); err != nil {
			return nil, err
		}
	}
	return warehouse, nil
}

// Update modifies a warehouse.
func (s *WarehouseService) Update(ctx context.Context, orgID, id uuid.UUID, in WarehouseInput) (*models.Warehouse, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, NewValidationError("name", "name is required")
	}

	warehouse, err := s.warehouses.GetById(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if warehouse == nil {
		return nil, NewNotFoundError("warehouse")
	}

	warehouse.Name = in.Name
	warehouse.Code = in.Code
	warehouse.Address = in.Address
	warehouse.City = in.City
	if in.IsActive != nil {
		warehouse.IsActive = *in.IsActive
	}

	if err := s.warehouses.Update(ctx, orgID, warehouse); err != nil {
		return nil, err
	}
	if in.IsDefault && !warehouse.IsDefault {
		if err := s.SetDefault(ctx, orgID, id); err != nil {
			return nil, err
		}
		warehouse.IsDefault = true
	}
	return warehouse, nil
}

// SetDefault makes the warehouse the organization's default, demoting
// any other default in the same transaction.
func (s *WarehouseService) SetDefault(ctx context.Context, orgID, id uuid.UUID) error {
	warehouse, err := s.warehouses.GetById(ctx, orgID, id)
	if err != nil {
		return err
	}
	if warehouse == nil {
		return NewNotFoundError("warehouse")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Warehouse{}).
			Where("organization_id = ? AND is_deleted = ?", orgID, false).
			Update("is_default", false).Error
		if err != nil {
			return fmt.Errorf("failed to clear default warehouse: %w", err)
		}
		err = tx.Model(&models.Warehouse{}).
			Where("organization_id = ? AND id = ?", orgID, id).
			Update("is_default", true).Error
		if err != nil {
			return fmt.Errorf("failed to set default warehouse: %w", err)
		}
		return nil
	})
}

// Delete soft-deletes a warehouse. The default warehouse cannot be
// deleted while others exist.
func (s *WarehouseService) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	warehouse, err := s.warehouses.GetById(ctx, orgID, id)
	if err != nil {
		return err
	}
	if warehouse == nil {
		return NewNotFoundError("warehouse")
	}
	if warehouse.IsDefault {
		all, err := s.warehouses.GetAll(ctx, orgID)
		if err != nil {
			return err
		}
		if len(all) > 1 {
			return NewConflictError("warehouse", "set another default warehouse before deleting this one")
		}
	}
	return s.warehouses.Delete(ctx, orgID, id)
}
