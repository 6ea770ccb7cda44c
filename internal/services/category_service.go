package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"inventory-service/internal/models"
)

// CategoryService implements category operations.
type CategoryService struct {
	categories CategoryRepo
	products   ProductRepo
}

// NewCategoryService creates a new category service.
func NewCategoryService(categories CategoryRepo, products ProductRepo) *CategoryService {
	return &CategoryService{categories: categories, products: products}
}

// CategoryInput carries the fields accepted for a category.
type CategoryInput struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id"`
}

// List returns all of the organization's categories as a flat list.
func (s *CategoryService) List(ctx context.Context, orgID uuid.UUID) ([]models.Category, error) {
	return s.categories.GetAll(ctx, orgID)
}

// Get returns a single category.
func (s *CategoryService) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Category, error) {
	category, err := s.categories.GetById(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, NewNotFoundError("category")
	}
	return category, nil
}

// Create creates a category after checking name uniqueness within the
// organization. A parent must exist in the same organization.
func (s *CategoryService) Create(ctx context.Context, orgID uuid.UUID, in CategoryInput) (*models.Category, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, NewValidationError("name", "name is required")
	}

	taken, err := s.categories.Any(ctx, orgID, "name = ?", in.Name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, NewConflictError("category", fmt.Sprintf("category %q already exists", in.Name))
	}

	if in.ParentID != nil {
		parent, err := s.categories.GetById(ctx, orgID, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, NewValidationError("parent_id", "parent category does not exist")
		}
	}

	category := &models.Category{
		Name:        in.Name,
		Description: in.Description,
		ParentID:    in.ParentID,
	}
	if err := s.categories.Add(ctx, orgID, category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewConflictError("category", fmt.Sprintf("category %q already exists", in.Name))
		}
		return nil, err
	}
	return category, nil
}

// Update modifies a category. A changed name is re-checked for
// uniqueness; a category cannot be its own parent.
func (s *CategoryService) Update(ctx context.Context, orgID, id uuid.UUID, in CategoryInput) (*models.Category, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, NewValidationError("name", "name is required")
	}

	category, err := s.categories.GetById(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, NewNotFoundError("category")
	}

	if in.Name != category.Name {
		taken, err := s.categories.Any(ctx, orgID, "name = ? AND id <> ?", in.Name, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, NewConflictError("category", fmt.Sprintf("category %q already exists", in.Name))
		}
	}

	if in.ParentID != nil {
		if *in.ParentID == id {
			return nil, NewValidationError("parent_id", "category cannot be its own parent")
		}
		parent, err := s.categories.GetById(ctx, orgID, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, NewValidationError("parent_id", "parent category does not exist")
		}
	}

	category.Name = in.Name
	category.Description = in.Description
	category.ParentID = in.ParentID

	if err := s.categories.Update(ctx, orgID, category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewConflictError("category", fmt.Sprintf("category %q already exists", in.Name))
		}
		return nil, err
	}
	return category, nil
}

// Delete removes a category unless products or subcategories still
// reference it.
func (s *CategoryService) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	category, err := s.categories.GetById(ctx, orgID, id)
	if err != nil {
		return err
	}
	if category == nil {
		return NewNotFoundError("category")
	}

	hasProducts, err := s.products.Any(ctx, orgID, "category_id = ?", id)
	if err != nil {
		return err
	}
	if hasProducts {
		return NewConflictError("category", "Cannot delete category that contains products")
	}

	hasChildren, err := s.categories.Any(ctx, orgID, "parent_id = ?", id)
	if err != nil {
		return err
	}
	if hasChildren {
		return NewConflictError("category", "Cannot delete category that has subcategories")
	}

	return s.categories.Delete(ctx, orgID, id)
}
