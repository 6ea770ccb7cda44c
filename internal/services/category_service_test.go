package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"inventory-service/internal/models"
)

func TestCreateCategory(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	t.Run("Missing name is rejected", func(t *testing.T) {
		svc := NewCategoryService(new(MockCategoryRepo), new(MockProductRepo))

		_, err := svc.Create(ctx, orgID, CategoryInput{Name: "  "})

		_, ok := IsValidationError(err)
		assert.True(t, ok)
	})

	t.Run("Duplicate name is rejected", func(t *testing.T) {
		categories := new(MockCategoryRepo)
		categories.On("Any", ctx, orgID, "name = ?", mock.Anything).Return(true, nil)

		svc := NewCategoryService(categories, new(MockProductRepo))
		_, err := svc.Create(ctx, orgID, CategoryInput{Name: "Widgets"})

		conflictErr, ok := IsConflictError(err)
		if assert.True(t, ok) {
			assert.Contains(t, conflictErr.Message, "Widgets")
		}
		categories.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unknown parent is rejected", func(t *testing.T) {
		categories := new(MockCategoryRepo)
		parentID := uuid.New()
		categories.On("Any", ctx, orgID, "name = ?", mock.Anything).Return(false, nil)
		categories.On("GetById", ctx, orgID, parentID).Return(nil, nil)

		svc := NewCategoryService(categories, new(MockProductRepo))
		_, err := svc.Create(ctx, orgID, CategoryInput{Name: "Widgets", ParentID: &parentID})

		_, ok := IsValidationError(err)
		assert.True(t, ok)
	})

	t.Run("Creates under an existing parent", func(t *testing.T) {
		categories := new(MockCategoryRepo)
		parentID := uuid.New()
		categories.On("Any", ctx, orgID, "name = ?", mock.Anything).Return(false, nil)
		categories.On("GetById", ctx, orgID, parentID).Return(&models.Category{Name: "Hardware"}, nil)
		categories.On("Add", ctx, orgID, mock.AnythingOfType("*models.Category")).Return(nil)

		svc := NewCategoryService(categories, new(MockProductRepo))
		category, err := svc.Create(ctx, orgID, CategoryInput{Name: "Widgets", ParentID: &parentID})

		assert.NoError(t, err)
		assert.Equal(t, "Widgets", category.Name)
		categories.AssertExpectations(t)
	})
}

func TestUpdateCategory(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	id := uuid.New()

	t.Run("Category cannot be its own parent", func(t *testing.T) {
		categories := new(MockCategoryRepo)
		categories.On("GetById", ctx, orgID, id).Return(&models.Category{Name: "Widgets"}, nil)

		svc := NewCategoryService(categories, new(MockProductRepo))
		_, err := svc.Update(ctx, orgID, id, CategoryInput{Name: "Widgets", ParentID: &id})

		_, ok := IsValidationError(err)
		assert.True(t, ok)
	})

	t.Run("Rename to an existing name is rejected", func(t *testing.T) {
		categories := new(MockCategoryRepo)
		categories.On("GetById", ctx, orgID, id).Return(&models.Category{Name: "Widgets"}, nil)
		categories.On("Any", ctx, orgID, "name = ? AND id <> ?", mock.Anything).Return(true, nil)

		svc := NewCategoryService(categories, new(MockProductRepo))
		_, err := svc.Update(ctx, orgID, id, CategoryInput{Name: "Gadgets"})

		conflictErr, ok := IsConflictError(err)
		if assert.True(t, ok) {
			assert.Contains(t, conflictErr.Message, "Gadgets")
		}
		categories.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDeleteCategory(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	id := uuid.New()

	setup := func(hasProducts, hasChildren bool) *CategoryService {
		categories := new(MockCategoryRepo)
		categories.On("GetById", ctx, orgID, id).Return(&models.Category{Name: "Widgets"}, nil)
		categories.On("Any", ctx, orgID, "parent_id = ?", mock.Anything).Return(hasChildren, nil)
		categories.On("Delete", ctx, orgID, id).Return(nil)

		products := new(MockProductRepo)
		products.On("Any", ctx, orgID, "category_id = ?", mock.Anything).Return(hasProducts, nil)

		return NewCategoryService(categories, products)
	}

	t.Run("Empty category deletes", func(t *testing.T) {
		svc := setup(false, false)

		assert.NoError(t, svc.Delete(ctx, orgID, id))
	})

	t.Run("Category with products is refused", func(t *testing.T) {
		svc := setup(true, false)

		err := svc.Delete(ctx, orgID, id)

		conflictErr, ok := IsConflictError(err)
		if assert.True(t, ok) {
			assert.Equal(t, "Cannot delete category that contains products", conflictErr.Message)
		}
	})

	t.Run("Category with subcategories is refused", func(t *testing.T) {
		svc := setup(false, true)

		err := svc.Delete(ctx, orgID, id)

		conflictErr, ok := IsConflictError(err)
		if assert.True(t, ok) {
			assert.Equal(t, "Cannot delete category that has subcategories", conflictErr.Message)
		}
	})

	t.Run("Missing category is not found", func(t *testing.T) {
		categories := new(MockCategoryRepo)
		categories.On("GetById", ctx, orgID, id).Return(nil, nil)

		svc := NewCategoryService(categories, new(MockProductRepo))
		err := svc.Delete(ctx, orgID, id)

		_, ok := IsNotFoundError(err)
		assert.True(t, ok)
	})
}
