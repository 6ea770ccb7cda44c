package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"inventory-service/internal/models"
	"inventory-service/internal/repository"
)

// MockProductRepo is a mock implementation of ProductRepo
type MockProductRepo struct {
	mock.Mock
}

func (m *MockProductRepo) GetById(ctx context.Context, orgID, id uuid.UUID) (*models.Product, error) {
	callArgs := m.Called(ctx, orgID, id)
	if callArgs.Get(0) == nil {
		return nil, callArgs.Error(1)
	}
	return callArgs.Get(0).(*models.Product), callArgs.Error(1)
}

func (m *MockProductRepo) Find(ctx context.Context, orgID uuid.UUID, query string, args ...interface{}) ([]models.Product, error) {
	callArgs := m.Called(ctx, orgID, query, args)
	return callArgs.Get(0).([]models.Product), callArgs.Error(1)
}

func (m *MockProductRepo) Any(ctx context.Context, orgID uuid.UUID, query string, args ...interface{}) (bool, error) {
	callArgs := m.Called(ctx, orgID, query, args)
	return callArgs.Bool(0), callArgs.Error(1)
}

func (m *MockProductRepo) Add(ctx context.Context, orgID uuid.UUID, entity *models.Product) error {
	callArgs := m.Called(ctx, orgID, entity)
	return callArgs.Error(0)
}

func (m *MockProductRepo) Update(ctx context.Context, orgID uuid.UUID, entity *models.Product) error {
	callArgs := m.Called(ctx, orgID, entity)
	return callArgs.Error(0)
}

func (m *MockProductRepo) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	callArgs := m.Called(ctx, orgID, id)
	return callArgs.Error(0)
}

func (m *MockProductRepo) GetPaged(ctx context.Context, orgID uuid.UUID, page, pageSize int, query string, args ...interface{}) (*repository.Page[models.Product], error) {
	callArgs := m.Called(ctx, orgID, page, pageSize, query, args)
	if callArgs.Get(0) == nil {
		return nil, callArgs.Error(1)
	}
	return callArgs.Get(0).(*repository.Page[models.Product]), callArgs.Error(1)
}

// MockCategoryRepo is a mock implementation of CategoryRepo
type MockCategoryRepo struct {
	mock.Mock
}

func (m *MockCategoryRepo) GetById(ctx context.Context, orgID, id uuid.UUID) (*models.Category, error) {
	callArgs := m.Called(ctx, orgID, id)
	if callArgs.Get(0) == nil {
		return nil, callArgs.Error(1)
	}
	return callArgs.Get(0).(*models.Category), callArgs.Error(1)
}

func (m *MockCategoryRepo) GetAll(ctx context.Context, orgID uuid.UUID) ([]models.Category, error) {
	callArgs := m.Called(ctx, orgID)
	return callArgs.Get(0).([]models.Category), callArgs.Error(1)
}

func (m *MockCategoryRepo) Any(ctx context.Context, orgID uuid.UUID, query string, args ...interface{}) (bool, error) {
	callArgs := m.Called(ctx, orgID, query, args)
	return callArgs.Bool(0), callArgs.Error(1)
}

func (m *MockCategoryRepo) Add(ctx context.Context, orgID uuid.UUID, entity *models.Category) error {
	callArgs := m.Called(ctx, orgID, entity)
	return callArgs.Error(0)
}

func (m *MockCategoryRepo) Update(ctx context.Context, orgID uuid.UUID, entity *models.Category) error {
	callArgs := m.Called(ctx, orgID, entity)
	return callArgs.Error(0)
}

func (m *MockCategoryRepo) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	callArgs := m.Called(ctx, orgID, id)
	return callArgs.Error(0)
}

func newTestProductService(products ProductRepo, categories CategoryRepo) *ProductService {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewProductService(nil, products, categories, nil, nil, logger)
}

func TestValidateProductInput(t *testing.T) {
	valid := CreateProductInput{
		Name:  "Widget",
		SKU:   "WID-001",
		Price: 9.99,
	}

	t.Run("Valid input passes", func(t *testing.T) {
		assert.NoError(t, ValidateProductInput(valid))
	})

	tests := []struct {
		name      string
		mutate    func(*CreateProductInput)
		wantField string
	}{
		{
			name:      "Missing name",
			mutate:    func(in *CreateProductInput) { in.Name = "  " },
			wantField: "name",
		},
		{
			name:      "Name too long",
			mutate:    func(in *CreateProductInput) { in.Name = strings.Repeat("x", 201) },
			wantField: "name",
		},
		{
			name:      "Missing SKU",
			mutate:    func(in *CreateProductInput) { in.SKU = "" },
			wantField: "sku",
		},
		{
			name:      "SKU too long",
			mutate:    func(in *CreateProductInput) { in.SKU = strings.Repeat("x", 51) },
			wantField: "sku",
		},
		{
			name:      "Negative price",
			mutate:    func(in *CreateProductInput) { in.Price = -1 },
			wantField: "price",
		},
		{
			name:      "Negative cost price",
			mutate:    func(in *CreateProductInput) { in.CostPrice = -0.5 },
			wantField: "cost_price",
		},
		{
			name:      "Negative stock",
			mutate:    func(in *CreateProductInput) { in.StockQuantity = -3 },
			wantField: "stock_quantity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := valid
			tt.mutate(&input)

			err := ValidateProductInput(input)

			verr, ok := IsValidationError(err)
			if assert.True(t, ok) {
				assert.Equal(t, tt.wantField, verr.Fields[0].Field)
			}
		})
	}

	t.Run("Collects every invalid field", func(t *testing.T) {
		err := ValidateProductInput(CreateProductInput{Price: -1})

		verr, ok := IsValidationError(err)
		if assert.True(t, ok) {
			assert.Len(t, verr.Fields, 3)
		}
	})
}

func TestCreateProduct(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()

	t.Run("Creates with default status", func(t *testing.T) {
		products := new(MockProductRepo)
		products.On("Any", ctx, orgID, "sku = ?", mock.Anything).Return(false, nil)
		products.On("Add", ctx, orgID, mock.AnythingOfType("*models.Product")).Return(nil)

		svc := newTestProductService(products, new(MockCategoryRepo))
		product, err := svc.Create(ctx, orgID, CreateProductInput{Name: "Widget", SKU: "WID-001", Price: 9.99})

		assert.NoError(t, err)
		assert.Equal(t, models.ProductActive, product.Status)
		products.AssertExpectations(t)
	})

	t.Run("Duplicate SKU insert maps to a conflict", func(t *testing.T) {
		products := new(MockProductRepo)
		products.On("Any", ctx, orgID, "sku = ?", mock.Anything).Return(false, nil)
		products.On("Add", ctx, orgID, mock.AnythingOfType("*models.Product")).
			Return(fmt.Errorf("failed to create entity: %w", gorm.ErrDuplicatedKey))

		svc := newTestProductService(products, new(MockCategoryRepo))
		_, err := svc.Create(ctx, orgID, CreateProductInput{Name: "Widget", SKU: "WID-001"})

		conflictErr, ok := IsConflictError(err)
		if assert.True(t, ok) {
			assert.Contains(t, conflictErr.Message, "WID-001")
		}
	})

	t.Run("Duplicate SKU conflicts", func(t *testing.T) {
		products := new(MockProductRepo)
		products.On("Any", ctx, orgID, "sku = ?", mock.Anything).Return(true, nil)

		svc := newTestProductService(products, new(MockCategoryRepo))
		_, err := svc.Create(ctx, orgID, CreateProductInput{Name: "Widget", SKU: "WID-001"})

		conflictErr, ok := IsConflictError(err)
		if assert.True(t, ok) {
			assert.Contains(t, conflictErr.Message, "WID-001")
		}
		products.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Unknown category is rejected", func(t *testing.T) {
		products := new(MockProductRepo)
		products.On("Any", ctx, orgID, "sku = ?", mock.Anything).Return(false, nil)
		categories := new(MockCategoryRepo)
		categoryID := uuid.New()
		categories.On("GetById", ctx, orgID, categoryID).Return(nil, nil)

		svc := newTestProductService(products, categories)
		_, err := svc.Create(ctx, orgID, CreateProductInput{
			Name:       "Widget",
			SKU:        "WID-001",
			CategoryID: &categoryID,
		})

		_, ok := IsValidationError(err)
		assert.True(t, ok)
	})

	t.Run("Invalid input skips the repository", func(t *testing.T) {
		products := new(MockProductRepo)

		svc := newTestProductService(products, new(MockCategoryRepo))
		_, err := svc.Create(ctx, orgID, CreateProductInput{})

		_, ok := IsValidationError(err)
		assert.True(t, ok)
		products.AssertNotCalled(t, "Any", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAdjustStockValidation(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	svc := newTestProductService(new(MockProductRepo), new(MockCategoryRepo))

	t.Run("Zero quantity is rejected", func(t *testing.T) {
		_, err := svc.AdjustStock(ctx, orgID, uuid.New(), AdjustStockInput{Type: models.MovementStockIn})

		_, ok := IsValidationError(err)
		assert.True(t, ok)
	})

	t.Run("Missing movement type is rejected", func(t *testing.T) {
		_, err := svc.AdjustStock(ctx, orgID, uuid.New(), AdjustStockInput{Quantity: 5})

		_, ok := IsValidationError(err)
		assert.True(t, ok)
	})
}

func TestUpdateProduct(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	id := uuid.New()

	t.Run("Unchanged SKU skips the uniqueness check", func(t *testing.T) {
		products := new(MockProductRepo)
		existing := &models.Product{Name: "Widget", SKU: "WID-001", Status: models.ProductActive}
		products.On("GetById", ctx, orgID, id).Return(existing, nil)
		products.On("Update", ctx, orgID, mock.AnythingOfType("*models.Product")).Return(nil)

		svc := newTestProductService(products, new(MockCategoryRepo))
		_, err := svc.Update(ctx, orgID, id, CreateProductInput{Name: "Widget v2", SKU: "WID-001"})

		assert.NoError(t, err)
		products.AssertNotCalled(t, "Any", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Missing product is not found", func(t *testing.T) {
		products := new(MockProductRepo)
		products.On("GetById", ctx, orgID, id).Return(nil, nil)

		svc := newTestProductService(products, new(MockCategoryRepo))
		_, err := svc.Update(ctx, orgID, id, CreateProductInput{Name: "Widget", SKU: "WID-001"})

		_, ok := IsNotFoundError(err)
		assert.True(t, ok)
	})
}
