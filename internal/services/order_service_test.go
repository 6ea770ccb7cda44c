package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"inventory-service/internal/models"
	"inventory-service/internal/repository"
)

// MockOrderRepo is a mock implementation of OrderRepo
type MockOrderRepo struct {
	mock.Mock
}

func (m *MockOrderRepo) GetById(ctx context.Context, orgID, id uuid.UUID) (*models.Order, error) {
	callArgs := m.Called(ctx, orgID, id)
	if callArgs.Get(0) == nil {
		return nil, callArgs.Error(1)
	}
	return callArgs.Get(0).(*models.Order), callArgs.Error(1)
}

func (m *MockOrderRepo) Count(ctx context.Context, orgID uuid.UUID, query string, args ...interface{}) (int64, error) {
	callArgs := m.Called(ctx, orgID, query, args)
	return callArgs.Get(0).(int64), callArgs.Error(1)
}

func (m *MockOrderRepo) Add(ctx context.Context, orgID uuid.UUID, entity *models.Order) error {
	callArgs := m.Called(ctx, orgID, entity)
	return callArgs.Error(0)
}

func (m *MockOrderRepo) Update(ctx context.Context, orgID uuid.UUID, entity *models.Order) error {
	callArgs := m.Called(ctx, orgID, entity)
	return callArgs.Error(0)
}

func (m *MockOrderRepo) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	callArgs := m.Called(ctx, orgID, id)
	return callArgs.Error(0)
}

func (m *MockOrderRepo) GetPaged(ctx context.Context, orgID uuid.UUID, page, pageSize int, query string, args ...interface{}) (*repository.Page[models.Order], error) {
	callArgs := m.Called(ctx, orgID, page, pageSize, query, args)
	if callArgs.Get(0) == nil {
		return nil, callArgs.Error(1)
	}
	return callArgs.Get(0).(*repository.Page[models.Order]), callArgs.Error(1)
}

// MockOrderItemRepo is a mock implementation of OrderItemRepo
type MockOrderItemRepo struct {
	mock.Mock
}

func (m *MockOrderItemRepo) Find(ctx context.Context, orgID uuid.UUID, query string, args ...interface{}) ([]models.OrderItem, error) {
	callArgs := m.Called(ctx, orgID, query, args)
	return callArgs.Get(0).([]models.OrderItem), callArgs.Error(1)
}

func (m *MockOrderItemRepo) AddRange(ctx context.Context, orgID uuid.UUID, entities []*models.OrderItem) error {
	callArgs := m.Called(ctx, orgID, entities)
	return callArgs.Error(0)
}

func (m *MockOrderItemRepo) DeleteRange(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) error {
	callArgs := m.Called(ctx, orgID, ids)
	return callArgs.Error(0)
}

func TestCreateOrder(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	productID := uuid.New()

	setup := func(existingToday int64) (*OrderService, *MockOrderRepo, *MockOrderItemRepo) {
		orders := new(MockOrderRepo)
		orders.On("Count", ctx, orgID, "order_number LIKE ?", mock.Anything).Return(existingToday, nil)
		orders.On("Add", ctx, orgID, mock.AnythingOfType("*models.Order")).Return(nil)

		items := new(MockOrderItemRepo)
		items.On("AddRange", ctx, orgID, mock.Anything).Return(nil)

		products := new(MockProductRepo)
		products.On("GetById", ctx, orgID, productID).Return(&models.Product{Name: "Widget", SKU: "WID-001"}, nil)

		return NewOrderService(nil, orders, items, products, nil), orders, items
	}

	t.Run("Computes totals from the lines", func(t *testing.T) {
		svc, orders, items := setup(0)

		order, err := svc.Create(ctx, orgID, CreateOrderInput{
			Type: models.OrderSale,
			Items: []OrderItemInput{
				{ProductID: productID, Quantity: 2, UnitPrice: 10, Discount: 1},
				{ProductID: productID, Quantity: 1, UnitPrice: 5},
			},
			TaxAmount:      2,
			ShippingAmount: 3,
			DiscountAmount: 4,
		})

		assert.NoError(t, err)
		assert.Equal(t, float64(24), order.SubTotal)
		assert.Equal(t, float64(25), order.TotalAmount)
		assert.Equal(t, models.OrderDraft, order.Status)
		assert.Len(t, order.Items, 2)
		orders.AssertExpectations(t)
		items.AssertExpectations(t)
	})

	t.Run("Order number is sequenced per day", func(t *testing.T) {
		svc, _, _ := setup(7)

		order, err := svc.Create(ctx, orgID, CreateOrderInput{
			Type:  models.OrderSale,
			Items: []OrderItemInput{{ProductID: productID, Quantity: 1, UnitPrice: 10}},
		})

		assert.NoError(t, err)
		day := time.Now().UTC().Format("20060102")
		assert.Equal(t, fmt.Sprintf("ORD-%s-0008", day), order.OrderNumber)
	})

	t.Run("Missing type is rejected", func(t *testing.T) {
		svc, _, _ := setup(0)

		_, err := svc.Create(ctx, orgID, CreateOrderInput{
			Items: []OrderItemInput{{ProductID: productID, Quantity: 1}},
		})

		_, ok := IsValidationError(err)
		assert.True(t, ok)
	})

	t.Run("Empty order is rejected", func(t *testing.T) {
		svc, _, _ := setup(0)

		_, err := svc.Create(ctx, orgID, CreateOrderInput{Type: models.OrderSale})

		_, ok := IsValidationError(err)
		assert.True(t, ok)
	})

	t.Run("Duplicate order number maps to a conflict", func(t *testing.T) {
		orders := new(MockOrderRepo)
		orders.On("Count", ctx, orgID, "order_number LIKE ?", mock.Anything).Return(int64(0), nil)
		orders.On("Add", ctx, orgID, mock.AnythingOfType("*models.Order")).
			Return(fmt.Errorf("failed to create entity: %w", gorm.ErrDuplicatedKey))

		items := new(MockOrderItemRepo)
		products := new(MockProductRepo)
		products.On("GetById", ctx, orgID, productID).Return(&models.Product{Name: "Widget"}, nil)

		svc := NewOrderService(nil, orders, items, products, nil)
		_, err := svc.Create(ctx, orgID, CreateOrderInput{
			Type:  models.OrderSale,
			Items: []OrderItemInput{{ProductID: productID, Quantity: 1, UnitPrice: 10}},
		})

		_, ok := IsConflictError(err)
		assert.True(t, ok)
		items.AssertNotCalled(t, "AddRange", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Failing item insert fails the create", func(t *testing.T) {
		orders := new(MockOrderRepo)
		orders.On("Count", ctx, orgID, "order_number LIKE ?", mock.Anything).Return(int64(0), nil)
		orders.On("Add", ctx, orgID, mock.AnythingOfType("*models.Order")).Return(nil)

		items := new(MockOrderItemRepo)
		items.On("AddRange", ctx, orgID, mock.Anything).Return(errors.New("insert failed"))

		products := new(MockProductRepo)
		products.On("GetById", ctx, orgID, productID).Return(&models.Product{Name: "Widget"}, nil)

		svc := NewOrderService(nil, orders, items, products, nil)
		_, err := svc.Create(ctx, orgID, CreateOrderInput{
			Type:  models.OrderSale,
			Items: []OrderItemInput{{ProductID: productID, Quantity: 1, UnitPrice: 10}},
		})

		assert.Error(t, err)
	})

	t.Run("Unknown product is rejected", func(t *testing.T) {
		orders := new(MockOrderRepo)
		items := new(MockOrderItemRepo)
		products := new(MockProductRepo)
		missing := uuid.New()
		products.On("GetById", ctx, orgID, missing).Return(nil, nil)

		svc := NewOrderService(nil, orders, items, products, nil)
		_, err := svc.Create(ctx, orgID, CreateOrderInput{
			Type:  models.OrderSale,
			Items: []OrderItemInput{{ProductID: missing, Quantity: 1}},
		})

		_, ok := IsValidationError(err)
		assert.True(t, ok)
		orders.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestUpdateOrderStatus(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	id := uuid.New()

	newService := func(order *models.Order) (*OrderService, *MockOrderRepo) {
		orders := new(MockOrderRepo)
		if order != nil {
			orders.On("GetById", ctx, orgID, id).Return(order, nil)
		} else {
			orders.On("GetById", ctx, orgID, id).Return(nil, nil)
		}
		orders.On("Update", ctx, orgID, mock.AnythingOfType("*models.Order")).Return(nil)
		return NewOrderService(nil, orders, new(MockOrderItemRepo), new(MockProductRepo), nil), orders
	}

	t.Run("Shipping stamps the shipped date", func(t *testing.T) {
		svc, _ := newService(&models.Order{Status: models.OrderProcessing})

		order, err := svc.UpdateStatus(ctx, orgID, id, models.OrderShipped)

		assert.NoError(t, err)
		assert.Equal(t, models.OrderShipped, order.Status)
		assert.NotNil(t, order.ShippedDate)
	})

	t.Run("Delivery stamps the delivered date", func(t *testing.T) {
		svc, _ := newService(&models.Order{Status: models.OrderShipped})

		order, err := svc.UpdateStatus(ctx, orgID, id, models.OrderDelivered)

		assert.NoError(t, err)
		assert.NotNil(t, order.DeliveredDate)
	})

	t.Run("Cancelled orders are frozen", func(t *testing.T) {
		svc, _ := newService(&models.Order{Status: models.OrderCancelled})

		_, err := svc.UpdateStatus(ctx, orgID, id, models.OrderProcessing)

		_, ok := IsConflictError(err)
		assert.True(t, ok)
	})

	t.Run("Unknown status is rejected", func(t *testing.T) {
		svc, orders := newService(&models.Order{Status: models.OrderDraft})

		_, err := svc.UpdateStatus(ctx, orgID, id, "teleported")

		_, ok := IsValidationError(err)
		assert.True(t, ok)
		orders.AssertNotCalled(t, "GetById", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCancelOrder(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	id := uuid.New()

	newService := func(order *models.Order) *OrderService {
		orders := new(MockOrderRepo)
		orders.On("GetById", ctx, orgID, id).Return(order, nil)
		orders.On("Update", ctx, orgID, mock.AnythingOfType("*models.Order")).Return(nil)
		return NewOrderService(nil, orders, new(MockOrderItemRepo), new(MockProductRepo), nil)
	}

	t.Run("Pending order cancels", func(t *testing.T) {
		svc := newService(&models.Order{Status: models.OrderPending})

		order, err := svc.Cancel(ctx, orgID, id)

		assert.NoError(t, err)
		assert.Equal(t, models.OrderCancelled, order.Status)
	})

	t.Run("Cancelling twice is idempotent", func(t *testing.T) {
		orders := new(MockOrderRepo)
		orders.On("GetById", ctx, orgID, id).Return(&models.Order{Status: models.OrderCancelled}, nil)

		svc := NewOrderService(nil, orders, new(MockOrderItemRepo), new(MockProductRepo), nil)
		order, err := svc.Cancel(ctx, orgID, id)

		assert.NoError(t, err)
		assert.Equal(t, models.OrderCancelled, order.Status)
		orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Delivered orders cannot be cancelled", func(t *testing.T) {
		svc := newService(&models.Order{Status: models.OrderDelivered})

		_, err := svc.Cancel(ctx, orgID, id)

		_, ok := IsConflictError(err)
		assert.True(t, ok)
	})
}

func TestDeleteOrder(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	id := uuid.New()

	t.Run("Only drafts can be deleted", func(t *testing.T) {
		orders := new(MockOrderRepo)
		orders.On("GetById", ctx, orgID, id).Return(&models.Order{Status: models.OrderConfirmed}, nil)

		svc := NewOrderService(nil, orders, new(MockOrderItemRepo), new(MockProductRepo), nil)
		err := svc.Delete(ctx, orgID, id)

		_, ok := IsConflictError(err)
		assert.True(t, ok)
	})

	t.Run("Draft deletion removes its items first", func(t *testing.T) {
		orders := new(MockOrderRepo)
		orders.On("GetById", ctx, orgID, id).Return(&models.Order{Status: models.OrderDraft}, nil)
		orders.On("Delete", ctx, orgID, id).Return(nil)

		items := new(MockOrderItemRepo)
		items.On("Find", ctx, orgID, "order_id = ?", mock.Anything).Return([]models.OrderItem{{}, {}}, nil)
		items.On("DeleteRange", ctx, orgID, mock.Anything).Return(nil)

		svc := NewOrderService(nil, orders, items, new(MockProductRepo), nil)
		err := svc.Delete(ctx, orgID, id)

		assert.NoError(t, err)
		items.AssertExpectations(t)
		orders.AssertExpectations(t)
	})
}
