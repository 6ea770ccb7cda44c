package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"inventory-service/internal/models"
	"inventory-service/internal/repository"
)

// OrderRepo is the persistence surface the order service needs.
type OrderRepo interface {
	GetById(ctx context.Context, orgID, id uuid.UUID) (*models.Order, error)
	Count(ctx context.Context, orgID uuid.UUID, query string, args ...interface{}) (int64, error)
	Add(ctx context.Context, orgID uuid.UUID, entity *models.Order) error
	Update(ctx context.Context, orgID uuid.UUID, entity *models.Order) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	GetPaged(ctx context.Context, orgID uuid.UUID, page, pageSize int, query string, args ...interface{}) (*repository.Page[models.Order], error)
}

// OrderItemRepo stores order line items.
type OrderItemRepo interface {
	Find(ctx context.Context, orgID uuid.UUID, query string, args ...interface{}) ([]models.OrderItem, error)
	AddRange(ctx context.Context, orgID uuid.UUID, entities []*models.OrderItem) error
	DeleteRange(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) error
}

// OrderService implements order operations.
type OrderService struct {
	db       *gorm.DB
	orders   OrderRepo
	items    OrderItemRepo
	products ProductRepo
	events   eventPublisher
}

// NewOrderService creates a new order service.
func NewOrderService(db *gorm.DB, orders OrderRepo, items OrderItemRepo, products ProductRepo, events eventPublisher) *OrderService {
	return &OrderService{
		db:       db,
		orders:   orders,
		items:    items,
		products: products,
		events:   events,
	}
}

// OrderItemInput is one product line on a new order.
type OrderItemInput struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	Discount  float64   `json:"discount"`
}

// CreateOrderInput carries the fields accepted when creating an order.
type CreateOrderInput struct {
	Type            models.OrderType `json:"type"`
	CustomerID      *uuid.UUID       `json:"customer_id"`
	SupplierID      *uuid.UUID       `json:"supplier_id"`
	WarehouseID     *uuid.UUID       `json:"warehouse_id"`
	ExpectedDate    *time.Time       `json:"expected_date"`
	TaxAmount       float64          `json:"tax_amount"`
	DiscountAmount  float64          `json:"discount_amount"`
	ShippingAmount  float64          `json:"shipping_amount"`
	ShippingAddress string           `json:"shipping_address"`
	BillingAddress  string           `json:"billing_address"`
	Notes           string           `json:"notes"`
	Items           []OrderItemInput `json:"items"`
}

// ListOrdersFilter narrows an order listing.
type ListOrdersFilter struct {
	Status models.OrderStatus
	Type   models.OrderType
	Search string
}

// List returns one page of the organization's orders.
func (s *OrderService) List(ctx context.Context, orgID uuid.UUID, page, pageSize int, filter ListOrdersFilter) (*repository.Page[models.Order], error) {
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, filter.Type)
	}
	if filter.Search != "" {
		conditions = append(conditions, "order_number ILIKE ?")
		args = append(args, "%"+filter.Search+"%")
	}

	query := strings.Join(conditions, " AND ")
	return s.orders.GetPaged(ctx, orgID, page, pageSize, query, args...)
}

// Get returns a single order with its items.
func (s *OrderService) Get(ctx context.Context, orgID, id uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetById(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, NewNotFoundError("order")
	}
	items, err := s.items.Find(ctx, orgID, "order_id = ?", id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// Create creates an order with its items, generating the order number
// and computing totals from the lines.
func (s *OrderService) Create(ctx context.Context, orgID uuid.UUID, in CreateOrderInput) (*models.Order, error) {
	if in.Type == "" {
		return nil, NewValidationError("type", "order type is required")
	}
	if len(in.Items) == 0 {
		return nil, NewValidationError("items", "order must have at least one item")
	}
	for i, item := range in.Items {
		if item.Quantity <= 0 {
			return nil, NewValidationError(fmt.Sprintf("items[%d].quantity", i), "quantity must be positive")
		}
		product, err := s.products.GetById(ctx, orgID, item.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, NewValidationError(fmt.Sprintf("items[%d].product_id", i), "product does not exist")
		}
	}

	order := &models.Order{
		Type:            in.Type,
		Status:          models.OrderDraft,
		CustomerID:      in.CustomerID,
		SupplierID:      in.SupplierID,
		WarehouseID:     in.WarehouseID,
		OrderDate:       time.Now().UTC(),
		ExpectedDate:    in.ExpectedDate,
		TaxAmount:       in.TaxAmount,
		DiscountAmount:  in.DiscountAmount,
		ShippingAmount:  in.ShippingAmount,
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  in.BillingAddress,
		Notes:           in.Notes,
	}

	var subTotal float64
	items := make([]*models.OrderItem, 0, len(in.Items))
	for _, line := range in.Items {
		total := float64(line.Quantity)*line.UnitPrice - line.Discount
		subTotal += total
		items = append(items, &models.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Discount:  line.Discount,
			Total:     total,
		})
	}
	order.SubTotal = subTotal
	order.TotalAmount = subTotal + in.TaxAmount + in.ShippingAmount - in.DiscountAmount

	err := s.inTransaction(ctx, func(txCtx context.Context) error {
		number, err := s.nextOrderNumber(txCtx, orgID)
		if err != nil {
			return err
		}
		order.OrderNumber = number
		if err := s.orders.Add(txCtx, orgID, order); err != nil {
			return err
		}
		for _, item := range items {
			item.OrderID = order.ID
		}
		return s.items.AddRange(txCtx, orgID, items)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, NewConflictError("order", "order number collision, retry the request")
		}
		return nil, err
	}

	order.Items = make([]models.OrderItem, 0, len(items))
	for _, item := range items {
		order.Items = append(order.Items, *item)
	}

	if s.events != nil {
		_ = s.events.Publish("order.created", map[string]interface{}{
			"event_type":      "order.created",
			"organization_id": orgID.String(),
			"order_id":        order.ID.String(),
			"order_number":    order.OrderNumber,
			"type":            order.Type,
			"total_amount":    order.TotalAmount,
			"timestamp":       time.Now().UTC(),
		})
	}
	return order, nil
}

// UpdateStatus moves an order to a new status, stamping shipment and
// delivery dates on the matching transitions.
func (s *OrderService) UpdateStatus(ctx context.Context, orgID, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, NewValidationError("status", "unknown order status")
	}

	order, err := s.orders.GetById(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, NewNotFoundError("order")
	}
	if order.Status == models.OrderCancelled {
		return nil, NewConflictError("order", "cancelled orders cannot change status")
	}

	now := time.Now().UTC()
	switch status {
	case models.OrderShipped:
		order.ShippedDate = &now
	case models.OrderDelivered:
		order.DeliveredDate = &now
	}
	order.Status = status

	if err := s.orders.Update(ctx, orgID, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Cancel cancels an order that has not been completed or delivered.
func (s *OrderService) Cancel(ctx context.Context, orgID, id uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetById(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, NewNotFoundError("order")
	}
	switch order.Status {
	case models.OrderCompleted, models.OrderDelivered:
		return nil, NewConflictError("order", "completed or delivered orders cannot be cancelled")
	case models.OrderCancelled:
		return order, nil
	}

	order.Status = models.OrderCancelled
	if err := s.orders.Update(ctx, orgID, order); err != nil {
		return nil, err
	}
	return order, nil
}

// Delete removes an order. Only drafts can be deleted; anything later
// in the lifecycle must be cancelled instead.
func (s *OrderService) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	order, err := s.orders.GetById(ctx, orgID, id)
	if err != nil {
		return err
	}
	if order == nil {
		return NewNotFoundError("order")
	}
	if order.Status != models.OrderDraft {
		return NewConflictError("order", "only draft orders can be deleted")
	}

	items, err := s.items.Find(ctx, orgID, "order_id = ?", id)
	if err != nil {
		return err
	}
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	if err := s.items.DeleteRange(ctx, orgID, ids); err != nil {
		return err
	}
	return s.orders.Delete(ctx, orgID, id)
}

// inTransaction runs fn with repository calls joined into a single
// transaction. Without a database handle fn runs directly.
func (s *OrderService) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.db == nil {
		return fn(ctx)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(repository.WithTx(ctx, tx))
	})
}

// nextOrderNumber builds an ORD-YYYYMMDD-NNNN number, sequenced per
// organization per day.
func (s *OrderService) nextOrderNumber(ctx context.Context, orgID uuid.UUID) (string, error) {
	day := time.Now().UTC().Format("20060102")
	prefix := "ORD-" + day + "-"
	count, err := s.orders.Count(ctx, orgID, "order_number LIKE ?", prefix+"%")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}
