package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderType distinguishes the direction of an order
type OrderType string

const (
	OrderPurchase   OrderType = "purchase"
	OrderSale       OrderType = "sale"
	OrderTransfer   OrderType = "transfer"
	OrderReturnType OrderType = "return"
	OrderAdjustment OrderType = "adjustment"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderDraft      OrderStatus = "draft"
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
	OrderReturned   OrderStatus = "returned"
)

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderDraft, OrderPending, OrderConfirmed, OrderProcessing,
		OrderShipped, OrderDelivered, OrderCompleted, OrderCancelled, OrderReturned:
		return true
	}
	return false
}

// Customer is a party orders are sold to.
type Customer struct {
	TenantOwned
	Name    string `json:"name" gorm:"not null"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	TaxID   string `json:"tax_id"`
	Notes   string `json:"notes"`
}

// Supplier is a party orders are purchased from.
type Supplier struct {
	TenantOwned
	Name          string `json:"name" gorm:"not null"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	TaxID         string `json:"tax_id"`
	ContactPerson string `json:"contact_person"`
	Notes         string `json:"notes"`
}

// Order is a purchase, sale, transfer, return or adjustment with its
// line items and financial totals.
type Order struct {
	TenantOwned
	OrderNumber     string      `json:"order_number" gorm:"not null"`
	Type            OrderType   `json:"type" gorm:"not null;index"`
	Status          OrderStatus `json:"status" gorm:"not null;default:'draft';index"`
	CustomerID      *uuid.UUID  `json:"customer_id" gorm:"type:uuid;index"`
	SupplierID      *uuid.UUID  `json:"supplier_id" gorm:"type:uuid;index"`
	WarehouseID     *uuid.UUID  `json:"warehouse_id" gorm:"type:uuid;index"`
	OrderDate       time.Time   `json:"order_date"`
	ExpectedDate    *time.Time  `json:"expected_date"`
	ShippedDate     *time.Time  `json:"shipped_date"`
	DeliveredDate   *time.Time  `json:"delivered_date"`
	SubTotal        float64     `json:"sub_total"`
	TaxAmount       float64     `json:"tax_amount"`
	DiscountAmount  float64     `json:"discount_amount"`
	ShippingAmount  float64     `json:"shipping_amount"`
	TotalAmount     float64     `json:"total_amount"`
	ShippingAddress string      `json:"shipping_address"`
	BillingAddress  string      `json:"billing_address"`
	TrackingNumber  string      `json:"tracking_number"`
	Notes           string      `json:"notes"`

	Items []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
}

// OrderItem is a single product line on an order.
type OrderItem struct {
	TenantOwned
	OrderID   uuid.UUID `json:"order_id" gorm:"type:uuid;index;not null"`
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;index;not null"`
	Quantity  int       `json:"quantity" gorm:"not null"`
	UnitPrice float64   `json:"unit_price"`
	Discount  float64   `json:"discount"`
	Total     float64   `json:"total"`
}
