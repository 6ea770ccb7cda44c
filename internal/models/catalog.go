package models

import (
	"github.com/google/uuid"
)

// ProductStatus is the lifecycle state of a product
type ProductStatus string

const (
	ProductActive       ProductStatus = "active"
	ProductInactive     ProductStatus = "inactive"
	ProductDiscontinued ProductStatus = "discontinued"
	ProductOutOfStock   ProductStatus = "out_of_stock"
)

// MovementType categorizes a stock movement
type MovementType string

const (
	MovementStockIn    MovementType = "stock_in"
	MovementStockOut   MovementType = "stock_out"
	MovementTransfer   MovementType = "transfer"
	MovementAdjustment MovementType = "adjustment"
	MovementReturn     MovementType = "return"
	MovementDamage     MovementType = "damage"
	MovementLost       MovementType = "lost"
)

// Product is a sellable or stockable item. SKU is unique per
// organization among non-deleted rows.
type Product struct {
	TenantOwned
	Name          string        `json:"name" gorm:"not null"`
	Description   string        `json:"description"`
	SKU           string        `json:"sku" gorm:"not null"`
	Barcode       string        `json:"barcode"`
	CategoryID    *uuid.UUID    `json:"category_id" gorm:"type:uuid;index"`
	Price         float64       `json:"price"`
	CostPrice     float64       `json:"cost_price"`
	StockQuantity int           `json:"stock_quantity" gorm:"default:0"`
	MinStockLevel int           `json:"min_stock_level" gorm:"default:0"`
	MaxStockLevel int           `json:"max_stock_level" gorm:"default:0"`
	Unit          string        `json:"unit"`
	Status        ProductStatus `json:"status" gorm:"default:'active';index"`

	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}

// Category groups products. Categories nest via ParentID. Name is
// unique per organization among non-deleted rows.
type Category struct {
	TenantOwned
	Name        string     `json:"name" gorm:"not null"`
	Description string     `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id" gorm:"type:uuid;index"`
}

// Warehouse is a stock location. At most one per organization is the
// default.
type Warehouse struct {
	TenantOwned
	Name      string `json:"name" gorm:"not null"`
	Code      string `json:"code"`
	Address   string `json:"address"`
	City      string `json:"city"`
	IsActive  bool   `json:"is_active" gorm:"default:true"`
	IsDefault bool   `json:"is_default" gorm:"default:false"`
}

// InventoryMovement records a stock change for a product.
type InventoryMovement struct {
	TenantOwned
	ProductID   uuid.UUID    `json:"product_id" gorm:"type:uuid;index;not null"`
	WarehouseID *uuid.UUID   `json:"warehouse_id" gorm:"type:uuid;index"`
	Type        MovementType `json:"type" gorm:"not null"`
	Quantity    int          `json:"quantity" gorm:"not null"`
	Reference   string       `json:"reference"`
	Notes       string       `json:"notes"`
}
