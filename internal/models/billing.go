package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JSONB stores raw JSON in a postgres jsonb column
type JSONB json.RawMessage

// Value implements the driver.Valuer interface for JSONB
func (j JSONB) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements the sql.Scanner interface for JSONB
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*j = JSONB(v)
		return nil
	case string:
		*j = JSONB([]byte(v))
		return nil
	default:
		return fmt.Errorf("unsupported type for JSONB: %T", value)
	}
}

// SubscriptionStatus is the billing state of an organization
type SubscriptionStatus string

const (
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionSuspended SubscriptionStatus = "suspended"
)

// Unlimited marks a plan limit with no cap.
const Unlimited = -1

// Subscription holds an organization's plan, billing identity and
// usage limits. One row per organization.
type Subscription struct {
	Audited
	OrganizationID       uuid.UUID          `json:"organization_id" gorm:"type:uuid;uniqueIndex;not null"`
	PlanID               string             `json:"plan_id" gorm:"not null"`
	Status               SubscriptionStatus `json:"status" gorm:"not null;default:'trial';index"`
	StripeCustomerID     string             `json:"stripe_customer_id" gorm:"index"`
	StripeSubscriptionID string             `json:"stripe_subscription_id" gorm:"index"`
	StripePriceID        string             `json:"stripe_price_id"`
	CurrentPeriodStart   *time.Time         `json:"current_period_start"`
	CurrentPeriodEnd     *time.Time         `json:"current_period_end"`
	TrialEndsAt          *time.Time         `json:"trial_ends_at"`
	CancelAtPeriodEnd    bool               `json:"cancel_at_period_end" gorm:"default:false"`
	CancelledAt          *time.Time         `json:"cancelled_at"`

	MaxUsers      int `json:"max_users"`
	MaxProducts   int `json:"max_products"`
	MaxOrders     int `json:"max_orders"`
	MaxWarehouses int `json:"max_warehouses"`

	HasAdvancedReports bool `json:"has_advanced_reports" gorm:"default:false"`
	HasAPIAccess       bool `json:"has_api_access" gorm:"default:false"`
	HasPrioritySupport bool `json:"has_priority_support" gorm:"default:false"`
}

// IsTrialExpired reports whether a trial subscription is past its end.
func (s *Subscription) IsTrialExpired(now time.Time) bool {
	return s.Status == SubscriptionTrial && s.TrialEndsAt != nil && now.After(*s.TrialEndsAt)
}

// WebhookEvent records every received webhook for idempotent replay
// handling. ExternalEventID is unique per provider.
type WebhookEvent struct {
	Audited
	Provider        string     `json:"provider" gorm:"not null;uniqueIndex:idx_provider_event"`
	ExternalEventID string     `json:"external_event_id" gorm:"not null;uniqueIndex:idx_provider_event"`
	EventType       string     `json:"event_type" gorm:"index"`
	Payload         JSONB      `json:"payload,omitempty" gorm:"type:jsonb"`
	Processed       bool       `json:"processed" gorm:"default:false"`
	ProcessedAt     *time.Time `json:"processed_at"`
	Error           string     `json:"error,omitempty"`
}

// AllModels lists every model for schema migration, dependency order.
func AllModels() []interface{} {
	return []interface{}{
		&Organization{},
		&AppUser{},
		&OrganizationUser{},
		&Category{},
		&Product{},
		&Warehouse{},
		&Customer{},
		&Supplier{},
		&Order{},
		&OrderItem{},
		&InventoryMovement{},
		&Subscription{},
		&WebhookEvent{},
	}
}

// UniqueIndexDDL lists the partial unique indexes enforcing
// per-organization natural keys among non-deleted rows. They pair the
// embedded organization_id column with a per-table key and carry an
// is_deleted predicate, neither of which a field tag can declare, so
// migration applies them as raw statements.
func UniqueIndexDDL() []string {
	return []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_products_org_sku ON products (organization_id, sku) WHERE is_deleted = false`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_org_number ON orders (organization_id, order_number) WHERE is_deleted = false`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_categories_org_name ON categories (organization_id, name) WHERE is_deleted = false`,
	}
}
