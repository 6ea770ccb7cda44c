package models

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type contextKey string

const actorKey contextKey = "audit_actor"

// WithActor returns a context carrying the acting user's external id.
// Audit hooks read it when stamping created_by/updated_by.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext returns the acting user's external id, or "" when absent.
func ActorFromContext(ctx context.Context) string {
	if actor, ok := ctx.Value(actorKey).(string); ok {
		return actor
	}
	return ""
}

// Audited carries the identity, audit and soft-delete fields shared by
// all persisted entities. Rows are never removed; deletes flip IsDeleted.
type Audited struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	CreatedBy string     `json:"created_by,omitempty"`
	UpdatedBy string     `json:"updated_by,omitempty"`
	IsDeleted bool       `json:"-" gorm:"default:false;index"`
	DeletedAt *time.Time `json:"-"`
	DeletedBy string     `json:"-"`
}

// BeforeCreate stamps identity and audit fields before insert.
func (a *Audited) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().UTC()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	if actor := ActorFromContext(tx.Statement.Context); actor != "" {
		if a.CreatedBy == "" {
			a.CreatedBy = actor
		}
		a.UpdatedBy = actor
	}
	return nil
}

// BeforeUpdate refreshes the audit trail before update.
func (a *Audited) BeforeUpdate(tx *gorm.DB) error {
	a.UpdatedAt = time.Now().UTC()
	if actor := ActorFromContext(tx.Statement.Context); actor != "" {
		a.UpdatedBy = actor
	}
	return nil
}

// MarkDeleted converts the entity into its soft-deleted state.
func (a *Audited) MarkDeleted(actor string) {
	now := time.Now().UTC()
	a.IsDeleted = true
	a.DeletedAt = &now
	a.DeletedBy = actor
}

// TenantOwned is embedded by every entity that belongs to an
// organization. OrganizationID is the internal tenant key; the
// repository layer fills it on insert and filters on it for every read.
type TenantOwned struct {
	Audited
	OrganizationID uuid.UUID `json:"organization_id" gorm:"type:uuid;index;not null"`
}

// TenantID returns the owning organization's internal id.
func (t *TenantOwned) TenantID() uuid.UUID {
	return t.OrganizationID
}

// SetTenantID assigns the owning organization.
func (t *TenantOwned) SetTenantID(id uuid.UUID) {
	t.OrganizationID = id
}

// BeforeCreate stamps audit fields for tenant-owned rows.
func (t *TenantOwned) BeforeCreate(tx *gorm.DB) error {
	return t.Audited.BeforeCreate(tx)
}

// BeforeUpdate refreshes audit fields for tenant-owned rows.
func (t *TenantOwned) BeforeUpdate(tx *gorm.DB) error {
	return t.Audited.BeforeUpdate(tx)
}
