package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTenantMismatch is returned when an entity carries an organization
// id different from the one the call is scoped to.
var ErrTenantMismatch = errors.New("entity belongs to a different organization")

// TenantScoped is implemented by every entity owned by an organization.
type TenantScoped interface {
	TenantID() uuid.UUID
	SetTenantID(uuid.UUID)
}

// TenantRepository is the single enforcement point for tenant
// isolation: every query it issues carries an organization_id
// predicate, and every insert is stamped with the caller's
// organization. Callers pass the internal organization UUID explicitly;
// there is no ambient tenant state.
type TenantRepository[T any, PT interface {
	*T
	TenantScoped
}] struct {
	db *gorm.DB
}

// NewTenant creates a tenant-scoped repository for T.
func NewTenant[T any, PT interface {
	*T
	TenantScoped
}](db *gorm.DB) *TenantRepository[T, PT] {
	return &TenantRepository[T, PT]{db: db}
}

func (r *TenantRepository[T, PT]) scope(ctx context.Context, orgID uuid.UUID) *gorm.DB {
	return dbFor(ctx, r.db).WithContext(ctx).
		Where("organization_id = ? AND is_deleted = ?", orgID, false)
}

// GetById returns the entity within the organization, or nil when it
// does not exist there.
func (r *TenantRepository[T, PT]) GetById(ctx context.Context, orgID, id uuid.UUID) (*T, error) {
	var entity T
	err := r.scope(ctx, orgID).Where("id = ?", id).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get entity by id: %w", err)
	}
	return &entity, nil
}

// GetAll returns all of the organization's non-deleted entities.
func (r *TenantRepository[T, PT]) GetAll(ctx context.Context, orgID uuid.UUID) ([]T, error) {
	var entities []T
	if err := r.scope(ctx, orgID).Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	return entities, nil
}

// Find returns the organization's entities matching the condition.
func (r *TenantRepository[T, PT]) Find(ctx context.Context, orgID uuid.UUID, query string, args ...interface{}) ([]T, error) {
	var entities []T
	if err := r.scope(ctx, orgID).Where(query, args...).Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("failed to find entities: %w", err)
	}
	return entities, nil
}

// FirstOrDefault returns the first match within the organization, or
// nil when none exists.
func (r *TenantRepository[T, PT]) FirstOrDefault(ctx context.Context, orgID uuid.UUID, query string, args ...interface{}) (*T, error) {
	var entity T
	err := r.scope(ctx, orgID).Where(query, args...).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query entity: %w", err)
	}
	return &entity, nil
}

// Any reports whether any entity in the organization matches.
func (r *TenantRepository[T, PT]) Any(ctx context.Context, orgID uuid.UUID, query string, args ...interface{}) (bool, error) {
	count, err := r.Count(ctx, orgID, query, args...)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Count counts the organization's entities matching the condition. An
// empty query counts everything the organization owns.
func (r *TenantRepository[T, PT]) Count(ctx context.Context, orgID uuid.UUID, query string, args ...interface{}) (int64, error) {
	var count int64
	q := dbFor(ctx, r.db).WithContext(ctx).Model(new(T)).
		Where("organization_id = ? AND is_deleted = ?", orgID, false)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count entities: %w", err)
	}
	return count, nil
}

// Add inserts a new entity, stamping the organization when the entity
// does not already carry one. A pre-set foreign organization id is
// rejected rather than silently overwritten.
func (r *TenantRepository[T, PT]) Add(ctx context.Context, orgID uuid.UUID, entity PT) error {
	if err := claimTenant(entity, orgID); err != nil {
		return err
	}
	if err := dbFor(ctx, r.db).WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("failed to create entity: %w", err)
	}
	return nil
}

// AddRange inserts entities in one batch, stamping each.
func (r *TenantRepository[T, PT]) AddRange(ctx context.Context, orgID uuid.UUID, entities []PT) error {
	if len(entities) == 0 {
		return nil
	}
	for _, entity := range entities {
		if err := claimTenant(entity, orgID); err != nil {
			return err
		}
	}
	if err := dbFor(ctx, r.db).WithContext(ctx).Create(entities).Error; err != nil {
		return fmt.Errorf("failed to create entities: %w", err)
	}
	return nil
}

// Update persists changes to an entity the organization owns.
func (r *TenantRepository[T, PT]) Update(ctx context.Context, orgID uuid.UUID, entity PT) error {
	if entity.TenantID() != orgID {
		return ErrTenantMismatch
	}
	if err := dbFor(ctx, r.db).WithContext(ctx).Save(entity).Error; err != nil {
		return fmt.Errorf("failed to update entity: %w", err)
	}
	return nil
}

// Delete soft-deletes an entity the organization owns.
func (r *TenantRepository[T, PT]) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return softDelete(ctx, r.db, new(T), "organization_id = ? AND id = ?", orgID, id)
}

// DeleteRange soft-deletes entities the organization owns.
func (r *TenantRepository[T, PT]) DeleteRange(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return softDelete(ctx, r.db, new(T), "organization_id = ? AND id IN ?", orgID, ids)
}

// GetPaged returns one page of the organization's entities, newest
// first. Pages are 1-indexed.
func (r *TenantRepository[T, PT]) GetPaged(ctx context.Context, orgID uuid.UUID, page, pageSize int, query string, args ...interface{}) (*Page[T], error) {
	page, pageSize = NormalizePaging(page, pageSize)

	q := dbFor(ctx, r.db).WithContext(ctx).Model(new(T)).
		Where("organization_id = ? AND is_deleted = ?", orgID, false)
	if query != "" {
		q = q.Where(query, args...)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count page: %w", err)
	}

	var entities []T
	err := q.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	return NewPage(entities, total, page, pageSize), nil
}

func claimTenant(entity TenantScoped, orgID uuid.UUID) error {
	switch entity.TenantID() {
	case uuid.Nil:
		entity.SetTenantID(orgID)
	case orgID:
	default:
		return ErrTenantMismatch
	}
	return nil
}
