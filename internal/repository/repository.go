package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"inventory-service/internal/models"
)

type txKey struct{}

// WithTx returns a context that routes repository calls through tx, so
// calls issued inside a service transaction join it.
func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func dbFor(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return db
}

// Page is one page of a paged query result. Pages are 1-indexed.
type Page[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// NewPage computes the paging envelope for a result set.
func NewPage[T any](items []T, total int64, page, pageSize int) *Page[T] {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &Page[T]{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

// NormalizePaging clamps page and pageSize to sane values.
func NormalizePaging(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// Repository is a generic store for entities that are not scoped to an
// organization (organizations themselves, users, subscriptions, webhook
// events). All reads exclude soft-deleted rows; Delete flips the
// soft-delete flag instead of removing the row.
type Repository[T any] struct {
	db *gorm.DB
}

// New creates a repository for T.
func New[T any](db *gorm.DB) *Repository[T] {
	return &Repository[T]{db: db}
}

// DB exposes the underlying handle for transactional composition.
func (r *Repository[T]) DB() *gorm.DB {
	return r.db
}

// GetById returns the entity or nil when it does not exist.
func (r *Repository[T]) GetById(ctx context.Context, id uuid.UUID) (*T, error) {
	var entity T
	err := dbFor(ctx, r.db).WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get entity by id: %w", err)
	}
	return &entity, nil
}

// GetAll returns all non-deleted entities.
func (r *Repository[T]) GetAll(ctx context.Context) ([]T, error) {
	var entities []T
	err := dbFor(ctx, r.db).WithContext(ctx).
		Where("is_deleted = ?", false).
		Find(&entities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list entities: %w", err)
	}
	return entities, nil
}

// Find returns all non-deleted entities matching the condition.
func (r *Repository[T]) Find(ctx context.Context, query string, args ...interface{}) ([]T, error) {
	var entities []T
	err := dbFor(ctx, r.db).WithContext(ctx).
		Where("is_deleted = ?", false).
		Where(query, args...).
		Find(&entities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find entities: %w", err)
	}
	return entities, nil
}

// FirstOrDefault returns the first match or nil when none exists.
func (r *Repository[T]) FirstOrDefault(ctx context.Context, query string, args ...interface{}) (*T, error) {
	var entity T
	err := dbFor(ctx, r.db).WithContext(ctx).
		Where("is_deleted = ?", false).
		Where(query, args...).
		First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query entity: %w", err)
	}
	return &entity, nil
}

// Any reports whether any non-deleted entity matches the condition.
func (r *Repository[T]) Any(ctx context.Context, query string, args ...interface{}) (bool, error) {
	count, err := r.Count(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Count counts non-deleted entities matching the condition. An empty
// query counts everything.
func (r *Repository[T]) Count(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var count int64
	q := dbFor(ctx, r.db).WithContext(ctx).Model(new(T)).Where("is_deleted = ?", false)
	if query != "" {
		q = q.Where(query, args...)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count entities: %w", err)
	}
	return count, nil
}

// Add inserts a new entity.
func (r *Repository[T]) Add(ctx context.Context, entity *T) error {
	if err := dbFor(ctx, r.db).WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("failed to create entity: %w", err)
	}
	return nil
}

// AddRange inserts entities in one batch.
func (r *Repository[T]) AddRange(ctx context.Context, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}
	if err := dbFor(ctx, r.db).WithContext(ctx).Create(entities).Error; err != nil {
		return fmt.Errorf("failed to create entities: %w", err)
	}
	return nil
}

// Update persists changes to an existing entity.
func (r *Repository[T]) Update(ctx context.Context, entity *T) error {
	if err := dbFor(ctx, r.db).WithContext(ctx).Save(entity).Error; err != nil {
		return fmt.Errorf("failed to update entity: %w", err)
	}
	return nil
}

// Delete soft-deletes the entity, stamping the deleting actor.
func (r *Repository[T]) Delete(ctx context.Context, id uuid.UUID) error {
	return softDelete(ctx, r.db, new(T), "id = ?", id)
}

// DeleteRange soft-deletes a set of entities.
func (r *Repository[T]) DeleteRange(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return softDelete(ctx, r.db, new(T), "id IN ?", ids)
}

// GetPaged returns one page of non-deleted entities ordered newest
// first. Pages are 1-indexed.
func (r *Repository[T]) GetPaged(ctx context.Context, page, pageSize int, query string, args ...interface{}) (*Page[T], error) {
	page, pageSize = NormalizePaging(page, pageSize)

	q := dbFor(ctx, r.db).WithContext(ctx).Model(new(T)).Where("is_deleted = ?", false)
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

// softDelete converts a delete into an update of the soft-delete
// columns. The actor is taken from the request context.
func softDelete(ctx context.Context, db *gorm.DB, model interface{}, query string, args ...interface{}) error {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"is_deleted": true,
		"deleted_at": now,
		"updated_at": now,
	}
	if actor := models.ActorFromContext(ctx); actor != "" {
		updates["deleted_by"] = actor
		updates["updated_by"] = actor
	}
	err := dbFor(ctx, db).WithContext(ctx).Model(model).
		Where("is_deleted = ?", false).
		Where(query, args...).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("failed to delete entity: %w", err)
	}
	return nil
}
