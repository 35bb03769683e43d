// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// BaseRepository carries the shared persistence plumbing for all entity
// repositories. Reads and writes join a caller-supplied transaction when one
// travels in the context, which is how the gatekeeper keeps snapshot,
// transaction and dispatch log writes in a single atomic unit.
type BaseRepository[T any, F any] struct {
	DB *gorm.DB
}

// NewBaseRepository creates a new base repository instance
func NewBaseRepository[T any, F any](db *gorm.DB) *BaseRepository[T, F] {
	return &BaseRepository[T, F]{DB: db}
}

// txFromContext extracts a transaction handle placed by WithTransaction
func txFromContext(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return nil
}

// getDB returns the context transaction if present, the pool otherwise
func (r *BaseRepository[T, F]) getDB(ctx context.Context) *gorm.DB {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return r.DB
}

// getDBForWrite returns a handle suitable for writes. When the context
// already carries a transaction the write joins it and the caller commits;
// otherwise a fresh transaction is opened and the second return value tells
// the caller to finish it.
func (r *BaseRepository[T, F]) getDBForWrite(ctx context.Context) (*gorm.DB, bool, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx, false, nil
	}

	tx := r.DB.Begin()
	if tx.Error != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	return tx, true, nil
}

// finishWrite commits or rolls back a transaction opened by getDBForWrite
func finishWrite(tx *gorm.DB, opErr error) {
	if opErr != nil {
		tx.Rollback()
		return
	}
	tx.Commit()
}

// ByID retrieves an entity by its primary key, nil when no row exists
func (r *BaseRepository[T, F]) ByID(ctx context.Context, id uint) (*T, error) {
	var entity T
	if err := r.getDB(ctx).Last(&entity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find entity by ID %d: %w", id, err)
	}
	return &entity, nil
}

// Save inserts a new entity
func (r *BaseRepository[T, F]) Save(ctx context.Context, entity *T) error {
	db, own, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	if own {
		defer func() { finishWrite(db, err) }()
	}

	if err = db.Create(entity).Error; err != nil {
		return fmt.Errorf("failed to save entity: %w", err)
	}
	return nil
}

// SaveBatch inserts multiple entities, chunked to keep statements bounded
func (r *BaseRepository[T, F]) SaveBatch(ctx context.Context, entities []*T) error {
	if len(entities) == 0 {
		return nil
	}

	db, own, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}
	if own {
		defer func() { finishWrite(db, err) }()
	}

	if err = db.CreateInBatches(entities, 100).Error; err != nil {
		return fmt.Errorf("failed to save batch entities: %w", err)
	}
	return nil
}

// WithTransaction runs fn inside one database transaction. All repository
// calls made with the returned context join that transaction; any error or
// panic rolls the whole unit back.
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(context.Context) error) (err error) {
	tx := db.Begin()
	if tx.Error != nil {
		return fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			err = fmt.Errorf("panic in transaction: %v", r)
		}
	}()

	if err := fn(context.WithValue(ctx, TxContextKey, tx)); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
