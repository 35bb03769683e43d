package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kwameosei/shulegate/models"
	"gorm.io/gorm"
)

// BalanceSnapshotRepositoryImpl implements BalanceSnapshotRepository interface
type BalanceSnapshotRepositoryImpl struct {
	*BaseRepository[models.BalanceSnapshot, models.BalanceSnapshotFilter]
}

// NewBalanceSnapshotRepository creates a new balance snapshot repository
func NewBalanceSnapshotRepository(db *gorm.DB) BalanceSnapshotRepository {
	return &BalanceSnapshotRepositoryImpl{
		BaseRepository: NewBaseRepository[models.BalanceSnapshot, models.BalanceSnapshotFilter](db),
	}
}

// GetLatestByCorrelationID returns the most recent snapshot for a correlation id
func (r *BalanceSnapshotRepositoryImpl) GetLatestByCorrelationID(ctx context.Context, correlationID uuid.UUID) (*models.BalanceSnapshot, error) {
	db := r.getDB(ctx)
	var snapshot models.BalanceSnapshot
	err := db.Where("correlation_id = ?", correlationID).
		Order("created_at DESC").
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &snapshot, nil
}

// ByFilter retrieves snapshots based on filter criteria
func (r *BalanceSnapshotRepositoryImpl) ByFilter(ctx context.Context, filter models.BalanceSnapshotFilter, orderBy string, limit, offset int) ([]*models.BalanceSnapshot, error) {
	db := r.getDB(ctx)
	var snapshots []*models.BalanceSnapshot

	query := db.Model(&models.BalanceSnapshot{})
	query = r.applyFilter(query, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&snapshots).Error
	if err != nil {
		return nil, err
	}
	return snapshots, nil
}

// Count returns the number of snapshots matching the filter
func (r *BalanceSnapshotRepositoryImpl) Count(ctx context.Context, filter models.BalanceSnapshotFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.BalanceSnapshot{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any snapshot matching the filter exists
func (r *BalanceSnapshotRepositoryImpl) Exists(ctx context.Context, filter models.BalanceSnapshotFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *BalanceSnapshotRepositoryImpl) applyFilter(query *gorm.DB, filter models.BalanceSnapshotFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.WalletID != nil {
		query = query.Where("wallet_id = ?", *filter.WalletID)
	}
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Reason != nil {
		query = query.Where("reason = ?", *filter.Reason)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}
