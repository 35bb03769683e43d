package repository

import (
	"context"

	"github.com/kwameosei/shulegate/models"
	"gorm.io/gorm"
)

// DispatchLogRepositoryImpl implements DispatchLogRepository interface
type DispatchLogRepositoryImpl struct {
	*BaseRepository[models.DispatchLog, models.DispatchLogFilter]
}

// NewDispatchLogRepository creates a new dispatch log repository
func NewDispatchLogRepository(db *gorm.DB) DispatchLogRepository {
	return &DispatchLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.DispatchLog, models.DispatchLogFilter](db),
	}
}

// ListByTenant returns dispatch logs for a tenant applying the filter, newest first
func (r *DispatchLogRepositoryImpl) ListByTenant(ctx context.Context, tenantID uint, filter models.DispatchLogFilter) ([]*models.DispatchLog, error) {
	db := r.getDB(ctx)
	var logs []*models.DispatchLog

	filter.TenantID = &tenantID
	query := r.applyFilter(db.Model(&models.DispatchLog{}), filter)
	query = query.Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	err := query.Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// CountByStatus returns the number of dispatch logs with a given status for a tenant
func (r *DispatchLogRepositoryImpl) CountByStatus(ctx context.Context, tenantID uint, status models.DispatchStatus) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.DispatchLog{}).
		Where("tenant_id = ? AND status = ?", tenantID, status).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ByFilter retrieves dispatch logs based on filter criteria
func (r *DispatchLogRepositoryImpl) ByFilter(ctx context.Context, filter models.DispatchLogFilter, orderBy string, limit, offset int) ([]*models.DispatchLog, error) {
	db := r.getDB(ctx)
	var logs []*models.DispatchLog

	query := db.Model(&models.DispatchLog{})
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

	err := query.Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// Count returns the number of dispatch logs matching the filter
func (r *DispatchLogRepositoryImpl) Count(ctx context.Context, filter models.DispatchLogFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.DispatchLog{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any dispatch log matching the filter exists
func (r *DispatchLogRepositoryImpl) Exists(ctx context.Context, filter models.DispatchLogFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *DispatchLogRepositoryImpl) applyFilter(query *gorm.DB, filter models.DispatchLogFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Recipient != nil {
		query = query.Where("recipient = ?", *filter.Recipient)
	}
	if filter.CorrelationID != nil {
		query = query.Where("correlation_id = ?", *filter.CorrelationID)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}
