package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/kwameosei/shulegate/models"
	"gorm.io/gorm"
)

// NotificationPolicyRepositoryImpl implements NotificationPolicyRepository interface
type NotificationPolicyRepositoryImpl struct {
	*BaseRepository[models.NotificationPolicy, models.NotificationPolicyFilter]
}

// NewNotificationPolicyRepository creates a new notification policy repository
func NewNotificationPolicyRepository(db *gorm.DB) NotificationPolicyRepository {
	return &NotificationPolicyRepositoryImpl{
		BaseRepository: NewBaseRepository[models.NotificationPolicy, models.NotificationPolicyFilter](db),
	}
}

// ByTenantID finds the policy row for a tenant
func (r *NotificationPolicyRepositoryImpl) ByTenantID(ctx context.Context, tenantID uint) (*models.NotificationPolicy, error) {
	db := r.getDB(ctx)
	var policy models.NotificationPolicy
	err := db.Where("tenant_id = ?", tenantID).Last(&policy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &policy, nil
}

// Update persists changes to an existing policy row
func (r *NotificationPolicyRepositoryImpl) Update(ctx context.Context, policy *models.NotificationPolicy) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Save(policy).Error
	if err != nil {
		return fmt.Errorf("failed to update notification policy: %w", err)
	}

	return nil
}

// ByFilter retrieves policies based on filter criteria
func (r *NotificationPolicyRepositoryImpl) ByFilter(ctx context.Context, filter models.NotificationPolicyFilter, orderBy string, limit, offset int) ([]*models.NotificationPolicy, error) {
	db := r.getDB(ctx)
	var policies []*models.NotificationPolicy

	query := db.Model(&models.NotificationPolicy{})
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

	err := query.Find(&policies).Error
	if err != nil {
		return nil, err
	}
	return policies, nil
}

// Count returns the number of policies matching the filter
func (r *NotificationPolicyRepositoryImpl) Count(ctx context.Context, filter models.NotificationPolicyFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.NotificationPolicy{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any policy matching the filter exists
func (r *NotificationPolicyRepositoryImpl) Exists(ctx context.Context, filter models.NotificationPolicyFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *NotificationPolicyRepositoryImpl) applyFilter(query *gorm.DB, filter models.NotificationPolicyFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	return query
}
