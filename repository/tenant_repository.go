package repository

import (
	"context"
	"errors"

	"github.com/kwameosei/shulegate/models"
	"gorm.io/gorm"
)

// TenantRepositoryImpl implements TenantRepository interface
type TenantRepositoryImpl struct {
	*BaseRepository[models.Tenant, models.TenantFilter]
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &TenantRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Tenant, models.TenantFilter](db),
	}
}

// ByUUID finds a tenant by UUID
func (r *TenantRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Tenant, error) {
	db := r.getDB(ctx)
	var tenant models.Tenant
	err := db.Where("uuid = ?", uuid).Last(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

// BySlug finds a tenant by its unique slug
func (r *TenantRepositoryImpl) BySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	db := r.getDB(ctx)
	var tenant models.Tenant
	err := db.Where("slug = ?", slug).Last(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}

// ListActiveTenants returns active tenants ordered by creation time
func (r *TenantRepositoryImpl) ListActiveTenants(ctx context.Context, limit, offset int) ([]*models.Tenant, error) {
	db := r.getDB(ctx)
	var tenants []*models.Tenant
	query := db.Where("is_active = ?", true).Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	err := query.Find(&tenants).Error
	if err != nil {
		return nil, err
	}
	return tenants, nil
}

// ByFilter retrieves tenants based on filter criteria
func (r *TenantRepositoryImpl) ByFilter(ctx context.Context, filter models.TenantFilter, orderBy string, limit, offset int) ([]*models.Tenant, error) {
	db := r.getDB(ctx)
	var tenants []*models.Tenant

	query := db.Model(&models.Tenant{})
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

	err := query.Find(&tenants).Error
	if err != nil {
		return nil, err
	}
	return tenants, nil
}

// Count returns the number of tenants matching the filter
func (r *TenantRepositoryImpl) Count(ctx context.Context, filter models.TenantFilter) (int64, error) {
	db := r.getDB(ctx)
	var count int64

	query := db.Model(&models.Tenant{})
	query = r.applyFilter(query, filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any tenant matching the filter exists
func (r *TenantRepositoryImpl) Exists(ctx context.Context, filter models.TenantFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies the filter to the query
func (r *TenantRepositoryImpl) applyFilter(query *gorm.DB, filter models.TenantFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		query = query.Where("uuid = ?", *filter.UUID)
	}
	if filter.Slug != nil {
		query = query.Where("slug = ?", *filter.Slug)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}
