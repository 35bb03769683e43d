// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kwameosei/shulegate/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// TenantRepository defines operations for tenants
type TenantRepository interface {
	Repository[models.Tenant, models.TenantFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Tenant, error)
	BySlug(ctx context.Context, slug string) (*models.Tenant, error)
	ListActiveTenants(ctx context.Context, limit, offset int) ([]*models.Tenant, error)
}

// WalletRepository defines operations for wallets
type WalletRepository interface {
	Repository[models.Wallet, models.WalletFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Wallet, error)
	ByTenantID(ctx context.Context, tenantID uint) (*models.Wallet, error)
	LockForUpdate(ctx context.Context, walletID uint) (*models.Wallet, error)
	SaveWithInitialSnapshot(ctx context.Context, wallet *models.Wallet) error
	GetCurrentBalance(ctx context.Context, walletID uint) (*models.BalanceSnapshot, error)
	GetBalanceAtTime(ctx context.Context, walletID uint, timestamp time.Time) (*models.BalanceSnapshot, error)
	GetBalanceHistory(ctx context.Context, walletID uint, limit, offset int) ([]*models.BalanceSnapshot, error)
}

// BalanceSnapshotRepository defines operations for balance snapshots
type BalanceSnapshotRepository interface {
	Repository[models.BalanceSnapshot, models.BalanceSnapshotFilter]
	GetLatestByCorrelationID(ctx context.Context, correlationID uuid.UUID) (*models.BalanceSnapshot, error)
}

// TransactionRepository defines operations for transactions
type TransactionRepository interface {
	Repository[models.Transaction, models.TransactionFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Transaction, error)
	ListByWallet(ctx context.Context, walletID uint, limit, offset int) ([]*models.Transaction, error)
	ListByTenant(ctx context.Context, tenantID uint, limit, offset int) ([]*models.Transaction, error)
	GetByCorrelationID(ctx context.Context, correlationID uuid.UUID) ([]*models.Transaction, error)
}

// NotificationPolicyRepository defines operations for notification policies
type NotificationPolicyRepository interface {
	Repository[models.NotificationPolicy, models.NotificationPolicyFilter]
	ByTenantID(ctx context.Context, tenantID uint) (*models.NotificationPolicy, error)
	Update(ctx context.Context, policy *models.NotificationPolicy) error
}

// DispatchLogRepository defines operations for dispatch logs
type DispatchLogRepository interface {
	Repository[models.DispatchLog, models.DispatchLogFilter]
	ListByTenant(ctx context.Context, tenantID uint, filter models.DispatchLogFilter) ([]*models.DispatchLog, error)
	CountByStatus(ctx context.Context, tenantID uint, status models.DispatchStatus) (int64, error)
}
