// Package testing provides test utilities and database setup for testing the notification gateway
package testing

import (
	"fmt"
	"math/rand"

	"github.com/kwameosei/shulegate/models"
	"github.com/kwameosei/shulegate/utils"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestTenant creates an active school tenant with a unique slug
func (tf *TestFixtures) CreateTestTenant() (*models.Tenant, error) {
	suffix := rand.Intn(10000000)
	tenant := &models.Tenant{
		Name:         fmt.Sprintf("Test Academy %d", suffix),
		Slug:         fmt.Sprintf("test-academy-%d", suffix),
		ContactPhone: fmt.Sprintf("+2547%08d", rand.Intn(100000000)),
		ContactEmail: fmt.Sprintf("admin.%d@testacademy.co.ke", suffix),
		IsActive:     utils.ToPtr(true),
	}

	if err := tf.DB.DB.Create(tenant).Error; err != nil {
		return nil, fmt.Errorf("failed to create test tenant: %w", err)
	}
	return tenant, nil
}

// CreateTenantWithSecret creates an active tenant whose API secret is stored
// as a bcrypt hash, ready for token issuance
func (tf *TestFixtures) CreateTenantWithSecret(secret string) (*models.Tenant, error) {
	tenant, err := tf.CreateTestTenant()
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash test secret: %w", err)
	}
	tenant.APISecretHash = string(hash)
	if err := tf.DB.DB.Save(tenant).Error; err != nil {
		return nil, fmt.Errorf("failed to store test secret: %w", err)
	}
	return tenant, nil
}

// CreateInactiveTenant creates a suspended school tenant
func (tf *TestFixtures) CreateInactiveTenant() (*models.Tenant, error) {
	tenant, err := tf.CreateTestTenant()
	if err != nil {
		return nil, err
	}
	tenant.IsActive = utils.ToPtr(false)
	if err := tf.DB.DB.Save(tenant).Error; err != nil {
		return nil, fmt.Errorf("failed to deactivate test tenant: %w", err)
	}
	return tenant, nil
}

// CreateTestWallet creates a wallet for a tenant with an initial snapshot
// carrying the given free balance in cents
func (tf *TestFixtures) CreateTestWallet(tenantID uint, freeBalance uint64) (*models.Wallet, error) {
	wallet := &models.Wallet{TenantID: tenantID}
	if err := tf.DB.DB.Create(wallet).Error; err != nil {
		return nil, fmt.Errorf("failed to create test wallet: %w", err)
	}

	snapshot := &models.BalanceSnapshot{
		WalletID:    wallet.ID,
		TenantID:    tenantID,
		FreeBalance: freeBalance,
		Reason:      models.SnapshotReasonInitial,
	}
	if err := tf.DB.DB.Create(snapshot).Error; err != nil {
		return nil, fmt.Errorf("failed to create initial snapshot: %w", err)
	}
	return wallet, nil
}

// CreateTestPolicy creates a policy row for a tenant. Categories listed in
// disabled are switched off; everything else stays enabled.
func (tf *TestFixtures) CreateTestPolicy(tenantID uint, disabled ...models.EventCategory) (*models.NotificationPolicy, error) {
	policy := models.DefaultPolicy(tenantID)
	for _, category := range disabled {
		if !policy.Set(category, false) {
			return nil, fmt.Errorf("unknown category %s", category)
		}
	}

	if err := tf.DB.DB.Create(policy).Error; err != nil {
		return nil, fmt.Errorf("failed to create test policy: %w", err)
	}
	return policy, nil
}

// CreateProvisionedTenant creates an active tenant together with a funded
// wallet and a default policy, the state a school is in after onboarding
func (tf *TestFixtures) CreateProvisionedTenant(freeBalance uint64) (*models.Tenant, *models.Wallet, error) {
	tenant, err := tf.CreateTestTenant()
	if err != nil {
		return nil, nil, err
	}
	wallet, err := tf.CreateTestWallet(tenant.ID, freeBalance)
	if err != nil {
		return nil, nil, err
	}
	if _, err := tf.CreateTestPolicy(tenant.ID); err != nil {
		return nil, nil, err
	}
	return tenant, wallet, nil
}
