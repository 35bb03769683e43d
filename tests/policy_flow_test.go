// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"testing"
	"time"

	"github.com/kwameosei/shulegate/app/dto"
	businessflow "github.com/kwameosei/shulegate/business_flow"
	"github.com/kwameosei/shulegate/config"
	"github.com/kwameosei/shulegate/models"
	"github.com/kwameosei/shulegate/repository"
	testingutil "github.com/kwameosei/shulegate/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPolicyFlow(testDB *testingutil.TestDB) businessflow.PolicyFlow {
	return businessflow.NewPolicyFlow(
		repository.NewNotificationPolicyRepository(testDB.DB),
		repository.NewTenantRepository(testDB.DB),
		nil,
		&config.CacheConfig{KeyPrefix: "shulegate-test", PolicyTTL: time.Minute},
	)
}

func TestPolicyFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		flow := newPolicyFlow(testDB)
		policyRepo := repository.NewNotificationPolicyRepository(testDB.DB)

		t.Run("GetPolicyCreatesDefaultOnFirstAccess", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)

			resp, err := flow.GetPolicy(ctx, &dto.GetPolicyRequest{TenantID: tenant.ID})
			require.NoError(t, err)
			assert.Len(t, resp.Categories, len(models.AllCategories))
			for name, enabled := range resp.Categories {
				assert.True(t, enabled, "category %s should default to enabled", name)
			}

			// The default policy was persisted, not just computed
			stored, err := policyRepo.ByTenantID(ctx, tenant.ID)
			require.NoError(t, err)
			assert.NotNil(t, stored)
		})

		t.Run("UpdatePolicyFlipsSwitches", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)

			resp, err := flow.UpdatePolicy(ctx, &dto.UpdatePolicyRequest{
				TenantID: tenant.ID,
				Categories: map[string]bool{
					string(models.CategoryFeeReminders): false,
					string(models.CategoryBusArrival):   false,
				},
			}, nil)
			require.NoError(t, err)
			assert.False(t, resp.Categories[string(models.CategoryFeeReminders)])
			assert.False(t, resp.Categories[string(models.CategoryBusArrival)])
			assert.True(t, resp.Categories[string(models.CategoryAbsenceAlerts)])

			enabled, err := flow.IsEnabled(ctx, tenant.ID, models.CategoryFeeReminders)
			require.NoError(t, err)
			assert.False(t, enabled)

			enabled, err = flow.IsEnabled(ctx, tenant.ID, models.CategoryAbsenceAlerts)
			require.NoError(t, err)
			assert.True(t, enabled)
		})

		t.Run("UpdatePolicyRejectsUnknownCategoryAtomically", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)

			_, err = flow.UpdatePolicy(ctx, &dto.UpdatePolicyRequest{
				TenantID: tenant.ID,
				Categories: map[string]bool{
					string(models.CategoryFeeReminders): false,
					"lottery_results":                   true,
				},
			}, nil)
			require.Error(t, err)
			assert.True(t, businessflow.IsUnknownCategory(err))

			// The valid switch in the same request must not have been applied
			enabled, err := flow.IsEnabled(ctx, tenant.ID, models.CategoryFeeReminders)
			require.NoError(t, err)
			assert.True(t, enabled)
		})

		t.Run("UpdatePolicyRejectsEmptyRequest", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)

			_, err = flow.UpdatePolicy(ctx, &dto.UpdatePolicyRequest{
				TenantID:   tenant.ID,
				Categories: map[string]bool{},
			}, nil)
			require.Error(t, err)
			assert.True(t, businessflow.IsEmptyPolicyUpdate(err))
		})

		t.Run("CriticalCategoriesCanBeStoredDisabled", func(t *testing.T) {
			// The stored switch can be turned off; the bypass happens in the
			// dispatch path, not here.
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)

			resp, err := flow.UpdatePolicy(ctx, &dto.UpdatePolicyRequest{
				TenantID:   tenant.ID,
				Categories: map[string]bool{string(models.CategorySecurityAlerts): false},
			}, nil)
			require.NoError(t, err)
			assert.False(t, resp.Categories[string(models.CategorySecurityAlerts)])

			enabled, err := flow.IsEnabled(ctx, tenant.ID, models.CategorySecurityAlerts)
			require.NoError(t, err)
			assert.False(t, enabled)
		})

		return nil
	})
	require.NoError(t, err)
}
