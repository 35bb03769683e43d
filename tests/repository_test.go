// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/kwameosei/shulegate/models"
	"github.com/kwameosei/shulegate/repository"
	testingutil "github.com/kwameosei/shulegate/testing"
	"github.com/kwameosei/shulegate/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewTenantRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("SaveAndByID", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)
			assert.NotZero(t, tenant.ID)

			found, err := repo.ByID(ctx, tenant.ID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, tenant.Slug, found.Slug)
		})

		t.Run("ByIDNotFound", func(t *testing.T) {
			tenant, err := repo.ByID(ctx, 99999)
			assert.NoError(t, err)
			assert.Nil(t, tenant)
		})

		t.Run("ByUUID", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)

			found, err := repo.ByUUID(ctx, tenant.UUID.String())
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, tenant.ID, found.ID)
		})

		t.Run("BySlug", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)

			found, err := repo.BySlug(ctx, tenant.Slug)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, tenant.ID, found.ID)

			missing, err := repo.BySlug(ctx, "no-such-school")
			assert.NoError(t, err)
			assert.Nil(t, missing)
		})

		t.Run("ListActiveTenants", func(t *testing.T) {
			active, err := fixtures.CreateTestTenant()
			require.NoError(t, err)
			inactive, err := fixtures.CreateInactiveTenant()
			require.NoError(t, err)

			tenants, err := repo.ListActiveTenants(ctx, 100, 0)
			require.NoError(t, err)

			ids := make(map[uint]bool)
			for _, tenant := range tenants {
				ids[tenant.ID] = true
			}
			assert.True(t, ids[active.ID])
			assert.False(t, ids[inactive.ID])
		})

		t.Run("CountAndExists", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)

			count, err := repo.Count(ctx, models.TenantFilter{Slug: &tenant.Slug})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)

			exists, err := repo.Exists(ctx, models.TenantFilter{Slug: &tenant.Slug})
			require.NoError(t, err)
			assert.True(t, exists)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestWalletRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewWalletRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("SaveWithInitialSnapshot", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)

			wallet := &models.Wallet{TenantID: tenant.ID}
			require.NoError(t, repo.SaveWithInitialSnapshot(ctx, wallet))
			assert.NotZero(t, wallet.ID)

			balance, err := repo.GetCurrentBalance(ctx, wallet.ID)
			require.NoError(t, err)
			require.NotNil(t, balance)
			assert.Equal(t, uint64(0), balance.FreeBalance)
			assert.Equal(t, models.SnapshotReasonInitial, balance.Reason)
		})

		t.Run("ByTenantID", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)
			wallet, err := fixtures.CreateTestWallet(tenant.ID, 5000)
			require.NoError(t, err)

			found, err := repo.ByTenantID(ctx, tenant.ID)
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, wallet.ID, found.ID)

			missing, err := repo.ByTenantID(ctx, 99999)
			assert.NoError(t, err)
			assert.Nil(t, missing)
		})

		t.Run("GetCurrentBalanceFollowsLatestSnapshot", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)
			wallet, err := fixtures.CreateTestWallet(tenant.ID, 5000)
			require.NoError(t, err)

			later := &models.BalanceSnapshot{
				WalletID:    wallet.ID,
				TenantID:    tenant.ID,
				FreeBalance: 4500,
				Reason:      models.SnapshotReasonDebit,
				CreatedAt:   utils.UTCNow().Add(time.Second),
			}
			require.NoError(t, testDB.DB.Create(later).Error)

			balance, err := repo.GetCurrentBalance(ctx, wallet.ID)
			require.NoError(t, err)
			assert.Equal(t, uint64(4500), balance.FreeBalance)
		})

		t.Run("GetCurrentBalanceBreaksTimestampTiesByID", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)
			wallet, err := fixtures.CreateTestWallet(tenant.ID, 5000)
			require.NoError(t, err)

			at := utils.UTCNow().Add(time.Second)
			for _, free := range []uint64{4000, 3000} {
				snapshot := &models.BalanceSnapshot{
					WalletID:    wallet.ID,
					TenantID:    tenant.ID,
					FreeBalance: free,
					Reason:      models.SnapshotReasonDebit,
					CreatedAt:   at,
				}
				require.NoError(t, testDB.DB.Create(snapshot).Error)
			}

			balance, err := repo.GetCurrentBalance(ctx, wallet.ID)
			require.NoError(t, err)
			assert.Equal(t, uint64(3000), balance.FreeBalance)
		})

		t.Run("GetBalanceHistory", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)
			wallet, err := fixtures.CreateTestWallet(tenant.ID, 1000)
			require.NoError(t, err)

			for i := 1; i <= 3; i++ {
				snapshot := &models.BalanceSnapshot{
					WalletID:    wallet.ID,
					TenantID:    tenant.ID,
					FreeBalance: uint64(1000 + i*100),
					Reason:      models.SnapshotReasonTopUp,
					CreatedAt:   utils.UTCNow().Add(time.Duration(i) * time.Second),
				}
				require.NoError(t, testDB.DB.Create(snapshot).Error)
			}

			history, err := repo.GetBalanceHistory(ctx, wallet.ID, 2, 0)
			require.NoError(t, err)
			require.Len(t, history, 2)
			// Newest first
			assert.Equal(t, uint64(1300), history[0].FreeBalance)
			assert.Equal(t, uint64(1200), history[1].FreeBalance)
		})

		t.Run("LockForUpdateInsideTransaction", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)
			wallet, err := fixtures.CreateTestWallet(tenant.ID, 1000)
			require.NoError(t, err)

			err = repository.WithTransaction(ctx, testDB.DB, func(txCtx context.Context) error {
				locked, err := repo.LockForUpdate(txCtx, wallet.ID)
				if err != nil {
					return err
				}
				require.NotNil(t, locked)
				assert.Equal(t, wallet.ID, locked.ID)
				return nil
			})
			require.NoError(t, err)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestTransactionRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewTransactionRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		wallet, err := fixtures.CreateTestWallet(tenant.ID, 10000)
		require.NoError(t, err)

		mkTx := func(txType models.TransactionType, amount uint64) *models.Transaction {
			return &models.Transaction{
				WalletID:      wallet.ID,
				TenantID:      tenant.ID,
				Type:          txType,
				Status:        models.TransactionStatusCompleted,
				Amount:        amount,
				BalanceBefore: json.RawMessage(`{"free":10000,"frozen":0,"total":10000}`),
				BalanceAfter:  json.RawMessage(`{"free":10000,"frozen":0,"total":10000}`),
			}
		}

		t.Run("SaveAndByUUID", func(t *testing.T) {
			tx := mkTx(models.TransactionTypeTopUp, 5000)
			require.NoError(t, repo.Save(ctx, tx))

			found, err := repo.ByUUID(ctx, tx.UUID.String())
			require.NoError(t, err)
			require.NotNil(t, found)
			assert.Equal(t, tx.ID, found.ID)
		})

		t.Run("GetByCorrelationID", func(t *testing.T) {
			tx := mkTx(models.TransactionTypeDebit, 500)
			require.NoError(t, repo.Save(ctx, tx))

			matches, err := repo.GetByCorrelationID(ctx, tx.CorrelationID)
			require.NoError(t, err)
			require.Len(t, matches, 1)
			assert.Equal(t, tx.ID, matches[0].ID)
		})

		t.Run("ListByTenantNewestFirst", func(t *testing.T) {
			for i := 0; i < 3; i++ {
				require.NoError(t, repo.Save(ctx, mkTx(models.TransactionTypeTopUp, uint64(100*(i+1)))))
			}

			txs, err := repo.ListByTenant(ctx, tenant.ID, 3, 0)
			require.NoError(t, err)
			require.Len(t, txs, 3)
			assert.True(t, !txs[0].CreatedAt.Before(txs[1].CreatedAt))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestNotificationPolicyRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewNotificationPolicyRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("ByTenantID", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)
			_, err = fixtures.CreateTestPolicy(tenant.ID, models.CategoryBusArrival)
			require.NoError(t, err)

			policy, err := repo.ByTenantID(ctx, tenant.ID)
			require.NoError(t, err)
			require.NotNil(t, policy)
			assert.False(t, policy.BusArrival)
			assert.True(t, policy.FeeReminders)
		})

		t.Run("ByTenantIDNotFound", func(t *testing.T) {
			policy, err := repo.ByTenantID(ctx, 99999)
			assert.NoError(t, err)
			assert.Nil(t, policy)
		})

		t.Run("Update", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)
			policy, err := fixtures.CreateTestPolicy(tenant.ID)
			require.NoError(t, err)

			policy.Set(models.CategoryMaintenanceUpdates, false)
			require.NoError(t, repo.Update(ctx, policy))

			reloaded, err := repo.ByTenantID(ctx, tenant.ID)
			require.NoError(t, err)
			assert.False(t, reloaded.MaintenanceUpdates)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestDispatchLogRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewDispatchLogRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)

		mkLog := func(category models.EventCategory, status models.DispatchStatus, recipient string) *models.DispatchLog {
			return &models.DispatchLog{
				TenantID:  tenant.ID,
				Category:  category,
				Status:    status,
				Recipient: recipient,
				Message:   fmt.Sprintf("Message for %s", category),
			}
		}

		require.NoError(t, repo.Save(ctx, mkLog(models.CategoryFeeReminders, models.DispatchStatusSent, "+254700000001")))
		require.NoError(t, repo.Save(ctx, mkLog(models.CategoryFeeReminders, models.DispatchStatusSkipped, "+254700000002")))
		require.NoError(t, repo.Save(ctx, mkLog(models.CategoryBusArrival, models.DispatchStatusFailed, "+254700000001")))

		t.Run("ListByTenant", func(t *testing.T) {
			logs, err := repo.ListByTenant(ctx, tenant.ID, models.DispatchLogFilter{Limit: 10})
			require.NoError(t, err)
			assert.Len(t, logs, 3)
		})

		t.Run("ListByTenantFilteredByCategory", func(t *testing.T) {
			category := models.CategoryFeeReminders
			logs, err := repo.ListByTenant(ctx, tenant.ID, models.DispatchLogFilter{Category: &category, Limit: 10})
			require.NoError(t, err)
			assert.Len(t, logs, 2)
		})

		t.Run("ListByTenantFilteredByRecipient", func(t *testing.T) {
			recipient := "+254700000001"
			logs, err := repo.ListByTenant(ctx, tenant.ID, models.DispatchLogFilter{Recipient: &recipient, Limit: 10})
			require.NoError(t, err)
			assert.Len(t, logs, 2)
		})

		t.Run("CountByStatus", func(t *testing.T) {
			sent, err := repo.CountByStatus(ctx, tenant.ID, models.DispatchStatusSent)
			require.NoError(t, err)
			assert.Equal(t, int64(1), sent)

			skipped, err := repo.CountByStatus(ctx, tenant.ID, models.DispatchStatusSkipped)
			require.NoError(t, err)
			assert.Equal(t, int64(1), skipped)

			failed, err := repo.CountByStatus(ctx, tenant.ID, models.DispatchStatusFailed)
			require.NoError(t, err)
			assert.Equal(t, int64(1), failed)
		})

		return nil
	})
	require.NoError(t, err)
}
