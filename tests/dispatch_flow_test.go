// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/kwameosei/shulegate/app/dto"
	"github.com/kwameosei/shulegate/app/services"
	businessflow "github.com/kwameosei/shulegate/business_flow"
	"github.com/kwameosei/shulegate/config"
	"github.com/kwameosei/shulegate/models"
	"github.com/kwameosei/shulegate/repository"
	testingutil "github.com/kwameosei/shulegate/testing"
	"github.com/kwameosei/shulegate/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMessageCost = utils.DefaultMessageCost

func newDispatchFlow(testDB *testingutil.TestDB, transport services.TransportService) businessflow.DispatchFlow {
	tenantRepo := repository.NewTenantRepository(testDB.DB)
	walletRepo := repository.NewWalletRepository(testDB.DB)
	snapshotRepo := repository.NewBalanceSnapshotRepository(testDB.DB)
	transactionRepo := repository.NewTransactionRepository(testDB.DB)
	dispatchLogRepo := repository.NewDispatchLogRepository(testDB.DB)

	policyFlow := businessflow.NewPolicyFlow(
		repository.NewNotificationPolicyRepository(testDB.DB),
		tenantRepo,
		nil, // no redis in tests, reads fall through to Postgres
		&config.CacheConfig{KeyPrefix: "shulegate-test", PolicyTTL: time.Minute},
	)

	return businessflow.NewDispatchFlow(
		tenantRepo,
		walletRepo,
		snapshotRepo,
		transactionRepo,
		dispatchLogRepo,
		policyFlow,
		transport,
		&config.DispatchConfig{MessageCost: testMessageCost, Currency: utils.KESCurrency},
		testDB.DB,
	)
}

func dispatchReq(tenantID uint, category string) *dto.DispatchRequest {
	return &dto.DispatchRequest{
		TenantID:  tenantID,
		Category:  category,
		Recipient: "+254700123456",
		Message:   "Test notification",
	}
}

func TestDispatchFlowValidation(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		transport := services.NewMockTransportService()
		flow := newDispatchFlow(testDB, transport)

		tenant, _, err := fixtures.CreateProvisionedTenant(10 * testMessageCost)
		require.NoError(t, err)

		t.Run("UnknownCategoryRejected", func(t *testing.T) {
			req := dispatchReq(tenant.ID, "carwash_promotions")
			resp, err := flow.Dispatch(ctx, req, nil)
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.True(t, businessflow.IsUnknownCategory(err))
			assert.Empty(t, transport.GetSentMessages())
		})

		t.Run("EmptyRecipientRejected", func(t *testing.T) {
			req := dispatchReq(tenant.ID, string(models.CategoryFeeReminders))
			req.Recipient = ""
			_, err := flow.Dispatch(ctx, req, nil)
			require.Error(t, err)
			assert.True(t, businessflow.IsRecipientRequired(err))
		})

		t.Run("OversizedMessageRejected", func(t *testing.T) {
			req := dispatchReq(tenant.ID, string(models.CategoryFeeReminders))
			for len(req.Message) <= utils.MaxMessageLength {
				req.Message += req.Message
			}
			_, err := flow.Dispatch(ctx, req, nil)
			require.Error(t, err)
			assert.True(t, businessflow.IsMessageTooLong(err))
		})

		t.Run("MissingTenantRejected", func(t *testing.T) {
			req := dispatchReq(99999, string(models.CategoryFeeReminders))
			_, err := flow.Dispatch(ctx, req, nil)
			require.Error(t, err)
			assert.True(t, businessflow.IsTenantNotFound(err))
		})

		t.Run("InactiveTenantRejected", func(t *testing.T) {
			inactive, err := fixtures.CreateInactiveTenant()
			require.NoError(t, err)
			_, err = fixtures.CreateTestWallet(inactive.ID, 10*testMessageCost)
			require.NoError(t, err)

			req := dispatchReq(inactive.ID, string(models.CategoryFeeReminders))
			_, err = flow.Dispatch(ctx, req, nil)
			require.Error(t, err)
			assert.True(t, businessflow.IsTenantInactive(err))
			assert.Empty(t, transport.GetSentMessages())
		})

		return nil
	})
	require.NoError(t, err)
}

func TestDispatchFlowPolicy(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		transport := services.NewMockTransportService()
		flow := newDispatchFlow(testDB, transport)
		walletRepo := repository.NewWalletRepository(testDB.DB)
		dispatchLogRepo := repository.NewDispatchLogRepository(testDB.DB)

		tenant, err := fixtures.CreateTestTenant()
		require.NoError(t, err)
		wallet, err := fixtures.CreateTestWallet(tenant.ID, 10*testMessageCost)
		require.NoError(t, err)
		_, err = fixtures.CreateTestPolicy(tenant.ID,
			models.CategoryFeeReminders,
			models.CategorySecurityAlerts,
			models.CategoryGradeChangeAlerts,
		)
		require.NoError(t, err)

		t.Run("DisabledCategorySkipped", func(t *testing.T) {
			resp, err := flow.Dispatch(ctx, dispatchReq(tenant.ID, string(models.CategoryFeeReminders)), nil)
			require.NoError(t, err)
			assert.Equal(t, string(models.DispatchStatusSkipped), resp.Status)
			assert.Nil(t, resp.Cost)
			require.NotNil(t, resp.Reason)
			assert.Equal(t, models.SkipReasonUserConfigDisabled, *resp.Reason)

			// Nothing left the building and nothing was charged
			assert.Empty(t, transport.GetSentMessages())
			balance, err := walletRepo.GetCurrentBalance(ctx, wallet.ID)
			require.NoError(t, err)
			assert.Equal(t, 10*testMessageCost, balance.FreeBalance)

			// A skip leaves an audit row carrying the reason code
			logs, err := dispatchLogRepo.ListByTenant(ctx, tenant.ID, models.DispatchLogFilter{Limit: 10})
			require.NoError(t, err)
			require.Len(t, logs, 1)
			assert.Equal(t, models.DispatchStatusSkipped, logs[0].Status)
			require.NotNil(t, logs[0].Reason)
			assert.Equal(t, models.SkipReasonUserConfigDisabled, *logs[0].Reason)
		})

		t.Run("CriticalCategoryBypassesPolicy", func(t *testing.T) {
			// security_alerts is disabled in the stored policy above, but the
			// category is critical so the message still goes out.
			resp, err := flow.Dispatch(ctx, dispatchReq(tenant.ID, string(models.CategorySecurityAlerts)), nil)
			require.NoError(t, err)
			assert.Equal(t, string(models.DispatchStatusSent), resp.Status)
			require.NotNil(t, resp.Cost)
			assert.Equal(t, testMessageCost, *resp.Cost)
			assert.Len(t, transport.GetSentMessages(), 1)

			balance, err := walletRepo.GetCurrentBalance(ctx, wallet.ID)
			require.NoError(t, err)
			assert.Equal(t, 9*testMessageCost, balance.FreeBalance)
		})

		t.Run("CriticalCategoryStillNeedsFunds", func(t *testing.T) {
			poor, err := fixtures.CreateTestTenant()
			require.NoError(t, err)
			_, err = fixtures.CreateTestWallet(poor.ID, testMessageCost-1)
			require.NoError(t, err)

			resp, err := flow.Dispatch(ctx, dispatchReq(poor.ID, string(models.CategoryGradeChangeAlerts)), nil)
			require.NoError(t, err)
			assert.Equal(t, string(models.DispatchStatusFailed), resp.Status)
			require.NotNil(t, resp.Reason)
			assert.Equal(t, models.FailureReasonInsufficientFunds, *resp.Reason)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestDispatchFlowBalanceAndTransport(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		transport := services.NewMockTransportService()
		flow := newDispatchFlow(testDB, transport)
		walletRepo := repository.NewWalletRepository(testDB.DB)
		transactionRepo := repository.NewTransactionRepository(testDB.DB)
		dispatchLogRepo := repository.NewDispatchLogRepository(testDB.DB)

		t.Run("InsufficientFundsFailsBeforeTransport", func(t *testing.T) {
			tenant, wallet, err := fixtures.CreateProvisionedTenant(testMessageCost - 1)
			require.NoError(t, err)

			resp, err := flow.Dispatch(ctx, dispatchReq(tenant.ID, string(models.CategoryAbsenceAlerts)), nil)
			require.NoError(t, err)
			assert.Equal(t, string(models.DispatchStatusFailed), resp.Status)
			require.NotNil(t, resp.Reason)
			assert.Equal(t, models.FailureReasonInsufficientFunds, *resp.Reason)
			require.NotNil(t, resp.Cost)
			assert.Equal(t, testMessageCost, *resp.Cost)

			// The transport was never asked and the balance is untouched
			assert.Empty(t, transport.GetSentMessages())
			balance, err := walletRepo.GetCurrentBalance(ctx, wallet.ID)
			require.NoError(t, err)
			assert.Equal(t, testMessageCost-1, balance.FreeBalance)

			txs, err := transactionRepo.ListByTenant(ctx, tenant.ID, 10, 0)
			require.NoError(t, err)
			assert.Empty(t, txs)
		})

		t.Run("TransportRejectionFailsWithoutDebit", func(t *testing.T) {
			tenant, wallet, err := fixtures.CreateProvisionedTenant(10 * testMessageCost)
			require.NoError(t, err)

			transport.RejectNext = 1
			resp, err := flow.Dispatch(ctx, dispatchReq(tenant.ID, string(models.CategoryBusArrival)), nil)
			require.NoError(t, err)
			assert.Equal(t, string(models.DispatchStatusFailed), resp.Status)
			require.NotNil(t, resp.Reason)
			assert.Equal(t, models.FailureReasonTransportRejected, *resp.Reason)
			require.NotNil(t, resp.Detail)
			assert.Equal(t, "REJECTED", *resp.Detail)

			balance, err := walletRepo.GetCurrentBalance(ctx, wallet.ID)
			require.NoError(t, err)
			assert.Equal(t, 10*testMessageCost, balance.FreeBalance)

			// The provider's answer survives on the audit row
			logs, err := dispatchLogRepo.ListByTenant(ctx, tenant.ID, models.DispatchLogFilter{Limit: 10})
			require.NoError(t, err)
			require.Len(t, logs, 1)
			assert.Equal(t, models.DispatchStatusFailed, logs[0].Status)
			assert.Contains(t, string(logs[0].Metadata), "REJECTED")
		})

		t.Run("TransportErrorFailsWithoutDebit", func(t *testing.T) {
			tenant, wallet, err := fixtures.CreateProvisionedTenant(10 * testMessageCost)
			require.NoError(t, err)

			transport.FailNext = 1
			resp, err := flow.Dispatch(ctx, dispatchReq(tenant.ID, string(models.CategoryBusDeparture)), nil)
			require.NoError(t, err)
			assert.Equal(t, string(models.DispatchStatusFailed), resp.Status)
			require.NotNil(t, resp.Reason)
			assert.Equal(t, models.FailureReasonTransportError, *resp.Reason)
			require.NotNil(t, resp.Detail)
			assert.Contains(t, *resp.Detail, "mock transport failure")

			balance, err := walletRepo.GetCurrentBalance(ctx, wallet.ID)
			require.NoError(t, err)
			assert.Equal(t, 10*testMessageCost, balance.FreeBalance)

			logs, err := dispatchLogRepo.ListByTenant(ctx, tenant.ID, models.DispatchLogFilter{Limit: 10})
			require.NoError(t, err)
			require.Len(t, logs, 1)
			assert.Contains(t, string(logs[0].Metadata), "mock transport failure")
		})

		t.Run("SuccessfulDispatchDebitsAndCorrelates", func(t *testing.T) {
			tenant, wallet, err := fixtures.CreateProvisionedTenant(10 * testMessageCost)
			require.NoError(t, err)

			resp, err := flow.Dispatch(ctx, dispatchReq(tenant.ID, string(models.CategoryResultPublished)), nil)
			require.NoError(t, err)
			assert.Equal(t, string(models.DispatchStatusSent), resp.Status)
			require.NotNil(t, resp.Cost)
			assert.Equal(t, testMessageCost, *resp.Cost)
			require.NotNil(t, resp.ProviderRef)
			require.NotNil(t, resp.CorrelationID)

			balance, err := walletRepo.GetCurrentBalance(ctx, wallet.ID)
			require.NoError(t, err)
			assert.Equal(t, 9*testMessageCost, balance.FreeBalance)
			assert.Equal(t, models.SnapshotReasonDebit, balance.Reason)
			assert.Equal(t, *resp.CorrelationID, balance.CorrelationID.String())

			// Exactly one completed debit transaction with the same correlation id
			txs, err := transactionRepo.GetByCorrelationID(ctx, balance.CorrelationID)
			require.NoError(t, err)
			require.Len(t, txs, 1)
			assert.Equal(t, models.TransactionTypeDebit, txs[0].Type)
			assert.Equal(t, models.TransactionStatusCompleted, txs[0].Status)
			assert.Equal(t, testMessageCost, txs[0].Amount)

			// And one sent log sharing it
			logs, err := dispatchLogRepo.ListByTenant(ctx, tenant.ID, models.DispatchLogFilter{Limit: 10})
			require.NoError(t, err)
			require.Len(t, logs, 1)
			assert.Equal(t, models.DispatchStatusSent, logs[0].Status)
			require.NotNil(t, logs[0].CorrelationID)
			assert.Equal(t, balance.CorrelationID, *logs[0].CorrelationID)
		})

		t.Run("SentLogCarriesAuditContext", func(t *testing.T) {
			tenant, _, err := fixtures.CreateProvisionedTenant(10 * testMessageCost)
			require.NoError(t, err)

			req := dispatchReq(tenant.ID, string(models.CategoryFeeReminders))
			req.RecipientName = "Mrs. Otieno"
			req.Metadata = map[string]string{
				"action":       "fee_reminder",
				"student_name": "Brian Otieno",
			}
			resp, err := flow.Dispatch(ctx, req, nil)
			require.NoError(t, err)
			assert.Equal(t, string(models.DispatchStatusSent), resp.Status)

			logs, err := dispatchLogRepo.ListByTenant(ctx, tenant.ID, models.DispatchLogFilter{Limit: 10})
			require.NoError(t, err)
			require.Len(t, logs, 1)
			assert.Equal(t, "Mrs. Otieno", logs[0].RecipientName)
			assert.Equal(t, req.Recipient, logs[0].Recipient)

			var md map[string]string
			require.NoError(t, json.Unmarshal(logs[0].Metadata, &md))
			assert.Equal(t, "fee_reminder", md["action"])
			assert.Equal(t, "Brian Otieno", md["student_name"])
		})

		return nil
	})
	require.NoError(t, err)
}

func TestDispatchFlowConcurrentDebits(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		transport := services.NewMockTransportService()
		flow := newDispatchFlow(testDB, transport)
		walletRepo := repository.NewWalletRepository(testDB.DB)
		dispatchLogRepo := repository.NewDispatchLogRepository(testDB.DB)

		// The wallet covers exactly one message. Two dispatches race; the
		// row lock must let exactly one of them debit.
		tenant, wallet, err := fixtures.CreateProvisionedTenant(testMessageCost)
		require.NoError(t, err)

		var wg sync.WaitGroup
		responses := make([]*dto.DispatchResponse, 2)
		errs := make([]error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				responses[i], errs[i] = flow.Dispatch(ctx, dispatchReq(tenant.ID, string(models.CategoryGradeUpdates)), nil)
			}(i)
		}
		wg.Wait()

		sent := 0
		for i := 0; i < 2; i++ {
			require.NoError(t, errs[i])
			require.NotNil(t, responses[i])
			if responses[i].Status == string(models.DispatchStatusSent) {
				sent++
			}
		}
		assert.Equal(t, 1, sent)

		balance, err := walletRepo.GetCurrentBalance(ctx, wallet.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), balance.FreeBalance)

		sentLogs, err := dispatchLogRepo.CountByStatus(ctx, tenant.ID, models.DispatchStatusSent)
		require.NoError(t, err)
		assert.Equal(t, int64(1), sentLogs)

		return nil
	})
	require.NoError(t, err)
}
