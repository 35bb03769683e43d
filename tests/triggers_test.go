// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"encoding/json"
	"testing"

	"github.com/kwameosei/shulegate/app/services"
	businessflow "github.com/kwameosei/shulegate/business_flow"
	"github.com/kwameosei/shulegate/models"
	"github.com/kwameosei/shulegate/repository"
	testingutil "github.com/kwameosei/shulegate/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggers(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		transport := services.NewMockTransportService()
		flow := newDispatchFlow(testDB, transport)
		triggers := businessflow.NewTriggers(flow)
		dispatchLogRepo := repository.NewDispatchLogRepository(testDB.DB)

		t.Run("FeeReminderRecordsEventContext", func(t *testing.T) {
			tenant, _, err := fixtures.CreateProvisionedTenant(10 * testMessageCost)
			require.NoError(t, err)

			resp, err := triggers.FeeReminder(ctx, tenant.ID, "Mrs. Otieno", "+254700123456", "Brian Otieno", 250000, "2026-09-15")
			require.NoError(t, err)
			assert.Equal(t, string(models.DispatchStatusSent), resp.Status)

			logs, err := dispatchLogRepo.ListByTenant(ctx, tenant.ID, models.DispatchLogFilter{Limit: 10})
			require.NoError(t, err)
			require.Len(t, logs, 1)
			assert.Equal(t, models.CategoryFeeReminders, logs[0].Category)
			assert.Equal(t, "Mrs. Otieno", logs[0].RecipientName)
			assert.Equal(t, "+254700123456", logs[0].Recipient)

			var md map[string]string
			require.NoError(t, json.Unmarshal(logs[0].Metadata, &md))
			assert.Equal(t, "fee_reminder", md["action"])
			assert.Equal(t, "Brian Otieno", md["student_name"])
			assert.Equal(t, "2026-09-15", md["due_date"])
			assert.NotEmpty(t, md["timestamp"])
		})

		t.Run("GradeChangeAlertRecordsGradeMovement", func(t *testing.T) {
			tenant, _, err := fixtures.CreateProvisionedTenant(10 * testMessageCost)
			require.NoError(t, err)

			resp, err := triggers.GradeChangeAlert(ctx, tenant.ID, "Mr. Kamau", "+254711000222", "Wanjiru Kamau", "Mathematics", "B+", "A-")
			require.NoError(t, err)
			assert.Equal(t, string(models.DispatchStatusSent), resp.Status)

			logs, err := dispatchLogRepo.ListByTenant(ctx, tenant.ID, models.DispatchLogFilter{Limit: 10})
			require.NoError(t, err)
			require.Len(t, logs, 1)
			assert.Equal(t, "Mr. Kamau", logs[0].RecipientName)

			var md map[string]string
			require.NoError(t, json.Unmarshal(logs[0].Metadata, &md))
			assert.Equal(t, "grade_change_alert", md["action"])
			assert.Equal(t, "B+", md["old_grade"])
			assert.Equal(t, "A-", md["new_grade"])
		})

		return nil
	})
	require.NoError(t, err)
}
