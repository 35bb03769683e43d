// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"encoding/json"
	"testing"

	"github.com/kwameosei/shulegate/models"
	"github.com/kwameosei/shulegate/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventCategory(t *testing.T) {
	t.Run("AllCategoriesValid", func(t *testing.T) {
		assert.Len(t, models.AllCategories, 14)
		for _, c := range models.AllCategories {
			assert.True(t, c.Valid(), "category %s should be valid", c)
		}
	})

	t.Run("UnknownCategoryInvalid", func(t *testing.T) {
		assert.False(t, models.EventCategory("").Valid())
		assert.False(t, models.EventCategory("pizza_day").Valid())
		assert.False(t, models.EventCategory("FEE_REMINDERS").Valid())
	})

	t.Run("CriticalCategories", func(t *testing.T) {
		assert.True(t, models.CategorySecurityAlerts.IsCritical())
		assert.True(t, models.CategoryGradeChangeAlerts.IsCritical())

		critical := 0
		for _, c := range models.AllCategories {
			if c.IsCritical() {
				critical++
			}
		}
		assert.Equal(t, 2, critical)
	})
}

func TestNotificationPolicy(t *testing.T) {
	t.Run("DefaultPolicyEnablesEverything", func(t *testing.T) {
		policy := models.DefaultPolicy(1)
		for _, c := range models.AllCategories {
			assert.True(t, policy.Enabled(c), "category %s should default to enabled", c)
		}
	})

	t.Run("SetFlipsOneSwitch", func(t *testing.T) {
		policy := models.DefaultPolicy(1)
		require.True(t, policy.Set(models.CategoryFeeReminders, false))
		assert.False(t, policy.Enabled(models.CategoryFeeReminders))
		assert.True(t, policy.Enabled(models.CategoryPaymentConfirmations))
	})

	t.Run("SetRejectsUnknownCategory", func(t *testing.T) {
		policy := models.DefaultPolicy(1)
		assert.False(t, policy.Set(models.EventCategory("free_ice_cream"), true))
	})

	t.Run("AsMapCoversEveryCategory", func(t *testing.T) {
		policy := models.DefaultPolicy(1)
		policy.Set(models.CategoryBusDeparture, false)
		m := policy.AsMap()
		assert.Len(t, m, len(models.AllCategories))
		assert.False(t, m[models.CategoryBusDeparture])
		assert.True(t, m[models.CategoryBusArrival])
	})

	t.Run("UnknownCategoryDisabled", func(t *testing.T) {
		policy := models.DefaultPolicy(1)
		assert.False(t, policy.Enabled(models.EventCategory("pizza_day")))
	})
}

func TestBalanceSnapshotModel(t *testing.T) {
	t.Run("GetBalanceMap", func(t *testing.T) {
		snapshot := &models.BalanceSnapshot{
			FreeBalance:   1500,
			FrozenBalance: 500,
			TotalBalance:  2000,
		}

		raw, err := snapshot.GetBalanceMap()
		require.NoError(t, err)

		var m map[string]uint64
		require.NoError(t, json.Unmarshal(raw, &m))
		assert.Equal(t, uint64(1500), m["free"])
		assert.Equal(t, uint64(500), m["frozen"])
		assert.Equal(t, uint64(2000), m["total"])
	})
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "+254700123456", utils.NormalizePhone(" +254 700 123-456 "))
	assert.Equal(t, "+254700123456", utils.NormalizePhone("00254700123456"))
	assert.Equal(t, "0700123456", utils.NormalizePhone("0700 123 456"))
}
