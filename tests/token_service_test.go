package tests

import (
	"testing"
	"time"

	"github.com/kwameosei/shulegate/app/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenService(t *testing.T, accessTTL time.Duration) services.TokenService {
	svc, err := services.NewTokenService(
		accessTTL,
		24*time.Hour,
		"shulegate-test",
		"shulegate-api",
		false,
		"",
		"",
		"test-secret-key-that-is-long-enough",
	)
	require.NoError(t, err)
	return svc
}

func TestTokenService(t *testing.T) {
	t.Run("GenerateAndValidateTenantTokens", func(t *testing.T) {
		svc := newTokenService(t, 15*time.Minute)

		access, refresh, err := svc.GenerateTenantTokens(42)
		require.NoError(t, err)
		require.NotEmpty(t, access)
		require.NotEmpty(t, refresh)

		accessClaims, err := svc.ValidateTenantToken(access)
		require.NoError(t, err)
		assert.Equal(t, uint(42), accessClaims.TenantID)
		assert.Equal(t, "access", accessClaims.TokenType)
		assert.NotEmpty(t, accessClaims.TokenID)

		refreshClaims, err := svc.ValidateTenantToken(refresh)
		require.NoError(t, err)
		assert.Equal(t, "refresh", refreshClaims.TokenType)
	})

	t.Run("ExpiredTokenRejected", func(t *testing.T) {
		svc := newTokenService(t, -1*time.Minute)

		access, _, err := svc.GenerateTenantTokens(7)
		require.NoError(t, err)

		_, err = svc.ValidateTenantToken(access)
		require.Error(t, err)
		assert.ErrorIs(t, err, services.ErrTokenExpired)
	})

	t.Run("TamperedTokenRejected", func(t *testing.T) {
		svc := newTokenService(t, 15*time.Minute)

		access, _, err := svc.GenerateTenantTokens(7)
		require.NoError(t, err)

		_, err = svc.ValidateTenantToken(access + "x")
		require.Error(t, err)
		assert.ErrorIs(t, err, services.ErrTokenInvalid)
	})

	t.Run("TokenSignedWithDifferentKeyRejected", func(t *testing.T) {
		svc := newTokenService(t, 15*time.Minute)
		other, err := services.NewTokenService(
			15*time.Minute,
			24*time.Hour,
			"shulegate-test",
			"shulegate-api",
			false,
			"",
			"",
			"a-completely-different-signing-key",
		)
		require.NoError(t, err)

		access, _, err := other.GenerateTenantTokens(7)
		require.NoError(t, err)

		_, err = svc.ValidateTenantToken(access)
		require.Error(t, err)
	})

	t.Run("RefreshTenantToken", func(t *testing.T) {
		svc := newTokenService(t, 15*time.Minute)

		_, refresh, err := svc.GenerateTenantTokens(9)
		require.NoError(t, err)

		newAccess, newRefresh, err := svc.RefreshTenantToken(refresh)
		require.NoError(t, err)

		claims, err := svc.ValidateTenantToken(newAccess)
		require.NoError(t, err)
		assert.Equal(t, uint(9), claims.TenantID)
		assert.Equal(t, "access", claims.TokenType)

		_, err = svc.ValidateTenantToken(newRefresh)
		assert.NoError(t, err)
	})

	t.Run("AccessTokenCannotBeUsedAsRefresh", func(t *testing.T) {
		svc := newTokenService(t, 15*time.Minute)

		access, _, err := svc.GenerateTenantTokens(9)
		require.NoError(t, err)

		_, _, err = svc.RefreshTenantToken(access)
		require.Error(t, err)
	})

	t.Run("ServiceTokens", func(t *testing.T) {
		svc := newTokenService(t, 15*time.Minute)

		token, err := svc.GenerateServiceToken("fee-reminder-scheduler")
		require.NoError(t, err)

		claims, err := svc.ValidateServiceToken(token)
		require.NoError(t, err)
		assert.Equal(t, "fee-reminder-scheduler", claims.ServiceName)

		// A service token is not a tenant token
		_, err = svc.ValidateTenantToken(token)
		require.Error(t, err)
	})

	t.Run("SecretKeyRequiredWithoutRSA", func(t *testing.T) {
		_, err := services.NewTokenService(
			15*time.Minute,
			24*time.Hour,
			"shulegate-test",
			"shulegate-api",
			false,
			"",
			"",
			"",
		)
		require.Error(t, err)
	})
}
