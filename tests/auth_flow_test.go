package tests

import (
	"testing"
	"time"

	"github.com/kwameosei/shulegate/app/dto"
	"github.com/kwameosei/shulegate/app/services"
	businessflow "github.com/kwameosei/shulegate/business_flow"
	"github.com/kwameosei/shulegate/repository"
	testingutil "github.com/kwameosei/shulegate/testing"
	"github.com/kwameosei/shulegate/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPISecret = "super-secret-api-key-for-tests"

func newAuthFlow(t *testing.T, testDB *testingutil.TestDB) (businessflow.AuthFlow, services.TokenService) {
	tokenService, err := services.NewTokenService(
		15*time.Minute,
		24*time.Hour,
		"shulegate-test",
		"shulegate-api",
		false,
		"",
		"",
		"test-secret-key-that-is-long-enough",
	)
	require.NoError(t, err)

	flow := businessflow.NewAuthFlow(
		repository.NewTenantRepository(testDB.DB),
		services.NewCredentialService(4),
		tokenService,
		15*time.Minute,
	)
	return flow, tokenService
}

func TestAuthFlowIssueTokens(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, tokenService := newAuthFlow(t, testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("192.168.1.10", "test-agent")

		t.Run("ValidCredentialsIssueUsableTokens", func(t *testing.T) {
			tenant, err := fixtures.CreateTenantWithSecret(testAPISecret)
			require.NoError(t, err)

			resp, err := flow.IssueTokens(ctx, &dto.TokenRequest{
				Slug:      tenant.Slug,
				APISecret: testAPISecret,
			}, metadata)
			require.NoError(t, err)
			require.NotNil(t, resp)

			assert.Equal(t, "Bearer", resp.TokenType)
			assert.Equal(t, int64((15 * time.Minute).Seconds()), resp.ExpiresIn)
			assert.NotEmpty(t, resp.AccessToken)
			assert.NotEmpty(t, resp.RefreshToken)
			assert.NotEqual(t, resp.AccessToken, resp.RefreshToken)

			claims, err := tokenService.ValidateTenantToken(resp.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, tenant.ID, claims.TenantID)
			assert.Equal(t, "access", claims.TokenType)
		})

		t.Run("WrongSecretRejected", func(t *testing.T) {
			tenant, err := fixtures.CreateTenantWithSecret(testAPISecret)
			require.NoError(t, err)

			resp, err := flow.IssueTokens(ctx, &dto.TokenRequest{
				Slug:      tenant.Slug,
				APISecret: "not-the-right-secret-at-all",
			}, metadata)
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.True(t, businessflow.IsInvalidCredentials(err))
		})

		t.Run("UnknownSlugRejected", func(t *testing.T) {
			resp, err := flow.IssueTokens(ctx, &dto.TokenRequest{
				Slug:      "no-such-school",
				APISecret: testAPISecret,
			}, metadata)
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.True(t, businessflow.IsInvalidCredentials(err))
		})

		t.Run("TenantWithoutSecretRejected", func(t *testing.T) {
			tenant, err := fixtures.CreateTestTenant()
			require.NoError(t, err)

			_, err = flow.IssueTokens(ctx, &dto.TokenRequest{
				Slug:      tenant.Slug,
				APISecret: testAPISecret,
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidCredentials(err))
		})

		t.Run("InactiveTenantRejected", func(t *testing.T) {
			tenant, err := fixtures.CreateTenantWithSecret(testAPISecret)
			require.NoError(t, err)
			tenant.IsActive = utils.ToPtr(false)
			require.NoError(t, testDB.DB.Save(tenant).Error)

			_, err = flow.IssueTokens(ctx, &dto.TokenRequest{
				Slug:      tenant.Slug,
				APISecret: testAPISecret,
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsTenantInactive(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAuthFlowRefreshTokens(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow, tokenService := newAuthFlow(t, testDB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("192.168.1.10", "test-agent")

		tenant, err := fixtures.CreateTenantWithSecret(testAPISecret)
		require.NoError(t, err)

		issued, err := flow.IssueTokens(ctx, &dto.TokenRequest{
			Slug:      tenant.Slug,
			APISecret: testAPISecret,
		}, metadata)
		require.NoError(t, err)

		t.Run("RefreshTokenRotatesBoth", func(t *testing.T) {
			resp, err := flow.RefreshTokens(ctx, &dto.RefreshTokenRequest{
				RefreshToken: issued.RefreshToken,
			})
			require.NoError(t, err)

			claims, err := tokenService.ValidateTenantToken(resp.AccessToken)
			require.NoError(t, err)
			assert.Equal(t, tenant.ID, claims.TenantID)
		})

		t.Run("AccessTokenCannotRefresh", func(t *testing.T) {
			_, err := flow.RefreshTokens(ctx, &dto.RefreshTokenRequest{
				RefreshToken: issued.AccessToken,
			})
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidCredentials(err))
		})

		t.Run("GarbageTokenRejected", func(t *testing.T) {
			_, err := flow.RefreshTokens(ctx, &dto.RefreshTokenRequest{
				RefreshToken: "not.a.jwt",
			})
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidCredentials(err))
		})

		return nil
	})
	require.NoError(t, err)
}
