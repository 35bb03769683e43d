package businessflow

import (
	"context"
	"log"
	"time"

	"github.com/kwameosei/shulegate/app/dto"
	"github.com/kwameosei/shulegate/app/services"
	"github.com/kwameosei/shulegate/repository"
)

// AuthFlow exchanges tenant API credentials for JWT tokens. Lookup failures
// and bad secrets both map to the same invalid-credentials error so the
// endpoint does not leak which slugs exist.
type AuthFlow interface {
	IssueTokens(ctx context.Context, req *dto.TokenRequest, metadata *ClientMetadata) (*dto.TokenResponse, error)
	RefreshTokens(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
}

// AuthFlowImpl implements AuthFlow
type AuthFlowImpl struct {
	tenantRepo        repository.TenantRepository
	credentialService services.CredentialService
	tokenService      services.TokenService
	accessTokenTTL    time.Duration
}

// NewAuthFlow creates a new auth flow instance
func NewAuthFlow(
	tenantRepo repository.TenantRepository,
	credentialService services.CredentialService,
	tokenService services.TokenService,
	accessTokenTTL time.Duration,
) AuthFlow {
	return &AuthFlowImpl{
		tenantRepo:        tenantRepo,
		credentialService: credentialService,
		tokenService:      tokenService,
		accessTokenTTL:    accessTokenTTL,
	}
}

// IssueTokens verifies the tenant's API secret and returns fresh tokens
func (s *AuthFlowImpl) IssueTokens(ctx context.Context, req *dto.TokenRequest, metadata *ClientMetadata) (*dto.TokenResponse, error) {
	tenant, err := s.tenantRepo.BySlug(ctx, req.Slug)
	if err != nil {
		return nil, NewBusinessError("TENANT_LOOKUP_FAILED", "Failed to look up tenant", err)
	}
	if tenant == nil || tenant.APISecretHash == "" {
		return nil, NewBusinessError("INVALID_CREDENTIALS", "Invalid slug or API secret", ErrInvalidCredentials)
	}
	if tenant.IsActive == nil || !*tenant.IsActive {
		return nil, NewBusinessError("TENANT_INACTIVE", "Tenant is inactive", ErrTenantInactive)
	}

	if !s.credentialService.VerifySecret(req.APISecret, tenant.APISecretHash) {
		if metadata != nil {
			log.Printf("Rejected token request for tenant %s from %s", req.Slug, metadata.IPAddress)
		}
		return nil, NewBusinessError("INVALID_CREDENTIALS", "Invalid slug or API secret", ErrInvalidCredentials)
	}

	accessToken, refreshToken, err := s.tokenService.GenerateTenantTokens(tenant.ID)
	if err != nil {
		return nil, NewBusinessError("TOKEN_GENERATION_FAILED", "Failed to generate tokens", err)
	}

	return s.toTokenResponse(accessToken, refreshToken), nil
}

// RefreshTokens rotates both tokens using a valid refresh token
func (s *AuthFlowImpl) RefreshTokens(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	accessToken, refreshToken, err := s.tokenService.RefreshTenantToken(req.RefreshToken)
	if err != nil {
		return nil, NewBusinessError("INVALID_CREDENTIALS", "Invalid refresh token", ErrInvalidCredentials)
	}
	return s.toTokenResponse(accessToken, refreshToken), nil
}

func (s *AuthFlowImpl) toTokenResponse(accessToken, refreshToken string) *dto.TokenResponse {
	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTokenTTL.Seconds()),
	}
}
