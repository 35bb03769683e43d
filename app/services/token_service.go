package services

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kwameosei/shulegate/utils"
)

// Token service error constants
var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// TokenService handles JWT token generation and validation.
// Tenant tokens identify a school's API client; service tokens identify
// internal systems (scheduler, admin tooling) allowed to act across tenants.
type TokenService interface {
	GenerateTenantTokens(tenantID uint) (accessToken, refreshToken string, err error)
	ValidateTenantToken(token string) (*TenantTokenClaims, error)
	RefreshTenantToken(refreshToken string) (newAccessToken, newRefreshToken string, err error)
	GenerateServiceToken(serviceName string) (token string, err error)
	ValidateServiceToken(token string) (*ServiceTokenClaims, error)
}

// TenantTokenClaims represents the claims in a tenant JWT
type TenantTokenClaims struct {
	TenantID  uint      `json:"tenant_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	TokenType string    `json:"token_type"` // "access" or "refresh"
	TokenID   string    `json:"jti"`
}

// ServiceTokenClaims represents claims for internal service JWTs
type ServiceTokenClaims struct {
	ServiceName string    `json:"service_name"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	TokenID     string    `json:"jti"`
}

// TokenServiceImpl implements TokenService
type TokenServiceImpl struct {
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	signingMethod   jwt.SigningMethod
	privateKey      *rsa.PrivateKey
	publicKey       *rsa.PublicKey
	secretKey       []byte
	useRSAKeys      bool
	issuer          string
	audience        string
}

// NewTokenService creates a new token service
func NewTokenService(accessTokenTTL, refreshTokenTTL time.Duration, issuer, audience string, useRSAKeys bool, privateKeyPEM, publicKeyPEM, secretKey string) (TokenService, error) {
	var privateKey *rsa.PrivateKey
	var publicKey *rsa.PublicKey
	var secretKeyBytes []byte
	var signingMethod jwt.SigningMethod

	if useRSAKeys {
		var err error
		privateKey, publicKey, err = parseRSAKeys(privateKeyPEM, publicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("failed to parse RSA keys: %w", err)
		}
		signingMethod = jwt.SigningMethodRS256
	} else {
		if secretKey == "" {
			return nil, fmt.Errorf("secret key is required when not using RSA keys")
		}
		secretKeyBytes = []byte(secretKey)
		signingMethod = jwt.SigningMethodHS256
	}

	return &TokenServiceImpl{
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
		signingMethod:   signingMethod,
		privateKey:      privateKey,
		publicKey:       publicKey,
		secretKey:       secretKeyBytes,
		useRSAKeys:      useRSAKeys,
		issuer:          issuer,
		audience:        audience,
	}, nil
}

// parseRSAKeys parses RSA private and public keys from PEM format
func parseRSAKeys(privateKeyPEM, publicKeyPEM string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	if privateKeyPEM == "" || publicKeyPEM == "" {
		return nil, nil, fmt.Errorf("both private and public keys are required")
	}

	privateKeyBlock, _ := pem.Decode([]byte(privateKeyPEM))
	if privateKeyBlock == nil {
		return nil, nil, fmt.Errorf("failed to decode private key")
	}

	privateKey, err := x509.ParsePKCS1PrivateKey(privateKeyBlock.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	publicKeyBlock, _ := pem.Decode([]byte(publicKeyPEM))
	if publicKeyBlock == nil {
		return nil, nil, fmt.Errorf("failed to decode public key")
	}

	publicKey, err := x509.ParsePKIXPublicKey(publicKeyBlock.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	rsaPublicKey, ok := publicKey.(*rsa.PublicKey)
	if !ok {
		return nil, nil, fmt.Errorf("public key is not RSA")
	}

	return privateKey, rsaPublicKey, nil
}

// GenerateTenantTokens generates access and refresh tokens for a tenant
func (s *TokenServiceImpl) GenerateTenantTokens(tenantID uint) (accessToken, refreshToken string, err error) {
	accessToken, err = s.signTenantToken(tenantID, "access", s.accessTokenTTL)
	if err != nil {
		return "", "", err
	}

	refreshToken, err = s.signTenantToken(tenantID, "refresh", s.refreshTokenTTL)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// signTenantToken builds and signs one tenant token of the given type
func (s *TokenServiceImpl) signTenantToken(tenantID uint, tokenType string, ttl time.Duration) (string, error) {
	tokenID, err := generateTokenID()
	if err != nil {
		return "", err
	}

	now := utils.UTCNow()
	return s.generateToken(jwt.MapClaims{
		"tenant_id":  tenantID,
		"token_type": tokenType,
		"jti":        tokenID,
		"iat":        now.Unix(),
		"exp":        now.Add(ttl).Unix(),
		"iss":        s.issuer,
		"aud":        s.audience,
	})
}

// ValidateTenantToken validates a tenant JWT and returns its claims
func (s *TokenServiceImpl) ValidateTenantToken(token string) (*TenantTokenClaims, error) {
	claims, err := s.parseClaims(token)
	if err != nil {
		return nil, err
	}

	tenantID, ok := numberClaim(claims, "tenant_id")
	if !ok {
		return nil, ErrTokenInvalid
	}
	tokenType, ok := stringClaim(claims, "token_type")
	if !ok {
		return nil, ErrTokenInvalid
	}
	tokenID, issuedAt, expiresAt, err := commonClaims(claims)
	if err != nil {
		return nil, err
	}

	return &TenantTokenClaims{
		TenantID:  uint(tenantID),
		TokenType: tokenType,
		TokenID:   tokenID,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// RefreshTenantToken generates new tokens using a refresh token
func (s *TokenServiceImpl) RefreshTenantToken(refreshToken string) (newAccessToken, newRefreshToken string, err error) {
	claims, err := s.ValidateTenantToken(refreshToken)
	if err != nil {
		return "", "", fmt.Errorf("invalid refresh token: %w", err)
	}

	if claims.TokenType != "refresh" {
		return "", "", fmt.Errorf("token is not a refresh token")
	}

	if utils.UTCNow().After(claims.ExpiresAt) {
		return "", "", fmt.Errorf("refresh token has expired")
	}

	return s.GenerateTenantTokens(claims.TenantID)
}

// GenerateServiceToken generates a token for an internal service
func (s *TokenServiceImpl) GenerateServiceToken(serviceName string) (string, error) {
	now := utils.UTCNow()

	tokenID, err := generateTokenID()
	if err != nil {
		return "", err
	}

	claims := jwt.MapClaims{
		"service_name": serviceName,
		"jti":          tokenID,
		"iat":          now.Unix(),
		"exp":          now.Add(s.accessTokenTTL).Unix(),
		"iss":          s.issuer,
		"aud":          s.audience,
	}

	return s.generateToken(claims)
}

// ValidateServiceToken validates a service JWT and returns its claims
func (s *TokenServiceImpl) ValidateServiceToken(token string) (*ServiceTokenClaims, error) {
	claims, err := s.parseClaims(token)
	if err != nil {
		return nil, err
	}

	serviceName, ok := stringClaim(claims, "service_name")
	if !ok {
		return nil, ErrTokenInvalid
	}
	tokenID, issuedAt, expiresAt, err := commonClaims(claims)
	if err != nil {
		return nil, err
	}

	return &ServiceTokenClaims{
		ServiceName: serviceName,
		TokenID:     tokenID,
		IssuedAt:    issuedAt,
		ExpiresAt:   expiresAt,
	}, nil
}

// commonClaims extracts and checks the claims shared by every token kind
func commonClaims(claims jwt.MapClaims) (tokenID string, issuedAt, expiresAt time.Time, err error) {
	id, ok := stringClaim(claims, "jti")
	if !ok {
		return "", time.Time{}, time.Time{}, ErrTokenInvalid
	}
	iat, ok := numberClaim(claims, "iat")
	if !ok {
		return "", time.Time{}, time.Time{}, ErrTokenInvalid
	}
	exp, ok := numberClaim(claims, "exp")
	if !ok {
		return "", time.Time{}, time.Time{}, ErrTokenInvalid
	}

	expiry := time.Unix(int64(exp), 0)
	if utils.UTCNow().After(expiry) {
		return "", time.Time{}, time.Time{}, ErrTokenExpired
	}
	return id, time.Unix(int64(iat), 0), expiry, nil
}

func stringClaim(claims jwt.MapClaims, key string) (string, bool) {
	v, ok := claims[key].(string)
	return v, ok
}

func numberClaim(claims jwt.MapClaims, key string) (float64, bool) {
	v, ok := claims[key].(float64)
	return v, ok
}

// parseClaims verifies the signature and returns the raw claim map
func (s *TokenServiceImpl) parseClaims(token string) (jwt.MapClaims, error) {
	var err error
	var parsedToken *jwt.Token

	if s.useRSAKeys {
		parsedToken, err = jwt.Parse(token, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.publicKey, nil
		})
	} else {
		parsedToken, err = jwt.Parse(token, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.secretKey, nil
		})
	}

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if !parsedToken.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// generateToken creates a signed JWT token
func (s *TokenServiceImpl) generateToken(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(s.signingMethod, claims)

	var signedString string
	var err error

	if s.useRSAKeys {
		signedString, err = token.SignedString(s.privateKey)
	} else {
		signedString, err = token.SignedString(s.secretKey)
	}

	if err != nil {
		return "", err
	}

	return signedString, nil
}

// generateTokenID generates a unique token ID
func generateTokenID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", bytes), nil
}
