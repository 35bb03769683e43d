package services

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// CredentialService hashes and verifies tenant API secrets. Secrets are
// stored only as bcrypt hashes; the plaintext exists on the tenant's side.
type CredentialService interface {
	HashSecret(secret string) (string, error)
	VerifySecret(secret, hash string) bool
}

// CredentialServiceImpl implements CredentialService
type CredentialServiceImpl struct {
	cost int
}

// NewCredentialService creates a new credential service
func NewCredentialService(cost int) CredentialService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &CredentialServiceImpl{cost: cost}
}

// HashSecret hashes a plaintext secret with bcrypt
func (s *CredentialServiceImpl) HashSecret(secret string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(hash), nil
}

// VerifySecret compares a plaintext secret against its stored hash
func (s *CredentialServiceImpl) VerifySecret(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
