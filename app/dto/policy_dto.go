package dto

import "time"

// GetPolicyRequest represents the request to read a tenant's notification policy
type GetPolicyRequest struct {
	TenantID uint `json:"-"`
}

// PolicyResponse represents a tenant's notification policy in responses
type PolicyResponse struct {
	Categories map[string]bool `json:"categories"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// UpdatePolicyRequest represents the request to update policy switches.
// Only the categories present in the map are changed.
type UpdatePolicyRequest struct {
	TenantID   uint            `json:"-"`
	Categories map[string]bool `json:"categories" validate:"required,min=1"`
}
