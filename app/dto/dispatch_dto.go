package dto

import (
	"encoding/json"
	"time"
)

// DispatchRequest represents a request to send one notification message.
// Metadata carries event context (student name, action, timestamp) into the
// audit trail.
type DispatchRequest struct {
	TenantID      uint              `json:"-"`
	Category      string            `json:"category" validate:"required"`
	RecipientName string            `json:"recipient_name" validate:"omitempty,max=255"`
	Recipient     string            `json:"recipient" validate:"required,min=7,max=20"`
	Message       string            `json:"message" validate:"required,min=1,max=480"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// DispatchResponse represents the terminal outcome of a dispatch request.
// Reason carries the skip or failure code; Detail preserves the raw transport
// answer on transport failures.
type DispatchResponse struct {
	Status        string     `json:"status"` // sent, failed, skipped
	Category      string     `json:"category"`
	Recipient     string     `json:"recipient"`
	Cost          *uint64    `json:"cost,omitempty"`
	Reason        *string    `json:"reason,omitempty"`
	Detail        *string    `json:"detail,omitempty"`
	ProviderRef   *string    `json:"provider_ref,omitempty"`
	CorrelationID *string    `json:"correlation_id,omitempty"`
	DispatchedAt  *time.Time `json:"dispatched_at,omitempty"`
}

// ListDispatchLogsRequest represents the request to list dispatch logs
type ListDispatchLogsRequest struct {
	TenantID  uint       `json:"-"`
	Category  *string    `json:"category,omitempty"`
	Status    *string    `json:"status,omitempty"`
	Recipient *string    `json:"recipient,omitempty"`
	From      *time.Time `json:"from,omitempty"`
	To        *time.Time `json:"to,omitempty"`
	Limit     int        `json:"limit,omitempty"`
	Offset    int        `json:"offset,omitempty"`
}

// DispatchLogItem represents a single dispatch log row in responses
type DispatchLogItem struct {
	UUID          string          `json:"uuid"`
	Category      string          `json:"category"`
	Status        string          `json:"status"`
	RecipientName string          `json:"recipient_name,omitempty"`
	Recipient     string          `json:"recipient"`
	Message       string          `json:"message"`
	Cost          *uint64         `json:"cost,omitempty"`
	Reason        *string         `json:"reason,omitempty"`
	ProviderRef   *string         `json:"provider_ref,omitempty"`
	CorrelationID *string         `json:"correlation_id,omitempty"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ListDispatchLogsResponse represents the response to list dispatch logs
type ListDispatchLogsResponse struct {
	Items []DispatchLogItem `json:"items"`
	Total int64             `json:"total"`
}
