package dto

import "time"

// GetBalanceRequest represents the request to read a wallet balance
type GetBalanceRequest struct {
	TenantID uint `json:"-"`
}

// BalanceResponse represents the current wallet balance in responses
type BalanceResponse struct {
	FreeBalance   uint64    `json:"free_balance"`
	FrozenBalance uint64    `json:"frozen_balance"`
	TotalBalance  uint64    `json:"total_balance"`
	Currency      string    `json:"currency"`
	AsOf          time.Time `json:"as_of"`
}

// TopUpRequest represents the request to credit a wallet
type TopUpRequest struct {
	TenantID          uint    `json:"-"`
	Amount            uint64  `json:"amount" validate:"required,gt=0"`
	ExternalReference *string `json:"external_reference,omitempty" validate:"omitempty,max=255"`
	Description       *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// TopUpResponse represents the response to a wallet top-up
type TopUpResponse struct {
	TransactionUUID string    `json:"transaction_uuid"`
	NewBalance      uint64    `json:"new_balance"`
	CreditedAt      time.Time `json:"credited_at"`
}

// ListTransactionsRequest represents the request to list wallet transactions
type ListTransactionsRequest struct {
	TenantID uint `json:"-"`
	Limit    int  `json:"limit,omitempty"`
	Offset   int  `json:"offset,omitempty"`
}

// TransactionItem represents a single transaction row in responses
type TransactionItem struct {
	UUID          string    `json:"uuid"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	Amount        uint64    `json:"amount"`
	Description   string    `json:"description,omitempty"`
	CorrelationID string    `json:"correlation_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListTransactionsResponse represents the response to list wallet transactions
type ListTransactionsResponse struct {
	Items []TransactionItem `json:"items"`
	Total int64             `json:"total"`
}
