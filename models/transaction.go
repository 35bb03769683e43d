package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionType represents the type of wallet transaction
type TransactionType string

const (
	TransactionTypeTopUp      TransactionType = "top_up"
	TransactionTypeDebit      TransactionType = "debit"
	TransactionTypeRefund     TransactionType = "refund"
	TransactionTypeAdjustment TransactionType = "adjustment"
)

// TransactionStatus represents the status of a transaction
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusReversed  TransactionStatus = "reversed"
)

// Transaction represents an immutable financial transaction record. Rows are
// append-only: a completed debit is never updated, and a reversal is a new row
// sharing the original's correlation id.
type Transaction struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID     uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	WalletID uint      `gorm:"not null;index" json:"wallet_id"`
	TenantID uint      `gorm:"not null;index" json:"tenant_id"`

	// CorrelationID links related rows (debit + dispatch log + snapshot).
	CorrelationID uuid.UUID `gorm:"type:uuid;not null;index" json:"correlation_id"`

	Type   TransactionType   `gorm:"type:varchar(50);not null;index" json:"type"`
	Status TransactionStatus `gorm:"type:varchar(50);not null;index" json:"status"`

	// Amount in cents (KES)
	Amount uint64 `gorm:"not null" json:"amount"`

	// Balance state before and after, as jsonb maps
	BalanceBefore json.RawMessage `gorm:"type:jsonb;not null" json:"balance_before"`
	BalanceAfter  json.RawMessage `gorm:"type:jsonb;not null" json:"balance_after"`

	Description       string          `gorm:"type:text" json:"description"`
	ExternalReference *string         `gorm:"type:varchar(255);index" json:"external_reference,omitempty"`
	Metadata          json.RawMessage `gorm:"type:jsonb;default:'{}'" json:"metadata"`

	// Audit fields
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Relationships
	Wallet Wallet `gorm:"foreignKey:WalletID;constraint:OnDelete:CASCADE" json:"wallet,omitempty"`
	Tenant Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE" json:"tenant,omitempty"`
}

// BeforeCreate ensures UUIDs are set
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	if t.CorrelationID == uuid.Nil {
		t.CorrelationID = uuid.New()
	}
	return nil
}

func (Transaction) TableName() string { return "transactions" }

// TransactionFilter represents filter criteria for transaction queries
type TransactionFilter struct {
	ID            *uint              `json:"id,omitempty"`
	UUID          *uuid.UUID         `json:"uuid,omitempty"`
	WalletID      *uint              `json:"wallet_id,omitempty"`
	TenantID      *uint              `json:"tenant_id,omitempty"`
	CorrelationID *uuid.UUID         `json:"correlation_id,omitempty"`
	Type          *TransactionType   `json:"type,omitempty"`
	Status        *TransactionStatus `json:"status,omitempty"`
	CreatedAfter  *time.Time         `json:"created_after,omitempty"`
	CreatedBefore *time.Time         `json:"created_before,omitempty"`
	Limit         int                `json:"limit,omitempty"`
	Offset        int                `json:"offset,omitempty"`
}
