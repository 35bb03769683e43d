package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BalanceSnapshot represents an immutable point-in-time record of a wallet's
// balance. Wallet state is never mutated in place: each change appends a new
// snapshot and the latest snapshot is the source of truth.
type BalanceSnapshot struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID     uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	WalletID uint      `gorm:"not null;index" json:"wallet_id"`
	TenantID uint      `gorm:"not null;index" json:"tenant_id"`

	// CorrelationID ties the snapshot to the transaction and dispatch log
	// produced by the same operation.
	CorrelationID uuid.UUID `gorm:"type:uuid;not null;index" json:"correlation_id"`

	// Balance amounts in cents (KES)
	FreeBalance   uint64 `gorm:"not null;default:0" json:"free_balance"`
	FrozenBalance uint64 `gorm:"not null;default:0" json:"frozen_balance"`
	TotalBalance  uint64 `gorm:"not null;default:0" json:"total_balance"`

	Reason   string          `gorm:"type:varchar(255);not null" json:"reason"`
	Metadata json.RawMessage `gorm:"type:jsonb;default:'{}'" json:"metadata"`

	// Audit fields
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Relationships
	Wallet Wallet `gorm:"foreignKey:WalletID;constraint:OnDelete:CASCADE" json:"wallet,omitempty"`
	Tenant Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE" json:"tenant,omitempty"`
}

// BeforeCreate ensures UUID is set and total is consistent
func (bs *BalanceSnapshot) BeforeCreate(tx *gorm.DB) error {
	if bs.UUID == uuid.Nil {
		bs.UUID = uuid.New()
	}
	if bs.CorrelationID == uuid.Nil {
		bs.CorrelationID = uuid.New()
	}
	bs.TotalBalance = bs.FreeBalance + bs.FrozenBalance
	return nil
}

func (BalanceSnapshot) TableName() string { return "balance_snapshots" }

// GetBalanceMap returns a map representation of balances
func (bs *BalanceSnapshot) GetBalanceMap() (json.RawMessage, error) {
	balanceMap := map[string]uint64{
		"free":   bs.FreeBalance,
		"frozen": bs.FrozenBalance,
		"total":  bs.TotalBalance,
	}
	jsonData, err := json.Marshal(balanceMap)
	if err != nil {
		return nil, err
	}
	return jsonData, nil
}

// BalanceSnapshotFilter represents filter criteria for balance snapshot queries
type BalanceSnapshotFilter struct {
	ID            *uint      `json:"id,omitempty"`
	UUID          *uuid.UUID `json:"uuid,omitempty"`
	WalletID      *uint      `json:"wallet_id,omitempty"`
	TenantID      *uint      `json:"tenant_id,omitempty"`
	Reason        *string    `json:"reason,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}

// Snapshot reasons
const (
	SnapshotReasonInitial    = "initial"
	SnapshotReasonTopUp      = "top_up"
	SnapshotReasonDebit      = "message_debit"
	SnapshotReasonRefund     = "refund"
	SnapshotReasonAdjustment = "manual_adjustment"
	SnapshotReasonCorrection = "correction"
)
