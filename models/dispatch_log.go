package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DispatchStatus represents the terminal outcome of a dispatch request
type DispatchStatus string

const (
	DispatchStatusSent    DispatchStatus = "sent"
	DispatchStatusFailed  DispatchStatus = "failed"
	DispatchStatusSkipped DispatchStatus = "skipped"
)

// Reason codes recorded on skipped and failed rows.
const (
	FailureReasonInsufficientFunds = "INSUFFICIENT_FUNDS"
	FailureReasonTransportRejected = "TRANSPORT_REJECTED"
	FailureReasonTransportError    = "TRANSPORT_ERROR"
	SkipReasonUserConfigDisabled   = "USER_CONFIG_DISABLED"
)

// DispatchLog is the audit trail of every message the gatekeeper handled.
// Sent rows carry the charged cost and the transaction correlation id;
// skipped rows are best-effort observability and never carry a cost.
type DispatchLog struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID     uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	TenantID uint      `gorm:"not null;index" json:"tenant_id"`

	Category EventCategory  `gorm:"type:varchar(50);not null;index" json:"category"`
	Status   DispatchStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	RecipientName string `gorm:"type:varchar(255)" json:"recipient_name"`
	Recipient     string `gorm:"type:varchar(20);not null" json:"recipient"`
	Message       string `gorm:"type:text;not null" json:"message"`

	// Cost in cents, charged only on sent rows
	Cost *uint64 `gorm:"" json:"cost,omitempty"`

	// Reason carries the skip or failure code; sent rows leave it empty
	Reason        *string    `gorm:"type:varchar(100)" json:"reason,omitempty"`
	ProviderRef   *string    `gorm:"type:varchar(255)" json:"provider_ref,omitempty"`
	CorrelationID *uuid.UUID `gorm:"type:uuid;index" json:"correlation_id,omitempty"`

	Metadata json.RawMessage `gorm:"type:jsonb;default:'{}'" json:"metadata"`

	// Audit fields
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Relationships
	Tenant Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE" json:"tenant,omitempty"`
}

// BeforeCreate ensures UUID is set
func (d *DispatchLog) BeforeCreate(tx *gorm.DB) error {
	if d.UUID == uuid.Nil {
		d.UUID = uuid.New()
	}
	return nil
}

func (DispatchLog) TableName() string { return "dispatch_logs" }

// DispatchLogFilter represents filter criteria for dispatch log queries
type DispatchLogFilter struct {
	ID            *uint           `json:"id,omitempty"`
	UUID          *uuid.UUID      `json:"uuid,omitempty"`
	TenantID      *uint           `json:"tenant_id,omitempty"`
	Category      *EventCategory  `json:"category,omitempty"`
	Status        *DispatchStatus `json:"status,omitempty"`
	Recipient     *string         `json:"recipient,omitempty"`
	CorrelationID *uuid.UUID      `json:"correlation_id,omitempty"`
	CreatedAfter  *time.Time      `json:"created_after,omitempty"`
	CreatedBefore *time.Time      `json:"created_before,omitempty"`
	Limit         int             `json:"limit,omitempty"`
	Offset        int             `json:"offset,omitempty"`
}
