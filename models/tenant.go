package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant represents a single school on the platform. Every wallet, policy and
// dispatch log row hangs off a tenant.
type Tenant struct {
	ID   uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`

	Name         string `gorm:"type:varchar(255);not null" json:"name"`
	Slug         string `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"`
	ContactPhone string `gorm:"type:varchar(20)" json:"contact_phone"`
	ContactEmail string `gorm:"type:varchar(255)" json:"contact_email"`
	IsActive     *bool  `gorm:"default:true;index" json:"is_active"`

	// APISecretHash is the bcrypt hash of the tenant's API secret. The
	// plaintext is never stored.
	APISecretHash string `gorm:"type:varchar(255)" json:"-"`

	Metadata json.RawMessage `gorm:"type:jsonb;default:'{}'" json:"metadata"`

	// Audit fields
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Relationships
	Wallet *Wallet             `gorm:"foreignKey:TenantID" json:"wallet,omitempty"`
	Policy *NotificationPolicy `gorm:"foreignKey:TenantID" json:"policy,omitempty"`
}

// BeforeCreate ensures UUID is set
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	return nil
}

func (Tenant) TableName() string { return "tenants" }

// TenantFilter represents filter criteria for tenant queries
type TenantFilter struct {
	ID            *uint      `json:"id,omitempty"`
	UUID          *uuid.UUID `json:"uuid,omitempty"`
	Slug          *string    `json:"slug,omitempty"`
	IsActive      *bool      `json:"is_active,omitempty"`
	CreatedAfter  *time.Time `json:"created_after,omitempty"`
	CreatedBefore *time.Time `json:"created_before,omitempty"`
}
