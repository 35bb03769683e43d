package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationPolicy stores a tenant's per-category notification switches.
// One row per tenant, one boolean column per category. Critical categories
// are intentionally absent from the toggle logic: their columns exist for
// schema uniformity but the gatekeeper never consults them.
type NotificationPolicy struct {
	ID       uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UUID     uuid.UUID `gorm:"type:uuid;uniqueIndex;not null;default:gen_random_uuid()" json:"uuid"`
	TenantID uint      `gorm:"not null;uniqueIndex" json:"tenant_id"`

	FeeReminders             bool `gorm:"not null;default:true" json:"fee_reminders"`
	PaymentConfirmations     bool `gorm:"not null;default:true" json:"payment_confirmations"`
	OutstandingBalanceAlerts bool `gorm:"not null;default:true" json:"outstanding_balance_alerts"`
	AttendanceClockIn        bool `gorm:"not null;default:true" json:"attendance_clock_in"`
	AttendanceClockOut       bool `gorm:"not null;default:true" json:"attendance_clock_out"`
	AbsenceAlerts            bool `gorm:"not null;default:true" json:"absence_alerts"`
	ResultPublished          bool `gorm:"not null;default:true" json:"result_published"`
	GradeUpdates             bool `gorm:"not null;default:true" json:"grade_updates"`
	AssignmentReminders      bool `gorm:"not null;default:true" json:"assignment_reminders"`
	BusArrival               bool `gorm:"not null;default:true" json:"bus_arrival"`
	BusDeparture             bool `gorm:"not null;default:true" json:"bus_departure"`
	MaintenanceUpdates       bool `gorm:"not null;default:true" json:"maintenance_updates"`
	SecurityAlerts           bool `gorm:"not null;default:true" json:"security_alerts"`
	GradeChangeAlerts        bool `gorm:"not null;default:true" json:"grade_change_alerts"`

	// Audit fields
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Relationships
	Tenant Tenant `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE" json:"tenant,omitempty"`
}

// BeforeCreate ensures UUID is set
func (p *NotificationPolicy) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == uuid.Nil {
		p.UUID = uuid.New()
	}
	return nil
}

func (NotificationPolicy) TableName() string { return "notification_policies" }

// Enabled reports whether the stored policy allows the given category.
// Unknown categories are disabled; callers should validate first.
func (p *NotificationPolicy) Enabled(category EventCategory) bool {
	switch category {
	case CategoryFeeReminders:
		return p.FeeReminders
	case CategoryPaymentConfirmations:
		return p.PaymentConfirmations
	case CategoryOutstandingBalanceAlert:
		return p.OutstandingBalanceAlerts
	case CategoryAttendanceClockIn:
		return p.AttendanceClockIn
	case CategoryAttendanceClockOut:
		return p.AttendanceClockOut
	case CategoryAbsenceAlerts:
		return p.AbsenceAlerts
	case CategoryResultPublished:
		return p.ResultPublished
	case CategoryGradeUpdates:
		return p.GradeUpdates
	case CategoryAssignmentReminders:
		return p.AssignmentReminders
	case CategoryBusArrival:
		return p.BusArrival
	case CategoryBusDeparture:
		return p.BusDeparture
	case CategoryMaintenanceUpdates:
		return p.MaintenanceUpdates
	case CategorySecurityAlerts:
		return p.SecurityAlerts
	case CategoryGradeChangeAlerts:
		return p.GradeChangeAlerts
	default:
		return false
	}
}

// Set updates the switch for the given category. Returns false for unknown
// categories so callers can reject them.
func (p *NotificationPolicy) Set(category EventCategory, enabled bool) bool {
	switch category {
	case CategoryFeeReminders:
		p.FeeReminders = enabled
	case CategoryPaymentConfirmations:
		p.PaymentConfirmations = enabled
	case CategoryOutstandingBalanceAlert:
		p.OutstandingBalanceAlerts = enabled
	case CategoryAttendanceClockIn:
		p.AttendanceClockIn = enabled
	case CategoryAttendanceClockOut:
		p.AttendanceClockOut = enabled
	case CategoryAbsenceAlerts:
		p.AbsenceAlerts = enabled
	case CategoryResultPublished:
		p.ResultPublished = enabled
	case CategoryGradeUpdates:
		p.GradeUpdates = enabled
	case CategoryAssignmentReminders:
		p.AssignmentReminders = enabled
	case CategoryBusArrival:
		p.BusArrival = enabled
	case CategoryBusDeparture:
		p.BusDeparture = enabled
	case CategoryMaintenanceUpdates:
		p.MaintenanceUpdates = enabled
	case CategorySecurityAlerts:
		p.SecurityAlerts = enabled
	case CategoryGradeChangeAlerts:
		p.GradeChangeAlerts = enabled
	default:
		return false
	}
	return true
}

// AsMap returns the policy switches keyed by category.
func (p *NotificationPolicy) AsMap() map[EventCategory]bool {
	out := make(map[EventCategory]bool, len(AllCategories))
	for _, c := range AllCategories {
		out[c] = p.Enabled(c)
	}
	return out
}

// DefaultPolicy returns a policy with every category enabled for the tenant.
func DefaultPolicy(tenantID uint) *NotificationPolicy {
	p := &NotificationPolicy{TenantID: tenantID}
	for _, c := range AllCategories {
		p.Set(c, true)
	}
	return p
}

// NotificationPolicyFilter represents filter criteria for policy queries
type NotificationPolicyFilter struct {
	ID       *uint      `json:"id,omitempty"`
	UUID     *uuid.UUID `json:"uuid,omitempty"`
	TenantID *uint      `json:"tenant_id,omitempty"`
}
