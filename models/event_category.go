// Package models contains domain entities and business models for the school messaging system
package models

// EventCategory identifies the kind of school event a notification belongs to.
// The set is closed: policy storage, the gatekeeper, and every trigger share
// this one enumeration, and anything outside it is rejected at the boundary.
type EventCategory string

const (
	CategoryFeeReminders            EventCategory = "fee_reminders"
	CategoryPaymentConfirmations    EventCategory = "payment_confirmations"
	CategoryOutstandingBalanceAlert EventCategory = "outstanding_balance_alerts"
	CategoryAttendanceClockIn       EventCategory = "attendance_clock_in"
	CategoryAttendanceClockOut      EventCategory = "attendance_clock_out"
	CategoryAbsenceAlerts           EventCategory = "absence_alerts"
	CategoryResultPublished         EventCategory = "result_published"
	CategoryGradeUpdates            EventCategory = "grade_updates"
	CategoryAssignmentReminders     EventCategory = "assignment_reminders"
	CategoryBusArrival              EventCategory = "bus_arrival"
	CategoryBusDeparture            EventCategory = "bus_departure"
	CategoryMaintenanceUpdates      EventCategory = "maintenance_updates"
	CategorySecurityAlerts          EventCategory = "security_alerts"
	CategoryGradeChangeAlerts       EventCategory = "grade_change_alerts"
)

// AllCategories lists every valid category in declaration order.
var AllCategories = []EventCategory{
	CategoryFeeReminders,
	CategoryPaymentConfirmations,
	CategoryOutstandingBalanceAlert,
	CategoryAttendanceClockIn,
	CategoryAttendanceClockOut,
	CategoryAbsenceAlerts,
	CategoryResultPublished,
	CategoryGradeUpdates,
	CategoryAssignmentReminders,
	CategoryBusArrival,
	CategoryBusDeparture,
	CategoryMaintenanceUpdates,
	CategorySecurityAlerts,
	CategoryGradeChangeAlerts,
}

// criticalCategories is the exception table for categories that must always be
// dispatched regardless of tenant configuration. It is deliberately kept apart
// from the stored policy schema so a critical category can never become
// user-disableable by a settings write.
var criticalCategories = map[EventCategory]bool{
	CategorySecurityAlerts:    true,
	CategoryGradeChangeAlerts: true,
}

// Valid reports whether the category is one of the fixed enumeration values.
func (c EventCategory) Valid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// IsCritical reports whether the category bypasses tenant policy.
func (c EventCategory) IsCritical() bool {
	return criticalCategories[c]
}

func (c EventCategory) String() string {
	return string(c)
}
