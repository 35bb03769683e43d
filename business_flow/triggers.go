package businessflow

import (
	"context"
	"fmt"

	"github.com/kwameosei/shulegate/app/dto"
	"github.com/kwameosei/shulegate/models"
	"github.com/kwameosei/shulegate/utils"
)

// Triggers offers typed entry points for the school events that produce
// notifications. Each helper formats the message for its category, attaches
// the event context as audit metadata, and runs it through the gatekeeper;
// callers never pick a category by hand.
type Triggers struct {
	dispatchFlow DispatchFlow
}

// NewTriggers creates the trigger helpers around a dispatch flow
func NewTriggers(dispatchFlow DispatchFlow) *Triggers {
	return &Triggers{dispatchFlow: dispatchFlow}
}

func (t *Triggers) dispatch(ctx context.Context, tenantID uint, category models.EventCategory, recipientName, recipient, message string, metadata map[string]string) (*dto.DispatchResponse, error) {
	return t.dispatchFlow.Dispatch(ctx, &dto.DispatchRequest{
		TenantID:      tenantID,
		Category:      string(category),
		RecipientName: recipientName,
		Recipient:     recipient,
		Message:       message,
		Metadata:      metadata,
	}, nil)
}

// eventMetadata builds the audit context written to the dispatch log
func eventMetadata(action, studentName string) map[string]string {
	md := map[string]string{
		"action":    action,
		"timestamp": utils.UTCNowRFC3339(),
	}
	if studentName != "" {
		md["student_name"] = studentName
	}
	return md
}

// FeeReminder notifies a guardian about an upcoming fee deadline
func (t *Triggers) FeeReminder(ctx context.Context, tenantID uint, guardianName, guardianPhone, studentName string, amountDue uint64, dueDate string) (*dto.DispatchResponse, error) {
	msg := fmt.Sprintf("Fee reminder for %s: KES %d.%02d due by %s.", studentName, amountDue/100, amountDue%100, dueDate)
	md := eventMetadata("fee_reminder", studentName)
	md["due_date"] = dueDate
	return t.dispatch(ctx, tenantID, models.CategoryFeeReminders, guardianName, guardianPhone, msg, md)
}

// PaymentConfirmation acknowledges a received fee payment
func (t *Triggers) PaymentConfirmation(ctx context.Context, tenantID uint, guardianName, guardianPhone, studentName string, amount uint64, receiptNo string) (*dto.DispatchResponse, error) {
	msg := fmt.Sprintf("Payment of KES %d.%02d received for %s. Receipt %s.", amount/100, amount%100, studentName, receiptNo)
	md := eventMetadata("payment_confirmation", studentName)
	md["receipt_no"] = receiptNo
	return t.dispatch(ctx, tenantID, models.CategoryPaymentConfirmations, guardianName, guardianPhone, msg, md)
}

// OutstandingBalanceAlert warns a guardian about an unpaid balance
func (t *Triggers) OutstandingBalanceAlert(ctx context.Context, tenantID uint, guardianName, guardianPhone, studentName string, balance uint64) (*dto.DispatchResponse, error) {
	msg := fmt.Sprintf("Outstanding balance of KES %d.%02d for %s. Please settle at your earliest convenience.", balance/100, balance%100, studentName)
	return t.dispatch(ctx, tenantID, models.CategoryOutstandingBalanceAlert, guardianName, guardianPhone, msg, eventMetadata("outstanding_balance_alert", studentName))
}

// AttendanceClockIn reports a student's arrival
func (t *Triggers) AttendanceClockIn(ctx context.Context, tenantID uint, guardianName, guardianPhone, studentName, clockTime string) (*dto.DispatchResponse, error) {
	msg := fmt.Sprintf("%s arrived at school at %s.", studentName, clockTime)
	return t.dispatch(ctx, tenantID, models.CategoryAttendanceClockIn, guardianName, guardianPhone, msg, eventMetadata("clock_in", studentName))
}

// AttendanceClockOut reports a student's departure
func (t *Triggers) AttendanceClockOut(ctx context.Context, tenantID uint, guardianName, guardianPhone, studentName, clockTime string) (*dto.DispatchResponse, error) {
	msg := fmt.Sprintf("%s left school at %s.", studentName, clockTime)
	return t.dispatch(ctx, tenantID, models.CategoryAttendanceClockOut, guardianName, guardianPhone, msg, eventMetadata("clock_out", studentName))
}

// AbsenceAlert reports an unexplained absence
func (t *Triggers) AbsenceAlert(ctx context.Context, tenantID uint, guardianName, guardianPhone, studentName, date string) (*dto.DispatchResponse, error) {
	msg := fmt.Sprintf("%s was marked absent on %s. Contact the school office if this is unexpected.", studentName, date)
	return t.dispatch(ctx, tenantID, models.CategoryAbsenceAlerts, guardianName, guardianPhone, msg, eventMetadata("absence_alert", studentName))
}

// ResultPublished announces released exam results
func (t *Triggers) ResultPublished(ctx context.Context, tenantID uint, guardianName, guardianPhone, studentName, examName string) (*dto.DispatchResponse, error) {
	msg := fmt.Sprintf("Results for %s are now available for %s. Log in to the portal to view them.", examName, studentName)
	md := eventMetadata("result_published", studentName)
	md["exam"] = examName
	return t.dispatch(ctx, tenantID, models.CategoryResultPublished, guardianName, guardianPhone, msg, md)
}

// GradeUpdate reports a routine grade entry
func (t *Triggers) GradeUpdate(ctx context.Context, tenantID uint, guardianName, guardianPhone, studentName, subject, grade string) (*dto.DispatchResponse, error) {
	msg := fmt.Sprintf("New grade recorded for %s: %s in %s.", studentName, grade, subject)
	md := eventMetadata("grade_update", studentName)
	md["subject"] = subject
	return t.dispatch(ctx, tenantID, models.CategoryGradeUpdates, guardianName, guardianPhone, msg, md)
}

// AssignmentReminder reminds about an assignment due date
func (t *Triggers) AssignmentReminder(ctx context.Context, tenantID uint, guardianName, guardianPhone, studentName, subject, dueDate string) (*dto.DispatchResponse, error) {
	msg := fmt.Sprintf("Reminder: %s has a %s assignment due on %s.", studentName, subject, dueDate)
	md := eventMetadata("assignment_reminder", studentName)
	md["subject"] = subject
	md["due_date"] = dueDate
	return t.dispatch(ctx, tenantID, models.CategoryAssignmentReminders, guardianName, guardianPhone, msg, md)
}

// BusArrival reports the school bus arriving at a stop
func (t *Triggers) BusArrival(ctx context.Context, tenantID uint, guardianName, guardianPhone, routeName, stopName string) (*dto.DispatchResponse, error) {
	msg := fmt.Sprintf("Bus %s has arrived at %s.", routeName, stopName)
	md := eventMetadata("bus_arrival", "")
	md["route"] = routeName
	md["stop"] = stopName
	return t.dispatch(ctx, tenantID, models.CategoryBusArrival, guardianName, guardianPhone, msg, md)
}

// BusDeparture reports the school bus leaving a stop
func (t *Triggers) BusDeparture(ctx context.Context, tenantID uint, guardianName, guardianPhone, routeName, stopName string) (*dto.DispatchResponse, error) {
	msg := fmt.Sprintf("Bus %s has departed from %s.", routeName, stopName)
	md := eventMetadata("bus_departure", "")
	md["route"] = routeName
	md["stop"] = stopName
	return t.dispatch(ctx, tenantID, models.CategoryBusDeparture, guardianName, guardianPhone, msg, md)
}

// MaintenanceUpdate announces facility maintenance affecting families
func (t *Triggers) MaintenanceUpdate(ctx context.Context, tenantID uint, guardianName, guardianPhone, details string) (*dto.DispatchResponse, error) {
	msg := fmt.Sprintf("Maintenance notice: %s", details)
	return t.dispatch(ctx, tenantID, models.CategoryMaintenanceUpdates, guardianName, guardianPhone, msg, eventMetadata("maintenance_update", ""))
}

// SecurityAlert sends a critical safety notification. Always dispatched
// regardless of the tenant's policy.
func (t *Triggers) SecurityAlert(ctx context.Context, tenantID uint, guardianName, guardianPhone, details string) (*dto.DispatchResponse, error) {
	msg := fmt.Sprintf("SECURITY ALERT: %s", details)
	return t.dispatch(ctx, tenantID, models.CategorySecurityAlerts, guardianName, guardianPhone, msg, eventMetadata("security_alert", ""))
}

// GradeChangeAlert reports a retroactive grade correction. Always dispatched
// regardless of the tenant's policy.
func (t *Triggers) GradeChangeAlert(ctx context.Context, tenantID uint, guardianName, guardianPhone, studentName, subject, oldGrade, newGrade string) (*dto.DispatchResponse, error) {
	msg := fmt.Sprintf("Grade correction for %s: %s changed from %s to %s.", studentName, subject, oldGrade, newGrade)
	md := eventMetadata("grade_change_alert", studentName)
	md["subject"] = subject
	md["old_grade"] = oldGrade
	md["new_grade"] = newGrade
	return t.dispatch(ctx, tenantID, models.CategoryGradeChangeAlerts, guardianName, guardianPhone, msg, md)
}
