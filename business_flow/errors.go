// Package businessflow contains the core business logic and use cases for notification dispatch workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Tenant-related errors
	ErrTenantNotFound     = errors.New("tenant not found")
	ErrTenantInactive     = errors.New("tenant is inactive")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Category and policy errors
	ErrUnknownCategory   = errors.New("unknown event category")
	ErrPolicyNotFound    = errors.New("notification policy not found")
	ErrCategoryImmutable = errors.New("critical categories cannot be disabled")
	ErrEmptyPolicyUpdate = errors.New("at least one category must be provided for update")

	// Dispatch errors
	ErrRecipientRequired = errors.New("recipient is required")
	ErrMessageRequired   = errors.New("message is required")
	ErrMessageTooLong    = errors.New("message exceeds maximum length")
	ErrTransportRejected = errors.New("transport rejected the message")
	ErrTransportFailed   = errors.New("transport delivery failed")

	// Wallet errors
	ErrWalletNotFound          = errors.New("wallet not found")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrAmountTooLow            = errors.New("amount is too low")
	ErrBalanceSnapshotNotFound = errors.New("balance snapshot not found")

	// Filter errors
	ErrInvalidPage           = errors.New("page must be at least 1")
	ErrInvalidPageSize       = errors.New("page size must be between 1 and 100")
	ErrStartDateAfterEndDate = errors.New("start date cannot be after end date")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsTenantNotFound(err error) bool {
	return errors.Is(err, ErrTenantNotFound)
}

func IsTenantInactive(err error) bool {
	return errors.Is(err, ErrTenantInactive)
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsUnknownCategory(err error) bool {
	return errors.Is(err, ErrUnknownCategory)
}

func IsPolicyNotFound(err error) bool {
	return errors.Is(err, ErrPolicyNotFound)
}

func IsCategoryImmutable(err error) bool {
	return errors.Is(err, ErrCategoryImmutable)
}

func IsEmptyPolicyUpdate(err error) bool {
	return errors.Is(err, ErrEmptyPolicyUpdate)
}

func IsRecipientRequired(err error) bool {
	return errors.Is(err, ErrRecipientRequired)
}

func IsMessageRequired(err error) bool {
	return errors.Is(err, ErrMessageRequired)
}

func IsMessageTooLong(err error) bool {
	return errors.Is(err, ErrMessageTooLong)
}

func IsTransportRejected(err error) bool {
	return errors.Is(err, ErrTransportRejected)
}

func IsTransportFailed(err error) bool {
	return errors.Is(err, ErrTransportFailed)
}

func IsWalletNotFound(err error) bool {
	return errors.Is(err, ErrWalletNotFound)
}

func IsInsufficientFunds(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

func IsAmountTooLow(err error) bool {
	return errors.Is(err, ErrAmountTooLow)
}

func IsBalanceSnapshotNotFound(err error) bool {
	return errors.Is(err, ErrBalanceSnapshotNotFound)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}

func IsStartDateAfterEndDate(err error) bool {
	return errors.Is(err, ErrStartDateAfterEndDate)
}
