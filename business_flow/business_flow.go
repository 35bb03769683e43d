// Package businessflow contains the business logic for the application.
package businessflow

import (
	"github.com/kwameosei/shulegate/app/dto"
	"github.com/kwameosei/shulegate/models"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToDispatchLogItem converts a dispatch log model to its response DTO
func ToDispatchLogItem(log models.DispatchLog) dto.DispatchLogItem {
	item := dto.DispatchLogItem{
		UUID:          log.UUID.String(),
		Category:      string(log.Category),
		Status:        string(log.Status),
		RecipientName: log.RecipientName,
		Recipient:     log.Recipient,
		Message:       log.Message,
		Cost:          log.Cost,
		Reason:        log.Reason,
		ProviderRef:   log.ProviderRef,
		Metadata:      log.Metadata,
		CreatedAt:     log.CreatedAt,
	}
	if log.CorrelationID != nil {
		s := log.CorrelationID.String()
		item.CorrelationID = &s
	}
	return item
}

// ToTransactionItem converts a transaction model to its response DTO
func ToTransactionItem(tx models.Transaction) dto.TransactionItem {
	return dto.TransactionItem{
		UUID:          tx.UUID.String(),
		Type:          string(tx.Type),
		Status:        string(tx.Status),
		Amount:        tx.Amount,
		Description:   tx.Description,
		CorrelationID: tx.CorrelationID.String(),
		CreatedAt:     tx.CreatedAt,
	}
}
