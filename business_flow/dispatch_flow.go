package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/kwameosei/shulegate/app/dto"
	"github.com/kwameosei/shulegate/app/services"
	"github.com/kwameosei/shulegate/config"
	"github.com/kwameosei/shulegate/models"
	"github.com/kwameosei/shulegate/repository"
	"github.com/kwameosei/shulegate/utils"
	"gorm.io/gorm"
)

// DispatchFlow is the gatekeeper every outbound notification passes through.
// It resolves the tenant, applies the policy and the critical-category
// exception, prechecks the wallet, hands the message to the transport, and
// on acceptance debits the wallet and records the sent log in one
// transaction. The wallet lock is never held across the transport call.
type DispatchFlow interface {
	Dispatch(ctx context.Context, req *dto.DispatchRequest, metadata *ClientMetadata) (*dto.DispatchResponse, error)
}

// DispatchFlowImpl implements DispatchFlow
type DispatchFlowImpl struct {
	tenantRepo      repository.TenantRepository
	walletRepo      repository.WalletRepository
	snapshotRepo    repository.BalanceSnapshotRepository
	transactionRepo repository.TransactionRepository
	dispatchLogRepo repository.DispatchLogRepository
	policyFlow      PolicyFlow
	transport       services.TransportService
	dispatchConfig  *config.DispatchConfig
	db              *gorm.DB
}

// NewDispatchFlow creates a new dispatch flow instance
func NewDispatchFlow(
	tenantRepo repository.TenantRepository,
	walletRepo repository.WalletRepository,
	snapshotRepo repository.BalanceSnapshotRepository,
	transactionRepo repository.TransactionRepository,
	dispatchLogRepo repository.DispatchLogRepository,
	policyFlow PolicyFlow,
	transport services.TransportService,
	dispatchConfig *config.DispatchConfig,
	db *gorm.DB,
) DispatchFlow {
	return &DispatchFlowImpl{
		tenantRepo:      tenantRepo,
		walletRepo:      walletRepo,
		snapshotRepo:    snapshotRepo,
		transactionRepo: transactionRepo,
		dispatchLogRepo: dispatchLogRepo,
		policyFlow:      policyFlow,
		transport:       transport,
		dispatchConfig:  dispatchConfig,
		db:              db,
	}
}

// Dispatch runs one message through the gate and returns its terminal outcome.
// Skipped and failed outcomes are responses, not errors; an error return means
// the request itself was invalid or a storage operation broke.
func (s *DispatchFlowImpl) Dispatch(ctx context.Context, req *dto.DispatchRequest, metadata *ClientMetadata) (*dto.DispatchResponse, error) {
	category := models.EventCategory(req.Category)
	if !category.Valid() {
		return nil, NewBusinessErrorf("UNKNOWN_CATEGORY", "Unknown event category: %s", ErrUnknownCategory, req.Category)
	}

	if req.Recipient == "" {
		return nil, NewBusinessError("RECIPIENT_REQUIRED", "Recipient is required", ErrRecipientRequired)
	}
	if req.Message == "" {
		return nil, NewBusinessError("MESSAGE_REQUIRED", "Message is required", ErrMessageRequired)
	}
	if len(req.Message) > utils.MaxMessageLength {
		return nil, NewBusinessError("MESSAGE_TOO_LONG", "Message exceeds maximum length", ErrMessageTooLong)
	}

	tenant, err := s.tenantRepo.ByID(ctx, req.TenantID)
	if err != nil {
		return nil, NewBusinessError("TENANT_LOOKUP_FAILED", "Failed to look up tenant", err)
	}
	if tenant == nil {
		return nil, NewBusinessError("TENANT_NOT_FOUND", "Tenant not found", ErrTenantNotFound)
	}
	if !utils.IsTrue(tenant.IsActive) {
		return nil, NewBusinessError("TENANT_INACTIVE", "Tenant is inactive", ErrTenantInactive)
	}

	recipient := utils.NormalizePhone(req.Recipient)

	// Critical categories bypass the stored policy entirely.
	if !category.IsCritical() {
		enabled, err := s.policyFlow.IsEnabled(ctx, tenant.ID, category)
		if err != nil {
			return nil, NewBusinessError("POLICY_LOOKUP_FAILED", "Failed to look up notification policy", err)
		}
		if !enabled {
			reason := models.SkipReasonUserConfigDisabled
			s.recordSkip(ctx, req, tenant.ID, category, recipient)
			return &dto.DispatchResponse{
				Status:    string(models.DispatchStatusSkipped),
				Category:  string(category),
				Recipient: recipient,
				Reason:    &reason,
			}, nil
		}
	}

	wallet, err := s.walletRepo.ByTenantID(ctx, tenant.ID)
	if err != nil {
		return nil, NewBusinessError("WALLET_LOOKUP_FAILED", "Failed to look up wallet", err)
	}
	if wallet == nil {
		return nil, NewBusinessError("WALLET_NOT_FOUND", "Wallet not found", ErrWalletNotFound)
	}

	cost := s.dispatchConfig.MessageCost

	// Precheck before touching the transport. A wallet that cannot cover one
	// message fails fast without a provider call.
	balance, err := s.walletRepo.GetCurrentBalance(ctx, wallet.ID)
	if err != nil {
		return nil, NewBusinessError("BALANCE_LOOKUP_FAILED", "Failed to look up balance", err)
	}
	if balance == nil {
		return nil, NewBusinessError("BALANCE_SNAPSHOT_NOT_FOUND", "Balance snapshot not found", ErrBalanceSnapshotNotFound)
	}
	if balance.FreeBalance < cost {
		return s.recordFailure(ctx, req, tenant.ID, category, recipient, models.FailureReasonInsufficientFunds, &cost, nil, "")
	}

	receipt, err := s.transport.Send(ctx, recipient, req.Message)
	if err != nil {
		// The raw transport error is part of the audit trail.
		return s.recordFailure(ctx, req, tenant.ID, category, recipient, models.FailureReasonTransportError, nil, nil, err.Error())
	}
	if !receipt.Accepted {
		return s.recordFailure(ctx, req, tenant.ID, category, recipient, models.FailureReasonTransportRejected, nil, nil, receipt.Status)
	}

	// Transport accepted the message. Debit the wallet, append a snapshot and
	// write the sent log in one transaction, all sharing a correlation id.
	// The wallet row lock serializes concurrent debits; the balance is
	// rechecked under the lock because another dispatch may have drained the
	// wallet between the precheck and here.
	correlationID := uuid.New()
	var resp *dto.DispatchResponse

	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		locked, err := s.walletRepo.LockForUpdate(txCtx, wallet.ID)
		if err != nil {
			return NewBusinessError("WALLET_LOCK_FAILED", "Failed to lock wallet", err)
		}
		if locked == nil {
			return NewBusinessError("WALLET_NOT_FOUND", "Wallet not found", ErrWalletNotFound)
		}

		current, err := s.walletRepo.GetCurrentBalance(txCtx, locked.ID)
		if err != nil {
			return NewBusinessError("BALANCE_LOOKUP_FAILED", "Failed to look up balance", err)
		}
		if current == nil {
			return NewBusinessError("BALANCE_SNAPSHOT_NOT_FOUND", "Balance snapshot not found", ErrBalanceSnapshotNotFound)
		}
		if current.FreeBalance < cost {
			// Another dispatch won the race. The message already left through
			// the transport, but the wallet cannot be charged; record the
			// failure and keep the ledger consistent.
			failedLog := s.newLog(req, tenant.ID, category, recipient, models.DispatchStatusFailed, "")
			reason := models.FailureReasonInsufficientFunds
			failedLog.Reason = &reason
			failedLog.Cost = &cost
			failedLog.CorrelationID = &correlationID
			if err := s.dispatchLogRepo.Save(txCtx, failedLog); err != nil {
				return NewBusinessError("DISPATCH_LOG_FAILED", "Failed to record dispatch log", err)
			}
			resp = &dto.DispatchResponse{
				Status:    string(models.DispatchStatusFailed),
				Category:  string(category),
				Recipient: recipient,
				Cost:      &cost,
				Reason:    &reason,
			}
			return nil
		}

		balanceBefore, err := current.GetBalanceMap()
		if err != nil {
			return NewBusinessError("BALANCE_MARSHAL_FAILED", "Failed to marshal balance", err)
		}

		newSnapshot := &models.BalanceSnapshot{
			UUID:          uuid.New(),
			CorrelationID: correlationID,
			WalletID:      locked.ID,
			TenantID:      tenant.ID,
			FreeBalance:   current.FreeBalance - cost,
			FrozenBalance: current.FrozenBalance,
			TotalBalance:  current.FreeBalance - cost + current.FrozenBalance,
			Reason:        models.SnapshotReasonDebit,
			Metadata:      json.RawMessage(`{}`),
			CreatedAt:     utils.UTCNow(),
			UpdatedAt:     utils.UTCNow(),
		}
		if err := s.snapshotRepo.Save(txCtx, newSnapshot); err != nil {
			return NewBusinessError("SNAPSHOT_SAVE_FAILED", "Failed to save balance snapshot", err)
		}

		balanceAfter, err := newSnapshot.GetBalanceMap()
		if err != nil {
			return NewBusinessError("BALANCE_MARSHAL_FAILED", "Failed to marshal balance", err)
		}

		debit := &models.Transaction{
			UUID:          uuid.New(),
			CorrelationID: correlationID,
			WalletID:      locked.ID,
			TenantID:      tenant.ID,
			Type:          models.TransactionTypeDebit,
			Status:        models.TransactionStatusCompleted,
			Amount:        cost,
			BalanceBefore: balanceBefore,
			BalanceAfter:  balanceAfter,
			Description:   fmt.Sprintf("Message debit for %s", category),
			Metadata:      json.RawMessage(`{}`),
			CreatedAt:     utils.UTCNow(),
			UpdatedAt:     utils.UTCNow(),
		}
		if err := s.transactionRepo.Save(txCtx, debit); err != nil {
			return NewBusinessError("TRANSACTION_SAVE_FAILED", "Failed to save debit transaction", err)
		}

		sentLog := s.newLog(req, tenant.ID, category, recipient, models.DispatchStatusSent, "")
		sentLog.Cost = &cost
		sentLog.ProviderRef = &receipt.ProviderRef
		sentLog.CorrelationID = &correlationID
		if err := s.dispatchLogRepo.Save(txCtx, sentLog); err != nil {
			return NewBusinessError("DISPATCH_LOG_FAILED", "Failed to record dispatch log", err)
		}

		now := utils.UTCNow()
		corrStr := correlationID.String()
		resp = &dto.DispatchResponse{
			Status:        string(models.DispatchStatusSent),
			Category:      string(category),
			Recipient:     recipient,
			Cost:          &cost,
			ProviderRef:   &receipt.ProviderRef,
			CorrelationID: &corrStr,
			DispatchedAt:  &now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// recordSkip writes a skipped log row. It is best effort: a failed write is
// logged locally and ignored because skipping a disabled category must never
// fail the caller.
func (s *DispatchFlowImpl) recordSkip(ctx context.Context, req *dto.DispatchRequest, tenantID uint, category models.EventCategory, recipient string) {
	skipLog := s.newLog(req, tenantID, category, recipient, models.DispatchStatusSkipped, "")
	reason := models.SkipReasonUserConfigDisabled
	skipLog.Reason = &reason
	if err := s.dispatchLogRepo.Save(ctx, skipLog); err != nil {
		log.Printf("Failed to record skip log for tenant %d category %s: %v", tenantID, category, err)
	}
}

// recordFailure writes a failed log row and builds the failed response.
// detail preserves the raw transport answer for audit.
func (s *DispatchFlowImpl) recordFailure(ctx context.Context, req *dto.DispatchRequest, tenantID uint, category models.EventCategory, recipient, reason string, cost *uint64, providerRef *string, detail string) (*dto.DispatchResponse, error) {
	failedLog := s.newLog(req, tenantID, category, recipient, models.DispatchStatusFailed, detail)
	failedLog.Reason = &reason
	failedLog.Cost = cost
	failedLog.ProviderRef = providerRef
	if err := s.dispatchLogRepo.Save(ctx, failedLog); err != nil {
		return nil, NewBusinessError("DISPATCH_LOG_FAILED", "Failed to record dispatch log", err)
	}

	resp := &dto.DispatchResponse{
		Status:      string(models.DispatchStatusFailed),
		Category:    string(category),
		Recipient:   recipient,
		Cost:        cost,
		Reason:      &reason,
		ProviderRef: providerRef,
	}
	if detail != "" {
		resp.Detail = &detail
	}
	return resp, nil
}

// newLog builds a dispatch log row carrying the request's audit context.
// A non-empty transportDetail is added to the metadata under transport_detail.
func (s *DispatchFlowImpl) newLog(req *dto.DispatchRequest, tenantID uint, category models.EventCategory, recipient string, status models.DispatchStatus, transportDetail string) *models.DispatchLog {
	return &models.DispatchLog{
		UUID:          uuid.New(),
		TenantID:      tenantID,
		Category:      category,
		Status:        status,
		RecipientName: req.RecipientName,
		Recipient:     recipient,
		Message:       req.Message,
		Metadata:      dispatchMetadata(req.Metadata, transportDetail),
		CreatedAt:     utils.UTCNow(),
		UpdatedAt:     utils.UTCNow(),
	}
}

// dispatchMetadata marshals the request metadata for the log row, folding in
// the raw transport detail when present
func dispatchMetadata(md map[string]string, transportDetail string) json.RawMessage {
	if len(md) == 0 && transportDetail == "" {
		return json.RawMessage(`{}`)
	}

	merged := make(map[string]string, len(md)+1)
	for k, v := range md {
		merged[k] = v
	}
	if transportDetail != "" {
		merged["transport_detail"] = transportDetail
	}

	bs, err := json.Marshal(merged)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return bs
}
