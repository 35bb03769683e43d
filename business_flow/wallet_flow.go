package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kwameosei/shulegate/app/dto"
	"github.com/kwameosei/shulegate/models"
	"github.com/kwameosei/shulegate/repository"
	"github.com/kwameosei/shulegate/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// WalletFlow handles wallet reads, top-ups and the dispatch log exports
type WalletFlow interface {
	GetBalance(ctx context.Context, req *dto.GetBalanceRequest) (*dto.BalanceResponse, error)
	TopUp(ctx context.Context, req *dto.TopUpRequest, metadata *ClientMetadata) (*dto.TopUpResponse, error)
	ListTransactions(ctx context.Context, req *dto.ListTransactionsRequest) (*dto.ListTransactionsResponse, error)
	ListDispatchLogs(ctx context.Context, req *dto.ListDispatchLogsRequest) (*dto.ListDispatchLogsResponse, error)
	ExportDispatchLogs(ctx context.Context, req *dto.ListDispatchLogsRequest) (string, []byte, error)
}

// WalletFlowImpl implements WalletFlow
type WalletFlowImpl struct {
	walletRepo      repository.WalletRepository
	snapshotRepo    repository.BalanceSnapshotRepository
	transactionRepo repository.TransactionRepository
	dispatchLogRepo repository.DispatchLogRepository
	db              *gorm.DB
}

// NewWalletFlow creates a new wallet flow instance
func NewWalletFlow(
	walletRepo repository.WalletRepository,
	snapshotRepo repository.BalanceSnapshotRepository,
	transactionRepo repository.TransactionRepository,
	dispatchLogRepo repository.DispatchLogRepository,
	db *gorm.DB,
) WalletFlow {
	return &WalletFlowImpl{
		walletRepo:      walletRepo,
		snapshotRepo:    snapshotRepo,
		transactionRepo: transactionRepo,
		dispatchLogRepo: dispatchLogRepo,
		db:              db,
	}
}

// GetBalance returns the latest balance snapshot for the tenant's wallet
func (s *WalletFlowImpl) GetBalance(ctx context.Context, req *dto.GetBalanceRequest) (*dto.BalanceResponse, error) {
	wallet, err := s.walletRepo.ByTenantID(ctx, req.TenantID)
	if err != nil {
		return nil, NewBusinessError("WALLET_LOOKUP_FAILED", "Failed to look up wallet", err)
	}
	if wallet == nil {
		return nil, NewBusinessError("WALLET_NOT_FOUND", "Wallet not found", ErrWalletNotFound)
	}

	snapshot, err := s.walletRepo.GetCurrentBalance(ctx, wallet.ID)
	if err != nil {
		return nil, NewBusinessError("BALANCE_LOOKUP_FAILED", "Failed to look up balance", err)
	}
	if snapshot == nil {
		return nil, NewBusinessError("BALANCE_SNAPSHOT_NOT_FOUND", "Balance snapshot not found", ErrBalanceSnapshotNotFound)
	}

	return &dto.BalanceResponse{
		FreeBalance:   snapshot.FreeBalance,
		FrozenBalance: snapshot.FrozenBalance,
		TotalBalance:  snapshot.TotalBalance,
		Currency:      utils.KESCurrency,
		AsOf:          snapshot.CreatedAt,
	}, nil
}

// TopUp credits the wallet. The wallet row is locked for the duration of the
// transaction so a concurrent debit cannot interleave between the balance
// read and the new snapshot.
func (s *WalletFlowImpl) TopUp(ctx context.Context, req *dto.TopUpRequest, metadata *ClientMetadata) (*dto.TopUpResponse, error) {
	if req.Amount == 0 {
		return nil, NewBusinessError("AMOUNT_TOO_LOW", "Amount must be greater than zero", ErrAmountTooLow)
	}

	wallet, err := s.walletRepo.ByTenantID(ctx, req.TenantID)
	if err != nil {
		return nil, NewBusinessError("WALLET_LOOKUP_FAILED", "Failed to look up wallet", err)
	}
	if wallet == nil {
		return nil, NewBusinessError("WALLET_NOT_FOUND", "Wallet not found", ErrWalletNotFound)
	}

	correlationID := uuid.New()
	var resp *dto.TopUpResponse

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

		balanceBefore, err := current.GetBalanceMap()
		if err != nil {
			return NewBusinessError("BALANCE_MARSHAL_FAILED", "Failed to marshal balance", err)
		}

		newSnapshot := &models.BalanceSnapshot{
			UUID:          uuid.New(),
			CorrelationID: correlationID,
			WalletID:      locked.ID,
			TenantID:      req.TenantID,
			FreeBalance:   current.FreeBalance + req.Amount,
			FrozenBalance: current.FrozenBalance,
			TotalBalance:  current.FreeBalance + req.Amount + current.FrozenBalance,
			Reason:        models.SnapshotReasonTopUp,
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

		description := "Wallet top-up"
		if req.Description != nil {
			description = *req.Description
		}

		credit := &models.Transaction{
			UUID:              uuid.New(),
			CorrelationID:     correlationID,
			WalletID:          locked.ID,
			TenantID:          req.TenantID,
			Type:              models.TransactionTypeTopUp,
			Status:            models.TransactionStatusCompleted,
			Amount:            req.Amount,
			BalanceBefore:     balanceBefore,
			BalanceAfter:      balanceAfter,
			Description:       description,
			ExternalReference: req.ExternalReference,
			Metadata:          json.RawMessage(`{}`),
			CreatedAt:         utils.UTCNow(),
			UpdatedAt:         utils.UTCNow(),
		}
		if err := s.transactionRepo.Save(txCtx, credit); err != nil {
			return NewBusinessError("TRANSACTION_SAVE_FAILED", "Failed to save credit transaction", err)
		}

		resp = &dto.TopUpResponse{
			TransactionUUID: credit.UUID.String(),
			NewBalance:      newSnapshot.FreeBalance,
			CreditedAt:      credit.CreatedAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// ListTransactions returns the tenant's transaction history, newest first
func (s *WalletFlowImpl) ListTransactions(ctx context.Context, req *dto.ListTransactionsRequest) (*dto.ListTransactionsResponse, error) {
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	txs, err := s.transactionRepo.ListByTenant(ctx, req.TenantID, limit, req.Offset)
	if err != nil {
		return nil, NewBusinessError("TRANSACTION_LIST_FAILED", "Failed to list transactions", err)
	}

	total, err := s.transactionRepo.Count(ctx, models.TransactionFilter{TenantID: &req.TenantID})
	if err != nil {
		return nil, NewBusinessError("TRANSACTION_COUNT_FAILED", "Failed to count transactions", err)
	}

	items := make([]dto.TransactionItem, 0, len(txs))
	for _, tx := range txs {
		items = append(items, ToTransactionItem(*tx))
	}

	return &dto.ListTransactionsResponse{Items: items, Total: total}, nil
}

// ListDispatchLogs returns the tenant's dispatch history applying the filter
func (s *WalletFlowImpl) ListDispatchLogs(ctx context.Context, req *dto.ListDispatchLogsRequest) (*dto.ListDispatchLogsResponse, error) {
	filter, err := buildDispatchLogFilter(req)
	if err != nil {
		return nil, err
	}

	logs, err := s.dispatchLogRepo.ListByTenant(ctx, req.TenantID, *filter)
	if err != nil {
		return nil, NewBusinessError("DISPATCH_LOG_LIST_FAILED", "Failed to list dispatch logs", err)
	}

	countFilter := *filter
	countFilter.Limit = 0
	countFilter.Offset = 0
	countFilter.TenantID = &req.TenantID
	total, err := s.dispatchLogRepo.Count(ctx, countFilter)
	if err != nil {
		return nil, NewBusinessError("DISPATCH_LOG_COUNT_FAILED", "Failed to count dispatch logs", err)
	}

	items := make([]dto.DispatchLogItem, 0, len(logs))
	for _, log := range logs {
		items = append(items, ToDispatchLogItem(*log))
	}

	return &dto.ListDispatchLogsResponse{Items: items, Total: total}, nil
}

// ExportDispatchLogs renders the filtered dispatch history as an XLSX workbook
func (s *WalletFlowImpl) ExportDispatchLogs(ctx context.Context, req *dto.ListDispatchLogsRequest) (string, []byte, error) {
	filter, err := buildDispatchLogFilter(req)
	if err != nil {
		return "", nil, err
	}
	// Exports walk the full filtered set
	filter.Limit = 0
	filter.Offset = 0

	logs, err := s.dispatchLogRepo.ListByTenant(ctx, req.TenantID, *filter)
	if err != nil {
		return "", nil, NewBusinessError("DISPATCH_LOG_LIST_FAILED", "Failed to list dispatch logs", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "dispatch_logs"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []string{"uuid", "category", "status", "recipient_name", "recipient_phone", "message", "cost", "reason", "provider_ref", "correlation_id", "created_at"}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for ri, log := range logs {
		cost := ""
		if log.Cost != nil {
			cost = strconv.FormatUint(*log.Cost, 10)
		}
		reason := ""
		if log.Reason != nil {
			reason = *log.Reason
		}
		providerRef := ""
		if log.ProviderRef != nil {
			providerRef = *log.ProviderRef
		}
		correlationID := ""
		if log.CorrelationID != nil {
			correlationID = log.CorrelationID.String()
		}
		record := []string{
			log.UUID.String(),
			string(log.Category),
			string(log.Status),
			log.RecipientName,
			log.Recipient,
			log.Message,
			cost,
			reason,
			providerRef,
			correlationID,
			log.CreatedAt.UTC().Format(time.RFC3339),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}

	filename := fmt.Sprintf("dispatch_logs_%s.xlsx", utils.UTCNow().Format("20060102_150405"))
	return filename, buf.Bytes(), nil
}

// buildDispatchLogFilter validates and converts the list request
func buildDispatchLogFilter(req *dto.ListDispatchLogsRequest) (*models.DispatchLogFilter, error) {
	filter := &models.DispatchLogFilter{
		Limit:  req.Limit,
		Offset: req.Offset,
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}

	if req.Category != nil {
		category := models.EventCategory(*req.Category)
		if !category.Valid() {
			return nil, NewBusinessErrorf("UNKNOWN_CATEGORY", "Unknown event category: %s", ErrUnknownCategory, *req.Category)
		}
		filter.Category = &category
	}
	if req.Status != nil {
		status := models.DispatchStatus(*req.Status)
		filter.Status = &status
	}
	if req.Recipient != nil {
		recipient := utils.NormalizePhone(*req.Recipient)
		filter.Recipient = &recipient
	}
	if req.From != nil && req.To != nil && req.From.After(*req.To) {
		return nil, NewBusinessError("INVALID_DATE_RANGE", "Start date cannot be after end date", ErrStartDateAfterEndDate)
	}
	filter.CreatedAfter = req.From
	filter.CreatedBefore = req.To

	return filter, nil
}
