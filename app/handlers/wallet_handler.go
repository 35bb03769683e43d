package handlers

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/kwameosei/shulegate/app/dto"
	businessflow "github.com/kwameosei/shulegate/business_flow"
	"github.com/kwameosei/shulegate/utils"
)

// WalletHandlerInterface defines the contract for wallet handlers
type WalletHandlerInterface interface {
	GetBalance(c fiber.Ctx) error
	TopUp(c fiber.Ctx) error
	ListTransactions(c fiber.Ctx) error
	ListDispatchLogs(c fiber.Ctx) error
	ExportDispatchLogs(c fiber.Ctx) error
}

// WalletHandler handles wallet and dispatch history HTTP requests
type WalletHandler struct {
	walletFlow businessflow.WalletFlow
	validator  *validator.Validate
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(walletFlow businessflow.WalletFlow) *WalletHandler {
	return &WalletHandler{
		walletFlow: walletFlow,
		validator:  validator.New(),
	}
}

func (h *WalletHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *WalletHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// GetBalance returns the tenant's current wallet balance
func (h *WalletHandler) GetBalance(c fiber.Ctx) error {
	tenantID, ok := c.Locals("tenant_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant ID not found in context", "MISSING_TENANT_ID", nil)
	}

	req := dto.GetBalanceRequest{TenantID: tenantID}
	result, err := h.walletFlow.GetBalance(h.createRequestContext(c, "/api/v1/wallet/balance"), &req)
	if err != nil {
		if businessflow.IsWalletNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Wallet not found", "WALLET_NOT_FOUND", nil)
		}

		log.Println("Balance retrieval failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Balance retrieval failed", "BALANCE_RETRIEVAL_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Balance retrieved successfully", result)
}

// TopUp credits the tenant's wallet
func (h *WalletHandler) TopUp(c fiber.Ctx) error {
	var req dto.TopUpRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	ipAddress := c.IP()
	userAgent := c.Get("User-Agent")
	metadata := businessflow.NewClientMetadata(ipAddress, userAgent)

	tenantID, ok := c.Locals("tenant_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant ID not found in context", "MISSING_TENANT_ID", nil)
	}
	req.TenantID = tenantID

	result, err := h.walletFlow.TopUp(h.createRequestContext(c, "/api/v1/wallet/top-up"), &req, metadata)
	if err != nil {
		if businessflow.IsWalletNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Wallet not found", "WALLET_NOT_FOUND", nil)
		}
		if businessflow.IsAmountTooLow(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Amount is too low", "AMOUNT_TOO_LOW", nil)
		}

		log.Println("Wallet top-up failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Wallet top-up failed", "TOP_UP_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Wallet topped up successfully", result)
}

// ListTransactions returns the tenant's transaction history
func (h *WalletHandler) ListTransactions(c fiber.Ctx) error {
	tenantID, ok := c.Locals("tenant_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant ID not found in context", "MISSING_TENANT_ID", nil)
	}

	req := dto.ListTransactionsRequest{
		TenantID: tenantID,
		Limit:    queryInt(c, "limit", 50),
		Offset:   queryInt(c, "offset", 0),
	}

	result, err := h.walletFlow.ListTransactions(h.createRequestContext(c, "/api/v1/wallet/transactions"), &req)
	if err != nil {
		log.Println("Transaction listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Transaction listing failed", "TRANSACTION_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Transactions retrieved successfully", result)
}

// ListDispatchLogs returns the tenant's dispatch history
func (h *WalletHandler) ListDispatchLogs(c fiber.Ctx) error {
	tenantID, ok := c.Locals("tenant_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant ID not found in context", "MISSING_TENANT_ID", nil)
	}

	req, err := h.parseDispatchLogQuery(c, tenantID)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "INVALID_QUERY", nil)
	}

	result, err := h.walletFlow.ListDispatchLogs(h.createRequestContext(c, "/api/v1/dispatch/logs"), req)
	if err != nil {
		if businessflow.IsUnknownCategory(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Unknown event category", "UNKNOWN_CATEGORY", nil)
		}
		if businessflow.IsStartDateAfterEndDate(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Start date cannot be after end date", "INVALID_DATE_RANGE", nil)
		}

		log.Println("Dispatch log listing failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Dispatch log listing failed", "DISPATCH_LOG_LIST_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Dispatch logs retrieved successfully", result)
}

// ExportDispatchLogs streams the tenant's dispatch history as an XLSX file
func (h *WalletHandler) ExportDispatchLogs(c fiber.Ctx) error {
	tenantID, ok := c.Locals("tenant_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant ID not found in context", "MISSING_TENANT_ID", nil)
	}

	req, err := h.parseDispatchLogQuery(c, tenantID)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "INVALID_QUERY", nil)
	}

	filename, content, err := h.walletFlow.ExportDispatchLogs(h.createRequestContext(c, "/api/v1/dispatch/logs/export"), req)
	if err != nil {
		if businessflow.IsUnknownCategory(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Unknown event category", "UNKNOWN_CATEGORY", nil)
		}

		log.Println("Dispatch log export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Dispatch log export failed", "DISPATCH_LOG_EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(content)
}

// parseDispatchLogQuery reads the shared list/export query parameters
func (h *WalletHandler) parseDispatchLogQuery(c fiber.Ctx, tenantID uint) (*dto.ListDispatchLogsRequest, error) {
	req := &dto.ListDispatchLogsRequest{
		TenantID: tenantID,
		Limit:    queryInt(c, "limit", 50),
		Offset:   queryInt(c, "offset", 0),
	}

	if category := c.Query("category"); category != "" {
		req.Category = utils.ToPtr(category)
	}
	if status := c.Query("status"); status != "" {
		req.Status = utils.ToPtr(status)
	}
	if recipient := c.Query("recipient"); recipient != "" {
		req.Recipient = utils.ToPtr(recipient)
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return nil, fmt.Errorf("from must be an RFC3339 timestamp")
		}
		req.From = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return nil, fmt.Errorf("to must be an RFC3339 timestamp")
		}
		req.To = &t
	}

	return req, nil
}

func queryInt(c fiber.Ctx, key string, def int) int {
	if raw := c.Query(key); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			return parsed
		}
	}
	return def
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *WalletHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, "request_id", c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel)

	return ctx
}
