// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/kwameosei/shulegate/app/dto"
	"github.com/kwameosei/shulegate/app/middleware"
	businessflow "github.com/kwameosei/shulegate/business_flow"
)

// DispatchHandlerInterface defines the contract for dispatch handlers
type DispatchHandlerInterface interface {
	Dispatch(c fiber.Ctx) error
}

// DispatchHandler handles notification dispatch HTTP requests
type DispatchHandler struct {
	dispatchFlow businessflow.DispatchFlow
	validator    *validator.Validate
}

// NewDispatchHandler creates a new dispatch handler
func NewDispatchHandler(dispatchFlow businessflow.DispatchFlow) *DispatchHandler {
	return &DispatchHandler{
		dispatchFlow: dispatchFlow,
		validator:    validator.New(),
	}
}

func (h *DispatchHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *DispatchHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Dispatch handles a single outbound notification request
func (h *DispatchHandler) Dispatch(c fiber.Ctx) error {
	var req dto.DispatchRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	// Validate request
	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	// Get client information
	ipAddress := c.IP()
	userAgent := c.Get("User-Agent")
	metadata := businessflow.NewClientMetadata(ipAddress, userAgent)

	// Get authenticated tenant ID from context
	tenantID, ok := c.Locals("tenant_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant ID not found in context", "MISSING_TENANT_ID", nil)
	}
	req.TenantID = tenantID

	result, err := h.dispatchFlow.Dispatch(h.createRequestContext(c, "/api/v1/dispatch"), &req, metadata)
	if err != nil {
		if businessflow.IsUnknownCategory(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Unknown event category", "UNKNOWN_CATEGORY", nil)
		}
		if businessflow.IsRecipientRequired(err) || businessflow.IsMessageRequired(err) || businessflow.IsMessageTooLong(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, err.Error(), "VALIDATION_ERROR", nil)
		}
		if businessflow.IsTenantNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant not found", "TENANT_NOT_FOUND", nil)
		}
		if businessflow.IsTenantInactive(err) {
			return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant is inactive", "TENANT_INACTIVE", nil)
		}
		if businessflow.IsWalletNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Wallet not found", "WALLET_NOT_FOUND", nil)
		}

		log.Println("Dispatch failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Dispatch failed", "DISPATCH_FAILED", nil)
	}

	var cost uint64
	if result.Cost != nil && result.Status == "sent" {
		cost = *result.Cost
	}
	middleware.RecordDispatchOutcome(result.Category, result.Status, cost)

	return h.SuccessResponse(c, fiber.StatusOK, "Dispatch processed", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *DispatchHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, "request_id", c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel)

	return ctx
}
