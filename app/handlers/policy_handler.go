package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/kwameosei/shulegate/app/dto"
	businessflow "github.com/kwameosei/shulegate/business_flow"
)

// PolicyHandlerInterface defines the contract for policy handlers
type PolicyHandlerInterface interface {
	GetPolicy(c fiber.Ctx) error
	UpdatePolicy(c fiber.Ctx) error
}

// PolicyHandler handles notification policy HTTP requests
type PolicyHandler struct {
	policyFlow businessflow.PolicyFlow
	validator  *validator.Validate
}

// NewPolicyHandler creates a new policy handler
func NewPolicyHandler(policyFlow businessflow.PolicyFlow) *PolicyHandler {
	return &PolicyHandler{
		policyFlow: policyFlow,
		validator:  validator.New(),
	}
}

func (h *PolicyHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *PolicyHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// GetPolicy returns the tenant's notification policy switches
func (h *PolicyHandler) GetPolicy(c fiber.Ctx) error {
	tenantID, ok := c.Locals("tenant_id").(uint)
	if !ok {
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Tenant ID not found in context", "MISSING_TENANT_ID", nil)
	}

	req := dto.GetPolicyRequest{TenantID: tenantID}
	result, err := h.policyFlow.GetPolicy(h.createRequestContext(c, "/api/v1/notifications/policy"), &req)
	if err != nil {
		log.Println("Policy retrieval failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Policy retrieval failed", "POLICY_RETRIEVAL_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Policy retrieved successfully", result)
}

// UpdatePolicy applies switch changes to the tenant's notification policy
func (h *PolicyHandler) UpdatePolicy(c fiber.Ctx) error {
	var req dto.UpdatePolicyRequest
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

	result, err := h.policyFlow.UpdatePolicy(h.createRequestContext(c, "/api/v1/notifications/policy"), &req, metadata)
	if err != nil {
		if businessflow.IsUnknownCategory(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Unknown event category", "UNKNOWN_CATEGORY", nil)
		}
		if businessflow.IsEmptyPolicyUpdate(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "At least one category must be provided", "EMPTY_POLICY_UPDATE", nil)
		}

		log.Println("Policy update failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Policy update failed", "POLICY_UPDATE_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Policy updated successfully", result)
}

// createRequestContext creates a context with request-scoped values for observability and timeout
func (h *PolicyHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	ctx = context.WithValue(ctx, "request_id", c.Get("X-Request-ID"))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)
	ctx = context.WithValue(ctx, "cancel_func", cancel)

	return ctx
}
