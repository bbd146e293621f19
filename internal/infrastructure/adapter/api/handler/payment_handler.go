package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainerr "github.com/maryreaky/betrix-payments/internal/domain/error"
	coreport "github.com/maryreaky/betrix-payments/internal/domain/port/core"
	"github.com/maryreaky/betrix-payments/internal/domain/port/persistence"
	"github.com/maryreaky/betrix-payments/internal/domain/usecase/order"
	"github.com/maryreaky/betrix-payments/internal/infrastructure/adapter/api/dto"
)

// PaymentHandler handles payment initiation and status lookups
type PaymentHandler struct {
	initiator   *order.Initiator
	repo        persistence.TransactionRepository
	logger      coreport.Logger
	callbackURL string
}

// NewPaymentHandler creates a new payment handler instance
func NewPaymentHandler(initiator *order.Initiator, repo persistence.TransactionRepository, logger coreport.Logger, callbackURL string) *PaymentHandler {
	return &PaymentHandler{
		initiator:   initiator,
		repo:        repo,
		logger:      logger,
		callbackURL: callbackURL,
	}
}

// Initiate handles POST /payments
func (h *PaymentHandler) Initiate(c *gin.Context) {
	var req dto.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrInvalidRequest),
			Message: "Invalid request format: " + err.Error(),
		})
		return
	}

	result, err := h.initiator.Initiate(c.Request.Context(), order.InitiateRequest{
		Amount:      req.Amount.String(),
		Phone:       req.Phone,
		Currency:    req.Currency,
		Reference:   req.Reference,
		CallbackURL: h.callbackURL,
	})
	if err != nil {
		h.respondInitiateError(c, err)
		return
	}

	txn := result.Transaction
	c.JSON(http.StatusCreated, dto.InitiatePaymentResponse{
		Reference:    txn.Reference,
		Status:       string(txn.Status),
		Amount:       txn.Amount,
		Currency:     txn.Currency,
		Instructions: result.Instructions,
	})
}

// GetByReference handles GET /payments/:reference
func (h *PaymentHandler) GetByReference(c *gin.Context) {
	reference := c.Param("reference")

	txn, err := h.repo.GetByReference(c.Request.Context(), reference)
	if err != nil {
		if errors.Is(err, domainerr.ErrTransactionNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{
				Code:    domainerr.ErrorCode(err),
				Message: "Transaction not found",
			})
			return
		}
		h.logger.Error("Failed to load transaction", map[string]any{
			"reference": reference,
			"error":     err.Error(),
		})
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrInternalServer),
			Message: "Internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, dto.TransactionResponse{
		Reference:             txn.Reference,
		ProviderTransactionID: txn.ProviderTransactionID,
		Amount:                txn.Amount,
		Currency:              txn.Currency,
		Phone:                 txn.Phone,
		Status:                string(txn.Status),
		Attempts:              txn.Attempts,
		CreatedAt:             txn.CreatedAt,
		UpdatedAt:             txn.UpdatedAt,
		FailureReason:         txn.FailureReason,
	})
}

func (h *PaymentHandler) respondInitiateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainerr.ErrInvalidAmount),
		errors.Is(err, domainerr.ErrNegativeAmount),
		errors.Is(err, domainerr.ErrInvalidPhone),
		errors.Is(err, domainerr.ErrInvalidReference):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(err),
			Message: err.Error(),
		})
	case errors.Is(err, domainerr.ErrDuplicateReference):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(err),
			Message: err.Error(),
		})
	default:
		if _, ok := domainerr.AsProviderError(err); ok {
			// the transaction is recorded as FAILED; surface the rejection
			c.JSON(http.StatusBadGateway, dto.ErrorResponse{
				Code:    domainerr.CodeProviderFailure,
				Message: err.Error(),
			})
			return
		}
		h.logger.Error("Initiation failed", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrInternalServer),
			Message: "Internal server error",
		})
	}
}
