package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/maryreaky/betrix-payments/internal/domain/entity"
	domainerr "github.com/maryreaky/betrix-payments/internal/domain/error"
	coreport "github.com/maryreaky/betrix-payments/internal/domain/port/core"
	"github.com/maryreaky/betrix-payments/internal/domain/usecase/ingest"
	"github.com/maryreaky/betrix-payments/internal/infrastructure/adapter/api/dto"
)

// SignatureHeader carries the hex-encoded HMAC-SHA256 of the raw body
const SignatureHeader = "X-Webhook-Signature"

// EventIDHeader optionally carries the provider's delivery id, used for
// dedup bookkeeping in the pending-match buffer
const EventIDHeader = "X-Event-Id"

// WebhookHandler receives asynchronous provider events
type WebhookHandler struct {
	verifier *ingest.SignatureVerifier
	ingestor *ingest.Ingestor
	logger   coreport.Logger
}

// NewWebhookHandler creates a new webhook handler instance
func NewWebhookHandler(verifier *ingest.SignatureVerifier, ingestor *ingest.Ingestor, logger coreport.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifier: verifier,
		ingestor: ingestor,
		logger:   logger,
	}
}

// HandleProviderEvent handles POST /webhooks/payments. The signature gate
// short-circuits before any state can be touched; a duplicate event is
// still a 200 because acceptance is durable either way.
func (h *WebhookHandler) HandleProviderEvent(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrInvalidRequest),
			Message: "Unreadable request body",
		})
		return
	}

	if !h.verifier.Verify(raw, c.GetHeader(SignatureHeader)) {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrInvalidSignature),
			Message: "Signature verification failed",
		})
		return
	}

	var event dto.WebhookEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrInvalidRequest),
			Message: "Malformed event body",
		})
		return
	}

	eventID := c.GetHeader(EventIDHeader)
	if eventID == "" {
		eventID = uuid.NewString()
	}

	result, err := h.ingestor.Apply(c.Request.Context(), entity.ProviderEvent{
		EventID:               eventID,
		Reference:             event.Data.Reference,
		ProviderTransactionID: event.Data.ID,
		Type:                  entity.NormalizeEventType(event.Event),
		Source:                entity.SourceWebhook,
		RawPayload:            string(raw),
		SignatureValid:        true,
	})
	if err != nil {
		h.logger.Error("Webhook ingestion failed", map[string]any{
			"event_id": eventID,
			"error":    err.Error(),
		})
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Code:    domainerr.ErrorCode(domainerr.ErrInternalServer),
			Message: "Internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, dto.WebhookAck{
		Accepted: true,
		Applied:  result.Applied,
		Status:   string(result.Status),
	})
}
