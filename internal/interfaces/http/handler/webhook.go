package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spiceshelf/backend/internal/application/settlement"
	"github.com/spiceshelf/backend/internal/domain/billing"
	"github.com/spiceshelf/backend/internal/interfaces/http/dto"
)

// WebhookTokenHeader carries the shared secret on provider callbacks
const WebhookTokenHeader = "X-Webhook-Token"

// WebhookRequest is the provider settlement callback payload
type WebhookRequest struct {
	EventID         string     `json:"event_id" binding:"required,max=100"`
	Type            string     `json:"type" binding:"required,max=50"`
	ProviderTitleID string     `json:"provider_title_id"`
	OrderReference  string     `json:"order_reference"`
	PaidAmountCents int64      `json:"paid_amount_cents"`
	PaidAt          *time.Time `json:"paid_at"`
}

// SimulateRequest triggers a sandbox payment confirmation
type SimulateRequest struct {
	OrderNSU string `json:"order_nsu" binding:"required,max=32"`
}

// WebhookHandler receives provider settlement callbacks
type WebhookHandler struct {
	BaseHandler
	service *settlement.Service
	logger  *zap.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(service *settlement.Service, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{service: service, logger: logger}
}

// RegisterRoutes registers webhook routes
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/boleto", h.Receive)
	rg.POST("/webhooks/boleto/simulate", h.Simulate)
}

// Receive applies one provider settlement event. Replays of an event already
// processed return 200 with already_processed set.
func (h *WebhookHandler) Receive(c *gin.Context) {
	if err := h.service.VerifyWebhookToken(c.Request.Context(), c.GetHeader(WebhookTokenHeader)); err != nil {
		h.logger.Warn("webhook rejected", zap.Error(err))
		if errors.Is(err, settlement.ErrWebhookTokenMismatch) {
			h.Unauthorized(c, "Invalid webhook token")
			return
		}
		h.HandleError(c, err)
		return
	}

	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	event := &billing.WebhookEvent{
		EventID:         req.EventID,
		Type:            billing.WebhookEventType(req.Type),
		ProviderTitleID: req.ProviderTitleID,
		OrderReference:  req.OrderReference,
		PaidAmountCents: req.PaidAmountCents,
		PaidAt:          req.PaidAt,
	}

	result, err := h.service.ProcessWebhook(c.Request.Context(), event)
	if err != nil {
		h.logger.Warn("webhook processing failed",
			zap.String("event_id", req.EventID),
			zap.String("type", req.Type),
			zap.Error(err))
		switch {
		case errors.Is(err, settlement.ErrUnknownEventType):
			h.BadRequest(c, "Unknown event type")
		case errors.Is(err, settlement.ErrTitleNotFound):
			h.NotFound(c, "No payment title matches the event")
		default:
			h.HandleError(c, err)
		}
		return
	}

	h.Success(c, result)
}

// Simulate confirms payment of a sandbox title by order NSU
func (h *WebhookHandler) Simulate(c *gin.Context) {
	var req SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.service.SimulatePayment(c.Request.Context(), req.OrderNSU)
	if err != nil {
		switch {
		case errors.Is(err, settlement.ErrSimulationNotAllowed):
			h.Error(c, http.StatusForbidden, dto.ErrCodeForbidden, "Simulation is only available in sandbox")
		case errors.Is(err, settlement.ErrTitleNotFound):
			h.NotFound(c, "No payment title matches the order")
		default:
			h.HandleError(c, err)
		}
		return
	}

	h.Success(c, result)
}
