package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spiceshelf/backend/internal/application/checkout"
)

// CheckoutHandler exposes the storefront boleto checkout endpoint
type CheckoutHandler struct {
	BaseHandler
	service *checkout.Service
	logger  *zap.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(service *checkout.Service, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: service, logger: logger}
}

// RegisterRoutes registers checkout routes
func (h *CheckoutHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/checkout/boleto", h.PlaceOrder)
}

// PlaceOrder creates an order and issues its boleto. Retries with the same
// order_id return the title already issued for it.
func (h *CheckoutHandler) PlaceOrder(c *gin.Context) {
	var req checkout.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	resp, err := h.service.PlaceOrder(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("boleto checkout failed",
			zap.String("customer_email", req.Customer.Email),
			zap.Error(err))
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}
