package handler

import (
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spiceshelf/backend/internal/application/settlement"
	"github.com/spiceshelf/backend/internal/domain/billing"
	"github.com/spiceshelf/backend/internal/domain/shared"
	"github.com/spiceshelf/backend/internal/interfaces/http/dto"
)

// ConfirmPaymentRequest is the manual confirmation payload
type ConfirmPaymentRequest struct {
	Notes string `json:"notes" binding:"max=500"`
}

// OrderListItem is one row of the admin payments listing
type OrderListItem struct {
	OrderID          uuid.UUID  `json:"order_id"`
	OrderNSU         string     `json:"order_nsu"`
	CustomerName     string     `json:"customer_name"`
	CustomerEmail    string     `json:"customer_email"`
	TotalAmountCents int64      `json:"total_amount_cents"`
	DiscountCents    int64      `json:"discount_cents"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
}

// PaymentsHandler exposes the admin payment endpoints
type PaymentsHandler struct {
	BaseHandler
	settlementSvc *settlement.Service
	orderRepo     billing.OrderRepository
	logger        *zap.Logger
}

// NewPaymentsHandler creates a new payments handler
func NewPaymentsHandler(settlementSvc *settlement.Service, orderRepo billing.OrderRepository, logger *zap.Logger) *PaymentsHandler {
	return &PaymentsHandler{settlementSvc: settlementSvc, orderRepo: orderRepo, logger: logger}
}

// RegisterRoutes registers payment routes on the admin group
func (h *PaymentsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/payments", h.List)
	rg.POST("/payments/:orderId/confirm", h.Confirm)
}

// List returns orders filtered by status, customer email or NSU
func (h *PaymentsHandler) List(c *gin.Context) {
	var listReq dto.ListRequest
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.ValidationError(c, err)
		return
	}
	listReq.Normalize()

	filter := shared.Filter{
		Page:     listReq.Page,
		PageSize: listReq.PageSize,
		OrderBy:  listReq.OrderBy,
		OrderDir: listReq.OrderDir,
		Filters:  make(map[string]interface{}),
	}
	if status := c.Query("status"); status != "" {
		filter.Filters["status"] = status
	}
	if email := c.Query("customer_email"); email != "" {
		filter.Filters["customer_email"] = email
	}
	if nsu := c.Query("order_nsu"); nsu != "" {
		filter.Filters["order_nsu"] = nsu
	}

	ctx := c.Request.Context()
	orders, err := h.orderRepo.FindAll(ctx, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	total, err := h.orderRepo.Count(ctx, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]OrderListItem, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		items = append(items, OrderListItem{
			OrderID:          o.ID,
			OrderNSU:         o.OrderNSU,
			CustomerName:     o.Customer.Name,
			CustomerEmail:    o.Customer.Email,
			TotalAmountCents: o.TotalAmountCents,
			DiscountCents:    o.DiscountCents,
			Status:           o.Status.String(),
			CreatedAt:        o.CreatedAt,
			PaidAt:           o.PaidAt,
		})
	}

	h.SuccessWithMeta(c, items, total, listReq.Page, listReq.PageSize)
}

// Confirm records a manual payment confirmation for the order's open title
func (h *PaymentsHandler) Confirm(c *gin.Context) {
	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	// notes body is optional
	var req ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.ValidationError(c, err)
		return
	}

	actorID, actorEmail, err := getActor(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	result, err := h.settlementSvc.ConfirmManually(c.Request.Context(), orderID, actorID, actorEmail, req.Notes)
	if err != nil {
		h.logger.Warn("manual confirmation failed",
			zap.String("order_id", orderID.String()),
			zap.String("actor", actorEmail),
			zap.Error(err))
		if errors.Is(err, settlement.ErrTitleNotFound) {
			h.NotFound(c, "No open payment title for the order")
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
