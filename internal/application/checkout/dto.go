package checkout

import (
	"time"

	"github.com/spiceshelf/backend/internal/domain/billing"
	"github.com/google/uuid"
)

// CustomerInput is the customer block of the checkout payload
type CustomerInput struct {
	Name  string `json:"name" binding:"required,max=200"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone"`
	CPF   string `json:"cpf"`
}

// ItemInput is one cart line of the checkout payload
type ItemInput struct {
	ProductRef     string `json:"product_ref"`
	Name           string `json:"name" binding:"required,max=200"`
	UnitPriceCents int64  `json:"unit_price_cents" binding:"required,gt=0"`
	Quantity       int    `json:"quantity" binding:"required,min=1,max=100"`
}

// PlaceOrderRequest is the boleto checkout payload. OrderID is set only on
// retries: issuance is idempotent per order, so a retry returns the title
// already issued for it.
type PlaceOrderRequest struct {
	OrderID    *uuid.UUID    `json:"order_id"`
	Customer   CustomerInput `json:"customer" binding:"required"`
	Items      []ItemInput   `json:"items" binding:"required,min=1,max=50,dive"`
	CouponCode string        `json:"coupon_code"`
}

// PlaceOrderResponse carries everything the storefront needs to show the
// payable document
type PlaceOrderResponse struct {
	OrderID        uuid.UUID `json:"order_id"`
	OrderNSU       string    `json:"order_nsu"`
	Status         string    `json:"status"`
	Mode           string    `json:"mode"`
	Provider       string    `json:"provider"`
	AmountCents    int64     `json:"amount_cents"`
	DiscountCents  int64     `json:"discount_cents"`
	DueDate        time.Time `json:"due_date"`
	LinhaDigitavel string    `json:"linha_digitavel"`
	Barcode        string    `json:"barcode"`
	Document       string    `json:"document,omitempty"`
	Instructions   string    `json:"instructions,omitempty"`
}

func newPlaceOrderResponse(order *billing.Order, title *billing.PaymentTitle, document, instructions string) *PlaceOrderResponse {
	return &PlaceOrderResponse{
		OrderID:        order.ID,
		OrderNSU:       order.OrderNSU,
		Status:         order.Status.String(),
		Mode:           title.Mode.String(),
		Provider:       title.Provider,
		AmountCents:    title.AmountCents,
		DiscountCents:  order.DiscountCents,
		DueDate:        title.DueDate,
		LinhaDigitavel: title.LinhaDigitavel,
		Barcode:        title.Barcode,
		Document:       document,
		Instructions:   instructions,
	}
}
