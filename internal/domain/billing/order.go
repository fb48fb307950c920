package billing

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/mail"
	"time"

	"github.com/spiceshelf/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Checkout payload bounds
const (
	MaxOrderItems   = 50
	MaxItemQuantity = 100
)

// OrderStatus represents the status of a checkout order
type OrderStatus string

const (
	OrderStatusPendingBoleto OrderStatus = "PENDING_BOLETO"
	OrderStatusIssued        OrderStatus = "ISSUED"
	OrderStatusPaid          OrderStatus = "PAID"
	OrderStatusCancelled     OrderStatus = "CANCELLED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPendingBoleto, OrderStatusIssued, OrderStatusPaid, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// Transitions move forward only; PAID and CANCELLED are terminal. An order
// stuck in PENDING_BOLETO can still settle: its title may have been issued
// even though the status update never landed.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPendingBoleto:
		return target == OrderStatusIssued || target == OrderStatusPaid || target == OrderStatusCancelled
	case OrderStatusIssued:
		return target == OrderStatusPaid || target == OrderStatusCancelled
	case OrderStatusPaid, OrderStatusCancelled:
		return false
	}
	return false
}

// CustomerSnapshot is the immutable customer data captured at checkout
type CustomerSnapshot struct {
	Name  string
	Email string
	Phone string
	CPF   string
}

// Validate checks required customer fields
func (c CustomerSnapshot) Validate() error {
	if c.Name == "" {
		return shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}
	if c.Email == "" {
		return shared.NewDomainError("INVALID_CUSTOMER_EMAIL", "Customer email cannot be empty")
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return shared.NewDomainError("INVALID_CUSTOMER_EMAIL", "Customer email is malformed")
	}
	return nil
}

// OrderItem is an immutable line-item snapshot captured at checkout
type OrderItem struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	ProductRef     string
	Name           string
	UnitPriceCents int64
	Quantity       int
	TotalCents     int64
	CreatedAt      time.Time
}

// NewOrderItem creates a line-item snapshot
func NewOrderItem(orderID uuid.UUID, productRef, name string, unitPriceCents int64, quantity int) (*OrderItem, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_ITEM_NAME", "Item name cannot be empty")
	}
	if unitPriceCents <= 0 {
		return nil, shared.NewDomainError("INVALID_ITEM_PRICE", "Item price must be positive")
	}
	if quantity < 1 || quantity > MaxItemQuantity {
		return nil, shared.NewDomainError("INVALID_ITEM_QUANTITY",
			fmt.Sprintf("Item quantity must be between 1 and %d", MaxItemQuantity))
	}
	return &OrderItem{
		ID:             uuid.New(),
		OrderID:        orderID,
		ProductRef:     productRef,
		Name:           name,
		UnitPriceCents: unitPriceCents,
		Quantity:       quantity,
		TotalCents:     unitPriceCents * int64(quantity),
		CreatedAt:      time.Now(),
	}, nil
}

// Order is the checkout order aggregate root.
// Items, customer snapshot, and total are frozen at creation time.
type Order struct {
	shared.BaseAggregateRoot
	OrderNSU         string
	Customer         CustomerSnapshot
	Items            []OrderItem
	CouponCode       string
	DiscountCents    int64
	TotalAmountCents int64
	Status           OrderStatus
	PaidAt           *time.Time
	CancelledAt      *time.Time
	CancelReason     string
}

// OrderLineInput describes one checkout line before snapshotting
type OrderLineInput struct {
	ProductRef     string
	Name           string
	UnitPriceCents int64
	Quantity       int
}

// NewOrder creates an order with immutable item/customer snapshots.
// Total is the item sum minus discount, clamped at zero.
func NewOrder(customer CustomerSnapshot, lines []OrderLineInput, couponCode string, discountCents int64) (*Order, error) {
	if err := customer.Validate(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError("INVALID_ITEMS", "Order must contain at least one item")
	}
	if len(lines) > MaxOrderItems {
		return nil, shared.NewDomainError("INVALID_ITEMS",
			fmt.Sprintf("Order cannot contain more than %d items", MaxOrderItems))
	}
	if discountCents < 0 {
		return nil, shared.NewDomainError("INVALID_DISCOUNT", "Discount cannot be negative")
	}

	order := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNSU:          NewOrderNSU(),
		Customer:          customer,
		Items:             make([]OrderItem, 0, len(lines)),
		CouponCode:        couponCode,
		DiscountCents:     discountCents,
		Status:            OrderStatusPendingBoleto,
	}

	var subtotal int64
	for _, line := range lines {
		item, err := NewOrderItem(order.ID, line.ProductRef, line.Name, line.UnitPriceCents, line.Quantity)
		if err != nil {
			return nil, err
		}
		order.Items = append(order.Items, *item)
		subtotal += item.TotalCents
	}

	total := subtotal - discountCents
	if total < 0 {
		total = 0
	}
	order.TotalAmountCents = total

	order.AddDomainEvent(NewOrderCreatedEvent(order))
	return order, nil
}

// MarkIssued records that a payment title was issued for this order
func (o *Order) MarkIssued() error {
	if o.Status == OrderStatusIssued {
		return nil
	}
	if !o.Status.CanTransitionTo(OrderStatusIssued) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot issue boleto for order in status %s", o.Status))
	}
	o.Status = OrderStatusIssued
	o.UpdatedAt = time.Now()
	return nil
}

// MarkPaid transitions the order to PAID. A no-op when already paid.
func (o *Order) MarkPaid(paidAt time.Time) error {
	if o.Status == OrderStatusPaid {
		return nil
	}
	if !o.Status.CanTransitionTo(OrderStatusPaid) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot mark order in status %s as paid", o.Status))
	}
	o.Status = OrderStatusPaid
	o.PaidAt = &paidAt
	o.UpdatedAt = time.Now()
	o.AddDomainEvent(NewOrderPaidEvent(o))
	return nil
}

// Cancel transitions the order to CANCELLED. Paid orders are never un-paid.
func (o *Order) Cancel(reason string) error {
	if o.Status == OrderStatusCancelled {
		return nil
	}
	if !o.Status.CanTransitionTo(OrderStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot cancel order in status %s", o.Status))
	}
	now := time.Now()
	o.Status = OrderStatusCancelled
	o.CancelledAt = &now
	o.CancelReason = reason
	o.UpdatedAt = now
	o.AddDomainEvent(NewOrderCancelledEvent(o, reason))
	return nil
}

// NewOrderNSU generates a globally-unique order reference.
// The trailing hex fragment keeps the rightmost digits usable by the encoder.
func NewOrderNSU() string {
	var suffix [3]byte
	_, _ = rand.Read(suffix[:])
	return fmt.Sprintf("BOL_%d_%s", time.Now().Unix(), hex.EncodeToString(suffix[:]))
}
