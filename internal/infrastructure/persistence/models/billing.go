package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spiceshelf/backend/internal/domain/billing"
)

// OrderModel is the persistence model for the Order aggregate root.
type OrderModel struct {
	AggregateModel
	OrderNSU         string              `gorm:"type:varchar(32);not null;uniqueIndex"`
	CustomerName     string              `gorm:"type:varchar(200);not null"`
	CustomerEmail    string              `gorm:"type:varchar(254);not null;index"`
	CustomerPhone    string              `gorm:"type:varchar(32)"`
	CustomerCPF      string              `gorm:"type:varchar(14)"`
	Items            []OrderItemModel    `gorm:"foreignKey:OrderID;references:ID"`
	CouponCode       string              `gorm:"type:varchar(50)"`
	DiscountCents    int64               `gorm:"not null;default:0"`
	TotalAmountCents int64               `gorm:"not null"`
	Status           billing.OrderStatus `gorm:"type:varchar(20);not null;default:'PENDING_BOLETO';index"`
	PaidAt           *time.Time
	CancelledAt      *time.Time
	CancelReason     string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order.
func (m *OrderModel) ToDomain() *billing.Order {
	order := &billing.Order{
		BaseAggregateRoot: m.toAggregateRoot(),
		OrderNSU:          m.OrderNSU,
		Customer: billing.CustomerSnapshot{
			Name:  m.CustomerName,
			Email: m.CustomerEmail,
			Phone: m.CustomerPhone,
			CPF:   m.CustomerCPF,
		},
		CouponCode:       m.CouponCode,
		DiscountCents:    m.DiscountCents,
		TotalAmountCents: m.TotalAmountCents,
		Status:           m.Status,
		PaidAt:           m.PaidAt,
		CancelledAt:      m.CancelledAt,
		CancelReason:     m.CancelReason,
		Items:            make([]billing.OrderItem, len(m.Items)),
	}
	for i, item := range m.Items {
		order.Items[i] = *item.ToDomain()
	}
	return order
}

// FromDomain populates the persistence model from a domain Order.
func (m *OrderModel) FromDomain(o *billing.Order) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderNSU = o.OrderNSU
	m.CustomerName = o.Customer.Name
	m.CustomerEmail = o.Customer.Email
	m.CustomerPhone = o.Customer.Phone
	m.CustomerCPF = o.Customer.CPF
	m.CouponCode = o.CouponCode
	m.DiscountCents = o.DiscountCents
	m.TotalAmountCents = o.TotalAmountCents
	m.Status = o.Status
	m.PaidAt = o.PaidAt
	m.CancelledAt = o.CancelledAt
	m.CancelReason = o.CancelReason
	m.Items = make([]OrderItemModel, len(o.Items))
	for i, item := range o.Items {
		m.Items[i] = *OrderItemModelFromDomain(&item)
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order.
func OrderModelFromDomain(o *billing.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderItemModel is the persistence model for the immutable OrderItem snapshot.
type OrderItemModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID        uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductRef     string    `gorm:"type:varchar(100)"`
	Name           string    `gorm:"type:varchar(200);not null"`
	UnitPriceCents int64     `gorm:"not null"`
	Quantity       int       `gorm:"not null"`
	TotalCents     int64     `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem.
func (m *OrderItemModel) ToDomain() *billing.OrderItem {
	return &billing.OrderItem{
		ID:             m.ID,
		OrderID:        m.OrderID,
		ProductRef:     m.ProductRef,
		Name:           m.Name,
		UnitPriceCents: m.UnitPriceCents,
		Quantity:       m.Quantity,
		TotalCents:     m.TotalCents,
		CreatedAt:      m.CreatedAt,
	}
}

// OrderItemModelFromDomain creates a new persistence model from a domain OrderItem.
func OrderItemModelFromDomain(i *billing.OrderItem) *OrderItemModel {
	return &OrderItemModel{
		ID:             i.ID,
		OrderID:        i.OrderID,
		ProductRef:     i.ProductRef,
		Name:           i.Name,
		UnitPriceCents: i.UnitPriceCents,
		Quantity:       i.Quantity,
		TotalCents:     i.TotalCents,
		CreatedAt:      i.CreatedAt,
	}
}

// PaymentTitleModel is the persistence model for the PaymentTitle aggregate root.
type PaymentTitleModel struct {
	AggregateModel
	OrderID         uuid.UUID           `gorm:"type:uuid;not null;index"`
	OrderNSU        string              `gorm:"type:varchar(32);not null;index"`
	Method          string              `gorm:"type:varchar(20);not null;default:'boleto'"`
	Mode            billing.BoletoMode  `gorm:"type:varchar(20);not null"`
	Provider        string              `gorm:"type:varchar(50);not null"`
	ProviderTitleID *string             `gorm:"type:varchar(100);index"`
	Status          billing.TitleStatus `gorm:"type:varchar(20);not null;default:'ISSUED';index"`
	AmountCents     int64               `gorm:"not null"`
	DueDate         time.Time           `gorm:"not null"`
	LinhaDigitavel  string              `gorm:"type:varchar(47);not null"`
	Barcode         string              `gorm:"type:varchar(60);not null"`
	DocumentRef     *string             `gorm:"type:varchar(200)"`
	PaidAt          *time.Time
	CanceledAt      *time.Time
	CancelReason    string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (PaymentTitleModel) TableName() string {
	return "payment_titles"
}

// ToDomain converts the persistence model to a domain PaymentTitle.
func (m *PaymentTitleModel) ToDomain() *billing.PaymentTitle {
	return &billing.PaymentTitle{
		BaseAggregateRoot: m.toAggregateRoot(),
		OrderID:           m.OrderID,
		OrderNSU:          m.OrderNSU,
		Method:            m.Method,
		Mode:              m.Mode,
		Provider:          m.Provider,
		ProviderTitleID:   m.ProviderTitleID,
		Status:            m.Status,
		AmountCents:       m.AmountCents,
		DueDate:           m.DueDate,
		LinhaDigitavel:    m.LinhaDigitavel,
		Barcode:           m.Barcode,
		DocumentRef:       m.DocumentRef,
		PaidAt:            m.PaidAt,
		CanceledAt:        m.CanceledAt,
		CancelReason:      m.CancelReason,
	}
}

// FromDomain populates the persistence model from a domain PaymentTitle.
func (m *PaymentTitleModel) FromDomain(t *billing.PaymentTitle) {
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	m.OrderID = t.OrderID
	m.OrderNSU = t.OrderNSU
	m.Method = t.Method
	m.Mode = t.Mode
	m.Provider = t.Provider
	m.ProviderTitleID = t.ProviderTitleID
	m.Status = t.Status
	m.AmountCents = t.AmountCents
	m.DueDate = t.DueDate
	m.LinhaDigitavel = t.LinhaDigitavel
	m.Barcode = t.Barcode
	m.DocumentRef = t.DocumentRef
	m.PaidAt = t.PaidAt
	m.CanceledAt = t.CanceledAt
	m.CancelReason = t.CancelReason
}

// PaymentTitleModelFromDomain creates a new persistence model from a domain PaymentTitle.
func PaymentTitleModelFromDomain(t *billing.PaymentTitle) *PaymentTitleModel {
	m := &PaymentTitleModel{}
	m.FromDomain(t)
	return m
}

// BoletoConfigSingletonID is the fixed primary key of the configuration row.
const BoletoConfigSingletonID = 1

// BoletoConfigModel is the persistence model for the singleton BoletoConfig.
// The mode branches are stored as JSON documents so adding fields to either
// branch does not require a schema change.
type BoletoConfigModel struct {
	ID             int                `gorm:"primary_key"`
	Version        int                `gorm:"not null;default:1"`
	Enabled        bool               `gorm:"not null;default:false"`
	Mode           billing.BoletoMode `gorm:"type:varchar(20);not null"`
	ManualJSON     []byte             `gorm:"type:jsonb"`
	RegisteredJSON []byte             `gorm:"type:jsonb"`
	UpdatedAt      time.Time          `gorm:"not null"`
	UpdatedBy      string             `gorm:"type:varchar(254)"`
}

// TableName returns the table name for GORM
func (BoletoConfigModel) TableName() string {
	return "boleto_config"
}

// ToDomain converts the persistence model to a domain BoletoConfig.
func (m *BoletoConfigModel) ToDomain() (*billing.BoletoConfig, error) {
	cfg := &billing.BoletoConfig{
		Version:   m.Version,
		Enabled:   m.Enabled,
		Mode:      m.Mode,
		UpdatedAt: m.UpdatedAt,
		UpdatedBy: m.UpdatedBy,
	}
	if len(m.ManualJSON) > 0 {
		var manual billing.ManualConfig
		if err := json.Unmarshal(m.ManualJSON, &manual); err != nil {
			return nil, fmt.Errorf("failed to decode manual config: %w", err)
		}
		cfg.Manual = &manual
	}
	if len(m.RegisteredJSON) > 0 {
		var registered billing.RegisteredConfig
		if err := json.Unmarshal(m.RegisteredJSON, &registered); err != nil {
			return nil, fmt.Errorf("failed to decode registered config: %w", err)
		}
		cfg.Registered = &registered
	}
	return cfg, nil
}

// FromDomain populates the persistence model from a domain BoletoConfig.
func (m *BoletoConfigModel) FromDomain(cfg *billing.BoletoConfig) error {
	m.ID = BoletoConfigSingletonID
	m.Version = cfg.Version
	m.Enabled = cfg.Enabled
	m.Mode = cfg.Mode
	m.UpdatedAt = cfg.UpdatedAt
	m.UpdatedBy = cfg.UpdatedBy
	m.ManualJSON = nil
	m.RegisteredJSON = nil
	if cfg.Manual != nil {
		data, err := json.Marshal(cfg.Manual)
		if err != nil {
			return fmt.Errorf("failed to encode manual config: %w", err)
		}
		m.ManualJSON = data
	}
	if cfg.Registered != nil {
		data, err := json.Marshal(cfg.Registered)
		if err != nil {
			return fmt.Errorf("failed to encode registered config: %w", err)
		}
		m.RegisteredJSON = data
	}
	return nil
}

// AuditLogModel is the persistence model for append-only audit entries.
type AuditLogModel struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key"`
	Action     string     `gorm:"type:varchar(100);not null;index"`
	EntityType string     `gorm:"type:varchar(50);not null;index:idx_audit_entity,priority:1"`
	EntityID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_audit_entity,priority:2"`
	ActorID    *uuid.UUID `gorm:"type:uuid;index"`
	ActorEmail string     `gorm:"type:varchar(254)"`
	Details    []byte     `gorm:"type:jsonb"`
	CreatedAt  time.Time  `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_log"
}

// ToDomain converts the persistence model to a domain AuditLogEntry.
func (m *AuditLogModel) ToDomain() (*billing.AuditLogEntry, error) {
	entry := &billing.AuditLogEntry{
		ID:         m.ID,
		Action:     m.Action,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		ActorID:    m.ActorID,
		ActorEmail: m.ActorEmail,
		CreatedAt:  m.CreatedAt,
	}
	if len(m.Details) > 0 {
		if err := json.Unmarshal(m.Details, &entry.Details); err != nil {
			return nil, fmt.Errorf("failed to decode audit details: %w", err)
		}
	}
	return entry, nil
}

// AuditLogModelFromDomain creates a new persistence model from a domain AuditLogEntry.
func AuditLogModelFromDomain(e *billing.AuditLogEntry) (*AuditLogModel, error) {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return nil, fmt.Errorf("failed to encode audit details: %w", err)
	}
	return &AuditLogModel{
		ID:         e.ID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		ActorEmail: e.ActorEmail,
		Details:    details,
		CreatedAt:  e.CreatedAt,
	}, nil
}
