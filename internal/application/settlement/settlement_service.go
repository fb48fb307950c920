package settlement

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/spiceshelf/backend/internal/domain/billing"
	"github.com/spiceshelf/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// webhookDedupTTL bounds how long processed event IDs are remembered
const webhookDedupTTL = 72 * time.Hour

var (
	// ErrTitleNotFound is returned when no title matches the webhook references
	ErrTitleNotFound = errors.New("settlement: no payment title matches the event")
	// ErrUnknownEventType is returned for unrecognized webhook event types
	ErrUnknownEventType = errors.New("settlement: unknown event type")
	// ErrWebhookTokenMismatch is returned when the shared webhook token does not match
	ErrWebhookTokenMismatch = errors.New("settlement: webhook token mismatch")
	// ErrSimulationNotAllowed is returned when simulation is requested outside sandbox
	ErrSimulationNotAllowed = errors.New("settlement: simulation is only available in sandbox")
)

// Result reports what a settlement event did
type Result struct {
	OrderNSU         string `json:"order_nsu"`
	TitleStatus      string `json:"title_status"`
	Applied          bool   `json:"applied"`
	AlreadyProcessed bool   `json:"already_processed"`
}

// Service reconciles settlement events, webhook and manual, onto payment
// titles and their orders. Every transition runs through the SettlementStore
// so a replayed event yields exactly one state change and one audit row.
type Service struct {
	configRepo  billing.ConfigRepository
	orderRepo   billing.OrderRepository
	titleRepo   billing.PaymentTitleRepository
	store       billing.SettlementStore
	idempotency shared.IdempotencyStore
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// ServiceConfig holds the settlement service dependencies
type ServiceConfig struct {
	ConfigRepo  billing.ConfigRepository
	OrderRepo   billing.OrderRepository
	TitleRepo   billing.PaymentTitleRepository
	Store       billing.SettlementStore
	Idempotency shared.IdempotencyStore
	Publisher   shared.EventPublisher
	Logger      *zap.Logger
}

// NewService creates a settlement service
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		configRepo:  cfg.ConfigRepo,
		orderRepo:   cfg.OrderRepo,
		titleRepo:   cfg.TitleRepo,
		store:       cfg.Store,
		idempotency: cfg.Idempotency,
		publisher:   cfg.Publisher,
		logger:      logger,
	}
}

// VerifyWebhookToken compares the presented token against the configured one.
// Webhooks are rejected when no registered configuration is stored.
func (s *Service) VerifyWebhookToken(ctx context.Context, token string) error {
	cfg, err := s.configRepo.Get(ctx)
	if err != nil {
		return ErrWebhookTokenMismatch
	}
	if cfg.Registered == nil || cfg.Registered.Credentials.WebhookToken == "" {
		return ErrWebhookTokenMismatch
	}
	expected := cfg.Registered.Credentials.WebhookToken
	if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		return ErrWebhookTokenMismatch
	}
	return nil
}

// ProcessWebhook applies a provider settlement event. Confirmation events
// settle the title; overdue/cancel/delete events void it. Replays, by event
// ID or by title state, are acknowledged as no-ops.
func (s *Service) ProcessWebhook(ctx context.Context, event *billing.WebhookEvent) (*Result, error) {
	if !event.Type.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, event.Type)
	}

	var dedupKey string
	if event.EventID != "" && s.idempotency != nil {
		dedupKey = "webhook:" + event.EventID
		processed, err := s.idempotency.IsProcessed(ctx, dedupKey)
		if err != nil {
			s.logger.Warn("Idempotency store unavailable, relying on store-level dedup", zap.Error(err))
		} else if processed {
			s.logger.Info("Webhook event already processed", zap.String("event_id", event.EventID))
			return &Result{AlreadyProcessed: true}, nil
		}
	}

	title, err := s.resolveTitle(ctx, event)
	if err != nil {
		return nil, err
	}

	var res *Result
	switch {
	case event.Type.IsConfirmation():
		res, err = s.confirm(ctx, title, confirmInput{
			action:          billing.AuditActionPaymentConfirmedWebhook,
			paidAt:          paidAtOf(event),
			paidAmountCents: event.PaidAmountCents,
			eventType:       string(event.Type),
		})
	default:
		res, err = s.cancel(ctx, title, string(event.Type))
	}
	if err != nil {
		return nil, err
	}

	// The event ID is recorded only after the settlement sticks. A failed
	// attempt stays unmarked so the provider's retry can land; concurrent
	// duplicates fall through to the store's state check.
	if dedupKey != "" {
		if _, markErr := s.idempotency.MarkProcessed(ctx, dedupKey, webhookDedupTTL); markErr != nil {
			s.logger.Warn("Failed to record processed webhook event",
				zap.String("event_id", event.EventID), zap.Error(markErr))
		}
	}
	return res, nil
}

// ConfirmManually settles an order on behalf of an authenticated admin.
// Confirming an already-paid order is a no-op success; a cancelled order
// rejects with an invalid-state error.
func (s *Service) ConfirmManually(ctx context.Context, orderID uuid.UUID, actorID uuid.UUID, actorEmail, notes string) (*Result, error) {
	if actorID == uuid.Nil {
		return nil, shared.ErrUnauthorized
	}

	title, err := s.titleRepo.FindActiveByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if title == nil {
		order, findErr := s.orderRepo.FindByID(ctx, orderID)
		if findErr != nil {
			if errors.Is(findErr, shared.ErrNotFound) {
				return nil, ErrTitleNotFound
			}
			return nil, findErr
		}
		if order.Status == billing.OrderStatusCancelled {
			return nil, shared.NewDomainError("INVALID_STATE",
				"Cannot confirm payment for a cancelled order")
		}
		return nil, ErrTitleNotFound
	}

	return s.confirm(ctx, title, confirmInput{
		action:     billing.AuditActionPaymentConfirmedManual,
		paidAt:     time.Now(),
		notes:      notes,
		actorID:    actorID,
		actorEmail: actorEmail,
	})
}

// SimulatePayment settles an order as if the provider had confirmed it.
// Only available while the active configuration points at the sandbox.
func (s *Service) SimulatePayment(ctx context.Context, orderNSU string) (*Result, error) {
	cfg, err := s.configRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.Environment() != billing.EnvironmentSandbox {
		return nil, ErrSimulationNotAllowed
	}

	now := time.Now()
	return s.ProcessWebhook(ctx, &billing.WebhookEvent{
		EventID:        fmt.Sprintf("sim_%s_%d", orderNSU, now.UnixNano()),
		Type:           billing.WebhookEventConfirmed,
		OrderReference: orderNSU,
		PaidAt:         &now,
	})
}

// resolveTitle locates the title by provider reference first, falling back to
// the order reference
func (s *Service) resolveTitle(ctx context.Context, event *billing.WebhookEvent) (*billing.PaymentTitle, error) {
	if event.ProviderTitleID != "" {
		title, err := s.titleRepo.FindByProviderTitleID(ctx, event.ProviderTitleID)
		if err == nil && title != nil {
			return title, nil
		}
	}
	if event.OrderReference != "" {
		title, err := s.titleRepo.FindByOrderNSU(ctx, event.OrderReference)
		if err == nil && title != nil {
			return title, nil
		}
	}
	s.logger.Warn("Settlement event matches no title",
		zap.String("provider_title_id", event.ProviderTitleID),
		zap.String("order_reference", event.OrderReference))
	return nil, ErrTitleNotFound
}

type confirmInput struct {
	action          string
	paidAt          time.Time
	paidAmountCents int64
	eventType       string
	notes           string
	actorID         uuid.UUID
	actorEmail      string
}

func (s *Service) confirm(ctx context.Context, title *billing.PaymentTitle, in confirmInput) (*Result, error) {
	entry := billing.NewAuditLogEntry(in.action, billing.AggregateTypePaymentTitle, title.ID,
		billing.AuditDetails{
			OrderNSU:        title.OrderNSU,
			PaidAmountCents: in.paidAmountCents,
			EventType:       in.eventType,
			Notes:           in.notes,
		})
	if in.actorID != uuid.Nil {
		entry.WithActor(in.actorID, in.actorEmail)
	}

	applied, err := s.store.ConfirmPaid(ctx, title.ID, in.paidAt, entry)
	if err != nil {
		s.logger.Error("Settlement confirmation failed",
			zap.String("order_nsu", title.OrderNSU), zap.Error(err))
		return nil, err
	}
	if !applied {
		s.logger.Info("Settlement replay ignored", zap.String("order_nsu", title.OrderNSU))
		return &Result{
			OrderNSU:    title.OrderNSU,
			TitleStatus: billing.TitleStatusPaid.String(),
			Applied:     false,
		}, nil
	}

	s.publishPaid(ctx, title, in.paidAt)

	s.logger.Info("Payment settled",
		zap.String("order_nsu", title.OrderNSU),
		zap.String("action", in.action))
	return &Result{
		OrderNSU:    title.OrderNSU,
		TitleStatus: billing.TitleStatusPaid.String(),
		Applied:     true,
	}, nil
}

func (s *Service) cancel(ctx context.Context, title *billing.PaymentTitle, reason string) (*Result, error) {
	entry := billing.NewAuditLogEntry(billing.AuditActionTitleCanceled, billing.AggregateTypePaymentTitle, title.ID,
		billing.AuditDetails{OrderNSU: title.OrderNSU, EventType: reason})

	applied, err := s.store.CancelTitle(ctx, title.ID, reason, entry)
	if err != nil {
		s.logger.Error("Title cancellation failed",
			zap.String("order_nsu", title.OrderNSU), zap.Error(err))
		return nil, err
	}
	if !applied {
		// paid titles are never un-paid; replays land here too
		s.logger.Info("Cancellation ignored",
			zap.String("order_nsu", title.OrderNSU),
			zap.String("title_status", title.Status.String()))
		return &Result{
			OrderNSU:    title.OrderNSU,
			TitleStatus: title.Status.String(),
			Applied:     false,
		}, nil
	}

	s.publishCancelled(ctx, title, reason)

	s.logger.Info("Title cancelled",
		zap.String("order_nsu", title.OrderNSU),
		zap.String("reason", reason))
	return &Result{
		OrderNSU:    title.OrderNSU,
		TitleStatus: billing.TitleStatusCanceled.String(),
		Applied:     true,
	}, nil
}

// publishPaid raises the post-settlement events for notification fan-out.
// The store already persisted the transition; failures here are logged only.
func (s *Service) publishPaid(ctx context.Context, title *billing.PaymentTitle, paidAt time.Time) {
	if s.publisher == nil {
		return
	}
	order, err := s.orderRepo.FindByID(ctx, title.OrderID)
	if err != nil {
		s.logger.Warn("Could not load order for settlement events",
			zap.String("order_nsu", title.OrderNSU), zap.Error(err))
		return
	}
	events := []shared.DomainEvent{
		billing.NewTitlePaidEvent(title),
		billing.NewOrderPaidEvent(order),
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish settlement events", zap.Error(err))
	}
}

func (s *Service) publishCancelled(ctx context.Context, title *billing.PaymentTitle, reason string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, billing.NewTitleCanceledEvent(title, reason)); err != nil {
		s.logger.Warn("Failed to publish cancellation event", zap.Error(err))
	}
}

func paidAtOf(event *billing.WebhookEvent) time.Time {
	if event.PaidAt != nil {
		return *event.PaidAt
	}
	return time.Now()
}
