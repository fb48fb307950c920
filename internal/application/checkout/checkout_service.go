package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/spiceshelf/backend/internal/domain/billing"
	"github.com/spiceshelf/backend/internal/domain/boleto"
	"github.com/spiceshelf/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Sandbox issuance constants. Registered-mode sandbox never talks to the
// provider: titles get a deterministic local document and a prefixed
// provider reference so downstream systems can tell them apart.
const (
	SandboxTitlePrefix  = "sandbox_"
	sandboxBankCode     = "999"
	sandboxAgency       = "0001"
	sandboxAccount      = "0000001"
	sandboxProviderName = "sandbox"
)

// ConfigResolver supplies the validated, enabled boleto configuration
type ConfigResolver interface {
	ResolveActive(ctx context.Context) (*billing.BoletoConfig, error)
}

// Service places boleto checkout orders and issues their payment titles
type Service struct {
	resolver       ConfigResolver
	orderRepo      billing.OrderRepository
	titleRepo      billing.PaymentTitleRepository
	provider       billing.SettlementProvider
	admission      *AdmissionControl
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// ServiceConfig holds the checkout service dependencies
type ServiceConfig struct {
	Resolver       ConfigResolver
	OrderRepo      billing.OrderRepository
	TitleRepo      billing.PaymentTitleRepository
	Provider       billing.SettlementProvider
	Admission      *AdmissionControl
	EventPublisher shared.EventPublisher
	Logger         *zap.Logger
}

// NewService creates a checkout service
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	admission := cfg.Admission
	if admission == nil {
		admission = NewAdmissionControl(AdmissionControlConfig{Logger: logger})
	}
	return &Service{
		resolver:       cfg.Resolver,
		orderRepo:      cfg.OrderRepo,
		titleRepo:      cfg.TitleRepo,
		provider:       cfg.Provider,
		admission:      admission,
		eventPublisher: cfg.EventPublisher,
		logger:         logger,
	}
}

// PlaceOrder runs the full boleto checkout: throttle, resolve configuration,
// create the order, and issue its payment title. Retries carrying an OrderID
// return the already-issued title instead of creating anything new.
func (s *Service) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	if req.OrderID != nil {
		return s.reissue(ctx, *req.OrderID)
	}

	if err := s.admission.Admit(ctx, req.Customer.Email); err != nil {
		return nil, err
	}

	cfg, err := s.resolver.ResolveActive(ctx)
	if err != nil {
		return nil, err
	}

	order, err := s.buildOrder(req, cfg)
	if err != nil {
		return nil, err
	}

	// the order is durable before any issuance side effect
	if err := s.orderRepo.Save(ctx, order); err != nil {
		s.logger.Error("Failed to save order", zap.String("order_nsu", order.OrderNSU), zap.Error(err))
		return nil, err
	}

	return s.issueTitle(ctx, order, cfg)
}

// reissue returns the active title of an existing order. Used by retries.
func (s *Service) reissue(ctx context.Context, orderID uuid.UUID) (*PlaceOrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	title, err := s.titleRepo.FindActiveByOrderID(ctx, order.ID)
	if err == nil && title != nil {
		s.logger.Info("Returning existing title for order retry",
			zap.String("order_nsu", order.OrderNSU))
		return newPlaceOrderResponse(order, title, s.documentOf(title), ""), nil
	}

	cfg, err := s.resolver.ResolveActive(ctx)
	if err != nil {
		return nil, err
	}
	return s.issueTitle(ctx, order, cfg)
}

func (s *Service) buildOrder(req *PlaceOrderRequest, cfg *billing.BoletoConfig) (*billing.Order, error) {
	customer := billing.CustomerSnapshot{
		Name:  req.Customer.Name,
		Email: req.Customer.Email,
		Phone: req.Customer.Phone,
		CPF:   req.Customer.CPF,
	}

	lines := make([]billing.OrderLineInput, 0, len(req.Items))
	var subtotal int64
	for _, item := range req.Items {
		lines = append(lines, billing.OrderLineInput{
			ProductRef:     item.ProductRef,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
		})
		subtotal += item.UnitPriceCents * int64(item.Quantity)
	}

	var discount int64
	if req.CouponCode != "" {
		discount = discountCents(subtotal, cfg.Billing().DiscountPercent)
	}

	order, err := billing.NewOrder(customer, lines, req.CouponCode, discount)
	if err != nil {
		return nil, err
	}
	// a boleto cannot carry a zero amount, so a coupon covering the whole
	// order leaves nothing to bill
	if order.TotalAmountCents <= 0 {
		return nil, shared.NewDomainError("INVALID_DISCOUNT",
			"Discount covers the entire order; there is no amount to bill")
	}
	return order, nil
}

// issueTitle creates the payment title per the active mode and attaches it to
// the order. CreateForOrder guards against concurrent double-issuance: the
// transaction that loses the race returns the winner's title.
func (s *Service) issueTitle(ctx context.Context, order *billing.Order, cfg *billing.BoletoConfig) (*PlaceOrderResponse, error) {
	dueDate := dueDateFrom(time.Now(), cfg.Billing().DaysToExpire)

	var (
		title        *billing.PaymentTitle
		document     string
		instructions = cfg.Billing().Instructions
		err          error
	)

	switch {
	case cfg.Mode == billing.BoletoModeManual:
		title, document, err = s.issueManual(order, cfg, dueDate)
	case cfg.Environment() == billing.EnvironmentSandbox:
		title, err = s.issueSandbox(order, cfg, dueDate)
	default:
		title, err = s.issueRegistered(ctx, order, cfg, dueDate)
	}
	if err != nil {
		return nil, err
	}

	existing, created, err := s.titleRepo.CreateForOrder(ctx, title)
	if err != nil {
		s.logger.Error("Failed to persist payment title",
			zap.String("order_nsu", order.OrderNSU), zap.Error(err))
		return nil, err
	}
	if !created {
		s.logger.Info("Order already has an active title",
			zap.String("order_nsu", order.OrderNSU))
		return newPlaceOrderResponse(order, existing, s.documentOf(existing), instructions), nil
	}

	if err := order.MarkIssued(); err != nil {
		return nil, err
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		s.logger.Error("Failed to mark order issued",
			zap.String("order_nsu", order.OrderNSU), zap.Error(err))
		return nil, err
	}

	s.publishEvents(ctx, order, title)

	s.logger.Info("Boleto issued",
		zap.String("order_nsu", order.OrderNSU),
		zap.String("mode", title.Mode.String()),
		zap.String("provider", title.Provider),
		zap.Int64("amount_cents", title.AmountCents))

	return newPlaceOrderResponse(order, title, document, instructions), nil
}

// issueManual encodes and renders the document against the merchant's own
// bank account
func (s *Service) issueManual(order *billing.Order, cfg *billing.BoletoConfig, dueDate time.Time) (*billing.PaymentTitle, string, error) {
	bank := cfg.Manual.Bank

	doc, err := boleto.Encode(boleto.EncodeInput{
		BankCode:       bank.Code,
		Agency:         bank.Agency,
		Account:        bank.Account,
		AmountCents:    order.TotalAmountCents,
		DueDate:        dueDate,
		OrderReference: order.OrderNSU,
	})
	if err != nil {
		return nil, "", err
	}

	title, err := billing.NewPaymentTitle(order, billing.BoletoModeManual, "manual",
		order.TotalAmountCents, dueDate, doc.LinhaDigitavel, doc.Barcode)
	if err != nil {
		return nil, "", err
	}

	document, err := boleto.Render(boleto.RenderInput{
		BeneficiaryName:     bank.BeneficiaryName,
		BeneficiaryDocument: bank.BeneficiaryDocument,
		BankName:            bank.Name,
		BankCode:            bank.Code,
		Agency:              bank.Agency,
		Account:             bank.Account,
		AccountDigit:        bank.AccountDigit,
		DueDate:             dueDate,
		AmountCents:         order.TotalAmountCents,
		LinhaDigitavel:      doc.LinhaDigitavel,
		Instructions:        cfg.Manual.Billing.Instructions,
	})
	if err != nil {
		// the title stands on its own; rendering is presentation only
		s.logger.Warn("Document rendering failed",
			zap.String("order_nsu", order.OrderNSU), zap.Error(err))
		return title, "", nil
	}
	title.SetDocumentRef(order.OrderNSU + ".txt")

	return title, document, nil
}

// issueSandbox short-circuits registered mode without any provider call
func (s *Service) issueSandbox(order *billing.Order, cfg *billing.BoletoConfig, dueDate time.Time) (*billing.PaymentTitle, error) {
	doc, err := boleto.Encode(boleto.EncodeInput{
		BankCode:       sandboxBankCode,
		Agency:         sandboxAgency,
		Account:        sandboxAccount,
		AmountCents:    order.TotalAmountCents,
		DueDate:        dueDate,
		OrderReference: order.OrderNSU,
	})
	if err != nil {
		return nil, err
	}

	title, err := billing.NewPaymentTitle(order, billing.BoletoModeRegistered, sandboxProviderName,
		order.TotalAmountCents, dueDate, doc.LinhaDigitavel, doc.Barcode)
	if err != nil {
		return nil, err
	}
	title.SetProviderTitleID(SandboxTitlePrefix + order.OrderNSU)

	s.logger.Info("Sandbox title issued, provider skipped",
		zap.String("order_nsu", order.OrderNSU))
	return title, nil
}

// issueRegistered delegates to the configured settlement provider. A missing
// adapter is fatal: production issuance never fabricates documents.
func (s *Service) issueRegistered(ctx context.Context, order *billing.Order, cfg *billing.BoletoConfig, dueDate time.Time) (*billing.PaymentTitle, error) {
	if s.provider == nil {
		s.logger.Error("Registered mode active but no provider adapter wired",
			zap.String("provider", cfg.ProviderName()))
		return nil, billing.ErrProviderNotConfigured
	}

	resp, err := s.provider.IssueTitle(ctx, &billing.ProviderIssueRequest{
		OrderID:       order.ID,
		OrderNSU:      order.OrderNSU,
		AmountCents:   order.TotalAmountCents,
		DueDate:       dueDate,
		CustomerName:  order.Customer.Name,
		CustomerEmail: order.Customer.Email,
		CustomerCPF:   order.Customer.CPF,
		Instructions:  cfg.Billing().Instructions,
	})
	if err != nil {
		s.logger.Error("Provider issuance failed",
			zap.String("order_nsu", order.OrderNSU),
			zap.String("provider", cfg.ProviderName()),
			zap.Error(err))
		return nil, err
	}
	if resp.ProviderTitleID == "" || resp.LinhaDigitavel == "" {
		return nil, fmt.Errorf("%w: missing title id or linha digitavel", billing.ErrProviderInvalidResponse)
	}

	barcode := resp.Barcode
	if barcode == "" {
		barcode = resp.LinhaDigitavel
	}

	title, err := billing.NewPaymentTitle(order, billing.BoletoModeRegistered, s.provider.Name(),
		order.TotalAmountCents, dueDate, resp.LinhaDigitavel, barcode)
	if err != nil {
		return nil, err
	}
	title.SetProviderTitleID(resp.ProviderTitleID)
	if resp.DocumentRef != nil {
		title.SetDocumentRef(*resp.DocumentRef)
	}
	return title, nil
}

// publishEvents hands the aggregates' pending events to the outbox-backed
// publisher. Failures are logged only: notifications are fire-and-forget.
func (s *Service) publishEvents(ctx context.Context, aggregates ...interface {
	GetDomainEvents() []shared.DomainEvent
	ClearDomainEvents()
}) {
	if s.eventPublisher == nil {
		return
	}
	for _, agg := range aggregates {
		events := agg.GetDomainEvents()
		if len(events) == 0 {
			continue
		}
		if err := s.eventPublisher.Publish(ctx, events...); err != nil {
			s.logger.Warn("Failed to publish domain events", zap.Error(err))
			continue
		}
		agg.ClearDomainEvents()
	}
}

func (s *Service) documentOf(title *billing.PaymentTitle) string {
	if title.DocumentRef != nil {
		return *title.DocumentRef
	}
	return ""
}

// dueDateFrom computes the document due date at end of day
func dueDateFrom(now time.Time, daysToExpire int) time.Time {
	if daysToExpire < 1 {
		daysToExpire = billing.DefaultBillingTerms().DaysToExpire
	}
	due := now.AddDate(0, 0, daysToExpire)
	return time.Date(due.Year(), due.Month(), due.Day(), 23, 59, 59, 0, due.Location())
}

// discountCents applies a percentage to the subtotal, rounding down
func discountCents(subtotalCents int64, percent decimal.Decimal) int64 {
	if percent.IsZero() || percent.IsNegative() {
		return 0
	}
	return decimal.NewFromInt(subtotalCents).
		Mul(percent).
		Div(decimal.NewFromInt(100)).
		Floor().
		IntPart()
}
