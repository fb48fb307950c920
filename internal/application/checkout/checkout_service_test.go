package checkout

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spiceshelf/backend/internal/domain/billing"
	"github.com/spiceshelf/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Fixtures
// =============================================================================

func manualModeConfig() *billing.BoletoConfig {
	return &billing.BoletoConfig{
		Enabled: true,
		Mode:    billing.BoletoModeManual,
		Manual: &billing.ManualConfig{
			Bank: billing.BankAccount{
				Code:                "001",
				Name:                "Banco do Brasil",
				Agency:              "0001",
				Account:             "123456",
				AccountDigit:        "7",
				BeneficiaryName:     "Spice Shelf LTDA",
				BeneficiaryDocument: "12.345.678/0001-90",
			},
			Billing: billing.DefaultBillingTerms(),
		},
	}
}

func registeredModeConfig(env billing.Environment) *billing.BoletoConfig {
	return &billing.BoletoConfig{
		Enabled: true,
		Mode:    billing.BoletoModeRegistered,
		Registered: &billing.RegisteredConfig{
			Credentials: billing.ProviderCredentials{
				Provider:    "acmepay",
				APIType:     "rest",
				Environment: env,
				Endpoint:    "https://api.acmepay.example",
				APIToken:    "tok_abc",
			},
			Billing: billing.DefaultBillingTerms(),
		},
	}
}

func placeOrderRequest() *PlaceOrderRequest {
	return &PlaceOrderRequest{
		Customer: CustomerInput{
			Name:  "Maria Silva",
			Email: "maria@example.com",
		},
		Items: []ItemInput{
			{ProductRef: "sku-saffron", Name: "Saffron 1g", UnitPriceCents: 4500, Quantity: 2},
		},
	}
}

type serviceFixture struct {
	resolver  *MockConfigResolver
	orderRepo *MockOrderRepository
	titleRepo *MockPaymentTitleRepository
	provider  *MockSettlementProvider
	publisher *MockEventPublisher
	svc       *Service
}

func newFixture(withProvider bool) *serviceFixture {
	f := &serviceFixture{
		resolver:  new(MockConfigResolver),
		orderRepo: new(MockOrderRepository),
		titleRepo: new(MockPaymentTitleRepository),
		provider:  new(MockSettlementProvider),
		publisher: new(MockEventPublisher),
	}
	cfg := ServiceConfig{
		Resolver:       f.resolver,
		OrderRepo:      f.orderRepo,
		TitleRepo:      f.titleRepo,
		EventPublisher: f.publisher,
	}
	if withProvider {
		cfg.Provider = f.provider
	}
	f.svc = NewService(cfg)
	return f
}

func passthroughCreate(titleRepo *MockPaymentTitleRepository) {
	titleRepo.On("CreateForOrder", mock.Anything, mock.Anything).Return(
		func(ctx context.Context, title *billing.PaymentTitle) *billing.PaymentTitle { return title },
		true, nil)
}

// =============================================================================
// Manual mode
// =============================================================================

func TestPlaceOrder_ManualMode(t *testing.T) {
	f := newFixture(false)
	f.resolver.On("ResolveActive", mock.Anything).Return(manualModeConfig(), nil)
	f.orderRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	passthroughCreate(f.titleRepo)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	resp, err := f.svc.PlaceOrder(context.Background(), placeOrderRequest())
	require.NoError(t, err)

	assert.Equal(t, billing.OrderStatusIssued.String(), resp.Status)
	assert.Equal(t, "MANUAL", resp.Mode)
	assert.Equal(t, "manual", resp.Provider)
	assert.Equal(t, int64(9000), resp.AmountCents)
	assert.Len(t, resp.LinhaDigitavel, 47)
	assert.Equal(t, resp.LinhaDigitavel, resp.Barcode)
	assert.Contains(t, resp.Document, "Spice Shelf LTDA")
	assert.True(t, strings.HasPrefix(resp.LinhaDigitavel, "0019"), "bank code then segment digit")

	// order saved twice: pending, then issued
	f.orderRepo.AssertNumberOfCalls(t, "Save", 2)
}

func TestPlaceOrder_ManualMode_DueDateFromTerms(t *testing.T) {
	f := newFixture(false)
	cfg := manualModeConfig()
	cfg.Manual.Billing.DaysToExpire = 10
	f.resolver.On("ResolveActive", mock.Anything).Return(cfg, nil)
	f.orderRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	passthroughCreate(f.titleRepo)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	resp, err := f.svc.PlaceOrder(context.Background(), placeOrderRequest())
	require.NoError(t, err)

	wantDay := time.Now().AddDate(0, 0, 10)
	assert.Equal(t, wantDay.Year(), resp.DueDate.Year())
	assert.Equal(t, wantDay.YearDay(), resp.DueDate.YearDay())
}

func TestPlaceOrder_CouponAppliesConfiguredDiscount(t *testing.T) {
	f := newFixture(false)
	cfg := manualModeConfig()
	cfg.Manual.Billing.DiscountPercent = decimal.NewFromInt(10)
	f.resolver.On("ResolveActive", mock.Anything).Return(cfg, nil)
	f.orderRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	passthroughCreate(f.titleRepo)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	req := placeOrderRequest()
	req.CouponCode = "SPICE10"

	resp, err := f.svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(900), resp.DiscountCents)
	assert.Equal(t, int64(8100), resp.AmountCents)
}

func TestPlaceOrder_FullDiscountRejectedBeforePersisting(t *testing.T) {
	f := newFixture(false)
	cfg := manualModeConfig()
	cfg.Manual.Billing.DiscountPercent = decimal.NewFromInt(100)
	f.resolver.On("ResolveActive", mock.Anything).Return(cfg, nil)

	req := placeOrderRequest()
	req.CouponCode = "FREESPICE"

	_, err := f.svc.PlaceOrder(context.Background(), req)

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_DISCOUNT", domainErr.Code)

	// nothing to bill means nothing stored and nothing issued
	f.orderRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	f.titleRepo.AssertNotCalled(t, "CreateForOrder", mock.Anything, mock.Anything)
}

// =============================================================================
// Registered mode
// =============================================================================

func TestPlaceOrder_SandboxShortCircuit(t *testing.T) {
	f := newFixture(true)
	f.resolver.On("ResolveActive", mock.Anything).Return(registeredModeConfig(billing.EnvironmentSandbox), nil)
	f.orderRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	var captured *billing.PaymentTitle
	f.titleRepo.On("CreateForOrder", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(1).(*billing.PaymentTitle)
	}).Return(func(ctx context.Context, title *billing.PaymentTitle) *billing.PaymentTitle { return title }, true, nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	resp, err := f.svc.PlaceOrder(context.Background(), placeOrderRequest())
	require.NoError(t, err)

	assert.Equal(t, "REGISTERED", resp.Mode)
	assert.Equal(t, "sandbox", resp.Provider)
	assert.Len(t, resp.LinhaDigitavel, 47)

	require.NotNil(t, captured.ProviderTitleID)
	assert.True(t, strings.HasPrefix(*captured.ProviderTitleID, SandboxTitlePrefix))

	// the provider adapter is never touched in sandbox
	f.provider.AssertNotCalled(t, "IssueTitle", mock.Anything, mock.Anything)
}

func TestPlaceOrder_RegisteredProduction(t *testing.T) {
	f := newFixture(true)
	f.resolver.On("ResolveActive", mock.Anything).Return(registeredModeConfig(billing.EnvironmentProduction), nil)
	f.orderRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	passthroughCreate(f.titleRepo)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	line := strings.Repeat("12345", 9) + "67"
	f.provider.On("Name").Return("acmepay")
	f.provider.On("IssueTitle", mock.Anything, mock.MatchedBy(func(req *billing.ProviderIssueRequest) bool {
		return req.AmountCents == 9000 && req.CustomerEmail == "maria@example.com"
	})).Return(&billing.ProviderIssueResponse{
		ProviderTitleID: "prov-789",
		LinhaDigitavel:  line,
	}, nil)

	resp, err := f.svc.PlaceOrder(context.Background(), placeOrderRequest())
	require.NoError(t, err)

	assert.Equal(t, "acmepay", resp.Provider)
	assert.Equal(t, line, resp.LinhaDigitavel)
	assert.Equal(t, line, resp.Barcode, "barcode falls back to the line")
}

func TestPlaceOrder_RegisteredProduction_NoAdapterIsFatal(t *testing.T) {
	f := newFixture(false)
	f.resolver.On("ResolveActive", mock.Anything).Return(registeredModeConfig(billing.EnvironmentProduction), nil)
	f.orderRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	_, err := f.svc.PlaceOrder(context.Background(), placeOrderRequest())
	assert.ErrorIs(t, err, billing.ErrProviderNotConfigured)
	f.titleRepo.AssertNotCalled(t, "CreateForOrder", mock.Anything, mock.Anything)
}

func TestPlaceOrder_RegisteredProduction_ProviderFailurePropagates(t *testing.T) {
	f := newFixture(true)
	f.resolver.On("ResolveActive", mock.Anything).Return(registeredModeConfig(billing.EnvironmentProduction), nil)
	f.orderRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.provider.On("IssueTitle", mock.Anything, mock.Anything).Return(nil, billing.ErrProviderRequestFailed)

	_, err := f.svc.PlaceOrder(context.Background(), placeOrderRequest())
	assert.ErrorIs(t, err, billing.ErrProviderRequestFailed)
}

func TestPlaceOrder_RegisteredProduction_InvalidResponse(t *testing.T) {
	f := newFixture(true)
	f.resolver.On("ResolveActive", mock.Anything).Return(registeredModeConfig(billing.EnvironmentProduction), nil)
	f.orderRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.provider.On("IssueTitle", mock.Anything, mock.Anything).Return(&billing.ProviderIssueResponse{}, nil)

	_, err := f.svc.PlaceOrder(context.Background(), placeOrderRequest())
	assert.ErrorIs(t, err, billing.ErrProviderInvalidResponse)
}

// =============================================================================
// Idempotency and configuration gates
// =============================================================================

func TestPlaceOrder_ConcurrentIssuanceReturnsWinner(t *testing.T) {
	f := newFixture(false)
	f.resolver.On("ResolveActive", mock.Anything).Return(manualModeConfig(), nil)
	f.orderRepo.On("Save", mock.Anything, mock.Anything).Return(nil)

	winner := issuedTitleFixture(t)
	f.titleRepo.On("CreateForOrder", mock.Anything, mock.Anything).Return(winner, false, nil)

	resp, err := f.svc.PlaceOrder(context.Background(), placeOrderRequest())
	require.NoError(t, err)
	assert.Equal(t, winner.LinhaDigitavel, resp.LinhaDigitavel)

	// the losing path must not mark the order issued a second time
	f.orderRepo.AssertNumberOfCalls(t, "Save", 1)
}

func TestPlaceOrder_RetryReturnsExistingTitle(t *testing.T) {
	f := newFixture(false)

	order, err := billing.NewOrder(
		billing.CustomerSnapshot{Name: "Maria Silva", Email: "maria@example.com"},
		[]billing.OrderLineInput{{Name: "Saffron 1g", UnitPriceCents: 4500, Quantity: 2}},
		"", 0)
	require.NoError(t, err)
	require.NoError(t, order.MarkIssued())

	title := issuedTitleFixture(t)
	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.titleRepo.On("FindActiveByOrderID", mock.Anything, order.ID).Return(title, nil)

	req := placeOrderRequest()
	req.OrderID = &order.ID

	resp, err := f.svc.PlaceOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, title.LinhaDigitavel, resp.LinhaDigitavel)

	f.resolver.AssertNotCalled(t, "ResolveActive", mock.Anything)
	f.titleRepo.AssertNotCalled(t, "CreateForOrder", mock.Anything, mock.Anything)
}

func TestPlaceOrder_ConfigGates(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"missing", billing.ErrConfigMissing},
		{"disabled", billing.ErrConfigDisabled},
		{"invalid", billing.ErrConfigInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(false)
			f.resolver.On("ResolveActive", mock.Anything).Return(nil, tt.err)

			_, err := f.svc.PlaceOrder(context.Background(), placeOrderRequest())
			assert.ErrorIs(t, err, tt.err)
			f.orderRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestPlaceOrder_RateLimited(t *testing.T) {
	counter := new(MockRateCounter)
	counter.On("Increment", mock.Anything, "boleto:issue:maria@example.com", DefaultRateWindow).
		Return(int64(2), nil)

	f := newFixture(false)
	f.svc.admission = NewAdmissionControl(AdmissionControlConfig{Counter: counter})

	req := placeOrderRequest()
	req.Customer.Email = "  Maria@Example.com "

	_, err := f.svc.PlaceOrder(context.Background(), req)
	assert.ErrorIs(t, err, shared.ErrRateLimited)
	f.resolver.AssertNotCalled(t, "ResolveActive", mock.Anything)
}

func TestAdmissionControl_CounterOutageAdmits(t *testing.T) {
	counter := new(MockRateCounter)
	counter.On("Increment", mock.Anything, mock.Anything, mock.Anything).
		Return(int64(0), assert.AnError)

	ac := NewAdmissionControl(AdmissionControlConfig{Counter: counter})
	assert.NoError(t, ac.Admit(context.Background(), "maria@example.com"))
}

func issuedTitleFixture(t *testing.T) *billing.PaymentTitle {
	t.Helper()
	order, err := billing.NewOrder(
		billing.CustomerSnapshot{Name: "Maria Silva", Email: "maria@example.com"},
		[]billing.OrderLineInput{{Name: "Saffron 1g", UnitPriceCents: 4500, Quantity: 2}},
		"", 0)
	require.NoError(t, err)

	line := strings.Repeat("12345", 9) + "67"
	title, err := billing.NewPaymentTitle(order, billing.BoletoModeManual, "manual",
		order.TotalAmountCents, time.Now().AddDate(0, 0, 3), line, line)
	require.NoError(t, err)
	return title
}
