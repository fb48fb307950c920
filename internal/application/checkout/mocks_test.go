package checkout

import (
	"context"
	"time"

	"github.com/spiceshelf/backend/internal/domain/billing"
	"github.com/spiceshelf/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Repositories and Ports
// =============================================================================

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByNSU(ctx context.Context, orderNSU string) (*billing.Order, error) {
	args := m.Called(ctx, orderNSU)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]billing.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Order), args.Error(1)
}

func (m *MockOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) Save(ctx context.Context, order *billing.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) CountRecentByCustomerEmail(ctx context.Context, email string, since time.Time) (int64, error) {
	args := m.Called(ctx, email, since)
	return args.Get(0).(int64), args.Error(1)
}

type MockPaymentTitleRepository struct {
	mock.Mock
}

func (m *MockPaymentTitleRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.PaymentTitle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PaymentTitle), args.Error(1)
}

func (m *MockPaymentTitleRepository) FindActiveByOrderID(ctx context.Context, orderID uuid.UUID) (*billing.PaymentTitle, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PaymentTitle), args.Error(1)
}

func (m *MockPaymentTitleRepository) FindByProviderTitleID(ctx context.Context, providerTitleID string) (*billing.PaymentTitle, error) {
	args := m.Called(ctx, providerTitleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PaymentTitle), args.Error(1)
}

func (m *MockPaymentTitleRepository) FindByOrderNSU(ctx context.Context, orderNSU string) (*billing.PaymentTitle, error) {
	args := m.Called(ctx, orderNSU)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.PaymentTitle), args.Error(1)
}

func (m *MockPaymentTitleRepository) Save(ctx context.Context, title *billing.PaymentTitle) error {
	args := m.Called(ctx, title)
	return args.Error(0)
}

func (m *MockPaymentTitleRepository) CreateForOrder(ctx context.Context, title *billing.PaymentTitle) (*billing.PaymentTitle, bool, error) {
	args := m.Called(ctx, title)
	if fn, ok := args.Get(0).(func(context.Context, *billing.PaymentTitle) *billing.PaymentTitle); ok {
		return fn(ctx, title), args.Bool(1), args.Error(2)
	}
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*billing.PaymentTitle), args.Bool(1), args.Error(2)
}

type MockSettlementProvider struct {
	mock.Mock
}

func (m *MockSettlementProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockSettlementProvider) IssueTitle(ctx context.Context, req *billing.ProviderIssueRequest) (*billing.ProviderIssueResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.ProviderIssueResponse), args.Error(1)
}

type MockConfigResolver struct {
	mock.Mock
}

func (m *MockConfigResolver) ResolveActive(ctx context.Context) (*billing.BoletoConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.BoletoConfig), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

type MockRateCounter struct {
	mock.Mock
}

func (m *MockRateCounter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	args := m.Called(ctx, key, window)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRateCounter) Close() error {
	args := m.Called()
	return args.Error(0)
}
