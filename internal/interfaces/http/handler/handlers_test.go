package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spiceshelf/backend/internal/application/checkout"
	"github.com/spiceshelf/backend/internal/application/settings"
	"github.com/spiceshelf/backend/internal/application/settlement"
	"github.com/spiceshelf/backend/internal/domain/billing"
	"github.com/spiceshelf/backend/internal/domain/shared"
	"github.com/spiceshelf/backend/internal/infrastructure/auth"
	"github.com/spiceshelf/backend/internal/interfaces/http/middleware"
	"github.com/spiceshelf/backend/internal/interfaces/http/router"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// =============================================================================
// Mocks
// =============================================================================

type MockConfigRepository struct {
	mock.Mock
}

func (m *MockConfigRepository) Get(ctx context.Context) (*billing.BoletoConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.BoletoConfig), args.Error(1)
}

func (m *MockConfigRepository) Upsert(ctx context.Context, cfg *billing.BoletoConfig) error {
	args := m.Called(ctx, cfg)
	return args.Error(0)
}

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

type MockSettlementStore struct {
	mock.Mock
}

func (m *MockSettlementStore) ConfirmPaid(ctx context.Context, titleID uuid.UUID, paidAt time.Time, entry *billing.AuditLogEntry) (bool, error) {
	args := m.Called(ctx, titleID, paidAt, entry)
	return args.Bool(0), args.Error(1)
}

func (m *MockSettlementStore) CancelTitle(ctx context.Context, titleID uuid.UUID, reason string, entry *billing.AuditLogEntry) (bool, error) {
	args := m.Called(ctx, titleID, reason, entry)
	return args.Bool(0), args.Error(1)
}

type MockAuditLogRepository struct {
	mock.Mock
}

func (m *MockAuditLogRepository) Append(ctx context.Context, entry *billing.AuditLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditLogRepository) FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]billing.AuditLogEntry, error) {
	args := m.Called(ctx, entityType, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.AuditLogEntry), args.Error(1)
}

func (m *MockAuditLogRepository) FindRecent(ctx context.Context, limit int) ([]billing.AuditLogEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.AuditLogEntry), args.Error(1)
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

// =============================================================================
// Fixtures
// =============================================================================

func testClaimsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.JWTClaimsKey, &auth.Claims{
			UserID:   uuid.New().String(),
			Username: "admin@spiceshelf.example",
			Role:     auth.RoleAdmin,
		})
		c.Next()
	}
}

func newTestRouter(public []router.RouteRegistrar, admin []router.RouteRegistrar) *gin.Engine {
	engine := gin.New()
	r := router.NewRouter(engine, router.WithAdminMiddleware(testClaimsMiddleware()))
	r.Register(public...)
	r.RegisterAdmin(admin...)
	r.Setup()
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func errorCodeOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, w)
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %s", w.Body.String())
	code, _ := errObj["code"].(string)
	return code
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := decodeBody(t, w)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok, "expected data envelope, got %s", w.Body.String())
	return data
}

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
				Provider:     "acmepay",
				APIType:      "rest",
				Environment:  env,
				Endpoint:     "https://api.acmepay.example",
				APIToken:     "tok_abc",
				WebhookToken: "whsec_123",
			},
			Billing: billing.DefaultBillingTerms(),
		},
	}
}

func issuedOrderAndTitle(t *testing.T) (*billing.Order, *billing.PaymentTitle) {
	t.Helper()
	order, err := billing.NewOrder(
		billing.CustomerSnapshot{Name: "Maria Silva", Email: "maria@example.com"},
		[]billing.OrderLineInput{{Name: "Saffron 1g", UnitPriceCents: 4500, Quantity: 2}},
		"", 0)
	require.NoError(t, err)
	require.NoError(t, order.MarkIssued())

	line := strings.Repeat("12345", 9) + "67"
	title, err := billing.NewPaymentTitle(order, billing.BoletoModeRegistered, "acmepay",
		order.TotalAmountCents, time.Now().AddDate(0, 0, 3), line, line)
	require.NoError(t, err)
	title.SetProviderTitleID("prov-789")
	return order, title
}

// =============================================================================
// Checkout
// =============================================================================

type checkoutFixture struct {
	resolver  *MockConfigResolver
	orderRepo *MockOrderRepository
	titleRepo *MockPaymentTitleRepository
	publisher *MockEventPublisher
	engine    *gin.Engine
}

func newCheckoutFixture() *checkoutFixture {
	f := &checkoutFixture{
		resolver:  new(MockConfigResolver),
		orderRepo: new(MockOrderRepository),
		titleRepo: new(MockPaymentTitleRepository),
		publisher: new(MockEventPublisher),
	}
	svc := checkout.NewService(checkout.ServiceConfig{
		Resolver:       f.resolver,
		OrderRepo:      f.orderRepo,
		TitleRepo:      f.titleRepo,
		EventPublisher: f.publisher,
	})
	h := NewCheckoutHandler(svc, zap.NewNop())
	f.engine = newTestRouter([]router.RouteRegistrar{h}, nil)
	return f
}

func checkoutPayload() map[string]any {
	return map[string]any{
		"customer": map[string]any{
			"name":  "Maria Silva",
			"email": "maria@example.com",
		},
		"items": []map[string]any{
			{"name": "Saffron 1g", "unit_price_cents": 4500, "quantity": 2},
		},
	}
}

func TestCheckout_ManualIssue(t *testing.T) {
	f := newCheckoutFixture()

	f.resolver.On("ResolveActive", mock.Anything).Return(manualModeConfig(), nil)
	f.orderRepo.On("Save", mock.Anything, mock.Anything).Return(nil)
	f.titleRepo.On("CreateForOrder", mock.Anything, mock.Anything).Return(
		func(ctx context.Context, title *billing.PaymentTitle) *billing.PaymentTitle { return title },
		true, nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	w := doJSON(t, f.engine, http.MethodPost, "/api/v1/checkout/boleto", checkoutPayload(), nil)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := dataOf(t, w)
	assert.Equal(t, "MANUAL", data["mode"])
	assert.Equal(t, float64(9000), data["amount_cents"])
	assert.Len(t, data["linha_digitavel"], 47)
	assert.NotEmpty(t, data["order_nsu"])
}

func TestCheckout_RejectsInvalidPayload(t *testing.T) {
	f := newCheckoutFixture()

	payload := checkoutPayload()
	payload["items"] = []map[string]any{}

	w := doJSON(t, f.engine, http.MethodPost, "/api/v1/checkout/boleto", payload, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ERR_VALIDATION", errorCodeOf(t, w))
}

func TestCheckout_DisabledConfigIs503(t *testing.T) {
	f := newCheckoutFixture()

	f.resolver.On("ResolveActive", mock.Anything).Return(nil, billing.ErrConfigDisabled)

	w := doJSON(t, f.engine, http.MethodPost, "/api/v1/checkout/boleto", checkoutPayload(), nil)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "ERR_CONFIG_DISABLED", errorCodeOf(t, w))
}

// =============================================================================
// Settings
// =============================================================================

type settingsFixture struct {
	configRepo *MockConfigRepository
	auditRepo  *MockAuditLogRepository
	engine     *gin.Engine
}

func newSettingsFixture() *settingsFixture {
	f := &settingsFixture{
		configRepo: new(MockConfigRepository),
		auditRepo:  new(MockAuditLogRepository),
	}
	svc := settings.NewService(settings.ServiceConfig{
		ConfigRepo: f.configRepo,
		AuditRepo:  f.auditRepo,
	})
	h := NewSettingsHandler(svc, zap.NewNop())
	f.engine = newTestRouter(nil, []router.RouteRegistrar{h})
	return f
}

func TestSettings_GetMissingConfigIs404(t *testing.T) {
	f := newSettingsFixture()
	f.configRepo.On("Get", mock.Anything).Return(nil, billing.ErrConfigMissing)

	w := doJSON(t, f.engine, http.MethodGet, "/api/v1/admin/settings/boleto", nil, nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ERR_NOT_FOUND", errorCodeOf(t, w))
}

func TestSettings_GetRedactsSecrets(t *testing.T) {
	f := newSettingsFixture()
	f.configRepo.On("Get", mock.Anything).Return(registeredModeConfig(billing.EnvironmentProduction), nil)

	w := doJSON(t, f.engine, http.MethodGet, "/api/v1/admin/settings/boleto", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "tok_abc")
	assert.NotContains(t, w.Body.String(), "whsec_123")

	data := dataOf(t, w)
	registered := data["registered"].(map[string]any)
	creds := registered["credentials"].(map[string]any)
	assert.Equal(t, true, creds["has_api_token"])
	assert.Equal(t, true, creds["has_webhook_token"])
}

func TestSettings_SaveManualConfig(t *testing.T) {
	f := newSettingsFixture()
	f.configRepo.On("Get", mock.Anything).Return(nil, billing.ErrConfigMissing)
	f.configRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(cfg *billing.BoletoConfig) bool {
		return cfg.Mode == billing.BoletoModeManual && cfg.UpdatedBy == "admin@spiceshelf.example"
	})).Return(nil)
	f.auditRepo.On("Append", mock.Anything, mock.Anything).Return(nil)

	payload := map[string]any{
		"enabled": true,
		"mode":    "MANUAL",
		"manual": map[string]any{
			"bank": map[string]any{
				"code":                 "001",
				"name":                 "Banco do Brasil",
				"agency":               "0001",
				"account":              "123456",
				"beneficiary_name":     "Spice Shelf LTDA",
				"beneficiary_document": "12.345.678/0001-90",
			},
			"billing": map[string]any{"days_to_expire": 3},
		},
	}

	w := doJSON(t, f.engine, http.MethodPut, "/api/v1/admin/settings/boleto", payload, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := dataOf(t, w)
	assert.Equal(t, "MANUAL", data["mode"])
	f.configRepo.AssertExpectations(t)
}

func TestSettings_SaveRejectsUnknownMode(t *testing.T) {
	f := newSettingsFixture()

	payload := map[string]any{"enabled": true, "mode": "PIX"}
	w := doJSON(t, f.engine, http.MethodPut, "/api/v1/admin/settings/boleto", payload, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ERR_VALIDATION", errorCodeOf(t, w))
}

// =============================================================================
// Webhooks
// =============================================================================

type webhookFixture struct {
	configRepo *MockConfigRepository
	orderRepo  *MockOrderRepository
	titleRepo  *MockPaymentTitleRepository
	store      *MockSettlementStore
	publisher  *MockEventPublisher
	engine     *gin.Engine
}

func newWebhookFixture() *webhookFixture {
	f := &webhookFixture{
		configRepo: new(MockConfigRepository),
		orderRepo:  new(MockOrderRepository),
		titleRepo:  new(MockPaymentTitleRepository),
		store:      new(MockSettlementStore),
		publisher:  new(MockEventPublisher),
	}
	svc := settlement.NewService(settlement.ServiceConfig{
		ConfigRepo: f.configRepo,
		OrderRepo:  f.orderRepo,
		TitleRepo:  f.titleRepo,
		Store:      f.store,
		Publisher:  f.publisher,
	})
	h := NewWebhookHandler(svc, zap.NewNop())
	f.engine = newTestRouter([]router.RouteRegistrar{h}, nil)
	return f
}

func TestWebhook_RejectsBadToken(t *testing.T) {
	f := newWebhookFixture()
	f.configRepo.On("Get", mock.Anything).Return(registeredModeConfig(billing.EnvironmentProduction), nil)

	payload := map[string]any{"event_id": "evt-1", "type": "CONFIRMED"}
	w := doJSON(t, f.engine, http.MethodPost, "/api/v1/webhooks/boleto", payload,
		map[string]string{"X-Webhook-Token": "wrong"})

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "ERR_UNAUTHORIZED", errorCodeOf(t, w))
}

func TestWebhook_ConfirmsTitle(t *testing.T) {
	f := newWebhookFixture()
	order, title := issuedOrderAndTitle(t)

	f.configRepo.On("Get", mock.Anything).Return(registeredModeConfig(billing.EnvironmentProduction), nil)
	f.titleRepo.On("FindByProviderTitleID", mock.Anything, "prov-789").Return(title, nil)
	f.store.On("ConfirmPaid", mock.Anything, title.ID, mock.Anything, mock.Anything).Return(true, nil)
	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	paidAt := time.Now().UTC().Format(time.RFC3339)
	payload := map[string]any{
		"event_id":          "evt-1",
		"type":              "CONFIRMED",
		"provider_title_id": "prov-789",
		"paid_amount_cents": title.AmountCents,
		"paid_at":           paidAt,
	}
	w := doJSON(t, f.engine, http.MethodPost, "/api/v1/webhooks/boleto", payload,
		map[string]string{"X-Webhook-Token": "whsec_123"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := dataOf(t, w)
	assert.Equal(t, true, data["applied"])
	assert.Equal(t, "PAID", data["title_status"])
	f.store.AssertExpectations(t)
}

func TestWebhook_UnknownEventTypeIs400(t *testing.T) {
	f := newWebhookFixture()
	f.configRepo.On("Get", mock.Anything).Return(registeredModeConfig(billing.EnvironmentProduction), nil)

	payload := map[string]any{"event_id": "evt-9", "type": "SOMETHING_ELSE"}
	w := doJSON(t, f.engine, http.MethodPost, "/api/v1/webhooks/boleto", payload,
		map[string]string{"X-Webhook-Token": "whsec_123"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ERR_BAD_REQUEST", errorCodeOf(t, w))
}

func TestWebhook_SimulateOutsideSandboxIs403(t *testing.T) {
	f := newWebhookFixture()
	f.configRepo.On("Get", mock.Anything).Return(registeredModeConfig(billing.EnvironmentProduction), nil)

	payload := map[string]any{"order_nsu": "BOL_1700000000_abc123"}
	w := doJSON(t, f.engine, http.MethodPost, "/api/v1/webhooks/boleto/simulate", payload, nil)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "ERR_FORBIDDEN", errorCodeOf(t, w))
}

// =============================================================================
// Payments
// =============================================================================

type paymentsFixture struct {
	configRepo *MockConfigRepository
	orderRepo  *MockOrderRepository
	titleRepo  *MockPaymentTitleRepository
	store      *MockSettlementStore
	publisher  *MockEventPublisher
	engine     *gin.Engine
}

func newPaymentsFixture() *paymentsFixture {
	f := &paymentsFixture{
		configRepo: new(MockConfigRepository),
		orderRepo:  new(MockOrderRepository),
		titleRepo:  new(MockPaymentTitleRepository),
		store:      new(MockSettlementStore),
		publisher:  new(MockEventPublisher),
	}
	svc := settlement.NewService(settlement.ServiceConfig{
		ConfigRepo: f.configRepo,
		OrderRepo:  f.orderRepo,
		TitleRepo:  f.titleRepo,
		Store:      f.store,
		Publisher:  f.publisher,
	})
	h := NewPaymentsHandler(svc, f.orderRepo, zap.NewNop())
	f.engine = newTestRouter(nil, []router.RouteRegistrar{h})
	return f
}

func TestPayments_ListWithFilters(t *testing.T) {
	f := newPaymentsFixture()
	order, _ := issuedOrderAndTitle(t)

	f.orderRepo.On("FindAll", mock.Anything, mock.MatchedBy(func(filter shared.Filter) bool {
		return filter.Filters["status"] == "AWAITING_PAYMENT" && filter.Page == 1
	})).Return([]billing.Order{*order}, nil)
	f.orderRepo.On("Count", mock.Anything, mock.Anything).Return(int64(1), nil)

	w := doJSON(t, f.engine, http.MethodGet, "/api/v1/admin/payments?status=AWAITING_PAYMENT", nil, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	meta := body["meta"].(map[string]any)
	assert.Equal(t, float64(1), meta["total"])
	items := body["data"].([]any)
	require.Len(t, items, 1)
	first := items[0].(map[string]any)
	assert.Equal(t, order.OrderNSU, first["order_nsu"])
	assert.Equal(t, "maria@example.com", first["customer_email"])
}

func TestPayments_ConfirmManually(t *testing.T) {
	f := newPaymentsFixture()
	order, title := issuedOrderAndTitle(t)

	f.titleRepo.On("FindActiveByOrderID", mock.Anything, order.ID).Return(title, nil)
	f.store.On("ConfirmPaid", mock.Anything, title.ID, mock.Anything, mock.Anything).Return(true, nil)
	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	payload := map[string]any{"notes": "paid via bank transfer"}
	w := doJSON(t, f.engine, http.MethodPost, "/api/v1/admin/payments/"+order.ID.String()+"/confirm", payload, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := dataOf(t, w)
	assert.Equal(t, true, data["applied"])
	f.store.AssertExpectations(t)
}

func TestPayments_ConfirmRejectsBadOrderID(t *testing.T) {
	f := newPaymentsFixture()

	w := doJSON(t, f.engine, http.MethodPost, "/api/v1/admin/payments/not-a-uuid/confirm", nil, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ERR_BAD_REQUEST", errorCodeOf(t, w))
}

func TestPayments_ConfirmUnknownTitleIs404(t *testing.T) {
	f := newPaymentsFixture()
	orderID := uuid.New()

	f.titleRepo.On("FindActiveByOrderID", mock.Anything, orderID).Return(nil, nil)
	f.orderRepo.On("FindByID", mock.Anything, orderID).Return(nil, shared.ErrNotFound)

	w := doJSON(t, f.engine, http.MethodPost, "/api/v1/admin/payments/"+orderID.String()+"/confirm", nil, nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ERR_NOT_FOUND", errorCodeOf(t, w))
}

func TestPayments_ConfirmCancelledOrderIs422(t *testing.T) {
	f := newPaymentsFixture()
	order, _ := issuedOrderAndTitle(t)
	require.NoError(t, order.Cancel("customer gave up"))

	f.titleRepo.On("FindActiveByOrderID", mock.Anything, order.ID).Return(nil, nil)
	f.orderRepo.On("FindByID", mock.Anything, order.ID).Return(order, nil)

	w := doJSON(t, f.engine, http.MethodPost, "/api/v1/admin/payments/"+order.ID.String()+"/confirm", nil, nil)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, "ERR_INVALID_STATE", errorCodeOf(t, w))
	f.store.AssertNotCalled(t, "ConfirmPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// =============================================================================
// Health
// =============================================================================

type failingPinger struct{}

func (failingPinger) Ping() error { return assert.AnError }

type okPinger struct{}

func (okPinger) Ping() error { return nil }

func TestHealth_OK(t *testing.T) {
	h := NewHealthHandler(okPinger{}, "1.2.3")
	engine := newTestRouter([]router.RouteRegistrar{h}, nil)

	w := doJSON(t, engine, http.MethodGet, "/api/v1/health", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var status HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	assert.Equal(t, "up", status.Database)
}

func TestHealth_DatabaseDown(t *testing.T) {
	h := NewHealthHandler(failingPinger{}, "1.2.3")
	engine := newTestRouter([]router.RouteRegistrar{h}, nil)

	w := doJSON(t, engine, http.MethodGet, "/api/v1/health", nil, nil)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var status HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "down", status.Database)
}
