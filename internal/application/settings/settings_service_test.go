package settings

import (
	"context"
	"testing"

	"github.com/spiceshelf/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Mock Repositories
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

// =============================================================================
// Fixtures
// =============================================================================

func storedRegisteredConfig() *billing.BoletoConfig {
	return &billing.BoletoConfig{
		Version: 2,
		Enabled: true,
		Mode:    billing.BoletoModeRegistered,
		Registered: &billing.RegisteredConfig{
			Credentials: billing.ProviderCredentials{
				Provider:     "acmepay",
				APIType:      "rest",
				Environment:  billing.EnvironmentProduction,
				Endpoint:     "https://api.acmepay.example",
				ClientSecret: "sec_stored",
				APIToken:     "tok_stored",
				WebhookToken: "whk_stored",
			},
			Billing: billing.DefaultBillingTerms(),
		},
	}
}

func registeredSaveRequest() *SaveConfigRequest {
	return &SaveConfigRequest{
		Enabled: true,
		Mode:    "REGISTERED",
		Registered: &RegisteredConfigInput{
			Credentials: ProviderCredentialsInput{
				Provider:    "acmepay",
				APIType:     "rest",
				Environment: "PRODUCTION",
				Endpoint:    "https://api.acmepay.example",
			},
			Billing: BillingTermsDTO{
				DaysToExpire: 5,
				FinePercent:  decimal.NewFromInt(2),
			},
		},
	}
}

func newTestService(configRepo *MockConfigRepository, auditRepo *MockAuditLogRepository) *Service {
	return NewService(ServiceConfig{ConfigRepo: configRepo, AuditRepo: auditRepo})
}

// =============================================================================
// Tests
// =============================================================================

func TestGetConfig_RedactsSecrets(t *testing.T) {
	configRepo := new(MockConfigRepository)
	auditRepo := new(MockAuditLogRepository)
	configRepo.On("Get", mock.Anything).Return(storedRegisteredConfig(), nil)

	svc := newTestService(configRepo, auditRepo)
	view, err := svc.GetConfig(context.Background())
	require.NoError(t, err)

	require.NotNil(t, view.Registered)
	creds := view.Registered.Credentials
	assert.True(t, creds.HasClientSecret)
	assert.True(t, creds.HasAPIToken)
	assert.True(t, creds.HasWebhookToken)
	assert.Equal(t, "acmepay", creds.Provider)
}

func TestGetConfig_Missing(t *testing.T) {
	configRepo := new(MockConfigRepository)
	auditRepo := new(MockAuditLogRepository)
	configRepo.On("Get", mock.Anything).Return(nil, billing.ErrConfigMissing)

	svc := newTestService(configRepo, auditRepo)
	_, err := svc.GetConfig(context.Background())
	assert.ErrorIs(t, err, billing.ErrConfigMissing)
}

func TestSaveConfig_KeepsStoredSecretsWhenOmitted(t *testing.T) {
	configRepo := new(MockConfigRepository)
	auditRepo := new(MockAuditLogRepository)
	configRepo.On("Get", mock.Anything).Return(storedRegisteredConfig(), nil)
	configRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(cfg *billing.BoletoConfig) bool {
		c := cfg.Registered.Credentials
		return c.ClientSecret == "sec_stored" && c.APIToken == "tok_stored" && c.WebhookToken == "whk_stored"
	})).Return(nil)
	auditRepo.On("Append", mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(configRepo, auditRepo)
	view, err := svc.SaveConfig(context.Background(), registeredSaveRequest(), uuid.New(), "admin@spiceshelf.example")
	require.NoError(t, err)

	// the response stays redacted even though secrets were carried over
	assert.True(t, view.Registered.Credentials.HasAPIToken)
	configRepo.AssertExpectations(t)
}

func TestSaveConfig_NewSecretsReplaceStored(t *testing.T) {
	configRepo := new(MockConfigRepository)
	auditRepo := new(MockAuditLogRepository)
	configRepo.On("Get", mock.Anything).Return(storedRegisteredConfig(), nil)
	configRepo.On("Upsert", mock.Anything, mock.MatchedBy(func(cfg *billing.BoletoConfig) bool {
		return cfg.Registered.Credentials.APIToken == "tok_new"
	})).Return(nil)
	auditRepo.On("Append", mock.Anything, mock.Anything).Return(nil)

	req := registeredSaveRequest()
	req.Registered.Credentials.APIToken = "tok_new"

	svc := newTestService(configRepo, auditRepo)
	_, err := svc.SaveConfig(context.Background(), req, uuid.New(), "admin@spiceshelf.example")
	require.NoError(t, err)
	configRepo.AssertExpectations(t)
}

func TestSaveConfig_RejectsInvalid(t *testing.T) {
	configRepo := new(MockConfigRepository)
	auditRepo := new(MockAuditLogRepository)
	configRepo.On("Get", mock.Anything).Return(nil, billing.ErrConfigMissing)

	req := registeredSaveRequest()
	req.Registered.Credentials.Endpoint = "" // required in production

	svc := newTestService(configRepo, auditRepo)
	_, err := svc.SaveConfig(context.Background(), req, uuid.New(), "admin@spiceshelf.example")
	assert.Error(t, err)
	configRepo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestSaveConfig_WritesAuditEntry(t *testing.T) {
	configRepo := new(MockConfigRepository)
	auditRepo := new(MockAuditLogRepository)
	configRepo.On("Get", mock.Anything).Return(nil, billing.ErrConfigMissing)
	configRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	actorID := uuid.New()
	auditRepo.On("Append", mock.Anything, mock.MatchedBy(func(e *billing.AuditLogEntry) bool {
		return e.Action == billing.AuditActionConfigSaved &&
			e.ActorID != nil && *e.ActorID == actorID &&
			e.ActorEmail == "admin@spiceshelf.example"
	})).Return(nil)

	req := registeredSaveRequest()
	req.Registered.Credentials.APIToken = "tok_first"

	svc := newTestService(configRepo, auditRepo)
	_, err := svc.SaveConfig(context.Background(), req, actorID, "admin@spiceshelf.example")
	require.NoError(t, err)
	auditRepo.AssertExpectations(t)
}

func TestResolveActive_CachesUntilSave(t *testing.T) {
	configRepo := new(MockConfigRepository)
	auditRepo := new(MockAuditLogRepository)
	configRepo.On("Get", mock.Anything).Return(storedRegisteredConfig(), nil)

	svc := newTestService(configRepo, auditRepo)

	for i := 0; i < 3; i++ {
		cfg, err := svc.ResolveActive(context.Background())
		require.NoError(t, err)
		assert.Equal(t, billing.BoletoModeRegistered, cfg.Mode)
	}
	configRepo.AssertNumberOfCalls(t, "Get", 1)

	// saving invalidates the cache
	configRepo.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	auditRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
	req := registeredSaveRequest()
	req.Registered.Credentials.APIToken = "tok_new"
	_, err := svc.SaveConfig(context.Background(), req, uuid.New(), "admin@spiceshelf.example")
	require.NoError(t, err)

	_, err = svc.ResolveActive(context.Background())
	require.NoError(t, err)
	// one Get for the initial resolve, one during save (secret carry), one after invalidation
	configRepo.AssertNumberOfCalls(t, "Get", 3)
}

func TestResolveActive_Disabled(t *testing.T) {
	configRepo := new(MockConfigRepository)
	auditRepo := new(MockAuditLogRepository)
	stored := storedRegisteredConfig()
	stored.Enabled = false
	configRepo.On("Get", mock.Anything).Return(stored, nil)

	svc := newTestService(configRepo, auditRepo)
	_, err := svc.ResolveActive(context.Background())
	assert.ErrorIs(t, err, billing.ErrConfigDisabled)
}

func TestResolveActive_InvalidStoredConfig(t *testing.T) {
	configRepo := new(MockConfigRepository)
	auditRepo := new(MockAuditLogRepository)
	stored := storedRegisteredConfig()
	stored.Registered.Credentials.Endpoint = ""
	configRepo.On("Get", mock.Anything).Return(stored, nil)

	svc := newTestService(configRepo, auditRepo)
	_, err := svc.ResolveActive(context.Background())
	assert.ErrorIs(t, err, billing.ErrConfigInvalid)
}

func TestResolveActive_Missing(t *testing.T) {
	configRepo := new(MockConfigRepository)
	auditRepo := new(MockAuditLogRepository)
	configRepo.On("Get", mock.Anything).Return(nil, billing.ErrConfigMissing)

	svc := newTestService(configRepo, auditRepo)
	_, err := svc.ResolveActive(context.Background())
	assert.ErrorIs(t, err, billing.ErrConfigMissing)
}
