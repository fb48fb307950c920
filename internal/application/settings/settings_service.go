package settings

import (
	"context"
	"errors"
	"sync"

	"github.com/spiceshelf/backend/internal/domain/billing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service manages the boleto configuration: admin reads and writes plus the
// resolved active config used by the checkout path. The resolved config is
// cached in-process and invalidated on every save.
type Service struct {
	configRepo billing.ConfigRepository
	auditRepo  billing.AuditLogRepository
	logger     *zap.Logger

	mu     sync.RWMutex
	cached *billing.BoletoConfig
}

// ServiceConfig holds the settings service dependencies
type ServiceConfig struct {
	ConfigRepo billing.ConfigRepository
	AuditRepo  billing.AuditLogRepository
	Logger     *zap.Logger
}

// NewService creates a settings service
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		configRepo: cfg.ConfigRepo,
		auditRepo:  cfg.AuditRepo,
		logger:     logger,
	}
}

// GetConfig returns the stored configuration with secrets redacted.
// Returns billing.ErrConfigMissing when nothing has been saved yet.
func (s *Service) GetConfig(ctx context.Context) (*ConfigView, error) {
	cfg, err := s.configRepo.Get(ctx)
	if err != nil {
		return nil, err
	}
	view := NewConfigView(cfg)
	return &view, nil
}

// SaveConfig validates and stores the configuration, then invalidates the
// resolver cache. Secret fields left empty in the request keep their stored
// values. actorID/actorEmail identify the admin for the audit trail.
func (s *Service) SaveConfig(ctx context.Context, req *SaveConfigRequest, actorID uuid.UUID, actorEmail string) (*ConfigView, error) {
	cfg := &billing.BoletoConfig{
		Enabled: req.Enabled,
		Mode:    billing.BoletoMode(req.Mode),
	}

	if req.Manual != nil {
		cfg.Manual = &billing.ManualConfig{
			Bank: billing.BankAccount{
				Code:                req.Manual.Bank.Code,
				Name:                req.Manual.Bank.Name,
				Agency:              req.Manual.Bank.Agency,
				Account:             req.Manual.Bank.Account,
				AccountDigit:        req.Manual.Bank.AccountDigit,
				Wallet:              req.Manual.Bank.Wallet,
				Agreement:           req.Manual.Bank.Agreement,
				BeneficiaryName:     req.Manual.Bank.BeneficiaryName,
				BeneficiaryDocument: req.Manual.Bank.BeneficiaryDocument,
			},
			Billing: billingTermsFromDTO(req.Manual.Billing),
		}
	}

	if req.Registered != nil {
		in := req.Registered.Credentials
		cfg.Registered = &billing.RegisteredConfig{
			Credentials: billing.ProviderCredentials{
				Provider:     in.Provider,
				APIType:      in.APIType,
				Environment:  billing.Environment(in.Environment),
				Endpoint:     in.Endpoint,
				ClientID:     in.ClientID,
				ClientSecret: in.ClientSecret,
				APIToken:     in.APIToken,
				WebhookToken: in.WebhookToken,
			},
			Billing: billingTermsFromDTO(req.Registered.Billing),
		}
	}

	s.carryStoredSecrets(ctx, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.UpdatedBy = actorEmail

	if err := s.configRepo.Upsert(ctx, cfg); err != nil {
		s.logger.Error("Failed to save boleto configuration", zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()

	entry := billing.NewAuditLogEntry(billing.AuditActionConfigSaved, "boleto_config", uuid.Nil,
		billing.AuditDetails{Notes: "mode=" + cfg.Mode.String()}).
		WithActor(actorID, actorEmail)
	if err := s.auditRepo.Append(ctx, entry); err != nil {
		s.logger.Warn("Failed to append settings audit entry", zap.Error(err))
	}

	s.logger.Info("Boleto configuration saved",
		zap.String("mode", cfg.Mode.String()),
		zap.Bool("enabled", cfg.Enabled),
		zap.String("updated_by", actorEmail))

	view := NewConfigView(cfg)
	return &view, nil
}

// carryStoredSecrets fills empty secret fields from the stored configuration
func (s *Service) carryStoredSecrets(ctx context.Context, cfg *billing.BoletoConfig) {
	if cfg.Registered == nil {
		return
	}
	stored, err := s.configRepo.Get(ctx)
	if err != nil || stored == nil || stored.Registered == nil {
		return
	}
	creds := &cfg.Registered.Credentials
	old := stored.Registered.Credentials
	if creds.ClientSecret == "" {
		creds.ClientSecret = old.ClientSecret
	}
	if creds.APIToken == "" {
		creds.APIToken = old.APIToken
	}
	if creds.WebhookToken == "" {
		creds.WebhookToken = old.WebhookToken
	}
}

// ResolveActive returns the validated, enabled configuration for issuance.
// Returns ErrConfigMissing, ErrConfigDisabled, or ErrConfigInvalid.
func (s *Service) ResolveActive(ctx context.Context) (*billing.BoletoConfig, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		return s.checkActive(cached)
	}

	cfg, err := s.configRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, billing.ErrConfigMissing) {
			return nil, billing.ErrConfigMissing
		}
		return nil, err
	}

	s.mu.Lock()
	s.cached = cfg
	s.mu.Unlock()

	return s.checkActive(cfg)
}

func (s *Service) checkActive(cfg *billing.BoletoConfig) (*billing.BoletoConfig, error) {
	if !cfg.Enabled {
		return nil, billing.ErrConfigDisabled
	}
	if err := cfg.Validate(); err != nil {
		s.logger.Warn("Stored boleto configuration failed validation", zap.Error(err))
		return nil, billing.ErrConfigInvalid
	}
	return cfg, nil
}
