package provider

import (
	"context"
	"sync"

	"github.com/spiceshelf/backend/internal/domain/billing"
)

// ConfigSource supplies the active boleto configuration
type ConfigSource interface {
	ResolveActive(ctx context.Context) (*billing.BoletoConfig, error)
}

// ResolvingSettlementProvider builds the REST adapter from the active
// configuration on every issuance, so credential changes saved by an admin
// take effect without a restart. Adapters are reused while the credentials
// stay the same.
type ResolvingSettlementProvider struct {
	source ConfigSource

	mu       sync.Mutex
	cached   *RESTSettlementAdapter
	cachedBy billing.ProviderCredentials
	lastName string
}

// NewResolvingSettlementProvider creates a config-resolving provider
func NewResolvingSettlementProvider(source ConfigSource) *ResolvingSettlementProvider {
	return &ResolvingSettlementProvider{source: source, lastName: "registered"}
}

// Name returns the provider name of the most recently resolved credentials
func (p *ResolvingSettlementProvider) Name() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastName
}

// IssueTitle resolves the active credentials and delegates to the REST adapter
func (p *ResolvingSettlementProvider) IssueTitle(ctx context.Context, req *billing.ProviderIssueRequest) (*billing.ProviderIssueResponse, error) {
	adapter, err := p.adapter(ctx)
	if err != nil {
		return nil, err
	}
	return adapter.IssueTitle(ctx, req)
}

func (p *ResolvingSettlementProvider) adapter(ctx context.Context) (*RESTSettlementAdapter, error) {
	cfg, err := p.source.ResolveActive(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.Registered == nil {
		return nil, billing.ErrProviderNotConfigured
	}
	creds := cfg.Registered.Credentials

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != nil && creds == p.cachedBy {
		return p.cached, nil
	}

	adapter, err := NewRESTSettlementAdapter(creds)
	if err != nil {
		return nil, err
	}
	p.cached = adapter
	p.cachedBy = creds
	p.lastName = creds.Provider
	return adapter, nil
}

var _ billing.SettlementProvider = (*ResolvingSettlementProvider)(nil)
