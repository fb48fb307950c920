package billing

import (
	"time"

	"github.com/spiceshelf/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Configuration errors
var (
	ErrConfigMissing  = shared.NewDomainError("CONFIG_MISSING", "Boleto configuration has not been set up")
	ErrConfigInvalid  = shared.NewDomainError("CONFIG_INVALID", "Boleto configuration is incomplete or invalid")
	ErrConfigDisabled = shared.NewDomainError("CONFIG_DISABLED", "Boleto payments are disabled")
)

// BoletoMode discriminates the two issuance modes
type BoletoMode string

const (
	// BoletoModeManual issues documents against the merchant's own bank account
	BoletoModeManual BoletoMode = "MANUAL"
	// BoletoModeRegistered delegates issuance and settlement to a provider
	BoletoModeRegistered BoletoMode = "REGISTERED"
)

// IsValid returns true if the mode is known
func (m BoletoMode) IsValid() bool {
	return m == BoletoModeManual || m == BoletoModeRegistered
}

// String returns the string representation of BoletoMode
func (m BoletoMode) String() string {
	return string(m)
}

// Environment selects sandbox or production behavior
type Environment string

const (
	EnvironmentSandbox    Environment = "SANDBOX"
	EnvironmentProduction Environment = "PRODUCTION"
)

// IsValid returns true if the environment is known
func (e Environment) IsValid() bool {
	return e == EnvironmentSandbox || e == EnvironmentProduction
}

// String returns the string representation of Environment
func (e Environment) String() string {
	return string(e)
}

// BankAccount holds the merchant's bank routing data for manual issuance
type BankAccount struct {
	Code                string
	Name                string
	Agency              string
	Account             string
	AccountDigit        string
	Wallet              string
	Agreement           string
	BeneficiaryName     string
	BeneficiaryDocument string
}

// Validate checks the fields manual issuance depends on
func (b BankAccount) Validate() error {
	if len(b.Code) != 3 || !isDigits(b.Code) {
		return shared.NewDomainError("CONFIG_INVALID", "Bank code must be exactly 3 digits")
	}
	if b.Name == "" {
		return shared.NewDomainError("CONFIG_INVALID", "Bank name is required")
	}
	if b.Agency == "" {
		return shared.NewDomainError("CONFIG_INVALID", "Agency is required")
	}
	if b.Account == "" {
		return shared.NewDomainError("CONFIG_INVALID", "Account is required")
	}
	if b.BeneficiaryName == "" {
		return shared.NewDomainError("CONFIG_INVALID", "Beneficiary name is required")
	}
	if b.BeneficiaryDocument == "" {
		return shared.NewDomainError("CONFIG_INVALID", "Beneficiary document is required")
	}
	return nil
}

// BillingTerms holds due-date and charge parameters shared by both modes
type BillingTerms struct {
	DaysToExpire         int
	FinePercent          decimal.Decimal
	InterestPercentMonth decimal.Decimal
	DiscountPercent      decimal.Decimal
	Instructions         string
}

// DefaultBillingTerms returns the fallback billing parameters
func DefaultBillingTerms() BillingTerms {
	return BillingTerms{
		DaysToExpire:         3,
		FinePercent:          decimal.NewFromInt(2),
		InterestPercentMonth: decimal.NewFromInt(1),
		DiscountPercent:      decimal.Zero,
	}
}

// Validate checks the billing parameters
func (b BillingTerms) Validate() error {
	if b.DaysToExpire < 1 {
		return shared.NewDomainError("CONFIG_INVALID", "Days to expire must be at least 1")
	}
	if b.FinePercent.IsNegative() || b.InterestPercentMonth.IsNegative() {
		return shared.NewDomainError("CONFIG_INVALID", "Fine and interest percentages cannot be negative")
	}
	if b.DiscountPercent.IsNegative() || b.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewDomainError("CONFIG_INVALID", "Discount percent must be between 0 and 100")
	}
	return nil
}

// ManualConfig is the self-managed issuance branch
type ManualConfig struct {
	Bank    BankAccount
	Billing BillingTerms
}

// Validate checks the manual branch
func (c ManualConfig) Validate() error {
	if err := c.Bank.Validate(); err != nil {
		return err
	}
	return c.Billing.Validate()
}

// ProviderCredentials holds the registered-provider API access data.
// ClientSecret and APIToken are secrets and must never leave the service.
type ProviderCredentials struct {
	Provider     string
	APIType      string
	Environment  Environment
	Endpoint     string
	ClientID     string
	ClientSecret string
	APIToken     string
	WebhookToken string
}

// RegisteredConfig is the provider-backed issuance branch
type RegisteredConfig struct {
	Credentials ProviderCredentials
	Billing     BillingTerms
}

// Validate checks the registered branch
func (c RegisteredConfig) Validate() error {
	if c.Credentials.Provider == "" {
		return shared.NewDomainError("CONFIG_INVALID", "Provider name is required in registered mode")
	}
	if c.Credentials.APIType == "" {
		return shared.NewDomainError("CONFIG_INVALID", "Provider API type is required in registered mode")
	}
	if !c.Credentials.Environment.IsValid() {
		return shared.NewDomainError("CONFIG_INVALID", "Provider environment must be sandbox or production")
	}
	if c.Credentials.Environment == EnvironmentProduction && c.Credentials.Endpoint == "" {
		return shared.NewDomainError("CONFIG_INVALID", "Provider endpoint is required in production")
	}
	return c.Billing.Validate()
}

// BoletoConfig is the singleton configuration aggregate.
// Exactly the branch matching Mode is authoritative; the other may carry
// stale data from a previous mode and is ignored by every consumer.
type BoletoConfig struct {
	Version    int
	Enabled    bool
	Mode       BoletoMode
	Manual     *ManualConfig
	Registered *RegisteredConfig
	UpdatedAt  time.Time
	UpdatedBy  string
}

// Validate checks the config as a whole, per the active mode
func (c *BoletoConfig) Validate() error {
	switch c.Mode {
	case BoletoModeManual:
		if c.Manual == nil {
			return shared.NewDomainError("CONFIG_INVALID", "Manual mode requires bank configuration")
		}
		return c.Manual.Validate()
	case BoletoModeRegistered:
		if c.Registered == nil {
			return shared.NewDomainError("CONFIG_INVALID", "Registered mode requires provider configuration")
		}
		return c.Registered.Validate()
	default:
		return shared.NewDomainError("CONFIG_INVALID", "Unknown boleto mode")
	}
}

// Billing returns the billing terms of the active branch
func (c *BoletoConfig) Billing() BillingTerms {
	switch c.Mode {
	case BoletoModeManual:
		if c.Manual != nil {
			return c.Manual.Billing
		}
	case BoletoModeRegistered:
		if c.Registered != nil {
			return c.Registered.Billing
		}
	}
	return DefaultBillingTerms()
}

// Environment returns the active environment. Manual issuance has no external
// provider, so it always behaves as production.
func (c *BoletoConfig) Environment() Environment {
	if c.Mode == BoletoModeRegistered && c.Registered != nil {
		return c.Registered.Credentials.Environment
	}
	return EnvironmentProduction
}

// ProviderName returns the configured provider, or "manual"
func (c *BoletoConfig) ProviderName() string {
	if c.Mode == BoletoModeRegistered && c.Registered != nil {
		return c.Registered.Credentials.Provider
	}
	return "manual"
}
