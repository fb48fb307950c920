package settings

import (
	"time"

	"github.com/spiceshelf/backend/internal/domain/billing"
	"github.com/shopspring/decimal"
)

// BillingTermsDTO mirrors billing.BillingTerms on the admin API
type BillingTermsDTO struct {
	DaysToExpire         int             `json:"days_to_expire" binding:"required,min=1"`
	FinePercent          decimal.Decimal `json:"fine_percent"`
	InterestPercentMonth decimal.Decimal `json:"interest_percent_month"`
	DiscountPercent      decimal.Decimal `json:"discount_percent"`
	Instructions         string          `json:"instructions"`
}

// BankAccountDTO mirrors billing.BankAccount on the admin API
type BankAccountDTO struct {
	Code                string `json:"code" binding:"required,len=3,numeric"`
	Name                string `json:"name" binding:"required"`
	Agency              string `json:"agency" binding:"required"`
	Account             string `json:"account" binding:"required"`
	AccountDigit        string `json:"account_digit"`
	Wallet              string `json:"wallet"`
	Agreement           string `json:"agreement"`
	BeneficiaryName     string `json:"beneficiary_name" binding:"required"`
	BeneficiaryDocument string `json:"beneficiary_document" binding:"required"`
}

// ManualConfigDTO is the manual branch of the save payload
type ManualConfigDTO struct {
	Bank    BankAccountDTO  `json:"bank"`
	Billing BillingTermsDTO `json:"billing"`
}

// ProviderCredentialsInput carries credentials on the way in. Secret fields
// left empty keep their stored values, so admins can edit without re-entering.
type ProviderCredentialsInput struct {
	Provider     string `json:"provider" binding:"required"`
	APIType      string `json:"api_type" binding:"required"`
	Environment  string `json:"environment" binding:"required,oneof=SANDBOX PRODUCTION"`
	Endpoint     string `json:"endpoint"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	APIToken     string `json:"api_token"`
	WebhookToken string `json:"webhook_token"`
}

// RegisteredConfigInput is the registered branch of the save payload
type RegisteredConfigInput struct {
	Credentials ProviderCredentialsInput `json:"credentials"`
	Billing     BillingTermsDTO          `json:"billing"`
}

// SaveConfigRequest is the admin save payload
type SaveConfigRequest struct {
	Enabled    bool                   `json:"enabled"`
	Mode       string                 `json:"mode" binding:"required,oneof=MANUAL REGISTERED"`
	Manual     *ManualConfigDTO       `json:"manual"`
	Registered *RegisteredConfigInput `json:"registered"`
}

// ProviderCredentialsView is the outbound credential shape. Secret values are
// replaced by presence booleans and never serialized.
type ProviderCredentialsView struct {
	Provider        string `json:"provider"`
	APIType         string `json:"api_type"`
	Environment     string `json:"environment"`
	Endpoint        string `json:"endpoint"`
	ClientID        string `json:"client_id"`
	HasClientSecret bool   `json:"has_client_secret"`
	HasAPIToken     bool   `json:"has_api_token"`
	HasWebhookToken bool   `json:"has_webhook_token"`
}

// RegisteredConfigView is the outbound registered branch
type RegisteredConfigView struct {
	Credentials ProviderCredentialsView `json:"credentials"`
	Billing     BillingTermsDTO         `json:"billing"`
}

// ConfigView is the outbound configuration shape for the admin API
type ConfigView struct {
	Version    int                   `json:"version"`
	Enabled    bool                  `json:"enabled"`
	Mode       string                `json:"mode"`
	Manual     *ManualConfigDTO      `json:"manual,omitempty"`
	Registered *RegisteredConfigView `json:"registered,omitempty"`
	UpdatedAt  time.Time             `json:"updated_at"`
	UpdatedBy  string                `json:"updated_by,omitempty"`
}

func billingTermsToDTO(t billing.BillingTerms) BillingTermsDTO {
	return BillingTermsDTO{
		DaysToExpire:         t.DaysToExpire,
		FinePercent:          t.FinePercent,
		InterestPercentMonth: t.InterestPercentMonth,
		DiscountPercent:      t.DiscountPercent,
		Instructions:         t.Instructions,
	}
}

func billingTermsFromDTO(d BillingTermsDTO) billing.BillingTerms {
	return billing.BillingTerms{
		DaysToExpire:         d.DaysToExpire,
		FinePercent:          d.FinePercent,
		InterestPercentMonth: d.InterestPercentMonth,
		DiscountPercent:      d.DiscountPercent,
		Instructions:         d.Instructions,
	}
}

// NewConfigView converts the aggregate to its redacted API shape
func NewConfigView(cfg *billing.BoletoConfig) ConfigView {
	view := ConfigView{
		Version:   cfg.Version,
		Enabled:   cfg.Enabled,
		Mode:      cfg.Mode.String(),
		UpdatedAt: cfg.UpdatedAt,
		UpdatedBy: cfg.UpdatedBy,
	}
	if cfg.Manual != nil {
		view.Manual = &ManualConfigDTO{
			Bank: BankAccountDTO{
				Code:                cfg.Manual.Bank.Code,
				Name:                cfg.Manual.Bank.Name,
				Agency:              cfg.Manual.Bank.Agency,
				Account:             cfg.Manual.Bank.Account,
				AccountDigit:        cfg.Manual.Bank.AccountDigit,
				Wallet:              cfg.Manual.Bank.Wallet,
				Agreement:           cfg.Manual.Bank.Agreement,
				BeneficiaryName:     cfg.Manual.Bank.BeneficiaryName,
				BeneficiaryDocument: cfg.Manual.Bank.BeneficiaryDocument,
			},
			Billing: billingTermsToDTO(cfg.Manual.Billing),
		}
	}
	if cfg.Registered != nil {
		creds := cfg.Registered.Credentials
		view.Registered = &RegisteredConfigView{
			Credentials: ProviderCredentialsView{
				Provider:        creds.Provider,
				APIType:         creds.APIType,
				Environment:     creds.Environment.String(),
				Endpoint:        creds.Endpoint,
				ClientID:        creds.ClientID,
				HasClientSecret: creds.ClientSecret != "",
				HasAPIToken:     creds.APIToken != "",
				HasWebhookToken: creds.WebhookToken != "",
			},
			Billing: billingTermsToDTO(cfg.Registered.Billing),
		}
	}
	return view
}
