package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spiceshelf/backend/internal/domain/billing"
)

const (
	issueTitlePath = "/v1/titles"

	defaultTimeout = 30 * time.Second
	dueDateLayout  = "2006-01-02"
)

// RESTSettlementAdapter implements billing.SettlementProvider against a
// JSON-over-HTTP boleto registration API. Credentials come from the active
// registered-mode configuration; the adapter is rebuilt whenever settings
// change.
type RESTSettlementAdapter struct {
	creds      billing.ProviderCredentials
	httpClient *http.Client
}

// NewRESTSettlementAdapter creates an adapter for the given credentials
func NewRESTSettlementAdapter(creds billing.ProviderCredentials) (*RESTSettlementAdapter, error) {
	if creds.Provider == "" {
		return nil, fmt.Errorf("%w: provider name is empty", billing.ErrProviderNotConfigured)
	}
	if creds.Endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint is empty", billing.ErrProviderNotConfigured)
	}

	return &RESTSettlementAdapter{
		creds: creds,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}, nil
}

// Name identifies the provider behind this adapter
func (a *RESTSettlementAdapter) Name() string {
	return a.creds.Provider
}

type issueTitleRequest struct {
	ExternalReference string             `json:"external_reference"`
	AmountCents       int64              `json:"amount_cents"`
	DueDate           string             `json:"due_date"`
	Customer          issueTitleCustomer `json:"customer"`
	Instructions      string             `json:"instructions,omitempty"`
}

type issueTitleCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	CPF   string `json:"cpf,omitempty"`
}

type issueTitleResponse struct {
	ID             string  `json:"id"`
	LinhaDigitavel string  `json:"linha_digitavel"`
	Barcode        string  `json:"barcode"`
	DocumentRef    *string `json:"document_ref,omitempty"`
}

type providerErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// IssueTitle registers a payable title with the provider
func (a *RESTSettlementAdapter) IssueTitle(ctx context.Context, req *billing.ProviderIssueRequest) (*billing.ProviderIssueResponse, error) {
	body := issueTitleRequest{
		ExternalReference: req.OrderNSU,
		AmountCents:       req.AmountCents,
		DueDate:           req.DueDate.Format(dueDateLayout),
		Customer: issueTitleCustomer{
			Name:  req.CustomerName,
			Email: req.CustomerEmail,
			CPF:   req.CustomerCPF,
		},
		Instructions: req.Instructions,
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("provider %s: failed to marshal request: %w", a.creds.Provider, err)
	}

	respBody, err := a.doRequest(ctx, http.MethodPost, issueTitlePath, bodyBytes)
	if err != nil {
		return nil, err
	}

	var respData issueTitleResponse
	if err := json.Unmarshal(respBody, &respData); err != nil {
		return nil, fmt.Errorf("%w: %v", billing.ErrProviderInvalidResponse, err)
	}

	if respData.ID == "" || respData.LinhaDigitavel == "" {
		return nil, fmt.Errorf("%w: missing title id or linha digitavel", billing.ErrProviderInvalidResponse)
	}

	return &billing.ProviderIssueResponse{
		ProviderTitleID: respData.ID,
		LinhaDigitavel:  respData.LinhaDigitavel,
		Barcode:         respData.Barcode,
		DocumentRef:     respData.DocumentRef,
	}, nil
}

// doRequest performs an HTTP request against the provider API
func (a *RESTSettlementAdapter) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	url := strings.TrimRight(a.creds.Endpoint, "/") + path

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("provider %s: failed to create request: %w", a.creds.Provider, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	a.setAuth(req)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", billing.ErrProviderRequestFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", billing.ErrProviderRequestFailed, err)
	}

	if resp.StatusCode >= 400 {
		var errResp providerErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Code != "" {
			return nil, fmt.Errorf("%w: %s - %s", billing.ErrProviderRequestFailed, errResp.Code, errResp.Message)
		}
		return nil, fmt.Errorf("%w: HTTP %d", billing.ErrProviderRequestFailed, resp.StatusCode)
	}

	return respBody, nil
}

// setAuth applies the credential scheme the provider was configured with.
// API token wins over client credentials when both are present.
func (a *RESTSettlementAdapter) setAuth(req *http.Request) {
	if a.creds.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+a.creds.APIToken)
		return
	}
	if a.creds.ClientID != "" {
		req.SetBasicAuth(a.creds.ClientID, a.creds.ClientSecret)
	}
}

// Ensure RESTSettlementAdapter implements SettlementProvider interface
var _ billing.SettlementProvider = (*RESTSettlementAdapter)(nil)
