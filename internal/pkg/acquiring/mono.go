package acquiring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	createInvoicePath = "/api/merchant/invoice/create"
	invoiceStatusPath = "/api/merchant/invoice/status"
	maxErrorBody      = 4 << 10
)

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Client  *http.Client
	Logger  *slog.Logger
}

// Mono is a client for the monobank merchant acquiring API.
type Mono struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

func NewMono(cfg Config) *Mono {
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Mono{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    client,
		logger:  cfg.Logger,
	}
}

type merchantPaymInfo struct {
	Reference   string `json:"reference"`
	Destination string `json:"destination,omitempty"`
}

type createInvoiceBody struct {
	Amount           int64            `json:"amount"`
	Ccy              int              `json:"ccy"`
	MerchantPaymInfo merchantPaymInfo `json:"merchantPaymInfo"`
	RedirectURL      string           `json:"redirectUrl,omitempty"`
	WebHookURL       string           `json:"webHookUrl,omitempty"`
}

type createInvoiceResponse struct {
	InvoiceID string `json:"invoiceId"`
	PageURL   string `json:"pageUrl"`
}

// StatusPayload is the invoice status document. The provider sends the same
// shape from the status endpoint and to the webhook.
type StatusPayload struct {
	InvoiceID     string `json:"invoiceId"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	Ccy           int    `json:"ccy"`
	FinalAmount   int64  `json:"finalAmount"`
	Reference     string `json:"reference"`
	CreatedDate   string `json:"createdDate"`
	ModifiedDate  string `json:"modifiedDate"`
	FailureReason string `json:"failureReason,omitempty"`
}

func (p StatusPayload) Normalize() InvoiceStatus {
	return InvoiceStatus{
		InvoiceID:   p.InvoiceID,
		Status:      ParseStatus(p.Status),
		Amount:      p.Amount,
		FinalAmount: p.FinalAmount,
		Reference:   p.Reference,
	}
}

func (m *Mono) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	if m.token == "" {
		return nil, ErrNotConfigured
	}
	ccy, err := currencyCode(req.Currency)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(createInvoiceBody{
		Amount: req.Amount,
		Ccy:    ccy,
		MerchantPaymInfo: merchantPaymInfo{
			Reference:   req.Reference,
			Destination: req.Destination,
		},
		RedirectURL: req.RedirectURL,
		WebHookURL:  req.WebhookURL,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+createInvoicePath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var out createInvoiceResponse
	if err := m.do(httpReq, "create invoice", &out); err != nil {
		return nil, err
	}
	if out.InvoiceID == "" {
		return nil, &Error{Op: "create invoice", StatusCode: http.StatusOK, Err: fmt.Errorf("empty invoiceId in response")}
	}

	if m.logger != nil {
		m.logger.Info("acquiring invoice created", "invoice_id", out.InvoiceID, "reference", req.Reference)
	}
	return &Invoice{ID: out.InvoiceID, PageURL: out.PageURL}, nil
}

func (m *Mono) InvoiceStatus(ctx context.Context, invoiceID string) (*InvoiceStatus, error) {
	if m.token == "" {
		return nil, ErrNotConfigured
	}
	u := m.baseURL + invoiceStatusPath + "?" + url.Values{"invoiceId": {invoiceID}}.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var out StatusPayload
	if err := m.do(httpReq, "invoice status", &out); err != nil {
		return nil, err
	}
	st := out.Normalize()
	return &st, nil
}

func (m *Mono) do(req *http.Request, op string, out any) error {
	req.Header.Set("X-Token", m.token)
	req.Header.Set("Accept", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if m.logger != nil {
			m.logger.Warn("acquiring call failed", "op", op, "status", resp.StatusCode, "body", string(raw))
		}
		return &Error{Op: op, StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
