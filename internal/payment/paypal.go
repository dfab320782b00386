package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/desertthunder/bowlstone/internal/shared"
)

var _ Gateway = (*PayPal)(nil)

// SandboxURL is the PayPal sandbox REST API.
const SandboxURL = "https://api-m.sandbox.paypal.com"

// PayPal creates and captures orders with the PayPal Orders v2 API.
type PayPal struct {
	baseURL  string
	amount   string
	currency string
	tokens   *clientcredentials.Config
	client   *http.Client
}

// NewPayPal returns a client for cfg, or [ErrNotConfigured] without credentials.
func NewPayPal(cfg shared.PayPalConfig) (*PayPal, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = SandboxURL
	}
	amount, currency := cfg.Amount, cfg.Currency
	if amount == "" {
		amount = DefaultAmount
	}
	if currency == "" {
		currency = DefaultCurrency
	}

	p := &PayPal{
		baseURL:  baseURL,
		amount:   amount,
		currency: currency,
		tokens: &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     baseURL + "/v1/oauth2/token",
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
	}
	p.client = p.tokens.Client(context.Background())
	return p, nil
}

// WithHTTPClient sets the transport used for token and API calls.
func (p *PayPal) WithHTTPClient(c *http.Client) *PayPal {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c)
	p.client = p.tokens.Client(ctx)
	return p
}

type amount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type purchaseUnit struct {
	Description string `json:"description"`
	Amount      amount `json:"amount"`
}

type orderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []purchaseUnit `json:"purchase_units"`
}

type orderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

// CreateOrder creates a capture-intent order for the configured price.
func (p *PayPal) CreateOrder(ctx context.Context) (Order, error) {
	req := orderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []purchaseUnit{{
			Description: OrderDescription,
			Amount:      amount{CurrencyCode: p.currency, Value: p.amount},
		}},
	}

	var resp orderResponse
	if err := p.post(ctx, "/v2/checkout/orders", req, &resp); err != nil {
		return Order{}, err
	}
	if resp.ID == "" {
		return Order{}, fmt.Errorf("%w: order response has no id", shared.ErrAPIRequest)
	}

	order := Order{ID: resp.ID}
	for _, l := range resp.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			order.ApproveURL = l.Href
			break
		}
	}
	return order, nil
}

// CaptureOrder captures an approved order. Anything but a COMPLETED capture is a failure.
func (p *PayPal) CaptureOrder(ctx context.Context, orderID string) error {
	var resp orderResponse
	if err := p.post(ctx, "/v2/checkout/orders/"+url.PathEscape(orderID)+"/capture", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "COMPLETED" {
		return fmt.Errorf("%w: order %s is %s", shared.ErrPaymentFailed, orderID, resp.Status)
	}
	return nil
}

func (p *PayPal) post(ctx context.Context, path string, body, out any) error {
	var payload io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", shared.ErrAPIRequest, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned %d: %s", shared.ErrAPIRequest, path, resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}
