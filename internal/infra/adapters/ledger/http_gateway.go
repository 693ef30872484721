// File: internal/infra/adapters/ledger/http_gateway.go
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"autopay-billing/internal/domain"
	"autopay-billing/internal/domain/ports/adapter"
)

var _ adapter.Ledger = (*HTTPGateway)(nil)

// HTTPGateway implements adapter.Ledger against the asset-transfer
// service's REST API. The service applies each transfer all-or-nothing;
// this client only shuttles requests and maps failures onto domain errors.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPGateway(baseURL, apiKey string) (*HTTPGateway, error) {
	if baseURL == "" {
		return nil, errors.New("ledger base url empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid ledger base url: %w", err)
	}
	return &HTTPGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *HTTPGateway) Name() string { return "ledger-http" }

func (g *HTTPGateway) Transfer(ctx context.Context, from, to string, amount int64, currency string) error {
	payload := map[string]any{
		"from":     from,
		"to":       to,
		"amount":   amount,
		"currency": currency,
	}
	var out struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := g.post(ctx, "/v1/transfers", payload, &out); err != nil {
		return err
	}
	switch out.Status {
	case "ok":
		return nil
	case "insufficient_funds":
		return domain.ErrInsufficientFunds
	default:
		return fmt.Errorf("ledger transfer failed: %s", out.Error)
	}
}

func (g *HTTPGateway) Balance(ctx context.Context, account string) (int64, error) {
	var out struct {
		Balance int64 `json:"balance"`
	}
	if err := g.get(ctx, "/v1/accounts/"+url.PathEscape(account), &out); err != nil {
		return 0, err
	}
	return out.Balance, nil
}

func (g *HTTPGateway) Currency(ctx context.Context, account string) (string, error) {
	var out struct {
		Currency string `json:"currency"`
	}
	if err := g.get(ctx, "/v1/accounts/"+url.PathEscape(account), &out); err != nil {
		return "", err
	}
	return out.Currency, nil
}

func (g *HTTPGateway) post(ctx context.Context, path string, payload any, out any) error {
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(req, out)
}

func (g *HTTPGateway) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return err
	}
	return g.do(req, out)
}

func (g *HTTPGateway) do(req *http.Request, out any) error {
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("ledger: unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
