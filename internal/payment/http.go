package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/payup/internal/apperr"
	"github.com/mmynk/payup/internal/metrics"
	"github.com/mmynk/payup/internal/models"
)

// HTTPProvider is a Provider for a REST checkout API that authenticates
// with a per-account bearer key.
type HTTPProvider struct {
	baseURL  string
	currency string
	http     *http.Client
}

// NewHTTPProvider creates a provider against baseURL. Calls block until the
// provider answers or timeout elapses; they are never retried.
func NewHTTPProvider(baseURL, currency string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		baseURL:  baseURL,
		currency: currency,
		http:     &http.Client{Timeout: timeout},
	}
}

// ClientFor returns a client acting on the user's provider account.
func (p *HTTPProvider) ClientFor(user *models.User) (Client, error) {
	if user.ProviderKey == "" {
		return nil, ErrNoCredential
	}
	return &httpClient{provider: p, key: user.ProviderKey}, nil
}

type httpClient struct {
	provider *HTTPProvider
	key      string
}

type amountJSON struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

type paymentJSON struct {
	ID          string            `json:"id,omitempty"`
	Status      string            `json:"status,omitempty"`
	Amount      amountJSON        `json:"amount"`
	Description string            `json:"description,omitempty"`
	RedirectURL string            `json:"redirectUrl,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Links       struct {
		Checkout struct {
			Href string `json:"href"`
		} `json:"checkout"`
	} `json:"_links"`
}

func (c *httpClient) Create(ctx context.Context, p CreateParams) (*Checkout, error) {
	body := paymentJSON{
		Amount:      amountJSON{Currency: c.provider.currency, Value: p.Amount.StringFixed(2)},
		Description: p.Description,
		RedirectURL: p.RedirectURL,
		Metadata:    p.Metadata,
	}
	var out paymentJSON
	err := c.do(ctx, http.MethodPost, "/v2/payments", body, &out)
	metrics.ProviderCalls.WithLabelValues("create", metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}
	return out.checkout()
}

func (c *httpClient) Get(ctx context.Context, id string) (*Checkout, error) {
	var out paymentJSON
	err := c.do(ctx, http.MethodGet, "/v2/payments/"+url.PathEscape(id), nil, &out)
	metrics.ProviderCalls.WithLabelValues("get", metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}
	return out.checkout()
}

func (c *httpClient) Cancel(ctx context.Context, id string) error {
	err := c.do(ctx, http.MethodDelete, "/v2/payments/"+url.PathEscape(id), nil, nil)
	metrics.ProviderCalls.WithLabelValues("cancel", metrics.Result(err)).Inc()
	return err
}

func (c *httpClient) do(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.provider.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.provider.http.Do(req)
	if err != nil {
		return apperr.Dependency("payment provider", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return apperr.Dependency("payment provider", fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Dependency("payment provider", fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

func (p paymentJSON) checkout() (*Checkout, error) {
	amount, err := decimal.NewFromString(p.Amount.Value)
	if err != nil {
		return nil, apperr.Dependency("payment provider", fmt.Errorf("invalid amount %q: %w", p.Amount.Value, err))
	}
	return &Checkout{
		ID:          p.ID,
		CheckoutURL: p.Links.Checkout.Href,
		Status:      mapStatus(p.Status),
		Amount:      amount,
	}, nil
}

// mapStatus folds the provider's lifecycle onto open, paid and failed.
func mapStatus(s string) Status {
	switch s {
	case "paid":
		return StatusPaid
	case "failed", "canceled", "expired":
		return StatusFailed
	default:
		return StatusOpen
	}
}
