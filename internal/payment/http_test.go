package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/payup/internal/apperr"
	"github.com/mmynk/payup/internal/models"
)

func TestHTTPProvider_Lifecycle(t *testing.T) {
	var created paymentJSON
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer live_key", r.Header.Get("Authorization"))

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v2/payments":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&created))
			w.Write([]byte(`{"id":"tr_1","status":"open","amount":{"currency":"EUR","value":"12.50"},
				"_links":{"checkout":{"href":"https://pay.example.com/tr_1"}}}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v2/payments/tr_1":
			w.Write([]byte(`{"id":"tr_1","status":"paid","amount":{"currency":"EUR","value":"12.50"}}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/v2/payments/tr_1":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	provider := NewHTTPProvider(srv.URL, "EUR", 5*time.Second)
	client, err := provider.ClientFor(&models.User{ProviderKey: "live_key"})
	require.NoError(t, err)
	ctx := context.Background()

	checkout, err := client.Create(ctx, CreateParams{
		Amount:      decimal.RequireFromString("12.5"),
		Description: "PayUp",
		RedirectURL: "https://payup.example.com/done",
	})
	require.NoError(t, err)
	assert.Equal(t, "tr_1", checkout.ID)
	assert.Equal(t, StatusOpen, checkout.Status)
	assert.Equal(t, "https://pay.example.com/tr_1", checkout.CheckoutURL)
	assert.Equal(t, "12.50", created.Amount.Value)
	assert.Equal(t, "EUR", created.Amount.Currency)

	got, err := client.Get(ctx, "tr_1")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, got.Status)

	assert.NoError(t, client.Cancel(ctx, "tr_1"))

	_, err = client.Get(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrDependency)
}

func TestHTTPProvider_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client, err := NewHTTPProvider(srv.URL, "EUR", time.Second).ClientFor(&models.User{ProviderKey: "k"})
	require.NoError(t, err)

	_, err = client.Create(context.Background(), CreateParams{Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, apperr.ErrDependency)
}

func TestClientFor_RequiresCredential(t *testing.T) {
	_, err := NewHTTPProvider("http://x", "EUR", time.Second).ClientFor(&models.User{})
	assert.ErrorIs(t, err, ErrNoCredential)
	_, err = NewFakeProvider().ClientFor(&models.User{})
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestMapStatus(t *testing.T) {
	tests := map[string]Status{
		"paid":       StatusPaid,
		"open":       StatusOpen,
		"pending":    StatusOpen,
		"authorized": StatusOpen,
		"failed":     StatusFailed,
		"canceled":   StatusFailed,
		"expired":    StatusFailed,
	}
	for in, want := range tests {
		assert.Equal(t, want, mapStatus(in), in)
	}
}
