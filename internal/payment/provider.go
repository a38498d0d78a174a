// Package payment talks to the hosted checkout provider that collects money
// on behalf of a receiver.
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/mmynk/payup/internal/models"
)

// Status is the provider-side state of a checkout.
type Status string

const (
	StatusOpen   Status = "open"
	StatusPaid   Status = "paid"
	StatusFailed Status = "failed"
)

// ErrNoCredential is returned by ClientFor when the receiver has no provider key.
var ErrNoCredential = errors.New("receiver has no payment provider credential")

// Checkout is one payment intent at the provider.
type Checkout struct {
	ID          string
	CheckoutURL string
	Status      Status
	Amount      decimal.Decimal
}

// CreateParams describes a new checkout.
type CreateParams struct {
	Amount      decimal.Decimal
	Description string
	RedirectURL string
	Metadata    map[string]string
}

// Client performs checkout operations for one receiver's account.
type Client interface {
	Create(ctx context.Context, p CreateParams) (*Checkout, error)
	Get(ctx context.Context, id string) (*Checkout, error)
	Cancel(ctx context.Context, id string) error
}

// Provider hands out per-receiver clients keyed by their credential.
type Provider interface {
	ClientFor(user *models.User) (Client, error)
}
