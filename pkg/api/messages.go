// Package api defines the PayUp RPC surface: procedure names, the JSON
// messages exchanged over Connect, and typed clients.
//
// Money is a decimal string on the wire ("12.50").
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	Email               string `json:"email"`
	IBAN                string `json:"iban,omitempty"`
	PaymentMethod       string `json:"payment_method"`
	AllowManualPayments bool   `json:"allow_manual_payments"`
	// HasProviderKey tells whether a hosted payment credential is stored.
	// The key itself is never returned.
	HasProviderKey bool `json:"has_provider_key"`
}

// Auth

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name" validate:"max=100"`
}

type SignInResponse struct {
	User    *User  `json:"user"`
	Token   string `json:"token"`
	Created bool   `json:"created"`
}

// Users

type GetProfileRequest struct{}

// UpdateProfileRequest changes only the fields that are set.
type UpdateProfileRequest struct {
	Name                *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	IBAN                *string `json:"iban,omitempty" validate:"omitempty,max=34"`
	PaymentMethod       *string `json:"payment_method,omitempty" validate:"omitempty,oneof=bank_transfer hosted"`
	ProviderKey         *string `json:"provider_key,omitempty"`
	AllowManualPayments *bool   `json:"allow_manual_payments,omitempty"`
}

type ProfileResponse struct {
	User *User `json:"user"`
}

// Requests

type Share struct {
	ID          string          `json:"id,omitempty"`
	UserID      int64           `json:"user_id" validate:"gt=0"`
	Parts       decimal.Decimal `json:"parts"`
	PayedAmount decimal.Decimal `json:"payed_amount"`
	Complete    bool            `json:"complete"`
}

type PaymentRequest struct {
	ID          string          `json:"id"`
	OwnerID     int64           `json:"owner_id"`
	RecipientID int64           `json:"recipient_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Published   bool            `json:"published"`
	CreatedAt   time.Time       `json:"created_at"`
	Shares      []Share         `json:"shares"`
}

type ShareInput struct {
	UserID int64           `json:"user_id" validate:"gt=0"`
	Parts  decimal.Decimal `json:"parts"`
}

type CreateRequestRequest struct {
	// RecipientID defaults to the caller.
	RecipientID int64           `json:"recipient_id,omitempty" validate:"gte=0"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=200"`
	Shares      []ShareInput    `json:"shares" validate:"required,min=1,dive"`
	// Publish books the request right away instead of leaving a draft.
	Publish bool `json:"publish"`
}

type GetRequestRequest struct {
	ID string `json:"id" validate:"required"`
}

type ListRequestsRequest struct{}

type ListRequestsResponse struct {
	Requests []*PaymentRequest `json:"requests"`
}

// UpdateRequestRequest patches a request. Amount, recipient and shares can
// only change while it is a draft.
type UpdateRequestRequest struct {
	ID          string           `json:"id" validate:"required"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=200"`
	RecipientID *int64           `json:"recipient_id,omitempty" validate:"omitempty,gt=0"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Shares      []ShareInput     `json:"shares,omitempty" validate:"omitempty,dive"`
}

type DeleteRequestRequest struct {
	ID string `json:"id" validate:"required"`
}

type DeleteRequestResponse struct{}

type PublishRequestRequest struct {
	ID string `json:"id" validate:"required"`
}

type RequestResponse struct {
	Request *PaymentRequest `json:"request"`
}

// Balances

// Balance is one pairwise balance from the caller's point of view.
type Balance struct {
	CounterpartyID   int64  `json:"counterparty_id"`
	CounterpartyName string `json:"counterparty_name"`
	// Amount is what the caller owes when positive and is owed when negative.
	Amount        decimal.Decimal `json:"amount"`
	LastRequestID string          `json:"last_request_id,omitempty"`
	LastPaymentAt *time.Time      `json:"last_payment_at,omitempty"`
}

type ListBalancesRequest struct{}

type ListBalancesResponse struct {
	Balances []*Balance `json:"balances"`
}

type IssuePayLinkRequest struct {
	ReceiverID int64 `json:"receiver_id" validate:"gt=0"`
}

type PayLinkResponse struct {
	URL    string          `json:"url"`
	Token  string          `json:"token"`
	Amount decimal.Decimal `json:"amount"`
}

type OpenPayLinkRequest struct {
	Token string `json:"token" validate:"required"`
}

type PayPageResponse struct {
	HolderName    string          `json:"holder_name"`
	ReceiverID    int64           `json:"receiver_id"`
	ReceiverName  string          `json:"receiver_name"`
	Amount        decimal.Decimal `json:"amount"`
	AlreadyOpened bool            `json:"already_opened"`
	Method        string          `json:"method"`
	IBAN          string          `json:"iban,omitempty"`
	CheckoutURL   string          `json:"checkout_url,omitempty"`
}

type CompleteCheckoutRequest struct {
	PayeeID int64 `json:"payee_id" validate:"gt=0"`
}

type CompleteCheckoutResponse struct {
	Status string `json:"status"`
}

type RecordPaymentRequest struct {
	PayerID int64           `json:"payer_id" validate:"gt=0"`
	PayeeID int64           `json:"payee_id" validate:"gt=0,nefield=PayerID"`
	Amount  decimal.Decimal `json:"amount"`
}

type RecordPaymentResponse struct {
	PayerID int64           `json:"payer_id"`
	PayeeID int64           `json:"payee_id"`
	Amount  decimal.Decimal `json:"amount"`
	Source  string          `json:"source"`
}

// Reminders

type ConfirmReminderRequest struct {
	Token string `json:"token" validate:"required"`
	Paid  bool   `json:"paid"`
}

type ConfirmReminderResponse struct {
	ReminderID string          `json:"reminder_id"`
	Outcome    string          `json:"outcome"`
	Amount     decimal.Decimal `json:"amount"`
}
