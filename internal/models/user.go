package models

import (
	"strings"
	"time"
)

// PaymentMethod is how a user prefers to receive money.
type PaymentMethod string

const (
	// PaymentMethodBankTransfer shows the payer the receiver's IBAN.
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	// PaymentMethodHosted sends the payer to a hosted checkout page.
	PaymentMethodHosted PaymentMethod = "hosted"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodBankTransfer || m == PaymentMethodHosted
}

// User represents a registered user account.
// Users are created on first sign-in and never hard-deleted.
type User struct {
	// ID is the stable numeric identifier assigned by storage.
	// Balance ordering depends on it, so it never changes.
	ID int64

	// Name is the display name of the user.
	Name string

	// Email is the user's email address (unique).
	// Used for sign-in and reminders.
	Email string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// IBAN is the bank account shown to payers for manual transfers. Optional.
	IBAN string

	// ProviderKey is the user's credential with the hosted payment provider. Optional.
	ProviderKey string

	// PaymentMethod is how this user wants to be paid.
	PaymentMethod PaymentMethod

	// AllowManualPayments lets payers record a payment to this user themselves.
	AllowManualPayments bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser creates a user with the bank transfer method selected.
// The ID is assigned by storage.
func NewUser(email, name, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		Email:         email,
		Name:          name,
		PasswordHash:  passwordHash,
		PaymentMethod: PaymentMethodBankTransfer,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CanReceiveHosted reports whether payers can be sent to a hosted checkout.
func (u *User) CanReceiveHosted() bool {
	return u.PaymentMethod == PaymentMethodHosted && u.ProviderKey != ""
}

// NormalizeIBAN strips spaces and upper-cases an IBAN so statement lines and
// profiles compare equal.
func NormalizeIBAN(iban string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(iban), " ", ""))
}
