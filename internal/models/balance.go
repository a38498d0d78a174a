package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PairwiseBalance is the net debt between exactly two distinct users.
//
// FirstUserID is always the lower ID. Amount is positive when the first user
// owes the second and negative when the second owes the first.
type PairwiseBalance struct {
	FirstUserID  int64
	SecondUserID int64
	Amount       decimal.Decimal

	// LastRequestID is the most recent request booked onto this pair, for display.
	LastRequestID string

	// LastPaymentAt is when a payment last reduced this balance.
	LastPaymentAt *time.Time

	UpdatedAt time.Time

	// CheckoutID is the open hosted checkout session, empty if none.
	CheckoutID string

	// PageOpenedAt is when the payer last opened a pay link. Used to warn
	// about paying twice.
	PageOpenedAt *time.Time
}
