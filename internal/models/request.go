package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRequest represents an owner asking one or more users to each pay
// a fraction of a total amount.
type PaymentRequest struct {
	// ID is the unique identifier for the request (UUID format).
	ID string

	// OwnerID is the user who created the request. Only the owner may change it.
	OwnerID int64

	// RecipientID is who ultimately receives the money. Usually the owner.
	RecipientID int64

	// Amount is the total to be divided among the shares.
	Amount decimal.Decimal

	// Description is a free-form label such as "Groceries week 12".
	Description string

	// Published is false while the request is a draft. Publishing books the
	// shares onto pairwise balances, after which Amount and Shares are frozen.
	Published bool

	CreatedAt time.Time

	// Shares are the weighted stakes of each participant.
	Shares []RequestShare
}

// TotalParts returns the sum of all share weights.
func (r *PaymentRequest) TotalParts() decimal.Decimal {
	total := decimal.Zero
	for _, s := range r.Shares {
		total = total.Add(s.Parts)
	}
	return total
}

// RequestShare is one user's stake in a PaymentRequest.
type RequestShare struct {
	// ID is the unique identifier for the share (UUID format).
	ID string

	RequestID string

	// UserID is the participant who owes this share.
	UserID int64

	// Parts is the weight used for proportional allocation.
	Parts decimal.Decimal

	// PayedAmount is how much has been paid against this share so far.
	PayedAmount decimal.Decimal

	// Complete is set once the outstanding amount is negligible.
	Complete bool

	// LastNotifiedAt is when the participant was last reminded, nil if never.
	LastNotifiedAt *time.Time
}

// OpenShare is an incomplete share joined with the request fields the
// settlement math needs.
type OpenShare struct {
	RequestShare

	RequestAmount decimal.Decimal
	RecipientID   int64
	// TotalParts is the weight sum of every share of the parent request,
	// including shares that are already complete.
	TotalParts decimal.Decimal
	CreatedAt  time.Time
}
