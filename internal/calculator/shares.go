package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/payup/internal/apperr"
	"github.com/mmynk/payup/internal/models"
)

// settledEpsilon is the currency rounding noise below which an amount counts as zero.
var settledEpsilon = decimal.New(1, -2)

// IsSettled reports whether |amount| is below one cent.
func IsSettled(amount decimal.Decimal) bool {
	return amount.Abs().LessThan(settledEpsilon)
}

// ValidateShares checks that a request can be allocated: a positive amount, at
// least one share, no negative weights, no duplicate participants, and a
// positive weight sum.
func ValidateShares(amount decimal.Decimal, shares []models.RequestShare) error {
	if !amount.IsPositive() {
		return apperr.Invalid("amount", "must be positive")
	}
	if len(shares) == 0 {
		return apperr.Invalid("shares", "must have at least one share")
	}

	seen := make(map[int64]bool, len(shares))
	total := decimal.Zero
	for _, s := range shares {
		if s.Parts.IsNegative() {
			return apperr.Invalid("shares.parts", "user %d has negative parts", s.UserID)
		}
		if seen[s.UserID] {
			return apperr.Invalid("shares.user_id", "user %d appears more than once", s.UserID)
		}
		seen[s.UserID] = true
		total = total.Add(s.Parts)
	}
	if !total.IsPositive() {
		return apperr.Invalid("shares.parts", "total parts must be positive")
	}
	return nil
}

// Owed computes a share's theoretical entitlement: parts / totalParts * amount.
func Owed(parts, totalParts, amount decimal.Decimal) (decimal.Decimal, error) {
	if !totalParts.IsPositive() {
		return decimal.Zero, apperr.Invalid("shares.parts", "total parts must be positive")
	}
	// Multiply first so exact fractions such as 1/4 of 100 stay exact.
	return parts.Mul(amount).Div(totalParts), nil
}

// Outstanding returns what is still owed on a share: Owed - PayedAmount.
// Negative when the share has been overpaid.
func Outstanding(share models.RequestShare, totalParts, amount decimal.Decimal) (decimal.Decimal, error) {
	owed, err := Owed(share.Parts, totalParts, amount)
	if err != nil {
		return decimal.Zero, err
	}
	return owed.Sub(share.PayedAmount), nil
}

// Allocate returns the outstanding amount of every share of a request, keyed by share ID.
func Allocate(req *models.PaymentRequest) (map[string]decimal.Decimal, error) {
	if err := ValidateShares(req.Amount, req.Shares); err != nil {
		return nil, err
	}
	total := req.TotalParts()

	result := make(map[string]decimal.Decimal, len(req.Shares))
	for _, s := range req.Shares {
		out, err := Outstanding(s, total, req.Amount)
		if err != nil {
			return nil, err
		}
		result[s.ID] = out
	}
	return result, nil
}
