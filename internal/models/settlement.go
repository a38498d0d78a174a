package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementSource records how a payment was detected.
type SettlementSource string

const (
	SourceManual   SettlementSource = "manual"
	SourceHosted   SettlementSource = "hosted"
	SourceBank     SettlementSource = "bank_transfer"
	SourceReminder SettlementSource = "reminder"
)

// Settlement represents a payment between two users to clear debts.
type Settlement struct {
	// FromUserID is the user who paid (debtor settling up).
	FromUserID int64

	// ToUserID is the user who received payment (creditor being paid).
	ToUserID int64

	// Amount is the payment amount. Always positive.
	Amount decimal.Decimal

	// Source is how the payment was detected.
	Source SettlementSource

	// CreatedAt is when the payment was recorded.
	CreatedAt time.Time
}
