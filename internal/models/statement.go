package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BankTransaction is one imported line of a bank statement.
type BankTransaction struct {
	// ID is the bank's reference for the line. Unique per OwnerID.
	ID string

	// OwnerID is the account holder whose statement was imported.
	OwnerID int64

	CounterpartyIBAN string

	// Amount is positive for money received.
	Amount decimal.Decimal

	BookedAt time.Time

	// MatchedUserID is the counterparty user, nil when the IBAN is unknown.
	MatchedUserID *int64
}
