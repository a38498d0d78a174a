package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReminderOutcome is the tri-state answer to "did you pay?".
type ReminderOutcome string

const (
	OutcomeUnset   ReminderOutcome = "unset"
	OutcomePaid    ReminderOutcome = "paid"
	OutcomeNotPaid ReminderOutcome = "not_paid"
)

// Terminal reports whether no further transition is allowed.
func (o ReminderOutcome) Terminal() bool {
	return o == OutcomePaid || o == OutcomeNotPaid
}

// Reminder is a snapshot taken when a payer opens a pay link without
// completing payment.
type Reminder struct {
	// ID is the unique identifier for the reminder (UUID format).
	ID string

	HolderID   int64
	ReceiverID int64

	// PaidAmount is what the holder owed when the reminder was issued.
	// Confirming "paid" decrements the balance by exactly this amount.
	PaidAmount decimal.Decimal

	Outcome ReminderOutcome

	CreatedAt time.Time

	// NotifiedAt is when the confirmation mail went out, nil if not yet.
	NotifiedAt *time.Time

	// ResolvedAt is when the holder answered, nil while unset.
	ResolvedAt *time.Time
}
