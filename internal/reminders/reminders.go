// Package reminders implements the "did you pay?" follow-up that is issued
// when a payer opens a pay link and answered through a signed link.
//
// A reminder starts unset and moves once to paid or not_paid. Confirming paid
// decrements the pairwise balance by the amount captured when the reminder was
// issued, never by whatever the balance holds at confirmation time.
package reminders

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/payup/internal/apperr"
	"github.com/mmynk/payup/internal/calculator"
	"github.com/mmynk/payup/internal/metrics"
	"github.com/mmynk/payup/internal/models"
	"github.com/mmynk/payup/internal/settlement"
	"github.com/mmynk/payup/internal/storage"
)

// Machine drives reminder creation and confirmation.
type Machine struct {
	store   storage.Store
	settler *settlement.Settler
	now     func() time.Time
}

// NewMachine creates a Machine. settler applies confirmed payments.
func NewMachine(store storage.Store, settler *settlement.Settler) *Machine {
	return &Machine{store: store, settler: settler, now: func() time.Time { return time.Now().UTC() }}
}

// Bind returns a Machine that works on store, typically a transaction handed
// out by storage.Store.WithTx.
func (m *Machine) Bind(store storage.Store) *Machine {
	return &Machine{store: store, settler: m.settler.Bind(store), now: m.now}
}

// Open creates an unset reminder for the triple unless one is already
// pending. created is false when an existing reminder was returned instead.
func (m *Machine) Open(ctx context.Context, holderID, receiverID int64, amount decimal.Decimal) (r *models.Reminder, created bool, err error) {
	amount = amount.Round(2)
	if !amount.IsPositive() {
		return nil, false, apperr.Invalid("amount", "must be positive")
	}

	existing, err := m.store.FindUnresolvedReminder(ctx, holderID, receiverID, amount)
	if err == nil {
		metrics.Reminders.WithLabelValues("suppressed").Inc()
		return existing, false, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, false, err
	}

	r = &models.Reminder{
		HolderID:   holderID,
		ReceiverID: receiverID,
		PaidAmount: amount,
		Outcome:    models.OutcomeUnset,
		CreatedAt:  m.now(),
	}
	if err := m.store.CreateReminder(ctx, r); err != nil {
		if !errors.Is(err, apperr.ErrConflict) {
			return nil, false, err
		}
		// Lost the race against a concurrent Open for the same triple.
		slog.Info("Duplicate reminder suppressed", "holder_id", holderID, "receiver_id", receiverID)
		metrics.Reminders.WithLabelValues("suppressed").Inc()
		existing, err := m.store.FindUnresolvedReminder(ctx, holderID, receiverID, amount)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	metrics.Reminders.WithLabelValues("created").Inc()
	slog.Info("Reminder created",
		"reminder_id", r.ID,
		"holder_id", holderID,
		"receiver_id", receiverID,
		"amount", amount.StringFixed(2),
	)
	return r, true, nil
}

// Confirm records the holder's answer. A reminder can be answered once; any
// later answer fails with apperr.ErrConflict and changes nothing.
func (m *Machine) Confirm(ctx context.Context, id string, paid bool) (*models.Reminder, error) {
	outcome := models.OutcomeNotPaid
	if paid {
		outcome = models.OutcomePaid
	}

	var resolved *models.Reminder
	err := m.store.WithTx(ctx, func(tx storage.Store) error {
		r, err := tx.GetReminder(ctx, id)
		if err != nil {
			return err
		}
		if r.Outcome.Terminal() {
			return apperr.Conflict("reminder %s is already %s", id, r.Outcome)
		}

		now := m.now()
		if err := tx.ResolveReminder(ctx, id, outcome, now); err != nil {
			return err
		}
		r.Outcome = outcome
		r.ResolvedAt = &now
		resolved = r

		// Self pairs have no balance row; the transition alone is recorded.
		pair, _ := calculator.Normalize(r.HolderID, r.ReceiverID, decimal.Zero)
		if pair.IsSelf() {
			return nil
		}

		if paid {
			_, err := m.settler.Bind(tx).RecordPayment(ctx, settlement.Payment{
				PayerID:        r.HolderID,
				PayeeID:        r.ReceiverID,
				Amount:         r.PaidAmount,
				Source:         models.SourceReminder,
				RequireBalance: true,
			})
			return err
		}

		err = tx.AdjustBalance(ctx, storage.BalanceUpdate{
			First:           pair.First,
			Second:          pair.Second,
			Delta:           decimal.Zero,
			ClearPageOpened: true,
		})
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			metrics.Reminders.WithLabelValues("conflict").Inc()
		}
		return nil, err
	}

	metrics.Reminders.WithLabelValues(string(outcome)).Inc()
	slog.Info("Reminder confirmed", "reminder_id", id, "outcome", outcome)
	return resolved, nil
}
