// Package settlement persists the balance math: it books published requests
// onto pairwise balances, applies payments, and completes settled shares.
package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/payup/internal/apperr"
	"github.com/mmynk/payup/internal/calculator"
	"github.com/mmynk/payup/internal/metrics"
	"github.com/mmynk/payup/internal/models"
	"github.com/mmynk/payup/internal/storage"
)

// Settler applies balance-changing events to storage.
type Settler struct {
	store storage.Store
	now   func() time.Time
}

// NewSettler creates a Settler backed by store.
func NewSettler(store storage.Store) *Settler {
	return &Settler{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Bind returns a Settler that works on store, typically a transaction handed
// out by storage.Store.WithTx.
func (s *Settler) Bind(store storage.Store) *Settler {
	return &Settler{store: store, now: s.now}
}

// Payment is money moving from Payer to Payee outside the request flow.
type Payment struct {
	PayerID int64
	PayeeID int64
	Amount  decimal.Decimal
	Source  models.SettlementSource

	// RequireBalance fails with apperr.ErrNotFound instead of creating a
	// balance row when the pair has none yet.
	RequireBalance bool
}

// Run aggregates every open share, marks the settled ones complete and
// returns the nets that are still open.
func (s *Settler) Run(ctx context.Context) (*calculator.SettlementResult, error) {
	shares, err := s.store.ListOpenShares(ctx)
	if err != nil {
		metrics.SettlementRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to list open shares: %w", err)
	}

	result, err := calculator.Aggregate(shares)
	if err != nil {
		metrics.SettlementRuns.WithLabelValues("error").Inc()
		return nil, err
	}

	completed, err := s.store.CompleteShares(ctx, result.Settled)
	if err != nil {
		metrics.SettlementRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to complete shares: %w", err)
	}

	metrics.SettlementRuns.WithLabelValues("ok").Inc()
	metrics.SharesCompleted.Add(float64(completed))
	metrics.OpenPairs.Set(float64(len(result.Balances)))

	slog.Info("Settlement run finished",
		"open_shares", len(shares),
		"completed", completed,
		"open_pairs", len(result.Balances),
	)
	return result, nil
}

// Publish turns a draft into an active request and books every share's owed
// amount onto the pairwise balance between the share user and the recipient.
// The draft to published flip happens in the same transaction, so a request is
// booked at most once.
func (s *Settler) Publish(ctx context.Context, requestID string) (*models.PaymentRequest, error) {
	var published *models.PaymentRequest

	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		if err := tx.MarkRequestPublished(ctx, requestID); err != nil {
			return err
		}

		req, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if err := calculator.ValidateShares(req.Amount, req.Shares); err != nil {
			return err
		}

		total := req.TotalParts()
		for _, share := range req.Shares {
			owed, err := calculator.Owed(share.Parts, total, req.Amount)
			if err != nil {
				return err
			}

			pair, signed := calculator.Normalize(share.UserID, req.RecipientID, owed)
			if pair.IsSelf() || calculator.IsSettled(owed) {
				continue
			}

			if err := tx.UpsertBalance(ctx, storage.BalanceUpdate{
				First:     pair.First,
				Second:    pair.Second,
				Delta:     signed,
				RequestID: req.ID,
			}); err != nil {
				return err
			}
		}

		published = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RequestsPublished.Inc()
	slog.Info("Request published", "request_id", requestID, "shares", len(published.Shares))
	return published, nil
}

// RecordPayment applies a payment to the balance between payer and payee and
// allocates it onto the payer's oldest open shares towards the payee.
//
// Paying is booking a debt in the other direction: the payee now holds the
// amount towards the payer, netted against whatever the payer owed.
func (s *Settler) RecordPayment(ctx context.Context, p Payment) (*models.Settlement, error) {
	if !p.Amount.IsPositive() {
		return nil, apperr.Invalid("amount", "must be positive")
	}
	if p.PayerID == p.PayeeID {
		return nil, apperr.Invalid("payee_id", "cannot pay yourself")
	}

	now := s.now()
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		pair, signed := calculator.Normalize(p.PayeeID, p.PayerID, p.Amount)
		update := storage.BalanceUpdate{
			First:           pair.First,
			Second:          pair.Second,
			Delta:           signed,
			PaidAt:          &now,
			ClearPageOpened: true,
		}

		apply := tx.UpsertBalance
		if p.RequireBalance {
			apply = tx.AdjustBalance
		}
		if err := apply(ctx, update); err != nil {
			return err
		}

		return allocate(ctx, tx, p.PayerID, p.PayeeID, p.Amount)
	})
	if err != nil {
		return nil, err
	}

	metrics.PaymentsRecorded.WithLabelValues(string(p.Source)).Inc()
	slog.Info("Payment recorded",
		"payer_id", p.PayerID,
		"payee_id", p.PayeeID,
		"amount", p.Amount.StringFixed(2),
		"source", p.Source,
	)

	return &models.Settlement{
		FromUserID: p.PayerID,
		ToUserID:   p.PayeeID,
		Amount:     p.Amount,
		Source:     p.Source,
		CreatedAt:  now,
	}, nil
}

// allocate spreads amount over the payer's open shares towards payee, oldest
// request first, and completes the shares it pays off. Whatever remains after
// every share is covered only lives on the pairwise balance.
func allocate(ctx context.Context, tx storage.Store, payerID, payeeID int64, amount decimal.Decimal) error {
	shares, err := tx.ListOpenSharesBetween(ctx, payerID, payeeID)
	if err != nil {
		return fmt.Errorf("failed to list open shares: %w", err)
	}

	remaining := amount
	var paidOff []string
	for _, share := range shares {
		if calculator.IsSettled(remaining) {
			break
		}

		outstanding, err := calculator.Outstanding(share.RequestShare, share.TotalParts, share.RequestAmount)
		if err != nil {
			return err
		}
		if !outstanding.IsPositive() {
			continue
		}

		pay := decimal.Min(outstanding, remaining)
		if err := tx.AddSharePayment(ctx, share.ID, pay); err != nil {
			return err
		}
		remaining = remaining.Sub(pay)

		if calculator.IsSettled(outstanding.Sub(pay)) {
			paidOff = append(paidOff, share.ID)
		}
	}

	if _, err := tx.CompleteShares(ctx, paidOff); err != nil {
		return fmt.Errorf("failed to complete shares: %w", err)
	}
	return nil
}
