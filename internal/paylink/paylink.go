// Package paylink issues the signed links payers follow to settle a balance
// and drives the hosted checkout behind them.
package paylink

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/payup/internal/apperr"
	"github.com/mmynk/payup/internal/auth"
	"github.com/mmynk/payup/internal/calculator"
	"github.com/mmynk/payup/internal/models"
	"github.com/mmynk/payup/internal/payment"
	"github.com/mmynk/payup/internal/reminders"
	"github.com/mmynk/payup/internal/settlement"
	"github.com/mmynk/payup/internal/storage"
)

// PayLink is a signed link for settling one balance.
type PayLink struct {
	Token  string
	URL    string
	Amount decimal.Decimal
}

// PayPage is what a payer sees after following a pay link.
type PayPage struct {
	Holder   *models.User
	Receiver *models.User
	Amount   decimal.Decimal

	// AlreadyOpened is set when the link was opened before without a payment
	// being recorded since. The payer may have paid already.
	AlreadyOpened bool

	Method      models.PaymentMethod
	IBAN        string
	CheckoutURL string

	ReminderID string
}

// Service ties pay links, balances, reminders and the payment provider together.
type Service struct {
	store     storage.Store
	settler   *settlement.Settler
	reminders *reminders.Machine
	provider  payment.Provider
	links     *auth.LinkSigner
	baseURL   string
	now       func() time.Time
}

// NewService creates a Service. baseURL is the public address links point to.
func NewService(
	store storage.Store,
	settler *settlement.Settler,
	machine *reminders.Machine,
	provider payment.Provider,
	links *auth.LinkSigner,
	baseURL string,
) *Service {
	return &Service{
		store:     store,
		settler:   settler,
		reminders: machine,
		provider:  provider,
		links:     links,
		baseURL:   baseURL,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// liveDebt loads the balance between a and b and resolves its direction.
func (s *Service) liveDebt(ctx context.Context, a, b int64) (*models.PairwiseBalance, calculator.Debt, error) {
	pair, _ := calculator.Normalize(a, b, decimal.Zero)
	if pair.IsSelf() {
		return nil, calculator.Debt{}, apperr.Invalid("receiver_id", "cannot pay yourself")
	}
	balance, err := s.store.GetBalance(ctx, pair.First, pair.Second)
	if err != nil {
		return nil, calculator.Debt{}, err
	}
	return balance, calculator.ResolveBalance(balance), nil
}

// IssuePayLink signs a link for callerID to pay what they currently owe receiverID.
func (s *Service) IssuePayLink(ctx context.Context, callerID, receiverID int64) (*PayLink, error) {
	_, debt, err := s.liveDebt(ctx, callerID, receiverID)
	if err != nil {
		return nil, err
	}
	if calculator.IsSettled(debt.Amount) {
		return nil, apperr.Conflict("balance is already settled")
	}
	if debt.Holder != callerID {
		return nil, apperr.Conflict("the debt is the other way around")
	}

	amount := debt.Amount.Round(2)
	token, err := s.links.SignPayLink(debt.Holder, debt.Receiver, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to sign pay link: %w", err)
	}
	return &PayLink{
		Token:  token,
		URL:    s.baseURL + "/pay?" + url.Values{"token": {token}}.Encode(),
		Amount: amount,
	}, nil
}

// OpenPayLink verifies a pay link against the live balance and prepares the
// payment: bank details for transfer receivers or a fresh hosted checkout.
func (s *Service) OpenPayLink(ctx context.Context, token string) (*PayPage, error) {
	claims, err := s.links.VerifyPayLink(token)
	if err != nil {
		return nil, apperr.Invalid("token", "%v", err)
	}

	balance, debt, err := s.liveDebt(ctx, claims.HolderID, claims.ReceiverID)
	if err != nil {
		return nil, err
	}
	if calculator.IsSettled(debt.Amount) {
		return nil, apperr.Conflict("balance is already settled")
	}
	if debt.Holder != claims.HolderID {
		return nil, apperr.Conflict("the debt is the other way around")
	}
	amount := debt.Amount.Round(2)

	users, err := s.store.GetUsersByIDs(ctx, []int64{debt.Holder, debt.Receiver})
	if err != nil {
		return nil, err
	}
	holder, receiver := users[debt.Holder], users[debt.Receiver]
	if holder == nil || receiver == nil {
		return nil, apperr.NotFound("user", fmt.Sprintf("%d/%d", debt.Holder, debt.Receiver))
	}

	page := &PayPage{
		Holder:        holder,
		Receiver:      receiver,
		Amount:        amount,
		AlreadyOpened: balance.PageOpenedAt != nil,
		Method:        models.PaymentMethodBankTransfer,
		IBAN:          receiver.IBAN,
	}

	// A hosted checkout must exist before anything about this visit is stored.
	var checkout *payment.Checkout
	if receiver.CanReceiveHosted() {
		checkout, err = s.createCheckout(ctx, balance, holder, receiver, amount)
		if err != nil {
			return nil, err
		}
		page.Method = models.PaymentMethodHosted
		page.IBAN = ""
		page.CheckoutURL = checkout.CheckoutURL
	}

	err = s.store.WithTx(ctx, func(tx storage.Store) error {
		if err := tx.SetBalancePageOpened(ctx, balance.FirstUserID, balance.SecondUserID, s.now()); err != nil {
			return err
		}
		if checkout != nil {
			if err := tx.SetBalanceCheckout(ctx, balance.FirstUserID, balance.SecondUserID, checkout.ID); err != nil {
				return err
			}
		}

		reminder, _, err := s.reminders.Bind(tx).Open(ctx, debt.Holder, debt.Receiver, amount)
		if err != nil {
			return err
		}
		page.ReminderID = reminder.ID
		return nil
	})
	if err != nil {
		if checkout != nil {
			s.cancelCheckout(ctx, receiver, checkout.ID)
		}
		return nil, err
	}
	return page, nil
}

// createCheckout cancels the pair's previous checkout and creates a new one
// for amount. Storing the new id is left to the caller.
func (s *Service) createCheckout(
	ctx context.Context,
	balance *models.PairwiseBalance,
	holder, receiver *models.User,
	amount decimal.Decimal,
) (*payment.Checkout, error) {
	client, err := s.provider.ClientFor(receiver)
	if err != nil {
		return nil, apperr.Dependency("payment provider", err)
	}

	if balance.CheckoutID != "" {
		s.cancelCheckout(ctx, receiver, balance.CheckoutID)
	}

	checkout, err := client.Create(ctx, payment.CreateParams{
		Amount:      amount,
		Description: fmt.Sprintf("%s pays %s", holder.Name, receiver.Name),
		RedirectURL: fmt.Sprintf("%s/pay/complete?payee_id=%d", s.baseURL, receiver.ID),
		Metadata: map[string]string{
			"holder_id":   fmt.Sprint(holder.ID),
			"receiver_id": fmt.Sprint(receiver.ID),
		},
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Checkout created",
		"checkout_id", checkout.ID,
		"holder_id", holder.ID,
		"receiver_id", receiver.ID,
		"amount", amount.StringFixed(2),
	)
	return checkout, nil
}

// cancelCheckout is best effort; a failure only leaves a stale session at the provider.
func (s *Service) cancelCheckout(ctx context.Context, receiver *models.User, checkoutID string) {
	client, err := s.provider.ClientFor(receiver)
	if err == nil {
		err = client.Cancel(ctx, checkoutID)
	}
	if err != nil {
		slog.Warn("Failed to cancel checkout", "checkout_id", checkoutID, "error", err)
	}
}

// CompleteCheckout checks the pair's open checkout with the provider and
// records the payment once it is paid. It returns the provider status.
func (s *Service) CompleteCheckout(ctx context.Context, payerID, payeeID int64) (payment.Status, error) {
	balance, debt, err := s.liveDebt(ctx, payerID, payeeID)
	if err != nil {
		return "", err
	}
	if balance.CheckoutID == "" {
		return "", apperr.Conflict("no checkout is open between %d and %d", payerID, payeeID)
	}
	if !calculator.IsSettled(debt.Amount) && debt.Holder != payerID {
		return "", apperr.Conflict("the debt is the other way around")
	}

	payee, err := s.store.GetUserByID(ctx, payeeID)
	if err != nil {
		return "", err
	}
	client, err := s.provider.ClientFor(payee)
	if err != nil {
		return "", apperr.Dependency("payment provider", err)
	}

	checkout, err := client.Get(ctx, balance.CheckoutID)
	if err != nil {
		return "", err
	}

	switch checkout.Status {
	case payment.StatusOpen:
		return checkout.Status, nil

	case payment.StatusFailed:
		err := s.store.ClearBalanceCheckout(ctx, balance.FirstUserID, balance.SecondUserID, checkout.ID)
		if err != nil && !errors.Is(err, apperr.ErrConflict) {
			return "", err
		}
		return checkout.Status, nil
	}

	err = s.store.WithTx(ctx, func(tx storage.Store) error {
		// Claiming the checkout first makes a concurrent completion lose.
		if err := tx.ClearBalanceCheckout(ctx, balance.FirstUserID, balance.SecondUserID, checkout.ID); err != nil {
			return err
		}
		if _, err := s.settler.Bind(tx).RecordPayment(ctx, settlement.Payment{
			PayerID: payerID,
			PayeeID: payeeID,
			Amount:  checkout.Amount,
			Source:  models.SourceHosted,
		}); err != nil {
			return err
		}

		reminder, err := tx.FindUnresolvedReminder(ctx, payerID, payeeID, checkout.Amount.Round(2))
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.ResolveReminder(ctx, reminder.ID, models.OutcomePaid, s.now())
	})
	if err != nil {
		return "", err
	}
	return checkout.Status, nil
}

// RecordManualPayment records a payment reported by a user. The payee may
// always do so; the payer only when the payee allows manual payments.
func (s *Service) RecordManualPayment(ctx context.Context, actorID, payerID, payeeID int64, amount decimal.Decimal) (*models.Settlement, error) {
	switch actorID {
	case payeeID:
	case payerID:
		payee, err := s.store.GetUserByID(ctx, payeeID)
		if err != nil {
			return nil, err
		}
		if !payee.AllowManualPayments {
			return nil, apperr.Forbidden("%s does not accept self-reported payments", payee.Name)
		}
	default:
		return nil, apperr.Forbidden("only the payer or payee can record a payment")
	}

	return s.settler.RecordPayment(ctx, settlement.Payment{
		PayerID: payerID,
		PayeeID: payeeID,
		Amount:  amount.Round(2),
		Source:  models.SourceManual,
	})
}
