// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/payup/internal/models"
)

// BalanceUpdate is a signed change to one canonical balance row.
// First must be lower than Second; callers build it from calculator.Normalize.
type BalanceUpdate struct {
	First  int64
	Second int64

	// Delta is added to the stored amount.
	Delta decimal.Decimal

	// RequestID, when set, becomes the row's last linked request.
	RequestID string

	// PaidAt, when set, becomes the row's last payment time.
	PaidAt *time.Time

	// ClearPageOpened resets the "payment page opened" marker.
	ClearPageOpened bool

	// ClearCheckout forgets the open hosted checkout session.
	ClearCheckout bool
}

// Store defines the interface for all storage operations.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the domain packages.
//
// Lookups of a missing record return an error wrapping apperr.ErrNotFound.
type Store interface {
	// WithTx runs fn in a transaction. fn receives a Store bound to that
	// transaction and must use it for every call. The transaction commits
	// when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	// CreateUser persists a new user and populates user.ID.
	// Returns apperr.ErrConflict if the email is taken.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByIBAN(ctx context.Context, iban string) (*models.User, error)
	// GetUsersByIDs omits users that don't exist.
	GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error

	// CreateRequest persists a request with its shares, generating IDs.
	CreateRequest(ctx context.Context, req *models.PaymentRequest) error
	GetRequest(ctx context.Context, id string) (*models.PaymentRequest, error)
	// ListRequestsForUser returns requests the user owns or has a share in, newest first.
	ListRequestsForUser(ctx context.Context, userID int64) ([]*models.PaymentRequest, error)
	// UpdateRequest replaces description, amount, recipient and shares.
	UpdateRequest(ctx context.Context, req *models.PaymentRequest) error
	// MarkRequestPublished flips a draft to published.
	// Returns apperr.ErrConflict if it was already published.
	MarkRequestPublished(ctx context.Context, id string) error
	// UpdateRequestDescription works on drafts and published requests alike.
	UpdateRequestDescription(ctx context.Context, id, description string) error
	// DeleteRequest removes a draft. Published requests fail with apperr.ErrConflict.
	DeleteRequest(ctx context.Context, id string) error

	// ListOpenShares returns every incomplete share of a published request.
	ListOpenShares(ctx context.Context) ([]models.OpenShare, error)
	// ListOpenSharesBetween returns the incomplete shares userID holds in
	// published requests paid to recipientID, oldest request first.
	ListOpenSharesBetween(ctx context.Context, userID, recipientID int64) ([]models.OpenShare, error)
	// AddSharePayment increments a share's paid amount.
	AddSharePayment(ctx context.Context, shareID string, amount decimal.Decimal) error
	// CompleteShares marks shares complete and returns how many changed.
	CompleteShares(ctx context.Context, ids []string) (int64, error)
	MarkSharesNotified(ctx context.Context, ids []string, at time.Time) error

	GetBalance(ctx context.Context, first, second int64) (*models.PairwiseBalance, error)
	ListBalancesForUser(ctx context.Context, userID int64) ([]*models.PairwiseBalance, error)
	// UpsertBalance atomically adds Delta, creating the row if needed.
	UpsertBalance(ctx context.Context, u BalanceUpdate) error
	// AdjustBalance atomically adds Delta to an existing row.
	// Returns apperr.ErrNotFound if the row does not exist; it never creates one.
	AdjustBalance(ctx context.Context, u BalanceUpdate) error
	SetBalanceCheckout(ctx context.Context, first, second int64, checkoutID string) error
	// ClearBalanceCheckout forgets checkoutID if it is still the open session.
	// Returns apperr.ErrConflict if another caller cleared or replaced it first.
	ClearBalanceCheckout(ctx context.Context, first, second int64, checkoutID string) error
	SetBalancePageOpened(ctx context.Context, first, second int64, at time.Time) error

	// CreateReminder persists a reminder, generating its ID. Returns
	// apperr.ErrConflict if an unresolved reminder with the same holder,
	// receiver and amount exists.
	CreateReminder(ctx context.Context, r *models.Reminder) error
	GetReminder(ctx context.Context, id string) (*models.Reminder, error)
	FindUnresolvedReminder(ctx context.Context, holderID, receiverID int64, amount decimal.Decimal) (*models.Reminder, error)
	// ResolveReminder moves an unset reminder to a terminal outcome.
	// Returns apperr.ErrConflict if it is already terminal.
	ResolveReminder(ctx context.Context, id string, outcome models.ReminderOutcome, at time.Time) error
	ListUnnotifiedReminders(ctx context.Context) ([]*models.Reminder, error)
	MarkReminderNotified(ctx context.Context, id string, at time.Time) error

	// CreateBankTransaction stores an imported statement line.
	// Returns apperr.ErrConflict if the line was imported before.
	CreateBankTransaction(ctx context.Context, tx *models.BankTransaction) error

	// Close releases any resources held by the store.
	Close() error
}
