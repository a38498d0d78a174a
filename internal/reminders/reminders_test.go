package reminders

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/payup/internal/apperr"
	"github.com/mmynk/payup/internal/calculator"
	"github.com/mmynk/payup/internal/models"
	"github.com/mmynk/payup/internal/settlement"
	"github.com/mmynk/payup/internal/storage"
	"github.com/mmynk/payup/internal/storage/sqlstore"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	store    storage.Store
	settler  *settlement.Settler
	machine  *Machine
	holder   int64
	receiver int64
}

// setup creates two users where holder owes receiver 30.
func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := sqlstore.NewSQLite(filepath.Join(t.TempDir(), "payup.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	receiver := models.NewUser("receiver@example.com", "Receiver", "hash")
	require.NoError(t, store.CreateUser(ctx, receiver))
	holder := models.NewUser("holder@example.com", "Holder", "hash")
	require.NoError(t, store.CreateUser(ctx, holder))

	pair, signed := calculator.Normalize(holder.ID, receiver.ID, d("30"))
	require.NoError(t, store.UpsertBalance(ctx, storage.BalanceUpdate{First: pair.First, Second: pair.Second, Delta: signed}))

	settler := settlement.NewSettler(store)
	return &fixture{
		store:    store,
		settler:  settler,
		machine:  NewMachine(store, settler),
		holder:   holder.ID,
		receiver: receiver.ID,
	}
}

func (f *fixture) balance(t *testing.T) (*models.PairwiseBalance, calculator.Debt) {
	t.Helper()
	pair, _ := calculator.Normalize(f.holder, f.receiver, decimal.Zero)
	b, err := f.store.GetBalance(context.Background(), pair.First, pair.Second)
	require.NoError(t, err)
	return b, calculator.ResolveBalance(b)
}

func TestOpen_SuppressesDuplicates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, created, err := f.machine.Open(ctx, f.holder, f.receiver, d("30"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.OutcomeUnset, first.Outcome)

	second, created, err := f.machine.Open(ctx, f.holder, f.receiver, d("30"))
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	// A different amount is a different snapshot.
	third, created, err := f.machine.Open(ctx, f.holder, f.receiver, d("29.99"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, third.ID)
}

func TestOpen_AfterResolutionCreatesNew(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, _, err := f.machine.Open(ctx, f.holder, f.receiver, d("30"))
	require.NoError(t, err)
	_, err = f.machine.Confirm(ctx, first.ID, false)
	require.NoError(t, err)

	next, created, err := f.machine.Open(ctx, f.holder, f.receiver, d("30"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, first.ID, next.ID)
}

func TestOpen_RejectsNonPositive(t *testing.T) {
	f := setup(t)
	_, _, err := f.machine.Open(context.Background(), f.holder, f.receiver, d("0.001"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestConfirm_PaidDecrementsCapturedAmount(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	r, _, err := f.machine.Open(ctx, f.holder, f.receiver, d("30"))
	require.NoError(t, err)

	// The holder pays 10 by other means before answering.
	_, err = f.settler.RecordPayment(ctx, settlement.Payment{
		PayerID: f.holder, PayeeID: f.receiver, Amount: d("10"), Source: models.SourceManual,
	})
	require.NoError(t, err)

	resolved, err := f.machine.Confirm(ctx, r.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomePaid, resolved.Outcome)
	require.NotNil(t, resolved.ResolvedAt)

	// 30 - 10 - 30: the receiver now owes the holder 10.
	_, got := f.balance(t)
	assert.Equal(t, f.receiver, got.Holder)
	assert.True(t, got.Amount.Equal(d("10")), "amount = %s", got.Amount)
}

func TestConfirm_SecondAnswerConflicts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	r, _, err := f.machine.Open(ctx, f.holder, f.receiver, d("30"))
	require.NoError(t, err)

	_, err = f.machine.Confirm(ctx, r.ID, true)
	require.NoError(t, err)
	before, _ := f.balance(t)

	_, err = f.machine.Confirm(ctx, r.ID, false)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = f.machine.Confirm(ctx, r.ID, true)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	after, _ := f.balance(t)
	assert.True(t, before.Amount.Equal(after.Amount))

	stored, err := f.store.GetReminder(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomePaid, stored.Outcome)
}

func TestConfirm_NotPaidOnlyClearsPageOpened(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	pair, _ := calculator.Normalize(f.holder, f.receiver, decimal.Zero)
	require.NoError(t, f.store.SetBalancePageOpened(ctx, pair.First, pair.Second, time.Now()))

	r, _, err := f.machine.Open(ctx, f.holder, f.receiver, d("30"))
	require.NoError(t, err)

	_, err = f.machine.Confirm(ctx, r.ID, false)
	require.NoError(t, err)

	b, got := f.balance(t)
	assert.Nil(t, b.PageOpenedAt)
	assert.Equal(t, f.holder, got.Holder)
	assert.True(t, got.Amount.Equal(d("30")))
}

func TestConfirm_PaidWithoutBalanceRow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	stranger := models.NewUser("stranger@example.com", "Stranger", "hash")
	require.NoError(t, f.store.CreateUser(ctx, stranger))

	r, _, err := f.machine.Open(ctx, stranger.ID, f.receiver, d("5"))
	require.NoError(t, err)

	_, err = f.machine.Confirm(ctx, r.ID, true)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// The failed confirmation rolled back; the reminder can still be answered.
	stored, err := f.store.GetReminder(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUnset, stored.Outcome)
}

func TestConfirm_SelfPairStillTransitions(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	r, _, err := f.machine.Open(ctx, f.holder, f.holder, d("12"))
	require.NoError(t, err)

	resolved, err := f.machine.Confirm(ctx, r.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomePaid, resolved.Outcome)

	_, got := f.balance(t)
	assert.True(t, got.Amount.Equal(d("30")), "unrelated balance untouched")
}

func TestConfirm_Missing(t *testing.T) {
	f := setup(t)
	_, err := f.machine.Confirm(context.Background(), "missing", true)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
