package settlement

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
	"github.com/mmynk/payup/internal/storage"
	"github.com/mmynk/payup/internal/storage/sqlstore"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func setup(t *testing.T) (*Settler, storage.Store) {
	t.Helper()
	store, err := sqlstore.NewSQLite(filepath.Join(t.TempDir(), "payup.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewSettler(store), store
}

func newUser(t *testing.T, store storage.Store, name string) int64 {
	t.Helper()
	u := models.NewUser(name+"@example.com", name, "hash")
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u.ID
}

// requestClock spaces request creation times so "oldest first" is deterministic.
var requestClock = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newRequest(t *testing.T, store storage.Store, owner int64, amount string, shares ...models.RequestShare) string {
	t.Helper()
	requestClock = requestClock.Add(time.Minute)
	req := &models.PaymentRequest{
		CreatedAt:   requestClock,
		OwnerID:     owner,
		RecipientID: owner,
		Amount:      d(amount),
		Description: "Groceries",
		Shares:      shares,
	}
	require.NoError(t, store.CreateRequest(context.Background(), req))
	return req.ID
}

func share(user int64, parts string) models.RequestShare {
	return models.RequestShare{UserID: user, Parts: d(parts)}
}

// debt resolves the stored balance between a and b.
func debt(t *testing.T, store storage.Store, a, b int64) calculator.Debt {
	t.Helper()
	pair, _ := calculator.Normalize(a, b, decimal.Zero)
	bal, err := store.GetBalance(context.Background(), pair.First, pair.Second)
	require.NoError(t, err)
	return calculator.ResolveBalance(bal)
}

func TestPublish_BooksOwedAmounts(t *testing.T) {
	settler, store := setup(t)
	ctx := context.Background()

	owner := newUser(t, store, "owner")
	a := newUser(t, store, "a")
	b := newUser(t, store, "b")
	id := newRequest(t, store, owner, "100", share(owner, "0"), share(a, "1"), share(b, "3"))

	req, err := settler.Publish(ctx, id)
	require.NoError(t, err)
	assert.True(t, req.Published)

	got := debt(t, store, a, owner)
	assert.Equal(t, a, got.Holder)
	assert.Equal(t, owner, got.Receiver)
	assert.True(t, got.Amount.Equal(d("25")), "a owes %s", got.Amount)

	got = debt(t, store, b, owner)
	assert.Equal(t, b, got.Holder)
	assert.True(t, got.Amount.Equal(d("75")), "b owes %s", got.Amount)

	bal, err := store.GetBalance(ctx, owner, a)
	require.NoError(t, err)
	assert.Equal(t, id, bal.LastRequestID)
}

func TestPublish_BooksExactlyOnce(t *testing.T) {
	settler, store := setup(t)
	ctx := context.Background()

	owner := newUser(t, store, "owner")
	a := newUser(t, store, "a")
	id := newRequest(t, store, owner, "40", share(a, "1"))

	_, err := settler.Publish(ctx, id)
	require.NoError(t, err)

	_, err = settler.Publish(ctx, id)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	got := debt(t, store, a, owner)
	assert.True(t, got.Amount.Equal(d("40")), "a owes %s", got.Amount)
}

func TestPublish_SelfShareIsNotBooked(t *testing.T) {
	settler, store := setup(t)
	ctx := context.Background()

	owner := newUser(t, store, "owner")
	id := newRequest(t, store, owner, "40", share(owner, "1"))

	_, err := settler.Publish(ctx, id)
	require.NoError(t, err)

	balances, err := store.ListBalancesForUser(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, balances)
}

func TestPublish_RejectsZeroParts(t *testing.T) {
	settler, store := setup(t)
	ctx := context.Background()

	owner := newUser(t, store, "owner")
	a := newUser(t, store, "a")
	id := newRequest(t, store, owner, "40", share(a, "0"))

	_, err := settler.Publish(ctx, id)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	// The failed publish rolled back, so the request is still a draft.
	req, err := store.GetRequest(ctx, id)
	require.NoError(t, err)
	assert.False(t, req.Published)
}

func TestRecordPayment_HigherIDPaysLowerID(t *testing.T) {
	settler, store := setup(t)
	ctx := context.Background()

	b := newUser(t, store, "b")
	a := newUser(t, store, "a")
	require.Less(t, b, a)

	_, err := settler.RecordPayment(ctx, Payment{PayerID: a, PayeeID: b, Amount: d("30"), Source: models.SourceManual})
	require.NoError(t, err)

	bal, err := store.GetBalance(ctx, b, a)
	require.NoError(t, err)
	assert.Equal(t, b, bal.FirstUserID)
	assert.Equal(t, a, bal.SecondUserID)
	assert.True(t, bal.Amount.Equal(d("30")), "amount = %s", bal.Amount)
	assert.NotNil(t, bal.LastPaymentAt)
}

func TestRecordPayment_AllocatesOntoShares(t *testing.T) {
	settler, store := setup(t)
	ctx := context.Background()

	owner := newUser(t, store, "owner")
	a := newUser(t, store, "a")
	first := newRequest(t, store, owner, "20", share(a, "1"))
	second := newRequest(t, store, owner, "30", share(a, "1"))
	_, err := settler.Publish(ctx, first)
	require.NoError(t, err)
	_, err = settler.Publish(ctx, second)
	require.NoError(t, err)

	_, err = settler.RecordPayment(ctx, Payment{PayerID: a, PayeeID: owner, Amount: d("25"), Source: models.SourceManual})
	require.NoError(t, err)

	got := debt(t, store, a, owner)
	assert.Equal(t, a, got.Holder)
	assert.True(t, got.Amount.Equal(d("25")), "a owes %s", got.Amount)

	req, err := store.GetRequest(ctx, first)
	require.NoError(t, err)
	assert.True(t, req.Shares[0].PayedAmount.Equal(d("20")))
	assert.True(t, req.Shares[0].Complete)

	req, err = store.GetRequest(ctx, second)
	require.NoError(t, err)
	assert.True(t, req.Shares[0].PayedAmount.Equal(d("5")))
	assert.False(t, req.Shares[0].Complete)
}

func TestRecordPayment_Overpayment(t *testing.T) {
	settler, store := setup(t)
	ctx := context.Background()

	owner := newUser(t, store, "owner")
	a := newUser(t, store, "a")
	id := newRequest(t, store, owner, "20", share(a, "1"))
	_, err := settler.Publish(ctx, id)
	require.NoError(t, err)

	_, err = settler.RecordPayment(ctx, Payment{PayerID: a, PayeeID: owner, Amount: d("25"), Source: models.SourceHosted})
	require.NoError(t, err)

	got := debt(t, store, a, owner)
	assert.Equal(t, owner, got.Holder, "roles flip after overpaying")
	assert.True(t, got.Amount.Equal(d("5")))
}

func TestRecordPayment_RequireBalance(t *testing.T) {
	settler, store := setup(t)
	ctx := context.Background()

	a := newUser(t, store, "a")
	b := newUser(t, store, "b")

	_, err := settler.RecordPayment(ctx, Payment{PayerID: a, PayeeID: b, Amount: d("5"), RequireBalance: true})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	balances, err := store.ListBalancesForUser(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, balances)
}

func TestRecordPayment_Validation(t *testing.T) {
	settler, store := setup(t)
	ctx := context.Background()
	a := newUser(t, store, "a")
	b := newUser(t, store, "b")

	tests := []struct {
		name    string
		payment Payment
	}{
		{"self", Payment{PayerID: a, PayeeID: a, Amount: d("5")}},
		{"zero", Payment{PayerID: a, PayeeID: b, Amount: decimal.Zero}},
		{"negative", Payment{PayerID: a, PayeeID: b, Amount: d("-1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := settler.RecordPayment(ctx, tt.payment)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	balances, err := store.ListBalancesForUser(ctx, a)
	require.NoError(t, err)
	assert.Empty(t, balances)
}

func TestRun_CompletesSettledShares(t *testing.T) {
	settler, store := setup(t)
	ctx := context.Background()

	owner := newUser(t, store, "owner")
	a := newUser(t, store, "a")
	b := newUser(t, store, "b")
	id := newRequest(t, store, owner, "90", share(owner, "1"), share(a, "1"), share(b, "1"))
	_, err := settler.Publish(ctx, id)
	require.NoError(t, err)

	result, err := settler.Run(ctx)
	require.NoError(t, err)
	require.Len(t, result.Balances, 2)
	// The owner's own share is settled on the first pass.
	assert.Len(t, result.Settled, 1)

	again, err := settler.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, again.Settled)
	require.Len(t, again.Balances, 2)
	for i := range result.Balances {
		assert.Equal(t, result.Balances[i].Pair, again.Balances[i].Pair)
		assert.True(t, result.Balances[i].Amount.Equal(again.Balances[i].Amount))
		assert.True(t, again.Balances[i].Amount.Equal(d("30")))
	}
}
