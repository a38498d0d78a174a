package statement

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

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
	importer *Importer
	owner    *models.User
	friend   *models.User
}

// setup creates an account owner and a friend with a known IBAN who owes
// the owner 25.
func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := sqlstore.NewSQLite(filepath.Join(t.TempDir(), "payup.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	owner := models.NewUser("owner@example.com", "Owner", "hash")
	require.NoError(t, store.CreateUser(ctx, owner))
	friend := models.NewUser("friend@example.com", "Friend", "hash")
	require.NoError(t, store.CreateUser(ctx, friend))
	friend.IBAN = "DE89370400440532013000"
	require.NoError(t, store.UpdateUser(ctx, friend))

	pair, signed := calculator.Normalize(friend.ID, owner.ID, d("25"))
	require.NoError(t, store.UpsertBalance(ctx, storage.BalanceUpdate{First: pair.First, Second: pair.Second, Delta: signed}))

	return &fixture{
		store:    store,
		importer: NewImporter(store, settlement.NewSettler(store)),
		owner:    owner,
		friend:   friend,
	}
}

func (f *fixture) debt(t *testing.T) calculator.Debt {
	t.Helper()
	pair, _ := calculator.Normalize(f.friend.ID, f.owner.ID, decimal.Zero)
	b, err := f.store.GetBalance(context.Background(), pair.First, pair.Second)
	require.NoError(t, err)
	return calculator.ResolveBalance(b)
}

const statementCSV = `id,date,counterparty_iban,amount
tx-1,2026-03-01,DE89 3704 0044 0532 0130 00,10.00
tx-2,2026-03-02,GB29NWBK60161331926819,99.00
tx-3,2026-03-03,DE89370400440532013000,-5.00
tx-4,not-a-date,DE89370400440532013000,1.00
`

func TestImport_RecordsMatchedTransfers(t *testing.T) {
	f := setup(t)

	report, err := f.importer.Import(context.Background(), f.owner.ID, strings.NewReader(statementCSV))
	require.NoError(t, err)

	assert.Equal(t, &Report{
		Lines:    4,
		Imported: 2,
		Debits:   1,
		Invalid:  1,
		Matched:  1,
		Payments: 1,
	}, report)

	debt := f.debt(t)
	assert.Equal(t, f.friend.ID, debt.Holder)
	assert.True(t, debt.Amount.Equal(d("15")), "amount = %s", debt.Amount)
}

func TestImport_IsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.importer.Import(ctx, f.owner.ID, strings.NewReader(statementCSV))
	require.NoError(t, err)

	report, err := f.importer.Import(ctx, f.owner.ID, strings.NewReader(statementCSV))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Imported)
	assert.Equal(t, 2, report.Duplicates)
	assert.Equal(t, 0, report.Payments)

	assert.True(t, f.debt(t).Amount.Equal(d("15")))
}

func TestImport_PaysAtMostWhatIsOwed(t *testing.T) {
	f := setup(t)

	report, err := f.importer.Import(context.Background(), f.owner.ID,
		strings.NewReader("tx-9,2026-03-05,DE89370400440532013000,100\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Payments)

	assert.True(t, f.debt(t).Amount.IsZero())
}

func TestImport_NothingOwedStoresMatchOnly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// The owner owes the friend instead; a transfer from the friend is no payment.
	pair, signed := calculator.Normalize(f.owner.ID, f.friend.ID, d("40"))
	require.NoError(t, f.store.UpsertBalance(ctx, storage.BalanceUpdate{First: pair.First, Second: pair.Second, Delta: signed}))

	report, err := f.importer.Import(ctx, f.owner.ID,
		strings.NewReader("tx-7,2026-03-05,DE89370400440532013000,10\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Matched)
	assert.Equal(t, 0, report.Payments)

	debt := f.debt(t)
	assert.Equal(t, f.owner.ID, debt.Holder)
	assert.True(t, debt.Amount.Equal(d("15")))
}

func TestImport_MalformedCSV(t *testing.T) {
	f := setup(t)

	_, err := f.importer.Import(context.Background(), f.owner.ID, strings.NewReader("tx-1,\"unterminated\n"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
