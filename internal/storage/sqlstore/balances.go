package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/mmynk/payup/internal/apperr"
	"github.com/mmynk/payup/internal/models"
	"github.com/mmynk/payup/internal/storage"
)

const balanceColumns = `first_user_id, second_user_id, amount, last_request_id, last_payment_at,
	updated_at, checkout_id, page_opened_at`

func scanBalance(row rowScanner) (*models.PairwiseBalance, error) {
	b := &models.PairwiseBalance{}
	var amount, updatedAt int64
	var paidAt, openedAt sql.NullInt64
	if err := row.Scan(
		&b.FirstUserID,
		&b.SecondUserID,
		&amount,
		&b.LastRequestID,
		&paidAt,
		&updatedAt,
		&b.CheckoutID,
		&openedAt,
	); err != nil {
		return nil, err
	}
	b.Amount = fromCents(amount)
	b.LastPaymentAt = timeOrNil(paidAt)
	b.UpdatedAt = fromUnix(updatedAt)
	b.PageOpenedAt = timeOrNil(openedAt)
	return b, nil
}

func pairKey(first, second int64) string {
	return fmt.Sprintf("%d/%d", first, second)
}

func checkPair(first, second int64) error {
	if first >= second {
		return apperr.Invalid("pair", "first user %d must be lower than second user %d", first, second)
	}
	return nil
}

// GetBalance retrieves the balance row of a canonical pair.
func (s *Store) GetBalance(ctx context.Context, first, second int64) (*models.PairwiseBalance, error) {
	b, err := scanBalance(s.queryRow(ctx,
		`SELECT `+balanceColumns+` FROM balances WHERE first_user_id = ? AND second_user_id = ?`,
		first, second))
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", notFound(err, "balance", pairKey(first, second)))
	}
	return b, nil
}

// ListBalancesForUser returns every balance row the user takes part in.
func (s *Store) ListBalancesForUser(ctx context.Context, userID int64) ([]*models.PairwiseBalance, error) {
	rows, err := s.query(ctx, `
		SELECT `+balanceColumns+`
		FROM balances
		WHERE first_user_id = ? OR second_user_id = ?
		ORDER BY first_user_id, second_user_id
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	defer rows.Close()

	var balances []*models.PairwiseBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balances: %w", err)
	}
	return balances, nil
}

// balanceSets returns the SET assignments shared by upsert and adjust,
// excluding the amount increment.
func balanceSets(u storage.BalanceUpdate, now time.Time) ([]string, []any) {
	sets := []string{"updated_at = ?"}
	args := []any{now.Unix()}
	if u.RequestID != "" {
		sets = append(sets, "last_request_id = ?")
		args = append(args, u.RequestID)
	}
	if u.PaidAt != nil {
		sets = append(sets, "last_payment_at = ?")
		args = append(args, u.PaidAt.Unix())
	}
	if u.ClearCheckout {
		sets = append(sets, "checkout_id = ''")
	}
	if u.ClearPageOpened {
		sets = append(sets, "page_opened_at = NULL")
	}
	return sets, args
}

// UpsertBalance adds Delta to a pair, creating the row at zero first if needed.
// The increment happens inside the statement, so concurrent writers never lose
// an update.
func (s *Store) UpsertBalance(ctx context.Context, u storage.BalanceUpdate) error {
	if err := checkPair(u.First, u.Second); err != nil {
		return err
	}
	now := time.Now().UTC()
	sets, setArgs := balanceSets(u, now)

	args := []any{u.First, u.Second, toCents(u.Delta), u.RequestID, unixOrNull(u.PaidAt), now.Unix()}
	args = append(args, setArgs...)

	_, err := s.exec(ctx, `
		INSERT INTO balances (first_user_id, second_user_id, amount, last_request_id, last_payment_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (first_user_id, second_user_id) DO UPDATE SET
			amount = balances.amount + excluded.amount, `+strings.Join(sets, ", "), args...)
	if err != nil {
		return fmt.Errorf("failed to upsert balance: %w", err)
	}
	return nil
}

// AdjustBalance adds Delta to an existing pair. It never creates a row.
func (s *Store) AdjustBalance(ctx context.Context, u storage.BalanceUpdate) error {
	if err := checkPair(u.First, u.Second); err != nil {
		return err
	}
	sets, setArgs := balanceSets(u, time.Now().UTC())

	args := append([]any{toCents(u.Delta)}, setArgs...)
	args = append(args, u.First, u.Second)

	res, err := s.exec(ctx, `
		UPDATE balances
		SET amount = amount + ?, `+strings.Join(sets, ", ")+`
		WHERE first_user_id = ? AND second_user_id = ?
	`, args...)
	if err != nil {
		return fmt.Errorf("failed to adjust balance: %w", err)
	}
	return requireAffected(res, "balance", pairKey(u.First, u.Second))
}

// SetBalanceCheckout records the open hosted checkout session of a pair.
func (s *Store) SetBalanceCheckout(ctx context.Context, first, second int64, checkoutID string) error {
	res, err := s.exec(ctx, `
		UPDATE balances SET checkout_id = ?, updated_at = ?
		WHERE first_user_id = ? AND second_user_id = ?
	`, checkoutID, time.Now().UTC().Unix(), first, second)
	if err != nil {
		return fmt.Errorf("failed to set checkout: %w", err)
	}
	return requireAffected(res, "balance", pairKey(first, second))
}

// ClearBalanceCheckout forgets the checkout only if it is still checkoutID.
func (s *Store) ClearBalanceCheckout(ctx context.Context, first, second int64, checkoutID string) error {
	res, err := s.exec(ctx, `
		UPDATE balances SET checkout_id = '', updated_at = ?
		WHERE first_user_id = ? AND second_user_id = ? AND checkout_id = ?
	`, time.Now().UTC().Unix(), first, second, checkoutID)
	if err != nil {
		return fmt.Errorf("failed to clear checkout: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return apperr.Conflict("checkout %s is no longer open", checkoutID)
	}
	return nil
}

// SetBalancePageOpened records when the payer opened the pay link.
func (s *Store) SetBalancePageOpened(ctx context.Context, first, second int64, at time.Time) error {
	res, err := s.exec(ctx, `
		UPDATE balances SET page_opened_at = ?
		WHERE first_user_id = ? AND second_user_id = ?
	`, at.Unix(), first, second)
	if err != nil {
		return fmt.Errorf("failed to set page opened: %w", err)
	}
	return requireAffected(res, "balance", pairKey(first, second))
}
