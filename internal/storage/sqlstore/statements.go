package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/payup/internal/apperr"
	"github.com/mmynk/payup/internal/models"
)

// CreateBankTransaction stores one imported statement line.
func (s *Store) CreateBankTransaction(ctx context.Context, tx *models.BankTransaction) error {
	var matched sql.NullInt64
	if tx.MatchedUserID != nil {
		matched = sql.NullInt64{Int64: *tx.MatchedUserID, Valid: true}
	}

	_, err := s.exec(ctx, `
		INSERT INTO bank_transactions (id, owner_id, counterparty_iban, amount, booked_at, matched_user_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, tx.ID, tx.OwnerID, tx.CounterpartyIBAN, toCents(tx.Amount), tx.BookedAt.Unix(), matched)
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return apperr.Conflict("transaction %s was already imported", tx.ID)
		}
		return fmt.Errorf("failed to insert bank transaction: %w", err)
	}
	return nil
}
