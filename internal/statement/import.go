// Package statement imports bank statements and turns incoming transfers from
// known users into recorded payments.
package statement

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/payup/internal/apperr"
	"github.com/mmynk/payup/internal/calculator"
	"github.com/mmynk/payup/internal/metrics"
	"github.com/mmynk/payup/internal/models"
	"github.com/mmynk/payup/internal/settlement"
	"github.com/mmynk/payup/internal/storage"
)

// DateLayout is the booking date format of statement lines.
const DateLayout = "2006-01-02"

// Report summarizes one import.
type Report struct {
	Lines      int
	Imported   int
	Duplicates int
	Debits     int
	Invalid    int
	Matched    int
	Payments   int
}

// Importer reconciles statements against pairwise balances.
type Importer struct {
	store   storage.Store
	settler *settlement.Settler
}

// NewImporter creates an Importer.
func NewImporter(store storage.Store, settler *settlement.Settler) *Importer {
	return &Importer{store: store, settler: settler}
}

type line struct {
	id       string
	bookedAt time.Time
	iban     string
	amount   decimal.Decimal
}

func parseLine(record []string) (line, error) {
	if len(record) != 4 {
		return line{}, fmt.Errorf("expected 4 columns, got %d", len(record))
	}
	id := strings.TrimSpace(record[0])
	if id == "" {
		return line{}, errors.New("missing id")
	}
	bookedAt, err := time.Parse(DateLayout, strings.TrimSpace(record[1]))
	if err != nil {
		return line{}, fmt.Errorf("bad date: %w", err)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(record[3]))
	if err != nil {
		return line{}, fmt.Errorf("bad amount: %w", err)
	}
	return line{
		id:       id,
		bookedAt: bookedAt,
		iban:     models.NormalizeIBAN(record[2]),
		amount:   amount.Round(2),
	}, nil
}

// Import reads a CSV statement of ownerID's account with the columns
// id,date,counterparty_iban,amount. A header row is optional.
//
// Lines are independent: a malformed line is skipped and counted, and lines
// that were imported before are ignored, so a statement can be imported again
// safely.
func (i *Importer) Import(ctx context.Context, ownerID int64, r io.Reader) (*Report, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	report := &Report{}
	for n := 1; ; n++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return report, apperr.Invalid("statement", "line %d: %v", n, err)
		}
		if n == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "id") {
			continue
		}
		report.Lines++

		l, err := parseLine(record)
		if err != nil {
			slog.Warn("Skipping statement line", "line", n, "error", err)
			report.Invalid++
			metrics.StatementLines.WithLabelValues("invalid").Inc()
			continue
		}
		if !l.amount.IsPositive() {
			report.Debits++
			metrics.StatementLines.WithLabelValues("debit").Inc()
			continue
		}

		if err := i.importLine(ctx, ownerID, l, report); err != nil {
			return report, fmt.Errorf("line %d: %w", n, err)
		}
	}

	slog.Info("Statement imported",
		"owner_id", ownerID,
		"lines", report.Lines,
		"imported", report.Imported,
		"payments", report.Payments,
	)
	return report, nil
}

func (i *Importer) importLine(ctx context.Context, ownerID int64, l line, report *Report) error {
	var matched *models.User
	if l.iban != "" {
		user, err := i.store.GetUserByIBAN(ctx, l.iban)
		switch {
		case err == nil:
			matched = user
		case !errors.Is(err, apperr.ErrNotFound):
			return err
		}
	}

	txn := &models.BankTransaction{
		ID:               l.id,
		OwnerID:          ownerID,
		CounterpartyIBAN: l.iban,
		Amount:           l.amount,
		BookedAt:         l.bookedAt,
	}
	if matched != nil {
		txn.MatchedUserID = &matched.ID
	}

	// A duplicate line must end the transaction: postgres rejects every
	// statement after a failed insert.
	outcome := "unmatched"
	err := i.store.WithTx(ctx, func(tx storage.Store) error {
		if err := tx.CreateBankTransaction(ctx, txn); err != nil {
			return err
		}
		if matched == nil || matched.ID == ownerID {
			return nil
		}
		outcome = "matched"

		owed, err := owedTo(ctx, tx, matched.ID, ownerID)
		if err != nil {
			return err
		}
		if calculator.IsSettled(owed) {
			return nil
		}

		if _, err := i.settler.Bind(tx).RecordPayment(ctx, settlement.Payment{
			PayerID: matched.ID,
			PayeeID: ownerID,
			Amount:  decimal.Min(l.amount, owed),
			Source:  models.SourceBank,
		}); err != nil {
			return err
		}
		outcome = "payment"
		return nil
	})
	if errors.Is(err, apperr.ErrConflict) {
		report.Duplicates++
		metrics.StatementLines.WithLabelValues("duplicate").Inc()
		return nil
	}
	if err != nil {
		return err
	}

	report.Imported++
	switch outcome {
	case "payment":
		report.Payments++
		report.Matched++
	case "matched":
		report.Matched++
	}
	metrics.StatementLines.WithLabelValues(outcome).Inc()
	return nil
}

// owedTo returns what holder currently owes receiver, zero if nothing.
func owedTo(ctx context.Context, store storage.Store, holderID, receiverID int64) (decimal.Decimal, error) {
	pair, _ := calculator.Normalize(holderID, receiverID, decimal.Zero)
	balance, err := store.GetBalance(ctx, pair.First, pair.Second)
	if errors.Is(err, apperr.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	debt := calculator.ResolveBalance(balance)
	if debt.Holder != holderID {
		return decimal.Zero, nil
	}
	return debt.Amount, nil
}
