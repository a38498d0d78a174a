package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/payup/internal/apperr"
	"github.com/mmynk/payup/internal/models"
)

const reminderColumns = `id, holder_id, receiver_id, paid_amount, outcome, created_at, notified_at, resolved_at`

func scanReminder(row rowScanner) (*models.Reminder, error) {
	r := &models.Reminder{}
	var amount, createdAt int64
	var outcome string
	var notifiedAt, resolvedAt sql.NullInt64
	if err := row.Scan(&r.ID, &r.HolderID, &r.ReceiverID, &amount, &outcome, &createdAt, &notifiedAt, &resolvedAt); err != nil {
		return nil, err
	}
	r.PaidAmount = fromCents(amount)
	r.Outcome = models.ReminderOutcome(outcome)
	r.CreatedAt = fromUnix(createdAt)
	r.NotifiedAt = timeOrNil(notifiedAt)
	r.ResolvedAt = timeOrNil(resolvedAt)
	return r, nil
}

// CreateReminder persists a new unset reminder. The partial unique index on
// unresolved reminders turns a concurrent duplicate into a conflict.
func (s *Store) CreateReminder(ctx context.Context, r *models.Reminder) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.Outcome == "" {
		r.Outcome = models.OutcomeUnset
	}

	_, err := s.exec(ctx, `
		INSERT INTO reminders (id, holder_id, receiver_id, paid_amount, outcome, created_at, notified_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.HolderID, r.ReceiverID, toCents(r.PaidAmount), string(r.Outcome), r.CreatedAt.Unix(),
		unixOrNull(r.NotifiedAt), unixOrNull(r.ResolvedAt))
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return apperr.Conflict("an unresolved reminder for %d -> %d over %s already exists",
				r.HolderID, r.ReceiverID, r.PaidAmount.StringFixed(2))
		}
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

// GetReminder retrieves a reminder by ID.
func (s *Store) GetReminder(ctx context.Context, id string) (*models.Reminder, error) {
	r, err := scanReminder(s.queryRow(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder: %w", notFound(err, "reminder", id))
	}
	return r, nil
}

// FindUnresolvedReminder returns the unset reminder matching the snapshot.
func (s *Store) FindUnresolvedReminder(ctx context.Context, holderID, receiverID int64, amount decimal.Decimal) (*models.Reminder, error) {
	r, err := scanReminder(s.queryRow(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders
		WHERE holder_id = ? AND receiver_id = ? AND paid_amount = ? AND outcome = ?
	`, holderID, receiverID, toCents(amount), string(models.OutcomeUnset)))
	if err != nil {
		key := fmt.Sprintf("%d->%d %s", holderID, receiverID, amount.StringFixed(2))
		return nil, fmt.Errorf("failed to find reminder: %w", notFound(err, "reminder", key))
	}
	return r, nil
}

// ResolveReminder moves an unset reminder to a terminal outcome. Only one
// caller can win the conditional update.
func (s *Store) ResolveReminder(ctx context.Context, id string, outcome models.ReminderOutcome, at time.Time) error {
	if !outcome.Terminal() {
		return apperr.Invalid("outcome", "%q is not a terminal outcome", outcome)
	}

	res, err := s.exec(ctx, `
		UPDATE reminders SET outcome = ?, resolved_at = ?
		WHERE id = ? AND outcome = ?
	`, string(outcome), at.Unix(), id, string(models.OutcomeUnset))
	if err != nil {
		return fmt.Errorf("failed to resolve reminder: %w", err)
	}

	err = requireAffected(res, "reminder", id)
	if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}

	// Nothing changed: either the reminder is missing or it was already answered.
	if _, getErr := s.GetReminder(ctx, id); getErr != nil {
		return getErr
	}
	return apperr.Conflict("reminder %s is already resolved", id)
}

// ListUnnotifiedReminders returns unset reminders whose mail has not gone out.
func (s *Store) ListUnnotifiedReminders(ctx context.Context) ([]*models.Reminder, error) {
	rows, err := s.query(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders
		WHERE outcome = ? AND notified_at IS NULL
		ORDER BY created_at, id
	`, string(models.OutcomeUnset))
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*models.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reminders: %w", err)
	}
	return reminders, nil
}

// MarkReminderNotified stamps the time the confirmation mail was sent.
func (s *Store) MarkReminderNotified(ctx context.Context, id string, at time.Time) error {
	res, err := s.exec(ctx, `UPDATE reminders SET notified_at = ? WHERE id = ?`, at.Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to mark reminder notified: %w", err)
	}
	return requireAffected(res, "reminder", id)
}
