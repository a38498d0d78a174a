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
	"github.com/mmynk/payup/internal/storage"
)

// runTx runs fn against a transaction-bound *Store.
func (s *Store) runTx(ctx context.Context, fn func(t *Store) error) error {
	return s.WithTx(ctx, func(tx storage.Store) error {
		return fn(tx.(*Store))
	})
}

// CreateRequest persists a new request and its shares in a single transaction.
func (s *Store) CreateRequest(ctx context.Context, req *models.PaymentRequest) error {
	// Generate ID if not set
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}

	return s.runTx(ctx, func(t *Store) error {
		_, err := t.exec(ctx, `
			INSERT INTO payment_requests (id, owner_id, recipient_id, amount, description, published, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, req.ID, req.OwnerID, req.RecipientID, toCents(req.Amount), req.Description, req.Published, req.CreatedAt.Unix())
		if err != nil {
			return fmt.Errorf("failed to insert request: %w", err)
		}
		return t.insertShares(ctx, req)
	})
}

func (s *Store) insertShares(ctx context.Context, req *models.PaymentRequest) error {
	for i := range req.Shares {
		share := &req.Shares[i]
		if share.ID == "" {
			share.ID = uuid.New().String()
		}
		share.RequestID = req.ID

		_, err := s.exec(ctx, `
			INSERT INTO request_shares (id, request_id, user_id, parts, payed_amount, complete, last_notified_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, share.ID, share.RequestID, share.UserID, share.Parts.String(), toCents(share.PayedAmount),
			share.Complete, unixOrNull(share.LastNotifiedAt))
		if err != nil {
			if s.dialect.isUniqueViolation(err) {
				return apperr.Conflict("user %d has more than one share in request %s", share.UserID, req.ID)
			}
			return fmt.Errorf("failed to insert share: %w", err)
		}
	}
	return nil
}

const requestColumns = `id, owner_id, recipient_id, amount, description, published, created_at`

func scanRequest(row rowScanner) (*models.PaymentRequest, error) {
	req := &models.PaymentRequest{}
	var amount, createdAt int64
	if err := row.Scan(&req.ID, &req.OwnerID, &req.RecipientID, &amount, &req.Description, &req.Published, &createdAt); err != nil {
		return nil, err
	}
	req.Amount = fromCents(amount)
	req.CreatedAt = fromUnix(createdAt)
	return req, nil
}

// GetRequest retrieves a request with all of its shares.
func (s *Store) GetRequest(ctx context.Context, id string) (*models.PaymentRequest, error) {
	req, err := scanRequest(s.queryRow(ctx, `SELECT `+requestColumns+` FROM payment_requests WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", notFound(err, "request", id))
	}

	shares, err := s.loadShares(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	req.Shares = shares[id]
	return req, nil
}

// ListRequestsForUser returns requests the user owns or holds a share in, newest first.
func (s *Store) ListRequestsForUser(ctx context.Context, userID int64) ([]*models.PaymentRequest, error) {
	rows, err := s.query(ctx, `
		SELECT `+requestColumns+`
		FROM payment_requests
		WHERE owner_id = ?
		   OR id IN (SELECT request_id FROM request_shares WHERE user_id = ?)
		ORDER BY created_at DESC, id
	`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var requests []*models.PaymentRequest
	var ids []string
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		requests = append(requests, req)
		ids = append(ids, req.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating requests: %w", err)
	}

	shares, err := s.loadShares(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, req := range requests {
		req.Shares = shares[req.ID]
	}
	return requests, nil
}

// UpdateRequest replaces the editable fields and shares of a draft.
func (s *Store) UpdateRequest(ctx context.Context, req *models.PaymentRequest) error {
	return s.runTx(ctx, func(t *Store) error {
		res, err := t.exec(ctx, `
			UPDATE payment_requests
			SET recipient_id = ?, amount = ?, description = ?
			WHERE id = ? AND NOT published
		`, req.RecipientID, toCents(req.Amount), req.Description, req.ID)
		if err != nil {
			return fmt.Errorf("failed to update request: %w", err)
		}
		if err := t.requireDraft(ctx, res, req.ID); err != nil {
			return err
		}

		if _, err := t.exec(ctx, `DELETE FROM request_shares WHERE request_id = ?`, req.ID); err != nil {
			return fmt.Errorf("failed to clear shares: %w", err)
		}
		for i := range req.Shares {
			req.Shares[i].ID = ""
		}
		return t.insertShares(ctx, req)
	})
}

// MarkRequestPublished flips a draft to published.
func (s *Store) MarkRequestPublished(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `UPDATE payment_requests SET published = ? WHERE id = ? AND NOT published`, true, id)
	if err != nil {
		return fmt.Errorf("failed to publish request: %w", err)
	}
	return s.requireDraft(ctx, res, id)
}

// requireDraft distinguishes "already published" from "missing" when a
// draft-only update touched no rows.
func (s *Store) requireDraft(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}

	var published bool
	err = s.queryRow(ctx, `SELECT published FROM payment_requests WHERE id = ?`, id).Scan(&published)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("request", id)
	}
	if err != nil {
		return fmt.Errorf("failed to check request: %w", err)
	}
	return apperr.Conflict("request %s is already published", id)
}

// UpdateRequestDescription changes the description, which stays editable
// after publishing.
func (s *Store) UpdateRequestDescription(ctx context.Context, id, description string) error {
	res, err := s.exec(ctx, `UPDATE payment_requests SET description = ? WHERE id = ?`, description, id)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	return requireAffected(res, "request", id)
}

// DeleteRequest removes a draft. Shares are removed by cascade.
func (s *Store) DeleteRequest(ctx context.Context, id string) error {
	res, err := s.exec(ctx, `DELETE FROM payment_requests WHERE id = ? AND NOT published`, id)
	if err != nil {
		return fmt.Errorf("failed to delete request: %w", err)
	}
	return s.requireDraft(ctx, res, id)
}

const shareColumns = `s.id, s.request_id, s.user_id, s.parts, s.payed_amount, s.complete, s.last_notified_at`

func scanShare(row rowScanner, extra ...any) (models.RequestShare, error) {
	var share models.RequestShare
	var parts string
	var payed int64
	var notified sql.NullInt64
	dest := append([]any{&share.ID, &share.RequestID, &share.UserID, &parts, &payed, &share.Complete, &notified}, extra...)
	if err := row.Scan(dest...); err != nil {
		return share, err
	}
	p, err := decimal.NewFromString(parts)
	if err != nil {
		return share, fmt.Errorf("invalid parts %q on share %s: %w", parts, share.ID, err)
	}
	share.Parts = p
	share.PayedAmount = fromCents(payed)
	share.LastNotifiedAt = timeOrNil(notified)
	return share, nil
}

// loadShares returns the shares of the given requests keyed by request ID.
func (s *Store) loadShares(ctx context.Context, requestIDs []string) (map[string][]models.RequestShare, error) {
	result := make(map[string][]models.RequestShare, len(requestIDs))
	if len(requestIDs) == 0 {
		return result, nil
	}

	args := make([]any, len(requestIDs))
	for i, id := range requestIDs {
		args[i] = id
	}

	rows, err := s.query(ctx, `
		SELECT `+shareColumns+`
		FROM request_shares s
		WHERE s.request_id IN (`+placeholders(len(requestIDs))+`)
		ORDER BY s.request_id, s.user_id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load shares: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		result[share.RequestID] = append(result[share.RequestID], share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shares: %w", err)
	}
	return result, nil
}

// ListOpenShares returns every incomplete share of a published request.
func (s *Store) ListOpenShares(ctx context.Context) ([]models.OpenShare, error) {
	return s.listOpenShares(ctx, "", nil)
}

// ListOpenSharesBetween returns the open shares userID holds towards recipientID,
// oldest request first.
func (s *Store) ListOpenSharesBetween(ctx context.Context, userID, recipientID int64) ([]models.OpenShare, error) {
	return s.listOpenShares(ctx, "AND s.user_id = ? AND r.recipient_id = ?", []any{userID, recipientID})
}

func (s *Store) listOpenShares(ctx context.Context, filter string, args []any) ([]models.OpenShare, error) {
	rows, err := s.query(ctx, `
		SELECT `+shareColumns+`, r.amount, r.recipient_id, r.created_at
		FROM request_shares s
		JOIN payment_requests r ON r.id = s.request_id
		WHERE r.published AND NOT s.complete `+filter+`
		ORDER BY r.created_at, r.id, s.user_id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list open shares: %w", err)
	}
	defer rows.Close()

	var shares []models.OpenShare
	seen := make(map[string]bool)
	var requestIDs []string
	for rows.Next() {
		var open models.OpenShare
		var amount, createdAt int64
		share, err := scanShare(rows, &amount, &open.RecipientID, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan open share: %w", err)
		}
		open.RequestShare = share
		open.RequestAmount = fromCents(amount)
		open.CreatedAt = fromUnix(createdAt)
		shares = append(shares, open)

		if !seen[share.RequestID] {
			seen[share.RequestID] = true
			requestIDs = append(requestIDs, share.RequestID)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating open shares: %w", err)
	}
	rows.Close()

	// Total parts include completed shares, so load every share of each request.
	all, err := s.loadShares(ctx, requestIDs)
	if err != nil {
		return nil, err
	}
	totals := make(map[string]decimal.Decimal, len(all))
	for id, list := range all {
		total := decimal.Zero
		for _, share := range list {
			total = total.Add(share.Parts)
		}
		totals[id] = total
	}
	for i := range shares {
		shares[i].TotalParts = totals[shares[i].RequestID]
	}
	return shares, nil
}

// AddSharePayment increments a share's paid amount.
func (s *Store) AddSharePayment(ctx context.Context, shareID string, amount decimal.Decimal) error {
	res, err := s.exec(ctx, `UPDATE request_shares SET payed_amount = payed_amount + ? WHERE id = ?`,
		toCents(amount), shareID)
	if err != nil {
		return fmt.Errorf("failed to record share payment: %w", err)
	}
	return requireAffected(res, "share", shareID)
}

// CompleteShares marks shares complete and reports how many were still open.
func (s *Store) CompleteShares(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []any{true}
	for _, id := range ids {
		args = append(args, id)
	}

	res, err := s.exec(ctx, `
		UPDATE request_shares SET complete = ?
		WHERE NOT complete AND id IN (`+placeholders(len(ids))+`)
	`, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to complete shares: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

// MarkSharesNotified stamps the reminder time on the given shares.
func (s *Store) MarkSharesNotified(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	args := []any{at.Unix()}
	for _, id := range ids {
		args = append(args, id)
	}

	if _, err := s.exec(ctx, `
		UPDATE request_shares SET last_notified_at = ?
		WHERE id IN (`+placeholders(len(ids))+`)
	`, args...); err != nil {
		return fmt.Errorf("failed to mark shares notified: %w", err)
	}
	return nil
}
