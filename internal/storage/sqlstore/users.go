package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/mmynk/payup/internal/apperr"
	"github.com/mmynk/payup/internal/models"
)

const userColumns = `id, email, name, password_hash, iban, provider_key, payment_method,
	allow_manual_payments, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var method string
	var createdAt, updatedAt int64
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.IBAN,
		&user.ProviderKey,
		&method,
		&user.AllowManualPayments,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	user.PaymentMethod = models.PaymentMethod(method)
	user.CreatedAt = fromUnix(createdAt)
	user.UpdatedAt = fromUnix(updatedAt)
	return user, nil
}

// CreateUser inserts a new user and sets user.ID from the database.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	if user.UpdatedAt.IsZero() {
		user.UpdatedAt = user.CreatedAt
	}
	if user.PaymentMethod == "" {
		user.PaymentMethod = models.PaymentMethodBankTransfer
	}

	query := `
		INSERT INTO users (email, name, password_hash, iban, provider_key, payment_method,
			allow_manual_payments, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	err := s.queryRow(ctx, query,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.IBAN,
		user.ProviderKey,
		string(user.PaymentMethod),
		user.AllowManualPayments,
		user.CreatedAt.Unix(),
		user.UpdatedAt.Unix(),
	).Scan(&user.ID)
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return apperr.Conflict("email %s is already registered", user.Email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by their ID.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", notFound(err, "user", id))
	}
	return user, nil
}

// GetUserByEmail retrieves a user by their email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", notFound(err, "user", email))
	}
	return user, nil
}

// GetUserByIBAN retrieves the user who registered the given IBAN.
func (s *Store) GetUserByIBAN(ctx context.Context, iban string) (*models.User, error) {
	if iban == "" {
		return nil, apperr.NotFound("user", "empty iban")
	}
	user, err := scanUser(s.queryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE iban = ? ORDER BY id LIMIT 1`, iban))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by IBAN: %w", notFound(err, "user", iban))
	}
	return user, nil
}

// GetUsersByIDs retrieves multiple users by their IDs.
// Returns a map of user ID to User object.
// Users that don't exist are omitted from the result.
func (s *Store) GetUsersByIDs(ctx context.Context, ids []int64) (map[int64]*models.User, error) {
	users := make(map[int64]*models.User, len(ids))
	if len(ids) == 0 {
		return users, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.query(ctx,
		`SELECT `+userColumns+` FROM users WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get users by IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users[user.ID] = user
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// UpdateUser saves the mutable profile fields of a user.
func (s *Store) UpdateUser(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()

	res, err := s.exec(ctx, `
		UPDATE users
		SET name = ?, iban = ?, provider_key = ?, payment_method = ?,
			allow_manual_payments = ?, updated_at = ?
		WHERE id = ?
	`,
		user.Name,
		user.IBAN,
		user.ProviderKey,
		string(user.PaymentMethod),
		user.AllowManualPayments,
		user.UpdatedAt.Unix(),
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireAffected(res, "user", user.ID)
}
