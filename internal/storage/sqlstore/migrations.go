package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
)

// sqliteSchema contains the SQL statements to set up the SQLite schema.
// These run on startup to ensure tables exist.
// IMPORTANT: users must be created BEFORE every table that references it.
// Amounts are integer cents; share parts are decimal strings.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    iban TEXT NOT NULL DEFAULT '',
    provider_key TEXT NOT NULL DEFAULT '',
    payment_method TEXT NOT NULL,
    allow_manual_payments INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS payment_requests (
    id TEXT PRIMARY KEY,
    owner_id INTEGER NOT NULL REFERENCES users(id),
    recipient_id INTEGER NOT NULL REFERENCES users(id),
    amount INTEGER NOT NULL,
    description TEXT NOT NULL,
    published INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS request_shares (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL REFERENCES payment_requests(id) ON DELETE CASCADE,
    user_id INTEGER NOT NULL REFERENCES users(id),
    parts TEXT NOT NULL,
    payed_amount INTEGER NOT NULL DEFAULT 0,
    complete INTEGER NOT NULL DEFAULT 0,
    last_notified_at INTEGER,
    UNIQUE (request_id, user_id)
);

CREATE TABLE IF NOT EXISTS balances (
    first_user_id INTEGER NOT NULL REFERENCES users(id),
    second_user_id INTEGER NOT NULL REFERENCES users(id),
    amount INTEGER NOT NULL DEFAULT 0,
    last_request_id TEXT NOT NULL DEFAULT '',
    last_payment_at INTEGER,
    updated_at INTEGER NOT NULL,
    checkout_id TEXT NOT NULL DEFAULT '',
    page_opened_at INTEGER,
    PRIMARY KEY (first_user_id, second_user_id),
    CHECK (first_user_id < second_user_id)
);

CREATE TABLE IF NOT EXISTS reminders (
    id TEXT PRIMARY KEY,
    holder_id INTEGER NOT NULL REFERENCES users(id),
    receiver_id INTEGER NOT NULL REFERENCES users(id),
    paid_amount INTEGER NOT NULL,
    outcome TEXT NOT NULL DEFAULT 'unset',
    created_at INTEGER NOT NULL,
    notified_at INTEGER,
    resolved_at INTEGER
);

CREATE TABLE IF NOT EXISTS bank_transactions (
    id TEXT NOT NULL,
    owner_id INTEGER NOT NULL REFERENCES users(id),
    counterparty_iban TEXT NOT NULL,
    amount INTEGER NOT NULL,
    booked_at INTEGER NOT NULL,
    matched_user_id INTEGER REFERENCES users(id),
    PRIMARY KEY (owner_id, id)
);

CREATE INDEX IF NOT EXISTS idx_users_iban ON users(iban);
CREATE INDEX IF NOT EXISTS idx_requests_owner_id ON payment_requests(owner_id);
CREATE INDEX IF NOT EXISTS idx_shares_request_id ON request_shares(request_id);
CREATE INDEX IF NOT EXISTS idx_shares_user_id ON request_shares(user_id);
CREATE INDEX IF NOT EXISTS idx_shares_open ON request_shares(complete);
CREATE INDEX IF NOT EXISTS idx_balances_second_user_id ON balances(second_user_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_reminders_unresolved
    ON reminders(holder_id, receiver_id, paid_amount) WHERE outcome = 'unset';
`

// postgresSchema mirrors sqliteSchema with PostgreSQL types.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    iban TEXT NOT NULL DEFAULT '',
    provider_key TEXT NOT NULL DEFAULT '',
    payment_method TEXT NOT NULL,
    allow_manual_payments BOOLEAN NOT NULL DEFAULT FALSE,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS payment_requests (
    id TEXT PRIMARY KEY,
    owner_id BIGINT NOT NULL REFERENCES users(id),
    recipient_id BIGINT NOT NULL REFERENCES users(id),
    amount BIGINT NOT NULL,
    description TEXT NOT NULL,
    published BOOLEAN NOT NULL DEFAULT FALSE,
    created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS request_shares (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL REFERENCES payment_requests(id) ON DELETE CASCADE,
    user_id BIGINT NOT NULL REFERENCES users(id),
    parts TEXT NOT NULL,
    payed_amount BIGINT NOT NULL DEFAULT 0,
    complete BOOLEAN NOT NULL DEFAULT FALSE,
    last_notified_at BIGINT,
    UNIQUE (request_id, user_id)
);

CREATE TABLE IF NOT EXISTS balances (
    first_user_id BIGINT NOT NULL REFERENCES users(id),
    second_user_id BIGINT NOT NULL REFERENCES users(id),
    amount BIGINT NOT NULL DEFAULT 0,
    last_request_id TEXT NOT NULL DEFAULT '',
    last_payment_at BIGINT,
    updated_at BIGINT NOT NULL,
    checkout_id TEXT NOT NULL DEFAULT '',
    page_opened_at BIGINT,
    PRIMARY KEY (first_user_id, second_user_id),
    CHECK (first_user_id < second_user_id)
);

CREATE TABLE IF NOT EXISTS reminders (
    id TEXT PRIMARY KEY,
    holder_id BIGINT NOT NULL REFERENCES users(id),
    receiver_id BIGINT NOT NULL REFERENCES users(id),
    paid_amount BIGINT NOT NULL,
    outcome TEXT NOT NULL DEFAULT 'unset',
    created_at BIGINT NOT NULL,
    notified_at BIGINT,
    resolved_at BIGINT
);

CREATE TABLE IF NOT EXISTS bank_transactions (
    id TEXT NOT NULL,
    owner_id BIGINT NOT NULL REFERENCES users(id),
    counterparty_iban TEXT NOT NULL,
    amount BIGINT NOT NULL,
    booked_at BIGINT NOT NULL,
    matched_user_id BIGINT REFERENCES users(id),
    PRIMARY KEY (owner_id, id)
);

CREATE INDEX IF NOT EXISTS idx_users_iban ON users(iban);
CREATE INDEX IF NOT EXISTS idx_requests_owner_id ON payment_requests(owner_id);
CREATE INDEX IF NOT EXISTS idx_shares_request_id ON request_shares(request_id);
CREATE INDEX IF NOT EXISTS idx_shares_user_id ON request_shares(user_id);
CREATE INDEX IF NOT EXISTS idx_shares_open ON request_shares(complete);
CREATE INDEX IF NOT EXISTS idx_balances_second_user_id ON balances(second_user_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_reminders_unresolved
    ON reminders(holder_id, receiver_id, paid_amount) WHERE outcome = 'unset';
`

// runMigrations executes the schema setup one statement at a time.
func runMigrations(db *sql.DB, d dialect) error {
	for _, stmt := range strings.Split(d.schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("%s migration failed: %w", d.name, err)
		}
	}
	return nil
}
