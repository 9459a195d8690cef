package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    pin_hash      TEXT,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS categories (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    parent_id  INTEGER REFERENCES categories(id),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_categories_parent ON categories(parent_id);

CREATE TABLE IF NOT EXISTS items (
    id                INTEGER PRIMARY KEY,
    tracking_id       TEXT NOT NULL UNIQUE,
    name              TEXT NOT NULL,
    description       TEXT,
    category_id       INTEGER REFERENCES categories(id),
    quantity          INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
    reorder_threshold INTEGER CHECK (reorder_threshold >= 0),
    minimum_quantity  INTEGER CHECK (minimum_quantity >= 0),
    status            TEXT NOT NULL DEFAULT 'out_of_stock'
                      CHECK (status IN ('available', 'restock', 'out_of_stock', 'removed')),
    image             BLOB,
    image_mime        TEXT,
    created_by        INTEGER REFERENCES users(id),
    created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS assets (
    id              INTEGER PRIMARY KEY,
    tracking_id     TEXT NOT NULL UNIQUE,
    name            TEXT NOT NULL,
    description     TEXT,
    category_id     INTEGER REFERENCES categories(id),
    status          TEXT NOT NULL DEFAULT 'available'
                    CHECK (status IN ('available', 'checked_out', 'maintenance', 'retired', 'removed')),
    holder_id       INTEGER REFERENCES users(id),
    checked_out_at  DATETIME,
    checkout_reason TEXT,
    image           BLOB,
    image_mime      TEXT,
    created_by      INTEGER REFERENCES users(id),
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK ((holder_id IS NULL) = (checked_out_at IS NULL)),
    CHECK ((status = 'checked_out') = (holder_id IS NOT NULL))
);

CREATE TABLE IF NOT EXISTS tags (
    id    INTEGER PRIMARY KEY,
    name  TEXT NOT NULL UNIQUE,
    color TEXT NOT NULL DEFAULT '#6c757d'
);

CREATE TABLE IF NOT EXISTS item_tags (
    item_id INTEGER NOT NULL REFERENCES items(id),
    tag_id  INTEGER NOT NULL REFERENCES tags(id),
    PRIMARY KEY (item_id, tag_id)
);

CREATE TABLE IF NOT EXISTS asset_tags (
    asset_id INTEGER NOT NULL REFERENCES assets(id),
    tag_id   INTEGER NOT NULL REFERENCES tags(id),
    PRIMARY KEY (asset_id, tag_id)
);

CREATE TABLE IF NOT EXISTS checkout_reasons (
    id          INTEGER PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT,
    active      INTEGER NOT NULL DEFAULT 1,
    created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS transactions (
    id         INTEGER PRIMARY KEY,
    item_id    INTEGER REFERENCES items(id),
    asset_id   INTEGER REFERENCES assets(id),
    user_id    INTEGER NOT NULL REFERENCES users(id),
    delta      INTEGER NOT NULL,
    kind       TEXT NOT NULL CHECK (kind IN ('checkout', 'checkin', 'adjustment')),
    reason     TEXT,
    notes      TEXT,
    created_at DATETIME NOT NULL,
    CHECK ((item_id IS NULL) <> (asset_id IS NULL)),
    CHECK (asset_id IS NULL OR delta = 0)
);

CREATE INDEX IF NOT EXISTS idx_transactions_item ON transactions(item_id, id);
CREATE INDEX IF NOT EXISTS idx_transactions_asset ON transactions(asset_id, id);
CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions(user_id, created_at);

CREATE TRIGGER IF NOT EXISTS transactions_no_update
BEFORE UPDATE ON transactions
BEGIN
    SELECT RAISE(ABORT, 'transactions are append-only');
END;

CREATE TRIGGER IF NOT EXISTS transactions_no_delete
BEFORE DELETE ON transactions
BEGIN
    SELECT RAISE(ABORT, 'transactions are append-only');
END;
`

// EnsureSchema creates all tables, indexes and triggers if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
