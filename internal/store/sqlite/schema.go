package sqlite

import (
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'active',
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	account_id INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL,
	revoked_at DATETIME,
	FOREIGN KEY (account_id) REFERENCES accounts(id)
);

CREATE TABLE IF NOT EXISTS rooms (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	type       TEXT NOT NULL DEFAULT 'public',
	topic      TEXT NOT NULL DEFAULT '',
	owner_id   INTEGER,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (owner_id) REFERENCES accounts(id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_rooms_public_name ON rooms(name) WHERE type = 'public';

CREATE TABLE IF NOT EXISTS room_members (
	room_id    INTEGER NOT NULL,
	account_id INTEGER NOT NULL,
	joined_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (room_id, account_id),
	FOREIGN KEY (room_id) REFERENCES rooms(id),
	FOREIGN KEY (account_id) REFERENCES accounts(id)
);

CREATE INDEX IF NOT EXISTS idx_room_members_account ON room_members(account_id);

CREATE TABLE IF NOT EXISTS actions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id    INTEGER NOT NULL,
	account_id INTEGER NOT NULL,
	kind       TEXT NOT NULL,
	body       TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (room_id) REFERENCES rooms(id)
);

CREATE INDEX IF NOT EXISTS idx_actions_room ON actions(room_id, id);
CREATE INDEX IF NOT EXISTS idx_actions_account_kind ON actions(account_id, kind);

CREATE TABLE IF NOT EXISTS last_seen (
	account_id INTEGER NOT NULL,
	room_id    INTEGER NOT NULL,
	action_id  INTEGER NOT NULL,
	PRIMARY KEY (account_id, room_id)
);

CREATE TABLE IF NOT EXISTS emotes (
	alias          TEXT PRIMARY KEY,
	attachment_ref TEXT NOT NULL
);
`

// ApplySchema creates all tables that do not exist yet.
func ApplySchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
