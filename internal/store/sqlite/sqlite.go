package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/wirechat-sync/internal/store"
)

// conflict marks unique constraint violations with store.ErrConflict.
func conflict(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %w", store.ErrConflict, err)
	}
	return err
}

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New opens the database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, ApplySchema)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply a custom schema.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection; it also keeps
	// ":memory:" databases alive across queries.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== AccountStore implementation ====

// CreateAccount creates a new active account with hashed password.
func (s *SQLiteStore) CreateAccount(ctx context.Context, username, passwordHash string) (*store.Account, error) {
	query := `
		INSERT INTO accounts (username, password_hash, status)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash, store.AccountStatusActive)
	if err != nil {
		return nil, fmt.Errorf("insert account: %w", conflict(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetAccountByID(ctx, id)
}

const accountColumns = `id, username, password_hash, status, created_at`

func scanAccount(row interface{ Scan(...any) error }) (*store.Account, error) {
	var account store.Account
	var status string
	if err := row.Scan(&account.ID, &account.Username, &account.PasswordHash, &status, &account.CreatedAt); err != nil {
		return nil, err
	}
	account.Status = store.AccountStatus(status)
	return &account, nil
}

// GetAccountByID retrieves an account by ID.
func (s *SQLiteStore) GetAccountByID(ctx context.Context, id int64) (*store.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`
	account, err := scanAccount(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account not found: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query account: %w", err)
	}
	return account, nil
}

// GetAccountByUsername retrieves an account by username.
func (s *SQLiteStore) GetAccountByUsername(ctx context.Context, username string) (*store.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = ?`
	account, err := scanAccount(s.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account not found: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query account: %w", err)
	}
	return account, nil
}

// SetAccountStatus activates or deactivates an account.
func (s *SQLiteStore) SetAccountStatus(ctx context.Context, id int64, status store.AccountStatus) error {
	result, err := s.db.ExecContext(ctx, `UPDATE accounts SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update account status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("account not found: %w", store.ErrNotFound)
	}
	return nil
}

// ==== SessionStore implementation ====

// CreateSession stores a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *store.Session) error {
	query := `
		INSERT INTO sessions (id, account_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, session.ID, session.AccountID, session.CreatedAt.UTC(), session.ExpiresAt.UTC()); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID, revoked or not.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*store.Session, error) {
	query := `
		SELECT id, account_id, created_at, expires_at, revoked_at
		FROM sessions
		WHERE id = ?
	`
	var session store.Session
	var revokedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.AccountID,
		&session.CreatedAt,
		&session.ExpiresAt,
		&revokedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query session: %w", err)
	}
	if revokedAt.Valid {
		session.RevokedAt = &revokedAt.Time
	}
	return &session, nil
}

// RevokeSession marks a session as revoked.
func (s *SQLiteStore) RevokeSession(ctx context.Context, id string) error {
	query := `UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`
	if _, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// ==== RoomStore implementation ====

const roomColumns = `r.id, r.name, r.type, r.topic, r.owner_id, r.created_at`

func scanRoom(row interface{ Scan(...any) error }) (*store.Room, error) {
	var room store.Room
	var roomType string
	var ownerID sql.NullInt64
	if err := row.Scan(&room.ID, &room.Name, &roomType, &room.Topic, &ownerID, &room.CreatedAt); err != nil {
		return nil, err
	}
	room.Type = store.RoomType(roomType)
	if ownerID.Valid {
		room.OwnerID = &ownerID.Int64
	}
	return &room, nil
}

func (s *SQLiteStore) queryRooms(ctx context.Context, query string, args ...any) ([]*store.Room, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*store.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

// CreateRoom creates a new room and records its create action.
func (s *SQLiteStore) CreateRoom(ctx context.Context, name string, roomType store.RoomType, ownerID *int64) (*store.Room, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	result, err := tx.ExecContext(ctx, `INSERT INTO rooms (name, type, owner_id) VALUES (?, ?, ?)`, name, string(roomType), ownerID)
	if err != nil {
		return nil, fmt.Errorf("insert room: %w", conflict(err))
	}

	roomID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	var creator int64
	if ownerID != nil {
		creator = *ownerID
	}
	if _, err := insertAction(ctx, tx, roomID, creator, store.ActionCreate, name); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return s.GetRoomByID(ctx, roomID)
}

// GetRoomByID retrieves a room by ID.
func (s *SQLiteStore) GetRoomByID(ctx context.Context, id int64) (*store.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms r WHERE r.id = ?`
	room, err := scanRoom(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room not found: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query room: %w", err)
	}
	return room, nil
}

// ListRooms lists public rooms plus rooms the account is a member of.
func (s *SQLiteStore) ListRooms(ctx context.Context, accountID int64) ([]*store.Room, error) {
	query := `
		SELECT ` + roomColumns + `
		FROM rooms r
		WHERE r.type = 'public'
		   OR r.id IN (SELECT room_id FROM room_members WHERE account_id = ?)
		ORDER BY r.id
	`
	return s.queryRooms(ctx, query, accountID)
}

// GetJoinedRooms lists rooms the account is currently a member of.
func (s *SQLiteStore) GetJoinedRooms(ctx context.Context, accountID int64) ([]*store.Room, error) {
	query := `
		SELECT ` + roomColumns + `
		FROM rooms r
		JOIN room_members rm ON rm.room_id = r.id
		WHERE rm.account_id = ?
		ORDER BY r.id
	`
	return s.queryRooms(ctx, query, accountID)
}

// IsMember checks if the account is a member of the room.
func (s *SQLiteStore) IsMember(ctx context.Context, accountID, roomID int64) (bool, error) {
	query := `
		SELECT 1 FROM room_members
		WHERE account_id = ? AND room_id = ?
	`
	var exists int
	err := s.db.QueryRowContext(ctx, query, accountID, roomID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query membership: %w", err)
	}

	return true, nil
}

// JoinRoom adds the account to the room, appends a join action and moves
// the account's last-seen marker to that action.
func (s *SQLiteStore) JoinRoom(ctx context.Context, accountID, roomID int64) (*store.Action, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	memberQuery := `
		INSERT OR IGNORE INTO room_members (room_id, account_id)
		VALUES (?, ?)
	`
	if _, err := tx.ExecContext(ctx, memberQuery, roomID, accountID); err != nil {
		return nil, fmt.Errorf("insert room member: %w", err)
	}

	action, err := insertAction(ctx, tx, roomID, accountID, store.ActionJoin, "")
	if err != nil {
		return nil, err
	}

	if err := upsertLastSeen(ctx, tx, accountID, roomID, action.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return action, nil
}

// LeaveRoom removes the account from the room and appends a leave action.
func (s *SQLiteStore) LeaveRoom(ctx context.Context, accountID, roomID int64) (*store.Action, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	result, err := tx.ExecContext(ctx, `DELETE FROM room_members WHERE account_id = ? AND room_id = ?`, accountID, roomID)
	if err != nil {
		return nil, fmt.Errorf("delete room member: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("membership not found: %w", store.ErrNotFound)
	}

	action, err := insertAction(ctx, tx, roomID, accountID, store.ActionLeave, "")
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return action, nil
}

// SetRoomTopic updates the topic and appends a topic action.
func (s *SQLiteStore) SetRoomTopic(ctx context.Context, accountID, roomID int64, topic string) (*store.Action, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	result, err := tx.ExecContext(ctx, `UPDATE rooms SET topic = ? WHERE id = ?`, topic, roomID)
	if err != nil {
		return nil, fmt.Errorf("update topic: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("room not found: %w", store.ErrNotFound)
	}

	action, err := insertAction(ctx, tx, roomID, accountID, store.ActionTopic, topic)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return action, nil
}

// ListOccupiedRooms lists non-public rooms the account is or ever was a member of.
func (s *SQLiteStore) ListOccupiedRooms(ctx context.Context, accountID int64) ([]*store.Room, error) {
	query := `
		SELECT ` + roomColumns + `
		FROM rooms r
		WHERE r.type != 'public'
		  AND (r.id IN (SELECT room_id FROM room_members WHERE account_id = ?)
		    OR r.id IN (SELECT room_id FROM actions WHERE account_id = ? AND kind = ?))
		ORDER BY r.id
	`
	return s.queryRooms(ctx, query, accountID, accountID, store.ActionJoin.String())
}

// ListOccupants lists every account that is or ever was a member of the room.
func (s *SQLiteStore) ListOccupants(ctx context.Context, roomID int64) ([]int64, error) {
	query := `
		SELECT account_id FROM room_members WHERE room_id = ?
		UNION
		SELECT account_id FROM actions WHERE room_id = ? AND kind = ?
		ORDER BY 1
	`
	rows, err := s.db.QueryContext(ctx, query, roomID, roomID, store.ActionJoin.String())
	if err != nil {
		return nil, fmt.Errorf("query occupants: %w", err)
	}
	defer rows.Close()

	var occupants []int64
	for rows.Next() {
		var accountID int64
		if err := rows.Scan(&accountID); err != nil {
			return nil, fmt.Errorf("scan occupant: %w", err)
		}
		occupants = append(occupants, accountID)
	}

	return occupants, rows.Err()
}

// ==== ActionStore implementation ====

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertAction(ctx context.Context, db execer, roomID, accountID int64, kind store.ActionKind, body string) (*store.Action, error) {
	action := &store.Action{
		RoomID:    roomID,
		AccountID: accountID,
		Kind:      kind,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	query := `
		INSERT INTO actions (room_id, account_id, kind, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := db.ExecContext(ctx, query, roomID, accountID, kind.String(), body, action.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert action: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}
	action.ID = id
	return action, nil
}

const actionColumns = `id, room_id, account_id, kind, body, created_at`

func scanAction(row interface{ Scan(...any) error }) (*store.Action, error) {
	var action store.Action
	var kind string
	if err := row.Scan(&action.ID, &action.RoomID, &action.AccountID, &kind, &action.Body, &action.CreatedAt); err != nil {
		return nil, err
	}
	k, err := store.ParseActionKind(kind)
	if err != nil {
		return nil, err
	}
	action.Kind = k
	return &action, nil
}

func (s *SQLiteStore) queryActions(ctx context.Context, query string, args ...any) ([]*store.Action, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	var actions []*store.Action
	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		actions = append(actions, action)
	}

	return actions, rows.Err()
}

// SaveAction appends an action and sets its ID.
func (s *SQLiteStore) SaveAction(ctx context.Context, action *store.Action) error {
	saved, err := insertAction(ctx, s.db, action.RoomID, action.AccountID, action.Kind, action.Body)
	if err != nil {
		return err
	}
	action.ID = saved.ID
	action.CreatedAt = saved.CreatedAt
	return nil
}

// GetLastRoomAction returns the newest action of any kind, or nil if the room has none.
func (s *SQLiteStore) GetLastRoomAction(ctx context.Context, roomID int64) (*store.Action, error) {
	query := `SELECT ` + actionColumns + ` FROM actions WHERE room_id = ? ORDER BY id DESC LIMIT 1`
	action, err := scanAction(s.db.QueryRowContext(ctx, query, roomID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query last action: %w", err)
	}
	return action, nil
}

// GetRoomUpdates returns update-class actions with ID greater than afterID, oldest first.
func (s *SQLiteStore) GetRoomUpdates(ctx context.Context, roomID, afterID int64) ([]*store.Action, error) {
	kinds := store.UpdateKinds.Slice()
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(kinds)), ",")
	args := []any{roomID, afterID}
	for _, k := range kinds {
		args = append(args, k.String())
	}

	query := `
		SELECT ` + actionColumns + `
		FROM actions
		WHERE room_id = ? AND id > ? AND kind IN (` + placeholders + `)
		ORDER BY id ASC
	`
	return s.queryActions(ctx, query, args...)
}

// ListActions returns up to limit actions newest first.
func (s *SQLiteStore) ListActions(ctx context.Context, roomID int64, limit int, beforeID *int64) ([]*store.Action, error) {
	if beforeID != nil {
		query := `
			SELECT ` + actionColumns + `
			FROM actions
			WHERE room_id = ? AND id < ?
			ORDER BY id DESC
			LIMIT ?
		`
		return s.queryActions(ctx, query, roomID, *beforeID, limit)
	}

	query := `
		SELECT ` + actionColumns + `
		FROM actions
		WHERE room_id = ?
		ORDER BY id DESC
		LIMIT ?
	`
	return s.queryActions(ctx, query, roomID, limit)
}

// ==== LastSeenStore implementation ====

func upsertLastSeen(ctx context.Context, db execer, accountID, roomID, actionID int64) error {
	query := `
		INSERT INTO last_seen (account_id, room_id, action_id)
		VALUES (?, ?, ?)
		ON CONFLICT (account_id, room_id)
		DO UPDATE SET action_id = MAX(action_id, excluded.action_id)
	`
	if _, err := db.ExecContext(ctx, query, accountID, roomID, actionID); err != nil {
		return fmt.Errorf("upsert last seen: %w", err)
	}
	return nil
}

// GetBadgeCounts returns the unread message count per joined room.
// Messages written by the account itself never count as unread.
func (s *SQLiteStore) GetBadgeCounts(ctx context.Context, accountID int64) (map[int64]int, error) {
	query := `
		SELECT rm.room_id, COUNT(a.id)
		FROM room_members rm
		LEFT JOIN last_seen ls
		       ON ls.account_id = rm.account_id AND ls.room_id = rm.room_id
		LEFT JOIN actions a
		       ON a.room_id = rm.room_id
		      AND a.kind = ?
		      AND a.account_id != rm.account_id
		      AND a.id > COALESCE(ls.action_id, 0)
		WHERE rm.account_id = ?
		GROUP BY rm.room_id
	`
	rows, err := s.db.QueryContext(ctx, query, store.ActionMessage.String(), accountID)
	if err != nil {
		return nil, fmt.Errorf("query badge counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var roomID int64
		var count int
		if err := rows.Scan(&roomID, &count); err != nil {
			return nil, fmt.Errorf("scan badge count: %w", err)
		}
		counts[roomID] = count
	}

	return counts, rows.Err()
}

// MarkLastSeen moves the last-seen marker forward; it never moves back.
func (s *SQLiteStore) MarkLastSeen(ctx context.Context, accountID, roomID, actionID int64) error {
	return upsertLastSeen(ctx, s.db, accountID, roomID, actionID)
}

// ==== EmoteStore implementation ====

// GetEmoteCatalog returns alias -> attachment reference.
func (s *SQLiteStore) GetEmoteCatalog(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT alias, attachment_ref FROM emotes`)
	if err != nil {
		return nil, fmt.Errorf("query emotes: %w", err)
	}
	defer rows.Close()

	catalog := make(map[string]string)
	for rows.Next() {
		var alias, ref string
		if err := rows.Scan(&alias, &ref); err != nil {
			return nil, fmt.Errorf("scan emote: %w", err)
		}
		catalog[alias] = ref
	}

	return catalog, rows.Err()
}

// SetEmote inserts or replaces an emote.
func (s *SQLiteStore) SetEmote(ctx context.Context, alias, ref string) error {
	query := `
		INSERT INTO emotes (alias, attachment_ref) VALUES (?, ?)
		ON CONFLICT (alias) DO UPDATE SET attachment_ref = excluded.attachment_ref
	`
	if _, err := s.db.ExecContext(ctx, query, alias, ref); err != nil {
		return fmt.Errorf("upsert emote: %w", err)
	}
	return nil
}

// DeleteEmote removes an emote.
func (s *SQLiteStore) DeleteEmote(ctx context.Context, alias string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM emotes WHERE alias = ?`, alias)
	if err != nil {
		return fmt.Errorf("delete emote: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("emote not found: %w", store.ErrNotFound)
	}
	return nil
}
