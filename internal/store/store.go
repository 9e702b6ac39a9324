package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is wrapped by lookups that match no row.
var ErrNotFound = errors.New("not found")

// ErrConflict is wrapped by inserts that violate a uniqueness constraint.
var ErrConflict = errors.New("already exists")

// AccountStatus defines whether an account may be used.
type AccountStatus string

const (
	AccountStatusActive      AccountStatus = "active"
	AccountStatusDeactivated AccountStatus = "deactivated"
)

// Account represents a registered user.
type Account struct {
	ID           int64
	Username     string
	PasswordHash string
	Status       AccountStatus
	CreatedAt    time.Time
}

// Active reports whether the account is in a usable state.
func (a *Account) Active() bool {
	return a != nil && a.Status == AccountStatusActive
}

// Session is a revocable login issued to an account.
type Session struct {
	ID        string
	AccountID int64
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Valid reports whether the session can still authenticate at the given time.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.RevokedAt == nil && now.Before(s.ExpiresAt)
}

// RoomType defines different types of rooms.
type RoomType string

const (
	RoomTypePublic  RoomType = "public"
	RoomTypePrivate RoomType = "private"
)

// Room represents a chat room.
type Room struct {
	ID        int64
	Name      string
	Type      RoomType
	Topic     string
	OwnerID   *int64 // nil for rooms created by the system
	CreatedAt time.Time
}

// Action is an immutable event appended to a room's history.
type Action struct {
	ID        int64
	RoomID    int64
	AccountID int64
	Kind      ActionKind
	Body      string
	CreatedAt time.Time
}

// AccountStore handles account persistence.
type AccountStore interface {
	// CreateAccount creates a new active account with hashed password.
	CreateAccount(ctx context.Context, username, passwordHash string) (*Account, error)

	// GetAccountByID retrieves an account by ID.
	GetAccountByID(ctx context.Context, id int64) (*Account, error)

	// GetAccountByUsername retrieves an account by username.
	GetAccountByUsername(ctx context.Context, username string) (*Account, error)

	// SetAccountStatus activates or deactivates an account.
	SetAccountStatus(ctx context.Context, id int64, status AccountStatus) error
}

// SessionStore handles session persistence.
type SessionStore interface {
	// CreateSession stores a new session.
	CreateSession(ctx context.Context, session *Session) error

	// GetSession retrieves a session by ID, revoked or not.
	GetSession(ctx context.Context, id string) (*Session, error)

	// RevokeSession marks a session as revoked.
	RevokeSession(ctx context.Context, id string) error
}

// RoomStore handles rooms and membership.
type RoomStore interface {
	// CreateRoom creates a new room and records its create action.
	CreateRoom(ctx context.Context, name string, roomType RoomType, ownerID *int64) (*Room, error)

	// GetRoomByID retrieves a room by ID.
	GetRoomByID(ctx context.Context, id int64) (*Room, error)

	// ListRooms lists public rooms plus rooms the account is a member of.
	ListRooms(ctx context.Context, accountID int64) ([]*Room, error)

	// GetJoinedRooms lists rooms the account is currently a member of.
	GetJoinedRooms(ctx context.Context, accountID int64) ([]*Room, error)

	// IsMember checks if the account is a member of the room.
	IsMember(ctx context.Context, accountID, roomID int64) (bool, error)

	// JoinRoom adds the account to the room, appends a join action and
	// moves the account's last-seen marker to that action.
	JoinRoom(ctx context.Context, accountID, roomID int64) (*Action, error)

	// LeaveRoom removes the account from the room and appends a leave action.
	LeaveRoom(ctx context.Context, accountID, roomID int64) (*Action, error)

	// SetRoomTopic updates the topic and appends a topic action.
	SetRoomTopic(ctx context.Context, accountID, roomID int64, topic string) (*Action, error)

	// ListOccupiedRooms lists non-public rooms the account is or ever was a member of.
	ListOccupiedRooms(ctx context.Context, accountID int64) ([]*Room, error)

	// ListOccupants lists every account that is or ever was a member of the room.
	ListOccupants(ctx context.Context, roomID int64) ([]int64, error)
}

// ActionStore handles room history.
type ActionStore interface {
	// SaveAction appends an action and sets its ID.
	SaveAction(ctx context.Context, action *Action) error

	// GetLastRoomAction returns the newest action of any kind, or nil if the room has none.
	GetLastRoomAction(ctx context.Context, roomID int64) (*Action, error)

	// GetRoomUpdates returns update-class actions with ID greater than afterID, oldest first.
	GetRoomUpdates(ctx context.Context, roomID, afterID int64) ([]*Action, error)

	// ListActions returns up to limit actions newest first.
	// If beforeID is provided, only actions older than that ID are returned.
	ListActions(ctx context.Context, roomID int64, limit int, beforeID *int64) ([]*Action, error)
}

// LastSeenStore handles unread counters.
type LastSeenStore interface {
	// GetBadgeCounts returns the unread message count per joined room.
	GetBadgeCounts(ctx context.Context, accountID int64) (map[int64]int, error)

	// MarkLastSeen moves the last-seen marker forward; it never moves back.
	MarkLastSeen(ctx context.Context, accountID, roomID, actionID int64) error
}

// EmoteStore handles the shared emote catalog.
type EmoteStore interface {
	// GetEmoteCatalog returns alias -> attachment reference.
	GetEmoteCatalog(ctx context.Context) (map[string]string, error)

	// SetEmote inserts or replaces an emote.
	SetEmote(ctx context.Context, alias, ref string) error

	// DeleteEmote removes an emote.
	DeleteEmote(ctx context.Context, alias string) error
}

// Store aggregates all storage interfaces.
type Store interface {
	AccountStore
	SessionStore
	RoomStore
	ActionStore
	LastSeenStore
	EmoteStore

	// Close closes the underlying database connection.
	Close() error
}
