package core

import (
	"context"

	"github.com/vovakirdan/wirechat-sync/internal/store"
)

// Store is the persistence the engine reads and writes. Calls may block.
type Store interface {
	GetAccountByID(ctx context.Context, id int64) (*store.Account, error)

	GetRoomByID(ctx context.Context, id int64) (*store.Room, error)
	CreateRoom(ctx context.Context, name string, roomType store.RoomType, ownerID *int64) (*store.Room, error)
	GetJoinedRooms(ctx context.Context, accountID int64) ([]*store.Room, error)
	IsMember(ctx context.Context, accountID, roomID int64) (bool, error)
	JoinRoom(ctx context.Context, accountID, roomID int64) (*store.Action, error)
	LeaveRoom(ctx context.Context, accountID, roomID int64) (*store.Action, error)
	SetRoomTopic(ctx context.Context, accountID, roomID int64, topic string) (*store.Action, error)
	ListOccupiedRooms(ctx context.Context, accountID int64) ([]*store.Room, error)
	ListOccupants(ctx context.Context, roomID int64) ([]int64, error)

	SaveAction(ctx context.Context, action *store.Action) error
	GetLastRoomAction(ctx context.Context, roomID int64) (*store.Action, error)
	GetRoomUpdates(ctx context.Context, roomID, afterID int64) ([]*store.Action, error)
	ListActions(ctx context.Context, roomID int64, limit int, beforeID *int64) ([]*store.Action, error)

	GetBadgeCounts(ctx context.Context, accountID int64) (map[int64]int, error)
	MarkLastSeen(ctx context.Context, accountID, roomID, actionID int64) error

	GetEmoteCatalog(ctx context.Context) (map[string]string, error)
}
