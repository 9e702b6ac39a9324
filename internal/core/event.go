package core

import "github.com/vovakirdan/wirechat-sync/internal/store"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRoomList is a full snapshot of joined rooms and badge counts.
	EventRoomList EventKind = iota
	// EventChatActions delivers new update-class actions for one room.
	EventChatActions
	// EventEmoteChanges delivers an emote catalog delta.
	EventEmoteChanges
	// EventReload tells the client its session is no longer valid.
	EventReload
	// EventError notifies clients about a command failure.
	EventError
	// EventHistory answers a history request, newest first.
	EventHistory
	// EventDirectRoom answers a direct chat request.
	EventDirectRoom
)

var eventNames = [...]string{
	EventRoomList:     "roomlist",
	EventChatActions:  "chatactions",
	EventEmoteChanges: "emotechanges",
	EventReload:       "reload",
	EventError:        "error",
	EventHistory:      "history",
	EventDirectRoom:   "directroom",
}

func (k EventKind) String() string {
	if int(k) >= 0 && int(k) < len(eventNames) {
		return eventNames[k]
	}
	return "unknown"
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	RoomID  int64
	Rooms   []*store.Room // EventRoomList
	Counts  map[int64]int // EventRoomList
	Actions []*store.Action
	Emotes  EmoteDelta
	Room    *store.Room // EventDirectRoom
	Error   *CoreError
}

func roomListEvent(rooms []*store.Room, counts map[int64]int) *Event {
	return &Event{Kind: EventRoomList, Rooms: rooms, Counts: counts}
}
