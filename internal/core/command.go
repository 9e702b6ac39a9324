package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandSendRoomMessage posts a chat message to a room.
	CommandSendRoomMessage CommandKind = iota
	// CommandJoinRoom joins a room.
	CommandJoinRoom
	// CommandLeaveRoom leaves a room.
	CommandLeaveRoom
	// CommandHistory fetches a page of room history.
	CommandHistory
	// CommandRoomList requests the current room list.
	CommandRoomList
	// CommandStartDirect opens (or reuses) a two-party room.
	CommandStartDirect
	// CommandMarkRead moves the account's last-seen marker.
	CommandMarkRead
	// CommandSetTopic changes a room's topic.
	CommandSetTopic
	// CommandEmotes requests the full emote catalog.
	CommandEmotes
)

// Command represents an action requested by a client.
type Command struct {
	Kind     CommandKind
	RoomID   int64
	Text     string
	Target   int64  // account id for CommandStartDirect
	ActionID int64  // CommandMarkRead
	BeforeID *int64 // CommandHistory pagination
}
