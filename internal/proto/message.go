package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello    = "hello"
	InboundTypeRoomList = "roomlist"
	InboundTypeJoin     = "join"
	InboundTypeLeave    = "leave"
	InboundTypeMsg      = "msg"
	InboundTypeHistory  = "history"
	InboundTypeDirect   = "direct"
	InboundTypeMarkRead = "markread"
	InboundTypeTopic    = "topic"
	InboundTypeEmotes   = "emotes"

	OutboundTypeRoomList     = "roomlist"
	OutboundTypeChatActions  = "chatactions"
	OutboundTypeEmoteChanges = "emotechanges"
	OutboundTypeReload       = "reload"
	OutboundTypeError        = "error"
	OutboundTypeHistory      = "history"
	OutboundTypeDirectRoom   = "directroom"
)

// HelloData (re-)authenticates the connection.
type HelloData struct {
	Token    string `json:"token,omitempty"`
	Protocol int    `json:"protocol,omitempty"`
}

// RoomData names a room, for join and leave.
type RoomData struct {
	Room int64 `json:"room"`
}

// MsgData is a chat message from the client.
type MsgData struct {
	Room int64  `json:"room"`
	Text string `json:"text"`
}

// HistoryData requests a page of history. Before pages backwards.
type HistoryData struct {
	Room   int64  `json:"room"`
	Before *int64 `json:"before,omitempty"`
}

// DirectData asks for the direct room shared with another account.
type DirectData struct {
	User int64 `json:"user"`
}

// MarkReadData moves the read marker of a room.
type MarkReadData struct {
	Room   int64 `json:"room"`
	Action int64 `json:"action"`
}

// TopicData changes a room topic.
type TopicData struct {
	Room  int64  `json:"room"`
	Topic string `json:"topic"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Room describes a room in room lists.
type Room struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Topic string `json:"topic"`
}

// RoomCount is the unread badge of one room.
type RoomCount struct {
	RoomID int64 `json:"roomId"`
	Count  int   `json:"count"`
}

// RoomListData is a full snapshot of the joined rooms.
type RoomListData struct {
	Rooms  []Room      `json:"rooms"`
	Counts []RoomCount `json:"counts"`
}

// Action is one entry of a room's action log.
type Action struct {
	ID   int64  `json:"id"`
	Room int64  `json:"room"`
	User int64  `json:"user"`
	Kind string `json:"kind"`
	Body string `json:"body"`
	TS   int64  `json:"ts"`
}

// ChatActionsData carries actions of one room, oldest first for
// chatactions and newest first for history.
type ChatActionsData struct {
	RoomID  int64    `json:"roomId"`
	Actions []Action `json:"actions"`
}

// EmoteChangesData is an emote catalog delta.
type EmoteChangesData struct {
	Additions map[string]string `json:"additions"`
	Deletions []string          `json:"deletions"`
}

// DirectRoomData answers a direct request.
type DirectRoomData struct {
	Room Room `json:"room"`
}

// ErrorData describes a failed command.
type ErrorData struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
