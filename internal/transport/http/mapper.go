package http

import (
	"encoding/json"

	"github.com/vovakirdan/wirechat-sync/internal/core"
	"github.com/vovakirdan/wirechat-sync/internal/proto"
	"github.com/vovakirdan/wirechat-sync/internal/store"
)

func invalidMessage(msg string) *proto.ErrorData {
	return &proto.ErrorData{Code: core.ErrCodeInvalidMessage, Error: msg}
}

func decode(data json.RawMessage, v any) *proto.ErrorData {
	if len(data) == 0 {
		return invalidMessage("data is required")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return invalidMessage("malformed data")
	}
	return nil
}

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.ErrorData) {
	switch inbound.Type {
	case proto.InboundTypeRoomList:
		return &core.Command{Kind: core.CommandRoomList}, nil
	case proto.InboundTypeEmotes:
		return &core.Command{Kind: core.CommandEmotes}, nil
	case proto.InboundTypeJoin, proto.InboundTypeLeave:
		var room proto.RoomData
		if protoErr := decode(inbound.Data, &room); protoErr != nil {
			return nil, protoErr
		}
		kind := core.CommandJoinRoom
		if inbound.Type == proto.InboundTypeLeave {
			kind = core.CommandLeaveRoom
		}
		return &core.Command{Kind: kind, RoomID: room.Room}, nil
	case proto.InboundTypeMsg:
		var msg proto.MsgData
		if protoErr := decode(inbound.Data, &msg); protoErr != nil {
			return nil, protoErr
		}
		return &core.Command{Kind: core.CommandSendRoomMessage, RoomID: msg.Room, Text: msg.Text}, nil
	case proto.InboundTypeHistory:
		var history proto.HistoryData
		if protoErr := decode(inbound.Data, &history); protoErr != nil {
			return nil, protoErr
		}
		return &core.Command{Kind: core.CommandHistory, RoomID: history.Room, BeforeID: history.Before}, nil
	case proto.InboundTypeDirect:
		var direct proto.DirectData
		if protoErr := decode(inbound.Data, &direct); protoErr != nil {
			return nil, protoErr
		}
		return &core.Command{Kind: core.CommandStartDirect, Target: direct.User}, nil
	case proto.InboundTypeMarkRead:
		var mark proto.MarkReadData
		if protoErr := decode(inbound.Data, &mark); protoErr != nil {
			return nil, protoErr
		}
		return &core.Command{Kind: core.CommandMarkRead, RoomID: mark.Room, ActionID: mark.Action}, nil
	case proto.InboundTypeTopic:
		var topic proto.TopicData
		if protoErr := decode(inbound.Data, &topic); protoErr != nil {
			return nil, protoErr
		}
		return &core.Command{Kind: core.CommandSetTopic, RoomID: topic.Room, Text: topic.Topic}, nil
	default:
		return nil, invalidMessage("unknown message type")
	}
}

func roomToProto(room *store.Room) proto.Room {
	return proto.Room{
		ID:    room.ID,
		Name:  room.Name,
		Type:  string(room.Type),
		Topic: room.Topic,
	}
}

func actionsToProto(actions []*store.Action) []proto.Action {
	out := make([]proto.Action, 0, len(actions))
	for _, a := range actions {
		out = append(out, proto.Action{
			ID:   a.ID,
			Room: a.RoomID,
			User: a.AccountID,
			Kind: a.Kind.String(),
			Body: a.Body,
			TS:   a.CreatedAt.Unix(),
		})
	}
	return out
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventRoomList:
		rooms := make([]proto.Room, 0, len(event.Rooms))
		counts := make([]proto.RoomCount, 0, len(event.Rooms))
		for _, room := range event.Rooms {
			rooms = append(rooms, roomToProto(room))
			counts = append(counts, proto.RoomCount{RoomID: room.ID, Count: event.Counts[room.ID]})
		}
		return proto.Outbound{
			Type: proto.OutboundTypeRoomList,
			Data: proto.RoomListData{Rooms: rooms, Counts: counts},
		}
	case core.EventChatActions, core.EventHistory:
		return proto.Outbound{
			Type: event.Kind.String(),
			Data: proto.ChatActionsData{RoomID: event.RoomID, Actions: actionsToProto(event.Actions)},
		}
	case core.EventEmoteChanges:
		additions := event.Emotes.Additions
		if additions == nil {
			additions = map[string]string{}
		}
		deletions := event.Emotes.Deletions
		if deletions == nil {
			deletions = []string{}
		}
		return proto.Outbound{
			Type: proto.OutboundTypeEmoteChanges,
			Data: proto.EmoteChangesData{Additions: additions, Deletions: deletions},
		}
	case core.EventReload:
		return proto.Outbound{Type: proto.OutboundTypeReload, Data: struct{}{}}
	case core.EventDirectRoom:
		return proto.Outbound{
			Type: proto.OutboundTypeDirectRoom,
			Data: proto.DirectRoomData{Room: roomToProto(event.Room)},
		}
	case core.EventError:
		if event.Error == nil {
			return errorOutbound(&proto.ErrorData{Code: "unknown", Error: "unknown error"})
		}
		return errorOutbound(&proto.ErrorData{Code: event.Error.Code, Error: event.Error.Message})
	default:
		return errorOutbound(&proto.ErrorData{Code: "unknown", Error: "unknown event"})
	}
}

func errorOutbound(data *proto.ErrorData) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeError, Data: data}
}
