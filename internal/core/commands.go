package core

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/vovakirdan/wirechat-sync/internal/store"
)

const maxTopicBytes = 256

// Handle runs a command for a connection and pushes the outcome to it.
// Session failures answer with reload, everything else with an error event.
func (h *Hub) Handle(ctx context.Context, connID string, cmd *Command) {
	event, err := h.dispatch(ctx, connID, cmd)
	if err != nil {
		if cause, ok := SessionCauseOf(err); ok {
			h.log.Info().Str("conn_id", connID).Stringer("cause", cause).Msg("command rejected: session invalid")
			event = &Event{Kind: EventReload}
		} else {
			if errors.Is(err, ErrStoreUnavailable) {
				h.log.Error().Err(err).Str("conn_id", connID).Msg("command failed")
			}
			event = &Event{Kind: EventError, RoomID: cmd.RoomID, Error: errorEvent(err)}
		}
	}
	if event == nil {
		return
	}
	if err := h.push(ctx, connID, event); err != nil {
		h.log.Debug().Err(err).Str("conn_id", connID).Msg("push command result")
	}
}

func (h *Hub) dispatch(ctx context.Context, connID string, cmd *Command) (*Event, error) {
	switch cmd.Kind {
	case CommandSendRoomMessage:
		_, err := h.Send(ctx, connID, cmd.RoomID, cmd.Text)
		return nil, err
	case CommandJoinRoom:
		return nil, h.Join(ctx, connID, cmd.RoomID)
	case CommandLeaveRoom:
		return nil, h.Leave(ctx, connID, cmd.RoomID)
	case CommandHistory:
		actions, err := h.History(ctx, connID, cmd.RoomID, cmd.BeforeID)
		if err != nil {
			return nil, err
		}
		return &Event{Kind: EventHistory, RoomID: cmd.RoomID, Actions: actions}, nil
	case CommandRoomList:
		return h.RoomList(ctx, connID)
	case CommandStartDirect:
		room, err := h.StartDirect(ctx, connID, cmd.Target)
		if err != nil {
			return nil, err
		}
		return &Event{Kind: EventDirectRoom, RoomID: room.ID, Room: room}, nil
	case CommandMarkRead:
		return nil, h.MarkRead(ctx, connID, cmd.RoomID, cmd.ActionID)
	case CommandSetTopic:
		return nil, h.SetTopic(ctx, connID, cmd.RoomID, cmd.Text)
	case CommandEmotes:
		catalog, err := h.Emotes(ctx, connID)
		if err != nil {
			return nil, err
		}
		return &Event{Kind: EventEmoteChanges, Emotes: EmoteDelta{Additions: catalog, Deletions: []string{}}}, nil
	default:
		return nil, badRequest(fmt.Sprintf("unknown command %d", cmd.Kind))
	}
}

// authorize validates the connection's session and returns its entry and account.
func (h *Hub) authorize(ctx context.Context, connID string) (Entry, int64, error) {
	entry, ok := h.registry.Lookup(connID)
	if !ok {
		entry = Entry{ID: connID, State: h.registry.Get(connID)}
	}
	accountID, err := h.validate(ctx, entry.State)
	if err != nil {
		return entry, 0, err
	}
	h.settle(entry, accountID)
	return entry, accountID, nil
}

func (h *Hub) requireMember(ctx context.Context, accountID, roomID int64) error {
	ok, err := h.store.IsMember(ctx, accountID, roomID)
	if err != nil {
		return unavailable(err)
	}
	if !ok {
		return ErrDenied
	}
	return nil
}

// prime positions the connection's cursor for roomID at the room's tail
// and asks for a roomlist push on the next tick.
func (h *Hub) prime(ctx context.Context, entry Entry, roomID int64) error {
	cursor, err := h.tail(ctx, roomID)
	if err != nil {
		return err
	}
	h.registry.Update(entry.ID, entry.Gen, func(s *ClientState) {
		if cur, ok := s.Cursors[roomID]; ok {
			if id, valid := cursor.ID(); valid {
				cursor = cur.Advance(id)
			} else {
				cursor = cur
			}
		}
		s.Cursors[roomID] = cursor
		s.NeedsRoomList = true
	})
	return nil
}

// History returns up to HistoryLimit actions of roomID, newest first. The
// latest page (beforeID nil) also resets the room's cursor to the newest
// action it contains, so the poller continues right after it.
func (h *Hub) History(ctx context.Context, connID string, roomID int64, beforeID *int64) ([]*store.Action, error) {
	if roomID <= 0 {
		return nil, badRequest("room id required")
	}
	if beforeID != nil && *beforeID <= 0 {
		return nil, badRequest("invalid before id")
	}

	entry, accountID, err := h.authorize(ctx, connID)
	if err != nil {
		return nil, err
	}
	if err := h.requireMember(ctx, accountID, roomID); err != nil {
		return nil, err
	}

	actions, err := h.store.ListActions(ctx, roomID, h.opts.HistoryLimit, beforeID)
	if err != nil {
		return nil, unavailable(err)
	}

	if beforeID == nil {
		cursor := NoActions()
		if len(actions) > 0 {
			cursor = CursorAt(actions[0].ID)
		}
		h.registry.Update(entry.ID, entry.Gen, func(s *ClientState) {
			s.Cursors[roomID] = cursor
		})
	}
	return actions, nil
}

// Join adds the account to a public room. Joining a room twice is a no-op
// apart from the recorded action.
func (h *Hub) Join(ctx context.Context, connID string, roomID int64) error {
	if roomID <= 0 {
		return badRequest("room id required")
	}

	entry, accountID, err := h.authorize(ctx, connID)
	if err != nil {
		return err
	}

	room, err := h.store.GetRoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrDenied
		}
		return unavailable(err)
	}
	if room.Type != store.RoomTypePublic {
		if err := h.requireMember(ctx, accountID, roomID); err != nil {
			return err
		}
	}

	if _, err := h.store.JoinRoom(ctx, accountID, roomID); err != nil {
		return unavailable(err)
	}
	h.log.Debug().Int64("account_id", accountID).Int64("room_id", roomID).Msg("joined room")
	return h.prime(ctx, entry, roomID)
}

// Leave removes the account from a room.
func (h *Hub) Leave(ctx context.Context, connID string, roomID int64) error {
	if roomID <= 0 {
		return badRequest("room id required")
	}

	entry, accountID, err := h.authorize(ctx, connID)
	if err != nil {
		return err
	}

	if _, err := h.store.LeaveRoom(ctx, accountID, roomID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrDenied
		}
		return unavailable(err)
	}
	h.log.Debug().Int64("account_id", accountID).Int64("room_id", roomID).Msg("left room")
	return h.prime(ctx, entry, roomID)
}

// Send stores a message. Every member, the sender included, receives it
// through the poller.
func (h *Hub) Send(ctx context.Context, connID string, roomID int64, text string) (*store.Action, error) {
	if roomID <= 0 {
		return nil, badRequest("room id required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, badRequest("empty message")
	}
	if len(text) > h.opts.MaxMessageBytes {
		return nil, badRequest("message too long")
	}
	if !utf8.ValidString(text) {
		return nil, badRequest("message is not valid utf-8")
	}

	_, accountID, err := h.authorize(ctx, connID)
	if err != nil {
		return nil, err
	}
	if err := h.requireMember(ctx, accountID, roomID); err != nil {
		return nil, err
	}

	action := &store.Action{
		RoomID:    roomID,
		AccountID: accountID,
		Kind:      store.ActionMessage,
		Body:      text,
	}
	if err := h.store.SaveAction(ctx, action); err != nil {
		return nil, unavailable(err)
	}
	if err := h.store.MarkLastSeen(ctx, accountID, roomID, action.ID); err != nil {
		h.log.Warn().Err(err).Int64("room_id", roomID).Msg("mark own message seen")
	}
	return action, nil
}

// SetTopic changes a room's topic. Members only.
func (h *Hub) SetTopic(ctx context.Context, connID string, roomID int64, topic string) error {
	if roomID <= 0 {
		return badRequest("room id required")
	}
	topic = strings.TrimSpace(topic)
	if len(topic) > maxTopicBytes || !utf8.ValidString(topic) {
		return badRequest("invalid topic")
	}

	_, accountID, err := h.authorize(ctx, connID)
	if err != nil {
		return err
	}
	if err := h.requireMember(ctx, accountID, roomID); err != nil {
		return err
	}
	if _, err := h.store.SetRoomTopic(ctx, accountID, roomID, topic); err != nil {
		return unavailable(err)
	}
	return nil
}

// MarkRead moves the account's last-seen marker in a room. Markers never
// move backwards; other connections of the account see the lower badge on
// their next tick.
func (h *Hub) MarkRead(ctx context.Context, connID string, roomID, actionID int64) error {
	if roomID <= 0 || actionID <= 0 {
		return badRequest("room and action ids required")
	}

	_, accountID, err := h.authorize(ctx, connID)
	if err != nil {
		return err
	}
	if err := h.requireMember(ctx, accountID, roomID); err != nil {
		return err
	}
	if err := h.store.MarkLastSeen(ctx, accountID, roomID, actionID); err != nil {
		return unavailable(err)
	}
	return nil
}

// RoomList returns a fresh roomlist event and records it as pushed.
func (h *Hub) RoomList(ctx context.Context, connID string) (*Event, error) {
	entry, accountID, err := h.authorize(ctx, connID)
	if err != nil {
		return nil, err
	}

	rooms, err := h.store.GetJoinedRooms(ctx, accountID)
	if err != nil {
		return nil, unavailable(err)
	}
	counts, err := h.store.GetBadgeCounts(ctx, accountID)
	if err != nil {
		return nil, unavailable(err)
	}

	joined := make(map[int64]struct{}, len(rooms))
	for _, r := range rooms {
		joined[r.ID] = struct{}{}
	}
	h.registry.Update(entry.ID, entry.Gen, func(s *ClientState) {
		s.Rooms = joined
		s.LastSeen = counts
	})
	return roomListEvent(rooms, counts), nil
}

// Emotes returns the full emote catalog.
func (h *Hub) Emotes(ctx context.Context, connID string) (map[string]string, error) {
	if _, _, err := h.authorize(ctx, connID); err != nil {
		return nil, err
	}
	catalog, err := h.store.GetEmoteCatalog(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	return catalog, nil
}

// StartDirect returns the private room whose occupants are exactly the
// caller and target, creating it if none exists. Both accounts end up as
// members.
func (h *Hub) StartDirect(ctx context.Context, connID string, targetID int64) (*store.Room, error) {
	if targetID <= 0 {
		return nil, badRequest("target account required")
	}

	entry, accountID, err := h.authorize(ctx, connID)
	if err != nil {
		return nil, err
	}
	if targetID == accountID {
		return nil, badRequest("cannot start a direct chat with yourself")
	}

	target, err := h.store.GetAccountByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrDenied
		}
		return nil, unavailable(err)
	}
	if !target.Active() {
		return nil, ErrDenied
	}

	h.directMu.Lock()
	defer h.directMu.Unlock()

	room, err := h.findDirectRoom(ctx, accountID, targetID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		name := fmt.Sprintf("direct:%d:%d", min(accountID, targetID), max(accountID, targetID))
		room, err = h.store.CreateRoom(ctx, name, store.RoomTypePrivate, &accountID)
		if err != nil {
			return nil, unavailable(err)
		}
		h.log.Info().Int64("room_id", room.ID).Int64("account_id", accountID).Int64("target_id", targetID).Msg("direct room created")
	}

	for _, id := range []int64{accountID, targetID} {
		member, err := h.store.IsMember(ctx, id, room.ID)
		if err != nil {
			return nil, unavailable(err)
		}
		if member {
			continue
		}
		if _, err := h.store.JoinRoom(ctx, id, room.ID); err != nil {
			return nil, unavailable(err)
		}
	}

	if err := h.prime(ctx, entry, room.ID); err != nil {
		return nil, err
	}
	return room, nil
}

// findDirectRoom looks for a private room that has only ever held a and b.
func (h *Hub) findDirectRoom(ctx context.Context, a, b int64) (*store.Room, error) {
	rooms, err := h.store.ListOccupiedRooms(ctx, a)
	if err != nil {
		return nil, unavailable(err)
	}
	for _, room := range rooms {
		occupants, err := h.store.ListOccupants(ctx, room.ID)
		if err != nil {
			return nil, unavailable(err)
		}
		if len(occupants) == 2 && slices.Contains(occupants, a) && slices.Contains(occupants, b) {
			return room, nil
		}
	}
	return nil, nil
}
