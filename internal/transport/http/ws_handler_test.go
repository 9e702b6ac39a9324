package http

import (
	"context"
	"net/http"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-sync/internal/config"
	"github.com/vovakirdan/wirechat-sync/internal/core"
	"github.com/vovakirdan/wirechat-sync/internal/proto"
	"github.com/vovakirdan/wirechat-sync/internal/store"
)

func hasRoom(id int64) func(proto.RoomListData) bool {
	return func(data proto.RoomListData) bool {
		return slices.ContainsFunc(data.Rooms, func(r proto.Room) bool { return r.ID == id })
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := startTestServer(t, nil)

	resp, err := srv.ts.Client().Get(srv.ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebSocketMessageFlow(t *testing.T) {
	srv := startTestServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	aliceToken := srv.register(t, "alice")
	bobToken := srv.register(t, "bob")

	aliceID, _, err := srv.auth.ResolveSession(ctx, aliceToken)
	require.NoError(t, err)
	room, err := srv.store.CreateRoom(ctx, "general", store.RoomTypePublic, &aliceID)
	require.NoError(t, err)
	_, err = srv.store.JoinRoom(ctx, aliceID, room.ID)
	require.NoError(t, err)

	alice := srv.dial(ctx, t, aliceToken)
	bob := srv.dial(ctx, t, bobToken)

	readUntil(ctx, t, alice, proto.OutboundTypeRoomList, hasRoom(room.ID))
	readUntil[proto.RoomListData](ctx, t, bob, proto.OutboundTypeRoomList, nil)

	send(ctx, t, bob, proto.InboundTypeJoin, proto.RoomData{Room: room.ID})
	readUntil(ctx, t, bob, proto.OutboundTypeRoomList, hasRoom(room.ID))

	send(ctx, t, bob, proto.InboundTypeMsg, proto.MsgData{Room: room.ID, Text: "hi there"})

	got := readUntil(ctx, t, alice, proto.OutboundTypeChatActions, func(data proto.ChatActionsData) bool {
		return slices.ContainsFunc(data.Actions, func(a proto.Action) bool { return a.Kind == "message" })
	})
	assert.Equal(t, room.ID, got.RoomID)
	last := got.Actions[len(got.Actions)-1]
	assert.Equal(t, "hi there", last.Body)
	assert.Equal(t, "message", last.Kind)

	// the sender sees its own message through the same path
	own := readUntil(ctx, t, bob, proto.OutboundTypeChatActions, func(data proto.ChatActionsData) bool {
		return slices.ContainsFunc(data.Actions, func(a proto.Action) bool { return a.Body == "hi there" })
	})
	assert.Equal(t, room.ID, own.RoomID)

	send(ctx, t, alice, proto.InboundTypeHistory, proto.HistoryData{Room: room.ID})
	history := readUntil[proto.ChatActionsData](ctx, t, alice, proto.OutboundTypeHistory, nil)
	require.NotEmpty(t, history.Actions)
	assert.Equal(t, "hi there", history.Actions[0].Body, "history is newest first")
}

func TestWebSocketAnonymousGetsReload(t *testing.T) {
	srv := startTestServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := srv.dial(ctx, t, "")
	readUntil[struct{}](ctx, t, conn, proto.OutboundTypeReload, nil)

	// hello with a valid token brings the connection back
	token := srv.register(t, "alice")
	send(ctx, t, conn, proto.InboundTypeHello, proto.HelloData{Token: token, Protocol: proto.ProtocolVersion})
	readUntil[proto.RoomListData](ctx, t, conn, proto.OutboundTypeRoomList, nil)
}

func TestWebSocketLogoutTriggersReload(t *testing.T) {
	srv := startTestServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token := srv.register(t, "alice")
	conn := srv.dial(ctx, t, token)
	readUntil[proto.RoomListData](ctx, t, conn, proto.OutboundTypeRoomList, nil)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.ts.URL+"/api/logout", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	readUntil[struct{}](ctx, t, conn, proto.OutboundTypeReload, nil)
}

func TestWebSocketDirectRoom(t *testing.T) {
	srv := startTestServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	aliceToken := srv.register(t, "alice")
	bobToken := srv.register(t, "bob")
	bobID, _, err := srv.auth.ResolveSession(ctx, bobToken)
	require.NoError(t, err)

	alice := srv.dial(ctx, t, aliceToken)
	send(ctx, t, alice, proto.InboundTypeDirect, proto.DirectData{User: bobID})
	direct := readUntil[proto.DirectRoomData](ctx, t, alice, proto.OutboundTypeDirectRoom, nil)
	assert.Equal(t, string(store.RoomTypePrivate), direct.Room.Type)

	send(ctx, t, alice, proto.InboundTypeDirect, proto.DirectData{User: bobID})
	again := readUntil[proto.DirectRoomData](ctx, t, alice, proto.OutboundTypeDirectRoom, nil)
	assert.Equal(t, direct.Room.ID, again.Room.ID)
}

func TestWebSocketInvalidMessage(t *testing.T) {
	srv := startTestServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := srv.dial(ctx, t, srv.register(t, "alice"))

	send(ctx, t, conn, "bogus", nil)
	errData := readUntil[proto.ErrorData](ctx, t, conn, proto.OutboundTypeError, nil)
	assert.Equal(t, core.ErrCodeInvalidMessage, errData.Code)

	send(ctx, t, conn, proto.InboundTypeJoin, nil)
	errData = readUntil[proto.ErrorData](ctx, t, conn, proto.OutboundTypeError, nil)
	assert.Equal(t, core.ErrCodeInvalidMessage, errData.Code)

	send(ctx, t, conn, proto.InboundTypeJoin, proto.RoomData{Room: 999})
	errData = readUntil[proto.ErrorData](ctx, t, conn, proto.OutboundTypeError, nil)
	assert.Equal(t, core.ErrCodeDenied, errData.Code)
}

func TestProtocolVersionMismatch(t *testing.T) {
	srv := startTestServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := srv.dial(ctx, t, "")
	send(ctx, t, conn, proto.InboundTypeHello, proto.HelloData{Protocol: proto.ProtocolVersion + 1})

	errData := readUntil[proto.ErrorData](ctx, t, conn, proto.OutboundTypeError, nil)
	assert.Equal(t, core.ErrCodeUnsupportedVersion, errData.Code)
}

func TestWebSocketRateLimit(t *testing.T) {
	srv := startTestServer(t, func(cfg *config.Config) { cfg.RateLimitPerMinute = 2 })
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := srv.dial(ctx, t, srv.register(t, "alice"))
	for range 3 {
		send(ctx, t, conn, "bogus", nil)
	}

	var codes []string
	for range 3 {
		errData := readUntil[proto.ErrorData](ctx, t, conn, proto.OutboundTypeError, nil)
		codes = append(codes, errData.Code)
	}
	assert.Equal(t, []string{core.ErrCodeInvalidMessage, core.ErrCodeInvalidMessage, core.ErrCodeRateLimited}, codes)
}
