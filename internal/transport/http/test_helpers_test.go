package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-sync/internal/auth"
	"github.com/vovakirdan/wirechat-sync/internal/config"
	"github.com/vovakirdan/wirechat-sync/internal/core"
	"github.com/vovakirdan/wirechat-sync/internal/proto"
	"github.com/vovakirdan/wirechat-sync/internal/store/sqlite"
)

type testServer struct {
	ts    *httptest.Server
	hub   *core.Hub
	auth  *auth.Service
	store *sqlite.SQLiteStore
}

func startTestServer(t *testing.T, mutate func(*config.Config)) *testServer {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err, "failed to create test store")

	cfg := config.Default()
	cfg.PollInterval = 20 * time.Millisecond
	cfg.PushTimeout = time.Second
	if mutate != nil {
		mutate(&cfg)
	}

	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	})

	logger := zerolog.Nop()
	hub := core.NewHub(st, authService, core.Options{
		PollInterval:    cfg.PollInterval,
		CatalogInterval: cfg.CatalogInterval,
		HistoryLimit:    cfg.HistoryLimit,
		MaxMessageBytes: cfg.MaxMessageBytes,
	}, &logger)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	server := NewServer(hub, authService, st, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)

	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-stopped
		_ = st.Close()
	})

	return &testServer{ts: ts, hub: hub, auth: authService, store: st}
}

func (s *testServer) register(t *testing.T, username string) string {
	t.Helper()
	token, err := s.auth.Register(context.Background(), username, "password123")
	require.NoError(t, err)
	return token
}

func (s *testServer) dial(ctx context.Context, t *testing.T, token string) *websocket.Conn {
	t.Helper()

	url := strings.Replace(s.ts.URL, "http", "ws", 1) + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err, "dial")
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

type rawOutbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func send(ctx context.Context, t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	var raw json.RawMessage
	if data != nil {
		payload, err := json.Marshal(data)
		require.NoError(t, err)
		raw = payload
	}
	require.NoError(t, wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: raw}))
}

// readUntil reads frames until one of type typ satisfies match, and
// decodes its data into out.
func readUntil[T any](ctx context.Context, t *testing.T, conn *websocket.Conn, typ string, match func(T) bool) T {
	t.Helper()

	for {
		var frame rawOutbound
		require.NoError(t, wsjson.Read(ctx, conn, &frame), "waiting for %s", typ)
		if frame.Type != typ {
			continue
		}
		var data T
		require.NoError(t, json.Unmarshal(frame.Data, &data))
		if match == nil || match(data) {
			return data
		}
	}
}
