package core

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-sync/internal/store"
	"github.com/vovakirdan/wirechat-sync/internal/store/sqlite"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// drain returns every event queued on the client without blocking.
func drain(c *Client) []*Event {
	var out []*Event
	for {
		select {
		case ev := <-c.Events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func ofKind(events []*Event, kind EventKind) []*Event {
	var out []*Event
	for _, ev := range events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func actionIDs(events []*Event) []int64 {
	var ids []int64
	for _, ev := range events {
		for _, a := range ev.Actions {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// fakeSessions resolves tokens from an in-memory table.
type fakeSessions struct {
	mu     sync.Mutex
	tokens map[string]int64
	seq    int
	err    error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: make(map[string]int64)}
}

func (f *fakeSessions) ResolveSession(_ context.Context, token string) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return 0, false, f.err
	}
	id, ok := f.tokens[token]
	return id, ok, nil
}

func (f *fakeSessions) issue(accountID int64) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	token := "tok-" + strconv.Itoa(f.seq)
	f.tokens[token] = accountID
	return token
}

func (f *fakeSessions) revoke(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, token)
}

func (f *fakeSessions) rebind(token string, accountID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[token] = accountID
}

// faultyStore fails selected calls and passes the rest through.
type faultyStore struct {
	Store
	mu           sync.Mutex
	failAccounts map[int64]bool
}

var errInjected = errors.New("injected failure")

func (f *faultyStore) failFor(accountID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAccounts[accountID] = true
}

func (f *faultyStore) GetJoinedRooms(ctx context.Context, accountID int64) ([]*store.Room, error) {
	f.mu.Lock()
	fail := f.failAccounts[accountID]
	f.mu.Unlock()
	if fail {
		return nil, errInjected
	}
	return f.Store.GetJoinedRooms(ctx, accountID)
}

// flakySink records events and fails while failing is set.
type flakySink struct {
	mu      sync.Mutex
	failing bool
	events  []*Event
}

func (s *flakySink) Send(_ context.Context, ev *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return ErrPushTimeout
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *flakySink) Offer(ev *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing {
		return ErrOutboxFull
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *flakySink) setFailing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = v
}

func (s *flakySink) take() []*Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.events
	s.events = nil
	return out
}

type testEnv struct {
	t        *testing.T
	ctx      context.Context
	hub      *Hub
	store    *sqlite.SQLiteStore
	sessions *fakeSessions
	tokens   map[string]string
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, nil)
}

// newTestEnvWith builds a hub over an in-memory store. wrap may replace
// the store the hub sees.
func newTestEnvWith(t *testing.T, wrap func(Store) Store) *testEnv {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err, "failed to create store")
	t.Cleanup(func() { _ = st.Close() })

	var hubStore Store = st
	if wrap != nil {
		hubStore = wrap(st)
	}

	sessions := newFakeSessions()
	opts := DefaultOptions()
	opts.HistoryLimit = 10
	return &testEnv{
		t:        t,
		ctx:      context.Background(),
		hub:      NewHub(hubStore, sessions, opts, nil),
		store:    st,
		sessions: sessions,
		tokens:   make(map[string]string),
	}
}

func (e *testEnv) account(name string) int64 {
	e.t.Helper()
	account, err := e.store.CreateAccount(e.ctx, name, "hash")
	require.NoError(e.t, err)
	return account.ID
}

// room creates a public room and joins the given accounts to it.
func (e *testEnv) room(name string, members ...int64) int64 {
	e.t.Helper()
	room, err := e.store.CreateRoom(e.ctx, name, store.RoomTypePublic, nil)
	require.NoError(e.t, err)
	for _, id := range members {
		_, err := e.store.JoinRoom(e.ctx, id, room.ID)
		require.NoError(e.t, err)
	}
	return room.ID
}

func (e *testEnv) post(roomID, accountID int64, body string) int64 {
	e.t.Helper()
	action := &store.Action{RoomID: roomID, AccountID: accountID, Kind: store.ActionMessage, Body: body}
	require.NoError(e.t, e.store.SaveAction(e.ctx, action))
	return action.ID
}

// connect registers connID with a fresh token for accountID.
func (e *testEnv) connect(connID string, accountID int64) *Client {
	e.t.Helper()
	token := e.sessions.issue(accountID)
	e.tokens[connID] = token
	client := NewClient(connID, time.Second)
	e.hub.Connect(e.ctx, connID, token, client)
	return client
}

func (e *testEnv) tick() {
	e.hub.poller.tick(e.ctx)
}

func (e *testEnv) cursor(connID string, roomID int64) (Cursor, bool) {
	c, ok := e.hub.registry.Get(connID).Cursors[roomID]
	return c, ok
}
