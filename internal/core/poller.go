package core

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// Poller runs the sync loop while at least one connection is registered.
// It stops itself after a tick that finds the registry empty, and the
// next Connect starts it again.
type Poller struct {
	hub             *Hub
	interval        time.Duration
	catalogInterval time.Duration
	now             func() time.Time

	mu      sync.Mutex
	running bool
	done    chan struct{}

	// Owned by the loop goroutine.
	catalog   map[string]string
	catalogAt time.Time
}

func newPoller(h *Hub, interval, catalogInterval time.Duration) *Poller {
	return &Poller{
		hub:             h,
		interval:        interval,
		catalogInterval: catalogInterval,
		now:             time.Now,
	}
}

// Start launches the loop unless it is already running. It reports
// whether a new loop was started.
func (p *Poller) Start(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return false
	}
	p.running = true
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
	return true
}

// Running reports whether a loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Wait blocks until the most recently started loop has exited.
func (p *Poller) Wait() {
	p.mu.Lock()
	done := p.done
	p.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if p.tick(ctx) == 0 && p.stopIfIdle() {
			p.hub.log.Debug().Msg("poller stopped: no connections")
			return
		}

		select {
		case <-ctx.Done():
			p.mu.Lock()
			p.running = false
			p.mu.Unlock()
			return
		case <-ticker.C:
		}
	}
}

// stopIfIdle clears the running flag if the registry is still empty.
// Checking under p.mu closes the window where a Register between the
// snapshot and the exit would be left without a poller.
func (p *Poller) stopIfIdle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.hub.registry.Len() > 0 {
		return false
	}
	p.running = false
	p.catalog = nil
	return true
}

// tick runs one pass over every registered connection and returns how
// many there were.
func (p *Poller) tick(ctx context.Context) int {
	entries := p.hub.registry.Snapshot()
	if len(entries) == 0 {
		return 0
	}

	p.syncCatalog(ctx, entries)

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if err := p.reconcile(ctx, entry); err != nil {
			p.hub.log.Warn().Err(err).Str("conn_id", entry.ID).Msg("sync connection")
		}
	}
	return len(entries)
}

// syncCatalog re-reads the emote catalog at most once per catalog
// interval. The first read after start only sets the baseline.
func (p *Poller) syncCatalog(ctx context.Context, entries []Entry) {
	now := p.now()
	if p.catalog != nil && now.Sub(p.catalogAt) < p.catalogInterval {
		return
	}

	catalog, err := p.hub.store.GetEmoteCatalog(ctx)
	if err != nil {
		p.hub.log.Warn().Err(err).Msg("read emote catalog")
		return
	}
	p.catalogAt = now

	if p.catalog == nil {
		p.catalog = catalog
		return
	}

	delta := DiffEmotes(p.catalog, catalog)
	p.catalog = catalog
	if delta.Empty() {
		return
	}

	event := &Event{Kind: EventEmoteChanges, Emotes: delta}
	for _, entry := range entries {
		if err := p.hub.offer(entry, event); err != nil {
			p.hub.log.Debug().Err(err).Str("conn_id", entry.ID).Msg("push emote changes")
		}
	}
}

// reconcile brings one connection up to date.
func (p *Poller) reconcile(ctx context.Context, entry Entry) error {
	h := p.hub

	accountID, err := h.validate(ctx, entry.State)
	if err != nil {
		cause, ok := SessionCauseOf(err)
		if !ok {
			return fmt.Errorf("validate session: %w", err)
		}
		if entry.State.ReloadSent {
			return nil
		}
		h.log.Info().Str("conn_id", entry.ID).Stringer("cause", cause).Msg("session invalidated")
		if err := h.offer(entry, &Event{Kind: EventReload}); err != nil {
			return fmt.Errorf("push reload: %w", err)
		}
		h.registry.Update(entry.ID, entry.Gen, func(s *ClientState) { s.ReloadSent = true })
		return nil
	}
	h.settle(entry, accountID)

	rooms, err := h.store.GetJoinedRooms(ctx, accountID)
	if err != nil {
		return fmt.Errorf("get joined rooms: %w", unavailable(err))
	}
	joined := make(map[int64]struct{}, len(rooms))
	for _, r := range rooms {
		joined[r.ID] = struct{}{}
	}

	for _, roomID := range slices.Sorted(maps.Keys(entry.State.Cursors)) {
		if _, ok := joined[roomID]; !ok {
			continue
		}
		if err := p.pushUpdates(ctx, entry, roomID, entry.State.Cursors[roomID]); err != nil {
			return err
		}
	}

	primed := false
	for _, r := range rooms {
		if _, ok := entry.State.Cursors[r.ID]; ok {
			continue
		}
		cursor, err := h.tail(ctx, r.ID)
		if err != nil {
			return err
		}
		h.registry.Update(entry.ID, entry.Gen, func(s *ClientState) {
			if _, ok := s.Cursors[r.ID]; !ok {
				s.Cursors[r.ID] = cursor
			}
		})
		primed = true
	}

	counts, err := h.store.GetBadgeCounts(ctx, accountID)
	if err != nil {
		return fmt.Errorf("get badge counts: %w", unavailable(err))
	}

	changed := entry.State.NeedsRoomList ||
		primed ||
		entry.State.Rooms == nil ||
		!DiffRooms(entry.State.Rooms, joined).Empty() ||
		BadgeDecreased(entry.State.LastSeen, counts)

	h.registry.Update(entry.ID, entry.Gen, func(s *ClientState) {
		// Only drop cursors this pass saw; a concurrent join may have
		// primed one for a room the joined query predates.
		for id, seen := range entry.State.Cursors {
			if _, ok := joined[id]; ok {
				continue
			}
			if cur, ok := s.Cursors[id]; ok && cur == seen {
				delete(s.Cursors, id)
			}
		}
		s.LastSeen = counts
	})

	if !changed {
		return nil
	}

	err = h.offer(entry, roomListEvent(rooms, counts))
	h.registry.Update(entry.ID, entry.Gen, func(s *ClientState) {
		if err != nil {
			s.NeedsRoomList = true
			return
		}
		s.NeedsRoomList = false
		s.Rooms = joined
	})
	if err != nil {
		return fmt.Errorf("push roomlist: %w", err)
	}
	return nil
}

// pushUpdates sends actions newer than cursor and advances the cursor
// only once the push succeeded.
func (p *Poller) pushUpdates(ctx context.Context, entry Entry, roomID int64, cursor Cursor) error {
	h := p.hub

	actions, err := h.store.GetRoomUpdates(ctx, roomID, cursor.After())
	if err != nil {
		return fmt.Errorf("get room updates: %w", unavailable(err))
	}
	if len(actions) == 0 {
		return nil
	}

	last := actions[len(actions)-1].ID
	if err := h.offer(entry, &Event{Kind: EventChatActions, RoomID: roomID, Actions: actions}); err != nil {
		return fmt.Errorf("push chatactions: %w", err)
	}
	h.registry.Update(entry.ID, entry.Gen, func(s *ClientState) {
		if cur, ok := s.Cursors[roomID]; ok {
			s.Cursors[roomID] = cur.Advance(last)
		}
	})
	return nil
}

// tail returns a cursor at the newest action of a room.
func (h *Hub) tail(ctx context.Context, roomID int64) (Cursor, error) {
	last, err := h.store.GetLastRoomAction(ctx, roomID)
	if err != nil {
		return Cursor{}, fmt.Errorf("get last room action: %w", unavailable(err))
	}
	if last == nil {
		return NoActions(), nil
	}
	return CursorAt(last.ID), nil
}
