package core

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options tunes the engine.
type Options struct {
	PollInterval    time.Duration
	CatalogInterval time.Duration
	HistoryLimit    int
	MaxMessageBytes int
}

// DefaultOptions returns the production cadence.
func DefaultOptions() Options {
	return Options{
		PollInterval:    250 * time.Millisecond,
		CatalogInterval: 5 * time.Second,
		HistoryLimit:    50,
		MaxMessageBytes: 4096,
	}
}

// Hub owns the connection registry and the poller, and serves commands.
type Hub struct {
	store    Store
	sessions SessionResolver
	registry *Registry
	poller   *Poller
	opts     Options
	log      *zerolog.Logger

	// serializes direct room lookup-or-create
	directMu sync.Mutex

	mu     sync.Mutex
	runCtx context.Context
}

// NewHub creates a new chat hub instance.
func NewHub(st Store, sessions SessionResolver, opts Options, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	defaults := DefaultOptions()
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaults.PollInterval
	}
	if opts.CatalogInterval <= 0 {
		opts.CatalogInterval = defaults.CatalogInterval
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaults.HistoryLimit
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = defaults.MaxMessageBytes
	}

	h := &Hub{
		store:    st,
		sessions: sessions,
		registry: NewRegistry(),
		opts:     opts,
		log:      logger,
	}
	h.poller = newPoller(h, opts.PollInterval, opts.CatalogInterval)
	return h
}

// Registry exposes the connection registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Run enables the poller and blocks until ctx is done and the poller has exited.
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	h.runCtx = ctx
	h.mu.Unlock()

	if h.registry.Len() > 0 {
		h.startPoller()
	}

	<-ctx.Done()
	h.poller.Wait()
	h.log.Info().Msg("hub stopped")
}

// Connect registers a connection with the token it presented, which may be empty.
func (h *Hub) Connect(ctx context.Context, connID, token string, sink Sink) {
	accountID := h.resolve(ctx, connID, token)
	_, wasEmpty := h.registry.Register(connID, token, accountID, sink)
	h.log.Debug().Str("conn_id", connID).Bool("authenticated", accountID != nil).Msg("client connected")
	if wasEmpty {
		h.startPoller()
	}
}

// Authenticate replaces the token of a live connection. All cursors are
// dropped; the next tick primes them again for the new identity.
func (h *Hub) Authenticate(ctx context.Context, connID, token string) {
	accountID := h.resolve(ctx, connID, token)
	_, wasEmpty := h.registry.Register(connID, token, accountID, nil)
	if wasEmpty {
		h.startPoller()
	}
}

// Disconnect removes the connection. The poller notices on its own.
func (h *Hub) Disconnect(connID string) {
	if h.registry.Unregister(connID) {
		h.log.Debug().Str("conn_id", connID).Msg("client disconnected")
	}
}

func (h *Hub) resolve(ctx context.Context, connID, token string) *int64 {
	if token == "" {
		return nil
	}
	id, ok, err := h.sessions.ResolveSession(ctx, token)
	if err != nil {
		h.log.Warn().Err(err).Str("conn_id", connID).Msg("resolve session")
		return nil
	}
	if !ok {
		return nil
	}
	return &id
}

func (h *Hub) startPoller() {
	h.mu.Lock()
	ctx := h.runCtx
	h.mu.Unlock()
	if ctx == nil {
		// Run starts it.
		return
	}
	if h.poller.Start(ctx) {
		h.log.Debug().Msg("poller started")
	}
}

// offer hands a poller event to the connection without waiting, so a
// stalled client never holds up the rest of the pass.
func (h *Hub) offer(entry Entry, event *Event) error {
	if entry.Sink == nil {
		return ErrClientClosed
	}
	return entry.Sink.Offer(event)
}

// push delivers a command result, waiting up to the client's push timeout.
func (h *Hub) push(ctx context.Context, connID string, event *Event) error {
	entry, ok := h.registry.Lookup(connID)
	if !ok || entry.Sink == nil {
		return ErrClientClosed
	}
	return entry.Sink.Send(ctx, event)
}
