package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

const clientBuffer = 32

var (
	// ErrClientClosed is returned when pushing to a disconnected client.
	ErrClientClosed = errors.New("client closed")
	// ErrPushTimeout is returned when a client does not drain its outbox in time.
	ErrPushTimeout = errors.New("push timed out")
	// ErrOutboxFull is returned by Offer when the outbox has no room.
	ErrOutboxFull = errors.New("outbox full")
)

// Sink receives events for one connection. Send may wait for room in the
// outbox; Offer never does.
type Sink interface {
	Send(ctx context.Context, event *Event) error
	Offer(event *Event) error
}

// Client is a buffered outbox for one connection. The transport drains
// Events; the engine pushes through Send.
type Client struct {
	ID      string
	Events  chan *Event
	timeout time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a client. A zero timeout makes Send wait until the
// event is taken, the context ends or the client closes.
func NewClient(id string, timeout time.Duration) *Client {
	return &Client{
		ID:      id,
		Events:  make(chan *Event, clientBuffer),
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// Send queues an event for delivery.
func (c *Client) Send(ctx context.Context, event *Event) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	var expired <-chan time.Time
	if c.timeout > 0 {
		timer := time.NewTimer(c.timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case c.Events <- event:
		return nil
	case <-c.done:
		return ErrClientClosed
	case <-ctx.Done():
		return ctx.Err()
	case <-expired:
		return ErrPushTimeout
	}
}

// Offer queues an event if the outbox has room and fails with
// ErrOutboxFull otherwise.
func (c *Client) Offer(event *Event) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	select {
	case c.Events <- event:
		return nil
	default:
		return ErrOutboxFull
	}
}

// Close stops further sends. Events is left open for the reader.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Done is closed once the client is closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
