package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSendTimesOutWhenFull(t *testing.T) {
	c := NewClient("c1", 20*time.Millisecond)
	ctx := context.Background()

	for range clientBuffer {
		require.NoError(t, c.Send(ctx, &Event{Kind: EventReload}))
	}
	assert.ErrorIs(t, c.Send(ctx, &Event{Kind: EventReload}), ErrPushTimeout)

	<-c.Events
	assert.NoError(t, c.Send(ctx, &Event{Kind: EventReload}))
}

func TestClientOfferNeverWaits(t *testing.T) {
	c := NewClient("c1", time.Hour)

	for range clientBuffer {
		require.NoError(t, c.Offer(&Event{Kind: EventReload}))
	}
	start := time.Now()
	assert.ErrorIs(t, c.Offer(&Event{Kind: EventReload}), ErrOutboxFull)
	assert.Less(t, time.Since(start), time.Second)

	<-c.Events
	assert.NoError(t, c.Offer(&Event{Kind: EventReload}))

	c.Close()
	assert.ErrorIs(t, c.Offer(&Event{Kind: EventReload}), ErrClientClosed)
}

func TestClientSendAfterClose(t *testing.T) {
	c := NewClient("c1", 0)
	c.Close()
	c.Close()

	assert.ErrorIs(t, c.Send(context.Background(), &Event{Kind: EventReload}), ErrClientClosed)
	select {
	case <-c.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestClientSendHonoursContext(t *testing.T) {
	c := NewClient("c1", 0)
	for range clientBuffer {
		require.NoError(t, c.Send(context.Background(), &Event{Kind: EventReload}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Send(ctx, &Event{Kind: EventReload}), context.Canceled)
}

func TestErrorEventHidesDenialDetail(t *testing.T) {
	ev := errorEvent(ErrDenied)
	assert.Equal(t, ErrCodeDenied, ev.Code)
	assert.Equal(t, "request denied", ev.Message)

	ev = errorEvent(badRequest("room id required"))
	assert.Equal(t, ErrCodeBadRequest, ev.Code)
	assert.Contains(t, ev.Message, "room id required")

	ev = errorEvent(unavailable(errInjected))
	assert.Equal(t, ErrCodeUnavailable, ev.Code)
	assert.NotContains(t, ev.Message, "injected")
}
