package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-sync/internal/config"
	"github.com/vovakirdan/wirechat-sync/internal/core"
	"github.com/vovakirdan/wirechat-sync/internal/proto"
)

// envelopeOverhead leaves room for the JSON around a maximal message.
const envelopeOverhead = 1024

// WSHandler upgrades HTTP connections and bridges them to the hub.
type WSHandler struct {
	hub *core.Hub
	cfg *config.Config
	log *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *core.Hub, cfg *config.Config, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, cfg: cfg, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()

	// escaped JSON can be several times the text it carries
	conn.SetReadLimit(int64(6*h.cfg.MaxMessageBytes + envelopeOverhead))

	token := r.URL.Query().Get("token")
	if t, ok := bearerToken(r.Header.Get("Authorization")); ok {
		token = t
	}

	client := core.NewClient(uuid.NewString(), h.cfg.PushTimeout)
	h.hub.Connect(ctx, client.ID, token, client)
	defer func() {
		h.hub.Disconnect(client.ID)
		client.Close()
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = "internal error"
			h.log.Warn().Err(err).Str("conn_id", client.ID).Msg("ws connection closed with error")
		}
	}

	_ = conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	limiter := newRateLimiter(h.cfg.RateLimitPerMinute)

	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			h.log.Debug().Err(err).Str("conn_id", client.ID).Msg("read ws inbound")
			return err
		}

		if !limiter.allow() {
			if err := h.writeError(ctx, conn, &proto.ErrorData{Code: core.ErrCodeRateLimited, Error: "too many messages"}); err != nil {
				return err
			}
			continue
		}

		if inbound.Type == proto.InboundTypeHello {
			if err := h.hello(ctx, conn, client, inbound); err != nil {
				return err
			}
			continue
		}

		cmd, protoErr := inboundToCommand(inbound)
		if protoErr != nil {
			if err := h.writeError(ctx, conn, protoErr); err != nil {
				return err
			}
			continue
		}
		h.hub.Handle(ctx, client.ID, cmd)
	}
}

// hello re-authenticates the connection with a new token.
func (h *WSHandler) hello(ctx context.Context, conn *websocket.Conn, client *core.Client, inbound proto.Inbound) error {
	var hello proto.HelloData
	if protoErr := decode(inbound.Data, &hello); protoErr != nil {
		return h.writeError(ctx, conn, protoErr)
	}
	if hello.Protocol != 0 && hello.Protocol != proto.ProtocolVersion {
		h.log.Debug().Int("protocol", hello.Protocol).Str("conn_id", client.ID).Msg("unsupported protocol version")
		return h.writeError(ctx, conn, &proto.ErrorData{Code: core.ErrCodeUnsupportedVersion, Error: "unsupported protocol version"})
	}
	h.hub.Authenticate(ctx, client.ID, hello.Token)
	return nil
}

func (h *WSHandler) writeError(ctx context.Context, conn *websocket.Conn, data *proto.ErrorData) error {
	return wsjson.Write(ctx, conn, errorOutbound(data))
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event := <-client.Events:
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Debug().Err(err).Str("conn_id", client.ID).Msg("write ws event")
				return err
			}
		case <-client.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
