package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirechat-sync/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	base := flag.String("base", "http://localhost:8080", "server base URL")
	user := flag.String("user", "tester", "username, registered on first use")
	pass := flag.String("pass", "tester-password", "password")
	room := flag.String("room", "general", "public room name")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	token, err := login(ctx, *base, *user, *pass)
	if err != nil {
		return err
	}
	roomID, err := findOrCreateRoom(ctx, *base, token, *room)
	if err != nil {
		return err
	}

	wsURL, err := url.Parse(*base)
	if err != nil {
		return fmt.Errorf("parse base: %w", err)
	}
	if wsURL.Scheme == "https" {
		wsURL.Scheme = "wss"
	} else {
		wsURL.Scheme = "ws"
	}
	wsURL.Path = "/ws"
	wsURL.RawQuery = url.Values{"token": {token}}.Encode()

	conn, _, err := websocket.Dial(ctx, wsURL.String(), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(typ string, data any) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
			return fmt.Errorf("send %s: %w", typ, err)
		}
		return nil
	}

	if err := send(proto.InboundTypeJoin, proto.RoomData{Room: roomID}); err != nil {
		return err
	}
	if err := send(proto.InboundTypeMsg, proto.MsgData{Room: roomID, Text: *text}); err != nil {
		return err
	}

	for {
		var outbound struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		fmt.Printf("Received outbound: type=%s\n", outbound.Type)

		switch outbound.Type {
		case proto.OutboundTypeError:
			var evt proto.ErrorData
			if err := json.Unmarshal(outbound.Data, &evt); err == nil {
				return fmt.Errorf("server error %s: %s", evt.Code, evt.Error)
			}
		case proto.OutboundTypeReload:
			return fmt.Errorf("session rejected by server")
		case proto.OutboundTypeChatActions:
			var evt proto.ChatActionsData
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				fmt.Printf("Raw data: %s\n", string(outbound.Data))
				return fmt.Errorf("unmarshal chatactions: %w", err)
			}
			for _, a := range evt.Actions {
				fmt.Printf("Action: room=%d id=%d kind=%s user=%d body=%q\n", evt.RoomID, a.ID, a.Kind, a.User, a.Body)
				if a.Kind == "message" && a.Body == *text {
					return nil
				}
			}
		}
	}
}

func login(ctx context.Context, base, user, pass string) (string, error) {
	creds := map[string]string{"username": user, "password": pass}

	var out struct {
		Token string `json:"token"`
	}
	status, err := postJSON(ctx, base+"/api/register", "", creds, &out)
	if err != nil {
		return "", err
	}
	if status == http.StatusConflict {
		status, err = postJSON(ctx, base+"/api/login", "", creds, &out)
		if err != nil {
			return "", err
		}
	}
	if out.Token == "" {
		return "", fmt.Errorf("authenticate %s: status %d", user, status)
	}
	return out.Token, nil
}

func findOrCreateRoom(ctx context.Context, base, token, name string) (int64, error) {
	var created struct {
		ID int64 `json:"id"`
	}
	status, err := postJSON(ctx, base+"/api/rooms", token, map[string]string{"name": name}, &created)
	if err != nil {
		return 0, err
	}
	if status == http.StatusCreated {
		return created.ID, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/api/rooms", nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("list rooms: %w", err)
	}
	defer resp.Body.Close()

	var rooms []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rooms); err != nil {
		return 0, fmt.Errorf("decode rooms: %w", err)
	}
	for _, r := range rooms {
		if r.Name == name {
			return r.ID, nil
		}
	}
	return 0, fmt.Errorf("room %q not found", name)
}

func postJSON(ctx context.Context, target, token string, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s: %w", target, err)
		}
	}
	return resp.StatusCode, nil
}
