package jellyfin

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// SessionEvent is one upstream playback-session notification.
type SessionEvent struct {
	SessionID     string
	ItemID        string
	ItemName      string
	PositionTicks int64
	IsPaused      bool
}

type wsMessage struct {
	MessageType string          `json:"MessageType"`
	Data        json.RawMessage `json:"Data"`
}

type wsSession struct {
	ID             string `json:"Id"`
	NowPlayingItem *struct {
		ID   string `json:"Id"`
		Name string `json:"Name"`
	} `json:"NowPlayingItem"`
	PlayState *struct {
		PositionTicks int64 `json:"PositionTicks"`
		IsPaused      bool  `json:"IsPaused"`
	} `json:"PlayState"`
}

// SubscribeSessions opens the upstream notification socket and delivers
// playback-session events until ctx is cancelled. The connection is redialed
// with exponential backoff; the channel closes only on cancellation.
func (c *Client) SubscribeSessions(ctx context.Context) <-chan SessionEvent {
	ch := make(chan SessionEvent, 16)
	go c.wsLoop(ctx, ch)
	return ch
}

func (c *Client) wsLoop(ctx context.Context, ch chan<- SessionEvent) {
	defer close(ch)
	backoff := time.Second

	for {
		err := c.wsConnect(ctx, ch)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Printf("jellyfin ws: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
			backoff = min(backoff*2, 30*time.Second)
		}
	}
}

func (c *Client) wsConnect(ctx context.Context, ch chan<- SessionEvent) error {
	cred, err := c.EnsureAuthenticated(ctx)
	if err != nil {
		return err
	}

	wsURL := strings.Replace(c.baseURL, "https://", "wss://", 1)
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL += "/socket?api_key=" + cred.Token + "&deviceId=" + c.deviceID

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, http.Header{})
	if err != nil {
		return err
	}
	defer conn.Close()

	// Ask the server to push session state instead of requiring polls.
	if err := conn.WriteJSON(map[string]string{
		"MessageType": "SessionsStart",
		"Data":        "0,1500",
	}); err != nil {
		return err
	}

	// Ping goroutine
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.WriteControl(
					websocket.PingMessage, nil,
					time.Now().Add(5*time.Second),
				); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		events := parseWSMessage(msg)
		for _, e := range events {
			select {
			case ch <- e:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func parseWSMessage(data []byte) []SessionEvent {
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil
	}
	if msg.MessageType != "Sessions" {
		return nil
	}
	var sessions []wsSession
	if err := json.Unmarshal(msg.Data, &sessions); err != nil {
		return nil
	}
	events := make([]SessionEvent, 0, len(sessions))
	for _, s := range sessions {
		if s.NowPlayingItem == nil {
			continue
		}
		e := SessionEvent{
			SessionID: s.ID,
			ItemID:    s.NowPlayingItem.ID,
			ItemName:  s.NowPlayingItem.Name,
		}
		if s.PlayState != nil {
			e.PositionTicks = s.PlayState.PositionTicks
			e.IsPaused = s.PlayState.IsPaused
		}
		events = append(events, e)
	}
	return events
}
