package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/taskyapp/tasky-backend/internal/chat"
	"github.com/taskyapp/tasky-backend/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	sendTimeout = 10 * time.Second
)

// inboundFrame is what the client may send: a pagination request or a message.
type inboundFrame struct {
	Type string `json:"type"` // "load_more" or "send"
	Text string `json:"text,omitempty"`
}

type snapshotFrame struct {
	Type     string           `json:"type"` // "snapshot"
	Messages []models.Message `json:"messages"`
}

type errorFrame struct {
	Type  string `json:"type"` // "error"
	Error string `json:"error"`
}

// Client is one WebSocket feed session: a connection bound to a thread through
// its own FeedController. Snapshots flow feed -> bridge -> writePump; commands
// flow readPump -> feed.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	feed     *chat.FeedController
	userID   string
	threadID string
	send     chan []byte
	log      zerolog.Logger
	teardown sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, feed *chat.FeedController, userID, threadID string, log zerolog.Logger) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		feed:     feed,
		userID:   userID,
		threadID: threadID,
		send:     make(chan []byte, 8),
		log:      log,
	}
}

// Serve registers the client and runs its pumps. It returns when the
// connection drops or the feed is torn down, with everything cleaned up.
func (c *Client) Serve() {
	c.hub.Register(c)
	go c.writePump()
	go c.bridge()
	c.readPump()
}

// bridge forwards feed snapshots into the send queue, dropping the oldest
// frame when the socket cannot keep up. It owns closing the send channel: the
// channel closes only after the feed is closed and its last window forwarded.
func (c *Client) bridge() {
	defer close(c.send)
	for win := range c.feed.Snapshots() {
		data, err := json.Marshal(snapshotFrame{Type: "snapshot", Messages: win})
		if err != nil {
			c.log.Error().Err(err).Msg("marshal snapshot frame")
			continue
		}
		for {
			select {
			case c.send <- data:
			default:
				select {
				case <-c.send:
				default:
				}
				continue
			}
			break
		}
	}
}

// readPump consumes client frames until the connection errors, then tears the
// session down. The feed is closed before the hub registration is dropped, so
// no snapshot is produced for a session the hub no longer counts.
func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.reply(errorFrame{Type: "error", Error: "malformed frame"})
			continue
		}

		switch frame.Type {
		case "load_more":
			c.feed.LoadMore()
		case "send":
			ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
			_, err := c.feed.Send(ctx, c.userID, frame.Text)
			cancel()
			if err != nil {
				c.reply(errorFrame{Type: "error", Error: sendErrorText(err)})
			}
		default:
			c.reply(errorFrame{Type: "error", Error: "unknown frame type"})
		}
	}
}

// reply queues a frame for the client, dropping it if the queue is full.
func (c *Client) reply(frame errorFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func sendErrorText(err error) string {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return "message is empty"
	case errors.Is(err, chat.ErrBackendUnavailable):
		return "send failed, please retry"
	default:
		return "send failed"
	}
}

// writePump flushes the send queue and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) close() {
	c.teardown.Do(func() {
		c.feed.Close()
		c.hub.Unregister(c)
	})
}
