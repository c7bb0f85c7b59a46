package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// Client is one live transport session for a user. A user may hold many
// clients at once (tabs, devices).
type Client struct {
	ID     string
	UserID string
	Email  string

	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once

	pingInterval  time.Duration
	writeDeadline time.Duration
	log           *zap.SugaredLogger
}

func NewClient(conn *websocket.Conn, id, userID, email string, pingInterval, writeDeadline time.Duration, log *zap.SugaredLogger) *Client {
	return &Client{
		ID:            id,
		UserID:        userID,
		Email:         email,
		conn:          conn,
		send:          make(chan []byte, 256),
		pingInterval:  pingInterval,
		writeDeadline: writeDeadline,
		log:           log,
	}
}

// Send queues an event for delivery. Slow consumers get dropped frames rather
// than blocking the broadcast path.
func (c *Client) Send(event string, payload any) {
	b, err := json.Marshal(outEnvelope{Type: event, Payload: payload})
	if err != nil {
		c.log.Warnw("marshal event", "event", event, "err", err)
		return
	}
	select {
	case c.send <- b:
	default:
		c.log.Debugw("send buffer full, dropping frame", "event", event, "user", c.UserID)
	}
}

// Close stops the write pump. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.send) })
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case b, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(time.Second))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeDeadline))
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}
