package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Options struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

func DefaultOptions() Options {
	return Options{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		MaxMessageSize: 8192,
		SendBuffer:     256,
	}
}

type Client struct {
	ID          string
	TokenUserID primitive.ObjectID
	Role        string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	opts Options

	mu        sync.Mutex
	userID    primitive.ObjectID
	bound     bool
	closeOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, connID string, tokenUserID primitive.ObjectID, role string, opts Options) *Client {
	return &Client{
		ID:          connID,
		TokenUserID: tokenUserID,
		Role:        role,
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, opts.SendBuffer),
		opts:        opts,
	}
}

// trySend must be called with the hub lock held.
func (c *Client) trySend(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend must be called with the hub write lock held.
func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

func (c *Client) boundUser() (primitive.ObjectID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID, c.bound
}

func (c *Client) setBoundUser(userID primitive.ObjectID) {
	c.mu.Lock()
	c.userID = userID
	c.bound = true
	c.mu.Unlock()
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.queueUnregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.WithError(err).WithField("conn_id", c.ID).Warn("Websocket read error")
			}
			return
		}

		c.handleMessage(ctx, message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(ctx context.Context, raw []byte) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.hub.sendToClient(c, EventError, errorPayload{Message: "malformed message"})
		return
	}

	if msg.Type == EventAuthenticate {
		c.authenticate(msg.Data)
		return
	}

	userID, bound := c.boundUser()
	if !bound {
		c.hub.sendToClient(c, EventError, errorPayload{Event: msg.Type, Message: "authenticate first"})
		return
	}
	if c.hub.handler == nil {
		return
	}

	if err := c.hub.handler.HandleClientEvent(ctx, userID, msg.Type, msg.Data); err != nil {
		c.hub.sendToClient(c, EventError, errorPayload{Event: msg.Type, Message: err.Error()})
	}
}

// authenticate binds the connection to the user named in the payload, which
// must match the identity proven at upgrade time.
func (c *Client) authenticate(data []byte) {
	var payload authenticatePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		c.hub.sendToClient(c, EventError, errorPayload{Event: EventAuthenticate, Message: "malformed payload"})
		return
	}

	userID, err := primitive.ObjectIDFromHex(payload.UserID)
	if err != nil || userID != c.TokenUserID {
		c.hub.sendToClient(c, EventError, errorPayload{Event: EventAuthenticate, Message: "user does not match token"})
		return
	}

	c.hub.Bind(c, userID)
	c.hub.sendToClient(c, EventAuthenticated, authenticatePayload{UserID: userID.Hex()})
}
