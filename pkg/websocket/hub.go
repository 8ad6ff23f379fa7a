package websocket

import (
	"context"
	"sync"

	"rescuelink/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PresenceListener mirrors bind and unbind transitions into durable storage.
// Calls arrive in order on a single goroutine.
type PresenceListener interface {
	OnBind(ctx context.Context, userID primitive.ObjectID, connID string)
	OnUnbind(ctx context.Context, userID primitive.ObjectID, connID string)
}

// EventHandler receives client events other than authenticate from bound
// connections. A returned error is reported back to the sender only.
type EventHandler interface {
	HandleClientEvent(ctx context.Context, userID primitive.ObjectID, eventType string, data []byte) error
}

type presenceEvent struct {
	bound  bool
	userID primitive.ObjectID
	connID string
}

type Hub struct {
	clients    map[*Client]struct{}
	presence   map[primitive.ObjectID]*Client
	register   chan *Client
	unregister chan *Client
	events     chan presenceEvent
	done       chan struct{}
	stopOnce   sync.Once
	mutex      sync.RWMutex

	listener PresenceListener
	handler  EventHandler
	logger   *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		presence:   make(map[primitive.ObjectID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client, 64),
		events:     make(chan presenceEvent, 1024),
		done:       make(chan struct{}),
		logger:     log,
	}
}

// SetPresenceListener must be called before Run.
func (h *Hub) SetPresenceListener(l PresenceListener) {
	h.listener = l
}

// SetEventHandler must be called before Run.
func (h *Hub) SetEventHandler(eh EventHandler) {
	h.handler = eh
}

// Run owns connection registration until ctx is cancelled, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	go h.dispatchPresenceEvents(ctx)

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case <-ctx.Done():
			h.stopOnce.Do(func() { close(h.done) })
			h.closeAll()
			return
		}
	}
}

// Register hands client to the run loop. It reports false when the hub has
// stopped or ctx ends first; the caller then owns the connection.
func (h *Hub) Register(ctx context.Context, client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (h *Hub) dispatchPresenceEvents(ctx context.Context) {
	for {
		select {
		case ev := <-h.events:
			if h.listener == nil {
				continue
			}
			if ev.bound {
				h.listener.OnBind(ctx, ev.userID, ev.connID)
			} else {
				h.listener.OnUnbind(ctx, ev.userID, ev.connID)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = struct{}{}
	h.logger.WithFields(map[string]interface{}{
		"conn_id": client.ID,
		"user_id": client.TokenUserID.Hex(),
	}).Debug("Websocket client registered")
}

// removeClient drops the connection and clears its presence binding if it
// still owns it. Safe to call more than once.
func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client)
	client.closeSend()

	userID, bound := client.boundUser()
	unbound := bound && h.presence[userID] == client
	if unbound {
		delete(h.presence, userID)
	}
	h.mutex.Unlock()

	if unbound {
		h.emitPresence(presenceEvent{bound: false, userID: userID, connID: client.ID})
	}
	h.logger.WithField("conn_id", client.ID).Debug("Websocket client unregistered")
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mutex.Unlock()

	for _, c := range clients {
		h.removeClient(c)
	}
}

// Bind makes client the live handle for userID, replacing any previous one.
func (h *Hub) Bind(client *Client, userID primitive.ObjectID) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return
	}
	if prevUser, ok := client.boundUser(); ok && prevUser != userID && h.presence[prevUser] == client {
		delete(h.presence, prevUser)
	}
	h.presence[userID] = client
	client.setBoundUser(userID)
	h.mutex.Unlock()

	h.emitPresence(presenceEvent{bound: true, userID: userID, connID: client.ID})
}

func (h *Hub) emitPresence(ev presenceEvent) {
	select {
	case h.events <- ev:
	default:
		h.logger.WithField("user_id", ev.userID.Hex()).Warn("Presence event queue full, dropping socket id update")
	}
}

// IsOnline reports whether userID has a bound live connection.
func (h *Hub) IsOnline(userID primitive.ObjectID) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	_, ok := h.presence[userID]
	return ok
}

// SendToUser pushes one event to the user's bound connection. It never blocks:
// offline users and full buffers report false, and a full buffer evicts the client.
func (h *Hub) SendToUser(userID primitive.ObjectID, eventType string, payload interface{}) bool {
	data, err := encode(eventType, payload)
	if err != nil {
		h.logger.WithError(err).WithField("event", eventType).Error("Failed to encode websocket event")
		return false
	}

	h.mutex.RLock()
	client, ok := h.presence[userID]
	delivered := ok && client.trySend(data)
	h.mutex.RUnlock()

	if ok && !delivered {
		h.evict(client)
	}
	return delivered
}

// Broadcast pushes an event to every open connection, bound or not.
func (h *Hub) Broadcast(eventType string, payload interface{}) int {
	data, err := encode(eventType, payload)
	if err != nil {
		h.logger.WithError(err).WithField("event", eventType).Error("Failed to encode websocket event")
		return 0
	}

	var slow []*Client
	delivered := 0

	h.mutex.RLock()
	for client := range h.clients {
		if client.trySend(data) {
			delivered++
		} else {
			slow = append(slow, client)
		}
	}
	h.mutex.RUnlock()

	for _, c := range slow {
		h.evict(c)
	}
	return delivered
}

func (h *Hub) sendToClient(client *Client, eventType string, payload interface{}) {
	data, err := encode(eventType, payload)
	if err != nil {
		return
	}

	h.mutex.RLock()
	_, ok := h.clients[client]
	delivered := ok && client.trySend(data)
	h.mutex.RUnlock()

	if ok && !delivered {
		h.evict(client)
	}
}

func (h *Hub) evict(client *Client) {
	h.logger.WithField("conn_id", client.ID).Warn("Websocket client too slow, dropping connection")
	h.queueUnregister(client)
}

func (h *Hub) queueUnregister(client *Client) {
	select {
	case h.unregister <- client:
	default:
		h.removeClient(client)
	}
}

func (h *Hub) ConnectionCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) OnlineUserCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.presence)
}
