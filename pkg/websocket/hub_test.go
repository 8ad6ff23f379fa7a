package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"rescuelink/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type recordingListener struct {
	mu     sync.Mutex
	binds  []string
	unbind []string
}

func (l *recordingListener) OnBind(_ context.Context, _ primitive.ObjectID, connID string) {
	l.mu.Lock()
	l.binds = append(l.binds, connID)
	l.mu.Unlock()
}

func (l *recordingListener) OnUnbind(_ context.Context, _ primitive.ObjectID, connID string) {
	l.mu.Lock()
	l.unbind = append(l.unbind, connID)
	l.mu.Unlock()
}

func testClient(h *Hub, connID string, userID primitive.ObjectID, buffer int) *Client {
	opts := DefaultOptions()
	opts.SendBuffer = buffer
	c := newClient(h, nil, connID, userID, "volunteer", opts)
	h.registerClient(c)
	return c
}

func decodeFrame(t *testing.T, frame []byte) Message {
	t.Helper()
	var msg Message
	require.NoError(t, json.Unmarshal(frame, &msg))
	return msg
}

func TestBindAndSendToUser(t *testing.T) {
	h := NewHub(logger.NewNop())
	userID := primitive.NewObjectID()
	c := testClient(h, "c1", userID, 4)

	assert.False(t, h.IsOnline(userID))
	assert.False(t, h.SendToUser(userID, EventSOSAlert, map[string]string{"x": "y"}))

	h.Bind(c, userID)
	assert.True(t, h.IsOnline(userID))
	assert.True(t, h.SendToUser(userID, EventSOSAlert, map[string]string{"x": "y"}))

	msg := decodeFrame(t, <-c.send)
	assert.Equal(t, EventSOSAlert, msg.Type)
	assert.JSONEq(t, `{"x":"y"}`, string(msg.Data))
}

func TestNewerConnectionWinsAndStaleDisconnectKeepsBinding(t *testing.T) {
	h := NewHub(logger.NewNop())
	userID := primitive.NewObjectID()
	first := testClient(h, "c1", userID, 4)
	second := testClient(h, "c2", userID, 4)

	h.Bind(first, userID)
	h.Bind(second, userID)

	h.removeClient(first)
	assert.True(t, h.IsOnline(userID))

	require.True(t, h.SendToUser(userID, EventReminder, struct{}{}))
	assert.Len(t, second.send, 1)

	h.removeClient(second)
	assert.False(t, h.IsOnline(userID))
	assert.Equal(t, 0, h.ConnectionCount())
}

func TestFullBufferEvictsClient(t *testing.T) {
	h := NewHub(logger.NewNop())
	userID := primitive.NewObjectID()
	c := testClient(h, "c1", userID, 1)
	h.Bind(c, userID)

	assert.True(t, h.SendToUser(userID, EventNewMessage, "one"))
	assert.False(t, h.SendToUser(userID, EventNewMessage, "two"))

	// evict queues the removal for Run; drain it the way Run would.
	h.removeClient(<-h.unregister)
	assert.False(t, h.IsOnline(userID))
	assert.False(t, h.SendToUser(userID, EventNewMessage, "three"))
}

func TestBroadcastReachesUnboundClients(t *testing.T) {
	h := NewHub(logger.NewNop())
	a := testClient(h, "a", primitive.NewObjectID(), 2)
	b := testClient(h, "b", primitive.NewObjectID(), 2)

	assert.Equal(t, 2, h.Broadcast(EventNewSOS, map[string]int{"n": 1}))
	assert.Equal(t, EventNewSOS, decodeFrame(t, <-a.send).Type)
	assert.Equal(t, EventNewSOS, decodeFrame(t, <-b.send).Type)
}

func TestAuthenticateRequiresTokenIdentity(t *testing.T) {
	h := NewHub(logger.NewNop())
	userID := primitive.NewObjectID()
	c := testClient(h, "c1", userID, 4)

	c.handleMessage(context.Background(), []byte(`{"type":"authenticate","data":{"userId":"`+primitive.NewObjectID().Hex()+`"}}`))
	assert.False(t, h.IsOnline(userID))
	assert.Equal(t, EventError, decodeFrame(t, <-c.send).Type)

	c.handleMessage(context.Background(), []byte(`{"type":"authenticate","data":{"userId":"`+userID.Hex()+`"}}`))
	assert.True(t, h.IsOnline(userID))
	assert.Equal(t, EventAuthenticated, decodeFrame(t, <-c.send).Type)
}

type recordingHandler struct {
	userID    primitive.ObjectID
	eventType string
}

func (r *recordingHandler) HandleClientEvent(_ context.Context, userID primitive.ObjectID, eventType string, _ []byte) error {
	r.userID = userID
	r.eventType = eventType
	return nil
}

func TestClientEventsRequireBinding(t *testing.T) {
	h := NewHub(logger.NewNop())
	rh := &recordingHandler{}
	h.SetEventHandler(rh)
	userID := primitive.NewObjectID()
	c := testClient(h, "c1", userID, 4)

	c.handleMessage(context.Background(), []byte(`{"type":"messageRead","data":{}}`))
	assert.Equal(t, "", rh.eventType)
	assert.Equal(t, EventError, decodeFrame(t, <-c.send).Type)

	h.Bind(c, userID)
	c.handleMessage(context.Background(), []byte(`{"type":"messageRead","data":{}}`))
	assert.Equal(t, EventMessageRead, rh.eventType)
	assert.Equal(t, userID, rh.userID)
}

func TestPresenceEventsReachListenerInOrder(t *testing.T) {
	h := NewHub(logger.NewNop())
	l := &recordingListener{}
	h.SetPresenceListener(l)
	userID := primitive.NewObjectID()
	c := testClient(h, "c1", userID, 4)

	h.Bind(c, userID)
	h.removeClient(c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.dispatchPresenceEvents(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.binds) == 1 && len(l.unbind) == 1
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestRegisterAfterHubStops(t *testing.T) {
	h := NewHub(logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(stopped)
	}()

	live := newClient(h, nil, "live", primitive.NewObjectID(), "user", DefaultOptions())
	require.True(t, h.Register(context.Background(), live))

	cancel()
	<-stopped
	assert.Equal(t, 0, h.ConnectionCount())

	late := newClient(h, nil, "late", primitive.NewObjectID(), "user", DefaultOptions())
	done := make(chan bool, 1)
	go func() { done <- h.Register(context.Background(), late) }()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("register blocked on a stopped hub")
	}
}

func TestRegisterHonoursCallerContext(t *testing.T) {
	h := NewHub(logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newClient(h, nil, "c1", primitive.NewObjectID(), "user", DefaultOptions())
	assert.False(t, h.Register(ctx, c))
}
