package websocket

import (
	"encoding/json"
	"time"
)

// Server to client events.
const (
	EventNewSOS                      = "newSOS"
	EventSOSAlert                    = "sosAlert"
	EventSOSAccepted                 = "sosAccepted"
	EventSOSResolved                 = "sosResolved"
	EventSOSReadReceipt              = "sosReadReceipt"
	EventNewChat                     = "newChat"
	EventNewMessage                  = "newMessage"
	EventMessageReadReceipt          = "messageReadReceipt"
	EventReminder                    = "reminder"
	EventRespondingVolunteerLocation = "respondingVolunteerLocation"
	EventAuthenticated               = "authenticated"
	EventError                       = "error"
)

// Client to server events.
const (
	EventAuthenticate            = "authenticate"
	EventVolunteerLocationUpdate = "volunteerLocationUpdate"
	EventMessageRead             = "messageRead"
)

// Message is the envelope for every frame in both directions.
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

func encode(eventType string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
}

type authenticatePayload struct {
	UserID string `json:"userId"`
}

type errorPayload struct {
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
}
