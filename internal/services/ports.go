package services

import (
	"context"
	"time"

	"rescuelink/pkg/push"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Presence is the push side of the websocket hub.
type Presence interface {
	IsOnline(userID primitive.ObjectID) bool
	SendToUser(userID primitive.ObjectID, eventType string, payload interface{}) bool
	Broadcast(eventType string, payload interface{}) int
}

// GeoStore keeps the last known responder positions per case.
type GeoStore interface {
	GeoAdd(ctx context.Context, key, member string, longitude, latitude float64, ttl time.Duration) error
}

// Locker guards work that must run on one instance at a time.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// DevicePusher delivers mobile push by device platform.
type DevicePusher interface {
	Enabled() bool
	Send(ctx context.Context, platform string, request *push.NotificationRequest) (*push.NotificationResponse, error)
}
