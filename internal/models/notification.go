package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationTypeSOS       NotificationType = "SOS"
	NotificationTypeChat      NotificationType = "CHAT"
	NotificationTypeReminder  NotificationType = "REMINDER"
	NotificationTypeSystem    NotificationType = "SYSTEM"
	NotificationTypeBroadcast NotificationType = "BROADCAST"
)

type RelatedKind string

const (
	RelatedKindSOS       RelatedKind = "SOS"
	RelatedKindChat      RelatedKind = "Chat"
	RelatedKindUser      RelatedKind = "User"
	RelatedKindBroadcast RelatedKind = "Broadcast"
)

// RelatedRef points a notification at the entity that produced it.
type RelatedRef struct {
	Kind RelatedKind        `json:"on_model,omitempty" bson:"on_model,omitempty"`
	ID   primitive.ObjectID `json:"related_id,omitempty" bson:"related_id,omitempty"`
}

func RelatedToSOS(id primitive.ObjectID) RelatedRef {
	return RelatedRef{Kind: RelatedKindSOS, ID: id}
}

func RelatedToChat(id primitive.ObjectID) RelatedRef {
	return RelatedRef{Kind: RelatedKindChat, ID: id}
}

func RelatedToUser(id primitive.ObjectID) RelatedRef {
	return RelatedRef{Kind: RelatedKindUser, ID: id}
}

func RelatedToBroadcast(id primitive.ObjectID) RelatedRef {
	return RelatedRef{Kind: RelatedKindBroadcast, ID: id}
}

func (r RelatedRef) IsZero() bool {
	return r.Kind == "" && r.ID.IsZero()
}

// RelatedVisitor handles every kind a RelatedRef can carry.
type RelatedVisitor[T any] interface {
	VisitSOS(id primitive.ObjectID) T
	VisitChat(id primitive.ObjectID) T
	VisitUser(id primitive.ObjectID) T
	VisitBroadcast(id primitive.ObjectID) T
}

func VisitRelated[T any](r RelatedRef, v RelatedVisitor[T]) (T, error) {
	var zero T
	switch r.Kind {
	case RelatedKindSOS:
		return v.VisitSOS(r.ID), nil
	case RelatedKindChat:
		return v.VisitChat(r.ID), nil
	case RelatedKindUser:
		return v.VisitUser(r.ID), nil
	case RelatedKindBroadcast:
		return v.VisitBroadcast(r.ID), nil
	}
	return zero, fmt.Errorf("unknown related kind %q", r.Kind)
}

type deepLinkVisitor struct{}

func (deepLinkVisitor) VisitSOS(id primitive.ObjectID) string  { return "/sos/" + id.Hex() }
func (deepLinkVisitor) VisitChat(id primitive.ObjectID) string { return "/chat/" + id.Hex() }
func (deepLinkVisitor) VisitUser(id primitive.ObjectID) string { return "/users/" + id.Hex() }
func (deepLinkVisitor) VisitBroadcast(id primitive.ObjectID) string {
	return "/broadcasts/" + id.Hex()
}

// DeepLink returns the client route for the related entity, or "" when unset.
func (r RelatedRef) DeepLink() string {
	link, err := VisitRelated[string](r, deepLinkVisitor{})
	if err != nil {
		return ""
	}
	return link
}

type Notification struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RecipientID primitive.ObjectID `json:"recipient_id" bson:"recipient_id"`
	Type        NotificationType   `json:"type" bson:"type"`
	Title       string             `json:"title" bson:"title"`
	Message     string             `json:"message" bson:"message"`
	RelatedRef  `bson:",inline"`
	Link        string                 `json:"link,omitempty" bson:"link,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty" bson:"metadata,omitempty"`
	IsRead      bool                   `json:"is_read" bson:"is_read"`
	ReadAt      *time.Time             `json:"read_at,omitempty" bson:"read_at,omitempty"`
	CreatedAt   time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at" bson:"updated_at"`
}
