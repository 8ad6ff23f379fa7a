package models

import (
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Chat struct {
	ID           primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Participants []primitive.ObjectID `json:"participants" bson:"participants"`
	RelatedSOS   *primitive.ObjectID  `json:"related_sos,omitempty" bson:"related_sos,omitempty"`
	// ParticipantKey identifies the room by its member set and related case.
	ParticipantKey string       `json:"-" bson:"participant_key"`
	LastMessage    *LastMessage `json:"last_message,omitempty" bson:"last_message,omitempty"`
	MessageCount   int64        `json:"message_count" bson:"message_count"`
	CreatedAt      time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at" bson:"updated_at"`
}

type LastMessage struct {
	Seq       int64              `json:"seq" bson:"seq"`
	Content   string             `json:"content" bson:"content"`
	SenderID  primitive.ObjectID `json:"sender_id" bson:"sender_id"`
	Timestamp time.Time          `json:"timestamp" bson:"timestamp"`
}

func (c *Chat) IsParticipant(userID primitive.ObjectID) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// HasAll reports whether every id in members is a participant.
func (c *Chat) HasAll(members ...primitive.ObjectID) bool {
	for _, m := range members {
		if !c.IsParticipant(m) {
			return false
		}
	}
	return true
}

// OtherParticipants returns every member except userID.
func (c *Chat) OtherParticipants(userID primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p != userID {
			out = append(out, p)
		}
	}
	return out
}

// ChatParticipantKey builds the order-insensitive room key for a member set
// and optional related SOS case. Duplicate members collapse.
func ChatParticipantKey(participants []primitive.ObjectID, relatedSOS *primitive.ObjectID) string {
	seen := make(map[string]struct{}, len(participants))
	hexes := make([]string, 0, len(participants))
	for _, p := range participants {
		h := p.Hex()
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		hexes = append(hexes, h)
	}
	sort.Strings(hexes)

	key := strings.Join(hexes, ":")
	if relatedSOS != nil {
		key += "@" + relatedSOS.Hex()
	}
	return key
}

// UniqueParticipants drops duplicate ids, keeping first-seen order.
func UniqueParticipants(participants []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(participants))
	out := make([]primitive.ObjectID, 0, len(participants))
	for _, p := range participants {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
