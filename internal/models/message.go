package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Message struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ChatID      primitive.ObjectID `json:"chat_id" bson:"chat_id"`
	Seq         int64              `json:"seq" bson:"seq"`
	SenderID    primitive.ObjectID `json:"sender_id" bson:"sender_id"`
	Content     string             `json:"content" bson:"content"`
	ReadBy      []ReadReceipt      `json:"read_by" bson:"read_by"`
	Attachments []Attachment       `json:"attachments,omitempty" bson:"attachments,omitempty"`
	Timestamp   time.Time          `json:"timestamp" bson:"timestamp"`
}

type ReadReceipt struct {
	UserID primitive.ObjectID `json:"user_id" bson:"user_id"`
	ReadAt time.Time          `json:"read_at" bson:"read_at"`
}

type Attachment struct {
	URL      string `json:"url" bson:"url"`
	MimeType string `json:"mime_type" bson:"mime_type"`
}

func (m *Message) IsReadBy(userID primitive.ObjectID) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}
