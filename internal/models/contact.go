package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EmergencyContacts is a user's list of people alerted by contact-mode SOS.
type EmergencyContacts struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user_id"`
	Contacts  []Contact          `json:"contacts" bson:"contacts"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

type Contact struct {
	Name  string `json:"name" bson:"name"`
	Email string `json:"email" bson:"email"`
	Phone string `json:"phone,omitempty" bson:"phone,omitempty"`
}
