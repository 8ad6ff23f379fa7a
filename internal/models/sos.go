package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SOSMode string

const (
	SOSModeSilent        SOSMode = "silent"
	SOSModeSoftVolunteer SOSMode = "soft-to-volunteer"
	SOSModeSoftContact   SOSMode = "soft-to-contact"
)

// ParseSOSMode maps the request's mode and receiver pair onto a raise mode.
// Silent alerts always go to volunteers.
func ParseSOSMode(mode, receiver string) (SOSMode, error) {
	switch mode {
	case "silent":
		return SOSModeSilent, nil
	case "soft", "":
		switch receiver {
		case "volunteer", "":
			return SOSModeSoftVolunteer, nil
		case "contact":
			return SOSModeSoftContact, nil
		}
		return "", fmt.Errorf("unknown receiver %q", receiver)
	}
	return "", fmt.Errorf("unknown mode %q", mode)
}

func (m SOSMode) IsContactDirected() bool {
	return m == SOSModeSoftContact
}

type Coordinates struct {
	Latitude  float64 `json:"latitude" bson:"latitude"`
	Longitude float64 `json:"longitude" bson:"longitude"`
}

func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// MapsLink returns a Google Maps URL for the position.
func (c Coordinates) MapsLink() string {
	return fmt.Sprintf("https://maps.google.com/?q=%v,%v", c.Latitude, c.Longitude)
}

type SOS struct {
	ID          primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	UserID      primitive.ObjectID   `json:"user_id" bson:"user_id"`
	Message     string               `json:"message" bson:"message"`
	Coordinates Coordinates          `json:"coordinates" bson:"coordinates"`
	Mode        SOSMode              `json:"mode" bson:"mode"`
	IsContact   bool                 `json:"is_contact" bson:"is_contact"`
	IsResolved  bool                 `json:"is_resolved" bson:"is_resolved"`
	AcceptedBy  []primitive.ObjectID `json:"accepted_by" bson:"accepted_by"`
	Address     string               `json:"address,omitempty" bson:"address,omitempty"`
	CreatedAt   time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at" bson:"updated_at"`
	ResolvedAt  *time.Time           `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
}

func (s *SOS) HasAccepted(volunteerID primitive.ObjectID) bool {
	for _, id := range s.AcceptedBy {
		if id == volunteerID {
			return true
		}
	}
	return false
}

type SOSReadReceipt struct {
	VolunteerID   primitive.ObjectID `json:"volunteer_id"`
	VolunteerName string             `json:"volunteer_name"`
	ReadAt        time.Time          `json:"read_at"`
}

type SOSDetail struct {
	*SOS
	Creator      *UserSummary     `json:"creator,omitempty"`
	ReadReceipts []SOSReadReceipt `json:"read_receipts"`
}

type SOSStats struct {
	Total            int64 `json:"total"`
	Resolved         int64 `json:"resolved"`
	Ongoing          int64 `json:"ongoing"`
	ActiveVolunteers int64 `json:"active_volunteers"`
}

type SafetyReportRow struct {
	UserName    string      `json:"user"`
	Email       string      `json:"email"`
	Message     string      `json:"message"`
	Coordinates Coordinates `json:"coordinates"`
	IsResolved  bool        `json:"is_resolved"`
	CreatedAt   time.Time   `json:"created_at"`
	ResolvedAt  *time.Time  `json:"resolved_at,omitempty"`
}

type SOSFilter struct {
	UserID     *primitive.ObjectID
	IsResolved *bool
	IsContact  *bool
	CreatedGTE *time.Time
	CreatedLTE *time.Time
}
